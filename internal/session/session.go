// Package session implements the editing session core: it exclusively owns
// the loaded project aggregate, drives playback and seeking through the
// render engine bridge, edits the timeline effect tracks, and orchestrates
// export and auto-zoom jobs.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/walterlow/snapit/internal/cursor"
	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/logging"
	"github.com/walterlow/snapit/internal/project"
	"github.com/walterlow/snapit/internal/store"
)

const commandTimeout = 5 * time.Second

// Session is the single editing session. All public methods are safe for
// concurrent use; mutations of the project aggregate are immediately visible
// to subsequent reads. The render engine is the only asynchronous actor, and
// every interaction with it goes through the bridge.
type Session struct {
	logger *slog.Logger
	eng    engine.Engine
	bridge *engine.Bridge
	repo   store.Repository

	mu        sync.Mutex
	project   *project.Project
	telemetry *cursor.Recording
	selection project.Selection

	currentTimeMs project.Millis
	currentFrame  int64
	playing       bool
	seeking       bool

	exporting          bool
	exportProgress     engine.ExportProgress
	generatingAutoZoom bool
	saving             bool
	lastSavedAt        time.Time

	// exportGen tags each export job so progress or completion pushed after
	// a cancel can be detected and discarded.
	exportGen atomic.Int64
}

// New creates a session around an engine and a project repository.
func New(eng engine.Engine, repo store.Repository, logger *slog.Logger) *Session {
	return &Session{
		logger:    logger,
		eng:       eng,
		bridge:    engine.NewBridge(eng, logger),
		repo:      repo,
		selection: project.NoSelection,
	}
}

// Bridge exposes the render engine bridge, for status surfaces only. The
// bridge's instance remains owned by the session.
func (s *Session) Bridge() *engine.Bridge {
	return s.bridge
}

// Run consumes playback events pushed by the engine until ctx is cancelled.
// It is the single reconciliation path between optimistic local state and
// actual engine state.
func (s *Session) Run(ctx context.Context) error {
	events := s.eng.PlaybackEvents()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleEngineEvent(ev)
		}
	}
}

// LoadProject replaces the entire session state with the given project:
// playback position is reset, the selection is cleared, a render instance is
// created, and cursor telemetry (if referenced) is side-loaded best-effort
// in the background.
func (s *Session) LoadProject(ctx context.Context, p *project.Project) error {
	s.mu.Lock()
	s.project = p
	s.telemetry = nil
	s.selection = project.NoSelection
	s.currentTimeMs = 0
	s.currentFrame = 0
	s.playing = false
	s.seeking = false
	s.exporting = false
	s.exportProgress = engine.ExportProgress{}
	s.generatingAutoZoom = false
	s.mu.Unlock()

	if _, err := s.bridge.Initialize(ctx, p); err != nil {
		return err
	}

	if p.HasCursorTelemetry() {
		go s.sideLoadTelemetry(p)
	}

	s.logger.Info("project loaded", "project_id", p.ID, "name", p.Name,
		"duration_ms", p.Timeline.DurationMs.Int64())
	return nil
}

// sideLoadTelemetry loads the cursor recording referenced by the project.
// Failure does not block the project load; a dimension mismatch against the
// project's video is a warning, not an error.
func (s *Session) sideLoadTelemetry(p *project.Project) {
	log := logging.WithProjectID(s.logger, p.ID)

	rec, err := cursor.LoadRecording(p.Sources.CursorPath)
	if err != nil {
		log.Warn("cursor telemetry load failed", "error", err)
		return
	}

	if !rec.MatchesDimensions(p.Sources.Width, p.Sources.Height) {
		log.Warn("cursor telemetry dimensions differ from video",
			"telemetry", fmt.Sprintf("%dx%d", rec.Width, rec.Height),
			"video", fmt.Sprintf("%dx%d", p.Sources.Width, p.Sources.Height))
	}

	s.mu.Lock()
	// The project may have been replaced or cleared while loading.
	if s.project != nil && s.project.ID == p.ID {
		s.telemetry = rec
	}
	s.mu.Unlock()
}

// SaveProject sanitizes and persists the current project. Silent no-op with
// no loaded project.
func (s *Session) SaveProject(ctx context.Context) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil
	}
	s.saving = true
	s.project.UpdatedAt = time.Now()
	snapshot := project.SanitizeForTransport(s.project)
	s.mu.Unlock()

	err := s.repo.SaveProject(ctx, snapshot)

	s.mu.Lock()
	s.saving = false
	if err == nil {
		s.lastSavedAt = time.Now()
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.logger.Info("project saved", "project_id", snapshot.ID)
	return nil
}

// Clear destroys any live render instance (fire-and-forget) and resets every
// piece of session state to initial values in one step.
func (s *Session) Clear() {
	s.bridge.DestroyAsync()
	s.exportGen.Add(1) // orphan any in-flight export callbacks

	s.mu.Lock()
	s.project = nil
	s.telemetry = nil
	s.selection = project.NoSelection
	s.currentTimeMs = 0
	s.currentFrame = 0
	s.playing = false
	s.seeking = false
	s.exporting = false
	s.exportProgress = engine.ExportProgress{}
	s.generatingAutoZoom = false
	s.saving = false
	s.lastSavedAt = time.Time{}
	s.mu.Unlock()

	s.logger.Info("session cleared")
}

// Project returns a deep copy of the loaded project, or nil. External
// components never receive a live mutable reference to the aggregate.
func (s *Session) Project() *project.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil
	}
	return s.project.Clone()
}

// HasProject reports whether a project is loaded.
func (s *Session) HasProject() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project != nil
}

// Telemetry returns the side-loaded cursor recording, or nil.
func (s *Session) Telemetry() *cursor.Recording {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetry
}

// Status is a point-in-time snapshot of the session for status surfaces.
type Status struct {
	HasProject    bool              `json:"has_project"`
	ProjectID     string            `json:"project_id,omitempty"`
	ProjectName   string            `json:"project_name,omitempty"`
	CurrentTimeMs float64           `json:"current_time_ms"`
	CurrentFrame  int64             `json:"current_frame"`
	Playing       bool              `json:"playing"`
	Seeking       bool              `json:"seeking"`
	Initializing  bool              `json:"initializing"`
	Exporting     bool              `json:"exporting"`
	ExportStage   string            `json:"export_stage,omitempty"`
	ExportPercent float64           `json:"export_percent"`
	AutoZooming   bool              `json:"auto_zooming"`
	Saving        bool              `json:"saving"`
	LastSavedAt   time.Time         `json:"last_saved_at,omitzero"`
	Selection     project.Selection `json:"selection"`
}

// Status returns a snapshot of the session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		HasProject:    s.project != nil,
		CurrentTimeMs: float64(s.currentTimeMs),
		CurrentFrame:  s.currentFrame,
		Playing:       s.playing,
		Seeking:       s.seeking,
		Initializing:  s.bridge.IsInitializing(),
		Exporting:     s.exporting,
		ExportStage:   s.exportProgress.Stage,
		ExportPercent: s.exportProgress.Percent,
		AutoZooming:   s.generatingAutoZoom,
		Saving:        s.saving,
		LastSavedAt:   s.lastSavedAt,
		Selection:     s.selection,
	}
	if s.project != nil {
		st.ProjectID = s.project.ID
		st.ProjectName = s.project.Name
	}
	return st
}
