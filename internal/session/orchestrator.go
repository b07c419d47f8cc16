package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/export"
	"github.com/walterlow/snapit/internal/project"
)

var (
	// ErrExportInProgress is returned when an export is started while one is
	// already running.
	ErrExportInProgress = errors.New("export already in progress")

	// ErrAutoZoomInProgress is returned when auto-zoom generation is started
	// while one is already running.
	ErrAutoZoomInProgress = errors.New("auto-zoom generation already in progress")

	// ErrNoCursorTelemetry is returned when auto-zoom is requested for a
	// project without cursor telemetry.
	ErrNoCursorTelemetry = errors.New("project has no cursor telemetry; auto-zoom needs a cursor recording")
)

// ExportVideo runs a one-shot export of the current project to outputPath.
// The target format is inferred from the path's extension; when it differs
// from the project's stored export format, a format-overridden copy is
// submitted for this job only and the live project is untouched. The job
// operates on a sanitized snapshot, independent of the live playback
// instance. Silent no-op with no loaded project.
func (s *Session) ExportVideo(ctx context.Context, outputPath string) (*engine.ExportResult, error) {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil, nil
	}
	if s.exporting {
		s.mu.Unlock()
		return nil, ErrExportInProgress
	}

	format := export.InferFormat(outputPath)
	job := project.SanitizeForTransport(s.project)
	job.Export.Format = format

	s.exporting = true
	s.exportProgress = engine.ExportProgress{}
	gen := s.exportGen.Add(1)
	s.mu.Unlock()

	s.logger.Info("export started", "project_id", job.ID, "output", outputPath, "format", format)

	result, err := s.eng.Export(ctx, job, outputPath, func(p engine.ExportProgress) {
		s.applyExportProgress(gen, p)
	})

	s.mu.Lock()
	// A cancel (or Clear) bumps the generation; its reset already happened
	// and a newer job may own the flags now.
	if s.exportGen.Load() == gen {
		s.exporting = false
		s.exportProgress = engine.ExportProgress{}
	}
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	s.logger.Info("export completed", "output", result.OutputPath, "bytes", result.SizeBytes)
	return result, nil
}

// SetExportProgress receives asynchronous progress pushed from outside the
// export callback. Updates are dropped when no export is running; a cancel
// clears the exporting flag, so late pushes fall through here too.
func (s *Session) SetExportProgress(p engine.ExportProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exporting {
		return
	}
	s.exportProgress = p
}

// applyExportProgress is the export callback path: gen pins the update to
// the job that produced it, so a cancelled job's stragglers cannot touch a
// newer job's state.
func (s *Session) applyExportProgress(gen int64, p engine.ExportProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exporting || s.exportGen.Load() != gen {
		return
	}
	s.exportProgress = p
}

// CancelExport resets the local export state immediately. Cancellation is
// optimistic and local only: the underlying job is not guaranteed to stop,
// but the generation bump guarantees any events it still pushes are
// discarded.
func (s *Session) CancelExport() {
	s.exportGen.Add(1)

	s.mu.Lock()
	wasExporting := s.exporting
	s.exporting = false
	s.exportProgress = engine.ExportProgress{}
	s.mu.Unlock()

	if wasExporting {
		s.logger.Info("export cancelled locally; engine job may still be running")
	}
}

// IsExporting reports whether an export job is active.
func (s *Session) IsExporting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exporting
}

// ExportProgress returns the latest progress pushed by the active export.
func (s *Session) ExportProgress() engine.ExportProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exportProgress
}

// GenerateAutoZoom submits the current project and optional config to the
// engine's auto-zoom generator and, on success, replaces the entire local
// project with the returned zoom-augmented project. The replace is
// wholesale: edits made while the job was in flight are discarded by design.
// Fails fast when the project has no cursor telemetry.
func (s *Session) GenerateAutoZoom(ctx context.Context, cfg *engine.AutoZoomConfig) error {
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil
	}
	if !s.project.HasCursorTelemetry() {
		s.mu.Unlock()
		return ErrNoCursorTelemetry
	}
	if s.generatingAutoZoom {
		s.mu.Unlock()
		return ErrAutoZoomInProgress
	}

	snapshot := project.SanitizeForTransport(s.project)
	s.generatingAutoZoom = true
	s.mu.Unlock()

	augmented, err := s.eng.GenerateAutoZoom(ctx, snapshot, cfg)

	s.mu.Lock()
	s.generatingAutoZoom = false
	if err == nil {
		// The session may have been cleared or loaded with another project
		// while the job ran; a stale result is dropped.
		if s.project != nil && s.project.ID == augmented.ID {
			s.project = augmented
			s.selection = project.NoSelection
		} else {
			err = fmt.Errorf("auto-zoom result for %s arrived after project changed", augmented.ID)
		}
	}
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("auto-zoom: %w", err)
	}
	s.logger.Info("auto-zoom applied", "project_id", snapshot.ID)
	return nil
}

// IsGeneratingAutoZoom reports whether an auto-zoom job is active.
func (s *Session) IsGeneratingAutoZoom() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generatingAutoZoom
}
