package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/project"
	"github.com/walterlow/snapit/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo is an in-memory store.Repository.
type fakeRepo struct {
	mu       sync.Mutex
	projects map[string]*project.Project
	config   map[string]string
	saveErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects: make(map[string]*project.Project),
		config:   make(map[string]string),
	}
}

func (r *fakeRepo) SaveProject(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.projects[p.ID] = p.Clone()
	return nil
}

func (r *fakeRepo) GetProject(ctx context.Context, id string) (*project.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	return p.Clone(), nil
}

func (r *fakeRepo) ListProjects(ctx context.Context) ([]*store.ProjectInfo, error) {
	return nil, nil
}

func (r *fakeRepo) DeleteProject(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

func (r *fakeRepo) GetConfig(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config[key], nil
}

func (r *fakeRepo) SetConfig(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config[key] = value
	return nil
}

func (r *fakeRepo) saved(id string) *project.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[id]
}

func newTestSession(t *testing.T) (*Session, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	s := New(engine.NewStubEngine(discardLogger()), repo, discardLogger())
	return s, repo
}

func newLoadedSession(t *testing.T, durationMs project.Millis) (*Session, *fakeRepo) {
	t.Helper()
	s, repo := newTestSession(t)
	p := project.New("session test", project.Sources{
		VideoPath: "/tmp/capture.mp4",
		Width:     1920,
		Height:    1080,
	}, durationMs)
	if err := s.LoadProject(context.Background(), p); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}
	return s, repo
}

func TestLoadProjectResetsState(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)

	s.Seek(4000)
	s.SetPlaying(true)
	s.AddZoomRegion(project.ZoomRegion{StartMs: 0, EndMs: 1000})

	next := project.New("second", project.Sources{VideoPath: "/tmp/b.mp4", Width: 1280, Height: 720}, 5000)
	if err := s.LoadProject(context.Background(), next); err != nil {
		t.Fatalf("LoadProject() error = %v", err)
	}

	st := s.Status()
	if st.CurrentTimeMs != 0 {
		t.Errorf("currentTimeMs = %v, want 0", st.CurrentTimeMs)
	}
	if st.Playing {
		t.Error("playing = true after load")
	}
	if !st.Selection.IsNone() {
		t.Errorf("selection = %+v, want none", st.Selection)
	}
	if st.ProjectID != next.ID {
		t.Errorf("project = %s, want %s", st.ProjectID, next.ID)
	}
	if !s.Bridge().HasInstance() {
		t.Error("no render instance after load")
	}
}

func TestSaveProjectSanitizes(t *testing.T) {
	s, repo := newLoadedSession(t, 10000)

	s.AddZoomRegion(project.ZoomRegion{StartMs: 100.7, EndMs: 2000.2})

	if err := s.SaveProject(context.Background()); err != nil {
		t.Fatalf("SaveProject() error = %v", err)
	}

	st := s.Status()
	if st.LastSavedAt.IsZero() {
		t.Error("lastSavedAt not set after save")
	}
	if st.Saving {
		t.Error("saving flag still set")
	}

	saved := repo.saved(st.ProjectID)
	if saved == nil {
		t.Fatal("project not persisted")
	}
	if saved.ZoomRegions[0].StartMs != 101 || saved.ZoomRegions[0].EndMs != 2000 {
		t.Errorf("persisted zoom = [%v, %v], want sanitized [101, 2000]",
			saved.ZoomRegions[0].StartMs, saved.ZoomRegions[0].EndMs)
	}

	// The live project keeps its fractional values.
	live := s.Project()
	if live.ZoomRegions[0].StartMs != 100.7 {
		t.Errorf("live zoom start = %v, want 100.7", live.ZoomRegions[0].StartMs)
	}
}

func TestSaveProjectNoProject(t *testing.T) {
	s, _ := newTestSession(t)
	if err := s.SaveProject(context.Background()); err != nil {
		t.Errorf("SaveProject() with no project error = %v, want nil", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)

	s.Seek(3000)
	s.SetPlaying(true)
	s.AddZoomRegion(project.ZoomRegion{StartMs: 0, EndMs: 1000})

	s.Clear()

	if s.HasProject() {
		t.Error("project still loaded after Clear")
	}
	if s.Bridge().HasInstance() {
		t.Error("render instance still owned after Clear")
	}
	st := s.Status()
	if st.CurrentTimeMs != 0 || st.Playing || st.Exporting || !st.Selection.IsNone() {
		t.Errorf("state not reset: %+v", st)
	}

	// Editor operations after Clear are silent no-ops.
	s.Seek(500)
	if s.CurrentTimeMs() != 0 {
		t.Error("Seek() mutated state with no project")
	}
	if got := s.AddZoomRegion(project.ZoomRegion{StartMs: 0, EndMs: 100}); got != nil {
		t.Error("AddZoomRegion() returned a segment with no project")
	}
}

func TestRunReconcilesEngineEvents(t *testing.T) {
	s, _ := newLoadedSession(t, 10000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx)
		close(done)
	}()

	// A seek reaches the stub engine which acknowledges with an event.
	s.Seek(2500)

	deadline := time.After(2 * time.Second)
	for {
		st := s.Status()
		if !st.Seeking && st.CurrentTimeMs == 2500 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("engine event never reconciled: %+v", st)
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
