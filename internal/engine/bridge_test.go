package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/walterlow/snapit/internal/project"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProject(durationMs project.Millis) *project.Project {
	return project.New("bridge test", project.Sources{
		VideoPath: "/tmp/in.mp4",
		Width:     1920,
		Height:    1080,
	}, durationMs)
}

// fakeEngine records calls and lets tests inject failures.
type fakeEngine struct {
	mu         sync.Mutex
	created    []string // project ids in creation order
	destroyed  []string
	live       map[string]string // instance id -> project id
	destroyErr error
	createErr  error
	events     chan PlaybackEvent
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		live:   make(map[string]string),
		events: make(chan PlaybackEvent, 8),
	}
}

func (f *fakeEngine) CreateInstance(ctx context.Context, p *project.Project) (*Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := fmt.Sprintf("inst-%d", len(f.created))
	f.created = append(f.created, p.ID)
	f.live[id] = p.ID
	return &Instance{ID: id, Metadata: InstanceMetadata{DurationMs: p.Timeline.DurationMs.Int64()}}, nil
}

func (f *fakeEngine) DestroyInstance(ctx context.Context, instanceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, instanceID)
	if f.destroyErr != nil {
		return f.destroyErr
	}
	if _, ok := f.live[instanceID]; !ok {
		return fmt.Errorf("unknown instance %s", instanceID)
	}
	delete(f.live, instanceID)
	return nil
}

func (f *fakeEngine) RenderFrame(ctx context.Context, instanceID string, timestampMs int64) (*Frame, error) {
	return &Frame{Number: timestampMs / 16, TimestampMs: timestampMs}, nil
}

func (f *fakeEngine) Play(ctx context.Context, instanceID string) error  { return nil }
func (f *fakeEngine) Pause(ctx context.Context, instanceID string) error { return nil }
func (f *fakeEngine) Seek(ctx context.Context, instanceID string, timestampMs int64) error {
	return nil
}

func (f *fakeEngine) Export(ctx context.Context, p *project.Project, outputPath string, onProgress func(ExportProgress)) (*ExportResult, error) {
	return &ExportResult{OutputPath: outputPath, Format: p.Export.Format}, nil
}

func (f *fakeEngine) GenerateAutoZoom(ctx context.Context, p *project.Project, cfg *AutoZoomConfig) (*project.Project, error) {
	return p.Clone(), nil
}

func (f *fakeEngine) PlaybackEvents() <-chan PlaybackEvent { return f.events }

func (f *fakeEngine) liveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.live)
}

func (f *fakeEngine) liveProject() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, pid := range f.live {
		return pid
	}
	return ""
}

func TestBridgeInitialize(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())

	inst, err := b.Initialize(context.Background(), newTestProject(10000))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if inst.ID == "" {
		t.Error("instance ID is empty")
	}
	if !b.HasInstance() {
		t.Error("HasInstance() = false after Initialize")
	}
	if b.IsInitializing() {
		t.Error("IsInitializing() = true after Initialize returned")
	}
}

func TestBridgeInitializeReplacesInstance(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())
	ctx := context.Background()

	pa := newTestProject(10000)
	pb := newTestProject(20000)

	if _, err := b.Initialize(ctx, pa); err != nil {
		t.Fatalf("Initialize(A) error = %v", err)
	}
	if _, err := b.Initialize(ctx, pb); err != nil {
		t.Fatalf("Initialize(B) error = %v", err)
	}

	if eng.liveCount() != 1 {
		t.Fatalf("live instances = %d, want 1", eng.liveCount())
	}
	if got := eng.liveProject(); got != pb.ID {
		t.Errorf("live instance bound to %s, want project B %s", got, pb.ID)
	}
}

func TestBridgeInitializeConcurrent(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _ = b.Initialize(context.Background(), newTestProject(project.Millis(1000*(n+1))))
		}(i)
	}
	wg.Wait()

	// Whichever call ran last wins; what matters is that exactly one
	// instance survives.
	if eng.liveCount() != 1 {
		t.Fatalf("live instances = %d, want 1", eng.liveCount())
	}
	if !b.HasInstance() {
		t.Error("HasInstance() = false after concurrent initializes")
	}
}

func TestBridgeInitializeSurvivesDestroyFailure(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())
	ctx := context.Background()

	if _, err := b.Initialize(ctx, newTestProject(10000)); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	eng.destroyErr = errors.New("engine hiccup")
	if _, err := b.Initialize(ctx, newTestProject(20000)); err != nil {
		t.Fatalf("Initialize() after destroy failure error = %v", err)
	}
	if !b.HasInstance() {
		t.Error("HasInstance() = false; destroy failure must not abort creation")
	}
}

func TestBridgeInitializeCreateFailure(t *testing.T) {
	eng := newFakeEngine()
	eng.createErr = errors.New("gpu unavailable")
	b := NewBridge(eng, discardLogger())

	if _, err := b.Initialize(context.Background(), newTestProject(10000)); err == nil {
		t.Fatal("Initialize() should propagate create failure")
	}
	if b.HasInstance() {
		t.Error("HasInstance() = true after failed Initialize")
	}
}

func TestBridgeDestroyIdempotent(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())
	ctx := context.Background()

	if err := b.Destroy(ctx); err != nil {
		t.Errorf("Destroy() with no instance error = %v, want nil", err)
	}

	if _, err := b.Initialize(ctx, newTestProject(10000)); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if err := b.Destroy(ctx); err != nil {
		t.Errorf("Destroy() error = %v", err)
	}
	if err := b.Destroy(ctx); err != nil {
		t.Errorf("second Destroy() error = %v, want nil", err)
	}
	if eng.liveCount() != 0 {
		t.Errorf("live instances = %d, want 0", eng.liveCount())
	}
}

func TestBridgeRenderFrameNoInstance(t *testing.T) {
	b := NewBridge(newFakeEngine(), discardLogger())

	_, err := b.RenderFrame(context.Background(), 1000)
	if !errors.Is(err, ErrNoInstance) {
		t.Errorf("RenderFrame() error = %v, want ErrNoInstance", err)
	}
}

func TestBridgeTransportNoopsWithoutInstance(t *testing.T) {
	b := NewBridge(newFakeEngine(), discardLogger())
	ctx := context.Background()

	if err := b.Play(ctx); err != nil {
		t.Errorf("Play() error = %v, want nil", err)
	}
	if err := b.Pause(ctx); err != nil {
		t.Errorf("Pause() error = %v, want nil", err)
	}
	if err := b.Seek(ctx, 500); err != nil {
		t.Errorf("Seek() error = %v, want nil", err)
	}
}

func TestBridgeOwnsEvent(t *testing.T) {
	eng := newFakeEngine()
	b := NewBridge(eng, discardLogger())
	ctx := context.Background()

	inst, err := b.Initialize(ctx, newTestProject(10000))
	if err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !b.OwnsEvent(PlaybackEvent{InstanceID: inst.ID}) {
		t.Error("OwnsEvent() = false for live instance")
	}
	if b.OwnsEvent(PlaybackEvent{InstanceID: "stale-instance"}) {
		t.Error("OwnsEvent() = true for stale instance")
	}
}
