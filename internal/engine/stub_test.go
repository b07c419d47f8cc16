package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/walterlow/snapit/internal/cursor"
	"github.com/walterlow/snapit/internal/project"
)

func writeCursorFile(t *testing.T, rec cursor.Recording) string {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal recording: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cursor.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
	return path
}

func TestStubEngineInstanceLifecycle(t *testing.T) {
	eng := NewStubEngine(discardLogger())
	ctx := context.Background()

	inst, err := eng.CreateInstance(ctx, newTestProject(10000))
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	if inst.Metadata.DurationMs != 10000 {
		t.Errorf("metadata duration = %d, want 10000", inst.Metadata.DurationMs)
	}

	frame, err := eng.RenderFrame(ctx, inst.ID, 1000)
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	if frame.Number != 60 {
		t.Errorf("frame at 1000ms = %d, want 60 at 60fps", frame.Number)
	}

	if err := eng.DestroyInstance(ctx, inst.ID); err != nil {
		t.Fatalf("DestroyInstance() error = %v", err)
	}
	if err := eng.DestroyInstance(ctx, inst.ID); err == nil {
		t.Error("DestroyInstance() should fail for already destroyed instance")
	}
	if _, err := eng.RenderFrame(ctx, inst.ID, 0); err == nil {
		t.Error("RenderFrame() should fail for destroyed instance")
	}
}

func TestStubEngineEmitsPlaybackEvents(t *testing.T) {
	eng := NewStubEngine(discardLogger())
	ctx := context.Background()

	inst, err := eng.CreateInstance(ctx, newTestProject(10000))
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}

	if err := eng.Seek(ctx, inst.ID, 2500); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	ev := <-eng.PlaybackEvents()
	if ev.TimestampMs != 2500 || ev.State != StatePaused {
		t.Errorf("seek event = %+v, want ts 2500 paused", ev)
	}

	if err := eng.Play(ctx, inst.ID); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	ev = <-eng.PlaybackEvents()
	if ev.State != StatePlaying {
		t.Errorf("play event state = %s, want playing", ev.State)
	}
}

func TestStubEngineExport(t *testing.T) {
	eng := NewStubEngine(discardLogger())
	p := newTestProject(10000)
	p.Export.Format = project.FormatWebM
	out := filepath.Join(t.TempDir(), "out.webm")

	var stages []string
	result, err := eng.Export(context.Background(), p, out, func(pr ExportProgress) {
		stages = append(stages, pr.Stage)
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if result.Format != project.FormatWebM {
		t.Errorf("result format = %s, want webm", result.Format)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("export output missing: %v", err)
	}
	if len(stages) == 0 || stages[len(stages)-1] != "done" {
		t.Errorf("progress stages = %v, want terminal done", stages)
	}
}

func TestStubEngineAutoZoom(t *testing.T) {
	// Two dwell clusters separated by a fast traversal.
	var events []cursor.Event
	for ts := 0.0; ts <= 1200; ts += 100 {
		events = append(events, cursor.Event{TimestampMs: ts, X: 400, Y: 300})
	}
	events = append(events, cursor.Event{TimestampMs: 1300, X: 1500, Y: 800})
	for ts := 1400.0; ts <= 2600; ts += 100 {
		events = append(events, cursor.Event{TimestampMs: ts, X: 1600, Y: 900})
	}

	path := writeCursorFile(t, cursor.Recording{
		Events: events,
		Width:  1920,
		Height: 1080,
	})

	eng := NewStubEngine(discardLogger())
	p := newTestProject(10000)
	p.Sources.CursorPath = path

	out, err := eng.GenerateAutoZoom(context.Background(), p, nil)
	if err != nil {
		t.Fatalf("GenerateAutoZoom() error = %v", err)
	}

	if len(out.ZoomRegions) != 2 {
		t.Fatalf("got %d zoom regions, want 2: %+v", len(out.ZoomRegions), out.ZoomRegions)
	}
	for i, r := range out.ZoomRegions {
		if r.ID == "" {
			t.Errorf("region %d has no id", i)
		}
		if r.StartMs < 0 || r.EndMs > p.Timeline.DurationMs || r.StartMs >= r.EndMs {
			t.Errorf("region %d out of bounds: [%v, %v]", i, r.StartMs, r.EndMs)
		}
		if r.Rect.W <= 0 || r.Rect.W > 1 || r.Rect.X < 0 || r.Rect.X+r.Rect.W > 1.0001 {
			t.Errorf("region %d rect out of frame: %+v", i, r.Rect)
		}
	}
	if out.ZoomRegions[0].StartMs > out.ZoomRegions[1].StartMs {
		t.Error("zoom regions not sorted by start")
	}

	// The input project is untouched.
	if len(p.ZoomRegions) != 0 {
		t.Error("GenerateAutoZoom mutated the input project")
	}
}

func TestStubEngineAutoZoomRequiresTelemetry(t *testing.T) {
	eng := NewStubEngine(discardLogger())
	if _, err := eng.GenerateAutoZoom(context.Background(), newTestProject(10000), nil); err == nil {
		t.Error("GenerateAutoZoom() should fail without cursor telemetry")
	}
}
