package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/walterlow/snapit/internal/cursor"
	"github.com/walterlow/snapit/internal/project"
)

// Auto-zoom defaults applied when the config leaves a field zero.
const (
	defaultMinDwellMs   = 800.0
	defaultZoomScale    = 2.0
	defaultDwellRadius  = 0.04 // fraction of the recording's smaller side
	defaultRegionPadMs  = 250.0
	defaultMaxRegions   = 12
	stubEventBufferSize = 64
)

// StubEngine is an in-memory Engine used when no engine URL is configured,
// and by tests. It tracks instances, acknowledges transport commands with
// synthetic playback events, writes placeholder export output, and derives
// auto-zoom regions from cursor telemetry locally.
type StubEngine struct {
	logger *slog.Logger

	mu        sync.Mutex
	instances map[string]*stubInstance

	events chan PlaybackEvent
}

type stubInstance struct {
	meta    InstanceMetadata
	timeMs  float64
	playing bool
}

// NewStubEngine creates a stub engine.
func NewStubEngine(logger *slog.Logger) *StubEngine {
	return &StubEngine{
		logger:    logger,
		instances: make(map[string]*stubInstance),
		events:    make(chan PlaybackEvent, stubEventBufferSize),
	}
}

func (e *StubEngine) CreateInstance(ctx context.Context, p *project.Project) (*Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := uuid.New().String()
	meta := InstanceMetadata{
		Width:      p.Sources.Width,
		Height:     p.Sources.Height,
		DurationMs: p.Timeline.DurationMs.Int64(),
		FPS:        60,
	}
	e.instances[id] = &stubInstance{meta: meta}

	e.logger.Info("engine stub: instance created", "instance_id", id, "project_id", p.ID)
	return &Instance{ID: id, Metadata: meta}, nil
}

func (e *StubEngine) DestroyInstance(ctx context.Context, instanceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.instances[instanceID]; !ok {
		return fmt.Errorf("unknown instance %s", instanceID)
	}
	delete(e.instances, instanceID)
	e.logger.Info("engine stub: instance destroyed", "instance_id", instanceID)
	return nil
}

func (e *StubEngine) RenderFrame(ctx context.Context, instanceID string, timestampMs int64) (*Frame, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[instanceID]
	if !ok {
		return nil, fmt.Errorf("unknown instance %s", instanceID)
	}

	frame := int64(math.Floor(float64(timestampMs) * inst.meta.FPS / 1000))
	return &Frame{
		Number:      frame,
		TimestampMs: timestampMs,
		PixelHandle: fmt.Sprintf("stub://%s/%d", instanceID, frame),
	}, nil
}

func (e *StubEngine) Play(ctx context.Context, instanceID string) error {
	return e.setPlaying(instanceID, true)
}

func (e *StubEngine) Pause(ctx context.Context, instanceID string) error {
	return e.setPlaying(instanceID, false)
}

func (e *StubEngine) setPlaying(instanceID string, playing bool) error {
	e.mu.Lock()
	inst, ok := e.instances[instanceID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown instance %s", instanceID)
	}
	inst.playing = playing
	ev := e.eventLocked(instanceID, inst)
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

func (e *StubEngine) Seek(ctx context.Context, instanceID string, timestampMs int64) error {
	e.mu.Lock()
	inst, ok := e.instances[instanceID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("unknown instance %s", instanceID)
	}
	inst.timeMs = float64(timestampMs)
	ev := e.eventLocked(instanceID, inst)
	e.mu.Unlock()

	e.emit(ev)
	return nil
}

func (e *StubEngine) eventLocked(instanceID string, inst *stubInstance) PlaybackEvent {
	state := StatePaused
	if inst.playing {
		state = StatePlaying
	}
	return PlaybackEvent{
		InstanceID:  instanceID,
		Frame:       int64(math.Floor(inst.timeMs * inst.meta.FPS / 1000)),
		TimestampMs: inst.timeMs,
		State:       state,
	}
}

func (e *StubEngine) emit(ev PlaybackEvent) {
	select {
	case e.events <- ev:
	default:
		// Consumer fell behind; dropping is safe because events are
		// overwrite-with-latest on the receiving side.
	}
}

func (e *StubEngine) PlaybackEvents() <-chan PlaybackEvent {
	return e.events
}

func (e *StubEngine) Export(ctx context.Context, p *project.Project, outputPath string, onProgress func(ExportProgress)) (*ExportResult, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	stages := []string{"rendering", "encoding", "finalizing"}
	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(ExportProgress{Stage: stage, Percent: float64(i) * 100 / float64(len(stages))})
		}
	}

	payload := []byte(fmt.Sprintf("snapit stub export: project=%s format=%s duration=%dms\n",
		p.ID, p.Export.Format, p.Timeline.DurationMs.Int64()))
	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		return nil, fmt.Errorf("write export output: %w", err)
	}

	if onProgress != nil {
		onProgress(ExportProgress{Stage: "done", Percent: 100})
	}

	e.logger.Info("engine stub: export completed", "output", outputPath, "format", p.Export.Format)
	return &ExportResult{
		OutputPath: outputPath,
		Format:     p.Export.Format,
		SizeBytes:  int64(len(payload)),
		DurationMs: p.Timeline.DurationMs.Int64(),
	}, nil
}

// GenerateAutoZoom derives zoom regions from cursor dwell clusters: runs of
// samples that stay within a small radius for long enough become a region
// centered on the cluster. The augmented project is returned whole; the
// input is not mutated.
func (e *StubEngine) GenerateAutoZoom(ctx context.Context, p *project.Project, cfg *AutoZoomConfig) (*project.Project, error) {
	if p.Sources.CursorPath == "" {
		return nil, fmt.Errorf("project has no cursor telemetry")
	}

	rec, err := cursor.LoadRecording(p.Sources.CursorPath)
	if err != nil {
		return nil, fmt.Errorf("load cursor recording: %w", err)
	}

	minDwell := defaultMinDwellMs
	scale := defaultZoomScale
	maxRegions := defaultMaxRegions
	if cfg != nil {
		if cfg.MinDwellMs > 0 {
			minDwell = cfg.MinDwellMs
		}
		if cfg.Scale > 0 {
			scale = cfg.Scale
		}
		if cfg.MaxRegions > 0 {
			maxRegions = cfg.MaxRegions
		}
	}

	regions := dwellRegions(rec, p, minDwell, scale, maxRegions)

	out := p.Clone()
	out.ZoomRegions = regions
	out.SortZoomRegions()

	e.logger.Info("engine stub: auto-zoom generated",
		"project_id", p.ID, "regions", len(regions), "events", len(rec.Events))
	return out, nil
}

// dwellRegions clusters cursor samples into stationary runs and converts
// each run into a zoom region clamped to the timeline.
func dwellRegions(rec *cursor.Recording, p *project.Project, minDwellMs, scale float64, maxRegions int) []project.ZoomRegion {
	if len(rec.Events) == 0 {
		return nil
	}

	radius := defaultDwellRadius * math.Min(float64(rec.Width), float64(rec.Height))

	var regions []project.ZoomRegion
	runStart := 0
	for i := 1; i <= len(rec.Events); i++ {
		if i < len(rec.Events) && distance(rec.Events[runStart], rec.Events[i]) <= radius {
			continue
		}

		run := rec.Events[runStart:i]
		span := run[len(run)-1].TimestampMs - run[0].TimestampMs
		if span >= minDwellMs {
			if region, ok := regionFromRun(run, rec, p, scale); ok {
				regions = append(regions, region)
				if len(regions) >= maxRegions {
					break
				}
			}
		}
		runStart = i
	}

	return regions
}

func regionFromRun(run []cursor.Event, rec *cursor.Recording, p *project.Project, scale float64) (project.ZoomRegion, bool) {
	var cx, cy float64
	for _, ev := range run {
		cx += ev.X
		cy += ev.Y
	}
	cx /= float64(len(run))
	cy /= float64(len(run))

	startMs := project.Millis(run[0].TimestampMs + rec.VideoStartOffsetMs - defaultRegionPadMs)
	endMs := project.Millis(run[len(run)-1].TimestampMs + rec.VideoStartOffsetMs + defaultRegionPadMs)
	startMs = p.ClampToDuration(startMs)
	endMs = p.ClampToDuration(endMs)
	if endMs <= startMs {
		return project.ZoomRegion{}, false
	}

	// Viewport of 1/scale around the dwell center, kept inside the frame.
	w := 1 / scale
	h := 1 / scale
	x := clamp01(cx/float64(rec.Width)-w/2, 1-w)
	y := clamp01(cy/float64(rec.Height)-h/2, 1-h)

	return project.ZoomRegion{
		ID:      project.NewID(),
		StartMs: startMs,
		EndMs:   endMs,
		Rect:    project.ZoomRect{X: x, Y: y, W: w, H: h},
		Scale:   scale,
	}, true
}

func distance(a, b cursor.Event) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp01(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
