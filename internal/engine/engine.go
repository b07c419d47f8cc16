// Package engine mediates every interaction with the remote GPU render
// engine: instance lifecycle, frame rendering, playback transport, export
// and auto-zoom jobs. The Bridge owns the single live instance; no other
// component addresses the engine directly.
package engine

import (
	"context"
	"errors"

	"github.com/walterlow/snapit/internal/project"
)

// Playback states reported by engine events.
const (
	StatePlaying = "playing"
	StatePaused  = "paused"
)

// ErrNoInstance is returned by instance-scoped calls when no render engine
// instance is alive.
var ErrNoInstance = errors.New("no render engine instance")

// InstanceMetadata describes the session the engine created for a project.
type InstanceMetadata struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	DurationMs int64   `json:"duration_ms"`
	FPS        float64 `json:"fps"`
}

// Instance is a handle to a native, stateful rendering session bound to one
// project snapshot.
type Instance struct {
	ID       string           `json:"id"`
	Metadata InstanceMetadata `json:"metadata"`
}

// Frame is decoded frame metadata returned by RenderFrame. PixelHandle is an
// opaque reference to GPU-side pixel data; this core never dereferences it.
type Frame struct {
	Number      int64  `json:"number"`
	TimestampMs int64  `json:"timestamp_ms"`
	PixelHandle string `json:"pixel_handle"`
}

// PlaybackEvent is pushed asynchronously by the engine during playback.
// Events for a single instance arrive in non-decreasing timestamp order and
// always supersede locally optimistic state.
type PlaybackEvent struct {
	InstanceID  string  `json:"instance_id"`
	Frame       int64   `json:"frame"`
	TimestampMs float64 `json:"timestamp_ms"`
	State       string  `json:"state"`
}

// ExportProgress is pushed during an active export job.
type ExportProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
}

// ExportResult is the terminal outcome of a successful export job.
type ExportResult struct {
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
	SizeBytes  int64  `json:"size_bytes"`
	DurationMs int64  `json:"duration_ms"`
}

// AutoZoomConfig tunes cursor-driven zoom generation. The zero value asks
// the engine for its defaults.
type AutoZoomConfig struct {
	MinDwellMs float64 `json:"min_dwell_ms,omitempty"`
	Scale      float64 `json:"scale,omitempty"`
	MaxRegions int     `json:"max_regions,omitempty"`
}

// Engine is the render engine contract. Implementations: RemoteEngine (HTTP
// to a GPU render host) and StubEngine (in-memory, used without an engine
// URL and in tests).
type Engine interface {
	// CreateInstance builds a rendering session from a sanitized project
	// snapshot. The caller owns destroying the returned instance.
	CreateInstance(ctx context.Context, p *project.Project) (*Instance, error)

	// DestroyInstance tears down a rendering session. Unknown ids fail
	// softly with an error the caller may log and ignore.
	DestroyInstance(ctx context.Context, instanceID string) error

	// RenderFrame decodes the frame at the given timestamp.
	RenderFrame(ctx context.Context, instanceID string, timestampMs int64) (*Frame, error)

	Play(ctx context.Context, instanceID string) error
	Pause(ctx context.Context, instanceID string) error
	Seek(ctx context.Context, instanceID string, timestampMs int64) error

	// Export runs a one-shot transcode of the given (already sanitized)
	// project, independent of any live instance. onProgress may be nil.
	Export(ctx context.Context, p *project.Project, outputPath string, onProgress func(ExportProgress)) (*ExportResult, error)

	// GenerateAutoZoom derives zoom regions from the project's cursor
	// telemetry and returns the whole augmented project.
	GenerateAutoZoom(ctx context.Context, p *project.Project, cfg *AutoZoomConfig) (*project.Project, error)

	// PlaybackEvents is the push channel for asynchronous playback events.
	PlaybackEvents() <-chan PlaybackEvent
}
