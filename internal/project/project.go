// Package project defines the editable recording aggregate and its timeline
// track collections, plus the pure validation and sanitization helpers
// applied before a project crosses the render engine boundary.
package project

import (
	"time"

	"github.com/google/uuid"
)

// Export formats accepted by the render engine.
const (
	FormatMP4  = "mp4"
	FormatWebM = "webm"
	FormatGIF  = "gif"
)

// Sources references the captured media files a project was built from.
type Sources struct {
	VideoPath  string `json:"video_path"`
	WebcamPath string `json:"webcam_path,omitempty"`
	CursorPath string `json:"cursor_path,omitempty"`
	AudioPath  string `json:"audio_path,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// Timeline holds the playable extent of a project.
type Timeline struct {
	DurationMs Millis  `json:"duration_ms"`
	InPointMs  Millis  `json:"in_point_ms"`
	OutPointMs Millis  `json:"out_point_ms"`
	Speed      float64 `json:"speed"`
}

// ExportConfig holds the project's stored export settings. A one-shot export
// may override Format for its own job without touching these values.
type ExportConfig struct {
	Format  string `json:"format"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	FPS     int    `json:"fps,omitempty"`
	Quality int    `json:"quality,omitempty"`
}

// Project is the complete editable recording: sources, timeline, and the
// five effect track collections. It is exclusively owned by the session and
// replaced wholesale on load.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sources  Sources      `json:"sources"`
	Timeline Timeline     `json:"timeline"`
	Export   ExportConfig `json:"export"`

	ZoomRegions    []ZoomRegion    `json:"zoom_regions"`
	TextSegments   []TextSegment   `json:"text_segments"`
	MaskSegments   []MaskSegment   `json:"mask_segments"`
	SceneSegments  []SceneSegment  `json:"scene_segments"`
	WebcamSegments []WebcamSegment `json:"webcam_segments"`
}

// New creates an empty project around the given sources.
func New(name string, sources Sources, durationMs Millis) *Project {
	now := time.Now()
	return &Project{
		ID:        NewID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Sources:   sources,
		Timeline: Timeline{
			DurationMs: durationMs,
			OutPointMs: durationMs,
			Speed:      1.0,
		},
		Export: ExportConfig{Format: FormatMP4},
	}
}

// NewID returns a fresh segment/project identifier.
func NewID() string {
	return uuid.New().String()
}

// ClampToDuration constrains a timeline offset to [0, DurationMs].
func (p *Project) ClampToDuration(ms Millis) Millis {
	return ms.Clamp(0, p.Timeline.DurationMs)
}

// HasCursorTelemetry reports whether the project references a cursor
// recording, the prerequisite for auto-zoom generation.
func (p *Project) HasCursorTelemetry() bool {
	return p.Sources.CursorPath != ""
}

// Clone returns a deep copy of the project. Track slices are copied so the
// clone can be mutated (sanitized, format-overridden) without affecting the
// live aggregate.
func (p *Project) Clone() *Project {
	c := *p
	c.ZoomRegions = append([]ZoomRegion(nil), p.ZoomRegions...)
	c.TextSegments = append([]TextSegment(nil), p.TextSegments...)
	c.MaskSegments = append([]MaskSegment(nil), p.MaskSegments...)
	c.SceneSegments = append([]SceneSegment(nil), p.SceneSegments...)
	c.WebcamSegments = append([]WebcamSegment(nil), p.WebcamSegments...)
	return &c
}
