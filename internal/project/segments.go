package project

import (
	"encoding/json"
	"sort"
)

// ZoomRect is the normalized viewport a zoom region focuses on, expressed as
// fractions of the source frame.
type ZoomRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ZoomRegion applies a camera zoom over [StartMs, EndMs).
type ZoomRegion struct {
	ID      string   `json:"id"`
	StartMs Millis   `json:"start_ms"`
	EndMs   Millis   `json:"end_ms"`
	Rect    ZoomRect `json:"rect"`
	Scale   float64  `json:"scale"`
}

// TextSegment overlays text over a time range. In memory both endpoints are
// Millis like every other track; the persisted form carries seconds, the
// unit the original capture format uses for text, so conversion happens in
// the JSON codec and nowhere else.
type TextSegment struct {
	ID       string  `json:"-"`
	StartMs  Millis  `json:"-"`
	EndMs    Millis  `json:"-"`
	Text     string  `json:"-"`
	X        float64 `json:"-"`
	Y        float64 `json:"-"`
	FontSize int     `json:"-"`
}

type textSegmentJSON struct {
	ID       string  `json:"id"`
	StartSec float64 `json:"start"`
	EndSec   float64 `json:"end"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize int     `json:"font_size,omitempty"`
}

func (t TextSegment) MarshalJSON() ([]byte, error) {
	return json.Marshal(textSegmentJSON{
		ID:       t.ID,
		StartSec: t.StartMs.Seconds(),
		EndSec:   t.EndMs.Seconds(),
		Text:     t.Text,
		X:        t.X,
		Y:        t.Y,
		FontSize: t.FontSize,
	})
}

func (t *TextSegment) UnmarshalJSON(data []byte) error {
	var raw textSegmentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = raw.ID
	t.StartMs = FromSeconds(raw.StartSec)
	t.EndMs = FromSeconds(raw.EndSec)
	t.Text = raw.Text
	t.X = raw.X
	t.Y = raw.Y
	t.FontSize = raw.FontSize
	return nil
}

// MaskRect is a blur/redaction area in normalized frame coordinates.
type MaskRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// MaskSegment blurs or hides a frame region over [StartMs, EndMs).
type MaskSegment struct {
	ID      string   `json:"id"`
	StartMs Millis   `json:"start_ms"`
	EndMs   Millis   `json:"end_ms"`
	Rect    MaskRect `json:"rect"`
	Blur    float64  `json:"blur,omitempty"`
}

// SceneSegment selects a composition layout over [StartMs, EndMs).
type SceneSegment struct {
	ID      string `json:"id"`
	StartMs Millis `json:"start_ms"`
	EndMs   Millis `json:"end_ms"`
	Layout  string `json:"layout"`
}

// WebcamSegment is an on/off interval for the webcam overlay. Segments get a
// stable ID at creation like every other track; the array is kept sorted by
// start.
type WebcamSegment struct {
	ID      string `json:"id"`
	StartMs Millis `json:"start_ms"`
	EndMs   Millis `json:"end_ms"`
	Visible bool   `json:"visible"`
}

// SortZoomRegions orders the zoom track ascending by start time.
func (p *Project) SortZoomRegions() {
	sort.SliceStable(p.ZoomRegions, func(i, j int) bool {
		return p.ZoomRegions[i].StartMs < p.ZoomRegions[j].StartMs
	})
}

// SortTextSegments orders the text track ascending by start time.
func (p *Project) SortTextSegments() {
	sort.SliceStable(p.TextSegments, func(i, j int) bool {
		return p.TextSegments[i].StartMs < p.TextSegments[j].StartMs
	})
}

// SortMaskSegments orders the mask track ascending by start time.
func (p *Project) SortMaskSegments() {
	sort.SliceStable(p.MaskSegments, func(i, j int) bool {
		return p.MaskSegments[i].StartMs < p.MaskSegments[j].StartMs
	})
}

// SortSceneSegments orders the scene track ascending by start time.
func (p *Project) SortSceneSegments() {
	sort.SliceStable(p.SceneSegments, func(i, j int) bool {
		return p.SceneSegments[i].StartMs < p.SceneSegments[j].StartMs
	})
}

// SortWebcamSegments orders the webcam visibility track ascending by start.
func (p *Project) SortWebcamSegments() {
	sort.SliceStable(p.WebcamSegments, func(i, j int) bool {
		return p.WebcamSegments[i].StartMs < p.WebcamSegments[j].StartMs
	})
}
