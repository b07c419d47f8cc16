// Package cursor loads cursor-movement telemetry recorded alongside a screen
// capture. The recording feeds auto-zoom generation; it is consumed
// read-only and stored next to the project.
package cursor

import (
	"encoding/json"
	"fmt"
	"os"
)

// Event is a single cursor sample, relative to the recording surface.
type Event struct {
	TimestampMs float64 `json:"timestamp_ms"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Pressed     bool    `json:"pressed,omitempty"`
}

// Recording is a parsed cursor telemetry file.
type Recording struct {
	Events             []Event `json:"events"`
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	VideoStartOffsetMs float64 `json:"video_start_offset_ms"`
}

// LoadRecording reads and parses a cursor telemetry JSON file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read cursor recording %s: %w", path, err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("cannot parse cursor recording: %w", err)
	}

	if rec.Width <= 0 || rec.Height <= 0 {
		return nil, fmt.Errorf("cursor recording has invalid dimensions %dx%d", rec.Width, rec.Height)
	}

	return &rec, nil
}

// MatchesDimensions reports whether the recording surface matches the given
// video dimensions. A mismatch is a warning condition, not an error: offsets
// still interpolate, they just lose precision.
func (r *Recording) MatchesDimensions(width, height int) bool {
	return r.Width == width && r.Height == height
}
