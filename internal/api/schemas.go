package api

import (
	"time"

	"github.com/walterlow/snapit/internal/project"
	"github.com/walterlow/snapit/internal/store"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
	Engine  string `json:"engine"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type CreateProjectRequest struct {
	Name       string  `json:"name"`
	VideoPath  string  `json:"video_path"`
	WebcamPath string  `json:"webcam_path,omitempty"`
	CursorPath string  `json:"cursor_path,omitempty"`
	AudioPath  string  `json:"audio_path,omitempty"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	DurationMs float64 `json:"duration_ms"`
}

type ProjectInfoResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectInfoResponse `json:"projects"`
}

type SaveResponse struct {
	SavedAt time.Time `json:"saved_at"`
}

type SelectRequest struct {
	Kind      string `json:"kind"`
	SegmentID string `json:"segment_id"`
}

// Update requests carry pointers so absent fields stay untouched.

type UpdateZoomRequest struct {
	StartMs *project.Millis   `json:"start_ms,omitempty"`
	EndMs   *project.Millis   `json:"end_ms,omitempty"`
	Rect    *project.ZoomRect `json:"rect,omitempty"`
	Scale   *float64          `json:"scale,omitempty"`
}

// UpdateTextRequest keeps the track's wire convention: times in seconds.
type UpdateTextRequest struct {
	StartSec *float64 `json:"start,omitempty"`
	EndSec   *float64 `json:"end,omitempty"`
	Text     *string  `json:"text,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	FontSize *int     `json:"font_size,omitempty"`
}

type UpdateMaskRequest struct {
	StartMs *project.Millis   `json:"start_ms,omitempty"`
	EndMs   *project.Millis   `json:"end_ms,omitempty"`
	Rect    *project.MaskRect `json:"rect,omitempty"`
	Blur    *float64          `json:"blur,omitempty"`
}

type UpdateSceneRequest struct {
	StartMs *project.Millis `json:"start_ms,omitempty"`
	EndMs   *project.Millis `json:"end_ms,omitempty"`
	Layout  *string         `json:"layout,omitempty"`
}

type SeekRequest struct {
	TimeMs float64 `json:"time_ms"`
}

type WebcamToggleRequest struct {
	TimeMs float64 `json:"time_ms"`
}

type ExportRequest struct {
	OutputPath string `json:"output_path"`
}

type ExportAcceptedResponse struct {
	OutputPath string `json:"output_path"`
	Format     string `json:"format"`
}

type AutoZoomRequest struct {
	MinDwellMs float64 `json:"min_dwell_ms,omitempty"`
	Scale      float64 `json:"scale,omitempty"`
	MaxRegions int     `json:"max_regions,omitempty"`
}

type AutoZoomResponse struct {
	ZoomRegions int `json:"zoom_regions"`
}

func ProjectInfoToResponse(pi *store.ProjectInfo) ProjectInfoResponse {
	return ProjectInfoResponse{
		ID:         pi.ID,
		Name:       pi.Name,
		DurationMs: pi.DurationMs,
		CreatedAt:  pi.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  pi.UpdatedAt.Format(time.RFC3339),
	}
}
