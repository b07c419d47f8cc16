package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/walterlow/snapit/internal/engine"
	"github.com/walterlow/snapit/internal/export"
	"github.com/walterlow/snapit/internal/playback"
	"github.com/walterlow/snapit/internal/project"
	"github.com/walterlow/snapit/internal/session"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Post("/projects/{id}/open", openProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Get("/project", getProjectHandler(cfg))
		r.Post("/project/save", saveProjectHandler(cfg))
		r.Post("/project/close", closeProjectHandler(cfg))

		r.Post("/select", selectHandler(cfg))
		r.Delete("/select", clearSelectionHandler(cfg))

		r.Post("/project/zooms", addZoomHandler(cfg))
		r.Patch("/project/zooms/{id}", updateZoomHandler(cfg))
		r.Delete("/project/zooms/{id}", deleteZoomHandler(cfg))
		r.Post("/project/zooms/split", splitZoomHandler(cfg))

		r.Post("/project/texts", addTextHandler(cfg))
		r.Patch("/project/texts/{id}", updateTextHandler(cfg))
		r.Delete("/project/texts/{id}", deleteTextHandler(cfg))

		r.Post("/project/masks", addMaskHandler(cfg))
		r.Patch("/project/masks/{id}", updateMaskHandler(cfg))
		r.Delete("/project/masks/{id}", deleteMaskHandler(cfg))

		r.Post("/project/scenes", addSceneHandler(cfg))
		r.Patch("/project/scenes/{id}", updateSceneHandler(cfg))
		r.Delete("/project/scenes/{id}", deleteSceneHandler(cfg))

		r.Post("/project/webcam/toggle", toggleWebcamHandler(cfg))
		r.Delete("/project/webcam/{id}", deleteWebcamHandler(cfg))

		r.Post("/playback/seek", seekHandler(cfg))
		r.Post("/playback/play", playHandler(cfg))
		r.Post("/playback/pause", pauseHandler(cfg))
		r.Post("/playback/toggle", togglePlaybackHandler(cfg))
		r.Get("/playback/frame", frameHandler(cfg))
		r.Get("/playback/source", mediaSourceHandler(cfg))

		r.Post("/export", exportHandler(cfg))
		r.Delete("/export", cancelExportHandler(cfg))

		r.Post("/autozoom", autoZoomHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: "0.1.0",
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
			Engine:  cfg.EngineName,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Session.Status())
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos, err := cfg.Repository.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		resp := ProjectsResponse{Projects: make([]ProjectInfoResponse, len(infos))}
		for i, pi := range infos {
			resp.Projects[i] = ProjectInfoToResponse(pi)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.VideoPath == "" {
			WriteError(w, http.StatusBadRequest, "video_path is required", "BAD_REQUEST")
			return
		}
		if req.DurationMs <= 0 {
			WriteError(w, http.StatusBadRequest, "duration_ms must be positive", "BAD_REQUEST")
			return
		}

		p := project.New(req.Name, project.Sources{
			VideoPath:  req.VideoPath,
			WebcamPath: req.WebcamPath,
			CursorPath: req.CursorPath,
			AudioPath:  req.AudioPath,
			Width:      req.Width,
			Height:     req.Height,
		}, project.Millis(req.DurationMs))
		if cfg.DefaultFormat != "" {
			p.Export.Format = cfg.DefaultFormat
		}

		if err := cfg.Session.LoadProject(r.Context(), p); err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "ENGINE_ERROR")
			return
		}
		watchSources(cfg, p)
		WriteJSON(w, http.StatusCreated, project.SanitizeForTransport(p))
	}
}

func openProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, err := cfg.Repository.GetProject(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if p == nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		if err := cfg.Session.LoadProject(r.Context(), p); err != nil {
			WriteError(w, http.StatusBadGateway, err.Error(), "ENGINE_ERROR")
			return
		}
		watchSources(cfg, p)
		WriteJSON(w, http.StatusOK, project.SanitizeForTransport(p))
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Repository.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := cfg.Session.Project()
		if p == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		WriteJSON(w, http.StatusOK, project.SanitizeForTransport(p))
	}
}

func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Session.HasProject() {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		if err := cfg.Session.SaveProject(r.Context()); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		WriteJSON(w, http.StatusOK, SaveResponse{SavedAt: time.Now()})
	}
}

func closeProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.Clear()
		if cfg.Watcher != nil {
			if err := cfg.Watcher.Reset(); err != nil {
				cfg.Logger.Warn("failed to reset media watcher", "error", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.Select(project.ParseSelectionKind(req.Kind), req.SegmentID)
		WriteJSON(w, http.StatusOK, cfg.Session.Selection())
	}
}

func clearSelectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
	}
}

func addZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seg project.ZoomRegion
		if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		added := cfg.Session.AddZoomRegion(seg)
		if added == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

func updateZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateZoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.UpdateZoomRegion(chi.URLParam(r, "id"), session.ZoomRegionUpdate{
			StartMs: req.StartMs,
			EndMs:   req.EndMs,
			Rect:    req.Rect,
			Scale:   req.Scale,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.DeleteZoomRegion(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.SplitZoomRegionAtPlayhead()
		WriteJSON(w, http.StatusOK, cfg.Session.Selection())
	}
}

func addTextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seg project.TextSegment
		if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		added := cfg.Session.AddTextSegment(seg)
		if added == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

func updateTextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		upd := session.TextSegmentUpdate{
			Text:     req.Text,
			X:        req.X,
			Y:        req.Y,
			FontSize: req.FontSize,
		}
		if req.StartSec != nil {
			ms := project.FromSeconds(*req.StartSec)
			upd.StartMs = &ms
		}
		if req.EndSec != nil {
			ms := project.FromSeconds(*req.EndSec)
			upd.EndMs = &ms
		}
		cfg.Session.UpdateTextSegment(chi.URLParam(r, "id"), upd)
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteTextHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.DeleteTextSegment(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func addMaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seg project.MaskSegment
		if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		added := cfg.Session.AddMaskSegment(seg)
		if added == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

func updateMaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateMaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.UpdateMaskSegment(chi.URLParam(r, "id"), session.MaskSegmentUpdate{
			StartMs: req.StartMs,
			EndMs:   req.EndMs,
			Rect:    req.Rect,
			Blur:    req.Blur,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteMaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.DeleteMaskSegment(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func addSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var seg project.SceneSegment
		if err := json.NewDecoder(r.Body).Decode(&seg); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		added := cfg.Session.AddSceneSegment(seg)
		if added == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		WriteJSON(w, http.StatusCreated, added)
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSceneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.UpdateSceneSegment(chi.URLParam(r, "id"), session.SceneSegmentUpdate{
			StartMs: req.StartMs,
			EndMs:   req.EndMs,
			Layout:  req.Layout,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.DeleteSceneSegment(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func toggleWebcamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WebcamToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.ToggleWebcamVisibilityAtTime(project.Millis(req.TimeMs))
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteWebcamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.DeleteWebcamSegment(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		cfg.Session.Seek(project.Millis(req.TimeMs))
		w.WriteHeader(http.StatusNoContent)
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.SetPlaying(true)
		w.WriteHeader(http.StatusNoContent)
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.SetPlaying(false)
		w.WriteHeader(http.StatusNoContent)
	}
}

func togglePlaybackHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.TogglePlayback()
		w.WriteHeader(http.StatusNoContent)
	}
}

func frameHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frame := cfg.Session.RenderFrame(r.Context())
		if frame == nil {
			WriteError(w, http.StatusServiceUnavailable, "frame unavailable", "FRAME_UNAVAILABLE")
			return
		}
		WriteJSON(w, http.StatusOK, frame)
	}
}

func mediaSourceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := cfg.Session.Project()
		if p == nil {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}

		kind := r.URL.Query().Get("kind")
		if kind == "" {
			kind = playback.SourceVideo
		}
		path, err := playback.SourcePath(p, kind)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if path == "" {
			WriteError(w, http.StatusNotFound, "project has no "+kind+" source", "NOT_FOUND")
			return
		}

		if err := cfg.Media.ServeFile(w, r, path); err != nil {
			cfg.Logger.Error("media serve error", "error", err, "kind", kind)
		}
	}
}

func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if err := export.ValidateOutputPath(req.OutputPath); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		if !cfg.Session.HasProject() {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}
		if cfg.Session.IsExporting() {
			WriteError(w, http.StatusConflict, session.ErrExportInProgress.Error(), "EXPORT_IN_PROGRESS")
			return
		}

		// The job outlives this request; progress is polled via /status.
		go func() {
			if _, err := cfg.Session.ExportVideo(context.Background(), req.OutputPath); err != nil {
				cfg.Logger.Error("export failed", "output", req.OutputPath, "error", err)
			}
		}()

		WriteJSON(w, http.StatusAccepted, ExportAcceptedResponse{
			OutputPath: req.OutputPath,
			Format:     export.InferFormat(req.OutputPath),
		})
	}
}

func cancelExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Session.CancelExport()
		w.WriteHeader(http.StatusNoContent)
	}
}

func autoZoomHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AutoZoomRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}
		if !cfg.Session.HasProject() {
			WriteError(w, http.StatusNotFound, "no project loaded", "NO_PROJECT")
			return
		}

		var azCfg *engine.AutoZoomConfig
		if req != (AutoZoomRequest{}) {
			azCfg = &engine.AutoZoomConfig{
				MinDwellMs: req.MinDwellMs,
				Scale:      req.Scale,
				MaxRegions: req.MaxRegions,
			}
		}

		err := cfg.Session.GenerateAutoZoom(r.Context(), azCfg)
		switch {
		case errors.Is(err, session.ErrNoCursorTelemetry):
			WriteError(w, http.StatusConflict, err.Error(), "NO_CURSOR_TELEMETRY")
			return
		case errors.Is(err, session.ErrAutoZoomInProgress):
			WriteError(w, http.StatusConflict, err.Error(), "AUTOZOOM_IN_PROGRESS")
			return
		case err != nil:
			WriteError(w, http.StatusBadGateway, err.Error(), "ENGINE_ERROR")
			return
		}

		count := 0
		if p := cfg.Session.Project(); p != nil {
			count = len(p.ZoomRegions)
		}
		WriteJSON(w, http.StatusOK, AutoZoomResponse{ZoomRegions: count})
	}
}

// watchSources arms the media watcher for every file the project references.
// Watch failures are logged, not surfaced; a missing recording is the exact
// condition the watcher exists to report.
func watchSources(cfg ServerConfig, p *project.Project) {
	if cfg.Watcher == nil {
		return
	}
	if err := cfg.Watcher.Reset(); err != nil {
		cfg.Logger.Warn("failed to reset media watcher", "error", err)
	}
	for _, path := range []string{
		p.Sources.VideoPath,
		p.Sources.WebcamPath,
		p.Sources.CursorPath,
		p.Sources.AudioPath,
	} {
		if path == "" {
			continue
		}
		if err := cfg.Watcher.Watch(context.Background(), path); err != nil {
			cfg.Logger.Warn("failed to watch source media", "path", path, "error", err)
		}
	}
}
