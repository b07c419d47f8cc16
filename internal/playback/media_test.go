package playback

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/walterlow/snapit/internal/project"
)

func TestSourcePath(t *testing.T) {
	p := project.New("media", project.Sources{
		VideoPath:  "/rec/screen.mp4",
		WebcamPath: "/rec/cam.mp4",
	}, 1000)

	tests := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{SourceVideo, "/rec/screen.mp4", false},
		{SourceWebcam, "/rec/cam.mp4", false},
		{SourceAudio, "", false},
		{"subtitles", "", true},
	}

	for _, tt := range tests {
		got, err := SourcePath(p, tt.kind)
		if (err != nil) != tt.wantErr {
			t.Errorf("SourcePath(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("SourcePath(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestServeFile(t *testing.T) {
	content := []byte("0123456789abcdefghij") // 20 bytes
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	srv := NewMediaServer(slog.New(slog.NewTextHandler(io.Discard, nil)))

	serve := func(t *testing.T, rangeHeader, filePath string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/playback/source/video", nil)
		if rangeHeader != "" {
			req.Header.Set("Range", rangeHeader)
		}
		rec := httptest.NewRecorder()
		if err := srv.ServeFile(rec, req, filePath); err != nil {
			t.Fatalf("ServeFile() error = %v", err)
		}
		return rec
	}

	t.Run("whole file", func(t *testing.T) {
		rec := serve(t, "", path)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if body, _ := io.ReadAll(rec.Body); string(body) != string(content) {
			t.Errorf("body = %q, want full content", body)
		}
		if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
			t.Errorf("Content-Type = %q, want video/mp4", got)
		}
		if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
			t.Errorf("Accept-Ranges = %q, want bytes", got)
		}
	})

	t.Run("partial range", func(t *testing.T) {
		rec := serve(t, "bytes=5-9", path)
		if rec.Code != http.StatusPartialContent {
			t.Errorf("status = %d, want 206", rec.Code)
		}
		if body, _ := io.ReadAll(rec.Body); string(body) != "56789" {
			t.Errorf("body = %q, want \"56789\"", body)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes 5-9/20" {
			t.Errorf("Content-Range = %q", got)
		}
	})

	t.Run("unsatisfiable", func(t *testing.T) {
		rec := serve(t, "bytes=100-", path)
		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Errorf("status = %d, want 416", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */20" {
			t.Errorf("Content-Range = %q, want bytes */20", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		rec := serve(t, "", filepath.Join(t.TempDir(), "gone.mp4"))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}
