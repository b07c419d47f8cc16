// Package playback serves a loaded project's source media over HTTP with
// byte-range support, so a preview surface can scrub a <video> element
// directly against the local recording files.
package playback

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/walterlow/snapit/internal/project"
)

// Source kinds addressable through the media server.
const (
	SourceVideo  = "video"
	SourceWebcam = "webcam"
	SourceAudio  = "audio"
)

// SourcePath resolves a source kind to the project's backing file path. An
// empty path means the project has no such source.
func SourcePath(p *project.Project, kind string) (string, error) {
	switch kind {
	case SourceVideo:
		return p.Sources.VideoPath, nil
	case SourceWebcam:
		return p.Sources.WebcamPath, nil
	case SourceAudio:
		return p.Sources.AudioPath, nil
	default:
		return "", fmt.Errorf("unknown media source %q", kind)
	}
}

// MediaServer streams local media files with HTTP range support.
type MediaServer struct {
	logger *slog.Logger
}

func NewMediaServer(logger *slog.Logger) *MediaServer {
	return &MediaServer{logger: logger}
}

// ServeFile writes the file at path to the response, honoring a single Range
// header. Missing files become 404s rather than errors; the project may
// reference recordings that have since been moved.
func (s *MediaServer) ServeFile(w http.ResponseWriter, r *http.Request, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "media file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("open media file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat media file: %w", err)
	}
	size := stat.Size()

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	br, err := ParseByteRange(r.Header.Get("Range"), size)
	if err == ErrUnsatisfiable {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	}
	if err != nil && err != ErrInvalidRange {
		return err
	}

	if br == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, f); err != nil {
			s.logger.Debug("media stream interrupted", "path", path, "error", err)
		}
		return nil
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Range", br.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)

	if _, err := f.Seek(br.Start, io.SeekStart); err != nil {
		return fmt.Errorf("seek media file: %w", err)
	}
	if _, err := io.CopyN(w, f, br.Length()); err != nil {
		s.logger.Debug("media stream interrupted", "path", path, "error", err)
	}
	return nil
}
