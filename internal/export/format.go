// Package export holds pure helpers for export jobs: target format
// inference and output path validation.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/walterlow/snapit/internal/project"
)

// InferFormat derives the export format from the output path's extension.
// Unrecognized or missing extensions default to mp4.
func InferFormat(outputPath string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".mp4":
		return project.FormatMP4
	case ".webm":
		return project.FormatWebM
	case ".gif":
		return project.FormatGIF
	default:
		return project.FormatMP4
	}
}

// ValidateOutputPath checks that an export target is writable: a clean path
// without traversal whose parent directory exists.
func ValidateOutputPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path is required")
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("output path cannot contain path traversal")
		}
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("output directory does not exist")
		}
		return fmt.Errorf("invalid output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output parent is not a directory")
	}

	return nil
}
