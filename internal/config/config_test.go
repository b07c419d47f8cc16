package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew_Defaults(t *testing.T) {
	for _, env := range []string{EnvPort, EnvLogLevel, EnvDataDir, EnvConfigFile, EnvEngineURL, EnvHeadless} {
		os.Unsetenv(env)
	}

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.LogLevel() != DefaultLogLevel {
		t.Errorf("LogLevel() = %q, want %q", cfg.LogLevel(), DefaultLogLevel)
	}
	if cfg.DefaultExportFormat() != "mp4" {
		t.Errorf("DefaultExportFormat() = %q, want mp4", cfg.DefaultExportFormat())
	}
	if cfg.EngineURL() != "" {
		t.Errorf("EngineURL() = %q, want empty", cfg.EngineURL())
	}
	if cfg.Headless() {
		t.Error("Headless() = true, want false")
	}
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvEngineURL, "http://render-host:9000")
	t.Setenv(EnvHeadless, "1")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, want 9100", cfg.Port())
	}
	if cfg.EngineURL() != "http://render-host:9000" {
		t.Errorf("EngineURL() = %q", cfg.EngineURL())
	}
	if !cfg.Headless() {
		t.Error("Headless() = false, want true")
	}
}

func TestNew_InvalidPort(t *testing.T) {
	tests := []string{"abc", "0", "70000"}
	for _, v := range tests {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvPort, v)
			if _, err := New(); err == nil {
				t.Errorf("New() with port %q should fail", v)
			}
		})
	}
}

func TestNew_FileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapit.yaml")
	content := `
engine:
  url: http://gpu-box:9000
  token: file-token
export:
  format: webm
log_level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EngineURL() != "http://gpu-box:9000" {
		t.Errorf("EngineURL() = %q", cfg.EngineURL())
	}
	if cfg.EngineToken() != "file-token" {
		t.Errorf("EngineToken() = %q", cfg.EngineToken())
	}
	if cfg.DefaultExportFormat() != "webm" {
		t.Errorf("DefaultExportFormat() = %q, want webm", cfg.DefaultExportFormat())
	}
	if cfg.LogLevel() != "debug" {
		t.Errorf("LogLevel() = %q, want debug", cfg.LogLevel())
	}
}

func TestNew_EnvWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapit.yaml")
	if err := os.WriteFile(path, []byte("engine:\n  url: http://from-file\n"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvEngineURL, "http://from-env")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.EngineURL() != "http://from-env" {
		t.Errorf("EngineURL() = %q, want env value", cfg.EngineURL())
	}
}

func TestNew_MissingConfigFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	if _, err := New(); err == nil {
		t.Error("New() with missing config file should fail")
	}
}
