// Package config provides configuration management for the Snapit agent.
// Configuration is loaded from environment variables with sensible defaults,
// with an optional YAML file overlay for engine and export settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	// Default values
	DefaultPort         = 8791
	DefaultLogLevel     = "info"
	DefaultDataDir      = ".snapit"
	DefaultExportFormat = "mp4"

	// Environment variable names
	EnvPort       = "SNAPIT_PORT"
	EnvLogLevel   = "SNAPIT_LOG_LEVEL"
	EnvDataDir    = "SNAPIT_DATA_DIR"
	EnvConfigFile = "SNAPIT_CONFIG"
	EnvEngineURL  = "SNAPIT_ENGINE_URL"
	EnvEngineKey  = "SNAPIT_ENGINE_TOKEN"
	EnvHeadless   = "SNAPIT_HEADLESS"

	// Database filename
	DBFilename = "snapit.db"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ExportDir() string
	DefaultExportFormat() string
	EngineURL() string
	EngineToken() string
	Headless() bool
}

// FileConfig is the optional YAML overlay read from SNAPIT_CONFIG.
type FileConfig struct {
	Engine struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"engine"`
	Export struct {
		Format string `yaml:"format"`
		Dir    string `yaml:"dir"`
	} `yaml:"export"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port         int
	logLevel     string
	dataDir      string
	exportDir    string
	exportFormat string
	engineURL    string
	engineToken  string
	headless     bool
}

// New creates a new EnvConfig with defaults, YAML file overrides, and
// environment variable overrides (env wins over file).
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:         DefaultPort,
		logLevel:     DefaultLogLevel,
		dataDir:      defaultDataDir(),
		exportFormat: DefaultExportFormat,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}
	if eu := os.Getenv(EnvEngineURL); eu != "" {
		cfg.engineURL = eu
	}
	if ek := os.Getenv(EnvEngineKey); ek != "" {
		cfg.engineToken = ek
	}
	if h := os.Getenv(EnvHeadless); h == "1" || h == "true" {
		cfg.headless = true
	}

	return cfg, nil
}

func (c *EnvConfig) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("invalid YAML in %s: %w", path, err)
	}

	if fc.Engine.URL != "" {
		c.engineURL = fc.Engine.URL
	}
	if fc.Engine.Token != "" {
		c.engineToken = fc.Engine.Token
	}
	if fc.Export.Format != "" {
		c.exportFormat = fc.Export.Format
	}
	if fc.Export.Dir != "" {
		c.exportDir = fc.Export.Dir
	}
	if fc.DataDir != "" {
		c.dataDir = fc.DataDir
	}
	if fc.LogLevel != "" {
		c.logLevel = fc.LogLevel
	}
	return nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ExportDir returns the directory exports are written to by default
func (c *EnvConfig) ExportDir() string {
	if c.exportDir != "" {
		return c.exportDir
	}
	return filepath.Join(c.dataDir, "exports")
}

// DefaultExportFormat returns the export format used when a project does not
// specify one (mp4, webm, or gif)
func (c *EnvConfig) DefaultExportFormat() string {
	return c.exportFormat
}

func (c *EnvConfig) EngineURL() string {
	return c.engineURL
}

func (c *EnvConfig) EngineToken() string {
	return c.engineToken
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
