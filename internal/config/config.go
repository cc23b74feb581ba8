// Package config loads sessionview settings.
//
// Values are layered: built-in defaults, then the JSON config file, then
// environment variables. Command-line flags are applied last by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Environment variables read by ApplyEnv.
const (
	EnvSessionsDir = "SESSIONVIEW_SESSIONS_DIR"
	EnvFormat      = "SESSIONVIEW_FORMAT"
	EnvNoColor     = "NO_COLOR"
)

// Config holds user settings.
type Config struct {
	SessionsDir string `json:"sessions_dir"`
	Format      string `json:"format"` // view format: text | chat | raw | json | html
	Wrap        int    `json:"wrap"`
	Color       string `json:"color"` // auto | always | never
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		SessionsDir: defaultSessionsDir(),
		Format:      "text",
		Color:       ColorAuto,
	}
}

func defaultSessionsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "projects")
}

// Path returns the location of the user config file.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sessionview", "config.json"), nil
}

// Load returns defaults overlaid with the user config file and environment.
// A missing config file is not an error.
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return ApplyEnv(Defaults(), os.Getenv), nil
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (Config, error) {
	file, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(Defaults(), file)
	if err := cfg.Validate(); err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}
	return ApplyEnv(cfg, os.Getenv), nil
}

// loadFile reads and parses a JSON config file. It returns nil when the file
// does not exist.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge overlays the non-zero fields of override onto base.
func Merge(base Config, override *Config) Config {
	if override == nil {
		return base
	}
	if override.SessionsDir != "" {
		base.SessionsDir = expandHome(override.SessionsDir)
	}
	if override.Format != "" {
		base.Format = override.Format
	}
	if override.Wrap != 0 {
		base.Wrap = override.Wrap
	}
	if override.Color != "" {
		base.Color = override.Color
	}
	return base
}

// ApplyEnv overlays environment settings using getenv.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := getenv(EnvSessionsDir); v != "" {
		cfg.SessionsDir = expandHome(v)
	}
	if v := getenv(EnvFormat); v != "" {
		cfg.Format = v
	}
	if getenv(EnvNoColor) != "" && cfg.Color == ColorAuto {
		cfg.Color = ColorNever
	}
	return cfg
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (expected auto, always or never)", c.Color)
	}
	if c.Wrap < 0 {
		return fmt.Errorf("wrap must be non-negative, got %d", c.Wrap)
	}
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
