// Package config loads the presenter configuration from a YAML file, an
// optional .env file and PRESENTER_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/composite"
	"github.com/ayusman/presenter/internal/segment"
	"github.com/ayusman/presenter/internal/shape"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete presenter configuration.
type Config struct {
	Capture   CaptureConfig   `yaml:"capture"`
	Segment   segment.Config  `yaml:"segment"`
	Composite CompositeConfig `yaml:"composite"`
	Overlay   OverlayConfig   `yaml:"overlay"`
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Tray      TrayConfig      `yaml:"tray"`
}

// CaptureConfig selects and configures the camera.
type CaptureConfig struct {
	Device int `yaml:"device"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// Camera returns the capture settings for the configured device.
func (c CaptureConfig) Camera() capture.CameraConfig {
	return capture.CameraConfig{DeviceID: c.Device, Width: c.Width, Height: c.Height, FPS: c.FPS}
}

// CompositeConfig configures mask compositing.
type CompositeConfig struct {
	// Interpolation used to scale the mask: "nearest" or "linear".
	Interpolation string `yaml:"interpolation"`
}

// OverlayConfig holds the initial overlay settings, used until the user
// changes them. Stored preferences take precedence.
type OverlayConfig struct {
	Shape             string  `yaml:"shape"`
	Width             float64 `yaml:"width"`
	Mirrored          bool    `yaml:"mirrored"`
	BackgroundRemoval bool    `yaml:"background_removal"`
	CornerRadius      float64 `yaml:"corner_radius"`
	// FPS bounds the preview window redraw rate.
	FPS int `yaml:"fps"`
}

// ServerConfig configures the local control API.
type ServerConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File is the rotated log file. Empty disables file logging.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TrayConfig configures the system tray menu.
type TrayConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Dir returns the presenter data directory, ~/.presenter, falling back to
// .presenter in the working directory when there is no home directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".presenter"
	}
	return filepath.Join(home, ".presenter")
}

// DefaultPath is the configuration file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns a Config with sensible default values.
func Default() Config {
	dir := Dir()
	return Config{
		Capture: CaptureConfig{
			Device: capture.DefaultDevice.ID,
			Width:  capture.DefaultWidth,
			Height: capture.DefaultHeight,
			FPS:    capture.DefaultFPS,
		},
		Segment: segment.DefaultConfig(),
		Composite: CompositeConfig{
			Interpolation: composite.Nearest.String(),
		},
		Overlay: OverlayConfig{
			Shape:        shape.Circle.String(),
			Width:        shape.DefaultWidth,
			CornerRadius: shape.DefaultCornerRadius,
			FPS:          30,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:7777",
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "presenter.db"),
		},
		Log: LogConfig{
			Level:      "info",
			File:       filepath.Join(dir, "logs", "presenter.log"),
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Tray: TrayConfig{
			Enabled: true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path, then
// the environment. A missing file at path is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from PRESENTER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var err error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, e := cast.ToIntE(strings.TrimSpace(v))
			if e != nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, v))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, e := cast.ToFloat64E(strings.TrimSpace(v))
			if e != nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, key, v))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, e := cast.ToBoolE(strings.TrimSpace(v))
			if e != nil {
				err = multierr.Append(err, fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalidConfig, key, v))
				return
			}
			*dst = b
		}
	}

	integer("PRESENTER_CAMERA", &c.Capture.Device)
	integer("PRESENTER_CAPTURE_WIDTH", &c.Capture.Width)
	integer("PRESENTER_CAPTURE_HEIGHT", &c.Capture.Height)
	integer("PRESENTER_FPS", &c.Capture.FPS)

	str("PRESENTER_SEGMENT_ENGINE", &c.Segment.Engine)
	str("PRESENTER_MODEL_PATH", &c.Segment.ModelPath)
	float("PRESENTER_THRESHOLD", &c.Segment.Threshold)

	str("PRESENTER_INTERPOLATION", &c.Composite.Interpolation)

	str("PRESENTER_SHAPE", &c.Overlay.Shape)
	float("PRESENTER_WIDTH", &c.Overlay.Width)
	boolean("PRESENTER_MIRRORED", &c.Overlay.Mirrored)
	boolean("PRESENTER_BACKGROUND_REMOVAL", &c.Overlay.BackgroundRemoval)

	boolean("PRESENTER_SERVER_ENABLED", &c.Server.Enabled)
	str("PRESENTER_SERVER_ADDR", &c.Server.Addr)
	str("PRESENTER_STATIC_DIR", &c.Server.StaticDir)

	str("PRESENTER_DB", &c.Store.Path)

	str("PRESENTER_LOG_LEVEL", &c.Log.Level)
	str("PRESENTER_LOG_FILE", &c.Log.File)

	boolean("PRESENTER_TRAY", &c.Tray.Enabled)

	return err
}

// Validate reports every invalid field, not just the first.
func (c Config) Validate() error {
	var err error
	invalid := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Capture.Device < 0 {
		invalid("capture.device must not be negative")
	}
	if c.Capture.Width < 0 || c.Capture.Height < 0 {
		invalid("capture size must not be negative")
	}
	if c.Capture.FPS < 0 {
		invalid("capture.fps must not be negative")
	}

	switch c.Segment.Engine {
	case segment.EngineDNN, segment.EngineProcess, segment.EngineNone:
	default:
		invalid("segment.engine %q is not one of dnn, process, none", c.Segment.Engine)
	}
	if c.Segment.Threshold < 0 || c.Segment.Threshold >= 1 {
		invalid("segment.threshold must be in [0, 1)")
	}

	if _, e := composite.ParseInterpolation(c.Composite.Interpolation); e != nil {
		invalid("composite.interpolation: %v", e)
	}

	if _, e := shape.Parse(c.Overlay.Shape); e != nil {
		invalid("overlay.shape: %v", e)
	}
	if c.Overlay.Width < shape.MinWidth || c.Overlay.Width > shape.MaxWidth {
		invalid("overlay.width must be in [%g, %g]", shape.MinWidth, shape.MaxWidth)
	}
	if c.Overlay.CornerRadius < 0 {
		invalid("overlay.corner_radius must not be negative")
	}

	if c.Server.Enabled && c.Server.Addr == "" {
		invalid("server.addr is required when the server is enabled")
	}

	if c.Store.Path == "" {
		invalid("store.path is required")
	}

	if _, e := logrus.ParseLevel(c.Log.Level); e != nil {
		invalid("log.level: %v", e)
	}

	return err
}

// OverlayShape returns the configured shape. Call after Validate.
func (c Config) OverlayShape() shape.Shape {
	s, err := shape.Parse(c.Overlay.Shape)
	if err != nil {
		return shape.Circle
	}
	return s
}

// Interpolation returns the configured mask interpolation. Call after Validate.
func (c Config) Interpolation() composite.Interpolation {
	i, err := composite.ParseInterpolation(c.Composite.Interpolation)
	if err != nil {
		return composite.Nearest
	}
	return i
}
