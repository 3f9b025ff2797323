// Package config loads the application configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// Backend names a page-rendering implementation. Alternate rendering
// engines are swappable implementations selected here, not parallel
// viewer trees.
type Backend string

const (
	BackendPoppler Backend = "poppler" // pdftoppm-based PDF rasterizer
	BackendImage   Backend = "image"   // single-page raster documents
)

// StyleDefaults seeds the per-mode style parameters of a new session.
type StyleDefaults struct {
	FontFamily string  `yaml:"font_family,omitempty"`
	FontSize   float64 `yaml:"font_size,omitempty"`
	Color      string  `yaml:"color,omitempty"`
	Background string  `yaml:"background,omitempty"`
	Opacity    float64 `yaml:"opacity,omitempty"`
}

// Config holds all tunables for the viewer and the editor core.
type Config struct {
	LogLevel string `yaml:"log_level"`

	Renderer   Backend `yaml:"renderer"`
	PopplerDPI float64 `yaml:"poppler_dpi"`
	ExportDPI  float64 `yaml:"export_dpi"`

	MinScale float64 `yaml:"min_scale"`
	MaxScale float64 `yaml:"max_scale"`
	ZoomStep float64 `yaml:"zoom_step"`

	// ResizeDebounceMs collapses bursts of auto-fit re-renders into a
	// single render of the final size.
	ResizeDebounceMs int `yaml:"resize_debounce_ms"`

	StorageDir string `yaml:"storage_dir"`

	Styles map[string]StyleDefaults `yaml:"styles,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:         "info",
		Renderer:         BackendPoppler,
		PopplerDPI:       150,
		ExportDPI:        144,
		MinScale:         0.1,
		MaxScale:         10.0,
		ZoomStep:         1.25,
		ResizeDebounceMs: 150,
		StorageDir:       defaultStorageDir(),
		Styles: map[string]StyleDefaults{
			"text": {
				FontFamily: "sans",
				FontSize:   14,
				Color:      "#000000",
			},
			"signature": {
				FontFamily: "serif",
				FontSize:   22,
				Color:      "#1a1a8c",
			},
			"highlight": {
				Color:   "#ffeb3b",
				Opacity: 0.4,
			},
		},
	}
}

func defaultStorageDir() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "doc-annotator", "documents")
}

// Load reads a YAML config file, layering it over the defaults. A missing
// file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Renderer {
	case BackendPoppler, BackendImage:
	default:
		return fmt.Errorf("unknown renderer backend %q", c.Renderer)
	}
	if c.MinScale <= 0 || c.MaxScale <= 0 || c.MinScale > c.MaxScale {
		return fmt.Errorf("invalid scale bounds [%v, %v]", c.MinScale, c.MaxScale)
	}
	if c.ZoomStep <= 1.0 {
		return fmt.Errorf("zoom_step must be greater than 1.0, got %v", c.ZoomStep)
	}
	if c.ResizeDebounceMs < 0 {
		return fmt.Errorf("resize_debounce_ms must not be negative")
	}
	return nil
}

// ClampScale bounds a requested scale to the configured range.
func (c *Config) ClampScale(scale float64) float64 {
	if scale < c.MinScale {
		return c.MinScale
	}
	if scale > c.MaxScale {
		return c.MaxScale
	}
	return scale
}
