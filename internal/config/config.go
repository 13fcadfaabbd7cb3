// Package config handles facewarp configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"time"

	"facewarp/pkg/colorutil"
)

// Detector backends.
const (
	DetectorPigo    = "pigo"
	DetectorCommand = "command"
	DetectorFile    = "file"
)

// Config holds all settings.
type Config struct {
	Texture  TextureConfig  `yaml:"texture"`
	Warp     WarpConfig     `yaml:"warp"`
	Detector DetectorConfig `yaml:"detector"`
	Topology TopologyConfig `yaml:"topology"`
	Overlay  OverlayConfig  `yaml:"overlay"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TextureConfig describes the generated texture.
type TextureConfig struct {
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"` // hex color, empty for transparent
}

// WarpConfig tunes the warp engine.
type WarpConfig struct {
	Workers int `yaml:"workers"` // 0 uses GOMAXPROCS
}

// DetectorConfig selects and tunes the landmark detector.
type DetectorConfig struct {
	Kind      string        `yaml:"kind"`
	Cascade   string        `yaml:"cascade"`        // pigo cascade file
	Command   string        `yaml:"command"`        // external model executable
	Args      []string      `yaml:"args,omitempty"` // leading arguments for Command
	Keypoints string        `yaml:"keypoints"`      // stored JSON result
	Timeout   time.Duration `yaml:"timeout"`

	MinSize      int     `yaml:"min_size"`
	MaxSize      int     `yaml:"max_size"`
	ShiftFactor  float64 `yaml:"shift_factor"`
	ScaleFactor  float64 `yaml:"scale_factor"`
	IoU          float64 `yaml:"iou"`
	MinScore     float64 `yaml:"min_score"`
	MaxDimension int     `yaml:"max_dimension"`
}

// TopologyConfig points at a mesh file; empty uses the built-in mesh.
type TopologyConfig struct {
	Path string `yaml:"path"`
}

// OverlayConfig holds mesh overlay settings.
type OverlayConfig struct {
	Points      bool    `yaml:"points"`
	Contours    bool    `yaml:"contours"`
	PointRadius float64 `yaml:"point_radius"`
	LineWidth   float64 `yaml:"line_width"`
	Color       string  `yaml:"color"`
}

// ViewerConfig holds desktop viewer settings.
type ViewerConfig struct {
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Texture: TextureConfig{
			Width:  1024,
			Height: 1024,
		},
		Detector: DetectorConfig{
			Kind:         DetectorPigo,
			Timeout:      30 * time.Second,
			MinSize:      100,
			MaxSize:      1000,
			ShiftFactor:  0.1,
			ScaleFactor:  1.1,
			IoU:          0.2,
			MinScore:     5,
			MaxDimension: 1024,
		},
		Overlay: OverlayConfig{
			Points:      true,
			Contours:    true,
			PointRadius: 1,
			LineWidth:   1,
			Color:       "#32eedb",
		},
		Viewer: ViewerConfig{
			ViewportWidth:  400,
			ViewportHeight: 400,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Texture.Width <= 0 || c.Texture.Height <= 0 {
		return fmt.Errorf("texture size must be positive, got %dx%d", c.Texture.Width, c.Texture.Height)
	}
	if c.Warp.Workers < 0 {
		return fmt.Errorf("warp workers must not be negative, got %d", c.Warp.Workers)
	}
	switch c.Detector.Kind {
	case DetectorPigo, DetectorCommand, DetectorFile:
	default:
		return fmt.Errorf("unknown detector kind %q", c.Detector.Kind)
	}
	if _, err := colorutil.ParseHex(c.Texture.Background); err != nil {
		return fmt.Errorf("texture background: %w", err)
	}
	if _, err := colorutil.ParseHex(c.Overlay.Color); err != nil {
		return fmt.Errorf("overlay color: %w", err)
	}
	return nil
}

// Background returns the texture background color.
func (c *Config) Background() color.Color {
	bg, err := colorutil.ParseHex(c.Texture.Background)
	if err != nil {
		return colorutil.Transparent
	}
	return bg
}

// OverlayColor returns the mesh overlay color.
func (c *Config) OverlayColor() color.Color {
	col, err := colorutil.ParseHex(c.Overlay.Color)
	if err != nil {
		return colorutil.Mesh
	}
	return col
}
