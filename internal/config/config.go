// Package config loads the application's file configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/units"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

// CameraConfig configures frame capture.
type CameraConfig struct {
	Device   int    `yaml:"device"`
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Rotation int    `yaml:"rotation"`
	Facing   string `yaml:"facing"`
	FPS      int    `yaml:"fps"`
}

// OverlayConfig is the size of the annotated output.
type OverlayConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DetectorConfig configures the pose detector.
type DetectorConfig struct {
	MaxPoses      int     `yaml:"max_poses"`
	MinConfidence float64 `yaml:"min_confidence"`
	Script        string  `yaml:"script"`
}

// SettingsConfig seeds the live settings on first run.
type SettingsConfig struct {
	SafeDistance float64 `yaml:"safe_distance"`
	Unit         string  `yaml:"unit"`
	ShowDistance bool    `yaml:"show_distance"`
	VisualizeZ   bool    `yaml:"visualize_z"`
	RescaleZ     bool    `yaml:"rescale_z"`
}

// Config is the file configuration.
type Config struct {
	DataDir   string         `yaml:"data_dir"`
	PluginDir string         `yaml:"plugin_dir"`
	Tray      bool           `yaml:"tray"`
	Server    ServerConfig   `yaml:"server"`
	Camera    CameraConfig   `yaml:"camera"`
	Overlay   OverlayConfig  `yaml:"overlay"`
	Detector  DetectorConfig `yaml:"detector"`
	Settings  SettingsConfig `yaml:"settings"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	s := settings.Default()
	dataDir := ".safedistance"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".safedistance")
	}
	return Config{
		DataDir: dataDir,
		Tray:    true,
		Server:  ServerConfig{Addr: ":8080"},
		Camera: CameraConfig{
			Device: 0,
			Width:  capture.DefaultWidth,
			Height: capture.DefaultHeight,
			Facing: string(capture.FacingBack),
			FPS:    15,
		},
		Overlay: OverlayConfig{Width: 1280, Height: 720},
		Detector: DetectorConfig{
			MaxPoses:      2,
			MinConfidence: 0.5,
		},
		Settings: SettingsConfig{
			SafeDistance: s.SafeDistance.Value,
			Unit:         s.SafeDistance.Unit,
			ShowDistance: s.ShowDistance,
			VisualizeZ:   s.VisualizeZ,
			RescaleZ:     s.RescaleZ,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if cfg.PluginDir == "" {
		cfg.PluginDir = filepath.Join(cfg.DataDir, "plugins")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later at startup.
func (c Config) Validate() error {
	switch c.Camera.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("camera.rotation must be 0, 90, 180 or 270, got %d", c.Camera.Rotation)
	}
	if _, err := capture.ParseFacing(c.Camera.Facing); err != nil {
		return fmt.Errorf("camera.facing: %w", err)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 {
		return fmt.Errorf("camera size must not be negative, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Overlay.Width <= 0 || c.Overlay.Height <= 0 {
		return fmt.Errorf("overlay size must be positive, got %dx%d", c.Overlay.Width, c.Overlay.Height)
	}
	if c.Detector.MaxPoses <= 0 {
		return fmt.Errorf("detector.max_poses must be positive, got %d", c.Detector.MaxPoses)
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be within [0, 1], got %g", c.Detector.MinConfidence)
	}
	if err := c.InitialSettings().Validate(); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	return nil
}

// InitialSettings converts the seed settings.
func (c Config) InitialSettings() settings.Settings {
	unit, err := units.Parse(c.Settings.Unit)
	if err != nil {
		unit = c.Settings.Unit
	}
	return settings.Settings{
		SafeDistance: settings.SafeDistance{Value: c.Settings.SafeDistance, Unit: unit},
		ShowDistance: c.Settings.ShowDistance,
		VisualizeZ:   c.Settings.VisualizeZ,
		RescaleZ:     c.Settings.RescaleZ,
	}
}

// Facing returns the configured camera facing.
func (c Config) Facing() capture.Facing {
	return capture.Facing(c.Camera.Facing)
}

// DeviceOptions is the capture format requested from device id.
func (c Config) DeviceOptions(id int) capture.DeviceOptions {
	return capture.DeviceOptions{ID: id, Width: c.Camera.Width, Height: c.Camera.Height, FPS: c.Camera.FPS}
}

// DatabasePath is the sqlite file inside DataDir.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "safedistance.db")
}
