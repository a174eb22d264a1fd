package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-xr/engine/core"
	"github.com/spaghettifunk/anima-xr/engine/xr/simulator"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Window      WindowConfig      `toml:"window"`
	XR          XRConfig          `toml:"xr"`
	Renderer    RendererConfig    `toml:"renderer"`
	Assets      AssetsConfig      `toml:"assets"`
	Jobs        JobsConfig        `toml:"jobs"`
}

type ApplicationConfig struct {
	// The application name used in windowing and as the Vulkan application name.
	Name     string `toml:"name"`
	LogLevel string `toml:"log_level"`
}

// WindowConfig sizes the desktop preview window.
type WindowConfig struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type XRConfig struct {
	EyeWidth  uint32  `toml:"eye_width"`
	EyeHeight uint32  `toml:"eye_height"`
	Near      float32 `toml:"near"`
	Far       float32 `toml:"far"`
	// Meters.
	StageWidth float32 `toml:"stage_width"`
	StageDepth float32 `toml:"stage_depth"`
	IPD        float32 `toml:"ipd"`
	HeadHeight float32 `toml:"head_height"`
	// Degrees.
	FovY        float32 `toml:"fov_y"`
	RefreshRate float64 `toml:"refresh_rate"`
}

type RendererConfig struct {
	// Enables the Vulkan validation layer and debug report callback.
	Debug      bool   `toml:"debug"`
	MaxSamples uint32 `toml:"max_samples"`
}

type AssetsConfig struct {
	Root      string `toml:"root"`
	HotReload bool   `toml:"hot_reload"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

func DefaultConfig() *Config {
	return &Config{
		Application: ApplicationConfig{
			Name:     "Anima XR",
			LogLevel: "info",
		},
		Window: WindowConfig{
			Width:  1280,
			Height: 720,
		},
		XR: XRConfig{
			EyeWidth:    1440,
			EyeHeight:   1584,
			Near:        0.05,
			Far:         100,
			StageWidth:  3,
			StageDepth:  3,
			IPD:         0.064,
			HeadHeight:  1.6,
			FovY:        100,
			RefreshRate: 90,
		},
		Renderer: RendererConfig{
			Debug:      false,
			MaxSamples: 4,
		},
		Assets: AssetsConfig{
			Root:      "assets",
			HotReload: true,
		},
		Jobs: JobsConfig{
			Workers:   4,
			QueueSize: 64,
		},
	}
}

// LoadConfig decodes path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogInfo("config %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Application.Name == "" {
		return errors.New("application.name is required")
	}
	if _, err := log.ParseLevel(c.Application.LogLevel); err != nil {
		return fmt.Errorf("application.log_level: %w", err)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d must be non-zero", c.Window.Width, c.Window.Height)
	}
	if c.XR.EyeWidth == 0 || c.XR.EyeHeight == 0 {
		return fmt.Errorf("xr eye size %dx%d must be non-zero", c.XR.EyeWidth, c.XR.EyeHeight)
	}
	if c.XR.Near <= 0 || c.XR.Far <= c.XR.Near {
		return fmt.Errorf("xr clip planes near=%g far=%g: need 0 < near < far", c.XR.Near, c.XR.Far)
	}
	if c.XR.FovY <= 0 || c.XR.FovY >= 180 {
		return fmt.Errorf("xr.fov_y %g must be in (0, 180)", c.XR.FovY)
	}
	if c.XR.IPD < 0 || c.XR.StageWidth < 0 || c.XR.StageDepth < 0 {
		return errors.New("xr distances must not be negative")
	}
	if c.XR.RefreshRate <= 0 {
		return fmt.Errorf("xr.refresh_rate %g must be positive", c.XR.RefreshRate)
	}
	if s := c.Renderer.MaxSamples; s == 0 || s&(s-1) != 0 {
		return fmt.Errorf("renderer.max_samples %d must be a power of two", s)
	}
	if c.Assets.Root == "" {
		return errors.New("assets.root is required")
	}
	if c.Jobs.Workers <= 0 || c.Jobs.QueueSize < 0 {
		return fmt.Errorf("jobs: %d workers with queue %d", c.Jobs.Workers, c.Jobs.QueueSize)
	}
	return nil
}

// SimulatorConfig derives the desktop runtime settings.
func (c *Config) SimulatorConfig() simulator.Config {
	return simulator.Config{
		Name:          c.Application.Name,
		PreviewWidth:  c.Window.Width,
		PreviewHeight: c.Window.Height,
		EyeWidth:      c.XR.EyeWidth,
		EyeHeight:     c.XR.EyeHeight,
		StageWidth:    c.XR.StageWidth,
		StageDepth:    c.XR.StageDepth,
		IPD:           c.XR.IPD,
		HeadHeight:    c.XR.HeadHeight,
		FovY:          c.XR.FovY,
		RefreshRate:   c.XR.RefreshRate,
	}
}
