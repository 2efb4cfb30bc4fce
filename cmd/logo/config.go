package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Carmen-Shannon/meshed/engine/renderer"
	"github.com/pelletier/go-toml/v2"
)

// Config is the demo configuration, read from an optional TOML file.
type Config struct {
	Window    WindowConfig    `toml:"window"`
	Renderer  RendererConfig  `toml:"renderer"`
	Shaders   ShaderConfig    `toml:"shaders"`
	Texture   TextureConfig   `toml:"texture"`
	Profiling ProfilingConfig `toml:"profiling"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	Software    bool   `toml:"software"`
	// FrameLimit caps the frame rate, 0 for uncapped.
	FrameLimit float64 `toml:"frame_limit"`
}

// ShaderConfig points at WGSL files to use instead of the embedded shaders.
// Both paths must be set together.
type ShaderConfig struct {
	Vertex   string `toml:"vertex"`
	Fragment string `toml:"fragment"`
	// Watch rebuilds the pipeline when either file changes.
	Watch bool `toml:"watch"`
}

type TextureConfig struct {
	// Path is an image file to show instead of the generated logo.
	Path string `toml:"path"`
	// Size is the edge length of the generated logo in pixels.
	Size int `toml:"size"`
}

type ProfilingConfig struct {
	Enabled  bool   `toml:"enabled"`
	Interval string `toml:"interval"`
	// MetricsAddr serves the Prometheus gauges on /metrics when set, e.g. ":9090".
	MetricsAddr string `toml:"metrics_addr"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{
			Title:  "meshed - logo",
			Width:  512,
			Height: 512,
		},
		Renderer: RendererConfig{
			PresentMode: renderer.PresentModeVSync.String(),
		},
		Texture: TextureConfig{
			Size: 256,
		},
		Profiling: ProfilingConfig{
			Interval: "1s",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config %s: %s", path, strict.String())
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a file may have set.
func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	if _, ok := renderer.ParsePresentMode(c.Renderer.PresentMode); !ok {
		return fmt.Errorf("unknown present mode %q", c.Renderer.PresentMode)
	}
	if c.Renderer.FrameLimit < 0 {
		return fmt.Errorf("frame limit %v must not be negative", c.Renderer.FrameLimit)
	}
	if (c.Shaders.Vertex == "") != (c.Shaders.Fragment == "") {
		return fmt.Errorf("vertex and fragment shader paths must be set together")
	}
	if c.Shaders.Watch && c.Shaders.Vertex == "" {
		return fmt.Errorf("shader watch needs shader paths")
	}
	if c.Texture.Path == "" && c.Texture.Size <= 0 {
		return fmt.Errorf("texture size %d must be positive", c.Texture.Size)
	}
	if _, err := c.Profiling.interval(); err != nil {
		return err
	}
	return nil
}

// presentMode returns the parsed present mode; Validate has rejected unknown names.
func (c RendererConfig) presentMode() renderer.PresentMode {
	mode, _ := renderer.ParsePresentMode(c.PresentMode)
	return mode
}

func (c ProfilingConfig) interval() (time.Duration, error) {
	if c.Interval == "" {
		return time.Second, nil
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 0, fmt.Errorf("profiling interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("profiling interval %s must be positive", d)
	}
	return d, nil
}
