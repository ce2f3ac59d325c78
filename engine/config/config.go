package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned by Validate and Load for values out of range.
var ErrInvalidConfig = errors.New("invalid config")

// maxConfigSize caps the size of a config file Load will read.
const maxConfigSize = 1 << 20

const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// Config is the YAML document describing a mellohi application.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Frame    FrameConfig    `yaml:"frame"`
}

// WindowConfig holds the initial window settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// RendererConfig holds the rendering context settings.
type RendererConfig struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `yaml:"present_mode"`
	// MSAA is the sample count, 1 or 4.
	MSAA uint32 `yaml:"msaa"`
	// ClearColor is RGBA in [0, 1].
	ClearColor           [4]float64 `yaml:"clear_color"`
	ForceFallbackAdapter bool       `yaml:"force_fallback_adapter"`
}

// FrameConfig holds the frame loop settings.
type FrameConfig struct {
	MaxSurfaceRetries int `yaml:"max_surface_retries"`
	// FrameLimit caps frames per second. Zero is uncapped.
	FrameLimit      float64       `yaml:"frame_limit"`
	Profiling       bool          `yaml:"profiling"`
	ProfileInterval time.Duration `yaml:"profile_interval"`
}

// Default returns the configuration used for anything a file leaves out.
//
// Returns:
//   - *Config: a config with every field set
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "mellohi",
			Width:  640,
			Height: 480,
		},
		Renderer: RendererConfig{
			PresentMode: PresentModeVSync,
			MSAA:        uint32(renderer.MSAAOff),
			ClearColor:  [4]float64{0.05, 0.05, 0.05, 1.0},
		},
		Frame: FrameConfig{
			MaxSurfaceRetries: frame.DefaultMaxSurfaceRetries,
			ProfileInterval:   time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not an error and
// yields Default().
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - *Config: the loaded and validated config
//   - error: an error if the file could not be read, parsed, or holds invalid values
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("[Config] %s not found, using defaults", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config %s is %d bytes, limit is %d: %w", path, info.Size(), maxConfigSize, ErrInvalidConfig)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the result.
// Unknown keys are rejected.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Config: the parsed config
//   - error: a decode or validation error
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Renderer.PresentMode = strings.ToLower(strings.TrimSpace(cfg.Renderer.PresentMode))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every out-of-range value, joined, each wrapping ErrInvalidConfig.
//
// Returns:
//   - error: nil if the config is usable
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidConfig))
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		invalid("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}

	switch c.Renderer.PresentMode {
	case PresentModeVSync, PresentModeUncapped:
	default:
		invalid("unknown present mode %q", c.Renderer.PresentMode)
	}
	switch renderer.MSAASampleCount(c.Renderer.MSAA) {
	case renderer.MSAAOff, renderer.MSAA4x:
	default:
		invalid("msaa %d must be 1 or 4", c.Renderer.MSAA)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			invalid("clear color component %d is %g, outside [0, 1]", i, v)
		}
	}

	if c.Frame.MaxSurfaceRetries < 0 {
		invalid("max surface retries %d is negative", c.Frame.MaxSurfaceRetries)
	}
	if c.Frame.FrameLimit < 0 {
		invalid("frame limit %g is negative", c.Frame.FrameLimit)
	}
	if c.Frame.Profiling && c.Frame.ProfileInterval <= 0 {
		invalid("profile interval %s must be positive", c.Frame.ProfileInterval)
	}

	return errors.Join(errs...)
}

// Options converts the renderer section into context options.
//
// Returns:
//   - []renderer.ContextBuilderOption: options for renderer.NewContext
func (r RendererConfig) Options() []renderer.ContextBuilderOption {
	mode := renderer.PresentModeVSync
	if r.PresentMode == PresentModeUncapped {
		mode = renderer.PresentModeUncapped
	}
	return []renderer.ContextBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithMSAA(renderer.MSAASampleCount(r.MSAA)),
		renderer.WithClearColor(wgpu.Color{
			R: r.ClearColor[0],
			G: r.ClearColor[1],
			B: r.ClearColor[2],
			A: r.ClearColor[3],
		}),
		renderer.WithForceSoftwareRenderer(r.ForceFallbackAdapter),
	}
}

// Options converts the frame section into controller options.
func (f FrameConfig) Options() []frame.ControllerBuilderOption {
	return []frame.ControllerBuilderOption{
		frame.WithMaxSurfaceRetries(f.MaxSurfaceRetries),
	}
}

// FrameDuration returns the minimum duration of one frame under FrameLimit, or zero when uncapped.
func (f FrameConfig) FrameDuration() time.Duration {
	if f.FrameLimit <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / f.FrameLimit)
}
