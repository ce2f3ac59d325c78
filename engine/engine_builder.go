package engine

import (
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/camera"
	"github.com/Carmen-Shannon/mellohi/engine/config"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithConfig sets the configuration the rendering context, frame controller, frame limit and
// profiler are built from. Defaults to config.Default().
//
// Parameters:
//   - cfg: the loaded configuration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConfig(cfg *config.Config) EngineBuilderOption {
	return func(e *engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithContext sets the rendering context instead of creating one on the window's surface.
// renderer.NewMemoryContext runs the engine without a GPU.
//
// Parameters:
//   - ctx: the rendering context; the engine releases it on shutdown
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithContext(ctx renderer.Context) EngineBuilderOption {
	return func(e *engine) {
		e.ctx = ctx
	}
}

// WithCamera sets the camera whose aspect follows the window size.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithProfiling enables or disables the metrics overlay, overriding the config.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profiling = &enabled
	}
}

// WithRenderFrameLimit sets an optional frame rate cap in frames per second, overriding the config.
// Pass 0 to keep the config's limit.
//
// Parameters:
//   - fps: maximum frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.frameLimit = 0
			return
		}
		e.frameLimit = time.Duration(float64(time.Second) / fps)
	}
}

// WithControllerOptions appends frame controller options after the ones derived from the config.
//
// Parameters:
//   - opts: the controller options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithControllerOptions(opts ...frame.ControllerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.controllerOptions = append(e.controllerOptions, opts...)
	}
}
