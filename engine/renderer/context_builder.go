package renderer

import "github.com/cogentcore/webgpu/wgpu"

// contextOptions holds the settings shared by every Context implementation.
type contextOptions struct {
	presentMode          PresentMode
	sampleCount          MSAASampleCount
	clearColor           wgpu.Color
	forceFallbackAdapter bool
	surfaceFormat        wgpu.TextureFormat
}

// ContextBuilderOption is a functional option applied to a Context during construction.
type ContextBuilderOption func(*contextOptions)

func defaultContextOptions() *contextOptions {
	return &contextOptions{
		presentMode: PresentModeVSync,
		sampleCount: MSAAOff,
		clearColor:  wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0},
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - ContextBuilderOption: a function that applies the present mode option to a context
func WithPresentMode(mode PresentMode) ContextBuilderOption {
	return func(o *contextOptions) {
		o.presentMode = mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the main render pass.
// When not specified, the default is MSAAOff.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff or MSAA4x)
//
// Returns:
//   - ContextBuilderOption: a function that applies the MSAA option to a context
func WithMSAA(count MSAASampleCount) ContextBuilderOption {
	return func(o *contextOptions) {
		o.sampleCount = count
	}
}

// WithClearColor sets the color the render pass clears the surface image to.
//
// Parameters:
//   - c: the clear color
//
// Returns:
//   - ContextBuilderOption: a function that applies the clear color option to a context
func WithClearColor(c wgpu.Color) ContextBuilderOption {
	return func(o *contextOptions) {
		o.clearColor = c
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - ContextBuilderOption: a function that applies the force software renderer option to a context
func WithForceSoftwareRenderer(force bool) ContextBuilderOption {
	return func(o *contextOptions) {
		o.forceFallbackAdapter = force
	}
}

// WithSurfaceFormat overrides the surface color format. The wgpu context otherwise picks the
// surface's preferred format; the memory context defaults to BGRA8Unorm.
//
// Parameters:
//   - format: the surface texture format
//
// Returns:
//   - ContextBuilderOption: a function that applies the surface format option to a context
func WithSurfaceFormat(format wgpu.TextureFormat) ContextBuilderOption {
	return func(o *contextOptions) {
		o.surfaceFormat = format
	}
}
