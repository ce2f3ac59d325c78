package pipeline

import (
	"github.com/Carmen-Shannon/mellohi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption is a functional option used to configure a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithResolver sets the resolver the shader identifier is looked up through.
// When not specified, shaders are read relative to the working directory.
//
// Parameters:
//   - r: the shader resolver
//
// Returns:
//   - PipelineBuilderOption: a function that sets the resolver
func WithResolver(r shader.Resolver) PipelineBuilderOption {
	return func(p *pipeline) {
		p.resolver = r
	}
}

// WithSource supplies the WGSL source directly. The shader identifier is then used only as a
// label and the resolver is not consulted.
//
// Parameters:
//   - source: the raw WGSL source
//
// Returns:
//   - PipelineBuilderOption: a function that sets the inline source
func WithSource(source string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.source = source
	}
}

// WithLabel sets the debug label for the pipeline. Defaults to the shader identifier.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - PipelineBuilderOption: a function that sets the label
func WithLabel(label string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.label = label
	}
}

// WithShaderValidation toggles compiling the source with naga before pipeline creation.
// Enabled by default.
//
// Parameters:
//   - enabled: whether to validate the shader
//
// Returns:
//   - PipelineBuilderOption: a function that sets shader validation
func WithShaderValidation(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.validate = enabled
	}
}

// WithEntryPoints overrides the vertex and fragment entry points parsed from the @vertex and
// @fragment attributes. An empty name keeps the parsed one.
//
// Parameters:
//   - vertex: the vertex entry point name
//   - fragment: the fragment entry point name
//
// Returns:
//   - PipelineBuilderOption: a function that sets the entry points
func WithEntryPoints(vertex, fragment string) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexEntryPoint = vertex
		p.fragmentEntryPoint = fragment
	}
}

// WithDepthTestEnabled sets whether fragments are tested against the depth buffer.
// When disabled the depth compare function is Always.
//
// Parameters:
//   - enabled: whether depth testing is enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth test state
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
	}
}

// WithDepthWriteEnabled sets whether fragments write to the depth buffer.
//
// Parameters:
//   - enabled: whether depth writing is enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the depth write state
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithBlendEnabled turns on alpha blending with the pipeline's blend state, standard
// source-over unless WithBlendState replaces it.
//
// Parameters:
//   - enabled: whether blending is enabled
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state toggle
func WithBlendEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendEnabled = enabled
	}
}

// WithBlendState replaces the blend state used when blending is enabled.
//
// Parameters:
//   - blendState: the blend state
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state
func WithBlendState(blendState *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = blendState
	}
}

// WithCullMode sets which triangle faces are culled. Defaults to wgpu.CullModeNone.
//
// Parameters:
//   - mode: the cull mode
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets how vertices are assembled into primitives. Defaults to triangle lists.
//
// Parameters:
//   - topology: the primitive topology
//
// Returns:
//   - PipelineBuilderOption: a function that sets the topology
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order of front-facing triangles. Defaults to wgpu.FrontFaceCCW.
//
// Parameters:
//   - frontFace: the front face winding
//
// Returns:
//   - PipelineBuilderOption: a function that sets the front face
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets which color channels the fragment stage writes. Defaults to all.
//
// Parameters:
//   - writeMask: the color write mask
//
// Returns:
//   - PipelineBuilderOption: a function that sets the write mask
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}
