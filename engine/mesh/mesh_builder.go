package mesh

import (
	"sync"

	"github.com/Carmen-Shannon/mellohi/engine/camera"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// MeshBuilderOption is a functional option used to configure a Mesh during construction.
type MeshBuilderOption func(*mesh)

func newMeshDefaults(ctx renderer.Context) *mesh {
	return &mesh{
		mu:           &sync.Mutex{},
		ctx:          ctx,
		label:        "Mesh " + uuid.NewString(),
		shaderID:     "mesh",
		shaderSource: DefaultShaderSource,
		sampleCount:  uint32(ctx.SampleCount()),
		scale:        mgl32.Vec3{1, 1, 1},
	}
}

// WithLabel sets the debug label for the mesh. Its resources are labelled after it.
// Defaults to "Mesh " followed by a random UUID.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - MeshBuilderOption: a function that sets the label
func WithLabel(label string) MeshBuilderOption {
	return func(m *mesh) {
		m.label = label
	}
}

// WithIndices makes the mesh indexed with 16-bit indices.
//
// Parameters:
//   - indices: the index data
//
// Returns:
//   - MeshBuilderOption: a function that sets the indices
func WithIndices(indices []uint16) MeshBuilderOption {
	return func(m *mesh) {
		m.indices = indices
	}
}

// WithShader draws the mesh with the shader identified by id, looked up through the resolver
// instead of using DefaultShaderSource.
//
// Parameters:
//   - id: the shader identifier
//
// Returns:
//   - MeshBuilderOption: a function that sets the shader
func WithShader(id string) MeshBuilderOption {
	return func(m *mesh) {
		m.shaderID = id
		m.shaderSource = ""
	}
}

// WithShaderSource draws the mesh with inline WGSL.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - MeshBuilderOption: a function that sets the shader source
func WithShaderSource(source string) MeshBuilderOption {
	return func(m *mesh) {
		m.shaderSource = source
	}
}

// WithResolver sets the resolver WithShader identifiers are looked up through.
//
// Parameters:
//   - r: the shader resolver
//
// Returns:
//   - MeshBuilderOption: a function that sets the resolver
func WithResolver(r shader.Resolver) MeshBuilderOption {
	return func(m *mesh) {
		m.resolver = r
	}
}

// WithCamera sets the camera supplying projection and view.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - MeshBuilderOption: a function that sets the camera
func WithCamera(c camera.Camera) MeshBuilderOption {
	return func(m *mesh) {
		m.camera = c
	}
}

// WithPosition sets the mesh's world position.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - MeshBuilderOption: a function that sets the position
func WithPosition(p mgl32.Vec3) MeshBuilderOption {
	return func(m *mesh) {
		m.position = p
	}
}

// WithScale sets a uniform scale on every axis.
//
// Parameters:
//   - s: the scale factor
//
// Returns:
//   - MeshBuilderOption: a function that sets the scale
func WithScale(s float32) MeshBuilderOption {
	return func(m *mesh) {
		m.scale = mgl32.Vec3{s, s, s}
	}
}

// WithSpin sets the rotation rate about Y in radians per second.
//
// Parameters:
//   - radiansPerSecond: the rotation rate
//
// Returns:
//   - MeshBuilderOption: a function that sets the spin
func WithSpin(radiansPerSecond float32) MeshBuilderOption {
	return func(m *mesh) {
		m.spin = radiansPerSecond
	}
}

// WithSampleCount overrides the MSAA sample count the pipeline is built for.
// Defaults to the context's sample count.
//
// Parameters:
//   - n: the sample count
//
// Returns:
//   - MeshBuilderOption: a function that sets the sample count
func WithSampleCount(n uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.sampleCount = n
	}
}

// WithPipelineOptions passes extra options through to pipeline construction.
//
// Parameters:
//   - opts: the pipeline options
//
// Returns:
//   - MeshBuilderOption: a function that appends the pipeline options
func WithPipelineOptions(opts ...pipeline.PipelineBuilderOption) MeshBuilderOption {
	return func(m *mesh) {
		m.pipelineOpts = append(m.pipelineOpts, opts...)
	}
}
