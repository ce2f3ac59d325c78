package mesh

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/camera"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/buffer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/render_pass"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/shader"
	"github.com/go-gl/mathgl/mgl32"
)

// uniformsSlot is the bind group slot the Uniforms block is written to.
const uniformsSlot = 0

type mesh struct {
	mu  *sync.Mutex
	ctx renderer.Context

	label   string
	indices []uint16

	shaderID     string
	shaderSource string
	resolver     shader.Resolver
	sampleCount  uint32
	pipelineOpts []pipeline.PipelineBuilderOption
	camera       camera.Camera
	position     mgl32.Vec3
	scale        mgl32.Vec3
	spin         float32

	vertexBuffer buffer.VertexBuffer
	indexBuffer  buffer.IndexBuffer
	bindGroup    bind_group.BindGroup
	pipeline     pipeline.Pipeline
	released     bool
}

// Mesh is a renderable: a vertex buffer, an optional index buffer, a bind group holding one
// Uniforms block at slot 0, and the pipeline built against them.
//
// The mesh's model matrix spins it about Y at a fixed rate, then places it at its position
// with its scale, applied in that order: Model = RotateY(spin * t) * Translate * Scale.
type Mesh interface {
	// Label returns the debug label for this mesh.
	Label() string

	// VertexBuffer returns the mesh's vertex buffer.
	VertexBuffer() buffer.VertexBuffer

	// IndexBuffer returns the mesh's index buffer, or nil for a non-indexed mesh.
	IndexBuffer() buffer.IndexBuffer

	// BindGroup returns the bind group holding the mesh's uniforms.
	BindGroup() bind_group.BindGroup

	// Pipeline returns the pipeline the mesh draws with.
	Pipeline() pipeline.Pipeline

	// Camera returns the camera supplying projection and view, or nil.
	Camera() camera.Camera

	// Position returns the mesh's world position.
	Position() mgl32.Vec3

	// SetPosition moves the mesh.
	//
	// Parameters:
	//   - p: the world position
	SetPosition(p mgl32.Vec3)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - s: the scale
	SetScale(s mgl32.Vec3)

	// SetSpin sets the rotation rate about Y in radians per second.
	//
	// Parameters:
	//   - radiansPerSecond: the rotation rate
	SetSpin(radiansPerSecond float32)

	// Model returns the model matrix at the given elapsed time.
	//
	// Parameters:
	//   - elapsed: the time since the loop started
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	Model(elapsed time.Duration) mgl32.Mat4

	// Uniforms computes the uniform block at the given elapsed time. Projection and view come
	// from the camera, or are identity without one. This touches no GPU state.
	//
	// Parameters:
	//   - elapsed: the time since the loop started
	//
	// Returns:
	//   - Uniforms: the uniform block
	Uniforms(elapsed time.Duration) Uniforms

	// WriteUniforms uploads u to the uniforms slot.
	//
	// Parameters:
	//   - u: the uniform block
	//
	// Returns:
	//   - error: an error if the write failed
	WriteUniforms(u Uniforms) error

	// Draw binds the mesh's pipeline, vertex buffer, index buffer, and bind group into pass and
	// issues one draw covering the whole mesh.
	//
	// Parameters:
	//   - pass: a recording render pass
	//
	// Returns:
	//   - error: ErrInvalidUsage if the pass is not recording or the mesh is released
	Draw(pass render_pass.RenderPass) error

	// System returns a frame.PhaseRender system that writes this frame's uniforms and draws the
	// mesh.
	System() frame.System

	// Release releases the bind group, the pipeline, the vertex buffer, and the index buffer,
	// in that order. Calling Release more than once has no effect.
	Release()
}

var _ Mesh = &mesh{}

// NewMesh builds a Mesh from vertices. Resources are created in the order vertex buffer,
// index buffer, bind group, pipeline. The uniforms are written once before the pipeline is
// built so the first frame never reads an unwritten slot. If any step fails, everything created
// so far is released.
//
// Parameters:
//   - ctx: the rendering context
//   - vertices: the mesh vertices
//   - options: functional options for indices, shader, camera, and transform
//
// Returns:
//   - Mesh: the built mesh
//   - error: an error wrapping the failing step's error
func NewMesh(ctx renderer.Context, vertices []Vertex, options ...MeshBuilderOption) (Mesh, error) {
	if ctx == nil {
		return nil, fmt.Errorf("nil context: %w", renderer.ErrInvalidUsage)
	}
	if len(vertices) == 0 {
		return nil, fmt.Errorf("mesh has no vertices: %w", renderer.ErrInvalidUsage)
	}

	m := newMeshDefaults(ctx)
	for _, opt := range options {
		opt(m)
	}

	if err := m.build(vertices); err != nil {
		m.Release()
		return nil, fmt.Errorf("failed to build mesh %q: %w", m.label, err)
	}
	return m, nil
}

func (m *mesh) build(vertices []Vertex) error {
	var err error

	m.vertexBuffer, err = buffer.NewVertexBuffer(m.ctx, vertices, buffer.WithLabel(m.label+" Vertices"))
	if err != nil {
		return err
	}
	for range 3 {
		if err := m.vertexBuffer.AddAttributeVec3f(); err != nil {
			return err
		}
	}

	if len(m.indices) > 0 {
		m.indexBuffer, err = buffer.NewIndexBuffer16(m.ctx, m.indices, buffer.WithLabel(m.label+" Indices"))
		if err != nil {
			return err
		}
	}

	m.bindGroup, err = bind_group.NewBindGroup(m.ctx,
		bind_group.WithLabel(m.label+" Bind Group"),
		bind_group.WithBinding(uniformsSlot, UniformsSize),
	)
	if err != nil {
		return err
	}

	if err := m.WriteUniforms(m.Uniforms(0)); err != nil {
		return err
	}

	opts := []pipeline.PipelineBuilderOption{pipeline.WithLabel(m.label)}
	if m.resolver != nil {
		opts = append(opts, pipeline.WithResolver(m.resolver))
	}
	if m.shaderSource != "" {
		opts = append(opts, pipeline.WithSource(m.shaderSource))
	}
	opts = append(opts, m.pipelineOpts...)

	m.pipeline, err = pipeline.NewPipeline(m.ctx, m.shaderID, m.vertexBuffer, m.bindGroup, m.sampleCount, opts...)
	return err
}

func (m *mesh) Label() string {
	return m.label
}

func (m *mesh) VertexBuffer() buffer.VertexBuffer {
	return m.vertexBuffer
}

func (m *mesh) IndexBuffer() buffer.IndexBuffer {
	return m.indexBuffer
}

func (m *mesh) BindGroup() bind_group.BindGroup {
	return m.bindGroup
}

func (m *mesh) Pipeline() pipeline.Pipeline {
	return m.pipeline
}

func (m *mesh) Camera() camera.Camera {
	return m.camera
}

func (m *mesh) Position() mgl32.Vec3 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *mesh) SetPosition(p mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = p
}

func (m *mesh) SetScale(s mgl32.Vec3) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = s
}

func (m *mesh) SetSpin(radiansPerSecond float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spin = radiansPerSecond
}

func (m *mesh) Model(elapsed time.Duration) mgl32.Mat4 {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := mgl32.HomogRotate3DY(m.spin * float32(elapsed.Seconds()))
	t := mgl32.Translate3D(m.position.X(), m.position.Y(), m.position.Z())
	s := mgl32.Scale3D(m.scale.X(), m.scale.Y(), m.scale.Z())
	return r.Mul4(t).Mul4(s)
}

func (m *mesh) Uniforms(elapsed time.Duration) Uniforms {
	u := IdentityUniforms()
	if m.camera != nil {
		u.Projection = m.camera.Projection()
		u.View = m.camera.View()
	}
	u.Model = m.Model(elapsed)
	return u
}

func (m *mesh) WriteUniforms(u Uniforms) error {
	if m.bindGroup == nil {
		return fmt.Errorf("mesh %q has no bind group: %w", m.label, renderer.ErrInvalidUsage)
	}
	return m.bindGroup.Write(uniformsSlot, 0, u.Marshal())
}

func (m *mesh) Draw(pass render_pass.RenderPass) error {
	m.mu.Lock()
	released := m.released
	m.mu.Unlock()
	if released {
		return fmt.Errorf("mesh %q drawn after release: %w", m.label, renderer.ErrInvalidUsage)
	}

	if err := pass.SetPipeline(m.pipeline); err != nil {
		return err
	}
	if err := pass.SetVertexBuffer(0, m.vertexBuffer); err != nil {
		return err
	}
	if err := pass.SetBindGroup(0, m.bindGroup); err != nil {
		return err
	}
	if m.indexBuffer == nil {
		return pass.Draw(m.vertexBuffer.VertexCount())
	}
	if err := pass.SetIndexBuffer(m.indexBuffer); err != nil {
		return err
	}
	return pass.DrawIndexed(m.indexBuffer.Count())
}

func (m *mesh) System() frame.System {
	return func(s *frame.State) error {
		if err := m.WriteUniforms(m.Uniforms(s.Elapsed)); err != nil {
			return err
		}
		return m.Draw(s.Pass)
	}
}

func (m *mesh) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.released {
		return
	}
	m.released = true

	if m.bindGroup != nil {
		m.bindGroup.Release()
	}
	if m.pipeline != nil {
		m.pipeline.Release()
	}
	if m.vertexBuffer != nil {
		m.vertexBuffer.Release()
	}
	if m.indexBuffer != nil {
		m.indexBuffer.Release()
	}
}
