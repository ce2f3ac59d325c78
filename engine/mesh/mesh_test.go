package mesh

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/camera"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/pipeline"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexOnlySource = `//@mellohi:include mesh_uniforms

@group(0) @binding(0) var<uniform> uniforms: MeshUniforms;

@vertex
fn vs_main(@location(0) position: vec3<f32>) -> @builtin(position) vec4<f32> {
    return uniforms.projection * vec4<f32>(position, 1.0);
}
`

func TestUniforms_Marshal(t *testing.T) {
	u := Uniforms{
		Projection: mgl32.Ident4(),
		View:       mgl32.Translate3D(1, 2, 3),
		Model:      mgl32.Scale3D(4, 4, 4),
	}
	data := u.Marshal()
	require.Len(t, data, UniformsSize)
	assert.Equal(t, 192, UniformsSize)

	got, ok := UnmarshalUniforms(data)
	require.True(t, ok)
	assert.Equal(t, u, got)
	assert.Equal(t, float32(3), got.View[14], "translation lives in column 3")

	_, ok = UnmarshalUniforms(data[:100])
	assert.False(t, ok)
}

func TestUniforms_IdentityRoundTrip(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	bg, err := bind_group.NewBindGroup(ctx, bind_group.WithBinding(0, UniformsSize))
	require.NoError(t, err)

	want := IdentityUniforms().Marshal()
	require.NoError(t, bg.Write(0, 0, want))

	got, err := bg.Read(0)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	u, ok := UnmarshalUniforms(got)
	require.True(t, ok)
	assert.Equal(t, IdentityUniforms(), u)
}

func TestCube(t *testing.T) {
	red := mgl32.Vec3{1, 0, 0}
	vertices, indices := Cube(red)
	require.Len(t, vertices, 24)
	require.Len(t, indices, 36)

	for _, v := range vertices {
		assert.Equal(t, red, v.Color)
		for i := range 3 {
			assert.InDelta(t, 0.5, math32.Abs(v.Position[i]), 1e-6)
		}
		assert.InDelta(t, 0.5, v.Position.Dot(v.Normal), 1e-6, "normals point outward")
	}
	for _, i := range indices {
		assert.Less(t, i, uint16(24))
	}
}

func TestNewMesh(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	vertices, indices := Cube(mgl32.Vec3{0, 1, 0})

	m, err := NewMesh(ctx, vertices,
		WithLabel("cube"),
		WithIndices(indices),
		WithCamera(camera.NewCamera()),
		WithPosition(mgl32.Vec3{2, 0, 0}),
		WithScale(0.75),
	)
	require.NoError(t, err)

	assert.Equal(t, "cube", m.Label())
	assert.Equal(t, uint32(24), m.VertexBuffer().VertexCount())
	assert.Equal(t, uint64(36), m.VertexBuffer().Layout().ArrayStride)
	assert.True(t, m.VertexBuffer().Sealed())
	assert.Equal(t, uint32(36), m.IndexBuffer().Count())
	assert.Equal(t, 1, m.Pipeline().BindGroupCount())

	// The uniforms slot is written before the pipeline exists.
	data, err := m.BindGroup().Read(0)
	require.NoError(t, err)
	u, ok := UnmarshalUniforms(data)
	require.True(t, ok)
	assert.True(t, m.Uniforms(0).Model.ApproxEqual(u.Model))
	assert.True(t, m.Camera().Projection().ApproxEqual(u.Projection))

	stats := ctx.Stats()
	assert.Equal(t, 3, stats.LiveBuffers)
	assert.Equal(t, 1, stats.LiveBindGroups)
	assert.Equal(t, 1, stats.LivePipelines)
}

func TestNewMesh_Errors(t *testing.T) {
	ctx := renderer.NewMemoryContext()

	_, err := NewMesh(ctx, nil)
	assert.ErrorIs(t, err, renderer.ErrInvalidUsage)

	vertices, indices := Cube(mgl32.Vec3{1, 1, 1})
	_, err = NewMesh(ctx, vertices,
		WithIndices(indices),
		WithShaderSource(vertexOnlySource),
		WithPipelineOptions(pipeline.WithShaderValidation(false)),
	)
	assert.ErrorIs(t, err, renderer.ErrShaderCompileFailure)

	ctx.FailAllocations(1)
	_, err = NewMesh(ctx, vertices, WithIndices(indices))
	assert.ErrorIs(t, err, renderer.ErrAllocationFailure)

	_, err = NewMesh(ctx, vertices, WithSampleCount(4))
	assert.ErrorIs(t, err, renderer.ErrLayoutMismatch)

	stats := ctx.Stats()
	assert.Zero(t, stats.LiveBuffers, "partially built meshes are released")
	assert.Zero(t, stats.LiveBindGroups)
	assert.Zero(t, stats.LivePipelines)
}

func TestMesh_ReleaseOrder(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	vertices, indices := Cube(mgl32.Vec3{0, 0, 1})
	m, err := NewMesh(ctx, vertices, WithLabel("cube"), WithIndices(indices))
	require.NoError(t, err)

	m.Release()
	m.Release()

	assert.Equal(t, []renderer.ReleaseRecord{
		{Kind: renderer.ResourceBindGroup, Label: "cube Bind Group"},
		{Kind: renderer.ResourceBuffer, Label: "cube Bind Group Slot 0"},
		{Kind: renderer.ResourcePipeline, Label: "cube"},
		{Kind: renderer.ResourceBuffer, Label: "cube Vertices"},
		{Kind: renderer.ResourceBuffer, Label: "cube Indices"},
	}, ctx.Released())
}

func TestMesh_Model(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	m, err := NewMesh(ctx, Triangle(mgl32.Vec3{1, 1, 1}), WithPosition(mgl32.Vec3{2, 0, 0}), WithSpin(1))
	require.NoError(t, err)

	quarterTurn := float64(math32.Pi) / 2
	elapsed := time.Duration(float64(time.Second) * quarterTurn)
	p := m.Model(elapsed).Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, p.X(), 1e-4)
	assert.InDelta(t, -2, p.Z(), 1e-4)

	m.SetSpin(0)
	m.SetScale(mgl32.Vec3{2, 2, 2})
	m.SetPosition(mgl32.Vec3{0, 1, 0})
	p = m.Model(elapsed).Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.Equal(t, mgl32.Vec4{2, 1, 0, 1}, p)

	u := m.Uniforms(0)
	assert.Equal(t, mgl32.Ident4(), u.Projection, "identity without a camera")
}

func TestMesh_System(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	m, err := NewMesh(ctx, Triangle(mgl32.Vec3{1, 0, 0}), WithLabel("triangle"))
	require.NoError(t, err)

	c := frame.NewController(ctx)
	require.NoError(t, c.AddSystem(frame.PhaseRender, "triangle", m.System()))
	require.NoError(t, c.Tick(16*time.Millisecond))

	draws := ctx.Draws()
	require.Len(t, draws, 1)
	assert.False(t, draws[0].Indexed)
	assert.Equal(t, uint32(3), draws[0].Count)
	assert.Equal(t, "triangle Vertices", draws[0].VertexBuffers[0])
	assert.Equal(t, "triangle Bind Group", draws[0].BindGroups[0])

	m.Release()
	assert.Error(t, c.Tick(16*time.Millisecond), "drawing a released mesh fails")
}

func TestBatch_SingleWriterPerFrame(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	cam := camera.NewCamera()
	b := NewBatch(WithWorkers(2), WithBatchName("cubes"))

	colors := []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for i, color := range colors {
		vertices, indices := Cube(color)
		m, err := NewMesh(ctx, vertices,
			WithIndices(indices),
			WithCamera(cam),
			WithPosition(mgl32.Vec3{float32(2 * i), 0, 0}),
			WithScale(0.75),
			WithSpin(1),
		)
		require.NoError(t, err)
		b.Add(m)
	}

	c := frame.NewController(ctx)
	require.NoError(t, b.Register(c))

	const ticks = 4
	for range ticks {
		require.NoError(t, c.Tick(250*time.Millisecond))
	}

	type key struct {
		frame int
		label string
	}
	writes := make(map[key]int)
	for _, w := range ctx.Writes() {
		if w.Frame == 0 {
			continue
		}
		writes[key{w.Frame, w.Label}]++
	}
	assert.Len(t, writes, ticks*len(colors))
	for k, n := range writes {
		assert.Equal(t, 1, n, "slot %q written %d times in frame %d", k.label, n, k.frame)
	}

	draws := ctx.Draws()
	require.Len(t, draws, ticks*len(colors))
	for _, d := range draws {
		assert.True(t, d.Indexed)
		assert.Equal(t, uint32(36), d.Count)
	}

	// The last written uniforms are the ones computed for the last tick.
	for _, m := range b.Meshes() {
		data, err := m.BindGroup().Read(0)
		require.NoError(t, err)
		u, ok := UnmarshalUniforms(data)
		require.True(t, ok)
		assert.True(t, m.Uniforms(ticks*250*time.Millisecond).Model.ApproxEqual(u.Model))
	}

	b.Release()
	b.Release()
	assert.Empty(t, b.Meshes())
	assert.Zero(t, ctx.Stats().LiveBuffers)
	require.NoError(t, c.Tick(time.Millisecond), "a released batch draws nothing")
	require.NoError(t, c.Close())
}
