package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContext_WriteRead(t *testing.T) {
	ctx := NewMemoryContext()

	b, err := ctx.CreateBuffer("uniforms", 16, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)
	require.NoError(t, ctx.WriteBuffer(b, 4, []byte{1, 2, 3, 4}))

	got, err := ctx.ReadBuffer(b, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 2, 3, 4}, got)

	writes := ctx.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, WriteRecord{Frame: 0, Label: "uniforms", Offset: 4, Size: 4}, writes[0])
}

func TestMemoryContext_WriteChecks(t *testing.T) {
	ctx := NewMemoryContext()
	b, err := ctx.CreateBuffer("b", 8, wgpu.BufferUsageCopyDst)
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset uint64
		data   []byte
	}{
		{name: "overrun", offset: 4, data: make([]byte, 8)},
		{name: "unaligned offset", offset: 2, data: []byte{1, 2, 3, 4}},
		{name: "unaligned length", offset: 0, data: []byte{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, ctx.WriteBuffer(b, tt.offset, tt.data), ErrInvalidUsage)
		})
	}

	_, err = ctx.ReadBuffer(b, 0, 4)
	assert.ErrorIs(t, err, ErrInvalidUsage, "read without CopySrc usage")
}

func TestMemoryContext_ReadChecks(t *testing.T) {
	ctx := NewMemoryContext()
	b, err := ctx.CreateBuffer("b", 8, wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)

	_, err = ctx.ReadBuffer(b, 2, 4)
	assert.ErrorIs(t, err, ErrInvalidUsage, "unaligned offset")
	_, err = ctx.ReadBuffer(b, 4, 8)
	assert.ErrorIs(t, err, ErrInvalidUsage, "overrun")

	got, err := ctx.ReadBuffer(b, 4, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestMemoryContext_UseAfterRelease(t *testing.T) {
	ctx := NewMemoryContext()
	b, err := ctx.CreateBuffer("b", 4, wgpu.BufferUsageCopyDst)
	require.NoError(t, err)

	b.Release()
	b.Release()

	assert.ErrorIs(t, ctx.WriteBuffer(b, 0, []byte{1}), ErrInvalidUsage)
	assert.Equal(t, []ReleaseRecord{{Kind: ResourceBuffer, Label: "b"}}, ctx.Released())
	assert.Equal(t, 0, ctx.Stats().LiveBuffers)
}

func TestMemoryContext_FailAllocations(t *testing.T) {
	ctx := NewMemoryContext()
	ctx.FailAllocations(1)

	_, err := ctx.CreateBuffer("b", 4, wgpu.BufferUsageCopyDst)
	assert.ErrorIs(t, err, ErrAllocationFailure)

	_, err = ctx.CreateBuffer("b", 4, wgpu.BufferUsageCopyDst)
	assert.NoError(t, err)
}

func TestMemoryContext_FrameLifecycle(t *testing.T) {
	ctx := NewMemoryContext()

	f, err := ctx.BeginFrame()
	require.NoError(t, err)

	_, err = ctx.BeginFrame()
	assert.ErrorIs(t, err, ErrInvalidUsage, "second acquire before present")

	f.Draw(3, 1)
	require.NoError(t, f.Submit())
	assert.ErrorIs(t, f.Submit(), ErrInvalidUsage)
	f.Present()
	f.Present()

	stats := ctx.Stats()
	assert.Equal(t, 1, stats.FramesBegun)
	assert.Equal(t, 1, stats.FramesSubmitted)
	assert.Equal(t, 1, stats.FramesPresented)

	draws := ctx.Draws()
	require.Len(t, draws, 1)
	assert.Equal(t, 1, draws[0].Frame)
	assert.Equal(t, uint32(3), draws[0].Count)
}

func TestMemoryContext_FailFrames(t *testing.T) {
	ctx := NewMemoryContext()
	ctx.FailFrames(2)

	for i := 0; i < 2; i++ {
		_, err := ctx.BeginFrame()
		assert.ErrorIs(t, err, ErrSurfaceUnavailable)
	}
	f, err := ctx.BeginFrame()
	require.NoError(t, err)
	require.NoError(t, f.Submit())
	f.Present()

	assert.Equal(t, 2, ctx.Stats().FailedAcquires)
	assert.Equal(t, 1, ctx.Stats().FramesBegun)
}

func TestMemoryContext_ZeroSizedSurface(t *testing.T) {
	ctx := NewMemoryContext()
	ctx.Configure(0, 0)

	_, err := ctx.BeginFrame()
	assert.ErrorIs(t, err, ErrSurfaceUnavailable)

	ctx.Configure(800, 600)
	w, h := ctx.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
	_, err = ctx.BeginFrame()
	assert.NoError(t, err)
}

func TestMemoryContext_PipelineSampleCount(t *testing.T) {
	ctx := NewMemoryContext(WithMSAA(MSAA4x))

	_, err := ctx.CreateRenderPipeline(RenderPipelineDescriptor{Label: "p", Source: "x", SampleCount: 1})
	assert.ErrorIs(t, err, ErrLayoutMismatch)

	p, err := ctx.CreateRenderPipeline(RenderPipelineDescriptor{Label: "p", Source: "x", SampleCount: 4})
	require.NoError(t, err)
	desc, ok := ctx.PipelineDescriptor(p)
	require.True(t, ok)
	assert.Equal(t, "p", desc.Label)
}
