package buffer

import (
	"testing"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer_SizeRounding(t *testing.T) {
	tests := []struct {
		length int
		want   uint64
	}{
		{0, 0}, {1, 4}, {2, 4}, {3, 4}, {4, 4}, {5, 8}, {7, 8}, {8, 8}, {9, 12}, {191, 192}, {192, 192},
	}
	for _, tt := range tests {
		ctx := renderer.NewMemoryContext()
		data := make([]byte, tt.length)
		for i := range data {
			data[i] = byte(i + 1)
		}

		b, err := NewBuffer(ctx, data, wgpu.BufferUsageUniform, WithUsage(wgpu.BufferUsageCopySrc))
		require.NoError(t, err, "length %d", tt.length)
		assert.Equal(t, tt.want, b.Size(), "length %d", tt.length)
		assert.Zero(t, b.Size()%4)

		if tt.want == 0 {
			continue
		}
		got, err := b.Read(0, b.Size())
		require.NoError(t, err)
		assert.Equal(t, data, got[:tt.length])
		for _, pad := range got[tt.length:] {
			assert.Zero(t, pad, "padding must be zeroed")
		}
	}
}

func TestNewBuffer_UsageAndLabel(t *testing.T) {
	ctx := renderer.NewMemoryContext()

	b, err := NewBuffer(ctx, []byte{1, 2, 3, 4}, wgpu.BufferUsageUniform, WithLabel("camera"))
	require.NoError(t, err)

	assert.Equal(t, "camera", b.Label())
	assert.NotZero(t, b.Usage()&wgpu.BufferUsageCopyDst, "CopyDst is always set")
	assert.NotZero(t, b.Usage()&wgpu.BufferUsageUniform)
}

func TestNewBuffer_AllocationFailure(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	ctx.FailAllocations(1)

	b, err := NewBuffer(ctx, []byte{1}, wgpu.BufferUsageUniform)
	assert.ErrorIs(t, err, renderer.ErrAllocationFailure)
	assert.Nil(t, b)
}

func TestBuffer_Release(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	b, err := NewBuffer(ctx, []byte{1, 2, 3, 4}, wgpu.BufferUsageUniform)
	require.NoError(t, err)

	b.Release()
	b.Release()

	assert.True(t, b.Released())
	assert.Nil(t, b.Handle())
	assert.Zero(t, b.Size())
	assert.ErrorIs(t, b.Write(0, []byte{1}), renderer.ErrInvalidUsage)
	_, err = b.Read(0, 4)
	assert.ErrorIs(t, err, renderer.ErrInvalidUsage)
	assert.Len(t, ctx.Released(), 1)
}

type testVertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [3]float32
}

func TestVertexBuffer_Layout(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	vb, err := NewVertexBuffer(ctx, make([]testVertex, 3))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), vb.VertexCount())
	assert.Equal(t, uint64(108), vb.Size())
	assert.NotZero(t, vb.Usage()&wgpu.BufferUsageVertex)

	empty := vb.Layout()
	assert.Zero(t, empty.ArrayStride)
	assert.Empty(t, empty.Attributes)

	require.NoError(t, vb.AddAttributeVec3f())
	require.NoError(t, vb.AddAttributeVec3f())
	require.NoError(t, vb.AddAttributeVec3f())

	layout := vb.Layout()
	assert.Equal(t, uint64(36), layout.ArrayStride)
	require.Len(t, layout.Attributes, 3)
	for i, want := range []uint64{0, 12, 24} {
		assert.Equal(t, want, layout.Attributes[i].Offset)
		assert.Equal(t, uint32(i), layout.Attributes[i].ShaderLocation)
		assert.Equal(t, wgpu.VertexFormatFloat32x3, layout.Attributes[i].Format)
	}
}

func TestVertexBuffer_StrideIsSumOfSizes(t *testing.T) {
	tests := []struct {
		name    string
		formats []wgpu.VertexFormat
		offsets []uint64
		stride  uint64
	}{
		{
			name:    "vec2 vec3",
			formats: []wgpu.VertexFormat{wgpu.VertexFormatFloat32x2, wgpu.VertexFormatFloat32x3},
			offsets: []uint64{0, 8},
			stride:  20,
		},
		{
			name:    "mixed",
			formats: []wgpu.VertexFormat{wgpu.VertexFormatFloat32x3, wgpu.VertexFormatFloat32, wgpu.VertexFormatFloat32x4, wgpu.VertexFormatFloat32x2},
			offsets: []uint64{0, 12, 16, 32},
			stride:  40,
		},
		{
			name:    "single",
			formats: []wgpu.VertexFormat{wgpu.VertexFormatFloat32x2},
			offsets: []uint64{0},
			stride:  8,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := renderer.NewMemoryContext()
			vb, err := NewVertexBuffer(ctx, []float32{0})
			require.NoError(t, err)

			for _, f := range tt.formats {
				require.NoError(t, vb.AddAttribute(f))
			}
			layout := vb.Layout()
			assert.Equal(t, tt.stride, layout.ArrayStride)
			for i, a := range layout.Attributes {
				assert.Equal(t, tt.offsets[i], a.Offset)
				if i > 0 {
					assert.Greater(t, a.Offset, layout.Attributes[i-1].Offset)
				}
			}
		})
	}
}

func TestVertexBuffer_AddAttributeErrors(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	vb, err := NewVertexBuffer(ctx, []float32{0, 0})
	require.NoError(t, err)

	assert.ErrorIs(t, vb.AddAttribute(wgpu.VertexFormatUint8x2), renderer.ErrInvalidUsage)

	require.NoError(t, vb.AddAttributeVec2f())
	vb.Seal()
	assert.True(t, vb.Sealed())
	assert.ErrorIs(t, vb.AddAttributeVec3f(), renderer.ErrInvalidUsage)
	assert.Equal(t, uint64(8), vb.Layout().ArrayStride, "sealed layout is unchanged")
}

func TestIndexBuffer(t *testing.T) {
	ctx := renderer.NewMemoryContext()

	ib16, err := NewIndexBuffer16(ctx, []uint16{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, wgpu.IndexFormatUint16, ib16.Format())
	assert.Equal(t, uint32(3), ib16.Count())
	assert.Equal(t, uint64(8), ib16.Size())
	assert.NotZero(t, ib16.Usage()&wgpu.BufferUsageIndex)

	ib32, err := NewIndexBuffer32(ctx, []uint32{0, 1, 2, 2, 3, 0}, WithLabel("quad"))
	require.NoError(t, err)
	assert.Equal(t, wgpu.IndexFormatUint32, ib32.Format())
	assert.Equal(t, uint32(6), ib32.Count())
	assert.Equal(t, uint64(24), ib32.Size())
	assert.Equal(t, "quad", ib32.Label())
}
