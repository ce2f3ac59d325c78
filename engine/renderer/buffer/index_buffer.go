package buffer

import (
	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// indexBuffer is the unexported implementation of IndexBuffer.
type indexBuffer struct {
	Buffer

	format wgpu.IndexFormat
	count  uint32
}

// IndexBuffer is a Buffer of 16 or 32-bit vertex indices. It carries no attribute layout.
type IndexBuffer interface {
	Buffer

	// Format returns the index element format.
	//
	// Returns:
	//   - wgpu.IndexFormat: IndexFormatUint16 or IndexFormatUint32
	Format() wgpu.IndexFormat

	// Count returns the number of indices uploaded.
	Count() uint32
}

var _ IndexBuffer = &indexBuffer{}

// NewIndexBuffer16 uploads 16-bit indices into an Index|CopyDst buffer.
//
// Parameters:
//   - ctx: the rendering context to allocate from
//   - indices: the index data
//   - options: functional options for label and extra usage flags
//
// Returns:
//   - IndexBuffer: the created index buffer
//   - error: an error wrapping renderer.ErrAllocationFailure if the device cannot allocate it
func NewIndexBuffer16(ctx renderer.Context, indices []uint16, options ...BufferBuilderOption) (IndexBuffer, error) {
	return newIndexBuffer(ctx, common.SliceToBytes(indices), len(indices), wgpu.IndexFormatUint16, options)
}

// NewIndexBuffer32 uploads 32-bit indices into an Index|CopyDst buffer.
//
// Parameters:
//   - ctx: the rendering context to allocate from
//   - indices: the index data
//   - options: functional options for label and extra usage flags
//
// Returns:
//   - IndexBuffer: the created index buffer
//   - error: an error wrapping renderer.ErrAllocationFailure if the device cannot allocate it
func NewIndexBuffer32(ctx renderer.Context, indices []uint32, options ...BufferBuilderOption) (IndexBuffer, error) {
	return newIndexBuffer(ctx, common.SliceToBytes(indices), len(indices), wgpu.IndexFormatUint32, options)
}

func newIndexBuffer(ctx renderer.Context, data []byte, count int, format wgpu.IndexFormat, options []BufferBuilderOption) (IndexBuffer, error) {
	opts := newBufferOptions(wgpu.BufferUsageIndex, append([]BufferBuilderOption{WithLabel("Index Buffer")}, options...))
	b, err := newBuffer(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return &indexBuffer{
		Buffer: b,
		format: format,
		count:  uint32(count),
	}, nil
}

func (i *indexBuffer) Format() wgpu.IndexFormat {
	return i.format
}

func (i *indexBuffer) Count() uint32 {
	return i.count
}
