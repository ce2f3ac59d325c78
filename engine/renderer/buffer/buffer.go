package buffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// gpuBuffer is the unexported implementation of Buffer.
type gpuBuffer struct {
	mu  *sync.Mutex
	ctx renderer.Context

	// label is a debug label added for convenience.
	label string

	// handle is the GPU allocation, nil after Release.
	handle renderer.Buffer
}

// Buffer is a single GPU memory allocation whose size is the upload length rounded up to the
// next multiple of 4 bytes. The Context it was created from is referenced, not owned.
//
// VertexBuffer and IndexBuffer embed a Buffer and add their own layout metadata.
type Buffer interface {
	// Label returns the debug label for this buffer.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Handle returns the underlying context handle, used when binding the buffer into a pass or
	// a bind group.
	//
	// Returns:
	//   - renderer.Buffer: the handle, or nil once released
	Handle() renderer.Buffer

	// Size returns the aligned allocation size in bytes.
	//
	// Returns:
	//   - uint64: the size in bytes, or 0 once released
	Size() uint64

	// Usage returns the usage flags the allocation was created with.
	//
	// Returns:
	//   - wgpu.BufferUsage: the usage flags
	Usage() wgpu.BufferUsage

	// Write uploads data into the buffer at the given byte offset.
	//
	// Parameters:
	//   - offset: the destination byte offset, a multiple of 4
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: ErrInvalidUsage after Release or if the write overruns the buffer
	Write(offset uint64, data []byte) error

	// Read reads size bytes starting at offset back from the GPU.
	// The buffer must have been created with BufferUsageCopySrc.
	//
	// Parameters:
	//   - offset: the source byte offset
	//   - size: the number of bytes to read
	//
	// Returns:
	//   - []byte: the bytes read
	//   - error: ErrInvalidUsage after Release or if the read is not permitted
	Read(offset, size uint64) ([]byte, error)

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the GPU allocation. Calling Release more than once has no effect.
	Release()
}

var _ Buffer = &gpuBuffer{}

// NewBuffer allocates a buffer sized to data rounded up to the next multiple of 4 bytes and
// uploads data zero-padded to that size. BufferUsageCopyDst is always added to usage so the
// contents can be written through the queue.
//
// Parameters:
//   - ctx: the rendering context to allocate from
//   - data: the initial contents; its length determines the size
//   - usage: the usage flags for the allocation
//   - options: functional options for label and extra usage flags
//
// Returns:
//   - Buffer: the created buffer
//   - error: an error wrapping renderer.ErrAllocationFailure if the device cannot allocate it
func NewBuffer(ctx renderer.Context, data []byte, usage wgpu.BufferUsage, options ...BufferBuilderOption) (Buffer, error) {
	b, err := newBuffer(ctx, data, newBufferOptions(usage, options))
	if err != nil {
		return nil, err
	}
	return b, nil
}

func newBuffer(ctx renderer.Context, data []byte, opts *bufferOptions) (*gpuBuffer, error) {
	if ctx == nil {
		return nil, fmt.Errorf("buffer %q: nil context: %w", opts.label, renderer.ErrInvalidUsage)
	}

	size := common.AlignSize(uint64(len(data)))
	handle, err := ctx.CreateBuffer(opts.label, size, opts.usage|wgpu.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate buffer %q: %w", opts.label, err)
	}

	if size > 0 {
		if err := ctx.WriteBuffer(handle, 0, common.PadBytes(data, size)); err != nil {
			handle.Release()
			return nil, fmt.Errorf("failed to upload buffer %q: %w", opts.label, err)
		}
	}

	return &gpuBuffer{
		mu:     &sync.Mutex{},
		ctx:    ctx,
		label:  opts.label,
		handle: handle,
	}, nil
}

func (b *gpuBuffer) Label() string {
	return b.label
}

func (b *gpuBuffer) Handle() renderer.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle
}

func (b *gpuBuffer) Size() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == nil {
		return 0
	}
	return b.handle.Size()
}

func (b *gpuBuffer) Usage() wgpu.BufferUsage {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == nil {
		return 0
	}
	return b.handle.Usage()
}

func (b *gpuBuffer) Write(offset uint64, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == nil {
		return fmt.Errorf("write to released buffer %q: %w", b.label, renderer.ErrInvalidUsage)
	}
	return b.ctx.WriteBuffer(b.handle, offset, data)
}

func (b *gpuBuffer) Read(offset, size uint64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle == nil {
		return nil, fmt.Errorf("read from released buffer %q: %w", b.label, renderer.ErrInvalidUsage)
	}
	return b.ctx.ReadBuffer(b.handle, offset, size)
}

func (b *gpuBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handle == nil
}

func (b *gpuBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handle != nil {
		b.handle.Release()
		b.handle = nil
	}
}
