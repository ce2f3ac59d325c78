package buffer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// vertexBuffer is the unexported implementation of VertexBuffer.
type vertexBuffer struct {
	Buffer

	mu          *sync.Mutex
	attributes  []wgpu.VertexAttribute
	stride      uint64
	vertexCount uint32
	// sealed is set once a pipeline has consumed the layout.
	sealed bool
}

// VertexBuffer is a Buffer of per-vertex data together with the attribute layout describing it.
// Attributes are appended in shader-location order; each new attribute starts at the current
// stride and advances it by the attribute's size.
//
// The layout is append-only until a pipeline is built from it, after which it is sealed and
// AddAttribute fails.
type VertexBuffer interface {
	Buffer

	// AddAttribute appends an attribute of the given format at the current stride.
	// Its shader location is the number of attributes added before it.
	//
	// Parameters:
	//   - format: one of Float32, Float32x2, Float32x3, or Float32x4
	//
	// Returns:
	//   - error: ErrInvalidUsage for an unsupported format or a sealed layout
	AddAttribute(format wgpu.VertexFormat) error

	// AddAttributeVec2f appends a two-float attribute (8 bytes).
	AddAttributeVec2f() error

	// AddAttributeVec3f appends a three-float attribute (12 bytes).
	AddAttributeVec3f() error

	// Layout returns a copy of the attribute layout and the stride.
	// With no attributes the stride is zero.
	//
	// Returns:
	//   - renderer.VertexLayout: the ordered attributes and stride
	Layout() renderer.VertexLayout

	// VertexCount returns the number of vertices uploaded.
	VertexCount() uint32

	// Seal freezes the attribute layout. Pipeline construction calls it.
	Seal()

	// Sealed reports whether the layout has been frozen.
	Sealed() bool
}

var _ VertexBuffer = &vertexBuffer{}

// NewVertexBuffer uploads vertices into a Vertex|CopyDst buffer. The layout starts empty; the
// caller describes each field of T with AddAttribute in declaration order.
//
// Parameters:
//   - ctx: the rendering context to allocate from
//   - vertices: the vertex data; T must be a plain struct of float32 fields
//   - options: functional options for label and extra usage flags
//
// Returns:
//   - VertexBuffer: the created vertex buffer
//   - error: an error wrapping renderer.ErrAllocationFailure if the device cannot allocate it
func NewVertexBuffer[T any](ctx renderer.Context, vertices []T, options ...BufferBuilderOption) (VertexBuffer, error) {
	opts := newBufferOptions(wgpu.BufferUsageVertex, append([]BufferBuilderOption{WithLabel("Vertex Buffer")}, options...))
	b, err := newBuffer(ctx, common.SliceToBytes(vertices), opts)
	if err != nil {
		return nil, err
	}
	return &vertexBuffer{
		Buffer:      b,
		mu:          &sync.Mutex{},
		vertexCount: uint32(len(vertices)),
	}, nil
}

// VertexFormatSize returns the size in bytes of a supported vertex format.
//
// Parameters:
//   - format: the vertex format
//
// Returns:
//   - uint64: the size in bytes
//   - bool: false if the format is not supported
func VertexFormatSize(format wgpu.VertexFormat) (uint64, bool) {
	switch format {
	case wgpu.VertexFormatFloat32:
		return 4, true
	case wgpu.VertexFormatFloat32x2:
		return 8, true
	case wgpu.VertexFormatFloat32x3:
		return 12, true
	case wgpu.VertexFormatFloat32x4:
		return 16, true
	}
	return 0, false
}

func (v *vertexBuffer) AddAttribute(format wgpu.VertexFormat) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sealed {
		return fmt.Errorf("vertex buffer %q layout is sealed by a pipeline: %w", v.Label(), renderer.ErrInvalidUsage)
	}
	size, ok := VertexFormatSize(format)
	if !ok {
		return fmt.Errorf("unsupported vertex format %v: %w", format, renderer.ErrInvalidUsage)
	}

	v.attributes = append(v.attributes, wgpu.VertexAttribute{
		Format:         format,
		Offset:         v.stride,
		ShaderLocation: uint32(len(v.attributes)),
	})
	v.stride += size
	return nil
}

func (v *vertexBuffer) AddAttributeVec2f() error {
	return v.AddAttribute(wgpu.VertexFormatFloat32x2)
}

func (v *vertexBuffer) AddAttributeVec3f() error {
	return v.AddAttribute(wgpu.VertexFormatFloat32x3)
}

func (v *vertexBuffer) Layout() renderer.VertexLayout {
	v.mu.Lock()
	defer v.mu.Unlock()
	return renderer.VertexLayout{
		ArrayStride: v.stride,
		Attributes:  append([]wgpu.VertexAttribute(nil), v.attributes...),
	}
}

func (v *vertexBuffer) VertexCount() uint32 {
	return v.vertexCount
}

func (v *vertexBuffer) Seal() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sealed = true
}

func (v *vertexBuffer) Sealed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sealed
}
