package renderer

import "github.com/cogentcore/webgpu/wgpu"

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; other values are rejected by the context.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1). This is the default.
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing.
	MSAA4x MSAASampleCount = 4
)

// Buffer is an opaque handle to one GPU memory allocation owned by a Context.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the allocated size in bytes.
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	Usage() wgpu.BufferUsage

	// Release frees the GPU allocation. Further use of the handle is invalid.
	Release()
}

// BindGroup is an opaque handle to a compiled binding set and the layout it was built from.
type BindGroup interface {
	// Label returns the debug label the bind group was created with.
	Label() string

	// Release frees the compiled binding set and its layout.
	Release()
}

// RenderPipeline is an opaque handle to a compiled render pipeline.
type RenderPipeline interface {
	// Label returns the debug label the pipeline was created with.
	Label() string

	// Release frees the compiled pipeline together with its shader module and layouts.
	Release()
}

// VertexLayout describes one vertex buffer slot: the per-vertex stride and the ordered attributes.
type VertexLayout struct {
	ArrayStride uint64
	Attributes  []wgpu.VertexAttribute
}

// BindGroupLayoutEntry describes one uniform buffer binding of a bind group layout.
type BindGroupLayoutEntry struct {
	Binding    uint32
	Visibility wgpu.ShaderStage
	// Size is used as the minimum binding size of the layout entry.
	Size uint64
}

// BindGroupEntry binds a Buffer to a layout entry.
type BindGroupEntry struct {
	BindGroupLayoutEntry
	Buffer Buffer
}

// BindGroupDescriptor describes a compiled binding set. The layout is derived from the entries.
type BindGroupDescriptor struct {
	Label   string
	Entries []BindGroupEntry
}

// RenderPipelineDescriptor carries everything a Context needs to compile a render pipeline.
// Vertex and bind group layouts are copies; the pipeline does not reference the resources
// they were taken from.
type RenderPipelineDescriptor struct {
	Label              string
	Source             string
	VertexEntryPoint   string
	FragmentEntryPoint string

	VertexLayouts    []VertexLayout
	BindGroupLayouts [][]BindGroupLayoutEntry

	Topology          wgpu.PrimitiveTopology
	FrontFace         wgpu.FrontFace
	CullMode          wgpu.CullMode
	DepthTestEnabled  bool
	DepthWriteEnabled bool
	WriteMask         wgpu.ColorWriteMask
	Blend             *wgpu.BlendState
	SampleCount       uint32
}

// Frame is one acquired surface image together with the command encoder and the render pass
// encoder recording into it. A Frame is produced by Context.BeginFrame and is finished by
// Submit followed by Present.
type Frame interface {
	SetPipeline(p RenderPipeline)
	SetVertexBuffer(slot uint32, b Buffer)
	SetIndexBuffer(b Buffer, format wgpu.IndexFormat)
	SetBindGroup(index uint32, g BindGroup)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)

	// Submit closes the pass encoder, finishes the command buffer, and submits it to the queue.
	// On failure the frame's GPU objects are released and Present becomes a no-op.
	//
	// Returns:
	//   - error: an error if the command buffer could not be finished
	Submit() error

	// Present presents the acquired surface image and releases it. This may block until
	// the display is ready to accept the image.
	Present()
}

// Context is the explicit device, queue, and surface value passed to every constructor that
// needs GPU access. It is referenced by resources, never owned by them.
type Context interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: a debug label for the buffer
	//   - size: the size in bytes, which must be a multiple of 4
	//   - usage: the buffer usage flags
	//
	// Returns:
	//   - Buffer: the created buffer handle
	//   - error: an error wrapping ErrAllocationFailure if the device cannot satisfy the request
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error)

	// WriteBuffer uploads data into b at the given byte offset through the queue.
	//
	// Parameters:
	//   - b: the destination buffer
	//   - offset: the destination byte offset
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: an error if the write is out of range or rejected by the device
	WriteBuffer(b Buffer, offset uint64, data []byte) error

	// ReadBuffer copies size bytes starting at offset out of b and returns them.
	// The buffer must have been created with BufferUsageCopySrc.
	//
	// Parameters:
	//   - b: the source buffer
	//   - offset: the source byte offset
	//   - size: the number of bytes to read
	//
	// Returns:
	//   - []byte: the read bytes
	//   - error: an error if the read could not be completed
	ReadBuffer(b Buffer, offset, size uint64) ([]byte, error)

	// CreateBindGroup compiles a binding set along with a layout derived from its entries.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroup: the compiled bind group handle
	//   - error: an error if the layout or bind group could not be created
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// CreateRenderPipeline compiles a render pipeline.
	//
	// Parameters:
	//   - desc: the pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the compiled pipeline handle
	//   - error: an error if the shader module, layouts, or pipeline could not be created
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// BeginFrame acquires the next surface image and opens a command encoder and a render pass
	// that clears color and depth.
	//
	// Returns:
	//   - Frame: the open frame
	//   - error: an error wrapping ErrSurfaceUnavailable if no image could be acquired
	BeginFrame() (Frame, error)

	// Configure (re)configures the surface and its depth and MSAA attachments for a new size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	Configure(width, height int)

	// Size returns the currently configured surface size in pixels.
	Size() (width, height int)

	// SurfaceFormat returns the color format of the surface images.
	SurfaceFormat() wgpu.TextureFormat

	// SampleCount returns the MSAA sample count the render pass attachments use.
	// Pipelines must be built with the same count.
	SampleCount() MSAASampleCount

	// Release releases the device, surface, and all attachments owned by the context.
	Release()
}
