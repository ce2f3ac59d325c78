package buffer

import "github.com/cogentcore/webgpu/wgpu"

// bufferOptions holds the construction settings shared by Buffer, VertexBuffer, and IndexBuffer.
type bufferOptions struct {
	label string
	usage wgpu.BufferUsage
}

// BufferBuilderOption is a functional option used to configure a buffer during construction.
type BufferBuilderOption func(*bufferOptions)

func newBufferOptions(usage wgpu.BufferUsage, options []BufferBuilderOption) *bufferOptions {
	opts := &bufferOptions{
		label: "Buffer",
		usage: usage,
	}
	for _, opt := range options {
		opt(opts)
	}
	return opts
}

// WithLabel sets the debug label for the buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BufferBuilderOption: a function that sets the label
func WithLabel(label string) BufferBuilderOption {
	return func(o *bufferOptions) {
		o.label = label
	}
}

// WithUsage adds usage flags to the ones the constructor sets. BufferUsageCopySrc is the common
// addition, needed to read the contents back.
//
// Parameters:
//   - usage: the extra usage flags
//
// Returns:
//   - BufferBuilderOption: a function that adds the usage flags
func WithUsage(usage wgpu.BufferUsage) BufferBuilderOption {
	return func(o *bufferOptions) {
		o.usage |= usage
	}
}
