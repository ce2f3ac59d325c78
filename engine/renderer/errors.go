package renderer

import "errors"

// Errors returned by the renderer and the resource packages built on it.
// Callers should test for them with errors.Is since they are usually wrapped with context.
var (
	// ErrAllocationFailure is returned when the device cannot satisfy a buffer or texture request.
	ErrAllocationFailure = errors.New("gpu allocation failure")

	// ErrShaderCompileFailure is returned when a shader module fails to compile.
	ErrShaderCompileFailure = errors.New("shader compile failure")

	// ErrLayoutMismatch is returned when a shader's declared inputs or bindings do not match
	// the vertex or bind group layouts supplied to a pipeline.
	ErrLayoutMismatch = errors.New("pipeline layout mismatch")

	// ErrSurfaceUnavailable is returned when the next presentable surface image cannot be acquired.
	// It is transient; the frame should be skipped and acquisition retried on the next tick.
	ErrSurfaceUnavailable = errors.New("surface unavailable")

	// ErrInvalidUsage is returned for programmer errors such as drawing without a pipeline,
	// recording outside an open render pass, or ending a pass twice.
	ErrInvalidUsage = errors.New("invalid usage")

	// ErrUnknownSlot is returned when writing to a bind group slot that was never declared.
	ErrUnknownSlot = errors.New("unknown bind group slot")
)
