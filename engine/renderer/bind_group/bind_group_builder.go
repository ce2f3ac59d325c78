package bind_group

import "github.com/cogentcore/webgpu/wgpu"

// BindGroupBuilderOption is a functional option used to configure a BindGroup during construction.
type BindGroupBuilderOption func(*bindGroup)

// WithLabel sets the debug label for the bind group. Slot buffers are labeled after it.
// When not specified a unique label is generated.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - BindGroupBuilderOption: a function that sets the label
func WithLabel(label string) BindGroupBuilderOption {
	return func(g *bindGroup) {
		g.label = label
	}
}

// WithVisibility sets the shader stages every slot is visible to.
// When not specified, the default is vertex and fragment.
//
// Parameters:
//   - visibility: the shader stage mask
//
// Returns:
//   - BindGroupBuilderOption: a function that sets the visibility
func WithVisibility(visibility wgpu.ShaderStage) BindGroupBuilderOption {
	return func(g *bindGroup) {
		g.visibility = visibility
	}
}

// WithBinding declares a slot during construction, as if AddBinding were called afterwards.
//
// Parameters:
//   - slot: the binding index
//   - size: the slot size in bytes
//
// Returns:
//   - BindGroupBuilderOption: a function that declares the slot
func WithBinding(slot uint32, size uint64) BindGroupBuilderOption {
	return func(g *bindGroup) {
		g.declared = append(g.declared, declaredBinding{slot: slot, size: size})
	}
}
