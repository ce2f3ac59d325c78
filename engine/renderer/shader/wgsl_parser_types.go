package shader

import "github.com/cogentcore/webgpu/wgpu"

// VertexInput is one @location input of a vertex entry point.
type VertexInput struct {
	Name     string
	Location uint32
	Format   wgpu.VertexFormat
}

// Binding is one @group/@binding resource declaration.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	// AddressSpace is the var<> qualifier, e.g. "uniform". Empty for handle types.
	AddressSpace string
	Type         string
	// Size is the WGSL layout size of Type, or 0 if it could not be resolved.
	Size uint64
}

// typeLayout holds the byte size and alignment of a WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// parsedField is one struct member or entry point parameter.
type parsedField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

// parsedStruct is one struct declaration.
type parsedStruct struct {
	name   string
	fields []parsedField
}
