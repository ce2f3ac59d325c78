package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/gogpu/naga"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key    string
	source string

	vertexEntryPoint   string
	fragmentEntryPoint string
	vertexInputs       []VertexInput
	bindings           []Binding
}

// Shader is a pre-processed WGSL render shader together with the layout information reflected
// from its source: the entry points, the vertex inputs of the vertex entry point, and every
// resource binding with its struct size.
type Shader interface {
	// Key returns the identifier the shader was loaded under.
	//
	// Returns:
	//   - string: the shader key
	Key() string

	// Source returns the pre-processed WGSL source.
	//
	// Returns:
	//   - string: the WGSL source with includes expanded
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// VertexInputs returns the @location inputs of the vertex entry point ordered by location.
	//
	// Returns:
	//   - []VertexInput: the vertex inputs
	VertexInputs() []VertexInput

	// Bindings returns every resource declaration ordered by group and binding.
	//
	// Returns:
	//   - []Binding: the resource bindings
	Bindings() []Binding

	// Validate compiles the source with naga.
	//
	// Returns:
	//   - error: an error wrapping renderer.ErrShaderCompileFailure if the source does not compile
	Validate() error
}

var _ Shader = &shader{}

// NewShader pre-processes source and reflects its layout.
//
// Parameters:
//   - key: the identifier for the shader, used as its label
//   - source: the raw WGSL source
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error wrapping renderer.ErrShaderCompileFailure if pre-processing or reflection fails
func NewShader(key, source string) (Shader, error) {
	processed, err := PreProcess(source)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w: %w", key, renderer.ErrShaderCompileFailure, err)
	}

	s := &shader{key: key, source: processed}
	cleaned := stripComments(processed)
	structs := parseStructs(cleaned)

	var params string
	var ok bool
	s.vertexEntryPoint, params, ok = entryPoint(cleaned, "@vertex")
	if !ok {
		return nil, fmt.Errorf("shader %q has no @vertex entry point: %w", key, renderer.ErrShaderCompileFailure)
	}
	s.fragmentEntryPoint, _, _ = entryPoint(cleaned, "@fragment")

	s.vertexInputs, err = parseVertexInputs(params, structs)
	if err != nil {
		return nil, fmt.Errorf("shader %q: %w: %w", key, renderer.ErrShaderCompileFailure, err)
	}
	s.bindings = parseBindings(cleaned, structLayouts(structs))

	return s, nil
}

// Load resolves id through r and parses the result with NewShader.
//
// Parameters:
//   - r: the resolver to read the source through
//   - id: the shader identifier
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the shader could not be resolved or parsed
func Load(r Resolver, id string) (Shader, error) {
	src, err := r.Resolve(id)
	if err != nil {
		return nil, err
	}
	return NewShader(id, string(src))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) VertexInputs() []VertexInput {
	return append([]VertexInput(nil), s.vertexInputs...)
}

func (s *shader) Bindings() []Binding {
	return append([]Binding(nil), s.bindings...)
}

func (s *shader) Validate() error {
	if _, err := naga.Compile(s.source); err != nil {
		return fmt.Errorf("shader %q: %w: %w", s.key, renderer.ErrShaderCompileFailure, err)
	}
	return nil
}
