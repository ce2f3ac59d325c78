package pipeline

import (
	"fmt"
	"log"
	"os"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/buffer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	// label is a debug label, defaulting to the shader identifier.
	label string

	// resolver reads the shader source when no inline source is given.
	resolver shader.Resolver
	// source is inline WGSL that replaces resolution through the resolver.
	source string
	// validate runs the source through naga before the context compiles it.
	validate bool

	vertexEntryPoint   string
	fragmentEntryPoint string

	// The following properties configure the fixed-function state and are set with the builder options.

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState

	// The following are populated during construction.

	shader       shader.Shader
	vertexLayout *renderer.VertexLayout
	bindLayout   []renderer.BindGroupLayoutEntry
	sampleCount  uint32
	handle       renderer.RenderPipeline
}

// Pipeline is an immutable compiled render pipeline. Construction checks that the shader's
// vertex inputs and resource bindings match the supplied VertexBuffer and BindGroup layouts,
// and the layouts are copied so later changes to those resources do not affect it.
type Pipeline interface {
	// Label returns the debug label for this pipeline.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Handle returns the compiled pipeline.
	//
	// Returns:
	//   - renderer.RenderPipeline: the compiled pipeline, or nil once released
	Handle() renderer.RenderPipeline

	// Shader returns the parsed shader the pipeline was built from.
	//
	// Returns:
	//   - shader.Shader: the shader
	Shader() shader.Shader

	// VertexLayout returns the copied vertex buffer layout for slot 0.
	//
	// Returns:
	//   - renderer.VertexLayout: the layout
	//   - bool: false if the pipeline consumes no vertex buffer
	VertexLayout() (renderer.VertexLayout, bool)

	// BindGroupLayout returns the copied layout of bind group 0.
	//
	// Returns:
	//   - []renderer.BindGroupLayoutEntry: the layout entries, nil if the pipeline uses no bind group
	BindGroupLayout() []renderer.BindGroupLayoutEntry

	// VertexBufferCount returns the number of vertex buffer slots a draw must have bound.
	VertexBufferCount() int

	// BindGroupCount returns the number of bind group indices a draw must have bound.
	BindGroupCount() int

	// SampleCount returns the MSAA sample count the pipeline was compiled for.
	SampleCount() uint32

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	DepthWriteEnabled() bool

	// BlendEnabled returns whether alpha blending is enabled for this pipeline.
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	WriteMask() wgpu.ColorWriteMask

	// Release releases the compiled pipeline. Calling Release more than once has no effect.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline resolves, pre-processes, and validates the shader identified by shaderID, checks
// its layout against vb and bg, and compiles a render pipeline with the configured
// fixed-function state. vb's layout is sealed on success.
//
// Failures are logged and returned; no other pipeline is affected.
//
// Parameters:
//   - ctx: the rendering context to compile on
//   - shaderID: the shader identifier passed to the resolver
//   - vb: the vertex buffer bound at slot 0, or nil if the shader takes no vertex inputs
//   - bg: the bind group bound at index 0, or nil if the shader declares no bindings
//   - sampleCount: the MSAA sample count, which must match the context's
//   - opts: functional options for the resolver, entry points, and fixed-function state
//
// Returns:
//   - Pipeline: the compiled pipeline
//   - error: an error wrapping ErrShaderCompileFailure or ErrLayoutMismatch
func NewPipeline(ctx renderer.Context, shaderID string, vb buffer.VertexBuffer, bg bind_group.BindGroup, sampleCount uint32, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		label:             shaderID,
		resolver:          shader.NewFSResolver(os.DirFS(".")),
		validate:          true,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
		sampleCount: sampleCount,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.build(ctx, shaderID, vb, bg); err != nil {
		log.Printf("[Pipeline] failed to build %q: %v", p.label, err)
		return nil, err
	}
	if vb != nil {
		vb.Seal()
	}
	return p, nil
}

func (p *pipeline) build(ctx renderer.Context, shaderID string, vb buffer.VertexBuffer, bg bind_group.BindGroup) error {
	if ctx == nil {
		return fmt.Errorf("nil context: %w", renderer.ErrInvalidUsage)
	}

	var err error
	if p.source != "" {
		p.shader, err = shader.NewShader(shaderID, p.source)
	} else {
		p.shader, err = shader.Load(p.resolver, shaderID)
	}
	if err != nil {
		return err
	}
	if p.validate {
		if err := p.shader.Validate(); err != nil {
			return err
		}
	}

	if vb != nil {
		l := vb.Layout()
		p.vertexLayout = &l
	}
	if bg != nil {
		p.bindLayout = bg.Layout()
	}
	if err := p.matchLayout(vb != nil, bg != nil); err != nil {
		return err
	}
	if p.sampleCount != uint32(ctx.SampleCount()) {
		return fmt.Errorf("pipeline sample count %d does not match the render pass (%d): %w", p.sampleCount, ctx.SampleCount(), renderer.ErrLayoutMismatch)
	}

	desc := renderer.RenderPipelineDescriptor{
		Label:              p.label,
		Source:             p.shader.Source(),
		VertexEntryPoint:   p.shader.VertexEntryPoint(),
		FragmentEntryPoint: p.shader.FragmentEntryPoint(),
		Topology:           p.topology,
		FrontFace:          p.frontFace,
		CullMode:           p.cullMode,
		DepthTestEnabled:   p.depthTestEnabled,
		DepthWriteEnabled:  p.depthWriteEnabled,
		WriteMask:          p.writeMask,
		SampleCount:        p.sampleCount,
	}
	if p.vertexEntryPoint != "" {
		desc.VertexEntryPoint = p.vertexEntryPoint
	}
	if p.fragmentEntryPoint != "" {
		desc.FragmentEntryPoint = p.fragmentEntryPoint
	}
	if desc.FragmentEntryPoint == "" {
		return fmt.Errorf("shader %q has no @fragment entry point: %w", shaderID, renderer.ErrShaderCompileFailure)
	}
	if p.blendEnabled {
		desc.Blend = p.blendState
	}
	if p.vertexLayout != nil {
		desc.VertexLayouts = []renderer.VertexLayout{*p.vertexLayout}
	}
	if p.bindLayout != nil {
		desc.BindGroupLayouts = [][]renderer.BindGroupLayoutEntry{p.bindLayout}
	}

	p.handle, err = ctx.CreateRenderPipeline(desc)
	return err
}

// matchLayout checks the shader's reflected inputs and bindings against the copied layouts.
func (p *pipeline) matchLayout(hasVertexBuffer, hasBindGroup bool) error {
	inputs := p.shader.VertexInputs()
	if len(inputs) > 0 && !hasVertexBuffer {
		return fmt.Errorf("shader %q takes %d vertex inputs but no vertex buffer was given: %w", p.shader.Key(), len(inputs), renderer.ErrLayoutMismatch)
	}
	for _, in := range inputs {
		attr, ok := findAttribute(p.vertexLayout, in.Location)
		if !ok {
			return fmt.Errorf("vertex input %q at location %d has no matching attribute: %w", in.Name, in.Location, renderer.ErrLayoutMismatch)
		}
		if attr.Format != in.Format {
			return fmt.Errorf("vertex input %q at location %d expects %v, buffer provides %v: %w", in.Name, in.Location, in.Format, attr.Format, renderer.ErrLayoutMismatch)
		}
	}

	bindings := p.shader.Bindings()
	if len(bindings) > 0 && !hasBindGroup {
		return fmt.Errorf("shader %q declares %d bindings but no bind group was given: %w", p.shader.Key(), len(bindings), renderer.ErrLayoutMismatch)
	}
	declared := make(map[uint32]bool, len(bindings))
	for _, b := range bindings {
		if b.Group != 0 {
			return fmt.Errorf("binding %q uses group %d, only group 0 is supported: %w", b.Name, b.Group, renderer.ErrLayoutMismatch)
		}
		if b.AddressSpace != "uniform" {
			return fmt.Errorf("binding %q is not a uniform buffer: %w", b.Name, renderer.ErrLayoutMismatch)
		}
		entry, ok := findEntry(p.bindLayout, b.Binding)
		if !ok {
			return fmt.Errorf("binding %q at slot %d is missing from the bind group: %w", b.Name, b.Binding, renderer.ErrLayoutMismatch)
		}
		if entry.Size < b.Size {
			return fmt.Errorf("binding %q needs %d bytes, slot %d has %d: %w", b.Name, b.Size, b.Binding, entry.Size, renderer.ErrLayoutMismatch)
		}
		declared[b.Binding] = true
	}
	for _, e := range p.bindLayout {
		if !declared[e.Binding] {
			return fmt.Errorf("bind group slot %d is not declared by shader %q: %w", e.Binding, p.shader.Key(), renderer.ErrLayoutMismatch)
		}
	}
	return nil
}

func findAttribute(l *renderer.VertexLayout, location uint32) (wgpu.VertexAttribute, bool) {
	if l == nil {
		return wgpu.VertexAttribute{}, false
	}
	for _, a := range l.Attributes {
		if a.ShaderLocation == location {
			return a, true
		}
	}
	return wgpu.VertexAttribute{}, false
}

func findEntry(entries []renderer.BindGroupLayoutEntry, binding uint32) (renderer.BindGroupLayoutEntry, bool) {
	for _, e := range entries {
		if e.Binding == binding {
			return e, true
		}
	}
	return renderer.BindGroupLayoutEntry{}, false
}

func (p *pipeline) Label() string {
	return p.label
}

func (p *pipeline) Handle() renderer.RenderPipeline {
	return p.handle
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) VertexLayout() (renderer.VertexLayout, bool) {
	if p.vertexLayout == nil {
		return renderer.VertexLayout{}, false
	}
	return *p.vertexLayout, true
}

func (p *pipeline) BindGroupLayout() []renderer.BindGroupLayoutEntry {
	return append([]renderer.BindGroupLayoutEntry(nil), p.bindLayout...)
}

func (p *pipeline) VertexBufferCount() int {
	if p.vertexLayout == nil {
		return 0
	}
	return 1
}

func (p *pipeline) BindGroupCount() int {
	if p.bindLayout == nil {
		return 0
	}
	return 1
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) Release() {
	if p.handle != nil {
		p.handle.Release()
		p.handle = nil
	}
}
