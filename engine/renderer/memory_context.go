package renderer

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceKind names the kind of handle in a ReleaseRecord.
type ResourceKind string

const (
	ResourceBuffer    ResourceKind = "buffer"
	ResourceBindGroup ResourceKind = "bind_group"
	ResourcePipeline  ResourceKind = "pipeline"
)

// DrawRecord is one draw recorded into a MemoryContext frame.
type DrawRecord struct {
	// Frame is the 1-based index of the frame the draw was recorded into.
	Frame         int
	Pipeline      string
	VertexBuffers map[uint32]string
	BindGroups    map[uint32]string
	IndexBuffer   string
	Indexed       bool
	Count         uint32
	Instances     uint32
}

// WriteRecord is one queue write. Frame is 0 for writes made while no frame was open.
type WriteRecord struct {
	Frame  int
	Label  string
	Offset uint64
	Size   uint64
}

// ReleaseRecord is one released handle, in release order.
type ReleaseRecord struct {
	Kind  ResourceKind
	Label string
}

// MemoryStats is a snapshot of a MemoryContext's counters.
type MemoryStats struct {
	FramesBegun     int
	FramesSubmitted int
	FramesPresented int
	FailedAcquires  int
	LiveBuffers     int
	LiveBindGroups  int
	LivePipelines   int
}

type memoryBuffer struct {
	ctx      *MemoryContext
	label    string
	usage    wgpu.BufferUsage
	data     []byte
	released bool
}

func (b *memoryBuffer) Label() string {
	return b.label
}

func (b *memoryBuffer) Size() uint64 {
	return uint64(len(b.data))
}

func (b *memoryBuffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *memoryBuffer) Release() {
	b.ctx.mu.Lock()
	defer b.ctx.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.ctx.liveBuffers--
	b.ctx.released = append(b.ctx.released, ReleaseRecord{Kind: ResourceBuffer, Label: b.label})
}

type memoryBindGroup struct {
	ctx      *MemoryContext
	label    string
	entries  []BindGroupEntry
	released bool
}

func (g *memoryBindGroup) Label() string {
	return g.label
}

func (g *memoryBindGroup) Release() {
	g.ctx.mu.Lock()
	defer g.ctx.mu.Unlock()
	if g.released {
		return
	}
	g.released = true
	g.ctx.liveBindGroups--
	g.ctx.released = append(g.ctx.released, ReleaseRecord{Kind: ResourceBindGroup, Label: g.label})
}

type memoryPipeline struct {
	ctx      *MemoryContext
	desc     RenderPipelineDescriptor
	released bool
}

func (p *memoryPipeline) Label() string {
	return p.desc.Label
}

func (p *memoryPipeline) Release() {
	p.ctx.mu.Lock()
	defer p.ctx.mu.Unlock()
	if p.released {
		return
	}
	p.released = true
	p.ctx.livePipelines--
	p.ctx.released = append(p.ctx.released, ReleaseRecord{Kind: ResourcePipeline, Label: p.desc.Label})
}

type memoryFrame struct {
	ctx         *MemoryContext
	index       int
	pipeline    string
	vertex      map[uint32]string
	groups      map[uint32]string
	indexBuffer string
	submitted   bool
	presented   bool
}

// MemoryContext is a headless Context that keeps buffer contents in host memory and records
// every frame, draw, write, and release. It never touches a GPU, so it can drive the frame
// loop in tests and tooling. Frame acquisition and submission can be made to fail on demand.
type MemoryContext struct {
	mu   *sync.Mutex
	opts *contextOptions

	width, height int

	frame       *memoryFrame
	failFrames  int
	failSubmits int
	failAllocs  int

	stats          MemoryStats
	liveBuffers    int
	liveBindGroups int
	livePipelines  int

	draws    []DrawRecord
	writes   []WriteRecord
	released []ReleaseRecord
}

var _ Context = &MemoryContext{}

// NewMemoryContext creates a headless context with a 640x480 surface.
//
// Parameters:
//   - options: functional options; MSAA and surface format are honored, the rest are stored
//
// Returns:
//   - *MemoryContext: the created context
func NewMemoryContext(options ...ContextBuilderOption) *MemoryContext {
	opts := defaultContextOptions()
	for _, opt := range options {
		opt(opts)
	}
	opts.surfaceFormat = common.Coalesce(opts.surfaceFormat, wgpu.TextureFormatBGRA8Unorm)
	return &MemoryContext{
		mu:     &sync.Mutex{},
		opts:   opts,
		width:  640,
		height: 480,
	}
}

// FailFrames makes the next n calls to BeginFrame fail with ErrSurfaceUnavailable.
func (c *MemoryContext) FailFrames(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failFrames = n
}

// FailSubmits makes the next n calls to Frame.Submit fail.
func (c *MemoryContext) FailSubmits(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failSubmits = n
}

// FailAllocations makes the next n calls to CreateBuffer fail with ErrAllocationFailure.
func (c *MemoryContext) FailAllocations(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failAllocs = n
}

// Stats returns a snapshot of the context's counters.
func (c *MemoryContext) Stats() MemoryStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.LiveBuffers = c.liveBuffers
	s.LiveBindGroups = c.liveBindGroups
	s.LivePipelines = c.livePipelines
	return s
}

// Draws returns a copy of every recorded draw.
func (c *MemoryContext) Draws() []DrawRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]DrawRecord(nil), c.draws...)
}

// Writes returns a copy of every recorded queue write.
func (c *MemoryContext) Writes() []WriteRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]WriteRecord(nil), c.writes...)
}

// Released returns the release log in order.
func (c *MemoryContext) Released() []ReleaseRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ReleaseRecord(nil), c.released...)
}

// PipelineDescriptor returns the descriptor a pipeline handle was compiled from.
//
// Parameters:
//   - p: a pipeline created by this context
//
// Returns:
//   - RenderPipelineDescriptor: the recorded descriptor
//   - bool: false if p was not created by a MemoryContext
func (c *MemoryContext) PipelineDescriptor(p RenderPipeline) (RenderPipelineDescriptor, bool) {
	mp, ok := p.(*memoryPipeline)
	if !ok {
		return RenderPipelineDescriptor{}, false
	}
	return mp.desc, true
}

func (c *MemoryContext) Configure(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
}

func (c *MemoryContext) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *MemoryContext) SurfaceFormat() wgpu.TextureFormat {
	return c.opts.surfaceFormat
}

func (c *MemoryContext) SampleCount() MSAASampleCount {
	return c.opts.sampleCount
}

func (c *MemoryContext) CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (Buffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failAllocs > 0 {
		c.failAllocs--
		return nil, fmt.Errorf("failed to create buffer %q (%d bytes): %w", label, size, ErrAllocationFailure)
	}
	if size%common.BufferAlignment != 0 {
		return nil, fmt.Errorf("buffer %q size %d is not 4-byte aligned: %w", label, size, ErrInvalidUsage)
	}
	c.liveBuffers++
	return &memoryBuffer{ctx: c, label: label, usage: usage, data: make([]byte, size)}, nil
}

func (c *MemoryContext) WriteBuffer(b Buffer, offset uint64, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	mb, err := c.liveBuffer(b)
	if err != nil {
		return err
	}
	if err := checkWriteRange(mb.label, uint64(len(mb.data)), offset, uint64(len(data))); err != nil {
		return err
	}
	copy(mb.data[offset:], data)

	frame := 0
	if c.frame != nil {
		frame = c.frame.index
	}
	c.writes = append(c.writes, WriteRecord{Frame: frame, Label: mb.label, Offset: offset, Size: uint64(len(data))})
	return nil
}

func (c *MemoryContext) ReadBuffer(b Buffer, offset, size uint64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mb, err := c.liveBuffer(b)
	if err != nil {
		return nil, err
	}
	if err := checkReadRange(mb.label, uint64(len(mb.data)), offset, size); err != nil {
		return nil, err
	}
	if mb.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("buffer %q was not created with CopySrc usage: %w", mb.label, ErrInvalidUsage)
	}
	out := make([]byte, size)
	copy(out, mb.data[offset:offset+size])
	return out, nil
}

func (c *MemoryContext) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range desc.Entries {
		if _, err := c.liveBuffer(e.Buffer); err != nil {
			return nil, fmt.Errorf("binding %d: %w", e.Binding, err)
		}
	}
	c.liveBindGroups++
	return &memoryBindGroup{
		ctx:     c,
		label:   desc.Label,
		entries: append([]BindGroupEntry(nil), desc.Entries...),
	}, nil
}

func (c *MemoryContext) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if desc.Source == "" {
		return nil, fmt.Errorf("pipeline %q has no shader source: %w", desc.Label, ErrShaderCompileFailure)
	}
	if desc.SampleCount != uint32(c.opts.sampleCount) {
		return nil, fmt.Errorf("pipeline sample count %d does not match attachments (%d): %w", desc.SampleCount, c.opts.sampleCount, ErrLayoutMismatch)
	}
	c.livePipelines++
	return &memoryPipeline{ctx: c, desc: desc}, nil
}

func (c *MemoryContext) BeginFrame() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frame != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented: %w", ErrInvalidUsage)
	}
	if c.failFrames > 0 || c.width <= 0 || c.height <= 0 {
		if c.failFrames > 0 {
			c.failFrames--
		}
		c.stats.FailedAcquires++
		return nil, fmt.Errorf("failed to acquire surface texture: %w", ErrSurfaceUnavailable)
	}

	c.stats.FramesBegun++
	c.frame = &memoryFrame{
		ctx:    c,
		index:  c.stats.FramesBegun,
		vertex: make(map[uint32]string),
		groups: make(map[uint32]string),
	}
	return c.frame, nil
}

// Release drops every recorded frame. Handles that are still live stay counted.
func (c *MemoryContext) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = nil
}

func (c *MemoryContext) liveBuffer(b Buffer) (*memoryBuffer, error) {
	mb, ok := b.(*memoryBuffer)
	if !ok || mb == nil {
		return nil, fmt.Errorf("buffer %T was not created by this context: %w", b, ErrInvalidUsage)
	}
	if mb.released {
		return nil, fmt.Errorf("buffer %q used after release: %w", mb.label, ErrInvalidUsage)
	}
	return mb, nil
}

func (f *memoryFrame) SetPipeline(p RenderPipeline) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.pipeline = p.Label()
}

func (f *memoryFrame) SetVertexBuffer(slot uint32, b Buffer) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.vertex[slot] = b.Label()
}

func (f *memoryFrame) SetIndexBuffer(b Buffer, _ wgpu.IndexFormat) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.indexBuffer = b.Label()
}

func (f *memoryFrame) SetBindGroup(index uint32, g BindGroup) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()
	f.groups[index] = g.Label()
}

func (f *memoryFrame) Draw(vertexCount, instanceCount uint32) {
	f.record(false, vertexCount, instanceCount)
}

func (f *memoryFrame) DrawIndexed(indexCount, instanceCount uint32) {
	f.record(true, indexCount, instanceCount)
}

func (f *memoryFrame) record(indexed bool, count, instances uint32) {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	vertex := make(map[uint32]string, len(f.vertex))
	for k, v := range f.vertex {
		vertex[k] = v
	}
	groups := make(map[uint32]string, len(f.groups))
	for k, v := range f.groups {
		groups[k] = v
	}
	rec := DrawRecord{
		Frame:         f.index,
		Pipeline:      f.pipeline,
		VertexBuffers: vertex,
		BindGroups:    groups,
		Indexed:       indexed,
		Count:         count,
		Instances:     instances,
	}
	if indexed {
		rec.IndexBuffer = f.indexBuffer
	}
	f.ctx.draws = append(f.ctx.draws, rec)
}

func (f *memoryFrame) Submit() error {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	if f.submitted {
		return fmt.Errorf("frame already submitted: %w", ErrInvalidUsage)
	}
	f.submitted = true
	if f.ctx.failSubmits > 0 {
		f.ctx.failSubmits--
		f.presented = true
		if f.ctx.frame == f {
			f.ctx.frame = nil
		}
		return fmt.Errorf("failed to finish command encoder for frame %d", f.index)
	}
	f.ctx.stats.FramesSubmitted++
	return nil
}

func (f *memoryFrame) Present() {
	f.ctx.mu.Lock()
	defer f.ctx.mu.Unlock()

	if f.presented {
		return
	}
	f.presented = true
	f.ctx.stats.FramesPresented++
	if f.ctx.frame == f {
		f.ctx.frame = nil
	}
}
