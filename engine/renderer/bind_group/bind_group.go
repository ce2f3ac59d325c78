package bind_group

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/mellohi/common"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/buffer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/uuid"
)

// binding is one declared slot: its aligned size and the uniform buffer backing it.
type binding struct {
	size   uint64
	buffer buffer.Buffer
}

// bindGroup is the unexported implementation of BindGroup.
type bindGroup struct {
	mu  *sync.Mutex
	ctx renderer.Context

	// label is a debug label added for convenience.
	label string
	// visibility is the shader stage mask applied to every slot.
	visibility wgpu.ShaderStage
	// declared holds the slots requested through WithBinding, applied once during construction.
	declared []declaredBinding

	// slots holds the backing buffers keyed by binding index.
	slots map[uint32]*binding

	// handle is the compiled binding set for the current slot set, nil before the first slot is
	// declared and after Release.
	handle   renderer.BindGroup
	released bool
}

type declaredBinding struct {
	slot uint32
	size uint64
}

// BindGroup is an ordered set of uniform buffer slots and the compiled binding set built from
// them. Every slot is backed by its own Uniform|CopyDst|CopySrc buffer.
//
// Declaring a slot rebuilds the compiled binding set from the full slot set. Writing to a slot
// only uploads bytes and never rebuilds.
//
// Usage pattern:
//  1. Create a BindGroup and declare slots with AddBinding or WithBinding
//  2. Build a Pipeline from the BindGroup's Layout
//  3. Write per-frame data with Write or WriteAll
//  4. Bind it into a RenderPass with SetBindGroup
type BindGroup interface {
	// Label returns the debug label for this bind group.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// AddBinding declares a slot backed by a new uniform buffer of the given size rounded up to
	// 4 bytes, then rebuilds the compiled binding set. Declaring an existing slot replaces its
	// buffer, so data previously written to it is lost.
	//
	// Parameters:
	//   - slot: the binding index
	//   - size: the slot size in bytes, at least 1
	//
	// Returns:
	//   - error: an error if the buffer or the binding set could not be created
	AddBinding(slot uint32, size uint64) error

	// Write uploads data into the slot's buffer at the given byte offset.
	//
	// Parameters:
	//   - slot: the binding index
	//   - offset: the byte offset within the slot, a multiple of 4
	//   - data: the bytes to upload
	//
	// Returns:
	//   - error: ErrUnknownSlot if the slot was never declared, ErrInvalidUsage if the write overruns it
	Write(slot uint32, offset uint64, data []byte) error

	// WriteAll applies writes in order and stops at the first failure.
	//
	// Parameters:
	//   - writes: the writes to apply
	//
	// Returns:
	//   - error: the first write error, annotated with its index
	WriteAll(writes []BufferWrite) error

	// Read reads the full contents of a slot back from the GPU.
	//
	// Parameters:
	//   - slot: the binding index
	//
	// Returns:
	//   - []byte: the slot contents
	//   - error: ErrUnknownSlot if the slot was never declared
	Read(slot uint32) ([]byte, error)

	// Layout returns the slot layout ordered by binding index.
	//
	// Returns:
	//   - []renderer.BindGroupLayoutEntry: one entry per slot
	Layout() []renderer.BindGroupLayoutEntry

	// Handle returns the compiled binding set.
	//
	// Returns:
	//   - renderer.BindGroup: the compiled binding set, or nil if no slot is declared
	Handle() renderer.BindGroup

	// Release releases the compiled binding set and every slot buffer.
	Release()
}

var _ BindGroup = &bindGroup{}

// NewBindGroup creates a BindGroup. Slots passed through WithBinding are declared immediately.
//
// Parameters:
//   - ctx: the rendering context that owns the device
//   - options: functional options for label, visibility, and initial slots
//
// Returns:
//   - BindGroup: the created bind group
//   - error: an error if an initial slot could not be declared
func NewBindGroup(ctx renderer.Context, options ...BindGroupBuilderOption) (BindGroup, error) {
	if ctx == nil {
		return nil, fmt.Errorf("bind group: nil context: %w", renderer.ErrInvalidUsage)
	}

	g := &bindGroup{
		mu:         &sync.Mutex{},
		ctx:        ctx,
		label:      "Bind Group " + uuid.NewString(),
		visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
		slots:      make(map[uint32]*binding),
	}
	for _, opt := range options {
		opt(g)
	}

	for _, d := range g.declared {
		if err := g.AddBinding(d.slot, d.size); err != nil {
			g.Release()
			return nil, err
		}
	}
	g.declared = nil

	return g, nil
}

func (g *bindGroup) Label() string {
	return g.label
}

func (g *bindGroup) AddBinding(slot uint32, size uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return fmt.Errorf("bind group %q used after release: %w", g.label, renderer.ErrInvalidUsage)
	}
	if size == 0 {
		return fmt.Errorf("bind group %q slot %d has zero size: %w", g.label, slot, renderer.ErrInvalidUsage)
	}

	size = common.AlignSize(size)
	buf, err := buffer.NewBuffer(g.ctx, make([]byte, size), wgpu.BufferUsageUniform,
		buffer.WithUsage(wgpu.BufferUsageCopySrc),
		buffer.WithLabel(fmt.Sprintf("%s Slot %d", g.label, slot)),
	)
	if err != nil {
		return fmt.Errorf("failed to declare slot %d of bind group %q: %w", slot, g.label, err)
	}

	next := make(map[uint32]*binding, len(g.slots)+1)
	for k, v := range g.slots {
		next[k] = v
	}
	next[slot] = &binding{size: size, buffer: buf}

	handle, err := g.ctx.CreateBindGroup(g.descriptor(next))
	if err != nil {
		buf.Release()
		return fmt.Errorf("failed to rebuild bind group %q: %w", g.label, err)
	}

	if g.handle != nil {
		g.handle.Release()
	}
	if prev, ok := g.slots[slot]; ok {
		prev.buffer.Release()
	}
	g.handle = handle
	g.slots = next
	return nil
}

func (g *bindGroup) Write(slot uint32, offset uint64, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.write(slot, offset, data)
}

func (g *bindGroup) WriteAll(writes []BufferWrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, w := range writes {
		if err := g.write(w.Slot, w.Offset, w.Data); err != nil {
			return fmt.Errorf("write %d: %w", i, err)
		}
	}
	return nil
}

func (g *bindGroup) write(slot uint32, offset uint64, data []byte) error {
	if g.released {
		return fmt.Errorf("bind group %q used after release: %w", g.label, renderer.ErrInvalidUsage)
	}
	b, ok := g.slots[slot]
	if !ok {
		return fmt.Errorf("bind group %q slot %d: %w", g.label, slot, renderer.ErrUnknownSlot)
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at offset %d overruns slot %d (%d bytes): %w", len(data), offset, slot, b.size, renderer.ErrInvalidUsage)
	}
	return b.buffer.Write(offset, data)
}

func (g *bindGroup) Read(slot uint32) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return nil, fmt.Errorf("bind group %q used after release: %w", g.label, renderer.ErrInvalidUsage)
	}
	b, ok := g.slots[slot]
	if !ok {
		return nil, fmt.Errorf("bind group %q slot %d: %w", g.label, slot, renderer.ErrUnknownSlot)
	}
	return b.buffer.Read(0, b.size)
}

func (g *bindGroup) Layout() []renderer.BindGroupLayoutEntry {
	g.mu.Lock()
	defer g.mu.Unlock()

	entries := g.descriptor(g.slots).Entries
	layout := make([]renderer.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		layout[i] = e.BindGroupLayoutEntry
	}
	return layout
}

func (g *bindGroup) Handle() renderer.BindGroup {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handle
}

func (g *bindGroup) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.released {
		return
	}
	g.released = true

	if g.handle != nil {
		g.handle.Release()
		g.handle = nil
	}
	for _, slot := range sortedSlots(g.slots) {
		g.slots[slot].buffer.Release()
	}
	g.slots = nil
}

// descriptor builds the binding set descriptor for a slot set, ordered by binding index.
func (g *bindGroup) descriptor(slots map[uint32]*binding) renderer.BindGroupDescriptor {
	desc := renderer.BindGroupDescriptor{Label: g.label}
	for _, slot := range sortedSlots(slots) {
		b := slots[slot]
		desc.Entries = append(desc.Entries, renderer.BindGroupEntry{
			BindGroupLayoutEntry: renderer.BindGroupLayoutEntry{
				Binding:    slot,
				Visibility: g.visibility,
				Size:       b.size,
			},
			Buffer: b.buffer.Handle(),
		})
	}
	return desc
}

func sortedSlots(slots map[uint32]*binding) []uint32 {
	keys := make([]uint32, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
