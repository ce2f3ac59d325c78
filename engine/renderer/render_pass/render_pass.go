package render_pass

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/bind_group"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/buffer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/pipeline"
)

// State is the lifecycle state of a RenderPass.
type State int

const (
	// StateUnopened is the state before Begin succeeds.
	StateUnopened State = iota

	// StateRecording is the state between a successful Begin and End.
	StateRecording

	// StateSubmitted is the terminal state after End.
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "Unopened"
	case StateRecording:
		return "Recording"
	case StateSubmitted:
		return "Submitted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// renderPass is the implementation of the RenderPass interface.
type renderPass struct {
	mu    *sync.Mutex
	ctx   renderer.Context
	state State
	frame renderer.Frame

	pipeline      pipeline.Pipeline
	vertexBuffers map[uint32]buffer.VertexBuffer
	indexBuffer   buffer.IndexBuffer
	bindGroups    map[uint32]bind_group.BindGroup
	drawCount     int
}

// RenderPass records draw commands into one acquired surface image. It moves from Unopened to
// Recording on Begin and from Recording to Submitted on End; every other call is only valid
// while Recording. Each Set call overwrites the previous binding for its slot, and each draw
// uses whatever was bound last.
type RenderPass interface {
	// Begin acquires the next surface image and opens a pass that clears color and depth.
	//
	// Returns:
	//   - error: an error wrapping ErrSurfaceUnavailable if no image could be acquired, in which
	//     case the pass stays Unopened; ErrInvalidUsage if the pass is not Unopened
	Begin() error

	// SetPipeline binds the pipeline used by subsequent draws.
	SetPipeline(p pipeline.Pipeline) error

	// SetVertexBuffer binds vb at the given vertex buffer slot.
	SetVertexBuffer(slot uint32, vb buffer.VertexBuffer) error

	// SetIndexBuffer binds the index buffer used by DrawIndexed.
	SetIndexBuffer(ib buffer.IndexBuffer) error

	// SetBindGroup binds bg at the given bind group index.
	SetBindGroup(slot uint32, bg bind_group.BindGroup) error

	// Draw issues a non-indexed draw of vertexCount vertices.
	//
	// Parameters:
	//   - vertexCount: the number of vertices to draw
	//
	// Returns:
	//   - error: ErrInvalidUsage if no pipeline is set or a slot the pipeline needs is unbound
	Draw(vertexCount uint32) error

	// DrawIndexed issues an indexed draw of indexCount indices from the bound index buffer.
	//
	// Parameters:
	//   - indexCount: the number of indices to draw
	//
	// Returns:
	//   - error: ErrInvalidUsage if Draw's requirements are not met or no index buffer is bound
	DrawIndexed(indexCount uint32) error

	// End closes the pass, submits the recorded commands, and presents the image. The pass is
	// Submitted afterwards even if submission failed.
	//
	// Returns:
	//   - error: ErrInvalidUsage if the pass is not Recording, or the submission error
	End() error

	// State returns the current lifecycle state.
	State() State

	// DrawCount returns the number of draws issued into this pass.
	DrawCount() int
}

var _ RenderPass = &renderPass{}

// NewRenderPass creates an Unopened RenderPass on ctx.
//
// Parameters:
//   - ctx: the rendering context whose surface the pass draws into
//
// Returns:
//   - RenderPass: the new pass
func NewRenderPass(ctx renderer.Context) RenderPass {
	return &renderPass{
		mu:            &sync.Mutex{},
		ctx:           ctx,
		vertexBuffers: make(map[uint32]buffer.VertexBuffer),
		bindGroups:    make(map[uint32]bind_group.BindGroup),
	}
}

func (r *renderPass) Begin() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUnopened {
		return fmt.Errorf("begin in state %s: %w", r.state, renderer.ErrInvalidUsage)
	}
	frame, err := r.ctx.BeginFrame()
	if err != nil {
		return err
	}
	r.frame = frame
	r.state = StateRecording
	return nil
}

func (r *renderPass) SetPipeline(p pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRecording("set pipeline"); err != nil {
		return err
	}
	if p == nil || p.Handle() == nil {
		return fmt.Errorf("set pipeline: nil or released pipeline: %w", renderer.ErrInvalidUsage)
	}
	r.frame.SetPipeline(p.Handle())
	r.pipeline = p
	return nil
}

func (r *renderPass) SetVertexBuffer(slot uint32, vb buffer.VertexBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRecording("set vertex buffer"); err != nil {
		return err
	}
	if vb == nil || vb.Released() {
		return fmt.Errorf("set vertex buffer %d: nil or released buffer: %w", slot, renderer.ErrInvalidUsage)
	}
	r.frame.SetVertexBuffer(slot, vb.Handle())
	r.vertexBuffers[slot] = vb
	return nil
}

func (r *renderPass) SetIndexBuffer(ib buffer.IndexBuffer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRecording("set index buffer"); err != nil {
		return err
	}
	if ib == nil || ib.Released() {
		return fmt.Errorf("set index buffer: nil or released buffer: %w", renderer.ErrInvalidUsage)
	}
	r.frame.SetIndexBuffer(ib.Handle(), ib.Format())
	r.indexBuffer = ib
	return nil
}

func (r *renderPass) SetBindGroup(slot uint32, bg bind_group.BindGroup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRecording("set bind group"); err != nil {
		return err
	}
	if bg == nil || bg.Handle() == nil {
		return fmt.Errorf("set bind group %d: bind group has no compiled binding set: %w", slot, renderer.ErrInvalidUsage)
	}
	r.frame.SetBindGroup(slot, bg.Handle())
	r.bindGroups[slot] = bg
	return nil
}

func (r *renderPass) Draw(vertexCount uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireDrawable("draw"); err != nil {
		return err
	}
	r.frame.Draw(vertexCount, 1)
	r.drawCount++
	return nil
}

func (r *renderPass) DrawIndexed(indexCount uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireDrawable("draw indexed"); err != nil {
		return err
	}
	if r.indexBuffer == nil {
		return fmt.Errorf("draw indexed: no index buffer bound: %w", renderer.ErrInvalidUsage)
	}
	r.frame.DrawIndexed(indexCount, 1)
	r.drawCount++
	return nil
}

func (r *renderPass) End() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireRecording("end"); err != nil {
		return err
	}
	r.state = StateSubmitted

	err := r.frame.Submit()
	r.frame.Present()
	r.frame = nil
	if err != nil {
		return errors.Join(fmt.Errorf("failed to submit render pass"), err)
	}
	return nil
}

func (r *renderPass) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *renderPass) DrawCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drawCount
}

func (r *renderPass) requireRecording(op string) error {
	if r.state != StateRecording {
		return fmt.Errorf("%s in state %s: %w", op, r.state, renderer.ErrInvalidUsage)
	}
	return nil
}

// requireDrawable checks that the pass is recording with a pipeline and every vertex slot and
// bind group index the pipeline consumes bound to a resource whose layout matches the one the
// pipeline was built with.
func (r *renderPass) requireDrawable(op string) error {
	if err := r.requireRecording(op); err != nil {
		return err
	}
	if r.pipeline == nil {
		return fmt.Errorf("%s before set pipeline: %w", op, renderer.ErrInvalidUsage)
	}
	for slot := range uint32(r.pipeline.VertexBufferCount()) {
		vb, ok := r.vertexBuffers[slot]
		if !ok {
			return fmt.Errorf("%s: vertex buffer slot %d required by pipeline %q is unbound: %w", op, slot, r.pipeline.Label(), renderer.ErrInvalidUsage)
		}
		want, _ := r.pipeline.VertexLayout()
		if !vertexLayoutsEqual(vb.Layout(), want) {
			return fmt.Errorf("%s: vertex buffer %q at slot %d does not match the layout of pipeline %q: %w", op, vb.Label(), slot, r.pipeline.Label(), renderer.ErrInvalidUsage)
		}
	}
	for slot := range uint32(r.pipeline.BindGroupCount()) {
		bg, ok := r.bindGroups[slot]
		if !ok {
			return fmt.Errorf("%s: bind group %d required by pipeline %q is unbound: %w", op, slot, r.pipeline.Label(), renderer.ErrInvalidUsage)
		}
		if !slices.Equal(bg.Layout(), r.pipeline.BindGroupLayout()) {
			return fmt.Errorf("%s: bind group %q at index %d does not match the layout of pipeline %q: %w", op, bg.Label(), slot, r.pipeline.Label(), renderer.ErrInvalidUsage)
		}
	}
	return nil
}

func vertexLayoutsEqual(a, b renderer.VertexLayout) bool {
	return a.ArrayStride == b.ArrayStride && slices.Equal(a.Attributes, b.Attributes)
}
