package frame

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/render_pass"
)

// Phase orders the systems run by a Controller within one tick.
type Phase int

const (
	// PhasePreRender runs before the render pass is begun. Systems here prepare CPU state and
	// may write resources, but cannot record draws.
	PhasePreRender Phase = iota

	// PhaseRender runs with the render pass recording.
	PhaseRender

	// PhasePostRender runs after PhaseRender, still recording into the same pass.
	PhasePostRender
)

func (p Phase) String() string {
	switch p {
	case PhasePreRender:
		return "PreRender"
	case PhaseRender:
		return "Render"
	case PhasePostRender:
		return "PostRender"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// System is one unit of per-frame work.
type System func(s *State) error

// Overlay is a UI hook. NewFrame runs in PhasePreRender and Composite in PhasePostRender, so
// overlay draws land on top of everything drawn in PhaseRender.
type Overlay struct {
	Name      string
	NewFrame  System
	Composite System
}

// State is passed to every system during a tick.
type State struct {
	// Context is the rendering context the controller was created with.
	Context renderer.Context
	// Pass is the render pass for this tick. It is Unopened during PhasePreRender.
	Pass render_pass.RenderPass
	// Frame is the 1-based index of the current tick.
	Frame uint64
	// Delta is the time since the previous tick.
	Delta time.Duration
	// Elapsed is the sum of every Delta so far, including this one.
	Elapsed time.Duration
	// Stats is the controller's counters, refreshed before each phase. Systems read it
	// here because Controller.Stats blocks while a tick is running.
	Stats Stats
}

// Stats is a snapshot of a Controller's frame counters.
type Stats struct {
	Frames           uint64
	Begins           uint64
	Ends             uint64
	Skipped          uint64
	ConsecutiveSkips int
}

type system struct {
	name string
	fn   System
}

// controller is the implementation of the Controller interface.
type controller struct {
	mu  *sync.Mutex
	ctx renderer.Context

	maxSurfaceRetries int

	phases  [3][]system
	stats   Stats
	elapsed time.Duration
	closed  bool
}

// Controller drives the frame lifecycle. Every Tick runs PhasePreRender, begins one render
// pass, runs PhaseRender and PhasePostRender into it, and ends it. Ticks are serialized, so a
// frame is always fully presented before the next one begins.
type Controller interface {
	// AddSystem appends fn to the ordered system list of phase.
	//
	// Parameters:
	//   - phase: the phase the system runs in
	//   - name: a name used in logs and errors
	//   - fn: the system function
	//
	// Returns:
	//   - error: ErrInvalidUsage if the phase is unknown or fn is nil
	AddSystem(phase Phase, name string, fn System) error

	// AddOverlay registers o's NewFrame in PhasePreRender and its Composite in PhasePostRender.
	// Either hook may be nil.
	//
	// Parameters:
	//   - o: the overlay
	AddOverlay(o Overlay)

	// Tick runs one frame.
	//
	// When the surface image cannot be acquired, PhaseRender and PhasePostRender are skipped
	// and the skip is counted. Tick then returns nil until more than the configured number of
	// consecutive skips has happened, at which point it returns the acquisition error.
	//
	// Parameters:
	//   - dt: the time since the previous tick
	//
	// Returns:
	//   - error: the joined errors of every failed system and of ending the pass
	Tick(dt time.Duration) error

	// Stats returns the current frame counters.
	//
	// Returns:
	//   - Stats: a snapshot of the counters
	Stats() Stats

	// Close stops the controller. Further ticks return ErrInvalidUsage.
	//
	// Returns:
	//   - error: ErrInvalidUsage if a begun frame was never ended
	Close() error
}

var _ Controller = &controller{}

// NewController creates a Controller that renders into ctx.
//
// Parameters:
//   - ctx: the rendering context
//   - options: functional options for controller configuration
//
// Returns:
//   - Controller: the new controller
func NewController(ctx renderer.Context, options ...ControllerBuilderOption) Controller {
	c := &controller{
		mu:                &sync.Mutex{},
		ctx:               ctx,
		maxSurfaceRetries: DefaultMaxSurfaceRetries,
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

func (c *controller) AddSystem(phase Phase, name string, fn System) error {
	if phase < PhasePreRender || phase > PhasePostRender {
		return fmt.Errorf("add system %q: unknown phase %s: %w", name, phase, renderer.ErrInvalidUsage)
	}
	if fn == nil {
		return fmt.Errorf("add system %q: nil system: %w", name, renderer.ErrInvalidUsage)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases[phase] = append(c.phases[phase], system{name: name, fn: fn})
	return nil
}

func (c *controller) AddOverlay(o Overlay) {
	if o.NewFrame != nil {
		_ = c.AddSystem(PhasePreRender, o.Name+" new frame", o.NewFrame)
	}
	if o.Composite != nil {
		_ = c.AddSystem(PhasePostRender, o.Name+" composite", o.Composite)
	}
}

func (c *controller) Tick(dt time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("tick after close: %w", renderer.ErrInvalidUsage)
	}

	c.stats.Frames++
	c.elapsed += dt
	state := &State{
		Context: c.ctx,
		Pass:    render_pass.NewRenderPass(c.ctx),
		Frame:   c.stats.Frames,
		Delta:   dt,
		Elapsed: c.elapsed,
		Stats:   c.stats,
	}

	errs := c.run(PhasePreRender, state)

	// Only the controller opens the pass. One opened by a PreRender system is closed here so
	// no recording outlives the tick.
	if st := state.Pass.State(); st != render_pass.StateUnopened {
		err := fmt.Errorf("frame %d: pass opened before the render phase (%s): %w", state.Frame, st, renderer.ErrInvalidUsage)
		if st == render_pass.StateRecording {
			if endErr := state.Pass.End(); endErr != nil {
				err = errors.Join(err, endErr)
			}
		}
		log.Printf("[Frame] %v", err)
		return errors.Join(append(errs, err)...)
	}

	if err := state.Pass.Begin(); err != nil {
		if !errors.Is(err, renderer.ErrSurfaceUnavailable) {
			return errors.Join(append(errs, err)...)
		}
		c.stats.Skipped++
		c.stats.ConsecutiveSkips++
		if c.stats.ConsecutiveSkips > c.maxSurfaceRetries {
			log.Printf("[Frame] surface unavailable for %d consecutive frames, giving up: %v", c.stats.ConsecutiveSkips, err)
			return errors.Join(append(errs, err)...)
		}
		log.Printf("[Frame] skipping frame %d: %v", state.Frame, err)
		return errors.Join(errs...)
	}
	c.stats.Begins++
	c.stats.ConsecutiveSkips = 0
	state.Stats = c.stats

	errs = append(errs, c.run(PhaseRender, state)...)
	errs = append(errs, c.run(PhasePostRender, state)...)

	// Submitted even when End reports a submission failure.
	err := state.Pass.End()
	c.stats.Ends++
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// run executes every system of phase in order. A failing or panicking system does not stop
// the ones after it.
func (c *controller) run(phase Phase, state *State) []error {
	var errs []error
	for _, s := range c.phases[phase] {
		if err := runSystem(s, state); err != nil {
			log.Printf("[Frame] %s system %q failed on frame %d: %v", phase, s.name, state.Frame, err)
			errs = append(errs, fmt.Errorf("%s system %q: %w", phase, s.name, err))
		}
	}
	return errs
}

func runSystem(s system, state *State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered from panic: %v", r)
		}
	}()
	return s.fn(state)
}

func (c *controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.stats.Begins != c.stats.Ends {
		return fmt.Errorf("%d frames begun but %d ended: %w", c.stats.Begins, c.stats.Ends, renderer.ErrInvalidUsage)
	}
	return nil
}
