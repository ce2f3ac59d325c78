package frame

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/buffer"
	"github.com/Carmen-Shannon/mellohi/engine/renderer/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleSource = `@vertex
fn vs_main(@location(0) position: vec2<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(position, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

// drawTriangle returns a Render system that draws one triangle every frame.
func drawTriangle(t *testing.T, ctx renderer.Context) System {
	t.Helper()

	vb, err := buffer.NewVertexBuffer(ctx, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	require.NoError(t, err)
	require.NoError(t, vb.AddAttributeVec2f())

	p, err := pipeline.NewPipeline(ctx, "triangle", vb, nil, 1,
		pipeline.WithSource(triangleSource),
		pipeline.WithShaderValidation(false),
	)
	require.NoError(t, err)

	return func(s *State) error {
		if err := s.Pass.SetPipeline(p); err != nil {
			return err
		}
		if err := s.Pass.SetVertexBuffer(0, vb); err != nil {
			return err
		}
		return s.Pass.Draw(vb.VertexCount())
	}
}

func drawsInFrame(draws []renderer.DrawRecord, frame int) int {
	n := 0
	for _, d := range draws {
		if d.Frame == frame {
			n++
		}
	}
	return n
}

func TestController_PhaseOrder(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	var order []string
	record := func(name string) System {
		return func(*State) error {
			order = append(order, name)
			return nil
		}
	}

	c := NewController(ctx, WithSystem(PhaseRender, "first render", record("render 1")))
	require.NoError(t, c.AddSystem(PhasePostRender, "post", record("post")))
	require.NoError(t, c.AddSystem(PhaseRender, "second render", record("render 2")))
	require.NoError(t, c.AddSystem(PhasePreRender, "pre", record("pre")))
	c.AddOverlay(Overlay{Name: "overlay", NewFrame: record("overlay new frame"), Composite: record("overlay composite")})

	require.NoError(t, c.Tick(time.Millisecond))
	assert.Equal(t, []string{"pre", "overlay new frame", "render 1", "render 2", "post", "overlay composite"}, order)
}

func TestController_AddSystemErrors(t *testing.T) {
	c := NewController(renderer.NewMemoryContext())
	assert.ErrorIs(t, c.AddSystem(Phase(7), "bad phase", func(*State) error { return nil }), renderer.ErrInvalidUsage)
	assert.ErrorIs(t, c.AddSystem(PhaseRender, "nil", nil), renderer.ErrInvalidUsage)
}

func TestController_State(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	var states []State
	c := NewController(ctx)
	require.NoError(t, c.AddSystem(PhasePreRender, "capture pre", func(s *State) error {
		assert.Equal(t, "Unopened", s.Pass.State().String())
		return nil
	}))
	require.NoError(t, c.AddSystem(PhaseRender, "capture", func(s *State) error {
		assert.Equal(t, "Recording", s.Pass.State().String())
		states = append(states, *s)
		return nil
	}))

	require.NoError(t, c.Tick(10*time.Millisecond))
	require.NoError(t, c.Tick(20*time.Millisecond))

	require.Len(t, states, 2)
	assert.Equal(t, uint64(1), states[0].Frame)
	assert.Equal(t, uint64(2), states[1].Frame)
	assert.Equal(t, 20*time.Millisecond, states[1].Delta)
	assert.Equal(t, 30*time.Millisecond, states[1].Elapsed)
	assert.Same(t, ctx, states[0].Context)
	assert.NotSame(t, states[0].Pass, states[1].Pass)
	assert.Equal(t, Stats{Frames: 2, Begins: 2, Ends: 1}, states[1].Stats, "render systems see the counters of the open frame")
}

func TestController_FrameBalance(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx)
	require.NoError(t, c.AddSystem(PhaseRender, "triangle", drawTriangle(t, ctx)))
	require.NoError(t, c.AddSystem(PhaseRender, "failing", func(*State) error { return errors.New("boom") }))
	require.NoError(t, c.AddSystem(PhasePostRender, "panicking", func(*State) error { panic("overlay crashed") }))

	for range 5 {
		err := c.Tick(time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
		assert.Contains(t, err.Error(), "overlay crashed")
	}

	stats := c.Stats()
	assert.Equal(t, uint64(5), stats.Begins)
	assert.Equal(t, stats.Begins, stats.Ends)

	ms := ctx.Stats()
	assert.Equal(t, 5, ms.FramesBegun)
	assert.Equal(t, 5, ms.FramesSubmitted)
	assert.Equal(t, 5, ms.FramesPresented)
	assert.Len(t, ctx.Draws(), 5)

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Tick(time.Millisecond), renderer.ErrInvalidUsage)
}

func TestController_SurfaceUnavailableSkipsFrame(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx)

	var preRuns, renderRuns int
	require.NoError(t, c.AddSystem(PhasePreRender, "count pre", func(*State) error {
		preRuns++
		return nil
	}))
	draw := drawTriangle(t, ctx)
	require.NoError(t, c.AddSystem(PhaseRender, "triangle", func(s *State) error {
		renderRuns++
		return draw(s)
	}))

	require.NoError(t, c.Tick(time.Millisecond))

	ctx.FailFrames(1)
	require.NoError(t, c.Tick(time.Millisecond), "a skipped frame is not an error")
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, 1, stats.ConsecutiveSkips)

	require.NoError(t, c.Tick(time.Millisecond))

	draws := ctx.Draws()
	assert.Equal(t, 1, drawsInFrame(draws, 1))
	assert.Equal(t, 1, drawsInFrame(draws, 2), "the retried begin on the next tick is the second frame the context opens")
	assert.Len(t, draws, 2)

	assert.Equal(t, 3, preRuns)
	assert.Equal(t, 2, renderRuns)

	stats = c.Stats()
	assert.Equal(t, uint64(3), stats.Frames)
	assert.Equal(t, uint64(2), stats.Begins)
	assert.Equal(t, uint64(2), stats.Ends)
	assert.Zero(t, stats.ConsecutiveSkips)
	assert.Equal(t, 1, ctx.Stats().FailedAcquires)
	require.NoError(t, c.Close())
}

func TestController_SurfaceRetriesExhausted(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx, WithMaxSurfaceRetries(2))
	ctx.FailFrames(3)

	require.NoError(t, c.Tick(time.Millisecond))
	require.NoError(t, c.Tick(time.Millisecond))
	assert.ErrorIs(t, c.Tick(time.Millisecond), renderer.ErrSurfaceUnavailable)

	require.NoError(t, c.Tick(time.Millisecond))
	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.Skipped)
	assert.Equal(t, uint64(1), stats.Begins)
	assert.Zero(t, stats.ConsecutiveSkips)
}

func TestController_ZeroSizedSurface(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx, WithMaxSurfaceRetries(0))

	ctx.Configure(0, 0)
	assert.ErrorIs(t, c.Tick(time.Millisecond), renderer.ErrSurfaceUnavailable)

	ctx.Configure(640, 480)
	require.NoError(t, c.Tick(time.Millisecond))
}

func TestController_SubmitFailure(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx)
	ctx.FailSubmits(1)

	assert.Error(t, c.Tick(time.Millisecond))
	require.NoError(t, c.Tick(time.Millisecond))

	stats := c.Stats()
	assert.Equal(t, uint64(2), stats.Begins)
	assert.Equal(t, uint64(2), stats.Ends)
	require.NoError(t, c.Close())
}

func TestController_PassOpenedBeforeRender(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	c := NewController(ctx)

	var rendered int
	opened := false
	require.NoError(t, c.AddSystem(PhasePreRender, "eager", func(s *State) error {
		if opened {
			return nil
		}
		opened = true
		return s.Pass.Begin()
	}))
	require.NoError(t, c.AddSystem(PhaseRender, "count", func(*State) error {
		rendered++
		return nil
	}))

	assert.ErrorIs(t, c.Tick(time.Millisecond), renderer.ErrInvalidUsage)
	assert.Zero(t, rendered, "the render phase does not run on a pass it did not open")

	ms := ctx.Stats()
	assert.Equal(t, 1, ms.FramesBegun)
	assert.Equal(t, 1, ms.FramesSubmitted, "the stray pass is closed within the tick")

	require.NoError(t, c.Tick(time.Millisecond))
	assert.Equal(t, 1, rendered)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Begins)
	assert.Equal(t, stats.Begins, stats.Ends)
	require.NoError(t, c.Close())
}
