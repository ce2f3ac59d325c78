package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestProfiler_Overlay(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(
		WithClock(clk.Now),
		WithInterval(100*time.Millisecond),
		WithMemStats(false),
		WithLogging(false),
	)

	ctx := renderer.NewMemoryContext()
	c := frame.NewController(ctx, frame.WithSystem(frame.PhaseRender, "work", func(*frame.State) error {
		clk.advance(20 * time.Millisecond)
		return nil
	}))
	p.Attach(c)

	for range 4 {
		require.NoError(t, c.Tick(20*time.Millisecond))
	}
	_, n := p.Last()
	assert.Zero(t, n, "no sample before the interval elapses")

	require.NoError(t, c.Tick(20*time.Millisecond))
	s, n := p.Last()
	require.Equal(t, uint64(1), n)
	assert.InDelta(t, 50, s.FPS, 1e-9)
	assert.Equal(t, 20*time.Millisecond, s.FrameTime)
	assert.Equal(t, 20*time.Millisecond, s.MaxFrameTime)
	assert.Equal(t, uint64(5), s.Frame.Begins)
	assert.Equal(t, uint64(4), s.Frame.Ends, "composite runs before the frame ends")
	assert.Zero(t, s.Frame.Skipped)
}

func TestProfiler_SkippedFramesAreNotComposited(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clk.Now), WithInterval(time.Hour), WithMemStats(false), WithLogging(false))

	ctx := renderer.NewMemoryContext()
	c := frame.NewController(ctx)
	p.Attach(c)

	ctx.FailFrames(2)
	for range 3 {
		require.NoError(t, c.Tick(time.Millisecond))
	}
	assert.Equal(t, 1, p.frameCount)
	assert.Equal(t, uint64(2), c.Stats().Skipped)
}

func TestProfiler_Composite(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clk.Now), WithInterval(time.Second), WithLogging(false))

	p.NewFrame()
	clk.advance(10 * time.Millisecond)
	assert.False(t, p.Composite(frame.Stats{}))

	p.NewFrame()
	clk.advance(30 * time.Millisecond)
	clk.advance(time.Second)
	require.True(t, p.Composite(frame.Stats{}))

	s, n := p.Last()
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, 10*time.Millisecond+(30*time.Millisecond+time.Second), 2*s.FrameTime)
	assert.Equal(t, time.Second+30*time.Millisecond, s.MaxFrameTime)
	assert.Positive(t, s.SysMB, "memory statistics are read by default")
	assert.Zero(t, s.Frame)

	// Counters reset after a sample.
	assert.Zero(t, p.frameCount)
	assert.Zero(t, p.frameTimeMax)
}

func TestProfiler_SetEnabled(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	p := NewProfiler(WithClock(clk.Now), WithInterval(time.Second), WithMemStats(false), WithLogging(false))

	p.SetEnabled(false)
	assert.False(t, p.Enabled())
	p.NewFrame()
	clk.advance(2 * time.Second)
	assert.False(t, p.Composite(frame.Stats{}))
	assert.Zero(t, p.frameCount)

	// Re-enabling starts the interval over, so the disabled time is not sampled.
	p.SetEnabled(true)
	clk.advance(500 * time.Millisecond)
	assert.False(t, p.Composite(frame.Stats{}))
	assert.Equal(t, 1, p.frameCount)
	assert.Zero(t, p.frameTimeSum, "no frame start was marked")
}

func TestWithInterval_IgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithInterval(-time.Second))
	assert.Equal(t, time.Second, p.interval)
}
