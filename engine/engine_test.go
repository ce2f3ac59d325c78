package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/config"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/mesh"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow runs a fixed number of message loop iterations, advancing its clock by step each time.
type fakeWindow struct {
	width, height int
	iterations    int
	step          float64

	now      float64
	running  bool
	closed   int
	onUpdate func()
	onResize func(width, height int)
	// panicTime makes Time panic, as a crashing platform call would.
	panicTime bool
	// beforeUpdate runs at the start of the given iteration.
	beforeUpdate map[int]func()
}

func newFakeWindow(iterations int) *fakeWindow {
	return &fakeWindow{
		width:        800,
		height:       600,
		iterations:   iterations,
		step:         0.016,
		running:      true,
		beforeUpdate: make(map[int]func()),
	}
}

func (w *fakeWindow) SetUpdateCallback(callback func())                  { w.onUpdate = callback }
func (w *fakeWindow) SetResizeCallback(callback func(width, height int)) { w.onResize = callback }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor         { return nil }
func (w *fakeWindow) IsRunning() bool                                    { return w.running }
func (w *fakeWindow) RequestClose()                                      { w.running = false }
func (w *fakeWindow) Width() int                                         { return w.width }
func (w *fakeWindow) Height() int                                        { return w.height }

func (w *fakeWindow) Time() float64 {
	if w.panicTime {
		panic("clock unavailable")
	}
	return w.now
}

func (w *fakeWindow) Close() error {
	w.closed++
	if w.closed > 1 {
		return errors.New("window already closed")
	}
	return nil
}

func (w *fakeWindow) ProcessMessages() {
	for i := 0; i < w.iterations && w.running; i++ {
		if fn := w.beforeUpdate[i]; fn != nil {
			fn()
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		w.now += w.step
	}
}

func (w *fakeWindow) resize(width, height int) {
	w.width, w.height = width, height
	if w.onResize != nil {
		w.onResize(width, height)
	}
}

func TestNewEngine_NilWindow(t *testing.T) {
	_, err := NewEngine(nil)
	assert.ErrorIs(t, err, renderer.ErrInvalidUsage)
}

func TestEngine_Run(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	w := newFakeWindow(5)

	e, err := NewEngine(w, WithContext(ctx))
	require.NoError(t, err)
	assert.InDelta(t, 800.0/600.0, e.Camera().Aspect(), 1e-6)

	var deltas []time.Duration
	require.NoError(t, e.AddSystem(frame.PhasePreRender, "deltas", func(s *frame.State) error {
		deltas = append(deltas, s.Delta)
		return nil
	}))

	vertices, indices := mesh.Cube(mgl32.Vec3{1, 0, 0})
	m, err := mesh.NewMesh(ctx, vertices, mesh.WithLabel("cube"), mesh.WithIndices(indices), mesh.WithCamera(e.Camera()))
	require.NoError(t, err)
	require.NoError(t, e.AddMesh(m))

	require.NoError(t, e.Run())

	stats := e.Controller().Stats()
	assert.Equal(t, uint64(5), stats.Begins)
	assert.Equal(t, stats.Begins, stats.Ends)
	assert.Len(t, ctx.Draws(), 5)

	require.Len(t, deltas, 5)
	assert.Zero(t, deltas[0], "the first frame has no delta")
	assert.InDelta(t, float64(16*time.Millisecond), float64(deltas[1]), float64(time.Microsecond))

	// Shutdown released the mesh and closed the window once.
	assert.Zero(t, ctx.Stats().LiveBuffers)
	assert.Zero(t, ctx.Stats().LivePipelines)
	assert.Equal(t, 1, w.closed)
	assert.ErrorIs(t, e.Controller().Tick(time.Millisecond), renderer.ErrInvalidUsage)
}

func TestEngine_ShutdownOrder(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	w := newFakeWindow(1)
	e, err := NewEngine(w, WithContext(ctx))
	require.NoError(t, err)

	batch := mesh.NewBatch(mesh.WithWorkers(1))
	vertices, indices := mesh.Cube(mgl32.Vec3{0, 1, 0})
	first, err := mesh.NewMesh(ctx, vertices, mesh.WithLabel("first"), mesh.WithIndices(indices))
	require.NoError(t, err)
	batch.Add(first)
	require.NoError(t, e.AddBatch(batch))

	second, err := mesh.NewMesh(ctx, mesh.Triangle(mgl32.Vec3{0, 0, 1}), mesh.WithLabel("second"))
	require.NoError(t, err)
	require.NoError(t, e.AddMesh(second))

	require.NoError(t, e.Run())

	// Owned resources are released last-added first.
	released := ctx.Released()
	require.NotEmpty(t, released)
	assert.Equal(t, renderer.ReleaseRecord{Kind: renderer.ResourceBindGroup, Label: "second Bind Group"}, released[0])
	assert.Equal(t, renderer.ReleaseRecord{Kind: renderer.ResourceBuffer, Label: "first Indices"}, released[len(released)-1])
}

func TestEngine_Resize(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	w := newFakeWindow(3)
	e, err := NewEngine(w, WithContext(ctx))
	require.NoError(t, err)

	w.beforeUpdate[1] = func() { w.resize(0, 0) }
	w.beforeUpdate[2] = func() { w.resize(1024, 512) }

	require.NoError(t, e.Run())

	width, height := ctx.Size()
	assert.Equal(t, 1024, width)
	assert.Equal(t, 512, height)
	assert.InDelta(t, 2.0, e.Camera().Aspect(), 1e-6)

	stats := e.Controller().Stats()
	assert.Equal(t, uint64(1), stats.Skipped, "the minimized frame is skipped")
	assert.Equal(t, uint64(2), stats.Begins)
}

func TestEngine_SurfaceLostStops(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	ctx.FailFrames(10)
	w := newFakeWindow(10)

	cfg := config.Default()
	cfg.Frame.MaxSurfaceRetries = 2
	e, err := NewEngine(w, WithContext(ctx), WithConfig(cfg))
	require.NoError(t, err)

	err = e.Run()
	assert.ErrorIs(t, err, renderer.ErrSurfaceUnavailable)
	assert.Equal(t, uint64(3), e.Controller().Stats().Frames, "the loop stops once retries are exhausted")
}

func TestEngine_PanicQuits(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	w := newFakeWindow(10)
	e, err := NewEngine(w, WithContext(ctx))
	require.NoError(t, err)

	w.beforeUpdate[2] = func() { w.panicTime = true }

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(2), e.Controller().Stats().Frames)
	assert.Equal(t, 1, w.closed)
}

func TestEngine_FrameLimit(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	w := newFakeWindow(3)
	e, err := NewEngine(w, WithContext(ctx), WithRenderFrameLimit(100))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, e.Run())
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	e.SetFrameLimit(0)
	assert.Zero(t, e.(*engine).frameLimit)
}

func TestEngine_Profiler(t *testing.T) {
	ctx := renderer.NewMemoryContext()
	e, err := NewEngine(newFakeWindow(1), WithContext(ctx), WithProfiling(true))
	require.NoError(t, err)
	assert.True(t, e.Profiler().Enabled())

	e.DisableProfiler()
	assert.False(t, e.Profiler().Enabled())
	e.EnableProfiler()
	assert.True(t, e.Profiler().Enabled())
}
