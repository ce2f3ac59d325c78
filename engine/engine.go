package engine

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/camera"
	"github.com/Carmen-Shannon/mellohi/engine/config"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
	"github.com/Carmen-Shannon/mellohi/engine/mesh"
	"github.com/Carmen-Shannon/mellohi/engine/profiler"
	"github.com/Carmen-Shannon/mellohi/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the part of window.Window the engine drives.
type Window interface {
	SetUpdateCallback(callback func())
	SetResizeCallback(callback func(width, height int))
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	IsRunning() bool
	RequestClose()
	Close() error
	ProcessMessages()
	Time() float64
	Width() int
	Height() int
}

// engine implements the Engine interface.
type engine struct {
	mu *sync.Mutex

	cfg *config.Config

	window     Window
	ctx        renderer.Context
	controller frame.Controller
	camera     camera.Camera
	profiler   *profiler.Profiler

	controllerOptions []frame.ControllerBuilderOption
	// profiling overrides cfg.Frame.Profiling when set.
	profiling *bool

	// owned is released in reverse order during shutdown.
	owned []func()

	frameLimit   time.Duration
	lastFrame    float64
	frameStarted bool

	quitChannel  chan struct{}
	quitOnce     sync.Once
	shutdownOnce sync.Once
	shutdownErr  error
}

// Engine runs the frame loop of a mellohi application. Each window update ticks the frame
// controller once, and closing the window releases everything the engine owns in order.
type Engine interface {
	// Window returns the window the engine presents into.
	Window() Window

	// Context returns the rendering context.
	Context() renderer.Context

	// Controller returns the frame controller systems are registered on.
	Controller() frame.Controller

	// Camera returns the camera kept in sync with the window size.
	Camera() camera.Camera

	// Profiler returns the metrics overlay.
	Profiler() *profiler.Profiler

	// AddSystem registers fn on the frame controller.
	//
	// Parameters:
	//   - phase: the phase fn runs in
	//   - name: the system name used in logs and errors
	//   - fn: the system
	//
	// Returns:
	//   - error: an error if the phase is unknown or fn is nil
	AddSystem(phase frame.Phase, name string, fn frame.System) error

	// AddMesh draws m every frame and releases it on shutdown.
	//
	// Parameters:
	//   - m: the mesh to draw
	//
	// Returns:
	//   - error: an error if the draw system could not be registered
	AddMesh(m mesh.Mesh) error

	// AddBatch registers b's prepare and draw systems and releases it on shutdown.
	//
	// Parameters:
	//   - b: the batch to draw
	//
	// Returns:
	//   - error: an error if a system could not be registered
	AddBatch(b mesh.Batch) error

	// SetFrameLimit caps the frame rate. Pass 0 to uncap.
	//
	// Parameters:
	//   - fps: maximum frames per second (0 = uncapped)
	SetFrameLimit(fps float64)

	// EnableProfiler enables the metrics overlay.
	EnableProfiler()

	// DisableProfiler disables the metrics overlay.
	DisableProfiler()

	// Run processes window messages until the window closes or Quit is called, ticking the
	// frame controller once per iteration, then shuts down.
	//
	// Returns:
	//   - error: errors from shutdown, or the surface error that stopped the loop
	Run() error

	// Quit asks the loop to stop. Safe to call more than once.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates an Engine presenting into w. Unless WithContext is given, a wgpu context
// is created on w's surface using the renderer section of the config.
//
// Parameters:
//   - w: the window to present into
//   - options: functional options for the engine
//
// Returns:
//   - Engine: the new engine
//   - error: an error if w is nil or the rendering context could not be created
func NewEngine(w Window, options ...EngineBuilderOption) (Engine, error) {
	if w == nil {
		return nil, fmt.Errorf("new engine: nil window: %w", renderer.ErrInvalidUsage)
	}

	e := &engine{
		mu:          &sync.Mutex{},
		cfg:         config.Default(),
		window:      w,
		quitChannel: make(chan struct{}),
	}
	for _, opt := range options {
		opt(e)
	}

	if e.ctx == nil {
		ctx, err := renderer.NewWGPUContext(w.SurfaceDescriptor(), w.Width(), w.Height(), e.cfg.Renderer.Options()...)
		if err != nil {
			return nil, fmt.Errorf("failed to create rendering context: %w", err)
		}
		e.ctx = ctx
	}

	if e.camera == nil {
		e.camera = camera.NewCamera()
	}
	e.camera.SetViewport(w.Width(), w.Height())

	if e.frameLimit == 0 {
		e.frameLimit = e.cfg.Frame.FrameDuration()
	}

	opts := append(e.cfg.Frame.Options(), e.controllerOptions...)
	e.controller = frame.NewController(e.ctx, opts...)

	e.profiler = profiler.NewProfiler(profiler.WithInterval(e.cfg.Frame.ProfileInterval))
	e.profiler.SetEnabled(e.cfg.Frame.Profiling)
	if e.profiling != nil {
		e.profiler.SetEnabled(*e.profiling)
	}
	e.profiler.Attach(e.controller)

	w.SetResizeCallback(e.resize)

	return e, nil
}

func (e *engine) Window() Window {
	return e.window
}

func (e *engine) Context() renderer.Context {
	return e.ctx
}

func (e *engine) Controller() frame.Controller {
	return e.controller
}

func (e *engine) Camera() camera.Camera {
	return e.camera
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) AddSystem(phase frame.Phase, name string, fn frame.System) error {
	return e.controller.AddSystem(phase, name, fn)
}

func (e *engine) AddMesh(m mesh.Mesh) error {
	if err := e.controller.AddSystem(frame.PhaseRender, m.Label(), m.System()); err != nil {
		return err
	}
	e.own(m.Release)
	return nil
}

func (e *engine) AddBatch(b mesh.Batch) error {
	if err := b.Register(e.controller); err != nil {
		return err
	}
	e.own(b.Release)
	return nil
}

func (e *engine) own(release func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.owned = append(e.owned, release)
}

func (e *engine) SetFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.frameLimit = 0
		return
	}
	e.frameLimit = time.Duration(float64(time.Second) / fps)
}

func (e *engine) EnableProfiler() {
	e.profiler.SetEnabled(true)
}

func (e *engine) DisableProfiler() {
	e.profiler.SetEnabled(false)
}

func (e *engine) Run() error {
	e.window.SetUpdateCallback(e.update)
	e.window.ProcessMessages()
	return e.shutdown()
}

// Quit closes the quit channel and asks the window to close.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		close(e.quitChannel)
		e.window.RequestClose()
	})
}

// update runs one frame. It is the window's update callback.
// Recovers from panics to avoid crashing the process and quits on recovery.
func (e *engine) update() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Engine] frame recovered from panic: %v", r)
			e.Quit()
		}
	}()

	select {
	case <-e.quitChannel:
		return
	default:
	}

	start := time.Now()
	now := e.window.Time()
	var dt time.Duration
	if e.frameStarted {
		dt = time.Duration((now - e.lastFrame) * float64(time.Second))
	}
	e.lastFrame = now
	e.frameStarted = true

	if err := e.controller.Tick(dt); err != nil {
		switch {
		case errors.Is(err, renderer.ErrSurfaceUnavailable):
			log.Printf("[Engine] surface lost, stopping: %v", err)
			e.setErr(err)
			e.Quit()
			return
		default:
			log.Printf("[Engine] frame %d: %v", e.controller.Stats().Frames, err)
		}
	}

	e.mu.Lock()
	limit := e.frameLimit
	e.mu.Unlock()
	if limit > 0 {
		if remaining := limit - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (e *engine) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdownErr = errors.Join(e.shutdownErr, err)
}

// resize reconfigures the surface and the camera aspect for a new framebuffer size.
// A minimized window reports zero, which leaves the surface unconfigured until it is restored.
func (e *engine) resize(width, height int) {
	e.ctx.Configure(width, height)
	e.camera.SetViewport(width, height)
}

// shutdown releases owned resources in reverse order, then the controller, the context and
// the window.
func (e *engine) shutdown() error {
	e.shutdownOnce.Do(func() {
		e.Quit()

		e.mu.Lock()
		owned := e.owned
		e.owned = nil
		e.mu.Unlock()
		for i := len(owned) - 1; i >= 0; i-- {
			owned[i]()
		}

		var errs []error
		if err := e.controller.Close(); err != nil {
			log.Printf("[Engine] frame controller: %v", err)
			errs = append(errs, err)
		}
		e.ctx.Release()
		if err := e.window.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close window: %w", err))
		}
		e.setErr(errors.Join(errs...))
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shutdownErr
}
