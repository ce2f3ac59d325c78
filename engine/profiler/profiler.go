package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/mellohi/engine/frame"
)

// Sample is one reporting interval's worth of statistics.
type Sample struct {
	// FPS is the number of composited frames per second over the interval.
	FPS float64
	// FrameTime is the mean CPU time from NewFrame to Composite.
	FrameTime time.Duration
	// MaxFrameTime is the longest such time in the interval.
	MaxFrameTime time.Duration

	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	NumGC       uint32
	// LastPause and MaxPause are GC pause times; MaxPause covers the interval.
	LastPause time.Duration
	MaxPause  time.Duration

	// Frame holds the controller's counters when the sample was taken.
	Frame frame.Stats
}

// Profiler is a metrics overlay for a frame.Controller. It measures frame rate and frame time,
// reads runtime memory statistics, and logs both with the controller's begin, end and skip
// counters once per interval.
type Profiler struct {
	mu *sync.Mutex

	interval time.Duration
	now      func() time.Time
	memStats bool
	logging  bool
	enabled  bool

	frameStart    time.Time
	intervalStart time.Time
	frameCount    int
	frameTimeSum  time.Duration
	frameTimeMax  time.Duration

	ms             runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	last    Sample
	samples uint64
}

// NewProfiler creates a Profiler. The interval defaults to one second.
//
// Parameters:
//   - options: functional options for the profiler
//
// Returns:
//   - *Profiler: the new profiler
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:       &sync.Mutex{},
		interval: time.Second,
		now:      time.Now,
		memStats: true,
		logging:  true,
		enabled:  true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.intervalStart = p.now()
	return p
}

// Attach registers the profiler as an overlay on c.
//
// Parameters:
//   - c: the frame controller to profile
func (p *Profiler) Attach(c frame.Controller) {
	c.AddOverlay(p.Overlay())
}

// Overlay returns the profiler's hooks.
//
// Returns:
//   - frame.Overlay: NewFrame marks the frame start, Composite records it with the tick's counters
func (p *Profiler) Overlay() frame.Overlay {
	return frame.Overlay{
		Name: "profiler",
		NewFrame: func(*frame.State) error {
			p.NewFrame()
			return nil
		},
		Composite: func(s *frame.State) error {
			p.Composite(s.Stats)
			return nil
		},
	}
}

// SetEnabled turns measurement on or off. Re-enabling starts a fresh interval.
//
// Parameters:
//   - enabled: whether NewFrame and Composite record anything
func (p *Profiler) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled && !p.enabled {
		p.reset(p.now())
		p.frameStart = time.Time{}
	}
	p.enabled = enabled
}

// Enabled reports whether the profiler is measuring.
func (p *Profiler) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// NewFrame marks the start of a frame.
func (p *Profiler) NewFrame() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		p.frameStart = p.now()
	}
}

// Composite records the end of a frame and emits a sample once the interval has elapsed.
//
// Parameters:
//   - stats: the controller's counters, attached to the sample
//
// Returns:
//   - bool: true if a sample was taken this call
func (p *Profiler) Composite(stats frame.Stats) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return false
	}
	now := p.now()
	if !p.frameStart.IsZero() {
		ft := now.Sub(p.frameStart)
		p.frameTimeSum += ft
		p.frameTimeMax = max(p.frameTimeMax, ft)
	}
	p.frameCount++

	elapsed := now.Sub(p.intervalStart)
	if elapsed < p.interval {
		return false
	}

	s := Sample{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		FrameTime:    p.frameTimeSum / time.Duration(p.frameCount),
		MaxFrameTime: p.frameTimeMax,
		Frame:        stats,
	}
	if p.memStats {
		p.readMemStats(&s, elapsed)
	}

	if p.logging {
		log.Printf("[Profiler] FPS: %.2f | Frame: %s (max %s) | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB | Begins: %d | Ends: %d | Skipped: %d",
			s.FPS, s.FrameTime, s.MaxFrameTime, s.HeapMB, s.AllocRateMB, s.NumGC,
			s.LastPause.Microseconds(), s.MaxPause.Microseconds(), s.SysMB,
			s.Frame.Begins, s.Frame.Ends, s.Frame.Skipped)
	}

	p.last = s
	p.samples++
	p.reset(now)
	return true
}

func (p *Profiler) reset(now time.Time) {
	p.frameCount = 0
	p.frameTimeSum = 0
	p.frameTimeMax = 0
	p.intervalStart = now
}

// Last returns the most recent sample and how many samples have been taken.
func (p *Profiler) Last() (Sample, uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.samples
}

func (p *Profiler) readMemStats(s *Sample, elapsed time.Duration) {
	runtime.ReadMemStats(&p.ms)

	s.HeapMB = float64(p.ms.Alloc) / 1024 / 1024
	s.SysMB = float64(p.ms.Sys) / 1024 / 1024
	s.AllocRateMB = float64(p.ms.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.ms.NumGC
	s.NumGC = gcCount
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		s.LastPause = time.Duration(p.ms.PauseNs[(gcCount-1)%256])

		start := p.lastGCCount
		if gcCount-start > 256 {
			start = gcCount - 256
		}
		for i := start; i < gcCount; i++ {
			s.MaxPause = max(s.MaxPause, time.Duration(p.ms.PauseNs[i%256]))
		}
	}

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.ms.TotalAlloc
}
