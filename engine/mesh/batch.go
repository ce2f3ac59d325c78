package mesh

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/mellohi/engine/frame"
)

// batch is the implementation of the Batch interface.
type batch struct {
	mu *sync.Mutex

	name    string
	workers int
	pool    worker.DynamicWorkerPool

	meshes []Mesh
	// prepared holds the uniforms computed for preparedFrame, one per mesh.
	prepared      []Uniforms
	preparedFrame uint64
	released      bool
}

// Batch draws a set of meshes. Uniforms for every mesh are computed in parallel on a worker
// pool during frame.PhasePreRender, then written and drawn on the tick goroutine during
// frame.PhaseRender, so each mesh's uniforms slot has exactly one writer per frame.
type Batch interface {
	// Add appends m to the batch. Meshes are drawn in the order they were added.
	//
	// Parameters:
	//   - m: the mesh to add
	Add(m Mesh)

	// Meshes returns the meshes in draw order.
	Meshes() []Mesh

	// Prepare computes the uniforms of every mesh for frame at elapsed. The computation is pure
	// CPU work spread over the worker pool; Prepare returns once all of it is done.
	//
	// Parameters:
	//   - frameIndex: the index of the frame being prepared
	//   - elapsed: the time since the loop started
	Prepare(frameIndex uint64, elapsed time.Duration)

	// PrepareSystem returns the frame.PhasePreRender system that calls Prepare.
	PrepareSystem() frame.System

	// DrawSystem returns the frame.PhaseRender system that writes the prepared uniforms and draws
	// every mesh. A mesh that fails does not stop the others.
	DrawSystem() frame.System

	// Register adds PrepareSystem and DrawSystem to c.
	//
	// Parameters:
	//   - c: the frame controller
	//
	// Returns:
	//   - error: an error if a system could not be added
	Register(c frame.Controller) error

	// Release stops the worker pool and releases every mesh in draw order.
	Release()
}

var _ Batch = &batch{}

// NewBatch creates an empty Batch.
//
// Parameters:
//   - options: functional options for the batch
//
// Returns:
//   - Batch: the new batch
func NewBatch(options ...BatchBuilderOption) Batch {
	b := &batch{
		mu:      &sync.Mutex{},
		name:    "meshes",
		workers: max(runtime.NumCPU()-1, 1),
	}
	for _, opt := range options {
		opt(b)
	}
	b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	return b
}

func (b *batch) Add(m Mesh) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.meshes = append(b.meshes, m)
}

func (b *batch) Meshes() []Mesh {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Mesh(nil), b.meshes...)
}

func (b *batch) Prepare(frameIndex uint64, elapsed time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	if cap(b.prepared) < len(b.meshes) {
		b.prepared = make([]Uniforms, len(b.meshes))
	}
	b.prepared = b.prepared[:len(b.meshes)]

	// wg is the per-frame barrier; the pool's Wait only returns once its workers idle out.
	var wg sync.WaitGroup
	for i, m := range b.meshes {
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				b.prepared[i] = m.Uniforms(elapsed)
				return nil, nil
			},
		})
	}
	wg.Wait()
	b.preparedFrame = frameIndex
}

func (b *batch) PrepareSystem() frame.System {
	return func(s *frame.State) error {
		b.Prepare(s.Frame, s.Elapsed)
		return nil
	}
}

func (b *batch) DrawSystem() frame.System {
	return func(s *frame.State) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		if b.released {
			return nil
		}
		fresh := b.preparedFrame == s.Frame && len(b.prepared) == len(b.meshes)

		var errs []error
		for i, m := range b.meshes {
			var u Uniforms
			if fresh {
				u = b.prepared[i]
			} else {
				u = m.Uniforms(s.Elapsed)
			}
			if err := m.WriteUniforms(u); err != nil {
				errs = append(errs, fmt.Errorf("mesh %q: %w", m.Label(), err))
				continue
			}
			if err := m.Draw(s.Pass); err != nil {
				errs = append(errs, fmt.Errorf("mesh %q: %w", m.Label(), err))
			}
		}
		return errors.Join(errs...)
	}
}

func (b *batch) Register(c frame.Controller) error {
	if err := c.AddSystem(frame.PhasePreRender, b.name+" prepare", b.PrepareSystem()); err != nil {
		return err
	}
	return c.AddSystem(frame.PhaseRender, b.name+" draw", b.DrawSystem())
}

func (b *batch) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}
	b.released = true
	b.pool.Stop()
	for _, m := range b.meshes {
		m.Release()
	}
	b.meshes = nil
	b.prepared = nil
}
