package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/dropsim/internal/registry"
	"github.com/san-kum/dropsim/internal/scene"
)

// LoopState is the frame loop lifecycle.
type LoopState int

const (
	Idle LoopState = iota
	Running
)

func (s LoopState) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// FrameStats describes one completed frame.
type FrameStats struct {
	Frame    uint64
	Delta    float64
	Substeps int
	Time     float64
	Objects  int
	Contacts int
	Sleeping int
	Triggers uint64
}

// FrameObserver is notified after the transforms of a frame are synced and
// before it is rendered. It runs under the engine lock.
type FrameObserver interface {
	OnFrame(stats FrameStats, objects []ObjectState)
}

// ObserverFunc adapts a function to FrameObserver.
type ObserverFunc func(stats FrameStats, objects []ObjectState)

func (f ObserverFunc) OnFrame(stats FrameStats, objects []ObjectState) { f(stats, objects) }

// Loop advances the world once per frame and renders the result.
type Loop struct {
	e         *Engine
	renderer  scene.Renderer
	observers []FrameObserver

	state LoopState
	last  time.Time
	frame uint64
}

func newLoop(e *Engine, r scene.Renderer) *Loop {
	return &Loop{e: e, renderer: r}
}

func (l *Loop) AddObserver(o FrameObserver) {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	l.observers = append(l.observers, o)
}

// SetRenderer swaps the renderer used by subsequent frames.
func (l *Loop) SetRenderer(r scene.Renderer) {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	if r == nil {
		r = scene.Nop{}
	}
	l.renderer = r
}

func (l *Loop) State() LoopState {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.state
}

// Tick runs one frame for delta seconds of elapsed time. The frame is synced
// and rendered even when the world step fails; the step error is returned.
func (l *Loop) Tick(delta float64) (FrameStats, error) {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.tick(delta)
}

// Advance runs one frame using the wall time since the previous call. The
// first call steps with zero elapsed time and starts the loop.
func (l *Loop) Advance(now time.Time) (FrameStats, error) {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	delta := 0.0
	if l.state == Running && !l.last.IsZero() {
		delta = now.Sub(l.last).Seconds()
	}
	l.last = now
	return l.tick(delta)
}

// Run ticks at the given interval until ctx is cancelled. Frame errors are
// logged and the loop keeps going.
func (l *Loop) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second / time.Duration(l.e.cfg.Step.FrameRate)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := l.Advance(time.Now()); err != nil {
		l.e.logger.Warn("frame failed", "err", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := l.Advance(now); err != nil {
				l.e.logger.Warn("frame failed", "err", err)
			}
		}
	}
}

// Redraw renders the current scene without stepping the world.
func (l *Loop) Redraw() error {
	l.e.mu.Lock()
	defer l.e.mu.Unlock()
	return l.renderer.Render(l.e.graph, l.e.camera)
}

func (l *Loop) tick(delta float64) (FrameStats, error) {
	e := l.e
	l.state = Running

	// a failed step still renders whatever state the world is in
	var errs []error
	n, err := e.world.Step(e.cfg.Step.FixedDt, delta, e.cfg.Step.MaxSubsteps)
	if err != nil {
		errs = append(errs, fmt.Errorf("step: %w", err))
	}

	e.reg.Each(func(_ registry.Handle, p registry.Pair) {
		p.Mesh.Transform.Position = p.Body.Position
		p.Mesh.Transform.Orientation = p.Body.Quaternion
	})

	l.frame++
	ws := e.world.Stats()
	stats := FrameStats{
		Frame:    l.frame,
		Delta:    delta,
		Substeps: n,
		Time:     ws.Time,
		Objects:  e.reg.Len(),
		Contacts: ws.Contacts,
		Sleeping: e.countsLocked().Sleeping,
		Triggers: e.audio.Triggers(),
	}

	if len(l.observers) > 0 {
		objects := e.snapshotLocked()
		for _, o := range l.observers {
			o.OnFrame(stats, objects)
		}
	}

	if err := l.renderer.Render(e.graph, e.camera); err != nil {
		errs = append(errs, fmt.Errorf("render: %w", err))
	}
	return stats, errors.Join(errs...)
}
