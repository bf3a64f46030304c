// Package audio turns collision events into sound.
package audio

import (
	"log/slog"
	"math/rand"
	"sync/atomic"

	"github.com/san-kum/dropsim/internal/physics"
)

// DefaultThreshold is the impact speed a contact must exceed to be heard.
const DefaultThreshold = 1.5

// Controller gates contact events by impact speed and plays a shared cue at
// a random volume. It keeps no state beyond the cue and its counters.
type Controller struct {
	cue       Cue
	threshold float64
	rng       *rand.Rand
	logger    *slog.Logger

	triggers atomic.Uint64
	ignored  atomic.Uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithThreshold sets the exclusive lower bound on impact speed.
func WithThreshold(v float64) Option {
	return func(c *Controller) { c.threshold = v }
}

// WithRand sets the volume source. Only the caller's goroutine may use it.
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) { c.rng = r }
}

// WithLogger sets the logger for trigger diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func NewController(cue Cue, opts ...Option) *Controller {
	if cue == nil {
		cue = NopCue{}
	}
	c := &Controller{
		cue:       cue,
		threshold: DefaultThreshold,
		rng:       rand.New(rand.NewSource(rand.Int63())),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnContact implements physics.Listener.
func (c *Controller) OnContact(ev physics.ContactEvent) {
	if !(ev.ImpactSpeed > c.threshold) {
		c.ignored.Add(1)
		return
	}
	vol := c.rng.Float64()
	c.cue.SetVolume(vol)
	c.cue.Rewind()
	c.cue.Play()
	c.triggers.Add(1)
	c.logger.Debug("hit", "speed", ev.ImpactSpeed, "volume", vol)
}

func (c *Controller) Threshold() float64 { return c.threshold }
func (c *Controller) Triggers() uint64   { return c.triggers.Load() }
func (c *Controller) Ignored() uint64    { return c.ignored.Load() }
