// Package metrics summarises a run frame by frame.
package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/dropsim/internal/sim"
)

// Metric folds frames into a single number.
type Metric interface {
	Name() string
	Observe(stats sim.FrameStats, objects []sim.ObjectState)
	Value() float64
	Reset()
}

// Collector fans frames out to a set of metrics. It is a sim.FrameObserver.
type Collector struct {
	mu      sync.Mutex
	metrics []Metric
}

func NewCollector(ms ...Metric) *Collector {
	return &Collector{metrics: ms}
}

// Standard returns the metrics reported by the run and scenario commands.
func Standard(gravity float64) *Collector {
	return NewCollector(
		NewEnergy(gravity),
		NewPeakSpeed(),
		NewSettled(),
		NewTriggers(),
	)
}

func (c *Collector) Add(m Metric) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, m)
}

func (c *Collector) OnFrame(stats sim.FrameStats, objects []sim.ObjectState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.metrics {
		m.Observe(stats, objects)
	}
}

func (c *Collector) Values() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Names lists metric names in sorted order.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.metrics))
	for _, m := range c.metrics {
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}

func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.metrics {
		m.Reset()
	}
}
