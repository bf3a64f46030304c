package metrics

import "github.com/san-kum/dropsim/internal/sim"

// Settled is the fraction of frames with at least one object in which every
// object was asleep.
type Settled struct {
	name    string
	resting int
	samples int
}

func NewSettled() *Settled {
	return &Settled{name: "settled"}
}

func (s *Settled) Name() string {
	return s.name
}

func (s *Settled) Observe(_ sim.FrameStats, objects []sim.ObjectState) {
	if len(objects) == 0 {
		return
	}
	s.samples++
	for _, o := range objects {
		if !o.Sleeping {
			return
		}
	}
	s.resting++
}

func (s *Settled) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.resting) / float64(s.samples)
}

func (s *Settled) Reset() {
	s.resting = 0
	s.samples = 0
}

// Triggers counts audio cue plays since the last reset.
type Triggers struct {
	name  string
	base  uint64
	last  uint64
	fresh bool
}

func NewTriggers() *Triggers {
	return &Triggers{name: "audio_triggers", fresh: true}
}

func (t *Triggers) Name() string {
	return t.name
}

func (t *Triggers) Observe(stats sim.FrameStats, _ []sim.ObjectState) {
	if t.fresh {
		t.base = stats.Triggers
		t.fresh = false
	}
	t.last = stats.Triggers
}

func (t *Triggers) Value() float64 {
	return float64(t.last - t.base)
}

func (t *Triggers) Reset() {
	t.base = t.last
	t.fresh = true
}
