package metrics

import (
	"math"

	"github.com/san-kum/dropsim/internal/sim"
)

// TotalEnergy is the translational kinetic plus gravitational potential
// energy of the objects, with the floor at zero height.
func TotalEnergy(objects []sim.ObjectState, gravity float64) float64 {
	total := 0.0
	for _, o := range objects {
		v2 := o.Velocity.Dot(o.Velocity)
		total += 0.5*o.Mass*v2 + o.Mass*gravity*o.Position.Y()
	}
	return total
}

// Energy reports the mean total energy over observed frames.
type Energy struct {
	name        string
	gravity     float64
	samples     int
	totalEnergy float64
	last        float64
}

func NewEnergy(gravity float64) *Energy {
	return &Energy{
		name:    "energy",
		gravity: math.Abs(gravity),
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(_ sim.FrameStats, objects []sim.ObjectState) {
	e.last = TotalEnergy(objects, e.gravity)
	e.totalEnergy += e.last
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

// Last is the energy at the most recent frame.
func (e *Energy) Last() float64 { return e.last }

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
	e.last = 0
}

// PeakSpeed is the largest object speed seen.
type PeakSpeed struct {
	name string
	peak float64
}

func NewPeakSpeed() *PeakSpeed {
	return &PeakSpeed{name: "peak_speed"}
}

func (p *PeakSpeed) Name() string { return p.name }

func (p *PeakSpeed) Observe(_ sim.FrameStats, objects []sim.ObjectState) {
	for _, o := range objects {
		p.peak = math.Max(p.peak, o.Velocity.Len())
	}
}

func (p *PeakSpeed) Value() float64 { return p.peak }

func (p *PeakSpeed) Reset() { p.peak = 0 }
