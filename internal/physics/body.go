package physics

import (
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// SleepState tracks whether a body takes part in integration.
type SleepState int

const (
	Awake SleepState = iota
	Sleepy
	Sleeping
)

func (s SleepState) String() string {
	switch s {
	case Awake:
		return "awake"
	case Sleepy:
		return "sleepy"
	case Sleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

var nextBodyID atomic.Uint64

// Body is a rigid body. Bodies with zero mass are static and never move.
type Body struct {
	ID    uint64
	Mass  float64
	Shape Shape

	Position        mgl64.Vec3
	Quaternion      mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3

	Material *Material

	invMass    float64
	invInertia mgl64.Vec3

	sleepState   SleepState
	sleepyTime   float64
	allowSleep   bool
	prevPosition mgl64.Vec3
	prevQuat     mgl64.Quat
}

// NewBody builds a body at the origin with identity orientation.
// A nil material selects DefaultMaterial.
func NewBody(mass float64, shape Shape, mat *Material) *Body {
	if mat == nil {
		mat = DefaultMaterial
	}
	if mass < 0 || math.IsNaN(mass) {
		mass = 0
	}
	b := &Body{
		ID:         nextBodyID.Add(1),
		Mass:       mass,
		Shape:      shape,
		Quaternion: mgl64.QuatIdent(),
		Material:   mat,
		allowSleep: true,
	}
	b.updateMassProperties()
	return b
}

func (b *Body) updateMassProperties() {
	if b.Mass <= 0 || b.Shape == nil {
		b.invMass = 0
		b.invInertia = mgl64.Vec3{}
		return
	}
	b.invMass = 1 / b.Mass
	in := b.Shape.Inertia(b.Mass)
	for i := range in {
		if in[i] > 0 {
			b.invInertia[i] = 1 / in[i]
		}
	}
}

// IsStatic reports whether the body has infinite mass.
func (b *Body) IsStatic() bool { return b.invMass == 0 }

// IsSleeping reports whether the body is excluded from integration.
func (b *Body) IsSleeping() bool { return b.sleepState == Sleeping }

// SleepState returns the current sleep state.
func (b *Body) SleepState() SleepState { return b.sleepState }

// SetAllowSleep toggles sleeping for this body only.
func (b *Body) SetAllowSleep(allow bool) {
	b.allowSleep = allow
	if !allow {
		b.WakeUp()
	}
}

// WakeUp returns a sleeping body to active integration.
func (b *Body) WakeUp() {
	b.sleepState = Awake
	b.sleepyTime = 0
}

// Sleep forces the body to rest immediately.
func (b *Body) Sleep() {
	b.sleepState = Sleeping
	b.Velocity = mgl64.Vec3{}
	b.AngularVelocity = mgl64.Vec3{}
}

// SetPosition moves the body without changing its velocity. The new position
// also becomes the pose restored after a non-finite step.
func (b *Body) SetPosition(p mgl64.Vec3) {
	b.Position = p
	b.savePose()
	if !b.IsStatic() {
		b.WakeUp()
	}
}

// ApplyImpulse changes momentum at a world-space point and wakes the body.
func (b *Body) ApplyImpulse(impulse, worldPoint mgl64.Vec3) {
	if b.IsStatic() {
		return
	}
	b.WakeUp()
	b.Velocity = b.Velocity.Add(impulse.Mul(b.invMass))
	r := worldPoint.Sub(b.Position)
	b.AngularVelocity = b.AngularVelocity.Add(b.applyInvInertia(r.Cross(impulse)))
}

// VelocityAt returns the velocity of a point given as an offset from the centre.
func (b *Body) VelocityAt(r mgl64.Vec3) mgl64.Vec3 {
	return b.Velocity.Add(b.AngularVelocity.Cross(r))
}

// Speed2 is the combined squared linear and angular speed used for sleeping.
func (b *Body) Speed2() float64 {
	return b.Velocity.LenSqr() + b.AngularVelocity.LenSqr()
}

// AABB returns the current world bounds.
func (b *Body) AABB() AABB {
	return b.Shape.AABB(b.Position, b.Quaternion)
}

// solverInvMass treats sleeping bodies as immovable.
func (b *Body) solverInvMass() float64 {
	if b.sleepState == Sleeping {
		return 0
	}
	return b.invMass
}

// applyInvInertia multiplies v by the world-space inverse inertia tensor.
func (b *Body) applyInvInertia(v mgl64.Vec3) mgl64.Vec3 {
	if b.invMass == 0 || b.sleepState == Sleeping {
		return mgl64.Vec3{}
	}
	local := b.Quaternion.Conjugate().Rotate(v)
	local = mgl64.Vec3{
		local[0] * b.invInertia[0],
		local[1] * b.invInertia[1],
		local[2] * b.invInertia[2],
	}
	return b.Quaternion.Rotate(local)
}

func (b *Body) integrate(dt float64) {
	b.Position = b.Position.Add(b.Velocity.Mul(dt))
	w := b.AngularVelocity
	if w.LenSqr() > 0 {
		spin := mgl64.Quat{W: 0, V: w}.Mul(b.Quaternion).Scale(0.5 * dt)
		b.Quaternion = b.Quaternion.Add(spin).Normalize()
	}
}

func (b *Body) updateSleep(dt, speedLimit, timeLimit float64) {
	if !b.allowSleep || b.IsStatic() {
		return
	}
	speed2 := b.Speed2()
	limit2 := speedLimit * speedLimit
	switch {
	case b.sleepState == Awake && speed2 < limit2:
		b.sleepState = Sleepy
		b.sleepyTime = 0
	case b.sleepState == Sleepy && speed2 > limit2:
		b.WakeUp()
	case b.sleepState == Sleepy:
		b.sleepyTime += dt
		if b.sleepyTime >= timeLimit {
			b.Sleep()
		}
	}
}

func (b *Body) savePose() {
	b.prevPosition = b.Position
	b.prevQuat = b.Quaternion
}

func (b *Body) isFinite() bool {
	for _, v := range [...]mgl64.Vec3{b.Position, b.Velocity, b.AngularVelocity, b.Quaternion.V} {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return !math.IsNaN(b.Quaternion.W) && !math.IsInf(b.Quaternion.W, 0)
}

// restore rewinds to the last finite pose and puts the body to sleep.
func (b *Body) restore() {
	b.Position = b.prevPosition
	b.Quaternion = b.prevQuat
	b.Sleep()
}
