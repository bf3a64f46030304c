package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SolverParams tunes the sequential impulse solver.
type SolverParams struct {
	Iterations int
	// Baumgarte factor for penetration recovery.
	Beta float64
	// Penetration tolerated without correction.
	Slop float64
	// Approach speeds below this do not bounce.
	RestitutionThreshold float64
}

// DefaultSolverParams returns the settings used by New.
func DefaultSolverParams() SolverParams {
	return SolverParams{
		Iterations:           10,
		Beta:                 0.2,
		Slop:                 0.005,
		RestitutionThreshold: 1.0,
	}
}

// tangentBasis returns two unit vectors orthogonal to n and to each other.
func tangentBasis(n mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var t1 mgl64.Vec3
	if math.Abs(n[0]) > 0.57735 {
		t1 = mgl64.Vec3{n[1], -n[0], 0}
	} else {
		t1 = mgl64.Vec3{0, n[2], -n[1]}
	}
	t1 = t1.Normalize()
	return t1, n.Cross(t1)
}

func effectiveMass(c *contact, dir mgl64.Vec3) float64 {
	ia, ib := c.a.solverInvMass(), c.b.solverInvMass()
	raxd := c.ra.Cross(dir)
	rbxd := c.rb.Cross(dir)
	k := ia + ib + c.a.applyInvInertia(raxd).Dot(raxd) + c.b.applyInvInertia(rbxd).Dot(rbxd)
	if k <= 0 {
		return 0
	}
	return 1 / k
}

func relativeVelocity(c *contact) mgl64.Vec3 {
	return c.b.VelocityAt(c.rb).Sub(c.a.VelocityAt(c.ra))
}

// prepare computes the per-contact constants for one sub-step. It must run
// before any impulse is applied so impactSpeed reflects pre-solve motion.
func (p SolverParams) prepare(c *contact, dt float64) {
	c.massNormal = effectiveMass(c, c.normal)
	c.tangents[0], c.tangents[1] = tangentBasis(c.normal)
	c.massTangent[0] = effectiveMass(c, c.tangents[0])
	c.massTangent[1] = effectiveMass(c, c.tangents[1])

	vn := relativeVelocity(c).Dot(c.normal)
	c.impactSpeed = -vn

	bounce := 0.0
	if -vn > p.RestitutionThreshold {
		bounce = c.material.Restitution * -vn
	}
	push := p.Beta / dt * math.Max(c.depth-p.Slop, 0)
	c.bias = math.Max(bounce, push)
}

func applyImpulse(c *contact, imp mgl64.Vec3) {
	a, b := c.a, c.b
	a.Velocity = a.Velocity.Sub(imp.Mul(a.solverInvMass()))
	a.AngularVelocity = a.AngularVelocity.Sub(a.applyInvInertia(c.ra.Cross(imp)))
	b.Velocity = b.Velocity.Add(imp.Mul(b.solverInvMass()))
	b.AngularVelocity = b.AngularVelocity.Add(b.applyInvInertia(c.rb.Cross(imp)))
}

func (p SolverParams) iterate(c *contact) {
	vn := relativeVelocity(c).Dot(c.normal)
	lambda := c.massNormal * (-vn + c.bias)
	old := c.normalImp
	c.normalImp = math.Max(old+lambda, 0)
	applyImpulse(c, c.normal.Mul(c.normalImp-old))

	maxF := c.material.Friction * c.normalImp
	for i := 0; i < 2; i++ {
		t := c.tangents[i]
		vt := relativeVelocity(c).Dot(t)
		lambda := c.massTangent[i] * -vt
		old := c.tangentImp[i]
		c.tangentImp[i] = mgl64.Clamp(old+lambda, -maxF, maxF)
		applyImpulse(c, t.Mul(c.tangentImp[i]-old))
	}
}

// solve runs the impulse iterations over contacts already prepared.
func (p SolverParams) solve(contacts []contact) {
	for it := 0; it < p.Iterations; it++ {
		for i := range contacts {
			p.iterate(&contacts[i])
		}
	}
}
