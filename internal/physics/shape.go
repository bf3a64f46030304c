package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeKind identifies the concrete collision shape.
type ShapeKind int

const (
	KindSphere ShapeKind = iota
	KindBox
	KindPlane
)

func (k ShapeKind) String() string {
	switch k {
	case KindSphere:
		return "sphere"
	case KindBox:
		return "box"
	case KindPlane:
		return "plane"
	default:
		return "unknown"
	}
}

// Shape is the collision geometry attached to a body.
type Shape interface {
	Kind() ShapeKind
	// AABB returns the world-space bounds for the given pose.
	AABB(pos mgl64.Vec3, rot mgl64.Quat) AABB
	// Inertia returns the diagonal of the local inertia tensor for mass m.
	Inertia(m float64) mgl64.Vec3
	// BoundingRadius is used for sleep and broadphase heuristics.
	BoundingRadius() float64
}

// Sphere is a ball centred on the body origin.
type Sphere struct {
	Radius float64
}

func (s *Sphere) Kind() ShapeKind { return KindSphere }

func (s *Sphere) AABB(pos mgl64.Vec3, _ mgl64.Quat) AABB {
	r := mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: pos.Sub(r), Max: pos.Add(r)}
}

func (s *Sphere) Inertia(m float64) mgl64.Vec3 {
	i := 2.0 / 5.0 * m * s.Radius * s.Radius
	return mgl64.Vec3{i, i, i}
}

func (s *Sphere) BoundingRadius() float64 { return s.Radius }

// Box is an oriented box described by its half extents.
type Box struct {
	HalfExtents mgl64.Vec3
}

func (b *Box) Kind() ShapeKind { return KindBox }

func (b *Box) AABB(pos mgl64.Vec3, rot mgl64.Quat) AABB {
	// each rotated local axis contributes |axis| * half extent per world axis
	var ext mgl64.Vec3
	for i, axis := range [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		a := rot.Rotate(axis)
		h := b.HalfExtents[i]
		ext = ext.Add(mgl64.Vec3{math.Abs(a[0]) * h, math.Abs(a[1]) * h, math.Abs(a[2]) * h})
	}
	return AABB{Min: pos.Sub(ext), Max: pos.Add(ext)}
}

func (b *Box) Inertia(m float64) mgl64.Vec3 {
	x, y, z := 2*b.HalfExtents[0], 2*b.HalfExtents[1], 2*b.HalfExtents[2]
	return mgl64.Vec3{
		m / 12 * (y*y + z*z),
		m / 12 * (x*x + z*z),
		m / 12 * (x*x + y*y),
	}
}

func (b *Box) BoundingRadius() float64 { return b.HalfExtents.Len() }

// Corners returns the eight world-space vertices of the box.
func (b *Box) Corners(pos mgl64.Vec3, rot mgl64.Quat) [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	h := b.HalfExtents
	for i := 0; i < 8; i++ {
		local := mgl64.Vec3{h[0], h[1], h[2]}
		if i&1 != 0 {
			local[0] = -local[0]
		}
		if i&2 != 0 {
			local[1] = -local[1]
		}
		if i&4 != 0 {
			local[2] = -local[2]
		}
		out[i] = pos.Add(rot.Rotate(local))
	}
	return out
}

// Plane is an infinite static half-space whose local normal is +Y.
type Plane struct{}

func (p *Plane) Kind() ShapeKind { return KindPlane }

func (p *Plane) AABB(mgl64.Vec3, mgl64.Quat) AABB {
	inf := math.Inf(1)
	return AABB{Min: mgl64.Vec3{-inf, -inf, -inf}, Max: mgl64.Vec3{inf, inf, inf}}
}

func (p *Plane) Inertia(float64) mgl64.Vec3 { return mgl64.Vec3{} }

func (p *Plane) BoundingRadius() float64 { return math.Inf(1) }

// Normal returns the world-space plane normal for the given orientation.
func (p *Plane) Normal(rot mgl64.Quat) mgl64.Vec3 {
	return rot.Rotate(mgl64.Vec3{0, 1, 0})
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl64.Vec3
}

// Overlaps reports whether two boxes intersect on all three axes.
func (a AABB) Overlaps(b AABB) bool {
	for i := 0; i < 3; i++ {
		if a.Max[i] < b.Min[i] || b.Max[i] < a.Min[i] {
			return false
		}
	}
	return true
}

// Center returns the midpoint, or false if either bound is infinite.
func (a AABB) Center() (mgl64.Vec3, bool) {
	for i := 0; i < 3; i++ {
		if math.IsInf(a.Min[i], 0) || math.IsInf(a.Max[i], 0) {
			return mgl64.Vec3{}, false
		}
	}
	return a.Min.Add(a.Max).Mul(0.5), true
}
