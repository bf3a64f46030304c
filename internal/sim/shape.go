package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/physics"
	"github.com/san-kum/dropsim/internal/scene"
)

// MinDimension is the smallest size a random draw is rounded up to.
const MinDimension = 0.01

// ShapeSpec describes the object to spawn. Build it with Sphere or Box.
type ShapeSpec struct {
	Kind   physics.ShapeKind
	Radius float64
	Width  float64
	Height float64
	Depth  float64
}

// Sphere describes a ball of radius r.
func Sphere(r float64) ShapeSpec {
	return ShapeSpec{Kind: physics.KindSphere, Radius: r}
}

// Box describes a box with full edge lengths w, h and d.
func Box(w, h, d float64) ShapeSpec {
	return ShapeSpec{Kind: physics.KindBox, Width: w, Height: h, Depth: d}
}

func (s ShapeSpec) String() string {
	switch s.Kind {
	case physics.KindSphere:
		return fmt.Sprintf("sphere(r=%.3f)", s.Radius)
	case physics.KindBox:
		return fmt.Sprintf("box(%.3fx%.3fx%.3f)", s.Width, s.Height, s.Depth)
	default:
		return "unknown"
	}
}

// Validate checks every dimension the shape uses.
func (s ShapeSpec) Validate() error {
	check := func(field string, v float64) error {
		if !(v > 0) || math.IsInf(v, 0) {
			return &ConfigurationError{Shape: s.Kind.String(), Field: field, Value: v, Wrapped: ErrInvalidDimension}
		}
		return nil
	}
	switch s.Kind {
	case physics.KindSphere:
		return check("radius", s.Radius)
	case physics.KindBox:
		if err := check("width", s.Width); err != nil {
			return err
		}
		if err := check("height", s.Height); err != nil {
			return err
		}
		return check("depth", s.Depth)
	default:
		return &ConfigurationError{Shape: s.Kind.String(), Field: "kind", Value: float64(s.Kind), Wrapped: ErrUnknownShape}
	}
}

func (s ShapeSpec) shape() physics.Shape {
	if s.Kind == physics.KindSphere {
		return &physics.Sphere{Radius: s.Radius}
	}
	return &physics.Box{HalfExtents: mgl64.Vec3{s.Width / 2, s.Height / 2, s.Depth / 2}}
}

func (s ShapeSpec) geometry() scene.GeometryKind {
	if s.Kind == physics.KindSphere {
		return scene.GeometrySphere
	}
	return scene.GeometryBox
}

// scale sizes the unit geometry to the spec.
func (s ShapeSpec) scale() mgl64.Vec3 {
	if s.Kind == physics.KindSphere {
		return mgl64.Vec3{s.Radius, s.Radius, s.Radius}
	}
	return mgl64.Vec3{s.Width, s.Height, s.Depth}
}

func validPosition(p mgl64.Vec3) error {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ConfigurationError{Shape: "position", Field: "xyz"[i : i+1], Value: v, Wrapped: ErrInvalidPosition}
		}
	}
	return nil
}

// RandomSphere draws a radius in (0, maxRadius].
func RandomSphere(rng *rand.Rand, maxRadius float64) ShapeSpec {
	return Sphere(draw(rng, maxRadius))
}

// RandomBox draws each edge in (0, maxSize].
func RandomBox(rng *rand.Rand, maxSize float64) ShapeSpec {
	return Box(draw(rng, maxSize), draw(rng, maxSize), draw(rng, maxSize))
}

// RandomPosition places x and z in [-spread/2, spread/2) at the given height.
func RandomPosition(rng *rand.Rand, spread, height float64) mgl64.Vec3 {
	x := (rng.Float64() - 0.5) * spread
	z := (rng.Float64() - 0.5) * spread
	return mgl64.Vec3{x, height, z}
}

func draw(rng *rand.Rand, max float64) float64 {
	return math.Max(rng.Float64()*max, MinDimension)
}
