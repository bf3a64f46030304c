package scene

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a perspective viewpoint.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Fov      float64
	Near     float64
	Far      float64
}

// DefaultCamera looks at the origin from above and to the side.
func DefaultCamera() Camera {
	return Camera{
		Position: mgl64.Vec3{-3, 3, 3},
		Fov:      75,
		Near:     0.1,
		Far:      100,
	}
}

// Renderer draws the current transforms of a graph. It must not mutate the
// graph.
type Renderer interface {
	Render(g *Graph, cam Camera) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(g *Graph, cam Camera) error

func (f RendererFunc) Render(g *Graph, cam Camera) error { return f(g, cam) }

// Nop discards frames.
type Nop struct{}

func (Nop) Render(*Graph, Camera) error { return nil }

// Multi fans a frame out to several renderers, continuing past failures.
type Multi []Renderer

func (m Multi) Render(g *Graph, cam Camera) error {
	var errs []error
	for _, r := range m {
		if err := r.Render(g, cam); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
