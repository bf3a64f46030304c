package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/scene"
)

// Projector maps world points to canvas dots for one camera.
type Projector struct {
	viewProj mgl64.Mat4
	w, h     int
	right    mgl64.Vec3
}

// NewProjector builds a perspective projection for a w x h dot canvas. Zoom
// moves the eye towards (zoom > 1) or away from the target.
func NewProjector(cam scene.Camera, w, h int, zoom float64) *Projector {
	if zoom <= 0 {
		zoom = 1
	}
	eye := cam.Target.Add(cam.Position.Sub(cam.Target).Mul(1 / zoom))
	up := mgl64.Vec3{0, 1, 0}
	view := mgl64.LookAtV(eye, cam.Target, up)
	aspect := float64(w) / float64(h)
	proj := mgl64.Perspective(mgl64.DegToRad(cam.Fov), aspect, cam.Near, cam.Far)

	forward := cam.Target.Sub(eye).Normalize()
	return &Projector{
		viewProj: proj.Mul4(view),
		w:        w,
		h:        h,
		right:    forward.Cross(up).Normalize(),
	}
}

// Project returns the dot for p and whether p is in front of the camera.
func (p *Projector) Project(v mgl64.Vec3) (int, int, bool) {
	clip := p.viewProj.Mul4x1(v.Vec4(1))
	if clip.W() <= 1e-6 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := (ndc.X() + 1) / 2 * float64(p.w)
	y := (1 - ndc.Y()) / 2 * float64(p.h)
	return int(math.Round(x)), int(math.Round(y)), true
}

// Radius is the on-screen size in dots of a sphere of radius r at centre c.
func (p *Projector) Radius(c mgl64.Vec3, r float64) float64 {
	x0, y0, ok0 := p.Project(c)
	x1, y1, ok1 := p.Project(c.Add(p.right.Mul(r)))
	if !ok0 || !ok1 {
		return 0
	}
	return math.Hypot(float64(x1-x0), float64(y1-y0))
}

func (p *Projector) line(c *Canvas, a, b mgl64.Vec3) {
	x0, y0, ok0 := p.Project(a)
	x1, y1, ok1 := p.Project(b)
	if ok0 && ok1 {
		c.DrawLine(x0, y0, x1, y1)
	}
}

var boxEdges = [12][2]int{
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// DrawMesh draws a wireframe of m.
func (p *Projector) DrawMesh(c *Canvas, m *scene.Mesh) {
	tf := m.Transform
	switch m.Kind() {
	case scene.GeometryBox:
		var corners [8]mgl64.Vec3
		for i := range corners {
			local := mgl64.Vec3{0.5, 0.5, 0.5}
			for axis := 0; axis < 3; axis++ {
				if i&(1<<axis) != 0 {
					local[axis] = -local[axis]
				}
				local[axis] *= tf.Scale[axis]
			}
			corners[i] = tf.Position.Add(tf.Orientation.Rotate(local))
		}
		for _, e := range boxEdges {
			p.line(c, corners[e[0]], corners[e[1]])
		}

	case scene.GeometrySphere:
		r := tf.Scale.X()
		x, y, ok := p.Project(tf.Position)
		if !ok {
			return
		}
		c.DrawCircle(x, y, p.Radius(tf.Position, r))
		// spoke so rolling is visible
		p.line(c, tf.Position, tf.Position.Add(tf.Orientation.Rotate(mgl64.Vec3{r, 0, 0})))

	case scene.GeometryPlane:
		half := m.Resource.Geometry.Size / 2
		for i := -half; i <= half; i++ {
			p.line(c, tf.Position.Add(mgl64.Vec3{i, 0, -half}), tf.Position.Add(mgl64.Vec3{i, 0, half}))
			p.line(c, tf.Position.Add(mgl64.Vec3{-half, 0, i}), tf.Position.Add(mgl64.Vec3{half, 0, i}))
		}
	}
}
