package gui

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/scene"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColFloor   = rl.NewColor(40, 40, 40, 255)
	ColGrid    = rl.NewColor(60, 60, 60, 255)
	ColSphere  = rl.NewColor(210, 210, 220, 255)
	ColBox     = rl.NewColor(180, 190, 210, 255)
	ColWire    = rl.NewColor(90, 90, 100, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
)

// Window draws the scene graph with raylib. The window must already be open.
type Window struct {
	zoom float64
	hud  func()
}

func NewWindow() *Window {
	return &Window{zoom: 1}
}

// SetHUD registers a 2D overlay drawn after the scene.
func (w *Window) SetHUD(fn func()) { w.hud = fn }

func (w *Window) Zoom(factor float64) {
	w.zoom = math.Min(8, math.Max(0.25, w.zoom*factor))
}

func (w *Window) Render(g *scene.Graph, cam scene.Camera) error {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(w.camera(cam))
	for _, m := range g.Meshes() {
		drawMesh(m)
	}
	rl.EndMode3D()

	if w.hud != nil {
		w.hud()
	}
	rl.EndDrawing()
	return nil
}

func (w *Window) camera(cam scene.Camera) rl.Camera3D {
	eye := cam.Target.Add(cam.Position.Sub(cam.Target).Mul(1 / w.zoom))
	return rl.NewCamera3D(vec3(eye), vec3(cam.Target), rl.NewVector3(0, 1, 0), float32(cam.Fov), rl.CameraPerspective)
}

func drawMesh(m *scene.Mesh) {
	tf := m.Transform
	switch m.Kind() {
	case scene.GeometrySphere:
		pos := vec3(tf.Position)
		r := float32(tf.Scale.X())
		rl.DrawSphere(pos, r, ColSphere)
		rl.PushMatrix()
		rl.Translatef(pos.X, pos.Y, pos.Z)
		rotate(tf.Orientation)
		rl.DrawSphereWires(rl.NewVector3(0, 0, 0), r*1.01, 8, 12, ColWire)
		rl.PopMatrix()

	case scene.GeometryBox:
		pos := vec3(tf.Position)
		s := tf.Scale
		rl.PushMatrix()
		rl.Translatef(pos.X, pos.Y, pos.Z)
		rotate(tf.Orientation)
		rl.DrawCube(rl.NewVector3(0, 0, 0), float32(s[0]), float32(s[1]), float32(s[2]), ColBox)
		rl.DrawCubeWires(rl.NewVector3(0, 0, 0), float32(s[0]), float32(s[1]), float32(s[2]), ColWire)
		rl.PopMatrix()

	case scene.GeometryPlane:
		size := float32(m.Resource.Geometry.Size)
		rl.DrawPlane(vec3(tf.Position), rl.NewVector2(size, size), ColFloor)
		rl.DrawGrid(int32(size), 1)
	}
}

// rotate applies q to the current rlgl matrix.
func rotate(q mgl64.Quat) {
	angle, axis := axisAngle(q)
	if angle == 0 {
		return
	}
	rl.Rotatef(float32(mgl64.RadToDeg(angle)), float32(axis[0]), float32(axis[1]), float32(axis[2]))
}

func axisAngle(q mgl64.Quat) (float64, mgl64.Vec3) {
	q = q.Normalize()
	s := q.V.Len()
	if s < 1e-9 {
		return 0, mgl64.Vec3{0, 1, 0}
	}
	return 2 * math.Atan2(s, q.W), q.V.Mul(1 / s)
}

func vec3(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}
