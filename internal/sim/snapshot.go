package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/registry"
)

// ObjectState is a copy of one object's pose and motion.
type ObjectState struct {
	Handle          registry.Handle
	Kind            string
	Mass            float64
	Scale           mgl64.Vec3
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
	Sleeping        bool
}

// Snapshot copies the state of every live object in slot order.
func (e *Engine) Snapshot() []ObjectState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() []ObjectState {
	out := make([]ObjectState, 0, e.reg.Len())
	e.reg.Each(func(h registry.Handle, p registry.Pair) {
		out = append(out, ObjectState{
			Handle:          h,
			Kind:            p.Body.Shape.Kind().String(),
			Mass:            p.Body.Mass,
			Scale:           p.Mesh.Transform.Scale,
			Position:        p.Body.Position,
			Orientation:     p.Body.Quaternion,
			Velocity:        p.Body.Velocity,
			AngularVelocity: p.Body.AngularVelocity,
			Sleeping:        p.Body.IsSleeping(),
		})
	})
	return out
}
