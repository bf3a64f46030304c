package sim

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/physics"
	"github.com/san-kum/dropsim/internal/registry"
	"github.com/san-kum/dropsim/internal/scene"
)

// Factory spawns paired body and mesh objects.
type Factory struct {
	e *Engine
}

// Create validates spec and pos, then adds a unit-mass body and a matching
// mesh at pos. On error nothing is added anywhere.
func (f *Factory) Create(spec ShapeSpec, pos mgl64.Vec3) (registry.Handle, error) {
	if err := spec.Validate(); err != nil {
		return registry.Handle{}, err
	}
	if err := validPosition(pos); err != nil {
		return registry.Handle{}, err
	}

	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.create(spec, pos)
}

// DropSphere spawns a random sphere over the floor.
func (f *Factory) DropSphere() (registry.Handle, error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	sp := f.e.cfg.Spawn
	spec := RandomSphere(f.e.rng, sp.MaxSphereRadius)
	return f.create(spec, RandomPosition(f.e.rng, sp.Spread, sp.Height))
}

// DropBox spawns a random box over the floor.
func (f *Factory) DropBox() (registry.Handle, error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	sp := f.e.cfg.Spawn
	spec := RandomBox(f.e.rng, sp.MaxBoxSize)
	return f.create(spec, RandomPosition(f.e.rng, sp.Spread, sp.Height))
}

// create runs with the engine lock held. The registry insert comes last so a
// handle is only issued for a fully wired object.
func (f *Factory) create(spec ShapeSpec, pos mgl64.Vec3) (registry.Handle, error) {
	e := f.e

	body := physics.NewBody(1, spec.shape(), e.material)
	body.Position = mgl64.Vec3{0, e.cfg.Spawn.Height, 0}
	body.SetPosition(pos)

	mesh := scene.NewMesh(e.cache.Get(spec.geometry()))
	mesh.Transform.Scale = spec.scale()
	mesh.Transform.Position = pos
	mesh.Transform.Orientation = body.Quaternion

	sub := e.world.Subscribe(body, e.audio)
	if err := e.world.AddBody(body); err != nil {
		e.world.Unsubscribe(sub)
		return registry.Handle{}, err
	}
	e.graph.Add(mesh)

	h := e.reg.Insert(registry.Pair{Body: body, Mesh: mesh, Sub: sub})
	e.logger.Debug("spawned object", "handle", h.String(), "shape", spec.String(),
		"x", pos[0], "y", pos[1], "z", pos[2])
	return h, nil
}
