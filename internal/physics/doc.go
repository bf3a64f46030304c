// Package physics provides a small rigid-body world for sphere and box drop
// simulations.
//
// A [World] owns every [Body] added to it and advances them with a fixed
// sub-step:
//
//   - broadphase: [SAPBroadphase] (sort and sweep) or [NaiveBroadphase]
//   - narrowphase: sphere, box and static plane contacts
//   - solver: sequential impulses with restitution and Coulomb friction
//   - sleeping: bodies at rest drop out of integration until disturbed
//
// Contacts that begin during a sub-step are reported as [ContactEvent] values
// to the listeners subscribed on either body, synchronously and in discovery
// order, before the sub-step returns.
//
// # Stepping
//
// [World.Step] consumes real elapsed time in fixed-size sub-steps, capped per
// call so that a stalled frame cannot trigger unbounded catch-up:
//
//	w := physics.New(mgl64.Vec3{0, -9.82, 0}, physics.NewSAPBroadphase(), true)
//	w.AddBody(physics.NewBody(1, &physics.Sphere{Radius: 0.5}, nil))
//	n, err := w.Step(1.0/60, elapsed, 3)
package physics
