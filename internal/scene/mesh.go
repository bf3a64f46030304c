// Package scene is the visual side of the simulation: meshes with per-instance
// transforms, shared geometry/material resources, and the renderer contract.
package scene

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform places a mesh in the world.
type Transform struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Scale       mgl64.Vec3
}

// IdentityTransform is a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{
		Orientation: mgl64.QuatIdent(),
		Scale:       mgl64.Vec3{1, 1, 1},
	}
}

var nextMeshID atomic.Uint64

// Mesh is one drawable instance. The Resource is shared between meshes of
// the same kind and must not be modified through a mesh.
type Mesh struct {
	ID         uint64
	Resource   *Resource
	Transform  Transform
	CastShadow bool
}

// NewMesh creates a mesh for res with an identity transform.
func NewMesh(res *Resource) *Mesh {
	return &Mesh{
		ID:         nextMeshID.Add(1),
		Resource:   res,
		Transform:  IdentityTransform(),
		CastShadow: true,
	}
}

// Kind is a shortcut for the geometry kind of the mesh's resource.
func (m *Mesh) Kind() GeometryKind {
	if m.Resource == nil {
		return GeometryNone
	}
	return m.Resource.Geometry.Kind
}
