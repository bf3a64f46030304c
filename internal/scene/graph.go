package scene

// Graph is an ordered set of meshes. It is not safe for concurrent use; the
// simulation engine serialises access.
type Graph struct {
	meshes []*Mesh
	index  map[uint64]struct{}
}

func NewGraph() *Graph {
	return &Graph{index: make(map[uint64]struct{})}
}

// Add inserts a mesh. Adding a mesh twice has no effect.
func (g *Graph) Add(m *Mesh) {
	if m == nil || g.Has(m) {
		return
	}
	g.meshes = append(g.meshes, m)
	g.index[m.ID] = struct{}{}
}

// Remove deletes a mesh and reports whether it was present.
func (g *Graph) Remove(m *Mesh) bool {
	if !g.Has(m) {
		return false
	}
	for i, x := range g.meshes {
		if x == m {
			g.meshes = append(g.meshes[:i], g.meshes[i+1:]...)
			break
		}
	}
	delete(g.index, m.ID)
	return true
}

func (g *Graph) Has(m *Mesh) bool {
	if m == nil {
		return false
	}
	_, ok := g.index[m.ID]
	return ok
}

func (g *Graph) Len() int { return len(g.meshes) }

// Meshes returns the meshes in insertion order.
func (g *Graph) Meshes() []*Mesh {
	out := make([]*Mesh, len(g.meshes))
	copy(out, g.meshes)
	return out
}
