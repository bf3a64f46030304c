// Package registry tracks live paired objects in an arena addressed by
// generational handles, so a handle to a removed object never resolves to
// whatever later reuses its slot.
package registry

import (
	"fmt"

	"github.com/san-kum/dropsim/internal/physics"
	"github.com/san-kum/dropsim/internal/scene"
)

// Handle addresses a registry slot. The zero Handle is never issued.
type Handle struct {
	Index uint32
	Gen   uint32
}

func (h Handle) String() string { return fmt.Sprintf("%d:%d", h.Index, h.Gen) }

// Valid reports whether h could have been issued by a registry.
func (h Handle) Valid() bool { return h.Gen != 0 }

// Pair links a body to its mesh. It owns neither: the world owns the body and
// the scene graph owns the mesh.
type Pair struct {
	Body *physics.Body
	Mesh *scene.Mesh
	Sub  physics.Subscription
}

// Entry is a handle with its pair, as returned by Snapshot.
type Entry struct {
	Handle Handle
	Pair   Pair
}

type slot struct {
	gen  uint32
	live bool
	pair Pair
}

// Registry is the arena. It is not safe for concurrent use.
type Registry struct {
	slots []slot
	free  []uint32
	live  int
}

func New() *Registry {
	return &Registry{}
}

// Insert stores a pair and returns its handle.
func (r *Registry) Insert(p Pair) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, slot{})
	}
	s := &r.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.live = true
	s.pair = p
	r.live++
	return Handle{Index: idx, Gen: s.gen}
}

func (r *Registry) slotFor(h Handle) *slot {
	if int(h.Index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil
	}
	return s
}

// Get resolves a handle.
func (r *Registry) Get(h Handle) (Pair, bool) {
	s := r.slotFor(h)
	if s == nil {
		return Pair{}, false
	}
	return s.pair, true
}

// Remove frees a slot. Stale or unknown handles are ignored.
func (r *Registry) Remove(h Handle) bool {
	s := r.slotFor(h)
	if s == nil {
		return false
	}
	s.live = false
	s.pair = Pair{}
	r.free = append(r.free, h.Index)
	r.live--
	return true
}

// Len returns the number of live pairs.
func (r *Registry) Len() int { return r.live }

// Each calls fn for every live pair in slot order.
func (r *Registry) Each(fn func(h Handle, p Pair)) {
	for i := range r.slots {
		s := &r.slots[i]
		if s.live {
			fn(Handle{Index: uint32(i), Gen: s.gen}, s.pair)
		}
	}
}

// Snapshot copies the live entries so callers can mutate the registry while
// walking the result.
func (r *Registry) Snapshot() []Entry {
	out := make([]Entry, 0, r.live)
	r.Each(func(h Handle, p Pair) {
		out = append(out, Entry{Handle: h, Pair: p})
	})
	return out
}

// Clear frees every slot. Generations are kept so old handles stay stale.
func (r *Registry) Clear() {
	r.free = r.free[:0]
	for i := len(r.slots) - 1; i >= 0; i-- {
		s := &r.slots[i]
		s.live = false
		s.pair = Pair{}
		r.free = append(r.free, uint32(i))
	}
	r.live = 0
}
