package scene

import "sync"

// GeometryKind selects the unit geometry a resource describes.
type GeometryKind int

const (
	GeometryNone GeometryKind = iota
	GeometrySphere
	GeometryBox
	GeometryPlane
)

func (k GeometryKind) String() string {
	switch k {
	case GeometrySphere:
		return "sphere"
	case GeometryBox:
		return "box"
	case GeometryPlane:
		return "plane"
	default:
		return "none"
	}
}

// Geometry is unit-sized; instances are sized through Transform.Scale.
type Geometry struct {
	Kind     GeometryKind
	Segments int
	// Size is the edge length for planes and boxes and the radius for spheres.
	Size float64
}

// MaterialSpec describes surface shading.
type MaterialSpec struct {
	Color     string
	Metalness float64
	Roughness float64
}

// Resource pairs a geometry with its material.
type Resource struct {
	Geometry Geometry
	Material MaterialSpec
}

// ResourceCache creates one resource per geometry kind on first use and hands
// out the same pointer afterwards.
type ResourceCache struct {
	mu      sync.Mutex
	items   map[GeometryKind]*Resource
	created int
}

func NewResourceCache() *ResourceCache {
	return &ResourceCache{items: make(map[GeometryKind]*Resource)}
}

// Get returns the shared resource for kind, building it if needed.
func (c *ResourceCache) Get(kind GeometryKind) *Resource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.items[kind]; ok {
		return r
	}
	r := build(kind)
	c.items[kind] = r
	c.created++
	return r
}

// Created returns how many resources have been built.
func (c *ResourceCache) Created() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created
}

func build(kind GeometryKind) *Resource {
	mat := MaterialSpec{Color: "#ffffff", Metalness: 0.3, Roughness: 0.4}
	switch kind {
	case GeometrySphere:
		return &Resource{Geometry: Geometry{Kind: kind, Segments: 20, Size: 1}, Material: mat}
	case GeometryBox:
		return &Resource{Geometry: Geometry{Kind: kind, Segments: 1, Size: 1}, Material: mat}
	case GeometryPlane:
		mat.Color = "#777777"
		return &Resource{Geometry: Geometry{Kind: kind, Segments: 1, Size: 10}, Material: mat}
	default:
		return &Resource{Geometry: Geometry{Kind: GeometryNone}, Material: mat}
	}
}
