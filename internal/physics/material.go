package physics

// Material tags a body surface. Contact behaviour is looked up per material
// pair through ContactMaterial.
type Material struct {
	Name string
}

// ContactMaterial holds the friction and restitution used when two materials
// touch. Values are shared and never mutated after construction.
type ContactMaterial struct {
	A, B        *Material
	Friction    float64
	Restitution float64
}

// DefaultMaterial is assigned to bodies created without a material.
var DefaultMaterial = &Material{Name: "default"}

// DefaultContactMaterial applies to every pair with no registered override.
var DefaultContactMaterial = &ContactMaterial{
	A:           DefaultMaterial,
	B:           DefaultMaterial,
	Friction:    0.1,
	Restitution: 0.7,
}

type materialKey struct {
	a, b *Material
}

func keyFor(a, b *Material) materialKey {
	if a != nil && b != nil && a.Name > b.Name {
		a, b = b, a
	}
	return materialKey{a, b}
}
