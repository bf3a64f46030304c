package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// contact is one touching point between two bodies. The normal points from
// a towards b; ra and rb are offsets from each body centre to the point.
type contact struct {
	a, b   *Body
	normal mgl64.Vec3
	ra, rb mgl64.Vec3
	depth  float64

	// solver state
	material    *ContactMaterial
	massNormal  float64
	massTangent [2]float64
	tangents    [2]mgl64.Vec3
	bias        float64
	normalImp   float64
	tangentImp  [2]float64
	impactSpeed float64
}

func (c *contact) flip() {
	c.a, c.b = c.b, c.a
	c.ra, c.rb = c.rb, c.ra
	c.normal = c.normal.Mul(-1)
}

// collide generates contacts for a broadphase pair. Shapes are ordered so
// the handlers only see sphere<box<plane combinations.
func collide(a, b *Body) []contact {
	if a.Shape == nil || b.Shape == nil {
		return nil
	}
	swapped := false
	if a.Shape.Kind() > b.Shape.Kind() {
		a, b = b, a
		swapped = true
	}

	var out []contact
	switch {
	case a.Shape.Kind() == KindSphere && b.Shape.Kind() == KindSphere:
		out = sphereSphere(a, b)
	case a.Shape.Kind() == KindSphere && b.Shape.Kind() == KindBox:
		out = sphereBox(a, b)
	case a.Shape.Kind() == KindSphere && b.Shape.Kind() == KindPlane:
		out = spherePlane(a, b)
	case a.Shape.Kind() == KindBox && b.Shape.Kind() == KindBox:
		out = boxBox(a, b)
	case a.Shape.Kind() == KindBox && b.Shape.Kind() == KindPlane:
		out = boxPlane(a, b)
	}

	if swapped {
		for i := range out {
			out[i].flip()
		}
	}
	return out
}

func sphereSphere(a, b *Body) []contact {
	ra := a.Shape.(*Sphere).Radius
	rb := b.Shape.(*Sphere).Radius
	d := b.Position.Sub(a.Position)
	dist := d.Len()
	if dist >= ra+rb {
		return nil
	}
	n := mgl64.Vec3{0, 1, 0}
	if dist > 1e-12 {
		n = d.Mul(1 / dist)
	}
	return []contact{{
		a: a, b: b,
		normal: n,
		ra:     n.Mul(ra),
		rb:     n.Mul(-rb),
		depth:  ra + rb - dist,
	}}
}

func spherePlane(s, p *Body) []contact {
	r := s.Shape.(*Sphere).Radius
	n := p.Shape.(*Plane).Normal(p.Quaternion)
	dist := s.Position.Sub(p.Position).Dot(n) - r
	if dist >= 0 {
		return nil
	}
	point := s.Position.Sub(n.Mul(r))
	// normal runs from the sphere into the plane
	return []contact{{
		a: s, b: p,
		normal: n.Mul(-1),
		ra:     n.Mul(-r),
		rb:     point.Sub(p.Position),
		depth:  -dist,
	}}
}

func boxPlane(bx, p *Body) []contact {
	box := bx.Shape.(*Box)
	n := p.Shape.(*Plane).Normal(p.Quaternion)
	var out []contact
	for _, c := range box.Corners(bx.Position, bx.Quaternion) {
		d := c.Sub(p.Position).Dot(n)
		if d >= 0 {
			continue
		}
		out = append(out, contact{
			a: bx, b: p,
			normal: n.Mul(-1),
			ra:     c.Sub(bx.Position),
			rb:     c.Sub(p.Position),
			depth:  -d,
		})
	}
	return out
}

func sphereBox(s, bx *Body) []contact {
	r := s.Shape.(*Sphere).Radius
	h := bx.Shape.(*Box).HalfExtents
	inv := bx.Quaternion.Conjugate()
	local := inv.Rotate(s.Position.Sub(bx.Position))

	closest := mgl64.Vec3{
		mgl64.Clamp(local[0], -h[0], h[0]),
		mgl64.Clamp(local[1], -h[1], h[1]),
		mgl64.Clamp(local[2], -h[2], h[2]),
	}

	var nLocal mgl64.Vec3
	var depth float64
	diff := local.Sub(closest)
	if dist := diff.Len(); dist > 1e-12 {
		if dist >= r {
			return nil
		}
		nLocal = diff.Mul(1 / dist)
		depth = r - dist
	} else {
		// centre inside the box: push out through the nearest face
		axis, faceDist := 0, math.Inf(1)
		for i := 0; i < 3; i++ {
			if d := h[i] - math.Abs(local[i]); d < faceDist {
				axis, faceDist = i, d
			}
		}
		sign := 1.0
		if local[axis] < 0 {
			sign = -1
		}
		nLocal[axis] = sign
		closest[axis] = sign * h[axis]
		depth = r + faceDist
	}

	// nw points from the box towards the sphere
	nw := bx.Quaternion.Rotate(nLocal)
	point := bx.Position.Add(bx.Quaternion.Rotate(closest))
	return []contact{{
		a: s, b: bx,
		normal: nw.Mul(-1),
		ra:     nw.Mul(-r),
		rb:     point.Sub(bx.Position),
		depth:  depth,
	}}
}

// obb is a box in world space.
type obb struct {
	center mgl64.Vec3
	axes   [3]mgl64.Vec3
	half   mgl64.Vec3
}

func newOBB(b *Body) obb {
	q := b.Quaternion
	return obb{
		center: b.Position,
		axes:   [3]mgl64.Vec3{q.Rotate(mgl64.Vec3{1, 0, 0}), q.Rotate(mgl64.Vec3{0, 1, 0}), q.Rotate(mgl64.Vec3{0, 0, 1})},
		half:   b.Shape.(*Box).HalfExtents,
	}
}

// radius is the half length of the box projected onto unit axis l.
func (o obb) radius(l mgl64.Vec3) float64 {
	return o.half[0]*math.Abs(o.axes[0].Dot(l)) +
		o.half[1]*math.Abs(o.axes[1].Dot(l)) +
		o.half[2]*math.Abs(o.axes[2].Dot(l))
}

// edgeBias makes a face axis win over an edge axis of nearly equal depth.
const edgeBias = 1.05

// boxBox runs a separating-axis test over the 15 candidate axes: three face
// normals per box and the nine edge-edge cross products. The axis of least
// penetration picks the contact type: face contacts clip the incident face
// against the reference face, edge contacts use the closest points of the
// two edges.
func boxBox(a, b *Body) []contact {
	A, B := newOBB(a), newOBB(b)
	t := B.center.Sub(A.center)

	best, bestScore, bestDepth := -1, math.Inf(1), 0.0
	var bestAxis mgl64.Vec3
	test := func(axis mgl64.Vec3, id int) bool {
		l := axis.Len()
		if l < 1e-6 {
			// parallel edges; covered by the face axes
			return true
		}
		axis = axis.Mul(1 / l)
		d := t.Dot(axis)
		overlap := A.radius(axis) + B.radius(axis) - math.Abs(d)
		if overlap < 0 {
			return false
		}
		score := overlap
		if id >= 6 {
			score = overlap*edgeBias + 1e-4
		}
		if score < bestScore {
			if d < 0 {
				axis = axis.Mul(-1)
			}
			best, bestScore, bestDepth, bestAxis = id, score, overlap, axis
		}
		return true
	}

	for i := 0; i < 3; i++ {
		if !test(A.axes[i], i) {
			return nil
		}
	}
	for i := 0; i < 3; i++ {
		if !test(B.axes[i], 3+i) {
			return nil
		}
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if !test(A.axes[i].Cross(B.axes[j]), 6+i*3+j) {
				return nil
			}
		}
	}
	if best < 0 {
		return nil
	}

	n := bestAxis
	switch {
	case best < 3:
		return faceContacts(a, b, A, B, best, n, false)
	case best < 6:
		return faceContacts(b, a, B, A, best-3, n.Mul(-1), true)
	default:
		return edgeContact(a, b, A, B, (best-6)/3, (best-6)%3, n, bestDepth)
	}
}

// faceContacts clips the face of inc most opposed to nRef against the face
// of ref along axis. nRef points from ref towards inc. When flipped is set
// ref is the b side of the pair.
func faceContacts(refBody, incBody *Body, ref, inc obb, axis int, nRef mgl64.Vec3, flipped bool) []contact {
	faceCenter := ref.center.Add(nRef.Mul(ref.half[axis]))
	u, v := (axis+1)%3, (axis+2)%3

	m, maxDot := 0, -1.0
	for k := 0; k < 3; k++ {
		if d := math.Abs(inc.axes[k].Dot(nRef)); d > maxDot {
			m, maxDot = k, d
		}
	}
	incNormal := inc.axes[m]
	if incNormal.Dot(nRef) > 0 {
		incNormal = incNormal.Mul(-1)
	}
	ic := inc.center.Add(incNormal.Mul(inc.half[m]))
	iu := inc.axes[(m+1)%3].Mul(inc.half[(m+1)%3])
	iv := inc.axes[(m+2)%3].Mul(inc.half[(m+2)%3])
	poly := []mgl64.Vec3{
		ic.Add(iu).Add(iv),
		ic.Sub(iu).Add(iv),
		ic.Sub(iu).Sub(iv),
		ic.Add(iu).Sub(iv),
	}

	for _, k := range [2]int{u, v} {
		poly = clipPolygon(poly, ref.axes[k], ref.axes[k].Dot(ref.center)+ref.half[k])
		poly = clipPolygon(poly, ref.axes[k].Mul(-1), -ref.axes[k].Dot(ref.center)+ref.half[k])
		if len(poly) == 0 {
			return nil
		}
	}

	var out []contact
	for _, p := range poly {
		sep := p.Sub(faceCenter).Dot(nRef)
		if sep >= 0 {
			continue
		}
		point := p.Sub(nRef.Mul(sep / 2))
		c := contact{
			a: refBody, b: incBody,
			normal: nRef,
			ra:     point.Sub(refBody.Position),
			rb:     point.Sub(incBody.Position),
			depth:  -sep,
		}
		if flipped {
			c.flip()
		}
		out = append(out, c)
	}
	return out
}

// clipPolygon keeps the part of poly on the inside of the plane n.x <= d.
func clipPolygon(poly []mgl64.Vec3, n mgl64.Vec3, d float64) []mgl64.Vec3 {
	if len(poly) == 0 {
		return nil
	}
	out := make([]mgl64.Vec3, 0, len(poly)+1)
	prev := poly[len(poly)-1]
	prevDist := n.Dot(prev) - d
	for _, cur := range poly {
		curDist := n.Dot(cur) - d
		if (prevDist <= 0) != (curDist <= 0) {
			s := prevDist / (prevDist - curDist)
			out = append(out, prev.Add(cur.Sub(prev).Mul(s)))
		}
		if curDist <= 0 {
			out = append(out, cur)
		}
		prev, prevDist = cur, curDist
	}
	return out
}

// edgeContact joins edge i of A and edge j of B, each the edge furthest
// into the other box along n.
func edgeContact(a, b *Body, A, B obb, i, j int, n mgl64.Vec3, depth float64) []contact {
	pa := supportEdge(A, i, n)
	pb := supportEdge(B, j, n.Mul(-1))
	ca, cb := closestOnSegments(pa, A.axes[i], A.half[i], pb, B.axes[j], B.half[j])
	point := ca.Add(cb).Mul(0.5)
	return []contact{{
		a: a, b: b,
		normal: n,
		ra:     point.Sub(a.Position),
		rb:     point.Sub(b.Position),
		depth:  depth,
	}}
}

// supportEdge returns the midpoint of the edge along axis i furthest in dir.
func supportEdge(o obb, i int, dir mgl64.Vec3) mgl64.Vec3 {
	p := o.center
	for k := 0; k < 3; k++ {
		if k == i {
			continue
		}
		s := o.half[k]
		if o.axes[k].Dot(dir) < 0 {
			s = -s
		}
		p = p.Add(o.axes[k].Mul(s))
	}
	return p
}

// closestOnSegments returns the closest points of the segments p1+s*d1 and
// p2+t*d2 with unit directions, s in [-h1,h1] and t in [-h2,h2].
func closestOnSegments(p1, d1 mgl64.Vec3, h1 float64, p2, d2 mgl64.Vec3, h2 float64) (mgl64.Vec3, mgl64.Vec3) {
	r := p1.Sub(p2)
	b := d1.Dot(d2)
	c := d1.Dot(r)
	f := d2.Dot(r)

	s := 0.0
	if den := 1 - b*b; den > 1e-9 {
		s = mgl64.Clamp((b*f-c)/den, -h1, h1)
	}
	t := mgl64.Clamp(b*s+f, -h2, h2)
	s = mgl64.Clamp(b*t-c, -h1, h1)
	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}
