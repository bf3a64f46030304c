package physics

import (
	"sort"
)

// Pair is a candidate collision pair produced by a broadphase.
type Pair struct {
	A, B *Body
}

// Broadphase prunes the set of body pairs that may be touching.
type Broadphase interface {
	Name() string
	Pairs(bodies []*Body) []Pair
}

// needsCollision filters out pairs where neither side can move.
func needsCollision(a, b *Body) bool {
	aActive := !a.IsStatic() && !a.IsSleeping()
	bActive := !b.IsStatic() && !b.IsSleeping()
	return aActive || bActive
}

// NaiveBroadphase tests every pair. It is kept as a reference for the
// sweep-based broadphase and for very small worlds.
type NaiveBroadphase struct{}

func NewNaiveBroadphase() *NaiveBroadphase { return &NaiveBroadphase{} }

func (n *NaiveBroadphase) Name() string { return "naive" }

func (n *NaiveBroadphase) Pairs(bodies []*Body) []Pair {
	var pairs []Pair
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			a, b := bodies[i], bodies[j]
			if !needsCollision(a, b) {
				continue
			}
			if a.AABB().Overlaps(b.AABB()) {
				pairs = append(pairs, Pair{a, b})
			}
		}
	}
	return pairs
}

// SAPBroadphase sorts bodies along one axis and sweeps for overlapping
// intervals. The axis is re-chosen every call as the one with the greatest
// spread of body centres.
type SAPBroadphase struct {
	entries []sapEntry
}

type sapEntry struct {
	body *Body
	box  AABB
}

func NewSAPBroadphase() *SAPBroadphase { return &SAPBroadphase{} }

func (s *SAPBroadphase) Name() string { return "sap" }

func (s *SAPBroadphase) Pairs(bodies []*Body) []Pair {
	s.entries = s.entries[:0]
	for _, b := range bodies {
		s.entries = append(s.entries, sapEntry{body: b, box: b.AABB()})
	}
	axis := s.pickAxis()

	sort.SliceStable(s.entries, func(i, j int) bool {
		return s.entries[i].box.Min[axis] < s.entries[j].box.Min[axis]
	})

	var pairs []Pair
	for i := range s.entries {
		ei := s.entries[i]
		for j := i + 1; j < len(s.entries); j++ {
			ej := s.entries[j]
			if ej.box.Min[axis] > ei.box.Max[axis] {
				break
			}
			if !needsCollision(ei.body, ej.body) {
				continue
			}
			if ei.box.Overlaps(ej.box) {
				pairs = append(pairs, Pair{ei.body, ej.body})
			}
		}
	}
	return pairs
}

func (s *SAPBroadphase) pickAxis() int {
	var sum, sum2 [3]float64
	n := 0
	for _, e := range s.entries {
		c, ok := e.box.Center()
		if !ok {
			continue
		}
		n++
		for i := 0; i < 3; i++ {
			sum[i] += c[i]
			sum2[i] += c[i] * c[i]
		}
	}
	if n < 2 {
		return 0
	}
	best, bestVar := 0, -1.0
	for i := 0; i < 3; i++ {
		mean := sum[i] / float64(n)
		v := sum2[i]/float64(n) - mean*mean
		if v > bestVar {
			best, bestVar = i, v
		}
	}
	return best
}
