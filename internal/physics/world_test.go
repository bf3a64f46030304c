package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

var earthGravity = mgl64.Vec3{0, -9.82, 0}

func newFloorWorld(t *testing.T, allowSleep bool) (*World, *Body) {
	t.Helper()
	w := New(earthGravity, NewSAPBroadphase(), allowSleep)
	floor := NewBody(0, &Plane{}, nil)
	require.NoError(t, w.AddBody(floor))
	return w, floor
}

func newSphere(r float64, pos mgl64.Vec3) *Body {
	b := NewBody(1, &Sphere{Radius: r}, nil)
	b.Position = pos
	return b
}

func simulate(t *testing.T, w *World, seconds float64) {
	t.Helper()
	for i := 0; i < int(math.Round(seconds/dt)); i++ {
		_, err := w.Step(dt, dt, 3)
		require.NoError(t, err)
	}
}

func TestStepRejectsInvalidTimestep(t *testing.T) {
	tests := []struct {
		name   string
		fixed  float64
		substp int
	}{
		{"zero dt", 0, 3},
		{"negative dt", -0.01, 3},
		{"nan dt", math.NaN(), 3},
		{"inf dt", math.Inf(1), 3},
		{"zero substeps", dt, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newFloorWorld(t, false)
			n, err := w.Step(tt.fixed, dt, tt.substp)
			assert.ErrorIs(t, err, ErrInvalidTimestep)
			assert.Zero(t, n)
			assert.Zero(t, w.Stats().Substeps)
		})
	}
}

func TestStepZeroElapsedRunsOneSubstep(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	n, err := w.Step(dt, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, dt, w.Time(), 1e-12)
}

func TestStepCapsSubstepsAndDropsExcess(t *testing.T) {
	w, _ := newFloorWorld(t, false)

	n, err := w.Step(dt, 1.005, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.InDelta(t, 0.95, w.Stats().Dropped, 1e-9)

	// only the sub-step remainder carries over
	n, err = w.Step(dt, 0.005, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = w.Step(dt, 0.01, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStepAccumulatesShortFrames(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	total := 0
	for i := 0; i < 4; i++ {
		n, err := w.Step(dt, dt/2, 3)
		require.NoError(t, err)
		total += n
	}
	assert.Equal(t, 2, total)
}

func TestAddBodyErrors(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	assert.ErrorIs(t, w.AddBody(nil), ErrNilBody)
	assert.ErrorIs(t, w.AddBody(NewBody(1, nil, nil)), ErrNilShape)

	b := newSphere(0.5, mgl64.Vec3{0, 2, 0})
	require.NoError(t, w.AddBody(b))
	require.NoError(t, w.AddBody(b))
	assert.Equal(t, 2, w.BodyCount())
}

func TestRemoveBodyAbsentIsNoop(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	b := newSphere(0.5, mgl64.Vec3{0, 2, 0})

	assert.False(t, w.RemoveBody(b))
	assert.False(t, w.RemoveBody(nil))

	require.NoError(t, w.AddBody(b))
	assert.True(t, w.RemoveBody(b))
	assert.False(t, w.RemoveBody(b))
	assert.Equal(t, 1, w.BodyCount())
}

func TestSphereSettlesOnFloor(t *testing.T) {
	w, _ := newFloorWorld(t, true)
	s := newSphere(0.5, mgl64.Vec3{0, 3, 0})
	require.NoError(t, w.AddBody(s))

	simulate(t, w, 6)

	assert.InDelta(t, 0.5, s.Position.Y(), 0.02)
	assert.Less(t, s.Velocity.Len(), 0.1)
	assert.True(t, s.IsSleeping(), "sphere should be asleep, state %v", s.SleepState())
}

func TestSphereBouncesWithRestitution(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 3, 0})
	require.NoError(t, w.AddBody(s))

	peak := 0.0
	landed := false
	for i := 0; i < 180; i++ {
		_, err := w.Step(dt, dt, 3)
		require.NoError(t, err)
		if s.Velocity.Y() > 0 {
			landed = true
		}
		if landed {
			peak = math.Max(peak, s.Position.Y())
		}
	}
	require.True(t, landed)
	// first bounce rises but loses energy
	assert.Greater(t, peak, 1.0)
	assert.Less(t, peak, 3.0)
}

func TestBoxSettlesOnFloor(t *testing.T) {
	w, _ := newFloorWorld(t, true)
	b := NewBody(1, &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, nil)
	b.Position = mgl64.Vec3{0.3, 2, -0.2}
	require.NoError(t, w.AddBody(b))

	simulate(t, w, 8)

	assert.InDelta(t, 0.5, b.Position.Y(), 0.03)
	assert.Less(t, b.Velocity.Len(), 0.1)
}

func TestSpheresStack(t *testing.T) {
	w, _ := newFloorWorld(t, true)
	low := newSphere(0.5, mgl64.Vec3{0, 0.5, 0})
	high := newSphere(0.5, mgl64.Vec3{0, 2.5, 0})
	require.NoError(t, w.AddBody(low))
	require.NoError(t, w.AddBody(high))

	simulate(t, w, 8)

	assert.Greater(t, high.Position.Y(), low.Position.Y())
	assert.GreaterOrEqual(t, high.Position.Sub(low.Position).Len(), 0.95)
}

func TestDeterministicTrajectories(t *testing.T) {
	frames := []float64{dt, 0.02, 0.011, dt, 0.05, 0.0, 0.033, 0.1, dt, 0.016}

	run := func() []mgl64.Vec3 {
		w, _ := newFloorWorld(t, true)
		rng := rand.New(rand.NewSource(7))
		var bodies []*Body
		for i := 0; i < 6; i++ {
			pos := mgl64.Vec3{(rng.Float64() - 0.5) * 3, 3 + float64(i)*0.6, (rng.Float64() - 0.5) * 3}
			var b *Body
			if i%2 == 0 {
				b = newSphere(0.2+rng.Float64()*0.3, pos)
			} else {
				b = NewBody(1, &Box{HalfExtents: mgl64.Vec3{0.3, 0.2, 0.25}}, nil)
				b.Position = pos
			}
			require.NoError(t, w.AddBody(b))
			bodies = append(bodies, b)
		}
		var out []mgl64.Vec3
		for k := 0; k < 30; k++ {
			for _, f := range frames {
				_, err := w.Step(dt, f, 3)
				require.NoError(t, err)
				for _, b := range bodies {
					out = append(out, b.Position, b.Quaternion.V)
				}
			}
		}
		return out
	}

	first, second := run(), run()
	require.Len(t, second, len(first))
	for i := range first {
		assert.True(t, first[i].ApproxEqualThreshold(second[i], 1e-9), "sample %d: %v != %v", i, first[i], second[i])
	}
}

func TestContactEventsBeforeStepReturns(t *testing.T) {
	w, floor := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 0.6, 0})
	s.Velocity = mgl64.Vec3{0, -5, 0}
	require.NoError(t, w.AddBody(s))

	var got []ContactEvent
	w.Subscribe(s, ListenerFunc(func(ev ContactEvent) { got = append(got, ev) }))

	for i := 0; i < 3 && len(got) == 0; i++ {
		_, err := w.Step(dt, dt, 1)
		require.NoError(t, err)
	}

	require.Len(t, got, 1)
	assert.ElementsMatch(t, []*Body{s, floor}, []*Body{got[0].BodyA, got[0].BodyB})
	assert.Greater(t, got[0].ImpactSpeed, 1.5)
}

func TestContactEventOncePerTouch(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 0.5, 0})
	require.NoError(t, w.AddBody(s))

	count := 0
	w.Subscribe(s, ListenerFunc(func(ContactEvent) { count++ }))
	simulate(t, w, 1)

	assert.Equal(t, 1, count)
}

func TestContactEventReachesBothBodies(t *testing.T) {
	w := New(mgl64.Vec3{}, NewSAPBroadphase(), false)
	a := newSphere(0.5, mgl64.Vec3{-1, 0, 0})
	b := newSphere(0.5, mgl64.Vec3{1, 0, 0})
	a.Velocity = mgl64.Vec3{3, 0, 0}
	b.Velocity = mgl64.Vec3{-3, 0, 0}
	require.NoError(t, w.AddBody(a))
	require.NoError(t, w.AddBody(b))

	var order []uint64
	w.Subscribe(a, ListenerFunc(func(ContactEvent) { order = append(order, a.ID) }))
	w.Subscribe(b, ListenerFunc(func(ev ContactEvent) {
		order = append(order, b.ID)
		assert.InDelta(t, 6, ev.ImpactSpeed, 1e-9)
	}))

	simulate(t, w, 0.5)
	assert.Equal(t, []uint64{a.ID, b.ID}, order)
	assert.Greater(t, b.Velocity.X(), 0.0)
}

func TestUnsubscribeStopsEvents(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 1, 0})
	require.NoError(t, w.AddBody(s))

	count := 0
	sub := w.Subscribe(s, ListenerFunc(func(ContactEvent) { count++ }))
	assert.True(t, sub.Valid())
	assert.Equal(t, 1, w.ListenerCount(s))

	assert.True(t, w.Unsubscribe(sub))
	assert.False(t, w.Unsubscribe(sub))
	assert.False(t, w.Unsubscribe(Subscription{}))
	assert.Zero(t, w.ListenerCount(s))

	simulate(t, w, 1)
	assert.Zero(t, count)
}

func TestRemoveBodyDropsListeners(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 1, 0})
	require.NoError(t, w.AddBody(s))
	w.Subscribe(s, ListenerFunc(func(ContactEvent) {}))

	w.RemoveBody(s)
	assert.Zero(t, w.ListenerCount(s))
}

func TestSleepingBodyWakesOnImpulse(t *testing.T) {
	w, _ := newFloorWorld(t, true)
	s := newSphere(0.5, mgl64.Vec3{0, 0.5, 0})
	require.NoError(t, w.AddBody(s))
	simulate(t, w, 2)
	require.True(t, s.IsSleeping())

	s.ApplyImpulse(mgl64.Vec3{0, 4, 0}, s.Position)
	assert.False(t, s.IsSleeping())
	simulate(t, w, 0.1)
	assert.Greater(t, s.Position.Y(), 0.6)
}

func TestSleepingBodyWokenByContact(t *testing.T) {
	w, _ := newFloorWorld(t, true)
	low := newSphere(0.5, mgl64.Vec3{0, 0.5, 0})
	require.NoError(t, w.AddBody(low))
	simulate(t, w, 2)
	require.True(t, low.IsSleeping())

	high := newSphere(0.5, mgl64.Vec3{0.2, 3, 0})
	require.NoError(t, w.AddBody(high))
	woke := false
	for i := 0; i < 120; i++ {
		_, err := w.Step(dt, dt, 3)
		require.NoError(t, err)
		if !low.IsSleeping() {
			woke = true
			break
		}
	}
	assert.True(t, woke)
}

func TestSleepDisabled(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 0.5, 0})
	require.NoError(t, w.AddBody(s))
	simulate(t, w, 3)
	assert.False(t, s.IsSleeping())
}

func TestNonFiniteBodyIsRecovered(t *testing.T) {
	w, _ := newFloorWorld(t, false)
	s := newSphere(0.5, mgl64.Vec3{0, 2, 0})
	require.NoError(t, w.AddBody(s))
	simulate(t, w, 0.1)
	before := s.Position

	s.Velocity = mgl64.Vec3{math.NaN(), 0, 0}
	_, err := w.Step(dt, dt, 3)
	require.NoError(t, err)

	assert.True(t, s.isFinite())
	assert.Equal(t, before, s.Position)
	assert.True(t, s.IsSleeping())
	assert.EqualValues(t, 1, w.Stats().Recovered)
}

func TestSetPositionMovesRestorePose(t *testing.T) {
	b := newSphere(0.5, mgl64.Vec3{0, 3, 0})
	b.Sleep()
	b.SetPosition(mgl64.Vec3{1, 0.8, -1})

	assert.False(t, b.IsSleeping())
	b.restore()
	assert.Equal(t, mgl64.Vec3{1, 0.8, -1}, b.Position)

	floor := NewBody(0, &Plane{}, nil)
	floor.SetPosition(mgl64.Vec3{0, -1, 0})
	assert.Equal(t, Awake, floor.SleepState())
}

func TestContactMaterialOverride(t *testing.T) {
	rubber := &Material{Name: "rubber"}
	w, floor := newFloorWorld(t, false)
	w.AddContactMaterial(&ContactMaterial{A: rubber, B: DefaultMaterial, Friction: 0.5, Restitution: 0})
	assert.Equal(t, 0.0, w.contactMaterial(floor.Material, rubber).Restitution)
	assert.Same(t, DefaultContactMaterial, w.contactMaterial(DefaultMaterial, DefaultMaterial))

	s := NewBody(1, &Sphere{Radius: 0.5}, rubber)
	s.Position = mgl64.Vec3{0, 3, 0}
	require.NoError(t, w.AddBody(s))
	simulate(t, w, 1.5)
	// a dead material never bounces back up
	assert.InDelta(t, 0.5, s.Position.Y(), 0.02)
}

func TestStaticBodiesNeverMove(t *testing.T) {
	w, floor := newFloorWorld(t, true)
	require.NoError(t, w.AddBody(newSphere(0.5, mgl64.Vec3{0, 1, 0})))
	simulate(t, w, 1)
	assert.Equal(t, mgl64.Vec3{}, floor.Position)
	assert.Equal(t, mgl64.QuatIdent(), floor.Quaternion)
}

func TestBoxLandsEdgeOnEdge(t *testing.T) {
	w := New(earthGravity, NewSAPBroadphase(), false)
	base := NewBody(0, &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, nil)
	base.Position = mgl64.Vec3{0, 1, 0}
	base.Quaternion = mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 0, 1})
	top := NewBody(1, &Box{HalfExtents: mgl64.Vec3{0.5, 0.5, 0.5}}, nil)
	top.Position = mgl64.Vec3{0, 3, 0}
	top.Quaternion = mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{1, 0, 0})
	require.NoError(t, w.AddBody(base))
	require.NoError(t, w.AddBody(top))

	var events []ContactEvent
	w.Subscribe(top, ListenerFunc(func(ev ContactEvent) { events = append(events, ev) }))

	// resting on the crossed edges puts the centre at 1 + sqrt(2)
	rest := 1 + math.Sqrt2
	lowest := top.Position.Y()
	for i := 0; i < 60; i++ {
		_, err := w.Step(dt, dt, 3)
		require.NoError(t, err)
		lowest = math.Min(lowest, top.Position.Y())
	}

	require.NotEmpty(t, events)
	assert.Greater(t, events[0].ImpactSpeed, 1.5)
	assert.Greater(t, lowest, rest-0.1)
}
