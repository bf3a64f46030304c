package physics

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ContactEvent reports a pair of bodies that started touching during a
// sub-step. ImpactSpeed is the closing speed along the contact normal,
// measured before the solver runs; it is positive when the bodies approach.
type ContactEvent struct {
	BodyA, BodyB *Body
	ImpactSpeed  float64
}

// Listener receives contact events for a body it is subscribed to.
type Listener interface {
	OnContact(ev ContactEvent)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev ContactEvent)

func (f ListenerFunc) OnContact(ev ContactEvent) { f(ev) }

// Subscription identifies one listener registration. The zero value is not a
// valid subscription.
type Subscription struct {
	id     uint64
	bodyID uint64
}

// Valid reports whether the subscription was issued by a world.
func (s Subscription) Valid() bool { return s.id != 0 }

type listenerEntry struct {
	id uint64
	l  Listener
}

type pairKey struct {
	lo, hi uint64
}

func makePairKey(a, b *Body) pairKey {
	if a.ID > b.ID {
		return pairKey{b.ID, a.ID}
	}
	return pairKey{a.ID, b.ID}
}

// Stats accumulates counters over the lifetime of a world.
type Stats struct {
	Substeps  uint64
	Time      float64
	Contacts  int
	Events    uint64
	Recovered uint64
	Dropped   float64
}

// Option configures a World.
type Option func(*World)

// WithSolver overrides the impulse solver settings.
func WithSolver(p SolverParams) Option {
	return func(w *World) { w.solver = p }
}

// WithSleepLimits sets the speed and rest time after which bodies sleep.
func WithSleepLimits(speed, seconds float64) Option {
	return func(w *World) {
		w.sleepSpeedLimit = speed
		w.sleepTimeLimit = seconds
	}
}

// WithDefaultContactMaterial replaces the fallback friction/restitution.
func WithDefaultContactMaterial(cm *ContactMaterial) Option {
	return func(w *World) { w.defaultContact = cm }
}

// WithLogger sets the logger used for recovered bodies.
func WithLogger(l *slog.Logger) Option {
	return func(w *World) { w.logger = l }
}

// World owns bodies and advances them in fixed sub-steps.
type World struct {
	gravity    mgl64.Vec3
	broadphase Broadphase
	allowSleep bool

	solver           SolverParams
	sleepSpeedLimit  float64
	sleepTimeLimit   float64
	defaultContact   *ContactMaterial
	contactMaterials map[materialKey]*ContactMaterial

	bodies    []*Body
	index     map[uint64]*Body
	listeners map[uint64][]listenerEntry
	nextSub   uint64

	accumulator float64
	contacts    []contact
	prevPairs   map[pairKey]struct{}
	currPairs   map[pairKey]struct{}
	stats       Stats
	logger      *slog.Logger
}

// New creates a world and initialises it with the given gravity, broadphase
// and sleep policy.
func New(gravity mgl64.Vec3, bp Broadphase, allowSleep bool, opts ...Option) *World {
	w := &World{
		solver:          DefaultSolverParams(),
		sleepSpeedLimit: 0.1,
		sleepTimeLimit:  1.0,
		defaultContact:  DefaultContactMaterial,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.Initialize(gravity, bp, allowSleep)
	return w
}

// Initialize resets the world to an empty state with new global settings.
// Options passed to New are kept.
func (w *World) Initialize(gravity mgl64.Vec3, bp Broadphase, allowSleep bool) {
	if bp == nil {
		bp = NewSAPBroadphase()
	}
	w.gravity = gravity
	w.broadphase = bp
	w.allowSleep = allowSleep
	w.contactMaterials = make(map[materialKey]*ContactMaterial)
	w.bodies = nil
	w.index = make(map[uint64]*Body)
	w.listeners = make(map[uint64][]listenerEntry)
	w.accumulator = 0
	w.prevPairs = make(map[pairKey]struct{})
	w.currPairs = make(map[pairKey]struct{})
	w.stats = Stats{}
}

func (w *World) Gravity() mgl64.Vec3        { return w.gravity }
func (w *World) Broadphase() Broadphase     { return w.broadphase }
func (w *World) AllowSleep() bool           { return w.allowSleep }
func (w *World) Stats() Stats               { return w.stats }
func (w *World) BodyCount() int             { return len(w.bodies) }
func (w *World) Has(b *Body) bool           { return b != nil && w.index[b.ID] == b }
func (w *World) Time() float64              { return w.stats.Time }
func (w *World) SolverParams() SolverParams { return w.solver }

// Bodies returns the bodies in insertion order.
func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// AddContactMaterial registers friction and restitution for a material pair.
func (w *World) AddContactMaterial(cm *ContactMaterial) {
	w.contactMaterials[keyFor(cm.A, cm.B)] = cm
}

func (w *World) contactMaterial(a, b *Material) *ContactMaterial {
	if cm, ok := w.contactMaterials[keyFor(a, b)]; ok {
		return cm
	}
	return w.defaultContact
}

// AddBody inserts a body. Adding a body already present does nothing.
func (w *World) AddBody(b *Body) error {
	if b == nil {
		return ErrNilBody
	}
	if b.Shape == nil {
		return ErrNilShape
	}
	if w.Has(b) {
		return nil
	}
	b.savePose()
	w.bodies = append(w.bodies, b)
	w.index[b.ID] = b
	return nil
}

// RemoveBody deletes a body and any listeners still attached to it.
// Removing a body that is not in the world is a no-op and returns false.
func (w *World) RemoveBody(b *Body) bool {
	if !w.Has(b) {
		return false
	}
	for i, x := range w.bodies {
		if x == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
	delete(w.index, b.ID)
	delete(w.listeners, b.ID)
	for k := range w.prevPairs {
		if k.lo == b.ID || k.hi == b.ID {
			delete(w.prevPairs, k)
		}
	}
	return true
}

// Subscribe attaches a contact listener to a body.
func (w *World) Subscribe(b *Body, l Listener) Subscription {
	w.nextSub++
	sub := Subscription{id: w.nextSub, bodyID: b.ID}
	w.listeners[b.ID] = append(w.listeners[b.ID], listenerEntry{id: sub.id, l: l})
	return sub
}

// Unsubscribe detaches a listener. Unknown subscriptions are ignored; the
// result reports whether a listener was removed.
func (w *World) Unsubscribe(sub Subscription) bool {
	entries := w.listeners[sub.bodyID]
	for i, e := range entries {
		if e.id == sub.id {
			w.listeners[sub.bodyID] = append(entries[:i:i], entries[i+1:]...)
			if len(w.listeners[sub.bodyID]) == 0 {
				delete(w.listeners, sub.bodyID)
			}
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners attached to a body.
func (w *World) ListenerCount(b *Body) int { return len(w.listeners[b.ID]) }

// Step advances the world by elapsed seconds of real time using sub-steps of
// fixedDt. At most maxSubsteps sub-steps run; whole steps beyond the cap are
// dropped rather than carried into later frames. An elapsed time of zero runs
// exactly one sub-step. It returns the number of sub-steps taken.
func (w *World) Step(fixedDt, elapsed float64, maxSubsteps int) (int, error) {
	if !(fixedDt > 0) || math.IsInf(fixedDt, 0) || maxSubsteps < 1 {
		return 0, ErrInvalidTimestep
	}
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed < 0 {
		elapsed = 0
	}

	if elapsed == 0 {
		w.internalStep(fixedDt)
		return 1, nil
	}

	w.accumulator += elapsed
	n := 0
	for w.accumulator >= fixedDt && n < maxSubsteps {
		w.internalStep(fixedDt)
		w.accumulator -= fixedDt
		n++
	}
	if w.accumulator >= fixedDt {
		rest := math.Mod(w.accumulator, fixedDt)
		w.stats.Dropped += w.accumulator - rest
		w.accumulator = rest
	}
	return n, nil
}

func (w *World) internalStep(dt float64) {
	for _, b := range w.bodies {
		if b.IsStatic() || b.IsSleeping() {
			continue
		}
		b.savePose()
		b.Velocity = b.Velocity.Add(w.gravity.Mul(dt))
	}

	w.contacts = w.contacts[:0]
	for _, p := range w.broadphase.Pairs(w.bodies) {
		w.contacts = append(w.contacts, collide(p.A, p.B)...)
	}

	for i := range w.contacts {
		w.wakeOnContact(&w.contacts[i])
	}
	for i := range w.contacts {
		c := &w.contacts[i]
		c.material = w.contactMaterial(c.a.Material, c.b.Material)
		w.solver.prepare(c, dt)
	}

	w.dispatchNewContacts()

	w.solver.solve(w.contacts)

	for _, b := range w.bodies {
		if b.IsStatic() || b.IsSleeping() {
			continue
		}
		b.integrate(dt)
		if w.allowSleep {
			b.updateSleep(dt, w.sleepSpeedLimit, w.sleepTimeLimit)
		}
		if !b.isFinite() {
			b.restore()
			w.stats.Recovered++
			w.logger.Warn("recovered non-finite body", "body", b.ID, "time", w.stats.Time)
		}
	}

	w.stats.Substeps++
	w.stats.Time += dt
	w.stats.Contacts = len(w.contacts)
}

func (w *World) wakeOnContact(c *contact) {
	limit2 := 2 * w.sleepSpeedLimit * w.sleepSpeedLimit
	wake := func(sleeper, other *Body) {
		if sleeper.IsSleeping() && !other.IsStatic() && !other.IsSleeping() && other.Speed2() >= limit2 {
			sleeper.WakeUp()
		}
	}
	wake(c.a, c.b)
	wake(c.b, c.a)
}

// dispatchNewContacts emits one event per pair that was not touching in the
// previous sub-step, in discovery order, using the largest impact speed
// among the pair's contact points.
func (w *World) dispatchNewContacts() {
	clear(w.currPairs)
	type pending struct {
		key pairKey
		ev  ContactEvent
	}
	var events []pending
	slot := make(map[pairKey]int)

	for i := range w.contacts {
		c := &w.contacts[i]
		key := makePairKey(c.a, c.b)
		w.currPairs[key] = struct{}{}
		if _, touching := w.prevPairs[key]; touching {
			continue
		}
		if j, ok := slot[key]; ok {
			events[j].ev.ImpactSpeed = math.Max(events[j].ev.ImpactSpeed, c.impactSpeed)
			continue
		}
		slot[key] = len(events)
		events = append(events, pending{key, ContactEvent{BodyA: c.a, BodyB: c.b, ImpactSpeed: c.impactSpeed}})
	}
	w.prevPairs, w.currPairs = w.currPairs, w.prevPairs

	for _, p := range events {
		w.stats.Events++
		w.notify(p.ev.BodyA, p.ev)
		w.notify(p.ev.BodyB, p.ev)
	}
}

func (w *World) notify(b *Body, ev ContactEvent) {
	entries := w.listeners[b.ID]
	if len(entries) == 0 {
		return
	}
	snapshot := make([]listenerEntry, len(entries))
	copy(snapshot, entries)
	for _, e := range snapshot {
		e.l.OnContact(ev)
	}
}
