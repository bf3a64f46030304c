// Package sim ties the physics world, the object registry, the scene graph
// and collision audio together behind a single lock, and drives them with a
// fixed-rate frame loop.
package sim

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/audio"
	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/physics"
	"github.com/san-kum/dropsim/internal/registry"
	"github.com/san-kum/dropsim/internal/scene"
)

// Engine owns every piece of simulation state. Factory, Resetter and Loop
// hold its lock for the whole of each operation, so at most one of them
// mutates the world at a time. Contact listeners run under that lock and
// must not call back into the engine.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	world    *physics.World
	reg      *registry.Registry
	graph    *scene.Graph
	cache    *scene.ResourceCache
	audio    *audio.Controller
	material *physics.Material
	camera   scene.Camera
	rng      *rand.Rand
	logger   *slog.Logger

	floor     *physics.Body
	floorMesh *scene.Mesh

	factory  *Factory
	resetter *Resetter
	loop     *Loop
}

type options struct {
	cue      audio.Cue
	logger   *slog.Logger
	renderer scene.Renderer
	rng      *rand.Rand
}

// Option configures an Engine.
type Option func(*options)

// WithCue sets the sound played on hard contacts.
func WithCue(c audio.Cue) Option {
	return func(o *options) { o.cue = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRenderer sets the renderer the loop draws through.
func WithRenderer(r scene.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// WithRand overrides the source used for random spawns.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// NewEngine builds a world from cfg. A nil cfg selects the defaults.
func NewEngine(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	o := options{logger: slog.Default(), renderer: scene.Nop{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if o.cue == nil || !cfg.Audio.Enabled {
		o.cue = audio.NopCue{}
	}

	e := &Engine{
		cfg:      cfg,
		reg:      registry.New(),
		graph:    scene.NewGraph(),
		cache:    scene.NewResourceCache(),
		material: &physics.Material{Name: "object"},
		camera:   cameraFrom(cfg.Camera),
		rng:      o.rng,
		logger:   o.logger,
	}

	solver := physics.DefaultSolverParams()
	solver.Iterations = cfg.World.SolverIterations
	e.world = physics.New(
		vec(cfg.World.Gravity),
		broadphaseFor(cfg.World.Broadphase),
		cfg.World.AllowSleep,
		physics.WithSolver(solver),
		physics.WithSleepLimits(cfg.World.SleepSpeedLimit, cfg.World.SleepTimeLimit),
		physics.WithLogger(o.logger),
	)
	e.world.AddContactMaterial(&physics.ContactMaterial{
		A:           e.material,
		B:           e.material,
		Friction:    cfg.Material.Friction,
		Restitution: cfg.Material.Restitution,
	})

	e.audio = audio.NewController(o.cue,
		audio.WithThreshold(cfg.Audio.Threshold),
		audio.WithRand(rand.New(rand.NewSource(cfg.Seed+1))),
		audio.WithLogger(o.logger),
	)

	if cfg.World.Floor {
		if err := e.addFloor(); err != nil {
			return nil, err
		}
	}

	e.factory = &Factory{e: e}
	e.resetter = &Resetter{e: e}
	e.loop = newLoop(e, o.renderer)
	return e, nil
}

func (e *Engine) addFloor() error {
	e.floor = physics.NewBody(0, &physics.Plane{}, e.material)
	if err := e.world.AddBody(e.floor); err != nil {
		return fmt.Errorf("sim: add floor: %w", err)
	}
	e.floorMesh = scene.NewMesh(e.cache.Get(scene.GeometryPlane))
	e.floorMesh.CastShadow = false
	e.graph.Add(e.floorMesh)
	return nil
}

func (e *Engine) Factory() *Factory               { return e.factory }
func (e *Engine) Resetter() *Resetter             { return e.resetter }
func (e *Engine) Loop() *Loop                     { return e.loop }
func (e *Engine) Config() *config.Config          { return e.cfg }
func (e *Engine) Audio() *audio.Controller        { return e.audio }
func (e *Engine) Camera() scene.Camera            { return e.camera }
func (e *Engine) Floor() *physics.Body            { return e.floor }
func (e *Engine) Resources() *scene.ResourceCache { return e.cache }

// Remove tears down a single object. Stale handles are ignored.
func (e *Engine) Remove(h registry.Handle) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.reg.Get(h)
	if !ok {
		return false
	}
	e.teardown(p)
	e.reg.Remove(h)
	return true
}

// teardown detaches the listener before the body leaves the world.
func (e *Engine) teardown(p registry.Pair) {
	e.world.Unsubscribe(p.Sub)
	e.world.RemoveBody(p.Body)
	e.graph.Remove(p.Mesh)
}

// Counts is a consistency view across the three stores.
type Counts struct {
	Objects   int
	Bodies    int
	Meshes    int
	Listeners int
	Sleeping  int
}

// Counts reports live objects plus world and scene totals, floor included.
func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countsLocked()
}

func (e *Engine) countsLocked() Counts {
	c := Counts{
		Objects: e.reg.Len(),
		Bodies:  e.world.BodyCount(),
		Meshes:  e.graph.Len(),
	}
	for _, b := range e.world.Bodies() {
		c.Listeners += e.world.ListenerCount(b)
		if !b.IsStatic() && b.IsSleeping() {
			c.Sleeping++
		}
	}
	return c
}

// WorldStats returns the physics counters.
func (e *Engine) WorldStats() physics.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.world.Stats()
}

// Handles lists live objects in slot order.
func (e *Engine) Handles() []registry.Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []registry.Handle
	e.reg.Each(func(h registry.Handle, _ registry.Pair) {
		out = append(out, h)
	})
	return out
}

// Lookup returns the body and mesh behind a handle.
func (e *Engine) Lookup(h registry.Handle) (*physics.Body, *scene.Mesh, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.reg.Get(h)
	return p.Body, p.Mesh, ok
}

func broadphaseFor(name string) physics.Broadphase {
	if name == "naive" {
		return physics.NewNaiveBroadphase()
	}
	return physics.NewSAPBroadphase()
}

func cameraFrom(c config.CameraConfig) scene.Camera {
	cam := scene.DefaultCamera()
	cam.Position = vec(c.Position)
	cam.Target = vec(c.Target)
	if c.Fov > 0 {
		cam.Fov = c.Fov
	}
	return cam
}

func vec(v [3]float64) mgl64.Vec3 { return mgl64.Vec3{v[0], v[1], v[2]} }
