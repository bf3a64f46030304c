package sim

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dropsim/internal/audio"
	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/logx"
	"github.com/san-kum/dropsim/internal/physics"
	"github.com/san-kum/dropsim/internal/registry"
	"github.com/san-kum/dropsim/internal/scene"
)

const frame = 1.0 / 60

func newTestEngine(opts ...Option) *Engine {
	opts = append([]Option{WithLogger(logx.Discard())}, opts...)
	e, err := NewEngine(config.DefaultConfig(), opts...)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func tickN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		_, err := e.Loop().Tick(frame)
		Expect(err).NotTo(HaveOccurred())
	}
}

var _ = Describe("Engine", func() {
	var e *Engine

	BeforeEach(func() {
		e = newTestEngine()
	})

	It("starts with only the floor", func() {
		Expect(e.Counts()).To(Equal(Counts{Objects: 0, Bodies: 1, Meshes: 1}))
		Expect(e.Floor()).NotTo(BeNil())
		Expect(e.Floor().IsStatic()).To(BeTrue())
	})

	It("rejects an invalid config", func() {
		cfg := config.DefaultConfig()
		cfg.Step.MaxSubsteps = 0
		_, err := NewEngine(cfg)
		Expect(err).To(HaveOccurred())
	})

	Describe("Factory", func() {
		It("wires body, mesh and listener together", func() {
			h, err := e.Factory().Create(Sphere(0.3), mgl64.Vec3{0.5, 3, -0.25})
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Valid()).To(BeTrue())

			Expect(e.Counts()).To(Equal(Counts{Objects: 1, Bodies: 2, Meshes: 2, Listeners: 1}))

			body, mesh, ok := e.Lookup(h)
			Expect(ok).To(BeTrue())
			Expect(body.Mass).To(Equal(1.0))
			Expect(body.Position).To(Equal(mgl64.Vec3{0.5, 3, -0.25}))
			Expect(mesh.Transform.Position).To(Equal(body.Position))
			Expect(mesh.Transform.Scale).To(Equal(mgl64.Vec3{0.3, 0.3, 0.3}))
			Expect(mesh.Kind()).To(Equal(scene.GeometrySphere))
		})

		It("moves new bodies from the spawn height to the requested position", func() {
			pos := mgl64.Vec3{1, 0.8, -1}
			Expect(pos.Y()).NotTo(Equal(e.Config().Spawn.Height))

			h, err := e.Factory().Create(Sphere(0.25), pos)
			Expect(err).NotTo(HaveOccurred())
			body, mesh, _ := e.Lookup(h)
			Expect(body.Position).To(Equal(pos))
			Expect(mesh.Transform.Position).To(Equal(pos))
			Expect(body.IsSleeping()).To(BeFalse())

			tickN(e, 1)
			Expect(body.Position.Y()).To(BeNumerically("~", pos.Y(), 0.01))
			Expect(body.Position.Y()).To(BeNumerically("<", pos.Y()))
		})

		It("scales boxes by their edge lengths", func() {
			h, err := e.Factory().Create(Box(0.2, 0.4, 0.6), mgl64.Vec3{0, 3, 0})
			Expect(err).NotTo(HaveOccurred())
			_, mesh, _ := e.Lookup(h)
			Expect(mesh.Transform.Scale).To(Equal(mgl64.Vec3{0.2, 0.4, 0.6}))
			Expect(mesh.Kind()).To(Equal(scene.GeometryBox))
		})

		It("shares one resource per shape kind", func() {
			for i := 0; i < 10; i++ {
				_, err := e.Factory().DropSphere()
				Expect(err).NotTo(HaveOccurred())
				_, err = e.Factory().DropBox()
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(e.Resources().Created()).To(Equal(3))
		})

		DescribeTable("rejects bad dimensions without side effects",
			func(spec ShapeSpec, pos mgl64.Vec3, sentinel error) {
				before := e.Counts()
				created := e.Resources().Created()

				h, err := e.Factory().Create(spec, pos)
				Expect(err).To(MatchError(sentinel))
				var cfgErr *ConfigurationError
				Expect(errors.As(err, &cfgErr)).To(BeTrue())
				Expect(h.Valid()).To(BeFalse())

				Expect(e.Counts()).To(Equal(before))
				Expect(e.Resources().Created()).To(Equal(created))
			},
			Entry("zero radius", Sphere(0), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("negative radius", Sphere(-1), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("NaN radius", Sphere(math.NaN()), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("infinite radius", Sphere(math.Inf(1)), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("flat box", Box(1, 0, 1), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("negative depth", Box(1, 1, -0.5), mgl64.Vec3{0, 3, 0}, ErrInvalidDimension),
			Entry("NaN position", Sphere(0.5), mgl64.Vec3{0, math.NaN(), 0}, ErrInvalidPosition),
			Entry("unknown shape", ShapeSpec{Kind: 99, Radius: 1}, mgl64.Vec3{0, 3, 0}, ErrUnknownShape),
		)
	})

	Describe("Reset", func() {
		It("returns zero on an empty engine", func() {
			Expect(e.Resetter().Reset()).To(Equal(0))
			Expect(e.Counts()).To(Equal(Counts{Bodies: 1, Meshes: 1}))
		})

		It("removes every object and leaves the floor", func() {
			for i := 0; i < 5; i++ {
				_, err := e.Factory().DropSphere()
				Expect(err).NotTo(HaveOccurred())
			}
			tickN(e, 30)

			Expect(e.Resetter().Reset()).To(Equal(5))
			Expect(e.Counts()).To(Equal(Counts{Bodies: 1, Meshes: 1}))
			Expect(e.Resetter().Reset()).To(Equal(0))

			tickN(e, 5)
			Expect(e.Counts().Bodies).To(Equal(1))
		})

		It("keeps registry, world and scene in step across interleavings", func() {
			var old []registry.Handle
			for round := 1; round <= 4; round++ {
				for i := 0; i < round; i++ {
					h, err := e.Factory().DropBox()
					Expect(err).NotTo(HaveOccurred())
					old = append(old, h)
				}
				tickN(e, 10)
				c := e.Counts()
				Expect(c.Objects).To(Equal(round))
				Expect(c.Bodies).To(Equal(round + 1))
				Expect(c.Meshes).To(Equal(round + 1))
				Expect(c.Listeners).To(Equal(round))
				Expect(e.Resetter().Reset()).To(Equal(round))
			}
			for _, h := range old {
				_, _, ok := e.Lookup(h)
				Expect(ok).To(BeFalse())
			}
		})

		It("removes single objects and ignores stale handles", func() {
			h1, _ := e.Factory().Create(Sphere(0.2), mgl64.Vec3{-1, 3, 0})
			h2, _ := e.Factory().Create(Sphere(0.2), mgl64.Vec3{1, 3, 0})

			Expect(e.Remove(h1)).To(BeTrue())
			Expect(e.Remove(h1)).To(BeFalse())
			Expect(e.Handles()).To(Equal([]registry.Handle{h2}))
			Expect(e.Counts()).To(Equal(Counts{Objects: 1, Bodies: 2, Meshes: 2, Listeners: 1}))
		})
	})

	Describe("Loop", func() {
		It("settles a dropped sphere on the floor", func() {
			h, err := e.Factory().Create(Sphere(0.5), mgl64.Vec3{0, 3, 0})
			Expect(err).NotTo(HaveOccurred())

			tickN(e, 6*60)

			body, mesh, _ := e.Lookup(h)
			Expect(body.Position.Y()).To(BeNumerically("~", 0.5, 0.02))
			Expect(body.Velocity.Len()).To(BeNumerically("<", 0.1))
			Expect(body.IsSleeping()).To(BeTrue())
			Expect(mesh.Transform.Position).To(Equal(body.Position))
			Expect(e.Counts().Sleeping).To(Equal(1))
		})

		It("syncs every mesh to its body before observers run", func() {
			for i := 0; i < 3; i++ {
				_, err := e.Factory().DropSphere()
				Expect(err).NotTo(HaveOccurred())
			}
			var seen []ObjectState
			e.Loop().AddObserver(ObserverFunc(func(_ FrameStats, objs []ObjectState) {
				seen = objs
			}))
			tickN(e, 20)

			Expect(seen).To(HaveLen(3))
			for _, s := range seen {
				_, mesh, ok := e.Lookup(s.Handle)
				Expect(ok).To(BeTrue())
				Expect(mesh.Transform.Position).To(Equal(s.Position))
				Expect(mesh.Transform.Orientation).To(Equal(s.Orientation))
			}
		})

		It("steps once on the first frame and by wall time afterwards", func() {
			Expect(e.Loop().State()).To(Equal(Idle))

			t0 := time.Unix(1000, 0)
			stats, err := e.Loop().Advance(t0)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Substeps).To(Equal(1))
			Expect(stats.Delta).To(BeZero())
			Expect(e.Loop().State()).To(Equal(Running))

			stats, err = e.Loop().Advance(t0.Add(40 * time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Substeps).To(Equal(2))
			Expect(stats.Frame).To(Equal(uint64(2)))

			stats, err = e.Loop().Advance(t0.Add(1040 * time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Substeps).To(Equal(3))
		})

		It("reports render errors and keeps going", func() {
			failing := scene.RendererFunc(func(*scene.Graph, scene.Camera) error {
				return errors.New("device lost")
			})
			e := newTestEngine(WithRenderer(failing))

			stats, err := e.Loop().Tick(frame)
			Expect(err).To(MatchError(ContainSubstring("device lost")))
			Expect(stats.Frame).To(Equal(uint64(1)))

			e.Loop().SetRenderer(nil)
			stats, err = e.Loop().Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Frame).To(Equal(uint64(2)))
		})

		It("renders the frame even when the step fails", func() {
			renders := 0
			counting := scene.RendererFunc(func(*scene.Graph, scene.Camera) error {
				renders++
				return nil
			})
			e := newTestEngine(WithRenderer(counting))
			frames := 0
			e.Loop().AddObserver(ObserverFunc(func(FrameStats, []ObjectState) { frames++ }))
			e.Config().Step.FixedDt = 0

			stats, err := e.Loop().Tick(frame)
			Expect(err).To(MatchError(physics.ErrInvalidTimestep))
			Expect(err).To(MatchError(ContainSubstring("step")))
			Expect(stats.Frame).To(Equal(uint64(1)))
			Expect(stats.Substeps).To(BeZero())
			Expect(frames).To(Equal(1))
			Expect(renders).To(Equal(1))

			e.Config().Step.FixedDt = frame
			_, err = e.Loop().Tick(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(renders).To(Equal(2))
		})

		It("returns step and render errors together", func() {
			failing := scene.RendererFunc(func(*scene.Graph, scene.Camera) error {
				return errors.New("device lost")
			})
			e := newTestEngine(WithRenderer(failing))
			e.Config().Step.MaxSubsteps = 0

			_, err := e.Loop().Tick(frame)
			Expect(err).To(MatchError(physics.ErrInvalidTimestep))
			Expect(err).To(MatchError(ContainSubstring("device lost")))
		})

		It("runs until the context is cancelled", func() {
			frames := 0
			e.Loop().AddObserver(ObserverFunc(func(FrameStats, []ObjectState) { frames++ }))

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
			defer cancel()
			err := e.Loop().Run(ctx, 5*time.Millisecond)

			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(frames).To(BeNumerically(">=", 2))
		})
	})

	Describe("collision audio", func() {
		It("plays the cue when a drop lands hard", func() {
			cue := &audio.RecordingCue{}
			e := newTestEngine(WithCue(cue))
			_, err := e.Factory().Create(Sphere(0.25), mgl64.Vec3{0, 3, 0})
			Expect(err).NotTo(HaveOccurred())

			tickN(e, 60)

			Expect(cue.PlayCount()).To(BeNumerically(">=", 1))
			Expect(e.Audio().Triggers()).To(BeNumerically(">=", 1))
			Expect(cue.Volume).To(And(BeNumerically(">=", 0), BeNumerically("<", 1)))
		})

		It("stays silent when audio is disabled", func() {
			cue := &audio.RecordingCue{}
			cfg := config.DefaultConfig()
			cfg.Audio.Enabled = false
			e, err := NewEngine(cfg, WithCue(cue), WithLogger(logx.Discard()))
			Expect(err).NotTo(HaveOccurred())
			_, err = e.Factory().Create(Sphere(0.25), mgl64.Vec3{0, 3, 0})
			Expect(err).NotTo(HaveOccurred())

			tickN(e, 60)
			Expect(cue.PlayCount()).To(BeZero())
		})
	})

	It("is deterministic for a given seed", func() {
		run := func() []ObjectState {
			e := newTestEngine(WithRand(rand.New(rand.NewSource(42))))
			for i := 0; i < 4; i++ {
				_, err := e.Factory().DropSphere()
				Expect(err).NotTo(HaveOccurred())
				_, err = e.Factory().DropBox()
				Expect(err).NotTo(HaveOccurred())
				tickN(e, 15)
			}
			tickN(e, 120)
			return e.Snapshot()
		}
		Expect(run()).To(Equal(run()))
	})
})
