package automation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/sim"
)

// SweepParams lists the config values a sweep can vary.
var SweepParams = []string{"restitution", "friction", "gravity", "threshold"}

// ParameterSweep drops one sphere per value of a config parameter.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Duration  float64
	Radius    float64
}

// SweepResult holds what a single drop did.
type SweepResult struct {
	ParamValue float64
	Rebound    float64
	SettleTime float64
	Triggers   uint64
	FinalY     float64
	Frames     int
}

// RunSweep executes a parameter sweep. SettleTime is -1 when the sphere never
// fell asleep.
func RunSweep(ctx context.Context, sweep *ParameterSweep, logger *slog.Logger) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one step")
	}
	if sweep.Base == nil {
		sweep.Base = config.DefaultConfig()
	}
	if sweep.Radius <= 0 {
		sweep.Radius = 0.5
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		cfg := *sweep.Base
		if err := SetParam(&cfg, sweep.ParamName, paramVal); err != nil {
			return nil, err
		}
		r, err := runDrop(ctx, &cfg, sweep.Radius, sweep.Duration, logger)
		if err != nil {
			return results, fmt.Errorf("sweep %s=%.4f: %w", sweep.ParamName, paramVal, err)
		}
		r.ParamValue = paramVal
		results = append(results, r)
	}
	return results, nil
}

// SetParam writes one named value into cfg.
func SetParam(cfg *config.Config, name string, v float64) error {
	switch name {
	case "restitution":
		cfg.Material.Restitution = v
	case "friction":
		cfg.Material.Friction = v
	case "gravity":
		cfg.World.Gravity = [3]float64{0, -v, 0}
	case "threshold":
		cfg.Audio.Threshold = v
	default:
		return fmt.Errorf("unknown sweep parameter: %s", name)
	}
	return nil
}

func runDrop(ctx context.Context, cfg *config.Config, radius, duration float64, logger *slog.Logger) (SweepResult, error) {
	opts := []sim.Option{}
	if logger != nil {
		opts = append(opts, sim.WithLogger(logger))
	}
	eng, err := sim.NewEngine(cfg, opts...)
	if err != nil {
		return SweepResult{}, err
	}
	if _, err := eng.Factory().Create(sim.Sphere(radius), mgl64.Vec3{0, cfg.Spawn.Height, 0}); err != nil {
		return SweepResult{}, err
	}

	res := SweepResult{SettleTime: -1}
	bounced := false
	eng.Loop().AddObserver(sim.ObserverFunc(func(stats sim.FrameStats, objects []sim.ObjectState) {
		if len(objects) == 0 {
			return
		}
		o := objects[0]
		res.FinalY = o.Position.Y()
		if !bounced && o.Velocity.Y() > 0 {
			bounced = true
		}
		if bounced && o.Position.Y()-radius > res.Rebound {
			res.Rebound = o.Position.Y() - radius
		}
		if o.Sleeping && res.SettleTime < 0 {
			res.SettleTime = stats.Time
		}
		res.Triggers = stats.Triggers
	}))

	frames := frameCount(duration, cfg.Step.FixedDt)
	for f := 0; f < frames; f++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if _, err := eng.Loop().Tick(cfg.Step.FixedDt); err != nil {
			return res, err
		}
		res.Frames++
	}
	return res, nil
}
