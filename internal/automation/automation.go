package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/sim"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of spawns, waits and resets.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Preset      string `yaml:"preset"`
	Seed        int64  `yaml:"seed"`
	Steps       []Step `yaml:"steps"`
}

// Step is a single scenario action: spawn, drop, wait or reset.
type Step struct {
	Action   string      `yaml:"action"`
	Shape    string      `yaml:"shape"`
	Radius   float64     `yaml:"radius"`
	Size     [3]float64  `yaml:"size"`
	Position *[3]float64 `yaml:"position"`
	Count    int         `yaml:"count"`
	Duration float64     `yaml:"duration"`
}

// Result summarises a scenario run.
type Result struct {
	Name    string
	Frames  int
	Spawned int
	Removed int
	SimTime float64
}

// LoadScenario loads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &scenario, nil
}

func (s *Scenario) Validate() error {
	if s.Preset != "" && config.GetPreset(s.Preset) == nil {
		return fmt.Errorf("unknown preset: %s", s.Preset)
	}
	for i, st := range s.Steps {
		switch st.Action {
		case "spawn":
			if _, err := st.spec(); err != nil {
				return fmt.Errorf("step %d: %w", i+1, err)
			}
		case "drop":
			if st.Shape != "sphere" && st.Shape != "box" {
				return fmt.Errorf("step %d: drop needs shape sphere or box, got %q", i+1, st.Shape)
			}
		case "wait":
			if !(st.Duration > 0) {
				return fmt.Errorf("step %d: wait duration must be positive", i+1)
			}
		case "reset":
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, st.Action)
		}
	}
	return nil
}

// Config returns the scenario's preset with its seed applied.
func (s *Scenario) Config() *config.Config {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if p := config.GetPreset(s.Preset); p != nil {
			cfg = p
		}
	}
	cfg.Seed = s.Seed
	return cfg
}

func (st Step) spec() (sim.ShapeSpec, error) {
	var spec sim.ShapeSpec
	switch st.Shape {
	case "sphere":
		spec = sim.Sphere(st.Radius)
	case "box":
		spec = sim.Box(st.Size[0], st.Size[1], st.Size[2])
	default:
		return spec, fmt.Errorf("unknown shape %q", st.Shape)
	}
	return spec, spec.Validate()
}

func (st Step) count() int {
	if st.Count < 1 {
		return 1
	}
	return st.Count
}

// RunScenario drives eng through every step, ticking at the fixed step rate
// during waits.
func RunScenario(ctx context.Context, eng *sim.Engine, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	res := &Result{Name: scenario.Name}
	cfg := eng.Config()

	for i, step := range scenario.Steps {
		logger.Debug("scenario step", "n", i+1, "action", step.Action)

		switch step.Action {
		case "spawn":
			spec, err := step.spec()
			if err != nil {
				return res, fmt.Errorf("step %d: %w", i+1, err)
			}
			pos := mgl64.Vec3{0, cfg.Spawn.Height, 0}
			if step.Position != nil {
				pos = mgl64.Vec3{step.Position[0], step.Position[1], step.Position[2]}
			}
			for n := 0; n < step.count(); n++ {
				if _, err := eng.Factory().Create(spec, pos); err != nil {
					return res, fmt.Errorf("step %d: %w", i+1, err)
				}
				res.Spawned++
			}

		case "drop":
			for n := 0; n < step.count(); n++ {
				var err error
				if step.Shape == "box" {
					_, err = eng.Factory().DropBox()
				} else {
					_, err = eng.Factory().DropSphere()
				}
				if err != nil {
					return res, fmt.Errorf("step %d: %w", i+1, err)
				}
				res.Spawned++
			}

		case "wait":
			frames := frameCount(step.Duration, cfg.Step.FixedDt)
			for f := 0; f < frames; f++ {
				select {
				case <-ctx.Done():
					return res, ctx.Err()
				default:
				}
				stats, err := eng.Loop().Tick(cfg.Step.FixedDt)
				if err != nil {
					return res, fmt.Errorf("step %d: %w", i+1, err)
				}
				res.Frames++
				res.SimTime = stats.Time
			}

		case "reset":
			res.Removed += eng.Resetter().Reset()

		default:
			return res, fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
	}

	return res, nil
}

// frameCount is the number of fixed steps that cover duration.
func frameCount(duration, dt float64) int {
	return int(math.Round(duration / dt))
}
