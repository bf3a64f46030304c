package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/dropsim/internal/logx"
	"github.com/san-kum/dropsim/internal/sim"
)

const pileYAML = `
name: pile
preset: bouncy
seed: 7
steps:
  - action: spawn
    shape: sphere
    radius: 0.3
    position: [0, 2, 0]
  - action: drop
    shape: box
    count: 3
  - action: wait
    duration: 1
  - action: reset
  - action: spawn
    shape: box
    size: [0.5, 0.5, 0.5]
    count: 2
  - action: wait
    duration: 0.5
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, pileYAML))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if sc.Name != "pile" || len(sc.Steps) != 6 {
		t.Errorf("unexpected scenario %+v", sc)
	}
	if sc.Steps[0].Position == nil || sc.Steps[0].Position[1] != 2 {
		t.Errorf("expected position [0 2 0], got %v", sc.Steps[0].Position)
	}
	cfg := sc.Config()
	if cfg.Seed != 7 || cfg.Material.Restitution != 0.95 {
		t.Errorf("expected bouncy preset with seed 7, got %+v", cfg.Material)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		sc   Scenario
	}{
		{"unknown action", Scenario{Steps: []Step{{Action: "explode"}}}},
		{"bad radius", Scenario{Steps: []Step{{Action: "spawn", Shape: "sphere", Radius: 0}}}},
		{"bad shape", Scenario{Steps: []Step{{Action: "spawn", Shape: "cone", Radius: 1}}}},
		{"drop without shape", Scenario{Steps: []Step{{Action: "drop"}}}},
		{"zero wait", Scenario{Steps: []Step{{Action: "wait"}}}},
		{"unknown preset", Scenario{Preset: "lava"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.sc.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, pileYAML))
	if err != nil {
		t.Fatal(err)
	}
	eng, err := sim.NewEngine(sc.Config(), sim.WithLogger(logx.Discard()))
	if err != nil {
		t.Fatal(err)
	}

	res, err := RunScenario(context.Background(), eng, sc, logx.Discard())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Spawned != 6 {
		t.Errorf("expected 6 spawned, got %d", res.Spawned)
	}
	if res.Removed != 4 {
		t.Errorf("expected 4 removed, got %d", res.Removed)
	}
	if res.Frames != 90 {
		t.Errorf("expected 90 frames, got %d", res.Frames)
	}
	if c := eng.Counts(); c.Objects != 2 || c.Bodies != 3 {
		t.Errorf("unexpected counts %+v", c)
	}
}

func TestRunScenarioCancelled(t *testing.T) {
	sc := &Scenario{Steps: []Step{{Action: "wait", Duration: 10}}}
	eng, err := sim.NewEngine(sc.Config(), sim.WithLogger(logx.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RunScenario(ctx, eng, sc, nil); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunSweepRestitution(t *testing.T) {
	sweep := &ParameterSweep{
		ParamName: "restitution",
		ParamMin:  0.1,
		ParamMax:  0.9,
		NumSteps:  3,
		Duration:  2,
	}
	results, err := RunSweep(context.Background(), sweep, logx.Discard())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].ParamValue != 0.5 {
		t.Errorf("expected middle value 0.5, got %f", results[1].ParamValue)
	}
	if !(results[0].Rebound < results[2].Rebound) {
		t.Errorf("expected higher rebound for higher restitution, got %f vs %f",
			results[0].Rebound, results[2].Rebound)
	}
	for _, r := range results {
		if r.Frames != 120 {
			t.Errorf("expected 120 frames for 2s, got %d", r.Frames)
		}
		if r.Triggers == 0 {
			t.Errorf("expected the first impact to trigger audio at %f", r.ParamValue)
		}
	}
}

func TestFrameCount(t *testing.T) {
	tests := []struct {
		duration, dt float64
		want         int
	}{
		{5, 1.0 / 60, 300},
		{2, 1.0 / 60, 120},
		{1.5, 1.0 / 60, 90},
		{0.1, 1.0 / 30, 3},
		{0, 1.0 / 60, 0},
	}
	for _, tt := range tests {
		if got := frameCount(tt.duration, tt.dt); got != tt.want {
			t.Errorf("frameCount(%v, %v): expected %d, got %d", tt.duration, tt.dt, tt.want, got)
		}
	}
}

func TestSetParamUnknown(t *testing.T) {
	sweep := &ParameterSweep{ParamName: "color", NumSteps: 1, Duration: 0.1}
	if _, err := RunSweep(context.Background(), sweep, nil); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
