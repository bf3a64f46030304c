package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.World.Gravity[1] != -9.82 {
		t.Errorf("expected gravity -9.82, got %f", cfg.World.Gravity[1])
	}
	if cfg.Step.FixedDt != 1.0/60 {
		t.Errorf("expected fixed dt 1/60, got %f", cfg.Step.FixedDt)
	}
	if cfg.Step.MaxSubsteps != 3 {
		t.Errorf("expected 3 substeps, got %d", cfg.Step.MaxSubsteps)
	}
	if cfg.Material.Friction != 0.1 || cfg.Material.Restitution != 0.7 {
		t.Errorf("unexpected material %+v", cfg.Material)
	}
	if cfg.Audio.Threshold != 1.5 {
		t.Errorf("expected threshold 1.5, got %f", cfg.Audio.Threshold)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Step.FixedDt = 0 }},
		{"nan dt", func(c *Config) { c.Step.FixedDt = math.NaN() }},
		{"infinite dt", func(c *Config) { c.Step.FixedDt = math.Inf(1) }},
		{"nan gravity", func(c *Config) { c.World.Gravity[1] = math.NaN() }},
		{"infinite gravity", func(c *Config) { c.World.Gravity[0] = math.Inf(-1) }},
		{"nan restitution", func(c *Config) { c.Material.Restitution = math.NaN() }},
		{"nan threshold", func(c *Config) { c.Audio.Threshold = math.NaN() }},
		{"zero substeps", func(c *Config) { c.Step.MaxSubsteps = 0 }},
		{"zero frame rate", func(c *Config) { c.Step.FrameRate = 0 }},
		{"bad broadphase", func(c *Config) { c.World.Broadphase = "octree" }},
		{"no solver iterations", func(c *Config) { c.World.SolverIterations = 0 }},
		{"negative friction", func(c *Config) { c.Material.Friction = -1 }},
		{"restitution above one", func(c *Config) { c.Material.Restitution = 1.5 }},
		{"negative threshold", func(c *Config) { c.Audio.Threshold = -1 }},
		{"zero radius", func(c *Config) { c.Spawn.MaxSphereRadius = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := []byte("material:\n  restitution: 0.2\nstep:\n  max_substeps: 5\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Material.Restitution != 0.2 {
		t.Errorf("expected restitution 0.2, got %f", cfg.Material.Restitution)
	}
	if cfg.Material.Friction != DefaultFriction {
		t.Errorf("expected default friction kept, got %f", cfg.Material.Friction)
	}
	if cfg.Step.MaxSubsteps != 5 {
		t.Errorf("expected 5 substeps, got %d", cfg.Step.MaxSubsteps)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("step:\n  fixed_dt: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("moon")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.World.Gravity != cfg.World.Gravity {
		t.Errorf("expected gravity %v, got %v", cfg.World.Gravity, loaded.World.Gravity)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("bouncy")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Material.Restitution != 0.95 {
		t.Errorf("expected restitution 0.95, got %f", cfg.Material.Restitution)
	}
	if DefaultConfig().Material.Restitution != DefaultRestitution {
		t.Error("preset leaked into defaults")
	}
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresetsSorted(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
}
