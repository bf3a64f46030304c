package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFixedDt     = 1.0 / 60
	DefaultMaxSubsteps = 3
	DefaultFrameRate   = 60
	DefaultGravity     = -9.82
	DefaultFriction    = 0.1
	DefaultRestitution = 0.7
	DefaultThreshold   = 1.5
	DefaultSpawnHeight = 3.0
	DefaultSpawnSpread = 3.0
	DefaultMaxRadius   = 0.5
	DefaultMaxBoxSize  = 1.0
)

type Config struct {
	Seed     int64          `yaml:"seed"`
	World    WorldConfig    `yaml:"world"`
	Material MaterialConfig `yaml:"material"`
	Step     StepConfig     `yaml:"step"`
	Audio    AudioConfig    `yaml:"audio"`
	Spawn    SpawnConfig    `yaml:"spawn"`
	Camera   CameraConfig   `yaml:"camera"`
	Log      LogConfig      `yaml:"log"`
}

type WorldConfig struct {
	Gravity          [3]float64 `yaml:"gravity"`
	Broadphase       string     `yaml:"broadphase"`
	AllowSleep       bool       `yaml:"allow_sleep"`
	SleepSpeedLimit  float64    `yaml:"sleep_speed_limit"`
	SleepTimeLimit   float64    `yaml:"sleep_time_limit"`
	SolverIterations int        `yaml:"solver_iterations"`
	Floor            bool       `yaml:"floor"`
}

type MaterialConfig struct {
	Friction    float64 `yaml:"friction"`
	Restitution float64 `yaml:"restitution"`
}

type StepConfig struct {
	FixedDt     float64 `yaml:"fixed_dt"`
	MaxSubsteps int     `yaml:"max_substeps"`
	FrameRate   int     `yaml:"frame_rate"`
}

type AudioConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
}

type SpawnConfig struct {
	Height          float64 `yaml:"height"`
	Spread          float64 `yaml:"spread"`
	MaxSphereRadius float64 `yaml:"max_sphere_radius"`
	MaxBoxSize      float64 `yaml:"max_box_size"`
}

type CameraConfig struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
	Fov      float64    `yaml:"fov"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		World: WorldConfig{
			Gravity:          [3]float64{0, DefaultGravity, 0},
			Broadphase:       "sap",
			AllowSleep:       true,
			SleepSpeedLimit:  0.1,
			SleepTimeLimit:   1.0,
			SolverIterations: 10,
			Floor:            true,
		},
		Material: MaterialConfig{
			Friction:    DefaultFriction,
			Restitution: DefaultRestitution,
		},
		Step: StepConfig{
			FixedDt:     DefaultFixedDt,
			MaxSubsteps: DefaultMaxSubsteps,
			FrameRate:   DefaultFrameRate,
		},
		Audio: AudioConfig{
			Enabled:   true,
			Threshold: DefaultThreshold,
		},
		Spawn: SpawnConfig{
			Height:          DefaultSpawnHeight,
			Spread:          DefaultSpawnSpread,
			MaxSphereRadius: DefaultMaxRadius,
			MaxBoxSize:      DefaultMaxBoxSize,
		},
		Camera: CameraConfig{
			Position: [3]float64{-3, 3, 3},
			Fov:      75,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Validate() error {
	if !finite(c.Step.FixedDt) || c.Step.FixedDt <= 0 {
		return fmt.Errorf("fixed_dt must be positive and finite, got %f", c.Step.FixedDt)
	}
	if c.Step.MaxSubsteps < 1 {
		return fmt.Errorf("max_substeps must be at least 1, got %d", c.Step.MaxSubsteps)
	}
	if c.Step.FrameRate < 1 {
		return fmt.Errorf("frame_rate must be at least 1, got %d", c.Step.FrameRate)
	}
	for _, g := range c.World.Gravity {
		if !finite(g) {
			return fmt.Errorf("gravity must be finite, got %v", c.World.Gravity)
		}
	}
	switch c.World.Broadphase {
	case "sap", "naive":
	default:
		return fmt.Errorf("unknown broadphase: %s", c.World.Broadphase)
	}
	if c.World.SolverIterations < 1 {
		return fmt.Errorf("solver_iterations must be at least 1, got %d", c.World.SolverIterations)
	}
	if !finite(c.Material.Friction) || c.Material.Friction < 0 {
		return fmt.Errorf("friction must not be negative, got %f", c.Material.Friction)
	}
	if !(c.Material.Restitution >= 0 && c.Material.Restitution <= 1) {
		return fmt.Errorf("restitution must be within [0, 1], got %f", c.Material.Restitution)
	}
	if !finite(c.Audio.Threshold) || c.Audio.Threshold < 0 {
		return fmt.Errorf("audio threshold must not be negative, got %f", c.Audio.Threshold)
	}
	if !(c.Spawn.MaxSphereRadius > 0 && c.Spawn.MaxBoxSize > 0) ||
		!finite(c.Spawn.MaxSphereRadius) || !finite(c.Spawn.MaxBoxSize) {
		return fmt.Errorf("spawn sizes must be positive")
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
