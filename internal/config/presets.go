package config

import "sort"

// Presets are named variations on the default configuration.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"bouncy": func(c *Config) {
		c.Material.Restitution = 0.95
		c.Material.Friction = 0.05
	},
	"icy": func(c *Config) {
		c.Material.Friction = 0
		c.Material.Restitution = 0.3
	},
	"heavy": func(c *Config) {
		c.World.Gravity = [3]float64{0, -25, 0}
		c.Material.Restitution = 0.2
		c.Audio.Threshold = 3
	},
	"moon": func(c *Config) {
		c.World.Gravity = [3]float64{0, -1.62, 0}
		c.Audio.Threshold = 0.8
	},
	"insomnia": func(c *Config) {
		c.World.AllowSleep = false
	},
}

// GetPreset returns a fresh config with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
