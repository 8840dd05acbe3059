package config

import (
	"slices"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Presets are complete configurations keyed by name.
var Presets = map[string]func() *Config{
	// rain is the classic setup: one ball every ten frames walking along the top edge.
	"rain": DefaultConfig,

	"pile": func() *Config {
		c := DefaultConfig()
		c.Sim.MaxRadius = 7
		c.Spawn.Every = 2
		c.Spawn.Radius = 5
		c.Spawn.RadiusJitter = 2
		c.Spawn.Limit = 800
		c.Spawn.Seed = 1
		c.Run.Frames = 2400
		return c
	},

	"drop": func() *Config {
		c := DefaultConfig()
		c.Sim.Gravity = dynamo.V(0, 30)
		c.Sim.Damping = 1
		c.Sim.SpawnOffset = dynamo.Vec2{}
		c.Spawn.Every = 0
		c.Run.Frames = 60
		return c
	},

	"bounce": func() *Config {
		c := DefaultConfig()
		c.Sim.Impulse = true
		c.Sim.Damping = 0.999
		c.Spawn.Every = 15
		c.Spawn.Restitution = 0.9
		c.Spawn.Limit = 60
		return c
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
