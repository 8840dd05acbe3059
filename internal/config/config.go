package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ballpit/internal/dynamo"
)

const (
	DefaultWidth           = 640.0
	DefaultHeight          = 480.0
	DefaultGravity         = 1000.0
	DefaultDamping         = 0.99
	DefaultSubsteps        = 8
	DefaultRadius          = 10.0
	DefaultMass            = 1.0
	DefaultRestitution     = 0.5
	DefaultEpsilon         = 1e-9
	DefaultCorrectionFloor = 0.2
	DefaultSpawnEvery      = 10
	DefaultTickRate        = 60.0
	DefaultFrames          = 600
)

type Config struct {
	Sim   Sim   `yaml:"sim"`
	Spawn Spawn `yaml:"spawn"`
	Run   Run   `yaml:"run"`
}

// Sim holds the tunables the simulation core is constructed with.
type Sim struct {
	Arena           dynamo.Bounds `yaml:"arena"`
	Gravity         dynamo.Vec2   `yaml:"gravity"`
	Damping         float64       `yaml:"damping"`
	Substeps        int           `yaml:"substeps"`
	MaxRadius       float64       `yaml:"max_radius"`
	Epsilon         float64       `yaml:"epsilon"`
	CorrectionFloor float64       `yaml:"correction_floor"`
	Impulse         bool          `yaml:"impulse"`
	SpawnOffset     dynamo.Vec2   `yaml:"spawn_offset"`
	Debug           bool          `yaml:"debug"`
}

// Spawn drives the cadence spawner.
type Spawn struct {
	Every        int     `yaml:"every"`
	Radius       float64 `yaml:"radius"`
	RadiusJitter float64 `yaml:"radius_jitter"`
	Mass         float64 `yaml:"mass"`
	Restitution  float64 `yaml:"restitution"`
	Y            float64 `yaml:"y"`
	Limit        int     `yaml:"limit"`
	Seed         int64   `yaml:"seed"`
}

// Run controls the host loop.
type Run struct {
	TickRate float64 `yaml:"tick_rate"`
	Frames   int     `yaml:"frames"`
}

func DefaultSim() Sim {
	return Sim{
		Arena:           dynamo.Bounds{Width: DefaultWidth, Height: DefaultHeight},
		Gravity:         dynamo.V(0, DefaultGravity),
		Damping:         DefaultDamping,
		Substeps:        DefaultSubsteps,
		MaxRadius:       DefaultRadius,
		Epsilon:         DefaultEpsilon,
		CorrectionFloor: DefaultCorrectionFloor,
		SpawnOffset:     dynamo.V(1, 0),
	}
}

func DefaultConfig() *Config {
	return &Config{
		Sim: DefaultSim(),
		Spawn: Spawn{
			Every:       DefaultSpawnEvery,
			Radius:      DefaultRadius,
			Mass:        DefaultMass,
			Restitution: DefaultRestitution,
			Y:           DefaultRadius,
		},
		Run: Run{
			TickRate: DefaultTickRate,
			Frames:   DefaultFrames,
		},
	}
}

// Dt is the fixed frame length derived from the tick rate.
func (r Run) Dt() float64 {
	if r.TickRate <= 0 {
		return 1 / DefaultTickRate
	}
	return 1 / r.TickRate
}

// CellSize is the broad-phase cell edge: one maximum diameter.
func (s Sim) CellSize() float64 {
	return 2 * s.MaxRadius
}

func (s Sim) Validate() error {
	switch {
	case !(s.Arena.Width > 0) || !(s.Arena.Height > 0):
		return invalid("arena must have positive size, got %vx%v", s.Arena.Width, s.Arena.Height)
	case !s.Gravity.IsFinite():
		return invalid("gravity must be finite")
	case !(s.Damping > 0 && s.Damping <= 1):
		return invalid("damping must be in (0,1], got %v", s.Damping)
	case s.Substeps < 1:
		return invalid("substeps must be at least 1, got %d", s.Substeps)
	case !(s.MaxRadius > 0) || math.IsInf(s.MaxRadius, 0):
		return invalid("max_radius must be positive, got %v", s.MaxRadius)
	case s.Epsilon < 0:
		return invalid("epsilon must be non-negative, got %v", s.Epsilon)
	case !(s.CorrectionFloor >= 0 && s.CorrectionFloor <= 1):
		return invalid("correction_floor must be in [0,1], got %v", s.CorrectionFloor)
	case !s.SpawnOffset.IsFinite():
		return invalid("spawn_offset must be finite")
	}
	return nil
}

func (s Spawn) Validate() error {
	switch {
	case s.Every < 0:
		return invalid("spawn.every must be non-negative, got %d", s.Every)
	case s.Every > 0 && !(s.Radius > 0):
		return invalid("spawn.radius must be positive, got %v", s.Radius)
	case s.RadiusJitter < 0:
		return invalid("spawn.radius_jitter must be non-negative, got %v", s.RadiusJitter)
	case s.Every > 0 && !(s.Mass > 0):
		return invalid("spawn.mass must be positive, got %v", s.Mass)
	case !(s.Restitution >= 0 && s.Restitution <= 1):
		return invalid("spawn.restitution must be in [0,1], got %v", s.Restitution)
	case s.Limit < 0:
		return invalid("spawn.limit must be non-negative, got %d", s.Limit)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Sim.Validate(); err != nil {
		return err
	}
	if err := c.Spawn.Validate(); err != nil {
		return err
	}
	if !(c.Run.TickRate > 0) {
		return invalid("run.tick_rate must be positive, got %v", c.Run.TickRate)
	}
	if c.Run.Frames < 0 {
		return invalid("run.frames must be non-negative, got %d", c.Run.Frames)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{dynamo.ErrInvalidConfig}, args...)...)
}

// Load reads a YAML file over the defaults, so partial files are fine.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
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
