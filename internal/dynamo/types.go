package dynamo

import (
	"fmt"
	"log/slog"
	"math"
)

// Particle is a single ball. Velocity is implicit: Position - PrevPosition.
type Particle struct {
	Position     Vec2
	PrevPosition Vec2
	Radius       float64
	Mass         float64
	Restitution  float64
}

// Velocity returns the per-frame displacement derived from position history.
func (p *Particle) Velocity() Vec2 {
	return p.Position.Sub(p.PrevPosition)
}

// InvMass returns 1/Mass, or 0 for zero and infinite mass.
func (p *Particle) InvMass() float64 {
	if p.Mass == 0 || math.IsInf(p.Mass, 0) {
		return 0
	}
	return 1 / p.Mass
}

// IsStatic reports whether the particle acts as an immovable anchor.
func (p *Particle) IsStatic() bool {
	return p.InvMass() == 0
}

// Validate checks the radius, mass and restitution invariants.
func (p *Particle) Validate() error {
	switch {
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return fmt.Errorf("%w: radius must be positive and finite, got %v", ErrInvalidSpawn, p.Radius)
	case !(p.Mass > 0):
		return fmt.Errorf("%w: mass must be positive, got %v", ErrInvalidSpawn, p.Mass)
	case !(p.Restitution >= 0 && p.Restitution <= 1):
		return fmt.Errorf("%w: restitution must be in [0,1], got %v", ErrInvalidSpawn, p.Restitution)
	case !p.Position.IsFinite() || !p.PrevPosition.IsFinite():
		return fmt.Errorf("%w: position must be finite", ErrInvalidSpawn)
	}
	return nil
}

// Body is one row of a render snapshot.
type Body struct {
	Position Vec2    `json:"position"`
	Radius   float64 `json:"radius"`
}

// Bounds is the arena rectangle [0,Width] x [0,Height].
type Bounds struct {
	Width  float64 `yaml:"width" json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

type Integrator interface {
	Integrate(p *Particle, dt float64, gravity Vec2)
}

// FrameStats summarises one completed Step.
type FrameStats struct {
	Frame          int
	Time           float64
	Particles      int
	Contacts       int
	WallHits       int
	Oversized      int
	MaxPenetration float64
	KineticEnergy  float64
}

// LogValue implements slog.LogValuer.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frame", s.Frame),
		slog.Float64("time", s.Time),
		slog.Int("particles", s.Particles),
		slog.Int("contacts", s.Contacts),
		slog.Int("wall_hits", s.WallHits),
		slog.Float64("max_penetration", s.MaxPenetration),
		slog.Float64("kinetic_energy", s.KineticEnergy),
	)
}

type Metric interface {
	Name() string
	Observe(s FrameStats)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s FrameStats)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(s FrameStats)

func (f ObserverFunc) OnStep(s FrameStats) { f(s) }
