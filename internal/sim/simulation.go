package sim

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/collision"
	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/integrators"
	"github.com/san-kum/ballpit/internal/physics"
	"github.com/san-kum/ballpit/internal/spatial"
)

// Simulation owns the particle store and broad phase. It is not safe for
// concurrent use; run independent simulations in parallel with Ensemble.
type Simulation struct {
	cfg        config.Sim
	log        *slog.Logger
	integrator dynamo.Integrator
	store      *arena.Store
	grid       *spatial.Grid
	detector   *collision.Detector
	resolver   *collision.Resolver
	contacts   []collision.Contact
	metrics    []dynamo.Metric
	observers  []dynamo.Observer

	frame int
	time  float64
	stats dynamo.FrameStats
}

type Option func(*Simulation)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

func WithIntegrator(in dynamo.Integrator) Option {
	return func(s *Simulation) {
		if in != nil {
			s.integrator = in
		}
	}
}

func WithObserver(o dynamo.Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, o) }
}

func WithMetric(m dynamo.Metric) Option {
	return func(s *Simulation) { s.metrics = append(s.metrics, m) }
}

// WithCapacity preallocates room for n particles.
func WithCapacity(n int) Option {
	return func(s *Simulation) { s.store = arena.NewStore(n) }
}

func New(cfg config.Sim, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		cfg:        cfg,
		log:        slog.New(slog.DiscardHandler),
		integrator: integrators.NewVerlet(cfg.Damping),
		store:      arena.NewStore(0),
		grid:       spatial.NewGrid(cfg.CellSize()),
		detector:   collision.NewDetector(cfg.Epsilon),
		resolver:   collision.NewResolver(cfg.CorrectionFloor, cfg.Impulse),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	s.log.Debug("simulation created",
		"arena", fmt.Sprintf("%vx%v", cfg.Arena.Width, cfg.Arena.Height),
		"substeps", cfg.Substeps,
		"cell_size", cfg.CellSize(),
		"impulse", cfg.Impulse)
	return s, nil
}

func (s *Simulation) Config() config.Sim { return s.cfg }

// Spawn adds a particle at (x, y) whose initial velocity is the configured
// spawn offset. Invalid requests leave the simulation untouched.
func (s *Simulation) Spawn(x, y, radius, mass, restitution float64) (arena.Handle, error) {
	pos := dynamo.V(x, y)
	return s.SpawnParticle(dynamo.Particle{
		Position:     pos,
		PrevPosition: pos.Sub(s.cfg.SpawnOffset),
		Radius:       radius,
		Mass:         mass,
		Restitution:  restitution,
	})
}

// SpawnParticle inserts a fully specified particle, velocity history included.
func (s *Simulation) SpawnParticle(p dynamo.Particle) (arena.Handle, error) {
	if err := p.Validate(); err != nil {
		return arena.Handle{}, err
	}
	if p.Radius > s.cfg.MaxRadius {
		s.log.Warn("radius exceeds grid cell, contacts may be missed",
			"radius", p.Radius, "max_radius", s.cfg.MaxRadius)
	}
	h := s.store.Insert(p)
	s.log.Debug("spawn", "index", h.Index(), "x", p.Position.X, "y", p.Position.Y, "radius", p.Radius)
	return h, nil
}

func (s *Simulation) Remove(h arena.Handle) error {
	if !s.store.Remove(h) {
		return fmt.Errorf("remove particle %d: %w", h.Index(), dynamo.ErrStaleHandle)
	}
	return nil
}

// Particle returns a copy of the particle behind h.
func (s *Simulation) Particle(h arena.Handle) (dynamo.Particle, bool) {
	return s.store.Get(h)
}

// Step advances the world by one frame: integrate, then Substeps rounds of
// broad phase, narrow phase and correction, then the boundary clamp.
func (s *Simulation) Step(dt float64) {
	for _, p := range s.store.All() {
		s.integrator.Integrate(p, dt, s.cfg.Gravity)
	}

	var stats dynamo.FrameStats
	for k := range s.cfg.Substeps {
		s.grid.Rebuild(s.store.All())
		s.contacts = s.detector.Detect(s.grid, s.store, s.contacts[:0])
		if k == 0 {
			stats.Contacts = len(s.contacts)
			stats.Oversized = s.grid.Oversized()
			for i := range s.contacts {
				stats.MaxPenetration = max(stats.MaxPenetration, s.contacts[i].Penetration)
			}
			if s.resolver.Impulse {
				s.resolver.ApplyImpulse(s.store, s.contacts)
			}
		}
		if len(s.contacts) == 0 {
			break
		}
		s.resolver.Resolve(s.store, s.contacts)
	}

	stats.WallHits = physics.ClampAll(s.store, s.cfg.Arena)

	s.frame++
	s.time += dt
	stats.Frame = s.frame
	stats.Time = s.time
	stats.Particles = s.store.Len()
	stats.KineticEnergy = s.kineticEnergy(dt)
	s.stats = stats

	if s.cfg.Debug {
		if err := s.Check(); err != nil {
			s.log.Error("invariant violated", "err", err)
		}
	}

	for _, m := range s.metrics {
		m.Observe(stats)
	}
	for _, o := range s.observers {
		o.OnStep(stats)
	}
}

// Check returns a SimulationError for the first particle holding a NaN or
// Inf position.
func (s *Simulation) Check() error {
	for h, p := range s.store.All() {
		if !p.Position.IsFinite() || !p.PrevPosition.IsFinite() {
			return &dynamo.SimulationError{Frame: s.frame, Index: h.Index(), Wrapped: dynamo.ErrNonFinite}
		}
	}
	return nil
}

func (s *Simulation) kineticEnergy(dt float64) float64 {
	if dt <= 0 {
		return 0
	}
	var e float64
	for _, p := range s.store.All() {
		if p.IsStatic() {
			continue
		}
		v := p.Velocity().Scale(1 / dt)
		e += 0.5 * p.Mass * v.LenSq()
	}
	return e
}

// Snapshot returns the position and radius of every live particle in
// ascending slot order.
func (s *Simulation) Snapshot() []dynamo.Body {
	return s.SnapshotInto(make([]dynamo.Body, 0, s.store.Len()))
}

// SnapshotInto appends the snapshot to dst, letting renderers reuse a buffer.
func (s *Simulation) SnapshotInto(dst []dynamo.Body) []dynamo.Body {
	for _, p := range s.store.All() {
		dst = append(dst, dynamo.Body{Position: p.Position, Radius: p.Radius})
	}
	return dst
}

// Frame is the number of completed steps.
func (s *Simulation) Frame() int { return s.frame }

func (s *Simulation) Time() float64 { return s.time }

func (s *Simulation) Len() int { return s.store.Len() }

// Stats describes the most recent step.
func (s *Simulation) Stats() dynamo.FrameStats { return s.stats }

// Metrics returns the current value of every registered metric.
func (s *Simulation) Metrics() map[string]float64 {
	out := make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}
