package sim_test

import (
	"context"
	"math"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/sim"
)

const dt = 1.0 / 60

func quietSim() config.Sim {
	cfg := config.DefaultSim()
	cfg.Gravity = dynamo.Vec2{}
	cfg.Damping = 1
	cfg.SpawnOffset = dynamo.Vec2{}
	return cfg
}

func mustNew(cfg config.Sim, opts ...sim.Option) *sim.Simulation {
	s, err := sim.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("Simulation", func() {
	Describe("New", func() {
		It("rejects an invalid configuration", func() {
			cfg := config.DefaultSim()
			cfg.Substeps = 0
			_, err := sim.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
		})
	})

	Describe("Spawn", func() {
		var s *sim.Simulation

		BeforeEach(func() {
			s = mustNew(config.DefaultSim())
		})

		DescribeTable("rejects invalid requests without mutating",
			func(radius, mass, restitution float64) {
				_, err := s.Spawn(100, 100, radius, mass, restitution)
				Expect(err).To(MatchError(dynamo.ErrInvalidSpawn))
				Expect(s.Len()).To(BeZero())
			},
			Entry("zero radius", 0.0, 1.0, 0.5),
			Entry("negative radius", -3.0, 1.0, 0.5),
			Entry("NaN radius", math.NaN(), 1.0, 0.5),
			Entry("zero mass", 5.0, 0.0, 0.5),
			Entry("negative mass", 5.0, -1.0, 0.5),
			Entry("restitution above one", 5.0, 1.0, 1.5),
			Entry("negative restitution", 5.0, 1.0, -0.1),
		)

		It("seeds the velocity from the spawn offset", func() {
			h, err := s.Spawn(100, 100, 5, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			p, ok := s.Particle(h)
			Expect(ok).To(BeTrue())
			Expect(p.Velocity()).To(Equal(config.DefaultSim().SpawnOffset))
		})

		It("accepts an oversized radius", func() {
			_, err := s.Spawn(100, 100, 40, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())
			s.Step(dt)
			Expect(s.Stats().Oversized).To(Equal(1))
		})
	})

	Describe("Remove", func() {
		It("invalidates the handle", func() {
			s := mustNew(config.DefaultSim())
			h, err := s.Spawn(100, 100, 5, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Remove(h)).To(Succeed())
			Expect(s.Remove(h)).To(MatchError(dynamo.ErrStaleHandle))

			_, ok := s.Particle(h)
			Expect(ok).To(BeFalse())

			h2, err := s.Spawn(200, 100, 5, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(h2.Index()).To(Equal(h.Index()))
			_, ok = s.Particle(h)
			Expect(ok).To(BeFalse())
		})
	})

	Describe("no tunneling at rest", func() {
		It("keeps every particle inside the arena", func() {
			cfg := config.DefaultSim()
			cfg.SpawnOffset = dynamo.Vec2{}
			s := mustNew(cfg)

			for row := range 6 {
				for col := range 20 {
					x := 20 + float64(col)*30
					y := 20 + float64(row)*30
					_, err := s.Spawn(x, y, 10, 1, 0.5)
					Expect(err).NotTo(HaveOccurred())
				}
			}

			const tol = 1e-9
			for range 600 {
				s.Step(dt)
				for _, b := range s.Snapshot() {
					Expect(b.Position.X - b.Radius).To(BeNumerically(">=", -tol))
					Expect(b.Position.X + b.Radius).To(BeNumerically("<=", cfg.Arena.Width+tol))
					Expect(b.Position.Y - b.Radius).To(BeNumerically(">=", -tol))
					Expect(b.Position.Y + b.Radius).To(BeNumerically("<=", cfg.Arena.Height+tol))
				}
			}
			Expect(s.Check()).To(Succeed())
		})
	})

	Describe("non-penetration convergence", func() {
		It("separates an overlapping pair within one step", func() {
			s := mustNew(quietSim())
			a, err := s.Spawn(300, 200, 10, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())
			b, err := s.Spawn(316, 200, 10, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			s.Step(dt)

			pa, _ := s.Particle(a)
			pb, _ := s.Particle(b)
			Expect(pa.Position.Sub(pb.Position).Len()).To(BeNumerically(">=", 20-0.05))
			Expect(s.Stats().Contacts).To(Equal(1))
			Expect(s.Stats().MaxPenetration).To(BeNumerically("~", 4, 1e-9))
		})

		It("separates coincident spawns along a fixed axis", func() {
			s := mustNew(quietSim())
			a, _ := s.Spawn(300, 200, 10, 1, 0.5)
			b, _ := s.Spawn(300, 200, 10, 1, 0.5)

			s.Step(dt)

			pa, _ := s.Particle(a)
			pb, _ := s.Particle(b)
			Expect(pa.Position.X).To(BeNumerically(">", pb.Position.X))
			Expect(pa.Position.Y).To(Equal(pb.Position.Y))
			Expect(s.Check()).To(Succeed())
		})

		It("never moves a static anchor", func() {
			s := mustNew(config.DefaultSim())
			anchor, err := s.Spawn(320, 300, 10, math.Inf(1), 0.5)
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Spawn(325, 285, 10, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			for range 30 {
				s.Step(dt)
			}

			p, _ := s.Particle(anchor)
			Expect(p.Position).To(Equal(dynamo.V(320, 300)))
		})
	})

	Describe("momentum-conserving symmetry", func() {
		It("moves a head-on equal-mass pair symmetrically", func() {
			cfg := quietSim()
			s := mustNew(cfg)

			a, err := s.SpawnParticle(dynamo.Particle{
				Position: dynamo.V(305, 200), PrevPosition: dynamo.V(302, 200),
				Radius: 10, Mass: 2, Restitution: 0.8,
			})
			Expect(err).NotTo(HaveOccurred())
			b, err := s.SpawnParticle(dynamo.Particle{
				Position: dynamo.V(335, 200), PrevPosition: dynamo.V(338, 200),
				Radius: 10, Mass: 2, Restitution: 0.8,
			})
			Expect(err).NotTo(HaveOccurred())

			for range 10 {
				s.Step(dt)
				pa, _ := s.Particle(a)
				pb, _ := s.Particle(b)
				Expect(pa.Position.X + pb.Position.X).To(BeNumerically("~", 640, 1e-9))
				Expect(pa.Velocity().Add(pb.Velocity()).Len()).To(BeNumerically("<", 1e-9))
			}
		})
	})

	Describe("determinism", func() {
		It("produces identical snapshots for identical inputs", func() {
			run := func() []dynamo.Body {
				cfg := config.GetPreset("pile")
				s := mustNew(cfg.Sim)
				r := sim.NewRunner(s, cfg.Run.Dt(), sim.NewSpawner(cfg.Spawn))
				Expect(r.Run(context.Background(), 400, nil)).To(Succeed())
				return s.Snapshot()
			}

			first, second := run(), run()
			Expect(first).NotTo(BeEmpty())
			Expect(second).To(Equal(first))
		})
	})

	Describe("Verlet consistency", func() {
		It("derives every frame's velocity from the previous one", func() {
			cfg := config.DefaultSim()
			cfg.Gravity = dynamo.V(0, 300)
			cfg.SpawnOffset = dynamo.V(2, -1)
			s := mustNew(cfg)
			h, err := s.Spawn(100, 100, 10, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			prev, _ := s.Particle(h)
			for range 60 {
				s.Step(dt)
				if s.Stats().WallHits > 0 {
					break
				}
				cur, _ := s.Particle(h)
				want := prev.Velocity().Scale(cfg.Damping).Add(cfg.Gravity.Scale(dt * dt))
				Expect(cur.Velocity().X).To(BeNumerically("~", want.X, 1e-9))
				Expect(cur.Velocity().Y).To(BeNumerically("~", want.Y, 1e-9))
				Expect(cur.PrevPosition).To(Equal(prev.Position))
				prev = cur
			}
		})
	})

	Describe("a single ball dropped in the default arena", func() {
		It("falls monotonically and bounces off the floor", func() {
			cfg := config.GetPreset("drop")
			Expect(cfg.Sim.Gravity).To(Equal(dynamo.V(0, 30)))
			Expect(cfg.Sim.Arena).To(Equal(dynamo.Bounds{Width: 640, Height: 480}))

			s := mustNew(cfg.Sim)
			const radius, restitution = 10.0, 0.5
			h, err := s.Spawn(100, 50, radius, 1, restitution)
			Expect(err).NotTo(HaveOccurred())

			last, _ := s.Particle(h)
			clamped := false
			for frame := 0; frame < 1000 && !clamped; frame++ {
				s.Step(cfg.Run.Dt())
				cur, _ := s.Particle(h)

				if s.Stats().WallHits == 0 {
					Expect(cur.Position.Y).To(BeNumerically(">", last.Position.Y))
					Expect(cur.Position.X).To(Equal(100.0))
					last = cur
					continue
				}

				clamped = true
				incoming := last.Velocity().Y + cfg.Sim.Gravity.Y*cfg.Run.Dt()*cfg.Run.Dt()
				Expect(cur.Position.Y).To(Equal(480 - radius))
				Expect(cur.Velocity().Y).To(BeNumerically("~", -restitution*incoming, 1e-9))
			}
			Expect(clamped).To(BeTrue())
		})
	})

	Describe("Snapshot", func() {
		It("lists live particles in slot order", func() {
			s := mustNew(quietSim())
			a, _ := s.Spawn(100, 100, 5, 1, 0.5)
			_, _ = s.Spawn(200, 100, 6, 1, 0.5)
			_, _ = s.Spawn(300, 100, 7, 1, 0.5)
			Expect(s.Remove(a)).To(Succeed())

			Expect(s.Snapshot()).To(Equal([]dynamo.Body{
				{Position: dynamo.V(200, 100), Radius: 6},
				{Position: dynamo.V(300, 100), Radius: 7},
			}))

			buf := make([]dynamo.Body, 0, 8)
			buf = s.SnapshotInto(buf)
			Expect(buf).To(HaveLen(2))
		})
	})

	Describe("observers and metrics", func() {
		It("sees every step", func() {
			var frames []int
			obs := dynamo.ObserverFunc(func(st dynamo.FrameStats) { frames = append(frames, st.Frame) })
			m := &countMetric{}

			s := mustNew(quietSim(), sim.WithObserver(obs), sim.WithMetric(m))
			for range 3 {
				s.Step(dt)
			}

			Expect(frames).To(Equal([]int{1, 2, 3}))
			Expect(s.Metrics()).To(HaveKeyWithValue("steps", 3.0))
			Expect(s.Frame()).To(Equal(3))
			Expect(s.Time()).To(BeNumerically("~", 3*dt, 1e-12))
		})
	})

	Describe("impulse response", func() {
		// restingColumn stacks five touching balls on the floor and returns
		// the kinetic energy of every frame.
		restingColumn := func(impulse bool) []float64 {
			cfg := config.DefaultSim()
			cfg.Impulse = impulse
			cfg.SpawnOffset = dynamo.Vec2{}
			s := mustNew(cfg)
			for i := range 5 {
				_, err := s.Spawn(320, cfg.Arena.Height-10-20*float64(i), 10, 1, 0.9)
				Expect(err).NotTo(HaveOccurred())
			}

			energy := make([]float64, 0, 1200)
			for range 1200 {
				s.Step(dt)
				energy = append(energy, s.Stats().KineticEnergy)
			}
			return energy
		}

		mean := func(xs []float64) float64 {
			total := 0.0
			for _, x := range xs {
				total += x
			}
			return total / float64(len(xs))
		}

		It("does not pump energy into resting contacts", func() {
			without := restingColumn(false)
			with := restingColumn(true)

			Expect(slices.Max(with)).To(BeNumerically("<", 10*slices.Max(without)))
			Expect(mean(with[900:])).To(BeNumerically("<=", 1.5*mean(with[:300])))
		})
	})

	Describe("WithIntegrator", func() {
		It("replaces the default integrator", func() {
			frozen := &frozenIntegrator{}
			s := mustNew(config.DefaultSim(), sim.WithIntegrator(frozen))
			h, err := s.Spawn(100, 100, 10, 1, 0.5)
			Expect(err).NotTo(HaveOccurred())

			for range 5 {
				s.Step(dt)
			}

			Expect(frozen.calls).To(Equal(5))
			p, _ := s.Particle(h)
			Expect(p.Position).To(Equal(dynamo.V(100, 100)))
		})
	})
})

// frozenIntegrator pins every particle in place.
type frozenIntegrator struct{ calls int }

func (f *frozenIntegrator) Integrate(p *dynamo.Particle, _ float64, _ dynamo.Vec2) {
	f.calls++
	p.PrevPosition = p.Position
}

type countMetric struct{ n int }

func (m *countMetric) Name() string              { return "steps" }
func (m *countMetric) Observe(dynamo.FrameStats) { m.n++ }
func (m *countMetric) Value() float64            { return float64(m.n) }
func (m *countMetric) Reset()                    { m.n = 0 }
