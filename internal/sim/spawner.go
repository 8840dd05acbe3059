package sim

import (
	"math/rand/v2"

	"github.com/san-kum/ballpit/internal/config"
)

// Driver is called once before every step. Spawners and scripted
// scenarios implement it.
type Driver interface {
	Tick(s *Simulation) error
}

// Spawner drops a ball every Every frames. The x coordinate walks along
// the arena with the frame counter.
type Spawner struct {
	cfg     config.Spawn
	rng     *rand.Rand
	spawned int
}

func NewSpawner(cfg config.Spawn) *Spawner {
	seed := uint64(cfg.Seed)
	return &Spawner{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (sp *Spawner) Spawned() int { return sp.spawned }

// Done reports whether the spawn limit has been reached.
func (sp *Spawner) Done() bool {
	return sp.cfg.Every <= 0 || (sp.cfg.Limit > 0 && sp.spawned >= sp.cfg.Limit)
}

func (sp *Spawner) Tick(s *Simulation) error {
	if sp.Done() || s.Frame()%sp.cfg.Every != 0 {
		return nil
	}

	r := sp.radius(s.Config().MaxRadius)
	x := sp.column(s.Frame(), r, s.Config().Arena.Width)
	if _, err := s.Spawn(x, sp.cfg.Y, r, sp.cfg.Mass, sp.cfg.Restitution); err != nil {
		return err
	}
	sp.spawned++
	return nil
}

func (sp *Spawner) radius(maxRadius float64) float64 {
	r := sp.cfg.Radius
	if sp.cfg.RadiusJitter > 0 {
		r += (sp.rng.Float64()*2 - 1) * sp.cfg.RadiusJitter
	}
	r = min(r, maxRadius)
	return max(r, 1)
}

func (sp *Spawner) column(frame int, r, width float64) float64 {
	if width <= 2*r {
		return width / 2
	}
	x := float64(frame % int(max(width, 1)))
	return min(max(x, r), width-r)
}
