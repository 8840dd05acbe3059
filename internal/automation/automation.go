package automation

import (
	"context"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ballpit/internal/config"
	"github.com/san-kum/ballpit/internal/dynamo"
	"github.com/san-kum/ballpit/internal/metrics"
	"github.com/san-kum/ballpit/internal/sim"
)

// Scenario is a scripted run: a base preset plus timed spawn events.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Preset      string       `yaml:"preset"`
	Frames      int          `yaml:"frames"`
	Spawner     bool         `yaml:"spawner"`
	Sim         yaml.Node    `yaml:"sim"`
	Events      []SpawnEvent `yaml:"events"`
}

// SpawnEvent places Count balls at frame Frame, the i-th one offset by
// i*(DX, DY) from (X, Y).
type SpawnEvent struct {
	Frame       int     `yaml:"frame"`
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	VX          float64 `yaml:"vx"`
	VY          float64 `yaml:"vy"`
	Radius      float64 `yaml:"radius"`
	Mass        float64 `yaml:"mass"`
	Restitution float64 `yaml:"restitution"`
	Count       int     `yaml:"count"`
	DX          float64 `yaml:"dx"`
	DY          float64 `yaml:"dy"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	for i := range scenario.Events {
		ev := &scenario.Events[i]
		if ev.Frame < 0 {
			return nil, fmt.Errorf("event %d: frame must be non-negative, got %d", i, ev.Frame)
		}
		if ev.Count < 0 {
			return nil, fmt.Errorf("event %d: count must be non-negative, got %d", i, ev.Count)
		}
		if ev.Count == 0 {
			ev.Count = 1
		}
		if ev.Mass == 0 {
			ev.Mass = config.DefaultMass
		}
	}
	slices.SortStableFunc(scenario.Events, func(a, b SpawnEvent) int {
		return a.Frame - b.Frame
	})
	return &scenario, nil
}

// Config resolves the scenario's base configuration.
func (sc *Scenario) Config() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if sc.Preset != "" {
		cfg = config.GetPreset(sc.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", sc.Preset)
		}
	}
	// sim overrides are decoded over the preset, so partial blocks keep
	// the preset's other values
	if !sc.Sim.IsZero() {
		if err := sc.Sim.Decode(&cfg.Sim); err != nil {
			return nil, fmt.Errorf("scenario %s: sim: %w", sc.Name, err)
		}
	}
	if sc.Frames > 0 {
		cfg.Run.Frames = sc.Frames
	}
	if !sc.Spawner {
		cfg.Spawn.Every = 0
	}
	return cfg, cfg.Validate()
}

// Player replays a scenario's events. It implements sim.Driver.
type Player struct {
	events []SpawnEvent
	next   int
	spawns int
}

func NewPlayer(sc *Scenario) *Player {
	return &Player{events: sc.Events}
}

func (p *Player) Spawned() int { return p.spawns }

func (p *Player) Tick(s *sim.Simulation) error {
	frame := s.Frame()
	for p.next < len(p.events) && p.events[p.next].Frame <= frame {
		ev := p.events[p.next]
		p.next++
		if ev.Frame < frame {
			return fmt.Errorf("event at frame %d: simulation already at frame %d", ev.Frame, frame)
		}
		for i := range ev.Count {
			pos := dynamo.V(ev.X+float64(i)*ev.DX, ev.Y+float64(i)*ev.DY)
			_, err := s.SpawnParticle(dynamo.Particle{
				Position:     pos,
				PrevPosition: pos.Sub(dynamo.V(ev.VX, ev.VY)),
				Radius:       ev.Radius,
				Mass:         ev.Mass,
				Restitution:  ev.Restitution,
			})
			if err != nil {
				return fmt.Errorf("event at frame %d: %w", ev.Frame, err)
			}
			p.spawns++
		}
	}
	return nil
}

// Result is the end state of a scenario run.
type Result struct {
	Name    string
	Config  *config.Config
	Final   dynamo.FrameStats
	Bodies  []dynamo.Body
	Metrics map[string]float64
}

// RunScenario executes a scenario to completion. Extra options are passed
// to the simulation, so callers can attach loggers and observers.
func RunScenario(ctx context.Context, sc *Scenario, opts ...sim.Option) (*Result, error) {
	cfg, err := sc.Config()
	if err != nil {
		return nil, err
	}

	for _, m := range metrics.Standard() {
		opts = append(opts, sim.WithMetric(m))
	}
	s, err := sim.New(cfg.Sim, opts...)
	if err != nil {
		return nil, err
	}

	drivers := []sim.Driver{NewPlayer(sc)}
	if cfg.Spawn.Every > 0 {
		drivers = append(drivers, sim.NewSpawner(cfg.Spawn))
	}
	if err := sim.NewRunner(s, cfg.Run.Dt(), drivers...).Run(ctx, cfg.Run.Frames, nil); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.Name, err)
	}

	return &Result{
		Name:    sc.Name,
		Config:  cfg,
		Final:   s.Stats(),
		Bodies:  s.Snapshot(),
		Metrics: s.Metrics(),
	}, nil
}
