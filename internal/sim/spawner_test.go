package sim

import (
	"testing"

	"github.com/san-kum/ballpit/internal/config"
)

func TestSpawnerCadence(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := New(cfg.Sim)
	if err != nil {
		t.Fatal(err)
	}
	sp := NewSpawner(cfg.Spawn)

	for range 35 {
		if err := sp.Tick(s); err != nil {
			t.Fatal(err)
		}
		s.Step(cfg.Run.Dt())
	}

	// frames 0, 10, 20, 30
	if got := sp.Spawned(); got != 4 {
		t.Errorf("spawned %d, want 4", got)
	}
	if s.Len() != 4 {
		t.Errorf("len = %d, want 4", s.Len())
	}
}

func TestSpawnerLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Spawn.Every = 1
	cfg.Spawn.Limit = 3
	s, _ := New(cfg.Sim)
	sp := NewSpawner(cfg.Spawn)

	for range 10 {
		_ = sp.Tick(s)
		s.Step(cfg.Run.Dt())
	}

	if !sp.Done() {
		t.Error("expected spawner to be done")
	}
	if s.Len() != 3 {
		t.Errorf("len = %d, want 3", s.Len())
	}
}

func TestSpawnerDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Spawn.Every = 0
	s, _ := New(cfg.Sim)
	sp := NewSpawner(cfg.Spawn)

	if err := sp.Tick(s); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

func TestSpawnerColumn(t *testing.T) {
	sp := NewSpawner(config.Spawn{})

	tests := []struct {
		name  string
		frame int
		r     float64
		width float64
		want  float64
	}{
		{"walks with frame", 100, 10, 640, 100},
		{"wraps at width", 650, 10, 640, 10},
		{"clamped left", 0, 10, 640, 10},
		{"clamped right", 639, 10, 640, 630},
		{"narrow arena", 30, 10, 15, 7.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sp.column(tt.frame, tt.r, tt.width); got != tt.want {
				t.Errorf("column(%d) = %v, want %v", tt.frame, got, tt.want)
			}
		})
	}
}

func TestSpawnerJitter(t *testing.T) {
	cfg := config.Spawn{Radius: 5, RadiusJitter: 2, Seed: 42}
	a, b := NewSpawner(cfg), NewSpawner(cfg)

	for range 100 {
		ra, rb := a.radius(7), b.radius(7)
		if ra != rb {
			t.Fatalf("same seed diverged: %v vs %v", ra, rb)
		}
		if ra < 3 || ra > 7 {
			t.Errorf("radius %v outside [3,7]", ra)
		}
	}
}
