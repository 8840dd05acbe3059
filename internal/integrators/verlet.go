package integrators

import "github.com/san-kum/ballpit/internal/dynamo"

// Verlet is position Verlet with uniform damping. Velocity is never stored;
// it is re-derived from the position history every frame, so corrections
// applied by later stages carry into the next frame's motion.
type Verlet struct {
	Damping float64
}

// NewVerlet returns a Verlet integrator. Damping outside (0,1] is clamped.
func NewVerlet(damping float64) *Verlet {
	if !(damping > 0) {
		damping = 1e-6
	}
	if damping > 1 {
		damping = 1
	}
	return &Verlet{Damping: damping}
}

// Integrate advances p by one frame of length dt.
func (v *Verlet) Integrate(p *dynamo.Particle, dt float64, gravity dynamo.Vec2) {
	if p.IsStatic() {
		p.PrevPosition = p.Position
		return
	}

	vel := p.Position.Sub(p.PrevPosition)
	next := p.Position.
		Add(vel.Scale(v.Damping)).
		Add(gravity.Scale(dt * dt))

	p.PrevPosition = p.Position
	p.Position = next
}
