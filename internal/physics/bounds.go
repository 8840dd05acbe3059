package physics

import (
	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// Clamp keeps p within b and reports whether a wall was touched. Static
// anchors are never moved and never count as touching.
func Clamp(p *dynamo.Particle, b dynamo.Bounds) bool {
	if p.IsStatic() {
		return false
	}
	vel := p.Velocity()
	hitX := clampAxis(&p.Position.X, &p.PrevPosition.X, vel.X, p.Radius, b.Width, p.Restitution)
	hitY := clampAxis(&p.Position.Y, &p.PrevPosition.Y, vel.Y, p.Radius, b.Height, p.Restitution)
	return hitX || hitY
}

// clampAxis handles one axis of [r, extent-r]. A component heading into the
// wall is reflected; one already heading away keeps its velocity.
func clampAxis(pos, prev *float64, vel, r, extent, restitution float64) bool {
	lo, hi := r, extent-r
	if hi < lo {
		// Arena narrower than the ball: pin to the centre line.
		mid := extent / 2
		*pos = mid
		*prev = mid
		return true
	}

	switch {
	case *pos < lo:
		if vel < 0 {
			*pos = lo
			*prev = lo + vel*restitution
		} else {
			*prev += lo - *pos
			*pos = lo
		}
		return true
	case *pos > hi:
		if vel > 0 {
			*pos = hi
			*prev = hi + vel*restitution
		} else {
			*prev += hi - *pos
			*pos = hi
		}
		return true
	}
	return false
}

// ClampAll clamps every particle in the store and returns the number that
// touched a wall.
func ClampAll(store *arena.Store, b dynamo.Bounds) int {
	hits := 0
	for _, p := range store.All() {
		if Clamp(p, b) {
			hits++
		}
	}
	return hits
}

// Contains reports whether the whole disc of p lies inside b.
func Contains(p *dynamo.Particle, b dynamo.Bounds) bool {
	return p.Position.X-p.Radius >= 0 && p.Position.X+p.Radius <= b.Width &&
		p.Position.Y-p.Radius >= 0 && p.Position.Y+p.Radius <= b.Height
}
