// Package dynamo provides the core primitives shared by the ball simulation.
//
// The package defines the value types and interfaces every stage of a frame
// works with:
//
//   - [Vec2]: 2D vector in arena coordinates
//   - [Particle]: a ball with Verlet position history (velocity is implicit)
//   - [Body]: the read-only snapshot row handed to renderers
//   - [Integrator]: advances one particle by one frame
//   - [Metric] and [Observer]: per-frame hooks fed a [FrameStats]
//
// # Errors
//
// Invalid spawns wrap [ErrInvalidSpawn]; lookups through removed slots report
// [ErrStaleHandle]. Neither is ever fatal:
//
//	if _, err := s.Spawn(x, y, r, m, e); errors.Is(err, dynamo.ErrInvalidSpawn) {
//	    // nothing was inserted
//	}
package dynamo
