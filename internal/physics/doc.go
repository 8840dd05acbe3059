// Package physics confines particles to the rectangular arena.
//
// Wall contact is expressed purely through the Verlet position history:
// the position is projected back inside and PrevPosition is moved so that
// the implicit velocity along the wall normal is reflected and scaled by the
// particle's restitution. No separate velocity field exists to drift out of
// sync.
package physics
