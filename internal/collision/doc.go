// Package collision confirms broad-phase candidates as circle overlaps and
// pushes overlapping particles apart.
//
// Detection reads positions only. Resolution is the sole writer during the
// collision phase and touches exactly two particles per contact through
// [arena.Store.GetPairMut].
//
// # Scheme
//
// Contacts are resolved by mass-weighted positional correction. Moving
// Position without touching PrevPosition also changes the implicit Verlet
// velocity, so no separate velocity update is needed. The loop repeats
// detect and resolve K times per frame; each pass removes a fraction of the
// remaining overlap, converging clusters without a global solve.
//
// An optional impulse pass ([Resolver.Impulse]) additionally reflects the
// approaching normal velocity scaled by the pair restitution.
package collision
