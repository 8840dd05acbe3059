package collision

import (
	"github.com/san-kum/ballpit/internal/arena"
	"github.com/san-kum/ballpit/internal/dynamo"
)

// DefaultCorrectionFloor keeps fully inelastic pairs (restitution 0) from
// never separating.
const DefaultCorrectionFloor = 0.2

// Resolver applies positional correction to contacts.
type Resolver struct {
	// CorrectionFloor is the lowest fraction of a contact's penetration
	// removed per pass, whatever the pair restitution.
	CorrectionFloor float64
	// Impulse enables the restitution impulse pass.
	Impulse bool
}

func NewResolver(floor float64, impulse bool) *Resolver {
	if floor < 0 {
		floor = 0
	}
	if floor > 1 {
		floor = 1
	}
	return &Resolver{CorrectionFloor: floor, Impulse: impulse}
}

// Correction returns the displacement for a and for b. The pair is pushed
// apart along c.Normal by penetration*min(restitution), split by inverse
// mass; equal masses get exactly opposite halves. Static particles get a
// zero share and two static particles get nothing.
func (r *Resolver) Correction(a, b *dynamo.Particle, c Contact) (ca, cb dynamo.Vec2) {
	invA, invB := a.InvMass(), b.InvMass()
	total := invA + invB
	if total == 0 || !(c.Penetration > 0) {
		return dynamo.Vec2{}, dynamo.Vec2{}
	}

	k := min(a.Restitution, b.Restitution)
	if k < r.CorrectionFloor {
		k = r.CorrectionFloor
	}

	push := c.Normal.Scale(c.Penetration * k)
	return push.Scale(invA / total), push.Scale(-invB / total)
}

// Resolve applies the correction of every contact in order. With Impulse
// set the position history moves too, so correction removes overlap
// without changing velocity and ApplyImpulse alone sets the rebound.
func (r *Resolver) Resolve(store *arena.Store, contacts []Contact) {
	for i := range contacts {
		c := &contacts[i]
		a, b := store.GetPairMut(c.A, c.B)
		if a == nil || b == nil {
			continue
		}
		ca, cb := r.Correction(a, b, *c)
		a.Position = a.Position.Add(ca)
		b.Position = b.Position.Add(cb)
		if r.Impulse {
			a.PrevPosition = a.PrevPosition.Add(ca)
			b.PrevPosition = b.PrevPosition.Add(cb)
		}
	}
}

// ApplyImpulse reflects the approaching normal component of the relative
// velocity, scaled by min(restitution). Velocity lives in the position
// history, so the change is written to PrevPosition.
func (r *Resolver) ApplyImpulse(store *arena.Store, contacts []Contact) {
	for i := range contacts {
		c := &contacts[i]
		a, b := store.GetPairMut(c.A, c.B)
		if a == nil || b == nil {
			continue
		}
		invA, invB := a.InvMass(), b.InvMass()
		total := invA + invB
		if total == 0 {
			continue
		}

		vn := a.Velocity().Sub(b.Velocity()).Dot(c.Normal)
		if vn >= 0 {
			continue
		}

		e := min(a.Restitution, b.Restitution)
		j := -(1 + e) * vn / total
		a.PrevPosition = a.PrevPosition.Sub(c.Normal.Scale(j * invA))
		b.PrevPosition = b.PrevPosition.Add(c.Normal.Scale(j * invB))
	}
}
