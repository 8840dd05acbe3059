// Package arena owns particle state in a slot arena addressed by
// generation-checked handles.
package arena

import (
	"iter"
	"slices"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// Handle is an opaque reference to a store slot. The zero Handle never
// resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// Index returns the slot index. Only meaningful for ordering and logging.
func (h Handle) Index() int { return int(h.index) }

func (h Handle) IsZero() bool { return h.gen == 0 }

// Less orders handles by slot index.
func (h Handle) Less(o Handle) bool { return h.index < o.index }

type slot struct {
	p     dynamo.Particle
	gen   uint32
	alive bool
}

// Store holds every particle. Slots are reused after Remove; the generation
// bump makes handles to the old occupant stale.
type Store struct {
	slots []slot
	free  []uint32 // kept sorted descending so the lowest index pops first
	live  int
}

func NewStore(capacity int) *Store {
	return &Store{slots: make([]slot, 0, capacity)}
}

// Insert stores p and returns its handle.
func (s *Store) Insert(p dynamo.Particle) Handle {
	if n := len(s.free); n > 0 {
		idx := s.free[n-1]
		s.free = s.free[:n-1]
		sl := &s.slots[idx]
		sl.p = p
		sl.alive = true
		s.live++
		return Handle{index: idx, gen: sl.gen}
	}
	idx := uint32(len(s.slots))
	s.slots = append(s.slots, slot{p: p, gen: 1, alive: true})
	s.live++
	return Handle{index: idx, gen: 1}
}

func (s *Store) lookup(h Handle) *slot {
	if int(h.index) >= len(s.slots) {
		return nil
	}
	sl := &s.slots[h.index]
	if !sl.alive || sl.gen != h.gen {
		return nil
	}
	return sl
}

// Get returns a copy of the particle behind h.
func (s *Store) Get(h Handle) (dynamo.Particle, bool) {
	sl := s.lookup(h)
	if sl == nil {
		return dynamo.Particle{}, false
	}
	return sl.p, true
}

// GetMut returns a pointer into the store, or nil for a stale handle.
// The pointer is invalidated by the next Insert.
func (s *Store) GetMut(h Handle) *dynamo.Particle {
	sl := s.lookup(h)
	if sl == nil {
		return nil
	}
	return &sl.p
}

// GetPairMut returns disjoint pointers to two particles. Both are nil when
// h1 == h2; otherwise each side is nil only if its own handle is stale.
func (s *Store) GetPairMut(h1, h2 Handle) (*dynamo.Particle, *dynamo.Particle) {
	if h1 == h2 {
		return nil, nil
	}
	return s.GetMut(h1), s.GetMut(h2)
}

// Remove frees the slot behind h. Later lookups with h report false.
func (s *Store) Remove(h Handle) bool {
	sl := s.lookup(h)
	if sl == nil {
		return false
	}
	sl.alive = false
	sl.p = dynamo.Particle{}
	sl.gen++
	if sl.gen == 0 {
		sl.gen = 1
	}
	s.live--

	i, _ := slices.BinarySearchFunc(s.free, h.index, func(a, b uint32) int {
		// descending
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	s.free = slices.Insert(s.free, i, h.index)
	return true
}

// Len returns the number of live particles.
func (s *Store) Len() int { return s.live }

// All yields live particles in ascending slot order.
func (s *Store) All() iter.Seq2[Handle, *dynamo.Particle] {
	return func(yield func(Handle, *dynamo.Particle) bool) {
		for i := range s.slots {
			sl := &s.slots[i]
			if !sl.alive {
				continue
			}
			if !yield(Handle{index: uint32(i), gen: sl.gen}, &sl.p) {
				return
			}
		}
	}
}
