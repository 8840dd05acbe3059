package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidSpawn indicates a spawn request with a non-positive radius or mass.
	ErrInvalidSpawn = errors.New("dynamo: invalid spawn")

	// ErrStaleHandle indicates a handle whose slot was removed or reused.
	ErrStaleHandle = errors.New("dynamo: stale handle")

	// ErrInvalidConfig indicates a tunable outside its valid range.
	ErrInvalidConfig = errors.New("dynamo: invalid configuration")

	// ErrNonFinite indicates NaN or Inf reached particle state.
	ErrNonFinite = errors.New("dynamo: non-finite particle state")
)

// SimulationError wraps an error with the frame and slot it was found at.
type SimulationError struct {
	Frame   int
	Index   int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("frame %d, particle %d: %v", e.Frame, e.Index, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
