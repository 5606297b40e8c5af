package attractor

import (
	"errors"
	"fmt"
)

// Domain errors for configuration updates and tick processing.
var (
	// ErrMalformedBasis indicates a basis or transform that is not 9 values.
	ErrMalformedBasis = errors.New("attractor: basis must be 9 values (row-major 3x3)")

	// ErrNegativeWeight indicates a projection weight below zero.
	ErrNegativeWeight = errors.New("attractor: weights must be non-negative")

	// ErrInvalidInterval indicates a non-positive sample interval.
	ErrInvalidInterval = errors.New("attractor: sample interval must be positive")

	// ErrNegativeDamping indicates a damping coefficient below zero.
	ErrNegativeDamping = errors.New("attractor: damping must be non-negative")

	// ErrStateUnavailable indicates no fresh effector state at tick time.
	ErrStateUnavailable = errors.New("attractor: no fresh effector state")

	// ErrNumerical indicates a non-finite value in the projection or force path.
	ErrNumerical = errors.New("attractor: non-finite value in force computation")

	// ErrLoopAlreadyRunning indicates a second Run on the same loop.
	ErrLoopAlreadyRunning = errors.New("attractor: sample loop already started")
)

// TickError wraps an error with the tick on which it occurred.
type TickError struct {
	Tick    uint64
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d: %v", e.Tick, e.Wrapped)
}

func (e *TickError) Unwrap() error { return e.Wrapped }
