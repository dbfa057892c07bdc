package jobs

import (
	"errors"
	"fmt"
)

// Sentinel errors for registry operations, checkable with errors.Is().
var (
	ErrJobNotFound       = errors.New("job not found")
	ErrIllegalTransition = errors.New("illegal stage transition")
)

// jobNotFoundError returns a wrapped error for a missing job.
func jobNotFoundError(id string) error {
	return fmt.Errorf("%w: %s", ErrJobNotFound, id)
}

// illegalTransitionError returns a wrapped error for a forbidden edge
// in the job state machine.
func illegalTransitionError(from, to Stage) error {
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}
