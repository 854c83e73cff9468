package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds raised by the swath core. Callers match them with errors.Is.
var (
	ErrMalformedRecord   = errors.New("malformed record")
	ErrInvalidTimestamp  = errors.New("invalid timestamp")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrInvalidRegion     = errors.New("invalid region")
	ErrModelInput        = errors.New("invalid model input")
	ErrComputation       = errors.New("swath computation failed")
)

// ComputationError reports the timestep that aborted a swath build.
// It matches both ErrComputation and the underlying cause.
type ComputationError struct {
	Index int
	Time  time.Time
	Err   error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s: timestep %d (%s): %v",
		ErrComputation, e.Index, e.Time.UTC().Format(time.RFC3339), e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrComputation.
func (e *ComputationError) Is(target error) bool {
	return target == ErrComputation
}
