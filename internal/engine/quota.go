package engine

import (
	"errors"
	"fmt"
)

// GenerationQuota bounds how many ticks a single run may take.
//
// RunUntilStable checks the quota before each tick. Settle detection stops
// fixed points and oscillators; the quota stops everything else (gliders,
// growth, long transients).
type GenerationQuota struct {
	max     int64
	current int64
}

// NewGenerationQuota creates a quota with the given limit.
func NewGenerationQuota(max int64) *GenerationQuota {
	return &GenerationQuota{max: max}
}

// Check counts one tick and validates it against the limit.
func (q *GenerationQuota) Check(runID string) error {
	q.current++
	if q.current > q.max {
		return &GenerationsExceededError{
			RunID:       runID,
			Generations: q.current,
			Limit:       q.max,
		}
	}
	return nil
}

// Max returns the limit.
func (q *GenerationQuota) Max() int64 {
	return q.max
}

// GenerationsExceededError is returned when a run exceeds its quota.
type GenerationsExceededError struct {
	RunID       string
	Generations int64
	Limit       int64
}

// Error implements the error interface.
func (e *GenerationsExceededError) Error() string {
	return fmt.Sprintf("run %s exceeded generation quota: %d generations > %d limit",
		e.RunID, e.Generations, e.Limit)
}

// IsGenerationsExceededError returns true if the error is a
// GenerationsExceededError.
func IsGenerationsExceededError(err error) bool {
	var ge *GenerationsExceededError
	return errors.As(err, &ge)
}
