package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents an error detected while stepping.
//
// Runtime errors include:
//   - Invariant violation: a worker failed mid-tick; the tick is discarded
//   - Generations exceeded: RunUntilStable hit its generation limit
//   - Replay mismatch: a re-run diverged from a recorded run
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, if any.
	RunID string

	// Generation is the generation being computed or compared.
	Generation int64

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeInvariantViolation indicates a tick could not be completed.
	ErrCodeInvariantViolation RuntimeErrorCode = "INVARIANT_VIOLATION"

	// ErrCodeGenerationsExceeded indicates the generation quota ran out.
	ErrCodeGenerationsExceeded RuntimeErrorCode = "GENERATIONS_EXCEEDED"

	// ErrCodeReplayMismatch indicates a replayed generation hash differs.
	ErrCodeReplayMismatch RuntimeErrorCode = "REPLAY_MISMATCH"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s, generation=%d)", e.Code, e.Message, e.RunID, e.Generation)
	}
	return fmt.Sprintf("%s: %s (generation=%d)", e.Code, e.Message, e.Generation)
}

// IsInvariantError returns true if the error is an invariant violation.
// Uses errors.As to handle wrapped errors.
func IsInvariantError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeInvariantViolation
	}
	return false
}

// IsQuotaError returns true if the error is a generation quota error.
// Matches both RuntimeError with ErrCodeGenerationsExceeded and
// GenerationsExceededError.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeGenerationsExceeded
	}
	var ge *GenerationsExceededError
	return errors.As(err, &ge)
}

// IsReplayMismatch returns true if the error is a replay mismatch.
func IsReplayMismatch(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeReplayMismatch
	}
	return false
}

// NewInvariantError creates a RuntimeError for a failed tick.
func NewInvariantError(generation int64, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeInvariantViolation,
		Message:    fmt.Sprintf(format, args...),
		Generation: generation,
	}
}

// NewReplayMismatchError creates a RuntimeError for a diverging replay.
func NewReplayMismatchError(runID string, generation int64, want, got string) *RuntimeError {
	return &RuntimeError{
		Code:       ErrCodeReplayMismatch,
		Message:    "generation hash differs from the recorded run",
		RunID:      runID,
		Generation: generation,
		Details: map[string]string{
			"want": want,
			"got":  got,
		},
	}
}
