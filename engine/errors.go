/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine itself has very few failure modes: scoring functions are pure
  and clamp bad input instead of failing. Errors here mostly describe what
  the surrounding driver and store can hit.

ERROR CATEGORIES:
  1. Lookup errors  - referenced student does not exist
  2. Input errors   - malformed snapshot attributes (clamped, surfaced as
                      warnings, never fatal)

PROPAGATION POLICY:
  Per-student failures during a batch must not abort the whole allocation
  run. The allocator skips the student, records the failure, and continues.

SEE ALSO:
  - snapshot.go: NormalizeSnapshot clamping + warnings
  - allocator.go: skip-and-continue batch semantics
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrStudentNotFound is returned when a referenced student doesn't exist.
	// Drivers should skip-and-log rather than abort the batch.
	ErrStudentNotFound = errors.New("student not found")

	// ErrCallNotFound is returned when a referenced scheduled call doesn't exist.
	ErrCallNotFound = errors.New("scheduled call not found")

	// ErrCallNotPending is returned when completing or snoozing a call that
	// is no longer in an actionable state.
	ErrCallNotPending = errors.New("scheduled call is not pending or snoozed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// SnapshotWarning records one clamped out-of-range attribute. It is a
// non-fatal diagnostic, not an error: scoring proceeds on the clamped value.
type SnapshotWarning struct {
	StudentID StudentID
	Field     string
	Got       string
	ClampedTo string
}

func (w SnapshotWarning) String() string {
	return fmt.Sprintf("snapshot %s: %s=%s clamped to %s", w.StudentID, w.Field, w.Got, w.ClampedTo)
}

// ScoringError wraps a per-student failure during batch allocation so the
// driver can report which students were skipped.
type ScoringError struct {
	StudentID StudentID
	Err       error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring student %s: %v", e.StudentID, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStudentNotFound) || errors.Is(err, ErrCallNotFound)
}
