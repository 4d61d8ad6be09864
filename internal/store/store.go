package store

import "strconv"

// Store persists resumable tuning run state.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if the run state doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveState atomically saves the run state for the given run.
	// An existing state for this runID is overwritten. Implementations
	// should use atomic write strategies (e.g., temp file + rename) to
	// prevent corruption in case of failures.
	SaveState(runID string, state *RunState) error

	// LoadState retrieves the state for the given run.
	// Returns ErrNotFound if no state exists for this runID.
	LoadState(runID string) (*RunState, error)

	// ListStates returns metadata for all saved runs.
	// The returned slice may be empty if no runs exist.
	ListStates() ([]StateInfo, error)

	// DeleteState removes the state and all associated artifacts for the
	// given run, including retained per-round candidate files and the
	// statistics ledger.
	// Returns ErrNotFound if no state exists for this runID.
	DeleteState(runID string) error
}

// ErrNotFound is returned when a requested run state does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing run state error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "run state not found: " + e.RunID
	}
	return "run state not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ErrRoundMismatch is returned when a restored state's round number does
// not match the round the caller expects to resume from.
// Use errors.Is(err, ErrRoundMismatch) to check for this error.
var ErrRoundMismatch = &RoundMismatchError{}

// RoundMismatchError reports a resumed state whose recorded round does not
// line up with the expected predecessor round. Continuing would replay or
// skip rounds, so it is fatal.
type RoundMismatchError struct {
	RunID    string
	Recorded int
	Expected int
}

func (e *RoundMismatchError) Error() string {
	return "run " + e.RunID + ": saved state is at round " +
		strconv.Itoa(e.Recorded) + ", expected round " + strconv.Itoa(e.Expected)
}

func (e *RoundMismatchError) Is(target error) bool {
	_, ok := target.(*RoundMismatchError)
	return ok
}
