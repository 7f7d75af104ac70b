package engine

import "fmt"

// PersistenceError reports that a verdict was computed but could not be
// fully recorded. The verdict returned alongside it is still valid.
type PersistenceError struct {
	// Op is the failed operation ("load_profile", "save_profile", "append_event").
	Op string

	// UserID is the affected user, empty for session evaluations without one.
	UserID string

	// Cause is the underlying storage error.
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.UserID == "" {
		return fmt.Sprintf("persistence error during %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("persistence error during %s for user %s: %v", e.Op, e.UserID, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
