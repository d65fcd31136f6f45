package assistant

import (
	"errors"
	"fmt"
)

// ErrCapabilityUnavailable is returned when no adapter is wired for an action.
var ErrCapabilityUnavailable = errors.New("capability not available")

// ActionError aborts a turn: an action's capability failed.
type ActionError struct {
	Type ActionType
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Type, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

func actionError(t ActionType, err error) error {
	return &ActionError{Type: t, Err: err}
}
