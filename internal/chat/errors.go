package chat

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAuthRequired is a control signal, not a failure: the send flow is
// suspended until an identity is supplied through Authenticate. The
// original action is not retried automatically.
var ErrAuthRequired = errors.New("authentication required")

// ErrBusy is returned when a send arrives while a fetch is outstanding.
var ErrBusy = errors.New("a search is already in progress")

// PartialDeleteError reports a session-deletion cascade that failed
// after one or more stages had already succeeded. It is distinct from
// both full success and full failure: the session is partially deleted.
type PartialDeleteError struct {
	SessionID string
	Completed []string
	Failed    string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("session %s partially deleted: %s removed, %s failed: %v",
		e.SessionID, strings.Join(e.Completed, "+"), e.Failed, e.Err)
}

func (e *PartialDeleteError) Unwrap() error { return e.Err }
