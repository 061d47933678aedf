package session

import (
	"errors"
	"fmt"

	"github.com/hoo-game/hoo-server/internal/packets"
)

// ErrInvalidSessionID signals a caller bug: an id outside [0, capacity).
var ErrInvalidSessionID = errors.New("invalid session id")

// ViolationError is returned when a session sends a message its state does not
// allow. The connection must be dropped with Reason; other sessions are unaffected.
type ViolationError struct {
	SessionID int
	Reason    packets.DisconnectReason
	Op        string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("session %d: protocol violation in %s: %s", e.SessionID, e.Op, e.Reason)
}

func Violation(sessionID int, reason packets.DisconnectReason, op string) error {
	return &ViolationError{SessionID: sessionID, Reason: reason, Op: op}
}

// AsViolation extracts the ViolationError wrapped in err, if any.
func AsViolation(err error) (*ViolationError, bool) {
	var v *ViolationError
	ok := errors.As(err, &v)
	return v, ok
}
