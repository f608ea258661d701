package trigger

import (
	"errors"
	"fmt"
)

// ErrHandshakeTimeout marks a handshake that saw no DONE within the overall
// deadline. Operationally distinct from an I/O failure: the port is healthy
// but the device did not respond.
var ErrHandshakeTimeout = errors.New("handshake timed out waiting for DONE")

// ConnError reports a failure to establish the connection. Never fatal to a
// measurement; it downgrades the trigger mode to manual.
type ConnError struct {
	Reason           string
	PermissionDenied bool
	Err              error
}

func (e *ConnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("connection failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("connection failed: %s", e.Reason)
}

func (e *ConnError) Unwrap() error { return e.Err }

// IoError reports a mid-session read or write failure. The connection is
// closed and reset; the measurement downgrades to manual for this attempt.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("serial %s failed: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
