// Package trigger coordinates the hardware tap trigger: the serial connection
// lifecycle, the START/DONE handshake, and the measurement run that joins the
// handshake with the independently timed audio capture.
package trigger

import "fmt"

// ConnectionStatus enumerates the connection lifecycle states.
type ConnectionStatus int

const (
	// StatusDisconnected is the initial state and the state re-entered
	// after any detach or cleanup. The machine restarts from here any
	// number of times.
	StatusDisconnected ConnectionStatus = iota
	// StatusConnecting covers the open-and-configure window.
	StatusConnecting
	// StatusConnected means the port is open and writable.
	StatusConnected
	// StatusPermissionDenied means the OS refused access to the device.
	StatusPermissionDenied
	// StatusError means an open or I/O failure; the port is closed.
	StatusError
)

// ConnectionState is the observable connection state with its associated
// data. Device is set only when Status is StatusConnected; Reason only for
// StatusError.
type ConnectionState struct {
	Status ConnectionStatus
	Device string
	Reason string
}

// String renders the state for logs. Every status is matched explicitly so a
// new state cannot be silently ignored.
func (s ConnectionState) String() string {
	switch s.Status {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return fmt.Sprintf("connected(%s)", s.Device)
	case StatusPermissionDenied:
		return "permission-denied"
	case StatusError:
		return fmt.Sprintf("error(%s)", s.Reason)
	default:
		return fmt.Sprintf("unknown(%d)", int(s.Status))
	}
}

// TriggerMode records how a measurement attempt was triggered.
type TriggerMode string

const (
	// ModeManual means the operator performs the tap by hand.
	ModeManual TriggerMode = "MANUAL"
	// ModeUSBSerial means the hardware trigger device performs the tap.
	ModeUSBSerial TriggerMode = "USB_SERIAL"
)

// HandshakeOutcome is the result of one handshake attempt. LatencyMs is set
// iff Completed is true.
type HandshakeOutcome struct {
	Completed bool   `json:"completed"`
	LatencyMs *int64 `json:"latency_ms,omitempty"`
}
