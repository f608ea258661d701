// Package serialmux provides the byte-level serial transport used to talk to
// the hardware tap trigger. It knows nothing about the trigger protocol; it
// only offers timeout-capable reads, mutex-serialized writes, and a factory
// abstraction so the port can be swapped for a testable fake.
package serialmux

import (
	"io"
	"time"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// TimeoutSerialPorter extends SerialPorter with a per-call read timeout.
// Real ports implement this; the transport requires it so that a poll read
// returns 0 bytes after the timeout instead of blocking indefinitely.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// PortFactory defines an interface for opening serial ports.
// This abstraction enables dependency injection of port creation.
type PortFactory interface {
	// Open opens a serial port at the specified path with the given options.
	Open(path string, opts PortOptions) (TimeoutSerialPorter, error)
}
