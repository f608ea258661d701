package serialmux

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/timeutil"
)

var (
	// ErrWriteTimeout is returned when a command write does not complete
	// within the write timeout.
	ErrWriteTimeout = errors.New("serial write timed out")

	// ErrShortWrite is returned when the port accepts fewer bytes than the
	// command holds.
	ErrShortWrite = errors.New("short write to serial port")

	// ErrClosed is returned for operations on a closed transport.
	ErrClosed = errors.New("serial transport closed")
)

// Transport wraps an open serial port with the concurrency and timeout
// contract the trigger protocol relies on: writes are mutually exclusive and
// bounded by a write timeout, reads are single bounded polls. Reads and
// writes may proceed concurrently (the channel is full duplex); two writes, or
// a close racing a write, are serialized.
type Transport struct {
	port  TimeoutSerialPorter
	clock timeutil.Clock

	// WriteTimeout bounds a single Write call. Defaults to
	// DefaultWriteTimeout; tests shorten it.
	WriteTimeout time.Duration

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewTransport wraps an opened port. A nil clock falls back to the real clock.
func NewTransport(port TimeoutSerialPorter, clock timeutil.Clock) *Transport {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Transport{port: port, clock: clock, WriteTimeout: DefaultWriteTimeout}
}

// Open opens a port at path via the factory and wraps it in a Transport.
func Open(factory PortFactory, path string, opts PortOptions, clock timeutil.Clock) (*Transport, error) {
	port, err := factory.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return NewTransport(port, clock), nil
}

// Write sends the full payload to the port, failing with ErrWriteTimeout if
// the write does not complete within DefaultWriteTimeout. On timeout the
// in-flight write may still land on the wire later; callers treat a timeout as
// an I/O failure and close the transport, which unblocks the straggler.
func (t *Transport) Write(payload []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.isClosed() {
		return ErrClosed
	}

	type writeResult struct {
		n   int
		err error
	}
	done := make(chan writeResult, 1)
	go func() {
		n, err := t.port.Write(payload)
		done <- writeResult{n, err}
	}()

	timer := t.clock.NewTimer(t.WriteTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("serial write failed: %w", res.err)
		}
		if res.n != len(payload) {
			return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, res.n, len(payload))
		}
		return nil
	case <-timer.C():
		monitoring.Logf("serial: write of %d bytes timed out", len(payload))
		return ErrWriteTimeout
	}
}

// ReadAvailable performs one bounded poll read into p, returning the number of
// bytes that arrived within the port's read timeout. A return of (0, nil)
// means nothing arrived; it does not enforce any overall deadline.
func (t *Transport) ReadAvailable(p []byte) (int, error) {
	if t.isClosed() {
		return 0, ErrClosed
	}
	if len(p) > ReadChunkSize {
		p = p[:ReadChunkSize]
	}
	n, err := t.port.Read(p)
	if err != nil {
		return n, fmt.Errorf("serial read failed: %w", err)
	}
	return n, nil
}

// Close closes the underlying port. Safe to call more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	return t.port.Close()
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
