package trigger

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/serialmux"
	"github.com/tapsense-data/tapsense/internal/timeutil"
)

// Wire protocol. ASCII commands, newline terminated; the acknowledgment is
// the substring DONE anywhere in the accumulated response stream.
const (
	CommandStart = "START\n"
	CommandTap   = "TAP\n"
	AckToken     = "DONE"

	// DefaultStabilization is the fixed wait after connecting before any
	// protocol I/O, long enough for the device to finish its boot
	// sequence. There is no way to detect readiness, so it is never
	// skipped.
	DefaultStabilization = 2000 * time.Millisecond

	// DefaultHandshakeTimeout bounds the whole wait for DONE, measured by
	// wall clock from the instant START was sent. Independent of the
	// per-poll read timeout.
	DefaultHandshakeTimeout = 5000 * time.Millisecond

	// defaultPollInterval is the pause after an empty poll so the loop is
	// not hot when the port returns immediately.
	defaultPollInterval = 10 * time.Millisecond
)

// Handshaker runs the START/DONE exchange over a connected trigger device.
// A single handshake is in flight at a time; concurrent Run calls serialize.
type Handshaker struct {
	conn  *Connection
	clock timeutil.Clock

	// Timing knobs default to the protocol contract; tests shorten them.
	Stabilization time.Duration
	Timeout       time.Duration
	PollInterval  time.Duration

	mu sync.Mutex
}

// NewHandshaker creates a Handshaker over conn with the protocol's timing
// contract. A nil clock falls back to the real clock.
func NewHandshaker(conn *Connection, clock timeutil.Clock) *Handshaker {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Handshaker{
		conn:          conn,
		clock:         clock,
		Stabilization: DefaultStabilization,
		Timeout:       DefaultHandshakeTimeout,
		PollInterval:  defaultPollInterval,
	}
}

// Run performs one handshake: stabilization delay, START write, then a poll
// loop accumulating bytes until AckToken appears or the overall deadline
// elapses. Latency is measured from the instant START was written.
//
// Failure modes map to the error taxonomy: a write or read failure returns an
// IoError and moves the connection to Error with the port closed; deadline
// expiry returns ErrHandshakeTimeout and leaves the connection up. Both yield
// an outcome with Completed false; an incomplete accumulation buffer is
// discarded.
func (h *Handshaker) Run(ctx context.Context) (HandshakeOutcome, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	transport := h.conn.Transport()
	if transport == nil {
		return HandshakeOutcome{}, &ConnError{Reason: "handshake requires a connected device"}
	}

	if err := h.sleep(ctx, h.Stabilization); err != nil {
		return HandshakeOutcome{}, err
	}

	if err := transport.Write([]byte(CommandStart)); err != nil {
		h.conn.Fail("start command write failed")
		return HandshakeOutcome{}, &IoError{Op: "write", Err: err}
	}
	start := h.clock.Now()

	var acc []byte
	buf := make([]byte, serialmux.ReadChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return HandshakeOutcome{}, err
		}
		if h.clock.Since(start) >= h.Timeout {
			monitoring.Logf("trigger: handshake timed out after %v (no DONE)", h.Timeout)
			return HandshakeOutcome{}, ErrHandshakeTimeout
		}

		n, err := transport.ReadAvailable(buf)
		if err != nil {
			h.conn.Fail("response read failed")
			return HandshakeOutcome{}, &IoError{Op: "read", Err: err}
		}
		if n == 0 {
			if err := h.sleep(ctx, h.PollInterval); err != nil {
				return HandshakeOutcome{}, err
			}
			continue
		}

		acc = append(acc, buf[:n]...)
		if bytes.Contains(acc, []byte(AckToken)) {
			latency := h.clock.Since(start).Milliseconds()
			monitoring.Debugf("trigger: handshake acknowledged in %dms", latency)
			return HandshakeOutcome{Completed: true, LatencyMs: &latency}, nil
		}
	}
}

// Tap sends the one-shot trigger command. It bypasses the handshake and
// carries no acknowledgment; a write failure still fails the connection.
func (h *Handshaker) Tap() error {
	transport := h.conn.Transport()
	if transport == nil {
		return &ConnError{Reason: "tap requires a connected device"}
	}
	if err := transport.Write([]byte(CommandTap)); err != nil {
		h.conn.Fail("tap command write failed")
		return &IoError{Op: "write", Err: err}
	}
	return nil
}

// sleep waits d or until ctx is cancelled, whichever comes first.
func (h *Handshaker) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := h.clock.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
