package trigger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/tapsense-data/tapsense/internal/analysis"
	"github.com/tapsense-data/tapsense/internal/audio"
	"github.com/tapsense-data/tapsense/internal/monitoring"
	"github.com/tapsense-data/tapsense/internal/timeutil"
)

// Measurement bundles everything one attempt produced for persistence:
// the analysis of the capture, the mode that was resolved before capture, the
// mode actually in effect after handshake outcomes, and the handshake result.
type Measurement struct {
	Result *analysis.Result

	// ResolvedMode is the mode decided before capture started. It never
	// changes for the attempt.
	ResolvedMode TriggerMode

	// EffectiveMode is what the attempt amounted to: a failed handshake
	// downgrades USB_SERIAL to MANUAL for reporting, without touching the
	// capture.
	EffectiveMode TriggerMode

	Handshake HandshakeOutcome
}

// Coordinator composes the handshake with the independently running capture
// window. The capture is authoritative for timing: nothing on the handshake
// path may extend, shorten, or block it.
type Coordinator struct {
	conn      *Connection
	handshake *Handshaker
	recorder  audio.Recorder
	clock     timeutil.Clock
}

// NewCoordinator wires a coordinator from its collaborators. A nil clock
// falls back to the real clock.
func NewCoordinator(conn *Connection, handshake *Handshaker, recorder audio.Recorder, clock timeutil.Clock) *Coordinator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Coordinator{conn: conn, handshake: handshake, recorder: recorder, clock: clock}
}

// ResolveMode decides the trigger mode for the next attempt. The checks
// short-circuit to MANUAL on the first negative answer: already connected,
// device discoverable and permitted, connect succeeds. Connect tears down
// fully on partial failure, so no state leaks into the MANUAL path.
// ResolveMode never returns an error; with no device present it is an
// idempotent MANUAL.
func (c *Coordinator) ResolveMode() TriggerMode {
	if c.conn == nil {
		return ModeManual
	}
	if c.conn.State().Status == StatusConnected {
		return ModeUSBSerial
	}
	if err := c.conn.Connect(); err != nil {
		monitoring.Debugf("trigger: resolve mode: %v", err)
		return ModeManual
	}
	return ModeUSBSerial
}

// RunMeasurement performs one measurement attempt:
//
//  1. Resolve the mode (fast; typically an already-cached connection).
//  2. Start the fixed-duration capture.
//  3. Concurrently run the handshake when in USB_SERIAL mode, absorbing
//     every handshake failure into HandshakeOutcome{Completed: false}.
//  4. Join, then analyze.
//
// Capture failures are fatal to the attempt and propagate; handshake
// failures never do. Cancellation of ctx aborts both tasks and leaves the
// port closed.
func (c *Coordinator) RunMeasurement(ctx context.Context) (*Measurement, error) {
	mode := c.ResolveMode()

	var (
		buf     *audio.Buffer
		outcome HandshakeOutcome
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buf, err = c.recorder.Record(gctx)
		if err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
		return nil
	})
	if mode == ModeUSBSerial {
		g.Go(func() error {
			// Handshake errors are absorbed here: they must never
			// cancel or fail the capture.
			result, err := c.handshake.Run(gctx)
			if err != nil {
				monitoring.Logf("trigger: handshake failed, downgrading to manual: %v", err)
				outcome = HandshakeOutcome{Completed: false}
				return nil
			}
			outcome = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// ctx.Err() distinguishes external cancellation (abort or
		// deadline) from an internal capture failure: only the former
		// tears the connection down.
		if ctx.Err() != nil {
			c.cleanup()
		}
		return nil, err
	}

	result, err := analysis.Analyze(buf)
	if err != nil {
		return nil, err
	}

	effective := mode
	if mode == ModeUSBSerial && !outcome.Completed {
		effective = ModeManual
	}

	return &Measurement{
		Result:        result,
		ResolvedMode:  mode,
		EffectiveMode: effective,
		Handshake:     outcome,
	}, nil
}

// cleanup releases shared resources on external cancellation, whether a user
// abort or a deadline: same path as a normal completion's teardown.
func (c *Coordinator) cleanup() {
	if c.conn != nil {
		c.conn.Disconnect()
	}
}
