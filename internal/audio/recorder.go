package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/tapsense-data/tapsense/internal/timeutil"
)

// Recorder is the capture collaborator. Record blocks for the fixed capture
// window and returns the resulting buffer. A short buffer (early stop) is a
// valid success; a nil buffer with an error means the attempt produced no
// usable audio and the whole measurement must fail.
type Recorder interface {
	Record(ctx context.Context) (*Buffer, error)
}

// FileRecorder satisfies Recorder by replaying a WAV fixture. It stands in for
// the microphone in dev mode and keeps the capture timeline realistic by
// sleeping for the nominal capture duration.
type FileRecorder struct {
	Path  string
	Clock timeutil.Clock

	// Realtime makes Record take the full capture window, matching the
	// latency profile of a real capture. Off by default for fast dev runs.
	Realtime bool
}

// Record reads the fixture file, optionally pacing to the capture duration.
func (r *FileRecorder) Record(ctx context.Context) (*Buffer, error) {
	buf, err := ReadWAVFile(r.Path)
	if err != nil {
		return nil, fmt.Errorf("file recorder: %w", err)
	}
	if r.Realtime {
		clock := r.Clock
		if clock == nil {
			clock = timeutil.RealClock{}
		}
		timer := clock.NewTimer(time.Duration(buf.DurationSeconds() * float64(time.Second)))
		defer timer.Stop()
		select {
		case <-timer.C():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

// StubRecorder satisfies Recorder with a canned buffer or error. Used by tests
// and by the trigger coordinator's own tests to stand in for capture hardware.
type StubRecorder struct {
	Buffer *Buffer
	Err    error
}

// Record returns the canned result.
func (r *StubRecorder) Record(ctx context.Context) (*Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Buffer, nil
}
