// Package audio defines the capture contract consumed by the analysis and
// trigger layers: fixed-shape mono PCM buffers and the Recorder collaborator
// that produces them.
package audio

// Capture shape. The analyzer is calibrated against exactly this format;
// changing any of these would invalidate the classifier thresholds.
const (
	// SampleRate is the fixed capture sample rate in Hz.
	SampleRate = 44100

	// Channels is the fixed channel count (mono).
	Channels = 1

	// CaptureSeconds is the fixed capture duration.
	CaptureSeconds = 10

	// TargetSamples is the expected sample count for a full capture.
	TargetSamples = SampleRate * CaptureSeconds
)

// Buffer is a fixed-shape mono PCM capture. Samples is either exactly
// TargetSamples long (full capture) or shorter (early-stopped capture).
// A short buffer is legitimate and must be handled as-is: callers never pad.
type Buffer struct {
	Samples    []int16
	SampleRate int
}

// NewBuffer wraps samples in a Buffer at the standard sample rate.
func NewBuffer(samples []int16) *Buffer {
	return &Buffer{Samples: samples, SampleRate: SampleRate}
}

// Len returns the number of samples.
func (b *Buffer) Len() int {
	return len(b.Samples)
}

// Complete reports whether the buffer holds a full-duration capture.
func (b *Buffer) Complete() bool {
	return len(b.Samples) >= TargetSamples
}

// DurationSeconds returns the buffer length in seconds.
func (b *Buffer) DurationSeconds() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Normalize converts the raw 16-bit samples to float64 in [-1.0, 1.0).
// Division by 32768 matches the calibration of the downstream classifier.
func (b *Buffer) Normalize() []float64 {
	out := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}
