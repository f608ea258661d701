// Package analysis orchestrates the capture-to-classification pipeline:
// normalize, extract features, classify, bundle. It owns the error taxonomy
// for malformed input and for numeric failures escaping the extractors.
package analysis

import (
	"fmt"
	"math"

	"github.com/tapsense-data/tapsense/internal/audio"
	"github.com/tapsense-data/tapsense/internal/dsp"
)

// Result bundles everything derived from one capture.
type Result struct {
	Features       dsp.FeatureSet           `json:"features"`
	Classification dsp.ClassificationResult `json:"classification"`

	// SampleCount records how many samples the capture actually held; a
	// value below audio.TargetSamples marks an early-stopped capture.
	SampleCount int  `json:"sample_count"`
	Complete    bool `json:"complete"`
}

// Analyze runs the full pipeline over a capture. It returns a DecodeError for
// an empty or inconsistent buffer and an AnalysisError if a non-finite value
// escapes feature extraction; it never lets NaN/Inf through to the caller.
func Analyze(buf *audio.Buffer) (*Result, error) {
	if buf == nil || len(buf.Samples) == 0 {
		return nil, &DecodeError{Reason: "empty capture buffer"}
	}
	if buf.SampleRate <= 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid sample rate %d", buf.SampleRate)}
	}
	if len(buf.Samples) > audio.TargetSamples {
		return nil, &DecodeError{Reason: fmt.Sprintf("capture holds %d samples, exceeds target %d", len(buf.Samples), audio.TargetSamples)}
	}

	features := dsp.ComputeFeatures(buf.Normalize(), buf.SampleRate)
	if err := checkFinite(features); err != nil {
		return nil, err
	}

	return &Result{
		Features:       features,
		Classification: dsp.Classify(features),
		SampleCount:    len(buf.Samples),
		Complete:       buf.Complete(),
	}, nil
}

func checkFinite(f dsp.FeatureSet) error {
	for name, v := range map[string]float64{
		"power_db":              f.PowerDb,
		"dominant_frequency_hz": f.DominantFrequencyHz,
		"spectral_flatness":     f.SpectralFlatness,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &AnalysisError{Reason: fmt.Sprintf("non-finite %s: %v", name, v)}
		}
	}
	return nil
}
