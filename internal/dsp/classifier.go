package dsp

import "math"

// TapStatus is the 3-way classification of a tap capture.
type TapStatus string

const (
	// StatusCrack indicates the acoustic signature of a cracked panel.
	StatusCrack TapStatus = "CRACK"
	// StatusNormal indicates an intact-panel tap response.
	StatusNormal TapStatus = "NORMAL"
	// StatusNoise indicates the capture carried no usable tap signal.
	StatusNoise TapStatus = "NOISE"
)

// Classification thresholds, calibrated against the flatness proxy and the
// autocorrelation frequency estimate above. Not interchangeable with values
// tuned for FFT-based features.
const (
	// ImmediateNoiseFloorDb short-circuits classification before any
	// indicator counting.
	ImmediateNoiseFloorDb = -50.0

	// FallbackNoiseFloorDb applies only in the zero-indicator branch. It
	// overlaps ImmediateNoiseFloorDb; the two checks fire at different
	// points and must stay separate.
	FallbackNoiseFloorDb = -40.0

	// CrackFrequencyHz: taps over a crack ring with high-frequency content.
	CrackFrequencyHz = 1500.0

	// CrackFlatness: crack responses are noise-like rather than tonal.
	CrackFlatness = 0.6

	// CrackPowerDb: crack responses tend to be loud.
	CrackPowerDb = -20.0

	// Confidence levels.
	NoiseConfidence       = 0.6
	SingleIndicatorNormal = 0.7
	QuietNormalConfidence = 0.8
	CrackConfidenceBase   = 0.5
	CrackConfidencePer    = 0.2
	CrackConfidenceMax    = 0.9
)

// ClassificationResult is the outcome of classifying one capture.
type ClassificationResult struct {
	Status     TapStatus `json:"status"`
	Confidence float64   `json:"confidence"`
}

// Classify maps a feature set to a status and confidence. Pure and total:
// every feature set yields exactly one result, and the same features always
// yield the same result.
//
// The rule order is load-bearing. The -50 dB floor is checked before indicator
// counting, and the -40 dB floor is re-checked only when no indicator fired.
// Do not merge the two floors.
func Classify(f FeatureSet) ClassificationResult {
	if f.PowerDb < ImmediateNoiseFloorDb {
		return ClassificationResult{Status: StatusNoise, Confidence: NoiseConfidence}
	}

	indicators := 0
	if f.DominantFrequencyHz > CrackFrequencyHz {
		indicators++
	}
	if f.SpectralFlatness > CrackFlatness {
		indicators++
	}
	if f.PowerDb > CrackPowerDb {
		indicators++
	}

	switch {
	case indicators >= 2:
		confidence := math.Min(CrackConfidenceMax, CrackConfidenceBase+float64(indicators)*CrackConfidencePer)
		return ClassificationResult{Status: StatusCrack, Confidence: confidence}
	case indicators == 1:
		return ClassificationResult{Status: StatusNormal, Confidence: SingleIndicatorNormal}
	default:
		if f.PowerDb < FallbackNoiseFloorDb {
			return ClassificationResult{Status: StatusNoise, Confidence: NoiseConfidence}
		}
		return ClassificationResult{Status: StatusNormal, Confidence: QuietNormalConfidence}
	}
}
