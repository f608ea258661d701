// Package dsp implements the signal-processing core: feature extraction from a
// normalized PCM capture and rule-based tap classification. Everything in this
// package is pure and deterministic so results can be verified against golden
// outputs without mocking.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Feature extraction parameters.
const (
	// SilenceFloorDb is returned by PowerDb for an all-zero (or numerically
	// silent) buffer, instead of -Inf.
	SilenceFloorDb = -100.0

	// silenceRMS is the RMS level below which a buffer is treated as silent.
	silenceRMS = 1e-10

	// Autocorrelation lag search bounds. At 44100 Hz these bracket roughly
	// 22 Hz (lag 2000) to 2205 Hz (lag 20).
	MinLag = 20
	MaxLag = 2000

	// AnalysisWindow is the number of samples from the start of the buffer
	// used for the lag search. The tap transient sits at the front of the
	// capture, so a longer window adds cost without adding signal.
	AnalysisWindow = 8192
)

// FeatureSet holds the scalar features extracted from one capture. Immutable
// once produced; identical input buffers always yield identical values.
type FeatureSet struct {
	// PowerDb is the RMS power in dB, at most 0. Numerically silent
	// buffers report SilenceFloorDb; a faint non-silent signal can read
	// below that value.
	PowerDb float64 `json:"power_db"`

	// DominantFrequencyHz is the strongest periodicity found by the lag
	// search, or 0 when no positive correlation was found.
	DominantFrequencyHz float64 `json:"dominant_frequency_hz"`

	// SpectralFlatness is the variance-based flatness proxy in [0, 1].
	SpectralFlatness float64 `json:"spectral_flatness"`
}

// ComputeFeatures extracts the full feature set from normalized samples.
func ComputeFeatures(samples []float64, sampleRate int) FeatureSet {
	return FeatureSet{
		PowerDb:             PowerDb(samples),
		DominantFrequencyHz: DominantFrequency(samples, sampleRate),
		SpectralFlatness:    SpectralFlatnessProxy(samples),
	}
}

// PowerDb computes RMS power in dB: 20*log10(sqrt(mean(s^2))).
// Silence returns SilenceFloorDb rather than -Inf.
func PowerDb(samples []float64) float64 {
	if len(samples) == 0 {
		return SilenceFloorDb
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += s * s
	}
	rms := math.Sqrt(sumSq / float64(len(samples)))
	if rms < silenceRMS {
		return SilenceFloorDb
	}
	return 20 * math.Log10(rms)
}

// DominantFrequency estimates the strongest periodicity via a normalized
// autocorrelation lag search over [MinLag, MaxLag], evaluated on the first
// AnalysisWindow samples. Returns 0 when the buffer is too short for the
// minimum lag or when no candidate lag correlates positively.
func DominantFrequency(samples []float64, sampleRate int) float64 {
	window := samples
	if len(window) > AnalysisWindow {
		window = window[:AnalysisWindow]
	}
	if len(window) < MinLag+1 {
		return 0.0
	}

	maxLag := MaxLag
	if maxLag > len(window)-1 {
		maxLag = len(window) - 1
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := MinLag; lag <= maxLag; lag++ {
		n := len(window) - lag
		var num, energyA, energyB float64
		for i := 0; i < n; i++ {
			num += window[i] * window[i+lag]
			energyA += window[i] * window[i]
			energyB += window[i+lag] * window[i+lag]
		}
		den := math.Sqrt(energyA * energyB)
		if den == 0 {
			continue
		}
		corr := num / den
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	if bestLag == 0 {
		return 0.0
	}
	return float64(sampleRate) / float64(bestLag)
}

// SpectralFlatnessProxy approximates spectral flatness from sample variance:
// min(1, sqrt(variance)*10). This is not a true frequency-domain flatness
// measure; the classifier thresholds are calibrated against this exact proxy,
// so it must not be swapped for an FFT-based one.
func SpectralFlatnessProxy(samples []float64) float64 {
	if len(samples) < 2 {
		return 0.0
	}
	variance := stat.Variance(samples, nil)
	return math.Min(1.0, math.Sqrt(variance)*10)
}
