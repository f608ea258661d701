// Command gen-tap generates synthetic tap-response WAV fixtures for testing
// the analysis pipeline and the -wav replay capture source.
package main

import (
	"flag"
	"log"
	"math"
	"math/rand"

	"github.com/tapsense-data/tapsense/internal/audio"
	"github.com/tapsense-data/tapsense/internal/security"
)

func main() {
	output := flag.String("o", "tap.wav", "output path")
	kind := flag.String("kind", "crack", "signal kind: crack, normal, noise")
	seconds := flag.Float64("seconds", audio.CaptureSeconds, "capture duration")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := security.ValidateWritePath(*output); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	n := int(*seconds * audio.SampleRate)
	if n <= 0 {
		log.Fatalf("invalid duration %v", *seconds)
	}

	rng := rand.New(rand.NewSource(*seed))
	samples := make([]int16, n)

	switch *kind {
	case "crack":
		// Loud high-frequency ring with a broadband component.
		for i := range samples {
			t := float64(i) / audio.SampleRate
			v := 0.4*math.Sin(2*math.Pi*2200*t) + 0.1*(rng.Float64()*2-1)
			samples[i] = clamp(v)
		}
	case "normal":
		// Quiet low-frequency thud.
		for i := range samples {
			t := float64(i) / audio.SampleRate
			decay := math.Exp(-3 * t)
			samples[i] = clamp(0.05 * decay * math.Sin(2*math.Pi*400*t))
		}
	case "noise":
		// Near-silence with a trace of room noise.
		for i := range samples {
			samples[i] = clamp(0.001 * (rng.Float64()*2 - 1))
		}
	default:
		log.Fatalf("unknown kind %q (want crack, normal, or noise)", *kind)
	}

	buf := audio.NewBuffer(samples)
	if err := audio.WriteWAVFile(*output, buf); err != nil {
		log.Fatalf("failed to write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s (%s, %.1fs, %d samples)", *output, *kind, *seconds, n)
}

func clamp(v float64) int16 {
	s := v * 32767
	if s > 32767 {
		s = 32767
	}
	if s < -32768 {
		s = -32768
	}
	return int16(s)
}
