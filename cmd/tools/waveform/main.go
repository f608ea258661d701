// Command waveform plots a WAV capture as a PNG, with the computed features
// and classification printed alongside. Useful for eyeballing why a capture
// classified the way it did.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tapsense-data/tapsense/internal/analysis"
	"github.com/tapsense-data/tapsense/internal/audio"
	"github.com/tapsense-data/tapsense/internal/security"
)

func main() {
	input := flag.String("i", "", "input WAV path")
	output := flag.String("o", "waveform.png", "output PNG path")
	maxPoints := flag.Int("max-points", 20000, "downsample to at most this many points")
	flag.Parse()

	if *input == "" {
		log.Fatal("input WAV path is required (-i)")
	}

	if err := security.ValidateWritePath(*output); err != nil {
		log.Fatalf("invalid output path: %v", err)
	}

	buf, err := audio.ReadWAVFile(*input)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *input, err)
	}

	result, err := analysis.Analyze(buf)
	if err != nil {
		log.Fatalf("failed to analyze %s: %v", *input, err)
	}

	normalized := buf.Normalize()
	stride := 1
	if len(normalized) > *maxPoints {
		stride = len(normalized) / *maxPoints
	}

	pts := make(plotter.XYs, 0, len(normalized)/stride+1)
	for i := 0; i < len(normalized); i += stride {
		pts = append(pts, plotter.XY{
			X: float64(i) / float64(buf.SampleRate),
			Y: normalized[i],
		})
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s: %s (%.0f%%)",
		*input, result.Classification.Status, result.Classification.Confidence*100)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "amplitude"
	p.Y.Min = -1
	p.Y.Max = 1

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("failed to build line: %v", err)
	}
	line.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	line.Width = vg.Points(0.5)
	p.Add(line)

	if err := p.Save(12*vg.Inch, 4*vg.Inch, *output); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}

	fmt.Printf("status:     %s (confidence %.2f)\n", result.Classification.Status, result.Classification.Confidence)
	fmt.Printf("power:      %.2f dB\n", result.Features.PowerDb)
	fmt.Printf("dominant:   %.1f Hz\n", result.Features.DominantFrequencyHz)
	fmt.Printf("flatness:   %.3f\n", result.Features.SpectralFlatness)
	fmt.Printf("samples:    %d (complete=%v)\n", result.SampleCount, result.Complete)
	fmt.Printf("plot:       %s\n", *output)
}
