package audio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestBufferNormalizeRange(t *testing.T) {
	b := NewBuffer([]int16{-32768, 0, 16384, 32767})
	got := b.Normalize()

	want := []float64{-1.0, 0.0, 0.5, 32767.0 / 32768.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Normalize()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBufferComplete(t *testing.T) {
	full := NewBuffer(make([]int16, TargetSamples))
	if !full.Complete() {
		t.Error("full buffer reported incomplete")
	}

	short := NewBuffer(make([]int16, TargetSamples-1))
	if short.Complete() {
		t.Error("short buffer reported complete")
	}
}

func TestWAVRoundTrip(t *testing.T) {
	in := NewBuffer([]int16{0, 100, -100, 32767, -32768, 42})

	var buf bytes.Buffer
	if err := WriteWAV(&buf, in); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	out, err := ReadWAV(&buf)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if out.SampleRate != SampleRate {
		t.Errorf("SampleRate = %d, want %d", out.SampleRate, SampleRate)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if out.Samples[i] != in.Samples[i] {
			t.Errorf("sample %d = %d, want %d", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestReadWAVStereoKeepsLeftChannel(t *testing.T) {
	// Hand-build a stereo file: left channel 1,2,3; right channel 9,9,9.
	var data bytes.Buffer
	data.WriteString("RIFF")
	writeLE32(&data, 36+12)
	data.WriteString("WAVE")
	data.WriteString("fmt ")
	writeLE32(&data, 16)
	writeLE16(&data, 1) // PCM
	writeLE16(&data, 2) // stereo
	writeLE32(&data, SampleRate)
	writeLE32(&data, SampleRate*4)
	writeLE16(&data, 4)
	writeLE16(&data, 16)
	data.WriteString("data")
	writeLE32(&data, 12)
	for _, pair := range [][2]int16{{1, 9}, {2, 9}, {3, 9}} {
		writeLE16(&data, int(uint16(pair[0])))
		writeLE16(&data, int(uint16(pair[1])))
	}

	out, err := ReadWAV(&data)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	want := []int16{1, 2, 3}
	if len(out.Samples) != len(want) {
		t.Fatalf("got %d samples, want %d", len(out.Samples), len(want))
	}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, out.Samples[i], want[i])
		}
	}
}

func writeLE16(b *bytes.Buffer, v int) {
	b.WriteByte(byte(v))
	b.WriteByte(byte(v >> 8))
}

func writeLE32(b *bytes.Buffer, v int) {
	b.WriteByte(byte(v))
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v >> 16))
	b.WriteByte(byte(v >> 24))
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"not riff":   []byte("JUNKJUNKJUNKJUNK"),
		"no data":    append([]byte("RIFF\x04\x00\x00\x00WAVE"), []byte{}...),
		"short blob": []byte("RIFF"),
	}
	for name, data := range cases {
		if _, err := ReadWAV(bytes.NewReader(data)); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestFileRecorderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tap.wav")
	in := NewBuffer([]int16{5, 6, 7, 8})
	if err := WriteWAVFile(path, in); err != nil {
		t.Fatalf("WriteWAVFile: %v", err)
	}

	rec := &FileRecorder{Path: path}
	out, err := rec.Record(context.Background())
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(out.Samples) != 4 || out.Samples[0] != 5 {
		t.Errorf("unexpected samples %v", out.Samples)
	}
}

func TestStubRecorderError(t *testing.T) {
	fail := errors.New("capture device unavailable")
	rec := &StubRecorder{Err: fail}

	if _, err := rec.Record(context.Background()); !errors.Is(err, fail) {
		t.Errorf("err = %v, want %v", err, fail)
	}
}

func TestStubRecorderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &StubRecorder{Buffer: NewBuffer([]int16{1})}
	if _, err := rec.Record(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
