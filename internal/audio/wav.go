package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WAV support is limited to the one capture shape produced by the recorder:
// RIFF/WAVE, PCM, 16-bit. Stereo files are downmixed by keeping the left
// channel, matching the behaviour of the capture collaborator.

// ReadWAVFile reads a PCM16 WAV file into a Buffer.
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open wav file: %w", err)
	}
	defer f.Close()
	return ReadWAV(f)
}

// ReadWAV decodes a PCM16 WAV stream into a Buffer.
func ReadWAV(r io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read wav data: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		sawFormat     bool
	)

	// Walk the chunk list. The fmt chunk must precede the data chunk.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			return nil, fmt.Errorf("truncated %q chunk: declared %d bytes, %d available", chunkID, chunkSize, len(data)-body)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("fmt chunk too short: %d bytes", chunkSize)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav format %d: only PCM is supported", format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			sawFormat = true

		case "data":
			if !sawFormat {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("unsupported sample width %d bits: only 16-bit PCM is supported", bitsPerSample)
			}
			if channels != 1 && channels != 2 {
				return nil, fmt.Errorf("unsupported channel count %d", channels)
			}
			samples := decodePCM16(data[body:body+chunkSize], channels)
			return &Buffer{Samples: samples, SampleRate: sampleRate}, nil
		}

		// Chunks are word-aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	return nil, fmt.Errorf("no data chunk found")
}

func decodePCM16(raw []byte, channels int) []int16 {
	frames := len(raw) / 2 / channels
	samples := make([]int16, frames)
	for i := 0; i < frames; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2*channels : i*2*channels+2]))
	}
	return samples
}

// WriteWAV encodes a Buffer as a mono PCM16 WAV stream.
func WriteWAV(w io.Writer, b *Buffer) error {
	dataSize := len(b.Samples) * 2
	var header bytes.Buffer
	header.WriteString("RIFF")
	binary.Write(&header, binary.LittleEndian, uint32(36+dataSize))
	header.WriteString("WAVE")
	header.WriteString("fmt ")
	binary.Write(&header, binary.LittleEndian, uint32(16))
	binary.Write(&header, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&header, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&header, binary.LittleEndian, uint32(b.SampleRate))
	binary.Write(&header, binary.LittleEndian, uint32(b.SampleRate*2)) // byte rate
	binary.Write(&header, binary.LittleEndian, uint16(2))              // block align
	binary.Write(&header, binary.LittleEndian, uint16(16))             // bits per sample
	header.WriteString("data")
	binary.Write(&header, binary.LittleEndian, uint32(dataSize))

	if _, err := w.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write wav header: %w", err)
	}

	pcm := make([]byte, dataSize)
	for i, s := range b.Samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	if _, err := w.Write(pcm); err != nil {
		return fmt.Errorf("failed to write wav data: %w", err)
	}
	return nil
}

// WriteWAVFile encodes a Buffer to a WAV file at path.
func WriteWAVFile(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create wav file: %w", err)
	}
	if err := WriteWAV(f, b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
