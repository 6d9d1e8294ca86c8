package dsp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidWAV reports a file that is not a decodable RIFF/WAVE
	// payload.
	ErrInvalidWAV = errors.New("invalid WAV data")
)

// DecodeWAV parses a RIFF/WAVE payload with 16-bit PCM samples and
// returns normalized mono samples in [-1, 1] plus the sample rate.
// Multi-channel audio is downmixed by averaging the channels.
func DecodeWAV(data []byte) ([]float64, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			chunkSize = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, 0, fmt.Errorf("%w: short fmt chunk", ErrInvalidWAV)
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, 0, fmt.Errorf("%w: unsupported format %d, expected PCM", ErrInvalidWAV, format)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+chunkSize]
		}

		// Chunks are word aligned.
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if sampleRate == 0 || channels == 0 {
		return nil, 0, fmt.Errorf("%w: missing fmt chunk", ErrInvalidWAV)
	}
	if pcm == nil {
		return nil, 0, fmt.Errorf("%w: missing data chunk", ErrInvalidWAV)
	}
	if bitsPerSample != 16 {
		return nil, 0, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, bitsPerSample)
	}

	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		for ch := 0; ch < channels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(pcm[i*frameBytes+ch*2:]))
			sum += float64(raw) / 32768.0
		}
		samples[i] = sum / float64(channels)
	}
	return samples, sampleRate, nil
}

// DecodeFloat32LE interprets raw bytes as little-endian float32 samples,
// the framing used by streaming audio clients.
func DecodeFloat32LE(data []byte) []float64 {
	count := len(data) / 4
	samples := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = float64(math.Float32frombits(bits))
	}
	return samples
}
