package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Buffer holds decoded mono PCM ready for playback.
type Buffer struct {
	SampleRate int
	Samples    []int16
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// DecodePCM16 decodes an audio asset into a playable buffer. Assets are
// 16-bit little-endian PCM, either raw or wrapped in a WAV container.
// Raw payloads are assumed to be mono at fallbackRate; WAV payloads carry
// their own sample rate and are downmixed to mono when stereo.
func DecodePCM16(data []byte, fallbackRate int) (*Buffer, error) {
	if len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return decodeWAV(data)
	}

	samples, err := bytesToSamples(data)
	if err != nil {
		return nil, err
	}
	if fallbackRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", fallbackRate)
	}
	return &Buffer{SampleRate: fallbackRate, Samples: samples}, nil
}

func decodeWAV(data []byte) (*Buffer, error) {
	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		pcm           []byte
	)

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+size > len(data) {
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("wav fmt chunk truncated (%d bytes)", size)
			}
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
		case "data":
			pcm = data[body : body+size]
		}

		pos = body + size
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}

	if sampleRate <= 0 || pcm == nil {
		return nil, fmt.Errorf("wav payload missing fmt or data chunk")
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported wav bit depth %d", bitsPerSample)
	}

	samples, err := bytesToSamples(pcm)
	if err != nil {
		return nil, err
	}

	if channels == 2 {
		mono := make([]int16, 0, len(samples)/2)
		for i := 0; i+1 < len(samples); i += 2 {
			mono = append(mono, int16((int32(samples[i])+int32(samples[i+1]))/2))
		}
		samples = mono
	} else if channels != 1 {
		return nil, fmt.Errorf("unsupported wav channel count %d", channels)
	}

	return &Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

func bytesToSamples(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm payload has odd length %d", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples, nil
}

func samplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

// CalculateRMS calculates the root mean square energy of PCM samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, sample := range samples {
		val := float64(sample)
		sum += val * val
	}

	return math.Sqrt(sum / float64(len(samples)))
}
