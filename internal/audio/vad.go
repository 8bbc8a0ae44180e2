package audio

import (
	"sync"
)

// DetectorConfig holds voice activity detection tuning.
type DetectorConfig struct {
	// EnergyThreshold is the RMS energy above which a frame counts as speech
	EnergyThreshold float64

	// SilenceFrames is how many consecutive quiet frames end an utterance
	SilenceFrames int
}

// DefaultDetectorConfig returns sensible defaults for 16kHz microphone audio
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		EnergyThreshold: 500.0,
		SilenceFrames:   10,
	}
}

// Detector tracks speech activity across a stream of PCM frames. It is
// used to drive the session's listening indicator, not to gate what gets
// forwarded to recognition.
type Detector struct {
	config DetectorConfig

	mu           sync.Mutex
	speaking     bool
	silenceCount int
}

// NewDetector creates a voice activity detector
func NewDetector(config DetectorConfig) *Detector {
	return &Detector{config: config}
}

// ProcessFrame analyzes one frame of mono samples. It returns whether
// speech is currently active plus edge flags for the frame where an
// utterance started or ended.
func (d *Detector) ProcessFrame(samples []int16) (speaking, started, ended bool) {
	energy := CalculateRMS(samples)

	d.mu.Lock()
	defer d.mu.Unlock()

	if energy >= d.config.EnergyThreshold {
		if !d.speaking {
			d.speaking = true
			started = true
		}
		d.silenceCount = 0
	} else if d.speaking {
		d.silenceCount++
		if d.silenceCount >= d.config.SilenceFrames {
			d.speaking = false
			d.silenceCount = 0
			ended = true
		}
	}

	return d.speaking, started, ended
}

// Reset clears detector state between utterances or sessions
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speaking = false
	d.silenceCount = 0
}

// BytesToSamples decodes little-endian 16-bit PCM bytes into samples,
// dropping a trailing odd byte.
func BytesToSamples(data []byte) []int16 {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	samples, _ := bytesToSamples(data)
	return samples
}
