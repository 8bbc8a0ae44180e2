// Package stt adapts a continuous speech recognition source into a
// cancelable stream of partial/final transcript events.
package stt

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Adapter owns at most one open transcript stream over a Recognizer.
type Adapter struct {
	rec    Recognizer
	logger zerolog.Logger

	mu     sync.Mutex
	active *Stream
}

// NewAdapter creates an adapter over the given recognizer
func NewAdapter(rec Recognizer, logger zerolog.Logger) *Adapter {
	return &Adapter{rec: rec, logger: logger}
}

// Open starts recognition and returns the event stream. If a stream is
// already open it is closed first; only one stream exists per adapter.
// Startup failures are reported as ErrRecognitionUnavailable.
func (a *Adapter) Open(languageTag string) (*Stream, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		a.logger.Debug().Msg("Closing previous transcript stream before reopening")
		a.active.Close()
		a.active = nil
	}

	stream := newStream(a.rec.Stop)
	if err := a.rec.Start(languageTag, stream); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err)
	}

	a.active = stream
	a.logger.Info().Str("language", languageTag).Msg("Transcript stream opened")
	return stream, nil
}

// SendAudio forwards an audio chunk to the recognizer
func (a *Adapter) SendAudio(data []byte) error {
	return a.rec.SendAudio(data)
}

// Close cancels the active stream, if any
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.active != nil {
		a.active.Close()
		a.active = nil
	}
}
