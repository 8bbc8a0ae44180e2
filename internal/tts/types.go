package tts

import (
	"context"
	"errors"
)

// ErrSpeechUnavailable indicates spoken feedback could not be produced.
// Callers treat it as non-fatal: the session keeps running without audio
// confirmation.
var ErrSpeechUnavailable = errors.New("speech synthesis unavailable")

// Speaker produces spoken feedback for a line of text in the given
// BCP 47 language. Speak returns once the utterance completes so spoken
// steps never overlap.
type Speaker interface {
	Speak(ctx context.Context, text, languageTag string) error
}

// SpeakerFunc adapts a function to the Speaker interface.
type SpeakerFunc func(ctx context.Context, text, languageTag string) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, text, languageTag string) error {
	return f(ctx, text, languageTag)
}
