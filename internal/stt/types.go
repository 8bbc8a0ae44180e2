package stt

import "errors"

// ErrRecognitionUnavailable indicates speech input is not supported, denied,
// or the recognition backend cannot be reached. Fatal to the voice feature
// only; navigation keeps working.
var ErrRecognitionUnavailable = errors.New("speech recognition unavailable")

// TranscriptEvent is a single recognition result. Partial events are
// unstable hypotheses superseded by later events for the same utterance;
// a final event is the authoritative close of an utterance.
type TranscriptEvent struct {
	// IsFinal indicates a committed recognition (true) or an interim
	// hypothesis (false)
	IsFinal bool

	// Text is the transcribed text
	Text string
}

// EventSink receives recognizer output. Event delivers a transcript,
// End signals a normal end of the source, Fail a terminal error.
// Implementations must tolerate calls after the consumer has gone away.
type EventSink interface {
	Event(TranscriptEvent)
	End()
	Fail(err error)
}

// Recognizer abstracts the underlying speech recognition source.
// Start may be called again after Stop.
type Recognizer interface {
	// Start begins recognition for the given BCP 47 language tag,
	// delivering results to sink until Stop is called or the source ends
	Start(languageTag string, sink EventSink) error

	// SendAudio forwards an audio chunk to the recognizer
	SendAudio(data []byte) error

	// Stop tears down the current recognition session. Idempotent.
	Stop()
}
