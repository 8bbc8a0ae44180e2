package stt

import (
	"sync"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
)

// Stream is a cancelable sequence of transcript events. It ends when the
// caller closes it, or when the underlying recognizer ends or errors.
// Callers distinguish the two terminations via Err after the events
// channel closes.
type Stream struct {
	events chan TranscriptEvent

	mu     sync.Mutex
	closed bool
	err    error

	stopOnce sync.Once
	stop     func()
}

func newStream(stop func()) *Stream {
	return &Stream{
		events: make(chan TranscriptEvent, 64),
		stop:   stop,
	}
}

// Events returns the event channel. It is closed when the stream ends.
func (s *Stream) Events() <-chan TranscriptEvent {
	return s.events
}

// Err reports why the stream ended. Nil means it ended normally or was
// closed by the caller.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close cancels the stream. It returns immediately; the underlying
// recognizer teardown may complete asynchronously, but no new events are
// accepted once Close returns. Safe to call multiple times.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Event implements EventSink. Events arriving after the stream ended are
// discarded; a full buffer drops the event rather than blocking the
// recognizer callback.
func (s *Stream) Event(ev TranscriptEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.events <- ev:
		observability.RecordTranscriptEvent(ev.IsFinal)
	default:
	}
}

// End implements EventSink for a normal source end.
func (s *Stream) End() {
	s.finish(nil)
}

// Fail implements EventSink for a terminal recognizer error.
func (s *Stream) Fail(err error) {
	s.finish(err)
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.err = err
	close(s.events)
}
