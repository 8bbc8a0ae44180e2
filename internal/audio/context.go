package audio

import (
	"sync"
	"time"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
)

// framePacing is how long a source sleeps after writing one chunk of
// frames, keeping playback roughly real time. Chunks carry 20ms of audio.
const framePacing = 20 * time.Millisecond

// Context owns the master output sink that playing sources mix into.
// Once closed it rejects further writes and every attached source winds
// down on its next write.
type Context struct {
	sampleRate int
	out        *RingBuffer
	pacing     time.Duration

	mu     sync.RWMutex
	closed bool
}

// ContextOption adjusts context construction.
type ContextOption func(*Context)

// WithPacing overrides the real-time pacing delay between chunks.
// A zero duration makes sources write as fast as the sink accepts,
// which is only useful in tests.
func WithPacing(d time.Duration) ContextOption {
	return func(c *Context) {
		c.pacing = d
	}
}

// NewContext creates an audio context with a ring-buffered output sink
// of bufferSize bytes.
func NewContext(sampleRate, bufferSize int, opts ...ContextOption) *Context {
	c := &Context{
		sampleRate: sampleRate,
		out:        NewRingBuffer(bufferSize),
		pacing:     framePacing,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SampleRate returns the context's output sample rate.
func (c *Context) SampleRate() int {
	return c.sampleRate
}

// Output exposes the master sink for downstream consumption.
func (c *Context) Output() *RingBuffer {
	return c.out
}

// Close disposes the context. Subsequent writes are rejected.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Closed reports whether the context has been disposed.
func (c *Context) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// writeFrames pushes interleaved stereo samples into the sink. It
// returns false once the context is closed so sources can stop.
func (c *Context) writeFrames(samples []int16) bool {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return false
	}

	data := samplesToBytes(samples)
	n := c.out.Write(data)
	observability.RecordAudioBytes("playback", int64(n))
	return true
}
