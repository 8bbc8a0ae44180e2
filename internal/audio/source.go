package audio

import (
	"sync"
	"time"
)

// Source is one playback of a buffer through a context. It runs its own
// goroutine and ends when the buffer is exhausted, the source is stopped,
// or the context closes.
type Source struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func startSource(actx *Context, buf *Buffer, gainL, gainR float64, onDone func(*Source)) *Source {
	s := &Source{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer func() {
			close(s.done)
			if onDone != nil {
				onDone(s)
			}
		}()

		chunk := buf.SampleRate / 50 // 20ms of mono samples
		if chunk <= 0 {
			chunk = 256
		}

		stereo := make([]int16, 0, chunk*2)
		for offset := 0; offset < len(buf.Samples); offset += chunk {
			select {
			case <-s.stop:
				return
			default:
			}

			end := offset + chunk
			if end > len(buf.Samples) {
				end = len(buf.Samples)
			}

			stereo = stereo[:0]
			for _, sample := range buf.Samples[offset:end] {
				stereo = append(stereo,
					int16(float64(sample)*gainL),
					int16(float64(sample)*gainR))
			}

			if !actx.writeFrames(stereo) {
				return
			}

			if actx.pacing > 0 {
				select {
				case <-s.stop:
					return
				case <-time.After(actx.pacing):
				}
			}
		}
	}()

	return s
}

// Stop requests the source to end playback. Safe to call any number of
// times and safe to race with natural completion.
func (s *Source) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
}

// Done is closed when playback has fully wound down.
func (s *Source) Done() <-chan struct{} {
	return s.done
}
