package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

// Fetcher retrieves the raw bytes of an audio asset.
type Fetcher func(ctx context.Context, assetURL string) ([]byte, error)

// Decoder turns raw asset bytes into a playable buffer.
type Decoder func(data []byte) (*Buffer, error)

// AssetLoadError reports that one beacon's asset could not be fetched or
// decoded. Other beacons are unaffected.
type AssetLoadError struct {
	BeaconID string
	Err      error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("beacon %s: asset load failed: %v", e.BeaconID, e.Err)
}

func (e *AssetLoadError) Unwrap() error {
	return e.Err
}

type beacon struct {
	id       string
	position world.Vector3
	buffer   *Buffer
	source   *Source
}

// Engine manages positioned audio beacons on top of a shared context.
// Each beacon plays at most one source at a time.
type Engine struct {
	actx   *Context
	fetch  Fetcher
	decode Decoder
	logger zerolog.Logger

	mu      sync.Mutex
	beacons map[string]*beacon
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithFetcher overrides how assets are retrieved.
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) {
		e.fetch = f
	}
}

// WithDecoder overrides how asset bytes are decoded.
func WithDecoder(d Decoder) Option {
	return func(e *Engine) {
		e.decode = d
	}
}

// NewEngine creates an engine over the given context. By default assets
// are fetched over HTTP and decoded as 16-bit PCM.
func NewEngine(actx *Context, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		actx:    actx,
		fetch:   httpFetch,
		logger:  logger.With().Str("component", "audio_engine").Logger(),
		beacons: make(map[string]*beacon),
	}
	e.decode = func(data []byte) (*Buffer, error) {
		return DecodePCM16(data, actx.SampleRate())
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func httpFetch(ctx context.Context, assetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("asset fetch returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// LoadBeacon registers a beacon at the given position and attempts to
// fetch and decode its asset. On failure the beacon is still registered
// (without audio) so positional state survives, and an AssetLoadError is
// returned for the caller to log. Reloading an existing id replaces its
// cached buffer.
func (e *Engine) LoadBeacon(ctx context.Context, id, assetURL string, position world.Vector3) error {
	e.register(id, position, nil)

	data, err := e.fetch(ctx, assetURL)
	if err != nil {
		observability.RecordBeaconLoad(false)
		return &AssetLoadError{BeaconID: id, Err: err}
	}

	buf, err := e.decode(data)
	if err != nil {
		observability.RecordBeaconLoad(false)
		return &AssetLoadError{BeaconID: id, Err: err}
	}

	e.register(id, position, buf)
	observability.RecordBeaconLoad(true)
	e.logger.Debug().
		Str("beacon_id", id).
		Dur("duration", buf.Duration()).
		Msg("Beacon asset loaded")
	return nil
}

func (e *Engine) register(id string, position world.Vector3, buf *Buffer) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.beacons[id]
	if !ok {
		b = &beacon{id: id}
		e.beacons[id] = b
	}
	b.position = position
	if buf != nil {
		b.buffer = buf
	}
}

// Play starts the beacon's asset at its position. A source already
// playing for the same beacon is torn down first so at most one source
// per beacon is ever live. Unknown beacons and beacons whose asset never
// loaded are silently skipped.
func (e *Engine) Play(id string) {
	e.mu.Lock()
	b, ok := e.beacons[id]
	if !ok || b.buffer == nil {
		e.mu.Unlock()
		return
	}

	if b.source != nil {
		b.source.Stop()
	}

	left, right := NewPanner(b.position).Gains()
	src := startSource(e.actx, b.buffer, left, right, func(s *Source) {
		e.finish(id, s)
	})
	b.source = src
	e.mu.Unlock()

	observability.RecordBeaconPlayback()
	e.logger.Debug().Str("beacon_id", id).Msg("Beacon playback started")
}

// finish clears the beacon's active source, but only if it is still the
// one that just ended. A newer source started by a later Play stays.
func (e *Engine) finish(id string, s *Source) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.beacons[id]; ok && b.source == s {
		b.source = nil
	}
}

// Stop halts the beacon's playback. Stopping an idle or unknown beacon
// is a no-op.
func (e *Engine) Stop(id string) {
	e.mu.Lock()
	var src *Source
	if b, ok := e.beacons[id]; ok {
		src = b.source
	}
	e.mu.Unlock()

	if src != nil {
		src.Stop()
	}
}

// StopAll halts playback on every beacon.
func (e *Engine) StopAll() {
	e.mu.Lock()
	sources := make([]*Source, 0, len(e.beacons))
	for _, b := range e.beacons {
		if b.source != nil {
			sources = append(sources, b.source)
		}
	}
	e.mu.Unlock()

	for _, src := range sources {
		src.Stop()
	}
}

// Active reports whether the beacon currently has a live source.
func (e *Engine) Active(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.beacons[id]
	return ok && b.source != nil
}

// Loaded reports whether the beacon's asset decoded successfully.
func (e *Engine) Loaded(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.beacons[id]
	return ok && b.buffer != nil
}

// BeaconIDs returns the ids of all registered beacons.
func (e *Engine) BeaconIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.beacons))
	for id := range e.beacons {
		ids = append(ids, id)
	}
	return ids
}
