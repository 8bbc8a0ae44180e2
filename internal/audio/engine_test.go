package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/world"
)

func fetcherFor(assets map[string][]byte) Fetcher {
	return func(_ context.Context, assetURL string) ([]byte, error) {
		data, ok := assets[assetURL]
		if !ok {
			return nil, errors.New("asset not found")
		}
		return data, nil
	}
}

func shortAsset() []byte {
	return samplesToBytes(make([]int16, 640)) // two 20ms chunks at 16kHz
}

func longAsset() []byte {
	return samplesToBytes(make([]int16, 16000)) // one second at 16kHz
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestEngine_LoadAndPlay(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(0))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/blog.pcm": shortAsset(),
	})))

	err := engine.LoadBeacon(context.Background(), "blog", "http://assets/blog.pcm", world.Vector3{Y: 10})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !engine.Loaded("blog") {
		t.Fatal("Expected beacon to be loaded")
	}

	engine.Play("blog")

	if !waitFor(t, time.Second, func() bool { return !engine.Active("blog") }) {
		t.Error("Expected playback to complete")
	}
	if actx.Output().Available() == 0 {
		t.Error("Expected playback to write into the output sink")
	}
}

func TestEngine_LoadFailureIsolatedPerBeacon(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(0))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/blog.pcm": shortAsset(),
	})))

	err := engine.LoadBeacon(context.Background(), "archive", "http://assets/archive.pcm", world.Vector3{X: 10, Y: -10, Z: -5})
	var loadErr *AssetLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("Expected AssetLoadError, got %v", err)
	}
	if loadErr.BeaconID != "archive" {
		t.Errorf("Expected beacon id archive, got %s", loadErr.BeaconID)
	}

	if err := engine.LoadBeacon(context.Background(), "blog", "http://assets/blog.pcm", world.Vector3{Y: 10}); err != nil {
		t.Fatalf("Expected blog to load, got %v", err)
	}

	// The failed beacon stays registered but silent.
	engine.Play("archive")
	if engine.Active("archive") {
		t.Error("Expected unloaded beacon not to play")
	}

	engine.Play("blog")
	if !waitFor(t, time.Second, func() bool { return !engine.Active("blog") }) {
		t.Error("Expected blog playback to complete")
	}
}

func TestEngine_PlayReplacesActiveSource(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(5*time.Millisecond))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/lobby.pcm": longAsset(),
	})))

	if err := engine.LoadBeacon(context.Background(), "lobby", "http://assets/lobby.pcm", world.Vector3{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	engine.Play("lobby")
	if !engine.Active("lobby") {
		t.Fatal("Expected beacon to be active after Play")
	}

	engine.Play("lobby")

	// The first source winding down must not clear the replacement.
	time.Sleep(30 * time.Millisecond)
	if !engine.Active("lobby") {
		t.Error("Expected replacement source to stay active")
	}

	engine.Stop("lobby")
	if !waitFor(t, time.Second, func() bool { return !engine.Active("lobby") }) {
		t.Error("Expected Stop to end playback")
	}
}

func TestEngine_StopIdleIsNoOp(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(0))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/pages.pcm": shortAsset(),
	})))

	engine.Stop("unknown")

	if err := engine.LoadBeacon(context.Background(), "pages", "http://assets/pages.pcm", world.Vector3{X: 10}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	engine.Stop("pages")

	if engine.Active("pages") {
		t.Error("Expected beacon to remain idle")
	}
}

func TestEngine_PlayUnknownBeaconIsNoOp(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(0))
	engine := NewEngine(actx, zerolog.Nop())

	engine.Play("nowhere")

	if engine.Active("nowhere") {
		t.Error("Expected no playback for unknown beacon")
	}
}

func TestEngine_ContextCloseEndsPlayback(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(5*time.Millisecond))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/lobby.pcm": longAsset(),
	})))

	if err := engine.LoadBeacon(context.Background(), "lobby", "http://assets/lobby.pcm", world.Vector3{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	engine.Play("lobby")

	actx.Close()

	if !waitFor(t, time.Second, func() bool { return !engine.Active("lobby") }) {
		t.Error("Expected playback to end once the context closed")
	}
}

func TestEngine_StopAll(t *testing.T) {
	actx := NewContext(16000, 1<<16, WithPacing(5*time.Millisecond))
	engine := NewEngine(actx, zerolog.Nop(), WithFetcher(fetcherFor(map[string][]byte{
		"http://assets/lobby.pcm": longAsset(),
		"http://assets/blog.pcm":  longAsset(),
	})))

	if err := engine.LoadBeacon(context.Background(), "lobby", "http://assets/lobby.pcm", world.Vector3{}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := engine.LoadBeacon(context.Background(), "blog", "http://assets/blog.pcm", world.Vector3{Y: 10}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	engine.Play("lobby")
	engine.Play("blog")
	engine.StopAll()

	ok := waitFor(t, time.Second, func() bool {
		return !engine.Active("lobby") && !engine.Active("blog")
	})
	if !ok {
		t.Error("Expected StopAll to end every playback")
	}
}
