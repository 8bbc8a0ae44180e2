package nav

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/tts"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

type fakeBeacons struct {
	mu      sync.Mutex
	played  []string
	stopped []string
	stopAll int
}

func (f *fakeBeacons) Play(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, id)
}

func (f *fakeBeacons) Stop(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
}

func (f *fakeBeacons) StopAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopAll++
}

func (f *fakeBeacons) playedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

type recordingSpeaker struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingSpeaker) Speak(_ context.Context, text, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
	return nil
}

func (r *recordingSpeaker) spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

type fakePublisher struct {
	mu        sync.Mutex
	snapshots []State
}

func (f *fakePublisher) Broadcast(v interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := v.(State); ok {
		f.snapshots = append(f.snapshots, s)
	}
}

func (f *fakePublisher) last() (State, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.snapshots) == 0 {
		return State{}, false
	}
	return f.snapshots[len(f.snapshots)-1], true
}

func newTestMachine(t *testing.T) (*Machine, *fakeBeacons, *recordingSpeaker, *fakePublisher) {
	t.Helper()
	beacons := &fakeBeacons{}
	speaker := &recordingSpeaker{}
	publisher := &fakePublisher{}
	m := NewMachine(world.DefaultCatalog(), beacons, speaker, publisher, true, "en-US", zerolog.Nop())
	return m, beacons, speaker, publisher
}

func TestMachine_StartsAtEntryRoom(t *testing.T) {
	m, _, _, _ := newTestMachine(t)

	state := m.Snapshot()
	if state.CurrentRoomID != "lobby" {
		t.Errorf("Expected entry room lobby, got %s", state.CurrentRoomID)
	}
	if state.UserPosition != (world.Vector3{}) {
		t.Errorf("Expected entry position at origin, got %+v", state.UserPosition)
	}
	if !state.SpatialAudioEnabled {
		t.Error("Expected spatial audio enabled")
	}
}

func TestMachine_NavigateUpdatesRoomAndPositionTogether(t *testing.T) {
	m, beacons, speaker, publisher := newTestMachine(t)

	if err := m.NavigateTo(context.Background(), "blog"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	state := m.Snapshot()
	if state.CurrentRoomID != "blog" {
		t.Errorf("Expected current room blog, got %s", state.CurrentRoomID)
	}
	want := world.Vector3{Y: 10}
	if state.UserPosition != want {
		t.Errorf("Expected position %+v, got %+v", want, state.UserPosition)
	}
	if state.VoiceStatus != "In Blog Room" {
		t.Errorf("Expected voice status %q, got %q", "In Blog Room", state.VoiceStatus)
	}

	played := beacons.playedIDs()
	if len(played) != 1 || played[0] != "blog" {
		t.Errorf("Expected blog beacon playback, got %v", played)
	}

	lines := speaker.spoken()
	if len(lines) != 1 || lines[0] != "Navigated to Blog Room" {
		t.Errorf("Expected spoken confirmation, got %v", lines)
	}

	snapshot, ok := publisher.last()
	if !ok || snapshot.CurrentRoomID != "blog" {
		t.Errorf("Expected broadcast snapshot for blog, got %+v ok=%v", snapshot, ok)
	}
}

func TestMachine_NavigateUnknownRoomLeavesStateUntouched(t *testing.T) {
	m, beacons, speaker, _ := newTestMachine(t)

	before := m.Snapshot()
	err := m.NavigateTo(context.Background(), "dungeon")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("Expected ErrRoomNotFound, got %v", err)
	}

	after := m.Snapshot()
	if after.CurrentRoomID != before.CurrentRoomID || after.UserPosition != before.UserPosition {
		t.Errorf("Expected state untouched, before=%+v after=%+v", before, after)
	}
	if m.FallbackSpoken() != 1 {
		t.Errorf("Expected 1 fallback, got %d", m.FallbackSpoken())
	}
	if len(beacons.playedIDs()) != 0 {
		t.Errorf("Expected no beacon playback, got %v", beacons.playedIDs())
	}

	lines := speaker.spoken()
	if len(lines) != 1 || lines[0] != FallbackText {
		t.Errorf("Expected fallback line, got %v", lines)
	}
}

func TestMachine_NavigateWithSpatialAudioDisabledSkipsBeacon(t *testing.T) {
	beacons := &fakeBeacons{}
	m := NewMachine(world.DefaultCatalog(), beacons, &recordingSpeaker{}, &fakePublisher{}, false, "en-US", zerolog.Nop())

	if err := m.NavigateTo(context.Background(), "pages"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(beacons.playedIDs()) != 0 {
		t.Errorf("Expected no beacon playback while disabled, got %v", beacons.playedIDs())
	}
}

func TestMachine_DisableSpatialAudioAffectsFutureTransitionsOnly(t *testing.T) {
	m, beacons, speaker, _ := newTestMachine(t)

	// A source in flight keeps playing across a toggle.
	if err := m.NavigateTo(context.Background(), "blog"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	m.SetSpatialAudio(context.Background(), false)

	if len(beacons.stopped) != 0 {
		t.Errorf("Expected no retroactive stop, got %v", beacons.stopped)
	}
	if m.Snapshot().SpatialAudioEnabled {
		t.Error("Expected spatial audio disabled")
	}

	lines := speaker.spoken()
	if len(lines) != 2 || lines[1] != "Spatial audio off" {
		t.Errorf("Expected spoken toggle confirmation, got %v", lines)
	}

	// Future transitions skip beacon playback.
	if err := m.NavigateTo(context.Background(), "pages"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if played := beacons.playedIDs(); len(played) != 1 {
		t.Errorf("Expected only the pre-toggle playback, got %v", played)
	}

	// Setting the same value again stays quiet.
	m.SetSpatialAudio(context.Background(), false)
	if lines := speaker.spoken(); len(lines) != 3 {
		t.Errorf("Expected no extra toggle line, got %v", lines)
	}
}

func TestMachine_ToggleSpatialAudio(t *testing.T) {
	m, _, _, _ := newTestMachine(t)

	if on := m.ToggleSpatialAudio(context.Background()); on {
		t.Error("Expected toggle to disable")
	}
	if on := m.ToggleSpatialAudio(context.Background()); !on {
		t.Error("Expected toggle to re-enable")
	}
}

func TestMachine_AnnounceBeaconsPlaysAllRooms(t *testing.T) {
	m, beacons, _, _ := newTestMachine(t)

	m.AnnounceBeacons(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(beacons.playedIDs()) == world.DefaultCatalog().Len() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	played := beacons.playedIDs()
	if len(played) != world.DefaultCatalog().Len() {
		t.Fatalf("Expected %d beacon playbacks, got %d", world.DefaultCatalog().Len(), len(played))
	}
	if played[0] != "lobby" {
		t.Errorf("Expected catalog order starting at lobby, got %v", played)
	}
}

func TestMachine_AnnounceBeaconsSkippedWhileDisabled(t *testing.T) {
	m, beacons, _, _ := newTestMachine(t)

	m.SetSpatialAudio(context.Background(), false)
	m.AnnounceBeacons(context.Background())

	time.Sleep(50 * time.Millisecond)
	if len(beacons.playedIDs()) != 0 {
		t.Errorf("Expected no playback while disabled, got %v", beacons.playedIDs())
	}
}

func TestMachine_SpeakerFailureDoesNotBlockNavigation(t *testing.T) {
	failing := tts.SpeakerFunc(func(context.Context, string, string) error {
		return tts.ErrSpeechUnavailable
	})
	m := NewMachine(world.DefaultCatalog(), &fakeBeacons{}, failing, &fakePublisher{}, true, "en-US", zerolog.Nop())

	if err := m.NavigateTo(context.Background(), "draft"); err != nil {
		t.Fatalf("Expected navigation to succeed despite speech failure, got %v", err)
	}
	if m.Snapshot().CurrentRoomID != "draft" {
		t.Errorf("Expected current room draft, got %s", m.Snapshot().CurrentRoomID)
	}
}

func TestMachine_StatusAndLastCommandBroadcast(t *testing.T) {
	m, _, _, publisher := newTestMachine(t)

	m.SetVoiceStatus(`Hearing: "navigate to"`)
	m.SetLastCommand("navigate to blog")

	snapshot, ok := publisher.last()
	if !ok {
		t.Fatal("Expected a broadcast snapshot")
	}
	if snapshot.LastCommand != "navigate to blog" {
		t.Errorf("Expected last command recorded, got %q", snapshot.LastCommand)
	}
}
