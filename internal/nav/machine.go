package nav

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/tts"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

// FallbackText is spoken when a command cannot be acted on.
const FallbackText = `Command not recognized. Try saying "navigate to blog" or "show pages"`

// announceStagger spaces out beacon playback during a soundscape
// announcement so beacons are distinguishable by ear.
const announceStagger = 400 * time.Millisecond

// BeaconPlayer starts positioned beacon playback.
type BeaconPlayer interface {
	Play(id string)
}

// Publisher pushes state snapshots to spatial subscribers.
type Publisher interface {
	Broadcast(v interface{})
}

// State is the session's navigation state. CurrentRoomID and
// UserPosition always refer to the same room.
type State struct {
	CurrentRoomID       string        `json:"current_room"`
	RoomName            string        `json:"room_name"`
	UserPosition        world.Vector3 `json:"position"`
	SpatialAudioEnabled bool          `json:"spatial_audio_enabled"`
	VoiceStatus         string        `json:"voice_status"`
	LastCommand         string        `json:"last_command"`
}

// Machine holds the navigation state for one session and applies
// transitions atomically. All spoken feedback and beacon playback is
// fire-and-forget so state changes never block on audio.
type Machine struct {
	catalog   *world.Catalog
	beacons   BeaconPlayer
	speaker   tts.Speaker
	publisher Publisher
	language  string
	logger    zerolog.Logger

	mu        sync.RWMutex
	state     State
	fallbacks int
}

// NewMachine creates a machine positioned at the catalog's entry room.
// Spoken feedback is synthesized in languageTag.
func NewMachine(catalog *world.Catalog, beacons BeaconPlayer, speaker tts.Speaker, publisher Publisher, spatialEnabled bool, languageTag string, logger zerolog.Logger) *Machine {
	m := &Machine{
		catalog:   catalog,
		beacons:   beacons,
		speaker:   speaker,
		publisher: publisher,
		language:  languageTag,
		logger:    logger.With().Str("component", "nav").Logger(),
	}

	entry, ok := catalog.Lookup(catalog.EntryRoomID())
	m.state = State{
		SpatialAudioEnabled: spatialEnabled,
		VoiceStatus:         "Ready",
	}
	if ok {
		m.state.CurrentRoomID = entry.ID
		m.state.RoomName = entry.DisplayName
		m.state.UserPosition = entry.Position
	}
	return m
}

// NavigateTo moves the session to the named room. Unknown rooms leave
// the state untouched, speak the fallback line, and return
// ErrRoomNotFound.
func (m *Machine) NavigateTo(ctx context.Context, roomID string) error {
	room, ok := m.catalog.Lookup(roomID)
	if !ok {
		observability.RecordNavigation(false)
		m.logger.Warn().Str("room_id", roomID).Msg("Navigation target not found")
		m.SpeakFallback(ctx)
		return fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}

	m.mu.Lock()
	m.state.CurrentRoomID = room.ID
	m.state.RoomName = room.DisplayName
	m.state.UserPosition = room.Position
	m.state.VoiceStatus = "In " + room.DisplayName
	spatial := m.state.SpatialAudioEnabled
	snapshot := m.state
	m.mu.Unlock()

	observability.RecordNavigation(true)
	m.logger.Info().
		Str("room_id", room.ID).
		Float64("x", room.Position.X).
		Float64("y", room.Position.Y).
		Float64("z", room.Position.Z).
		Msg("Navigated")

	if spatial && m.beacons != nil {
		m.beacons.Play(room.ID)
	}
	m.speak(ctx, "Navigated to "+room.DisplayName)
	m.publish(snapshot)
	return nil
}

// SpeakFallback speaks the canned not-recognized line and counts it.
func (m *Machine) SpeakFallback(ctx context.Context) {
	m.mu.Lock()
	m.fallbacks++
	m.mu.Unlock()

	observability.RecordFallback()
	m.speak(ctx, FallbackText)
}

// FallbackSpoken returns how many fallback responses this session has
// produced.
func (m *Machine) FallbackSpoken() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbacks
}

// SetSpatialAudio enables or disables positional beacon playback for
// future transitions. Sources already in flight keep playing.
func (m *Machine) SetSpatialAudio(ctx context.Context, enabled bool) {
	m.mu.Lock()
	changed := m.state.SpatialAudioEnabled != enabled
	m.state.SpatialAudioEnabled = enabled
	snapshot := m.state
	m.mu.Unlock()

	if !changed {
		return
	}

	line := "Spatial audio off"
	if enabled {
		line = "Spatial audio on"
	}
	m.speak(ctx, line)
	m.publish(snapshot)
}

// ToggleSpatialAudio flips spatial audio and returns the new setting.
func (m *Machine) ToggleSpatialAudio(ctx context.Context) bool {
	m.mu.RLock()
	next := !m.state.SpatialAudioEnabled
	m.mu.RUnlock()

	m.SetSpatialAudio(ctx, next)
	return next
}

// AnnounceBeacons plays every room's beacon in catalog order, staggered
// so the soundscape reads as distinct positioned sources. While spatial
// audio is disabled it declines out loud instead of playing.
func (m *Machine) AnnounceBeacons(ctx context.Context) {
	if m.beacons == nil {
		return
	}
	m.mu.RLock()
	enabled := m.state.SpatialAudioEnabled
	m.mu.RUnlock()
	if !enabled {
		m.speak(ctx, "Spatial audio is off")
		return
	}

	m.speak(ctx, "Playing room beacons")
	rooms := m.catalog.Rooms()
	go func() {
		for i, room := range rooms {
			if i > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(announceStagger):
				}
			}
			m.beacons.Play(room.ID)
		}
	}()
}

// SetVoiceStatus updates the status line shown to spatial subscribers.
func (m *Machine) SetVoiceStatus(status string) {
	m.mu.Lock()
	m.state.VoiceStatus = status
	snapshot := m.state
	m.mu.Unlock()

	m.publish(snapshot)
}

// SetLastCommand records the most recent final transcript.
func (m *Machine) SetLastCommand(text string) {
	m.mu.Lock()
	m.state.LastCommand = text
	snapshot := m.state
	m.mu.Unlock()

	m.publish(snapshot)
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Speak voices an arbitrary line through the session speaker.
func (m *Machine) Speak(ctx context.Context, text string) {
	m.speak(ctx, text)
}

func (m *Machine) speak(ctx context.Context, text string) {
	if m.speaker == nil {
		return
	}
	if err := m.speaker.Speak(ctx, text, m.language); err != nil {
		m.logger.Warn().Err(err).Msg("Spoken feedback failed")
	}
}

func (m *Machine) publish(snapshot State) {
	if m.publisher != nil {
		m.publisher.Broadcast(snapshot)
	}
}
