// Package session wires one workspace voice session together: the
// transcript stream, the voice intent channel, the spatial audio engine,
// and the navigation machine. The gateway hosts a single session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/audio"
	"github.com/voiceflowcms/nav-gateway/internal/command"
	"github.com/voiceflowcms/nav-gateway/internal/config"
	"github.com/voiceflowcms/nav-gateway/internal/content"
	"github.com/voiceflowcms/nav-gateway/internal/nav"
	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/realtime"
	"github.com/voiceflowcms/nav-gateway/internal/resilience"
	"github.com/voiceflowcms/nav-gateway/internal/stt"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

// ContentLister is the slice of the Content API the session needs at
// startup.
type ContentLister interface {
	ListContent(ctx context.Context, workspaceID string) ([]content.Item, error)
}

// Deps carries the collaborators a session runs on.
type Deps struct {
	Catalog *world.Catalog
	Adapter *stt.Adapter
	Machine *nav.Machine
	Router  *command.Router
	Filter  *command.PhraseFilter
	Engine  *audio.Engine
	Content ContentLister // optional
}

// Session owns the event loops for one workspace. Recognition failures
// and a dead intent channel degrade the voice feature; they never take
// the session down.
type Session struct {
	cfg    *config.Config
	deps   Deps
	id     string
	logger zerolog.Logger

	detector *audio.Detector

	mu      sync.Mutex
	stream  *stt.Stream
	channel *realtime.Channel

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a session. Call Start to bring it up.
func New(cfg *config.Config, deps Deps) *Session {
	id := observability.NewSessionID()
	return &Session{
		cfg:    cfg,
		deps:   deps,
		id:     id,
		logger: observability.WithSessionID(id),
		detector: audio.NewDetector(audio.DetectorConfig{
			EnergyThreshold: cfg.VADEnergyThreshold,
			SilenceFrames:   cfg.VADSilenceFrames,
		}),
		done: make(chan struct{}),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Start loads beacon assets, refreshes content counts, opens the
// transcript stream, and connects the voice intent channel. Every step
// degrades independently.
func (s *Session) Start(ctx context.Context) {
	observability.SessionStarted()
	s.logger.Info().Str("workspace_id", s.cfg.WorkspaceID).Msg("Session starting")

	s.loadBeacons(ctx)
	s.refreshContentCounts(ctx)

	stream, err := s.deps.Adapter.Open(s.cfg.DefaultLanguage)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Recognition unavailable, voice input disabled")
		observability.RecordError("recognition_unavailable", "session")
		s.deps.Machine.SetVoiceStatus("Voice recognition unavailable")
	} else {
		s.mu.Lock()
		s.stream = stream
		s.mu.Unlock()
		s.wg.Add(1)
		go s.runTranscripts(ctx, stream)
	}

	s.wg.Add(1)
	go s.runChannel(ctx)

	if s.cfg.SpatialAudioEnabled {
		s.deps.Machine.AnnounceBeacons(ctx)
	}
}

// loadBeacons fetches every room's beacon concurrently. A failed asset
// only silences that one beacon.
func (s *Session) loadBeacons(ctx context.Context) {
	rooms := s.deps.Catalog.Rooms()

	var wg sync.WaitGroup
	for _, room := range rooms {
		wg.Add(1)
		go func(room world.Room) {
			defer wg.Done()
			assetURL := fmt.Sprintf("%s/%s.wav", s.cfg.AssetBaseURL, room.ID)
			if err := s.deps.Engine.LoadBeacon(ctx, room.ID, assetURL, room.Position); err != nil {
				var loadErr *audio.AssetLoadError
				if errors.As(err, &loadErr) {
					s.logger.Warn().Err(err).Str("room_id", room.ID).Msg("Beacon asset unavailable")
				} else {
					s.logger.Error().Err(err).Str("room_id", room.ID).Msg("Beacon load failed")
				}
			}
		}(room)
	}
	wg.Wait()
}

func (s *Session) refreshContentCounts(ctx context.Context) {
	if s.deps.Content == nil {
		return
	}

	items, err := s.deps.Content.ListContent(ctx, s.cfg.WorkspaceID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Content refresh failed, keeping stale counts")
		return
	}

	for category, count := range content.CountByCategory(items) {
		s.deps.Catalog.SetContentCount(category, count)
	}
	s.logger.Info().Int("items", len(items)).Msg("Content counts refreshed")
}

// runTranscripts consumes the recognition stream. Partials drive the
// status line; finals run the local shortcut filter and are forwarded
// upstream for intent parsing.
func (s *Session) runTranscripts(ctx context.Context, stream *stt.Stream) {
	defer s.wg.Done()

	for ev := range stream.Events() {
		if ev.Text == "" {
			continue
		}
		if !ev.IsFinal {
			s.deps.Machine.SetVoiceStatus(fmt.Sprintf("Hearing: %q", ev.Text))
			continue
		}

		s.deps.Machine.SetLastCommand(ev.Text)
		if s.deps.Filter != nil && s.deps.Filter.ProcessFinal(ctx, ev.Text) {
			continue
		}
		s.forwardFinal(ev.Text)
	}

	if err := stream.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Transcript stream failed")
		observability.RecordError("transcript_stream", "session")
		s.deps.Machine.SetVoiceStatus("Voice recognition unavailable")
	}
}

// forwardFinal ships a final transcript to the intent service. The reply
// comes back as an intent frame on the channel.
func (s *Session) forwardFinal(text string) {
	payload, err := json.Marshal(command.IntentMessage{Type: "stt_final", Text: text})
	if err != nil {
		return
	}

	s.mu.Lock()
	ch := s.channel
	s.mu.Unlock()
	if ch == nil {
		s.logger.Debug().Msg("Intent channel down, dropping final transcript")
		return
	}
	if err := ch.Send(string(payload)); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to forward transcript")
		observability.RecordChannelError("voice_intent")
	}
}

// runChannel owns the voice intent channel lifecycle. One connection is
// consumed to completion; failures redial with capped exponential
// backoff when reconnection is enabled, otherwise the session degrades
// to transcript-only operation.
func (s *Session) runChannel(ctx context.Context) {
	defer s.wg.Done()

	run := func() error {
		select {
		case <-s.done:
			return nil
		default:
		}

		ch := realtime.Connect(s.cfg.VoiceIntentURL, s.logger)
		s.setChannel(ch)
		defer s.setChannel(nil)

		for msg := range ch.Messages() {
			s.deps.Router.Route(ctx, msg)
		}

		if err := ch.Err(); err != nil {
			observability.RecordChannelError("voice_intent")
			return err
		}
		return nil
	}

	if err := run(); err == nil {
		return
	}

	select {
	case <-s.done:
		return
	default:
	}

	if !s.cfg.ChannelReconnectEnabled {
		s.logger.Warn().Msg("Intent channel lost, voice commands offline")
		s.deps.Machine.SetVoiceStatus("Voice commands offline")
		return
	}

	s.deps.Machine.SetVoiceStatus("Reconnecting voice commands")
	rc := &resilience.ReconnectConfig{
		MaxAttempts: s.cfg.ReconnectMaxAttempts,
		Backoff:     time.Duration(s.cfg.ReconnectBackoff) * time.Millisecond,
		Multiplier:  2.0,
		MaxBackoff:  30 * time.Second,
	}
	if err := resilience.Reconnect(ctx, run, rc, s.logger); err != nil {
		s.logger.Warn().Err(err).Msg("Intent channel reconnection exhausted")
		observability.RecordError("channel_reconnect_exhausted", "session")
		s.deps.Machine.SetVoiceStatus("Voice commands offline")
	}
}

func (s *Session) setChannel(ch *realtime.Channel) {
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
}

var ingestUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the workspace frontend origin once it is
		// served from a fixed host.
		return true
	},
}

// ServeAudioWS accepts the microphone ingest websocket. Binary frames
// are 16-bit PCM; they feed recognition directly while the VAD drives
// the listening indicator.
func (s *Session) ServeAudioWS(w http.ResponseWriter, r *http.Request) {
	conn, err := ingestUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Audio ingest upgrade failed")
		return
	}
	defer conn.Close()

	s.detector.Reset()
	s.logger.Info().Str("remote", r.RemoteAddr).Msg("Audio ingest connected")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug().Err(err).Msg("Audio ingest closed")
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		observability.RecordAudioBytes("ingest", int64(len(data)))

		if err := s.deps.Adapter.SendAudio(data); err != nil {
			s.logger.Debug().Err(err).Msg("Audio frame dropped")
		}

		_, started, ended := s.detector.ProcessFrame(audio.BytesToSamples(data))
		if started {
			s.deps.Machine.SetVoiceStatus("Listening")
		}
		if ended {
			s.deps.Machine.SetVoiceStatus("Processing")
		}
	}
}

// Close tears the session down: stream, channel, and playback. Safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		stream := s.stream
		ch := s.channel
		s.mu.Unlock()

		if stream != nil {
			stream.Close()
		}
		s.deps.Adapter.Close()
		if ch != nil {
			ch.Close()
		}
		s.deps.Engine.StopAll()

		s.wg.Wait()
		observability.SessionEnded()
		s.logger.Info().Msg("Session closed")
	})
}
