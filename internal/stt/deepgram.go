package stt

import (
	"context"
	"fmt"
	"sync"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/config"
)

// ingestSampleRate is the PCM rate clients stream over the audio ingest
// endpoint.
const ingestSampleRate = 16000

// callbackHandler implements the Deepgram LiveMessageCallback interface.
// It embeds the SDK default handler and overrides only the methods we need.
type callbackHandler struct {
	*websocketv1api.DefaultCallbackHandler
	onMessage func(*msginterfaces.MessageResponse)
	onError   func(*msginterfaces.ErrorResponse) error
}

func (h *callbackHandler) Message(msg *msginterfaces.MessageResponse) error {
	h.onMessage(msg)
	return nil
}

func (h *callbackHandler) Error(errorResponse *msginterfaces.ErrorResponse) error {
	if h.onError != nil {
		return h.onError(errorResponse)
	}
	return h.DefaultCallbackHandler.Error(errorResponse)
}

// DeepgramRecognizer implements Recognizer using Deepgram's streaming API
type DeepgramRecognizer struct {
	cfg    *config.Config
	logger zerolog.Logger

	mu     sync.RWMutex
	client *listenClient.WSCallback
	cancel context.CancelFunc
	active bool
}

// NewDeepgramRecognizer creates a Deepgram-backed recognizer
func NewDeepgramRecognizer(cfg *config.Config, logger zerolog.Logger) *DeepgramRecognizer {
	return &DeepgramRecognizer{cfg: cfg, logger: logger}
}

// Start opens a Deepgram streaming transcription session delivering
// results to sink
func (d *DeepgramRecognizer) Start(languageTag string, sink EventSink) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return fmt.Errorf("deepgram recognizer is already active")
	}

	ctx, cancel := context.WithCancel(context.Background())

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.cfg.DeepgramModel,
		Language:       languageTag,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000", // end utterance after 1 second of silence
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     ingestSampleRate,
	}

	callback := &callbackHandler{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		onMessage: func(msg *msginterfaces.MessageResponse) {
			d.handleMessage(msg, sink)
		},
		onError: func(errorResponse *msginterfaces.ErrorResponse) error {
			d.logger.Error().Interface("response", errorResponse).Msg("Deepgram stream error")

			d.mu.Lock()
			d.active = false
			d.mu.Unlock()

			// Terminate the stream with an error signal so the caller can
			// distinguish this from a normal end
			sink.Fail(fmt.Errorf("%w: recognition stream error", ErrRecognitionUnavailable))
			return nil
		},
	}

	client, err := listenClient.NewWSUsingCallback(
		ctx,
		d.cfg.DeepgramAPIKey,
		nil, // ClientOptions - nil uses defaults
		tOptions,
		callback,
	)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to create Deepgram client: %w", err)
	}

	d.client = client
	d.cancel = cancel
	d.active = true

	d.logger.Info().
		Str("model", d.cfg.DeepgramModel).
		Str("language", languageTag).
		Msg("Deepgram streaming session started")
	return nil
}

// handleMessage maps Deepgram responses onto transcript events
func (d *DeepgramRecognizer) handleMessage(msg *msginterfaces.MessageResponse, sink EventSink) {
	if msg == nil {
		return
	}

	switch msg.Type {
	case "Results", "Message":
		if len(msg.Channel.Alternatives) == 0 {
			return
		}
		alt := msg.Channel.Alternatives[0]
		if alt.Transcript == "" {
			return
		}
		sink.Event(TranscriptEvent{IsFinal: msg.IsFinal, Text: alt.Transcript})

	case "SpeechStarted", "UtteranceEnd", "Metadata":
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram event")

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Deepgram: unknown message type")
	}
}

// SendAudio sends an audio chunk to Deepgram
func (d *DeepgramRecognizer) SendAudio(data []byte) error {
	d.mu.RLock()
	active := d.active
	client := d.client
	d.mu.RUnlock()

	if !active || client == nil {
		return fmt.Errorf("deepgram recognizer is not active")
	}

	if _, err := client.Write(data); err != nil {
		return fmt.Errorf("failed to send audio to Deepgram: %w", err)
	}
	return nil
}

// Stop tears down the streaming session. Safe to call when idle.
func (d *DeepgramRecognizer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}

	d.client.Finish()
	d.cancel()
	d.active = false
	d.logger.Info().Msg("Deepgram streaming session stopped")
}
