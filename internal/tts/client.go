package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/resilience"
)

// PlaybackFunc receives synthesized PCM audio for playback. A nil
// playback discards the audio, which is useful when only the synthesis
// side is under test.
type PlaybackFunc func(pcm []byte)

// SpeakRequest is the synthesis request payload.
type SpeakRequest struct {
	Text     string `json:"text"`
	VoiceID  string `json:"voice_id,omitempty"`
	Language string `json:"language,omitempty"`
}

// Client synthesizes speech through the backend TTS endpoint. Calls run
// behind a circuit breaker so a dead endpoint fails fast instead of
// stalling command handling.
type Client struct {
	endpoint   string
	apiKey     string
	voiceID    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	playback   PlaybackFunc
	logger     zerolog.Logger
}

// NewClient creates a TTS client for the given endpoint.
func NewClient(endpoint, apiKey, voiceID string, breaker *resilience.CircuitBreaker, playback PlaybackFunc, logger zerolog.Logger) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		voiceID:    voiceID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		playback:   playback,
		logger:     logger.With().Str("component", "tts").Logger(),
	}
}

// Speak synthesizes text and hands the audio to the playback function.
// It returns once the audio has been delivered for playback.
func (c *Client) Speak(ctx context.Context, text, languageTag string) error {
	start := time.Now()

	call := func() error {
		return c.synthesize(ctx, text, languageTag)
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(call)
	} else {
		err = call()
	}

	observability.ObserveSpeak(time.Since(start), err == nil)
	if err != nil {
		c.logger.Warn().Err(err).Str("text", text).Msg("Speech synthesis failed")
		return fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}
	return nil
}

func (c *Client) synthesize(ctx context.Context, text, languageTag string) error {
	payload, err := json.Marshal(SpeakRequest{Text: text, VoiceID: c.voiceID, Language: languageTag})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tts endpoint returned status %d", resp.StatusCode)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read audio: %w", err)
	}

	if c.playback != nil && len(pcm) > 0 {
		c.playback(pcm)
	}
	return nil
}
