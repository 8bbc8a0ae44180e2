package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

// promptWhichRoom is spoken when a navigate or show command arrives
// without a target room.
const promptWhichRoom = "Please specify which room to navigate to"

// Frame types carried on the voice channel.
const (
	framePartial = "stt_partial"
	frameFinal   = "stt_final"
)

// Navigator is the slice of the navigation machine the router drives.
type Navigator interface {
	NavigateTo(ctx context.Context, roomID string) error
	Speak(ctx context.Context, text string)
	SpeakFallback(ctx context.Context)
	SetVoiceStatus(status string)
	SetLastCommand(text string)
}

// NLUResult is the language layer's classification of one utterance.
type NLUResult struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
}

// IntentMessage is one frame received on the voice channel.
type IntentMessage struct {
	Type string     `json:"type"`
	Text string     `json:"text"`
	NLU  *NLUResult `json:"nlu,omitempty"`
}

// Router turns voice channel frames into navigation actions. Dispatch is
// stateless: every decision is a function of the frame alone.
type Router struct {
	navigator Navigator
	catalog   *world.Catalog
	filter    *PhraseFilter
	logger    zerolog.Logger
}

// NewRouter creates a router. The phrase filter may be nil to disable
// local shortcuts.
func NewRouter(navigator Navigator, catalog *world.Catalog, filter *PhraseFilter, logger zerolog.Logger) *Router {
	return &Router{
		navigator: navigator,
		catalog:   catalog,
		filter:    filter,
		logger:    logger.With().Str("component", "router").Logger(),
	}
}

// Route handles one raw frame from the voice channel. Malformed frames
// are logged and degrade to the fallback response, never propagated.
func (r *Router) Route(ctx context.Context, frame string) {
	var msg IntentMessage
	if err := json.Unmarshal([]byte(frame), &msg); err != nil {
		r.logger.Warn().Err(err).Msg("Malformed intent frame")
		observability.RecordError("malformed_frame", "router")
		r.navigator.SpeakFallback(ctx)
		return
	}

	switch msg.Type {
	case framePartial:
		if msg.Text != "" {
			r.navigator.SetVoiceStatus(fmt.Sprintf("Hearing: %q", msg.Text))
		}
	case frameFinal:
		r.navigator.SetLastCommand(msg.Text)
		if r.filter != nil && r.filter.ProcessFinal(ctx, msg.Text) {
			return
		}
		r.dispatch(ctx, msg)
	default:
		r.logger.Debug().Str("type", msg.Type).Msg("Ignoring unhandled frame type")
	}
}

func (r *Router) dispatch(ctx context.Context, msg IntentMessage) {
	if msg.NLU == nil {
		r.navigator.SpeakFallback(ctx)
		return
	}

	switch ParseIntent(msg.NLU.Intent) {
	case IntentNavigate:
		category, ok := msg.NLU.Entities["category"]
		if !ok || category == "" {
			r.navigator.Speak(ctx, promptWhichRoom)
			return
		}
		// Unknown rooms speak their own fallback inside the machine.
		_ = r.navigator.NavigateTo(ctx, category)

	case IntentShow:
		category, ok := msg.NLU.Entities["category"]
		if !ok || category == "" {
			r.navigator.Speak(ctx, promptWhichRoom)
			return
		}
		if err := r.navigator.NavigateTo(ctx, category); err != nil {
			return
		}
		r.navigator.Speak(ctx, r.showConfirmation(category))

	default:
		r.logger.Info().Str("intent", msg.NLU.Intent).Msg("Unrecognized intent")
		r.navigator.SpeakFallback(ctx)
	}
}

func (r *Router) showConfirmation(roomID string) string {
	room, ok := r.catalog.Lookup(roomID)
	if !ok {
		return fmt.Sprintf("Showing %s content", roomID)
	}
	if room.ContentCount > 0 {
		return fmt.Sprintf("Showing %d items in %s", room.ContentCount, room.DisplayName)
	}
	return fmt.Sprintf("Showing %s content", room.DisplayName)
}
