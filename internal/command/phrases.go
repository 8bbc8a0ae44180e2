package command

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Pattern pairs a compiled regex with the action to execute when a final
// transcript matches it.
type Pattern struct {
	// Regex is the compiled pattern, matched against the trimmed
	// lowercase transcript.
	Regex *regexp.Regexp

	// Name is a human-readable label for logging.
	Name string

	// Action executes the shortcut.
	Action func(ctx context.Context)
}

// PhraseFilter checks final transcripts against local voice shortcuts
// before they reach intent dispatch. Partials are never matched, and a
// final repeated back-to-back (recognizers sometimes re-emit the closing
// result) fires its action only once.
type PhraseFilter struct {
	patterns []Pattern
	logger   zerolog.Logger

	mu        sync.Mutex
	lastFinal string
}

// NewPhraseFilter creates a filter over the given patterns.
func NewPhraseFilter(patterns []Pattern, logger zerolog.Logger) *PhraseFilter {
	return &PhraseFilter{
		patterns: patterns,
		logger:   logger.With().Str("component", "phrase_filter").Logger(),
	}
}

// Shortcuts holds the actions the default patterns bind to.
type Shortcuts struct {
	// StartSetup begins the spatial audio onboarding walkthrough.
	StartSetup func(ctx context.Context)

	// PlayBeacons replays every room beacon.
	PlayBeacons func(ctx context.Context)

	// ToggleSpatialAudio flips positional audio on or off.
	ToggleSpatialAudio func(ctx context.Context)
}

// DefaultPatterns returns the built-in shortcut set.
func DefaultPatterns(s Shortcuts) []Pattern {
	wrap := func(fn func(ctx context.Context)) func(ctx context.Context) {
		if fn == nil {
			return func(context.Context) {}
		}
		return fn
	}
	return []Pattern{
		{
			Regex:  regexp.MustCompile(`^start setup[.!]?$`),
			Name:   "start_setup",
			Action: wrap(s.StartSetup),
		},
		{
			Regex:  regexp.MustCompile(`^play (the )?beacons[.!]?$`),
			Name:   "play_beacons",
			Action: wrap(s.PlayBeacons),
		},
		{
			Regex:  regexp.MustCompile(`^(toggle|turn (on|off)) spatial audio[.!]?$`),
			Name:   "toggle_spatial_audio",
			Action: wrap(s.ToggleSpatialAudio),
		},
	}
}

// ProcessFinal tests a final transcript against the patterns. It returns
// true when a shortcut consumed the utterance.
func (f *PhraseFilter) ProcessFinal(ctx context.Context, text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	trimmed = strings.TrimSpace(strings.TrimRight(trimmed, ".!?"))
	if trimmed == "" {
		return false
	}

	f.mu.Lock()
	duplicate := trimmed == f.lastFinal
	f.lastFinal = trimmed
	f.mu.Unlock()

	for _, p := range f.patterns {
		if p.Regex.FindStringSubmatch(trimmed) == nil {
			continue
		}
		if duplicate {
			f.logger.Debug().Str("pattern", p.Name).Msg("Duplicate final ignored")
			return true
		}
		f.logger.Info().Str("pattern", p.Name).Str("text", trimmed).Msg("Voice shortcut matched")
		p.Action(ctx)
		return true
	}
	return false
}

// Reset clears the duplicate-suppression state between utterance groups.
func (f *PhraseFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFinal = ""
}
