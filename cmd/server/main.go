package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voiceflowcms/nav-gateway/internal/audio"
	"github.com/voiceflowcms/nav-gateway/internal/command"
	"github.com/voiceflowcms/nav-gateway/internal/config"
	"github.com/voiceflowcms/nav-gateway/internal/content"
	"github.com/voiceflowcms/nav-gateway/internal/nav"
	"github.com/voiceflowcms/nav-gateway/internal/observability"
	"github.com/voiceflowcms/nav-gateway/internal/realtime"
	"github.com/voiceflowcms/nav-gateway/internal/resilience"
	"github.com/voiceflowcms/nav-gateway/internal/session"
	"github.com/voiceflowcms/nav-gateway/internal/stt"
	"github.com/voiceflowcms/nav-gateway/internal/tts"
	"github.com/voiceflowcms/nav-gateway/internal/world"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("workspace_id", cfg.WorkspaceID).
		Str("voice_intent_url", cfg.VoiceIntentURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Navigation Gateway starting")

	// Room catalog: file-based layout or the built-in workspace
	catalog := world.DefaultCatalog()
	if cfg.RoomCatalogPath != "" {
		catalog, err = world.LoadCatalog(cfg.RoomCatalogPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.RoomCatalogPath).Msg("Failed to load room catalog")
		}
	}
	logger.Info().Int("rooms", catalog.Len()).Str("entry", catalog.EntryRoomID()).Msg("Room catalog loaded")

	// Spatial audio engine over one shared output context
	actx := audio.NewContext(cfg.AudioSampleRate, cfg.AudioBufferSize)
	engine := audio.NewEngine(actx, logger)

	// Spatial broadcast hub
	hub := realtime.NewHub("spatial", logger)

	// Spoken feedback behind a circuit breaker, mixed into the shared sink
	ttsBreaker := resilience.NewCircuitBreaker(
		"tts",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	speaker := tts.NewClient(cfg.TTSEndpoint, cfg.TTSAPIKey, cfg.TTSVoiceID, ttsBreaker, func(pcm []byte) {
		actx.Output().Write(pcm)
	}, logger)

	machine := nav.NewMachine(catalog, engine, speaker, hub, cfg.SpatialAudioEnabled, cfg.DefaultLanguage, logger)

	filter := command.NewPhraseFilter(command.DefaultPatterns(command.Shortcuts{
		StartSetup: func(ctx context.Context) {
			machine.Speak(ctx, "Starting spatial audio setup. Listen for each room's beacon.")
			machine.AnnounceBeacons(ctx)
		},
		PlayBeacons: func(ctx context.Context) {
			machine.AnnounceBeacons(ctx)
		},
		ToggleSpatialAudio: func(ctx context.Context) {
			machine.ToggleSpatialAudio(ctx)
		},
	}), logger)

	router := command.NewRouter(machine, catalog, filter, logger)

	recognizer := stt.NewDeepgramRecognizer(cfg, logger)
	adapter := stt.NewAdapter(recognizer, logger)

	contentClient := content.NewClient(cfg.ContentAPIURL, cfg.ContentAPIToken, logger,
		content.WithRetry(&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		}))

	sess := session.New(cfg, session.Deps{
		Catalog: catalog,
		Adapter: adapter,
		Machine: machine,
		Router:  router,
		Filter:  filter,
		Engine:  engine,
		Content: contentClient,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess.Start(ctx)

	// Create HTTP server
	mux := http.NewServeMux()

	// Spatial state broadcast for frontends
	mux.HandleFunc("/ws/spatial", hub.ServeWS)

	// Microphone ingest
	mux.HandleFunc("/ws/audio", sess.ServeAudioWS)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint
	catalogCheck := observability.NamedCheck{
		Name: "room_catalog",
		Check: func(ctx context.Context) (bool, error) {
			if catalog.Len() == 0 {
				return false, fmt.Errorf("room catalog is empty")
			}
			return true, nil
		},
	}
	deepgramCheck := observability.NamedCheck{
		Name: "deepgram",
		Check: func(ctx context.Context) (bool, error) {
			// Config validation only; no API call to avoid costs
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("deepgram api key missing")
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(catalogCheck, deepgramCheck))

	// Metrics endpoint (Prometheus)
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("spatial_endpoint", fmt.Sprintf("ws://localhost:%s/ws/spatial", cfg.Port)).
			Str("audio_endpoint", fmt.Sprintf("ws://localhost:%s/ws/audio", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	cancel()
	sess.Close()
	actx.Close()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	hub.Shutdown(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
