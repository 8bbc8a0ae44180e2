package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the navigation gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Deepgram STT API configuration
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel  string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"` // nova-2, enhanced, base

	// Default BCP 47 language tag for recognition and speech synthesis
	DefaultLanguage string `envconfig:"DEFAULT_LANGUAGE" default:"en-US"`

	// Speech synthesis collaborator (HTTP TTS endpoint)
	TTSEndpoint string `envconfig:"TTS_ENDPOINT" default:"http://localhost:8000/api/voice/tts"`
	TTSAPIKey   string `envconfig:"TTS_API_KEY" default:""`
	TTSVoiceID  string `envconfig:"TTS_VOICE_ID" default:"default"`

	// Content API collaborator
	ContentAPIURL   string `envconfig:"CONTENT_API_URL" default:"http://localhost:8000"`
	ContentAPIToken string `envconfig:"CONTENT_API_TOKEN" default:""` // bearer token; absence is not an error
	WorkspaceID     string `envconfig:"WORKSPACE_ID" default:"default"`

	// Upstream NLU voice-intent websocket topic
	VoiceIntentURL string `envconfig:"VOICE_INTENT_URL" default:"ws://localhost:8000/ws/voice"`

	// Room catalog and beacon assets
	RoomCatalogPath string `envconfig:"ROOM_CATALOG_PATH" default:""` // empty uses the built-in layout
	AssetBaseURL    string `envconfig:"ASSET_BASE_URL" default:"http://localhost:8000/assets/audio/beacons"`

	// Spatial audio configuration
	SpatialAudioEnabled bool `envconfig:"SPATIAL_AUDIO_ENABLED" default:"true"`
	AudioSampleRate     int  `envconfig:"AUDIO_SAMPLE_RATE" default:"44100"`
	AudioBufferSize     int  `envconfig:"AUDIO_BUFFER_SIZE" default:"262144"` // master sink ring buffer in bytes

	// Voice activity detection on the audio ingest path
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"10"`      // frames of silence to mark speech end

	// Resilience configuration
	CircuitBreakerMaxFailures  int  `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // failures before opening circuit
	CircuitBreakerResetTimeout int  `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds before attempting recovery
	RetryMaxAttempts           int  `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int  `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds
	ChannelReconnectEnabled    bool `envconfig:"CHANNEL_RECONNECT_ENABLED" default:"true"`
	ReconnectMaxAttempts       int  `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int  `envconfig:"RECONNECT_BACKOFF" default:"1000"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`   // debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"` // pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if cfg.AudioSampleRate <= 0 {
		return nil, fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", cfg.AudioSampleRate)
	}
	if cfg.AudioBufferSize <= 0 {
		return nil, fmt.Errorf("AUDIO_BUFFER_SIZE must be positive, got %d", cfg.AudioBufferSize)
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
