package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice bridge daemon
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8765"`

	// Public base URL for the companion browser page (used for logging the
	// pairing URL). Optional; if unset, logs http://localhost:PORT.
	BridgeURL string `envconfig:"BRIDGE_URL" default:""`

	// Deepgram speech API configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramSTTModel string `envconfig:"DEEPGRAM_STT_MODEL" default:"nova-2"`
	DeepgramTTSModel string `envconfig:"DEEPGRAM_TTS_MODEL" default:"aura-asteria-en"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Assistant subprocess configuration
	AssistantCommand string `envconfig:"ASSISTANT_COMMAND" default:""`

	// Audio output configuration
	AudioBackend   string  `envconfig:"AUDIO_BACKEND" default:"auto"`      // auto, portaudio, none
	FrameSize      int     `envconfig:"AUDIO_FRAME_SIZE" default:"1024"`   // samples per frame write
	OutputRate     int     `envconfig:"AUDIO_OUTPUT_RATE" default:"48000"` // device native sample rate
	OutputChannels int     `envconfig:"AUDIO_OUTPUT_CHANNELS" default:"2"` // device channel count
	PlaybackTick   int     `envconfig:"PLAYBACK_TICK_MS" default:"20"`     // frame cadence in milliseconds
	DefaultVolume  float64 `envconfig:"DEFAULT_VOLUME" default:"1.0"`      // linear gain 0.0-1.0

	// Text chunking configuration (tunable; defaults match observed behavior)
	ShortTextThreshold int `envconfig:"TTS_SHORT_TEXT_THRESHOLD" default:"120"` // below this, no splitting
	MinChunkChars      int `envconfig:"TTS_MIN_CHUNK_CHARS" default:"60"`       // recombine fragments up to this
	LookAhead          int `envconfig:"TTS_LOOKAHEAD" default:"2"`              // chunks synthesized ahead of the cursor

	// Session configuration
	PairingWindow    time.Duration `envconfig:"SESSION_PAIRING_WINDOW" default:"5m"`     // unconnected code validity
	InactivityWindow time.Duration `envconfig:"SESSION_INACTIVITY_WINDOW" default:"30m"` // connected session idle timeout
	HeartbeatPeriod  time.Duration `envconfig:"SESSION_HEARTBEAT_PERIOD" default:"15s"`  // push channel keep-alive
	PermissionGap    time.Duration `envconfig:"PERMISSION_SHOW_GAP" default:"750ms"`     // delay before showing the next head

	// Microphone capture configuration
	CaptureEnabled     bool    `envconfig:"CAPTURE_ENABLED" default:"true"`
	CaptureSampleRate  int     `envconfig:"CAPTURE_SAMPLE_RATE" default:"16000"`
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"500.0"` // RMS energy threshold
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"25"`      // frames of silence to end an utterance
	AudioBufferSize    int     `envconfig:"AUDIO_BUFFER_SIZE" default:"65536"`    // capture ring buffer bytes

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // seconds
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"` // milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if present, then from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LookAhead < 0 {
		return nil, fmt.Errorf("TTS_LOOKAHEAD must be >= 0")
	}
	if cfg.MinChunkChars <= 0 {
		return nil, fmt.Errorf("TTS_MIN_CHUNK_CHARS must be positive")
	}
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("AUDIO_FRAME_SIZE must be positive")
	}
	if cfg.DefaultVolume < 0 || cfg.DefaultVolume > 1 {
		return nil, fmt.Errorf("DEFAULT_VOLUME must be between 0.0 and 1.0")
	}

	return &cfg, nil
}

// Tick returns the playback frame cadence as a duration.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.PlaybackTick) * time.Millisecond
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
