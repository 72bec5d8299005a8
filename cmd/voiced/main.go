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

	"github.com/Erriccc/claude-code-voice/internal/assistant"
	"github.com/Erriccc/claude-code-voice/internal/audio"
	"github.com/Erriccc/claude-code-voice/internal/bridge"
	"github.com/Erriccc/claude-code-voice/internal/capture"
	"github.com/Erriccc/claude-code-voice/internal/config"
	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/player"
	"github.com/Erriccc/claude-code-voice/internal/speech"
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
		Str("audio_backend", cfg.AudioBackend).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice bridge daemon starting")

	// Audio output
	sink, err := audio.NewSink(cfg.AudioBackend, cfg.FrameSize)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.AudioBackend).Msg("Failed to create audio sink")
	}
	plyr := player.New(sink, player.Config{
		Tick:           cfg.Tick(),
		OutputRate:     cfg.OutputRate,
		OutputChannels: cfg.OutputChannels,
		Volume:         cfg.DefaultVolume,
	}, logger)

	// Speech services
	speechClient, err := speech.NewDeepgramClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Deepgram client")
	}

	// Assistant subprocess
	if cfg.AssistantCommand == "" {
		logger.Fatal().Msg("ASSISTANT_COMMAND is required")
	}
	asst, err := assistant.NewExecClient(cfg.AssistantCommand, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("command", cfg.AssistantCommand).Msg("Failed to start assistant process")
	}

	// Sessions and the bridge itself
	store := bridge.NewSessionStore(cfg.PairingWindow, cfg.InactivityWindow, logger)
	br := bridge.New(cfg, store, asst, speechClient, speechClient, plyr, logger)
	br.Start()

	// Microphone capture is best effort: a headless box still serves the
	// remote client over HTTP.
	var micCapture *capture.Capture
	if cfg.CaptureEnabled {
		mic, err := audio.NewMicSource(cfg.CaptureSampleRate, cfg.CaptureSampleRate/50)
		if err != nil {
			logger.Warn().Err(err).Msg("No microphone available, running without local capture")
		} else {
			micCapture = capture.New(capture.Config{
				SampleRate: cfg.CaptureSampleRate,
				BufferSize: cfg.AudioBufferSize,
				VAD: &audio.VADConfig{
					EnergyThreshold: cfg.VADEnergyThreshold,
					SilenceFrames:   cfg.VADSilenceFrames,
					FrameSize:       cfg.CaptureSampleRate / 50,
				},
			}, mic, speechClient,
				func() { br.Scheduler().Interrupt() },
				func(text string) { br.HandleTranscript(context.Background(), text) },
				logger)
			if err := micCapture.Start(); err != nil {
				logger.Warn().Err(err).Msg("Microphone capture failed to start")
				micCapture = nil
			}
		}
	}

	// Create the pairing session up front so the code is in the startup logs.
	session, err := store.Create()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create pairing session")
	}
	pairingURL := cfg.BridgeURL
	if pairingURL == "" {
		pairingURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	logger.Info().
		Str("code", session.Code).
		Str("url", pairingURL).
		Msg("Pairing code ready")

	// Create HTTP server
	mux := http.NewServeMux()
	bridge.NewServer(cfg, store, br, logger).Register(mux)

	// Health check endpoint
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	// Readiness endpoint - checks are built here to avoid import cycles
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"deepgram": func(ctx context.Context) (bool, error) {
			if cfg.DeepgramAPIKey == "" {
				return false, fmt.Errorf("missing Deepgram API key")
			}
			return true, nil
		},
		"audio": func(ctx context.Context) (bool, error) {
			return sink != nil, nil
		},
	}))

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
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/events", cfg.Port)).
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

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	if micCapture != nil {
		_ = micCapture.Close()
	}
	br.Close()
	plyr.Close()
	_ = speechClient.Close()
	if err := asst.Close(); err != nil {
		logger.Warn().Err(err).Msg("Assistant process exited with error")
	}

	logger.Info().Msg("Server exited gracefully")
}
