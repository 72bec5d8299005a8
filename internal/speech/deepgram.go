package speech

import (
	"bytes"
	"context"
	"fmt"
	"time"

	listenapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	speakapi "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/speak/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	speakClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/speak"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/config"
	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/resilience"
)

// DeepgramClient implements Synthesizer and Transcriber over Deepgram's REST
// API. Both directions share one circuit breaker because they share the same
// upstream service.
type DeepgramClient struct {
	config         *config.Config
	speak          *speakapi.Client
	listen         *listenapi.Client
	logger         zerolog.Logger
	circuitBreaker *resilience.CircuitBreaker
	retryConfig    *resilience.RetryConfig
}

// NewDeepgramClient creates a Deepgram speech client from config.
func NewDeepgramClient(cfg *config.Config, logger zerolog.Logger) (*DeepgramClient, error) {
	if cfg.DeepgramAPIKey == "" {
		return nil, fmt.Errorf("DEEPGRAM_API_KEY is required")
	}

	circuitBreaker := resilience.NewCircuitBreaker(
		"deepgram",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	retryConfig := &resilience.RetryConfig{
		MaxAttempts:       cfg.RetryMaxAttempts,
		InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
	}

	return &DeepgramClient{
		config:         cfg,
		speak:          speakapi.New(speakClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})),
		listen:         listenapi.New(listenClient.NewREST(cfg.DeepgramAPIKey, &interfaces.ClientOptions{})),
		logger:         logger.With().Str("component", "deepgram").Logger(),
		circuitBreaker: circuitBreaker,
		retryConfig:    retryConfig,
	}, nil
}

// Synthesize renders text as MP3 audio using the configured voice model.
func (d *DeepgramClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	options := &interfaces.SpeakOptions{
		Model: d.config.DeepgramTTSModel,
	}

	start := time.Now()
	var audio []byte

	err := resilience.Retry(func() error {
		return d.circuitBreaker.Call(func() error {
			buf := new(interfaces.RawResponse)
			if _, err := d.speak.ToStream(ctx, text, options, buf); err != nil {
				return err
			}
			audio = buf.Bytes()
			return nil
		})
	}, d.retryConfig, resilience.IsRetryableNetworkError)

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	observability.RecordSynthesis(err == nil, time.Since(start).Seconds())

	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		observability.RecordError("synthesis_error", "speech")
		return nil, &SynthesisError{Text: text, Err: err}
	}

	if len(audio) == 0 {
		observability.RecordError("synthesis_error", "speech")
		return nil, &SynthesisError{Text: text, Err: fmt.Errorf("empty audio response")}
	}

	observability.RecordAudioBytes("in", int64(len(audio)))
	d.logger.Debug().
		Int("text_len", len(text)).
		Int("audio_bytes", len(audio)).
		Dur("latency", time.Since(start)).
		Msg("Synthesis complete")

	return audio, nil
}

// Transcribe runs prerecorded recognition over a complete utterance.
func (d *DeepgramClient) Transcribe(ctx context.Context, audio []byte) (*Transcript, error) {
	if len(audio) == 0 {
		return nil, &TranscriptionError{Err: fmt.Errorf("empty audio buffer")}
	}

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       d.config.DeepgramSTTModel,
		Language:    d.config.DeepgramLanguage,
		Punctuate:   true,
		SmartFormat: true,
	}

	start := time.Now()
	var transcript *Transcript

	err := resilience.Retry(func() error {
		return d.circuitBreaker.Call(func() error {
			res, err := d.listen.FromStream(ctx, bytes.NewReader(audio), options)
			if err != nil {
				return err
			}

			if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
				transcript = &Transcript{}
				return nil
			}

			alt := res.Results.Channels[0].Alternatives[0]
			transcript = &Transcript{
				Text:       alt.Transcript,
				Confidence: alt.Confidence,
				Duration:   res.Metadata.Duration,
			}
			return nil
		})
	}, d.retryConfig, resilience.IsRetryableNetworkError)

	observability.UpdateCircuitBreakerState("deepgram", int(d.circuitBreaker.GetState()))
	observability.RecordTranscription(err == nil, time.Since(start).Seconds())

	if err != nil {
		observability.IncrementCircuitBreakerFailures("deepgram")
		observability.RecordError("transcription_error", "speech")
		return nil, &TranscriptionError{Err: err}
	}

	d.logger.Debug().
		Int("audio_bytes", len(audio)).
		Str("text", transcript.Text).
		Float64("confidence", transcript.Confidence).
		Dur("latency", time.Since(start)).
		Msg("Transcription complete")

	return transcript, nil
}

// Close releases the client. The REST clients hold no persistent connections.
func (d *DeepgramClient) Close() error {
	return nil
}
