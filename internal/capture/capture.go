package capture

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/audio"
	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/speech"
)

const transcribeTimeout = 15 * time.Second

// Source produces fixed-size frames of mono int16 samples from a microphone.
type Source interface {
	Start() error
	ReadFrame() ([]int16, error)
	Close() error
}

// Config holds capture tuning.
type Config struct {
	SampleRate int
	FrameSize  int // samples per frame
	BufferSize int // ring buffer bytes between device reads and processing
	VAD        *audio.VADConfig
}

// Capture runs local voice input: device frames flow through a ring buffer
// into voice activity detection; each detected utterance is transcribed and
// handed to the transcript callback. Speech onset fires a separate callback
// so ongoing assistant audio can be interrupted before transcription
// completes.
type Capture struct {
	cfg           Config
	source        Source
	trans         speech.Transcriber
	onSpeechStart func()
	onTranscript  func(text string)
	logger        zerolog.Logger

	ring *audio.RingBuffer
	vad  *audio.VADDetector

	closed chan struct{}
}

// New creates a capture pipeline. It does not touch the device until Start.
func New(
	cfg Config,
	source Source,
	trans speech.Transcriber,
	onSpeechStart func(),
	onTranscript func(text string),
	logger zerolog.Logger,
) *Capture {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = cfg.SampleRate / 50 // 20ms frames
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 65536
	}
	vadCfg := cfg.VAD
	if vadCfg == nil {
		vadCfg = audio.DefaultVADConfig()
	}

	return &Capture{
		cfg:           cfg,
		source:        source,
		trans:         trans,
		onSpeechStart: onSpeechStart,
		onTranscript:  onTranscript,
		logger:        logger.With().Str("component", "capture").Logger(),
		ring:          audio.NewRingBuffer(cfg.BufferSize),
		vad:           audio.NewVADDetector(vadCfg),
		closed:        make(chan struct{}),
	}
}

// Start begins reading the device and processing utterances.
func (c *Capture) Start() error {
	if err := c.source.Start(); err != nil {
		return err
	}
	go c.readLoop()
	go c.processLoop()
	c.logger.Info().Int("sample_rate", c.cfg.SampleRate).Msg("Microphone capture started")
	return nil
}

// Close stops both loops and releases the device.
func (c *Capture) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return c.source.Close()
}

// readLoop moves device frames into the ring buffer. Kept separate from
// processing so a stalled transcription never backs up into the device.
func (c *Capture) readLoop() {
	for {
		select {
		case <-c.closed:
			return
		default:
		}

		frame, err := c.source.ReadFrame()
		if err != nil {
			select {
			case <-c.closed:
			default:
				c.logger.Warn().Err(err).Msg("Microphone read failed, stopping capture")
				observability.RecordError("device_error", "capture")
			}
			return
		}

		if written := c.ring.Write(audio.SamplesToBytes(frame)); written == 0 {
			// Full buffer: drop the oldest unprocessed audio.
			c.ring.Clear()
			c.ring.Write(audio.SamplesToBytes(frame))
		}
	}
}

// processLoop pulls frames out of the ring buffer, runs voice activity
// detection, and transcribes each completed utterance.
func (c *Capture) processLoop() {
	frameBytes := c.cfg.FrameSize * 2
	buf := make([]byte, frameBytes)
	var utterance []int16

	for {
		select {
		case <-c.closed:
			return
		default:
		}

		if c.ring.Available() < frameBytes {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		c.ring.Read(buf)
		frame := audio.BytesToSamples(buf)

		speaking, started, ended := c.vad.ProcessFrame(frame)
		if started {
			c.logger.Debug().Msg("Speech detected")
			if c.onSpeechStart != nil {
				c.onSpeechStart()
			}
		}
		if speaking || ended {
			utterance = append(utterance, frame...)
		}
		if ended {
			c.finishUtterance(utterance)
			utterance = nil
		}
	}
}

func (c *Capture) finishUtterance(samples []int16) {
	if len(samples) == 0 {
		return
	}

	wav := audio.EncodeWAV(&audio.PCMData{
		Samples:    samples,
		SampleRate: c.cfg.SampleRate,
		Channels:   1,
	})
	observability.RecordAudioBytes("in", int64(len(wav)))

	ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
	defer cancel()

	transcript, err := c.trans.Transcribe(ctx, wav)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Utterance transcription failed")
		return
	}
	if transcript.Text == "" {
		return
	}

	c.logger.Info().Str("text", transcript.Text).Msg("Utterance transcribed")
	if c.onTranscript != nil {
		c.onTranscript(transcript.Text)
	}
}
