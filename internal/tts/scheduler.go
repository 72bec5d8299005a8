package tts

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/speech"
)

// ChunkStatus tracks a text chunk through synthesis and delivery.
type ChunkStatus string

const (
	StatusPending    ChunkStatus = "pending"
	StatusGenerating ChunkStatus = "generating"
	StatusReady      ChunkStatus = "ready"
	StatusPlaying    ChunkStatus = "playing"
	StatusCompleted  ChunkStatus = "completed"
	StatusCancelled  ChunkStatus = "cancelled"
)

// Chunk is one speakable unit of assistant text.
type Chunk struct {
	ID     string
	Text   string
	Audio  []byte
	Status ChunkStatus

	gen  int64
	done chan struct{} // closed when synthesis finishes, successfully or not
}

// RouteFunc delivers one finished chunk's audio. The scheduler calls it in
// strict enqueue order; the route decides between the local player and a
// remote session per chunk.
type RouteFunc func(audio []byte, text string, isLast bool)

// Config holds chunking and pipelining tuning.
type Config struct {
	ShortTextThreshold int // below this, text becomes a single chunk
	MinChunkChars      int // recombine sentence fragments up to this
	LookAhead          int // chunks synthesized ahead of the play cursor
}

// Scheduler splits assistant text into chunks, synthesizes up to the current
// chunk plus LookAhead concurrently, and delivers finished audio strictly in
// chunk order. A chunk whose synthesis fails is dropped and the stream
// continues.
type Scheduler struct {
	cfg    Config
	synth  speech.Synthesizer
	route  RouteFunc
	logger zerolog.Logger

	mu        sync.Mutex
	chunks    []*Chunk
	cursor    int
	gen       int64
	genCtx    context.Context
	genCancel context.CancelFunc

	wake   chan struct{}
	closed chan struct{}

	onInterrupted func()
	onStreamDone  func()
}

// NewScheduler creates a Scheduler delivering finished chunks through route.
// The delivery goroutine runs until Close.
func NewScheduler(synth speech.Synthesizer, route RouteFunc, cfg Config, logger zerolog.Logger) *Scheduler {
	if cfg.ShortTextThreshold <= 0 {
		cfg.ShortTextThreshold = 120
	}
	if cfg.MinChunkChars <= 0 {
		cfg.MinChunkChars = 60
	}
	if cfg.LookAhead < 0 {
		cfg.LookAhead = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cfg:       cfg,
		synth:     synth,
		route:     route,
		logger:    logger.With().Str("component", "tts_scheduler").Logger(),
		genCtx:    ctx,
		genCancel: cancel,
		wake:      make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
	go s.run()
	return s
}

// OnInterrupted registers a callback fired after Interrupt has cancelled the
// stream, so the caller can halt local playback and start a new turn.
func (s *Scheduler) OnInterrupted(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInterrupted = fn
}

// OnStreamDone registers a callback fired when the chunk queue drains after
// delivering its final chunk.
func (s *Scheduler) OnStreamDone(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStreamDone = fn
}

// Speak splits text into chunks and appends them to the stream. Returns the
// number of chunks enqueued.
func (s *Scheduler) Speak(text string) int {
	parts := SplitText(text, s.cfg.ShortTextThreshold, s.cfg.MinChunkChars)
	if len(parts) == 0 {
		return 0
	}

	s.mu.Lock()
	for _, part := range parts {
		s.chunks = append(s.chunks, &Chunk{
			ID:     uuid.New().String(),
			Text:   part,
			Status: StatusPending,
			gen:    s.gen,
			done:   make(chan struct{}),
		})
	}
	s.mu.Unlock()

	s.logger.Debug().Int("chunks", len(parts)).Int("text_len", len(text)).Msg("Text enqueued for synthesis")

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return len(parts)
}

// Interrupt cancels every not-yet-delivered chunk and discards in-flight
// synthesis results. In-flight calls finish in the background; their output
// is dropped on arrival.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	cancelled := len(s.chunks) - s.cursor
	for _, chunk := range s.chunks[s.cursor:] {
		chunk.Status = StatusCancelled
	}
	s.chunks = nil
	s.cursor = 0
	s.gen++
	s.genCancel()
	ctx, cancel := context.WithCancel(context.Background())
	s.genCtx = ctx
	s.genCancel = cancel
	interrupted := s.onInterrupted
	s.mu.Unlock()

	if cancelled > 0 {
		s.logger.Info().Int("cancelled", cancelled).Msg("Speech stream interrupted")
	}
	if interrupted != nil {
		interrupted()
	}
}

// Pending reports the number of chunks not yet delivered.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chunks) - s.cursor
}

// Close stops the delivery goroutine and cancels in-flight synthesis.
func (s *Scheduler) Close() {
	s.Interrupt()
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
}

func (s *Scheduler) run() {
	for {
		select {
		case <-s.closed:
			return
		case <-s.wake:
		}

		delivered := false
		for {
			chunk, genCtx := s.nextChunk()
			if chunk == nil {
				break
			}

			select {
			case <-chunk.done:
			case <-genCtx.Done():
				continue // stream was interrupted, re-read the queue
			case <-s.closed:
				return
			}

			if s.deliver(chunk) {
				delivered = true
			}
		}

		s.mu.Lock()
		streamDone := s.onStreamDone
		drained := delivered && len(s.chunks) == s.cursor
		s.mu.Unlock()

		if drained && streamDone != nil {
			streamDone()
		}
	}
}

// nextChunk starts synthesis for the look-ahead window and returns the chunk
// at the play cursor, or nil when the queue is drained.
func (s *Scheduler) nextChunk() (*Chunk, context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor >= len(s.chunks) {
		return nil, nil
	}

	limit := s.cursor + s.cfg.LookAhead
	if limit > len(s.chunks)-1 {
		limit = len(s.chunks) - 1
	}
	for i := s.cursor; i <= limit; i++ {
		if s.chunks[i].Status == StatusPending {
			s.chunks[i].Status = StatusGenerating
			go s.synthesize(s.chunks[i], s.genCtx)
		}
	}

	return s.chunks[s.cursor], s.genCtx
}

func (s *Scheduler) synthesize(chunk *Chunk, ctx context.Context) {
	audio, err := s.synth.Synthesize(ctx, chunk.Text)

	s.mu.Lock()
	if chunk.gen != s.gen || chunk.Status == StatusCancelled {
		// The stream moved on while this call was in flight.
		s.mu.Unlock()
		return
	}
	if err != nil {
		chunk.Status = StatusCancelled
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("chunk_id", chunk.ID).Msg("Chunk synthesis failed, continuing stream")
		observability.RecordError("synthesis_error", "tts_scheduler")
		close(chunk.done)
		return
	}
	chunk.Audio = audio
	chunk.Status = StatusReady
	s.mu.Unlock()
	close(chunk.done)
}

// deliver hands the cursor chunk to the route and advances the cursor.
// Returns false when the chunk was cancelled or the stream was interrupted.
func (s *Scheduler) deliver(chunk *Chunk) bool {
	s.mu.Lock()
	if chunk.gen != s.gen {
		s.mu.Unlock()
		return false
	}
	if chunk.Status == StatusCancelled {
		s.cursor++
		s.mu.Unlock()
		return false
	}
	chunk.Status = StatusPlaying
	isLast := s.cursor == len(s.chunks)-1
	s.cursor++
	s.mu.Unlock()

	s.route(chunk.Audio, chunk.Text, isLast)

	s.mu.Lock()
	if chunk.gen == s.gen {
		chunk.Status = StatusCompleted
	}
	s.mu.Unlock()
	return true
}
