package player

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/audio"
	"github.com/Erriccc/claude-code-voice/internal/observability"
)

// State is the playback queue's overall state.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// Config holds playback tuning.
type Config struct {
	Tick           time.Duration // frame write cadence
	OutputRate     int           // device native sample rate
	OutputChannels int           // device channel count
	Volume         float64       // initial linear gain
}

// itemControl carries the cancellation channels for the item being played.
// Stop and Skip close these to take effect within one tick.
type itemControl struct {
	stop chan struct{} // stop the whole queue
	skip chan struct{} // cancel only this item
}

// Player owns an ordered queue of audio items and drives the frame sink.
// Exactly one item plays at a time; playback order is always enqueue order.
// The sink handle is owned exclusively by the Player.
type Player struct {
	cfg    Config
	sink   audio.FrameSink
	logger zerolog.Logger

	mu       sync.Mutex
	queue    []*Item
	state    State
	current  *Item
	ctl      *itemControl
	paused   bool
	resumeCh chan struct{}

	muted  atomic.Bool
	volume atomic.Uint64 // math.Float64bits

	wake   chan struct{}
	closed chan struct{}

	onComplete func()
	onItemDone func(id string, status ItemStatus)
}

// New creates a Player driving the given sink. The playback goroutine runs
// until Close.
func New(sink audio.FrameSink, cfg Config, logger zerolog.Logger) *Player {
	if cfg.Tick <= 0 {
		cfg.Tick = 20 * time.Millisecond
	}
	if cfg.OutputRate <= 0 {
		cfg.OutputRate = 48000
	}
	if cfg.OutputChannels <= 0 {
		cfg.OutputChannels = 2
	}
	if cfg.Volume <= 0 || cfg.Volume > 1 {
		cfg.Volume = 1.0
	}

	p := &Player{
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "player").Logger(),
		state:  StateIdle,
		wake:   make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	p.volume.Store(math.Float64bits(cfg.Volume))
	go p.run()
	return p
}

// OnComplete registers a callback fired exactly once each time the queue
// drains with the final item completed.
func (p *Player) OnComplete(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onComplete = fn
}

// OnItemDone registers a callback fired with each item's final status.
func (p *Player) OnItemDone(fn func(id string, status ItemStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onItemDone = fn
}

// Enqueue appends compressed audio to the queue and returns the item ID.
// Enqueueing during active playback never preempts; the item plays in turn.
func (p *Player) Enqueue(compressed []byte, text string) string {
	item := &Item{
		ID:     uuid.New().String(),
		Audio:  compressed,
		Text:   text,
		Status: StatusPending,
	}

	p.mu.Lock()
	p.queue = append(p.queue, item)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return item.ID
}

// Pause suspends frame writing without closing the sink or losing queue
// position. Takes effect within one tick.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.state != StatePlaying {
		return
	}
	p.paused = true
	p.resumeCh = make(chan struct{})
	p.state = StatePaused
	if p.current != nil {
		p.current.Status = StatusPaused
	}
}

// Resume releases a paused queue.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		return
	}
	p.paused = false
	close(p.resumeCh)
	p.resumeCh = nil
	p.state = StatePlaying
	if p.current != nil {
		p.current.Status = StatusPlaying
	}
}

// Stop halts playback immediately, marks every non-completed item cancelled,
// and empties the queue. Idempotent.
func (p *Player) Stop() {
	p.mu.Lock()
	cancelled := p.queue
	p.queue = nil
	if p.ctl != nil {
		select {
		case <-p.ctl.stop:
		default:
			close(p.ctl.stop)
		}
	}
	if p.paused {
		p.paused = false
		close(p.resumeCh)
		p.resumeCh = nil
	}
	done := p.onItemDone
	p.mu.Unlock()

	for _, item := range cancelled {
		item.Status = StatusCancelled
		if done != nil {
			done(item.ID, StatusCancelled)
		}
		observability.RecordItemFinished("cancelled")
	}
}

// Skip cancels only the currently playing item; the queue advances to the
// next pending item.
func (p *Player) Skip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctl == nil {
		return
	}
	select {
	case <-p.ctl.skip:
	default:
		close(p.ctl.skip)
	}
}

// SetMuted toggles mute. Muted playback writes silence at the same cadence.
func (p *Player) SetMuted(muted bool) {
	p.muted.Store(muted)
}

// Muted reports the mute flag.
func (p *Player) Muted() bool {
	return p.muted.Load()
}

// SetVolume sets the linear gain, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.volume.Store(math.Float64bits(v))
}

// Volume reports the linear gain.
func (p *Player) Volume() float64 {
	return math.Float64frombits(p.volume.Load())
}

// State reports the queue state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QueueLength reports the number of items not yet finished.
func (p *Player) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	if p.current != nil {
		n++
	}
	return n
}

// Close stops playback and shuts down the playback goroutine and sink.
func (p *Player) Close() {
	p.Stop()
	select {
	case <-p.closed:
	default:
		close(p.closed)
	}
	_ = p.sink.Stop()
	_ = p.sink.Close()
}

func (p *Player) run() {
	for {
		select {
		case <-p.closed:
			return
		case <-p.wake:
		}

		lastStatus := ItemStatus("")
		for {
			item := p.takeNext()
			if item == nil {
				break
			}
			lastStatus = p.playItem(item)
		}

		p.mu.Lock()
		p.state = StateIdle
		complete := p.onComplete
		p.mu.Unlock()
		_ = p.sink.Stop()

		// The notification fires only when the queue drained by finishing its
		// final item, not when it was stopped or skipped out from under us.
		if lastStatus == StatusCompleted && complete != nil {
			complete()
		}
	}
}

// takeNext pops the head of the queue, or returns nil when drained.
func (p *Player) takeNext() *Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil
	}
	item := p.queue[0]
	p.queue = p.queue[1:]
	p.current = item
	p.ctl = &itemControl{
		stop: make(chan struct{}),
		skip: make(chan struct{}),
	}
	p.state = StatePlaying
	return item
}

// finishItem records the item's final status and detaches it from the player.
func (p *Player) finishItem(item *Item, status ItemStatus) {
	p.mu.Lock()
	item.Status = status
	p.current = nil
	p.ctl = nil
	done := p.onItemDone
	p.mu.Unlock()

	if done != nil {
		done(item.ID, status)
	}
	observability.RecordItemFinished(string(status))
}

// playItem decodes, resamples, and streams one item to the sink, returning
// the item's final status.
func (p *Player) playItem(item *Item) ItemStatus {
	p.mu.Lock()
	ctl := p.ctl
	item.Status = StatusDecoding
	p.mu.Unlock()

	pcm, err := audio.Decode(item.Audio)
	if err != nil {
		p.logger.Warn().Err(err).Str("item_id", item.ID).Msg("Skipping undecodable item")
		observability.RecordError("decode_error", "player")
		p.finishItem(item, StatusCancelled)
		return StatusCancelled
	}

	samples := audio.MixToChannels(pcm.Samples, pcm.Channels, p.cfg.OutputChannels)
	if pcm.SampleRate != p.cfg.OutputRate {
		samples = audio.Resample(samples, p.cfg.OutputChannels, pcm.SampleRate, p.cfg.OutputRate)
	}
	p.mu.Lock()
	item.PCM = &audio.PCMData{Samples: samples, SampleRate: p.cfg.OutputRate, Channels: p.cfg.OutputChannels}
	item.Status = StatusReady
	p.mu.Unlock()

	if err := p.sink.Open(p.cfg.OutputRate, p.cfg.OutputChannels); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("Audio device open failed")
		observability.RecordError("device_error", "player")
		p.finishItem(item, StatusCancelled)
		return StatusCancelled
	}
	if err := p.sink.Start(); err != nil {
		p.logger.Error().Err(err).Str("item_id", item.ID).Msg("Audio device start failed")
		observability.RecordError("device_error", "player")
		p.finishItem(item, StatusCancelled)
		return StatusCancelled
	}

	p.mu.Lock()
	// Pause may have landed while we were decoding; don't overwrite it.
	if item.Status != StatusPaused {
		item.Status = StatusPlaying
	}
	p.mu.Unlock()
	observability.RecordAudioBytes("out", int64(len(samples)*2))

	status := p.streamFrames(item, samples, ctl)
	p.finishItem(item, status)
	return status
}

// streamFrames writes the item's PCM to the sink one frame per tick,
// honoring stop, skip, pause, mute, and volume between frames.
func (p *Player) streamFrames(item *Item, samples []int16, ctl *itemControl) ItemStatus {
	frameSamples := p.sink.FrameSize() * p.cfg.OutputChannels
	frameBytes := audio.FrameBytes(p.sink.FrameSize(), p.cfg.OutputChannels)

	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for offset := 0; offset < len(samples); offset += frameSamples {
		select {
		case <-ctl.stop:
			return StatusCancelled
		case <-ctl.skip:
			return StatusCancelled
		case <-p.closed:
			return StatusCancelled
		default:
		}

		// Pause gate: wait for resume without dropping queue position.
		if resumeCh := p.pauseGate(); resumeCh != nil {
			select {
			case <-resumeCh:
			case <-ctl.stop:
				return StatusCancelled
			case <-ctl.skip:
				return StatusCancelled
			case <-p.closed:
				return StatusCancelled
			}
		}

		end := offset + frameSamples
		if end > len(samples) {
			end = len(samples)
		}

		var frame []byte
		if p.muted.Load() {
			frame = make([]byte, frameBytes)
		} else {
			chunk := make([]int16, end-offset)
			copy(chunk, samples[offset:end])
			audio.ScaleSamples(chunk, p.Volume())
			frame = audio.PadFrame(audio.SamplesToBytes(chunk), frameBytes)
		}

		if err := p.sink.WriteFrame(frame); err != nil {
			p.logger.Error().Err(err).Str("item_id", item.ID).Msg("Frame write failed")
			observability.RecordError("device_error", "player")
			return StatusCancelled
		}
		observability.RecordFrameWritten()

		select {
		case <-ticker.C:
		case <-ctl.stop:
			return StatusCancelled
		case <-ctl.skip:
			return StatusCancelled
		case <-p.closed:
			return StatusCancelled
		}
	}

	return StatusCompleted
}

// pauseGate returns the resume channel when paused, nil otherwise.
func (p *Player) pauseGate() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused {
		return p.resumeCh
	}
	return nil
}
