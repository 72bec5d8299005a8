package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/assistant"
	"github.com/Erriccc/claude-code-voice/internal/config"
	"github.com/Erriccc/claude-code-voice/internal/msgqueue"
	"github.com/Erriccc/claude-code-voice/internal/observability"
	"github.com/Erriccc/claude-code-voice/internal/player"
	"github.com/Erriccc/claude-code-voice/internal/speech"
	"github.com/Erriccc/claude-code-voice/internal/tts"
)

const ttsMimeType = "audio/mpeg"

// Bridge wires the assistant, speech services, local playback, and the
// remote session together. Assistant responses are spoken through the TTS
// scheduler; permission requests queue up and are resolved by voice or by
// explicit client calls; user audio comes in through SubmitAudio.
type Bridge struct {
	cfg       *config.Config
	store     *SessionStore
	perms     *PermissionQueue
	assistant assistant.Client
	trans     speech.Transcriber
	scheduler *tts.Scheduler
	player    *player.Player
	messages  *msgqueue.Queue
	logger    zerolog.Logger
}

// New assembles a Bridge. The TTS scheduler and message queue are owned by
// the bridge; the session store, player, and collaborator clients are shared
// with the rest of the process.
func New(
	cfg *config.Config,
	store *SessionStore,
	asst assistant.Client,
	synth speech.Synthesizer,
	trans speech.Transcriber,
	plyr *player.Player,
	logger zerolog.Logger,
) *Bridge {
	b := &Bridge{
		cfg:       cfg,
		store:     store,
		perms:     NewPermissionQueue(),
		assistant: asst,
		trans:     trans,
		player:    plyr,
		logger:    logger.With().Str("component", "bridge").Logger(),
	}

	b.scheduler = tts.NewScheduler(synth, b.routeChunk, tts.Config{
		ShortTextThreshold: cfg.ShortTextThreshold,
		MinChunkChars:      cfg.MinChunkChars,
		LookAhead:          cfg.LookAhead,
	}, logger)

	b.messages = msgqueue.New(func(ctx context.Context, msg *msgqueue.Message) error {
		return b.assistant.SendText(ctx, msg.Text)
	}, logger)

	b.scheduler.OnInterrupted(func() {
		b.player.Stop()
		b.pushToCurrent(PlaybackStateEvent("idle"))
	})
	b.player.OnComplete(func() {
		b.pushToCurrent(PlaybackStateEvent("idle"))
	})

	return b
}

// Start begins consuming assistant events. Returns after launching the
// consumer; events flow until the assistant's stream closes.
func (b *Bridge) Start() {
	go b.consumeEvents()
}

// Close shuts down the scheduler and message queue. The shared player,
// store, and clients are closed by their owners.
func (b *Bridge) Close() {
	b.scheduler.Close()
	b.messages.Close()
}

// Scheduler exposes the TTS stream for the capture path, which interrupts it
// when the user starts speaking.
func (b *Bridge) Scheduler() *tts.Scheduler {
	return b.scheduler
}

func (b *Bridge) consumeEvents() {
	for event := range b.assistant.Events() {
		switch event.Type {
		case assistant.EventResponse:
			b.scheduler.Speak(event.Text)
		case assistant.EventPermissionRequest:
			if event.Permission != nil {
				b.handlePermissionRequest(event.Permission)
			}
		}
	}
	b.logger.Info().Msg("Assistant event stream closed")
}

// routeChunk delivers one finished TTS chunk. A connected session takes the
// audio; otherwise it plays locally. Re-evaluated per chunk so a session can
// connect or disconnect mid-stream.
func (b *Bridge) routeChunk(audio []byte, text string, isLast bool) {
	if session := b.store.Current(); session != nil {
		if push := b.store.Push(session); push != nil {
			push.Send(TTSEvent(audio, ttsMimeType, text, isLast))
			return
		}
	}

	b.player.Enqueue(audio, text)
	b.pushToCurrent(PlaybackStateEvent("playing"))
}

// SubmitAudio handles one recorded utterance from the remote client:
// authenticate, interrupt any ongoing speech, transcribe, then either resolve
// a pending permission by voice or forward the text to the assistant.
func (b *Bridge) SubmitAudio(ctx context.Context, token string, audio []byte) (string, error) {
	session, err := b.store.Authenticate(token)
	if err != nil {
		return "", err
	}

	// The user speaking preempts whatever the assistant was saying.
	b.scheduler.Interrupt()

	transcript, err := b.trans.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	if transcript.Text == "" {
		return "", nil
	}

	if push := b.store.Push(session); push != nil {
		push.Send(TranscriptEvent(transcript.Text))
	}

	b.HandleTranscript(ctx, transcript.Text)
	return transcript.Text, nil
}

// HandleTranscript routes a transcript: a permission response resolves queue
// entries; anything else is forwarded to the assistant as a user message.
// Returns true when the transcript was consumed as a permission response.
func (b *Bridge) HandleTranscript(ctx context.Context, text string) bool {
	if b.perms.Len() > 0 {
		switch MatchVoiceDecision(text) {
		case DecisionAllowAll:
			b.resolveAll(ctx, true)
			return true
		case DecisionDenyAll:
			b.resolveAll(ctx, false)
			return true
		case DecisionAlwaysAllow:
			if head := b.perms.Head(); head != nil {
				_ = b.Resolve(ctx, head.ID, true, true, "voice")
			}
			return true
		case DecisionApprove:
			if head := b.perms.Head(); head != nil {
				_ = b.Resolve(ctx, head.ID, true, false, "voice")
			}
			return true
		case DecisionDeny:
			if head := b.perms.Head(); head != nil {
				_ = b.Resolve(ctx, head.ID, false, false, "voice")
			}
			return true
		}
	}

	b.messages.Enqueue(text)
	return false
}

func (b *Bridge) handlePermissionRequest(req *assistant.PermissionRequest) {
	pending := &PendingPermission{
		ID:      req.ID,
		Tool:    req.Tool,
		Prompt:  req.Prompt,
		Input:   req.Input,
		Pattern: req.Pattern,
	}

	becameHead := b.perms.Enqueue(pending)
	b.logger.Info().Str("id", req.ID).Str("tool", req.Tool).Int("queued", b.perms.Len()).Msg("Permission request queued")
	b.pushToCurrent(PermissionQueueEvent(b.perms.Summaries()))

	if becameHead {
		b.showHead()
	}
}

// showHead speaks and pushes the queue head. Only the head is ever showing.
func (b *Bridge) showHead() {
	head := b.perms.Head()
	if head == nil || b.perms.Showing() == head.ID {
		return
	}
	b.perms.MarkShowing(head.ID)

	b.scheduler.Speak(head.Prompt)
	b.pushToCurrent(PermissionRequestEvent(head.ID, head.Tool, head.Prompt))
	b.pushToCurrent(PermissionQueueEvent(b.perms.Summaries()))
}

// Resolve removes one permission by ID wherever it sits, notifies the
// assistant, and schedules the next head for showing after a short gap so
// its spoken prompt does not overlap the previous audio.
func (b *Bridge) Resolve(ctx context.Context, id string, approved, alwaysAllow bool, source string) error {
	removed, wasHead := b.perms.Remove(id)
	if removed == nil {
		return fmt.Errorf("unknown permission request %q", id)
	}

	b.notifyResolved(ctx, removed, approved, alwaysAllow, source)

	if wasHead && b.perms.Len() > 0 {
		time.AfterFunc(b.cfg.PermissionGap, b.showHead)
	}
	return nil
}

// resolveAll applies one batch decision to every queued permission,
// including entries the user has not heard yet.
func (b *Bridge) resolveAll(ctx context.Context, approved bool) {
	for _, item := range b.perms.RemoveAll() {
		b.notifyResolved(ctx, item, approved, false, "voice")
	}
}

func (b *Bridge) notifyResolved(ctx context.Context, p *PendingPermission, approved, alwaysAllow bool, source string) {
	if err := b.assistant.ResolvePermission(ctx, p.ID, approved, alwaysAllow); err != nil {
		b.logger.Error().Err(err).Str("id", p.ID).Msg("Failed to report permission decision to assistant")
	}

	b.logger.Info().
		Str("id", p.ID).
		Bool("approved", approved).
		Bool("always_allow", alwaysAllow).
		Str("source", source).
		Msg("Permission resolved")
	observability.RecordPermissionResolved(approved, source)
	b.pushToCurrent(PermissionHandledEvent(p.ID, approved, b.perms.Len()))
}

func (b *Bridge) pushToCurrent(event Event) {
	session := b.store.Current()
	if session == nil {
		return
	}
	if push := b.store.Push(session); push != nil {
		push.Send(event)
	}
}
