package msgqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/observability"
)

// MessageStatus tracks a queued user message.
type MessageStatus string

const (
	StatusQueued     MessageStatus = "queued"
	StatusProcessing MessageStatus = "processing"
	StatusCompleted  MessageStatus = "completed"
)

// Message is one user-originated utterance waiting its turn.
type Message struct {
	ID        string
	Text      string
	Timestamp time.Time
	Status    MessageStatus
}

// Handler processes one message. Handler errors are logged and swallowed so
// one bad message never stalls the queue.
type Handler func(ctx context.Context, msg *Message) error

// Queue serializes user messages so a new utterance never races with one
// still being processed. Exactly one message is processing at any time.
type Queue struct {
	handler Handler
	logger  zerolog.Logger

	mu         sync.Mutex
	items      []*Message
	processing *Message
	running    bool
	closed     bool
}

// New creates a message queue with the given handler.
func New(handler Handler, logger zerolog.Logger) *Queue {
	return &Queue{
		handler: handler,
		logger:  logger.With().Str("component", "msgqueue").Logger(),
	}
}

// Enqueue appends a message and begins processing it if nothing else is in
// flight. Returns the message ID.
func (q *Queue) Enqueue(text string) string {
	msg := &Message{
		ID:        uuid.New().String(),
		Text:      text,
		Timestamp: time.Now(),
		Status:    StatusQueued,
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}
	q.items = append(q.items, msg)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.processNext()
	}
	return msg.ID
}

// Remove drops a queued message by ID. The message currently processing is
// never removed.
func (q *Queue) Remove(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, msg := range q.items {
		if msg.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearQueued drops every queued message, leaving the one currently
// processing untouched. Returns how many were dropped.
func (q *Queue) ClearQueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Length reports queued plus processing messages.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if q.processing != nil {
		n++
	}
	return n
}

// Processing reports whether a message is currently in flight.
func (q *Queue) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing != nil
}

// Close stops accepting new messages. The in-flight handler finishes.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.items = nil
}

func (q *Queue) processNext() {
	for {
		q.mu.Lock()
		if q.closed || len(q.items) == 0 {
			q.processing = nil
			q.running = false
			q.mu.Unlock()
			return
		}
		msg := q.items[0]
		q.items = q.items[1:]
		msg.Status = StatusProcessing
		q.processing = msg
		q.mu.Unlock()

		if err := q.handler(context.Background(), msg); err != nil {
			q.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("Message handler failed, continuing queue")
			observability.RecordError("handler_error", "msgqueue")
		}

		q.mu.Lock()
		msg.Status = StatusCompleted
		q.processing = nil
		q.mu.Unlock()

		// Yield between items so enqueuers and control calls interleave.
		time.Sleep(time.Millisecond)
	}
}
