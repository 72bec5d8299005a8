package bridge

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Erriccc/claude-code-voice/internal/observability"
)

const (
	pushWriteTimeout = 10 * time.Second
	pushSendBuffer   = 64
)

// PushChannel is one outbound event stream to a browser client over a
// websocket. All writes go through a single writer goroutine so events are
// delivered in send order. A failed write tears the channel down; the session
// itself survives until its inactivity timeout.
type PushChannel struct {
	conn   *websocket.Conn
	send   chan Event
	logger zerolog.Logger

	closeOnce sync.Once
	closed    chan struct{}
	onClose   func()
}

// NewPushChannel wraps an upgraded websocket connection and starts the writer
// and reader loops. onClose runs exactly once when the channel dies, however
// it dies.
func NewPushChannel(conn *websocket.Conn, heartbeat time.Duration, logger zerolog.Logger, onClose func()) *PushChannel {
	p := &PushChannel{
		conn:    conn,
		send:    make(chan Event, pushSendBuffer),
		logger:  logger.With().Str("component", "push").Logger(),
		closed:  make(chan struct{}),
		onClose: onClose,
	}
	go p.writeLoop(heartbeat)
	go p.readLoop()
	return p
}

// Send queues an event for delivery. Returns false when the channel is dead
// or its buffer is full; the caller treats that as a silent client.
func (p *PushChannel) Send(event Event) bool {
	select {
	case <-p.closed:
		return false
	default:
	}

	select {
	case p.send <- event:
		observability.RecordPushEvent(event.Type)
		return true
	default:
		p.logger.Warn().Str("type", event.Type).Msg("Push buffer full, dropping event")
		return false
	}
}

// Close tears the channel down. Idempotent.
func (p *PushChannel) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		_ = p.conn.Close()
		if p.onClose != nil {
			p.onClose()
		}
	})
}

func (p *PushChannel) writeLoop(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	defer p.Close()

	for {
		select {
		case <-p.closed:
			return
		case event := <-p.send:
			if err := p.write(event); err != nil {
				p.logger.Debug().Err(err).Msg("Push write failed, closing channel")
				return
			}
		case <-ticker.C:
			if err := p.write(HeartbeatEvent()); err != nil {
				p.logger.Debug().Err(err).Msg("Heartbeat failed, closing channel")
				return
			}
			observability.RecordPushEvent("heartbeat")
		}
	}
}

func (p *PushChannel) write(event Event) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(pushWriteTimeout))
	return p.conn.WriteJSON(event)
}

// readLoop drains inbound frames so websocket control messages are processed
// and client disconnects are noticed promptly.
func (p *PushChannel) readLoop() {
	defer p.Close()
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}
