package assistant

import (
	"context"
	"sync"
)

// Resolution records one permission decision sent to the assistant.
type Resolution struct {
	ID          string
	Approved    bool
	AlwaysAllow bool
}

// MockClient is an in-process assistant for tests. Events are emitted by the
// test through Emit; outgoing calls are recorded.
type MockClient struct {
	events chan Event

	mu          sync.Mutex
	sentTexts   []string
	resolutions []Resolution
	closed      bool
}

// NewMockClient creates a mock assistant.
func NewMockClient() *MockClient {
	return &MockClient{events: make(chan Event, 32)}
}

// Emit pushes an event to the consumer.
func (m *MockClient) Emit(event Event) {
	m.events <- event
}

// EmitResponse pushes a response-text event.
func (m *MockClient) EmitResponse(text string) {
	m.Emit(Event{Type: EventResponse, Text: text})
}

// EmitPermissionRequest pushes a permission-request event.
func (m *MockClient) EmitPermissionRequest(req PermissionRequest) {
	m.Emit(Event{Type: EventPermissionRequest, Permission: &req})
}

// SentTexts returns forwarded user messages in order.
func (m *MockClient) SentTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sentTexts...)
}

// Resolutions returns permission decisions in order.
func (m *MockClient) Resolutions() []Resolution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Resolution(nil), m.resolutions...)
}

func (m *MockClient) Events() <-chan Event {
	return m.events
}

func (m *MockClient) SendText(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentTexts = append(m.sentTexts, text)
	return nil
}

func (m *MockClient) ResolvePermission(ctx context.Context, id string, approved, alwaysAllow bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolutions = append(m.resolutions, Resolution{ID: id, Approved: approved, AlwaysAllow: alwaysAllow})
	return nil
}

func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.events)
	}
	return nil
}
