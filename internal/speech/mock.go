package speech

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockSynthesizer is a scriptable Synthesizer for tests. Latency and failures
// can be set per text chunk; unscripted chunks succeed immediately.
type MockSynthesizer struct {
	mu       sync.Mutex
	latency  map[string]time.Duration
	failures map[string]error
	calls    []string
	audio    func(text string) []byte
}

// NewMockSynthesizer creates a mock whose output defaults to the chunk text
// itself prefixed with an MP3 sync word, so the bytes are distinguishable.
func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{
		latency:  make(map[string]time.Duration),
		failures: make(map[string]error),
		audio: func(text string) []byte {
			return append([]byte{0xFF, 0xFB}, text...)
		},
	}
}

// SetLatency scripts a delay for one chunk.
func (m *MockSynthesizer) SetLatency(text string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency[text] = d
}

// SetFailure scripts an error for one chunk.
func (m *MockSynthesizer) SetFailure(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[text] = err
}

// SetAudio overrides the synthesized bytes for all chunks.
func (m *MockSynthesizer) SetAudio(fn func(text string) []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audio = fn
}

// Calls returns the chunks synthesized so far, in call order.
func (m *MockSynthesizer) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	delay := m.latency[text]
	failure := m.failures[text]
	audio := m.audio
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &SynthesisError{Text: text, Err: ctx.Err()}
		}
	}

	if failure != nil {
		return nil, &SynthesisError{Text: text, Err: failure}
	}
	return audio(text), nil
}

func (m *MockSynthesizer) Close() error {
	return nil
}

// MockTranscriber is a scriptable Transcriber for tests.
type MockTranscriber struct {
	mu      sync.Mutex
	result  *Transcript
	err     error
	calls   int
	lastLen int
}

// NewMockTranscriber creates a mock returning the given text.
func NewMockTranscriber(text string) *MockTranscriber {
	return &MockTranscriber{
		result: &Transcript{Text: text, Confidence: 0.95},
	}
}

// SetResult replaces the scripted transcript.
func (m *MockTranscriber) SetResult(tr *Transcript) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = tr
}

// SetError scripts a failure for every call.
func (m *MockTranscriber) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many transcriptions ran.
func (m *MockTranscriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte) (*Transcript, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.lastLen = len(audio)

	if len(audio) == 0 {
		return nil, &TranscriptionError{Err: fmt.Errorf("empty audio buffer")}
	}
	if m.err != nil {
		return nil, &TranscriptionError{Err: m.err}
	}
	return m.result, nil
}

func (m *MockTranscriber) Close() error {
	return nil
}
