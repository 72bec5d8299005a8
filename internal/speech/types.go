package speech

import (
	"context"
	"fmt"
)

// Synthesizer converts a text chunk into compressed audio.
type Synthesizer interface {
	// Synthesize renders text as encoded audio (MP3 by default). The call
	// blocks until the full buffer is available or the context ends.
	Synthesize(ctx context.Context, text string) ([]byte, error)

	// Close releases the client.
	Close() error
}

// Transcriber converts a recorded utterance into text.
type Transcriber interface {
	// Transcribe runs recognition over a complete audio buffer and returns
	// the best transcript.
	Transcribe(ctx context.Context, audio []byte) (*Transcript, error)

	// Close releases the client.
	Close() error
}

// Transcript is the result of transcribing one utterance.
type Transcript struct {
	Text       string
	Confidence float64
	Duration   float64 // seconds of audio covered
}

// SynthesisError reports a failed synthesis request.
type SynthesisError struct {
	Text string // the chunk that failed, truncated for logging
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for %q: %v", truncate(e.Text, 40), e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// TranscriptionError reports a failed transcription request.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
