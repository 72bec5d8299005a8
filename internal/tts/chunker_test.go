package tts

import (
	"strings"
	"testing"
)

func TestSplitText_ShortTextSingleChunk(t *testing.T) {
	chunks := SplitText("  Just a short reply.  ", 120, 60)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Just a short reply." {
		t.Errorf("Expected trimmed input back, got %q", chunks[0])
	}
}

func TestSplitText_EmptyInput(t *testing.T) {
	if chunks := SplitText("   ", 120, 60); chunks != nil {
		t.Errorf("Expected nil for blank input, got %v", chunks)
	}
}

func TestSplitText_SentenceBoundaries(t *testing.T) {
	chunks := SplitText("Hello. This is a longer second sentence. Bye.", 1, 1)
	want := []string{"Hello.", "This is a longer second sentence.", "Bye."}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("Expected chunk %d to be %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitText_LowercaseContinuationDoesNotSplit(t *testing.T) {
	chunks := SplitText("Use flags, e.g. verbose mode, when debugging.", 1, 1)
	if len(chunks) != 1 {
		t.Errorf("Expected abbreviation to stay in one chunk, got %v", chunks)
	}
}

func TestSplitText_RecombinesToMinimumLength(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("This sentence pads out the input. ")
	}
	text := strings.TrimSpace(b.String())
	if len(text) < 500 {
		t.Fatalf("Test input should exceed 500 chars, got %d", len(text))
	}

	minChunk := 60
	chunks := SplitText(text, 120, minChunk)
	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if i < len(chunks)-1 && len(chunk) < minChunk {
			t.Errorf("Expected chunk %d to be at least %d chars, got %d: %q", i, minChunk, len(chunk), chunk)
		}
	}

	// Recombination must not lose or reorder text.
	if strings.Join(chunks, " ") != text {
		t.Error("Expected chunks to reassemble into the original text")
	}
}

func TestSplitText_MultiplePunctuationMarks(t *testing.T) {
	chunks := SplitText("Really?! Yes. Are you sure... Definitely.", 1, 1)
	want := []string{"Really?!", "Yes.", "Are you sure...", "Definitely."}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("Expected chunk %d to be %q, got %q", i, want[i], chunks[i])
		}
	}
}
