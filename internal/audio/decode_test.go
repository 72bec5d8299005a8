package audio

import (
	"errors"
	"testing"
)

func TestDecode_RejectsShortInput(t *testing.T) {
	_, err := Decode([]byte{0x01, 0x02})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError, got %v", err)
	}
}

func TestDecode_RejectsUnknownContainer(t *testing.T) {
	_, err := Decode([]byte("this is not audio data at all"))
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError, got %v", err)
	}
}

func TestDecode_RejectsCorruptWAV(t *testing.T) {
	// RIFF magic with garbage after it
	data := append([]byte("RIFF"), make([]byte, 16)...)
	_, err := Decode(data)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError for corrupt WAV, got %v", err)
	}
}

func TestDecode_RejectsCorruptMP3(t *testing.T) {
	// Valid frame sync bits, invalid everything else
	data := []byte{0xFF, 0xE0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	_, err := Decode(data)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected *DecodeError for corrupt MP3, got %v", err)
	}
}

func TestPCMData_Frames(t *testing.T) {
	pcm := &PCMData{Samples: make([]int16, 100), Channels: 2}
	if pcm.Frames() != 50 {
		t.Errorf("Expected 50 frames, got %d", pcm.Frames())
	}
}
