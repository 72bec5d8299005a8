package audio

import (
	"bytes"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// PCMData holds decoded interleaved 16-bit PCM along with its native format.
type PCMData struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (p *PCMData) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Decode converts a compressed audio buffer (MP3 or WAV) into interleaved
// int16 PCM plus its native sample rate and channel count. Truncated or
// corrupt input is rejected with a *DecodeError.
func Decode(data []byte) (*PCMData, error) {
	switch {
	case len(data) < 4:
		return nil, &DecodeError{Reason: "input too short"}
	case bytes.HasPrefix(data, []byte("RIFF")):
		return decodeWAV(data)
	case bytes.HasPrefix(data, []byte("ID3")) || (data[0] == 0xFF && data[1]&0xE0 == 0xE0):
		return decodeMP3(data)
	default:
		return nil, &DecodeError{Reason: "unrecognized container"}
	}
}

// decodeMP3 decodes MP3 data. go-mp3 always produces 16-bit stereo at the
// stream's native sample rate.
func decodeMP3(data []byte) (*PCMData, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Reason: "invalid mp3 stream", Err: err}
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, &DecodeError{Reason: "truncated mp3 stream", Err: err}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{Reason: "mp3 stream contains no audio"}
	}

	samples := make([]int16, len(raw)/2)
	for i := range samples {
		samples[i] = int16(raw[i*2]) | int16(raw[i*2+1])<<8
	}

	return &PCMData{
		Samples:    samples,
		SampleRate: dec.SampleRate(),
		Channels:   2,
	}, nil
}

func decodeWAV(data []byte) (*PCMData, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, &DecodeError{Reason: "invalid wav file"}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &DecodeError{Reason: "truncated wav data", Err: err}
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, &DecodeError{Reason: "wav file contains no audio"}
	}

	// Normalize whatever bit depth the file carries down to int16.
	shift := uint(0)
	if buf.SourceBitDepth > 16 {
		shift = uint(buf.SourceBitDepth - 16)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v >> shift)
	}

	return &PCMData{
		Samples:    samples,
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
	}, nil
}
