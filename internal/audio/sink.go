package audio

import (
	"fmt"
	"sync"
)

// FrameSink owns a physical (or null) output stream. It accepts fixed-size
// interleaved 16-bit PCM frames at the rate and channel count given to Open.
// The underlying device API requires exact frame sizing, so WriteFrame
// rejects anything other than FrameBytes(frameSize, channels) bytes.
type FrameSink interface {
	// Open prepares a stream for the given format. Reopening with different
	// parameters closes the prior stream first.
	Open(sampleRate, channels int) error

	// Start begins the stream's frame callback. Stop is safe to call even if
	// Start was never called.
	Start() error
	Stop() error

	// WriteFrame writes exactly one frame of interleaved 16-bit PCM.
	WriteFrame(frame []byte) error

	// Close releases the device.
	Close() error

	// FrameSize returns the fixed frame length in samples per channel.
	FrameSize() int

	// Format returns the currently open rate and channel count (0, 0 when closed).
	Format() (sampleRate, channels int)
}

// NewSink selects an audio backend once at startup. "portaudio" requires a
// working output device; "auto" falls back to the null sink when the native
// backend is unavailable; "none" always uses the null sink.
func NewSink(backend string, frameSize int) (FrameSink, error) {
	switch backend {
	case "none":
		return NewNullSink(frameSize), nil
	case "portaudio":
		return NewPortAudioSink(frameSize)
	case "auto", "":
		sink, err := NewPortAudioSink(frameSize)
		if err != nil {
			return NewNullSink(frameSize), nil
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

// NullSink discards frames. It stands in for the native backend when no
// output device is available so the rest of the pipeline keeps working.
type NullSink struct {
	mu         sync.Mutex
	frameSize  int
	sampleRate int
	channels   int
	started    bool
	frames     int64
}

// NewNullSink creates a sink that accepts and discards frames.
func NewNullSink(frameSize int) *NullSink {
	return &NullSink{frameSize: frameSize}
}

func (s *NullSink) Open(sampleRate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleRate = sampleRate
	s.channels = channels
	return nil
}

func (s *NullSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate == 0 {
		return &DeviceError{Op: "start", Err: fmt.Errorf("sink not open")}
	}
	s.started = true
	return nil
}

func (s *NullSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *NullSink) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate == 0 {
		return &DeviceError{Op: "write", Err: fmt.Errorf("sink not open")}
	}
	if want := FrameBytes(s.frameSize, s.channels); len(frame) != want {
		return &DeviceError{Op: "write", Err: fmt.Errorf("frame must be %d bytes, got %d", want, len(frame))}
	}
	s.frames++
	return nil
}

func (s *NullSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.sampleRate = 0
	s.channels = 0
	return nil
}

func (s *NullSink) FrameSize() int {
	return s.frameSize
}

func (s *NullSink) Format() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate, s.channels
}

// FramesWritten reports how many frames the sink has accepted. Test helper.
func (s *NullSink) FramesWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
