package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var (
	paInitOnce sync.Once
	paInitErr  error
)

func initPortAudio() error {
	paInitOnce.Do(func() {
		paInitErr = portaudio.Initialize()
	})
	return paInitErr
}

// PortAudioSink streams fixed-size PCM frames to the default output device.
type PortAudioSink struct {
	mu         sync.Mutex
	frameSize  int
	sampleRate int
	channels   int
	started    bool
	stream     *portaudio.Stream
	buf        []int16
}

// NewPortAudioSink initializes the portaudio backend. Failure to initialize
// the host API is reported synchronously so the caller can fall back.
func NewPortAudioSink(frameSize int) (*PortAudioSink, error) {
	if err := initPortAudio(); err != nil {
		return nil, &DeviceError{Op: "init", Err: err}
	}
	return &PortAudioSink{frameSize: frameSize}, nil
}

func (s *PortAudioSink) Open(sampleRate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream != nil {
		if s.sampleRate == sampleRate && s.channels == channels {
			return nil
		}
		// Format change: cleanly close the prior stream first.
		if err := s.closeLocked(); err != nil {
			return err
		}
	}

	s.buf = make([]int16, s.frameSize*channels)
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), s.frameSize, s.buf)
	if err != nil {
		s.buf = nil
		return &DeviceError{Op: "open", Err: err}
	}

	s.stream = stream
	s.sampleRate = sampleRate
	s.channels = channels
	return nil
}

func (s *PortAudioSink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return &DeviceError{Op: "start", Err: fmt.Errorf("sink not open")}
	}
	if s.started {
		return nil
	}
	if err := s.stream.Start(); err != nil {
		return &DeviceError{Op: "start", Err: err}
	}
	s.started = true
	return nil
}

func (s *PortAudioSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil || !s.started {
		return nil
	}
	s.started = false
	if err := s.stream.Stop(); err != nil {
		return &DeviceError{Op: "stop", Err: err}
	}
	return nil
}

func (s *PortAudioSink) WriteFrame(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stream == nil {
		return &DeviceError{Op: "write", Err: fmt.Errorf("sink not open")}
	}
	want := FrameBytes(s.frameSize, s.channels)
	if len(frame) != want {
		return &DeviceError{Op: "write", Err: fmt.Errorf("frame must be %d bytes, got %d", want, len(frame))}
	}

	for i := range s.buf {
		s.buf[i] = int16(frame[i*2]) | int16(frame[i*2+1])<<8
	}
	if err := s.stream.Write(); err != nil {
		return &DeviceError{Op: "write", Err: err}
	}
	return nil
}

func (s *PortAudioSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *PortAudioSink) closeLocked() error {
	if s.stream == nil {
		return nil
	}
	if s.started {
		_ = s.stream.Stop()
		s.started = false
	}
	err := s.stream.Close()
	s.stream = nil
	s.sampleRate = 0
	s.channels = 0
	s.buf = nil
	if err != nil {
		return &DeviceError{Op: "close", Err: err}
	}
	return nil
}

func (s *PortAudioSink) FrameSize() int {
	return s.frameSize
}

func (s *PortAudioSink) Format() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sampleRate, s.channels
}
