package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// MicSource reads fixed-size mono int16 frames from the default input
// device.
type MicSource struct {
	mu         sync.Mutex
	sampleRate int
	frameSize  int
	stream     *portaudio.Stream
	buf        []int16
	started    bool
}

// NewMicSource opens the default input device. Machines without a microphone
// fail here synchronously so the caller can run without capture.
func NewMicSource(sampleRate, frameSize int) (*MicSource, error) {
	if err := initPortAudio(); err != nil {
		return nil, &DeviceError{Op: "init", Err: err}
	}

	buf := make([]int16, frameSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), frameSize, buf)
	if err != nil {
		return nil, &DeviceError{Op: "open", Err: err}
	}

	return &MicSource{
		sampleRate: sampleRate,
		frameSize:  frameSize,
		stream:     stream,
		buf:        buf,
	}, nil
}

// Start begins capturing.
func (m *MicSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return &DeviceError{Op: "start", Err: fmt.Errorf("mic source closed")}
	}
	if m.started {
		return nil
	}
	if err := m.stream.Start(); err != nil {
		return &DeviceError{Op: "start", Err: err}
	}
	m.started = true
	return nil
}

// ReadFrame blocks until one frame of samples is captured and returns a copy.
func (m *MicSource) ReadFrame() ([]int16, error) {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()
	if stream == nil {
		return nil, &DeviceError{Op: "read", Err: fmt.Errorf("mic source closed")}
	}

	if err := stream.Read(); err != nil {
		return nil, &DeviceError{Op: "read", Err: err}
	}
	frame := make([]int16, len(m.buf))
	copy(frame, m.buf)
	return frame, nil
}

// Close stops and releases the device.
func (m *MicSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	if m.started {
		_ = m.stream.Stop()
		m.started = false
	}
	err := m.stream.Close()
	m.stream = nil
	if err != nil {
		return &DeviceError{Op: "close", Err: err}
	}
	return nil
}
