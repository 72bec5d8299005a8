package audio

import "fmt"

// DecodeError reports corrupt or unsupported compressed audio.
// The item carrying the audio is skipped; the queue continues.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio decode: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio decode: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DeviceError reports an audio output device failure. It is fatal to the
// current playback attempt but never to the process.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("audio device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}
