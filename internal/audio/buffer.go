package audio

import (
	"sync"
)

// RingBuffer is a thread-safe byte ring used between the microphone callback
// and the capture loop. Writes that do not fit are truncated rather than
// blocking the device callback.
type RingBuffer struct {
	buffer []byte
	size   int
	read   int
	write  int
	count  int
	mu     sync.Mutex
}

// NewRingBuffer creates a ring buffer holding up to size bytes.
func NewRingBuffer(size int) *RingBuffer {
	return &RingBuffer{
		buffer: make([]byte, size),
		size:   size,
	}
}

// Write copies data into the buffer, returning the number of bytes written
// (less than len(data) when the buffer fills).
func (rb *RingBuffer) Write(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	space := rb.size - rb.count
	if space == 0 {
		return 0
	}
	if len(data) > space {
		data = data[:space]
	}

	n := copy(rb.buffer[rb.write:], data)
	if n < len(data) {
		n += copy(rb.buffer, data[n:])
	}
	rb.write = (rb.write + n) % rb.size
	rb.count += n
	return n
}

// Read copies up to len(data) bytes out of the buffer, returning the number
// of bytes read.
func (rb *RingBuffer) Read(data []byte) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.count == 0 {
		return 0
	}
	want := len(data)
	if want > rb.count {
		want = rb.count
	}

	n := copy(data, rb.buffer[rb.read:rb.readChunkEnd(want)])
	if n < want {
		n += copy(data[n:], rb.buffer[:want-n])
	}
	rb.read = (rb.read + n) % rb.size
	rb.count -= n
	return n
}

// readChunkEnd bounds a contiguous read at the physical end of the buffer.
func (rb *RingBuffer) readChunkEnd(want int) int {
	end := rb.read + want
	if end > rb.size {
		end = rb.size
	}
	return end
}

// Available returns the number of bytes buffered for reading.
func (rb *RingBuffer) Available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

// Clear discards all buffered bytes.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.read = 0
	rb.write = 0
	rb.count = 0
}

// IsEmpty returns true if nothing is buffered.
func (rb *RingBuffer) IsEmpty() bool {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count == 0
}
