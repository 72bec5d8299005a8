package audio

import "testing"

func TestRingBuffer_WriteRead(t *testing.T) {
	rb := NewRingBuffer(10)

	written := rb.Write([]byte{1, 2, 3, 4, 5})
	if written != 5 {
		t.Errorf("Expected to write 5 bytes, got %d", written)
	}
	if rb.Available() != 5 {
		t.Errorf("Expected available 5, got %d", rb.Available())
	}

	readBuf := make([]byte, 3)
	read := rb.Read(readBuf)
	if read != 3 {
		t.Errorf("Expected to read 3 bytes, got %d", read)
	}
	if readBuf[0] != 1 || readBuf[1] != 2 || readBuf[2] != 3 {
		t.Errorf("Read incorrect data: %v", readBuf)
	}
	if rb.Available() != 2 {
		t.Errorf("Expected available 2 after read, got %d", rb.Available())
	}
}

func TestRingBuffer_WriteOverflow(t *testing.T) {
	rb := NewRingBuffer(4)

	written := rb.Write([]byte{1, 2, 3, 4, 5, 6})
	if written != 4 {
		t.Errorf("Expected to write 4 bytes into a full buffer, got %d", written)
	}
	if rb.Write([]byte{7}) != 0 {
		t.Error("Expected write to a full buffer to return 0")
	}
}

func TestRingBuffer_ReadEmpty(t *testing.T) {
	rb := NewRingBuffer(10)

	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty initially")
	}

	readBuf := make([]byte, 5)
	if read := rb.Read(readBuf); read != 0 {
		t.Errorf("Expected to read 0 bytes from empty buffer, got %d", read)
	}
}

func TestRingBuffer_WrapAround(t *testing.T) {
	rb := NewRingBuffer(5)

	rb.Write([]byte{1, 2, 3, 4})
	readBuf := make([]byte, 2)
	rb.Read(readBuf)
	rb.Write([]byte{5, 6, 7})

	if rb.Available() != 5 {
		t.Errorf("Expected available 5, got %d", rb.Available())
	}

	out := make([]byte, 5)
	read := rb.Read(out)
	if read != 5 {
		t.Fatalf("Expected to read 5 bytes, got %d", read)
	}
	expected := []byte{3, 4, 5, 6, 7}
	for i := range expected {
		if out[i] != expected[i] {
			t.Errorf("Expected %d at position %d, got %d", expected[i], i, out[i])
		}
	}
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(10)
	rb.Write([]byte{1, 2, 3})
	rb.Clear()
	if !rb.IsEmpty() {
		t.Error("Expected buffer to be empty after Clear")
	}
}
