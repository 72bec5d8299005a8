package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV wraps interleaved 16-bit PCM in a minimal RIFF/WAVE container so
// it can be handed to a transcription service with a self-describing format.
func EncodeWAV(pcm *PCMData) []byte {
	dataLen := len(pcm.Samples) * bytesPerSample
	byteRate := pcm.SampleRate * pcm.Channels * bytesPerSample
	blockAlign := pcm.Channels * bytesPerSample

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataLen))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(pcm.Channels))
	binary.Write(buf, binary.LittleEndian, uint32(pcm.SampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(SamplesToBytes(pcm.Samples))

	return buf.Bytes()
}
