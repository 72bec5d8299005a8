package audio

import "math"

const bytesPerSample = 2 // 16-bit PCM

// FrameBytes returns the exact byte length of one sink frame.
func FrameBytes(frameSize, channels int) int {
	return frameSize * channels * bytesPerSample
}

// SamplesToBytes converts interleaved int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// BytesToSamples converts little-endian 16-bit PCM bytes to int16 samples.
// A trailing odd byte is dropped.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// PadFrame zero-pads a short final frame to the sink's exact frame length.
// Trailing audio must not be truncated, so partial frames are padded, never
// dropped.
func PadFrame(frame []byte, frameBytes int) []byte {
	if len(frame) >= frameBytes {
		return frame[:frameBytes]
	}
	padded := make([]byte, frameBytes)
	copy(padded, frame)
	return padded
}

// ScaleSamples applies a linear gain in place. Gain 1.0 is a no-op; gain 0.0
// silences the frame.
func ScaleSamples(samples []int16, gain float64) {
	if gain == 1.0 {
		return
	}
	for i, s := range samples {
		v := float64(s) * gain
		if v > math.MaxInt16 {
			v = math.MaxInt16
		} else if v < math.MinInt16 {
			v = math.MinInt16
		}
		samples[i] = int16(v)
	}
}

// CalculateRMS calculates the root mean square of audio samples.
// Used for detecting audio levels and silence.
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}
