package audio

import "math"

// Resample converts interleaved int16 PCM from srcRate to dstRate using
// per-channel linear interpolation. This is intentionally a cheap, stateless
// algorithm: synthesized speech does not need broadcast-quality resampling,
// and it has to run in real time with no DSP dependency.
//
// Output frame count is floor(inputFrames / (srcRate/dstRate)). Same-rate
// input is returned unchanged.
func Resample(samples []int16, channels, srcRate, dstRate int) []int16 {
	if srcRate == dstRate || len(samples) == 0 || channels <= 0 {
		return samples
	}

	ratio := float64(srcRate) / float64(dstRate)
	inFrames := len(samples) / channels
	outFrames := int(math.Floor(float64(inFrames) / ratio))
	if outFrames <= 0 {
		return []int16{}
	}

	out := make([]int16, outFrames*channels)
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		idx0 := int(srcPos)
		idx1 := idx0 + 1
		if idx1 >= inFrames {
			idx1 = inFrames - 1
		}
		frac := srcPos - float64(idx0)

		for ch := 0; ch < channels; ch++ {
			s0 := float64(samples[idx0*channels+ch])
			s1 := float64(samples[idx1*channels+ch])
			out[i*channels+ch] = int16(s0*(1.0-frac) + s1*frac)
		}
	}

	return out
}

// MixToChannels converts interleaved PCM between channel counts: mono to
// stereo duplicates, stereo to mono averages. Matching counts pass through.
func MixToChannels(samples []int16, srcChannels, dstChannels int) []int16 {
	if srcChannels == dstChannels || srcChannels <= 0 || dstChannels <= 0 {
		return samples
	}

	frames := len(samples) / srcChannels
	out := make([]int16, frames*dstChannels)

	for i := 0; i < frames; i++ {
		switch {
		case srcChannels == 1:
			for ch := 0; ch < dstChannels; ch++ {
				out[i*dstChannels+ch] = samples[i]
			}
		case dstChannels == 1:
			sum := 0
			for ch := 0; ch < srcChannels; ch++ {
				sum += int(samples[i*srcChannels+ch])
			}
			out[i] = int16(sum / srcChannels)
		default:
			// Arbitrary-to-arbitrary: copy what fits, pad with the last channel.
			for ch := 0; ch < dstChannels; ch++ {
				src := ch
				if src >= srcChannels {
					src = srcChannels - 1
				}
				out[i*dstChannels+ch] = samples[i*srcChannels+src]
			}
		}
	}

	return out
}
