// Package audio holds PCM16 helpers shared by the transcoder and the
// speech collaborators: sample conversion, channel mixing, resampling and
// WAV framing.
package audio

import "time"

// Resample converts audio from one sample rate to another using linear interpolation.
// The output length is round(len * toRate / fromRate), so duration is kept
// to within one sample of the input.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil
	}

	newLen := int((int64(len(samples))*int64(toRate) + int64(fromRate)/2) / int64(fromRate))
	if newLen == 0 {
		return []int16{}
	}

	ratio := float64(fromRate) / float64(toRate)
	result := make([]int16, newLen)
	last := len(samples) - 1

	for i := 0; i < newLen; i++ {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		if srcIdx >= last {
			result[i] = samples[last]
			continue
		}
		frac := srcPos - float64(srcIdx)
		s1 := float64(samples[srcIdx])
		s2 := float64(samples[srcIdx+1])
		result[i] = int16(s1 + frac*(s2-s1))
	}

	return result
}

// BytesToSamples converts raw PCM16 little-endian bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes converts int16 samples to raw PCM16 little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// Downmix averages interleaved multi-channel samples into mono.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	mono := make([]int16, len(samples)/channels)
	for i := range mono {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		mono[i] = int16(sum / int32(channels))
	}
	return mono
}

// Upmix duplicates mono samples across channels.
func Upmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)*channels)
	for i, s := range samples {
		for c := 0; c < channels; c++ {
			out[i*channels+c] = s
		}
	}
	return out
}

// Duration returns the playback length of n interleaved samples.
func Duration(n, sampleRate, channels int) time.Duration {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	frames := int64(n / channels)
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
