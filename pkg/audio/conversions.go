package audio

import (
	"encoding/binary"
	"math"
)

func float32ToInt16(sample float32) int16 {
	if sample > 1.0 {
		return 32767
	}
	if sample < -1.0 {
		return -32768
	}
	return int16(sample * 32767)
}

// Float32SliceToInt16SliceInto fills dst with float32 converted to int16 and returns the slice.
func Float32SliceToInt16SliceInto(dst []int16, samples []float32) []int16 {
	if cap(dst) < len(samples) {
		dst = make([]int16, len(samples))
	} else {
		dst = dst[:len(samples)]
	}
	for i, sample := range samples {
		dst[i] = float32ToInt16(sample)
	}
	return dst
}

// Int16SliceToFloat32Into fills dst with int16 converted to float32 and returns the slice.
func Int16SliceToFloat32Into(dst []float32, samples []int16) []float32 {
	if cap(dst) < len(samples) {
		dst = make([]float32, len(samples))
	} else {
		dst = dst[:len(samples)]
	}
	for i, sample := range samples {
		dst[i] = float32(sample) / float32(math.MaxInt16)
	}
	return dst
}

// Int16SliceToBytesInto converts int16 samples to little-endian bytes.
func Int16SliceToBytesInto(dst []byte, samples []int16) []byte {
	needed := len(samples) * 2
	if cap(dst) < needed {
		dst = make([]byte, needed)
	} else {
		dst = dst[:needed]
	}
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(sample))
	}
	return dst
}

// BytesToInt16SliceInto fills dst with little-endian int16 samples and returns it.
func BytesToInt16SliceInto(dst []int16, data []byte) []int16 {
	needed := len(data) / 2
	if cap(dst) < needed {
		dst = make([]int16, needed)
	} else {
		dst = dst[:needed]
	}
	for i := 0; i < needed; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return dst
}

// DecodeSamplesInto decodes raw PCM bytes in the given format into float32
// samples in [-1, 1], filling dst.
func DecodeSamplesInto(dst []float32, format SampleFormat, data []byte) []float32 {
	switch format {
	case SampleS16LE:
		n := len(data) / 2
		if cap(dst) < n {
			dst = make([]float32, n)
		} else {
			dst = dst[:n]
		}
		for i := 0; i < n; i++ {
			dst[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / float32(math.MaxInt16)
		}
		return dst
	case SampleF32LE:
		n := len(data) / 4
		if cap(dst) < n {
			dst = make([]float32, n)
		} else {
			dst = dst[:n]
		}
		for i := 0; i < n; i++ {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return dst
	default:
		return dst[:0]
	}
}

// EncodeSamplesInto encodes float32 samples into raw PCM bytes in the given
// format, filling dst.
func EncodeSamplesInto(dst []byte, format SampleFormat, samples []float32) []byte {
	switch format {
	case SampleS16LE:
		needed := len(samples) * 2
		if cap(dst) < needed {
			dst = make([]byte, needed)
		} else {
			dst = dst[:needed]
		}
		for i, sample := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(float32ToInt16(sample)))
		}
		return dst
	case SampleF32LE:
		needed := len(samples) * 4
		if cap(dst) < needed {
			dst = make([]byte, needed)
		} else {
			dst = dst[:needed]
		}
		for i, sample := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(sample))
		}
		return dst
	default:
		return dst[:0]
	}
}

// DeinterleaveInto splits interleaved samples into per-channel planes.
// Planes are reused from dst when capacity allows.
func DeinterleaveInto(dst [][]float32, src []float32, channels int) [][]float32 {
	if channels <= 0 {
		return dst[:0]
	}
	frames := len(src) / channels
	if cap(dst) < channels {
		dst = make([][]float32, channels)
	} else {
		dst = dst[:channels]
	}
	for ch := 0; ch < channels; ch++ {
		if cap(dst[ch]) < frames {
			dst[ch] = make([]float32, frames)
		} else {
			dst[ch] = dst[ch][:frames]
		}
		for i := 0; i < frames; i++ {
			dst[ch][i] = src[i*channels+ch]
		}
	}
	return dst
}

// InterleaveInto merges per-channel planes into interleaved samples. All
// planes must have equal length.
func InterleaveInto(dst []float32, planes [][]float32) []float32 {
	channels := len(planes)
	if channels == 0 {
		return dst[:0]
	}
	frames := len(planes[0])
	needed := frames * channels
	if cap(dst) < needed {
		dst = make([]float32, needed)
	} else {
		dst = dst[:needed]
	}
	for ch, plane := range planes {
		for i, sample := range plane {
			dst[i*channels+ch] = sample
		}
	}
	return dst
}
