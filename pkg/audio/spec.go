// Package audio holds the sample format model shared by the routing core:
// sample specifications, channel maps, reference-counted chunk memory and
// the PCM conversion helpers used on the data path.
package audio

import (
	"fmt"
	"strings"
)

// SampleFormat identifies the PCM encoding of a stream.
type SampleFormat int

const (
	SampleInvalid SampleFormat = iota
	SampleS16LE
	SampleF32LE
)

// Bytes returns the width of one sample in bytes, or 0 for invalid formats.
func (f SampleFormat) Bytes() int {
	switch f {
	case SampleS16LE:
		return 2
	case SampleF32LE:
		return 4
	default:
		return 0
	}
}

func (f SampleFormat) String() string {
	switch f {
	case SampleS16LE:
		return "s16le"
	case SampleF32LE:
		return "f32le"
	default:
		return "invalid"
	}
}

// ParseSampleFormat maps a config string onto a SampleFormat.
func ParseSampleFormat(s string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s16le", "s16", "":
		return SampleS16LE, nil
	case "f32le", "f32", "float32":
		return SampleF32LE, nil
	default:
		return SampleInvalid, fmt.Errorf("unknown sample format %q", s)
	}
}

const (
	// MaxRate bounds the accepted sample rate in Hz.
	MaxRate = 192000
	// MaxChannels bounds the accepted channel count.
	MaxChannels = 32
)

// SampleSpec describes the PCM layout of a stream. A SourceOutput's spec is
// fixed at creation.
type SampleSpec struct {
	Format   SampleFormat `json:"format"`
	Rate     int          `json:"rate"`
	Channels int          `json:"channels"`
}

// Valid reports whether the spec is structurally usable.
func (s SampleSpec) Valid() bool {
	return s.Format.Bytes() > 0 &&
		s.Rate > 0 && s.Rate <= MaxRate &&
		s.Channels >= 1 && s.Channels <= MaxChannels
}

// FrameSize returns the byte size of one frame (one sample per channel).
func (s SampleSpec) FrameSize() int {
	return s.Format.Bytes() * s.Channels
}

// BytesPerSecond returns the raw byte rate of the spec.
func (s SampleSpec) BytesPerSecond() int {
	return s.FrameSize() * s.Rate
}

// FrameCount returns how many whole frames fit in byteLen bytes.
func (s SampleSpec) FrameCount(byteLen int) int {
	fs := s.FrameSize()
	if fs <= 0 {
		return 0
	}
	return byteLen / fs
}

// Equal reports whether two specs describe the same layout.
func (s SampleSpec) Equal(o SampleSpec) bool {
	return s.Format == o.Format && s.Rate == o.Rate && s.Channels == o.Channels
}

func (s SampleSpec) String() string {
	return fmt.Sprintf("%s %dch %dHz", s.Format, s.Channels, s.Rate)
}
