package audio

import (
	"fmt"

	"github.com/audioroute/audioroute/pkg/audio/opusx"
)

// OpusEncoder packetizes PCM16 audio into opus frames of a fixed duration.
// It is used by the websocket tap to compress monitored streams before they
// leave the process.
type OpusEncoder struct {
	encoder       *opusx.Encoder
	sampleRate    int
	channels      int
	frameDuration int
	frameSize     int
	opusBuffer    []byte
}

// NewOpusEncoder creates an encoder for the given stream layout.
func NewOpusEncoder(sampleRate, channels, frameDurationMs int) (*OpusEncoder, error) {
	enc, err := acquireRawOpusEncoder(sampleRate, channels)
	if err != nil {
		return nil, fmt.Errorf("create opus encoder: %w", err)
	}

	return &OpusEncoder{
		encoder:       enc,
		sampleRate:    sampleRate,
		channels:      channels,
		frameDuration: frameDurationMs,
		frameSize:     sampleRate * frameDurationMs / 1000,
		opusBuffer:    make([]byte, 4000),
	}, nil
}

// SetBitrate adjusts the encoder's target bitrate in bits per second.
func (e *OpusEncoder) SetBitrate(bitrate int) error {
	return e.encoder.SetBitrate(bitrate)
}

// Encode compresses exactly one frame of little-endian PCM16 bytes. Short
// input is zero-padded, long input truncated. The returned slice is owned
// by the caller.
func (e *OpusEncoder) Encode(pcmData []byte, scratch []int16) ([]byte, error) {
	pcmSamples := BytesToInt16SliceInto(scratch, pcmData)

	expected := e.frameSize * e.channels
	if len(pcmSamples) < expected {
		if cap(pcmSamples) < expected {
			tmp := make([]int16, expected)
			copy(tmp, pcmSamples)
			pcmSamples = tmp
		} else {
			origLen := len(pcmSamples)
			pcmSamples = pcmSamples[:expected]
			for i := origLen; i < expected; i++ {
				pcmSamples[i] = 0
			}
		}
	} else if len(pcmSamples) > expected {
		pcmSamples = pcmSamples[:expected]
	}

	n, err := e.encoder.Encode(pcmSamples, e.opusBuffer)
	if err != nil {
		return nil, fmt.Errorf("opus encode: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	result := make([]byte, n)
	copy(result, e.opusBuffer[:n])
	return result, nil
}

// FrameDuration returns the frame duration in milliseconds.
func (e *OpusEncoder) FrameDuration() int {
	return e.frameDuration
}

// FrameBytes returns the PCM16 byte size of one frame.
func (e *OpusEncoder) FrameBytes() int {
	return e.frameSize * e.channels * 2
}

// Close returns the underlying codec state to its pool.
func (e *OpusEncoder) Close() error {
	if e.encoder != nil {
		releaseRawOpusEncoder(e.sampleRate, e.channels, e.encoder)
	}
	e.encoder = nil
	e.opusBuffer = nil
	return nil
}
