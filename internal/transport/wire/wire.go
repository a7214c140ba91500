// Package wire defines the binary framing of websocket tap traffic. Raw
// mode ships bare opus packets; framed mode prefixes each packet with a
// fixed-width header carrying kind, sequence and timestamp, which lets a
// client detect drops and reorder-free gaps.
package wire

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	// FormatRaw ships bare payload bytes.
	FormatRaw = 1
	// FormatFramed prefixes each payload with a 16-byte header.
	FormatFramed = 2

	headerSize = 16

	kindAudio = 0
	kindCtrl  = 1
)

// Kind describes the decoded payload category.
type Kind int

const (
	// KindAudio indicates opus audio bytes.
	KindAudio Kind = iota
	// KindControl indicates JSON control bytes.
	KindControl
)

// ParseFormat maps a query-string value onto a format, defaulting to raw.
func ParseFormat(s string) int {
	if s == "framed" {
		return FormatFramed
	}
	return FormatRaw
}

// NormalizeFormat returns a supported format.
func NormalizeFormat(format int) int {
	if format == FormatFramed {
		return FormatFramed
	}
	return FormatRaw
}

// Pack creates one outgoing frame. Raw format returns the payload
// unchanged; framed format prepends the header.
func Pack(format int, seq uint32, payload []byte) []byte {
	if NormalizeFormat(format) == FormatRaw {
		return payload
	}

	head := make([]byte, headerSize)
	binary.BigEndian.PutUint16(head[0:2], FormatFramed)
	binary.BigEndian.PutUint16(head[2:4], kindAudio)
	binary.BigEndian.PutUint32(head[4:8], seq)
	binary.BigEndian.PutUint32(head[8:12], uint32(time.Now().UnixMilli()))
	binary.BigEndian.PutUint32(head[12:16], uint32(len(payload)))
	return append(head, payload...)
}

// Decode parses one incoming frame according to format.
func Decode(format int, frame []byte) ([]byte, Kind, error) {
	if NormalizeFormat(format) == FormatRaw {
		return frame, KindAudio, nil
	}

	if len(frame) < headerSize {
		return nil, KindAudio, errors.New("framed message too short")
	}
	kind := binary.BigEndian.Uint16(frame[2:4])
	payloadSize := binary.BigEndian.Uint32(frame[12:16])
	if int(payloadSize) > len(frame)-headerSize {
		return nil, KindAudio, errors.New("framed message has invalid payload size")
	}
	payload := frame[headerSize : headerSize+int(payloadSize)]
	switch kind {
	case kindAudio:
		return payload, KindAudio, nil
	case kindCtrl:
		return payload, KindControl, nil
	default:
		return nil, KindAudio, errors.New("framed message has unsupported kind")
	}
}

// Seq extracts the sequence number of a framed message.
func Seq(frame []byte) (uint32, error) {
	if len(frame) < headerSize {
		return 0, errors.New("framed message too short")
	}
	return binary.BigEndian.Uint32(frame[4:8]), nil
}
