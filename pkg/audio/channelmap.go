package audio

import (
	"fmt"
	"strings"
)

// ChannelPosition names the speaker a channel is routed to.
type ChannelPosition int

const (
	PositionInvalid ChannelPosition = iota
	PositionMono
	PositionFrontLeft
	PositionFrontRight
	PositionFrontCenter
	PositionRearLeft
	PositionRearRight
	PositionRearCenter
	PositionLFE
	PositionSideLeft
	PositionSideRight
)

var positionNames = map[ChannelPosition]string{
	PositionMono:        "mono",
	PositionFrontLeft:   "front-left",
	PositionFrontRight:  "front-right",
	PositionFrontCenter: "front-center",
	PositionRearLeft:    "rear-left",
	PositionRearRight:   "rear-right",
	PositionRearCenter:  "rear-center",
	PositionLFE:         "lfe",
	PositionSideLeft:    "side-left",
	PositionSideRight:   "side-right",
}

func (p ChannelPosition) String() string {
	if name, ok := positionNames[p]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether the position is a known speaker position.
func (p ChannelPosition) Valid() bool {
	_, ok := positionNames[p]
	return ok
}

// ChannelMap assigns a speaker position to every channel of a spec.
type ChannelMap struct {
	Positions []ChannelPosition `json:"positions"`
}

var defaultLayouts = map[int][]ChannelPosition{
	1: {PositionMono},
	2: {PositionFrontLeft, PositionFrontRight},
	3: {PositionFrontLeft, PositionFrontRight, PositionFrontCenter},
	4: {PositionFrontLeft, PositionFrontRight, PositionRearLeft, PositionRearRight},
	5: {PositionFrontLeft, PositionFrontRight, PositionFrontCenter, PositionRearLeft, PositionRearRight},
	6: {PositionFrontLeft, PositionFrontRight, PositionFrontCenter, PositionLFE, PositionRearLeft, PositionRearRight},
	7: {PositionFrontLeft, PositionFrontRight, PositionFrontCenter, PositionLFE, PositionRearLeft, PositionRearRight, PositionRearCenter},
	8: {PositionFrontLeft, PositionFrontRight, PositionFrontCenter, PositionLFE, PositionRearLeft, PositionRearRight, PositionSideLeft, PositionSideRight},
}

// DefaultChannelMap returns the conventional layout for a channel count.
// Streams with more than eight channels must supply an explicit map.
func DefaultChannelMap(channels int) (ChannelMap, error) {
	layout, ok := defaultLayouts[channels]
	if !ok {
		return ChannelMap{}, fmt.Errorf("no default channel map for %d channels", channels)
	}
	positions := make([]ChannelPosition, len(layout))
	copy(positions, layout)
	return ChannelMap{Positions: positions}, nil
}

// Channels returns the number of mapped channels.
func (m ChannelMap) Channels() int {
	return len(m.Positions)
}

// Valid reports whether the map is structurally usable.
func (m ChannelMap) Valid() bool {
	if len(m.Positions) < 1 || len(m.Positions) > MaxChannels {
		return false
	}
	for _, p := range m.Positions {
		if !p.Valid() {
			return false
		}
	}
	return true
}

// Equal reports whether two maps assign identical positions.
func (m ChannelMap) Equal(o ChannelMap) bool {
	if len(m.Positions) != len(o.Positions) {
		return false
	}
	for i, p := range m.Positions {
		if o.Positions[i] != p {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the map.
func (m ChannelMap) Clone() ChannelMap {
	positions := make([]ChannelPosition, len(m.Positions))
	copy(positions, m.Positions)
	return ChannelMap{Positions: positions}
}

func (m ChannelMap) String() string {
	names := make([]string, len(m.Positions))
	for i, p := range m.Positions {
		names[i] = p.String()
	}
	return strings.Join(names, ",")
}
