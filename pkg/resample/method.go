package resample

import (
	"fmt"
	"strings"

	soxr "github.com/godeps/go-audio-soxr"
)

// Method selects the conversion quality of a resampler. The zero value
// means "unspecified": callers substitute the core-wide default before
// building a pipeline.
type Method int

const (
	MethodInvalid Method = iota
	MethodQuick
	MethodLow
	MethodMedium
	MethodHigh
	MethodVeryHigh
)

var methodNames = map[Method]string{
	MethodQuick:    "quick",
	MethodLow:      "low",
	MethodMedium:   "medium",
	MethodHigh:     "high",
	MethodVeryHigh: "very-high",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether the method names a concrete quality.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// ParseMethod maps a config string onto a Method. The empty string parses
// to MethodInvalid so configs can leave the choice to the core default.
func ParseMethod(s string) (Method, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MethodInvalid, nil
	}
	for m, name := range methodNames {
		if name == s {
			return m, nil
		}
	}
	return MethodInvalid, fmt.Errorf("unknown resample method %q", s)
}

func (m Method) preset() soxr.QualityPreset {
	switch m {
	case MethodQuick:
		return soxr.QualityQuick
	case MethodLow:
		return soxr.QualityLow
	case MethodMedium:
		return soxr.QualityMedium
	case MethodVeryHigh:
		return soxr.QualityVeryHigh
	default:
		return soxr.QualityHigh
	}
}
