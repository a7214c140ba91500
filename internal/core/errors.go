package core

import "errors"

// Creation and move failures are reported as typed errors wrapping one of
// these sentinels; no partial object or half-moved state is ever left
// behind. Contract violations by the surrounding system (double
// disconnect, pushing without a handler, pushing an empty chunk) panic
// instead of returning an error.
var (
	ErrInvalidFormat         = errors.New("invalid sample specification")
	ErrInvalidChannelMap     = errors.New("invalid channel map")
	ErrInvalidEncoding       = errors.New("string is not valid utf-8")
	ErrTooManyOutputs        = errors.New("too many outputs per source")
	ErrUnsupportedConversion = errors.New("unsupported resampling operation")
)
