// Package resample converts audio chunks between sample specifications:
// channel remix by speaker position, sample rate conversion through soxr
// engines, and PCM re-encoding. One Resampler serves one stream and keeps
// conversion state across calls.
package resample

import (
	"errors"
	"fmt"

	soxr "github.com/godeps/go-audio-soxr"

	"github.com/audioroute/audioroute/pkg/audio"
)

// ErrUnsupported is wrapped by New when no pipeline can be built for a
// format pair.
var ErrUnsupported = errors.New("unsupported resampling operation")

// Resampler converts chunks from one spec/map pair to another. It is owned
// by exactly one stream and is not safe for concurrent use.
type Resampler struct {
	fromSpec audio.SampleSpec
	toSpec   audio.SampleSpec
	fromMap  audio.ChannelMap
	toMap    audio.ChannelMap
	method   Method

	// weights[out][in] is the remix contribution of input channel in to
	// output channel out.
	weights [][]float32

	// engines run rate conversion per output channel; nil when the rates
	// already match.
	engines []*soxr.SimpleResamplerFloat32

	inBuf     []float32
	inPlanes  [][]float32
	mixPlanes [][]float32
	outPlanes [][]float32
	outBuf    []float32
}

// New builds a conversion pipeline from one format to another. It fails
// with an error wrapping ErrUnsupported when the engine cannot be
// constructed for the rate pair or the method is not a concrete quality.
func New(fromSpec audio.SampleSpec, fromMap audio.ChannelMap, toSpec audio.SampleSpec, toMap audio.ChannelMap, method Method) (*Resampler, error) {
	if !fromSpec.Valid() || !toSpec.Valid() {
		return nil, fmt.Errorf("%w: invalid sample spec", ErrUnsupported)
	}
	if fromMap.Channels() != fromSpec.Channels || toMap.Channels() != toSpec.Channels {
		return nil, fmt.Errorf("%w: channel map does not match spec", ErrUnsupported)
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: no resample method selected", ErrUnsupported)
	}

	r := &Resampler{
		fromSpec: fromSpec,
		toSpec:   toSpec,
		fromMap:  fromMap.Clone(),
		toMap:    toMap.Clone(),
		method:   method,
		weights:  remixWeights(fromMap, toMap),
	}

	if fromSpec.Rate != toSpec.Rate {
		r.engines = make([]*soxr.SimpleResamplerFloat32, toSpec.Channels)
		for ch := range r.engines {
			engine, err := acquireEngine(fromSpec.Rate, toSpec.Rate, method.preset())
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("%w: %d -> %d Hz: %v", ErrUnsupported, fromSpec.Rate, toSpec.Rate, err)
			}
			r.engines[ch] = engine
		}
	}

	return r, nil
}

// Method reports the operating conversion quality.
func (r *Resampler) Method() Method {
	return r.method
}

// FromSpec returns the input sample spec.
func (r *Resampler) FromSpec() audio.SampleSpec { return r.fromSpec }

// ToSpec returns the output sample spec.
func (r *Resampler) ToSpec() audio.SampleSpec { return r.toSpec }

// Run converts one input chunk. The returned chunk may be empty while the
// engines buffer; a non-empty chunk carries one fresh reference that the
// caller must release.
func (r *Resampler) Run(in audio.Chunk) (audio.Chunk, error) {
	if in.Empty() {
		return audio.Chunk{}, nil
	}

	if r.inBuf == nil {
		r.inBuf = audio.AcquireFloat32(len(in.Bytes()) / r.fromSpec.Format.Bytes())
	}
	r.inBuf = audio.DecodeSamplesInto(r.inBuf, r.fromSpec.Format, in.Bytes())
	r.inPlanes = audio.DeinterleaveInto(r.inPlanes, r.inBuf, r.fromSpec.Channels)
	r.mixPlanes = r.remix(r.mixPlanes, r.inPlanes)

	planes := r.mixPlanes
	if r.engines != nil {
		if cap(r.outPlanes) < len(r.engines) {
			r.outPlanes = make([][]float32, len(r.engines))
		} else {
			r.outPlanes = r.outPlanes[:len(r.engines)]
		}
		minFrames := -1
		for ch, engine := range r.engines {
			out, err := engine.Process(r.mixPlanes[ch])
			if err != nil {
				return audio.Chunk{}, fmt.Errorf("resample %s: %w", r.toSpec, err)
			}
			r.outPlanes[ch] = out
			if minFrames < 0 || len(out) < minFrames {
				minFrames = len(out)
			}
		}
		if minFrames <= 0 {
			return audio.Chunk{}, nil
		}
		for ch := range r.outPlanes {
			r.outPlanes[ch] = r.outPlanes[ch][:minFrames]
		}
		planes = r.outPlanes
	}

	r.outBuf = audio.InterleaveInto(r.outBuf, planes)
	if len(r.outBuf) == 0 {
		return audio.Chunk{}, nil
	}

	block := audio.NewBlock(len(r.outBuf) * r.toSpec.Format.Bytes())
	audio.EncodeSamplesInto(block.Bytes(), r.toSpec.Format, r.outBuf)
	return audio.Chunk{Block: block, Length: len(block.Bytes())}, nil
}

// Close returns the rate-conversion engines to their pool. The resampler
// must not be used afterwards.
func (r *Resampler) Close() {
	for ch, engine := range r.engines {
		if engine != nil {
			releaseEngine(r.fromSpec.Rate, r.toSpec.Rate, r.method.preset(), engine)
		}
		r.engines[ch] = nil
	}
	r.engines = nil
	audio.ReleaseFloat32(r.inBuf)
	audio.ReleaseFloat32(r.outBuf)
	r.inBuf, r.outBuf = nil, nil
}

func (r *Resampler) remix(dst [][]float32, in [][]float32) [][]float32 {
	outCh := r.toMap.Channels()
	frames := 0
	if len(in) > 0 {
		frames = len(in[0])
	}
	if cap(dst) < outCh {
		dst = make([][]float32, outCh)
	} else {
		dst = dst[:outCh]
	}
	for oc := 0; oc < outCh; oc++ {
		if cap(dst[oc]) < frames {
			dst[oc] = make([]float32, frames)
		} else {
			dst[oc] = dst[oc][:frames]
		}
		plane := dst[oc]
		weights := r.weights[oc]
		for i := 0; i < frames; i++ {
			var acc float32
			for ic, w := range weights {
				if w != 0 {
					acc += w * in[ic][i]
				}
			}
			plane[i] = acc
		}
	}
	return dst
}

// remixWeights builds the remix matrix: channels with a matching speaker
// position pass through; an output position absent from the input gets the
// average of all input channels.
func remixWeights(from, to audio.ChannelMap) [][]float32 {
	weights := make([][]float32, to.Channels())
	for oc, pos := range to.Positions {
		row := make([]float32, from.Channels())
		matches := 0
		for ic, inPos := range from.Positions {
			if inPos == pos {
				row[ic] = 1
				matches++
			}
		}
		switch {
		case matches > 1:
			for ic := range row {
				row[ic] /= float32(matches)
			}
		case matches == 0:
			for ic := range row {
				row[ic] = 1 / float32(from.Channels())
			}
		}
		weights[oc] = row
	}
	return weights
}
