package audio

import (
	"sync"

	"github.com/audioroute/audioroute/pkg/audio/opusx"
)

type opusKey struct {
	sampleRate int
	channels   int
}

var opusEncoderPools sync.Map

func opusPoolFor(key opusKey) *sync.Pool {
	if pool, ok := opusEncoderPools.Load(key); ok {
		return pool.(*sync.Pool)
	}
	pool := &sync.Pool{}
	actual, _ := opusEncoderPools.LoadOrStore(key, pool)
	return actual.(*sync.Pool)
}

func acquireRawOpusEncoder(sampleRate, channels int) (*opusx.Encoder, error) {
	pool := opusPoolFor(opusKey{sampleRate: sampleRate, channels: channels})
	if v := pool.Get(); v != nil {
		if enc, ok := v.(*opusx.Encoder); ok && enc != nil {
			return enc, nil
		}
	}
	return opusx.NewEncoder(sampleRate, channels, opusx.AppAudio)
}

func releaseRawOpusEncoder(sampleRate, channels int, enc *opusx.Encoder) {
	if enc == nil {
		return
	}
	// Reset failures are ignored; a stale encoder is recreated on acquire.
	_ = enc.Reset()
	opusPoolFor(opusKey{sampleRate: sampleRate, channels: channels}).Put(enc)
}
