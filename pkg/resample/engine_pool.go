package resample

import (
	"sync"

	soxr "github.com/godeps/go-audio-soxr"
)

type engineKey struct {
	inRate  int
	outRate int
	quality soxr.QualityPreset
}

var enginePools sync.Map

func enginePoolFor(key engineKey) *sync.Pool {
	if pool, ok := enginePools.Load(key); ok {
		return pool.(*sync.Pool)
	}
	pool := &sync.Pool{}
	actual, _ := enginePools.LoadOrStore(key, pool)
	return actual.(*sync.Pool)
}

func acquireEngine(inRate, outRate int, quality soxr.QualityPreset) (*soxr.SimpleResamplerFloat32, error) {
	pool := enginePoolFor(engineKey{inRate: inRate, outRate: outRate, quality: quality})
	if v := pool.Get(); v != nil {
		if engine, ok := v.(*soxr.SimpleResamplerFloat32); ok && engine != nil {
			return engine, nil
		}
	}
	return soxr.NewEngineFloat32(float64(inRate), float64(outRate), quality)
}

func releaseEngine(inRate, outRate int, quality soxr.QualityPreset, engine *soxr.SimpleResamplerFloat32) {
	if engine == nil {
		return
	}
	engine.Reset()
	enginePoolFor(engineKey{inRate: inRate, outRate: outRate, quality: quality}).Put(engine)
}
