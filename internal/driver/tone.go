// Package driver hosts the built-in capture drivers. The only driver is
// the tone generator: it feeds each configured source a continuous sine
// signal, which is enough to exercise every routing path end to end.
package driver

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/audioroute/audioroute/internal/config"
	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/pkg/audio"
)

const frameDuration = 20 * time.Millisecond

// Tone drives one source with a generated sine wave. The generator runs on
// its own goroutine and hands finished chunks to the core loop; it never
// touches the source outside that loop.
type Tone struct {
	logger *zap.Logger
	core   *core.Core
	source *core.Source

	spec      audio.SampleSpec
	frequency float64
	amplitude float64

	phase   float64
	samples []float32

	wake chan struct{}
}

// NewTone registers a source for the profile and returns its driver. The
// core loop must already be running.
func NewTone(c *core.Core, logger *zap.Logger, profile config.SourceProfile) (*Tone, error) {
	format, err := audio.ParseSampleFormat(profile.Format)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", profile.Name, err)
	}
	spec := audio.SampleSpec{Format: format, Rate: profile.Rate, Channels: profile.Channels}

	t := &Tone{
		logger:    logger,
		core:      c,
		spec:      spec,
		frequency: profile.Tone.FrequencyHz,
		amplitude: profile.Tone.Amplitude,
		wake:      make(chan struct{}, 1),
	}

	var createErr error
	c.Call(func() {
		t.source, createErr = core.NewSource(c, "tone", profile.Name, spec, nil)
		if createErr == nil {
			t.source.SetNotify(func() {
				select {
				case t.wake <- struct{}{}:
				default:
				}
			})
		}
	})
	if createErr != nil {
		return nil, fmt.Errorf("source %s: %w", profile.Name, createErr)
	}

	logger.Info("tone source ready",
		zap.String("name", profile.Name),
		zap.String("spec", spec.String()),
		zap.Float64("frequency_hz", t.frequency),
	)
	return t, nil
}

// Source returns the driven source.
func (t *Tone) Source() *core.Source { return t.source }

// Run generates audio until ctx is cancelled, then disconnects the source.
func (t *Tone) Run(ctx context.Context) {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.core.Call(func() {
				if t.source.State() != core.SourceDisconnected {
					t.source.Disconnect()
				}
			})
			return
		case <-t.wake:
			// An output was uncorked or moved in; emit a frame right
			// away instead of waiting out the tick.
			t.emit()
		case <-ticker.C:
			t.emit()
		}
	}
}

func (t *Tone) emit() {
	chunk := t.generate()
	t.core.Dispatch(func() {
		if t.source.State() == core.SourceRunning && t.source.OutputCount() > 0 {
			t.source.Post(chunk)
		}
		chunk.Release()
	})
}

// generate renders one frame worth of interleaved samples into a fresh
// chunk. Phase carries over between frames so the signal stays continuous.
func (t *Tone) generate() audio.Chunk {
	frames := t.spec.Rate * int(frameDuration/time.Millisecond) / 1000
	needed := frames * t.spec.Channels
	if cap(t.samples) < needed {
		t.samples = make([]float32, needed)
	} else {
		t.samples = t.samples[:needed]
	}

	step := 2 * math.Pi * t.frequency / float64(t.spec.Rate)
	for i := 0; i < frames; i++ {
		sample := float32(t.amplitude * math.Sin(t.phase))
		t.phase += step
		if t.phase > 2*math.Pi {
			t.phase -= 2 * math.Pi
		}
		for ch := 0; ch < t.spec.Channels; ch++ {
			t.samples[i*t.spec.Channels+ch] = sample
		}
	}

	block := audio.NewBlock(needed * t.spec.Format.Bytes())
	audio.EncodeSamplesInto(block.Bytes(), t.spec.Format, t.samples)
	return audio.Chunk{Block: block, Length: len(block.Bytes())}
}
