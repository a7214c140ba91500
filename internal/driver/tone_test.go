package driver

import (
	"context"
	"testing"

	"github.com/audioroute/audioroute/internal/config"
	"github.com/audioroute/audioroute/internal/core"
	"github.com/audioroute/audioroute/pkg/audio"
	"go.uber.org/zap"
)

func testProfile() config.SourceProfile {
	return config.SourceProfile{
		Name:     "test-tone",
		Format:   "s16le",
		Rate:     48000,
		Channels: 2,
		Tone:     config.ToneConfig{FrequencyHz: 440, Amplitude: 0.5},
	}
}

func TestNewToneRegistersSource(t *testing.T) {
	c := core.New(core.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	tone, err := NewTone(c, zap.NewNop(), testProfile())
	if err != nil {
		t.Fatalf("NewTone: %v", err)
	}

	src := tone.Source()
	if src.Name() != "test-tone" || src.Driver() != "tone" {
		t.Fatalf("source=%s/%s, want test-tone/tone", src.Name(), src.Driver())
	}
	want := audio.SampleSpec{Format: audio.SampleS16LE, Rate: 48000, Channels: 2}
	if !src.SampleSpec().Equal(want) {
		t.Fatalf("spec=%s, want %s", src.SampleSpec(), want)
	}
}

func TestNewToneRejectsBadFormat(t *testing.T) {
	c := core.New(core.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	profile := testProfile()
	profile.Format = "u8"
	if _, err := NewTone(c, zap.NewNop(), profile); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestGenerateFrameShape(t *testing.T) {
	c := core.New(core.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	tone, err := NewTone(c, zap.NewNop(), testProfile())
	if err != nil {
		t.Fatalf("NewTone: %v", err)
	}

	chunk := tone.generate()
	defer chunk.Release()

	// 20ms at 48kHz stereo s16le.
	wantFrames := 960
	if got := chunk.Frames(tone.spec); got != wantFrames {
		t.Fatalf("Frames=%d, want %d", got, wantFrames)
	}

	// Both channels carry the same sample.
	samples := audio.BytesToInt16SliceInto(nil, chunk.Bytes())
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d has differing channels %d/%d", i/2, samples[i], samples[i+1])
		}
	}

	// Amplitude stays inside the configured bound.
	limit := int16(tone.amplitude*32767) + 1
	for i, s := range samples {
		if s > limit || s < -limit {
			t.Fatalf("sample %d = %d exceeds amplitude bound %d", i, s, limit)
		}
	}
}

func TestGeneratePhaseContinuity(t *testing.T) {
	c := core.New(core.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	tone, err := NewTone(c, zap.NewNop(), testProfile())
	if err != nil {
		t.Fatalf("NewTone: %v", err)
	}

	first := tone.generate()
	phaseAfterFirst := tone.phase
	first.Release()

	second := tone.generate()
	second.Release()

	if tone.phase == phaseAfterFirst {
		t.Fatal("phase did not advance between frames")
	}
}
