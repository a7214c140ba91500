package resample

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/audioroute/audioroute/pkg/audio"
)

func mustMap(t *testing.T, channels int) audio.ChannelMap {
	t.Helper()
	m, err := audio.DefaultChannelMap(channels)
	if err != nil {
		t.Fatalf("DefaultChannelMap(%d): %v", channels, err)
	}
	return m
}

func f32Chunk(samples []float32) audio.Chunk {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return audio.ChunkFromBytes(buf)
}

func f32Samples(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestNewRejectsInvalidInputs(t *testing.T) {
	mono := mustMap(t, 1)
	stereo := mustMap(t, 2)
	specMono := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 1}
	specStereo := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 2}

	if _, err := New(specMono, mono, specStereo, stereo, MethodInvalid); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v for invalid method, want ErrUnsupported", err)
	}
	if _, err := New(specMono, stereo, specStereo, stereo, MethodHigh); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v for mismatched map, want ErrUnsupported", err)
	}
	bad := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 0, Channels: 1}
	if _, err := New(bad, mono, specStereo, stereo, MethodHigh); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v for invalid spec, want ErrUnsupported", err)
	}
}

func TestRemixStereoToMono(t *testing.T) {
	from := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 2}
	to := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 1}

	r, err := New(from, mustMap(t, 2), to, mustMap(t, 1), MethodHigh)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	// Interleaved L/R frames. Mono has no positional match in stereo, so
	// each output frame is the average of the two inputs.
	in := f32Chunk([]float32{0.5, -0.5, 0.25, 0.25, 1, 0})
	out, err := r.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer out.Release()

	got := f32Samples(out.Bytes())
	want := []float32{0, 0.25, 0.5}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRemixMonoToStereo(t *testing.T) {
	from := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 1}
	to := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 2}

	r, err := New(from, mustMap(t, 1), to, mustMap(t, 2), MethodHigh)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	in := f32Chunk([]float32{0.5, -0.25})
	out, err := r.Run(in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer out.Release()

	got := f32Samples(out.Bytes())
	want := []float32{0.5, 0.5, -0.25, -0.25}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRemixPassthroughPositions(t *testing.T) {
	stereo := mustMap(t, 2)
	spec := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 2}

	r, err := New(spec, stereo, spec, stereo, MethodHigh)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	samples := []float32{0.1, -0.2, 0.3, -0.4}
	out, err := r.Run(f32Chunk(samples))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer out.Release()

	got := f32Samples(out.Bytes())
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], samples[i])
		}
	}
}

func TestRateConversionFrameCount(t *testing.T) {
	from := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 44100, Channels: 1}
	to := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 1}

	r, err := New(from, mustMap(t, 1), to, mustMap(t, 1), MethodMedium)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	in := make([]float32, 441)
	for i := range in {
		in[i] = float32(math.Sin(2 * math.Pi * 440 * float64(i) / 44100))
	}

	var frames int
	for i := 0; i < 100; i++ {
		out, err := r.Run(f32Chunk(in))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !out.Empty() {
			frames += out.Frames(to)
			out.Release()
		}
	}

	// The engine buffers some tail, so accept anything near 48000 frames
	// for 1s of input.
	if frames < 40000 || frames > 49000 {
		t.Fatalf("got %d output frames for 1s of input, want roughly 48000", frames)
	}
}

func TestRunEmptyChunk(t *testing.T) {
	spec := audio.SampleSpec{Format: audio.SampleF32LE, Rate: 48000, Channels: 1}
	r, err := New(spec, mustMap(t, 1), audio.SampleSpec{Format: audio.SampleF32LE, Rate: 44100, Channels: 1}, mustMap(t, 1), MethodQuick)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	out, err := r.Run(audio.Chunk{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !out.Empty() {
		t.Fatal("expected empty output for empty input")
	}
}

func TestMethodParsing(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Method
	}{
		{"", MethodInvalid},
		{"quick", MethodQuick},
		{"low", MethodLow},
		{"medium", MethodMedium},
		{"high", MethodHigh},
		{"very-high", MethodVeryHigh},
	} {
		got, err := ParseMethod(tc.in)
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMethod(%q)=%v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseMethod("bogus"); err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}

func TestMethodAccessors(t *testing.T) {
	from := audio.SampleSpec{Format: audio.SampleS16LE, Rate: 44100, Channels: 2}
	to := audio.SampleSpec{Format: audio.SampleS16LE, Rate: 48000, Channels: 1}

	r, err := New(from, mustMap(t, 2), to, mustMap(t, 1), MethodLow)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer r.Close()

	if r.Method() != MethodLow {
		t.Fatalf("Method=%v, want %v", r.Method(), MethodLow)
	}
	if !r.FromSpec().Equal(from) || !r.ToSpec().Equal(to) {
		t.Fatalf("FromSpec/ToSpec = %s/%s, want %s/%s", r.FromSpec(), r.ToSpec(), from, to)
	}
}
