package audio

import (
	"math"
	"testing"
)

func TestFloat32Int16RoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1.0, -1.0, 2.0, -2.0}
	ints := Float32SliceToInt16SliceInto(nil, in)

	if ints[3] != 32767 || ints[5] != 32767 {
		t.Fatalf("positive clip = %d/%d, want 32767", ints[3], ints[5])
	}
	if ints[6] != -32768 {
		t.Fatalf("negative clip = %d, want -32768", ints[6])
	}

	back := Int16SliceToFloat32Into(nil, ints)
	for i := 0; i < 3; i++ {
		if math.Abs(float64(back[i]-in[i])) > 1.0/32767 {
			t.Fatalf("sample %d = %v, want about %v", i, back[i], in[i])
		}
	}
}

func TestInt16BytesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	b := Int16SliceToBytesInto(nil, in)
	if len(b) != len(in)*2 {
		t.Fatalf("len=%d, want %d", len(b), len(in)*2)
	}
	out := BytesToInt16SliceInto(nil, b)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestDecodeEncodeS16(t *testing.T) {
	b := Int16SliceToBytesInto(nil, []int16{0, 16384, -16384})
	samples := DecodeSamplesInto(nil, SampleS16LE, b)
	if len(samples) != 3 {
		t.Fatalf("decoded %d samples, want 3", len(samples))
	}
	if samples[0] != 0 {
		t.Fatalf("samples[0]=%v, want 0", samples[0])
	}
	if math.Abs(float64(samples[1]-0.5)) > 0.001 {
		t.Fatalf("samples[1]=%v, want about 0.5", samples[1])
	}

	enc := EncodeSamplesInto(nil, SampleS16LE, samples)
	back := BytesToInt16SliceInto(nil, enc)
	if back[1] != 16384 || back[2] != -16384 {
		t.Fatalf("round trip = %v, want [0 16384 -16384]", back)
	}
}

func TestDecodeEncodeF32(t *testing.T) {
	in := []float32{0.123, -0.456, 1.5}
	enc := EncodeSamplesInto(nil, SampleF32LE, in)
	out := DecodeSamplesInto(nil, SampleF32LE, enc)
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("sample %d = %v, want exact %v", i, out[i], in[i])
		}
	}
}

func TestDeinterleaveInterleave(t *testing.T) {
	src := []float32{1, 10, 2, 20, 3, 30}
	planes := DeinterleaveInto(nil, src, 2)

	if len(planes) != 2 {
		t.Fatalf("planes=%d, want 2", len(planes))
	}
	if planes[0][1] != 2 || planes[1][2] != 30 {
		t.Fatalf("planes=%v, want [[1 2 3] [10 20 30]]", planes)
	}

	back := InterleaveInto(nil, planes)
	for i := range src {
		if back[i] != src[i] {
			t.Fatalf("interleaved[%d]=%v, want %v", i, back[i], src[i])
		}
	}
}

func TestConvertersReuseCapacity(t *testing.T) {
	dst := make([]float32, 0, 8)
	out := Int16SliceToFloat32Into(dst, []int16{1, 2, 3})
	if &out[0] != &dst[:1][0] {
		t.Fatal("conversion reallocated although dst capacity sufficed")
	}
}
