package audio

import "testing"

func TestBlockRefCounting(t *testing.T) {
	b := NewBlock(16)
	if b.Refs() != 1 {
		t.Fatalf("Refs=%d after create, want 1", b.Refs())
	}

	b.Acquire()
	if b.Refs() != 2 {
		t.Fatalf("Refs=%d after acquire, want 2", b.Refs())
	}

	b.Release()
	if b.Refs() != 1 {
		t.Fatalf("Refs=%d after release, want 1", b.Refs())
	}

	b.Release()
	if b.Bytes() != nil {
		t.Fatal("backing memory kept after last release")
	}
}

func TestBlockReleaseAfterFreePanics(t *testing.T) {
	b := NewBlock(4)
	b.Release()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing a freed block")
		}
	}()
	b.Release()
}

func TestChunkWindow(t *testing.T) {
	c := ChunkFromBytes([]byte{1, 2, 3, 4, 5, 6})
	defer c.Release()

	sub := Chunk{Block: c.Block, Index: 2, Length: 3}
	got := sub.Bytes()
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Fatalf("window=%v, want [3 4 5]", got)
	}
}

func TestChunkEmpty(t *testing.T) {
	if !(Chunk{}).Empty() {
		t.Fatal("zero chunk must be empty")
	}
	c := ChunkFromBytes([]byte{1, 2})
	defer c.Release()
	if c.Empty() {
		t.Fatal("populated chunk reported empty")
	}
	if (Chunk{Block: c.Block}).Empty() != true {
		t.Fatal("zero-length chunk reported non-empty")
	}
}

func TestChunkFrames(t *testing.T) {
	spec := SampleSpec{Format: SampleS16LE, Rate: 48000, Channels: 2}
	c := ChunkFromBytes(make([]byte, 42))
	defer c.Release()
	if got := c.Frames(spec); got != 10 {
		t.Fatalf("Frames=%d for 42 bytes of s16le stereo, want 10", got)
	}
}

func TestChunkSharesBlockReference(t *testing.T) {
	c := ChunkFromBytes([]byte{1, 2, 3, 4})
	c.Acquire()
	if c.Block.Refs() != 2 {
		t.Fatalf("Refs=%d after chunk acquire, want 2", c.Block.Refs())
	}
	c.Release()
	c.Release()
	if c.Block.Refs() != 0 {
		t.Fatalf("Refs=%d after final release, want 0", c.Block.Refs())
	}
}
