package audio

// Block is a reference-counted span of sample memory. Blocks are drawn from
// the shared byte pool and returned to it when the last reference is
// released. Reference counts are not synchronized: a block belongs to the
// goroutine that owns the routing core it travels through.
type Block struct {
	buf  []byte
	refs int
}

// NewBlock returns a pooled block of the given byte size with one reference.
func NewBlock(size int) *Block {
	return &Block{buf: AcquireBytes(size), refs: 1}
}

// NewBlockFromBytes copies p into a fresh pooled block.
func NewBlockFromBytes(p []byte) *Block {
	b := NewBlock(len(p))
	copy(b.buf, p)
	return b
}

// Bytes returns the block's backing memory.
func (b *Block) Bytes() []byte {
	return b.buf
}

// Refs returns the current reference count.
func (b *Block) Refs() int {
	return b.refs
}

// Acquire takes an additional reference and returns the same block.
func (b *Block) Acquire() *Block {
	if b.refs < 1 {
		panic("audio: acquire of released block")
	}
	b.refs++
	return b
}

// Release drops one reference; the memory returns to the pool when the last
// reference goes.
func (b *Block) Release() {
	if b.refs < 1 {
		panic("audio: release of released block")
	}
	b.refs--
	if b.refs == 0 {
		ReleaseBytes(b.buf)
		b.buf = nil
	}
}

// Chunk is a bounded view into a block: Length bytes starting at Index.
// The view itself is a value; the backing memory is shared through the
// block's reference count.
type Chunk struct {
	Block  *Block
	Index  int
	Length int
}

// ChunkFromBytes copies p into a new single-reference chunk.
func ChunkFromBytes(p []byte) Chunk {
	return Chunk{Block: NewBlockFromBytes(p), Length: len(p)}
}

// Bytes returns the chunk's window into its block.
func (c Chunk) Bytes() []byte {
	if c.Block == nil {
		return nil
	}
	return c.Block.Bytes()[c.Index : c.Index+c.Length]
}

// Empty reports whether the chunk carries no data.
func (c Chunk) Empty() bool {
	return c.Block == nil || c.Length == 0
}

// Frames returns the number of whole frames the chunk holds under spec.
func (c Chunk) Frames(spec SampleSpec) int {
	return spec.FrameCount(c.Length)
}

// Acquire takes a reference on the backing block.
func (c Chunk) Acquire() {
	if c.Block != nil {
		c.Block.Acquire()
	}
}

// Release drops a reference on the backing block.
func (c Chunk) Release() {
	if c.Block != nil {
		c.Block.Release()
	}
}
