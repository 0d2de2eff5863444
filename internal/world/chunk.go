package world

import (
	"crypto/sha256"
	"encoding/binary"
)

const ChunkSide = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a fixed 16 x Height x 16 voxel column. Voxels are stored in YZX
// order (x fastest) to match the wire encoding. A chunk is written only
// while its generator runs; consumers treat it as read-only afterwards.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height

	hash  [32]byte
	haveH bool
}

func newChunk(cx, cz, height int) *Chunk {
	return &Chunk{
		CX:     cx,
		CZ:     cz,
		Height: height,
		Blocks: make([]uint16, ChunkSide*ChunkSide*height),
	}
}

func (c *Chunk) index(x, y, z int) int {
	// x fastest, then z, then y
	return x + z*ChunkSide + y*ChunkSide*ChunkSide
}

func (c *Chunk) Get(x, y, z int) uint16 {
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) set(x, y, z int, b uint16) {
	c.Blocks[c.index(x, y, z)] = b
	c.haveH = false
}

// Digest hashes the raw voxel buffer deterministically. Two chunks with the
// same digest hold observationally identical terrain.
func (c *Chunk) Digest() [32]byte {
	if !c.haveH {
		h := sha256.New()
		var tmp [2]byte
		for _, v := range c.Blocks {
			binary.LittleEndian.PutUint16(tmp[:], v)
			h.Write(tmp[:])
		}
		copy(c.hash[:], h.Sum(nil))
		c.haveH = true
	}
	return c.hash
}
