package hostworld

import "sort"

const ChunkSize = 16

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is one full-height 16x16 column of block ids.
type Chunk struct {
	CX, CZ int
	Height int
	Blocks []uint16 // len = 16*16*Height
}

func newChunk(cx, cz, height int) *Chunk {
	return &Chunk{
		CX:     cx,
		CZ:     cz,
		Height: height,
		Blocks: make([]uint16, ChunkSize*ChunkSize*height),
	}
}

// index takes local x, z and a y offset from the world floor.
func (c *Chunk) index(x, yOff, z int) int {
	// x fastest, then z, then y
	return x + z*ChunkSize + yOff*ChunkSize*ChunkSize
}

func (c *Chunk) get(x, yOff, z int) uint16 {
	return c.Blocks[c.index(x, yOff, z)]
}

func (c *Chunk) set(x, yOff, z int, b uint16) bool {
	i := c.index(x, yOff, z)
	if c.Blocks[i] == b {
		return false
	}
	c.Blocks[i] = b
	return true
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}
