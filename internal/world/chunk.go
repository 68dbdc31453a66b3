package world

import "voxelwater/internal/fluid"

const (
	// ChunkSize is the edge length of a cubic chunk.
	ChunkSize = 16

	ChunkVolume = ChunkSize * ChunkSize * ChunkSize
)

// Chunk is a 16x16x16 cube of blocks plus the water volumes inside it.
type Chunk struct {
	X, Y, Z int

	// blocks stays nil until the first non-air block is written.
	blocks []BlockType
	nonAir int

	// Water is owned by the chunk and saved with it.
	Water *fluid.Storage
}

// NewChunk creates a new empty chunk at the specified chunk coordinates
func NewChunk(x, y, z int) *Chunk {
	return &Chunk{
		X:     x,
		Y:     y,
		Z:     z,
		Water: fluid.NewStorage(),
	}
}

// Coord returns the chunk coordinate.
func (c *Chunk) Coord() ChunkCoord {
	return ChunkCoord{X: c.X, Y: c.Y, Z: c.Z}
}

// indexOf converts local coordinates (x, y, z) → flat index
func indexOf(x, y, z int) int {
	return x*ChunkSize*ChunkSize + y*ChunkSize + z
}

func inBounds(x, y, z int) bool {
	return x >= 0 && x < ChunkSize && y >= 0 && y < ChunkSize && z >= 0 && z < ChunkSize
}

// GetBlock returns the block type at the specified local coordinates
func (c *Chunk) GetBlock(x, y, z int) BlockType {
	if !inBounds(x, y, z) || c.blocks == nil {
		return BlockTypeAir
	}
	return c.blocks[indexOf(x, y, z)]
}

// SetBlock sets the block type at the specified local coordinates
func (c *Chunk) SetBlock(x, y, z int, blockType BlockType) {
	if !inBounds(x, y, z) {
		return
	}
	if c.blocks == nil {
		if blockType == BlockTypeAir {
			return
		}
		c.blocks = make([]BlockType, ChunkVolume)
	}

	idx := indexOf(x, y, z)
	old := c.blocks[idx]
	if old == blockType {
		return
	}
	c.blocks[idx] = blockType
	switch {
	case old == BlockTypeAir:
		c.nonAir++
	case blockType == BlockTypeAir:
		c.nonAir--
	}

	// Release the backing array once the chunk is all air again.
	if c.nonAir == 0 {
		c.blocks = nil
	}
}

// IsEmpty reports whether the chunk has neither blocks nor water.
func (c *Chunk) IsEmpty() bool {
	return c.nonAir == 0 && c.Water.Len() == 0
}

// RestoreWater replaces the chunk's water with st and brings the water
// block markers in line: wet air becomes water, dry water becomes air.
func (c *Chunk) RestoreWater(st *fluid.Storage) {
	for _, p := range c.Water.Positions() {
		if !st.Has(p) && c.GetBlock(p.X, p.Y, p.Z) == BlockTypeWater {
			c.SetBlock(p.X, p.Y, p.Z, BlockTypeAir)
		}
	}
	for _, p := range st.Positions() {
		if c.GetBlock(p.X, p.Y, p.Z) == BlockTypeAir {
			c.SetBlock(p.X, p.Y, p.Z, BlockTypeWater)
		}
	}
	c.Water = st
}
