package world

import (
	"math"

	"voxelwater/internal/fluid"
)

// TerrainGenerator populates freshly created chunks.
type TerrainGenerator interface {
	// HeightAt is the Y of the topmost solid block in the column.
	HeightAt(worldX, worldZ int) int
	PopulateChunk(c *Chunk)
}

// Generator handles noise terrain generation.
type Generator struct {
	seed        int64
	scale       float64
	baseHeight  int
	amp         float64
	octaves     int
	persistence float64
	lacunarity  float64
	seaLevel    int
}

// NewGenerator creates a new noise generator with default settings.
func NewGenerator(seed int64, seaLevel int) *Generator {
	return &Generator{
		seed:        seed,
		scale:       1.0 / 48.0,
		baseHeight:  seaLevel,
		amp:         12,
		octaves:     4,
		persistence: 0.5,
		lacunarity:  2.0,
		seaLevel:    seaLevel,
	}
}

// HeightAt computes world surface height (block Y) at world X,Z.
func (g *Generator) HeightAt(worldX, worldZ int) int {
	x := float64(worldX) * g.scale
	z := float64(worldZ) * g.scale
	// octaveNoise2D is in [0,1]; centre it on the base height.
	n := octaveNoise2D(x, z, g.seed, g.octaves, g.persistence, g.lacunarity)*2 - 1
	height := float64(g.baseHeight) + n*g.amp
	if height < 0 {
		height = 0
	}
	return int(math.Floor(height))
}

// PopulateChunk fills a chunk using the noise heightmap.
func (g *Generator) PopulateChunk(c *Chunk) {
	for lx := range ChunkSize {
		for lz := range ChunkSize {
			height := g.HeightAt(c.X*ChunkSize+lx, c.Z*ChunkSize+lz)
			fillColumn(c, lx, lz, height, g.seaLevel)
		}
	}
}

// FlatGenerator produces a flat world at a fixed height.
type FlatGenerator struct {
	height   int
	seaLevel int
}

// NewFlatGenerator creates a flat generator. Pass seaLevel below height for a dry world.
func NewFlatGenerator(height, seaLevel int) *FlatGenerator {
	return &FlatGenerator{height: height, seaLevel: seaLevel}
}

// HeightAt returns the fixed terrain height.
func (g *FlatGenerator) HeightAt(worldX, worldZ int) int {
	return g.height
}

// PopulateChunk fills every column to the fixed height.
func (g *FlatGenerator) PopulateChunk(c *Chunk) {
	for lx := range ChunkSize {
		for lz := range ChunkSize {
			fillColumn(c, lx, lz, g.height, g.seaLevel)
		}
	}
}

// fillColumn writes terrain up to height and seeds full water cells in the
// air between the terrain and sea level (inclusive).
func fillColumn(c *Chunk, lx, lz, height, seaLevel int) {
	baseY := c.Y * ChunkSize
	for ly := range ChunkSize {
		y := baseY + ly
		switch {
		case y < 0:
			c.SetBlock(lx, ly, lz, BlockTypeStone)
		case y == 0:
			c.SetBlock(lx, ly, lz, BlockTypeBedrock)
		case y < height-3:
			c.SetBlock(lx, ly, lz, BlockTypeStone)
		case y < height:
			c.SetBlock(lx, ly, lz, BlockTypeDirt)
		case y == height:
			if height < seaLevel {
				c.SetBlock(lx, ly, lz, BlockTypeSand)
			} else {
				c.SetBlock(lx, ly, lz, BlockTypeGrass)
			}
		case y <= seaLevel:
			c.SetBlock(lx, ly, lz, BlockTypeWater)
			c.Water.Set(fluid.Pos{X: lx, Y: ly, Z: lz}, fluid.MaxVolume)
		}
	}
}
