package world

import (
	"fmt"

	"voxelwater/internal/fluid"
)

// ChunkCoord identifies a chunk. Chunks are cubic, so Y is a chunk index too.
type ChunkCoord struct {
	X, Y, Z int
}

// Add returns c offset by (dx, dy, dz) chunks.
func (c ChunkCoord) Add(dx, dy, dz int) ChunkCoord {
	return ChunkCoord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

// Origin returns the world position of local (0,0,0).
func (c ChunkCoord) Origin() BlockPos {
	return BlockPos{X: c.X * ChunkSize, Y: c.Y * ChunkSize, Z: c.Z * ChunkSize}
}

// Global converts a local position inside c to a world position.
func (c ChunkCoord) Global(p fluid.Pos) BlockPos {
	return BlockPos{X: c.X*ChunkSize + p.X, Y: c.Y*ChunkSize + p.Y, Z: c.Z*ChunkSize + p.Z}
}

// Less gives chunk coordinates a stable processing order.
func (c ChunkCoord) Less(o ChunkCoord) bool {
	if c.Y != o.Y {
		return c.Y < o.Y
	}
	if c.X != o.X {
		return c.X < o.X
	}
	return c.Z < o.Z
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("chunk(%d,%d,%d)", c.X, c.Y, c.Z)
}

// ChunkWithCoord pairs a chunk with its coordinate.
type ChunkWithCoord struct {
	Chunk *Chunk
	Coord ChunkCoord
}

// BlockPos is a global voxel coordinate.
type BlockPos struct {
	X, Y, Z int
}

// Add returns p offset by (dx, dy, dz).
func (p BlockPos) Add(dx, dy, dz int) BlockPos {
	return BlockPos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Up is the block directly above p.
func (p BlockPos) Up() BlockPos { return p.Add(0, 1, 0) }

// Down is the block directly below p.
func (p BlockPos) Down() BlockPos { return p.Add(0, -1, 0) }

// Lateral returns the four horizontal neighbours of p in +X, -X, +Z, -Z order.
func (p BlockPos) Lateral() [4]BlockPos {
	return [4]BlockPos{p.Add(1, 0, 0), p.Add(-1, 0, 0), p.Add(0, 0, 1), p.Add(0, 0, -1)}
}

// Chunk returns the coordinate of the chunk containing p.
func (p BlockPos) Chunk() ChunkCoord {
	return ChunkCoord{X: floorDiv(p.X, ChunkSize), Y: floorDiv(p.Y, ChunkSize), Z: floorDiv(p.Z, ChunkSize)}
}

// Local returns p relative to its chunk.
func (p BlockPos) Local() fluid.Pos {
	return fluid.Pos{X: mod(p.X, ChunkSize), Y: mod(p.Y, ChunkSize), Z: mod(p.Z, ChunkSize)}
}

func (p BlockPos) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z)
}

// InChunk reports whether a local position lies inside chunk bounds.
func InChunk(p fluid.Pos) bool {
	return p.X >= 0 && p.X < ChunkSize && p.Y >= 0 && p.Y < ChunkSize && p.Z >= 0 && p.Z < ChunkSize
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// mod returns the non-negative remainder of a / b.
func mod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
