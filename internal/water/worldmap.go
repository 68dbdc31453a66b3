package water

import (
	"voxelwater/internal/fluid"
	"voxelwater/internal/world"
)

// WorldMap is the slice of the voxel world the engine reads and writes.
// Every lookup on an unloaded chunk reports ok=false and is never an error.
type WorldMap interface {
	Block(pos world.BlockPos) (world.BlockType, bool)
	SetBlock(pos world.BlockPos, b world.BlockType) bool
	RemoveBlock(pos world.BlockPos) bool
	ChunkExists(coord world.ChunkCoord) bool
	WaterStorage(coord world.ChunkCoord) (*fluid.Storage, bool)
	MarkChunkDirty(coord world.ChunkCoord)
}

var _ WorldMap = (*world.World)(nil)
