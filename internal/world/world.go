package world

import (
	"sort"

	"go.uber.org/zap"

	"voxelwater/internal/fluid"
	"voxelwater/internal/logger"
	"voxelwater/internal/profiling"
)

// ChunkHook observes chunks entering or leaving the world.
type ChunkHook func(c *Chunk)

// World is the chunked voxel map. Every method except those on the streamer
// must be called from the simulation goroutine.
type World struct {
	store    *ChunkStore
	gen      TerrainGenerator
	streamer *ChunkStreamer

	dirty map[ChunkCoord]struct{}

	onLoad   []ChunkHook
	onUnload []ChunkHook

	log *zap.Logger
}

// New creates a world that generates missing chunks with gen.
func New(gen TerrainGenerator) *World {
	return &World{
		store: NewChunkStore(),
		gen:   gen,
		dirty: make(map[ChunkCoord]struct{}),
		log:   logger.Named("world"),
	}
}

// NewEmpty creates a world whose chunks start as air.
func NewEmpty() *World {
	return New(nil)
}

// Store exposes the underlying chunk store.
func (w *World) Store() *ChunkStore {
	return w.store
}

// StartStreaming launches background generation workers.
func (w *World) StartStreaming() *ChunkStreamer {
	if w.streamer == nil && w.gen != nil {
		w.streamer = NewChunkStreamer(w.store, w.gen)
	}
	return w.streamer
}

// Close stops background generation.
func (w *World) Close() {
	if w.streamer != nil {
		w.streamer.Close()
		w.streamer = nil
	}
}

// OnChunkLoad registers a hook run before a chunk is installed.
func (w *World) OnChunkLoad(fn ChunkHook) {
	w.onLoad = append(w.onLoad, fn)
}

// OnChunkUnload registers a hook run after a chunk is removed.
func (w *World) OnChunkUnload(fn ChunkHook) {
	w.onUnload = append(w.onUnload, fn)
}

// LoadChunkSync generates and installs the chunk at coord unless present.
func (w *World) LoadChunkSync(coord ChunkCoord) *Chunk {
	if c := w.store.GetChunk(coord, false); c != nil {
		return c
	}
	c := NewChunk(coord.X, coord.Y, coord.Z)
	if w.gen != nil {
		w.gen.PopulateChunk(c)
	}
	w.install(c)
	return w.store.GetChunk(coord, false)
}

// LoadAroundSync loads every chunk within radius (XZ) of (cx, cz) for chunk
// Y levels [minY, maxY] and returns the coordinates that were new.
func (w *World) LoadAroundSync(cx, cz, radius, minY, maxY int) []ChunkCoord {
	defer profiling.Track("world.LoadAroundSync")()
	var loaded []ChunkCoord
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			for cy := minY; cy <= maxY; cy++ {
				coord := ChunkCoord{X: cx + dx, Y: cy, Z: cz + dz}
				if w.store.HasChunk(coord) {
					continue
				}
				w.LoadChunkSync(coord)
				loaded = append(loaded, coord)
			}
		}
	}
	return loaded
}

// Update installs chunks finished by the streamer and returns their coordinates.
func (w *World) Update() []ChunkCoord {
	if w.streamer == nil {
		return nil
	}
	ready := w.streamer.TakeReady()
	loaded := make([]ChunkCoord, 0, len(ready))
	for _, c := range ready {
		if w.install(c) {
			loaded = append(loaded, c.Coord())
		}
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].Less(loaded[j]) })
	return loaded
}

func (w *World) install(c *Chunk) bool {
	if w.store.HasChunk(c.Coord()) {
		return false
	}
	for _, fn := range w.onLoad {
		fn(c)
	}
	if !w.store.AddChunk(c.Coord(), c) {
		return false
	}
	w.dirty[c.Coord()] = struct{}{}
	w.log.Debug("chunk loaded", zap.Stringer("coord", c.Coord()), zap.Int("water_cells", c.Water.Len()))
	return true
}

// UnloadChunk removes a chunk and runs the unload hooks.
func (w *World) UnloadChunk(coord ChunkCoord) bool {
	c, ok := w.store.RemoveChunk(coord)
	if !ok {
		return false
	}
	delete(w.dirty, coord)
	for _, fn := range w.onUnload {
		fn(c)
	}
	w.log.Debug("chunk unloaded", zap.Stringer("coord", coord))
	return true
}

// EvictFarChunks unloads chunks outside the XZ radius and returns them.
func (w *World) EvictFarChunks(cx, cz, radius int) []ChunkCoord {
	far := w.store.FarChunks(cx, cz, radius)
	for _, coord := range far {
		w.UnloadChunk(coord)
	}
	return far
}

// Chunk returns the loaded chunk at coord.
func (w *World) Chunk(coord ChunkCoord) (*Chunk, bool) {
	c := w.store.GetChunk(coord, false)
	return c, c != nil
}

// ChunkExists reports whether coord is loaded.
func (w *World) ChunkExists(coord ChunkCoord) bool {
	return w.store.HasChunk(coord)
}

// Block returns the block at pos; ok is false when its chunk is not loaded.
func (w *World) Block(pos BlockPos) (BlockType, bool) {
	c := w.store.GetChunk(pos.Chunk(), false)
	if c == nil {
		return BlockTypeAir, false
	}
	l := pos.Local()
	return c.GetBlock(l.X, l.Y, l.Z), true
}

// SetBlock writes a block; it reports false when the chunk is not loaded.
func (w *World) SetBlock(pos BlockPos, b BlockType) bool {
	c := w.store.GetChunk(pos.Chunk(), false)
	if c == nil {
		return false
	}
	l := pos.Local()
	c.SetBlock(l.X, l.Y, l.Z, b)
	w.dirty[c.Coord()] = struct{}{}
	return true
}

// RemoveBlock replaces the block at pos with air.
func (w *World) RemoveBlock(pos BlockPos) bool {
	return w.SetBlock(pos, BlockTypeAir)
}

// WaterStorage returns the water store of a loaded chunk.
func (w *World) WaterStorage(coord ChunkCoord) (*fluid.Storage, bool) {
	c := w.store.GetChunk(coord, false)
	if c == nil {
		return nil, false
	}
	return c.Water, true
}

// WaterVolume returns the water volume at pos.
func (w *World) WaterVolume(pos BlockPos) (float64, bool) {
	st, ok := w.WaterStorage(pos.Chunk())
	if !ok {
		return 0, false
	}
	return st.Volume(pos.Local()), true
}

// MarkChunkDirty queues a chunk for broadcast and save.
func (w *World) MarkChunkDirty(coord ChunkCoord) {
	if !w.store.HasChunk(coord) {
		return
	}
	w.dirty[coord] = struct{}{}
}

// DrainDirty returns every chunk marked since the last call, in stable order.
func (w *World) DrainDirty() []ChunkCoord {
	out := make([]ChunkCoord, 0, len(w.dirty))
	for coord := range w.dirty {
		out = append(out, coord)
	}
	clear(w.dirty)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// TotalWater sums the water of every loaded chunk.
func (w *World) TotalWater() float64 {
	total := 0.0
	for _, cc := range w.store.GetAllChunks() {
		total += cc.Chunk.Water.TotalVolume()
	}
	return total
}
