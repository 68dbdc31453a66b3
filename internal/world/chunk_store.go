package world

import (
	"sort"
	"sync"

	"voxelwater/internal/profiling"
)

// ChunkStore manages the storage and retrieval of chunks.
type ChunkStore struct {
	chunks map[ChunkCoord]*Chunk
	mu     sync.RWMutex
}

// NewChunkStore creates a new chunk store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{
		chunks: make(map[ChunkCoord]*Chunk),
	}
}

// GetChunk returns the chunk at the specified chunk coordinate.
// If the chunk doesn't exist and create is true, an empty one is created.
func (cs *ChunkStore) GetChunk(coord ChunkCoord, create bool) *Chunk {
	cs.mu.RLock()
	chunk, exists := cs.chunks[coord]
	cs.mu.RUnlock()
	if exists || !create {
		return chunk
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()
	// Another goroutine might have created it while we were waiting for the lock
	if existing, ok := cs.chunks[coord]; ok {
		return existing
	}
	chunk = NewChunk(coord.X, coord.Y, coord.Z)
	cs.chunks[coord] = chunk
	return chunk
}

// HasChunk checks if a chunk exists without creating it.
func (cs *ChunkStore) HasChunk(coord ChunkCoord) bool {
	cs.mu.RLock()
	_, exists := cs.chunks[coord]
	cs.mu.RUnlock()
	return exists
}

// AddChunk adds a pre-generated chunk to the store. It reports false when a
// chunk was already present at coord.
func (cs *ChunkStore) AddChunk(coord ChunkCoord, chunk *Chunk) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if _, ok := cs.chunks[coord]; ok {
		return false
	}
	cs.chunks[coord] = chunk
	return true
}

// RemoveChunk drops the chunk at coord and returns it.
func (cs *ChunkStore) RemoveChunk(coord ChunkCoord) (*Chunk, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	chunk, ok := cs.chunks[coord]
	if !ok {
		return nil, false
	}
	delete(cs.chunks, coord)
	return chunk, true
}

// GetAllChunks returns all chunks in coordinate order.
func (cs *ChunkStore) GetAllChunks() []ChunkWithCoord {
	cs.mu.RLock()
	chunks := make([]ChunkWithCoord, 0, len(cs.chunks))
	for coord, chunk := range cs.chunks {
		chunks = append(chunks, ChunkWithCoord{Chunk: chunk, Coord: coord})
	}
	cs.mu.RUnlock()

	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Coord.Less(chunks[j].Coord) })
	return chunks
}

// Len returns the number of loaded chunks.
func (cs *ChunkStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}

// FarChunks lists chunk coordinates outside the XZ radius around (cx, cz).
func (cs *ChunkStore) FarChunks(cx, cz, radius int) []ChunkCoord {
	defer profiling.Track("world.FarChunks")()
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	var far []ChunkCoord
	for coord := range cs.chunks {
		dx := coord.X - cx
		dz := coord.Z - cz
		if dx*dx+dz*dz > radius*radius {
			far = append(far, coord)
		}
	}
	sort.Slice(far, func(i, j int) bool { return far[i].Less(far[j]) })
	return far
}
