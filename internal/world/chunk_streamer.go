package world

import (
	"runtime"
	"sync"

	"voxelwater/internal/profiling"
)

// ChunkStreamer generates chunks on background workers. Finished chunks are
// not installed by the workers; the simulation goroutine collects them with
// TakeReady so chunk arrival is an ordinary tick event.
type ChunkStreamer struct {
	jobs       chan ChunkCoord
	pending    map[ChunkCoord]struct{}
	pendingMu  sync.Mutex
	maxPending int

	ready   []*Chunk
	readyMu sync.Mutex

	wg sync.WaitGroup

	// Dependencies
	store *ChunkStore
	gen   TerrainGenerator
}

// NewChunkStreamer creates a new chunk streamer with one worker per CPU.
func NewChunkStreamer(store *ChunkStore, gen TerrainGenerator) *ChunkStreamer {
	cs := &ChunkStreamer{
		jobs:       make(chan ChunkCoord, 4096),
		pending:    make(map[ChunkCoord]struct{}),
		maxPending: 16384,
		store:      store,
		gen:        gen,
	}

	workers := max(runtime.NumCPU(), 1)
	for i := 0; i < workers; i++ {
		cs.wg.Add(1)
		go cs.worker()
	}

	return cs
}

// Close stops the background generation workers and waits for them.
func (cs *ChunkStreamer) Close() {
	close(cs.jobs)
	cs.wg.Wait()
}

func (cs *ChunkStreamer) worker() {
	defer cs.wg.Done()
	for coord := range cs.jobs {
		chunk := cs.Generate(coord)

		// coord stays pending until TakeReady hands the chunk over.
		cs.readyMu.Lock()
		cs.ready = append(cs.ready, chunk)
		cs.readyMu.Unlock()
	}
}

// Generate builds a populated chunk without installing it.
func (cs *ChunkStreamer) Generate(coord ChunkCoord) *Chunk {
	chunk := NewChunk(coord.X, coord.Y, coord.Z)
	cs.gen.PopulateChunk(chunk)
	return chunk
}

// Request queues a chunk for generation. It reports whether a job was queued.
func (cs *ChunkStreamer) Request(coord ChunkCoord) bool {
	if cs.store.HasChunk(coord) {
		return false
	}

	cs.pendingMu.Lock()
	if _, ok := cs.pending[coord]; ok {
		cs.pendingMu.Unlock()
		return false
	}
	if cs.maxPending > 0 && len(cs.pending) >= cs.maxPending {
		cs.pendingMu.Unlock()
		return false
	}
	cs.pending[coord] = struct{}{}
	cs.pendingMu.Unlock()

	select {
	case cs.jobs <- coord:
		return true
	default:
		// queue full: rollback
		cs.pendingMu.Lock()
		delete(cs.pending, coord)
		cs.pendingMu.Unlock()
		return false
	}
}

// RequestAround queues every chunk within radius (XZ) of (cx, cz) for chunk
// Y levels [minY, maxY]. Returns the number of queued jobs.
func (cs *ChunkStreamer) RequestAround(cx, cz, radius, minY, maxY int) int {
	defer profiling.Track("world.RequestAround")()
	queued := 0
	for dx := -radius; dx <= radius; dx++ {
		for dz := -radius; dz <= radius; dz++ {
			if dx*dx+dz*dz > radius*radius {
				continue
			}
			for cy := minY; cy <= maxY; cy++ {
				if cs.Request(ChunkCoord{X: cx + dx, Y: cy, Z: cz + dz}) {
					queued++
				}
			}
		}
	}
	return queued
}

// Pending returns the number of requested chunks not yet taken.
func (cs *ChunkStreamer) Pending() int {
	cs.pendingMu.Lock()
	defer cs.pendingMu.Unlock()
	return len(cs.pending)
}

// TakeReady returns and forgets all chunks finished since the last call.
func (cs *ChunkStreamer) TakeReady() []*Chunk {
	cs.readyMu.Lock()
	out := cs.ready
	cs.ready = nil
	cs.readyMu.Unlock()

	cs.pendingMu.Lock()
	for _, c := range out {
		delete(cs.pending, c.Coord())
	}
	cs.pendingMu.Unlock()
	return out
}
