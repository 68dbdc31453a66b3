package water

import (
	"sort"

	"voxelwater/internal/world"
)

// PosQueue is a FIFO of global positions that ignores duplicates.
type PosQueue struct {
	items   []world.BlockPos
	head    int
	present map[world.BlockPos]struct{}
}

// NewPosQueue creates an empty queue.
func NewPosQueue() *PosQueue {
	return &PosQueue{present: make(map[world.BlockPos]struct{})}
}

// Push appends p unless it is already queued. It reports whether p was added.
func (q *PosQueue) Push(p world.BlockPos) bool {
	if _, ok := q.present[p]; ok {
		return false
	}
	q.present[p] = struct{}{}
	q.items = append(q.items, p)
	return true
}

// Pop removes the oldest position.
func (q *PosQueue) Pop() (world.BlockPos, bool) {
	if q.head >= len(q.items) {
		return world.BlockPos{}, false
	}
	p := q.items[q.head]
	q.head++
	delete(q.present, p)
	// Compact once the consumed prefix dominates the backing array.
	if q.head > 64 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return p, true
}

// Len returns the number of queued positions.
func (q *PosQueue) Len() int {
	return len(q.items) - q.head
}

// Contains reports whether p is queued.
func (q *PosQueue) Contains(p world.BlockPos) bool {
	_, ok := q.present[p]
	return ok
}

// DropChunk forgets every queued position inside coord.
func (q *PosQueue) DropChunk(coord world.ChunkCoord) int {
	kept := q.items[:0]
	dropped := 0
	for _, p := range q.items[q.head:] {
		if p.Chunk() == coord {
			delete(q.present, p)
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	q.items = kept
	q.head = 0
	return dropped
}

// ChunkSet is a membership set of chunk coordinates with ordered draining.
type ChunkSet struct {
	m map[world.ChunkCoord]struct{}
}

// NewChunkSet creates an empty set.
func NewChunkSet() *ChunkSet {
	return &ChunkSet{m: make(map[world.ChunkCoord]struct{})}
}

// Add inserts c and reports whether it was new.
func (s *ChunkSet) Add(c world.ChunkCoord) bool {
	if _, ok := s.m[c]; ok {
		return false
	}
	s.m[c] = struct{}{}
	return true
}

// Remove deletes c.
func (s *ChunkSet) Remove(c world.ChunkCoord) {
	delete(s.m, c)
}

// Has reports membership.
func (s *ChunkSet) Has(c world.ChunkCoord) bool {
	_, ok := s.m[c]
	return ok
}

// Len returns the set size.
func (s *ChunkSet) Len() int {
	return len(s.m)
}

// Drain empties the set and returns its members in ChunkCoord.Less order.
func (s *ChunkSet) Drain() []world.ChunkCoord {
	out := make([]world.ChunkCoord, 0, len(s.m))
	for c := range s.m {
		out = append(out, c)
	}
	clear(s.m)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SimContext carries the work lists shared by the stages.
type SimContext struct {
	// Vertical holds global positions waiting for a gravity check.
	Vertical *PosQueue
	// Lateral holds chunks waiting for a lateral flow pass.
	Lateral *ChunkSet
	// Surface holds chunks whose surfaces must be re-detected.
	Surface *ChunkSet
	// Modified holds chunks whose boundary snapshot must be refreshed.
	Modified *ChunkSet
}

// NewSimContext creates empty work lists.
func NewSimContext() *SimContext {
	return &SimContext{
		Vertical: NewPosQueue(),
		Lateral:  NewChunkSet(),
		Surface:  NewChunkSet(),
		Modified: NewChunkSet(),
	}
}

// forget removes every trace of coord from the work lists.
func (c *SimContext) forget(coord world.ChunkCoord) {
	c.Vertical.DropChunk(coord)
	c.Lateral.Remove(coord)
	c.Surface.Remove(coord)
	c.Modified.Remove(coord)
}
