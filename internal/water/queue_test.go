package water

import (
	"testing"

	"voxelwater/internal/world"
)

func TestPosQueueDedupFIFO(t *testing.T) {
	q := NewPosQueue()
	a := world.BlockPos{X: 1}
	b := world.BlockPos{X: 2}
	if !q.Push(a) || !q.Push(b) || q.Push(a) {
		t.Fatal("unexpected Push results")
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
	if p, _ := q.Pop(); p != a {
		t.Errorf("Pop = %v, want %v", p, a)
	}
	if !q.Push(a) {
		t.Error("popped position should be accepted again")
	}
	if p, _ := q.Pop(); p != b {
		t.Errorf("Pop = %v, want %v", p, b)
	}
	if p, _ := q.Pop(); p != a {
		t.Errorf("Pop = %v, want %v", p, a)
	}
	if _, ok := q.Pop(); ok {
		t.Error("empty queue should not pop")
	}
}

func TestPosQueueCompactsAndDropsChunks(t *testing.T) {
	q := NewPosQueue()
	for i := 0; i < 200; i++ {
		q.Push(world.BlockPos{X: i})
	}
	for i := 0; i < 150; i++ {
		if p, _ := q.Pop(); p.X != i {
			t.Fatalf("Pop = %v, want X=%d", p, i)
		}
	}
	// X 150..159 are in chunk 9, 160..199 in chunks 10..12.
	if n := q.DropChunk(world.ChunkCoord{X: 9}); n != 10 {
		t.Errorf("DropChunk dropped %d, want 10", n)
	}
	if q.Len() != 40 || q.Contains(world.BlockPos{X: 155}) {
		t.Errorf("Len = %d after drop", q.Len())
	}
	if p, _ := q.Pop(); p.X != 160 {
		t.Errorf("Pop after drop = %v, want X=160", p)
	}
}

func TestChunkSetDrainOrdered(t *testing.T) {
	s := NewChunkSet()
	s.Add(world.ChunkCoord{X: 2})
	s.Add(world.ChunkCoord{Y: -1})
	s.Add(world.ChunkCoord{X: 1})
	if s.Add(world.ChunkCoord{X: 1}) {
		t.Error("duplicate Add should report false")
	}
	got := s.Drain()
	for i := 1; i < len(got); i++ {
		if !got[i-1].Less(got[i]) {
			t.Errorf("Drain not ordered: %v", got)
		}
	}
	if len(got) != 3 || s.Len() != 0 {
		t.Errorf("Drain = %v, Len after = %d", got, s.Len())
	}
}
