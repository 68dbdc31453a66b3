package world

import (
	"testing"
	"time"

	"voxelwater/internal/fluid"
)

func TestBlockPosChunkAndLocal(t *testing.T) {
	tests := []struct {
		pos       BlockPos
		wantChunk ChunkCoord
		wantLocal fluid.Pos
	}{
		{BlockPos{0, 0, 0}, ChunkCoord{0, 0, 0}, fluid.Pos{X: 0, Y: 0, Z: 0}},
		{BlockPos{15, 16, 17}, ChunkCoord{0, 1, 1}, fluid.Pos{X: 15, Y: 0, Z: 1}},
		{BlockPos{-1, -1, -16}, ChunkCoord{-1, -1, -1}, fluid.Pos{X: 15, Y: 15, Z: 0}},
		{BlockPos{-17, 31, 32}, ChunkCoord{-2, 1, 2}, fluid.Pos{X: 15, Y: 15, Z: 0}},
	}
	for _, tt := range tests {
		if got := tt.pos.Chunk(); got != tt.wantChunk {
			t.Errorf("%v.Chunk() = %v, want %v", tt.pos, got, tt.wantChunk)
		}
		if got := tt.pos.Local(); got != tt.wantLocal {
			t.Errorf("%v.Local() = %v, want %v", tt.pos, got, tt.wantLocal)
		}
		if back := tt.wantChunk.Global(tt.wantLocal); back != tt.pos {
			t.Errorf("Global round trip = %v, want %v", back, tt.pos)
		}
	}
}

func TestWorldBlocksRequireLoadedChunk(t *testing.T) {
	w := NewEmpty()
	pos := BlockPos{3, 4, 5}

	if w.SetBlock(pos, BlockTypeStone) {
		t.Fatal("SetBlock on unloaded chunk should fail")
	}
	if _, ok := w.Block(pos); ok {
		t.Fatal("Block on unloaded chunk should report not loaded")
	}

	w.LoadChunkSync(pos.Chunk())
	if !w.SetBlock(pos, BlockTypeStone) {
		t.Fatal("SetBlock on loaded chunk failed")
	}
	if b, ok := w.Block(pos); !ok || b != BlockTypeStone {
		t.Errorf("Block = %v,%v, want stone,true", b, ok)
	}
	if !w.RemoveBlock(pos) {
		t.Fatal("RemoveBlock on loaded chunk failed")
	}
	if b, _ := w.Block(pos); b != BlockTypeAir {
		t.Errorf("Block after RemoveBlock = %v, want air", b)
	}
}

func TestChunkReleasesBlocksWhenEmpty(t *testing.T) {
	c := NewChunk(0, 0, 0)
	c.SetBlock(1, 1, 1, BlockTypeDirt)
	c.SetBlock(1, 1, 1, BlockTypeAir)
	if !c.IsEmpty() {
		t.Error("chunk should be empty after clearing its only block")
	}
	if c.blocks != nil {
		t.Error("all-air chunk should release its block array")
	}
}

func TestDrainDirty(t *testing.T) {
	w := NewEmpty()
	a := ChunkCoord{0, 0, 0}
	b := ChunkCoord{1, 0, 0}
	w.LoadChunkSync(a)
	w.LoadChunkSync(b)
	w.DrainDirty()

	w.MarkChunkDirty(b)
	w.SetBlock(BlockPos{1, 1, 1}, BlockTypeDirt)
	w.MarkChunkDirty(ChunkCoord{9, 9, 9}) // not loaded, ignored

	got := w.DrainDirty()
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Errorf("DrainDirty = %v, want [%v %v]", got, a, b)
	}
	if again := w.DrainDirty(); len(again) != 0 {
		t.Errorf("second DrainDirty = %v, want empty", again)
	}
}

func TestChunkHooks(t *testing.T) {
	w := New(NewFlatGenerator(2, 4))
	var loaded, unloaded []ChunkCoord
	w.OnChunkLoad(func(c *Chunk) { loaded = append(loaded, c.Coord()) })
	w.OnChunkUnload(func(c *Chunk) { unloaded = append(unloaded, c.Coord()) })

	coords := w.LoadAroundSync(0, 0, 1, 0, 0)
	if len(coords) != 5 || len(loaded) != 5 {
		t.Fatalf("loaded %d/%d chunks, want 5", len(coords), len(loaded))
	}
	if w.TotalWater() != float64(5*ChunkSize*ChunkSize*2) {
		t.Errorf("TotalWater = %v", w.TotalWater())
	}

	evicted := w.EvictFarChunks(5, 5, 0)
	if len(evicted) != 5 || len(unloaded) != 5 {
		t.Errorf("evicted %d/%d chunks, want 5", len(evicted), len(unloaded))
	}
	if w.ChunkExists(ChunkCoord{0, 0, 0}) {
		t.Error("chunk should be gone after eviction")
	}
}

func TestStreamerInstallsOnUpdate(t *testing.T) {
	w := New(NewFlatGenerator(3, 1))
	s := w.StartStreaming()
	defer w.Close()

	want := s.RequestAround(0, 0, 1, 0, 1)
	if want != 10 {
		t.Fatalf("queued %d jobs, want 10", want)
	}

	deadline := time.Now().Add(5 * time.Second)
	got := 0
	for got < want && time.Now().Before(deadline) {
		got += len(w.Update())
		time.Sleep(5 * time.Millisecond)
	}
	if got != want {
		t.Fatalf("installed %d chunks, want %d", got, want)
	}
	if b, ok := w.Block(BlockPos{0, 3, 0}); !ok || b != BlockTypeGrass {
		t.Errorf("streamed chunk block = %v,%v, want grass", b, ok)
	}
}

func TestRestoreWaterSyncsMarkers(t *testing.T) {
	c := NewChunk(0, 0, 0)
	NewFlatGenerator(1, 3).PopulateChunk(c)

	keep := fluid.Pos{X: 0, Y: 2, Z: 0}
	st := fluid.NewStorage()
	st.Set(keep, 0.5)
	st.Set(fluid.Pos{X: 1, Y: 5, Z: 1}, 0.25)

	c.RestoreWater(st)

	if c.Water != st {
		t.Fatal("chunk should own the restored storage")
	}
	if got := c.GetBlock(keep.X, keep.Y, keep.Z); got != BlockTypeWater {
		t.Errorf("kept cell block = %v, want water", got)
	}
	if got := c.GetBlock(1, 5, 1); got != BlockTypeWater {
		t.Errorf("new wet cell block = %v, want water", got)
	}
	if got := c.GetBlock(3, 3, 3); got != BlockTypeAir {
		t.Errorf("dried cell block = %v, want air", got)
	}
	if got := c.GetBlock(3, 1, 3); got != BlockTypeSand {
		t.Errorf("terrain block = %v, want sand", got)
	}
}

func TestStreamerKeepsFinishedChunkPending(t *testing.T) {
	w := New(NewFlatGenerator(2, 1))
	s := w.StartStreaming()
	defer w.Close()

	coord := ChunkCoord{X: 3, Y: 0, Z: -2}
	if !s.Request(coord) {
		t.Fatal("first Request should queue a job")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		s.readyMu.Lock()
		n := len(s.ready)
		s.readyMu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("chunk was never generated")
		}
		time.Sleep(time.Millisecond)
	}

	if s.Request(coord) {
		t.Error("Request for a generated but untaken chunk should not queue again")
	}
	if got := s.Pending(); got != 1 {
		t.Errorf("Pending before install = %d, want 1", got)
	}

	if loaded := w.Update(); len(loaded) != 1 || loaded[0] != coord {
		t.Fatalf("Update = %v, want [%v]", loaded, coord)
	}
	if got := s.Pending(); got != 0 {
		t.Errorf("Pending after install = %d, want 0", got)
	}
	if s.Request(coord) {
		t.Error("Request for an installed chunk should not queue")
	}
}

func TestInstallSkipsHooksForLoadedChunk(t *testing.T) {
	w := NewEmpty()
	hooks := 0
	w.OnChunkLoad(func(*Chunk) { hooks++ })

	coord := ChunkCoord{X: 1, Y: 0, Z: 1}
	first := w.LoadChunkSync(coord)
	if hooks != 1 {
		t.Fatalf("hooks after first load = %d, want 1", hooks)
	}

	if w.install(NewChunk(coord.X, coord.Y, coord.Z)) {
		t.Error("install should reject a chunk that is already loaded")
	}
	if hooks != 1 {
		t.Errorf("hooks after rejected install = %d, want 1", hooks)
	}
	if c, _ := w.Chunk(coord); c != first {
		t.Error("rejected install replaced the loaded chunk")
	}
}
