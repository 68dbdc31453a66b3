package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"voxelwater/internal/fluid"
	"voxelwater/internal/world"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "saves", "water.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveLoad(t *testing.T) {
	s := openTestStore(t)
	coord := world.ChunkCoord{X: 2, Y: -1, Z: 5}

	if _, err := s.LoadChunk(coord); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing chunk: err = %v, want ErrNotFound", err)
	}

	st := sampleStorage()
	if err := s.SaveChunk(coord, st); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}
	got, err := s.LoadChunk(coord)
	if err != nil {
		t.Fatalf("LoadChunk: %v", err)
	}
	if got.Len() != st.Len() || got.TotalVolume() != st.TotalVolume() {
		t.Errorf("loaded %d cells / %v, want %d / %v", got.Len(), got.TotalVolume(), st.Len(), st.TotalVolume())
	}

	// Saving again replaces the row.
	st.Remove(fluid.Pos{X: 0, Y: 0, Z: 0})
	if err := s.SaveChunk(coord, st); err != nil {
		t.Fatalf("SaveChunk: %v", err)
	}
	got, _ = s.LoadChunk(coord)
	if got.Len() != 2 {
		t.Errorf("after overwrite Len = %d, want 2", got.Len())
	}
	if n, _ := s.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	if err := s.DeleteChunk(coord); err != nil {
		t.Fatalf("DeleteChunk: %v", err)
	}
	if _, err := s.LoadChunk(coord); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted chunk: err = %v, want ErrNotFound", err)
	}
}

func TestStoreSaveAll(t *testing.T) {
	s := openTestStore(t)
	chunks := map[world.ChunkCoord]*fluid.Storage{
		{X: 0}: sampleStorage(),
		{X: 1}: fluid.NewStorage(),
		{Z: 9}: sampleStorage(),
	}
	n, err := s.SaveAll(chunks)
	if err != nil || n != 3 {
		t.Fatalf("SaveAll = %d,%v", n, err)
	}
	if c, _ := s.Count(); c != 3 {
		t.Errorf("Count = %d, want 3", c)
	}
	empty, err := s.LoadChunk(world.ChunkCoord{X: 1})
	if err != nil || empty.Len() != 0 {
		t.Errorf("empty chunk = %v,%v", empty, err)
	}
}

func TestLoadChunkReportsCorruptSave(t *testing.T) {
	s := openTestStore(t)
	coord := world.ChunkCoord{X: -3, Y: 0, Z: 4}
	m := modelFor(coord, sampleStorage())
	m.Data = m.Data[:len(m.Data)-2]
	if err := s.db.Save(&m).Error; err != nil {
		t.Fatalf("write corrupt row: %v", err)
	}

	if _, err := s.LoadChunk(coord); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
	if err := s.DeleteChunk(coord); err != nil {
		t.Fatalf("DeleteChunk: %v", err)
	}
	if n, _ := s.Count(); n != 0 {
		t.Errorf("Count after delete = %d, want 0", n)
	}
}
