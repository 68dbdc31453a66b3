package water

import (
	"testing"

	"voxelwater/internal/fluid"
)

func TestDetectSurfacesSingleCell(t *testing.T) {
	st := fluid.NewStorage()
	p := fluid.Pos{X: 5, Y: 10, Z: 5}
	st.Set(p, 1.0)

	s := DetectSurfaces(st, func(fluid.Pos) bool { return false })
	if s.Len() != 1 || len(s.Patches) != 1 {
		t.Fatalf("got %d cells, %d patches, want 1,1", s.Len(), len(s.Patches))
	}
	patch, ok := s.PatchOf(p)
	if !ok || patch.ID != 0 || len(patch.Cells) != 1 {
		t.Errorf("PatchOf = %+v,%v", patch, ok)
	}
	c := patch.Centroid(s)
	if c.X() != 5.5 || c.Z() != 5.5 || c.Y() != 10.875 {
		t.Errorf("Centroid = %v", c)
	}
}

func TestDetectSurfacesSolidAbove(t *testing.T) {
	st := fluid.NewStorage()
	st.Set(fluid.Pos{X: 5, Y: 10, Z: 5}, 1.0)

	solid := fluid.Pos{X: 5, Y: 11, Z: 5}
	s := DetectSurfaces(st, func(above fluid.Pos) bool { return above == solid })
	if s.Len() != 0 || len(s.Patches) != 0 {
		t.Errorf("got %d cells, %d patches, want 0,0", s.Len(), len(s.Patches))
	}
}

func TestDetectSurfacesWaterAbove(t *testing.T) {
	st := fluid.NewStorage()
	bottom := fluid.Pos{X: 2, Y: 3, Z: 2}
	top := bottom.Add(0, 1, 0)
	st.Set(bottom, 1.0)
	st.Set(top, 0.5)

	s := DetectSurfaces(st, nil)
	if s.IsSurface(bottom) {
		t.Error("cell under water must not be a surface")
	}
	if !s.IsSurface(top) {
		t.Error("cell with open air above must be a surface")
	}
}

func TestSurfacePatchConnectivity(t *testing.T) {
	st := fluid.NewStorage()
	a := fluid.Pos{X: 1, Y: 4, Z: 1}
	b := fluid.Pos{X: 2, Y: 4, Z: 1}  // same Y, adjacent
	c := fluid.Pos{X: 3, Y: 5, Z: 1}  // one step up
	d := fluid.Pos{X: 4, Y: 7, Z: 1}  // two steps up: separate
	far := fluid.Pos{X: 15, Y: 4, Z: 15}
	for _, p := range []fluid.Pos{a, b, c, d, far} {
		st.Set(p, 0.5)
	}

	s := DetectSurfaces(st, nil)
	pa, _ := s.PatchOf(a)
	pb, _ := s.PatchOf(b)
	pc, _ := s.PatchOf(c)
	pd, _ := s.PatchOf(d)
	pf, _ := s.PatchOf(far)
	if pa != pb || pa != pc {
		t.Error("adjacent cells within one step should share a patch")
	}
	if pd == pa || pf == pa || pf == pd {
		t.Error("unconnected cells should be in different patches")
	}
	if len(s.Patches) != 3 {
		t.Errorf("got %d patches, want 3", len(s.Patches))
	}
	if pa.Min != a || pa.Max != c {
		t.Errorf("bounds = %+v..%+v, want %+v..%+v", pa.Min, pa.Max, a, c)
	}
	if pa.Stable {
		t.Error("stepped patch should not be stable")
	}
}

func TestSurfaceLargePoolIsOnePatch(t *testing.T) {
	st := fluid.NewStorage()
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			st.Set(fluid.Pos{X: x, Y: 2, Z: z}, 1.0)
		}
	}
	s := DetectSurfaces(st, nil)
	if len(s.Patches) != 1 || len(s.Patches[0].Cells) != 256 {
		t.Fatalf("got %d patches", len(s.Patches))
	}
	p := s.Patches[0]
	if !p.Stable || p.AvgY != 2 {
		t.Errorf("flat pool: stable=%v avgY=%v", p.Stable, p.AvgY)
	}
}

func TestSurfaceRebuildBumpsGeneration(t *testing.T) {
	st := fluid.NewStorage()
	st.Set(fluid.Pos{X: 1, Y: 1, Z: 1}, 1.0)
	s := DetectSurfaces(st, nil)
	gen := s.Generation
	snap := s.Clone()

	st.Remove(fluid.Pos{X: 1, Y: 1, Z: 1})
	s.Rebuild(st, nil)
	if s.Generation != gen+1 {
		t.Errorf("Generation = %d, want %d", s.Generation, gen+1)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after removing the only cell", s.Len())
	}
	if snap.Len() != 1 || len(snap.Patches) != 1 {
		t.Error("clone changed with the original")
	}
}
