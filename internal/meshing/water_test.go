package meshing

import (
	"math"
	"testing"
	"time"

	"voxelwater/internal/fluid"
	"voxelwater/internal/water"
	"voxelwater/internal/world"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-5
}

func TestSingleCellQuad(t *testing.T) {
	st := fluid.NewStorage()
	st.Set(fluid.Pos{X: 2, Y: 3, Z: 4}, 1.0)
	s := water.DetectSurfaces(st, nil)

	coord := world.ChunkCoord{X: 1, Y: 0, Z: -1}
	v := BuildWaterSurfaceMesh(coord, s)
	if len(v) != 6*FloatsPerVertex {
		t.Fatalf("got %d floats, want %d", len(v), 6*FloatsPerVertex)
	}
	wantY := float32(3 + fluid.FullWaterHeight - 0.001)
	for i := 0; i < len(v); i += FloatsPerVertex {
		x, y, z := v[i], v[i+1], v[i+2]
		if x < 18 || x > 19 || z < -12 || z > -11 {
			t.Errorf("vertex %d at (%v,%v,%v) outside the cell", i/FloatsPerVertex, x, y, z)
		}
		if !near(y, wantY) {
			t.Errorf("vertex %d height %v, want %v", i/FloatsPerVertex, y, wantY)
		}
		if v[i+3] != 0 {
			t.Errorf("patch id %v, want 0", v[i+3])
		}
	}
}

func TestSharedCornersAreAveraged(t *testing.T) {
	st := fluid.NewStorage()
	st.Set(fluid.Pos{X: 0, Y: 0, Z: 0}, 1.0)
	st.Set(fluid.Pos{X: 1, Y: 0, Z: 0}, 0.5)
	s := water.DetectSurfaces(st, nil)

	v := BuildWaterSurfaceMesh(world.ChunkCoord{}, s)
	if len(v) != 12*FloatsPerVertex {
		t.Fatalf("got %d floats", len(v))
	}
	shared := float32((1.0+0.5)/2*fluid.FullWaterHeight) - 0.001
	for i := 0; i < len(v); i += FloatsPerVertex {
		if v[i] == 1 && !near(v[i+1], shared) {
			t.Errorf("corner at x=1 height %v, want %v", v[i+1], shared)
		}
	}
}

func TestEmptySurfaces(t *testing.T) {
	if v := BuildWaterSurfaceMesh(world.ChunkCoord{}, nil); v != nil {
		t.Error("nil surfaces should give no vertices")
	}
	if v := BuildWaterSurfaceMesh(world.ChunkCoord{}, water.NewChunkSurfaces()); v != nil {
		t.Error("empty surfaces should give no vertices")
	}
}

func TestWorkerPool(t *testing.T) {
	p := NewWorkerPool(2, 8)
	defer p.Shutdown()

	st := fluid.NewStorage()
	st.Set(fluid.Pos{X: 1, Y: 1, Z: 1}, 0.5)
	s := water.DetectSurfaces(st, nil)

	results := make(chan MeshResult, 4)
	for i := 0; i < 4; i++ {
		job := MeshJob{Coord: world.ChunkCoord{X: i}, Surfaces: s.Clone(), Tick: 7, ResultChan: results}
		if !p.SubmitJob(job) {
			t.Fatalf("job %d rejected", i)
		}
	}

	seen := make(map[int]bool)
	timeout := time.After(5 * time.Second)
	for len(seen) < 4 {
		select {
		case r := <-results:
			if len(r.Vertices) != 6*FloatsPerVertex || r.Tick != 7 || r.Generation != s.Generation {
				t.Errorf("bad result %+v", r)
			}
			seen[r.Coord.X] = true
		case <-timeout:
			t.Fatalf("got %d results before timeout", len(seen))
		}
	}

	p.Shutdown()
	if p.SubmitJob(MeshJob{ResultChan: results}) {
		t.Error("stopped pool accepted a job")
	}
}

func BenchmarkBuildWaterSurfaceMesh(b *testing.B) {
	st := fluid.NewStorage()
	for x := 0; x < world.ChunkSize; x++ {
		for z := 0; z < world.ChunkSize; z++ {
			st.Set(fluid.Pos{X: x, Y: 6, Z: z}, 0.5+float64(x+z)/64)
		}
	}
	s := water.DetectSurfaces(st, nil)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = BuildWaterSurfaceMesh(world.ChunkCoord{}, s)
	}
}
