package water

import (
	"math"
	"testing"

	"voxelwater/internal/fluid"
	"voxelwater/internal/world"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// newTestWorld loads empty chunks at coords.
func newTestWorld(coords ...world.ChunkCoord) *world.World {
	w := world.NewEmpty()
	for _, c := range coords {
		w.LoadChunkSync(c)
	}
	return w
}

// newTestEngine builds an engine and announces every loaded chunk.
func newTestEngine(w *world.World, params Params) *Engine {
	e := NewEngine(w, params)
	for _, cc := range w.Store().GetAllChunks() {
		e.HandleEvent(ChunkLoaded{Coord: cc.Coord})
	}
	return e
}

func setWater(t testing.TB, w *world.World, p world.BlockPos, vol float64) {
	t.Helper()
	st, ok := w.WaterStorage(p.Chunk())
	if !ok {
		t.Fatalf("chunk of %v not loaded", p)
	}
	st.Set(p.Local(), vol)
	w.SetBlock(p, world.BlockTypeWater)
}

func setStone(t testing.TB, w *world.World, p world.BlockPos) {
	t.Helper()
	if !w.SetBlock(p, world.BlockTypeStone) {
		t.Fatalf("chunk of %v not loaded", p)
	}
}

func volume(w *world.World, p world.BlockPos) float64 {
	v, _ := w.WaterVolume(p)
	return v
}

// floor puts stone at y over the XZ rectangle [x0,x1) x [z0,z1).
func floor(t testing.TB, w *world.World, y, x0, x1, z0, z1 int) {
	t.Helper()
	for x := x0; x < x1; x++ {
		for z := z0; z < z1; z++ {
			setStone(t, w, world.BlockPos{X: x, Y: y, Z: z})
		}
	}
}

func runUntilIdle(t testing.TB, e *Engine, maxTicks int) int {
	t.Helper()
	for i := 0; i < maxTicks; i++ {
		e.Tick()
		if e.Idle() {
			return i + 1
		}
	}
	t.Fatalf("engine still busy after %d ticks", maxTicks)
	return maxTicks
}

// checkCells verifies the volume range and block markers of every stored cell.
func checkCells(t testing.TB, w *world.World) {
	t.Helper()
	for _, cc := range w.Store().GetAllChunks() {
		cc.Chunk.Water.Each(func(p fluid.Pos, c fluid.Cell) {
			gp := cc.Coord.Global(p)
			if c.Volume < fluid.MinVolume || c.Volume > fluid.MaxVolume {
				t.Errorf("volume %v at %v out of range", c.Volume, gp)
			}
			if b, _ := w.Block(gp); b != world.BlockTypeWater {
				t.Errorf("wet cell %v has block %v, want water", gp, b)
			}
		})
	}
}

// checkConservation compares the world total against initial minus what the
// engine reports as dropped or lost.
func checkConservation(t testing.TB, w *world.World, e *Engine, initial float64) {
	t.Helper()
	s := e.Stats()
	got := w.TotalWater() + s.Dropped + s.OverflowLost - s.SourceVolume
	if math.Abs(got-initial) > 1e-6 {
		t.Errorf("volume not conserved: total=%v dropped=%v lost=%v, want %v",
			w.TotalWater(), s.Dropped, s.OverflowLost, initial)
	}
}
