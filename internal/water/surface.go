package water

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"voxelwater/internal/fluid"
)

// stableSpread is the largest volume spread a flat patch may have and still
// count as stable.
const stableSpread = 0.01

// SolidAboveFunc reports whether the voxel at the given chunk-local position
// (which may be one past the top of the chunk) blocks a surface below it.
// Water stored in the same chunk is checked separately.
type SolidAboveFunc func(above fluid.Pos) bool

// SurfaceCell is a water cell open to the air above it.
type SurfaceCell struct {
	Pos     fluid.Pos
	Volume  float64
	PatchID int
}

// SurfaceHeight is the surface height inside the voxel.
func (c SurfaceCell) SurfaceHeight() float64 {
	return c.Volume * fluid.FullWaterHeight
}

// SurfacePatch is a connected group of surface cells.
type SurfacePatch struct {
	ID    int
	Cells []fluid.Pos
	Min   fluid.Pos
	Max   fluid.Pos
	// AvgY is the mean voxel Y of the member cells.
	AvgY   float64
	Stable bool
}

// Centroid returns the chunk-local center of the patch top, at average height.
func (p *SurfacePatch) Centroid(s *ChunkSurfaces) mgl32.Vec3 {
	if len(p.Cells) == 0 {
		return mgl32.Vec3{}
	}
	var sum mgl32.Vec3
	for _, pos := range p.Cells {
		h := float32(0)
		if c, ok := s.cells[pos]; ok {
			h = float32(c.SurfaceHeight())
		}
		sum = sum.Add(mgl32.Vec3{float32(pos.X) + 0.5, float32(pos.Y) + h, float32(pos.Z) + 0.5})
	}
	return sum.Mul(1 / float32(len(p.Cells)))
}

// ChunkSurfaces is the derived surface view of one chunk's water.
type ChunkSurfaces struct {
	// Generation increases on every rebuild.
	Generation uint64
	Patches    []*SurfacePatch
	cells      map[fluid.Pos]SurfaceCell
}

// NewChunkSurfaces returns an empty surface set.
func NewChunkSurfaces() *ChunkSurfaces {
	return &ChunkSurfaces{cells: make(map[fluid.Pos]SurfaceCell)}
}

// DetectSurfaces builds the surfaces of st.
func DetectSurfaces(st *fluid.Storage, solidAbove SolidAboveFunc) *ChunkSurfaces {
	s := NewChunkSurfaces()
	s.Rebuild(st, solidAbove)
	return s
}

// Rebuild recomputes the surface cells and patches from st.
func (s *ChunkSurfaces) Rebuild(st *fluid.Storage, solidAbove SolidAboveFunc) {
	s.Generation++
	s.Patches = s.Patches[:0]
	clear(s.cells)

	positions := st.Positions()
	surface := positions[:0:0]
	for _, p := range positions {
		above := p.Add(0, 1, 0)
		if st.Has(above) {
			continue
		}
		if solidAbove != nil && solidAbove(above) {
			continue
		}
		s.cells[p] = SurfaceCell{Pos: p, Volume: st.Volume(p), PatchID: -1}
		surface = append(surface, p)
	}

	// Flood fill with an explicit stack; seeds are visited in Pos.Less order
	// so ids are reproducible.
	var stack []fluid.Pos
	for _, seed := range surface {
		if s.cells[seed].PatchID >= 0 {
			continue
		}
		patch := &SurfacePatch{ID: len(s.Patches), Min: seed, Max: seed}
		s.assign(seed, patch.ID)
		stack = append(stack[:0], seed)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			patch.Cells = append(patch.Cells, p)
			for _, d := range lateralOffsets {
				for dy := -1; dy <= 1; dy++ {
					n := p.Add(d[0], dy, d[1])
					c, ok := s.cells[n]
					if !ok || c.PatchID >= 0 {
						continue
					}
					s.assign(n, patch.ID)
					stack = append(stack, n)
				}
			}
		}
		s.finish(patch)
		s.Patches = append(s.Patches, patch)
	}
}

func (s *ChunkSurfaces) assign(p fluid.Pos, id int) {
	c := s.cells[p]
	c.PatchID = id
	s.cells[p] = c
}

func (s *ChunkSurfaces) finish(patch *SurfacePatch) {
	sort.Slice(patch.Cells, func(i, j int) bool { return patch.Cells[i].Less(patch.Cells[j]) })
	minVol, maxVol := math.Inf(1), math.Inf(-1)
	sumY := 0.0
	for _, p := range patch.Cells {
		patch.Min = fluid.Pos{X: min(patch.Min.X, p.X), Y: min(patch.Min.Y, p.Y), Z: min(patch.Min.Z, p.Z)}
		patch.Max = fluid.Pos{X: max(patch.Max.X, p.X), Y: max(patch.Max.Y, p.Y), Z: max(patch.Max.Z, p.Z)}
		sumY += float64(p.Y)
		v := s.cells[p].Volume
		minVol = math.Min(minVol, v)
		maxVol = math.Max(maxVol, v)
	}
	patch.AvgY = sumY / float64(len(patch.Cells))
	patch.Stable = patch.Min.Y == patch.Max.Y && maxVol-minVol <= stableSpread
}

// lateralOffsets are the (dx, dz) steps in BlockPos.Lateral order.
var lateralOffsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

// Len returns the number of surface cells.
func (s *ChunkSurfaces) Len() int {
	return len(s.cells)
}

// Cell returns the surface cell at p.
func (s *ChunkSurfaces) Cell(p fluid.Pos) (SurfaceCell, bool) {
	c, ok := s.cells[p]
	return c, ok
}

// IsSurface reports whether p is a surface cell.
func (s *ChunkSurfaces) IsSurface(p fluid.Pos) bool {
	_, ok := s.cells[p]
	return ok
}

// PatchOf returns the patch containing p.
func (s *ChunkSurfaces) PatchOf(p fluid.Pos) (*SurfacePatch, bool) {
	c, ok := s.cells[p]
	if !ok || c.PatchID < 0 || c.PatchID >= len(s.Patches) {
		return nil, false
	}
	return s.Patches[c.PatchID], true
}

// Cells returns every surface cell in Pos.Less order.
func (s *ChunkSurfaces) Cells() []SurfaceCell {
	out := make([]SurfaceCell, 0, len(s.cells))
	for _, c := range s.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pos.Less(out[j].Pos) })
	return out
}

// Clone returns a deep copy that is safe to hand to another goroutine.
func (s *ChunkSurfaces) Clone() *ChunkSurfaces {
	out := &ChunkSurfaces{
		Generation: s.Generation,
		Patches:    make([]*SurfacePatch, len(s.Patches)),
		cells:      make(map[fluid.Pos]SurfaceCell, len(s.cells)),
	}
	for i, p := range s.Patches {
		cp := *p
		cp.Cells = append([]fluid.Pos(nil), p.Cells...)
		out.Patches[i] = &cp
	}
	for k, v := range s.cells {
		out.cells[k] = v
	}
	return out
}
