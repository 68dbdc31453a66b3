// Package fluid holds the per-chunk water volume store.
//
// A Storage is a sparse map from chunk-local voxel position to a clamped
// scalar volume. Cells below MinVolume are never stored: writing such a
// volume is the same as removing the cell.
package fluid

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"voxelwater/internal/logger"
)

const (
	// MaxVolume is a completely full voxel.
	MaxVolume = 1.0
	// MinVolume is the smallest volume a stored cell may hold.
	MinVolume = 0.001
	// FullWaterHeight maps a full cell to its surface height inside the voxel (14/16).
	FullWaterHeight = 0.875

	// volumeEpsilon absorbs floating point noise when checking the range invariant.
	volumeEpsilon = 1e-9
)

// Pos is a chunk-local voxel coordinate.
type Pos struct {
	X, Y, Z int
}

// Add returns p offset by (dx, dy, dz).
func (p Pos) Add(dx, dy, dz int) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy, Z: p.Z + dz}
}

// Less orders positions bottom-up, then by X, then by Z.
func (p Pos) Less(o Pos) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Z < o.Z
}

// Cell is a single stored water voxel.
type Cell struct {
	Volume float64
}

// SurfaceHeight is the height of the water column inside the voxel.
func (c Cell) SurfaceHeight() float64 {
	return c.Volume * FullWaterHeight
}

// Storage is the sparse water volume map of one chunk.
type Storage struct {
	cells map[Pos]Cell
}

// NewStorage creates an empty store.
func NewStorage() *Storage {
	return &Storage{cells: make(map[Pos]Cell)}
}

// Get returns the cell at p, if any.
func (s *Storage) Get(p Pos) (Cell, bool) {
	c, ok := s.cells[p]
	return c, ok
}

// Has reports whether p holds water.
func (s *Storage) Has(p Pos) bool {
	_, ok := s.cells[p]
	return ok
}

// Volume returns the volume at p, 0 when empty.
func (s *Storage) Volume(p Pos) float64 {
	return s.cells[p].Volume
}

// Set stores v at p. Volumes below MinVolume remove the cell.
func (s *Storage) Set(p Pos, v float64) {
	v = checkVolume(p, v)
	if v < MinVolume {
		delete(s.cells, p)
		return
	}
	s.cells[p] = Cell{Volume: v}
}

// Remove deletes the cell at p and returns the volume it held.
func (s *Storage) Remove(p Pos) float64 {
	c, ok := s.cells[p]
	if !ok {
		return 0
	}
	delete(s.cells, p)
	return c.Volume
}

// AddVolume adds amount at p, capping at MaxVolume. The returned overflow is
// everything that was not stored, including an amount too small to create a
// cell on its own.
func (s *Storage) AddVolume(p Pos, amount float64) (overflow float64) {
	if amount <= 0 {
		return 0
	}
	cur := s.cells[p].Volume
	next := cur + amount
	if next > MaxVolume {
		overflow = next - MaxVolume
		next = MaxVolume
	}
	if next < MinVolume {
		return amount
	}
	s.cells[p] = Cell{Volume: next}
	return overflow
}

// RemoveVolume takes up to amount from p and returns what was taken. When the
// residue would fall below MinVolume the whole cell is taken, so the result
// can exceed amount by less than MinVolume.
func (s *Storage) RemoveVolume(p Pos, amount float64) (removed float64) {
	if amount <= 0 {
		return 0
	}
	cur := s.cells[p].Volume
	if cur == 0 {
		return 0
	}
	removed = math.Min(amount, cur)
	if cur-removed < MinVolume {
		delete(s.cells, p)
		return cur
	}
	s.cells[p] = Cell{Volume: cur - removed}
	return removed
}

// Len returns the number of stored cells.
func (s *Storage) Len() int {
	return len(s.cells)
}

// TotalVolume sums every stored cell.
func (s *Storage) TotalVolume() float64 {
	total := 0.0
	for _, c := range s.cells {
		total += c.Volume
	}
	return total
}

// Each calls fn for every stored cell in unspecified order.
func (s *Storage) Each(fn func(p Pos, c Cell)) {
	for p, c := range s.cells {
		fn(p, c)
	}
}

// Positions returns the stored positions in Pos.Less order.
func (s *Storage) Positions() []Pos {
	out := make([]Pos, 0, len(s.cells))
	for p := range s.cells {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Clone returns an independent copy.
func (s *Storage) Clone() *Storage {
	out := &Storage{cells: make(map[Pos]Cell, len(s.cells))}
	for p, c := range s.cells {
		out.cells[p] = c
	}
	return out
}

// checkVolume enforces 0 <= v <= MaxVolume. Debug builds panic; release
// builds report the violation and clamp so persisted data stays in range.
func checkVolume(p Pos, v float64) float64 {
	if !math.IsNaN(v) && v >= -volumeEpsilon && v <= MaxVolume+volumeEpsilon {
		return math.Min(math.Max(v, 0), MaxVolume)
	}
	assertf(false, "water volume %v out of range at %+v", v, p)
	logger.Named("fluid").Error("water volume out of range",
		zap.Float64("volume", v),
		zap.Int("x", p.X), zap.Int("y", p.Y), zap.Int("z", p.Z),
	)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return MaxVolume
}
