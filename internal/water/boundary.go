package water

import (
	"fmt"
	"math"

	"voxelwater/internal/fluid"
	"voxelwater/internal/world"
)

// Face is one of the six sides of a chunk.
type Face uint8

const (
	FacePosX Face = iota
	FaceNegX
	FacePosY
	FaceNegY
	FacePosZ
	FaceNegZ
)

// Faces lists every face in declaration order.
var Faces = [6]Face{FacePosX, FaceNegX, FacePosY, FaceNegY, FacePosZ, FaceNegZ}

var faceOffsets = [6][3]int{
	FacePosX: {1, 0, 0},
	FaceNegX: {-1, 0, 0},
	FacePosY: {0, 1, 0},
	FaceNegY: {0, -1, 0},
	FacePosZ: {0, 0, 1},
	FaceNegZ: {0, 0, -1},
}

var faceNames = [6]string{"+x", "-x", "+y", "-y", "+z", "-z"}

func (f Face) String() string {
	if int(f) < len(faceNames) {
		return faceNames[f]
	}
	return fmt.Sprintf("face(%d)", uint8(f))
}

// Opposite returns the face on the other side of the shared plane.
// Faces are declared in pairs, so flipping the low bit is an involution.
func (f Face) Opposite() Face {
	return f ^ 1
}

// Offset is the chunk coordinate step across f.
func (f Face) Offset() [3]int {
	return faceOffsets[f]
}

// Neighbor returns the chunk sharing face f with c.
func (f Face) Neighbor(c world.ChunkCoord) world.ChunkCoord {
	o := faceOffsets[f]
	return c.Add(o[0], o[1], o[2])
}

// Contains reports whether the local position lies on f.
func (f Face) Contains(p fluid.Pos) bool {
	const last = world.ChunkSize - 1
	switch f {
	case FacePosX:
		return p.X == last
	case FaceNegX:
		return p.X == 0
	case FacePosY:
		return p.Y == last
	case FaceNegY:
		return p.Y == 0
	case FacePosZ:
		return p.Z == last
	case FaceNegZ:
		return p.Z == 0
	}
	return false
}

// FaceCoord is a position within a face, made of the two axes parallel to it.
type FaceCoord struct {
	U, V int
}

// FaceCoordOf projects a local position onto f. X faces use (Y, Z), Y faces
// use (X, Z) and Z faces use (X, Y), so a cell and its neighbor across the
// face share the same coordinate.
func FaceCoordOf(f Face, p fluid.Pos) FaceCoord {
	switch f {
	case FacePosX, FaceNegX:
		return FaceCoord{U: p.Y, V: p.Z}
	case FacePosY, FaceNegY:
		return FaceCoord{U: p.X, V: p.Z}
	default:
		return FaceCoord{U: p.X, V: p.Y}
	}
}

// exitFace returns the face crossed when stepping from inside the chunk to
// the out-of-bounds local position p.
func exitFace(p fluid.Pos) (Face, bool) {
	switch {
	case p.X >= world.ChunkSize:
		return FacePosX, true
	case p.X < 0:
		return FaceNegX, true
	case p.Y >= world.ChunkSize:
		return FacePosY, true
	case p.Y < 0:
		return FaceNegY, true
	case p.Z >= world.ChunkSize:
		return FacePosZ, true
	case p.Z < 0:
		return FaceNegZ, true
	}
	return 0, false
}

// BoundaryCell is the snapshot of one face cell.
type BoundaryCell struct {
	Volume  float64
	Surface bool
}

// BoundaryFaceData maps face coordinates to the water on that face.
type BoundaryFaceData struct {
	cells map[FaceCoord]BoundaryCell
}

func newBoundaryFaceData() *BoundaryFaceData {
	return &BoundaryFaceData{cells: make(map[FaceCoord]BoundaryCell)}
}

// Get returns the cell at fc.
func (d *BoundaryFaceData) Get(fc FaceCoord) (BoundaryCell, bool) {
	c, ok := d.cells[fc]
	return c, ok
}

// Set records the cell at fc.
func (d *BoundaryFaceData) Set(fc FaceCoord, c BoundaryCell) {
	d.cells[fc] = c
}

// Len returns the number of wet cells on the face.
func (d *BoundaryFaceData) Len() int {
	return len(d.cells)
}

// ChunkBoundaryWater holds the six face snapshots of a chunk.
type ChunkBoundaryWater struct {
	// Generation increases every time the snapshot is cleared.
	Generation uint64
	faces      [6]*BoundaryFaceData
}

// NewChunkBoundaryWater returns empty faces.
func NewChunkBoundaryWater() *ChunkBoundaryWater {
	b := &ChunkBoundaryWater{}
	for i := range b.faces {
		b.faces[i] = newBoundaryFaceData()
	}
	return b
}

// Face returns the data of face f.
func (b *ChunkBoundaryWater) Face(f Face) *BoundaryFaceData {
	return b.faces[f]
}

// Clear empties every face and bumps the generation.
func (b *ChunkBoundaryWater) Clear() {
	for _, d := range b.faces {
		clear(d.cells)
	}
	b.Generation++
}

// Differs reports whether o differs from b by cell count, membership, surface
// flag, or a volume change larger than tol on any face.
func (b *ChunkBoundaryWater) Differs(o *ChunkBoundaryWater, tol float64) bool {
	for i := range b.faces {
		a, c := b.faces[i], o.faces[i]
		if len(a.cells) != len(c.cells) {
			return true
		}
		for fc, x := range a.cells {
			y, ok := c.cells[fc]
			if !ok || x.Surface != y.Surface || math.Abs(x.Volume-y.Volume) > tol {
				return true
			}
		}
	}
	return false
}

// ExtractChunkBoundaries snapshots every stored cell lying on a chunk face.
// A corner cell is recorded on each face it touches. surfaces may be nil.
func ExtractChunkBoundaries(st *fluid.Storage, surfaces *ChunkSurfaces) *ChunkBoundaryWater {
	b := NewChunkBoundaryWater()
	st.Each(func(p fluid.Pos, c fluid.Cell) {
		for _, f := range Faces {
			if !f.Contains(p) {
				continue
			}
			b.faces[f].cells[FaceCoordOf(f, p)] = BoundaryCell{
				Volume:  c.Volume,
				Surface: surfaces != nil && surfaces.IsSurface(p),
			}
		}
	})
	return b
}

// BoundaryCache keeps the latest face snapshot of every simulated chunk.
type BoundaryCache struct {
	chunks    map[world.ChunkCoord]*ChunkBoundaryWater
	dirty     *ChunkSet
	tolerance float64
}

// NewBoundaryCache creates an empty cache. tol is the per-cell volume change
// that counts as a difference.
func NewBoundaryCache(tol float64) *BoundaryCache {
	return &BoundaryCache{
		chunks:    make(map[world.ChunkCoord]*ChunkBoundaryWater),
		dirty:     NewChunkSet(),
		tolerance: tol,
	}
}

// Refresh re-extracts the faces of coord. When the result differs from the
// cached snapshot the entry is replaced, the chunk is marked dirty and true
// is returned.
func (c *BoundaryCache) Refresh(coord world.ChunkCoord, st *fluid.Storage, surfaces *ChunkSurfaces) bool {
	next := ExtractChunkBoundaries(st, surfaces)
	prev, ok := c.chunks[coord]
	if !ok {
		next.Generation = 1
		c.chunks[coord] = next
		c.dirty.Add(coord)
		return true
	}
	if !prev.Differs(next, c.tolerance) {
		return false
	}
	prev.Clear()
	for i := range prev.faces {
		prev.faces[i] = next.faces[i]
	}
	c.dirty.Add(coord)
	return true
}

// Get returns the cached snapshot of coord.
func (c *BoundaryCache) Get(coord world.ChunkCoord) (*ChunkBoundaryWater, bool) {
	b, ok := c.chunks[coord]
	return b, ok
}

// Lookup reads the cell of chunk coord on face f at fc. cached is false when
// the chunk has no snapshot yet.
func (c *BoundaryCache) Lookup(coord world.ChunkCoord, f Face, fc FaceCoord) (cell BoundaryCell, found, cached bool) {
	b, ok := c.chunks[coord]
	if !ok {
		return BoundaryCell{}, false, false
	}
	cell, found = b.faces[f].Get(fc)
	return cell, found, true
}

// Remove forgets coord.
func (c *BoundaryCache) Remove(coord world.ChunkCoord) {
	delete(c.chunks, coord)
	c.dirty.Remove(coord)
}

// DrainDirty returns the chunks whose snapshot changed since the last call.
func (c *BoundaryCache) DrainDirty() []world.ChunkCoord {
	return c.dirty.Drain()
}

// Len returns the number of cached chunks.
func (c *BoundaryCache) Len() int {
	return len(c.chunks)
}
