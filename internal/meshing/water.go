package meshing

import (
	"github.com/go-gl/mathgl/mgl32"

	"voxelwater/internal/fluid"
	"voxelwater/internal/water"
	"voxelwater/internal/world"
)

// FloatsPerVertex is the vertex layout of water meshes: Pos(3), PatchID(1).
const FloatsPerVertex = 4

// surfaceMargin keeps the water top from z-fighting with a block face above.
const surfaceMargin = float32(0.001)

// BuildWaterSurfaceMesh emits one top quad (two triangles) per surface cell
// of a chunk, in world coordinates. Corner heights are averaged over the
// surface cells at the same Y that share the corner, so neighboring cells
// with different volumes form a continuous slope.
func BuildWaterSurfaceMesh(coord world.ChunkCoord, s *water.ChunkSurfaces) []float32 {
	if s == nil || s.Len() == 0 {
		return nil
	}
	base := coord.Origin()
	origin := mgl32.Vec3{float32(base.X), float32(base.Y), float32(base.Z)}
	vertices := make([]float32, 0, s.Len()*6*FloatsPerVertex)

	for _, c := range s.Cells() {
		p := c.Pos
		cell := origin.Add(mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)})

		// Corners in quad order: NW, SW, SE, NE.
		nw := cell.Add(mgl32.Vec3{0, cornerHeight(s, p.X, p.Y, p.Z), 0})
		sw := cell.Add(mgl32.Vec3{0, cornerHeight(s, p.X, p.Y, p.Z+1), 1})
		se := cell.Add(mgl32.Vec3{1, cornerHeight(s, p.X+1, p.Y, p.Z+1), 1})
		ne := cell.Add(mgl32.Vec3{1, cornerHeight(s, p.X+1, p.Y, p.Z), 0})

		patch := float32(c.PatchID)
		emitVertex(&vertices, nw, patch)
		emitVertex(&vertices, sw, patch)
		emitVertex(&vertices, se, patch)

		emitVertex(&vertices, nw, patch)
		emitVertex(&vertices, se, patch)
		emitVertex(&vertices, ne, patch)
	}
	return vertices
}

func emitVertex(vertices *[]float32, v mgl32.Vec3, patch float32) {
	*vertices = append(*vertices, v.X(), v.Y(), v.Z(), patch)
}

// cornerHeight averages the surface heights of the up to four cells around
// the corner (x, z) at layer y.
func cornerHeight(s *water.ChunkSurfaces, x, y, z int) float32 {
	count := 0
	sum := float32(0)
	for j := 0; j < 4; j++ {
		dx := -(j & 1)
		dz := -(j >> 1 & 1)
		c, ok := s.Cell(fluid.Pos{X: x + dx, Y: y, Z: z + dz})
		if !ok {
			continue
		}
		sum += float32(c.SurfaceHeight())
		count++
	}
	if count == 0 {
		return 0
	}
	return sum/float32(count) - surfaceMargin
}
