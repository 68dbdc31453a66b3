package world

import (
	"testing"

	"voxelwater/internal/fluid"
)

func TestGeneratorsImplementInterface(t *testing.T) {
	var _ TerrainGenerator = NewGenerator(123, 20)
	var _ TerrainGenerator = NewFlatGenerator(10, 5)
}

func TestFlatGeneratorPopulate(t *testing.T) {
	c := NewChunk(0, 0, 0)
	NewFlatGenerator(5, 3).PopulateChunk(c)

	if b := c.GetBlock(0, 0, 0); b != BlockTypeBedrock {
		t.Errorf("Expected Bedrock at 0,0,0, got %v", b)
	}
	for y := 2; y < 5; y++ {
		if b := c.GetBlock(0, y, 0); b != BlockTypeDirt {
			t.Errorf("Expected Dirt at 0,%d,0, got %v", y, b)
		}
	}
	if b := c.GetBlock(0, 5, 0); b != BlockTypeGrass {
		t.Errorf("Expected Grass at 0,5,0, got %v", b)
	}
	if b := c.GetBlock(0, 6, 0); b != BlockTypeAir {
		t.Errorf("Expected Air at 0,6,0, got %v", b)
	}
	if c.Water.Len() != 0 {
		t.Errorf("sea below ground should leave no water, got %d cells", c.Water.Len())
	}
}

func TestFlatGeneratorSeedsSea(t *testing.T) {
	c := NewChunk(0, 0, 0)
	NewFlatGenerator(4, 8).PopulateChunk(c)

	if b := c.GetBlock(3, 4, 3); b != BlockTypeSand {
		t.Errorf("Expected Sand under the sea, got %v", b)
	}
	for y := 5; y <= 8; y++ {
		p := fluid.Pos{X: 3, Y: y, Z: 3}
		if got := c.Water.Volume(p); got != fluid.MaxVolume {
			t.Errorf("expected full water at y=%d, got %v", y, got)
		}
		if b := c.GetBlock(3, y, 3); b != BlockTypeWater {
			t.Errorf("expected water marker at y=%d, got %v", y, b)
		}
	}
	if c.Water.Has(fluid.Pos{X: 3, Y: 9, Z: 3}) {
		t.Error("expected no water above sea level")
	}
	if want := ChunkSize * ChunkSize * 4; c.Water.Len() != want {
		t.Errorf("expected %d water cells, got %d", want, c.Water.Len())
	}
}

func TestNoiseGeneratorDeterministic(t *testing.T) {
	for _, coord := range []ChunkCoord{{0, 0, 0}, {1, 1, 0}, {-1, 0, -1}} {
		a := NewChunk(coord.X, coord.Y, coord.Z)
		b := NewChunk(coord.X, coord.Y, coord.Z)
		NewGenerator(12345, 20).PopulateChunk(a)
		NewGenerator(12345, 20).PopulateChunk(b)

		for x := range ChunkSize {
			for y := range ChunkSize {
				for z := range ChunkSize {
					if a.GetBlock(x, y, z) != b.GetBlock(x, y, z) {
						t.Fatalf("%v not deterministic at %d,%d,%d", coord, x, y, z)
					}
				}
			}
		}
		if a.Water.TotalVolume() != b.Water.TotalVolume() {
			t.Errorf("%v water differs between runs", coord)
		}
	}
}

func BenchmarkPopulateChunk(b *testing.B) {
	g := NewGenerator(1, 20)
	for i := 0; i < b.N; i++ {
		g.PopulateChunk(NewChunk(i%8, 1, 0))
	}
}
