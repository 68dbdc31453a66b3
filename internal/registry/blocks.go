package registry

import (
	"fmt"

	"voxelwater/internal/world"
)

// Hitbox classifies how a block interacts with water.
type Hitbox uint8

const (
	// HitboxNone has no collision at all (air, water).
	HitboxNone Hitbox = iota
	// HitboxNonSolid collides with entities selectively but lets water through.
	HitboxNonSolid
	// HitboxSolid blocks water completely.
	HitboxSolid
)

func (h Hitbox) String() string {
	switch h {
	case HitboxNone:
		return "none"
	case HitboxNonSolid:
		return "non_solid"
	case HitboxSolid:
		return "solid"
	default:
		return fmt.Sprintf("hitbox(%d)", uint8(h))
	}
}

// BlockDefinition defines the properties of a block type
type BlockDefinition struct {
	ID       world.BlockType
	Name     string
	Hitbox   Hitbox
	Hardness float32
}

var (
	Blocks     = make(map[world.BlockType]*BlockDefinition)
	BlockNames = make(map[string]world.BlockType)
)

func RegisterBlock(def *BlockDefinition) {
	Blocks[def.ID] = def
	BlockNames[def.Name] = def.ID
}

func init() {
	InitRegistry()
}

// InitRegistry registers the built-in blocks. It is idempotent.
func InitRegistry() {
	RegisterBlock(&BlockDefinition{
		ID:     world.BlockTypeAir,
		Name:   "air",
		Hitbox: HitboxNone,
	})

	// Water is never solid for flow purposes.
	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeWater,
		Name:     "water",
		Hitbox:   HitboxNone,
		Hardness: 100.0,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeGrass,
		Name:     "grass",
		Hitbox:   HitboxSolid,
		Hardness: 0.6,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeDirt,
		Name:     "dirt",
		Hitbox:   HitboxSolid,
		Hardness: 0.5,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeStone,
		Name:     "stone",
		Hitbox:   HitboxSolid,
		Hardness: 1.5,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeCobblestone,
		Name:     "cobblestone",
		Hitbox:   HitboxSolid,
		Hardness: 2.0,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeBedrock,
		Name:     "bedrock",
		Hitbox:   HitboxSolid,
		Hardness: -1.0, // Unbreakable
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeSand,
		Name:     "sand",
		Hitbox:   HitboxSolid,
		Hardness: 0.5,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypeGlass,
		Name:     "glass",
		Hitbox:   HitboxSolid,
		Hardness: 0.3,
	})

	RegisterBlock(&BlockDefinition{
		ID:       world.BlockTypePlanksOak,
		Name:     "oak_planks",
		Hitbox:   HitboxSolid,
		Hardness: 2.0,
	})

	// Plants and torches sit inside water without displacing it.
	RegisterBlock(&BlockDefinition{
		ID:     world.BlockTypeTallGrass,
		Name:   "tall_grass",
		Hitbox: HitboxNonSolid,
	})

	RegisterBlock(&BlockDefinition{
		ID:     world.BlockTypeTorch,
		Name:   "torch",
		Hitbox: HitboxNonSolid,
	})
}

// HitboxOf returns the hitbox of a block. Unknown blocks are solid.
func HitboxOf(b world.BlockType) Hitbox {
	if def, ok := Blocks[b]; ok {
		return def.Hitbox
	}
	return HitboxSolid
}

// IsSolid reports whether water is blocked by b.
func IsSolid(b world.BlockType) bool {
	return HitboxOf(b) == HitboxSolid
}

// Lookup finds a block by name.
func Lookup(name string) (world.BlockType, bool) {
	id, ok := BlockNames[name]
	return id, ok
}
