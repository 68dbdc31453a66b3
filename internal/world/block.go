package world

// BlockType identifies a block kind. Hitbox classification lives in the registry.
type BlockType uint16

const (
	BlockTypeAir BlockType = iota
	BlockTypeWater
	BlockTypeGrass
	BlockTypeDirt
	BlockTypeStone
	BlockTypeCobblestone
	BlockTypeBedrock
	BlockTypeSand
	BlockTypeGlass
	BlockTypePlanksOak
	BlockTypeTallGrass
	BlockTypeTorch
)

var blockNames = map[BlockType]string{
	BlockTypeAir:         "air",
	BlockTypeWater:       "water",
	BlockTypeGrass:       "grass",
	BlockTypeDirt:        "dirt",
	BlockTypeStone:       "stone",
	BlockTypeCobblestone: "cobblestone",
	BlockTypeBedrock:     "bedrock",
	BlockTypeSand:        "sand",
	BlockTypeGlass:       "glass",
	BlockTypePlanksOak:   "oak_planks",
	BlockTypeTallGrass:   "tall_grass",
	BlockTypeTorch:       "torch",
}

func (b BlockType) String() string {
	if n, ok := blockNames[b]; ok {
		return n
	}
	return "unknown"
}
