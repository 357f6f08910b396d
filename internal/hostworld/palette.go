package hostworld

import "voxelscan.ai/internal/scan/oracle"

// Block ids. The zero id is air so a fresh chunk slice is empty space.
const (
	Air uint16 = iota
	Stone
	Dirt
	Grass
	Deepslate
	Bedrock
	CoalOre
	IronOre
	GoldOre
	LapisOre
	DiamondOre
	EmeraldOre
	DeepslateCoalOre
	DeepslateIronOre
	DeepslateGoldOre
	DeepslateDiamondOre
	AncientDebris
)

var blockNames = []string{
	Air:                 "air",
	Stone:               "stone",
	Dirt:                "dirt",
	Grass:               "grass",
	Deepslate:           "deepslate",
	Bedrock:             "bedrock",
	CoalOre:             "coal_ore",
	IronOre:             "iron_ore",
	GoldOre:             "gold_ore",
	LapisOre:            "lapis_ore",
	DiamondOre:          "diamond_ore",
	EmeraldOre:          "emerald_ore",
	DeepslateCoalOre:    "deepslate_coal_ore",
	DeepslateIronOre:    "deepslate_iron_ore",
	DeepslateGoldOre:    "deepslate_gold_ore",
	DeepslateDiamondOre: "deepslate_diamond_ore",
	AncientDebris:       "ancient_debris",
}

// voxels is the oracle view of every id. Ores carry their block name as the
// material tag; plain terrain is untagged solid.
var voxels = func() []oracle.Voxel {
	out := make([]oracle.Voxel, len(blockNames))
	for id, name := range blockNames {
		switch uint16(id) {
		case Air:
			out[id] = oracle.Air
		case Stone, Dirt, Grass, Deepslate, Bedrock:
			out[id] = oracle.Voxel{Solid: true}
		default:
			out[id] = oracle.Voxel{Solid: true, Material: oracle.Material(name)}
		}
	}
	return out
}()

func BlockName(id uint16) string {
	if int(id) >= len(blockNames) {
		return "unknown"
	}
	return blockNames[id]
}

// BlockID looks a block up by name.
func BlockID(name string) (uint16, bool) {
	for id, n := range blockNames {
		if n == name {
			return uint16(id), true
		}
	}
	return 0, false
}

// VoxelOf maps a block id to its oracle classification. Unknown ids read as
// untagged solid.
func VoxelOf(id uint16) oracle.Voxel {
	if int(id) >= len(voxels) {
		return oracle.Voxel{Solid: true}
	}
	return voxels[id]
}
