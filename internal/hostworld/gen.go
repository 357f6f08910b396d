package hostworld

import (
	"voxelscan.ai/internal/scan/geom"
)

// Gen is a deterministic terrain generator: value-noise surface, ellipsoid
// cave rooms on a 3D grid, and small ore blobs banded by depth.
type Gen struct {
	Seed int64 `json:"seed"`

	MinY int `json:"min_y"`
	// MaxY is exclusive.
	MaxY int `json:"max_y"`

	SurfaceY   int `json:"surface_y"`
	SurfaceAmp int `json:"surface_amp"`
	// Stone below DeepslateY generates as deepslate, with deepslate ores.
	DeepslateY int `json:"deepslate_y"`

	CaveGrid     int    `json:"cave_grid"`
	CaveRadius   int    `json:"cave_radius"`
	CavePermille uint64 `json:"cave_permille"`

	OreGrid     int    `json:"ore_grid"`
	OrePermille uint64 `json:"ore_permille"`
}

func DefaultGen(seed int64) Gen {
	return Gen{
		Seed:         seed,
		MinY:         -64,
		MaxY:         320,
		SurfaceY:     64,
		SurfaceAmp:   10,
		DeepslateY:   0,
		CaveGrid:     40,
		CaveRadius:   14,
		CavePermille: 450,
		OreGrid:      5,
		OrePermille:  90,
	}
}

func (g Gen) Height() int { return g.MaxY - g.MinY }

const (
	surfaceSalt = 0x5f3759df
	caveSalt    = 0x2545f491
	oreSalt     = 0x9e3779b9
)

// Generate fills a chunk's blocks.
func (g Gen) Generate(ch *Chunk) {
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			s := g.SurfaceAt(wx, wz)
			for y := g.MinY; y < g.MaxY && y <= s; y++ {
				ch.Blocks[ch.index(x, y-g.MinY, z)] = g.block(wx, y, wz, s)
			}
		}
	}
}

// Block generates a single voxel. Generate is the fast path for whole chunks.
func (g Gen) Block(x, y, z int) uint16 {
	if y < g.MinY || y >= g.MaxY {
		return Air
	}
	return g.block(x, y, z, g.SurfaceAt(x, z))
}

func (g Gen) block(x, y, z, surface int) uint16 {
	switch {
	case y > surface:
		return Air
	case y == g.MinY:
		return Bedrock
	case y < surface-6 && y > g.MinY+2 && g.inCave(x, y, z):
		return Air
	case y == surface:
		return Grass
	case y > surface-4:
		return Dirt
	}
	if ore := g.oreAt(x, y, z); ore != Air {
		return ore
	}
	if y < g.DeepslateY {
		return Deepslate
	}
	return Stone
}

// SurfaceAt is bilinear value noise over a 32-block lattice.
func (g Gen) SurfaceAt(x, z int) int {
	const cell = 32
	gx, gz := geom.FloorDiv(x, cell), geom.FloorDiv(z, cell)
	fx := float64(geom.Mod(x, cell)) / cell
	fz := float64(geom.Mod(z, cell)) / cell
	fx = fx * fx * (3 - 2*fx)
	fz = fz * fz * (3 - 2*fz)

	v00 := g.lattice(gx, gz)
	v10 := g.lattice(gx+1, gz)
	v01 := g.lattice(gx, gz+1)
	v11 := g.lattice(gx+1, gz+1)
	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	n := top + (bot-top)*fz
	return g.SurfaceY + int(float64(g.SurfaceAmp)*(2*n-1))
}

func (g Gen) lattice(gx, gz int) float64 {
	return float64(geom.Hash2(g.Seed^surfaceSalt, gx, gz)%10_000) / 10_000
}

// inCave tests the ellipsoid rooms of the 27 grid cells around (x, y, z).
// Each selected cell holds one flattened room centered somewhere inside it.
func (g Gen) inCave(x, y, z int) bool {
	grid := g.CaveGrid
	if grid <= 0 || g.CaveRadius <= 0 || g.CavePermille == 0 {
		return false
	}
	gx, gy, gz := geom.FloorDiv(x, grid), geom.FloorDiv(y, grid), geom.FloorDiv(z, grid)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				cgx, cgy, cgz := gx+dx, gy+dy, gz+dz
				h := geom.Hash3(g.Seed^caveSalt, cgx, cgy, cgz)
				if h%1000 >= g.CavePermille {
					continue
				}
				cx := cgx*grid + int((h>>10)%uint64(grid))
				cy := cgy*grid + int((h>>20)%uint64(grid))
				cz := cgz*grid + int((h>>30)%uint64(grid))

				rx := float64(g.CaveRadius) * (0.6 + float64((h>>40)%60)/100)
				rz := float64(g.CaveRadius) * (0.6 + float64((h>>46)%60)/100)
				ry := rx * 0.45
				fx := float64(x-cx) / rx
				fy := float64(y-cy) / ry
				fz := float64(z-cz) / rz
				if fx*fx+fy*fy+fz*fz <= 1 {
					return true
				}
			}
		}
	}
	return false
}

var (
	shallowOres = []uint16{CoalOre, CoalOre, CoalOre, IronOre, IronOre, GoldOre, LapisOre, EmeraldOre}
	midOres     = []uint16{CoalOre, IronOre, IronOre, GoldOre, LapisOre, DiamondOre}
	deepOres    = []uint16{DeepslateCoalOre, DeepslateIronOre, DeepslateGoldOre, DeepslateDiamondOre, DeepslateDiamondOre, AncientDebris}
)

// oreAt places at most one blob per ore grid cell, kept inside the cell so
// only the containing cell needs checking.
func (g Gen) oreAt(x, y, z int) uint16 {
	grid := g.OreGrid
	if grid < 3 || g.OrePermille == 0 {
		return Air
	}
	gx, gy, gz := geom.FloorDiv(x, grid), geom.FloorDiv(y, grid), geom.FloorDiv(z, grid)
	h := geom.Hash3(g.Seed^oreSalt, gx, gy, gz)
	if h%1000 >= g.OrePermille {
		return Air
	}
	span := uint64(grid - 2)
	cx := gx*grid + 1 + int((h>>10)%span)
	cy := gy*grid + 1 + int((h>>16)%span)
	cz := gz*grid + 1 + int((h>>22)%span)
	dx, dy, dz := x-cx, y-cy, z-cz
	r2 := 1 + int((h>>28)%2)
	if dx*dx+dy*dy+dz*dz > r2 {
		return Air
	}

	var band []uint16
	switch {
	case y < g.DeepslateY:
		band = deepOres
	case y < 32:
		band = midOres
	default:
		band = shallowOres
	}
	return band[(h>>36)%uint64(len(band))]
}
