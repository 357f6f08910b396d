// Package geom holds the integer voxel geometry shared by every scan stage:
// coordinates, partition math, cache keys and deterministic hashing.
package geom

import "github.com/go-gl/mathgl/mgl64"

// PartitionSize is the horizontal width of a loadable world column.
const PartitionSize = 16

type Vec3i struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (v Vec3i) Add(dx, dy, dz int) Vec3i {
	return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

func (v Vec3i) Offset(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// DistSq is the squared euclidean distance between two voxel coordinates.
func (v Vec3i) DistSq(o Vec3i) int64 {
	dx := int64(v.X - o.X)
	dy := int64(v.Y - o.Y)
	dz := int64(v.Z - o.Z)
	return dx*dx + dy*dy + dz*dz
}

// Center is the world-space center of the voxel cell.
func (v Vec3i) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(v.X) + 0.5, float64(v.Y) + 0.5, float64(v.Z) + 0.5}
}

func (v Vec3i) Array() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Floor returns the voxel containing a world-space point.
func Floor(p mgl64.Vec3) Vec3i {
	return Vec3i{X: floorInt(p[0]), Y: floorInt(p[1]), Z: floorInt(p[2])}
}

func floorInt(f float64) int {
	i := int(f)
	if float64(i) > f {
		i--
	}
	return i
}

// Partition returns the partition (column) index along one horizontal axis.
func Partition(v int) int {
	return FloorDiv(v, PartitionSize)
}

// FaceOffsets are the six face-adjacent neighbor offsets.
var FaceOffsets = [6]Vec3i{
	{X: 0, Y: -1, Z: 0},
	{X: 0, Y: 1, Z: 0},
	{X: 0, Y: 0, Z: -1},
	{X: 0, Y: 0, Z: 1},
	{X: -1, Y: 0, Z: 0},
	{X: 1, Y: 0, Z: 0},
}

// CubeOffsets are the 26 neighbors of the surrounding 3x3x3 block.
var CubeOffsets = func() [26]Vec3i {
	var out [26]Vec3i
	i := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			for dz := -1; dz <= 1; dz++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[i] = Vec3i{X: dx, Y: dy, Z: dz}
				i++
			}
		}
	}
	return out
}()
