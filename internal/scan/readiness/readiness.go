// Package readiness gates voxel reads on partitions that hold real data.
// Reading an unloaded partition would report placeholder air or solid and
// skew every count built on top of it.
package readiness

import (
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
)

// RegionReady reports whether every partition overlapped by the footprint
// of a cubic volume of the given size anchored at (x, z) is loaded.
// The far edge is inclusive, so a partition-aligned volume also requires
// its next neighbor.
func RegionReady(w oracle.World, x, z, size int) bool {
	startPX := geom.Partition(x)
	endPX := geom.Partition(x + size)
	startPZ := geom.Partition(z)
	endPZ := geom.Partition(z + size)

	for px := startPX; px <= endPX; px++ {
		for pz := startPZ; pz <= endPZ; pz++ {
			if !w.Loaded(px, pz) {
				return false
			}
		}
	}
	return true
}

// PartitionReady reports whether the partition containing p is loaded.
func PartitionReady(w oracle.World, p geom.Vec3i) bool {
	return w.Loaded(geom.Partition(p.X), geom.Partition(p.Z))
}
