package sampler

import (
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
)

// EstimateSamples is the number of voxels QuickAirEstimate reads.
const EstimateSamples = 12

// QuickAirEstimate samples EstimateSamples voxels of the cube at offsets
// drawn from a stream seeded by the volume key, and accepts the volume if at
// least a fifth of them are air.
func QuickAirEstimate(w oracle.World, origin geom.Vec3i, size int) bool {
	if size <= 0 {
		return false
	}
	rnd := geom.NewStream(geom.VolumeKey(origin))
	air := 0
	for i := 0; i < EstimateSamples; i++ {
		p := origin.Add(rnd.Intn(size), rnd.Intn(size), rnd.Intn(size))
		if w.Voxel(p).Air() {
			air++
		}
	}
	return air*5 >= EstimateSamples
}

// CountAirWithEarlyExit counts air voxels in the cube, x-major then y then z.
// It returns the partial count as soon as air+remaining drops below
// threshold. A threshold <= 0 never exits early.
func CountAirWithEarlyExit(w oracle.World, origin geom.Vec3i, size, threshold int) int {
	if size <= 0 {
		return 0
	}
	air := 0
	remaining := size * size * size
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			for z := 0; z < size; z++ {
				if w.Voxel(origin.Add(x, y, z)).Air() {
					air++
				}
				remaining--
				if air+remaining < threshold {
					return air
				}
			}
		}
	}
	return air
}
