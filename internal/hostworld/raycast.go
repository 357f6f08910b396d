package hostworld

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscan.ai/internal/scan/geom"
)

// Raycast walks the voxels crossed by the segment from -> to (Amanatides &
// Woo) and returns the first solid one, including the voxel holding to.
// Unloaded voxels read as air.
func (w *World) Raycast(from, to mgl64.Vec3) (geom.Vec3i, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cur := geom.Floor(from)
	end := geom.Floor(to)
	d := to.Sub(from)

	var step [3]int
	var tMax, tDelta [3]float64
	for i := 0; i < 3; i++ {
		c := [3]int{cur.X, cur.Y, cur.Z}[i]
		switch {
		case d[i] > 0:
			step[i] = 1
			tDelta[i] = 1 / d[i]
			tMax[i] = (float64(c+1) - from[i]) / d[i]
		case d[i] < 0:
			step[i] = -1
			tDelta[i] = -1 / d[i]
			tMax[i] = (float64(c) - from[i]) / d[i]
		default:
			tDelta[i] = math.Inf(1)
			tMax[i] = math.Inf(1)
		}
	}

	maxSteps := geom.AbsInt(end.X-cur.X) + geom.AbsInt(end.Y-cur.Y) + geom.AbsInt(end.Z-cur.Z) + 1
	for n := 0; n <= maxSteps; n++ {
		if id, _ := w.blockLocked(cur); VoxelOf(id).Solid {
			return cur, true
		}
		if cur == end {
			break
		}
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if tMax[axis] > 1 {
			break
		}
		switch axis {
		case 0:
			cur.X += step[0]
		case 1:
			cur.Y += step[1]
		case 2:
			cur.Z += step[2]
		}
		tMax[axis] += tDelta[axis]
	}
	return geom.Vec3i{}, false
}
