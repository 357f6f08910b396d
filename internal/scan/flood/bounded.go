// Package flood measures voxel connectivity with breadth-first fills.
package flood

import (
	"context"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
	"voxelscan.ai/internal/scan/readiness"
)

// Bounded counts face-connected air voxels reachable from seed, staying
// within radiusSq of center and inside loaded partitions. It stops as soon as
// nodeLimit voxels have been dequeued, so a result equal to nodeLimit means
// the region is at least that large.
//
// The caller guarantees seed is air and not sky exposed; a seed that is
// solid or outside the radius yields 0. Cancellation is checked on every
// dequeue and returns the count so far with ctx.Err().
func Bounded(ctx context.Context, w oracle.World, seed, center geom.Vec3i, radiusSq int64, nodeLimit int) (int, error) {
	if nodeLimit <= 0 {
		return 0, nil
	}
	if seed.DistSq(center) > radiusSq || !w.Voxel(seed).Air() {
		return 0, nil
	}

	visited := map[geom.Vec3i]struct{}{seed: {}}
	queue := []geom.Vec3i{seed}
	count := 0

	for head := 0; head < len(queue); head++ {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		pos := queue[head]
		count++
		if count >= nodeLimit {
			return count, nil
		}

		for _, off := range geom.FaceOffsets {
			next := pos.Offset(off)
			if next.DistSq(center) > radiusSq {
				continue
			}
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			if !readiness.PartitionReady(w, next) {
				continue
			}
			if !w.Voxel(next).Air() {
				continue
			}
			queue = append(queue, next)
		}
	}
	return count, nil
}
