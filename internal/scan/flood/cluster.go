package flood

import (
	"context"

	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
	"voxelscan.ai/internal/scan/readiness"
)

// GrowCluster expands seed over the 26-neighborhood to every connected voxel
// tagged with the same material. Members of found count as visited, and
// every newly reached voxel is added to found immediately so readers see the
// cluster grow. It returns the voxels this call added, seed first if it was
// new. There is no node or distance limit.
func GrowCluster(ctx context.Context, w oracle.World, seed geom.Vec3i, tag oracle.Material, found *discovery.Set) ([]geom.Vec3i, error) {
	if tag == "" || !w.Voxel(seed).Is(tag) {
		return nil, nil
	}

	var added []geom.Vec3i
	if found.Add(seed) {
		added = append(added, seed)
	}

	queue := []geom.Vec3i{seed}
	for head := 0; head < len(queue); head++ {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		cur := queue[head]
		for _, off := range geom.CubeOffsets {
			next := cur.Offset(off)
			if found.Contains(next) {
				continue
			}
			if !readiness.PartitionReady(w, next) {
				continue
			}
			if !w.Voxel(next).Is(tag) {
				continue
			}
			if found.Add(next) {
				added = append(added, next)
				queue = append(queue, next)
			}
		}
	}
	return added, nil
}
