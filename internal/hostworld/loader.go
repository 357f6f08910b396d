package hostworld

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"voxelscan.ai/internal/scan/geom"
)

// Loader keeps a disc of chunks loaded around a point, nearest first, with
// generation throttled by a rate limiter so a fast-moving observer sees the
// world fill in gradually.
type Loader struct {
	w       *World
	radius  int
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewLoader loads chunks within radius (in chunks). perSecond <= 0 loads
// without throttling.
func NewLoader(w *World, radius int, perSecond float64, burst int, log zerolog.Logger) *Loader {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		lim = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
	return &Loader{w: w, radius: radius, limiter: lim, log: log.With().Str("component", "loader").Logger()}
}

// Update loads missing chunks around center and unloads chunks that have
// fallen outside radius+1. It stops early, returning ctx.Err(), if ctx ends
// while waiting on the limiter.
func (l *Loader) Update(ctx context.Context, center geom.Vec3i) (loaded, unloaded int, err error) {
	cx := geom.FloorDiv(center.X, ChunkSize)
	cz := geom.FloorDiv(center.Z, ChunkSize)

	for _, k := range l.w.LoadedChunkKeys() {
		dx, dz := k.CX-cx, k.CZ-cz
		keep := l.radius + 1
		if dx*dx+dz*dz > keep*keep {
			if l.w.UnloadChunk(k.CX, k.CZ) {
				unloaded++
			}
		}
	}

	for _, off := range discOffsets(l.radius) {
		if l.w.Loaded(cx+off[0], cz+off[1]) {
			continue
		}
		if err := l.limiter.Wait(ctx); err != nil {
			return loaded, unloaded, err
		}
		if l.w.LoadChunk(cx+off[0], cz+off[1]) {
			loaded++
		}
	}
	if loaded > 0 || unloaded > 0 {
		l.log.Debug().Int("loaded", loaded).Int("unloaded", unloaded).Int("cx", cx).Int("cz", cz).Msg("chunk window moved")
	}
	return loaded, unloaded, nil
}

// discOffsets lists chunk offsets within radius, nearest first.
func discOffsets(radius int) [][2]int {
	var out [][2]int
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			if x*x+z*z <= radius*radius {
				out = append(out, [2]int{x, z})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		return a[0]*a[0]+a[1]*a[1] < b[0]*b[0]+b[1]*b[1]
	})
	return out
}
