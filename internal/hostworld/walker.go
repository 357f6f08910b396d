package hostworld

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"voxelscan.ai/internal/scan/geom"
)

// Walker drives the observer through the world: every step it digs a two
// high tunnel one voxel forward, occasionally turns, and keeps the chunk
// window centered on the new position.
type Walker struct {
	host   *Host
	world  *World
	loader *Loader
	rng    *geom.Stream
	log    zerolog.Logger

	dir int // index into headings
}

var headings = [4]geom.Vec3i{{X: 1}, {Z: 1}, {X: -1}, {Z: -1}}

func NewWalker(host *Host, w *World, loader *Loader, seed int64, log zerolog.Logger) *Walker {
	return &Walker{
		host:   host,
		world:  w,
		loader: loader,
		rng:    geom.NewStream(seed),
		log:    log.With().Str("component", "walker").Logger(),
	}
}

// Step advances one voxel and returns the new position.
func (k *Walker) Step(ctx context.Context) (geom.Vec3i, error) {
	if k.rng.Intn(24) == 0 {
		k.dir = (k.dir + 1 + 2*k.rng.Intn(2)) % len(headings)
	}
	next := k.host.Position().Offset(headings[k.dir])
	if _, _, err := k.loader.Update(ctx, next); err != nil {
		return k.host.Position(), err
	}
	k.world.SetBlock(next, Air)
	k.world.SetBlock(next.Add(0, 1, 0), Air)
	k.host.MoveTo(next)
	return next, nil
}

// Run steps every interval until ctx ends.
func (k *Walker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pos, err := k.Step(ctx)
			if err != nil {
				return err
			}
			k.log.Trace().Int("x", pos.X).Int("y", pos.Y).Int("z", pos.Z).Msg("step")
		}
	}
}
