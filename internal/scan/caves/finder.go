// Package caves finds large enclosed air volumes around the observer.
//
// A pass walks a grid of cubic volumes centered on the observer. Each volume
// goes through the cheap-then-exact air sampler, and the survivors are
// size-qualified by a bounded flood fill from the volume center. Qualifying
// volume origins make up the cave set, which is rebuilt from scratch on
// every pass.
package caves

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"voxelscan.ai/internal/scan/config"
	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/flood"
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
	"voxelscan.ai/internal/scan/readiness"
	"voxelscan.ai/internal/scan/sampler"
	"voxelscan.ai/internal/scan/ttlcache"
)

// Hard caps on the scanned box regardless of configuration.
const (
	MaxHorizontalRadius = 128
	MaxVerticalRadius   = 64
)

type Options struct {
	Sink   discovery.Sink
	Logger zerolog.Logger
	Clock  func() time.Time
	RunID  string
}

type Finder struct {
	cfg   config.Caves
	host  oracle.Host
	sink  discovery.Sink
	log   zerolog.Logger
	now   func() time.Time
	runID string
	ins   *instruments

	found   *discovery.Set
	// checked maps a volume key to its connected size, 0 for a rejection.
	checked *ttlcache.Cache[int64, int]
	// announced holds origins already reported to the sink this activation.
	// Only the pass goroutine touches it.
	announced map[geom.Vec3i]struct{}
}

func New(cfg config.Caves, host oracle.Host, opts Options) *Finder {
	if opts.Sink == nil {
		opts.Sink = discovery.Discard
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	f := &Finder{
		cfg:       cfg,
		host:      host,
		sink:      opts.Sink,
		log:       opts.Logger.With().Str("component", "caves").Logger(),
		now:       opts.Clock,
		runID:     opts.RunID,
		found:     discovery.NewSet(),
		checked:   ttlcache.New[int64, int](cfg.CacheTTL()),
		announced: map[geom.Vec3i]struct{}{},
	}
	ins, err := newInstruments()
	if err != nil {
		f.log.Warn().Err(err).Msg("cave metrics disabled")
	}
	f.ins = ins
	return f
}

// Found is the live cave set. Readers may iterate it while a pass runs.
func (f *Finder) Found() *discovery.Set { return f.found }

func (f *Finder) VolumeSize() int { return f.cfg.VolumeSize }

// CachedVolumes reports how many volume keys the result cache holds.
func (f *Finder) CachedVolumes() int { return f.checked.Len() }

// Reset drops every discovery and cache entry.
func (f *Finder) Reset() {
	f.found.Clear()
	f.checked.Clear()
	clear(f.announced)
}

// Pass rescans the grid around the observer. It returns oracle.ErrUnavailable
// if the world or observer is absent and ctx.Err() once cancelled; a
// cancelled pass leaves the set holding only what it found so far.
func (f *Finder) Pass(ctx context.Context) error {
	w, obs, err := oracle.Acquire(f.host)
	if err != nil {
		return err
	}
	f.found.Clear()

	step := f.cfg.VolumeSize
	if step <= 0 {
		return nil
	}
	limit := f.cfg.FloodLimit(w.Local())
	h := min(f.cfg.HorizontalRadius, MaxHorizontalRadius)
	v := min(f.cfg.VerticalRadius, MaxVerticalRadius)
	minY, _ := w.Bounds()
	p := obs.Pos
	yLo := max(minY, p.Y-v)
	yHi := min(f.cfg.MaxScanHeight, p.Y+v)
	radiusSq := int64(f.cfg.HorizontalRadius) * int64(f.cfg.HorizontalRadius)

	for x := p.X - h; x <= p.X+h; x += step {
		if err := ctx.Err(); err != nil {
			return err
		}
		for z := p.Z - h; z <= p.Z+h; z += step {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !readiness.RegionReady(w, x, z, step) {
				continue
			}
			for y := yLo; y <= yHi; y += step {
				if err := ctx.Err(); err != nil {
					return err
				}
				origin := geom.Vec3i{X: x, Y: y, Z: z}
				res, size, err := f.evaluate(ctx, w, origin, p, radiusSq, limit)
				if err != nil {
					return err
				}
				f.ins.recordVolume(res)
				if size > 0 && (res == resultQualified || res == resultCached) {
					f.add(origin, size)
				}
			}
		}
	}
	return nil
}

type result string

const (
	resultCached    result = "cached"
	resultEstimate  result = "estimate_rejected"
	resultCount     result = "count_rejected"
	resultSeed      result = "seed_rejected"
	resultFlood     result = "flood_rejected"
	resultQualified result = "qualified"
)

func (f *Finder) evaluate(ctx context.Context, w oracle.World, origin, observer geom.Vec3i, radiusSq int64, limit int) (result, int, error) {
	step := f.cfg.VolumeSize
	key := geom.VolumeKey(origin)
	now := f.now()
	if n, fresh := f.checked.Fresh(key, now); fresh {
		return resultCached, n, nil
	}
	if !sampler.QuickAirEstimate(w, origin, step) {
		f.checked.Put(key, 0, now)
		return resultEstimate, 0, nil
	}
	air := sampler.CountAirWithEarlyExit(w, origin, step, f.cfg.MinAirBlocks)
	f.checked.Put(key, 0, now)
	if air < f.cfg.MinAirBlocks {
		return resultCount, 0, nil
	}

	center := origin.Add(step/2, step/2, step/2)
	if !w.Voxel(center).Air() || w.SkyVisible(center) {
		return resultSeed, 0, nil
	}
	n, err := flood.Bounded(ctx, w, center, observer, radiusSq, limit)
	if err != nil {
		return "", 0, err
	}
	if n < f.cfg.MinConnectedAir {
		return resultFlood, 0, nil
	}
	// A fresh entry replays the verdict so the rebuilt set keeps this cave.
	f.checked.Put(key, n, now)
	return resultQualified, n, nil
}

func (f *Finder) add(origin geom.Vec3i, size int) {
	f.found.Add(origin)
	if _, seen := f.announced[origin]; seen {
		return
	}
	f.announced[origin] = struct{}{}
	f.log.Debug().Int("x", origin.X).Int("y", origin.Y).Int("z", origin.Z).Int("connected", size).Msg("cave found")
	ev := discovery.Event{
		Time:  f.now(),
		RunID: f.runID,
		Kind:  discovery.KindCave,
		Pos:   origin.Array(),
		Size:  size,
	}
	if err := f.sink.Record(ev); err != nil {
		f.log.Warn().Err(err).Msg("recording cave event")
	}
}
