// Package veins finds exposed clusters of searched materials.
//
// Each pass first drops members that were mined out or left behind, then
// looks for exposed seeds inside freshly discovered cave volumes, around the
// observer, or both. Every new seed is grown into its full connected vein.
package veins

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
	"voxelscan.ai/internal/scan/visibility"
)

// CaveSource exposes the cave worker's output. ok is false while the cave
// worker is inactive.
type CaveSource interface {
	CaveVolumes() (caves *discovery.Set, volumeSize int, ok bool)
}

type CaveSourceFunc func() (*discovery.Set, int, bool)

func (f CaveSourceFunc) CaveVolumes() (*discovery.Set, int, bool) { return f() }

type Options struct {
	Sink   discovery.Sink
	Logger zerolog.Logger
	Clock  func() time.Time
	RunID  string
}

type Finder struct {
	cfg      config.Veins
	host     oracle.Host
	caves    CaveSource
	sink     discovery.Sink
	log      zerolog.Logger
	announce zerolog.Logger
	now      func() time.Time
	runID    string
	ins      *instruments

	materials map[oracle.Material]bool

	found *discovery.Set
	// scanned holds cave origins already searched this activation.
	scanned *discovery.Set
	vis     *visibility.Cache
}

func New(cfg config.Veins, host oracle.Host, caves CaveSource, los oracle.LineOfSight, opts Options) *Finder {
	if opts.Sink == nil {
		opts.Sink = discovery.Discard
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	log := opts.Logger.With().Str("component", "veins").Logger()
	f := &Finder{
		cfg:   cfg,
		host:  host,
		caves: caves,
		sink:  opts.Sink,
		log:   log,
		announce: log.Sample(&zerolog.BurstSampler{
			Burst:       5,
			Period:      10 * time.Second,
			NextSampler: &zerolog.BasicSampler{N: 100},
		}),
		now:       opts.Clock,
		runID:     opts.RunID,
		materials: map[oracle.Material]bool{},
		found:     discovery.NewSet(),
		scanned:   discovery.NewSet(),
		vis:       visibility.New(los, cfg.VisibilityTTL(), opts.Clock),
	}
	for _, m := range cfg.Materials {
		f.materials[oracle.Material(m)] = true
	}
	ins, err := newInstruments()
	if err != nil {
		f.log.Warn().Err(err).Msg("vein metrics disabled")
	}
	f.ins = ins
	return f
}

// Found is the live vein member set.
func (f *Finder) Found() *discovery.Set { return f.found }

// ScannedCaves reports how many cave volumes have been searched.
func (f *Finder) ScannedCaves() int { return f.scanned.Len() }

// IsVisible classifies a member for rendering: true when the observer's eye
// has a clear line to it. An absent observer sees nothing.
func (f *Finder) IsVisible(p geom.Vec3i) bool {
	obs, ok := f.host.Observer()
	if !ok {
		return false
	}
	return f.vis.IsVisible(obs.Eye, p)
}

func (f *Finder) Reset() {
	f.found.Clear()
	f.scanned.Clear()
	f.vis.Clear()
}

func (f *Finder) searched(v oracle.Voxel) bool {
	return v.Solid && f.materials[v.Material]
}

func (f *Finder) Pass(ctx context.Context) error {
	w, obs, err := oracle.Acquire(f.host)
	if err != nil {
		return err
	}
	f.cleanup(w, obs.Pos)

	if f.cfg.ScanMode.ScansCaves() {
		if err := f.scanCaves(ctx, w); err != nil {
			return err
		}
	}
	if f.cfg.ScanMode.ScansObserver() {
		if err := f.scanAround(ctx, w, obs.Pos); err != nil {
			return err
		}
	}
	return nil
}

// cleanup drops members that no longer hold a searched material or lie
// beyond the despawn distance.
func (f *Finder) cleanup(w oracle.World, pos geom.Vec3i) {
	d := int64(f.cfg.DespawnDistance)
	despawnSq := d * d
	removed := f.found.RemoveIf(func(p geom.Vec3i) bool {
		return !f.searched(w.Voxel(p)) || pos.DistSq(p) > despawnSq
	})
	if removed > 0 {
		f.log.Debug().Int("removed", removed).Msg("vein members dropped")
	}
}

func (f *Finder) scanCaves(ctx context.Context, w oracle.World) error {
	if f.caves == nil {
		return nil
	}
	caves, size, ok := f.caves.CaveVolumes()
	if !ok || caves == nil || caves.Len() == 0 {
		return nil
	}
	var err error
	caves.Range(func(origin geom.Vec3i) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		if !f.scanned.Add(origin) {
			return true
		}
		err = f.scanVolume(ctx, w, origin, size)
		return err == nil
	})
	return err
}

func (f *Finder) scanVolume(ctx context.Context, w oracle.World, origin geom.Vec3i, size int) error {
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			for z := 0; z < size; z++ {
				p := origin.Add(x, y, z)
				if !readiness.PartitionReady(w, p) {
					continue
				}
				if err := f.inspect(ctx, w, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// scanAround visits every loaded partition overlapping a horizontal disc
// around the observer.
func (f *Finder) scanAround(ctx context.Context, w oracle.World, pos geom.Vec3i) error {
	r := f.cfg.ObserverRadius
	rSq := r * r
	minY, maxY := w.Bounds()
	yLo := max(minY, pos.Y-r)
	yHi := min(maxY-1, pos.Y+r)

	for px := geom.Partition(pos.X - r); px <= geom.Partition(pos.X+r); px++ {
		for pz := geom.Partition(pos.Z - r); pz <= geom.Partition(pos.Z+r); pz++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !w.Loaded(px, pz) {
				continue
			}
			x0, z0 := px*geom.PartitionSize, pz*geom.PartitionSize
			for x := x0; x < x0+geom.PartitionSize; x++ {
				for z := z0; z < z0+geom.PartitionSize; z++ {
					dx, dz := x-pos.X, z-pos.Z
					if dx*dx+dz*dz > rSq {
						continue
					}
					if err := ctx.Err(); err != nil {
						return err
					}
					for y := yLo; y <= yHi; y++ {
						if err := f.inspect(ctx, w, geom.Vec3i{X: x, Y: y, Z: z}); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

// inspect seeds a vein at p if p is an exposed, not yet known member.
func (f *Finder) inspect(ctx context.Context, w oracle.World, p geom.Vec3i) error {
	v := w.Voxel(p)
	if !f.searched(v) || f.found.Contains(p) || !exposed(w, p) {
		return nil
	}
	added, err := flood.GrowCluster(ctx, w, p, v.Material, f.found)
	if len(added) > 0 {
		f.announceVein(p, v.Material, len(added))
	}
	return err
}

// exposed reports whether any face neighbor of p is air.
func exposed(w oracle.World, p geom.Vec3i) bool {
	for _, off := range geom.FaceOffsets {
		if w.Voxel(p.Offset(off)).Air() {
			return true
		}
	}
	return false
}

func (f *Finder) announceVein(seed geom.Vec3i, m oracle.Material, size int) {
	f.ins.recordVein(m)
	if f.cfg.Announce {
		f.announce.Info().Str("material", string(m)).Int("size", size).Msg("found vein")
	}
	ev := discovery.Event{
		Time:     f.now(),
		RunID:    f.runID,
		Kind:     discovery.KindVein,
		Pos:      seed.Array(),
		Material: string(m),
		Size:     size,
	}
	if err := f.sink.Record(ev); err != nil {
		f.log.Warn().Err(err).Msg("recording vein event")
	}
}
