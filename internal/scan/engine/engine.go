// Package engine owns the cave and vein workers and everything they write.
//
// All per-run state (discovery sets, result caches, visibility cache) lives
// in finders created on activation and reset when their worker stops, so a
// reactivated engine always starts empty. Readers use the snapshot, range,
// classify and status methods; none of them block the workers.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voxelscan.ai/internal/scan/caves"
	"voxelscan.ai/internal/scan/config"
	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
	"voxelscan.ai/internal/scan/veins"
	"voxelscan.ai/internal/scan/worker"
)

type Options struct {
	Logger zerolog.Logger
	Sink   discovery.Sink
	Clock  func() time.Time
}

type Engine struct {
	cfg  config.Config
	host oracle.Host
	los  oracle.LineOfSight
	opts Options
	log  zerolog.Logger

	// mu serializes activation changes. Readers never take it.
	mu    sync.Mutex
	runID atomic.Pointer[string]
	caves atomic.Pointer[caveRun]
	veins atomic.Pointer[veinRun]
}

type caveRun struct {
	finder *caves.Finder
	worker *worker.Worker
}

type veinRun struct {
	finder *veins.Finder
	worker *worker.Worker
}

func New(cfg config.Config, host oracle.Host, los oracle.LineOfSight, opts Options) *Engine {
	if opts.Sink == nil {
		opts.Sink = discovery.Discard
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	e := &Engine{
		cfg:  cfg,
		host: host,
		los:  los,
		opts: opts,
		log:  opts.Logger.With().Str("component", "engine").Logger(),
	}
	empty := ""
	e.runID.Store(&empty)
	return e
}

func (e *Engine) Activate(ctx context.Context) {
	e.ActivateCaves(ctx)
	e.ActivateVeins(ctx)
}

func (e *Engine) Deactivate() {
	e.DeactivateVeins()
	e.DeactivateCaves()
}

// ActivateCaves starts a fresh cave worker unless one is already running.
func (e *Engine) ActivateCaves(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if running(e.caves.Load().state()) {
		return
	}
	runID := e.beginRun()
	f := caves.New(e.cfg.Caves, e.host, caves.Options{
		Sink:   e.opts.Sink,
		Logger: e.opts.Logger,
		Clock:  e.opts.Clock,
		RunID:  runID,
	})
	w := worker.Start(ctx, worker.Config{
		Name:     "caves",
		Interval: e.cfg.Interval(e.cfg.Caves.ScanIntervalTicks),
		Pass:     f.Pass,
		OnStop:   f.Reset,
		Logger:   e.log.With().Str("run_id", runID).Logger(),
	})
	e.caves.Store(&caveRun{finder: f, worker: w})
	e.log.Info().Str("run_id", runID).Msg("cave scan activated")
}

func (e *Engine) ActivateVeins(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if running(e.veins.Load().state()) {
		return
	}
	runID := e.beginRun()
	f := veins.New(e.cfg.Veins, e.host, e, e.los, veins.Options{
		Sink:   e.opts.Sink,
		Logger: e.opts.Logger,
		Clock:  e.opts.Clock,
		RunID:  runID,
	})
	w := worker.Start(ctx, worker.Config{
		Name:     "veins",
		Interval: e.cfg.Interval(e.cfg.Veins.ScanIntervalTicks),
		Pass:     f.Pass,
		OnStop:   f.Reset,
		Logger:   e.log.With().Str("run_id", runID).Logger(),
	})
	e.veins.Store(&veinRun{finder: f, worker: w})
	e.log.Info().Str("run_id", runID).Str("mode", string(e.cfg.Veins.ScanMode)).Msg("vein scan activated")
}

// DeactivateCaves stops the cave worker and waits until its state is reset.
func (e *Engine) DeactivateCaves() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.caves.Swap(nil); r != nil {
		r.worker.Stop()
		e.log.Info().Int64("passes", r.worker.Passes()).Msg("cave scan deactivated")
	}
}

func (e *Engine) DeactivateVeins() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r := e.veins.Swap(nil); r != nil {
		r.worker.Stop()
		e.log.Info().Int64("passes", r.worker.Passes()).Msg("vein scan deactivated")
	}
}

// beginRun mints a run id when nothing is running. Callers hold mu.
func (e *Engine) beginRun() string {
	if running(e.caves.Load().state()) || running(e.veins.Load().state()) {
		return *e.runID.Load()
	}
	id := uuid.NewString()
	e.runID.Store(&id)
	return id
}

func (r *caveRun) state() worker.State {
	if r == nil {
		return worker.Idle
	}
	return r.worker.State()
}

func (r *veinRun) state() worker.State {
	if r == nil {
		return worker.Idle
	}
	return r.worker.State()
}

// running treats a worker that stopped on its own as gone, so the next
// activation replaces it.
func running(s worker.State) bool { return s != worker.Idle && s != worker.Stopped }

// CaveVolumes feeds the vein worker's cave-footprint mode.
func (e *Engine) CaveVolumes() (*discovery.Set, int, bool) {
	r := e.caves.Load()
	if !running(r.state()) {
		return nil, 0, false
	}
	return r.finder.Found(), r.finder.VolumeSize(), true
}

func (e *Engine) RunID() string { return *e.runID.Load() }

func (e *Engine) VolumeSize() int { return e.cfg.Caves.VolumeSize }

func (e *Engine) Materials() []string { return append([]string(nil), e.cfg.Veins.Materials...) }

func (e *Engine) ScanMode() config.ScanMode { return e.cfg.Veins.ScanMode }

// RangeCaves iterates the cave origins currently believed to qualify.
func (e *Engine) RangeCaves(fn func(geom.Vec3i) bool) {
	if r := e.caves.Load(); r != nil {
		r.finder.Found().Range(fn)
	}
}

func (e *Engine) RangeVeins(fn func(geom.Vec3i) bool) {
	if r := e.veins.Load(); r != nil {
		r.finder.Found().Range(fn)
	}
}

func (e *Engine) Caves() []geom.Vec3i {
	if r := e.caves.Load(); r != nil {
		return r.finder.Found().Snapshot()
	}
	return nil
}

func (e *Engine) Veins() []geom.Vec3i {
	if r := e.veins.Load(); r != nil {
		return r.finder.Found().Snapshot()
	}
	return nil
}

type Visibility int

const (
	Occluded Visibility = iota
	Visible
)

func (v Visibility) String() string {
	if v == Visible {
		return "visible"
	}
	return "occluded"
}

// Classify reports whether a vein member is in the observer's line of sight.
// Positions outside the vein set, and everything without an active vein
// worker, are occluded and never raycast.
func (e *Engine) Classify(p geom.Vec3i) Visibility {
	r := e.veins.Load()
	if r == nil || !r.finder.Found().Contains(p) || !r.finder.IsVisible(p) {
		return Occluded
	}
	return Visible
}

type Status struct {
	RunID     string       `json:"run_id"`
	Caves     int          `json:"caves"`
	Veins     int          `json:"veins"`
	CaveState worker.State `json:"cave_state"`
	VeinState worker.State `json:"vein_state"`
}

func (s Status) String() string {
	return fmt.Sprintf("caves=%d (%s) veins=%d (%s)", s.Caves, s.CaveState, s.Veins, s.VeinState)
}

func (e *Engine) Status() Status {
	st := Status{RunID: e.RunID()}
	if r := e.caves.Load(); r != nil {
		st.Caves = r.finder.Found().Len()
	}
	if r := e.veins.Load(); r != nil {
		st.Veins = r.finder.Found().Len()
	}
	st.CaveState = e.caves.Load().state()
	st.VeinState = e.veins.Load().state()
	return st
}
