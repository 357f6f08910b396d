// Package scantest provides deterministic in-memory oracles for scan tests.
package scantest

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
)

var (
	Stone = oracle.Voxel{Solid: true}
	Air   = oracle.Air
)

func Ore(m oracle.Material) oracle.Voxel { return oracle.Voxel{Solid: true, Material: m} }

// World is a sparse voxel world: explicitly set voxels override Default.
type World struct {
	Default oracle.Voxel
	MinY    int
	MaxY    int
	IsLocal bool
	// SkyY marks every voxel at or above it as sky visible.
	SkyY int

	// OnLoaded, if set, is called on every Loaded query.
	OnLoaded func(px, pz int)

	mu       sync.RWMutex
	voxels   map[geom.Vec3i]oracle.Voxel
	unloaded map[[2]int]bool

	reads atomic.Int64
}

func NewWorld(def oracle.Voxel) *World {
	return &World{
		Default:  def,
		MinY:     -64,
		MaxY:     320,
		SkyY:     320,
		IsLocal:  true,
		voxels:   map[geom.Vec3i]oracle.Voxel{},
		unloaded: map[[2]int]bool{},
	}
}

func (w *World) Set(p geom.Vec3i, v oracle.Voxel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.voxels[p] = v
}

// Fill sets every voxel in the inclusive box [lo, hi].
func (w *World) Fill(lo, hi geom.Vec3i, v oracle.Voxel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				w.voxels[geom.Vec3i{X: x, Y: y, Z: z}] = v
			}
		}
	}
}

func (w *World) Unload(px, pz int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unloaded[[2]int{px, pz}] = true
}

// Reads counts Voxel calls.
func (w *World) Reads() int64 { return w.reads.Load() }

func (w *World) Loaded(px, pz int) bool {
	if w.OnLoaded != nil {
		w.OnLoaded(px, pz)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.unloaded[[2]int{px, pz}]
}

func (w *World) Voxel(p geom.Vec3i) oracle.Voxel {
	w.reads.Add(1)
	w.mu.RLock()
	defer w.mu.RUnlock()
	if v, ok := w.voxels[p]; ok {
		return v
	}
	return w.Default
}

func (w *World) SkyVisible(p geom.Vec3i) bool { return p.Y >= w.SkyY }

func (w *World) Bounds() (int, int) { return w.MinY, w.MaxY }

func (w *World) Local() bool { return w.IsLocal }

// Host serves a fixed world and a movable observer.
type Host struct {
	W oracle.World

	mu     sync.Mutex
	obs    oracle.Observer
	absent atomic.Bool
}

func NewHost(w oracle.World, pos geom.Vec3i) *Host {
	h := &Host{W: w}
	h.MoveTo(pos)
	return h
}

func (h *Host) MoveTo(pos geom.Vec3i) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.obs = oracle.Observer{Pos: pos, Eye: pos.Center().Add(mgl64.Vec3{0, 1.12, 0})}
}

// SetAbsent simulates the host world going away.
func (h *Host) SetAbsent(v bool) { h.absent.Store(v) }

func (h *Host) World() (oracle.World, bool) {
	if h.absent.Load() {
		return nil, false
	}
	return h.W, true
}

func (h *Host) Observer() (oracle.Observer, bool) {
	if h.absent.Load() {
		return oracle.Observer{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.obs, true
}

// LineOfSight answers from Fn and counts calls.
type LineOfSight struct {
	Fn    func(from, to mgl64.Vec3) (geom.Vec3i, bool)
	calls atomic.Int64
}

func (l *LineOfSight) Raycast(from, to mgl64.Vec3) (geom.Vec3i, bool) {
	l.calls.Add(1)
	if l.Fn == nil {
		return geom.Vec3i{}, false
	}
	return l.Fn(from, to)
}

func (l *LineOfSight) Calls() int64 { return l.calls.Load() }

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Unix(1_700_000_000, 0)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
