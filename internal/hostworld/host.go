package hostworld

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
)

// EyeHeight is the observer's viewpoint above the floor of its voxel.
const EyeHeight = 1.62

// Host binds a World to a movable observer.
type Host struct {
	world atomic.Pointer[World]

	mu  sync.Mutex
	pos geom.Vec3i
}

func NewHost(w *World, pos geom.Vec3i) *Host {
	h := &Host{pos: pos}
	h.world.Store(w)
	return h
}

var _ oracle.Host = (*Host)(nil)

func (h *Host) World() (oracle.World, bool) {
	w := h.world.Load()
	if w == nil {
		return nil, false
	}
	return w, true
}

func (h *Host) Observer() (oracle.Observer, bool) {
	if h.world.Load() == nil {
		return oracle.Observer{}, false
	}
	pos := h.Position()
	eye := mgl64.Vec3{float64(pos.X) + 0.5, float64(pos.Y) + EyeHeight, float64(pos.Z) + 0.5}
	return oracle.Observer{Pos: pos, Eye: eye}, true
}

func (h *Host) Position() geom.Vec3i {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos
}

func (h *Host) MoveTo(pos geom.Vec3i) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pos = pos
}

// Detach makes the world unavailable, as when a client leaves a server.
func (h *Host) Detach() { h.world.Store(nil) }

func (h *Host) Attach(w *World) { h.world.Store(w) }
