// Package oracle defines the read-only capabilities the scan engine consumes
// from its host: the voxel world, the observer, and a line-of-sight primitive.
package oracle

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscan.ai/internal/scan/geom"
)

// ErrUnavailable is returned when the host world or observer is absent.
var ErrUnavailable = errors.New("world unavailable")

// Material tags an interesting solid voxel ("diamond_ore"). Empty means untagged.
type Material string

type Voxel struct {
	Solid    bool
	Material Material
}

var Air = Voxel{}

func (v Voxel) Air() bool { return !v.Solid }

// Is reports whether v is a solid voxel tagged m.
func (v Voxel) Is(m Material) bool { return v.Solid && m != "" && v.Material == m }

// World is a live, externally mutating voxel world. Implementations must be
// safe for concurrent reads; the engine never writes.
type World interface {
	// Loaded reports whether partition (px, pz) holds real data.
	Loaded(px, pz int) bool
	Voxel(p geom.Vec3i) Voxel
	SkyVisible(p geom.Vec3i) bool
	// Bounds returns the lowest valid y and the exclusive top y.
	Bounds() (minY, maxY int)
	// Local reports whether the world is fully local (higher search budgets).
	Local() bool
}

type Observer struct {
	Pos geom.Vec3i
	Eye mgl64.Vec3
}

// Host hands out the current world and observer. Either may be momentarily
// absent; callers re-read them every pass.
type Host interface {
	World() (World, bool)
	Observer() (Observer, bool)
}

// LineOfSight casts a ray against solid geometry and returns the first
// voxel hit, or ok=false on a miss.
type LineOfSight interface {
	Raycast(from, to mgl64.Vec3) (hit geom.Vec3i, ok bool)
}

// Acquire reads both the world and the observer, failing with
// ErrUnavailable if either is absent.
func Acquire(h Host) (World, Observer, error) {
	w, ok := h.World()
	if !ok || w == nil {
		return nil, Observer{}, ErrUnavailable
	}
	obs, ok := h.Observer()
	if !ok {
		return nil, Observer{}, ErrUnavailable
	}
	return w, obs, nil
}
