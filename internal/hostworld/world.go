// Package hostworld is a small chunked voxel world that plays the host for
// the scan engine: it generates terrain on demand, loads and unloads chunks
// around a moving observer, accepts live edits, and answers raycasts.
package hostworld

import (
	"sync"
	"sync/atomic"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
)

type World struct {
	gen   Gen
	local bool

	mu     sync.RWMutex
	chunks map[ChunkKey]*Chunk

	edits atomic.Int64
}

// New returns an empty world. local selects the engine's high search budget.
func New(gen Gen, local bool) *World {
	return &World{
		gen:    gen,
		local:  local,
		chunks: map[ChunkKey]*Chunk{},
	}
}

var _ oracle.World = (*World)(nil)

func (w *World) Gen() Gen { return w.gen }

// LoadChunk generates chunk (cx, cz) if it is not already loaded and
// reports whether it did.
func (w *World) LoadChunk(cx, cz int) bool {
	k := ChunkKey{CX: cx, CZ: cz}
	w.mu.RLock()
	_, ok := w.chunks[k]
	w.mu.RUnlock()
	if ok {
		return false
	}

	ch := newChunk(cx, cz, w.gen.Height())
	w.gen.Generate(ch)
	return w.putChunk(ch)
}

func (w *World) putChunk(ch *Chunk) bool {
	k := ChunkKey{CX: ch.CX, CZ: ch.CZ}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.chunks[k]; ok {
		return false
	}
	w.chunks[k] = ch
	return true
}

func (w *World) UnloadChunk(cx, cz int) bool {
	k := ChunkKey{CX: cx, CZ: cz}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.chunks[k]; !ok {
		return false
	}
	delete(w.chunks, k)
	return true
}

func (w *World) LoadedChunkKeys() []ChunkKey {
	w.mu.RLock()
	keys := make([]ChunkKey, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	w.mu.RUnlock()
	sortKeys(keys)
	return keys
}

// Block returns the block id at p and whether its chunk is loaded.
func (w *World) Block(p geom.Vec3i) (uint16, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.blockLocked(p)
}

func (w *World) blockLocked(p geom.Vec3i) (uint16, bool) {
	ch, ok := w.chunks[ChunkKey{CX: geom.FloorDiv(p.X, ChunkSize), CZ: geom.FloorDiv(p.Z, ChunkSize)}]
	if !ok {
		return Air, false
	}
	yOff := p.Y - w.gen.MinY
	if yOff < 0 || yOff >= ch.Height {
		return Air, true
	}
	return ch.get(geom.Mod(p.X, ChunkSize), yOff, geom.Mod(p.Z, ChunkSize)), true
}

// SetBlock edits a loaded voxel. Edits to unloaded chunks or outside the
// height range are dropped.
func (w *World) SetBlock(p geom.Vec3i, id uint16) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, ok := w.chunks[ChunkKey{CX: geom.FloorDiv(p.X, ChunkSize), CZ: geom.FloorDiv(p.Z, ChunkSize)}]
	if !ok {
		return false
	}
	yOff := p.Y - w.gen.MinY
	if yOff < 0 || yOff >= ch.Height {
		return false
	}
	if !ch.set(geom.Mod(p.X, ChunkSize), yOff, geom.Mod(p.Z, ChunkSize), id) {
		return false
	}
	w.edits.Add(1)
	return true
}

// Edits counts successful SetBlock calls.
func (w *World) Edits() int64 { return w.edits.Load() }

func (w *World) Loaded(px, pz int) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.chunks[ChunkKey{CX: px, CZ: pz}]
	return ok
}

// Voxel reads unloaded space as air, the same placeholder a client sees.
func (w *World) Voxel(p geom.Vec3i) oracle.Voxel {
	id, _ := w.Block(p)
	return VoxelOf(id)
}

// SkyVisible reports whether every voxel above p up to the build limit is
// air. Unloaded columns are never sky visible.
func (w *World) SkyVisible(p geom.Vec3i) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if _, ok := w.blockLocked(p); !ok {
		return false
	}
	for y := p.Y + 1; y < w.gen.MaxY; y++ {
		id, _ := w.blockLocked(geom.Vec3i{X: p.X, Y: y, Z: p.Z})
		if id != Air {
			return false
		}
	}
	return true
}

func (w *World) Bounds() (int, int) { return w.gen.MinY, w.gen.MaxY }

func (w *World) Local() bool { return w.local }

// MarkRemote drops the world to the remote search budget. Call it before the
// engine is activated.
func (w *World) MarkRemote() { w.local = false }
