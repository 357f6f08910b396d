// Package discovery holds the shared sets of positions the scan workers have
// classified, and the events emitted when something new is found.
package discovery

import (
	"sync"
	"sync/atomic"

	"voxelscan.ai/internal/scan/geom"
)

// Set is a concurrent set of voxel coordinates. One worker writes; any number
// of readers may iterate while it does. Iteration observes each member at
// most once but may or may not see concurrent additions and removals.
type Set struct {
	m sync.Map // geom.Vec3i -> struct{}
	n atomic.Int64
}

func NewSet() *Set { return &Set{} }

// Add inserts p and reports whether it was absent.
func (s *Set) Add(p geom.Vec3i) bool {
	if _, loaded := s.m.LoadOrStore(p, struct{}{}); loaded {
		return false
	}
	s.n.Add(1)
	return true
}

func (s *Set) Remove(p geom.Vec3i) bool {
	if _, ok := s.m.LoadAndDelete(p); !ok {
		return false
	}
	s.n.Add(-1)
	return true
}

func (s *Set) Contains(p geom.Vec3i) bool {
	_, ok := s.m.Load(p)
	return ok
}

func (s *Set) Len() int { return int(s.n.Load()) }

// Range calls fn for each member until fn returns false.
func (s *Set) Range(fn func(p geom.Vec3i) bool) {
	s.m.Range(func(k, _ any) bool {
		return fn(k.(geom.Vec3i))
	})
}

// Snapshot copies the current membership.
func (s *Set) Snapshot() []geom.Vec3i {
	out := make([]geom.Vec3i, 0, s.Len())
	s.Range(func(p geom.Vec3i) bool {
		out = append(out, p)
		return true
	})
	return out
}

// RemoveIf drops every member for which drop returns true and returns the
// number removed.
func (s *Set) RemoveIf(drop func(p geom.Vec3i) bool) int {
	removed := 0
	s.Range(func(p geom.Vec3i) bool {
		if drop(p) && s.Remove(p) {
			removed++
		}
		return true
	})
	return removed
}

func (s *Set) Clear() {
	s.Range(func(p geom.Vec3i) bool {
		s.Remove(p)
		return true
	})
}
