// Package visibility memoizes line-of-sight checks from the observer to
// discovered voxels.
package visibility

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/oracle"
	"voxelscan.ai/internal/scan/ttlcache"
)

// DefaultTTL is how long a raycast result is reused.
const DefaultTTL = 2500 * time.Millisecond

type Cache struct {
	los     oracle.LineOfSight
	now     func() time.Time
	entries *ttlcache.Cache[geom.Vec3i, bool]
}

func New(los oracle.LineOfSight, ttl time.Duration, now func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{
		los:     los,
		now:     now,
		entries: ttlcache.New[geom.Vec3i, bool](ttl),
	}
}

// IsVisible reports whether the ray from eye to the center of p reaches p
// unobstructed. A fresh memoized answer is reused; otherwise exactly one
// raycast is issued and its result replaces the entry.
func (c *Cache) IsVisible(eye mgl64.Vec3, p geom.Vec3i) bool {
	now := c.now()
	if v, ok := c.entries.Fresh(p, now); ok {
		return v
	}
	visible := c.cast(eye, p)
	c.entries.Put(p, visible, now)
	return visible
}

func (c *Cache) cast(eye mgl64.Vec3, p geom.Vec3i) bool {
	if c.los == nil {
		return false
	}
	hit, ok := c.los.Raycast(eye, p.Center())
	return !ok || hit == p
}

func (c *Cache) Len() int { return c.entries.Len() }

func (c *Cache) Clear() { c.entries.Clear() }
