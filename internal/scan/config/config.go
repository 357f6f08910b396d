package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// TickMs converts *_ticks settings into wall time.
	TickMs int `yaml:"tick_ms"`

	Caves Caves `yaml:"caves"`
	Veins Veins `yaml:"veins"`
	Feed  Feed  `yaml:"feed"`
	Log   Log   `yaml:"log"`
}

type Caves struct {
	ScanIntervalTicks int `yaml:"scan_interval_ticks"`
	HorizontalRadius  int `yaml:"horizontal_radius"`
	VerticalRadius    int `yaml:"vertical_radius"`
	MaxScanHeight     int `yaml:"max_scan_height"`
	MinAirBlocks      int `yaml:"min_air_blocks"`
	MinConnectedAir   int `yaml:"min_connected_air"`
	VolumeSize        int `yaml:"volume_size"`
	FloodLimitLocal   int `yaml:"flood_limit_local"`
	FloodLimitRemote  int `yaml:"flood_limit_remote"`
	CacheTTLMs        int `yaml:"cache_ttl_ms"`
}

type ScanMode string

const (
	ModeCaves    ScanMode = "caves"
	ModeObserver ScanMode = "observer"
	ModeBoth     ScanMode = "both"
)

func (m ScanMode) ScansCaves() bool    { return m == ModeCaves || m == ModeBoth }
func (m ScanMode) ScansObserver() bool { return m == ModeObserver || m == ModeBoth }

type Veins struct {
	ScanIntervalTicks int      `yaml:"scan_interval_ticks"`
	ScanMode          ScanMode `yaml:"scan_mode"`
	ObserverRadius    int      `yaml:"observer_radius"`
	DespawnDistance   int      `yaml:"despawn_distance"`
	VisibilityTTLMs   int      `yaml:"visibility_ttl_ms"`
	Announce          bool     `yaml:"announce"`
	Materials         []string `yaml:"materials"`
}

type Feed struct {
	Listen       string `yaml:"listen"`
	IntervalMs   int    `yaml:"interval_ms"`
	MaxPositions int    `yaml:"max_positions"`
}

type Log struct {
	// Dir receives the compressed discovery event log. Empty disables it.
	Dir string `yaml:"dir"`
	// Index is a SQLite file indexing discoveries for queries. Empty disables it.
	Index string `yaml:"index"`
}

// DefaultMaterials mirrors the ore list a fresh install searches for.
var DefaultMaterials = []string{
	"diamond_ore", "deepslate_diamond_ore", "ancient_debris",
	"emerald_ore", "deepslate_emerald_ore", "gold_ore", "deepslate_gold_ore",
	"iron_ore", "deepslate_iron_ore", "lapis_ore", "deepslate_lapis_ore",
	"coal_ore", "deepslate_coal_ore",
}

func Defaults() Config {
	return Config{
		TickMs: 50,
		Caves: Caves{
			ScanIntervalTicks: 200,
			HorizontalRadius:  80,
			VerticalRadius:    40,
			MaxScanHeight:     128,
			MinAirBlocks:      2000,
			MinConnectedAir:   5000,
			VolumeSize:        16,
			FloodLimitLocal:   200_000,
			FloodLimitRemote:  20_000,
			CacheTTLMs:        5000,
		},
		Veins: Veins{
			ScanIntervalTicks: 40,
			ScanMode:          ModeBoth,
			ObserverRadius:    32,
			DespawnDistance:   100,
			VisibilityTTLMs:   2500,
			Announce:          true,
			Materials:         append([]string(nil), DefaultMaterials...),
		},
		Feed: Feed{
			Listen:       "127.0.0.1:8095",
			IntervalMs:   500,
			MaxPositions: 20_000,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("scan.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("scan.yaml: %w", err)
	}
	return cfg, nil
}

// Normalize raises settings to their floors. There are no ceilings: the cave
// pass bounds its own radii, and an air threshold larger than a volume simply
// never qualifies.
func (c *Config) Normalize() {
	if c.TickMs <= 0 {
		c.TickMs = 50
	}

	cv := &c.Caves
	cv.ScanIntervalTicks = atLeast(cv.ScanIntervalTicks, 20)
	cv.HorizontalRadius = atLeast(cv.HorizontalRadius, 16)
	cv.VerticalRadius = atLeast(cv.VerticalRadius, 16)
	cv.MaxScanHeight = atLeast(cv.MaxScanHeight, -64)
	cv.MinAirBlocks = atLeast(cv.MinAirBlocks, 500)
	cv.MinConnectedAir = atLeast(cv.MinConnectedAir, 1000)
	cv.VolumeSize = atLeast(cv.VolumeSize, 8)
	if cv.CacheTTLMs <= 0 {
		cv.CacheTTLMs = 5000
	}

	v := &c.Veins
	v.ScanIntervalTicks = atLeast(v.ScanIntervalTicks, 20)
	v.ScanMode = ScanMode(strings.ToLower(strings.TrimSpace(string(v.ScanMode))))
	if v.ScanMode == "" {
		v.ScanMode = ModeBoth
	}
	v.ObserverRadius = atLeast(v.ObserverRadius, 16)
	v.DespawnDistance = atLeast(v.DespawnDistance, 32)
	if v.VisibilityTTLMs <= 0 {
		v.VisibilityTTLMs = 2500
	}
	mats := v.Materials[:0]
	seen := map[string]bool{}
	for _, m := range v.Materials {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		mats = append(mats, m)
	}
	v.Materials = mats

	if c.Feed.IntervalMs <= 0 {
		c.Feed.IntervalMs = 500
	}
	if c.Feed.MaxPositions <= 0 {
		c.Feed.MaxPositions = 20_000
	}
}

func (c Config) Validate() error {
	switch c.Veins.ScanMode {
	case ModeCaves, ModeObserver, ModeBoth:
	default:
		return fmt.Errorf("veins.scan_mode: unknown mode %q", c.Veins.ScanMode)
	}
	if c.Caves.FloodLimitLocal <= 0 || c.Caves.FloodLimitRemote <= 0 {
		return fmt.Errorf("caves.flood_limit_*: must be > 0")
	}
	return nil
}

// Interval converts a tick count into the sleep between passes, never
// shorter than 50ms.
func (c Config) Interval(ticks int) time.Duration {
	d := time.Duration(ticks) * time.Duration(c.TickMs) * time.Millisecond
	if d < 50*time.Millisecond {
		return 50 * time.Millisecond
	}
	return d
}

func (c Caves) CacheTTL() time.Duration { return time.Duration(c.CacheTTLMs) * time.Millisecond }

func (v Veins) VisibilityTTL() time.Duration {
	return time.Duration(v.VisibilityTTLMs) * time.Millisecond
}

// FloodLimit picks the node budget for the environment's trust level.
func (c Caves) FloodLimit(local bool) int {
	if local {
		return c.FloodLimitLocal
	}
	return c.FloodLimitRemote
}

func atLeast(v, lo int) int {
	if v < lo {
		return lo
	}
	return v
}
