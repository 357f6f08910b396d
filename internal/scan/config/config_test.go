package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "scan.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Caves.VolumeSize != 16 || cfg.Caves.MinAirBlocks != 2000 || cfg.Veins.ScanMode != ModeBoth {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.Veins.Materials) != len(DefaultMaterials) {
		t.Fatalf("materials: got %d want %d", len(cfg.Veins.Materials), len(DefaultMaterials))
	}
}

func TestLoad_OverridesAndNormalizes(t *testing.T) {
	p := writeFile(t, `
tick_ms: 50
caves:
  horizontal_radius: 1000
  volume_size: 4
  scan_interval_ticks: 1
veins:
  scan_mode: " Observer "
  materials: [Diamond_Ore, diamond_ore, "", coal_ore]
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Caves.HorizontalRadius != 1000 {
		t.Fatalf("horizontal radius has no ceiling: got %d", cfg.Caves.HorizontalRadius)
	}
	if cfg.Caves.VolumeSize != 8 {
		t.Fatalf("volume size clamp: got %d", cfg.Caves.VolumeSize)
	}
	if cfg.Caves.ScanIntervalTicks != 20 {
		t.Fatalf("interval clamp: got %d", cfg.Caves.ScanIntervalTicks)
	}
	if cfg.Veins.ScanMode != ModeObserver {
		t.Fatalf("scan mode: got %q", cfg.Veins.ScanMode)
	}
	if got := cfg.Veins.Materials; len(got) != 2 || got[0] != "diamond_ore" || got[1] != "coal_ore" {
		t.Fatalf("materials: got %v", got)
	}
	// Unset sections keep defaults.
	if cfg.Caves.MinConnectedAir != 5000 {
		t.Fatalf("min connected air: got %d", cfg.Caves.MinConnectedAir)
	}
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	p := writeFile(t, "veins:\n  scan_mode: everywhere\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unknown scan mode")
	}
}

func TestLoad_SmallVolumeKeepsDefaultThreshold(t *testing.T) {
	for _, size := range []int{8, 12} {
		p := writeFile(t, fmt.Sprintf("caves:\n  volume_size: %d\n", size))
		cfg, err := Load(p)
		if err != nil {
			t.Fatalf("volume_size %d: Load: %v", size, err)
		}
		if cfg.Caves.VolumeSize != size || cfg.Caves.MinAirBlocks != 2000 {
			t.Fatalf("volume_size %d: got %+v", size, cfg.Caves)
		}
	}
}

func TestLoad_RaisesToFloors(t *testing.T) {
	p := writeFile(t, `
caves:
  horizontal_radius: 1
  vertical_radius: 1
  max_scan_height: -500
  min_air_blocks: 10
  min_connected_air: 10
veins:
  observer_radius: 1
  despawn_distance: 1
  scan_interval_ticks: 1
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cv, v := cfg.Caves, cfg.Veins
	if cv.HorizontalRadius != 16 || cv.VerticalRadius != 16 || cv.MaxScanHeight != -64 {
		t.Fatalf("cave radii floors: got %+v", cv)
	}
	if cv.MinAirBlocks != 500 || cv.MinConnectedAir != 1000 {
		t.Fatalf("threshold floors: air %d connected %d", cv.MinAirBlocks, cv.MinConnectedAir)
	}
	if v.ObserverRadius != 16 || v.DespawnDistance != 32 || v.ScanIntervalTicks != 20 {
		t.Fatalf("vein floors: got %+v", v)
	}
}

func TestInterval(t *testing.T) {
	cfg := Defaults()
	if got := cfg.Interval(200); got != 10*time.Second {
		t.Fatalf("200 ticks: got %v", got)
	}
	if got := cfg.Interval(0); got != 50*time.Millisecond {
		t.Fatalf("0 ticks should floor at 50ms, got %v", got)
	}
}

func TestFloodLimit(t *testing.T) {
	c := Defaults().Caves
	if c.FloodLimit(true) != 200_000 || c.FloodLimit(false) != 20_000 {
		t.Fatalf("unexpected tiers: %d/%d", c.FloodLimit(true), c.FloodLimit(false))
	}
}
