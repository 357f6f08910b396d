package sampler

import (
	"testing"

	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/scan/scantest"
)

func TestCountAir_AllAirNoEarlyExit(t *testing.T) {
	w := scantest.NewWorld(scantest.Air)
	origin := geom.Vec3i{X: 0, Y: 0, Z: 0}

	got := CountAirWithEarlyExit(w, origin, 16, 2000)
	if got != 4096 {
		t.Fatalf("all-air 16^3: got %d want 4096", got)
	}
	if w.Reads() != 4096 {
		t.Fatalf("surplus must not trigger early exit: read %d voxels", w.Reads())
	}
	if got < 2000 {
		t.Fatalf("volume should qualify")
	}
}

func TestCountAir_AllSolidExitsEarly(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	got := CountAirWithEarlyExit(w, geom.Vec3i{}, 16, 500)
	if got != 0 {
		t.Fatalf("got %d want 0", got)
	}
	// 4096 - reads < 500 first holds after 3597 reads.
	if w.Reads() != 3597 {
		t.Fatalf("expected exit right after bound became impossible, read %d", w.Reads())
	}
}

func TestCountAir_EarlyExitNeverOvercounts(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	origin := geom.Vec3i{X: 8, Y: -4, Z: 8}
	// Air in the first x-slabs only.
	w.Fill(origin, origin.Add(1, 7, 7), scantest.Air)
	truth := CountAirWithEarlyExit(w, origin, 8, 0)
	if truth != 128 {
		t.Fatalf("exact count: got %d want 128", truth)
	}
	for _, threshold := range []int{1, 64, 128, 129, 300, 512} {
		got := CountAirWithEarlyExit(w, origin, 8, threshold)
		if got > truth {
			t.Fatalf("threshold %d: partial %d exceeds true count %d", threshold, got, truth)
		}
		if threshold <= truth && got != truth {
			t.Fatalf("threshold %d reachable, expected exact %d got %d", threshold, truth, got)
		}
	}
}

func TestCountAir_NonPositiveThresholdIsExact(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	w.Set(geom.Vec3i{X: 3, Y: 3, Z: 3}, scantest.Air)
	for _, th := range []int{0, -1, -5000} {
		if got := CountAirWithEarlyExit(w, geom.Vec3i{}, 4, th); got != 1 {
			t.Fatalf("threshold %d: got %d want 1", th, got)
		}
	}
}

func TestQuickAirEstimate_RejectsSolid(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	if QuickAirEstimate(w, geom.Vec3i{X: 16, Y: 0, Z: -32}, 16) {
		t.Fatalf("solid volume must be rejected by the estimate")
	}
	if w.Reads() != EstimateSamples {
		t.Fatalf("estimate should read exactly %d voxels, read %d", EstimateSamples, w.Reads())
	}
}

func TestQuickAirEstimate_AcceptsAir(t *testing.T) {
	w := scantest.NewWorld(scantest.Air)
	if !QuickAirEstimate(w, geom.Vec3i{}, 16) {
		t.Fatalf("air volume must pass the estimate")
	}
}

func TestQuickAirEstimate_Deterministic(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	origin := geom.Vec3i{X: 48, Y: 16, Z: 0}
	// Carve a checkerboard so the outcome depends on which offsets are drawn.
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			for z := 0; z < 16; z++ {
				if (x+y+z)%3 == 0 {
					w.Set(origin.Add(x, y, z), scantest.Air)
				}
			}
		}
	}
	first := QuickAirEstimate(w, origin, 16)
	for i := 0; i < 5; i++ {
		if QuickAirEstimate(w, origin, 16) != first {
			t.Fatalf("estimate for the same volume changed between calls")
		}
	}
}

func TestSolidScenario_EstimateRejectsBeforeExactCount(t *testing.T) {
	w := scantest.NewWorld(scantest.Stone)
	origin := geom.Vec3i{}
	if QuickAirEstimate(w, origin, 16) {
		t.Fatalf("expected rejection")
	}
	if w.Reads() >= 500 {
		t.Fatalf("rejection should cost O(samples), read %d", w.Reads())
	}
}
