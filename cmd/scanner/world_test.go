package main

import (
	"os"
	"path/filepath"
	"testing"

	"voxelscan.ai/internal/hostworld"
	"voxelscan.ai/internal/scan/geom"
)

func TestWorldFlags_Generate(t *testing.T) {
	w, err := (&worldFlags{seed: 5, remote: true}).open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if w.Local() || w.Gen().Seed != 5 || len(w.LoadedChunkKeys()) != 0 {
		t.Fatalf("generated world: local=%v seed=%d chunks=%d", w.Local(), w.Gen().Seed, len(w.LoadedChunkKeys()))
	}
}

func TestWorldFlags_Fixture(t *testing.T) {
	src := hostworld.New(hostworld.DefaultGen(8), true)
	src.LoadChunk(1, 1)
	src.SetBlock(geom.Vec3i{X: 20, Y: 0, Z: 20}, hostworld.EmeraldOre)

	path := filepath.Join(t.TempDir(), "w.fix.zst")
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := hostworld.WriteFixture(out, src); err != nil {
		t.Fatalf("WriteFixture: %v", err)
	}
	out.Close()

	w, err := (&worldFlags{fixture: path}).open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if id, ok := w.Block(geom.Vec3i{X: 20, Y: 0, Z: 20}); !ok || id != hostworld.EmeraldOre {
		t.Fatalf("fixture block: got %d %v", id, ok)
	}
	if !w.Local() {
		t.Fatalf("fixture captured as local should open local")
	}

	remote, err := (&worldFlags{fixture: path, remote: true}).open()
	if err != nil {
		t.Fatalf("open remote: %v", err)
	}
	if remote.Local() {
		t.Fatalf("--remote should override the fixture's local tier")
	}

	if _, err := (&worldFlags{fixture: filepath.Join(t.TempDir(), "missing")}).open(); err == nil {
		t.Fatalf("missing fixture opened")
	}
}
