package log

import (
	"path/filepath"
	"testing"
	"time"

	"voxelscan.ai/internal/scan/discovery"
)

func TestDiscoveryLogger_RotatesHourly(t *testing.T) {
	dir := t.TempDir()
	l := NewDiscoveryLogger(dir)
	at := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return at }

	events := []discovery.Event{
		{Time: at, RunID: "r", Kind: discovery.KindCave, Pos: [3]int{0, -32, 16}, Size: 5200},
		{Time: at, RunID: "r", Kind: discovery.KindVein, Pos: [3]int{3, -40, 9}, Material: "diamond_ore", Size: 4},
	}
	for _, e := range events {
		if err := l.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	at = at.Add(2 * time.Minute)
	if err := l.Record(discovery.Event{Time: at, Kind: discovery.KindCave, Pos: [3]int{16, -32, 16}}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := Files(dir)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "discoveries-2026-03-01-10.jsonl.zst" {
		t.Fatalf("files: got %v", files)
	}

	var got []discovery.Event
	if err := ReadEvents(files[0], func(e discovery.Event) error {
		got = append(got, e)
		return nil
	}); err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("events: got %d want 2", len(got))
	}
	if got[1].Material != "diamond_ore" || got[1].Pos != [3]int{3, -40, 9} || !got[1].Time.Equal(events[1].Time) {
		t.Fatalf("event: got %+v", got[1])
	}
}

func TestDiscoveryLogger_AppendsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2; i++ {
		l := NewDiscoveryLogger(dir)
		l.w.now = func() time.Time { return at }
		if err := l.Record(discovery.Event{Kind: discovery.KindCave, Pos: [3]int{i, 0, 0}}); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}

	files, _ := Files(dir)
	if len(files) != 1 {
		t.Fatalf("files: got %v", files)
	}
	n := 0
	if err := ReadEvents(files[0], func(discovery.Event) error { n++; return nil }); err != nil {
		t.Fatalf("ReadEvents: %v", err)
	}
	if n != 2 {
		t.Fatalf("events across reopen: got %d want 2", n)
	}
}

func TestDiscoveryLogger_IsSink(t *testing.T) {
	var _ discovery.Sink = NewDiscoveryLogger(t.TempDir())
}
