package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voxelscan.ai/internal/scan/oracle"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestWorker_ScanThenSleepThenStop(t *testing.T) {
	release := make(chan struct{})
	var stops atomic.Int32
	w := Start(context.Background(), Config{
		Name:     "test",
		Interval: time.Hour,
		Pass: func(ctx context.Context) error {
			<-release
			return nil
		},
		OnStop: func() { stops.Add(1) },
		Logger: zerolog.Nop(),
	})

	waitFor(t, "scanning", func() bool { return w.State() == Scanning })
	close(release)
	waitFor(t, "sleeping", func() bool { return w.State() == Sleeping })
	if w.Passes() != 1 {
		t.Fatalf("passes: got %d want 1", w.Passes())
	}

	start := time.Now()
	w.Stop()
	if time.Since(start) > time.Second {
		t.Fatalf("stop during sleep took %v", time.Since(start))
	}
	if w.State() != Stopped {
		t.Fatalf("state: got %v want stopped", w.State())
	}
	w.Stop()
	if stops.Load() != 1 {
		t.Fatalf("OnStop calls: got %d want 1", stops.Load())
	}
}

func TestWorker_CancelInterruptsPass(t *testing.T) {
	entered := make(chan struct{})
	w := Start(context.Background(), Config{
		Name:     "test",
		Interval: time.Millisecond,
		Pass: func(ctx context.Context) error {
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		},
		Logger: zerolog.Nop(),
	})
	<-entered
	w.Stop()
	if w.Passes() != 1 {
		t.Fatalf("a cancelled pass must not be followed by another: got %d passes", w.Passes())
	}
}

func TestWorker_ParentContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := Start(ctx, Config{
		Name:     "test",
		Interval: time.Hour,
		Pass:     func(ctx context.Context) error { return nil },
		Logger:   zerolog.Nop(),
	})
	waitFor(t, "sleeping", func() bool { return w.State() == Sleeping })
	cancel()
	waitDone(t, w)
}

func TestWorker_FaultsDoNotTerminate(t *testing.T) {
	var calls atomic.Int32
	w := Start(context.Background(), Config{
		Name:     "test",
		Interval: time.Millisecond,
		Pass: func(ctx context.Context) error {
			switch calls.Add(1) {
			case 1:
				panic("boom")
			case 2:
				return errors.New("transient")
			}
			return nil
		},
		Logger: zerolog.Nop(),
	})
	defer w.Stop()
	waitFor(t, "third pass", func() bool { return w.Passes() >= 3 })
	if w.State() == Stopped {
		t.Fatalf("worker stopped after a recovered fault")
	}
}

func TestWorker_PanicBecomesError(t *testing.T) {
	w := &Worker{cfg: Config{Pass: func(ctx context.Context) error { panic("bad index") }}}
	err := w.runPass(context.Background())
	if !errors.Is(err, ErrPassPanicked) {
		t.Fatalf("expected ErrPassPanicked, got %v", err)
	}
}

func TestWorker_UnavailableStops(t *testing.T) {
	var stops atomic.Int32
	w := Start(context.Background(), Config{
		Name:     "test",
		Interval: time.Millisecond,
		Pass:     func(ctx context.Context) error { return oracle.ErrUnavailable },
		OnStop:   func() { stops.Add(1) },
		Logger:   zerolog.Nop(),
	})
	waitDone(t, w)
	if w.State() != Stopped || w.Passes() != 1 || stops.Load() != 1 {
		t.Fatalf("state %v passes %d stops %d", w.State(), w.Passes(), stops.Load())
	}
}

func TestState_String(t *testing.T) {
	if Sleeping.String() != "sleeping" || State(9).String() != "state(9)" {
		t.Fatalf("unexpected strings %q %q", Sleeping, State(9))
	}
}
