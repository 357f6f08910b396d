// Package worker runs a scan pass forever on its own goroutine, sleeping
// between passes, until cancelled or until the host world goes away.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"voxelscan.ai/internal/scan/oracle"
)

type State int32

const (
	Idle State = iota
	Scanning
	Sleeping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ErrPassPanicked wraps a panic recovered from a scan pass.
var ErrPassPanicked = errors.New("scan pass panicked")

// PassFunc runs one full scan pass. It must return ctx.Err() promptly once
// ctx is cancelled.
type PassFunc func(ctx context.Context) error

type Config struct {
	Name     string
	Interval time.Duration
	Pass     PassFunc
	// OnStop runs once on the worker goroutine after the last pass. Owners
	// use it to reset the sets and caches the pass writes.
	OnStop func()
	Logger zerolog.Logger
}

type Worker struct {
	cfg Config
	log zerolog.Logger
	ins *instruments

	state  atomic.Int32
	passes atomic.Int64

	cancel   context.CancelFunc
	stopOnce sync.Once
	done     chan struct{}
}

// Start launches the worker. It begins scanning immediately; there is no
// way back from Stopped, so reactivation means a new Start.
func Start(ctx context.Context, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 50 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("worker", cfg.Name).Logger(),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ins, err := newInstruments()
	if err != nil {
		w.log.Warn().Err(err).Msg("pass metrics disabled")
	}
	w.ins = ins
	w.state.Store(int32(Scanning))
	go w.run(ctx)
	return w
}

// Stop cancels the worker and waits for it to finish its cleanup.
func (w *Worker) Stop() {
	w.stopOnce.Do(w.cancel)
	<-w.done
}

func (w *Worker) State() State { return State(w.state.Load()) }

// Done is closed once the worker has stopped and run OnStop.
func (w *Worker) Done() <-chan struct{} { return w.done }

// Passes counts finished passes, whatever their outcome.
func (w *Worker) Passes() int64 { return w.passes.Load() }

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer w.finish()

	for {
		w.state.Store(int32(Scanning))
		start := time.Now()
		err := w.runPass(ctx)
		n := w.passes.Add(1)
		outcome := "ok"

		switch {
		case ctx.Err() != nil:
			w.ins.recordPass(w.cfg.Name, "cancelled", time.Since(start))
			return
		case errors.Is(err, oracle.ErrUnavailable):
			w.ins.recordPass(w.cfg.Name, "unavailable", time.Since(start))
			w.log.Debug().Int64("pass", n).Msg("world unavailable, stopping")
			return
		case err != nil:
			outcome = "error"
			w.log.Error().Err(err).Int64("pass", n).Msg("scan pass abandoned")
		}
		w.ins.recordPass(w.cfg.Name, outcome, time.Since(start))

		w.state.Store(int32(Sleeping))
		t := time.NewTimer(w.cfg.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (w *Worker) runPass(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPassPanicked, r)
		}
	}()
	return w.cfg.Pass(ctx)
}

func (w *Worker) finish() {
	w.stopOnce.Do(w.cancel)
	if w.cfg.OnStop != nil {
		w.cfg.OnStop()
	}
	w.state.Store(int32(Stopped))
	w.log.Debug().Int64("passes", w.passes.Load()).Msg("worker stopped")
}
