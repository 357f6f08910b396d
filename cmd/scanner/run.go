package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"voxelscan.ai/internal/hostworld"
	"voxelscan.ai/internal/persistence/indexdb"
	plog "voxelscan.ai/internal/persistence/log"
	"voxelscan.ai/internal/scan/config"
	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/engine"
	"voxelscan.ai/internal/scan/geom"
	"voxelscan.ai/internal/transport/feed"
)

var runFlags struct {
	world       worldFlags
	config      string
	listen      string
	depth       int
	walkMs      int
	chunkRadius int
	loadRate    float64
	statusEvery time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan a live host world and serve discoveries",
	Long: `Generates (or loads) a host world, walks an observer through it digging a
tunnel, and runs the cave and vein workers against the changing world. Results
are served on the feed endpoint and optionally logged to disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(runFlags.config)
		if err != nil {
			return err
		}
		if runFlags.statusEvery <= 0 {
			runFlags.statusEvery = 10 * time.Second
		}
		if runFlags.listen != "" {
			cfg.Feed.Listen = runFlags.listen
		}

		w, err := runFlags.world.open()
		if err != nil {
			return err
		}
		spawn := geom.Vec3i{X: 8, Z: 8}
		spawn.Y = w.Gen().SurfaceAt(spawn.X, spawn.Z) - runFlags.depth
		host := hostworld.NewHost(w, spawn)
		loader := hostworld.NewLoader(w, runFlags.chunkRadius, runFlags.loadRate, runFlags.chunkRadius*4, logger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// The first window loads unthrottled so the first passes see terrain.
		if _, _, err := hostworld.NewLoader(w, runFlags.chunkRadius, 0, 0, logger).Update(ctx, spawn); err != nil {
			return err
		}

		var sinks []discovery.Sink
		if cfg.Log.Dir != "" {
			dl := plog.NewDiscoveryLogger(cfg.Log.Dir)
			defer dl.Close()
			sinks = append(sinks, dl)
		}
		if cfg.Log.Index != "" {
			idx, err := indexdb.OpenSQLite(cfg.Log.Index)
			if err != nil {
				return err
			}
			defer idx.Close()
			sinks = append(sinks, idx)
		}

		eng := engine.New(cfg, host, w, engine.Options{Logger: logger, Sink: fanOut(sinks)})
		walker := hostworld.NewWalker(host, w, loader, runFlags.world.seed, logger)
		srv := feed.NewServer(eng, cfg.Feed, logger)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			// Workers stop when the host world goes away; re-activating on a
			// timer restarts them once it is back. Running workers are kept.
			t := time.NewTicker(time.Second)
			defer t.Stop()
			for {
				eng.Activate(gctx)
				select {
				case <-gctx.Done():
					eng.Deactivate()
					return nil
				case <-t.C:
				}
			}
		})
		g.Go(func() error {
			if runFlags.walkMs <= 0 {
				return nil
			}
			return walker.Run(gctx, time.Duration(runFlags.walkMs)*time.Millisecond)
		})
		g.Go(func() error { return srv.Run(gctx) })
		g.Go(func() error {
			t := time.NewTicker(runFlags.statusEvery)
			defer t.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
					st := eng.Status()
					logger.Info().Str("run_id", st.RunID).Int("chunks", len(w.LoadedChunkKeys())).
						Int64("edits", w.Edits()).Msg(st.String())
				}
			}
		})

		err = g.Wait()
		if err != nil && ctx.Err() != nil {
			// Shutdown by signal; walker and feed report the cancellation.
			err = nil
		}
		logger.Info().Msg("scanner stopped")
		return err
	},
}

// fanOut records each event to every sink. Sink failures are logged and never
// reach the scan workers.
func fanOut(sinks []discovery.Sink) discovery.Sink {
	if len(sinks) == 0 {
		return discovery.Discard
	}
	return discovery.SinkFunc(func(e discovery.Event) error {
		for _, s := range sinks {
			if err := s.Record(e); err != nil {
				logger.Warn().Err(err).Str("kind", string(e.Kind)).Msg("discovery sink write failed")
			}
		}
		return nil
	})
}

func init() {
	f := runCmd.Flags()
	f.Int64Var(&runFlags.world.seed, "seed", 1337, "world generator seed")
	f.StringVar(&runFlags.world.fixture, "fixture", "", "load the world from a fixture file instead of generating it")
	f.BoolVar(&runFlags.world.remote, "remote", false, "treat the world as remote (smaller flood budgets)")
	f.StringVar(&runFlags.config, "config", "", "scan.yaml path (defaults apply when empty)")
	f.StringVar(&runFlags.listen, "listen", "", "feed listen address (overrides feed.listen)")
	f.IntVar(&runFlags.depth, "depth", 40, "observer start depth below the surface")
	f.IntVar(&runFlags.walkMs, "walk-ms", 250, "observer step interval in ms; 0 keeps it still")
	f.IntVar(&runFlags.chunkRadius, "chunk-radius", 8, "loaded chunk window radius")
	f.Float64Var(&runFlags.loadRate, "load-rate", 32, "chunk loads per second while walking; 0 is unlimited")
	f.DurationVar(&runFlags.statusEvery, "status-every", 10*time.Second, "status log interval")
	rootCmd.AddCommand(runCmd)
}
