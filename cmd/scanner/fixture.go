package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxelscan.ai/internal/hostworld"
	"voxelscan.ai/internal/scan/geom"
)

var fixtureFlags struct {
	world  worldFlags
	out    string
	radius int
	x, z   int
}

var fixtureCmd = &cobra.Command{
	Use:   "fixture",
	Short: "Generate a chunk window and write it as a world fixture",
	RunE: func(cmd *cobra.Command, args []string) error {
		if fixtureFlags.out == "" {
			return fmt.Errorf("--out is required")
		}
		w, err := fixtureFlags.world.open()
		if err != nil {
			return err
		}
		center := geom.Vec3i{X: fixtureFlags.x, Z: fixtureFlags.z}
		loaded, _, err := hostworld.NewLoader(w, fixtureFlags.radius, 0, 0, logger).Update(context.Background(), center)
		if err != nil {
			return err
		}

		out, err := os.Create(fixtureFlags.out)
		if err != nil {
			return err
		}
		if err := hostworld.WriteFixture(out, w); err != nil {
			_ = out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		logger.Info().Str("path", fixtureFlags.out).Int("generated", loaded).
			Int("chunks", len(w.LoadedChunkKeys())).Msg("fixture written")
		return nil
	},
}

func init() {
	f := fixtureCmd.Flags()
	f.Int64Var(&fixtureFlags.world.seed, "seed", 1337, "world generator seed")
	f.StringVar(&fixtureFlags.world.fixture, "from", "", "extend an existing fixture instead of generating from scratch")
	f.BoolVar(&fixtureFlags.world.remote, "remote", false, "mark the fixture world as remote")
	f.StringVar(&fixtureFlags.out, "out", "", "output path")
	f.IntVar(&fixtureFlags.radius, "radius", 6, "chunk radius around the center")
	f.IntVar(&fixtureFlags.x, "x", 0, "center x")
	f.IntVar(&fixtureFlags.z, "z", 0, "center z")
	rootCmd.AddCommand(fixtureCmd)
}
