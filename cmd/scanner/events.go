package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"voxelscan.ai/internal/persistence/indexdb"
	plog "voxelscan.ai/internal/persistence/log"
	"voxelscan.ai/internal/scan/discovery"
	"voxelscan.ai/internal/scan/geom"
)

var eventsFlags struct {
	dir      string
	index    string
	kind     string
	material string
	runID    string
	near     []int
	radius   int
	limit    int
	raw      bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print recorded discoveries",
	Long: `Prints discoveries from the compressed discovery log (--dir), or queries the
SQLite index (--index) by kind, material, run and distance.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		emit := eventPrinter(eventsFlags.raw)
		if eventsFlags.index != "" {
			return queryIndex(cmd, emit)
		}

		files, err := plog.Files(eventsFlags.dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no discovery logs in %s", eventsFlags.dir)
		}
		n := 0
		for _, path := range files {
			err := plog.ReadEvents(path, func(e discovery.Event) error {
				if !eventsMatch(e) || (eventsFlags.limit > 0 && n >= eventsFlags.limit) {
					return nil
				}
				n++
				return emit(e)
			})
			if err != nil {
				return err
			}
		}
		return nil
	},
}

// openIndex opens an existing index for reading. OpenSQLite would create a
// missing file, which hides a mistyped path behind an empty result.
func openIndex(path string) (*indexdb.SQLiteIndex, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("discovery index: %w", err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("discovery index: %s is a directory", path)
	}
	return indexdb.OpenSQLite(path)
}

func queryIndex(cmd *cobra.Command, emit func(discovery.Event) error) error {
	idx, err := openIndex(eventsFlags.index)
	if err != nil {
		return err
	}
	defer idx.Close()

	f := indexdb.Filter{
		RunID:    eventsFlags.runID,
		Kind:     discovery.Kind(eventsFlags.kind),
		Material: eventsFlags.material,
		Radius:   eventsFlags.radius,
		Limit:    eventsFlags.limit,
	}
	if eventsFlags.radius > 0 {
		if len(eventsFlags.near) != 3 {
			return fmt.Errorf("--near wants x,y,z")
		}
		f.Near = geom.Vec3i{X: eventsFlags.near[0], Y: eventsFlags.near[1], Z: eventsFlags.near[2]}
	}
	events, err := idx.Query(cmd.Context(), f)
	if err != nil {
		return err
	}
	for _, e := range events {
		if err := emit(e); err != nil {
			return err
		}
	}
	return nil
}

func eventsMatch(e discovery.Event) bool {
	switch {
	case eventsFlags.kind != "" && string(e.Kind) != eventsFlags.kind:
		return false
	case eventsFlags.material != "" && e.Material != eventsFlags.material:
		return false
	case eventsFlags.runID != "" && e.RunID != eventsFlags.runID:
		return false
	}
	return true
}

func eventPrinter(raw bool) func(discovery.Event) error {
	if raw {
		enc := json.NewEncoder(os.Stdout)
		return func(e discovery.Event) error { return enc.Encode(e) }
	}
	return func(e discovery.Event) error {
		_, err := fmt.Printf("%s %-4s %6d %6d %6d size=%d %s\n",
			e.Time.UTC().Format("2006-01-02T15:04:05Z"), e.Kind, e.Pos[0], e.Pos[1], e.Pos[2], e.Size, e.Material)
		return err
	}
}

func init() {
	f := eventsCmd.Flags()
	f.StringVar(&eventsFlags.dir, "dir", "data/discoveries", "discovery log directory")
	f.StringVar(&eventsFlags.index, "index", "", "query this SQLite index instead of reading the log")
	f.StringVar(&eventsFlags.kind, "kind", "", "only cave or vein events")
	f.StringVar(&eventsFlags.material, "material", "", "only veins of this material")
	f.StringVar(&eventsFlags.runID, "run", "", "only events of this run id")
	f.IntSliceVar(&eventsFlags.near, "near", nil, "x,y,z center for --radius (index only)")
	f.IntVar(&eventsFlags.radius, "radius", 0, "distance from --near (index only)")
	f.IntVar(&eventsFlags.limit, "limit", 0, "print at most this many events")
	f.BoolVar(&eventsFlags.raw, "json", false, "print JSON lines")
	rootCmd.AddCommand(eventsCmd)
}
