package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/internal/trace"
)

var (
	genOps     int
	genIDs     int
	genSeed    int64
	genMaxSize int
	genOutput  string
)

func init() {
	cmd := newGenCmd()
	cmd.Flags().IntVar(&genOps, "ops", 4000, "Total number of ops (at least 2 * ids)")
	cmd.Flags().IntVar(&genIDs, "ids", 1000, "Number of distinct blocks")
	cmd.Flags().Int64Var(&genSeed, "seed", 0, "Random seed (0 uses the current time)")
	cmd.Flags().IntVar(&genMaxSize, "max-size", 4096, "Largest request size in bytes")
	cmd.Flags().StringVarP(&genOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(cmd)
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a random trace",
		Long: `The gen command writes a random, well-formed trace: every id is
allocated once, resized some number of times, and released before the end.

Example:
  heapctl gen --ops 20000 --ids 5000 --seed 42 -o random.rep
  heapctl gen --max-size 64 > small.rep`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen()
		},
	}
	return cmd
}

func runGen() error {
	seed := genSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	t, err := trace.Generate(trace.GenOptions{
		Name:    genOutput,
		Ops:     genOps,
		IDs:     genIDs,
		MaxSize: genMaxSize,
		Seed:    seed,
	})
	if err != nil {
		return err
	}

	if genOutput == "" {
		return t.Write(os.Stdout)
	}
	if err := t.WriteFile(genOutput); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]interface{}{
			"file":           genOutput,
			"seed":           seed,
			"ops":            len(t.Ops),
			"ids":            t.NumIDs,
			"suggested_heap": t.SuggestedHeap,
		})
	}
	printInfo("Wrote %d ops over %d ids to %s (seed %d)\n", len(t.Ops), t.NumIDs, genOutput, seed)
	return nil
}
