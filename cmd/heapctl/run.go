package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/internal/trace"
)

var runWorkers int

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "Traces replayed in parallel (0 uses the config value)")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <trace>...",
		Short: "Replay traces and report utilization and throughput",
		Long: `The run command replays each trace against a fresh heap, checking
alignment, bounds, overlap and payload contents of every block.

Example:
  heapctl run traces/*.rep
  heapctl run --config heap.toml --workers 8 traces/*.rep
  heapctl run traces/short1.rep --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

func runRun(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	workers := cfg.Driver.Workers
	if runWorkers > 0 {
		workers = runWorkers
	}

	logger := newLogger()
	newHeap, err := cfg.HeapFactory(logger)
	if err != nil {
		return err
	}

	printVerbose("Replaying %d trace(s) on %d worker(s)\n", len(args), workers)

	results, runErr := trace.RunAll(args, newHeap, workers, trace.ReplayOptions{
		VerifyEachOp: cfg.Driver.VerifyEachOp,
		Logger:       logger,
	})

	if jsonOut {
		if err := printJSON(results); err != nil {
			return err
		}
		return runErr
	}

	if !quiet {
		printResults(results)
	}
	return runErr
}

func printResults(results []trace.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Trace", "Ops", "Heap", "Peak", "Util", "Elapsed", "Kops/s"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	var ops int
	var util float64
	var elapsed time.Duration
	for _, r := range results {
		table.Append([]string{
			r.Name,
			strconv.Itoa(r.Ops),
			strconv.Itoa(r.HeapSize),
			strconv.FormatInt(r.PeakPayload, 10),
			fmt.Sprintf("%.1f%%", r.Utilization*100),
			r.Elapsed.Round(time.Microsecond).String(),
			fmt.Sprintf("%.0f", r.Throughput/1000),
		})
		ops += r.Ops
		util += r.Utilization
		elapsed += r.Elapsed
	}

	if n := len(results); n > 1 {
		var kops float64
		if elapsed > 0 {
			kops = float64(ops) / elapsed.Seconds() / 1000
		}
		table.SetFooter([]string{
			"Total", strconv.Itoa(ops), "", "",
			fmt.Sprintf("%.1f%%", util/float64(n)*100),
			elapsed.Round(time.Microsecond).String(),
			fmt.Sprintf("%.0f", kops),
		})
	}
	table.Render()
}
