package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	sim "github.com/parking-sim/parking-sim/sim"
)

var (
	sweepSeeds    int // number of consecutive seeds, starting at --seed
	sweepParallel int // worlds run at once
)

// sweepResult is the outcome of one world in a sweep.
type sweepResult struct {
	Seed    int64
	EndTime sim.SimTime
	Events  int64
	Summary sim.MetricsSummary
}

// runSweep runs one world per seed, at most parallel at a time. Each world stays on a
// single goroutine; results come back in seed order. The first failure cancels the rest.
func runSweep(ctx context.Context, base sim.Config, seeds []int64, parallel int) ([]sweepResult, error) {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]sweepResult, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, s := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cfg := base
			cfg.Seed = s
			w, err := sim.Bootstrap(cfg)
			if err != nil {
				return fmt.Errorf("seed %d: %w", s, err)
			}
			if err := w.RunToHorizon(); err != nil {
				return fmt.Errorf("seed %d: %w", s, err)
			}
			results[i] = sweepResult{
				Seed:    s,
				EndTime: w.Now(),
				Events:  w.Scheduler().Executed(),
				Summary: w.Metrics().Summarize(),
			}
			logrus.Debugf("Seed %d done: %d parks", s, results[i].Summary.Parks)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// printSweep writes one line per seed and the across-seed mean and standard deviation.
func printSweep(w io.Writer, results []sweepResult) {
	fmt.Fprintln(w, "=== Sweep Results ===")
	fmt.Fprintf(w, "%-8s %8s %12s %12s %10s %10s\n", "seed", "parks", "search_mean", "search_p95", "res_lost", "events")
	parks := make([]float64, len(results))
	search := make([]float64, len(results))
	for i, r := range results {
		s := r.Summary
		fmt.Fprintf(w, "%-8d %8d %12.2f %12.2f %10d %10d\n", r.Seed, s.Parks, s.SearchTime.Mean, s.SearchTime.P95, s.ReservationLosses, r.Events)
		parks[i] = float64(s.Parks)
		search[i] = s.SearchTime.Mean
	}
	if len(results) > 1 {
		pm, ps := stat.MeanStdDev(parks, nil)
		sm, ss := stat.MeanStdDev(search, nil)
		fmt.Fprintf(w, "Parks                : %.1f ± %.1f\n", pm, ps)
		fmt.Fprintf(w, "Mean Search Time (s) : %.2f ± %.2f\n", sm, ss)
	}
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run independent worlds over consecutive seeds in parallel",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if sweepSeeds < 1 {
			logrus.Fatalf("--seeds must be at least 1, got %d", sweepSeeds)
		}
		seeds := make([]int64, sweepSeeds)
		for i := range seeds {
			seeds[i] = cfg.Seed + int64(i)
		}

		log := logrus.WithField("sweep", uuid.New().String())
		log.Infof("Sweeping %d seeds from %d, %d at a time", len(seeds), cfg.Seed, sweepParallel)
		startTime := time.Now()
		results, err := runSweep(cmd.Context(), cfg, seeds, sweepParallel)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		printSweep(cmd.OutOrStdout(), results)
		log.Infof("Sweep complete in %v", time.Since(startTime).Round(time.Millisecond))
	},
}

func init() {
	registerWorldFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepSeeds, "seeds", 8, "Number of consecutive seeds to run, starting at --seed")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", runtime.NumCPU(), "Worlds to run at once")

	rootCmd.AddCommand(sweepCmd)
}
