package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/parking-sim/parking-sim/sim"
	"github.com/parking-sim/parking-sim/sim/trace"
)

var (
	// CLI flags shared by run and sweep
	configPath   string  // YAML run config; flags below override it when set
	logLevel     string  // Log verbosity level
	seed         int64   // Master seed
	horizon      float64 // Simulated seconds to run
	metricName   string  // Distance metric
	carCount     int     // Replaces the configured fleet with one group of this size
	randomWalk   bool    // Fleet group searches by random walk
	reservations bool    // Fleet group reserves its spot before driving to it
	spotSpacing  float64 // Grid layout spacing

	// run only
	traceOut     string // Write transitions as CSV (zstd when the name ends in .zst)
	showProgress bool   // Draw a progress bar over simulated time
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "parking-sim",
	Short: "Discrete-event simulator of cars competing for parking spots",
}

// runCmd executes one world using parameters from the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulated world",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg, err := resolveConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if traceOut != "" {
			cfg.Trace = string(trace.TraceLevelTransitions)
		}

		runID := uuid.New().String()
		log := logrus.WithField("run", runID)
		log.Infof("Starting simulation: seed=%d, horizon=%.0fs, metric=%s", cfg.Seed, cfg.Horizon, cfg.Metric)

		startTime := time.Now()
		w, err := sim.Bootstrap(cfg)
		if err != nil {
			log.Fatalf("Unable to build world: %v", err)
		}
		if showProgress {
			err = runWithProgress(w, sim.SimTime(cfg.Horizon))
		} else {
			err = w.RunToHorizon()
		}
		if err != nil {
			log.Fatalf("Simulation failed at t=%.3f: %v", float64(w.Now()), err)
		}

		w.Metrics().Print(os.Stdout, w.Now())
		stats := w.ScanStats()
		fmt.Printf("Index Scans          : %d (%d cells, %d entries visited)\n", stats.Scans, stats.Cells, stats.Visited)

		if traceOut != "" {
			if err := writeTraceFile(traceOut, w.Trace().Transitions); err != nil {
				log.Fatalf("Unable to write trace: %v", err)
			}
			log.Infof("Wrote %d transitions to %s", len(w.Trace().Transitions), traceOut)
		}

		log.Infof("Simulation complete in %v (%d events)", time.Since(startTime).Round(time.Millisecond), w.Scheduler().Executed())
	},
}

// runWithProgress runs w to until in 1% slices of simulated time, advancing a bar.
func runWithProgress(w *sim.World, until sim.SimTime) error {
	bar := progressbar.NewOptions64(int64(until),
		progressbar.OptionSetDescription("simulating"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	for i := 1; i <= 100; i++ {
		if err := w.Run(until * sim.SimTime(i) / 100); err != nil {
			return err
		}
		_ = bar.Set64(int64(min(w.Now(), until)))
	}
	return bar.Finish()
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerWorldFlags adds the flags that shape a world. Defaults mirror sim.DefaultConfig;
// a flag only overrides the config file when given explicitly.
func registerWorldFlags(cmd *cobra.Command) {
	def := sim.DefaultConfig()
	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML run config (unknown keys are errors)")
	cmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	cmd.Flags().Int64Var(&seed, "seed", def.Seed, "Master seed")
	cmd.Flags().Float64Var(&horizon, "horizon", def.Horizon, "Simulated seconds to run")
	cmd.Flags().StringVar(&metricName, "metric", def.Metric, "Distance metric (euclidean, manhattan, great-circle)")
	cmd.Flags().Float64Var(&spotSpacing, "spot-spacing", def.SpotSpacing, "Meters between spots in the grid layout")

	// fleet
	cmd.Flags().IntVar(&carCount, "cars", 100, "Number of cars (replaces the configured fleet)")
	cmd.Flags().BoolVar(&randomWalk, "random-walk", false, "Cars search by random walk")
	cmd.Flags().BoolVar(&reservations, "reservations", true, "Cars reserve the spot they drive to")
}

// init sets up CLI flags and subcommands
func init() {
	registerWorldFlags(runCmd)
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Write state transitions as CSV (.zst for zstd)")
	runCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar on stderr")

	rootCmd.AddCommand(runCmd)
}
