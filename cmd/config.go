package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	sim "github.com/parking-sim/parking-sim/sim"
)

// loadConfig reads a YAML run config on top of sim.DefaultConfig. Keys missing from the
// file keep their defaults; unknown keys are errors so typos never pass silently.
func loadConfig(path string) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyFlagOverrides copies explicitly set flags onto cfg. Any fleet flag replaces the
// configured fleet with a single group.
func applyFlagOverrides(cmd *cobra.Command, cfg *sim.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("metric") {
		cfg.Metric = metricName
	}
	if flags.Changed("spot-spacing") {
		cfg.SpotSpacing = spotSpacing
	}
	if flags.Changed("cars") || flags.Changed("random-walk") || flags.Changed("reservations") {
		cfg.Fleet = []sim.FleetConfig{{
			Count:           carCount,
			UseRandomWalk:   randomWalk,
			UseReservations: reservations,
		}}
	}
}

// resolveConfig builds the effective run config for cmd: file, then flags, then validation.
func resolveConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
