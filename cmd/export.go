package cmd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/parking-sim/parking-sim/sim/trace"
)

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// writeTrace writes a header line and one CSV row per transition.
func writeTrace(w io.Writer, records []trace.TransitionRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(trace.Header); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write(r.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeTraceFile writes records to path, zstd-compressed when path ends in .zst.
func writeTraceFile(path string, records []trace.TransitionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if !compressed(path) {
		if err := writeTrace(f, records); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := writeTrace(enc, records); err != nil {
		_ = enc.Close()
		_ = f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// readTrace parses what writeTrace produced.
func readTrace(r io.Reader) ([]trace.TransitionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(trace.Header)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("trace header: %w", err)
	}
	if strings.Join(header, ",") != strings.Join(trace.Header, ",") {
		return nil, fmt.Errorf("unexpected trace header %v", header)
	}
	var out []trace.TransitionRecord
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		rec, err := trace.ParseRow(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
}

// readTraceFile reads a trace written by writeTraceFile.
func readTraceFile(path string) ([]trace.TransitionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !compressed(path) {
		return readTrace(f)
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return readTrace(dec)
}

// printTraceSummary writes transition counts per target state and cycle statistics.
func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Trace Summary ===")
	fmt.Fprintf(w, "Transitions          : %d\n", s.TotalTransitions)
	fmt.Fprintf(w, "Cars                 : %d\n", s.UniqueCars)
	fmt.Fprintf(w, "Last Transition      : %.3f s\n", s.LastClock)
	states := make([]string, 0, len(s.ByTarget))
	for st := range s.ByTarget {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Fprintf(w, "  -> %-17s: %d\n", st, s.ByTarget[st])
	}
	total, most := 0, 0
	for _, n := range s.CompletedCycles {
		total += n
		most = max(most, n)
	}
	fmt.Fprintf(w, "Completed Cycles     : %d (max %d per car)\n", total, most)
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <trace.csv|trace.csv.zst>",
	Short: "Summarize a transition trace written by run --trace-out",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		records, err := readTraceFile(args[0])
		if err != nil {
			logrus.Fatalf("Unable to read trace %s: %v", args[0], err)
		}
		st := &trace.SimulationTrace{
			Config:      trace.TraceConfig{Level: trace.TraceLevelTransitions},
			Transitions: records,
		}
		printTraceSummary(cmd.OutOrStdout(), trace.Summarize(st))
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.AddCommand(summarizeCmd)
}
