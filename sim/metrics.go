// Tracks run-wide parking statistics such as search time, search effort,
// reservation losses and how far from their destination cars end up parking.

package sim

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about the run for final reporting.
type Metrics struct {
	Parks             int // Searching → Parked transitions
	ReservationsMade  int // reservations granted to cars
	ReservationLosses int // candidates dropped because the reservation lapsed or was overwritten
	CandidateLosses   int // candidates dropped because someone else took the spot (no reservation)
	RandomSteps       int // random steps taken because no spot was found
	TravelSteps       int // lattice steps toward a destination or a spot
	StaleEvents       int // events ignored because the car was no longer waiting for them

	SearchTimes   []float64 // seconds from arrival to parking, per park
	SearchSteps   []float64 // events spent searching, per park
	ParkDistances []float64 // destination → spot distance, per park
}

// NewMetrics creates an empty Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) recordPark(searchTime SimTime, steps int, distance float64) {
	m.Parks++
	m.SearchTimes = append(m.SearchTimes, float64(searchTime))
	m.SearchSteps = append(m.SearchSteps, float64(steps))
	m.ParkDistances = append(m.ParkDistances, distance)
}

// Distribution summarizes one sample.
type Distribution struct {
	Mean, StdDev, P50, P95, Max float64
}

func describe(xs []float64) Distribution {
	if len(xs) == 0 {
		return Distribution{}
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	d := Distribution{
		Mean: stat.Mean(sorted, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:  floats.Max(sorted),
	}
	if len(sorted) > 1 {
		d.StdDev = stat.StdDev(sorted, nil)
	}
	return d
}

// MetricsSummary is the reportable view of Metrics.
type MetricsSummary struct {
	Parks             int
	ReservationsMade  int
	ReservationLosses int
	CandidateLosses   int
	RandomSteps       int
	TravelSteps       int
	StaleEvents       int
	SearchTime        Distribution
	SearchSteps       Distribution
	ParkDistance      Distribution
}

// Summarize computes distribution statistics over the recorded samples.
func (m *Metrics) Summarize() MetricsSummary {
	return MetricsSummary{
		Parks:             m.Parks,
		ReservationsMade:  m.ReservationsMade,
		ReservationLosses: m.ReservationLosses,
		CandidateLosses:   m.CandidateLosses,
		RandomSteps:       m.RandomSteps,
		TravelSteps:       m.TravelSteps,
		StaleEvents:       m.StaleEvents,
		SearchTime:        describe(m.SearchTimes),
		SearchSteps:       describe(m.SearchSteps),
		ParkDistance:      describe(m.ParkDistances),
	}
}

// Print writes the summary as an aligned report.
func (m *Metrics) Print(w io.Writer, endTime SimTime) {
	s := m.Summarize()
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Simulated Time       : %.1f s\n", float64(endTime))
	fmt.Fprintf(w, "Parks                : %d\n", s.Parks)
	fmt.Fprintf(w, "Travel Steps         : %d\n", s.TravelSteps)
	fmt.Fprintf(w, "Random Steps         : %d\n", s.RandomSteps)
	fmt.Fprintf(w, "Reservations Made    : %d\n", s.ReservationsMade)
	fmt.Fprintf(w, "Reservation Losses   : %d\n", s.ReservationLosses)
	fmt.Fprintf(w, "Candidate Losses     : %d\n", s.CandidateLosses)
	if s.Parks > 0 {
		printDist(w, "Search Time (s)", s.SearchTime)
		printDist(w, "Search Steps", s.SearchSteps)
		printDist(w, "Park Distance (m)", s.ParkDistance)
	}
	if endTime > 0 && !math.IsInf(float64(endTime), 0) {
		fmt.Fprintf(w, "Parks per Hour       : %.2f\n", float64(s.Parks)/float64(endTime)*3600)
	}
}

func printDist(w io.Writer, name string, d Distribution) {
	fmt.Fprintf(w, "%-21s: mean=%.2f sd=%.2f p50=%.2f p95=%.2f max=%.2f\n", name, d.Mean, d.StdDev, d.P50, d.P95, d.Max)
}
