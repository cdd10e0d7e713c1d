package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalTransitions int
	UniqueCars       int
	ByTarget         map[string]int // target state → number of transitions into it
	CompletedCycles  map[int]int    // car ID → Searching→Parked transitions
	LastClock        float64
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		ByTarget:        make(map[string]int),
		CompletedCycles: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	cars := make(map[int]bool)
	summary.TotalTransitions = len(st.Transitions)
	for _, r := range st.Transitions {
		cars[r.CarID] = true
		summary.ByTarget[r.To]++
		if r.From == "searching" && r.To == "parked" {
			summary.CompletedCycles[r.CarID]++
		}
		if r.Clock > summary.LastClock {
			summary.LastClock = r.Clock
		}
	}
	summary.UniqueCars = len(cars)

	return summary
}
