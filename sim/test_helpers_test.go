package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parking-sim/parking-sim/sim/trace"
)

// testConfig returns the reference world with no fleet and no spots, so each test
// decides what to populate.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SpotLayout = LayoutNone
	cfg.Fleet = nil
	return cfg
}

// newTestWorld builds an empty world from testConfig after applying mutate.
func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewWorld(cfg)
	require.NoError(t, err)
	return w
}

// stepUntil steps w until cond holds, failing the test after limit events.
func stepUntil(t *testing.T, w *World, limit int, cond func() bool) {
	t.Helper()
	for i := 0; !cond(); i++ {
		if i >= limit {
			t.Fatalf("condition not reached after %d events (t=%.1f)", limit, float64(w.Now()))
		}
		more, err := w.Step()
		require.NoError(t, err)
		require.True(t, more, "event queue drained")
	}
}

// transitionKey is the comparable part of a transition for determinism checks.
type transitionKey struct {
	Clock float64
	Car   int
	To    string
	Spot  int
}

func recordTransitions(w *World) *[]transitionKey {
	var out []transitionKey
	w.OnTransition(func(r trace.TransitionRecord) {
		out = append(out, transitionKey{Clock: r.Clock, Car: r.CarID, To: r.To, Spot: r.SpotID})
	})
	return &out
}
