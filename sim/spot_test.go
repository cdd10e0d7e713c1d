package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parking-sim/parking-sim/sim/geo"
)

// newTestSpots returns an arena with n spots along the x axis.
func newTestSpots(n int) *SpotTable {
	t := NewSpotTable()
	for i := 0; i < n; i++ {
		t.add(geo.Point{X: float64(i)}, geo.Key(i))
	}
	return t
}

func TestSpotTable_NewSpotIsFree(t *testing.T) {
	spots := newTestSpots(1)
	s := spots.Get(0)
	require.NotNil(t, s)

	assert.Equal(t, NoCar, s.OccupiedBy())
	assert.Equal(t, NoCar, s.ReservedBy(0))
	assert.Equal(t, SpotFree, s.State(0))
	assert.False(t, spots.IsInUse(0, 0))
	assert.Nil(t, spots.Get(1))
	assert.Nil(t, spots.Get(NoSpot))
}

func TestSpotTable_UnknownSpotIsInUse(t *testing.T) {
	spots := newTestSpots(1)
	assert.True(t, spots.IsInUse(5, 0))
	assert.True(t, spots.IsInUse(NoSpot, 0))
}

func TestSpotTable_ReservationLapsesStrictlyAfterExpiry(t *testing.T) {
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 7, 300, 100))

	// GIVEN a reservation until t=400
	assert.Equal(t, SimTime(400), spots.Get(0).ReservedUntil())

	// THEN it is still valid at exactly t=400
	assert.True(t, spots.IsInUse(0, 400))
	assert.True(t, spots.ConfirmReservation(0, 7, 400))

	// AND gone just after
	assert.False(t, spots.ConfirmReservation(0, 7, 400.001))
	assert.False(t, spots.IsInUse(0, 400.001))
	assert.Equal(t, SpotFree, spots.Get(0).State(400.001))
}

func TestSpotTable_ZeroDurationReservation(t *testing.T) {
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 1, 0, 50))
	assert.True(t, spots.IsInUse(0, 50))
	assert.False(t, spots.IsInUse(0, 50.5))
}

func TestSpotTable_ReserveLastWriterWins(t *testing.T) {
	// GIVEN car 1 holds a valid reservation
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 1, 300, 0))

	// WHEN car 2 reserves the same spot
	require.NoError(t, spots.Reserve(0, 2, 300, 10))

	// THEN car 1 silently lost it
	assert.False(t, spots.ConfirmReservation(0, 1, 20))
	assert.True(t, spots.ConfirmReservation(0, 2, 20))
	assert.Equal(t, CarID(2), spots.Get(0).ReservedBy(20))
	assert.Equal(t, SimTime(310), spots.Get(0).ReservedUntil())
}

func TestSpotTable_ReserveRejectsBadInput(t *testing.T) {
	spots := newTestSpots(1)
	assert.ErrorIs(t, spots.Reserve(3, 1, 10, 0), ErrInputValidation)
	assert.ErrorIs(t, spots.Reserve(0, NoCar, 10, 0), ErrInputValidation)
	assert.ErrorIs(t, spots.Reserve(0, 1, -1, 0), ErrInputValidation)
	assert.Equal(t, SpotFree, spots.Get(0).State(0))
}

func TestSpotTable_ReserveOccupiedIsConflict(t *testing.T) {
	spots := newTestSpots(1)
	require.NoError(t, spots.Occupy(0, 1, 0))

	err := spots.Reserve(0, 2, 300, 5)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Equal(t, NoCar, spots.Get(0).ReservedBy(5))
	assert.NoError(t, spots.CheckInvariant(0, 5))
}

func TestSpotTable_OccupyClearsOwnReservation(t *testing.T) {
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 4, 300, 0))

	require.NoError(t, spots.Occupy(0, 4, 10))

	s := spots.Get(0)
	assert.Equal(t, CarID(4), s.OccupiedBy())
	assert.Equal(t, NoCar, s.ReservedBy(10))
	assert.Equal(t, SpotOccupied, s.State(10))
	assert.False(t, spots.ConfirmReservation(0, 4, 10))
}

func TestSpotTable_OccupyConflicts(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*SpotTable)
		now   SimTime
	}{
		{
			name:  "occupied by another car",
			setup: func(s *SpotTable) { _ = s.Occupy(0, 1, 0) },
		},
		{
			name:  "validly reserved by another car",
			setup: func(s *SpotTable) { _ = s.Reserve(0, 1, 300, 0) },
			now:   300,
		},
		{
			name:  "occupied by the same car",
			setup: func(s *SpotTable) { _ = s.Occupy(0, 2, 0) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spots := newTestSpots(1)
			tt.setup(spots)
			before := *spots.Get(0)

			err := spots.Occupy(0, 2, tt.now)

			assert.ErrorIs(t, err, ErrStateConflict)
			assert.Equal(t, before, *spots.Get(0), "failed Occupy must not mutate the spot")
		})
	}
}

func TestSpotTable_OccupyAfterLapse(t *testing.T) {
	// GIVEN car 1's reservation expired
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 1, 60, 0))

	// WHEN car 2 tries to occupy after expiry
	err := spots.Occupy(0, 2, 61)

	// THEN it succeeds
	require.NoError(t, err)
	assert.Equal(t, CarID(2), spots.Get(0).OccupiedBy())
}

func TestSpotTable_ReleaseClearsEverything(t *testing.T) {
	spots := newTestSpots(2)
	require.NoError(t, spots.Occupy(0, 1, 0))
	require.NoError(t, spots.Reserve(1, 2, 300, 0))

	require.NoError(t, spots.Release(0))
	require.NoError(t, spots.Release(1))

	for id := SpotID(0); id < 2; id++ {
		assert.False(t, spots.IsInUse(id, 1))
		assert.Equal(t, SpotFree, spots.Get(id).State(1))
	}
	assert.ErrorIs(t, spots.Release(9), ErrInputValidation)
}

func TestSpotTable_ReservedByDoesNotMutate(t *testing.T) {
	spots := newTestSpots(1)
	require.NoError(t, spots.Reserve(0, 3, 10, 0))

	s := spots.Get(0)
	assert.Equal(t, NoCar, s.ReservedBy(20))
	// the field survives a read; only IsInUse/Confirm/Reserve/Occupy lapse it
	assert.Equal(t, SimTime(10), s.ReservedUntil())
	assert.False(t, spots.IsInUse(0, 20))
	assert.Equal(t, SimTime(0), s.ReservedUntil())
}

func TestSpotState_String(t *testing.T) {
	assert.Equal(t, "free", SpotFree.String())
	assert.Equal(t, "reserved", SpotReserved.String())
	assert.Equal(t, "occupied", SpotOccupied.String())
	assert.Equal(t, "SpotState(9)", SpotState(9).String())
}
