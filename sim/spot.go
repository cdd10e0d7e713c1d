package sim

import (
	"fmt"
	"math"

	"github.com/parking-sim/parking-sim/sim/geo"
)

// SpotID indexes a parking spot in the world's arena.
type SpotID int

// NoSpot means "no spot held or eyed".
const NoSpot SpotID = -1

// CarID indexes a car in the world.
type CarID int

// NoCar means "nobody" in occupancy and reservation fields.
const NoCar CarID = -1

// SpotState is derived from a spot's fields at a given time; it is never stored.
type SpotState int

const (
	SpotFree SpotState = iota
	SpotReserved
	SpotOccupied
)

func (s SpotState) String() string {
	switch s {
	case SpotFree:
		return "free"
	case SpotReserved:
		return "reserved"
	case SpotOccupied:
		return "occupied"
	default:
		return fmt.Sprintf("SpotState(%d)", int(s))
	}
}

// ParkingSpot is a point-located, exclusively occupiable resource. Its fields are
// read through accessors; changes go through SpotTable.
type ParkingSpot struct {
	id            SpotID
	pos           geo.Point
	key           geo.Key
	occupiedBy    CarID
	reservedBy    CarID
	reservedUntil SimTime
}

// ID returns the spot's index in its SpotTable.
func (p *ParkingSpot) ID() SpotID { return p.id }

// Position returns where the spot is.
func (p *ParkingSpot) Position() geo.Point { return p.pos }

// Key returns the spot's Z-order key in the spatial index.
func (p *ParkingSpot) Key() geo.Key { return p.key }

// OccupiedBy returns the parked car, or NoCar.
func (p *ParkingSpot) OccupiedBy() CarID { return p.occupiedBy }

// ReservedBy returns the holder of a reservation still valid at now, or NoCar.
// It does not clear a lapsed reservation.
func (p *ParkingSpot) ReservedBy(now SimTime) CarID {
	if p.reservedBy == NoCar || p.reservedUntil < now {
		return NoCar
	}
	return p.reservedBy
}

// ReservedUntil returns the expiry of the current reservation field (valid or not).
func (p *ParkingSpot) ReservedUntil() SimTime { return p.reservedUntil }

// State returns the spot's state as seen at now.
func (p *ParkingSpot) State(now SimTime) SpotState {
	switch {
	case p.occupiedBy != NoCar:
		return SpotOccupied
	case p.ReservedBy(now) != NoCar:
		return SpotReserved
	default:
		return SpotFree
	}
}

// lapse clears a reservation whose expiry is strictly before now.
func (p *ParkingSpot) lapse(now SimTime) {
	if p.reservedBy != NoCar && p.reservedUntil < now {
		p.reservedBy = NoCar
		p.reservedUntil = 0
	}
}

// SpotTable is the arena of parking spots. Spots are created once and never removed;
// every occupancy and reservation change goes through its methods.
type SpotTable struct {
	spots []ParkingSpot
}

// NewSpotTable creates an empty arena.
func NewSpotTable() *SpotTable {
	return &SpotTable{}
}

func (t *SpotTable) add(pos geo.Point, key geo.Key) SpotID {
	id := SpotID(len(t.spots))
	t.spots = append(t.spots, ParkingSpot{
		id:         id,
		pos:        pos,
		key:        key,
		occupiedBy: NoCar,
		reservedBy: NoCar,
	})
	return id
}

// Len returns the number of spots.
func (t *SpotTable) Len() int {
	return len(t.spots)
}

// Get returns the spot with the given id, or nil if there is none.
func (t *SpotTable) Get(id SpotID) *ParkingSpot {
	if id < 0 || int(id) >= len(t.spots) {
		return nil
	}
	return &t.spots[id]
}

func (t *SpotTable) lookup(id SpotID) (*ParkingSpot, error) {
	if s := t.Get(id); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown spot %d", ErrInputValidation, id)
}

// IsInUse lapses an expired reservation, then reports whether the spot is occupied
// or reserved. Unknown spots report true so they are never handed out.
func (t *SpotTable) IsInUse(id SpotID, now SimTime) bool {
	s := t.Get(id)
	if s == nil {
		return true
	}
	s.lapse(now)
	return s.occupiedBy != NoCar || s.reservedBy != NoCar
}

// Reserve grants by a reservation until now+duration, overwriting any previous
// reservation without notice: last writer wins. Occupied spots cannot be reserved.
func (t *SpotTable) Reserve(id SpotID, by CarID, duration, now SimTime) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	if by < 0 {
		return fmt.Errorf("%w: reserve spot %d for car %d", ErrInputValidation, id, by)
	}
	if !(duration >= 0) || math.IsInf(float64(duration), 0) {
		return fmt.Errorf("%w: reservation duration %v", ErrInputValidation, duration)
	}
	s.lapse(now)
	if s.occupiedBy != NoCar {
		return fmt.Errorf("%w: car %d cannot reserve spot %d occupied by car %d", ErrStateConflict, by, id, s.occupiedBy)
	}
	s.reservedBy = by
	s.reservedUntil = now + duration
	return nil
}

// ConfirmReservation lapses an expired reservation, then reports whether by still holds it.
func (t *SpotTable) ConfirmReservation(id SpotID, by CarID, now SimTime) bool {
	s := t.Get(id)
	if s == nil {
		return false
	}
	s.lapse(now)
	return s.reservedBy != NoCar && s.reservedBy == by
}

// Occupy parks by on the spot and clears any reservation. It fails with
// ErrStateConflict, leaving the spot untouched, when the spot is occupied or
// validly reserved by another car.
func (t *SpotTable) Occupy(id SpotID, by CarID, now SimTime) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	if by < 0 {
		return fmt.Errorf("%w: occupy spot %d by car %d", ErrInputValidation, id, by)
	}
	s.lapse(now)
	if s.occupiedBy != NoCar {
		return fmt.Errorf("%w: car %d cannot occupy spot %d, occupied by car %d", ErrStateConflict, by, id, s.occupiedBy)
	}
	if s.reservedBy != NoCar && s.reservedBy != by {
		return fmt.Errorf("%w: car %d cannot occupy spot %d, reserved by car %d until %.3f",
			ErrStateConflict, by, id, s.reservedBy, float64(s.reservedUntil))
	}
	s.occupiedBy = by
	s.reservedBy = NoCar
	s.reservedUntil = 0
	return nil
}

// Release clears occupancy and reservation unconditionally.
func (t *SpotTable) Release(id SpotID) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	s.occupiedBy = NoCar
	s.reservedBy = NoCar
	s.reservedUntil = 0
	return nil
}

// CheckInvariant verifies that an occupied spot carries no valid reservation for a
// different car.
func (t *SpotTable) CheckInvariant(id SpotID, now SimTime) error {
	s, err := t.lookup(id)
	if err != nil {
		return err
	}
	if s.occupiedBy != NoCar {
		if r := s.ReservedBy(now); r != NoCar && r != s.occupiedBy {
			return fmt.Errorf("spot %d occupied by car %d but reserved by car %d", id, s.occupiedBy, r)
		}
	}
	return nil
}
