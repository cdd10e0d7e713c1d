// Package trace provides transition-trace recording for car state machines.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

import (
	"fmt"
	"strconv"
)

// TransitionRecord captures one car changing state.
type TransitionRecord struct {
	Clock  float64 // simulated time of the transition
	CarID  int
	From   string
	To     string
	SpotID int     // spot held or eyed after the transition; -1 if none
	X, Y   float64 // car position at the transition
}

// Header is the column order used by Row.
var Header = []string{"clock", "car", "from", "to", "spot", "x", "y"}

// Row renders the record as CSV fields in Header order.
func (r TransitionRecord) Row() []string {
	return []string{
		strconv.FormatFloat(r.Clock, 'f', 6, 64),
		strconv.Itoa(r.CarID),
		r.From,
		r.To,
		strconv.Itoa(r.SpotID),
		strconv.FormatFloat(r.X, 'f', 3, 64),
		strconv.FormatFloat(r.Y, 'f', 3, 64),
	}
}

// ParseRow is the inverse of Row. Positions and times round-trip at Row's precision.
func ParseRow(fields []string) (TransitionRecord, error) {
	if len(fields) != len(Header) {
		return TransitionRecord{}, fmt.Errorf("trace row has %d fields, want %d", len(fields), len(Header))
	}
	var r TransitionRecord
	var err error
	if r.Clock, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return r, fmt.Errorf("clock: %w", err)
	}
	if r.CarID, err = strconv.Atoi(fields[1]); err != nil {
		return r, fmt.Errorf("car: %w", err)
	}
	r.From, r.To = fields[2], fields[3]
	if r.SpotID, err = strconv.Atoi(fields[4]); err != nil {
		return r, fmt.Errorf("spot: %w", err)
	}
	if r.X, err = strconv.ParseFloat(fields[5], 64); err != nil {
		return r, fmt.Errorf("x: %w", err)
	}
	if r.Y, err = strconv.ParseFloat(fields[6], 64); err != nil {
		return r, fmt.Errorf("y: %w", err)
	}
	return r, nil
}
