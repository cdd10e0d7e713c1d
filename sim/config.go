package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/parking-sim/parking-sim/sim/geo"
	"github.com/parking-sim/parking-sim/sim/trace"
)

// Spot layouts understood by World.SeedSpots.
const (
	LayoutGrid   = "grid"
	LayoutRandom = "random"
	LayoutNone   = "none"
)

// FleetConfig describes a group of identically configured cars.
type FleetConfig struct {
	Count           int  `yaml:"count"`
	UseRandomWalk   bool `yaml:"use_random_walk"`
	UseReservations bool `yaml:"use_reservations"`
}

// Config groups every parameter of a run. A run is fully defined by a Config.
type Config struct {
	XMax float64 `yaml:"x_max"` // world width (meters)
	YMax float64 `yaml:"y_max"` // world height (meters)

	SpotLayout  string  `yaml:"spot_layout"`  // grid | random | none
	SpotSpacing float64 `yaml:"spot_spacing"` // grid layout: meters between spots
	SpotOffset  float64 `yaml:"spot_offset"`  // grid layout: position of the first row/column
	SpotCount   int     `yaml:"spot_count"`   // random layout: number of spots

	DriveGrid               float64 `yaml:"drive_grid"`                // driving lattice spacing (meters)
	DrivingSpeed            float64 `yaml:"driving_speed"`             // meters per second
	WalkRadius              float64 `yaml:"walk_radius"`               // random-walk search radius
	SearchRadius            float64 `yaml:"search_radius"`             // nearest-spot search radius
	ReservationDuration     float64 `yaml:"reservation_duration"`      // seconds a reservation stays valid
	ReservationArrivalSlack float64 `yaml:"reservation_arrival_slack"` // arrival threshold in grid units when reserving

	DwellMean       float64 `yaml:"dwell_mean"`
	DwellSpread     float64 `yaml:"dwell_spread"`
	FirstWakeMean   float64 `yaml:"first_wake_mean"`
	FirstWakeSpread float64 `yaml:"first_wake_spread"`

	Metric  string  `yaml:"metric"`  // euclidean | manhattan | great-circle
	Seed    int64   `yaml:"seed"`    // master seed
	Horizon float64 `yaml:"horizon"` // seconds of simulated time for Run
	Trace   string  `yaml:"trace"`   // none | transitions

	Fleet []FleetConfig `yaml:"fleet"`
}

// DefaultConfig returns the reference setup: a 3 km square with a spot every 10 m,
// cars driving a 100 m lattice at 10 m/s.
func DefaultConfig() Config {
	return Config{
		XMax:                    3000,
		YMax:                    3000,
		SpotLayout:              LayoutGrid,
		SpotSpacing:             10,
		SpotOffset:              5,
		DriveGrid:               100,
		DrivingSpeed:            10,
		WalkRadius:              100,
		SearchRadius:            2000,
		ReservationDuration:     300,
		ReservationArrivalSlack: 2,
		DwellMean:               600,
		DwellSpread:             1.5,
		FirstWakeMean:           3,
		FirstWakeSpread:         5,
		Metric:                  geo.MetricEuclidean,
		Seed:                    42,
		Horizon:                 24 * 3600,
		Trace:                   string(trace.TraceLevelNone),
		Fleet: []FleetConfig{
			{Count: 100, UseReservations: true},
		},
	}
}

// Bounds returns the world rectangle.
func (c Config) Bounds() geo.Bounds {
	return geo.Bounds{XMax: c.XMax, YMax: c.YMax}
}

func positive(name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a positive finite number, got %v", name, v)
	}
	return nil
}

func nonNegative(name string, v float64) error {
	if !(v >= 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%s must be a non-negative finite number, got %v", name, v)
	}
	return nil
}

// Validate checks every field and reports all problems at once, wrapped in ErrInputValidation.
func (c Config) Validate() error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	add(positive("x_max", c.XMax))
	add(positive("y_max", c.YMax))
	add(positive("drive_grid", c.DriveGrid))
	add(positive("driving_speed", c.DrivingSpeed))
	add(nonNegative("walk_radius", c.WalkRadius))
	add(nonNegative("search_radius", c.SearchRadius))
	add(nonNegative("reservation_duration", c.ReservationDuration))
	add(nonNegative("reservation_arrival_slack", c.ReservationArrivalSlack))
	add(positive("dwell_mean", c.DwellMean))
	add(positive("dwell_spread", c.DwellSpread))
	add(positive("first_wake_mean", c.FirstWakeMean))
	add(positive("first_wake_spread", c.FirstWakeSpread))
	add(positive("horizon", c.Horizon))

	switch c.SpotLayout {
	case LayoutGrid:
		add(positive("spot_spacing", c.SpotSpacing))
		add(nonNegative("spot_offset", c.SpotOffset))
	case LayoutRandom:
		if c.SpotCount < 0 {
			errs = append(errs, fmt.Errorf("spot_count must be non-negative, got %d", c.SpotCount))
		}
	case LayoutNone, "":
	default:
		errs = append(errs, fmt.Errorf("unknown spot_layout %q", c.SpotLayout))
	}

	if _, err := geo.MetricByName(c.Metric); err != nil {
		errs = append(errs, err)
	}
	if !trace.IsValidTraceLevel(c.Trace) {
		errs = append(errs, fmt.Errorf("unknown trace level %q", c.Trace))
	}
	for i, f := range c.Fleet {
		if f.Count < 0 {
			errs = append(errs, fmt.Errorf("fleet[%d]: count must be non-negative, got %d", i, f.Count))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInputValidation, errors.Join(errs...))
	}
	return nil
}
