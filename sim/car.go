package sim

import (
	"fmt"
	"math"

	"github.com/parking-sim/parking-sim/sim/geo"
)

// State is where a car is in its Parked → Traveling → Searching cycle.
type State int

const (
	Parked State = iota
	Traveling
	Searching
)

func (s State) String() string {
	switch s {
	case Parked:
		return "parked"
	case Traveling:
		return "traveling"
	case Searching:
		return "searching"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Strategy is how a car looks for a spot once it reaches its destination.
type Strategy int

const (
	// StrategyNearest picks the nearest free spot around the destination and drives to it,
	// optionally reserving it first.
	StrategyNearest Strategy = iota
	// StrategyRandomWalk looks only within a small radius and wanders until something frees up.
	StrategyRandomWalk
)

func (s Strategy) String() string {
	if s == StrategyRandomWalk {
		return "random-walk"
	}
	return "nearest"
}

// CarOptions configures a single car.
type CarOptions struct {
	UseRandomWalk   bool
	UseReservations bool
	Start           geo.Point // initial position
}

// Car is a simulated agent. Its next step always depends on its current state only;
// the scheduler holds nothing but (car, time).
type Car struct {
	id    CarID
	opts  CarOptions
	state State

	pos         geo.Point
	target      geo.Point // current travel target while hasTarget
	hasTarget   bool
	destination geo.Point // destination of the current trip

	// spot is the occupied spot while Parked and the candidate (possibly reserved)
	// while Searching. It is a lookup key only: validity is rechecked on every use.
	spot SpotID

	wakeAt  SimTime // time of the single pending wake-up
	pending bool

	searchStart SimTime
	searchSteps int
	cycles      int
}

func newCar(id CarID, opts CarOptions) *Car {
	return &Car{
		id:    id,
		opts:  opts,
		state: Parked,
		pos:   opts.Start,
		spot:  NoSpot,
	}
}

// ID returns the car's index in its World.
func (c *Car) ID() CarID { return c.id }

// State returns the car's current lifecycle state.
func (c *Car) State() State { return c.state }

// Position returns where the car is now.
func (c *Car) Position() geo.Point { return c.pos }

// Destination returns the destination of the current or last trip.
func (c *Car) Destination() geo.Point { return c.destination }

// Options returns the options the car was created with.
func (c *Car) Options() CarOptions { return c.opts }

// CompletedCycles counts the times the car has parked.
func (c *Car) CompletedCycles() int { return c.cycles }

// Target returns the point the car is currently driving to, if any.
func (c *Car) Target() (geo.Point, bool) { return c.target, c.hasTarget }

// Spot returns the spot the car occupies (Parked) or has its eye on (Searching).
func (c *Car) Spot() SpotID { return c.spot }

// NextWake returns the time of the car's pending wake-up.
func (c *Car) NextWake() (SimTime, bool) { return c.wakeAt, c.pending }

// Strategy returns the search strategy; random walk wins when both flags are set.
func (c *Car) Strategy() Strategy {
	if c.opts.UseRandomWalk {
		return StrategyRandomWalk
	}
	return StrategyNearest
}

func (c *Car) reserving() bool {
	return c.Strategy() == StrategyNearest && c.opts.UseReservations
}

// arrivalThreshold is the per-axis gap below which a trip counts as done. Reserving
// cars commit early since they pick a spot around the destination anyway.
func (c *Car) arrivalThreshold(w *World) float64 {
	if c.reserving() {
		return w.cfg.ReservationArrivalSlack * w.cfg.DriveGrid
	}
	return w.cfg.DriveGrid / 2
}

// apply runs the handler for the car's current state.
func (c *Car) apply(w *World) error {
	switch c.state {
	case Parked:
		return c.startDriving(w)
	case Traveling:
		return c.travel(w)
	case Searching:
		if c.Strategy() == StrategyRandomWalk {
			return c.searchRandomWalk(w)
		}
		return c.searchNearest(w)
	default:
		return fmt.Errorf("car %d in unknown state %v", c.id, c.state)
	}
}

func (c *Car) startDriving(w *World) error {
	if c.spot != NoSpot {
		if err := w.spots.Release(c.spot); err != nil {
			return err
		}
		c.spot = NoSpot
	}
	rng := w.traffic
	c.destination = geo.Point{
		X: w.snap(rng.Float64()*w.cfg.XMax, w.cfg.XMax),
		Y: w.snap(rng.Float64()*w.cfg.YMax, w.cfg.YMax),
	}
	c.target = c.destination
	c.hasTarget = true
	w.transition(c, Traveling)
	return w.wake(c, w.Now())
}

func (c *Car) travel(w *World) error {
	limit := c.arrivalThreshold(w)
	if math.Abs(c.target.X-c.pos.X) < limit && math.Abs(c.target.Y-c.pos.Y) < limit {
		c.hasTarget = false
		c.searchStart = w.Now()
		c.searchSteps = 0
		w.transition(c, Searching)
		return w.wake(c, w.Now())
	}
	return c.stepToward(w, c.target)
}

func (c *Car) searchRandomWalk(w *World) error {
	now := w.Now()
	id, ok, err := w.search(c.pos, w.cfg.WalkRadius)
	if err != nil {
		return err
	}
	if !ok {
		c.searchSteps++
		return c.randomStep(w)
	}
	if err := w.spots.Occupy(id, c.id, now); err != nil {
		return err
	}
	c.spot = id
	return c.park(w)
}

func (c *Car) searchNearest(w *World) error {
	now := w.Now()
	if c.spot != NoSpot && !c.candidateValid(w, now) {
		if c.reserving() {
			w.metrics.ReservationLosses++
		} else {
			w.metrics.CandidateLosses++
		}
		c.spot = NoSpot
	}

	if c.spot == NoSpot {
		id, ok, err := w.search(c.destination, w.cfg.SearchRadius)
		if err != nil {
			return err
		}
		if !ok {
			// nothing anywhere near, but the car can't stop driving
			c.searchSteps++
			return c.randomStep(w)
		}
		if c.reserving() {
			if err := w.spots.Reserve(id, c.id, SimTime(w.cfg.ReservationDuration), now); err != nil {
				return err
			}
			w.metrics.ReservationsMade++
		}
		c.spot = id
	}

	// drive on the lattice to the grid point nearest the spot; park within one unit
	spotPos := w.spots.Get(c.spot).Position()
	stop := geo.Point{X: w.snap(spotPos.X, w.cfg.XMax), Y: w.snap(spotPos.Y, w.cfg.YMax)}
	if c.pos == stop || math.Abs(c.pos.X-spotPos.X)+math.Abs(c.pos.Y-spotPos.Y) <= w.cfg.DriveGrid {
		if err := w.spots.Occupy(c.spot, c.id, now); err != nil {
			return err
		}
		return c.park(w)
	}
	c.searchSteps++
	return c.stepToward(w, stop)
}

// candidateValid re-checks the eyed spot: a reserving car must still hold the
// reservation, anyone else needs the spot to be unused.
func (c *Car) candidateValid(w *World, now SimTime) bool {
	if c.reserving() {
		return w.spots.ConfirmReservation(c.spot, c.id, now)
	}
	return !w.spots.IsInUse(c.spot, now)
}

func (c *Car) park(w *World) error {
	now := w.Now()
	spotPos := w.spots.Get(c.spot).Position()
	w.metrics.recordPark(now-c.searchStart, c.searchSteps, w.metric.Distance(c.destination, spotPos))
	c.cycles++
	w.transition(c, Parked)
	return w.wake(c, now+SimTime(logNormal(w.traffic, w.cfg.DwellMean, w.cfg.DwellSpread)))
}

// stepToward moves one lattice unit toward target along x or y, picking the axis with
// probability proportional to the remaining gap on it.
func (c *Car) stepToward(w *World, target geo.Point) error {
	dx, dy := target.X-c.pos.X, target.Y-c.pos.Y
	ax, ay := math.Abs(dx), math.Abs(dy)
	grid := w.cfg.DriveGrid
	var sx, sy float64
	if ax+ay > 0 {
		if w.traffic.Float64() < ax/(ax+ay) {
			sx = math.Copysign(math.Min(ax, grid), dx)
		} else {
			sy = math.Copysign(math.Min(ay, grid), dy)
		}
	}
	w.metrics.TravelSteps++
	return c.drive(w, sx, sy)
}

// randomStep moves one lattice unit in a uniformly chosen direction that stays
// inside the world. It is how a searching car keeps moving when nothing is free.
func (c *Car) randomStep(w *World) error {
	grid := w.cfg.DriveGrid
	moves := make([]geo.Point, 0, 4)
	for _, m := range [4]geo.Point{{X: grid}, {X: -grid}, {Y: grid}, {Y: -grid}} {
		if w.bounds.Contains(geo.Point{X: c.pos.X + m.X, Y: c.pos.Y + m.Y}) {
			moves = append(moves, m)
		}
	}
	var m geo.Point
	if len(moves) > 0 {
		m = moves[w.traffic.Intn(len(moves))]
	}
	w.metrics.RandomSteps++
	return c.drive(w, m.X, m.Y)
}

func (c *Car) drive(w *World, dx, dy float64) error {
	c.pos.X += dx
	c.pos.Y += dy
	delay := math.Hypot(dx, dy)/w.cfg.DrivingSpeed + w.traffic.Float64()
	return w.wake(c, w.Now()+SimTime(delay))
}
