package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/parking-sim/parking-sim/sim/geo"
	"github.com/parking-sim/parking-sim/sim/trace"
)

// World owns the parking spots, the spatial index over them, the cars and the clock.
// It is the only entry point cars use to search. Not safe for concurrent use; run
// independent worlds on separate goroutines instead.
type World struct {
	cfg     Config
	bounds  geo.Bounds
	metric  geo.Metric
	table   *geo.Table
	spots   *SpotTable
	sched   *Scheduler
	rng     *PartitionedRNG
	traffic *rand.Rand
	cars    []*Car
	metrics *Metrics
	trace   *trace.SimulationTrace

	observers []func(trace.TransitionRecord)
}

// NewWorld creates an empty world (no spots, no cars) from a validated config.
func NewWorld(cfg Config) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := geo.NewCodec(cfg.Bounds())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputValidation, err)
	}
	metric, err := geo.MetricByName(cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputValidation, err)
	}
	rng := NewPartitionedRNG(cfg.Seed)
	w := &World{
		cfg:     cfg,
		bounds:  cfg.Bounds(),
		metric:  metric,
		table:   geo.NewTable(codec),
		spots:   NewSpotTable(),
		sched:   NewScheduler(),
		rng:     rng,
		traffic: rng.Traffic(),
		metrics: NewMetrics(),
	}
	if tc := (trace.TraceConfig{Level: trace.TraceLevel(cfg.Trace)}); tc.Enabled() {
		w.trace = trace.NewSimulationTrace(tc)
	}
	logrus.Infof("World %gx%g m, metric=%s, seed=%d", cfg.XMax, cfg.YMax, metric.Name(), cfg.Seed)
	return w, nil
}

// Bootstrap builds a world and populates it with the configured spot layout and fleet.
func Bootstrap(cfg Config) (*World, error) {
	w, err := NewWorld(cfg)
	if err != nil {
		return nil, err
	}
	if err := w.SeedSpots(); err != nil {
		return nil, err
	}
	if err := w.AddFleet(); err != nil {
		return nil, err
	}
	return w, nil
}

// InsertResource adds a parking spot at p. Points outside the world are rejected.
func (w *World) InsertResource(p geo.Point) (SpotID, error) {
	id := SpotID(w.spots.Len())
	key, err := w.table.Insert(int(id), p)
	if err != nil {
		return NoSpot, fmt.Errorf("%w: insert spot: %w", ErrInputValidation, err)
	}
	return w.spots.add(p, key), nil
}

// SeedSpots places spots according to the configured layout.
func (w *World) SeedSpots() error {
	switch w.cfg.SpotLayout {
	case LayoutGrid:
		return w.SeedGrid(w.cfg.SpotSpacing, w.cfg.SpotOffset)
	case LayoutRandom:
		return w.SeedRandom(w.cfg.SpotCount)
	default:
		return nil
	}
}

// SeedGrid places a spot every spacing meters on both axes, starting at offset.
func (w *World) SeedGrid(spacing, offset float64) error {
	if !(spacing > 0) || !(offset >= 0) {
		return fmt.Errorf("%w: grid spacing %v offset %v", ErrInputValidation, spacing, offset)
	}
	before := w.spots.Len()
	for i := 0; ; i++ {
		x := offset + float64(i)*spacing
		if x > w.cfg.XMax {
			break
		}
		for j := 0; ; j++ {
			y := offset + float64(j)*spacing
			if y > w.cfg.YMax {
				break
			}
			if _, err := w.InsertResource(geo.Point{X: x, Y: y}); err != nil {
				return err
			}
		}
	}
	logrus.Infof("Seeded %d spots on a %g m grid", w.spots.Len()-before, spacing)
	return nil
}

// SeedRandom places n spots uniformly at random, drawing from the layout RNG.
func (w *World) SeedRandom(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: spot count %d", ErrInputValidation, n)
	}
	rng := w.rng.Layout()
	for i := 0; i < n; i++ {
		p := geo.Point{X: rng.Float64() * w.cfg.XMax, Y: rng.Float64() * w.cfg.YMax}
		if _, err := w.InsertResource(p); err != nil {
			return err
		}
	}
	logrus.Infof("Seeded %d random spots", n)
	return nil
}

// AddCar creates a parked car (holding no spot) and schedules its first wake-up.
func (w *World) AddCar(opts CarOptions) (CarID, error) {
	if !w.bounds.Contains(opts.Start) {
		return NoCar, fmt.Errorf("%w: car start %v outside world", ErrInputValidation, opts.Start)
	}
	c := newCar(CarID(len(w.cars)), opts)
	w.cars = append(w.cars, c)
	first := logNormal(w.traffic, w.cfg.FirstWakeMean, w.cfg.FirstWakeSpread)
	if err := w.wake(c, w.Now()+SimTime(first)); err != nil {
		return NoCar, err
	}
	return c.id, nil
}

// AddFleet adds the cars described by the configured fleet, in order.
func (w *World) AddFleet() error {
	for _, f := range w.cfg.Fleet {
		for i := 0; i < f.Count; i++ {
			if _, err := w.AddCar(CarOptions{UseRandomWalk: f.UseRandomWalk, UseReservations: f.UseReservations}); err != nil {
				return err
			}
		}
	}
	logrus.Infof("Added %d cars", len(w.cars))
	return nil
}

// Search returns the nearest free spot within radius of (x, y) by true distance under
// the world's metric, lower SpotID first on ties. Finding nothing is not an error.
func (w *World) Search(x, y, radius float64) (SpotID, bool, error) {
	return w.search(geo.Point{X: x, Y: y}, radius)
}

// search scans rings of doubling radius, starting at one driving-grid unit, so that the
// common case of a free spot close by never touches the whole disk.
func (w *World) search(center geo.Point, radius float64) (SpotID, bool, error) {
	if !(radius >= 0) {
		return NoSpot, false, fmt.Errorf("%w: search radius %v", ErrInputValidation, radius)
	}
	now := w.Now()
	r := math.Min(radius, w.cfg.DriveGrid)
	for {
		best, bestDist := NoSpot, math.Inf(1)
		err := w.table.Scan(center, w.metric.CoverRadius(r), func(id int, p geo.Point) bool {
			d := w.metric.Distance(center, p)
			if d > r {
				return true
			}
			sid := SpotID(id)
			if (d < bestDist || (d == bestDist && sid < best)) && !w.spots.IsInUse(sid, now) {
				best, bestDist = sid, d
			}
			return true
		})
		if err != nil {
			return NoSpot, false, fmt.Errorf("%w: %w", ErrInputValidation, err)
		}
		if best != NoSpot {
			return best, true, nil
		}
		if r >= radius {
			return NoSpot, false, nil
		}
		r = math.Min(2*r, radius)
	}
}

// Now returns the current simulated time.
func (w *World) Now() SimTime {
	return w.sched.Now()
}

// Step executes the next event. It returns false when nothing is pending.
func (w *World) Step() (bool, error) {
	return w.sched.Step(HandlerFunc(w.dispatch))
}

// Run executes events while Now() < until, stopping at the first error.
func (w *World) Run(until SimTime) error {
	logrus.Debugf("Running until t=%.1f with %d cars and %d spots", float64(until), len(w.cars), w.spots.Len())
	err := w.sched.Run(until, HandlerFunc(w.dispatch))
	logrus.Debugf("[t=%.1f] Run stopped after %d events", float64(w.Now()), w.sched.Executed())
	return err
}

// RunToHorizon runs until the configured horizon.
func (w *World) RunToHorizon() error {
	return w.Run(SimTime(w.cfg.Horizon))
}

func (w *World) dispatch(ev Event) error {
	c := w.Car(ev.Car)
	if c == nil {
		return fmt.Errorf("%w: event for unknown car %d", ErrInputValidation, ev.Car)
	}
	if !c.pending || ev.When != c.wakeAt {
		w.metrics.StaleEvents++
		logrus.Debugf("[t=%010.3f] stale event for car %d (%s) ignored", float64(ev.When), c.id, c.state)
		return nil
	}
	c.pending = false
	err := c.apply(w)
	if err != nil && !c.pending {
		// the car retries its handler on the next Step
		if werr := w.wake(c, w.Now()); werr != nil {
			return errors.Join(err, werr)
		}
	}
	return err
}

// wake schedules the car's next (and only) pending event.
func (w *World) wake(c *Car, when SimTime) error {
	if err := w.sched.Schedule(c.id, when); err != nil {
		return err
	}
	c.wakeAt = when
	c.pending = true
	return nil
}

func (w *World) transition(c *Car, to State) {
	from := c.state
	c.state = to
	rec := trace.TransitionRecord{
		Clock:  float64(w.Now()),
		CarID:  int(c.id),
		From:   from.String(),
		To:     to.String(),
		SpotID: int(c.spot),
		X:      c.pos.X,
		Y:      c.pos.Y,
	}
	if w.trace != nil {
		w.trace.RecordTransition(rec)
	}
	for _, fn := range w.observers {
		fn(rec)
	}
	logrus.Debugf("[t=%010.3f] car %d: %s -> %s at %v (spot %d)", rec.Clock, c.id, from, to, c.pos, c.spot)
}

// snap rounds v to the driving grid, staying within [0, max].
func (w *World) snap(v, max float64) float64 {
	g := w.cfg.DriveGrid
	s := g * math.Round(v/g)
	for s > max && s > 0 {
		s -= g
	}
	return math.Max(s, 0)
}

// OnTransition registers fn to be called after every car state transition.
func (w *World) OnTransition(fn func(trace.TransitionRecord)) {
	w.observers = append(w.observers, fn)
}

// Config returns the configuration the world was built from.
func (w *World) Config() Config { return w.cfg }

// Metric returns the distance metric used by searches.
func (w *World) Metric() geo.Metric { return w.metric }

// Metrics returns the live run counters.
func (w *World) Metrics() *Metrics { return w.metrics }

// Trace returns the recorded transitions, or nil when tracing is off.
func (w *World) Trace() *trace.SimulationTrace { return w.trace }

// Scheduler returns the world's event scheduler.
func (w *World) Scheduler() *Scheduler { return w.sched }

// Spots returns the spot arena. Mutating it bypasses the cars' own bookkeeping.
func (w *World) Spots() *SpotTable { return w.spots }

// Cars returns every car in creation order.
func (w *World) Cars() []*Car { return w.cars }

// ScanStats returns cumulative spatial index scan counters.
func (w *World) ScanStats() geo.ScanStats { return w.table.Stats() }

// Car returns the car with the given id, or nil.
func (w *World) Car(id CarID) *Car {
	if id < 0 || int(id) >= len(w.cars) {
		return nil
	}
	return w.cars[id]
}

// Spot returns the spot with the given id, or nil.
func (w *World) Spot(id SpotID) *ParkingSpot {
	return w.spots.Get(id)
}

// CheckInvariants verifies the spots cars refer to: a parked car occupies its spot,
// no two parked cars share one, and no occupied spot is validly reserved by someone else.
func (w *World) CheckInvariants() error {
	now := w.Now()
	holders := make(map[SpotID]CarID)
	for _, c := range w.cars {
		if c.spot == NoSpot {
			continue
		}
		if err := w.spots.CheckInvariant(c.spot, now); err != nil {
			return err
		}
		if c.state != Parked {
			continue
		}
		if other, dup := holders[c.spot]; dup {
			return fmt.Errorf("cars %d and %d both parked on spot %d", other, c.id, c.spot)
		}
		holders[c.spot] = c.id
		if occ := w.spots.Get(c.spot).OccupiedBy(); occ != c.id {
			return fmt.Errorf("car %d parked on spot %d which is occupied by car %d", c.id, c.spot, occ)
		}
	}
	return nil
}

// CheckAllSpots verifies every spot: the invariant holds and each occupant is a
// parked car that refers back to the spot.
func (w *World) CheckAllSpots() error {
	now := w.Now()
	for i := range w.spots.spots {
		s := &w.spots.spots[i]
		if err := w.spots.CheckInvariant(s.id, now); err != nil {
			return err
		}
		if s.occupiedBy == NoCar {
			continue
		}
		c := w.Car(s.occupiedBy)
		if c == nil || c.state != Parked || c.spot != s.id {
			return fmt.Errorf("spot %d occupied by car %d which does not hold it", s.id, s.occupiedBy)
		}
	}
	return nil
}
