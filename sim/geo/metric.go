package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Metric measures distance between two points in meters.
//
// The index itself always works with planar Euclidean disks; CoverRadius tells it how
// large a disk is needed so that every point within r under this metric is inside it.
type Metric interface {
	Name() string
	Distance(a, b Point) float64
	CoverRadius(r float64) float64
}

const (
	MetricEuclidean   = "euclidean"
	MetricManhattan   = "manhattan"
	MetricGreatCircle = "great-circle"
)

// EarthRadiusMeters is the mean Earth radius used by GreatCircle.
const EarthRadiusMeters = 6371010.0

// Default origin for GreatCircle placement.
const (
	DefaultOriginLat = 37.4185099
	DefaultOriginLng = -121.9450038
)

// MetricByName returns the metric registered under name; "" means euclidean.
func MetricByName(name string) (Metric, error) {
	switch name {
	case "", MetricEuclidean:
		return Euclidean{}, nil
	case MetricManhattan:
		return Manhattan{}, nil
	case MetricGreatCircle:
		return NewGreatCircle(DefaultOriginLat, DefaultOriginLng), nil
	default:
		return nil, fmt.Errorf("unknown metric %q (valid: %s, %s, %s)", name, MetricEuclidean, MetricManhattan, MetricGreatCircle)
	}
}

// Euclidean is straight-line planar distance.
type Euclidean struct{}

// Name returns the metric's config name.
func (Euclidean) Name() string { return MetricEuclidean }

// Distance returns the straight-line distance between a and b.
func (Euclidean) Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// CoverRadius returns r: the metric is the one Cover works in.
func (Euclidean) CoverRadius(r float64) float64 { return r }

// Manhattan is L1 planar distance. Its ball is contained in the Euclidean disk of the same radius.
type Manhattan struct{}

// Name returns the metric's config name.
func (Manhattan) Name() string { return MetricManhattan }

// Distance returns |dx| + |dy|.
func (Manhattan) Distance(a, b Point) float64 {
	return math.Abs(a.X-b.X) + math.Abs(a.Y-b.Y)
}

// CoverRadius returns r, since the L1 ball lies inside the L2 ball of the same radius.
func (Manhattan) CoverRadius(r float64) float64 { return r }

// GreatCircle places the world on the Earth's surface with (0,0) at Origin, x pointing
// east and y pointing north, and measures great-circle distance between the placed points.
type GreatCircle struct {
	Origin s2.LatLng
	cosLat float64
}

// NewGreatCircle creates a GreatCircle metric anchored at the given origin in degrees.
func NewGreatCircle(latDeg, lngDeg float64) GreatCircle {
	origin := s2.LatLngFromDegrees(latDeg, lngDeg)
	return GreatCircle{Origin: origin, cosLat: math.Cos(origin.Lat.Radians())}
}

// Name returns the metric's config name.
func (GreatCircle) Name() string { return MetricGreatCircle }

// LatLng returns the surface position of p.
func (g GreatCircle) LatLng(p Point) s2.LatLng {
	return s2.LatLng{
		Lat: g.Origin.Lat + s1.Angle(p.Y/EarthRadiusMeters),
		Lng: g.Origin.Lng + s1.Angle(p.X/(EarthRadiusMeters*g.cosLat)),
	}
}

// Distance returns the great-circle distance in meters between the projected points.
func (g GreatCircle) Distance(a, b Point) float64 {
	return g.LatLng(a).Distance(g.LatLng(b)).Radians() * EarthRadiusMeters
}

// CoverRadius pads r by 1% plus a meter. Over city-sized worlds the placement distorts
// planar distance by well under 0.1%.
func (GreatCircle) CoverRadius(r float64) float64 {
	return r*1.01 + 1
}
