// Package geo maps planar world coordinates onto a Z-order (Morton) curve so that
// "what is near this point" becomes a handful of range scans over an ordered key table.
//
// # Key layout
//
// Each axis is quantized to 32 bits over the world bounds. The quantized x value
// occupies the odd bits of the 64-bit key and y the even bits, so the two most
// significant bits pick a quadrant, the next two a sub-quadrant, and so on. A cell at
// level L is therefore a key prefix of 2L bits and covers one contiguous key interval.
//
// This package has no dependencies on sim/; it only knows about points, bounds,
// keys and metrics.
package geo

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfBounds is returned for coordinates outside [0, XMax] x [0, YMax].
	ErrOutOfBounds = errors.New("coordinate outside world bounds")
	// ErrNegativeRadius is returned for negative (or NaN) query radii.
	ErrNegativeRadius = errors.New("negative radius")
	// ErrBadBounds is returned for non-positive or non-finite world bounds.
	ErrBadBounds = errors.New("invalid world bounds")
)

const (
	axisBits = 32
	// MaxLevel is the deepest cell level; a level-32 cell is a single key.
	MaxLevel = axisBits
	axisMax  = 1<<axisBits - 1
)

// Point is a position in meters.
type Point struct {
	X, Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%.3f, %.3f)", p.X, p.Y)
}

// Bounds is the world rectangle [0, XMax] x [0, YMax].
type Bounds struct {
	XMax, YMax float64
}

// Validate rejects empty, negative or infinite bounds.
func (b Bounds) Validate() error {
	if !(b.XMax > 0) || !(b.YMax > 0) || math.IsInf(b.XMax, 0) || math.IsInf(b.YMax, 0) {
		return fmt.Errorf("%w: %gx%g", ErrBadBounds, b.XMax, b.YMax)
	}
	return nil
}

// Contains reports whether p lies inside the bounds, edges included. NaN is never contained.
func (b Bounds) Contains(p Point) bool {
	return p.X >= 0 && p.X <= b.XMax && p.Y >= 0 && p.Y <= b.YMax
}

// Key is a position on the Z-order curve.
type Key uint64

func (k Key) String() string {
	return fmt.Sprintf("%016x", uint64(k))
}

// Codec encodes points within fixed bounds to keys and back.
type Codec struct {
	bounds Bounds
	sx, sy float64 // meters per quantum on each axis
}

// NewCodec creates a Codec for the given world bounds.
func NewCodec(b Bounds) (*Codec, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	// one scale for both axes keeps quadtree cells square in world space; the
	// shorter axis simply never reaches the top of its range
	s := math.Max(b.XMax, b.YMax) / axisMax
	return &Codec{bounds: b, sx: s, sy: s}, nil
}

// Bounds returns the world bounds this codec was built for.
func (c *Codec) Bounds() Bounds {
	return c.bounds
}

// Precision returns the worst-case per-axis decode error in meters. Both axes
// share the scale of the longer side.
func (c *Codec) Precision() Point {
	return Point{X: c.sx, Y: c.sy}
}

// Encode maps p to its key. Points outside the bounds are rejected, never clamped.
func (c *Codec) Encode(p Point) (Key, error) {
	if !c.bounds.Contains(p) {
		return 0, fmt.Errorf("%w: %v not in [0,%g]x[0,%g]", ErrOutOfBounds, p, c.bounds.XMax, c.bounds.YMax)
	}
	return interleave(quantize(p.X, c.sx), quantize(p.Y, c.sy)), nil
}

// Decode returns the center of the quantum a key refers to.
func (c *Codec) Decode(k Key) Point {
	qx, qy := deinterleave(k)
	return Point{
		X: math.Min((float64(qx)+0.5)*c.sx, c.bounds.XMax),
		Y: math.Min((float64(qy)+0.5)*c.sy, c.bounds.YMax),
	}
}

func quantize(v, scale float64) uint32 {
	q := math.Floor(v / scale)
	if q >= axisMax {
		return axisMax
	}
	return uint32(q)
}

// spread moves the 32 bits of v to the even bit positions of a 64-bit word.
func spread(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// compact is the inverse of spread.
func compact(x uint64) uint32 {
	x &= 0x5555555555555555
	x = (x | x>>1) & 0x3333333333333333
	x = (x | x>>2) & 0x0f0f0f0f0f0f0f0f
	x = (x | x>>4) & 0x00ff00ff00ff00ff
	x = (x | x>>8) & 0x0000ffff0000ffff
	x = (x | x>>16) & 0x00000000ffffffff
	return uint32(x)
}

func interleave(qx, qy uint32) Key {
	return Key(spread(qx)<<1 | spread(qy))
}

func deinterleave(k Key) (qx, qy uint32) {
	return compact(uint64(k) >> 1), compact(uint64(k))
}
