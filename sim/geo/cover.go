package geo

import (
	"fmt"
	"math"
)

// Cell is a contiguous key interval [Min, Max] produced by Cover. Level is the
// quadtree level of the coarsest cell that contributed to the interval.
type Cell struct {
	Level    int
	Min, Max Key
}

// Contains reports whether k falls inside the interval.
func (c Cell) Contains(k Key) bool {
	return k >= c.Min && k <= c.Max
}

// node is a quadtree cell: qx and qy hold the top `level` bits of the quantized axes.
type node struct {
	level  int
	qx, qy uint32
}

func (n node) children() [4]node {
	var out [4]node
	for c := uint32(0); c < 4; c++ {
		out[c] = node{level: n.level + 1, qx: n.qx<<1 | c>>1, qy: n.qy<<1 | c&1}
	}
	return out
}

func (n node) keys() (Key, Key) {
	shift := uint(2 * (axisBits - n.level))
	lo := uint64(interleave(n.qx, n.qy)) << shift
	return Key(lo), Key(lo | (uint64(1)<<shift - 1))
}

// rect returns the world-space rectangle [x0,x1) x [y0,y1) every point of the cell lies in.
func (c *Codec) rect(n node) (x0, y0, x1, y1 float64) {
	shift := uint(axisBits - n.level)
	lox, loy := uint64(n.qx)<<shift, uint64(n.qy)<<shift
	span := uint64(1) << shift
	return float64(lox) * c.sx, float64(loy) * c.sy, float64(lox+span) * c.sx, float64(loy+span) * c.sy
}

// Cover returns key intervals whose union contains the key of every point within
// Euclidean distance radius of center. Cells can reach modestly beyond the disk, so
// callers must re-check true distance. Intervals are sorted by Min and never overlap.
//
// Subdivision stops at a cell that is wholly inside the disk, or whose longer side is
// at most radius/2, or at MaxLevel; cells disjoint from the disk are dropped.
func (c *Codec) Cover(center Point, radius float64) ([]Cell, error) {
	if !(radius >= 0) {
		return nil, fmt.Errorf("%w: %g", ErrNegativeRadius, radius)
	}
	if !c.bounds.Contains(center) {
		return nil, fmt.Errorf("%w: center %v", ErrOutOfBounds, center)
	}

	// absorb rounding in the rectangle arithmetic
	r := radius + 1e-9*math.Max(c.bounds.XMax, c.bounds.YMax)
	r2 := r * r
	minSide := radius / 2

	var out []Cell
	stack := []node{{}}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x0, y0, x1, y1 := c.rect(n)
		dx := math.Max(0, math.Max(x0-center.X, center.X-x1))
		dy := math.Max(0, math.Max(y0-center.Y, center.Y-y1))
		if dx*dx+dy*dy > r2 {
			continue
		}
		fx := math.Max(math.Abs(center.X-x0), math.Abs(center.X-x1))
		fy := math.Max(math.Abs(center.Y-y0), math.Abs(center.Y-y1))
		inside := fx*fx+fy*fy <= r2
		small := math.Max(x1-x0, y1-y0) <= minSide
		if inside || small || n.level == MaxLevel {
			lo, hi := n.keys()
			out = appendCell(out, Cell{Level: n.level, Min: lo, Max: hi})
			continue
		}

		// push in reverse so children pop in ascending key order
		kids := n.children()
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out, nil
}

// appendCell adds cell to the sorted list, merging it into the previous interval
// when the two are adjacent on the curve.
func appendCell(cells []Cell, cell Cell) []Cell {
	if n := len(cells); n > 0 {
		last := &cells[n-1]
		if last.Max != math.MaxUint64 && last.Max+1 == cell.Min {
			last.Max = cell.Max
			last.Level = min(last.Level, cell.Level)
			return cells
		}
	}
	return append(cells, cell)
}
