package geo

import (
	"math"

	"github.com/google/btree"
)

// entry is one table row. Entries are ordered by key, then id, so colliding keys
// form a small bucket instead of overwriting each other.
type entry struct {
	key Key
	id  int
	pos Point
}

func entryLess(a, b entry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.id < b.id
}

// ScanStats counts work done by Table.Scan.
type ScanStats struct {
	Scans   int64 // calls to Scan
	Cells   int64 // key intervals visited
	Visited int64 // entries handed to callbacks
}

// Table is an ordered key table of (id, position) pairs supporting proximity scans.
// It is not safe for concurrent use.
type Table struct {
	codec *Codec
	tree  *btree.BTreeG[entry]
	stats ScanStats
}

// NewTable creates an empty table for the codec's bounds.
func NewTable(codec *Codec) *Table {
	return &Table{
		codec: codec,
		tree:  btree.NewG[entry](32, entryLess),
	}
}

// Codec returns the codec used to key entries.
func (t *Table) Codec() *Codec {
	return t.codec
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return t.tree.Len()
}

// Insert adds id at p and returns its key. Re-inserting the same id at the same
// position is a no-op.
func (t *Table) Insert(id int, p Point) (Key, error) {
	k, err := t.codec.Encode(p)
	if err != nil {
		return 0, err
	}
	t.tree.ReplaceOrInsert(entry{key: k, id: id, pos: p})
	return k, nil
}

// Scan calls fn for every entry whose key lies in the cover of the Euclidean disk
// (center, radius), in key order, until fn returns false. Entries outside the disk
// may be visited; fn must filter by true distance.
func (t *Table) Scan(center Point, radius float64, fn func(id int, p Point) bool) error {
	cells, err := t.codec.Cover(center, radius)
	if err != nil {
		return err
	}
	t.stats.Scans++
	stop := false
	for _, c := range cells {
		t.stats.Cells++
		t.tree.AscendGreaterOrEqual(entry{key: c.Min, id: math.MinInt}, func(e entry) bool {
			if e.key > c.Max {
				return false
			}
			t.stats.Visited++
			if !fn(e.id, e.pos) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			break
		}
	}
	return nil
}

// Stats returns cumulative scan counters.
func (t *Table) Stats() ScanStats {
	return t.stats
}
