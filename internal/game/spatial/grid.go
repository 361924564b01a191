// Package spatial provides a uniform hash grid for broad-phase proximity
// queries over a world whose bounds may grow at runtime.
//
// Entities are identified by opaque uint64 refs chosen by the caller. The
// grid tracks which cell each ref occupies, so Update is a cheap re-bucket
// and Remove never leaves stale refs behind.
package spatial

import (
	"math"
)

// Cell is a grid cell coordinate.
type Cell struct {
	X, Y int32
}

type entry struct {
	ref  uint64
	x, y float64
}

// Grid is a uniform hash grid. Cell size should equal the largest
// interaction radius in play so most queries touch a 3x3 block.
//
// The grid is keyed by cell coordinate rather than backed by a fixed
// array because arena bounds change while entities are live; growing the
// world never requires a rehash.
type Grid struct {
	cellSize    float64
	invCellSize float64
	cells       map[Cell][]entry
	where       map[uint64]Cell
}

// NewGrid creates an empty grid with the given cell size.
func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		panic("spatial: cell size must be positive")
	}
	return &Grid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cells:       make(map[Cell][]entry),
		where:       make(map[uint64]Cell),
	}
}

func (g *Grid) cellFor(x, y float64) Cell {
	return Cell{
		X: int32(math.Floor(x * g.invCellSize)),
		Y: int32(math.Floor(y * g.invCellSize)),
	}
}

// Insert adds a ref at (x, y). Inserting a ref that is already present
// re-buckets it (equivalent to Update).
func (g *Grid) Insert(ref uint64, x, y float64) {
	if _, ok := g.where[ref]; ok {
		g.Update(ref, x, y)
		return
	}
	c := g.cellFor(x, y)
	g.cells[c] = append(g.cells[c], entry{ref: ref, x: x, y: y})
	g.where[ref] = c
}

// Update moves a ref to (x, y). When the new position falls in the same
// cell only the stored coordinates change; otherwise the ref is swapped
// out of its old cell and appended to the new one. Updating an unknown
// ref inserts it.
func (g *Grid) Update(ref uint64, x, y float64) {
	old, ok := g.where[ref]
	if !ok {
		g.Insert(ref, x, y)
		return
	}
	c := g.cellFor(x, y)
	if c == old {
		bucket := g.cells[old]
		for i := range bucket {
			if bucket[i].ref == ref {
				bucket[i].x = x
				bucket[i].y = y
				return
			}
		}
		return
	}
	g.removeFromCell(ref, old)
	g.cells[c] = append(g.cells[c], entry{ref: ref, x: x, y: y})
	g.where[ref] = c
}

// Remove deletes a ref. Removing an absent ref is a no-op.
func (g *Grid) Remove(ref uint64) {
	c, ok := g.where[ref]
	if !ok {
		return
	}
	g.removeFromCell(ref, c)
	delete(g.where, ref)
}

func (g *Grid) removeFromCell(ref uint64, c Cell) {
	bucket := g.cells[c]
	for i := range bucket {
		if bucket[i].ref == ref {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			bucket = bucket[:last]
			break
		}
	}
	if len(bucket) == 0 {
		delete(g.cells, c)
	} else {
		g.cells[c] = bucket
	}
}

// Contains reports whether a ref is currently indexed.
func (g *Grid) Contains(ref uint64) bool {
	_, ok := g.where[ref]
	return ok
}

// Len returns the number of indexed refs.
func (g *Grid) Len() int {
	return len(g.where)
}

// QueryNear visits every ref within radius of (cx, cy), passing its ref
// and exact stored position. The visit order is unspecified. Returning
// false from fn stops the query early.
//
// Mutating the grid from inside fn is not allowed.
func (g *Grid) QueryNear(cx, cy, radius float64, fn func(ref uint64, x, y float64) bool) {
	minX := int32(math.Floor((cx - radius) * g.invCellSize))
	maxX := int32(math.Floor((cx + radius) * g.invCellSize))
	minY := int32(math.Floor((cy - radius) * g.invCellSize))
	maxY := int32(math.Floor((cy + radius) * g.invCellSize))

	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			for _, e := range g.cells[Cell{X: x, Y: y}] {
				dx := e.x - cx
				dy := e.y - cy
				if dx*dx+dy*dy <= r2 {
					if !fn(e.ref, e.x, e.y) {
						return
					}
				}
			}
		}
	}
}

// Stats returns occupancy statistics for debugging and metrics.
func (g *Grid) Stats() Stats {
	var s Stats
	s.Cells = len(g.cells)
	s.Entities = len(g.where)
	for _, bucket := range g.cells {
		if len(bucket) > s.MaxPerCell {
			s.MaxPerCell = len(bucket)
		}
	}
	return s
}

// Stats describes grid occupancy.
type Stats struct {
	Cells      int
	Entities   int
	MaxPerCell int
}
