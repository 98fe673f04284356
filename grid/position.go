package grid

import (
	"fmt"
	"iter"
)

// Position is a cell coordinate in the sequencer grid
type Position struct {
	Measure     int `json:"measure"`
	Beat        int `json:"beat"`
	Subdivision int `json:"subdivision"`
}

// Stopped is the sentinel position while playback is not running
var Stopped = Position{-1, -1, -1}

// Origin is the first cell of the grid
var Origin = Position{}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.Measure, p.Beat, p.Subdivision)
}

// IsStopped reports whether p is the stopped sentinel
func (p Position) IsStopped() bool {
	return p == Stopped
}

// Compare orders positions by measure, then beat, then subdivision
func Compare(a, b Position) int {
	switch {
	case a.Measure < b.Measure:
		return -1
	case a.Measure > b.Measure:
		return 1
	case a.Beat < b.Beat:
		return -1
	case a.Beat > b.Beat:
		return 1
	case a.Subdivision < b.Subdivision:
		return -1
	case a.Subdivision > b.Subdivision:
		return 1
	}
	return 0
}

// Before reports whether p sorts strictly before q
func (p Position) Before(q Position) bool {
	return Compare(p, q) < 0
}

// After reports whether p sorts strictly after q
func (p Position) After(q Position) bool {
	return Compare(p, q) > 0
}

// Geometry is the shape of the grid. All counts must be >= 1; the config
// layer guarantees that before a Geometry is built.
type Geometry struct {
	Measures     int `json:"measures"`
	Beats        int `json:"beats"`
	Subdivisions int `json:"subdivisions"`
}

// Steps returns the number of cells in one full cycle
func (g Geometry) Steps() int {
	return g.Measures * g.Beats * g.Subdivisions
}

// Contains reports whether p lies inside the grid
func (g Geometry) Contains(p Position) bool {
	return p.Measure >= 0 && p.Measure < g.Measures &&
		p.Beat >= 0 && p.Beat < g.Beats &&
		p.Subdivision >= 0 && p.Subdivision < g.Subdivisions
}

// Increment advances one subdivision, carrying into beat and measure and
// wrapping back to the origin after the last cell.
func (g Geometry) Increment(p Position) Position {
	p.Subdivision++
	if p.Subdivision >= g.Subdivisions {
		p.Subdivision = 0
		p.Beat++
	}
	if p.Beat >= g.Beats {
		p.Beat = 0
		p.Measure++
	}
	if p.Measure >= g.Measures {
		p.Measure = 0
	}
	return p
}

// Decrement steps back one subdivision, borrowing from beat and measure and
// wrapping to the last cell before the origin.
func (g Geometry) Decrement(p Position) Position {
	p.Subdivision--
	if p.Subdivision < 0 {
		p.Subdivision = g.Subdivisions - 1
		p.Beat--
	}
	if p.Beat < 0 {
		p.Beat = g.Beats - 1
		p.Measure--
	}
	if p.Measure < 0 {
		p.Measure = g.Measures - 1
	}
	return p
}

// Subtract applies Decrement n times. The stopped sentinel is returned as is.
func (g Geometry) Subtract(p Position, n int) Position {
	if p.IsStopped() {
		return p
	}
	for range n {
		p = g.Decrement(p)
	}
	return p
}

// Index returns the linear offset of p from the origin
func (g Geometry) Index(p Position) int {
	return (p.Measure*g.Beats+p.Beat)*g.Subdivisions + p.Subdivision
}

// At is the inverse of Index. i wraps modulo Steps.
func (g Geometry) At(i int) Position {
	n := g.Steps()
	i %= n
	if i < 0 {
		i += n
	}
	return Position{
		Measure:     i / (g.Beats * g.Subdivisions),
		Beat:        (i / g.Subdivisions) % g.Beats,
		Subdivision: i % g.Subdivisions,
	}
}

// Normalize wraps each axis of p into range. Used after the grid shrinks
// under a running clock.
func (g Geometry) Normalize(p Position) Position {
	return Position{
		Measure:     wrap(p.Measure, g.Measures),
		Beat:        wrap(p.Beat, g.Beats),
		Subdivision: wrap(p.Subdivision, g.Subdivisions),
	}
}

// All yields every cell of one cycle in playback order
func (g Geometry) All() iter.Seq[Position] {
	return func(yield func(Position) bool) {
		for m := 0; m < g.Measures; m++ {
			for b := 0; b < g.Beats; b++ {
				for s := 0; s < g.Subdivisions; s++ {
					if !yield(Position{m, b, s}) {
						return
					}
				}
			}
		}
	}
}

func wrap(v, n int) int {
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
