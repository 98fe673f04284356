package sequencer

import (
	"go-tiles/grid"
	"go-tiles/tiles"
)

// RunRole describes where a combined tile sits inside its legato run
type RunRole int

const (
	RunNone     RunRole = iota // not a combined tile
	RunLone                    // combined without combined neighbours
	RunStart                   // connects forward only
	RunInterior                // connects both ways
	RunEnd                     // connects backward only
)

// RunShape reports how a tile connects to its neighbours in the same row.
// It drives connector styling only; sound is resolved per tick.
type RunShape struct {
	Combined    bool
	ConnectPrev bool
	ConnectNext bool
}

// Role classifies the shape
func (s RunShape) Role() RunRole {
	switch {
	case !s.Combined:
		return RunNone
	case s.ConnectPrev && s.ConnectNext:
		return RunInterior
	case s.ConnectNext:
		return RunStart
	case s.ConnectPrev:
		return RunEnd
	}
	return RunLone
}

// ShapeAt inspects k and its cyclic neighbours
func ShapeAt(snap tiles.Snapshot, g grid.Geometry, k tiles.Key) RunShape {
	if snap.Get(k) != tiles.Combined {
		return RunShape{}
	}
	prev := tiles.KeyOf(k.Note, g.Decrement(k.Pos))
	next := tiles.KeyOf(k.Note, g.Increment(k.Pos))
	return RunShape{
		Combined:    true,
		ConnectPrev: prev != k && snap.Get(prev) == tiles.Combined,
		ConnectNext: next != k && snap.Get(next) == tiles.Combined,
	}
}

// RunForward collects consecutive combined tiles starting at k. The walk
// stops after one full cycle so a row combined all the way round ends.
func RunForward(snap tiles.Snapshot, g grid.Geometry, k tiles.Key) []tiles.Key {
	return walk(snap, g, k, g.Increment)
}

// RunBackward collects consecutive combined tiles from k towards the start
func RunBackward(snap tiles.Snapshot, g grid.Geometry, k tiles.Key) []tiles.Key {
	return walk(snap, g, k, g.Decrement)
}

func walk(snap tiles.Snapshot, g grid.Geometry, k tiles.Key, step func(grid.Position) grid.Position) []tiles.Key {
	var run []tiles.Key
	pos := k.Pos
	for range g.Steps() {
		key := tiles.KeyOf(k.Note, pos)
		if snap.Get(key) != tiles.Combined {
			break
		}
		run = append(run, key)
		pos = step(pos)
	}
	return run
}
