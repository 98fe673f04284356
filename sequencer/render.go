package sequencer

import (
	"go-tiles/grid"
	"go-tiles/tiles"
)

// discardVoice accepts every call; Render reads the commands off the results
type discardVoice struct{}

func (discardVoice) Attack(tiles.Note, float64, float64)                {}
func (discardVoice) Release(tiles.Note, float64)                        {}
func (discardVoice) AttackRelease(tiles.Note, float64, float64, float64) {}

// Render plays loops full cycles of snap through a fresh engine without a
// clock. Tick n is resolved at n*interval, so command times carry the
// usual lookahead; everything still held at the end is released. Commands
// come back in the order the engine emitted them.
func Render(snap tiles.Snapshot, t Timing, velocity float64, loops int) []Command {
	e := NewEngine(velocity)
	e.SetVoice(discardVoice{}, 0)

	var cmds []Command
	pos := grid.Origin
	steps := loops * t.Geometry.Steps()
	for n := range steps {
		res := e.Resolve(snap, t, pos, float64(n)*t.Interval())
		cmds = append(cmds, res.Commands...)
		pos = t.Geometry.Increment(pos)
	}
	end := float64(steps)*t.Interval() + t.Lookahead()
	return append(cmds, e.ReleaseAll(end)...)
}
