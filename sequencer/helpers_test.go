package sequencer

import (
	"math"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"

	"go-tiles/grid"
	"go-tiles/tiles"
)

// recordingVoice collects every call it receives
type recordingVoice struct {
	mu   sync.Mutex
	cmds []Command
}

func (v *recordingVoice) Attack(note tiles.Note, at, velocity float64) {
	v.record(Command{Kind: CmdAttack, Note: note, At: at, Velocity: velocity})
}

func (v *recordingVoice) Release(note tiles.Note, at float64) {
	v.record(Command{Kind: CmdRelease, Note: note, At: at})
}

func (v *recordingVoice) AttackRelease(note tiles.Note, duration, at, velocity float64) {
	v.record(Command{Kind: CmdAttackRelease, Note: note, At: at, Duration: duration, Velocity: velocity})
}

func (v *recordingVoice) record(c Command) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cmds = append(v.cmds, c)
}

func (v *recordingVoice) Commands() []Command {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Command(nil), v.cmds...)
}

func (v *recordingVoice) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cmds = nil
}

// forNote filters commands to one note
func forNote(cmds []Command, n tiles.Note) []Command {
	var out []Command
	for _, c := range cmds {
		if c.Note == n {
			out = append(out, c)
		}
	}
	return out
}

func countKind(cmds []Command, kind CommandKind) int {
	n := 0
	for _, c := range cmds {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func dump(cmds []Command) string {
	return spew.Sdump(cmds)
}

func note(s string) tiles.Note {
	return tiles.MustParseNote(s)
}

func pos(m, b, s int) grid.Position {
	return grid.Position{Measure: m, Beat: b, Subdivision: s}
}

var (
	grid144   = grid.Geometry{Measures: 1, Beats: 4, Subdivisions: 4}
	timing144 = Timing{Geometry: grid144, BPM: 120}
)

func newMockTime() *MockTime {
	return NewMockTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func newStore(entries map[tiles.Key]tiles.State) *tiles.Store {
	st := tiles.NewStore()
	st.SetMany(entries)
	return st
}

// resolveCycle runs the engine over n consecutive steps from the origin,
// timing each step like the clock does
func resolveCycle(e *Engine, snap tiles.Snapshot, t Timing, n int) []TickResult {
	var out []TickResult
	p := grid.Origin
	for i := range n {
		out = append(out, e.Resolve(snap, t, p, float64(i)*t.Interval()))
		p = t.Geometry.Increment(p)
	}
	return out
}
