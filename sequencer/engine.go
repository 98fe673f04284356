package sequencer

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"go-tiles/grid"
	"go-tiles/tiles"
)

// TickResult is what one resolution pass emitted
type TickResult struct {
	Position grid.Position
	At       float64 // audio time the commands are scheduled at
	Commands []Command

	// keys for visual feedback
	Played     []tiles.Key // single tiles triggered
	RunStarted []tiles.Key // runs whose note was attacked, scanned forward
	RunEnded   []tiles.Key // runs whose note was released, scanned backward
}

// Empty reports whether the tick emitted nothing
func (r TickResult) Empty() bool {
	return len(r.Commands) == 0
}

// Engine resolves, per tick, which notes start, continue or stop. It keeps
// the set of sounding notes so stop and voice swaps can release them.
type Engine struct {
	mu       sync.Mutex
	voice    Voice
	velocity float64

	legato  map[tiles.Note]bool    // attacked combined notes
	singles map[tiles.Note]float64 // single notes -> scheduled end
	horizon float64                // latest start time of a sent command
}

// NewEngine creates an engine with base velocity 0..1
func NewEngine(velocity float64) *Engine {
	return &Engine{
		velocity: velocity,
		legato:   make(map[tiles.Note]bool),
		singles:  make(map[tiles.Note]float64),
	}
}

// SetVelocity changes the base velocity for later ticks
func (e *Engine) SetVelocity(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.velocity = v
}

// Velocity returns the base velocity
func (e *Engine) Velocity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.velocity
}

// SetVoice swaps the instrument. Notes sounding on the old voice are
// released on it at time at. A nil voice silences the engine.
func (e *Engine) SetVoice(v Voice, at float64) []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	released := e.releaseAllLocked(at)
	e.voice = v
	return released
}

// HasVoice reports whether an instrument is attached
func (e *Engine) HasVoice() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.voice != nil
}

// Sounding lists notes currently held, lowest first
func (e *Engine) Sounding() []tiles.Note {
	e.mu.Lock()
	defer e.mu.Unlock()
	var notes []tiles.Note
	for n := range e.legato {
		notes = append(notes, n)
	}
	for n := range e.singles {
		if !e.legato[n] {
			notes = append(notes, n)
		}
	}
	slices.SortFunc(notes, func(a, b tiles.Note) int { return a.MIDI() - b.MIDI() })
	return notes
}

// ReleaseAll force-releases every sounding note. The release is never
// scheduled before a command already sent, so a note attacked ahead of
// time by the lookahead does not outlive the stop.
func (e *Engine) ReleaseAll(at float64) []Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.releaseAllLocked(at)
}

func (e *Engine) releaseAllLocked(at float64) []Command {
	at = math.Max(at, e.horizon)

	var notes []tiles.Note
	for n := range e.legato {
		notes = append(notes, n)
	}
	for n, end := range e.singles {
		if end > at && !e.legato[n] {
			notes = append(notes, n)
		}
	}
	slices.SortFunc(notes, func(a, b tiles.Note) int { return a.MIDI() - b.MIDI() })

	cmds := make([]Command, 0, len(notes))
	for _, n := range notes {
		cmd := Command{Kind: CmdRelease, Note: n, At: at}
		if e.voice != nil {
			cmd.Apply(e.voice)
		}
		cmds = append(cmds, cmd)
	}

	clear(e.legato)
	clear(e.singles)
	return cmds
}

// Resolve plays the tiles at pos. audioTime is the nominal time of the
// tick; every command goes out Lookahead later. Without a voice the tick
// is a no-op.
func (e *Engine) Resolve(snap tiles.Snapshot, t Timing, pos grid.Position, audioTime float64) TickResult {
	g := t.Geometry
	if !g.Contains(pos) {
		panic(fmt.Sprintf("sequencer: resolve at %v outside %dx%dx%d grid", pos, g.Measures, g.Beats, g.Subdivisions))
	}

	at := audioTime + t.Lookahead()
	res := TickResult{Position: pos, At: at}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.voice == nil {
		return res
	}

	// partition the current cell
	var singles []tiles.Note
	combined := make(map[tiles.Note]bool)
	for _, k := range snap.At(pos) {
		switch snap.Get(k) {
		case tiles.Single:
			singles = append(singles, k.Note)
		case tiles.Combined:
			combined[k.Note] = true
		}
	}

	prevPos := g.Decrement(pos)
	previous := make(map[tiles.Note]bool)
	for _, k := range snap.At(prevPos) {
		if snap.Get(k) == tiles.Combined {
			previous[k.Note] = true
		}
	}

	// singles that already ended no longer count as sounding
	for n, end := range e.singles {
		if end <= at {
			delete(e.singles, n)
		}
	}

	// ended: held notes whose run stopped at the previous cell, or whose
	// tiles were edited away behind the playhead
	ended := make(map[tiles.Note]bool)
	for n := range e.legato {
		if !combined[n] || !previous[n] {
			ended[n] = true
		}
	}
	for _, n := range sortedNotes(ended) {
		e.emit(&res, Command{Kind: CmdRelease, Note: n, At: at})
		delete(e.legato, n)
		res.RunEnded = append(res.RunEnded, RunBackward(snap, g, tiles.KeyOf(n, prevPos))...)
	}

	length := t.NoteLength()
	for _, n := range singles {
		e.emit(&res, Command{
			Kind:     CmdAttackRelease,
			Note:     n,
			At:       at,
			Duration: length,
			Velocity: ShapeVelocity(e.velocity, n.MIDI()),
		})
		e.singles[n] = at + length
		res.Played = append(res.Played, tiles.KeyOf(n, pos))
	}

	// started: combined here and not continuing a held run
	for _, n := range sortedNotes(combined) {
		if previous[n] && e.legato[n] {
			continue
		}
		e.emit(&res, Command{
			Kind:     CmdAttack,
			Note:     n,
			At:       at,
			Velocity: ShapeVelocity(e.velocity, n.MIDI()),
		})
		e.legato[n] = true
		res.RunStarted = append(res.RunStarted, RunForward(snap, g, tiles.KeyOf(n, pos))...)
	}

	return res
}

// emit expects e.mu held and e.voice non-nil
func (e *Engine) emit(res *TickResult, cmd Command) {
	cmd.Apply(e.voice)
	res.Commands = append(res.Commands, cmd)
	if cmd.At > e.horizon {
		e.horizon = cmd.At
	}
}

func sortedNotes(set map[tiles.Note]bool) []tiles.Note {
	notes := make([]tiles.Note, 0, len(set))
	for n := range set {
		notes = append(notes, n)
	}
	slices.SortFunc(notes, func(a, b tiles.Note) int { return a.MIDI() - b.MIDI() })
	return notes
}
