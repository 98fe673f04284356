package sequencer

import (
	"sync"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"go-tiles/config"
	"go-tiles/grid"
	"go-tiles/tiles"
)

// EditorState is the pointer interaction state
type EditorState int

const (
	Idle EditorState = iota
	DraggingSelect
	DraggingDeselect
	DraggingCombined
)

func (s EditorState) String() string {
	switch s {
	case DraggingSelect:
		return "dragging-select"
	case DraggingDeselect:
		return "dragging-deselect"
	case DraggingCombined:
		return "dragging-combined"
	}
	return "idle"
}

// Editor turns pointer gestures into tile edits
type Editor struct {
	mu       sync.Mutex
	store    *tiles.Store
	geometry grid.Geometry
	mode     config.EditMode
	state    EditorState

	tentative bool
	start     tiles.Key
	end       tiles.Key
}

// NewEditor edits store in the given mode
func NewEditor(store *tiles.Store, g grid.Geometry, mode config.EditMode) *Editor {
	return &Editor{store: store, geometry: g, mode: mode}
}

// SetGeometry updates the grid bounds. A pending tentative run is dropped.
func (e *Editor) SetGeometry(g grid.Geometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.geometry = g
	e.clearLocked()
}

// SetMode switches between single and combined editing. Any gesture in
// progress ends without committing.
func (e *Editor) SetMode(m config.EditMode) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mode = m
	e.clearLocked()
}

// Mode returns the edit mode
func (e *Editor) Mode() config.EditMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// State returns the current interaction state
func (e *Editor) State() EditorState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Toggle flips one tile between None and the state of the current mode
func (e *Editor) Toggle(k tiles.Key) tiles.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.toggleLocked(k)
}

func (e *Editor) toggleLocked(k tiles.Key) tiles.State {
	next := tiles.None
	if e.store.Get(k) == tiles.None {
		next = e.placeState()
	}
	e.store.Set(k, next)
	return next
}

func (e *Editor) placeState() tiles.State {
	if e.mode == config.EditCombined {
		return tiles.Combined
	}
	return tiles.Single
}

// PointerDown starts a gesture on k. The pressed tile toggles and the
// gesture's intent is fixed by the state it had.
func (e *Editor) PointerDown(k tiles.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.geometry.Contains(k.Pos) {
		return
	}
	e.clearLocked()

	selecting := e.store.Get(k) == tiles.None
	e.toggleLocked(k)

	switch {
	case !selecting:
		e.state = DraggingDeselect
	case e.mode == config.EditCombined:
		e.state = DraggingCombined
		e.tentative = true
		e.start, e.end = k, k
	default:
		e.state = DraggingSelect
	}
}

// PointerEnter continues a gesture onto k
func (e *Editor) PointerEnter(k tiles.Key) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.geometry.Contains(k.Pos) {
		return
	}

	switch e.state {
	case DraggingSelect:
		if e.store.Get(k) == tiles.None {
			e.store.Set(k, tiles.Single)
		}
	case DraggingDeselect:
		if e.store.Get(k) != tiles.None {
			e.store.Set(k, tiles.None)
		}
	case DraggingCombined:
		if k.Note == e.start.Note && !k.Pos.Before(e.start.Pos) {
			e.end = k
		}
	}
}

// PointerUp ends any gesture, wherever the pointer is. A combined drag
// commits its run.
func (e *Editor) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == DraggingCombined {
		e.commitLocked()
	}
	e.clearLocked()
}

// SetTentativeRun marks start..end as the pending combined run. Both keys
// must share a row and end must not precede start.
func (e *Editor) SetTentativeRun(start, end tiles.Key) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if start.Note != end.Note {
		return fault.New("tentative run spans rows",
			fmsg.WithDesc("different notes", "A run must stay on one note row."),
			ftag.With(ftag.InvalidArgument))
	}
	if end.Pos.Before(start.Pos) {
		return fault.New("tentative run ends before it starts",
			fmsg.WithDesc("backward run", "A run must end at or after its start."),
			ftag.With(ftag.InvalidArgument))
	}
	if !e.geometry.Contains(start.Pos) || !e.geometry.Contains(end.Pos) {
		return fault.New("tentative run outside grid",
			fmsg.WithDesc("out of range", "The run does not fit the grid."),
			ftag.With(ftag.InvalidArgument))
	}

	e.tentative = true
	e.start, e.end = start, end
	return nil
}

// CommitTentativeRun writes the pending run as Combined in one store
// update and clears the markers. It returns the committed keys.
func (e *Editor) CommitTentativeRun() []tiles.Key {
	e.mu.Lock()
	defer e.mu.Unlock()

	keys := e.commitLocked()
	e.clearLocked()
	return keys
}

// CancelTentativeRun drops the pending run without writing it
func (e *Editor) CancelTentativeRun() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// TentativeKeys lists the cells of the pending run in order
func (e *Editor) TentativeKeys() []tiles.Key {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runLocked()
}

func (e *Editor) runLocked() []tiles.Key {
	if !e.tentative {
		return nil
	}
	from, to := e.geometry.Index(e.start.Pos), e.geometry.Index(e.end.Pos)
	keys := make([]tiles.Key, 0, to-from+1)
	for i := from; i <= to; i++ {
		keys = append(keys, tiles.KeyOf(e.start.Note, e.geometry.At(i)))
	}
	return keys
}

func (e *Editor) commitLocked() []tiles.Key {
	keys := e.runLocked()
	if len(keys) == 0 {
		return nil
	}
	changes := make(map[tiles.Key]tiles.State, len(keys))
	for _, k := range keys {
		changes[k] = tiles.Combined
	}
	e.store.SetMany(changes)
	return keys
}

func (e *Editor) clearLocked() {
	e.state = Idle
	e.tentative = false
	e.start, e.end = tiles.Key{}, tiles.Key{}
}
