package sequencer

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"

	"go-tiles/config"
	"go-tiles/debug"
	"go-tiles/grid"
	"go-tiles/share"
	"go-tiles/tiles"
)

// Options configures a session's runtime collaborators
type Options struct {
	Source TimeSource // nil means the system clock
	Manual bool       // drive the clock with Tick instead of a goroutine
	Voice  Voice      // may be nil and set later
}

// Location is the playhead as the UI shows it
type Location struct {
	Position grid.Position // last resolved step
	Sounding grid.Position // step currently heard, lagging by the lookahead
}

// Session owns one sequencer: the tiles, the clock, the engine and the
// editor, plus the settings that tie them together.
type Session struct {
	mu  sync.Mutex
	cfg config.SequencerConfig

	store  *tiles.Store
	audio  *AudioClock
	clock  *Clock
	engine *Engine
	editor *Editor

	last        atomic.Pointer[TickResult]
	updates     chan struct{}
	unsubscribe func()
}

// NewSession creates a stopped session from cfg
func NewSession(cfg config.SequencerConfig, opts Options) *Session {
	cfg.Scale = slices.Clone(cfg.Scale)
	cfg.Sanitize()

	s := &Session{
		cfg:     cfg,
		store:   tiles.NewStore(),
		audio:   NewAudioClock(opts.Source),
		engine:  NewEngine(cfg.Velocity),
		updates: make(chan struct{}, 1),
	}
	s.editor = NewEditor(s.store, s.geometryLocked(), cfg.EditMode)
	s.clock = NewClock(s.audio, s.timingLocked(), s.tick, s.halt, opts.Manual)
	if opts.Voice != nil {
		s.engine.SetVoice(opts.Voice, 0)
	}
	s.unsubscribe = s.store.Subscribe(func(_, _ tiles.Snapshot) { s.notify() })
	return s
}

// Close stops playback and detaches from the store
func (s *Session) Close() {
	s.clock.Stop()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Updates signals that something visible changed. Signals coalesce, so a
// slow reader sees one pending update rather than a backlog.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

func (s *Session) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// tick runs on the clock with the clock mutex held
func (s *Session) tick(t Timing, pos grid.Position, at float64) {
	res := s.engine.Resolve(s.store.Snapshot(), t, pos, at)
	s.last.Store(&res)
	if res.Empty() {
		debug.LogEvery(t.Geometry.Steps(), "tick", "%s silent", pos)
	} else {
		debug.Log("tick", "%s @%.3f: %d commands", pos, res.At, len(res.Commands))
	}
	s.notify()
}

// halt runs on the clock whenever playback stops or re-arms
func (s *Session) halt(at float64) {
	if released := s.engine.ReleaseAll(at); len(released) > 0 {
		debug.Log("tick", "released %d sounding notes @%.3f", len(released), at)
	}
}

func (s *Session) geometryLocked() grid.Geometry {
	return grid.Geometry{Measures: s.cfg.Measures, Beats: s.cfg.Beats, Subdivisions: s.cfg.Subdivisions}
}

func (s *Session) timingLocked() Timing {
	return Timing{Geometry: s.geometryLocked(), BPM: s.cfg.BPM}
}

// applyLocked pushes the current settings to every component and re-arms
// a running clock so they take effect on the next step.
func (s *Session) applyLocked() {
	s.cfg.Sanitize()
	g := s.geometryLocked()
	s.editor.SetGeometry(g)
	s.editor.SetMode(s.cfg.EditMode)
	s.engine.SetVelocity(s.cfg.Velocity)
	s.clock.Refresh(s.timingLocked())
	s.notify()
}

func (s *Session) update(fn func(cfg *config.SequencerConfig)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.cfg)
	s.applyLocked()
}

// Tiles

// Key builds a key for a note row and position, rejecting positions
// outside the grid.
func (s *Session) Key(note string, measure, beat, subdivision int) (tiles.Key, error) {
	k, err := tiles.GetTileKey(note, measure, beat, subdivision)
	if err != nil {
		return tiles.Key{}, err
	}
	if !s.Geometry().Contains(k.Pos) {
		return tiles.Key{}, fault.New("tile outside grid",
			fmsg.WithDesc("out of range", "That step is outside the grid."),
			ftag.With(ftag.InvalidArgument))
	}
	return k, nil
}

// ToggleTile flips a tile between None and the edit mode's state
func (s *Session) ToggleTile(note string, measure, beat, subdivision int) (tiles.State, error) {
	k, err := s.Key(note, measure, beat, subdivision)
	if err != nil {
		return tiles.None, err
	}
	return s.editor.Toggle(k), nil
}

// ToggleKey is ToggleTile for an already built key
func (s *Session) ToggleKey(k tiles.Key) tiles.State {
	return s.editor.Toggle(k)
}

// SetTile writes one tile directly
func (s *Session) SetTile(k tiles.Key, state tiles.State) {
	s.store.Set(k, state)
}

// ClearAllTiles empties the grid
func (s *Session) ClearAllTiles() {
	s.store.Clear()
}

// Snapshot returns the current tiles
func (s *Session) Snapshot() tiles.Snapshot {
	return s.store.Snapshot()
}

// Store exposes the tile store for subscribers
func (s *Session) Store() *tiles.Store {
	return s.store
}

// ShapeAt reports how k connects to its run neighbours
func (s *Session) ShapeAt(k tiles.Key) RunShape {
	return ShapeAt(s.store.Snapshot(), s.Geometry(), k)
}

// Pointer gestures

func (s *Session) PointerDown(k tiles.Key) {
	s.editor.PointerDown(k)
	s.notify()
}

func (s *Session) PointerEnter(k tiles.Key) {
	s.editor.PointerEnter(k)
	s.notify()
}

func (s *Session) PointerUp() {
	s.editor.PointerUp()
	s.notify()
}

// SetTentativeRun marks a pending combined run
func (s *Session) SetTentativeRun(start, end tiles.Key) error {
	if err := s.editor.SetTentativeRun(start, end); err != nil {
		return err
	}
	s.notify()
	return nil
}

// CommitTentativeRun writes the pending run as Combined
func (s *Session) CommitTentativeRun() []tiles.Key {
	keys := s.editor.CommitTentativeRun()
	s.notify()
	return keys
}

// CancelTentativeRun drops the pending run
func (s *Session) CancelTentativeRun() {
	s.editor.CancelTentativeRun()
	s.notify()
}

// TentativeKeys lists the pending run
func (s *Session) TentativeKeys() []tiles.Key {
	return s.editor.TentativeKeys()
}

// EditorState returns the pointer interaction state
func (s *Session) EditorState() EditorState {
	return s.editor.State()
}

// Playback

// TogglePlayback starts a stopped session from the origin or stops a
// running one. It reports whether playback is now running.
func (s *Session) TogglePlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock.Running() {
		s.clock.Stop()
		s.notify()
		return false
	}
	s.clock.Start()
	s.notify()
	return true
}

// Start rewinds and plays
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Start()
	s.notify()
}

// Stop halts playback and releases every sounding note
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Stop()
	s.notify()
}

// Tick advances a manual clock by one step
func (s *Session) Tick() bool {
	return s.clock.Tick()
}

// Running reports whether playback is on
func (s *Session) Running() bool {
	return s.clock.Running()
}

// Location returns the playhead and the lagging sounding step
func (s *Session) Location() Location {
	pos := s.clock.Position()
	g := s.clock.Timing().Geometry
	return Location{Position: pos, Sounding: g.Subtract(pos, SubdivisionOffset)}
}

// LastResult returns the most recent tick, if any
func (s *Session) LastResult() (TickResult, bool) {
	res := s.last.Load()
	if res == nil {
		return TickResult{}, false
	}
	return *res, true
}

// Sounding lists the notes the engine holds
func (s *Session) Sounding() []tiles.Note {
	return s.engine.Sounding()
}

// AudioClock returns the clock voices are scheduled against
func (s *Session) AudioClock() *AudioClock {
	return s.audio
}

// SetVoice attaches an instrument. Notes still held on the previous voice
// are released on it first.
func (s *Session) SetVoice(v Voice) {
	released := s.engine.SetVoice(v, s.audio.Now())
	debug.Log("voice", "voice swapped, %d notes released", len(released))
}

// Settings

// Settings returns a copy of the current settings
func (s *Session) Settings() config.SequencerConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.cfg
	cfg.Scale = slices.Clone(cfg.Scale)
	return cfg
}

// Geometry returns the grid dimensions
func (s *Session) Geometry() grid.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometryLocked()
}

// Timing returns the grid and tempo
func (s *Session) Timing() Timing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timingLocked()
}

// SetTempo changes BPM
func (s *Session) SetTempo(bpm float64) {
	s.update(func(cfg *config.SequencerConfig) { cfg.BPM = bpm })
}

// SetGridDimensions changes measures, beats and subdivisions. Tiles
// outside the new grid are kept and come back when it grows again.
func (s *Session) SetGridDimensions(measures, beats, subdivisions int) {
	s.update(func(cfg *config.SequencerConfig) {
		cfg.Measures, cfg.Beats, cfg.Subdivisions = measures, beats, subdivisions
	})
}

// SetVelocity changes the base velocity 0..1
func (s *Session) SetVelocity(v float64) {
	s.update(func(cfg *config.SequencerConfig) { cfg.Velocity = v })
}

// SetOctaves changes how many octaves the grid spans
func (s *Session) SetOctaves(n int) {
	s.update(func(cfg *config.SequencerConfig) { cfg.Octaves = n })
}

// SetBaseOctave changes the lowest octave
func (s *Session) SetBaseOctave(n int) {
	s.update(func(cfg *config.SequencerConfig) { cfg.BaseOctave = n })
}

// SetRootNote changes the scale root. Any spelling is accepted and stored
// as its selector label.
func (s *Session) SetRootNote(root string) error {
	pc, err := tiles.ParsePitchClass(root)
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("invalid root note", "Root note must be a note name such as C or F#."))
	}
	s.update(func(cfg *config.SequencerConfig) { cfg.RootNote = pc.Label() })
	return nil
}

// SetScale changes the scale offsets
func (s *Session) SetScale(scale []int) {
	s.update(func(cfg *config.SequencerConfig) { cfg.Scale = slices.Clone(scale) })
}

// SetShowNonDiatonic shows or hides rows outside the scale
func (s *Session) SetShowNonDiatonic(show bool) {
	s.update(func(cfg *config.SequencerConfig) { cfg.ShowNonDiatonic = show })
}

// SetEditMode switches between single and combined editing
func (s *Session) SetEditMode(m config.EditMode) {
	s.update(func(cfg *config.SequencerConfig) { cfg.EditMode = m })
}

// Rows lists the note rows the grid shows, highest first
func (s *Session) Rows() []tiles.Row {
	cfg := s.Settings()
	root, err := tiles.ParsePitchClass(cfg.RootNote)
	if err != nil {
		root = tiles.C
	}
	return tiles.Rows(tiles.RowLayout{
		Root:            root,
		Scale:           cfg.Scale,
		BaseOctave:      cfg.BaseOctave,
		Octaves:         cfg.Octaves,
		ShowNonDiatonic: cfg.ShowNonDiatonic,
	}, s.store.Snapshot())
}

// Sharing

// ShareQuery encodes the session as a share query string
func (s *Session) ShareQuery() string {
	return share.Encode(s.Settings(), s.store.Snapshot())
}

// ApplyShare loads a share link or query. Fields that are present replace
// the current ones; fields that fail to decode are skipped and returned.
func (s *Session) ApplyShare(raw string) []error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.cfg
	cfg.Scale = slices.Clone(cfg.Scale)
	decoded, errs := share.Decode(raw, &cfg)
	for _, err := range errs {
		debug.Log("share", "skipped field: %v", err)
	}

	s.cfg = cfg
	if decoded != nil {
		s.store.Replace(decoded)
	}
	debug.Dump("share", "applied settings", cfg)
	s.applyLocked()
	return errs
}
