package sequencer

import (
	"maps"
	"slices"
	"testing"
	"time"

	"go-tiles/config"
	"go-tiles/grid"
	"go-tiles/tiles"
)

func newTestSession(t *testing.T) (*Session, *recordingVoice, *MockTime) {
	t.Helper()
	mt := newMockTime()
	v := &recordingVoice{}
	s := NewSession(config.DefaultSequencer(), Options{Source: mt, Manual: true, Voice: v})
	t.Cleanup(s.Close)
	return s, v, mt
}

// TestSessionScenarioA verifies the tick interval and cycle length
func TestSessionScenarioA(t *testing.T) {
	s, _, _ := newTestSession(t)

	if got := s.Timing().Interval(); !approx(got, 0.125) {
		t.Errorf("Expected interval 0.125, got %v", got)
	}
	s.Start()
	if s.Location().Position != grid.Origin {
		t.Fatalf("Expected start at origin, got %s", s.Location().Position)
	}
	for range 16 {
		s.Tick()
	}
	if s.Location().Position != grid.Origin {
		t.Errorf("Expected origin after 16 ticks, got %s", s.Location().Position)
	}
}

// TestSessionScenarioB verifies a single tile plays exactly once per cycle
// at its position plus the lookahead
func TestSessionScenarioB(t *testing.T) {
	s, v, mt := newTestSession(t)
	if _, err := s.ToggleTile("C4", 0, 1, 0); err != nil {
		t.Fatal(err)
	}

	s.Start()
	for range 15 {
		mt.Advance(125 * time.Millisecond)
		s.Tick()
	}

	cmds := v.Commands()
	if len(cmds) != 1 {
		t.Fatalf("Expected one command, got:\n%s", dump(cmds))
	}
	c := cmds[0]
	if c.Kind != CmdAttackRelease || c.Note != note("C4") || !approx(c.Duration, 0.125) || !approx(c.At, 0.625) {
		t.Errorf("Unexpected command %s", c)
	}
	if !approx(c.Velocity, ShapeVelocity(0.5, 60)) {
		t.Errorf("Expected velocity %v, got %v", ShapeVelocity(0.5, 60), c.Velocity)
	}
}

// TestSessionScenarioC verifies paired toggles restore the store
func TestSessionScenarioC(t *testing.T) {
	s, _, _ := newTestSession(t)
	before := s.Snapshot().Sorted()

	s.ToggleTile("Eb4", 0, 2, 3)
	s.ToggleTile("D#4", 0, 2, 3)

	if after := s.Snapshot().Sorted(); !slices.Equal(before, after) {
		t.Errorf("Expected store restored, got %v", after)
	}
}

// TestSessionScenarioD verifies refresh keeps the playhead and start rewinds
func TestSessionScenarioD(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.Start()
	for range 6 {
		s.Tick()
	}
	here := s.Location().Position
	if here == grid.Origin {
		t.Fatalf("Expected to have moved off the origin")
	}

	s.SetTempo(150)
	if got := s.Location().Position; got != here {
		t.Errorf("SetTempo moved the playhead from %s to %s", here, got)
	}
	s.SetVelocity(0.9)
	s.SetGridDimensions(2, 4, 4)
	if got := s.Location().Position; got != here {
		t.Errorf("Setting change moved the playhead from %s to %s", here, got)
	}
	if !s.Running() {
		t.Errorf("Setting changes stopped playback")
	}

	if s.TogglePlayback() {
		t.Errorf("Expected toggle to stop")
	}
	if s.Location().Position != grid.Stopped {
		t.Errorf("Expected stopped position, got %s", s.Location().Position)
	}
	if !s.TogglePlayback() {
		t.Errorf("Expected toggle to start")
	}
	if s.Location().Position != grid.Origin {
		t.Errorf("Expected start to rewind, got %s", s.Location().Position)
	}
}

// TestSessionStopReleasesSounding verifies stop leaves no note held
func TestSessionStopReleasesSounding(t *testing.T) {
	s, v, _ := newTestSession(t)
	s.SetEditMode(config.EditCombined)
	g4 := note("G4")

	start, _ := s.Key("G4", 0, 0, 0)
	end, _ := s.Key("G4", 0, 1, 3)
	if err := s.SetTentativeRun(start, end); err != nil {
		t.Fatal(err)
	}
	if keys := s.CommitTentativeRun(); len(keys) != 8 {
		t.Fatalf("Expected 8 committed keys, got %d", len(keys))
	}

	s.Start()
	s.Tick()
	s.Tick()
	if got := s.Sounding(); len(got) != 1 || got[0] != g4 {
		t.Fatalf("Expected G4 sounding, got %v", got)
	}

	s.Stop()
	cmds := forNote(v.Commands(), g4)
	if countKind(cmds, CmdAttack) != 1 || countKind(cmds, CmdRelease) != 1 {
		t.Errorf("Expected one attack and one release, got:\n%s", dump(cmds))
	}
	if len(s.Sounding()) != 0 {
		t.Errorf("Expected nothing sounding after stop")
	}
}

// TestSessionRefreshRetriggersHeldRun verifies a live setting change
// releases and resumes a held note
func TestSessionRefreshRetriggersHeldRun(t *testing.T) {
	s, v, _ := newTestSession(t)
	a4 := note("A4")
	for sub := range 4 {
		s.SetTile(tiles.KeyOf(a4, pos(0, 0, sub)), tiles.Combined)
	}

	s.Start()
	s.Tick()
	s.SetTempo(100)
	s.Tick()

	cmds := forNote(v.Commands(), a4)
	kinds := []CommandKind{CmdAttack, CmdRelease, CmdAttack}
	if len(cmds) != len(kinds) {
		t.Fatalf("Expected attack, release, attack, got:\n%s", dump(cmds))
	}
	for i, k := range kinds {
		if cmds[i].Kind != k {
			t.Errorf("command %d: expected %s, got %s", i, k, cmds[i])
		}
	}
}

// TestSessionSetVoice verifies a swap releases on the old voice
func TestSessionSetVoice(t *testing.T) {
	s, old, _ := newTestSession(t)
	c4 := note("C4")
	s.SetTile(tiles.KeyOf(c4, pos(0, 0, 0)), tiles.Combined)
	s.SetTile(tiles.KeyOf(c4, pos(0, 0, 1)), tiles.Combined)

	s.Start()
	next := &recordingVoice{}
	s.SetVoice(next)

	if cmds := old.Commands(); len(cmds) != 2 || cmds[1].Kind != CmdRelease {
		t.Errorf("Expected attack then release on old voice, got:\n%s", dump(cmds))
	}
	s.Tick()
	if cmds := next.Commands(); len(cmds) != 1 || cmds[0].Kind != CmdAttack {
		t.Errorf("Expected new voice to pick up the run, got:\n%s", dump(cmds))
	}

	s.SetVoice(nil)
	s.Tick()
	s.Tick()
	if got := len(next.Commands()); got != 2 {
		t.Errorf("Expected only the swap release after detaching, got %d commands", got)
	}
}

// TestSessionLocationLags verifies the sounding step trails the playhead
func TestSessionLocationLags(t *testing.T) {
	s, _, _ := newTestSession(t)

	if loc := s.Location(); loc.Position != grid.Stopped || loc.Sounding != grid.Stopped {
		t.Errorf("Expected stopped location, got %+v", loc)
	}
	s.Start()
	if loc := s.Location(); loc.Sounding != pos(0, 3, 3) {
		t.Errorf("Expected sounding (0,3,3) at origin, got %s", loc.Sounding)
	}
	s.Tick()
	if loc := s.Location(); loc.Sounding != grid.Origin {
		t.Errorf("Expected sounding origin, got %s", loc.Sounding)
	}
}

// TestSessionSettingsSanitized verifies out-of-range settings are clamped
func TestSessionSettingsSanitized(t *testing.T) {
	s, _, _ := newTestSession(t)

	s.SetTempo(5000)
	s.SetGridDimensions(0, 4, 300)
	s.SetVelocity(-1)
	s.SetOctaves(12)
	s.SetBaseOctave(-2)

	cfg := s.Settings()
	if cfg.BPM != config.MaxBPM || cfg.Measures != 1 || cfg.Subdivisions != config.MaxLength ||
		cfg.Velocity != 0 || cfg.Octaves != config.MaxOctaves || cfg.BaseOctave != config.MinBaseOctave {
		t.Errorf("Settings not clamped: %+v", cfg)
	}
	if err := s.SetRootNote("Q"); err == nil {
		t.Errorf("Expected error for invalid root")
	}
	if err := s.SetRootNote("Eb"); err != nil || s.Settings().RootNote != "D#/Eb" {
		t.Errorf("Expected root stored as label, got %q (%v)", s.Settings().RootNote, err)
	}
	if _, err := s.ToggleTile("C4", 0, 0, 500); err == nil {
		t.Errorf("Expected error toggling outside the grid")
	}
}

// TestSessionRows verifies the default row layout
func TestSessionRows(t *testing.T) {
	s, _, _ := newTestSession(t)

	rows := s.Rows()
	// two octaves of pentatonic plus the closing root
	if len(rows) != 11 {
		t.Fatalf("Expected 11 rows, got %d", len(rows))
	}
	if rows[0].Note != note("C6") || rows[len(rows)-1].Note != note("C4") {
		t.Errorf("Unexpected range %s..%s", rows[len(rows)-1].Note, rows[0].Note)
	}

	s.SetShowNonDiatonic(true)
	if got := len(s.Rows()); got != 25 {
		t.Errorf("Expected 25 chromatic rows, got %d", got)
	}
}

// TestSessionShareRoundTrip verifies a session restores from its own link
func TestSessionShareRoundTrip(t *testing.T) {
	a, _, _ := newTestSession(t)
	a.SetGridDimensions(2, 3, 4)
	a.SetTempo(96)
	a.SetScale([]int{0, 3, 5, 7, 10})
	a.SetRootNote("A")
	a.ToggleTile("A4", 1, 2, 3)
	a.SetTile(tiles.KeyOf(note("C5"), pos(0, 0, 0)), tiles.Combined)

	b, _, _ := newTestSession(t)
	b.ToggleTile("D4", 0, 0, 0)
	if errs := b.ApplyShare("https://tiles.example/sequencer?" + a.ShareQuery()); len(errs) != 0 {
		t.Fatalf("Expected clean decode, got %v", errs)
	}

	if !maps.Equal(collect(a.Snapshot()), collect(b.Snapshot())) {
		t.Errorf("Tiles differ: %v vs %v", a.Snapshot().Sorted(), b.Snapshot().Sorted())
	}
	ac, bc := a.Settings(), b.Settings()
	if ac.Measures != bc.Measures || ac.Beats != bc.Beats || ac.BPM != bc.BPM ||
		ac.RootNote != bc.RootNote || !slices.Equal(ac.Scale, bc.Scale) {
		t.Errorf("Settings differ:\n%+v\n%+v", ac, bc)
	}
}

// TestSessionTopOctaveRowsShare verifies every row shown at the top of the
// keyboard can be keyed and survives a share link
func TestSessionTopOctaveRowsShare(t *testing.T) {
	a, _, _ := newTestSession(t)
	a.SetBaseOctave(8)
	a.SetOctaves(2)

	rows := a.Rows()
	top := rows[0].Note
	if top.MIDI() > tiles.MaxMIDI {
		t.Fatalf("Expected rows within MIDI range, top is %s (%d)", top, top.MIDI())
	}
	for _, r := range rows {
		if _, err := a.ToggleTile(r.Note.Token(), 0, 0, 0); err != nil {
			t.Errorf("ToggleTile(%s): %v", r.Note.Token(), err)
		}
	}

	b, _, _ := newTestSession(t)
	if errs := b.ApplyShare(a.ShareQuery()); len(errs) != 0 {
		t.Fatalf("Expected clean decode, got %v", errs)
	}
	if a.Snapshot().Len() != len(rows) || !maps.Equal(collect(a.Snapshot()), collect(b.Snapshot())) {
		t.Errorf("Expected %d tiles restored, got %d of %d", len(rows), b.Snapshot().Len(), a.Snapshot().Len())
	}
}

// TestSessionUpdates verifies edits and ticks signal the UI
func TestSessionUpdates(t *testing.T) {
	s, _, _ := newTestSession(t)
	drain := func() bool {
		select {
		case <-s.Updates():
			return true
		default:
			return false
		}
	}
	drain()

	s.ToggleTile("C4", 0, 0, 0)
	if !drain() {
		t.Errorf("Expected update after toggle")
	}
	s.Start()
	s.Tick()
	if !drain() {
		t.Errorf("Expected update after tick")
	}
	if drain() {
		t.Errorf("Expected updates to coalesce")
	}
	if res, ok := s.LastResult(); !ok || res.Position != pos(0, 0, 1) {
		t.Errorf("Expected last result at (0,0,1), got %+v", res)
	}
}

func collect(snap tiles.Snapshot) map[tiles.Key]tiles.State {
	return maps.Collect(snap.All())
}
