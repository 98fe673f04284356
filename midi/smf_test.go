package midi

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-tiles/grid"
	"go-tiles/sequencer"
	"go-tiles/tiles"
)

var geometry144 = grid.Geometry{Measures: 1, Beats: 4, Subdivisions: 4}

func onBeat(beat int) grid.Position {
	return grid.Position{Beat: beat}
}

type smfNote struct {
	tick uint32
	on   bool
	key  uint8
}

func readNotes(t *testing.T, data []byte) (*smf.SMF, []smfNote) {
	t.Helper()
	rd, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rd.Tracks) != 2 {
		t.Fatalf("Expected tempo and note tracks, got %d", len(rd.Tracks))
	}

	var notes []smfNote
	var tick uint32
	for _, ev := range rd.Tracks[1] {
		tick += ev.Delta
		msg := gomidi.Message(ev.Message)
		var ch, key, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			notes = append(notes, smfNote{tick, true, key})
		case msg.GetNoteEnd(&ch, &key):
			notes = append(notes, smfNote{tick, false, key})
		}
	}
	return rd, notes
}

// TestWriteSMF verifies seconds become ticks at the session tempo
func TestWriteSMF(t *testing.T) {
	c4, e4 := tiles.MustParseNote("C4"), tiles.MustParseNote("E4")
	cmds := []sequencer.Command{
		{Kind: sequencer.CmdAttack, Note: c4, At: 0.125, Velocity: 0.5},
		{Kind: sequencer.CmdAttackRelease, Note: e4, At: 0.375, Duration: 0.125, Velocity: 1},
		{Kind: sequencer.CmdRelease, Note: c4, At: 0.625},
	}

	var buf bytes.Buffer
	if err := WriteSMF(&buf, cmds, 120, 2, 0.125); err != nil {
		t.Fatalf("WriteSMF: %v", err)
	}

	rd, notes := readNotes(t, buf.Bytes())
	if tc := rd.TempoChanges(); len(tc) == 0 || math.Abs(tc[0].BPM-120) > 0.01 {
		t.Errorf("Expected tempo 120, got %v", tc)
	}

	want := []smfNote{
		{0, true, 60},
		{480, true, 64},
		{720, false, 64},
		{960, false, 60},
	}
	if len(notes) != len(want) {
		t.Fatalf("Expected %d notes, got %+v", len(want), notes)
	}
	for i := range want {
		if notes[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], notes[i])
		}
	}
}

// TestWriteSMFFromRender verifies a rendered cycle exports every note
func TestWriteSMFFromRender(t *testing.T) {
	a4 := tiles.MustParseNote("A4")
	st := tiles.NewStore()
	st.SetMany(map[tiles.Key]tiles.State{
		tiles.KeyOf(a4, onBeat(0)): tiles.Single,
		tiles.KeyOf(a4, onBeat(2)): tiles.Single,
	})
	timing := sequencer.Timing{Geometry: geometry144, BPM: 120}

	cmds := sequencer.Render(st.Snapshot(), timing, 0.5, 1)
	var buf bytes.Buffer
	if err := WriteSMF(&buf, cmds, timing.BPM, 1, timing.Lookahead()); err != nil {
		t.Fatalf("WriteSMF: %v", err)
	}

	_, notes := readNotes(t, buf.Bytes())
	if len(notes) != 4 {
		t.Fatalf("Expected 2 hits, got %+v", notes)
	}
	if notes[0].tick != 0 || notes[2].tick != 1920 {
		t.Errorf("Expected hits on beats 1 and 3, got %+v", notes)
	}
}

// TestWriteSMFFile verifies the file is complete once the call returns
func TestWriteSMFFile(t *testing.T) {
	c4 := tiles.MustParseNote("C4")
	cmds := []sequencer.Command{
		{Kind: sequencer.CmdAttackRelease, Note: c4, At: 0, Duration: 0.25, Velocity: 0.5},
	}

	path := filepath.Join(t.TempDir(), "cycle.mid")
	if err := WriteSMFFile(path, cmds, 120, 1, 0); err != nil {
		t.Fatalf("WriteSMFFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	_, notes := readNotes(t, data)
	if len(notes) != 2 || notes[1] != (smfNote{480, false, 60}) {
		t.Errorf("Expected C4 held for an eighth, got %+v", notes)
	}

	missing := filepath.Join(t.TempDir(), "no-such-dir", "cycle.mid")
	if err := WriteSMFFile(missing, cmds, 120, 1, 0); err == nil {
		t.Errorf("Expected error creating %s", missing)
	}
}
