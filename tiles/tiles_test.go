package tiles

import (
	"testing"

	"github.com/Southclaws/fault/ftag"

	"go-tiles/grid"
)

func TestParseNote(t *testing.T) {
	tests := []struct {
		in   string
		want Note
		midi int
	}{
		{"C4", Note{C, 4}, 60},
		{"C#4", Note{Cs, 4}, 61},
		{"Cs4", Note{Cs, 4}, 61},
		{"Db4", Note{Cs, 4}, 61},
		{"C#/Db4", Note{Cs, 4}, 61},
		{"a4", Note{A, 4}, 69},
		{"Bb3", Note{As, 3}, 58},
		{"B#3", Note{C, 4}, 60},
		{"Cb4", Note{B, 3}, 59},
		{"C-1", Note{C, -1}, 0},
		{"G9", Note{G, 9}, 127},
	}
	for _, tt := range tests {
		got, err := ParseNote(tt.in)
		if err != nil {
			t.Errorf("ParseNote(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNote(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
		if got.MIDI() != tt.midi {
			t.Errorf("ParseNote(%q).MIDI() = %d, want %d", tt.in, got.MIDI(), tt.midi)
		}
	}
}

func TestParseNoteRejects(t *testing.T) {
	for _, in := range []string{"", "4", "H4", "C", "C#x4", "G#9", "Cb-1", "/4"} {
		_, err := ParseNote(in)
		if err == nil {
			t.Errorf("ParseNote(%q) accepted invalid input", in)
			continue
		}
		if ftag.Get(err) != ftag.InvalidArgument {
			t.Errorf("ParseNote(%q) tag = %q, want %q", in, ftag.Get(err), ftag.InvalidArgument)
		}
	}
}

func TestNoteNames(t *testing.T) {
	n := MustParseNote("Db4")
	if n.String() != "C#4" {
		t.Errorf("String() = %q, want C#4", n.String())
	}
	if n.Token() != "Cs4" {
		t.Errorf("Token() = %q, want Cs4", n.Token())
	}
	for midi := 0; midi < 128; midi++ {
		n := NoteFromMIDI(midi)
		back, err := ParseNote(n.String())
		if err != nil || back.MIDI() != midi {
			t.Errorf("MIDI %d: %q parsed back to %+v (%v)", midi, n.String(), back, err)
		}
	}
}

// TestGetTileKeyEnharmonic verifies every spelling of a pitch lands on one key
func TestGetTileKeyEnharmonic(t *testing.T) {
	want, err := GetTileKey("C#4", 0, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, spelling := range []string{"Cs4", "Db4", "C#/Db4", "c#4"} {
		got, err := GetTileKey(spelling, 0, 1, 0)
		if err != nil {
			t.Fatalf("GetTileKey(%q): %v", spelling, err)
		}
		if got != want {
			t.Errorf("GetTileKey(%q) = %v, want %v", spelling, got, want)
		}
		if got.String() != "Cs4-0-1-0" {
			t.Errorf("key string = %q, want Cs4-0-1-0", got.String())
		}
	}
}

func TestParseKey(t *testing.T) {
	k, err := ParseKey("Cs4-2-3-1")
	if err != nil {
		t.Fatal(err)
	}
	want := KeyOf(Note{Cs, 4}, grid.Position{Measure: 2, Beat: 3, Subdivision: 1})
	if k != want {
		t.Errorf("ParseKey = %+v, want %+v", k, want)
	}

	legacy, err := ParseKey("C#4-2-3-1")
	if err != nil || legacy != want {
		t.Errorf("ParseKey legacy spelling = %+v, %v", legacy, err)
	}

	low := KeyOf(Note{C, -1}, grid.Origin)
	back, err := ParseKey(low.String())
	if err != nil || back != low {
		t.Errorf("ParseKey(%q) = %+v, %v", low.String(), back, err)
	}

	for _, bad := range []string{"", "C4-0-0", "C4-a-0-0", "C4-0-0--1", "X4-0-0-0"} {
		if _, err := ParseKey(bad); err == nil {
			t.Errorf("ParseKey(%q) accepted invalid key", bad)
		}
	}
}

func TestStoreSetGetClear(t *testing.T) {
	s := NewStore()
	k := KeyOf(Note{C, 4}, grid.Position{Beat: 1})

	if s.Get(k) != None {
		t.Fatalf("unknown key should read as None")
	}

	s.Set(k, Single)
	if s.Get(k) != Single {
		t.Errorf("Get after Set = %v, want single", s.Get(k))
	}

	s.Set(k, Combined)
	if s.Get(k) != Combined {
		t.Errorf("Get after overwrite = %v, want combined", s.Get(k))
	}

	s.Set(KeyOf(Note{D, 4}, grid.Origin), Single)
	s.Clear()
	if s.Snapshot().Len() != 0 {
		t.Errorf("Clear left %d tiles", s.Snapshot().Len())
	}
}

// TestToggleTwiceRestoresStore verifies paired toggles leave no trace
func TestToggleTwiceRestoresStore(t *testing.T) {
	s := NewStore()
	k := MustKey(t, "C4", 0, 1, 0)

	s.Set(k, Single)
	s.Set(k, None)

	if s.Get(k) != None {
		t.Errorf("state = %v, want none", s.Get(k))
	}
	if s.Snapshot().Len() != 0 {
		t.Errorf("store holds %d entries, want 0", s.Snapshot().Len())
	}
}

func TestSnapshotIsCopyOnWrite(t *testing.T) {
	s := NewStore()
	a := KeyOf(Note{C, 4}, grid.Origin)
	b := KeyOf(Note{E, 4}, grid.Origin)
	s.Set(a, Single)

	before := s.Snapshot()
	s.Set(b, Combined)
	s.Set(a, None)

	if before.Get(a) != Single || before.Get(b) != None || before.Len() != 1 {
		t.Errorf("earlier snapshot changed after mutation")
	}
	after := s.Snapshot()
	if after.Get(a) != None || after.Get(b) != Combined {
		t.Errorf("new snapshot missing mutation")
	}
}

func TestStoreNotifies(t *testing.T) {
	s := NewStore()
	k := KeyOf(Note{G, 3}, grid.Origin)

	var calls int
	var lastOld, lastNew Snapshot
	unsubscribe := s.Subscribe(func(old, new Snapshot) {
		calls++
		lastOld, lastNew = old, new
	})

	s.Set(k, Single)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if lastOld.Get(k) != None || lastNew.Get(k) != Single {
		t.Errorf("observer got wrong before/after snapshots")
	}

	s.SetMany(map[Key]State{
		KeyOf(Note{A, 3}, grid.Origin): Combined,
		KeyOf(Note{B, 3}, grid.Origin): Combined,
	})
	if calls != 2 {
		t.Errorf("SetMany should notify once, calls = %d", calls)
	}

	unsubscribe()
	s.Clear()
	if calls != 2 {
		t.Errorf("observer called after unsubscribe")
	}
}

func TestObserverMayWrite(t *testing.T) {
	s := NewStore()
	a := KeyOf(Note{C, 4}, grid.Origin)
	b := KeyOf(Note{D, 4}, grid.Origin)

	s.Subscribe(func(old, new Snapshot) {
		if new.Get(a) == Single && new.Get(b) == None {
			s.Set(b, Single)
		}
	})
	s.Set(a, Single)

	if s.Get(b) != Single {
		t.Errorf("write from observer was lost")
	}
}

func TestSnapshotAtAndSorted(t *testing.T) {
	s := NewStore()
	pos := grid.Position{Beat: 2}
	s.Set(KeyOf(Note{G, 4}, pos), Single)
	s.Set(KeyOf(Note{C, 4}, pos), Combined)
	s.Set(KeyOf(Note{E, 4}, grid.Origin), Single)

	at := s.Snapshot().At(pos)
	if len(at) != 2 || at[0].Note != (Note{C, 4}) || at[1].Note != (Note{G, 4}) {
		t.Errorf("At(%v) = %v", pos, at)
	}

	sorted := s.Snapshot().Sorted()
	want := []string{"C4-0-2-0", "E4-0-0-0", "G4-0-2-0"}
	for i, k := range sorted {
		if k.String() != want[i] {
			t.Errorf("Sorted()[%d] = %s, want %s", i, k, want[i])
		}
	}
}

func TestRows(t *testing.T) {
	layout := RowLayout{Root: C, Scale: DefaultScale, BaseOctave: 4, Octaves: 1}
	rows := Rows(layout, NewStore().Snapshot())

	want := []string{"C5", "A4", "G4", "E4", "D4", "C4"}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(rows), len(want), rows)
	}
	for i, r := range rows {
		if r.Note.String() != want[i] {
			t.Errorf("row %d = %s, want %s", i, r.Note, want[i])
		}
	}
	if !rows[0].Root || !rows[len(rows)-1].Root {
		t.Errorf("first and last rows should be roots")
	}
}

func TestRowsShowActiveNonDiatonic(t *testing.T) {
	s := NewStore()
	s.Set(KeyOf(Note{Fs, 4}, grid.Origin), Single)

	layout := RowLayout{Root: C, Scale: DefaultScale, BaseOctave: 4, Octaves: 1}
	rows := Rows(layout, s.Snapshot())

	var found bool
	for _, r := range rows {
		if r.Note == (Note{Fs, 4}) {
			found = true
			if r.Diatonic {
				t.Errorf("F#4 marked diatonic in C pentatonic")
			}
			if r.Label != "F#/Gb4" {
				t.Errorf("label = %q", r.Label)
			}
		}
	}
	if !found {
		t.Errorf("row with active tiles was hidden")
	}

	layout.ShowNonDiatonic = true
	if got := len(Rows(layout, NewStore().Snapshot())); got != 13 {
		t.Errorf("chromatic octave has %d rows, want 13", got)
	}
}

func TestRowsFromNonCRoot(t *testing.T) {
	layout := RowLayout{Root: A, Scale: []int{0, 3, 5, 7, 10}, BaseOctave: 3, Octaves: 1}
	rows := Rows(layout, NewStore().Snapshot())

	if rows[len(rows)-1].Note != (Note{A, 3}) {
		t.Errorf("lowest row = %v, want A3", rows[len(rows)-1].Note)
	}
	if rows[0].Note != (Note{A, 4}) {
		t.Errorf("highest row = %v, want A4", rows[0].Note)
	}
	// C4 sits a minor third above A3 and must carry the next octave number
	var c4 bool
	for _, r := range rows {
		if r.Note == (Note{C, 4}) {
			c4 = true
		}
	}
	if !c4 {
		t.Errorf("missing C4 row in A minor pentatonic")
	}
}

func TestRowsStopAtMIDIRange(t *testing.T) {
	layout := RowLayout{Root: C, Scale: DefaultScale, BaseOctave: 8, Octaves: 2, ShowNonDiatonic: true}
	rows := Rows(layout, NewStore().Snapshot())

	if rows[0].Note != (Note{G, 9}) {
		t.Errorf("highest row = %v, want G9", rows[0].Note)
	}
	if got := len(rows); got != MaxMIDI-(Note{C, 8}).MIDI()+1 {
		t.Errorf("got %d rows from C8 to G9", got)
	}
	for _, r := range rows {
		if _, err := ParseNote(r.Note.Token()); err != nil {
			t.Errorf("row %s does not parse: %v", r.Label, err)
		}
	}
}

func TestScaleIndex(t *testing.T) {
	if i := ScaleIndex(DefaultScale); i < 0 || Scales[i].Name != "Pentatonic" {
		t.Errorf("ScaleIndex(default) = %d", i)
	}
	if ScaleIndex([]int{0, 1}) != -1 {
		t.Errorf("unknown scale should return -1")
	}
}

func MustKey(t *testing.T, note string, m, b, s int) Key {
	t.Helper()
	k, err := GetTileKey(note, m, b, s)
	if err != nil {
		t.Fatal(err)
	}
	return k
}
