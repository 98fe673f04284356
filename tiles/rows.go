package tiles

import (
	"slices"
	"strconv"
)

// NamedScale is a scale offered in the scale selector
type NamedScale struct {
	Name  string
	Steps []int
}

// DefaultScale is the major pentatonic
var DefaultScale = []int{0, 2, 4, 7, 9}

// Scales lists the selectable scales as semitone offsets from the root
var Scales = []NamedScale{
	{"Ionian (Major)", []int{0, 2, 4, 5, 7, 9, 11}},
	{"Dorian", []int{0, 2, 3, 5, 7, 9, 10}},
	{"Phrygian", []int{0, 1, 3, 5, 7, 8, 10}},
	{"Lydian", []int{0, 2, 4, 6, 7, 9, 11}},
	{"Mixolydian", []int{0, 2, 4, 5, 7, 9, 10}},
	{"Aeolian (Natural Minor)", []int{0, 2, 3, 5, 7, 8, 10}},
	{"Locrian", []int{0, 1, 3, 5, 6, 8, 10}},
	{"Pentatonic", []int{0, 2, 4, 7, 9}},
	{"Minor Pentatonic", []int{0, 3, 5, 7, 10}},
	{"Blues", []int{0, 3, 5, 6, 7, 10}},
	{"Melodic minor, Mode 1", []int{0, 2, 3, 5, 7, 9, 11}},
	{"Melodic minor, Mode 2", []int{0, 1, 3, 5, 7, 9, 10}},
	{"Melodic minor, Mode 3", []int{0, 2, 4, 6, 8, 9, 11}},
	{"Melodic minor, Mode 4", []int{0, 2, 4, 6, 7, 9, 10}},
	{"Melodic minor, Mode 5", []int{0, 2, 4, 5, 7, 8, 10}},
	{"Melodic minor, Mode 6", []int{0, 2, 3, 5, 6, 8, 10}},
	{"Melodic minor, Mode 7", []int{0, 1, 3, 4, 6, 8, 10}},
	{"Whole Tone", []int{0, 2, 4, 6, 8, 10}},
	{"Octatonic", []int{0, 1, 3, 4, 6, 7, 9, 10}},
	{"Messiaen Mode 3", []int{0, 2, 3, 4, 6, 7, 8, 10, 11}},
	{"Messiaen Mode 4", []int{0, 1, 2, 5, 6, 7, 8, 11}},
	{"Messiaen Mode 5", []int{0, 1, 5, 6, 7, 11}},
	{"Messiaen Mode 6", []int{0, 2, 4, 5, 6, 8, 10, 11}},
	{"Messiaen Mode 7", []int{0, 1, 2, 3, 5, 6, 7, 8, 9, 11}},
}

// ScaleIndex returns the index of steps in Scales, or -1
func ScaleIndex(steps []int) int {
	return slices.IndexFunc(Scales, func(s NamedScale) bool {
		return slices.Equal(s.Steps, steps)
	})
}

// Row is one note row of the grid
type Row struct {
	Note     Note
	Label    string // "C#/Db4"
	Diatonic bool
	Root     bool
}

// RowLayout describes which rows the grid shows
type RowLayout struct {
	Root            PitchClass
	Scale           []int
	BaseOctave      int
	Octaves         int
	ShowNonDiatonic bool
}

// Rows lists the grid rows from highest to lowest pitch. It walks Octaves
// octaves up from Root in BaseOctave and closes with the root of the next
// octave. Rows above MaxMIDI are left out. Non-diatonic rows are kept
// only when ShowNonDiatonic is set or the snapshot already has tiles in
// that pitch class.
func Rows(layout RowLayout, snap Snapshot) []Row {
	active := snap.Classes()
	start := Note{Class: layout.Root, Octave: layout.BaseOctave}.MIDI()

	var rows []Row
	for i := 0; i < layout.Octaves*12 && start+i <= MaxMIDI; i++ {
		n := NoteFromMIDI(start + i)
		diatonic := slices.Contains(layout.Scale, i%12)
		if !layout.ShowNonDiatonic && !diatonic && !active[n.Class] {
			continue
		}
		rows = append(rows, Row{
			Note:     n,
			Label:    rowLabel(n),
			Diatonic: diatonic,
			Root:     i%12 == 0,
		})
	}
	if top := start + layout.Octaves*12; top <= MaxMIDI {
		n := NoteFromMIDI(top)
		rows = append(rows, Row{Note: n, Label: rowLabel(n), Diatonic: true, Root: true})
	}

	slices.Reverse(rows)
	return rows
}

func rowLabel(n Note) string {
	return n.Class.Label() + strconv.Itoa(n.Octave)
}
