package tiles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"github.com/Southclaws/fault/ftag"
)

// PitchClass is a semitone within the octave, C = 0
type PitchClass int

const (
	C PitchClass = iota
	Cs
	D
	Ds
	E
	F
	Fs
	G
	Gs
	A
	As
	B
)

var (
	// display spelling, sharps only
	classNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	// ASCII-safe spelling used in tile keys
	classTokens = [12]string{"C", "Cs", "D", "Ds", "E", "F", "Fs", "G", "Gs", "A", "As", "B"}
	// selector labels, both spellings
	classLabels = [12]string{"C", "C#/Db", "D", "D#/Eb", "E", "F", "F#/Gb", "G", "G#/Ab", "A", "A#/Bb", "B"}

	letterClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
)

func (pc PitchClass) String() string { return classNames[pc.norm()] }

// Token returns the ASCII-safe spelling used in tile keys ("Cs")
func (pc PitchClass) Token() string { return classTokens[pc.norm()] }

// Label returns both enharmonic spellings ("C#/Db")
func (pc PitchClass) Label() string { return classLabels[pc.norm()] }

func (pc PitchClass) norm() int {
	v := int(pc) % 12
	if v < 0 {
		v += 12
	}
	return v
}

// ParsePitchClass accepts "C#", "Cs", "Db" or a label such as "C#/Db"
func ParsePitchClass(s string) (PitchClass, error) {
	offset, err := parseSpelling(s)
	if err != nil {
		return 0, err
	}
	return PitchClass((offset%12 + 12) % 12), nil
}

// Note is a pitch class in a given octave. Octave 4 holds middle C.
type Note struct {
	Class  PitchClass
	Octave int
}

// MaxMIDI is the highest note a key may name (G9)
const MaxMIDI = 127

// NoteFromMIDI converts a MIDI note number (C4 = 60) to a Note
func NoteFromMIDI(n int) Note {
	oct := n/12 - 1
	pc := n % 12
	if pc < 0 {
		pc += 12
		oct--
	}
	return Note{Class: PitchClass(pc), Octave: oct}
}

// MIDI returns the MIDI note number, C4 = 60
func (n Note) MIDI() int {
	return (n.Octave+1)*12 + int(n.Class)
}

// String returns the display name, e.g. "C#4"
func (n Note) String() string {
	return n.Class.String() + strconv.Itoa(n.Octave)
}

// Token returns the ASCII-safe name used in tile keys, e.g. "Cs4"
func (n Note) Token() string {
	return n.Class.Token() + strconv.Itoa(n.Octave)
}

// ParseNote parses a note name with octave. Sharps may be written as '#'
// or 's', flats as 'b', and a "C#/Db4" label uses its first spelling.
// Enharmonic spellings resolve to the same Note, across octave boundaries
// too ("B#3" is "C4").
func ParseNote(s string) (Note, error) {
	s = strings.TrimSpace(s)

	// octave is the trailing integer, possibly negative
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i > 0 && s[i-1] == '-' {
		i--
	}
	if i == len(s) || i == 0 {
		return Note{}, invalidNote(s)
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil {
		return Note{}, invalidNote(s)
	}

	offset, err := parseSpelling(s[:i])
	if err != nil {
		return Note{}, invalidNote(s)
	}

	midi := (octave+1)*12 + offset
	if midi < 0 || midi > MaxMIDI {
		return Note{}, fault.New(fmt.Sprintf("note %q outside MIDI range", s),
			ftag.With(ftag.InvalidArgument),
			fmsg.WithDesc("note out of range", fmt.Sprintf("%s is outside the playable range", s)))
	}
	return NoteFromMIDI(midi), nil
}

// MustParseNote is ParseNote for literals known to be valid
func MustParseNote(s string) Note {
	n, err := ParseNote(s)
	if err != nil {
		panic(err)
	}
	return n
}

// parseSpelling returns the semitone offset of a letter plus accidentals
// relative to C of the same octave (so "Cb" is -1).
func parseSpelling(s string) (int, error) {
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		s = s[:slash]
	}
	if s == "" {
		return 0, invalidNote(s)
	}
	base, ok := letterClasses[upper(s[0])]
	if !ok {
		return 0, invalidNote(s)
	}
	for _, c := range []byte(s[1:]) {
		switch c {
		case '#', 's':
			base++
		case 'b':
			base--
		default:
			return 0, invalidNote(s)
		}
	}
	return base, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func invalidNote(s string) error {
	return fault.New(fmt.Sprintf("invalid note name %q", s),
		ftag.With(ftag.InvalidArgument),
		fmsg.WithDesc("invalid note name", fmt.Sprintf("%q is not a note name", s)))
}
