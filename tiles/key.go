package tiles

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/ftag"

	"go-tiles/grid"
)

// State is the selection state of one tile. The numeric values are part of
// the share format.
type State uint8

const (
	None     State = iota // unselected
	Single                // one short hit
	Combined              // part of a legato run
)

func (s State) String() string {
	switch s {
	case None:
		return "none"
	case Single:
		return "single"
	case Combined:
		return "combined"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Valid reports whether s is one of the known states
func (s State) Valid() bool {
	return s <= Combined
}

// Key identifies one cell of one note row
type Key struct {
	Note Note
	Pos  grid.Position
}

// KeyOf builds the key for note at pos
func KeyOf(n Note, pos grid.Position) Key {
	return Key{Note: n, Pos: pos}
}

// GetTileKey canonicalizes the note spelling and builds the key. Any
// enharmonic spelling of the same pitch yields the same key.
func GetTileKey(note string, measure, beat, subdivision int) (Key, error) {
	n, err := ParseNote(note)
	if err != nil {
		return Key{}, err
	}
	return Key{Note: n, Pos: grid.Position{Measure: measure, Beat: beat, Subdivision: subdivision}}, nil
}

// String renders the wire form, e.g. "Cs4-0-1-0"
func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%d-%d", k.Note.Token(), k.Pos.Measure, k.Pos.Beat, k.Pos.Subdivision)
}

// ParseKey parses the wire form. Both "Cs4-0-1-0" and "C#4-0-1-0" are accepted.
func ParseKey(s string) (Key, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 4 {
		return Key{}, invalidKey(s)
	}
	// the note may itself contain '-' for octave -1
	n := len(parts)
	note, err := ParseNote(strings.Join(parts[:n-3], "-"))
	if err != nil {
		return Key{}, fault.Wrap(err, ftag.With(ftag.InvalidArgument))
	}

	var coords [3]int
	for i, p := range parts[n-3:] {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return Key{}, invalidKey(s)
		}
		coords[i] = v
	}
	return Key{Note: note, Pos: grid.Position{Measure: coords[0], Beat: coords[1], Subdivision: coords[2]}}, nil
}

func invalidKey(s string) error {
	return fault.New(fmt.Sprintf("invalid tile key %q", s), ftag.With(ftag.InvalidArgument))
}
