package sequencer

import (
	"fmt"

	"go-tiles/debug"
	"go-tiles/tiles"
)

// Voice is the instrument the engine plays. Times are seconds on the
// session's AudioClock; velocity is 0..1.
type Voice interface {
	Attack(note tiles.Note, at, velocity float64)
	Release(note tiles.Note, at float64)
	AttackRelease(note tiles.Note, duration, at, velocity float64)
}

// CommandKind distinguishes the three voice calls
type CommandKind int

const (
	CmdAttack CommandKind = iota
	CmdRelease
	CmdAttackRelease
)

func (k CommandKind) String() string {
	switch k {
	case CmdAttack:
		return "attack"
	case CmdRelease:
		return "release"
	case CmdAttackRelease:
		return "attackRelease"
	}
	return fmt.Sprintf("cmd(%d)", int(k))
}

// Command is one call made on a Voice
type Command struct {
	Kind     CommandKind
	Note     tiles.Note
	At       float64
	Duration float64 // attackRelease only
	Velocity float64 // attack and attackRelease
}

func (c Command) String() string {
	switch c.Kind {
	case CmdRelease:
		return fmt.Sprintf("release(%s @%.3f)", c.Note, c.At)
	case CmdAttackRelease:
		return fmt.Sprintf("attackRelease(%s %.3fs @%.3f v=%.3f)", c.Note, c.Duration, c.At, c.Velocity)
	}
	return fmt.Sprintf("%s(%s @%.3f v=%.3f)", c.Kind, c.Note, c.At, c.Velocity)
}

// Apply performs the command on v
func (c Command) Apply(v Voice) {
	switch c.Kind {
	case CmdAttack:
		v.Attack(c.Note, c.At, c.Velocity)
	case CmdRelease:
		v.Release(c.Note, c.At)
	case CmdAttackRelease:
		v.AttackRelease(c.Note, c.Duration, c.At, c.Velocity)
	}
}

// LogVoice writes every command to the debug log. Useful when no MIDI
// output is configured.
type LogVoice struct{}

func (LogVoice) Attack(note tiles.Note, at, velocity float64) {
	debug.Log("voice", "%s", Command{Kind: CmdAttack, Note: note, At: at, Velocity: velocity})
}

func (LogVoice) Release(note tiles.Note, at float64) {
	debug.Log("voice", "%s", Command{Kind: CmdRelease, Note: note, At: at})
}

func (LogVoice) AttackRelease(note tiles.Note, duration, at, velocity float64) {
	debug.Log("voice", "%s", Command{Kind: CmdAttackRelease, Note: note, At: at, Duration: duration, Velocity: velocity})
}
