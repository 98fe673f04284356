package midi

import (
	"cmp"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"go-tiles/sequencer"
)

// TicksPerQuarter is the SMF time resolution
const TicksPerQuarter = 960

type smfEvent struct {
	tick uint32
	msg  gomidi.Message
}

// WriteSMF writes rendered commands as a format 1 Standard MIDI File: a
// tempo track and one note track on channel (1-16). Command times are
// seconds at bpm; offset is subtracted first so the lookahead does not
// become a leading rest.
func WriteSMF(w io.Writer, cmds []sequencer.Command, bpm float64, channel int, offset float64) error {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	ch := uint8(channel - 1)
	toTick := func(at float64) uint32 {
		beats := max(at-offset, 0) * bpm / 60
		return uint32(math.Round(beats * TicksPerQuarter))
	}

	var events []smfEvent
	for _, c := range cmds {
		key, ok := midiKey(c.Note)
		if !ok {
			continue
		}
		switch c.Kind {
		case sequencer.CmdAttack:
			events = append(events, smfEvent{toTick(c.At), gomidi.NoteOn(ch, key, midiVelocity(c.Velocity))})
		case sequencer.CmdRelease:
			events = append(events, smfEvent{toTick(c.At), gomidi.NoteOff(ch, key)})
		case sequencer.CmdAttackRelease:
			events = append(events,
				smfEvent{toTick(c.At), gomidi.NoteOn(ch, key, midiVelocity(c.Velocity))},
				smfEvent{toTick(c.At + c.Duration), gomidi.NoteOff(ch, key)})
		}
	}
	slices.SortStableFunc(events, func(a, b smfEvent) int {
		return cmp.Compare(a.tick, b.tick)
	})

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(0)
	if err := sm.Add(tempo); err != nil {
		return fault.Wrap(err, fmsg.With("add tempo track"))
	}

	var notes smf.Track
	var last uint32
	for _, e := range events {
		notes.Add(e.tick-last, e.msg)
		last = e.tick
	}
	notes.Close(0)
	if err := sm.Add(notes); err != nil {
		return fault.Wrap(err, fmsg.With("add note track"))
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("write midi file", "Could not write the MIDI file."))
	}
	return nil
}

// WriteSMFFile writes the commands to a new MIDI file at path
func WriteSMFFile(path string, cmds []sequencer.Command, bpm float64, channel int, offset float64) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fault.Wrap(err, fmsg.WithDesc("create midi file", fmt.Sprintf("Could not create %s", path)))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fault.Wrap(cerr, fmsg.WithDesc("close midi file", fmt.Sprintf("Could not finish writing %s", path)))
		}
	}()

	return WriteSMF(f, cmds, bpm, channel, offset)
}
