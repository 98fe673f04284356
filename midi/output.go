package midi

import (
	"context"
	"math"
	"slices"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"

	"go-tiles/debug"
	"go-tiles/sequencer"
	"go-tiles/tiles"
)

// Sender writes one message to a port
type Sender func(gomidi.Message) error

// Output plays engine commands on a MIDI port. Commands carry audio times;
// they wait in a time-ordered queue until Run sends them.
type Output struct {
	name    string
	send    Sender
	clock   *sequencer.AudioClock
	channel uint8

	mu    sync.Mutex
	queue eventQueue
	seq   uint64
	held  map[uint8]int // note -> unmatched note-ons sent
	wake  chan struct{}
}

// NewOutput creates an output on channel 1-16. Out-of-range channels use 1.
func NewOutput(name string, send Sender, clock *sequencer.AudioClock, channel int) *Output {
	if channel < 1 || channel > 16 {
		channel = 1
	}
	return &Output{
		name:    name,
		send:    send,
		clock:   clock,
		channel: uint8(channel - 1),
		held:    make(map[uint8]int),
		wake:    make(chan struct{}, 1),
	}
}

// Name returns the port name
func (o *Output) Name() string {
	return o.name
}

// Attack queues a note-on
func (o *Output) Attack(note tiles.Note, at, velocity float64) {
	key, ok := midiKey(note)
	if !ok {
		return
	}
	o.enqueue(Event{Type: NoteOn, Note: key, Velocity: midiVelocity(velocity), At: o.clock.Time(at)})
}

// Release queues a note-off
func (o *Output) Release(note tiles.Note, at float64) {
	key, ok := midiKey(note)
	if !ok {
		return
	}
	o.enqueue(Event{Type: NoteOff, Note: key, At: o.clock.Time(at)})
}

// AttackRelease queues a note-on and its note-off duration seconds later
func (o *Output) AttackRelease(note tiles.Note, duration, at, velocity float64) {
	key, ok := midiKey(note)
	if !ok {
		return
	}
	o.enqueue(
		Event{Type: NoteOn, Note: key, Velocity: midiVelocity(velocity), At: o.clock.Time(at)},
		Event{Type: NoteOff, Note: key, At: o.clock.Time(at + duration)},
	)
}

func (o *Output) enqueue(events ...Event) {
	o.mu.Lock()
	for _, e := range events {
		o.seq++
		e.seq = o.seq
		o.queue.push(e)
	}
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued events
func (o *Output) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.queue.Len()
}

// Run sends queued events at their times until ctx is done, then silences
// every held note.
func (o *Output) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		o.flush(time.Now())

		wait := time.Hour
		o.mu.Lock()
		if next, ok := o.queue.peek(); ok {
			wait = max(time.Until(next.At), 0)
		}
		o.mu.Unlock()

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			o.Panic()
			return
		case <-o.wake:
		case <-timer.C:
		}
	}
}

// flush sends every event due at or before now, in order
func (o *Output) flush(now time.Time) int {
	sent := 0
	for {
		o.mu.Lock()
		next, ok := o.queue.peek()
		if !ok || next.At.After(now) {
			o.mu.Unlock()
			return sent
		}
		e := o.queue.pop()
		o.track(e)
		o.mu.Unlock()

		o.write(e)
		sent++
	}
}

// track expects o.mu held
func (o *Output) track(e Event) {
	switch e.Type {
	case NoteOn:
		o.held[e.Note]++
	case NoteOff:
		if o.held[e.Note] > 1 {
			o.held[e.Note]--
		} else {
			delete(o.held, e.Note)
		}
	}
}

func (o *Output) write(e Event) {
	var msg gomidi.Message
	switch e.Type {
	case NoteOn:
		msg = gomidi.NoteOn(o.channel, e.Note, e.Velocity)
	case NoteOff:
		msg = gomidi.NoteOff(o.channel, e.Note)
	case CC:
		msg = gomidi.ControlChange(o.channel, e.Note, e.Velocity)
	default:
		return
	}
	if err := o.send(msg); err != nil {
		debug.Log("midi", "send to %s failed: %v", o.name, err)
		return
	}
	debug.Log("midi", "port=%s ch=%d %s", o.name, o.channel+1, msg)
}

// Panic drops everything queued, sends note-off for each held note and
// all-notes-off on the channel.
func (o *Output) Panic() {
	o.mu.Lock()
	o.queue = o.queue[:0]
	var notes []uint8
	for n := range o.held {
		notes = append(notes, n)
	}
	clear(o.held)
	o.mu.Unlock()
	slices.Sort(notes)

	for _, n := range notes {
		o.write(Event{Type: NoteOff, Note: n})
	}
	o.write(Event{Type: CC, Note: 123})
}

func midiKey(n tiles.Note) (uint8, bool) {
	m := n.MIDI()
	if m < 0 || m > 127 {
		return 0, false
	}
	return uint8(m), true
}

// midiVelocity maps 0..1 to 1..127. A note-on never carries velocity 0,
// which receivers read as note-off.
func midiVelocity(v float64) uint8 {
	if math.IsNaN(v) {
		return 1
	}
	return uint8(math.Min(math.Max(math.Round(v*127), 1), 127))
}
