package midi

import (
	"container/heap"
	"time"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Event is one message waiting for its send time
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Note     uint8 // key, or controller number for CC
	Velocity uint8 // velocity, or value for CC
	At       time.Time

	seq uint64 // insertion order, breaks ties between equal times
}

// eventQueue is a min-heap ordered by send time. Events at the same time
// leave in the order they were queued.
type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].At.Equal(q[j].At) {
		return q[i].seq < q[j].seq
	}
	return q[i].At.Before(q[j].At)
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(Event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	*q = old[:n-1]
	return e
}

func (q *eventQueue) push(e Event) { heap.Push(q, e) }

func (q *eventQueue) pop() Event { return heap.Pop(q).(Event) }

func (q eventQueue) peek() (Event, bool) {
	if len(q) == 0 {
		return Event{}, false
	}
	return q[0], true
}
