package sequencer

import (
	"sync"
	"time"

	"go-tiles/debug"
	"go-tiles/grid"
)

// TickFunc receives each step. at is the scheduled audio time of the step,
// not the time the timer happened to fire.
type TickFunc func(t Timing, pos grid.Position, at float64)

// HaltFunc runs when a running clock stops or re-arms
type HaltFunc func(at float64)

// Clock advances the playhead on an absolute schedule: tick n after an arm
// fires at armAt + n*interval. Callbacks run under the clock mutex, so Stop
// and Refresh wait for a tick in flight.
type Clock struct {
	mu     sync.Mutex
	audio  *AudioClock
	timing Timing
	onTick TickFunc
	onHalt HaltFunc
	manual bool

	running bool
	pos     grid.Position
	armAt   float64
	n       int
	gen     uint64
	stop    chan struct{}
}

// NewClock creates a stopped clock. In manual mode no goroutine is started
// and steps only happen through Tick.
func NewClock(audio *AudioClock, t Timing, onTick TickFunc, onHalt HaltFunc, manual bool) *Clock {
	return &Clock{
		audio:  audio,
		timing: t,
		onTick: onTick,
		onHalt: onHalt,
		manual: manual,
		pos:    grid.Stopped,
	}
}

// Start rewinds to the origin and plays it at once
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.haltLocked()
	}
	c.running = true
	c.pos = grid.Origin
	c.armLocked()
	debug.Log("clock", "start bpm=%.1f interval=%.4fs", c.timing.BPM, c.timing.Interval())

	if c.onTick != nil {
		c.onTick(c.timing, c.pos, c.armAt)
	}
}

// Stop cancels playback and resets the position
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.haltLocked()
	c.running = false
	c.pos = grid.Stopped
	debug.Log("clock", "stop")
}

// Refresh applies new timing. A running clock re-arms from its current
// position, so the next step lands one new interval from now.
func (c *Clock) Refresh(t Timing) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.timing = t
	if !c.running {
		return
	}
	c.haltLocked()
	c.pos = t.Geometry.Normalize(c.pos)
	c.armLocked()
	debug.Log("clock", "refresh at %s bpm=%.1f interval=%.4fs", c.pos, t.BPM, t.Interval())
}

// Tick advances one step at the next deadline. It is how manual clocks
// move; it reports false when stopped.
func (c *Clock) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return false
	}
	c.stepLocked(false)
	return true
}

// Running reports whether the clock is playing
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Position returns the last resolved position, or grid.Stopped
func (c *Clock) Position() grid.Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Timing returns the current timing
func (c *Clock) Timing() Timing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timing
}

// NextDeadline is the audio time of the next step, or -1 when stopped
func (c *Clock) NextDeadline() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return -1
	}
	return c.deadlineLocked()
}

func (c *Clock) deadlineLocked() float64 {
	return c.armAt + float64(c.n+1)*c.timing.Interval()
}

func (c *Clock) armLocked() {
	c.armAt = c.audio.Now()
	c.n = 0
	c.gen++
	if c.manual {
		return
	}
	c.stop = make(chan struct{})
	go c.run(c.gen, c.stop)
}

func (c *Clock) haltLocked() {
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
	c.gen++
	if c.onHalt != nil {
		c.onHalt(c.audio.Now())
	}
}

// stepLocked fires the next scheduled tick. When the loop wakes more than
// an interval late the schedule is re-anchored instead of bursting through
// the missed steps.
func (c *Clock) stepLocked(live bool) {
	interval := c.timing.Interval()
	c.n++
	at := c.armAt + float64(c.n)*interval

	if live {
		if late := c.audio.Now() - at; late > interval {
			debug.Log("clock", "late by %.4fs, re-anchoring", late)
			c.armAt = c.audio.Now()
			c.n = 0
			at = c.armAt
		}
	}

	c.pos = c.timing.Geometry.Increment(c.pos)
	if c.onTick != nil {
		c.onTick(c.timing, c.pos, at)
	}
}

func (c *Clock) run(gen uint64, stop <-chan struct{}) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		wait := c.audio.Until(c.deadlineLocked())
		c.mu.Unlock()

		timer.Reset(max(wait, 0))
		select {
		case <-stop:
			return
		case <-timer.C:
		}

		c.mu.Lock()
		if c.gen == gen && c.running {
			c.stepLocked(true)
		}
		c.mu.Unlock()
	}
}
