package sequencer

import (
	"math"
	"time"

	"go-tiles/grid"
)

// SubdivisionOffset is how many subdivisions ahead of the grid tick notes
// are scheduled. The displayed step lags the clock position by the same
// amount.
const SubdivisionOffset = 1

// Timing is what the clock and engine need to turn grid steps into seconds
type Timing struct {
	Geometry grid.Geometry
	BPM      float64
}

// NoteLength is the duration of one subdivision in seconds, used for
// single notes and for the lookahead.
func (t Timing) NoteLength() float64 {
	return 60 / float64(t.Geometry.Subdivisions) / t.BPM
}

// Interval is the tick period in seconds. The 4/beats factor keeps the
// perceived tempo steady when beats per measure change.
func (t Timing) Interval() float64 {
	return t.NoteLength() * (4 / float64(t.Geometry.Beats))
}

// Lookahead is the scheduling offset added to every command
func (t Timing) Lookahead() float64 {
	return SubdivisionOffset * t.NoteLength()
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// SystemTime is the real monotonic clock
type SystemTime struct{}

func (SystemTime) Now() time.Time { return time.Now() }

// AudioClock measures audio time: seconds since the session epoch. Voices
// get absolute times on this clock and map them back with Time.
type AudioClock struct {
	src   TimeSource
	epoch time.Time
}

// NewAudioClock starts an audio clock at the current time of src
func NewAudioClock(src TimeSource) *AudioClock {
	if src == nil {
		src = SystemTime{}
	}
	return &AudioClock{src: src, epoch: src.Now()}
}

// Now returns the current audio time
func (c *AudioClock) Now() float64 {
	return c.Seconds(c.src.Now())
}

// Seconds converts a wall time to audio time
func (c *AudioClock) Seconds(t time.Time) float64 {
	return t.Sub(c.epoch).Seconds()
}

// Time converts audio time back to a wall time
func (c *AudioClock) Time(at float64) time.Time {
	return c.epoch.Add(seconds(at))
}

// Until returns the wall duration from now to audio time at
func (c *AudioClock) Until(at float64) time.Duration {
	return c.Time(at).Sub(c.src.Now())
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
