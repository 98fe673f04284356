package sequencer

import "math"

// ShapeVelocity attenuates base by pitch: high notes sound louder at equal
// gain, so velocity drops along a quarter sine over the MIDI range while
// low notes keep the full value.
func ShapeVelocity(base float64, pitch int) float64 {
	x := float64(pitch) / 127
	return base - base*math.Sin(x*math.Pi/2)
}
