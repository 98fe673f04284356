package config

import (
	"math"
	"slices"
)

// Sanitize clamps every field into its valid range. The playback core
// assumes these bounds and never re-checks them.
func (s *SequencerConfig) Sanitize() {
	s.Measures = ClampLength(s.Measures)
	s.Beats = ClampLength(s.Beats)
	s.Subdivisions = ClampLength(s.Subdivisions)
	s.BPM = ClampBPM(s.BPM)
	s.Velocity = ClampVelocity(s.Velocity)
	s.Octaves = ClampOctaves(s.Octaves)
	s.BaseOctave = ClampBaseOctave(s.BaseOctave)

	if s.RootNote == "" {
		s.RootNote = "C"
	}
	s.Scale = SanitizeScale(s.Scale)

	if s.EditMode != EditSingle && s.EditMode != EditCombined {
		s.EditMode = EditSingle
	}
}

// ClampLength clamps a measures/beats/subdivisions count
func ClampLength(n int) int {
	return clampInt(n, MinLength, MaxLength)
}

// ClampBPM clamps tempo; NaN falls back to the default
func ClampBPM(bpm float64) float64 {
	if math.IsNaN(bpm) {
		return DefaultSequencer().BPM
	}
	return math.Min(math.Max(bpm, MinBPM), MaxBPM)
}

// ClampVelocity clamps velocity into 0..1; NaN falls back to the default
func ClampVelocity(v float64) float64 {
	if math.IsNaN(v) {
		return DefaultSequencer().Velocity
	}
	return math.Min(math.Max(v, 0), 1)
}

// ClampOctaves clamps the octave span
func ClampOctaves(n int) int {
	return clampInt(n, MinOctaves, MaxOctaves)
}

// ClampBaseOctave clamps the lowest octave
func ClampBaseOctave(n int) int {
	return clampInt(n, MinBaseOctave, MaxBaseOctave)
}

// SanitizeScale keeps offsets in 0..11, sorted and unique, and always
// includes the root. An empty scale becomes the default.
func SanitizeScale(scale []int) []int {
	var out []int
	for _, v := range scale {
		if v >= 0 && v < 12 {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return slices.Clone(DefaultSequencer().Scale)
	}
	if !slices.Contains(out, 0) {
		out = append(out, 0)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
