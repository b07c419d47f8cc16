package project

import "math"

// Millis is a duration offset on the timeline, in milliseconds. Values may
// carry a fractional part during interactive editing; they are rounded to
// whole milliseconds by SanitizeForTransport before crossing the engine
// boundary, which only accepts integral timestamps.
type Millis float64

// FromSeconds converts a second-denominated value to Millis.
func FromSeconds(sec float64) Millis {
	return Millis(sec * 1000)
}

// Seconds returns the value in seconds.
func (m Millis) Seconds() float64 {
	return float64(m) / 1000
}

// Round returns the value rounded to the nearest whole millisecond.
func (m Millis) Round() Millis {
	return Millis(math.Round(float64(m)))
}

// Int64 returns the value rounded to the nearest whole millisecond as an
// integer, the form the render engine consumes.
func (m Millis) Int64() int64 {
	return int64(math.Round(float64(m)))
}

// Clamp constrains the value to [lo, hi].
func (m Millis) Clamp(lo, hi Millis) Millis {
	if m < lo {
		return lo
	}
	if m > hi {
		return hi
	}
	return m
}
