package graph

import (
	"math"
	"strconv"
)

// Duration is a length in seconds that may be unknown.
// Unknown is never coerced to zero: arithmetic with an unknown operand
// yields unknown.
type Duration struct {
	seconds float64
	known   bool
}

// Unknown is the duration of a stream whose length could not be determined.
var Unknown = Duration{}

// Seconds returns a known duration.
func Seconds(s float64) Duration {
	return Duration{seconds: s, known: true}
}

// Value returns the seconds and whether they are known.
func (d Duration) Value() (float64, bool) {
	return d.seconds, d.known
}

// Known reports whether the duration is known.
func (d Duration) Known() bool { return d.known }

// Add returns d+o, unknown if either side is unknown.
func (d Duration) Add(o Duration) Duration {
	if !d.known || !o.known {
		return Unknown
	}
	return Seconds(d.seconds + o.seconds)
}

// Mul scales the duration by f.
func (d Duration) Mul(f float64) Duration {
	if !d.known {
		return Unknown
	}
	return Seconds(d.seconds * f)
}

// Div divides the duration by f.
func (d Duration) Div(f float64) Duration {
	if !d.known {
		return Unknown
	}
	return Seconds(d.seconds / f)
}

// Min caps a known duration at s. An unknown duration stays unknown.
func (d Duration) Min(s float64) Duration {
	if !d.known {
		return Unknown
	}
	return Seconds(math.Min(d.seconds, s))
}

func (d Duration) String() string {
	if !d.known {
		return "unknown"
	}
	return strconv.FormatFloat(d.seconds, 'f', -1, 64) + "s"
}
