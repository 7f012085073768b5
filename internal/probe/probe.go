// Package probe provides media introspection through ffprobe.
package probe

import (
	"context"
	"errors"
)

// Static errors for probe operations.
var (
	// ErrProbeFailed is returned when ffprobe fails or its output cannot be parsed.
	ErrProbeFailed = errors.New("probe failed")
	// ErrDurationUnavailable is returned when a file reports no usable duration.
	// It is distinct from a zero duration so callers never assume zero.
	ErrDurationUnavailable = errors.New("duration unavailable")
)

// Resolution is the pixel size of a video stream.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Result holds everything learned from a single ffprobe call.
type Result struct {
	// Resolution is the size of the first non-attached-picture video stream.
	Resolution Resolution `json:"resolution"`
	// Duration is the container duration in seconds. Only meaningful when
	// HasDuration is true.
	Duration float64 `json:"duration"`
	// HasDuration reports whether ffprobe returned a usable duration.
	HasDuration bool `json:"has_duration"`
	// HasAudio reports whether the file contains at least one audio stream.
	HasAudio bool `json:"has_audio"`
	// Tags holds format and stream tags with lower-cased keys.
	// Format tags win over stream tags of the same key.
	Tags map[string]string `json:"tags"`
}

// DurationSeconds returns the duration or ErrDurationUnavailable.
func (r *Result) DurationSeconds() (float64, error) {
	if !r.HasDuration {
		return 0, ErrDurationUnavailable
	}
	return r.Duration, nil
}

// Prober defines the interface for media introspection.
type Prober interface {
	// Probe inspects the file at path and returns its stream summary.
	Probe(ctx context.Context, path string) (*Result, error)
}
