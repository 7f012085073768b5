package runner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/maauso/reelgraph/internal/graph"
)

// Static errors for pipeline runs.
var (
	// ErrEncodeFailed is matched by every *EncodeError.
	ErrEncodeFailed = errors.New("ffmpeg encode failed")
	// ErrNoInputs is returned when the builder has no input files.
	ErrNoInputs = graph.ErrNoInputs
)

// EncodeError reports a failed ffmpeg run with the arguments used and the
// end of its diagnostics.
type EncodeError struct {
	Args       []string
	StderrTail []string
	// ExitCode is -1 when the process never started or was killed.
	ExitCode int
	Err      error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ffmpeg error (exit %d): %v\nargs: %v\nstderr: %s",
		e.ExitCode, e.Err, e.Args, strings.Join(e.StderrTail, "\n"))
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrEncodeFailed.
func (e *EncodeError) Is(target error) bool {
	return target == ErrEncodeFailed
}
