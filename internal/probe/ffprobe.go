package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// FFprobe implements Prober using the ffprobe CLI.
type FFprobe struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFprobe creates a new FFprobe.
// If ffprobePath is empty, it defaults to "ffprobe" (found via PATH).
func NewFFprobe(ffprobePath string) *FFprobe {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobe{ffprobePath: ffprobePath}
}

// Verify interface implementation at compile time.
var _ Prober = (*FFprobe)(nil)

// Probe runs a single ffprobe JSON call against path.
func (p *FFprobe) Probe(ctx context.Context, path string) (*Result, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %s: %w, stderr: %s", ErrProbeFailed, path, err, strings.TrimSpace(stderr.String()))
	}

	res, err := ParseJSON(stdout.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// Resolution returns the size of the primary video stream.
func (p *FFprobe) Resolution(ctx context.Context, path string) (Resolution, error) {
	res, err := p.Probe(ctx, path)
	if err != nil {
		return Resolution{}, err
	}
	return res.Resolution, nil
}

// Duration returns the duration of a media file in seconds.
func (p *FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	res, err := p.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	d, err := res.DurationSeconds()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// HasAudioTrack reports whether the file has at least one audio stream.
func (p *FFprobe) HasAudioTrack(ctx context.Context, path string) (bool, error) {
	res, err := p.Probe(ctx, path)
	if err != nil {
		return false, err
	}
	return res.HasAudio, nil
}

// ReadTags returns the embedded metadata tags of a media file.
func (p *FFprobe) ReadTags(ctx context.Context, path string) (map[string]string, error) {
	res, err := p.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return res.Tags, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string            `json:"duration"`
	Tags     map[string]string `json:"tags"`
}

type ffprobeStream struct {
	CodecType   string            `json:"codec_type"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Duration    string            `json:"duration"`
	Disposition map[string]int    `json:"disposition"`
	Tags        map[string]string `json:"tags"`
}

// ParseJSON converts raw ffprobe JSON output into a Result.
// Exported for testing without a real ffprobe binary.
func ParseJSON(data []byte) (*Result, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe JSON: %w", ErrProbeFailed, err)
	}

	res := &Result{Tags: make(map[string]string)}
	foundVideo := false
	streamDuration := math.NaN()

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 || foundVideo {
				continue
			}
			res.Resolution = Resolution{Width: s.Width, Height: s.Height}
			foundVideo = true
		case "audio":
			res.HasAudio = true
		default:
			continue
		}
		if d, ok := parseDuration(s.Duration); ok && (math.IsNaN(streamDuration) || d > streamDuration) {
			streamDuration = d
		}
		for k, v := range s.Tags {
			res.Tags[strings.ToLower(k)] = v
		}
	}

	for k, v := range raw.Format.Tags {
		res.Tags[strings.ToLower(k)] = v
	}

	if !foundVideo || res.Resolution.Width <= 0 || res.Resolution.Height <= 0 {
		return nil, fmt.Errorf("%w: no usable video stream", ErrProbeFailed)
	}

	if d, ok := parseDuration(raw.Format.Duration); ok {
		res.Duration, res.HasDuration = d, true
	} else if !math.IsNaN(streamDuration) {
		res.Duration, res.HasDuration = streamDuration, true
	}

	return res, nil
}

// parseDuration accepts ffprobe's decimal seconds and rejects "N/A",
// negative and non-finite values.
func parseDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil || d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, false
	}
	return d, true
}
