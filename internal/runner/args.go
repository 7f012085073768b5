package runner

import (
	"strconv"

	"github.com/maauso/reelgraph/internal/graph"
	"github.com/maauso/reelgraph/internal/metadata"
)

// Args returns the ffmpeg arguments that would render the builder's
// current graph to output. It does not consume the builder.
func (r *Runner) Args(b *graph.Builder, output string, tags metadata.Tags) ([]string, error) {
	plan, err := b.Plan()
	if err != nil {
		return nil, err
	}
	if len(plan.Inputs) == 0 {
		return nil, ErrNoInputs
	}
	return r.PlanArgs(plan, output, tags), nil
}

// PlanArgs renders the ffmpeg arguments for a finalized plan.
func (r *Runner) PlanArgs(plan graph.Plan, output string, tags metadata.Tags) []string {
	cfg := r.cfg
	args := []string{"-y", "-hide_banner", "-nostdin"}
	for _, in := range plan.Inputs {
		args = append(args, "-i", in)
	}

	args = append(args,
		"-filter_complex", plan.FilterComplex,
		"-map", plan.Video.Ref(),
		"-map", plan.Audio.Ref(),
		"-c:v", "libx264",
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-pix_fmt", cfg.PixelFormat,
		"-r", strconv.Itoa(cfg.FrameRate),
		"-c:a", "aac",
		"-b:a", cfg.AudioBitrate,
		"-ar", strconv.Itoa(cfg.SampleRate),
	)
	if plan.Shortest {
		args = append(args, "-shortest")
	}
	args = append(args, tags.Args()...)
	// use_metadata_tags keeps custom keys in the mp4 udta box.
	args = append(args, "-movflags", "+faststart+use_metadata_tags")
	if r.wantProgress() {
		args = append(args, "-progress", "pipe:1", "-nostats")
	}
	return append(args, output)
}
