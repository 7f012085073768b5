package scenario

import (
	"context"
	"fmt"

	"github.com/maauso/reelgraph/internal/graph"
)

// Factory creates an empty builder. master selects whether it may absorb
// other builders.
type Factory func(master bool) *graph.Builder

// Apply builds the main source and every nested source, runs the steps in
// order and returns the builder ready to render.
func Apply(ctx context.Context, sc *Scenario, factory Factory) (*graph.Builder, error) {
	b, err := build(ctx, sc.Main, factory, true)
	if err != nil {
		return nil, fmt.Errorf("main %s: %w", sc.Main.Path, err)
	}
	return b, nil
}

func build(ctx context.Context, src Source, factory Factory, master bool) (*graph.Builder, error) {
	b := factory(master || src.merges())
	if err := b.Init(ctx, src.Path); err != nil {
		return nil, err
	}
	for i, step := range src.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := applyStep(ctx, b, step, factory); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Kind(), err)
		}
	}
	return b, nil
}

func applyStep(ctx context.Context, b *graph.Builder, step Step, factory Factory) error {
	switch {
	case step.Rotate != nil:
		scale := 1.0
		if step.Rotate.Scale != nil {
			scale = *step.Rotate.Scale
		}
		return b.Rotate(step.Rotate.Degrees, scale)

	case step.Color != nil:
		return b.ColorCorrect(colorOptions(step.Color)...)

	case step.Hue != nil:
		saturation := 1.0
		if step.Hue.Saturation != nil {
			saturation = *step.Hue.Saturation
		}
		return b.HueAdjust(step.Hue.Degrees, saturation)

	case step.Blur != nil:
		power := step.Blur.Power
		if power == 0 {
			power = 1
		}
		return b.BoxBlur(step.Blur.Radius, power)

	case step.Red != nil:
		return b.MakeItRed(step.Red.Intensity)

	case step.Trim != nil:
		return b.TrimVideo(step.Trim.Start, step.Trim.End)

	case step.Speed != nil:
		return b.ChangeSpeed(step.Speed.Factor)

	case step.Overlay != nil:
		o := step.Overlay
		other, err := build(ctx, o.Source, factory, false)
		if err != nil {
			return fmt.Errorf("overlay %s: %w", o.Source.Path, err)
		}
		opts := graph.OverlayOptions{
			StartTime: o.Start,
			Duration:  o.Duration,
			Padding:   o.Padding,
			AudioMode: graph.AudioMode(o.Audio),
		}
		if ck := o.ChromaKey; ck != nil {
			opts.ChromaKey = &graph.ChromaKeyOptions{Color: ck.Color, Similarity: ck.Similarity, Blend: ck.Blend}
		}
		return b.OverlayWith(other, opts)

	case step.Concat != nil:
		other, err := build(ctx, step.Concat.Source, factory, false)
		if err != nil {
			return fmt.Errorf("concat %s: %w", step.Concat.Source.Path, err)
		}
		return b.Concat(other)

	case step.Repeat != nil:
		return b.RepeatSelf(step.Repeat.Times)

	case step.Cover != nil:
		return b.CoverDuration(step.Cover.Duration)
	}
	return fmt.Errorf("%w: empty step", ErrInvalidScenario)
}

func colorOptions(c *ColorStep) []graph.ColorOption {
	var opts []graph.ColorOption
	if c.Brightness != nil {
		opts = append(opts, graph.Brightness(*c.Brightness))
	}
	if c.Contrast != nil {
		opts = append(opts, graph.Contrast(*c.Contrast))
	}
	if c.Saturation != nil {
		opts = append(opts, graph.Saturation(*c.Saturation))
	}
	if c.Gamma != nil {
		opts = append(opts, graph.Gamma(*c.Gamma))
	}
	return opts
}
