package graph

import (
	"fmt"
	"math"

	"github.com/maauso/reelgraph/internal/probe"
)

type trimParams struct {
	Start float64 `validate:"finite,gte=0"`
	End   float64 `validate:"finite,gtfield=Start"`
}

// TrimVideo keeps [start, end) of both tracks and re-bases timestamps to
// zero. The compound duration becomes min(compound, end-start).
func (b *Builder) TrimVideo(start, end float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("trimVideo", trimParams{Start: start, End: end}); err != nil {
		return err
	}
	if d, ok := b.compound.Value(); ok && start >= d {
		return invalid("trimVideo", "Start", start, fmt.Sprintf("must be before the end of the stream (%s)", b.compound))
	}

	video := b.newLabel(Video)
	audio := b.newLabel(Audio)
	b.append(Stage{Name: "trim", Chains: []Chain{
		{
			Inputs:  []Label{b.video},
			Filters: []Filter{Trim{Start: start, End: end}, SetPTS{Expr: "PTS-STARTPTS"}},
			Outputs: []Label{video},
		},
		{
			Inputs:  []Label{b.audio},
			Filters: []Filter{ATrim{Start: start, End: end}, ASetPTS{Expr: "PTS-STARTPTS"}},
			Outputs: []Label{audio},
		},
	}}, video, audio)
	b.compound = b.compound.Min(end - start)
	return nil
}

type speedParams struct {
	Factor float64 `validate:"finite,gte=0.5,lte=2"`
}

// ChangeSpeed plays both tracks factor times faster. Factor 1 is a
// validated no-op.
func (b *Builder) ChangeSpeed(factor float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("changeSpeed", speedParams{Factor: factor}); err != nil {
		return err
	}
	if factor == 1 {
		return nil
	}

	video := b.newLabel(Video)
	audio := b.newLabel(Audio)
	b.append(Stage{Name: "speed", Chains: []Chain{
		{
			Inputs:  []Label{b.video},
			Filters: []Filter{SetPTS{Expr: "PTS/" + num(factor)}},
			Outputs: []Label{video},
		},
		{
			Inputs:  []Label{b.audio},
			Filters: []Filter{ATempo{Tempo: factor}},
			Outputs: []Label{audio},
		},
	}}, video, audio)
	b.compound = b.compound.Div(factor)
	return nil
}

type repeatParams struct {
	Times int `validate:"gte=2,lte=1000"`
}

// RepeatSelf loops the current output n times by splitting both tracks
// and concatenating the copies in order.
func (b *Builder) RepeatSelf(n int) error {
	if err := b.ready(); err != nil {
		return err
	}
	if !b.master {
		return ErrNotMaster
	}
	if err := validateParams("repeatSelf", repeatParams{Times: n}); err != nil {
		return err
	}

	videos := make([]Label, n)
	audios := make([]Label, n)
	segments := make([]Label, 0, 2*n)
	for i := 0; i < n; i++ {
		videos[i] = b.newLabel(Video)
		audios[i] = b.newLabel(Audio)
		segments = append(segments, videos[i], audios[i])
	}
	video := b.newLabel(Video)
	audio := b.newLabel(Audio)

	b.append(Stage{Name: "repeat", Chains: []Chain{
		{Inputs: []Label{b.video}, Filters: []Filter{Split{Outputs: n}}, Outputs: videos},
		{Inputs: []Label{b.audio}, Filters: []Filter{ASplit{Outputs: n}}, Outputs: audios},
		{Inputs: segments, Filters: []Filter{Concat{Segments: n, Video: 1, Audio: 1}}, Outputs: []Label{video, audio}},
	}}, video, audio)
	b.compound = b.compound.Mul(float64(n))
	return nil
}

type coverParams struct {
	Target float64 `validate:"finite,gt=0"`
}

// CoverDuration loops the current output as often as needed to span target
// seconds, then trims it to exactly target. The compound duration must be
// known.
func (b *Builder) CoverDuration(target float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if !b.master {
		return ErrNotMaster
	}
	if err := validateParams("coverDuration", coverParams{Target: target}); err != nil {
		return err
	}
	current, ok := b.compound.Value()
	if !ok {
		return fmt.Errorf("cover %gs: %w", target, probe.ErrDurationUnavailable)
	}
	if current <= 0 {
		return invalid("coverDuration", "compoundDuration", current, "must be positive to loop")
	}

	if current < target {
		times := int(math.Ceil(target / current))
		if times >= 2 {
			if err := b.RepeatSelf(times); err != nil {
				return err
			}
		}
	}
	if d, _ := b.compound.Value(); d > target {
		return b.TrimVideo(0, target)
	}
	return nil
}
