package graph

import (
	"fmt"
	"math"
	"strings"
)

// Concat appends other after this builder's output. The builder absorbs
// other's inputs and stages; other is consumed. The compound duration is
// the sum of both sides, unknown if either side is unknown.
func (b *Builder) Concat(other *Builder) error {
	if err := b.checkMerge(other); err != nil {
		return err
	}

	otherDuration := other.compound
	otherVideo, otherAudio := b.absorb(other)

	video := b.newLabel(Video)
	audio := b.newLabel(Audio)
	b.append(Stage{Name: "concat", Chains: []Chain{{
		Inputs:  []Label{b.video, b.audio, otherVideo, otherAudio},
		Filters: []Filter{Concat{Segments: 2, Video: 1, Audio: 1}},
		Outputs: []Label{video, audio},
	}}}, video, audio)
	b.compound = b.compound.Add(otherDuration)
	return nil
}

// AudioMode selects how overlay audio combines with the base track.
type AudioMode string

const (
	// AudioMix blends both tracks while the overlay plays.
	AudioMix AudioMode = "mix"
	// AudioReplace mutes the base track inside the overlay window and the
	// overlay track outside it, a hard cut in both directions.
	AudioReplace AudioMode = "replace"
)

// ChromaKeyOptions removes a solid background color from the overlay.
type ChromaKeyOptions struct {
	// Color is a hex color such as "#00ff00".
	Color      string  `validate:"required,hexcolor,len=7"`
	Similarity float64 `validate:"finite,gt=0,lte=1"`
	Blend      float64 `validate:"finite,gte=0,lte=1"`
}

// OverlayOptions places an overlay on the base timeline.
type OverlayOptions struct {
	// StartTime is where the overlay starts on the base timeline, in seconds.
	StartTime float64 `validate:"finite,gte=0"`
	// Duration is how long the overlay is shown, in seconds.
	Duration float64 `validate:"finite,gt=0"`
	// ChromaKey, when set, keys out a background color before compositing.
	ChromaKey *ChromaKeyOptions
	// Padding shrinks the overlay by this many pixels on each side.
	Padding int `validate:"gte=0"`
	// AudioMode defaults to AudioMix.
	AudioMode AudioMode `validate:"oneof=mix replace"`
}

// OverlayWith composites other over this builder's video inside
// [StartTime, StartTime+Duration). The overlay's timeline is delayed to
// StartTime and cropped to Duration. other is consumed. The compound
// duration does not change.
func (b *Builder) OverlayWith(other *Builder, opts OverlayOptions) error {
	if opts.AudioMode == "" {
		opts.AudioMode = AudioMix
	}
	if err := b.checkMerge(other); err != nil {
		return err
	}
	if err := validateParams("overlayWith", opts); err != nil {
		return err
	}
	if 2*opts.Padding >= b.width || 2*opts.Padding >= b.height {
		return invalid("overlayWith", "Padding", opts.Padding,
			fmt.Sprintf("must leave a visible picture inside %dx%d", b.width, b.height))
	}

	overlayVideo, overlayAudio := b.absorb(other)

	start, end := opts.StartTime, opts.StartTime+opts.Duration
	window := fmt.Sprintf("gte(t,%s)*lt(t,%s)", num(start), num(end))

	var fg []Filter
	if opts.ChromaKey != nil || opts.Padding > 0 {
		fg = append(fg, Format{PixelFormat: "yuva420p"})
	}
	if ck := opts.ChromaKey; ck != nil {
		fg = append(fg, ChromaKey{
			Color:      "0x" + strings.TrimPrefix(strings.ToLower(ck.Color), "#"),
			Similarity: ck.Similarity,
			Blend:      ck.Blend,
		})
	}
	if p := opts.Padding; p > 0 {
		fg = append(fg,
			Scale{Width: b.width - 2*p, Height: b.height - 2*p, FitInside: true},
			Pad{Width: b.width, Height: b.height, X: "(ow-iw)/2", Y: "(oh-ih)/2", Color: "black@0"},
		)
	}
	fg = append(fg,
		Trim{Duration: opts.Duration},
		SetPTS{Expr: fmt.Sprintf("PTS-STARTPTS+%s/TB", num(start))},
	)

	shifted := b.newLabel(Video)
	video := b.newLabel(Video)
	delayed := b.newLabel(Audio)
	audio := b.newLabel(Audio)

	chains := []Chain{
		{Inputs: []Label{overlayVideo}, Filters: fg, Outputs: []Label{shifted}},
		{
			Inputs:  []Label{b.video, shifted},
			Filters: []Filter{Overlay{X: "(W-w)/2", Y: "(H-h)/2", EOFAction: "pass", Enable: window}},
			Outputs: []Label{video},
		},
		{
			Inputs: []Label{overlayAudio},
			Filters: []Filter{
				ATrim{Duration: opts.Duration},
				ASetPTS{Expr: "PTS-STARTPTS"},
				ADelay{Milliseconds: int64(math.Round(start * 1000))},
			},
			Outputs: []Label{delayed},
		},
	}

	mix := AMix{Inputs: 2, Duration: "first"}
	switch opts.AudioMode {
	case AudioReplace:
		base := b.newLabel(Audio)
		incoming := b.newLabel(Audio)
		chains = append(chains,
			Chain{Inputs: []Label{b.audio}, Filters: []Filter{Volume{Volume: 0, Enable: window}}, Outputs: []Label{base}},
			Chain{Inputs: []Label{delayed}, Filters: []Filter{Volume{Volume: 0, Enable: "not(" + window + ")"}}, Outputs: []Label{incoming}},
			Chain{Inputs: []Label{base, incoming}, Filters: []Filter{mix}, Outputs: []Label{audio}},
		)
	default:
		chains = append(chains,
			Chain{Inputs: []Label{b.audio, delayed}, Filters: []Filter{mix}, Outputs: []Label{audio}},
		)
	}

	b.append(Stage{Name: "overlay", Chains: chains}, video, audio)
	return nil
}
