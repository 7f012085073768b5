// Package graph builds ffmpeg filtergraphs from chained stream operations.
//
// A Builder represents one source, or a composite of merged sources. Init
// probes the source and normalizes it to the target size; chained
// operations append stages and advance the current video/audio labels;
// merge operations (Concat, OverlayWith, RepeatSelf) take ownership of
// another builder's graph. The finished graph is lowered into a single
// ffmpeg invocation by the runner package.
//
// Builders are not safe for concurrent use. Independent builders share no
// state and may be built in parallel.
package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/maauso/reelgraph/internal/probe"
)

// Audio format every builder is normalized to, so merged segments agree.
const (
	SampleRate    = 44100
	ChannelLayout = "stereo"
)

// Builder accumulates the filtergraph for one pipeline.
type Builder struct {
	width  int
	height int
	master bool
	prober probe.Prober

	inputs []string
	stages []Stage
	video  Label
	audio  Label
	// next is the label counter; intermediate labels are v<next>/a<next>.
	next int

	source   probe.Resolution
	hasAudio bool
	duration Duration
	compound Duration

	initialized bool
	consumed    bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaster allows the builder to absorb other builders.
func WithMaster() Option {
	return func(b *Builder) {
		b.master = true
	}
}

// WithProber sets the prober used by Init. Defaults to ffprobe on PATH.
func WithProber(p probe.Prober) Option {
	return func(b *Builder) {
		b.prober = p
	}
}

// New creates an empty builder targeting width x height.
func New(width, height int, opts ...Option) *Builder {
	b := &Builder{
		width:    width,
		height:   height,
		duration: Unknown,
		compound: Unknown,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.prober == nil {
		b.prober = probe.NewFFprobe("")
	}
	return b
}

// Init probes path and appends the mandatory normalize stage: scale
// preserving aspect ratio, pad to the exact target size, square pixels,
// and audio conformed to 44.1 kHz stereo. A source without audio gets
// synthesized silence of equal duration.
func (b *Builder) Init(ctx context.Context, path string) error {
	if err := b.usable(); err != nil {
		return err
	}
	if b.initialized {
		return ErrAlreadyInitialized
	}
	if b.width <= 0 || b.height <= 0 || b.width%2 != 0 || b.height%2 != 0 {
		return invalid("init", "size", fmt.Sprintf("%dx%d", b.width, b.height), "must be positive and even")
	}

	res, err := b.prober.Probe(ctx, path)
	if err != nil {
		return fmt.Errorf("probe %s: %w", path, err)
	}

	duration := Unknown
	if res.HasDuration {
		duration = Seconds(res.Duration)
	}
	if !res.HasAudio {
		if seconds, ok := duration.Value(); !ok || seconds <= 0 {
			return fmt.Errorf("synthesize silence for %s: %w", path, probe.ErrDurationUnavailable)
		}
	}

	b.source = res.Resolution
	b.hasAudio = res.HasAudio
	b.duration = duration
	b.compound = duration
	b.inputs = append(b.inputs, path)
	b.initialized = true

	index := len(b.inputs) - 1
	video := b.newLabel(Video)
	audio := b.newLabel(Audio)

	stage := Stage{Name: "normalize", Chains: []Chain{{
		Inputs: []Label{InputLabel(index, Video)},
		Filters: []Filter{
			Scale{Width: b.width, Height: b.height, FitInside: true},
			Pad{Width: b.width, Height: b.height, X: "(ow-iw)/2", Y: "(oh-ih)/2", Color: "black"},
			SetSAR{Num: 1, Den: 1},
		},
		Outputs: []Label{video},
	}}}

	if res.HasAudio {
		stage.Chains = append(stage.Chains, Chain{
			Inputs: []Label{InputLabel(index, Audio)},
			Filters: []Filter{
				AResample{SampleRate: SampleRate},
				AFormat{SampleRate: SampleRate, ChannelLayout: ChannelLayout},
			},
			Outputs: []Label{audio},
		})
	} else {
		seconds, _ := duration.Value()
		stage.Chains = append(stage.Chains, Chain{
			Filters: []Filter{
				ANullSrc{SampleRate: SampleRate, ChannelLayout: ChannelLayout},
				ATrim{Duration: seconds},
			},
			Outputs: []Label{audio},
		})
	}

	b.append(stage, video, audio)
	return nil
}

// Inputs returns the input files in insertion order.
func (b *Builder) Inputs() []string { return append([]string(nil), b.inputs...) }

// Stages returns the stages in call order.
func (b *Builder) Stages() []Stage { return append([]Stage(nil), b.stages...) }

// Video returns the current video output label.
func (b *Builder) Video() Label { return b.video }

// Audio returns the current audio output label.
func (b *Builder) Audio() Label { return b.audio }

// HasAudio reports whether the source probed at Init had an audio track.
func (b *Builder) HasAudio() bool { return b.hasAudio }

// ProbedDuration returns the source duration probed at Init.
func (b *Builder) ProbedDuration() Duration { return b.duration }

// CompoundDuration returns the estimated length of the current output.
func (b *Builder) CompoundDuration() Duration { return b.compound }

// SourceResolution returns the resolution probed at Init.
func (b *Builder) SourceResolution() probe.Resolution { return b.source }

// IsMaster reports whether merge operations are legal on the builder.
func (b *Builder) IsMaster() bool { return b.master }

// Size returns the target width and height.
func (b *Builder) Size() (int, int) { return b.width, b.height }

// Consumed reports whether a merge or run has taken ownership of the graph.
func (b *Builder) Consumed() bool { return b.consumed }

// FilterComplex renders the full filtergraph.
func (b *Builder) FilterComplex() string {
	parts := make([]string, len(b.stages))
	for i, s := range b.stages {
		parts[i] = s.String()
	}
	return strings.Join(parts, ";")
}

// Plan is the immutable result of graph construction, ready to be turned
// into an ffmpeg invocation.
type Plan struct {
	Inputs        []string
	FilterComplex string
	Video         Label
	Audio         Label
	// Shortest is set when the main source had no audio track, so the
	// synthesized silence can never extend the output.
	Shortest bool
	Duration Duration
	Width    int
	Height   int
}

// Plan returns a snapshot of the graph without consuming the builder.
func (b *Builder) Plan() (Plan, error) {
	if err := b.usable(); err != nil {
		return Plan{}, err
	}
	return Plan{
		Inputs:        b.Inputs(),
		FilterComplex: b.FilterComplex(),
		Video:         b.video,
		Audio:         b.audio,
		Shortest:      b.initialized && !b.hasAudio,
		Duration:      b.compound,
		Width:         b.width,
		Height:        b.height,
	}, nil
}

// Finalize returns the plan and consumes the builder. It fails with
// ErrNoInputs, leaving the builder untouched, when nothing was added.
func (b *Builder) Finalize() (Plan, error) {
	plan, err := b.Plan()
	if err != nil {
		return Plan{}, err
	}
	if len(plan.Inputs) == 0 {
		return Plan{}, ErrNoInputs
	}
	b.release()
	return plan, nil
}

// usable rejects builders whose graph has been given away.
func (b *Builder) usable() error {
	if b.consumed {
		return ErrConsumed
	}
	return nil
}

// ready rejects builders that cannot accept chained operations.
func (b *Builder) ready() error {
	if err := b.usable(); err != nil {
		return err
	}
	if !b.initialized {
		return ErrNotInitialized
	}
	return nil
}

// checkMerge validates a merge before any state changes.
func (b *Builder) checkMerge(other *Builder) error {
	if err := b.ready(); err != nil {
		return err
	}
	if !b.master {
		return ErrNotMaster
	}
	if other == nil {
		return ErrNilBuilder
	}
	if other == b {
		return ErrSelfMerge
	}
	if err := other.ready(); err != nil {
		return fmt.Errorf("absorbed builder: %w", err)
	}
	if ow, oh := other.Size(); ow != b.width || oh != b.height {
		return invalid("merge", "size", fmt.Sprintf("%dx%d", ow, oh),
			fmt.Sprintf("must match master size %dx%d", b.width, b.height))
	}
	return nil
}

func (b *Builder) newLabel(stream StreamType) Label {
	l := Label{stream: stream, index: b.next}
	b.next++
	return l
}

func (b *Builder) append(stage Stage, video, audio Label) {
	b.stages = append(b.stages, stage)
	b.video = video
	b.audio = audio
}

// absorb takes ownership of other's inputs and stages. Input references are
// offset by this builder's input count and intermediate labels by its label
// counter, so the absorbed graph occupies a fresh contiguous label range.
// It returns other's relocated output labels; other is consumed.
func (b *Builder) absorb(other *Builder) (Label, Label) {
	inputOffset := len(b.inputs)
	labelOffset := b.next

	for _, s := range other.stages {
		b.stages = append(b.stages, s.shift(inputOffset, labelOffset))
	}
	b.inputs = append(b.inputs, other.inputs...)
	b.next += other.next

	video := other.video.shift(inputOffset, labelOffset)
	audio := other.audio.shift(inputOffset, labelOffset)
	other.release()
	return video, audio
}

func (b *Builder) release() {
	b.consumed = true
	b.inputs = nil
	b.stages = nil
	b.video = Label{}
	b.audio = Label{}
}
