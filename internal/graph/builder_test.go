package graph

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/reelgraph/internal/probe"
)

// fakeProber returns canned results keyed by path.
type fakeProber struct {
	results map[string]*probe.Result
	calls   []string
}

func (f *fakeProber) Probe(_ context.Context, path string) (*probe.Result, error) {
	f.calls = append(f.calls, path)
	res, ok := f.results[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s: no such file", probe.ErrProbeFailed, path)
	}
	return res, nil
}

func newFakeProber() *fakeProber {
	return &fakeProber{results: map[string]*probe.Result{
		"silent.mp4":  {Resolution: probe.Resolution{Width: 640, Height: 360}, Duration: 10, HasDuration: true},
		"main.mp4":    {Resolution: probe.Resolution{Width: 1080, Height: 1920}, Duration: 8, HasDuration: true, HasAudio: true},
		"banner.mp4":  {Resolution: probe.Resolution{Width: 720, Height: 200}, Duration: 3, HasDuration: true, HasAudio: true},
		"four.mp4":    {Resolution: probe.Resolution{Width: 720, Height: 1280}, Duration: 4, HasDuration: true, HasAudio: true},
		"six.mp4":     {Resolution: probe.Resolution{Width: 720, Height: 1280}, Duration: 6, HasDuration: true, HasAudio: true},
		"ten.mp4":     {Resolution: probe.Resolution{Width: 720, Height: 1280}, Duration: 10, HasDuration: true, HasAudio: true},
		"stream.ts":   {Resolution: probe.Resolution{Width: 720, Height: 1280}, HasAudio: true},
		"still.png":   {Resolution: probe.Resolution{Width: 500, Height: 500}},
		"short.mp4":   {Resolution: probe.Resolution{Width: 720, Height: 1280}, Duration: 1.5, HasDuration: true, HasAudio: true},
		"another.mp4": {Resolution: probe.Resolution{Width: 720, Height: 1280}, Duration: 2, HasDuration: true, HasAudio: true},
	}}
}

func newBuilder(t *testing.T, p probe.Prober, path string, master bool) *Builder {
	t.Helper()
	opts := []Option{WithProber(p)}
	if master {
		opts = append(opts, WithMaster())
	}
	b := New(720, 1280, opts...)
	require.NoError(t, b.Init(context.Background(), path))
	return b
}

// snapshot captures the observable builder state for no-mutation checks.
type snapshot struct {
	inputs   []string
	stages   string
	video    Label
	audio    Label
	compound Duration
	next     int
}

func snap(b *Builder) snapshot {
	return snapshot{
		inputs:   b.Inputs(),
		stages:   b.FilterComplex(),
		video:    b.Video(),
		audio:    b.Audio(),
		compound: b.CompoundDuration(),
		next:     b.next,
	}
}

func TestInit_AudiolessSource(t *testing.T) {
	p := newFakeProber()
	b := newBuilder(t, p, "silent.mp4", false)

	assert.False(t, b.HasAudio())
	assert.Equal(t, Seconds(10), b.CompoundDuration())
	assert.Equal(t, Seconds(10), b.ProbedDuration())
	assert.Equal(t, probe.Resolution{Width: 640, Height: 360}, b.SourceResolution())
	assert.Equal(t, []string{"silent.mp4"}, b.Inputs())

	stages := b.Stages()
	require.Len(t, stages, 1)
	assert.Equal(t, "normalize", stages[0].Name)
	assert.Contains(t, stages[0].Filters(), ANullSrc{SampleRate: 44100, ChannelLayout: "stereo"})
	assert.Contains(t, stages[0].Filters(), ATrim{Duration: 10})

	want := "[0:v]scale=w=720:h=1280:force_original_aspect_ratio=decrease," +
		"pad=w=720:h=1280:x=(ow-iw)/2:y=(oh-ih)/2:color=black,setsar=sar=1/1[v0];" +
		"anullsrc=channel_layout=stereo:sample_rate=44100,atrim=duration=10[a1]"
	assert.Equal(t, want, b.FilterComplex())
	assert.Equal(t, "v0", b.Video().String())
	assert.Equal(t, "a1", b.Audio().String())

	plan, err := b.Plan()
	require.NoError(t, err)
	assert.True(t, plan.Shortest)
}

func TestInit_WithAudio(t *testing.T) {
	b := newBuilder(t, newFakeProber(), "main.mp4", true)

	assert.True(t, b.HasAudio())
	chains := b.Stages()[0].Chains
	require.Len(t, chains, 2)
	assert.Equal(t, "[0:a]aresample=44100,aformat=sample_rates=44100:channel_layouts=stereo[a1]", chains[1].String())

	plan, err := b.Plan()
	require.NoError(t, err)
	assert.False(t, plan.Shortest)
}

func TestInit_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("probe failure", func(t *testing.T) {
		b := New(720, 1280, WithProber(newFakeProber()))
		err := b.Init(ctx, "missing.mp4")
		assert.ErrorIs(t, err, probe.ErrProbeFailed)
		assert.Empty(t, b.Inputs())
	})

	t.Run("audioless source without duration", func(t *testing.T) {
		b := New(720, 1280, WithProber(newFakeProber()))
		err := b.Init(ctx, "still.png")
		assert.ErrorIs(t, err, probe.ErrDurationUnavailable)
		assert.Empty(t, b.Stages())
	})

	t.Run("audioless source with zero duration", func(t *testing.T) {
		p := newFakeProber()
		p.results["empty.mp4"] = &probe.Result{Resolution: probe.Resolution{Width: 720, Height: 1280}, HasDuration: true}
		b := New(720, 1280, WithProber(p))
		err := b.Init(ctx, "empty.mp4")
		assert.ErrorIs(t, err, probe.ErrDurationUnavailable)
		assert.Empty(t, b.Stages())
		assert.Empty(t, b.Inputs())

		master := newBuilder(t, p, "main.mp4", true)
		assert.ErrorIs(t, master.Concat(b), ErrNotInitialized)
	})

	t.Run("unknown duration with audio is allowed", func(t *testing.T) {
		b := New(720, 1280, WithProber(newFakeProber()))
		require.NoError(t, b.Init(ctx, "stream.ts"))
		assert.False(t, b.CompoundDuration().Known())
	})

	t.Run("twice", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		err := b.Init(ctx, "main.mp4")
		assert.ErrorIs(t, err, ErrAlreadyInitialized)
		assert.ErrorIs(t, err, ErrUsage)
	})

	t.Run("odd target size", func(t *testing.T) {
		b := New(721, 1280, WithProber(newFakeProber()))
		err := b.Init(ctx, "main.mp4")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("operation before init", func(t *testing.T) {
		b := New(720, 1280, WithProber(newFakeProber()))
		assert.ErrorIs(t, b.TrimVideo(0, 1), ErrNotInitialized)
	})
}

func TestColorCorrect(t *testing.T) {
	t.Run("all defaults add zero stages", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		before := snap(b)
		require.NoError(t, b.ColorCorrect())
		require.NoError(t, b.ColorCorrect(Brightness(0), Contrast(1), Saturation(1), Gamma(1)))
		assert.Equal(t, before, snap(b))
	})

	t.Run("renders only changed parameters", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		audio := b.Audio()
		require.NoError(t, b.ColorCorrect(Brightness(0.1), Saturation(1.5)))
		stages := b.Stages()
		require.Len(t, stages, 2)
		assert.Equal(t, "[v0]eq=brightness=0.1:saturation=1.5[v2]", stages[1].String())
		assert.Equal(t, audio, b.Audio(), "audio passes through")
	})

	t.Run("out of range", func(t *testing.T) {
		tests := []struct {
			name  string
			opt   ColorOption
			field string
		}{
			{"brightness", Brightness(1.5), "Brightness"},
			{"contrast", Contrast(-0.1), "Contrast"},
			{"saturation", Saturation(3.1), "Saturation"},
			{"gamma", Gamma(0.05), "Gamma"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				b := newBuilder(t, newFakeProber(), "main.mp4", false)
				before := snap(b)
				err := b.ColorCorrect(tt.opt)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
				assert.Equal(t, "colorCorrect", verr.Op)
				assert.Equal(t, before, snap(b))
			})
		}
	})
}

func TestHueBlurRed(t *testing.T) {
	b := newBuilder(t, newFakeProber(), "main.mp4", false)

	require.NoError(t, b.HueAdjust(0, 1))
	require.NoError(t, b.BoxBlur(0, 1))
	require.NoError(t, b.MakeItRed(0))
	assert.Len(t, b.Stages(), 1, "neutral calls add no stages")

	require.NoError(t, b.HueAdjust(45, 1.2))
	require.NoError(t, b.BoxBlur(4, 2))
	require.NoError(t, b.MakeItRed(0.5))

	stages := b.Stages()
	require.Len(t, stages, 4)
	assert.Equal(t, "[v0]hue=h=45:s=1.2[v2]", stages[1].String())
	assert.Equal(t, "[v2]boxblur=luma_radius=4:luma_power=2[v3]", stages[2].String())
	assert.Equal(t, "[v3]hue=h=0:s=0,colorchannelmixer=rr=1:rg=0:rb=0:gr=0:gg=0.5:gb=0:br=0:bg=0:bb=0.5[v4]", stages[3].String())

	assert.ErrorIs(t, b.HueAdjust(400, 1), ErrValidation)
	assert.ErrorIs(t, b.BoxBlur(-1, 1), ErrValidation)
	assert.ErrorIs(t, b.BoxBlur(2, 0), ErrValidation)
	assert.ErrorIs(t, b.MakeItRed(1.1), ErrValidation)
	assert.Len(t, b.Stages(), 4)
}

func TestTrimVideo(t *testing.T) {
	t.Run("caps compound duration", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", false)
		require.NoError(t, b.TrimVideo(2, 5))
		assert.Equal(t, Seconds(3), b.CompoundDuration())

		last := b.Stages()[1]
		assert.Equal(t, "trim", last.Name)
		assert.Equal(t, "[v0]trim=start=2:end=5,setpts='PTS-STARTPTS'[v2];[a1]atrim=start=2:end=5,asetpts='PTS-STARTPTS'[a3]", last.String())
	})

	t.Run("end past stream keeps stream length", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", false)
		require.NoError(t, b.TrimVideo(4, 30))
		assert.Equal(t, Seconds(10), b.CompoundDuration())
	})

	t.Run("unknown stays unknown", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "stream.ts", false)
		require.NoError(t, b.TrimVideo(0, 5))
		assert.False(t, b.CompoundDuration().Known())
	})

	t.Run("invalid ranges leave state unchanged", func(t *testing.T) {
		for _, r := range [][2]float64{{5, 3}, {2, 2}, {-1, 3}, {10, 12}} {
			b := newBuilder(t, newFakeProber(), "ten.mp4", false)
			before := snap(b)
			err := b.TrimVideo(r[0], r[1])
			assert.ErrorIs(t, err, ErrValidation, "range %v", r)
			assert.Equal(t, before, snap(b))
		}
	})
}

func TestChangeSpeed(t *testing.T) {
	t.Run("factor one is a no-op", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", false)
		before := snap(b)
		require.NoError(t, b.ChangeSpeed(1.0))
		assert.Equal(t, before, snap(b))
	})

	t.Run("double speed halves duration", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", false)
		require.NoError(t, b.ChangeSpeed(2.0))
		assert.Equal(t, Seconds(5), b.CompoundDuration())
		assert.Equal(t, "[v0]setpts='PTS/2'[v2];[a1]atempo=tempo=2[a3]", b.Stages()[1].String())
	})

	t.Run("half speed doubles duration", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", false)
		require.NoError(t, b.ChangeSpeed(0.5))
		assert.Equal(t, Seconds(20), b.CompoundDuration())
	})

	t.Run("out of range", func(t *testing.T) {
		for _, f := range []float64{0.49, 2.01, 0, -1, 10} {
			b := newBuilder(t, newFakeProber(), "ten.mp4", false)
			before := snap(b)
			assert.ErrorIs(t, b.ChangeSpeed(f), ErrValidation, "factor %v", f)
			assert.Equal(t, before, snap(b))
		}
	})
}

func TestConcat_RelabelsAbsorbedGraph(t *testing.T) {
	p := newFakeProber()

	// A owns two inputs.
	a := newBuilder(t, p, "four.mp4", true)
	require.NoError(t, a.Concat(newBuilder(t, p, "six.mp4", false)))
	require.Len(t, a.Inputs(), 2)

	// B owns three inputs.
	b := newBuilder(t, p, "ten.mp4", true)
	require.NoError(t, b.Concat(newBuilder(t, p, "short.mp4", false)))
	require.NoError(t, b.Concat(newBuilder(t, p, "another.mp4", false)))
	require.Len(t, b.Inputs(), 3)

	bStages := b.Stages()
	aStageCount := len(a.Stages())
	aNext := a.next

	require.NoError(t, a.Concat(b))

	assert.Equal(t, []string{"four.mp4", "six.mp4", "ten.mp4", "short.mp4", "another.mp4"}, a.Inputs())

	absorbed := a.Stages()[aStageCount : aStageCount+len(bStages)]
	for i, s := range absorbed {
		orig := bStages[i]
		assert.Equal(t, orig.Name, s.Name)
		origIn, gotIn := orig.Inputs(), s.Inputs()
		require.Len(t, gotIn, len(origIn))
		for j := range origIn {
			if origIn[j].IsInput() {
				assert.True(t, gotIn[j].IsInput())
				assert.Equal(t, origIn[j].Index()+2, gotIn[j].Index())
			} else {
				assert.Equal(t, origIn[j].Index()+aNext, gotIn[j].Index())
			}
		}
	}

	assert.True(t, b.Consumed())
	assert.Empty(t, b.Inputs())
	assert.Equal(t, Seconds(4+6+10+1.5+2), a.CompoundDuration())
}

func TestConcat_LabelsNeverReused(t *testing.T) {
	p := newFakeProber()
	a := newBuilder(t, p, "four.mp4", true)
	other := newBuilder(t, p, "six.mp4", true)
	require.NoError(t, other.ChangeSpeed(2))
	require.NoError(t, a.TrimVideo(0, 3))
	require.NoError(t, a.Concat(other))
	require.NoError(t, a.RepeatSelf(2))

	produced := map[string]bool{}
	consumed := map[string]bool{}
	for _, s := range a.Stages() {
		for _, l := range s.Outputs() {
			assert.False(t, produced[l.String()], "label %s produced twice", l)
			produced[l.String()] = true
		}
		for _, l := range s.Inputs() {
			assert.False(t, consumed[l.String()], "label %s consumed twice", l)
			consumed[l.String()] = true
			if !l.IsInput() {
				assert.True(t, produced[l.String()], "label %s consumed before produced", l)
			}
		}
	}
	assert.False(t, consumed[a.Video().String()])
	assert.True(t, produced[a.Video().String()])
}

func TestConcat_Durations(t *testing.T) {
	p := newFakeProber()

	t.Run("known durations sum exactly", func(t *testing.T) {
		a := newBuilder(t, p, "four.mp4", true)
		require.NoError(t, a.Concat(newBuilder(t, p, "six.mp4", false)))
		d, ok := a.CompoundDuration().Value()
		require.True(t, ok)
		assert.Equal(t, 10.0, d)

		last := a.Stages()[len(a.Stages())-1]
		assert.Equal(t, "[v0][a1][v2][a3]concat=n=2:v=1:a=1[v4][a5]", last.String())
	})

	t.Run("unknown side makes result unknown", func(t *testing.T) {
		a := newBuilder(t, p, "four.mp4", true)
		require.NoError(t, a.Concat(newBuilder(t, p, "stream.ts", false)))
		assert.False(t, a.CompoundDuration().Known())

		c := newBuilder(t, p, "stream.ts", true)
		require.NoError(t, c.Concat(newBuilder(t, p, "six.mp4", false)))
		assert.False(t, c.CompoundDuration().Known())
	})
}

func TestMerge_UsageErrors(t *testing.T) {
	p := newFakeProber()

	t.Run("non-master rejects every merge", func(t *testing.T) {
		a := newBuilder(t, p, "main.mp4", false)
		other := newBuilder(t, p, "banner.mp4", false)
		before := snap(a)

		assert.ErrorIs(t, a.Concat(other), ErrNotMaster)
		assert.ErrorIs(t, a.OverlayWith(other, OverlayOptions{Duration: 1}), ErrNotMaster)
		assert.ErrorIs(t, a.RepeatSelf(2), ErrNotMaster)
		assert.ErrorIs(t, a.CoverDuration(20), ErrNotMaster)

		assert.ErrorIs(t, a.Concat(other), ErrUsage)
		assert.Equal(t, before, snap(a))
		assert.False(t, other.Consumed())
	})

	t.Run("consumed builder is unusable", func(t *testing.T) {
		a := newBuilder(t, p, "main.mp4", true)
		other := newBuilder(t, p, "banner.mp4", true)
		require.NoError(t, a.Concat(other))

		assert.ErrorIs(t, other.TrimVideo(0, 1), ErrConsumed)
		assert.ErrorIs(t, other.ColorCorrect(Brightness(0.2)), ErrConsumed)
		assert.ErrorIs(t, other.Concat(newBuilder(t, p, "six.mp4", false)), ErrConsumed)
		_, err := other.Plan()
		assert.ErrorIs(t, err, ErrConsumed)

		err = a.Concat(other)
		assert.ErrorIs(t, err, ErrConsumed)
	})

	t.Run("self merge", func(t *testing.T) {
		a := newBuilder(t, p, "main.mp4", true)
		assert.ErrorIs(t, a.Concat(a), ErrSelfMerge)
	})

	t.Run("nil and uninitialized", func(t *testing.T) {
		a := newBuilder(t, p, "main.mp4", true)
		assert.ErrorIs(t, a.Concat(nil), ErrNilBuilder)
		assert.ErrorIs(t, a.Concat(New(720, 1280, WithProber(p))), ErrNotInitialized)
	})

	t.Run("size mismatch", func(t *testing.T) {
		a := newBuilder(t, p, "main.mp4", true)
		other := New(360, 640, WithProber(p))
		require.NoError(t, other.Init(context.Background(), "six.mp4"))
		assert.ErrorIs(t, a.Concat(other), ErrValidation)
	})
}

func TestOverlayWith_Replace(t *testing.T) {
	p := newFakeProber()
	a := newBuilder(t, p, "main.mp4", true)
	overlay := newBuilder(t, p, "banner.mp4", false)
	before := a.Video()

	err := a.OverlayWith(overlay, OverlayOptions{StartTime: 2, Duration: 3, AudioMode: AudioReplace})
	require.NoError(t, err)

	assert.NotEqual(t, before, a.Video())
	assert.Equal(t, []string{"main.mp4", "banner.mp4"}, a.Inputs())
	assert.Equal(t, Seconds(8), a.CompoundDuration())
	assert.True(t, overlay.Consumed())

	stages := a.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, "normalize", stages[1].Name)
	assert.Equal(t, InputLabel(1, Video), stages[1].Chains[0].Inputs[0])

	want := "[v2]trim=duration=3,setpts='PTS-STARTPTS+2/TB'[v4];" +
		"[v0][v4]overlay=x=(W-w)/2:y=(H-h)/2:eof_action=pass:enable='gte(t,2)*lt(t,5)'[v5];" +
		"[a3]atrim=duration=3,asetpts='PTS-STARTPTS',adelay=delays=2000:all=1[a6];" +
		"[a1]volume=volume=0:enable='gte(t,2)*lt(t,5)'[a8];" +
		"[a6]volume=volume=0:enable='not(gte(t,2)*lt(t,5))'[a9];" +
		"[a8][a9]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[a7]"
	assert.Equal(t, "overlay", stages[2].Name)
	assert.Equal(t, want, stages[2].String())
}

func TestOverlayWith_MixChromaPadding(t *testing.T) {
	p := newFakeProber()
	a := newBuilder(t, p, "main.mp4", true)
	overlay := newBuilder(t, p, "banner.mp4", false)

	err := a.OverlayWith(overlay, OverlayOptions{
		StartTime: 1.5,
		Duration:  2,
		ChromaKey: &ChromaKeyOptions{Color: "#00FF00", Similarity: 0.2, Blend: 0.05},
		Padding:   20,
	})
	require.NoError(t, err)

	chains := a.Stages()[2].Chains
	require.Len(t, chains, 4)
	assert.Equal(t, "[v2]format=pix_fmts=yuva420p,chromakey=color=0x00ff00:similarity=0.2:blend=0.05,"+
		"scale=w=680:h=1240:force_original_aspect_ratio=decrease,"+
		"pad=w=720:h=1280:x=(ow-iw)/2:y=(oh-ih)/2:color=black@0,"+
		"trim=duration=2,setpts='PTS-STARTPTS+1.5/TB'[v4]", chains[0].String())
	assert.Equal(t, "[a1][a6]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[a7]", chains[3].String())
	assert.Contains(t, chains[2].String(), "adelay=delays=1500:all=1")
}

func TestOverlayWith_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts OverlayOptions
	}{
		{"zero duration", OverlayOptions{Duration: 0}},
		{"negative duration", OverlayOptions{Duration: -1}},
		{"negative start", OverlayOptions{StartTime: -0.5, Duration: 1}},
		{"negative padding", OverlayOptions{Duration: 1, Padding: -3}},
		{"padding swallows picture", OverlayOptions{Duration: 1, Padding: 360}},
		{"unknown audio mode", OverlayOptions{Duration: 1, AudioMode: "crossfade"}},
		{"bad chroma color", OverlayOptions{Duration: 1, ChromaKey: &ChromaKeyOptions{Color: "green", Similarity: 0.1}}},
		{"bad chroma similarity", OverlayOptions{Duration: 1, ChromaKey: &ChromaKeyOptions{Color: "#00ff00"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProber()
			a := newBuilder(t, p, "main.mp4", true)
			overlay := newBuilder(t, p, "banner.mp4", false)
			before := snap(a)

			err := a.OverlayWith(overlay, tt.opts)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, before, snap(a))
			assert.False(t, overlay.Consumed())
		})
	}
}

func TestRotate(t *testing.T) {
	t.Run("bounding box grows for non-axis angles", func(t *testing.T) {
		sizes := [][2]int{{720, 1280}, {1280, 720}, {500, 500}, {2, 2}}
		for _, sz := range sizes {
			for angle := -720.0; angle <= 720; angle += 7.5 {
				w, h := BoundingBox(sz[0], sz[1], angle)
				require.GreaterOrEqual(t, w, 0)
				require.GreaterOrEqual(t, h, 0)
				// At odd multiples of 90 the box is the swapped size, so
				// neither sum nor area grows.
				if int(angle*10)%900 != 0 {
					assert.Greater(t, w+h, sz[0]+sz[1], "size %v angle %v", sz, angle)
					assert.Greater(t, w*h, sz[0]*sz[1], "size %v angle %v", sz, angle)
				}
			}
		}
	})

	t.Run("axis angles are exact", func(t *testing.T) {
		w, h := BoundingBox(720, 1280, 0)
		assert.Equal(t, [2]int{720, 1280}, [2]int{w, h})
		w, h = BoundingBox(720, 1280, 180)
		assert.Equal(t, [2]int{720, 1280}, [2]int{w, h})
		w, h = BoundingBox(720, 1280, 90)
		assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})
		w, h = BoundingBox(720, 1280, -270)
		assert.Equal(t, [2]int{1280, 720}, [2]int{w, h})
	})

	t.Run("stage splits and recomposites", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		audio := b.Audio()
		require.NoError(t, b.Rotate(30, 0.5))

		s := b.Stages()[1]
		assert.Equal(t, "rotate", s.Name)
		require.Len(t, s.Chains, 3)
		assert.Equal(t, "[v0]split=outputs=2[v2][v3]", s.Chains[0].String())

		bw, bh := BoundingBox(720, 1280, 30)
		assert.Equal(t, fmt.Sprintf("[v3]format=pix_fmts=yuva420p,rotate=a=0.523599:ow=%d:oh=%d:c=none,scale=w=%d:h=%d[v4]",
			bw, bh, evenCeil(float64(bw)*0.5), evenCeil(float64(bh)*0.5)), s.Chains[1].String())
		assert.Equal(t, "[v2][v4]overlay=x=(W-w)/2:y=(H-h)/2[v5]", s.Chains[2].String())
		assert.Equal(t, audio, b.Audio())
	})

	t.Run("identity adds nothing", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		require.NoError(t, b.Rotate(360, 1))
		assert.Len(t, b.Stages(), 1)
	})

	t.Run("invalid scale", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", false)
		assert.ErrorIs(t, b.Rotate(10, 0), ErrValidation)
		assert.Len(t, b.Stages(), 1)
	})
}

func TestRepeatSelf(t *testing.T) {
	b := newBuilder(t, newFakeProber(), "four.mp4", true)
	require.NoError(t, b.RepeatSelf(3))

	assert.Equal(t, Seconds(12), b.CompoundDuration())
	assert.Equal(t, "[v0]split=outputs=3[v2][v4][v6];[a1]asplit=outputs=3[a3][a5][a7];"+
		"[v2][a3][v4][a5][v6][a7]concat=n=3:v=1:a=1[v8][a9]", b.Stages()[1].String())

	before := snap(b)
	assert.ErrorIs(t, b.RepeatSelf(1), ErrValidation)
	assert.Equal(t, before, snap(b))
}

func TestCoverDuration(t *testing.T) {
	t.Run("loops then trims", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "short.mp4", true)
		require.NoError(t, b.CoverDuration(4))
		assert.Equal(t, Seconds(4), b.CompoundDuration())

		stages := b.Stages()
		require.Len(t, stages, 3)
		assert.Equal(t, "repeat", stages[1].Name)
		assert.Contains(t, stages[1].Filters(), Split{Outputs: 3})
		assert.Equal(t, "trim", stages[2].Name)
	})

	t.Run("longer source only trims", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "ten.mp4", true)
		require.NoError(t, b.CoverDuration(4))
		assert.Equal(t, Seconds(4), b.CompoundDuration())
		assert.Len(t, b.Stages(), 2)
	})

	t.Run("exact length adds nothing", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "four.mp4", true)
		require.NoError(t, b.CoverDuration(4))
		assert.Len(t, b.Stages(), 1)
	})

	t.Run("unknown duration", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "stream.ts", true)
		err := b.CoverDuration(4)
		assert.True(t, errors.Is(err, probe.ErrDurationUnavailable))
	})
}

func TestFinalize(t *testing.T) {
	t.Run("empty builder", func(t *testing.T) {
		b := New(720, 1280, WithProber(newFakeProber()))
		_, err := b.Finalize()
		assert.ErrorIs(t, err, ErrNoInputs)
		assert.False(t, b.Consumed())
	})

	t.Run("consumes builder", func(t *testing.T) {
		b := newBuilder(t, newFakeProber(), "main.mp4", true)
		plan, err := b.Finalize()
		require.NoError(t, err)
		assert.Equal(t, []string{"main.mp4"}, plan.Inputs)
		assert.Equal(t, "v0", plan.Video.String())
		assert.Equal(t, Seconds(8), plan.Duration)
		assert.True(t, b.Consumed())

		_, err = b.Finalize()
		assert.ErrorIs(t, err, ErrConsumed)
	})
}
