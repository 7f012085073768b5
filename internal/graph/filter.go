package graph

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Filter is one ffmpeg filter with typed parameters.
//
// The set of implementations is closed. Each variant renders its own
// option string.
type Filter interface {
	// Name returns the ffmpeg filter name.
	Name() string
	// Options returns the rendered option list without the filter name.
	Options() string

	sealed()
}

// Render returns "name=options" or just "name" when there are no options.
func Render(f Filter) string {
	opts := f.Options()
	if opts == "" {
		return f.Name()
	}
	return f.Name() + "=" + opts
}

// options joins key=value pairs with ':' and skips empty values.
type options []string

func (o *options) add(key, value string) {
	if value == "" {
		return
	}
	*o = append(*o, key+"="+value)
}

func (o options) String() string { return strings.Join(o, ":") }

func num(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// expr quotes a timeline or arithmetic expression so its commas survive
// filtergraph parsing.
func expr(e string) string {
	if e == "" {
		return ""
	}
	return "'" + e + "'"
}

// Scale resizes video. FitInside keeps the aspect ratio inside Width x Height.
type Scale struct {
	Width     int
	Height    int
	FitInside bool
}

func (Scale) Name() string { return "scale" }
func (f Scale) Options() string {
	var o options
	o.add("w", strconv.Itoa(f.Width))
	o.add("h", strconv.Itoa(f.Height))
	if f.FitInside {
		o.add("force_original_aspect_ratio", "decrease")
	}
	return o.String()
}
func (Scale) sealed() {}

// Pad places the video on a Width x Height canvas.
type Pad struct {
	Width  int
	Height int
	X      string
	Y      string
	Color  string
}

func (Pad) Name() string { return "pad" }
func (f Pad) Options() string {
	var o options
	o.add("w", strconv.Itoa(f.Width))
	o.add("h", strconv.Itoa(f.Height))
	o.add("x", f.X)
	o.add("y", f.Y)
	o.add("color", f.Color)
	return o.String()
}
func (Pad) sealed() {}

// SetSAR sets the sample (pixel) aspect ratio.
type SetSAR struct {
	Num int
	Den int
}

func (SetSAR) Name() string      { return "setsar" }
func (f SetSAR) Options() string { return fmt.Sprintf("sar=%d/%d", f.Num, f.Den) }
func (SetSAR) sealed()           {}

// Format converts to the given pixel format.
type Format struct {
	PixelFormat string
}

func (Format) Name() string      { return "format" }
func (f Format) Options() string { return "pix_fmts=" + f.PixelFormat }
func (Format) sealed()           {}

// ANullSrc generates silence. It is a source filter and takes no input.
type ANullSrc struct {
	SampleRate    int
	ChannelLayout string
}

func (ANullSrc) Name() string { return "anullsrc" }
func (f ANullSrc) Options() string {
	var o options
	o.add("channel_layout", f.ChannelLayout)
	o.add("sample_rate", strconv.Itoa(f.SampleRate))
	return o.String()
}
func (ANullSrc) sealed() {}

// AResample resamples audio.
type AResample struct {
	SampleRate int
}

func (AResample) Name() string      { return "aresample" }
func (f AResample) Options() string { return strconv.Itoa(f.SampleRate) }
func (AResample) sealed()           {}

// AFormat constrains audio sample rate and channel layout.
type AFormat struct {
	SampleRate    int
	ChannelLayout string
}

func (AFormat) Name() string { return "aformat" }
func (f AFormat) Options() string {
	var o options
	o.add("sample_rates", strconv.Itoa(f.SampleRate))
	o.add("channel_layouts", f.ChannelLayout)
	return o.String()
}
func (AFormat) sealed() {}

func trimOptions(start, end, duration float64) string {
	var o options
	if start > 0 {
		o.add("start", num(start))
	}
	if end > 0 {
		o.add("end", num(end))
	}
	if duration > 0 {
		o.add("duration", num(duration))
	}
	return o.String()
}

// Trim keeps a section of a video stream. Zero fields are omitted.
type Trim struct {
	Start    float64
	End      float64
	Duration float64
}

func (Trim) Name() string      { return "trim" }
func (f Trim) Options() string { return trimOptions(f.Start, f.End, f.Duration) }
func (Trim) sealed()           {}

// ATrim keeps a section of an audio stream. Zero fields are omitted.
type ATrim struct {
	Start    float64
	End      float64
	Duration float64
}

func (ATrim) Name() string      { return "atrim" }
func (f ATrim) Options() string { return trimOptions(f.Start, f.End, f.Duration) }
func (ATrim) sealed()           {}

// SetPTS rewrites video timestamps with Expr.
type SetPTS struct {
	Expr string
}

func (SetPTS) Name() string      { return "setpts" }
func (f SetPTS) Options() string { return expr(f.Expr) }
func (SetPTS) sealed()           {}

// ASetPTS rewrites audio timestamps with Expr.
type ASetPTS struct {
	Expr string
}

func (ASetPTS) Name() string      { return "asetpts" }
func (f ASetPTS) Options() string { return expr(f.Expr) }
func (ASetPTS) sealed()           {}

// ATempo changes audio tempo without changing pitch.
type ATempo struct {
	Tempo float64
}

func (ATempo) Name() string      { return "atempo" }
func (f ATempo) Options() string { return "tempo=" + num(f.Tempo) }
func (ATempo) sealed()           {}

// ADelay delays all audio channels.
type ADelay struct {
	Milliseconds int64
}

func (ADelay) Name() string { return "adelay" }
func (f ADelay) Options() string {
	return "delays=" + strconv.FormatInt(f.Milliseconds, 10) + ":all=1"
}
func (ADelay) sealed() {}

// Volume sets audio gain, optionally only while Enable evaluates true.
type Volume struct {
	Volume float64
	Enable string
}

func (Volume) Name() string { return "volume" }
func (f Volume) Options() string {
	var o options
	o.add("volume", num(f.Volume))
	o.add("enable", expr(f.Enable))
	return o.String()
}
func (Volume) sealed() {}

// AMix mixes audio inputs without level normalization.
type AMix struct {
	Inputs   int
	Duration string
}

func (AMix) Name() string { return "amix" }
func (f AMix) Options() string {
	var o options
	o.add("inputs", strconv.Itoa(f.Inputs))
	o.add("duration", f.Duration)
	o.add("dropout_transition", "0")
	o.add("normalize", "0")
	return o.String()
}
func (AMix) sealed() {}

// Split duplicates a video stream.
type Split struct {
	Outputs int
}

func (Split) Name() string      { return "split" }
func (f Split) Options() string { return "outputs=" + strconv.Itoa(f.Outputs) }
func (Split) sealed()           {}

// ASplit duplicates an audio stream.
type ASplit struct {
	Outputs int
}

func (ASplit) Name() string      { return "asplit" }
func (f ASplit) Options() string { return "outputs=" + strconv.Itoa(f.Outputs) }
func (ASplit) sealed()           {}

// Rotate turns the picture by Radians into an OutWidth x OutHeight frame.
type Rotate struct {
	Radians   float64
	OutWidth  int
	OutHeight int
	FillColor string
}

func (Rotate) Name() string { return "rotate" }
func (f Rotate) Options() string {
	var o options
	o.add("a", strconv.FormatFloat(f.Radians, 'f', 6, 64))
	o.add("ow", strconv.Itoa(f.OutWidth))
	o.add("oh", strconv.Itoa(f.OutHeight))
	o.add("c", f.FillColor)
	return o.String()
}
func (Rotate) sealed() {}

// Overlay composites the second input over the first.
type Overlay struct {
	X         string
	Y         string
	EOFAction string
	Enable    string
}

func (Overlay) Name() string { return "overlay" }
func (f Overlay) Options() string {
	var o options
	o.add("x", f.X)
	o.add("y", f.Y)
	o.add("eof_action", f.EOFAction)
	o.add("enable", expr(f.Enable))
	return o.String()
}
func (Overlay) sealed() {}

// ChromaKey makes pixels close to Color transparent.
type ChromaKey struct {
	Color      string
	Similarity float64
	Blend      float64
}

func (ChromaKey) Name() string { return "chromakey" }
func (f ChromaKey) Options() string {
	var o options
	o.add("color", f.Color)
	o.add("similarity", num(f.Similarity))
	o.add("blend", num(f.Blend))
	return o.String()
}
func (ChromaKey) sealed() {}

// EQ adjusts brightness, contrast, saturation and gamma.
// Only values that differ from the neutral setting are rendered.
type EQ struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Gamma      float64
}

func (EQ) Name() string { return "eq" }
func (f EQ) Options() string {
	var o options
	if f.Brightness != 0 {
		o.add("brightness", num(f.Brightness))
	}
	if f.Contrast != 1 {
		o.add("contrast", num(f.Contrast))
	}
	if f.Saturation != 1 {
		o.add("saturation", num(f.Saturation))
	}
	if f.Gamma != 1 {
		o.add("gamma", num(f.Gamma))
	}
	return o.String()
}
func (EQ) sealed() {}

// Hue rotates hue by Degrees and scales saturation.
type Hue struct {
	Degrees    float64
	Saturation float64
}

func (Hue) Name() string { return "hue" }
func (f Hue) Options() string {
	return "h=" + num(f.Degrees) + ":s=" + num(f.Saturation)
}
func (Hue) sealed() {}

// BoxBlur blurs the luma (and by default chroma) planes.
type BoxBlur struct {
	Radius int
	Power  int
}

func (BoxBlur) Name() string { return "boxblur" }
func (f BoxBlur) Options() string {
	return fmt.Sprintf("luma_radius=%d:luma_power=%d", f.Radius, f.Power)
}
func (BoxBlur) sealed() {}

// ColorChannelMixer remixes RGB channels. Each field is the contribution
// of the second channel to the first (RG: green into red).
type ColorChannelMixer struct {
	RR, RG, RB float64
	GR, GG, GB float64
	BR, BG, BB float64
}

func (ColorChannelMixer) Name() string { return "colorchannelmixer" }
func (f ColorChannelMixer) Options() string {
	var o options
	for _, kv := range []struct {
		k string
		v float64
	}{
		{"rr", f.RR}, {"rg", f.RG}, {"rb", f.RB},
		{"gr", f.GR}, {"gg", f.GG}, {"gb", f.GB},
		{"br", f.BR}, {"bg", f.BG}, {"bb", f.BB},
	} {
		o.add(kv.k, num(kv.v))
	}
	return o.String()
}
func (ColorChannelMixer) sealed() {}

// Concat joins Segments segments of Video video and Audio audio streams each.
type Concat struct {
	Segments int
	Video    int
	Audio    int
}

func (Concat) Name() string { return "concat" }
func (f Concat) Options() string {
	return fmt.Sprintf("n=%d:v=%d:a=%d", f.Segments, f.Video, f.Audio)
}
func (Concat) sealed() {}
