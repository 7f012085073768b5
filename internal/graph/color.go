package graph

// ColorCorrection holds eq parameters. The zero-effect setting is
// brightness 0, contrast 1, saturation 1, gamma 1.
type ColorCorrection struct {
	Brightness float64 `validate:"finite,gte=-1,lte=1"`
	Contrast   float64 `validate:"finite,gte=0,lte=3"`
	Saturation float64 `validate:"finite,gte=0,lte=3"`
	Gamma      float64 `validate:"finite,gte=0.1,lte=3"`
}

// NeutralColor returns the color correction that changes nothing.
func NeutralColor() ColorCorrection {
	return ColorCorrection{Brightness: 0, Contrast: 1, Saturation: 1, Gamma: 1}
}

func (c ColorCorrection) neutral() bool {
	return c == NeutralColor()
}

// ColorOption adjusts one color correction parameter.
type ColorOption func(*ColorCorrection)

// Brightness sets brightness in [-1, 1].
func Brightness(v float64) ColorOption { return func(c *ColorCorrection) { c.Brightness = v } }

// Contrast sets contrast in [0, 3].
func Contrast(v float64) ColorOption { return func(c *ColorCorrection) { c.Contrast = v } }

// Saturation sets saturation in [0, 3].
func Saturation(v float64) ColorOption { return func(c *ColorCorrection) { c.Saturation = v } }

// Gamma sets gamma in [0.1, 3].
func Gamma(v float64) ColorOption { return func(c *ColorCorrection) { c.Gamma = v } }

// ColorCorrect applies an eq stage. A call that leaves every parameter at
// its neutral value adds no stage.
func (b *Builder) ColorCorrect(opts ...ColorOption) error {
	if err := b.ready(); err != nil {
		return err
	}
	c := NeutralColor()
	for _, opt := range opts {
		opt(&c)
	}
	if err := validateParams("colorCorrect", c); err != nil {
		return err
	}
	if c.neutral() {
		return nil
	}
	b.videoStage("color", EQ(c))
	return nil
}

type hueParams struct {
	Degrees    float64 `validate:"finite,gte=-360,lte=360"`
	Saturation float64 `validate:"finite,gte=0,lte=10"`
}

// HueAdjust rotates hue by degrees and scales saturation.
// HueAdjust(0, 1) adds no stage.
func (b *Builder) HueAdjust(degrees, saturation float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("hueAdjust", hueParams{Degrees: degrees, Saturation: saturation}); err != nil {
		return err
	}
	if degrees == 0 && saturation == 1 {
		return nil
	}
	b.videoStage("hue", Hue{Degrees: degrees, Saturation: saturation})
	return nil
}

type blurParams struct {
	Radius int `validate:"gte=0,lte=100"`
	Power  int `validate:"gte=1,lte=10"`
}

// BoxBlur blurs the picture. A zero radius adds no stage.
func (b *Builder) BoxBlur(radius, power int) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("boxBlur", blurParams{Radius: radius, Power: power}); err != nil {
		return err
	}
	if radius == 0 {
		return nil
	}
	b.videoStage("blur", BoxBlur{Radius: radius, Power: power})
	return nil
}

type redParams struct {
	Intensity float64 `validate:"finite,gte=0,lte=1"`
}

// MakeItRed desaturates the picture and tints it red. Intensity 1 keeps
// only the red channel; intensity 0 adds no stage.
func (b *Builder) MakeItRed(intensity float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("makeItRed", redParams{Intensity: intensity}); err != nil {
		return err
	}
	if intensity == 0 {
		return nil
	}
	keep := 1 - intensity
	b.videoStage("red",
		Hue{Degrees: 0, Saturation: 0},
		ColorChannelMixer{RR: 1, GG: keep, BB: keep},
	)
	return nil
}

// videoStage appends a single chain over the current video label.
// Audio passes through untouched.
func (b *Builder) videoStage(name string, filters ...Filter) {
	out := b.newLabel(Video)
	b.append(Stage{Name: name, Chains: []Chain{{
		Inputs:  []Label{b.video},
		Filters: filters,
		Outputs: []Label{out},
	}}}, out, b.audio)
}
