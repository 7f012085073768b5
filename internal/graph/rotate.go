package graph

import "math"

// BoundingBox returns the size of the smallest even-sized frame that holds a
// width x height picture rotated by degrees.
//
// The box is computed here instead of letting ffmpeg infer it from
// rotw()/roth(), which rounds differently across versions.
func BoundingBox(width, height int, degrees float64) (int, int) {
	rad := degrees * math.Pi / 180
	c := math.Abs(math.Cos(rad))
	s := math.Abs(math.Sin(rad))
	w := float64(width)*c + float64(height)*s
	h := float64(width)*s + float64(height)*c
	return evenCeil(w), evenCeil(h)
}

// evenCeil rounds up to the next even integer, ignoring float noise such as
// sin(pi) != 0.
func evenCeil(v float64) int {
	n := int(math.Ceil(v - 1e-6))
	if n%2 != 0 {
		n++
	}
	if n < 0 {
		return 0
	}
	return n
}

type rotateParams struct {
	Degrees float64 `validate:"finite,gte=-3600,lte=3600"`
	Scale   float64 `validate:"finite,gt=0,lte=4"`
}

// Rotate turns the picture by degrees (clockwise) and scales the rotated
// foreground by scale. The stream is split into a static background and a
// rotated foreground that is composited back centered, so the output keeps
// the target size. Rotate(0, 1) adds no stage.
func (b *Builder) Rotate(degrees, scale float64) error {
	if err := b.ready(); err != nil {
		return err
	}
	if err := validateParams("rotate", rotateParams{Degrees: degrees, Scale: scale}); err != nil {
		return err
	}
	if math.Mod(degrees, 360) == 0 && scale == 1 {
		return nil
	}

	boxW, boxH := BoundingBox(b.width, b.height, degrees)
	fg := []Filter{
		Format{PixelFormat: "yuva420p"},
		Rotate{Radians: degrees * math.Pi / 180, OutWidth: boxW, OutHeight: boxH, FillColor: "none"},
	}
	if scale != 1 {
		fg = append(fg, Scale{Width: evenCeil(float64(boxW) * scale), Height: evenCeil(float64(boxH) * scale)})
	}

	background := b.newLabel(Video)
	foreground := b.newLabel(Video)
	rotated := b.newLabel(Video)
	out := b.newLabel(Video)

	b.append(Stage{Name: "rotate", Chains: []Chain{
		{Inputs: []Label{b.video}, Filters: []Filter{Split{Outputs: 2}}, Outputs: []Label{background, foreground}},
		{Inputs: []Label{foreground}, Filters: fg, Outputs: []Label{rotated}},
		{
			Inputs:  []Label{background, rotated},
			Filters: []Filter{Overlay{X: "(W-w)/2", Y: "(H-h)/2"}},
			Outputs: []Label{out},
		},
	}}, out, b.audio)
	return nil
}
