// Package scenario loads declarative render recipes and applies them to
// graph builders.
//
// Scenarios are YAML, JSON or TOML documents. A scenario names a main
// source and an ordered list of steps. Overlay and concat steps carry a
// nested source with its own steps, which is built into a separate builder
// and merged into the parent.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a document cannot be decoded or fails validation.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is one render recipe.
type Scenario struct {
	// Width and Height override the configured target size when non-zero.
	Width  int `yaml:"width" toml:"width" validate:"gte=0"`
	Height int `yaml:"height" toml:"height" validate:"gte=0"`
	// Output is the rendered file name.
	Output string            `yaml:"output" toml:"output"`
	Tags   map[string]string `yaml:"tags" toml:"tags"`
	// GenerateTags adds creation_time and a unique comment to Tags.
	GenerateTags bool   `yaml:"generate_tags" toml:"generate_tags"`
	Title        string `yaml:"title" toml:"title"`
	Main         Source `yaml:"main" toml:"main" validate:"required"`
}

// Source is an input file and the steps applied to it.
type Source struct {
	Path  string `yaml:"path" toml:"path" validate:"required"`
	Steps []Step `yaml:"steps" toml:"steps" validate:"dive"`
}

// Step is one operation. Exactly one field is set.
type Step struct {
	Rotate  *RotateStep  `yaml:"rotate" toml:"rotate"`
	Color   *ColorStep   `yaml:"color" toml:"color"`
	Hue     *HueStep     `yaml:"hue" toml:"hue"`
	Blur    *BlurStep    `yaml:"blur" toml:"blur"`
	Red     *RedStep     `yaml:"red" toml:"red"`
	Trim    *TrimStep    `yaml:"trim" toml:"trim"`
	Speed   *SpeedStep   `yaml:"speed" toml:"speed"`
	Overlay *OverlayStep `yaml:"overlay" toml:"overlay"`
	Concat  *ConcatStep  `yaml:"concat" toml:"concat"`
	Repeat  *RepeatStep  `yaml:"repeat" toml:"repeat"`
	Cover   *CoverStep   `yaml:"cover" toml:"cover"`
}

// RotateStep turns the picture. Scale defaults to 1.
type RotateStep struct {
	Degrees float64  `yaml:"degrees" toml:"degrees"`
	Scale   *float64 `yaml:"scale" toml:"scale"`
}

// ColorStep adjusts eq parameters. Unset fields stay neutral.
type ColorStep struct {
	Brightness *float64 `yaml:"brightness" toml:"brightness"`
	Contrast   *float64 `yaml:"contrast" toml:"contrast"`
	Saturation *float64 `yaml:"saturation" toml:"saturation"`
	Gamma      *float64 `yaml:"gamma" toml:"gamma"`
}

// HueStep rotates hue. Saturation defaults to 1.
type HueStep struct {
	Degrees    float64  `yaml:"degrees" toml:"degrees"`
	Saturation *float64 `yaml:"saturation" toml:"saturation"`
}

// BlurStep blurs the picture. Power defaults to 1.
type BlurStep struct {
	Radius int `yaml:"radius" toml:"radius"`
	Power  int `yaml:"power" toml:"power"`
}

// RedStep tints the picture red.
type RedStep struct {
	Intensity float64 `yaml:"intensity" toml:"intensity"`
}

// TrimStep keeps [Start, End).
type TrimStep struct {
	Start float64 `yaml:"start" toml:"start"`
	End   float64 `yaml:"end" toml:"end"`
}

// SpeedStep changes playback speed.
type SpeedStep struct {
	Factor float64 `yaml:"factor" toml:"factor"`
}

// OverlayStep composites a nested source over the current output.
type OverlayStep struct {
	Source    Source     `yaml:"source" toml:"source" validate:"required"`
	Start     float64    `yaml:"start" toml:"start"`
	Duration  float64    `yaml:"duration" toml:"duration"`
	ChromaKey *ChromaKey `yaml:"chroma_key" toml:"chroma_key"`
	Padding   int        `yaml:"padding" toml:"padding"`
	Audio     string     `yaml:"audio" toml:"audio" validate:"omitempty,oneof=mix replace"`
}

// ChromaKey keys out a background color.
type ChromaKey struct {
	Color      string  `yaml:"color" toml:"color"`
	Similarity float64 `yaml:"similarity" toml:"similarity"`
	Blend      float64 `yaml:"blend" toml:"blend"`
}

// ConcatStep appends a nested source.
type ConcatStep struct {
	Source Source `yaml:"source" toml:"source" validate:"required"`
}

// RepeatStep loops the current output.
type RepeatStep struct {
	Times int `yaml:"times" toml:"times"`
}

// CoverStep loops and trims the current output to Duration seconds.
type CoverStep struct {
	Duration float64 `yaml:"duration" toml:"duration"`
}

// Kind returns the name of the set operation, or "" when none is set.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

func (s Step) kinds() []string {
	var kinds []string
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !v.Field(i).IsNil() {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("yaml"), ",")
			kinds = append(kinds, name)
		}
	}
	return kinds
}

// merges reports whether the steps absorb other builders, which requires
// a master builder.
func (s Source) merges() bool {
	for _, st := range s.Steps {
		if st.Overlay != nil || st.Concat != nil || st.Repeat != nil || st.Cover != nil {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		step := sl.Current().Interface().(Step)
		if n := len(step.kinds()); n != 1 {
			sl.ReportError(step, "step", "Step", "one_operation", fmt.Sprint(n))
		}
	}, Step{})
	return v
}

// Validate checks the document shape. Parameter ranges are checked by the
// builder when the step is applied.
func (sc *Scenario) Validate() error {
	if err := validate.Struct(sc); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			if fe.Tag() == "one_operation" {
				return fmt.Errorf("%w: %s: each step needs exactly one operation, got %s",
					ErrInvalidScenario, fe.Namespace(), fe.Param())
			}
			return fmt.Errorf("%w: %s failed %s", ErrInvalidScenario, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// Parse decodes a YAML or JSON document and validates it. Unknown fields
// are rejected.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScenario)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return validated(&sc)
}

// ParseTOML decodes a TOML document and validates it.
func ParseTOML(r io.Reader) (*Scenario, error) {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return validated(&sc)
}

func validated(sc *Scenario) (*Scenario, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Load reads and parses the scenario file at path. Files ending in .toml
// are decoded as TOML, everything else as YAML or JSON.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is given by the operator
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	parse := Parse
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		parse = ParseTOML
	}
	sc, err := parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}
