package graph

import "strings"

// Chain is one ffmpeg filterchain: input links, filters applied in order,
// output links. A chain with no inputs starts with a source filter.
type Chain struct {
	Inputs  []Label
	Filters []Filter
	Outputs []Label
}

// String renders the chain, e.g. "[0:v]scale=w=720:h=1280,setsar=sar=1/1[v0]".
func (c Chain) String() string {
	var sb strings.Builder
	for _, l := range c.Inputs {
		sb.WriteString(l.Ref())
	}
	for i, f := range c.Filters {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(Render(f))
	}
	for _, l := range c.Outputs {
		sb.WriteString(l.Ref())
	}
	return sb.String()
}

func (c Chain) shift(inputs, labels int) Chain {
	out := Chain{
		Inputs:  make([]Label, len(c.Inputs)),
		Filters: append([]Filter(nil), c.Filters...),
		Outputs: make([]Label, len(c.Outputs)),
	}
	for i, l := range c.Inputs {
		out.Inputs[i] = l.shift(inputs, labels)
	}
	for i, l := range c.Outputs {
		out.Outputs[i] = l.shift(inputs, labels)
	}
	return out
}

// Stage is the graph node contributed by one builder operation.
type Stage struct {
	// Name is the operation that produced the stage ("normalize", "trim", ...).
	Name   string
	Chains []Chain
}

// Inputs returns every label the stage consumes, in chain order.
func (s Stage) Inputs() []Label {
	var out []Label
	for _, c := range s.Chains {
		out = append(out, c.Inputs...)
	}
	return out
}

// Outputs returns every label the stage produces, in chain order.
func (s Stage) Outputs() []Label {
	var out []Label
	for _, c := range s.Chains {
		out = append(out, c.Outputs...)
	}
	return out
}

// Filters returns every filter of the stage, in chain order.
func (s Stage) Filters() []Filter {
	var out []Filter
	for _, c := range s.Chains {
		out = append(out, c.Filters...)
	}
	return out
}

// String renders the stage's chains joined by ';'.
func (s Stage) String() string {
	parts := make([]string, len(s.Chains))
	for i, c := range s.Chains {
		parts[i] = c.String()
	}
	return strings.Join(parts, ";")
}

func (s Stage) shift(inputs, labels int) Stage {
	out := Stage{Name: s.Name, Chains: make([]Chain, len(s.Chains))}
	for i, c := range s.Chains {
		out.Chains[i] = c.shift(inputs, labels)
	}
	return out
}
