package graph

import "fmt"

// StreamType identifies the kind of elementary stream a label carries.
type StreamType byte

const (
	// Video marks a video elementary stream.
	Video StreamType = 'v'
	// Audio marks an audio elementary stream.
	Audio StreamType = 'a'
)

// Label names one elementary stream at a point in the graph.
//
// A label is either a reference to a stream of an input file ("0:v") or an
// intermediate link allocated from the owning builder's counter ("v3").
// The zero Label is invalid.
type Label struct {
	stream StreamType
	input  bool
	index  int
}

// InputLabel references the stream of the given type in input file index.
func InputLabel(index int, stream StreamType) Label {
	return Label{stream: stream, input: true, index: index}
}

// Stream returns the label's stream type.
func (l Label) Stream() StreamType { return l.stream }

// IsInput reports whether the label references an input file stream.
func (l Label) IsInput() bool { return l.input }

// Index returns the input file index or the intermediate counter value.
func (l Label) Index() int { return l.index }

// IsZero reports whether the label was never assigned.
func (l Label) IsZero() bool { return l.stream == 0 }

// String returns the label without brackets.
func (l Label) String() string {
	if l.input {
		return fmt.Sprintf("%d:%c", l.index, l.stream)
	}
	return fmt.Sprintf("%c%d", l.stream, l.index)
}

// Ref returns the bracketed form used inside a filtergraph.
func (l Label) Ref() string {
	return "[" + l.String() + "]"
}

// shift relocates the label into a pipeline that already owns inputs input
// files and has allocated labels intermediate labels.
func (l Label) shift(inputs, labels int) Label {
	if l.IsZero() {
		return l
	}
	if l.input {
		l.index += inputs
	} else {
		l.index += labels
	}
	return l
}
