package opt

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/cwbudde/descentbench/internal/vec"
)

// Buffer names used in snapshots.
const (
	BufferVelocity     = "velocity"
	BufferAccumulator  = "accumulator"
	BufferFirstMoment  = "first_moment"
	BufferSecondMoment = "second_moment"
)

// State is a serializable copy of an optimizer's internal state, used for
// checkpointing and resuming trials.
type State struct {
	Kind    Kind                 `json:"kind"`
	Step    int                  `json:"step,omitempty"`
	Buffers map[string][]float64 `json:"buffers,omitempty"`
}

func newState(kind Kind, step int, buffers map[string]vec.Vector) State {
	s := State{Kind: kind, Step: step}
	if len(buffers) > 0 {
		s.Buffers = make(map[string][]float64, len(buffers))
		for name, buf := range buffers {
			s.Buffers[name] = buf.Floats()
		}
	}
	return s
}

// buffers checks that s belongs to kind and carries exactly the named
// buffers at dimension dim, and returns copies of them.
func (s State) buffers(kind Kind, dim int, names ...string) (map[string]vec.Vector, error) {
	if s.Kind != kind {
		return nil, errors.WithStack(&InvalidArgumentError{
			Name:    "kind",
			Value:   s.Kind,
			Message: fmt.Sprintf("state belongs to a different optimizer, expected %s", kind),
		})
	}
	if s.Step < 0 {
		return nil, errors.WithStack(&InvalidArgumentError{Name: "step", Value: s.Step, Message: "cannot be negative"})
	}
	if len(s.Buffers) != len(names) {
		return nil, errors.WithStack(&InvalidArgumentError{
			Name:    "buffers",
			Value:   len(s.Buffers),
			Message: fmt.Sprintf("expected %d buffers", len(names)),
		})
	}
	out := make(map[string]vec.Vector, len(names))
	for _, name := range names {
		data, ok := s.Buffers[name]
		if !ok {
			return nil, errors.WithStack(&InvalidArgumentError{Name: "buffers", Value: name, Message: "missing buffer"})
		}
		if err := checkShape(name, dim, data); err != nil {
			return nil, err
		}
		out[name] = vec.Vector(data).Clone()
	}
	return out, nil
}
