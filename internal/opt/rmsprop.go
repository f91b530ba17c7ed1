package opt

import "github.com/cwbudde/descentbench/internal/vec"

// RMSPropConfig holds configuration for RMSProp.
type RMSPropConfig struct {
	LR   float64 // Learning rate, required
	Beta float64 // Decay of the squared-gradient average in [0, 1] (default: 0.9, used when zero)
	Eps  float64 // Term for numerical stability (default: 1e-8, used when zero)
}

// DefaultRMSPropConfig returns the default configuration. LR must still be set.
func DefaultRMSPropConfig() RMSPropConfig {
	return RMSPropConfig{Beta: 0.9, Eps: DefaultEps}
}

func (c RMSPropConfig) withDefaults() RMSPropConfig {
	d := DefaultRMSPropConfig()
	if c.Beta == 0 {
		c.Beta = d.Beta
	}
	if c.Eps == 0 {
		c.Eps = d.Eps
	}
	return c
}

// RMSProp is AdaGrad with an exponentially decaying accumulator:
//
//	h = beta * h + (1 - beta) * grads²
//	params = params - lr * grads / (sqrt(h) + eps)
//
// With beta = 0 each step is normalized by the current gradient magnitude
// alone. With beta = 1 the accumulator stays at zero.
type RMSProp struct {
	base
	beta float64
	eps  float64
	h    vec.Vector
}

// NewRMSProp creates an RMSProp optimizer for dim parameters. Zero Beta
// or Eps select their defaults; build through Spec for explicit zeros.
func NewRMSProp(dim int, config RMSPropConfig) (*RMSProp, error) {
	return newRMSProp(dim, config.withDefaults())
}

func newRMSProp(dim int, config RMSPropConfig) (*RMSProp, error) {
	b, err := newBase(dim, config.LR)
	if err != nil {
		return nil, err
	}
	if err := checkCoefficient("beta", config.Beta, true); err != nil {
		return nil, err
	}
	if err := checkEps(config.Eps); err != nil {
		return nil, err
	}
	return &RMSProp{base: b, beta: config.Beta, eps: config.Eps, h: vec.Zeros(dim)}, nil
}

// MustNewRMSProp is like NewRMSProp but panics on error.
func MustNewRMSProp(dim int, config RMSPropConfig) *RMSProp {
	o, err := NewRMSProp(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindRMSProp.
func (o *RMSProp) Kind() Kind { return KindRMSProp }

// Step decays the accumulator toward grads² and returns the updated parameters.
func (o *RMSProp) Step(params, grads vec.Vector) (vec.Vector, error) {
	if err := o.checkStep(params, grads); err != nil {
		return nil, err
	}
	o.h = o.h.Scale(o.beta).Add(grads.Square().Scale(1 - o.beta))
	return params.Sub(scaledStep(o.lr, grads, o.h, o.eps)), nil
}

// Reset zeroes the accumulator.
func (o *RMSProp) Reset() {
	o.h = vec.Zeros(o.dim)
}

// Accumulator returns a copy of the squared-gradient average.
func (o *RMSProp) Accumulator() vec.Vector {
	return o.h.Clone()
}

// Snapshot captures the accumulator.
func (o *RMSProp) Snapshot() State {
	return newState(KindRMSProp, 0, map[string]vec.Vector{BufferAccumulator: o.h})
}

// Restore replaces the accumulator with the one held by state.
func (o *RMSProp) Restore(state State) error {
	bufs, err := state.buffers(KindRMSProp, o.dim, BufferAccumulator)
	if err != nil {
		return err
	}
	o.h = bufs[BufferAccumulator]
	return nil
}
