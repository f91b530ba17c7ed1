package opt

import "github.com/cwbudde/descentbench/internal/vec"

// DefaultEps is the stabilizing term added to denominators.
const DefaultEps = 1e-8

// AdaGradConfig holds configuration for AdaGrad.
type AdaGradConfig struct {
	LR  float64 // Learning rate, required
	Eps float64 // Term for numerical stability (default: 1e-8, used when zero)
}

// DefaultAdaGradConfig returns the default configuration. LR must still be set.
func DefaultAdaGradConfig() AdaGradConfig {
	return AdaGradConfig{Eps: DefaultEps}
}

func (c AdaGradConfig) withDefaults() AdaGradConfig {
	if c.Eps == 0 {
		c.Eps = DefaultEps
	}
	return c
}

// AdaGrad scales each coordinate by the root of its accumulated squared
// gradients:
//
//	h = h + grads²
//	params = params - lr * grads / (sqrt(h) + eps)
//
// h never decreases, so per-coordinate step sizes only shrink.
type AdaGrad struct {
	base
	eps float64
	h   vec.Vector
}

// NewAdaGrad creates an AdaGrad optimizer for dim parameters. A zero Eps
// selects DefaultEps; build through Spec for an explicit zero.
func NewAdaGrad(dim int, config AdaGradConfig) (*AdaGrad, error) {
	return newAdaGrad(dim, config.withDefaults())
}

func newAdaGrad(dim int, config AdaGradConfig) (*AdaGrad, error) {
	b, err := newBase(dim, config.LR)
	if err != nil {
		return nil, err
	}
	if err := checkEps(config.Eps); err != nil {
		return nil, err
	}
	return &AdaGrad{base: b, eps: config.Eps, h: vec.Zeros(dim)}, nil
}

// MustNewAdaGrad is like NewAdaGrad but panics on error.
func MustNewAdaGrad(dim int, config AdaGradConfig) *AdaGrad {
	o, err := NewAdaGrad(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindAdaGrad.
func (o *AdaGrad) Kind() Kind { return KindAdaGrad }

// Step accumulates grads² and returns the updated parameters.
func (o *AdaGrad) Step(params, grads vec.Vector) (vec.Vector, error) {
	if err := o.checkStep(params, grads); err != nil {
		return nil, err
	}
	o.h = o.h.Add(grads.Square())
	return params.Sub(scaledStep(o.lr, grads, o.h, o.eps)), nil
}

// Reset zeroes the accumulator.
func (o *AdaGrad) Reset() {
	o.h = vec.Zeros(o.dim)
}

// Accumulator returns a copy of the squared-gradient sum.
func (o *AdaGrad) Accumulator() vec.Vector {
	return o.h.Clone()
}

// Snapshot captures the accumulator.
func (o *AdaGrad) Snapshot() State {
	return newState(KindAdaGrad, 0, map[string]vec.Vector{BufferAccumulator: o.h})
}

// Restore replaces the accumulator with the one held by state.
func (o *AdaGrad) Restore(state State) error {
	bufs, err := state.buffers(KindAdaGrad, o.dim, BufferAccumulator)
	if err != nil {
		return err
	}
	o.h = bufs[BufferAccumulator]
	return nil
}

// scaledStep returns lr * g / (sqrt(h) + eps), evaluated in that order.
func scaledStep(lr float64, g, h vec.Vector, eps float64) vec.Vector {
	return g.Scale(lr).Div(h.Sqrt().AddScalar(eps))
}
