package opt

import "github.com/cwbudde/descentbench/internal/vec"

// GradientDescent implements plain gradient descent:
//
//	params = params - lr * grads
//
// It carries no state.
type GradientDescent struct {
	base
}

// SGDConfig holds configuration for GradientDescent.
type SGDConfig struct {
	LR float64 // Learning rate, required
}

// NewGradientDescent creates a gradient descent optimizer for dim parameters.
func NewGradientDescent(dim int, config SGDConfig) (*GradientDescent, error) {
	b, err := newBase(dim, config.LR)
	if err != nil {
		return nil, err
	}
	return &GradientDescent{base: b}, nil
}

// MustNewGradientDescent is like NewGradientDescent but panics on error.
func MustNewGradientDescent(dim int, config SGDConfig) *GradientDescent {
	o, err := NewGradientDescent(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindSGD.
func (o *GradientDescent) Kind() Kind { return KindSGD }

// Step returns params - lr * grads.
func (o *GradientDescent) Step(params, grads vec.Vector) (vec.Vector, error) {
	if err := o.checkStep(params, grads); err != nil {
		return nil, err
	}
	return params.Sub(grads.Scale(o.lr)), nil
}

// Reset is a no-op; gradient descent has no state.
func (o *GradientDescent) Reset() {}

// Snapshot returns an empty state tagged with KindSGD.
func (o *GradientDescent) Snapshot() State {
	return newState(KindSGD, 0, nil)
}

// Restore accepts any state of the same kind and dimension.
func (o *GradientDescent) Restore(state State) error {
	_, err := state.buffers(KindSGD, o.dim)
	return err
}
