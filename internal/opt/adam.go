package opt

import (
	"math"

	"github.com/cwbudde/descentbench/internal/vec"
)

// AdamConfig holds configuration for Adam.
type AdamConfig struct {
	LR    float64 // Learning rate, required
	Beta1 float64 // First moment decay in [0, 1) (default: 0.9, used when zero)
	Beta2 float64 // Second moment decay in [0, 1) (default: 0.999, used when zero)
	Eps   float64 // Term for numerical stability (default: 1e-8, used when zero)
}

// DefaultAdamConfig returns the default configuration. LR must still be set.
func DefaultAdamConfig() AdamConfig {
	return AdamConfig{Beta1: 0.9, Beta2: 0.999, Eps: DefaultEps}
}

func (c AdamConfig) withDefaults() AdamConfig {
	d := DefaultAdamConfig()
	if c.Beta1 == 0 {
		c.Beta1 = d.Beta1
	}
	if c.Beta2 == 0 {
		c.Beta2 = d.Beta2
	}
	if c.Eps == 0 {
		c.Eps = d.Eps
	}
	return c
}

// Adam implements Adaptive Moment Estimation.
//
// Update rule:
//
//	t = t + 1
//	m = beta1 * m + (1 - beta1) * grads           // First moment
//	v = beta2 * v + (1 - beta2) * grads²          // Second moment
//	m_hat = m / (1 - beta1^t)                     // Bias correction
//	v_hat = v / (1 - beta2^t)                     // Bias correction
//	params = params - lr * m_hat / (sqrt(v_hat) + eps)
//
// Bias correction compensates for the zero initialization of m and v, so the
// first step moves every coordinate by about lr regardless of gradient scale.
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014)
type Adam struct {
	base
	beta1 float64
	beta2 float64
	eps   float64
	t     int        // Timestep for bias correction
	m     vec.Vector // First moment estimate
	v     vec.Vector // Second moment estimate
}

// NewAdam creates an Adam optimizer for dim parameters. Zero Beta1, Beta2
// or Eps select their defaults; build through Spec for explicit zeros.
func NewAdam(dim int, config AdamConfig) (*Adam, error) {
	return newAdam(dim, config.withDefaults())
}

func newAdam(dim int, config AdamConfig) (*Adam, error) {
	b, err := newBase(dim, config.LR)
	if err != nil {
		return nil, err
	}
	if err := checkCoefficient("beta1", config.Beta1, false); err != nil {
		return nil, err
	}
	if err := checkCoefficient("beta2", config.Beta2, false); err != nil {
		return nil, err
	}
	if err := checkEps(config.Eps); err != nil {
		return nil, err
	}
	return &Adam{
		base:  b,
		beta1: config.Beta1,
		beta2: config.Beta2,
		eps:   config.Eps,
		m:     vec.Zeros(dim),
		v:     vec.Zeros(dim),
	}, nil
}

// MustNewAdam is like NewAdam but panics on error.
func MustNewAdam(dim int, config AdamConfig) *Adam {
	o, err := NewAdam(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindAdam.
func (o *Adam) Kind() Kind { return KindAdam }

// Step advances the timestep, updates both moments and returns the
// bias-corrected update of params.
func (o *Adam) Step(params, grads vec.Vector) (vec.Vector, error) {
	if err := o.checkStep(params, grads); err != nil {
		return nil, err
	}

	o.t++
	o.m = o.m.Scale(o.beta1).Add(grads.Scale(1 - o.beta1))
	o.v = o.v.Scale(o.beta2).Add(grads.Square().Scale(1 - o.beta2))

	mHat := o.m.DivScalar(1 - math.Pow(o.beta1, float64(o.t)))
	vHat := o.v.DivScalar(1 - math.Pow(o.beta2, float64(o.t)))

	return params.Sub(scaledStep(o.lr, mHat, vHat, o.eps)), nil
}

// Reset zeroes both moments and the timestep.
func (o *Adam) Reset() {
	o.t = 0
	o.m = vec.Zeros(o.dim)
	o.v = vec.Zeros(o.dim)
}

// Timestep returns the number of steps taken since construction or Reset.
func (o *Adam) Timestep() int {
	return o.t
}

// Moments returns copies of the first and second moment estimates.
func (o *Adam) Moments() (m, v vec.Vector) {
	return o.m.Clone(), o.v.Clone()
}

// Snapshot captures the timestep and both moments.
func (o *Adam) Snapshot() State {
	return newState(KindAdam, o.t, map[string]vec.Vector{
		BufferFirstMoment:  o.m,
		BufferSecondMoment: o.v,
	})
}

// Restore replaces the timestep and moments with those held by state.
func (o *Adam) Restore(state State) error {
	bufs, err := state.buffers(KindAdam, o.dim, BufferFirstMoment, BufferSecondMoment)
	if err != nil {
		return err
	}
	o.t = state.Step
	o.m = bufs[BufferFirstMoment]
	o.v = bufs[BufferSecondMoment]
	return nil
}
