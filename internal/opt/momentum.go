package opt

import (
	"github.com/pkg/errors"

	"github.com/cwbudde/descentbench/internal/vec"
)

// MomentumConfig holds configuration for Momentum and Nesterov.
type MomentumConfig struct {
	LR       float64 // Learning rate, required
	Momentum float64 // Velocity decay in [0, 1) (default: 0.9, used when zero)
}

// DefaultMomentumConfig returns the default configuration. LR must still be set.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{Momentum: 0.9}
}

// withDefaults replaces zero fields with their defaults.
func (c MomentumConfig) withDefaults() MomentumConfig {
	if c.Momentum == 0 {
		c.Momentum = DefaultMomentumConfig().Momentum
	}
	return c
}

// velocity is the state shared by the two momentum variants.
type velocity struct {
	base
	momentum float64
	v        vec.Vector
}

func newVelocity(dim int, config MomentumConfig) (velocity, error) {
	b, err := newBase(dim, config.LR)
	if err != nil {
		return velocity{}, err
	}
	if err := checkCoefficient("momentum", config.Momentum, false); err != nil {
		return velocity{}, err
	}
	return velocity{base: b, momentum: config.Momentum, v: vec.Zeros(dim)}, nil
}

// update applies v = momentum*v - lr*grads and returns params + v.
func (s *velocity) update(params, grads vec.Vector) vec.Vector {
	s.v = s.v.Scale(s.momentum).Sub(grads.Scale(s.lr))
	return params.Add(s.v)
}

// Reset zeroes the velocity.
func (s *velocity) Reset() {
	s.v = vec.Zeros(s.dim)
}

// Velocity returns a copy of the current velocity.
func (s *velocity) Velocity() vec.Vector {
	return s.v.Clone()
}

func (s *velocity) snapshot(kind Kind) State {
	return newState(kind, 0, map[string]vec.Vector{BufferVelocity: s.v})
}

func (s *velocity) restore(kind Kind, state State) error {
	bufs, err := state.buffers(kind, s.dim, BufferVelocity)
	if err != nil {
		return err
	}
	s.v = bufs[BufferVelocity]
	return nil
}

// Momentum implements gradient descent with a velocity term:
//
//	v = momentum * v - lr * grads
//	params = params + v
type Momentum struct {
	velocity
}

// NewMomentum creates a momentum optimizer for dim parameters. A zero
// Momentum selects the default; build through Spec for an explicit zero.
func NewMomentum(dim int, config MomentumConfig) (*Momentum, error) {
	return newMomentum(dim, config.withDefaults())
}

func newMomentum(dim int, config MomentumConfig) (*Momentum, error) {
	s, err := newVelocity(dim, config)
	if err != nil {
		return nil, err
	}
	return &Momentum{velocity: s}, nil
}

// MustNewMomentum is like NewMomentum but panics on error.
func MustNewMomentum(dim int, config MomentumConfig) *Momentum {
	o, err := NewMomentum(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindMomentum.
func (o *Momentum) Kind() Kind { return KindMomentum }

// Step applies one momentum update and returns the new parameters.
func (o *Momentum) Step(params, grads vec.Vector) (vec.Vector, error) {
	if err := o.checkStep(params, grads); err != nil {
		return nil, err
	}
	return o.update(params, grads), nil
}

// Snapshot captures the velocity.
func (o *Momentum) Snapshot() State { return o.snapshot(KindMomentum) }

// Restore replaces the velocity with the one held by state.
func (o *Momentum) Restore(state State) error { return o.restore(KindMomentum, state) }

// Nesterov implements Nesterov accelerated gradient. The gradient is taken at
// the point the velocity is about to carry the parameters to:
//
//	lookahead = params + momentum * v
//	v = momentum * v - lr * grad(lookahead)
//	params = params + v
//
// Because the lookahead point depends on v, callers pass a gradient function
// rather than a gradient.
type Nesterov struct {
	velocity
}

// NewNesterov creates a Nesterov optimizer for dim parameters. Zero fields
// select their defaults as in NewMomentum.
func NewNesterov(dim int, config MomentumConfig) (*Nesterov, error) {
	return newNesterov(dim, config.withDefaults())
}

func newNesterov(dim int, config MomentumConfig) (*Nesterov, error) {
	s, err := newVelocity(dim, config)
	if err != nil {
		return nil, err
	}
	return &Nesterov{velocity: s}, nil
}

// MustNewNesterov is like NewNesterov but panics on error.
func MustNewNesterov(dim int, config MomentumConfig) *Nesterov {
	o, err := NewNesterov(dim, config)
	if err != nil {
		panic(err)
	}
	return o
}

// Kind returns KindNesterov.
func (o *Nesterov) Kind() Kind { return KindNesterov }

// StepLookahead evaluates grad at the lookahead point and applies one update.
func (o *Nesterov) StepLookahead(params vec.Vector, grad GradientFunc) (vec.Vector, error) {
	if grad == nil {
		return nil, errors.WithStack(&InvalidArgumentError{Name: "grad", Value: nil, Message: "gradient function is required"})
	}
	if err := checkShape("params", o.dim, params); err != nil {
		return nil, err
	}
	lookahead := params.Add(o.v.Scale(o.momentum))
	grads := grad(lookahead)
	if err := checkShape("lookahead grads", o.dim, grads); err != nil {
		return nil, err
	}
	return o.update(params, grads), nil
}

// Snapshot captures the velocity.
func (o *Nesterov) Snapshot() State { return o.snapshot(KindNesterov) }

// Restore replaces the velocity with the one held by state.
func (o *Nesterov) Restore(state State) error { return o.restore(KindNesterov, state) }
