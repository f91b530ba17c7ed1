// Package opt implements first-order optimizers over fixed-dimension
// parameter vectors.
//
// Every optimizer is built for a dimension and allocates its zeroed state up
// front. A step returns a new parameter vector and never writes into the one
// it was given. Optimizers are not safe for concurrent use; run one instance
// per goroutine.
//
// Two call shapes exist. Most optimizers take a precomputed gradient
// (GradientStepper). Nesterov momentum evaluates the gradient at a point that
// depends on its own velocity, so it takes a gradient function instead
// (LookaheadStepper). Advance drives either kind from a gradient function.
package opt

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/cwbudde/descentbench/internal/vec"
)

// Kind identifies an update rule.
type Kind string

const (
	KindSGD      Kind = "sgd"
	KindMomentum Kind = "momentum"
	KindNesterov Kind = "nesterov"
	KindAdaGrad  Kind = "adagrad"
	KindRMSProp  Kind = "rmsprop"
	KindAdam     Kind = "adam"
)

// GradientFunc evaluates the gradient of an objective at x.
type GradientFunc func(x vec.Vector) vec.Vector

// Optimizer is the capability shared by all update rules.
type Optimizer interface {
	// Kind returns the update rule implemented by the optimizer.
	Kind() Kind
	// Dim returns the parameter dimension the optimizer was built for.
	Dim() int
	// LR returns the learning rate.
	LR() float64
	// Reset clears accumulators and counters. Hyperparameters persist.
	Reset()
	// Snapshot returns a copy of the internal state.
	Snapshot() State
	// Restore replaces the internal state with a snapshot taken from an
	// optimizer of the same kind and dimension.
	Restore(state State) error
}

// GradientStepper consumes a gradient computed by the caller.
type GradientStepper interface {
	Optimizer
	// Step returns the parameters after one update with grads.
	Step(params, grads vec.Vector) (vec.Vector, error)
}

// LookaheadStepper evaluates the gradient itself, at a point of its choosing.
type LookaheadStepper interface {
	Optimizer
	// StepLookahead returns the parameters after one update, calling grad
	// exactly once.
	StepLookahead(params vec.Vector, grad GradientFunc) (vec.Vector, error)
}

// Advance performs one update of o starting from params. Lookahead optimizers
// receive grad directly; the others receive grad(params).
func Advance(o Optimizer, params vec.Vector, grad GradientFunc) (vec.Vector, error) {
	if grad == nil {
		return nil, errors.WithStack(&InvalidArgumentError{Name: "grad", Value: nil, Message: "gradient function is required"})
	}
	switch s := o.(type) {
	case LookaheadStepper:
		return s.StepLookahead(params, grad)
	case GradientStepper:
		if err := checkShape("params", s.Dim(), params); err != nil {
			return nil, err
		}
		return s.Step(params, grad(params))
	default:
		return nil, errors.Errorf("optimizer %T supports neither gradient nor lookahead steps", o)
	}
}

// base holds what every optimizer has: a dimension and a learning rate.
type base struct {
	dim int
	lr  float64
}

func newBase(dim int, lr float64) (base, error) {
	if dim <= 0 {
		return base{}, errors.WithStack(&InvalidArgumentError{
			Name:    "dim",
			Value:   dim,
			Message: "must be positive",
		})
	}
	if !(lr > 0) || math.IsInf(lr, 0) {
		return base{}, errors.WithStack(&InvalidArgumentError{
			Name:    "lr",
			Value:   lr,
			Message: "outside allowed range (0, Inf)",
		})
	}
	return base{dim: dim, lr: lr}, nil
}

func (b base) Dim() int { return b.dim }

// LR returns the learning rate.
func (b base) LR() float64 { return b.lr }

// checkStep validates the vectors passed to a value-based step.
func (b base) checkStep(params, grads vec.Vector) error {
	if err := checkShape("params", b.dim, params); err != nil {
		return err
	}
	return checkShape("grads", b.dim, grads)
}

func checkShape(name string, dim int, v vec.Vector) error {
	if v.Len() != dim {
		return errors.WithStack(&ShapeMismatchError{Name: name, Want: dim, Got: v.Len()})
	}
	return nil
}

// checkCoefficient rejects c outside [0, 1), or [0, 1] when closed is set.
func checkCoefficient(name string, c float64, closed bool) error {
	if c >= 0 && (c < 1 || (closed && c == 1)) {
		return nil
	}
	bound := "[0, 1)"
	if closed {
		bound = "[0, 1]"
	}
	return errors.WithStack(&InvalidArgumentError{
		Name:    name,
		Value:   c,
		Message: fmt.Sprintf("outside allowed range %s", bound),
	})
}

func checkEps(eps float64) error {
	if eps >= 0 && !math.IsInf(eps, 0) {
		return nil
	}
	return errors.WithStack(&InvalidArgumentError{
		Name:    "eps",
		Value:   eps,
		Message: "outside allowed range [0, Inf)",
	})
}
