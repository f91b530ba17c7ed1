// Package objective provides differentiable test functions for the
// optimizers in package opt.
package objective

import (
	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/vec"
)

// Objective is a smooth scalar function with an analytic gradient.
// Implementations are pure and safe for concurrent use.
type Objective interface {
	Name() string
	Dim() int
	Loss(x vec.Vector) float64
	Gradient(x vec.Vector) vec.Vector
}

// Minimizer is implemented by objectives with a known global minimum.
type Minimizer interface {
	Minimum() vec.Vector
}

// Bounded is implemented by objectives with a natural plotting and search box.
type Bounded interface {
	Bounds() (lower, upper vec.Vector)
}

// GradientFunc adapts o for opt.Advance and lookahead optimizers.
func GradientFunc(o Objective) opt.GradientFunc {
	return o.Gradient
}

// Box returns the bounds of o if it has them, otherwise a box of half-width
// radius around center.
func Box(o Objective, center vec.Vector, radius float64) (lower, upper vec.Vector) {
	if b, ok := o.(Bounded); ok {
		return b.Bounds()
	}
	return center.AddScalar(-radius), center.AddScalar(radius)
}
