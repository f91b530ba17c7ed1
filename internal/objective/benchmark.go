package objective

import (
	"gonum.org/v1/gonum/optimize/functions"

	"github.com/cwbudde/descentbench/internal/vec"
)

// benchmark adapts a function from gonum's optimize/functions collection.
type benchmark struct {
	name    string
	dim     int
	f       func(x []float64) float64
	grad    func(grad, x []float64)
	minimum vec.Vector
	lower   vec.Vector
	upper   vec.Vector
}

// Rosenbrock returns the extended Rosenbrock function in dim dimensions,
// with its curved valley and minimum at (1, ..., 1).
func Rosenbrock(dim int) Objective {
	f := functions.ExtendedRosenbrock{}
	return &benchmark{
		name:    "rosenbrock",
		dim:     dim,
		f:       f.Func,
		grad:    func(grad, x []float64) { f.Grad(grad, x) },
		minimum: vec.Zeros(dim).AddScalar(1),
		lower:   vec.Zeros(dim).AddScalar(-2),
		upper:   vec.Zeros(dim).AddScalar(2),
	}
}

// Beale returns Beale's function, minimum at (3, 0.5).
func Beale() Objective {
	f := functions.Beale{}
	return &benchmark{
		name:    "beale",
		dim:     2,
		f:       f.Func,
		grad:    func(grad, x []float64) { f.Grad(grad, x) },
		minimum: vec.Of(3, 0.5),
		lower:   vec.Of(-4.5, -4.5),
		upper:   vec.Of(4.5, 4.5),
	}
}

func (b *benchmark) Name() string { return b.name }

func (b *benchmark) Dim() int { return b.dim }

func (b *benchmark) Loss(x vec.Vector) float64 {
	return b.f(x)
}

func (b *benchmark) Gradient(x vec.Vector) vec.Vector {
	grad := vec.Zeros(len(x))
	b.grad(grad, x)
	return grad
}

func (b *benchmark) Minimum() vec.Vector {
	return b.minimum.Clone()
}

func (b *benchmark) Bounds() (lower, upper vec.Vector) {
	return b.lower.Clone(), b.upper.Clone()
}
