package objective

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/descentbench/internal/opt"
	"github.com/cwbudde/descentbench/internal/vec"
)

// Quadratic is the convex quadratic f(x) = ½ xᵀAx + bᵀx + c with A
// symmetric positive definite. Its gradient is Ax + b and its unique
// minimizer solves Ax = -b.
type Quadratic struct {
	a       *mat.SymDense
	b       *mat.VecDense
	c       float64
	minimum vec.Vector
}

// NewQuadratic copies a and b and checks that a is positive definite.
func NewQuadratic(a mat.Symmetric, b []float64, c float64) (*Quadratic, error) {
	n := a.SymmetricDim()
	if n == 0 {
		return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "hessian", Value: n, Message: "must not be empty"})
	}
	if b == nil {
		b = make([]float64, n)
	}
	if len(b) != n {
		return nil, errors.WithStack(&opt.ShapeMismatchError{Name: "linear", Want: n, Got: len(b)})
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "hessian", Value: "matrix", Message: "must be positive definite"})
	}

	q := &Quadratic{
		a: mat.NewSymDense(n, nil),
		b: mat.NewVecDense(n, vec.Vector(b).Clone()),
		c: c,
	}
	q.a.CopySym(a)

	var negB mat.VecDense
	negB.ScaleVec(-1, q.b)
	q.minimum = vec.Zeros(n)
	if err := chol.SolveVecTo(mat.NewVecDense(n, q.minimum), &negB); err != nil {
		return nil, errors.Wrap(err, "failed to solve for minimum")
	}
	return q, nil
}

// NewQuadraticFromRows builds a Quadratic from a row-major Hessian, as read
// from configuration.
func NewQuadraticFromRows(rows [][]float64, b []float64, c float64) (*Quadratic, error) {
	n := len(rows)
	if n == 0 {
		return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "hessian", Value: n, Message: "must not be empty"})
	}
	for _, row := range rows {
		if len(row) != n {
			return nil, errors.WithStack(&opt.ShapeMismatchError{Name: "hessian row", Want: n, Got: len(row)})
		}
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		for j := range row {
			if row[j] != rows[j][i] {
				return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "hessian", Value: rows, Message: "must be symmetric"})
			}
		}
		data = append(data, row...)
	}
	return NewQuadratic(mat.NewSymDense(n, data), b, c)
}

func (q *Quadratic) Name() string { return "quadratic" }

func (q *Quadratic) Dim() int { return q.b.Len() }

func (q *Quadratic) Loss(x vec.Vector) float64 {
	xv := mat.NewVecDense(len(x), x.Clone())
	var ax mat.VecDense
	ax.MulVec(q.a, xv)
	return 0.5*mat.Dot(xv, &ax) + mat.Dot(q.b, xv) + q.c
}

func (q *Quadratic) Gradient(x vec.Vector) vec.Vector {
	out := vec.Zeros(len(x))
	dst := mat.NewVecDense(len(x), out)
	dst.MulVec(q.a, mat.NewVecDense(len(x), x.Clone()))
	dst.AddVec(dst, q.b)
	return out
}

func (q *Quadratic) Minimum() vec.Vector {
	return q.minimum.Clone()
}
