// Package vec provides the fixed-length float64 vector used for parameters,
// gradients and optimizer state.
//
// All operations are functional: they allocate and return a new vector and
// never write into their receivers or arguments. Mismatched lengths panic,
// following gonum's floats package; code that handles external input checks
// lengths with SameLen before calling into this package.
package vec

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Vector is an ordered, fixed-dimension sequence of reals.
type Vector []float64

// Zeros returns a zero vector of length n.
func Zeros(n int) Vector {
	return make(Vector, n)
}

// Of builds a vector from values.
func Of(values ...float64) Vector {
	return Vector(values).Clone()
}

// Len returns the dimension of v.
func (v Vector) Len() int {
	return len(v)
}

// Clone returns a copy of v that shares no memory with it.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// SameLen reports whether v and w have the same dimension.
func (v Vector) SameLen(w Vector) bool {
	return len(v) == len(w)
}

// Add returns v + w.
func (v Vector) Add(w Vector) Vector {
	return floats.AddTo(make(Vector, len(v)), v, w)
}

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector {
	return floats.SubTo(make(Vector, len(v)), v, w)
}

// Mul returns the elementwise product of v and w.
func (v Vector) Mul(w Vector) Vector {
	return floats.MulTo(make(Vector, len(v)), v, w)
}

// Div returns the elementwise quotient v / w.
func (v Vector) Div(w Vector) Vector {
	return floats.DivTo(make(Vector, len(v)), v, w)
}

// Scale returns c * v.
func (v Vector) Scale(c float64) Vector {
	return floats.ScaleTo(make(Vector, len(v)), c, v)
}

// AddScaled returns v + c*w.
func (v Vector) AddScaled(c float64, w Vector) Vector {
	return floats.AddScaledTo(make(Vector, len(v)), v, c, w)
}

// DivScalar returns v with every element divided by c.
func (v Vector) DivScalar(c float64) Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = x / c
	}
	return out
}

// AddScalar returns v with c added to every element.
func (v Vector) AddScalar(c float64) Vector {
	out := v.Clone()
	floats.AddConst(c, out)
	return out
}

// Square returns the elementwise square of v.
func (v Vector) Square() Vector {
	return v.Mul(v)
}

// Sqrt returns the elementwise square root of v.
func (v Vector) Sqrt() Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = math.Sqrt(x)
	}
	return out
}

// Abs returns the elementwise absolute value of v.
func (v Vector) Abs() Vector {
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = math.Abs(x)
	}
	return out
}

// Norm returns the Euclidean norm of v.
func (v Vector) Norm() float64 {
	return floats.Norm(v, 2)
}

// Distance returns the Euclidean distance between v and w.
func (v Vector) Distance(w Vector) float64 {
	return floats.Distance(v, w, 2)
}

// Equal reports whether v and w have the same length and identical elements.
func (v Vector) Equal(w Vector) bool {
	return floats.Equal(v, w)
}

// EqualApprox reports whether v and w agree elementwise within tol.
func (v Vector) EqualApprox(w Vector, tol float64) bool {
	return floats.EqualApprox(v, w, tol)
}

// IsFinite reports whether every element of v is neither NaN nor infinite.
func (v Vector) IsFinite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Floats returns a copy of v as a plain slice, for serialization.
func (v Vector) Floats() []float64 {
	return []float64(v.Clone())
}
