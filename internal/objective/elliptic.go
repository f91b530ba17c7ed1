package objective

import "github.com/cwbudde/descentbench/internal/vec"

// Elliptic is f(x, y) = a*x² + b*y², an axis-aligned bowl whose condition
// number b/a controls how hard it is for plain gradient descent.
type Elliptic struct {
	A float64
	B float64
}

// DefaultElliptic returns the bowl with a = 1 and b = 5.
func DefaultElliptic() Elliptic {
	return Elliptic{A: 1, B: 5}
}

func (e Elliptic) Name() string { return "elliptic" }

func (e Elliptic) Dim() int { return 2 }

func (e Elliptic) Loss(x vec.Vector) float64 {
	return e.A*x[0]*x[0] + e.B*x[1]*x[1]
}

func (e Elliptic) Gradient(x vec.Vector) vec.Vector {
	return vec.Of(2*e.A*x[0], 2*e.B*x[1])
}

func (e Elliptic) Minimum() vec.Vector {
	return vec.Zeros(2)
}

func (e Elliptic) Bounds() (lower, upper vec.Vector) {
	return vec.Of(-6, -6), vec.Of(6, 6)
}
