package opt

import (
	"math/rand"

	"github.com/cwbudde/mayfly"
	"gonum.org/v1/gonum/floats"
)

// Searcher is a gradient-free global minimizer over a box. It is used to
// find a reference minimum for objectives without a known closed form.
type Searcher interface {
	Search(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64)
}

// MayflyAdapter wraps the external Mayfly library to conform to Searcher.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly searcher. popSize must be at least 20.
func NewMayfly(maxIters, popSize int, seed int64) Searcher {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Search runs the Mayfly algorithm and returns the best point found and its cost.
func (m *MayflyAdapter) Search(eval func([]float64) float64, lower, upper []float64, dim int) ([]float64, float64) {
	config := mayfly.NewDefaultConfig()

	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// The library takes scalar bounds, so search the box enclosing all
	// per-dimension bounds.
	config.LowerBound = floats.Min(lower)
	config.UpperBound = floats.Max(upper)

	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Fall back to the box center if optimization fails
		center := make([]float64, dim)
		for i := range center {
			center[i] = (config.LowerBound + config.UpperBound) / 2
		}
		return center, eval(center)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost
}
