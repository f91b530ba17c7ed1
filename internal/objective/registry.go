package objective

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/cwbudde/descentbench/internal/opt"
)

// Spec selects and parameterizes an objective from configuration.
type Spec struct {
	Name string `json:"name" mapstructure:"name"`
	// Dim is used by objectives of variable dimension (rosenbrock).
	Dim int `json:"dim,omitempty" mapstructure:"dim"`
	// A and B are the elliptic coefficients; nil selects 1 and 5.
	A *float64 `json:"a,omitempty" mapstructure:"a"`
	B *float64 `json:"b,omitempty" mapstructure:"b"`
	// Hessian, Linear and Constant define a general quadratic.
	Hessian  [][]float64 `json:"hessian,omitempty" mapstructure:"hessian"`
	Linear   []float64   `json:"linear,omitempty" mapstructure:"linear"`
	Constant float64     `json:"constant,omitempty" mapstructure:"constant"`
}

type factory func(spec Spec) (Objective, error)

var registry = map[string]factory{
	"elliptic": func(spec Spec) (Objective, error) {
		if spec.Dim != 0 && spec.Dim != 2 {
			return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "dim", Value: spec.Dim, Message: "elliptic is 2-dimensional"})
		}
		e := DefaultElliptic()
		if spec.A != nil {
			e.A = *spec.A
		}
		if spec.B != nil {
			e.B = *spec.B
		}
		return e, nil
	},
	"quadratic": func(spec Spec) (Objective, error) {
		return NewQuadraticFromRows(spec.Hessian, spec.Linear, spec.Constant)
	},
	"rosenbrock": func(spec Spec) (Objective, error) {
		dim := spec.Dim
		if dim == 0 {
			dim = 2
		}
		if dim < 2 {
			return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "dim", Value: dim, Message: "rosenbrock needs at least 2 dimensions"})
		}
		return Rosenbrock(dim), nil
	},
	"beale": func(spec Spec) (Objective, error) {
		if spec.Dim != 0 && spec.Dim != 2 {
			return nil, errors.WithStack(&opt.InvalidArgumentError{Name: "dim", Value: spec.Dim, Message: "beale is 2-dimensional"})
		}
		return Beale(), nil
	},
}

// Names lists the registered objectives in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the objective named by spec.
func New(spec Spec) (Objective, error) {
	name := strings.ToLower(strings.TrimSpace(spec.Name))
	build, ok := registry[name]
	if !ok {
		return nil, errors.WithStack(&opt.InvalidArgumentError{
			Name:    "objective",
			Value:   spec.Name,
			Message: fmt.Sprintf("unknown objective, expected one of %s", strings.Join(Names(), ", ")),
		})
	}
	return build(spec)
}
