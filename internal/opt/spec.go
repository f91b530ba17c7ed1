package opt

import (
	"strings"

	"github.com/pkg/errors"
)

// Spec describes an optimizer in configuration files and API requests.
// Optional hyperparameters are pointers; nil selects the default.
type Spec struct {
	Kind     Kind     `json:"kind" mapstructure:"kind"`
	Name     string   `json:"name,omitempty" mapstructure:"name"`
	LR       float64  `json:"lr" mapstructure:"lr"`
	Momentum *float64 `json:"momentum,omitempty" mapstructure:"momentum"`
	Beta     *float64 `json:"beta,omitempty" mapstructure:"beta"`
	Beta1    *float64 `json:"beta1,omitempty" mapstructure:"beta1"`
	Beta2    *float64 `json:"beta2,omitempty" mapstructure:"beta2"`
	Eps      *float64 `json:"eps,omitempty" mapstructure:"eps"`
}

var kindAliases = map[string]Kind{
	"sgd":              KindSGD,
	"gd":               KindSGD,
	"gradient-descent": KindSGD,
	"momentum":         KindMomentum,
	"nesterov":         KindNesterov,
	"nag":              KindNesterov,
	"adagrad":          KindAdaGrad,
	"rmsprop":          KindRMSProp,
	"rms":              KindRMSProp,
	"adam":             KindAdam,
}

var kindLabels = map[Kind]string{
	KindSGD:      "SGD",
	KindMomentum: "Momentum",
	KindNesterov: "Nesterov",
	KindAdaGrad:  "AdaGrad",
	KindRMSProp:  "RMSProp",
	KindAdam:     "Adam",
}

// Kinds lists every supported update rule.
func Kinds() []Kind {
	return []Kind{KindSGD, KindMomentum, KindNesterov, KindAdaGrad, KindRMSProp, KindAdam}
}

// ParseKind resolves a case-insensitive optimizer name or alias.
func ParseKind(name string) (Kind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", errors.WithStack(&InvalidArgumentError{Name: "kind", Value: name, Message: "unknown optimizer"})
	}
	return kind, nil
}

// Label returns Name if set, otherwise the display name of the kind.
func (s Spec) Label() string {
	if s.Name != "" {
		return s.Name
	}
	if label, ok := kindLabels[s.Kind]; ok {
		return label
	}
	return string(s.Kind)
}

// Validate builds the optimizer for one dimension and discards it.
func (s Spec) Validate() error {
	_, err := s.Build(1)
	return err
}

// Build constructs the optimizer described by s for dim parameters. Unlike
// the New constructors, a non-nil zero hyperparameter is kept as zero.
func (s Spec) Build(dim int) (Optimizer, error) {
	kind, err := ParseKind(string(s.Kind))
	if err != nil {
		return nil, err
	}
	var o Optimizer
	switch kind {
	case KindSGD:
		o, err = NewGradientDescent(dim, SGDConfig{LR: s.LR})
	case KindMomentum, KindNesterov:
		config := DefaultMomentumConfig()
		config.LR = s.LR
		setIfPresent(&config.Momentum, s.Momentum)
		if kind == KindNesterov {
			o, err = newNesterov(dim, config)
		} else {
			o, err = newMomentum(dim, config)
		}
	case KindAdaGrad:
		config := DefaultAdaGradConfig()
		config.LR = s.LR
		setIfPresent(&config.Eps, s.Eps)
		o, err = newAdaGrad(dim, config)
	case KindRMSProp:
		config := DefaultRMSPropConfig()
		config.LR = s.LR
		setIfPresent(&config.Beta, s.Beta)
		setIfPresent(&config.Eps, s.Eps)
		o, err = newRMSProp(dim, config)
	case KindAdam:
		config := DefaultAdamConfig()
		config.LR = s.LR
		setIfPresent(&config.Beta1, s.Beta1)
		setIfPresent(&config.Beta2, s.Beta2)
		setIfPresent(&config.Eps, s.Eps)
		o, err = newAdam(dim, config)
	default:
		return nil, errors.Errorf("unhandled optimizer kind %s", kind)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// Float returns a pointer to v, for filling optional Spec fields.
func Float(v float64) *float64 {
	return &v
}

func setIfPresent(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
