package opt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/descentbench/internal/vec"
)

// ellipticGrad is the gradient of f(x, y) = x² + 5y².
func ellipticGrad(x vec.Vector) vec.Vector {
	return vec.Of(2*x[0], 10*x[1])
}

func ellipticLoss(x vec.Vector) float64 {
	return x[0]*x[0] + 5*x[1]*x[1]
}

func allSpecs() map[string]Spec {
	return map[string]Spec{
		"sgd":      {Kind: KindSGD, LR: 0.05},
		"momentum": {Kind: KindMomentum, LR: 0.05},
		"nesterov": {Kind: KindNesterov, LR: 0.05},
		"adagrad":  {Kind: KindAdaGrad, LR: 0.5},
		"rmsprop":  {Kind: KindRMSProp, LR: 0.1},
		"adam":     {Kind: KindAdam, LR: 0.1},
	}
}

func TestResetMatchesFreshOptimizer(t *testing.T) {
	for name, spec := range allSpecs() {
		t.Run(name, func(t *testing.T) {
			used, err := spec.Build(2)
			require.NoError(t, err)
			fresh, err := spec.Build(2)
			require.NoError(t, err)

			p := vec.Of(5, 5)
			for i := 0; i < 7; i++ {
				p, err = Advance(used, p, ellipticGrad)
				require.NoError(t, err)
			}
			used.Reset()

			start := vec.Of(-1.5, 3)
			got, err := Advance(used, start, ellipticGrad)
			require.NoError(t, err)
			want, err := Advance(fresh, start, ellipticGrad)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, fresh.Snapshot(), used.Snapshot())
		})
	}
}

func TestResetTwiceEqualsResetOnce(t *testing.T) {
	for name, spec := range allSpecs() {
		t.Run(name, func(t *testing.T) {
			once, err := spec.Build(2)
			require.NoError(t, err)
			twice, err := spec.Build(2)
			require.NoError(t, err)

			p := vec.Of(5, 5)
			for _, o := range []Optimizer{once, twice} {
				q := p
				for i := 0; i < 3; i++ {
					q, err = Advance(o, q, ellipticGrad)
					require.NoError(t, err)
				}
			}
			once.Reset()
			twice.Reset()
			twice.Reset()
			assert.Equal(t, once.Snapshot(), twice.Snapshot())
		})
	}
}

func TestStepDoesNotMutateInputs(t *testing.T) {
	for name, spec := range allSpecs() {
		t.Run(name, func(t *testing.T) {
			o, err := spec.Build(2)
			require.NoError(t, err)
			params := vec.Of(1, -2)
			before := params.Clone()
			_, err = Advance(o, params, ellipticGrad)
			require.NoError(t, err)
			assert.Equal(t, before, params)
		})
	}
}

func TestGradientDescentIsExact(t *testing.T) {
	tests := map[string]struct {
		lr     float64
		params vec.Vector
		grads  vec.Vector
	}{
		"scalar":      {lr: 0.1, params: vec.Of(1), grads: vec.Of(0.3)},
		"mixed signs": {lr: 0.05, params: vec.Of(1, -2, 3.5), grads: vec.Of(0.5, 0.25, -1)},
		"tiny lr":     {lr: 1e-12, params: vec.Of(7, 7, 7, 7), grads: vec.Of(1e6, -1e6, 3, 0)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			o := MustNewGradientDescent(tc.params.Len(), SGDConfig{LR: tc.lr})
			want := vec.Zeros(tc.params.Len())
			for i := range want {
				want[i] = tc.params[i] - float64(tc.lr*tc.grads[i])
			}
			for i := 0; i < 3; i++ {
				got, err := o.Step(tc.params, tc.grads)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			assert.Empty(t, o.Snapshot().Buffers)
		})
	}
}

func TestMomentumAccumulatesVelocity(t *testing.T) {
	o := MustNewMomentum(1, MomentumConfig{LR: 0.1, Momentum: 0.5})
	p := vec.Of(0)
	g := vec.Of(1)

	p, err := o.Step(p, g)
	require.NoError(t, err)
	assert.Equal(t, vec.Of(-0.1), o.Velocity())
	assert.Equal(t, vec.Of(-0.1), p)

	p, err = o.Step(p, g)
	require.NoError(t, err)
	assert.InDelta(t, -0.15, o.Velocity()[0], 1e-15)
	assert.InDelta(t, -0.25, p[0], 1e-15)
}

func TestDefaultHyperparameters(t *testing.T) {
	assert.Equal(t, 0.9, DefaultMomentumConfig().Momentum)
	assert.Equal(t, 1e-8, DefaultAdaGradConfig().Eps)
	assert.Equal(t, RMSPropConfig{Beta: 0.9, Eps: 1e-8}, DefaultRMSPropConfig())
	assert.Equal(t, AdamConfig{Beta1: 0.9, Beta2: 0.999, Eps: 1e-8}, DefaultAdamConfig())
}

func TestConstructorsFillZeroFieldsWithDefaults(t *testing.T) {
	momentum := MustNewMomentum(2, MomentumConfig{LR: 0.1})
	assert.Equal(t, 0.9, momentum.momentum)
	nesterov := MustNewNesterov(2, MomentumConfig{LR: 0.1})
	assert.Equal(t, 0.9, nesterov.momentum)

	adagrad := MustNewAdaGrad(2, AdaGradConfig{LR: 0.5})
	assert.Equal(t, DefaultEps, adagrad.eps)

	rms := MustNewRMSProp(2, RMSPropConfig{LR: 0.1})
	assert.Equal(t, 0.9, rms.beta)
	assert.Equal(t, DefaultEps, rms.eps)

	adam := MustNewAdam(2, AdamConfig{LR: 0.1, Beta2: 0.99})
	assert.Equal(t, 0.9, adam.beta1)
	assert.Equal(t, 0.99, adam.beta2)
	assert.Equal(t, DefaultEps, adam.eps)

	// A zero gradient coordinate must stay put rather than turn into 0/0.
	for _, o := range []GradientStepper{adagrad, rms, adam} {
		got, err := o.Step(vec.Of(5, 1), vec.Of(10, 0))
		require.NoError(t, err)
		assert.True(t, got.IsFinite(), "%s", o.Kind())
		assert.Equal(t, 1.0, got[1], "%s", o.Kind())
		assert.Less(t, got[0], 5.0, "%s", o.Kind())
	}
}

func TestNesterovWithoutMomentumEqualsGradientDescent(t *testing.T) {
	o, err := Spec{Kind: KindNesterov, LR: 0.05, Momentum: Float(0)}.Build(2)
	require.NoError(t, err)
	nag := o.(*Nesterov)
	gd := MustNewGradientDescent(2, SGDConfig{LR: 0.05})

	p := vec.Of(5, 5)
	q := vec.Of(5, 5)
	for i := 0; i < 20; i++ {
		p, err = nag.StepLookahead(p, ellipticGrad)
		require.NoError(t, err)
		q, err = gd.Step(q, ellipticGrad(q))
		require.NoError(t, err)
		require.Equal(t, q, p, "iteration %d", i)
	}
}

func TestNesterovEvaluatesAtLookaheadPoint(t *testing.T) {
	o := MustNewNesterov(1, MomentumConfig{LR: 0.1, Momentum: 0.5})

	var seen []vec.Vector
	grad := func(x vec.Vector) vec.Vector {
		seen = append(seen, x.Clone())
		return vec.Of(1)
	}

	p, err := o.StepLookahead(vec.Of(0), grad)
	require.NoError(t, err)
	_, err = o.StepLookahead(p, grad)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, vec.Of(0), seen[0])
	// second lookahead: p + 0.5 * v = -0.1 + 0.5 * -0.1
	assert.InDelta(t, -0.15, seen[1][0], 1e-15)
}

func TestAdaGradAccumulator(t *testing.T) {
	g := vec.Of(0.5, -2, 0.25)
	o := MustNewAdaGrad(3, AdaGradConfig{LR: 0.1, Eps: DefaultEps})

	p := vec.Of(1, 1, 1)
	var lastStep vec.Vector
	for k := 1; k <= 10; k++ {
		next, err := o.Step(p, g)
		require.NoError(t, err)

		assert.Equal(t, g.Square().Scale(float64(k)), o.Accumulator(), "step %d", k)

		size := p.Sub(next).Abs()
		if lastStep != nil {
			for i := range size {
				assert.LessOrEqual(t, size[i], lastStep[i], "step %d coordinate %d", k, i)
			}
		}
		lastStep = size
		p = next
	}
}

func TestRMSPropWithoutMemoryNormalizesByGradient(t *testing.T) {
	const lr = 0.1
	built, err := Spec{Kind: KindRMSProp, LR: lr, Beta: Float(0)}.Build(2)
	require.NoError(t, err)
	o := built.(*RMSProp)

	p := vec.Of(1, 2)
	_, err = o.Step(p, vec.Of(100, -100))
	require.NoError(t, err)

	g := vec.Of(0.5, -4)
	got, err := o.Step(p, g)
	require.NoError(t, err)

	assert.Equal(t, g.Square(), o.Accumulator())
	want := vec.Zeros(2)
	for i := range want {
		want[i] = p[i] - float64(lr*g[i])/(math.Abs(g[i])+DefaultEps)
	}
	assert.Equal(t, want, got)
}

func TestRMSPropFullDecayNeverUpdates(t *testing.T) {
	o := MustNewRMSProp(2, RMSPropConfig{LR: 1e-9, Beta: 1, Eps: DefaultEps})

	p := vec.Of(1, 2)
	for i := 0; i < 5; i++ {
		var err error
		p, err = o.Step(p, vec.Of(3, -1))
		require.NoError(t, err)
		assert.Equal(t, vec.Zeros(2), o.Accumulator())
	}
}

func TestAdamFirstStepCancelsBiasCorrection(t *testing.T) {
	const lr = 0.1
	o := MustNewAdam(3, AdamConfig{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: DefaultEps})

	p := vec.Of(1, -1, 0.5)
	g := vec.Of(0.2, -3, 1e-4)
	got, err := o.Step(p, g)
	require.NoError(t, err)

	assert.Equal(t, 1, o.Timestep())
	m, v := o.Moments()
	for i := range g {
		assert.InEpsilon(t, g[i], m[i]/(1-0.9), 1e-12)
		assert.InEpsilon(t, g[i]*g[i], v[i]/(1-0.999), 1e-12)

		want := p[i] - lr*g[i]/(math.Abs(g[i])+DefaultEps)
		assert.InDelta(t, want, got[i], 1e-12)
	}
}

func TestAdamBiasCorrectionAcrossSteps(t *testing.T) {
	o := MustNewAdam(1, AdamConfig{LR: 0.1})

	// m_t, v_t and the parameter after each step for g = 2, -1, 0.5 from 1.
	tests := []struct {
		grad   float64
		m      float64
		v      float64
		params float64
	}{
		// m = 0.1*2, v = 0.001*4, m_hat = 2, v_hat = 4
		{grad: 2, m: 0.2, v: 0.004, params: 0.9000000005},
		// m = 0.18 - 0.1, v = 0.003996 + 0.001, m_hat = 0.08/0.19, v_hat = 0.004996/0.001999
		{grad: -1, m: 0.08, v: 0.004996, params: 0.8733662967024315},
		// m = 0.072 + 0.05, v = 0.004991004 + 0.00025, m_hat = 0.122/0.271, v_hat = 0.005241004/0.002997001
		{grad: 0.5, m: 0.122, v: 0.005241004, params: 0.8393233821389426},
	}

	p := vec.Of(1)
	for i, tt := range tests {
		var err error
		p, err = o.Step(p, vec.Of(tt.grad))
		require.NoError(t, err)

		assert.Equal(t, i+1, o.Timestep())
		m, v := o.Moments()
		assert.InDelta(t, tt.m, m[0], 1e-15, "step %d", i+1)
		assert.InDelta(t, tt.v, v[0], 1e-15, "step %d", i+1)
		assert.InDelta(t, tt.params, p[0], 1e-12, "step %d", i+1)
	}
}

func TestRMSPropDecaysAccumulator(t *testing.T) {
	o := MustNewRMSProp(1, RMSPropConfig{LR: 0.1})

	tests := []struct {
		grad   float64
		h      float64
		params float64
	}{
		{grad: 2, h: 0.4, params: 0.683772238983162},
		// h = 0.9*0.4 + 0.1*1
		{grad: -1, h: 0.46, params: 0.8312141929641461},
		// h = 0.9*0.46 + 0.1*0.25
		{grad: 0.5, h: 0.439, params: 0.7557505550439755},
	}

	p := vec.Of(1)
	for i, tt := range tests {
		var err error
		p, err = o.Step(p, vec.Of(tt.grad))
		require.NoError(t, err)

		assert.InDelta(t, tt.h, o.Accumulator()[0], 1e-15, "step %d", i+1)
		assert.InDelta(t, tt.params, p[0], 1e-12, "step %d", i+1)
	}
}

func TestAdamResetClearsTimestep(t *testing.T) {
	o := MustNewAdam(1, AdamConfig{LR: 0.1, Beta1: 0.9, Beta2: 0.999, Eps: DefaultEps})
	for i := 0; i < 4; i++ {
		_, err := o.Step(vec.Of(1), vec.Of(1))
		require.NoError(t, err)
	}
	assert.Equal(t, 4, o.Timestep())
	o.Reset()
	assert.Equal(t, 0, o.Timestep())
	m, v := o.Moments()
	assert.Equal(t, vec.Zeros(1), m)
	assert.Equal(t, vec.Zeros(1), v)
}

func TestGradientDescentEndToEnd(t *testing.T) {
	o := MustNewGradientDescent(2, SGDConfig{LR: 0.05})
	p := vec.Of(5, 5)
	last := ellipticLoss(p)
	for i := 0; i < 100; i++ {
		var err error
		p, err = Advance(o, p, ellipticGrad)
		require.NoError(t, err)
		loss := ellipticLoss(p)
		require.Less(t, loss, last, "iteration %d", i)
		last = loss
	}
	assert.Less(t, last, 1e-6)
	assert.InDelta(t, 0, p[0], 1e-3)
	assert.InDelta(t, 0, p[1], 1e-3)
}

func TestConstructorValidation(t *testing.T) {
	tests := map[string]func() error{
		"zero dim": func() error {
			_, err := NewGradientDescent(0, SGDConfig{LR: 0.1})
			return err
		},
		"zero lr": func() error {
			_, err := NewGradientDescent(2, SGDConfig{LR: 0})
			return err
		},
		"negative lr": func() error {
			_, err := NewAdam(2, AdamConfig{LR: -1, Beta1: 0.9, Beta2: 0.999})
			return err
		},
		"NaN lr": func() error {
			_, err := NewAdaGrad(2, AdaGradConfig{LR: math.NaN()})
			return err
		},
		"infinite lr": func() error {
			_, err := NewAdaGrad(2, AdaGradConfig{LR: math.Inf(1)})
			return err
		},
		"momentum one": func() error {
			_, err := NewMomentum(2, MomentumConfig{LR: 0.1, Momentum: 1})
			return err
		},
		"negative momentum": func() error {
			_, err := NewNesterov(2, MomentumConfig{LR: 0.1, Momentum: -0.1})
			return err
		},
		"rmsprop beta above one": func() error {
			_, err := NewRMSProp(2, RMSPropConfig{LR: 0.1, Beta: 1.01})
			return err
		},
		"adam beta1 one": func() error {
			_, err := NewAdam(2, AdamConfig{LR: 0.1, Beta1: 1, Beta2: 0.999})
			return err
		},
		"adam beta2 one": func() error {
			_, err := NewAdam(2, AdamConfig{LR: 0.1, Beta1: 0.9, Beta2: 1})
			return err
		},
		"negative eps": func() error {
			_, err := NewRMSProp(2, RMSPropConfig{LR: 0.1, Beta: 0.9, Eps: -1e-8})
			return err
		},
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			err := build()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			var invalid *InvalidArgumentError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}

func TestMustNewPanicsOnInvalidConfig(t *testing.T) {
	assert.Panics(t, func() { MustNewMomentum(2, MomentumConfig{LR: 0}) })
	assert.NotPanics(t, func() { MustNewRMSProp(2, RMSPropConfig{LR: 0.1, Beta: 1}) })
}

func TestShapeMismatchLeavesStateUntouched(t *testing.T) {
	tests := map[string]struct {
		spec   Spec
		params vec.Vector
		grads  vec.Vector
	}{
		"short grads":  {spec: Spec{Kind: KindAdam, LR: 0.1}, params: vec.Of(1, 2), grads: vec.Of(1)},
		"long params":  {spec: Spec{Kind: KindMomentum, LR: 0.1}, params: vec.Of(1, 2, 3), grads: vec.Of(1, 2, 3)},
		"nil grads":    {spec: Spec{Kind: KindAdaGrad, LR: 0.1}, params: vec.Of(1, 2), grads: nil},
		"rmsprop long": {spec: Spec{Kind: KindRMSProp, LR: 0.1}, params: vec.Of(1, 2), grads: vec.Of(1, 2, 3)},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			o, err := tc.spec.Build(2)
			require.NoError(t, err)
			_, err = o.(GradientStepper).Step(vec.Of(1, 1), vec.Of(0.5, -0.5))
			require.NoError(t, err)
			before := o.Snapshot()

			_, err = o.(GradientStepper).Step(tc.params, tc.grads)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShapeMismatch)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.Equal(t, before, o.Snapshot())
		})
	}
}

func TestNesterovRejectsWrongLookaheadGradient(t *testing.T) {
	o := MustNewNesterov(2, MomentumConfig{LR: 0.1, Momentum: 0.9})
	_, err := o.StepLookahead(vec.Of(1, 1), ellipticGrad)
	require.NoError(t, err)
	before := o.Velocity()

	calls := 0
	_, err = o.StepLookahead(vec.Of(1, 1), func(x vec.Vector) vec.Vector {
		calls++
		return vec.Of(1)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "lookahead grads", mismatch.Name)
	assert.Equal(t, 2, mismatch.Want)
	assert.Equal(t, 1, mismatch.Got)
	assert.Equal(t, before, o.Velocity())

	_, err = o.StepLookahead(vec.Of(1, 1), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestAdvance(t *testing.T) {
	gd := MustNewGradientDescent(2, SGDConfig{LR: 0.1})

	_, err := Advance(gd, vec.Of(1, 1), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	called := false
	_, err = Advance(gd, vec.Of(1, 1, 1), func(x vec.Vector) vec.Vector {
		called = true
		return x
	})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	assert.False(t, called)

	got, err := Advance(gd, vec.Of(1, 1), ellipticGrad)
	require.NoError(t, err)
	assert.Equal(t, vec.Of(0.8, 0), got)
}

func TestSnapshotRestore(t *testing.T) {
	for name, spec := range allSpecs() {
		t.Run(name, func(t *testing.T) {
			a, err := spec.Build(2)
			require.NoError(t, err)
			p := vec.Of(5, 5)
			for i := 0; i < 5; i++ {
				p, err = Advance(a, p, ellipticGrad)
				require.NoError(t, err)
			}

			state := a.Snapshot()
			b, err := spec.Build(2)
			require.NoError(t, err)
			require.NoError(t, b.Restore(state))
			assert.Equal(t, state, b.Snapshot())

			nextA, err := Advance(a, p, ellipticGrad)
			require.NoError(t, err)
			nextB, err := Advance(b, p, ellipticGrad)
			require.NoError(t, err)
			assert.Equal(t, nextA, nextB)

			if spec.Kind != KindSGD {
				// the snapshot is a copy
				assert.NotEqual(t, a.Snapshot(), state)
			}
		})
	}
}

func TestRestoreRejectsForeignState(t *testing.T) {
	adam := MustNewAdam(2, AdamConfig{LR: 0.1, Beta1: 0.9, Beta2: 0.999, Eps: DefaultEps})
	rms := MustNewRMSProp(2, RMSPropConfig{LR: 0.1, Beta: 0.9})
	momentum := MustNewMomentum(3, MomentumConfig{LR: 0.1, Momentum: 0.9})

	err := adam.Restore(rms.Snapshot())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = rms.Restore(State{Kind: KindRMSProp, Buffers: map[string][]float64{BufferAccumulator: {1, 2, 3}}})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	err = rms.Restore(State{Kind: KindRMSProp})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = adam.Restore(State{Kind: KindAdam, Step: -1, Buffers: map[string][]float64{
		BufferFirstMoment:  {0, 0},
		BufferSecondMoment: {0, 0},
	}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = momentum.Restore(State{Kind: KindMomentum, Buffers: map[string][]float64{BufferAccumulator: {0, 0, 0}}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, 0, adam.Timestep())
}

func TestParseKind(t *testing.T) {
	tests := map[string]struct {
		input string
		kind  Kind
	}{
		"lowercase":        {input: "adam", kind: KindAdam},
		"mixed case":       {input: "RMSProp", kind: KindRMSProp},
		"padded":           {input: "  sgd ", kind: KindSGD},
		"gd alias":         {input: "gd", kind: KindSGD},
		"nag alias":        {input: "NAG", kind: KindNesterov},
		"adagrad":          {input: "AdaGrad", kind: KindAdaGrad},
		"momentum":         {input: "momentum", kind: KindMomentum},
		"gradient-descent": {input: "gradient-descent", kind: KindSGD},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			kind, err := ParseKind(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.kind, kind)
		})
	}

	_, err := ParseKind("lbfgs")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Len(t, Kinds(), 6)
}

func TestSpecBuild(t *testing.T) {
	o, err := Spec{Kind: KindNesterov, LR: 0.05, Momentum: Float(0)}.Build(3)
	require.NoError(t, err)
	assert.Equal(t, KindNesterov, o.Kind())
	assert.Equal(t, 3, o.Dim())
	assert.Equal(t, 0.05, o.LR())
	assert.Equal(t, 0.0, o.(*Nesterov).momentum)

	o, err = Spec{Kind: "RMS", LR: 0.1}.Build(2)
	require.NoError(t, err)
	assert.Equal(t, 0.9, o.(*RMSProp).beta)
	assert.Equal(t, DefaultEps, o.(*RMSProp).eps)

	o, err = Spec{Kind: KindAdam, LR: 0.1, Beta1: Float(0.5), Eps: Float(0)}.Build(2)
	require.NoError(t, err)
	adam := o.(*Adam)
	assert.Equal(t, 0.5, adam.beta1)
	assert.Equal(t, 0.999, adam.beta2)
	assert.Equal(t, 0.0, adam.eps)

	_, err = Spec{Kind: KindMomentum, LR: 0.1, Momentum: Float(1.5)}.Build(2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Error(t, Spec{Kind: KindSGD}.Validate())
	assert.Error(t, Spec{Kind: "newton", LR: 1}.Validate())
	assert.NoError(t, Spec{Kind: KindSGD, LR: 1}.Validate())
}

func TestSpecLabel(t *testing.T) {
	assert.Equal(t, "Adam", Spec{Kind: KindAdam}.Label())
	assert.Equal(t, "fast sgd", Spec{Kind: KindSGD, Name: "fast sgd"}.Label())
	assert.Equal(t, "custom", Spec{Kind: "custom"}.Label())
}
