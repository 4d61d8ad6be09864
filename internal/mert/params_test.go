package mert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() []ParamSpec {
	return []ParamSpec{
		unboundedParam("lm"),
		{Name: "wp", Optimizable: true, Default: -1, MinThreshold: -5, MaxThreshold: 0, RandMin: -3, RandMax: 0},
		{Name: "phrase", Default: 0.5, MinThreshold: negInf, MaxThreshold: posInf},
	}
}

func TestValidateAccepts(t *testing.T) {
	warnings, err := Validate(validParams())
	require.NoError(t, err)
	assert.Empty(t, warnings)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]ParamSpec)
	}{
		{"empty name", func(p []ParamSpec) { p[0].Name = "" }},
		{"duplicate name", func(p []ParamSpec) { p[1].Name = "lm" }},
		{"reversed critical range", func(p []ParamSpec) { p[1].MinThreshold, p[1].MaxThreshold = 0, -5 }},
		{"default outside range", func(p []ParamSpec) { p[1].Default = 3 }},
		{"reversed random range", func(p []ParamSpec) { p[0].RandMin, p[0].RandMax = 1, -1 }},
		{"infinite random range", func(p []ParamSpec) { p[0].RandMax = posInf }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(params)
			_, err := Validate(params)
			assert.Error(t, err)
		})
	}

	_, err := Validate(nil)
	assert.Error(t, err)

	frozen := validParams()
	frozen[0].Optimizable = false
	frozen[1].Optimizable = false
	_, err = Validate(frozen)
	assert.Error(t, err, "at least one parameter must be optimizable")
}

func TestValidateWarnsOnWideRandomRange(t *testing.T) {
	params := validParams()
	params[1].RandMin = -10 // beyond MinThreshold -5

	warnings, err := Validate(params)
	require.NoError(t, err)
	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "wp")
}

func TestDefaultsAndIndex(t *testing.T) {
	params := validParams()
	assert.Equal(t, []float64{0, -1, 0.5}, Defaults(params))

	c, err := ParamIndex(params, "wp")
	require.NoError(t, err)
	assert.Equal(t, 1, c)

	_, err = ParamIndex(params, "nope")
	assert.Error(t, err)
}

func TestDecayPolicies(t *testing.T) {
	inv, err := DecayFromConfig("inverse_power", 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, inv.Factor(1), 1e-12)
	assert.InDelta(t, 0.25, inv.Factor(2), 1e-12)

	exp, err := DecayFromConfig("exponential", 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.6065306597126334, exp.Factor(1), 1e-12)
	assert.Greater(t, exp.Factor(1), exp.Factor(2))

	lin, err := DecayFromConfig("linear", 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, lin.Factor(1), 1e-12)
	assert.Equal(t, 0.0, lin.Factor(5), "decays to zero past the cutoff")

	_, err = DecayFromConfig("linear", 0)
	assert.Error(t, err)
	_, err = DecayFromConfig("cosine", 1)
	assert.Error(t, err)
}

func TestPerturberScalesWithDecay(t *testing.T) {
	decay, err := DecayFromConfig("inverse_power", 1)
	require.NoError(t, err)
	p := &Perturber{Policy: decay, Mult: 0.5}

	params := []ParamSpec{unboundedParam("a"), {Name: "b", Default: 3, MinThreshold: negInf, MaxThreshold: posInf}}
	lambda := []float64{2, 3}

	out := p.Perturb(params, lambda, 1, NewRNG(1))
	require.Len(t, out, 2)
	assert.Equal(t, 3.0, out[1], "frozen weights pass through")
	assert.InDelta(t, 2.0, out[0], 1.0, "sigma 0.5 keeps the weight within half of itself")
	assert.NotEqual(t, 2.0, out[0])
}

func TestRandomLambdaStaysInRange(t *testing.T) {
	params := []ParamSpec{
		{Name: "a", Optimizable: true, MinThreshold: negInf, MaxThreshold: posInf, RandMin: -2, RandMax: -1},
		{Name: "b", Default: 7, MinThreshold: negInf, MaxThreshold: posInf},
	}
	rng := NewRNG(42)
	for i := 0; i < 20; i++ {
		out := RandomLambda(params, rng)
		assert.GreaterOrEqual(t, out[0], -2.0)
		assert.Less(t, out[0], -1.0)
		assert.Equal(t, 7.0, out[1])
	}
	assert.Equal(t, uint64(20), rng.Draws(), "one draw per optimizable parameter")
}

func TestNormalization(t *testing.T) {
	lambda := func() []float64 { return []float64{2, -4, 1} }

	n, err := NewNormalization(NormNone, 0, 0, 0)
	require.NoError(t, err)
	v := lambda()
	n.Apply(v)
	assert.Equal(t, []float64{2, -4, 1}, v)

	n, err = NewNormalization(NormPinParam, 1, 0, 0)
	require.NoError(t, err)
	v = lambda()
	n.Apply(v)
	assert.InDelta(t, 1.0, v[0], 1e-12)
	assert.InDelta(t, -2.0, v[1], 1e-12)

	n, err = NewNormalization(NormPinMax, 1, 0, 0)
	require.NoError(t, err)
	v = lambda()
	n.Apply(v)
	assert.InDelta(t, -1.0, v[1], 1e-12)

	n, err = NewNormalization(NormPinMin, 2, 0, 0)
	require.NoError(t, err)
	v = lambda()
	n.Apply(v)
	assert.InDelta(t, 4.0, v[0], 1e-12)

	n, err = NewNormalization(NormLp, 2, 0, 2)
	require.NoError(t, err)
	v = lambda()
	n.Apply(v)
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	assert.InDelta(t, 4.0, sum, 1e-9, "L2 norm pinned to 2")

	_, err = NewNormalization("unit", 1, 0, 0)
	assert.Error(t, err)
	_, err = NewNormalization(NormLp, 2, 0, -1)
	assert.Error(t, err)
	_, err = NewNormalization(NormPinMax, 0, 0, 0)
	assert.Error(t, err)
}
