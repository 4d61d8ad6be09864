package mert

import (
	"fmt"
	"math"
)

// DecayPolicy shrinks the perturbation magnitude as tuning rounds
// progress, so later restarts explore closer to the incoming weights.
type DecayPolicy interface {
	Name() string
	// Factor returns the decay multiplier for the given 1-based round.
	Factor(round int) float64
}

// DecayFromConfig builds the named decay policy. param is the policy's
// single tunable: the exponent for inverse_power, the rate for
// exponential, the cutoff round for linear.
func DecayFromConfig(name string, param float64) (DecayPolicy, error) {
	switch name {
	case "inverse_power":
		return inversePowerDecay{p: param}, nil
	case "exponential":
		return exponentialDecay{rate: param}, nil
	case "linear":
		if param <= 0 {
			return nil, fmt.Errorf("linear decay needs a positive cutoff round, got %v", param)
		}
		return linearDecay{cutoff: param}, nil
	default:
		return nil, fmt.Errorf("unknown decay policy %q (known: inverse_power, exponential, linear)", name)
	}
}

type inversePowerDecay struct{ p float64 }

func (d inversePowerDecay) Name() string { return "inverse_power" }
func (d inversePowerDecay) Factor(round int) float64 {
	return 1.0 / math.Pow(float64(round), d.p)
}

type exponentialDecay struct{ rate float64 }

func (d exponentialDecay) Name() string { return "exponential" }
func (d exponentialDecay) Factor(round int) float64 {
	return math.Exp(-d.rate * float64(round))
}

type linearDecay struct{ cutoff float64 }

func (d linearDecay) Name() string { return "linear" }
func (d linearDecay) Factor(round int) float64 {
	return math.Max(0, 1.0-float64(round)/d.cutoff)
}

// Perturber generates restart starting points by multiplicatively
// perturbing the incoming weights: each optimizable weight becomes
// lambda*(1+u) with u uniform in [-sigma, sigma] and
// sigma = Mult * decay(round).
type Perturber struct {
	Policy DecayPolicy
	Mult   float64
}

// Perturb returns a perturbed copy of lambda for the given round,
// drawing one value per optimizable parameter.
func (p *Perturber) Perturb(params []ParamSpec, lambda []float64, round int, rng *RNG) []float64 {
	sigma := p.Mult * p.Policy.Factor(round)

	out := make([]float64, len(lambda))
	for c := range lambda {
		if !params[c].Optimizable {
			out[c] = lambda[c]
		} else {
			u := (2*rng.Float64() - 1) * sigma
			out[c] = lambda[c] * (1 + u)
		}
	}
	return out
}

// RandomLambda samples optimizable weights uniformly from their random
// ranges; non-optimizable weights keep their defaults.
func RandomLambda(params []ParamSpec, rng *RNG) []float64 {
	out := make([]float64, len(params))
	for c, p := range params {
		if !p.Optimizable {
			out[c] = p.Default
		} else {
			out[c] = p.RandMin + rng.Float64()*(p.RandMax-p.RandMin)
		}
	}
	return out
}
