package mert

import (
	"fmt"
	"math"
)

// ParamSpec describes one dimension of the log-linear model: its weight
// before tuning, whether the optimizer may move it, the critical range the
// weight must stay inside (either end may be infinite), and the finite
// range random restarts sample from.
type ParamSpec struct {
	Name        string
	Default     float64
	Optimizable bool

	// critical range; line search only considers values strictly inside it
	MinThreshold float64
	MaxThreshold float64

	// random restart sampling range, always finite
	RandMin float64
	RandMax float64
}

// Validate checks a parameter set for consistency. Hard inconsistencies
// are returned as an error; suspicious but workable settings come back as
// warnings for the caller to log.
func Validate(params []ParamSpec) (warnings []string, err error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters defined")
	}

	seen := map[string]bool{}
	anyOptimizable := false
	for c, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter %d has no name", c)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true

		if p.MinThreshold > p.MaxThreshold {
			return nil, fmt.Errorf("parameter %q: critical range [%v, %v] is reversed", p.Name, p.MinThreshold, p.MaxThreshold)
		}
		if p.Default < p.MinThreshold || p.Default > p.MaxThreshold {
			return nil, fmt.Errorf("parameter %q: default %v is outside its critical range [%v, %v]", p.Name, p.Default, p.MinThreshold, p.MaxThreshold)
		}

		if !p.Optimizable {
			continue
		}
		anyOptimizable = true

		if math.IsInf(p.RandMin, 0) || math.IsInf(p.RandMax, 0) || math.IsNaN(p.RandMin) || math.IsNaN(p.RandMax) {
			return nil, fmt.Errorf("parameter %q: random range must be finite", p.Name)
		}
		if p.RandMin > p.RandMax {
			return nil, fmt.Errorf("parameter %q: random range [%v, %v] is reversed", p.Name, p.RandMin, p.RandMax)
		}
		if p.RandMin < p.MinThreshold || p.RandMax > p.MaxThreshold {
			warnings = append(warnings, fmt.Sprintf("parameter %q: random range [%v, %v] extends beyond its critical range [%v, %v]", p.Name, p.RandMin, p.RandMax, p.MinThreshold, p.MaxThreshold))
		}
	}

	if !anyOptimizable {
		return warnings, fmt.Errorf("no parameter is optimizable")
	}
	return warnings, nil
}

// Defaults returns the parameters' default weight vector.
func Defaults(params []ParamSpec) []float64 {
	lambda := make([]float64, len(params))
	for c, p := range params {
		lambda[c] = p.Default
	}
	return lambda
}

// ParamIndex returns the index of the named parameter, or an error.
func ParamIndex(params []ParamSpec, name string) (int, error) {
	for c, p := range params {
		if p.Name == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown parameter %q", name)
}
