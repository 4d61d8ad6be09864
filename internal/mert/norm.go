package mert

import (
	"fmt"
	"math"
)

// NormMethod selects how a weight vector is rescaled before decoding.
// Rescaling never changes candidate rankings, only the absolute scale the
// decoder and the next round see.
type NormMethod string

const (
	NormNone     NormMethod = "none"
	NormPinParam NormMethod = "pin_param" // named weight gets absolute value Value
	NormPinMax   NormMethod = "pin_max"   // largest absolute weight becomes Value
	NormPinMin   NormMethod = "pin_min"   // smallest absolute weight becomes Value
	NormLp       NormMethod = "lp"        // L-Power norm of the vector becomes Value
)

// Normalization rescales weight vectors after an ascent converges.
type Normalization struct {
	Method NormMethod
	Value  float64
	Param  int     // pinned parameter index for NormPinParam
	Power  float64 // norm order for NormLp
}

// NewNormalization validates and builds a policy by method name.
func NewNormalization(method NormMethod, value float64, param int, power float64) (Normalization, error) {
	switch method {
	case NormNone:
	case NormPinParam:
		if value <= 0 {
			return Normalization{}, fmt.Errorf("pinned absolute value must be positive, got %v", value)
		}
	case NormPinMax, NormPinMin:
		if value <= 0 {
			return Normalization{}, fmt.Errorf("pinned absolute value must be positive, got %v", value)
		}
	case NormLp:
		if power <= 0 || value <= 0 {
			return Normalization{}, fmt.Errorf("norm order and target must be positive, got order %v target %v", power, value)
		}
	default:
		return Normalization{}, fmt.Errorf("unknown normalization method %q", method)
	}
	return Normalization{Method: method, Value: value, Param: param, Power: power}, nil
}

// Apply rescales lambda in place. Every weight is scaled, optimizable or
// not.
func (n Normalization) Apply(lambda []float64) {
	factor := 1.0
	switch n.Method {
	case NormNone:
		return
	case NormPinParam:
		factor = n.Value / math.Abs(lambda[n.Param])
	case NormPinMax:
		maxAbs := 0.0
		for _, v := range lambda {
			if math.Abs(v) > maxAbs {
				maxAbs = math.Abs(v)
			}
		}
		factor = n.Value / maxAbs
	case NormPinMin:
		minAbs := math.Inf(1)
		for _, v := range lambda {
			if math.Abs(v) < minAbs {
				minAbs = math.Abs(v)
			}
		}
		factor = n.Value / minAbs
	case NormLp:
		sum := 0.0
		for _, v := range lambda {
			sum += math.Pow(math.Abs(v), n.Power)
		}
		factor = n.Value / math.Pow(sum, 1/n.Power)
	}

	for c := range lambda {
		lambda[c] *= factor
	}
}
