package mert

import (
	"math"
	"sort"
)

// candidateSwitch records that the model-best candidate for a sentence
// changes from oldK to newK at some threshold value.
type candidateSwitch struct {
	oldK, newK int
}

// thresholdSet holds the values of one parameter at which the corpus-wide
// selection of model-best candidates changes, each mapping the affected
// sentences to their candidate switch. The final value is a sentinel past
// the last real threshold so the walk evaluates the last interval too.
type thresholdSet struct {
	values   []float64
	switches map[float64]map[int]*candidateSwitch
}

func (ts *thresholdSet) empty() bool { return len(ts.values) == 0 }

func (ts *thresholdSet) add(val float64, sentence, oldK, newK int) {
	if ts.switches == nil {
		ts.switches = map[float64]map[int]*candidateSwitch{}
	}
	m := ts.switches[val]
	if m == nil {
		m = map[int]*candidateSwitch{}
		ts.switches[val] = m
	}
	if sw := m[sentence]; sw != nil {
		// Two of this sentence's intersection points collapsed to the
		// same value. Treat them as a single switch straight from the
		// first oldK to the latest newK.
		sw.newK = newK
		return
	}
	m[sentence] = &candidateSwitch{oldK: oldK, newK: newK}
}

// seal freezes the set: sorts the threshold values and appends the
// sentinel. The sentinel carries no switches; it exists so the interval
// between the last threshold and the range's upper end gets a midpoint.
func (ts *thresholdSet) seal(maxTh float64) {
	if len(ts.switches) == 0 {
		return
	}
	values := make([]float64, 0, len(ts.switches)+1)
	for v := range ts.switches {
		values = append(values, v)
	}
	sort.Float64s(values)

	sentinel := maxTh
	if math.IsInf(maxTh, 1) {
		sentinel = values[len(values)-1] + 0.1
	}
	ts.values = append(values, sentinel)
}

// extractThresholds walks the upper envelope of the candidate score lines
// along dimension c. Along that dimension each candidate's model score is
// a line with slope = its feature value for c and offset = the weighted
// sum of its other features; the model-best candidate at a given weight is
// the highest line, and the score can only change where the envelope
// switches lines.
//
// Every candidate that wins some interval inside the parameter's critical
// range is added to interest for its sentence, so its statistics can be
// fetched before the line search.
func extractThresholds(p *Problem, c int, lambda []float64, interest []map[int]bool) *thresholdSet {
	ts := &thresholdSet{}
	spec := p.Params[c]
	minTh, maxTh := spec.MinThreshold, spec.MaxThreshold

	for i := range p.FeatVals {
		numCands := len(p.FeatVals[i])
		if numCands == 0 {
			continue
		}

		slope := make([]float64, numCands)
		offset := make([]float64, numCands)
		for k := 0; k < numCands; k++ {
			feats := p.FeatVals[i][k]
			slope[k] = feats[c]
			off := 0.0
			for c2, v := range feats {
				if c2 != c {
					off += lambda[c2] * v
				}
			}
			offset[k] = off
		}

		// The walk starts at the winner at the left end of the range and
		// ends at the winner at the right end. With an unbounded range
		// those are the steepest-descent and steepest-ascent lines; with
		// a bounded range, the highest line at a probe point just outside
		// the bound, which skips thresholds the range would discard
		// anyway.
		leftIndex, rightIndex := -1, -1
		minSlope, maxSlope := math.Inf(1), math.Inf(-1)
		offsetMinSlope, offsetMaxSlope := math.Inf(-1), math.Inf(-1)
		bestLeft, bestRight := math.Inf(-1), math.Inf(-1)

		for k := 0; k < numCands; k++ {
			if math.IsInf(minTh, -1) {
				if slope[k] < minSlope || (slope[k] == minSlope && offset[k] > offsetMinSlope) {
					leftIndex = k
					minSlope = slope[k]
					offsetMinSlope = offset[k]
				}
			} else {
				score := offset[k] + (minTh-0.1)*slope[k]
				if score > bestLeft || (score == bestLeft && slope[k] > minSlope) {
					leftIndex = k
					minSlope = slope[k]
					bestLeft = score
				}
			}

			if math.IsInf(maxTh, 1) {
				if slope[k] > maxSlope || (slope[k] == maxSlope && offset[k] > offsetMaxSlope) {
					rightIndex = k
					maxSlope = slope[k]
					offsetMaxSlope = offset[k]
				}
			} else {
				score := offset[k] + (maxTh+0.1)*slope[k]
				if score > bestRight || (score == bestRight && slope[k] < maxSlope) {
					rightIndex = k
					maxSlope = slope[k]
					bestRight = score
				}
			}
		}

		currIndex := leftIndex
		lastNewK := -1

		for currIndex != rightIndex {
			if currIndex < 0 {
				// Rounding can make the walk miss the expected terminal
				// line; the envelope is exhausted either way.
				break
			}

			// the next switch is at the nearest intersection with a
			// higher-sloped line
			nearest := math.Inf(1)
			nearestIndex := -1
			for k := 0; k < numCands; k++ {
				if slope[k] > slope[currIndex] {
					ip := (offset[k] - offset[currIndex]) / (slope[currIndex] - slope[k])
					if ip < nearest {
						nearest = ip
						nearestIndex = k
					}
				}
			}

			if nearest > minTh && nearest < maxTh {
				lastNewK = nearestIndex
				interest[i][currIndex] = true
				ts.add(nearest, i, currIndex, nearestIndex)
			}

			currIndex = nearestIndex
		}

		if lastNewK != -1 {
			interest[i][lastNewK] = true
		}
	}

	ts.seal(maxTh)
	return ts
}
