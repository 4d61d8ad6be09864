package mert

import (
	"fmt"
	"log/slog"
	"math"
)

// Result is the outcome of one coordinate ascent: the (normalized) weight
// vector and the corpus score reached before normalization.
type Result struct {
	Lambda []float64
	Score  float64
}

// Run performs coordinate ascent on one Problem from one starting point.
// At each step it line-optimizes every optimizable dimension from the
// current weights, applies the single most profitable change, and repeats
// until no dimension improves the score. Thresholds for the dimension
// just changed stay valid (its own weight does not enter the offsets
// along that dimension) and are reused.
type Run struct {
	p *Problem
}

func NewRun(p *Problem) *Run {
	return &Run{p: p}
}

// Optimize runs the ascent to convergence from the given weights.
func (r *Run) Optimize(initial []float64) (Result, error) {
	p := r.p
	if len(initial) != len(p.Params) {
		return Result{}, fmt.Errorf("weight vector has %d entries for %d parameters", len(initial), len(p.Params))
	}
	log := p.logger()

	lambda := make([]float64, len(initial))
	copy(lambda, initial)

	// score of the model-best candidates under the starting weights
	startInterest := newInterest(p.numSentences())
	indexOfBest := p.modelBest(lambda, startInterest)
	if err := p.Stats.Prepare(flattenInterest(startInterest)); err != nil {
		return Result{}, fmt.Errorf("failed to load statistics: %w", err)
	}
	score := p.score(p.aggregateDocStats(indexOfBest))
	log.Debug("ascent starting", "score", score)

	cache := make([]*thresholdSet, len(p.Params))
	lastChanged := -1

	for {
		cBest, bestVal, bestScore, err := r.sweep(lambda, cache, lastChanged)
		if err != nil {
			return Result{}, err
		}

		if !p.better(bestScore, score) {
			break
		}

		log.Debug("updating weight",
			"param", p.Params[cBest].Name,
			"from", lambda[cBest], "to", bestVal,
			"score", bestScore)
		lambda[cBest] = bestVal
		score = bestScore
		lastChanged = cBest

		if p.SingleUpdate {
			break
		}
	}

	final := make([]float64, len(lambda))
	copy(final, lambda)
	p.Norm.Apply(final)
	warnOutOfRange(log, p.Params, final)

	log.Debug("ascent converged", "score", score)
	return Result{Lambda: final, Score: score}, nil
}

// sweep line-optimizes every optimizable dimension at the current weights
// and returns the most profitable one. Ties keep the lowest dimension.
func (r *Run) sweep(lambda []float64, cache []*thresholdSet, lastChanged int) (cBest int, bestVal, bestScore float64, err error) {
	p := r.p

	interest := newInterest(p.numSentences())
	indexOfCurrBest := make([][]int, len(p.Params))

	for c, spec := range p.Params {
		if !spec.Optimizable {
			continue
		}
		if c != lastChanged || cache[c] == nil {
			cache[c] = extractThresholds(p, c, lambda, interest)
		}
		if cache[c].empty() {
			continue
		}

		// the walk starts just left of the smallest threshold
		temp := make([]float64, len(lambda))
		copy(temp, lambda)
		if math.IsInf(spec.MinThreshold, -1) {
			temp[c] = cache[c].values[0] - 0.05
		} else {
			temp[c] = (spec.MinThreshold + cache[c].values[0]) / 2
		}
		indexOfCurrBest[c] = p.modelBest(temp, interest)
	}

	if err := p.Stats.Prepare(flattenInterest(interest)); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to load statistics: %w", err)
	}

	// a seed no real line-search result can lose to
	if p.Metric.ToBeMinimized() {
		bestScore = p.Metric.WorstPossibleScore() + 1
	} else {
		bestScore = p.Metric.WorstPossibleScore() - 1
	}

	cBest = -1
	for c, spec := range p.Params {
		if !spec.Optimizable {
			continue
		}
		val, score := lineOptimize(p, cache[c], indexOfCurrBest[c], c, lambda)
		if p.better(score, bestScore) {
			cBest = c
			bestVal = val
			bestScore = score
		}
	}
	return cBest, bestVal, bestScore, nil
}

func newInterest(numSentences int) []map[int]bool {
	interest := make([]map[int]bool, numSentences)
	for i := range interest {
		interest[i] = map[int]bool{}
	}
	return interest
}

func warnOutOfRange(log *slog.Logger, params []ParamSpec, lambda []float64) {
	for c, spec := range params {
		if lambda[c] < spec.MinThreshold || lambda[c] > spec.MaxThreshold {
			log.Warn("normalized weight left its critical range",
				"param", spec.Name,
				"value", lambda[c],
				"min", spec.MinThreshold,
				"max", spec.MaxThreshold)
		}
	}
}
