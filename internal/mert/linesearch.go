package mert

import "math"

// lineOptimize finds the best value for parameter c by walking the
// extracted thresholds left to right. Between consecutive thresholds the
// corpus score is constant, so evaluating one midpoint per interval
// covers the whole line exactly.
//
// indexOfCurrBest holds the model-best candidate per sentence at the left
// end of the sweep and is advanced in place at each threshold by swapping
// the outgoing candidate's statistics for the incoming one's. Ties keep
// the earliest interval's midpoint.
func lineOptimize(p *Problem, ts *thresholdSet, indexOfCurrBest []int, c int, lambda []float64) (bestVal, bestScore float64) {
	if ts.empty() {
		// No threshold survived the range constraints: the score is flat
		// across the whole range, so there is nothing to gain here.
		return lambda[c], p.Metric.WorstPossibleScore()
	}

	spec := p.Params[c]
	smallest := ts.values[0]
	if math.IsInf(spec.MinThreshold, -1) {
		bestVal = smallest - 0.05
	} else {
		bestVal = (spec.MinThreshold + smallest) / 2
	}

	width := p.Metric.StatsCount()
	sentStats := make([][]int, len(indexOfCurrBest))
	docStats := make([][]int, p.NumDocuments)
	for doc := range docStats {
		docStats[doc] = make([]int, width)
	}
	for i, k := range indexOfCurrBest {
		if k < 0 {
			continue
		}
		sentStats[i] = p.Stats.Stats(i, k)
		doc := p.DocOfSentence[i]
		for s, v := range sentStats[i] {
			docStats[doc][s] += v
		}
	}

	bestScore = p.score(docStats)

	prev := ts.values[0]
	for _, curr := range ts.values[1:] {
		next := (prev + curr) / 2

		for i, sw := range ts.switches[prev] {
			doc := p.DocOfSentence[i]
			for s, v := range sentStats[i] {
				docStats[doc][s] -= v
			}
			indexOfCurrBest[i] = sw.newK
			sentStats[i] = p.Stats.Stats(i, sw.newK)
			for s, v := range sentStats[i] {
				docStats[doc][s] += v
			}
		}

		if score := p.score(docStats); p.better(score, bestScore) {
			bestScore = score
			bestVal = next
		}
		prev = curr
	}

	return bestVal, bestScore
}
