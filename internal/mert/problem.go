package mert

import (
	"log/slog"
	"math"

	"github.com/mertune/mertune/internal/metric"
)

// StatsSource serves cached sufficient statistics for pooled candidates.
// Prepare is called with the candidate indices an upcoming sweep will
// read; Stats must then return without blocking on computation. A source
// shared across restarts must be safe for concurrent use.
type StatsSource interface {
	// Prepare ensures statistics for candidates interest[i] of each
	// sentence i are available.
	Prepare(interest [][]int) error

	// Stats returns the statistics vector for candidate k of sentence i.
	// The candidate must have been covered by a previous Prepare call.
	Stats(i, k int) []int
}

// Problem bundles the immutable inputs of one optimization round: the
// parameter specs, the metric, the pooled candidates' feature values, and
// their statistics. All restarts of a round share one Problem.
type Problem struct {
	Params []ParamSpec
	Metric metric.Metric

	// FeatVals[i][k] is the feature vector of candidate k of sentence i.
	FeatVals [][][]float64
	Stats    StatsSource

	DocOfSentence []int
	NumDocuments  int

	// document-subset optimization by rank; FirstRank 0 means all documents
	FirstRank int
	LastRank  int

	// stop the ascent after the first applied weight update
	SingleUpdate bool

	Norm Normalization

	Logger *slog.Logger
}

func (p *Problem) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Problem) numSentences() int { return len(p.FeatVals) }

func (p *Problem) optimizeSubset() bool {
	return p.FirstRank > 0 && !(p.FirstRank == 1 && p.LastRank == p.NumDocuments)
}

// score evaluates aggregated per-document statistics under the problem's
// scoring mode.
func (p *Problem) score(docStats [][]int) float64 {
	if p.optimizeSubset() {
		return metric.ScoreDocRange(p.Metric, docStats, p.FirstRank, p.LastRank)
	}
	return metric.ScoreDocs(p.Metric, docStats)
}

func (p *Problem) better(a, b float64) bool {
	return metric.IsBetter(p.Metric, a, b)
}

// modelScore is the decoder model score of candidate k of sentence i
// under the given weights.
func (p *Problem) modelScore(lambda []float64, i, k int) float64 {
	score := 0.0
	for c, v := range p.FeatVals[i][k] {
		score += lambda[c] * v
	}
	return score
}

// modelBest returns the index of the highest-scoring candidate per
// sentence under the given weights, recording each in interest.
func (p *Problem) modelBest(lambda []float64, interest []map[int]bool) []int {
	best := make([]int, p.numSentences())
	for i := range p.FeatVals {
		bestK := -1
		bestScore := math.Inf(-1)
		for k := range p.FeatVals[i] {
			if s := p.modelScore(lambda, i, k); s > bestScore {
				bestScore = s
				bestK = k
			}
		}
		best[i] = bestK
		if interest != nil && bestK >= 0 {
			interest[i][bestK] = true
		}
	}
	return best
}

// aggregateDocStats sums the chosen candidates' statistics per document.
func (p *Problem) aggregateDocStats(indexOfBest []int) [][]int {
	width := p.Metric.StatsCount()
	docStats := make([][]int, p.NumDocuments)
	for doc := range docStats {
		docStats[doc] = make([]int, width)
	}
	for i, k := range indexOfBest {
		if k < 0 {
			continue
		}
		doc := p.DocOfSentence[i]
		for s, v := range p.Stats.Stats(i, k) {
			docStats[doc][s] += v
		}
	}
	return docStats
}

func flattenInterest(interest []map[int]bool) [][]int {
	out := make([][]int, len(interest))
	for i, set := range interest {
		ks := make([]int, 0, len(set))
		for k := range set {
			ks = append(ks, k)
		}
		out[i] = ks
	}
	return out
}
