package metric

import (
	"fmt"
	"sort"
)

// Metric maps candidate translations to fixed-width integer sufficient
// statistics and aggregated statistics to a scalar score. Statistics are
// additive across sentences, so a corpus (or document) score is computed
// from the elementwise sum of per-sentence vectors.
//
// Implementations must be safe for concurrent use after construction; all
// optimizer restarts share one instance.
type Metric interface {
	// Name returns the registered metric name.
	Name() string

	// StatsCount returns the fixed width of the statistics vector.
	StatsCount() int

	// ToBeMinimized reports the metric's polarity: true for error metrics
	// (lower is better), false for quality metrics.
	ToBeMinimized() bool

	// SuffStats computes the statistics vector for a candidate translation
	// of sentence i.
	SuffStats(cand string, i int) []int

	// Score maps an aggregated statistics vector to a scalar score.
	Score(stats []int) float64

	BestPossibleScore() float64
	WorstPossibleScore() float64
}

// BatchScorer is implemented by metrics whose statistics computation has a
// high fixed per-call overhead (e.g. launching an external scorer) and
// should be amortized over many candidates at once.
type BatchScorer interface {
	// SuffStatsBatch computes statistics for candidates[d] of sentence
	// indices[d], for all d.
	SuffStatsBatch(candidates []string, indices []int) ([][]int, error)
}

// WidthError reports a statistics vector whose length does not match the
// metric's declared width. It is a fatal configuration error.
type WidthError struct {
	Metric string
	Want   int
	Got    int
}

func (e *WidthError) Error() string {
	return fmt.Sprintf("metric %s: statistics width mismatch: want %d, got %d", e.Metric, e.Want, e.Got)
}

func (e *WidthError) Is(target error) bool {
	_, ok := target.(*WidthError)
	return ok
}

// ErrWidth is the match target for errors.Is checks against WidthError.
var ErrWidth = &WidthError{}

func checkWidth(m Metric, stats []int) {
	if len(stats) != m.StatsCount() {
		// Width mismatches indicate corrupted statistics or a
		// misconfigured composite; there is no sane recovery.
		panic(&WidthError{Metric: m.Name(), Want: m.StatsCount(), Got: len(stats)})
	}
}

// IsBetter reports whether score a beats score b under m's polarity.
func IsBetter(m Metric, a, b float64) bool {
	if m.ToBeMinimized() {
		return a < b
	}
	return a > b
}

// ScoreDocs returns the average of per-document scores. docStats is indexed
// [document][stat]. With a single document this equals the corpus score.
func ScoreDocs(m Metric, docStats [][]int) float64 {
	total := 0.0
	for _, stats := range docStats {
		total += m.Score(stats)
	}
	return total / float64(len(docStats))
}

// ScoreDocRange returns the average of per-document scores restricted to
// documents ranked firstRank through lastRank inclusive (1-indexed, rank 1
// being the best document under the metric's polarity).
func ScoreDocRange(m Metric, docStats [][]int, firstRank, lastRank int) float64 {
	scores := make([]float64, len(docStats))
	for doc, stats := range docStats {
		scores[doc] = m.Score(stats)
	}
	sort.Float64s(scores)

	n := len(scores)
	total := 0.0
	if m.ToBeMinimized() {
		// ascending order: scores[r-1] is rank r
		for j := firstRank - 1; j < lastRank; j++ {
			total += scores[j]
		}
	} else {
		// ascending order: scores[n-r] is rank r
		for j := n - firstRank; j >= n-lastRank; j-- {
			total += scores[j]
		}
	}
	return total / float64(lastRank-firstRank+1)
}

// SuffStatsBatch computes statistics for an arbitrary set of candidates,
// delegating to the metric's batched implementation when it has one.
func SuffStatsBatch(m Metric, candidates []string, indices []int) ([][]int, error) {
	if len(candidates) != len(indices) {
		return nil, fmt.Errorf("metric %s: %d candidates but %d sentence indices", m.Name(), len(candidates), len(indices))
	}
	if bs, ok := m.(BatchScorer); ok {
		return bs.SuffStatsBatch(candidates, indices)
	}
	stats := make([][]int, len(candidates))
	for d, cand := range candidates {
		stats[d] = m.SuffStats(cand, indices[d])
	}
	return stats, nil
}
