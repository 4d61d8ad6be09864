package mert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mertune/mertune/internal/metric"
)

var (
	negInf = math.Inf(-1)
	posInf = math.Inf(1)
)

// memStats serves statistics straight from memory; Prepare is a no-op.
type memStats struct {
	stats [][][]int // [sentence][candidate]
}

func (m *memStats) Prepare([][]int) error { return nil }
func (m *memStats) Stats(i, k int) []int  { return m.stats[i][k] }

// lossProblem builds a problem scored by zero-one loss: stats[i][k] is
// {0,1} when candidate k of sentence i is "correct" and {1,1} otherwise.
func lossProblem(t *testing.T, params []ParamSpec, featVals [][][]float64, correct [][]bool) *Problem {
	t.Helper()

	refs := make([][]string, len(featVals))
	docOf := make([]int, len(featVals))
	for i := range refs {
		refs[i] = []string{"ref"}
	}
	corpus, err := metric.NewCorpus(refs, nil)
	require.NoError(t, err)

	stats := make([][][]int, len(featVals))
	for i := range featVals {
		stats[i] = make([][]int, len(featVals[i]))
		for k := range featVals[i] {
			if correct[i][k] {
				stats[i][k] = []int{0, 1}
			} else {
				stats[i][k] = []int{1, 1}
			}
		}
	}

	return &Problem{
		Params:        params,
		Metric:        metric.NewZeroOneLoss(corpus),
		FeatVals:      featVals,
		Stats:         &memStats{stats: stats},
		DocOfSentence: docOf,
		NumDocuments:  1,
		Norm:          Normalization{Method: NormNone},
	}
}

func unboundedParam(name string) ParamSpec {
	return ParamSpec{
		Name:         name,
		Optimizable:  true,
		MinThreshold: negInf,
		MaxThreshold: posInf,
		RandMin:      -1,
		RandMax:      1,
	}
}
