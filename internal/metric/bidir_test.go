package metric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPointRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.25, -481.0625, 12345.678, -0.001953125} {
		ints := doubleToInts(v)
		require.Len(t, ints, intsPerDouble)
		assert.InDelta(t, v, intsToDouble(ints), 1e-9, "value %v", v)
	}
}

func TestFixedPointAdditive(t *testing.T) {
	// summing encoded vectors componentwise must encode the sum
	a := doubleToInts(-120.5)
	b := doubleToInts(-37.25)
	sum := make([]int, intsPerDouble)
	for i := range sum {
		sum[i] = a[i] + b[i]
	}
	assert.InDelta(t, -157.75, intsToDouble(sum), 1e-9)
}

func newTestBidir(t *testing.T, target float64) *Bidir {
	t.Helper()
	c := testCorpus(t, [][]string{{"a b c d"}})
	bleu, err := NewBLEU(c, 2, EffClosest)
	require.NoError(t, err)
	return NewBidir(bleu, target)
}

func TestBidirSuffStats(t *testing.T) {
	m := newTestBidir(t, 0)
	nb := 6 // order-2 vector width

	require.Equal(t, numDirections*nb+intsPerDouble+1, m.StatsCount())

	stats, err := m.SuffStatsBatch([]string{"s0\t1\ta b c d\t-8.0\tx y z"}, []int{0})
	require.NoError(t, err)
	require.Len(t, stats[0], m.StatsCount())

	// direction 1: first slot empty, second holds the match stats
	assert.Equal(t, 0, stats[0][0])
	assert.Equal(t, 4, stats[0][nb])

	assert.Equal(t, 4, stats[0][m.StatsCount()-1], "word count is tokens plus one")
	assert.InDelta(t, -8.0, intsToDouble(stats[0][numDirections*nb:numDirections*nb+intsPerDouble]), 1e-9)
}

func TestBidirSuffStatsNoCandidate(t *testing.T) {
	m := newTestBidir(t, 0)

	stats, err := m.SuffStatsBatch([]string{"s0\t0\ta b c d\t0\t-"}, []int{0})
	require.NoError(t, err)
	assert.Equal(t, 0, stats[0][m.StatsCount()-1], "no lm word count without a candidate")
}

func TestBidirMalformed(t *testing.T) {
	m := newTestBidir(t, 0)

	for _, cand := range []string{
		"too\tfew\tfields",
		"s0\t2\ta b\t0\t-",
		"s0\t0\ta b\tNaN-ish\tx",
	} {
		_, err := m.SuffStatsBatch([]string{cand}, []int{0})
		assert.Error(t, err, "candidate %q", cand)
	}
}

func TestBidirScore(t *testing.T) {
	m := newTestBidir(t, 0)

	// perfect translations in both directions, no lm evidence
	stats, err := m.SuffStatsBatch([]string{
		"s0\t0\ta b c d\t0\t-",
		"s0\t1\ta b c d\t0\t-",
	}, []int{0, 0})
	require.NoError(t, err)

	agg := make([]int, m.StatsCount())
	for _, s := range stats {
		for i, v := range s {
			agg[i] += v
		}
	}
	assert.InDelta(t, 2.0, m.Score(agg), 1e-9)
}

func TestBidirLMPenalty(t *testing.T) {
	m := newTestBidir(t, 1.0)

	// per-word lm score -(-8)/2 = 4, over target 1 => penalty (4-1)^2 = 9
	stats, err := m.SuffStatsBatch([]string{
		"s0\t0\ta b c d\t-8.0\tx",
		"s0\t1\ta b c d\t0\t-",
	}, []int{0, 0})
	require.NoError(t, err)

	agg := make([]int, m.StatsCount())
	for _, s := range stats {
		for i, v := range s {
			agg[i] += v
		}
	}
	assert.InDelta(t, 2.0-9.0, m.Score(agg), 1e-9)
}
