package nbest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertune/mertune/internal/metric"
)

func lossMetric(t *testing.T, refs ...string) *metric.ZeroOneLoss {
	t.Helper()
	perSent := make([][]string, len(refs))
	docOf := make([]int, len(refs))
	for i, ref := range refs {
		perSent[i] = []string{ref}
	}
	corpus, err := metric.NewCorpus(perSent, docOf)
	require.NoError(t, err)
	return metric.NewZeroOneLoss(corpus)
}

func TestMemLedger(t *testing.T) {
	l := NewMemLedger(2)

	_, ok, err := l.Get(0, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.Put(0, "a", []int{1, 1}))
	require.NoError(t, l.Put(1, "a", []int{0, 1}))

	stats, ok, err := l.Get(0, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1, 1}, stats)

	stats, _, err = l.Get(1, "a")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, stats)
}

func TestComputeMissing(t *testing.T) {
	m := lossMetric(t, "right", "also right")
	p := NewPool(2, 1)
	_, err := p.MergeRound(1, [][]Candidate{
		{cand("right", 1), cand("wrong", 2)},
		{cand("also right", 3)},
	})
	require.NoError(t, err)

	l := NewMemLedger(2)
	computed, err := ComputeMissing(context.Background(), l, m, p, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, computed)

	stats, ok, err := l.Get(0, "right")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1}, stats)

	stats, _, _ = l.Get(0, "wrong")
	assert.Equal(t, []int{1, 1}, stats)

	// Second pass finds nothing left to compute.
	computed, err = ComputeMissing(context.Background(), l, m, p, 2, 2)
	require.NoError(t, err)
	assert.Zero(t, computed)

	// A new round with one unseen candidate computes exactly that one.
	_, err = p.MergeRound(2, [][]Candidate{
		{cand("right", 1)},
		{cand("fresh", 4)},
	})
	require.NoError(t, err)
	computed, err = ComputeMissing(context.Background(), l, m, p, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, computed)
}

func TestComputeMissingCancelled(t *testing.T) {
	m := lossMetric(t, "r")
	p := NewPool(1, 1)
	_, err := p.MergeRound(1, [][]Candidate{{cand("a", 1)}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ComputeMissing(ctx, NewMemLedger(1), m, p, 1, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStatsView(t *testing.T) {
	m := lossMetric(t, "right", "also right")
	p := NewPool(2, 1)
	_, err := p.MergeRound(1, [][]Candidate{
		{cand("right", 1), cand("wrong", 2)},
		{cand("also right", 3)},
	})
	require.NoError(t, err)

	l := NewMemLedger(2)
	_, err = ComputeMissing(context.Background(), l, m, p, 1, 8)
	require.NoError(t, err)

	sv := NewStatsView(p.Eligible(1, 0), l, m)
	require.NoError(t, sv.Prepare([][]int{{0, 1}, {0}}))

	assert.Equal(t, []int{0, 1}, sv.Stats(0, 0))
	assert.Equal(t, []int{1, 1}, sv.Stats(0, 1))
	assert.Equal(t, []int{0, 1}, sv.Stats(1, 0))
}

func TestStatsViewUnpreparedPanics(t *testing.T) {
	l := NewMemLedger(1)
	require.NoError(t, l.Put(0, "a", []int{1, 1}))
	sv := NewStatsView(&View{
		Texts:    [][]string{{"a"}},
		FeatVals: [][][]float64{{{1}}},
	}, l, lossMetric(t, "a"))

	assert.Panics(t, func() { sv.Stats(0, 0) })
}

func TestStatsViewMissingLedgerEntry(t *testing.T) {
	sv := NewStatsView(&View{
		Texts:    [][]string{{"a"}},
		FeatVals: [][][]float64{{{1}}},
	}, NewMemLedger(1), lossMetric(t, "a"))

	err := sv.Prepare([][]int{{0}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no statistics")
}

func TestStatsViewWidthMismatch(t *testing.T) {
	view := &View{
		Texts:    [][]string{{"a", "b"}},
		FeatVals: [][][]float64{{{1}, {2}}},
	}
	m := lossMetric(t, "a")

	// An entry wider than the metric's declared width must surface as an
	// error from Prepare, not corrupt a later aggregation.
	l := NewMemLedger(1)
	require.NoError(t, l.Put(0, "a", []int{1, 1, 7}))
	err := NewStatsView(view, l, m).Prepare([][]int{{0}})
	require.Error(t, err)
	assert.ErrorIs(t, err, metric.ErrWidth)
	var widthErr *metric.WidthError
	require.ErrorAs(t, err, &widthErr)
	assert.Equal(t, 2, widthErr.Want)
	assert.Equal(t, 3, widthErr.Got)

	// Same for an entry narrower than declared.
	l = NewMemLedger(1)
	require.NoError(t, l.Put(0, "b", []int{1}))
	err = NewStatsView(view, l, m).Prepare([][]int{{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, metric.ErrWidth)
}
