package metric

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroOneLoss(t *testing.T) {
	c := testCorpus(t, [][]string{
		{"a b", "c d"},
		{"e f"},
	})
	z := NewZeroOneLoss(c)

	assert.Equal(t, []int{0, 1}, z.SuffStats("c d", 0))
	assert.Equal(t, []int{1, 1}, z.SuffStats("c  d", 0), "match is exact, not tokenized")
	assert.Equal(t, []int{1, 1}, z.SuffStats("a b", 1))

	assert.InDelta(t, 0.5, z.Score([]int{1, 2}), 1e-12)
	assert.True(t, z.ToBeMinimized())
	assert.True(t, IsBetter(z, 0.2, 0.4))
}

func TestWidthMismatchPanics(t *testing.T) {
	c := testCorpus(t, [][]string{{"a"}})
	z := NewZeroOneLoss(c)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(error)
		require.True(t, ok)
		assert.True(t, errors.Is(err, ErrWidth))

		var we *WidthError
		require.True(t, errors.As(err, &we))
		assert.Equal(t, 2, we.Want)
		assert.Equal(t, 3, we.Got)
	}()
	z.Score([]int{1, 2, 3})
}

func TestDiff(t *testing.T) {
	c := testCorpus(t, [][]string{
		{"a b c"},
	})
	loss := NewZeroOneLoss(c)
	bleu, err := NewBLEU(c, 1, EffClosest)
	require.NoError(t, err)

	d := NewDiff(loss, bleu)
	assert.True(t, d.ToBeMinimized())
	assert.Equal(t, loss.StatsCount()+bleu.StatsCount(), d.StatsCount())

	stats := d.SuffStats("a b c", 0)
	require.Len(t, stats, d.StatsCount())
	// exact match: zero loss minus perfect precision
	assert.InDelta(t, -1.0, d.Score(stats), 1e-12)
	assert.InDelta(t, d.BestPossibleScore(), -1.0, 1e-12)
}

func TestThresholded(t *testing.T) {
	c := testCorpus(t, [][]string{
		{"a b c"},
	})
	bleu, err := NewBLEU(c, 1, EffClosest)
	require.NoError(t, err)
	loss := NewZeroOneLoss(c)

	th := NewThresholded(bleu, loss, 0.5)
	assert.False(t, th.ToBeMinimized())

	// gate satisfied: plain primary score
	good := th.SuffStats("a b c", 0)
	assert.InDelta(t, 1.0, th.Score(good), 1e-12)

	// gate violated: primary score shifted down, ordering preserved
	bad := th.SuffStats("a b x", 0)
	badScore := th.Score(bad)
	assert.Less(t, badScore, 0.0)
	assert.InDelta(t, 2.0/3.0-1.0, badScore, 1e-12)
}

func TestScoreDocs(t *testing.T) {
	c := testCorpus(t, [][]string{{"a"}, {"b"}})
	z := NewZeroOneLoss(c)

	avg := ScoreDocs(z, [][]int{{0, 1}, {1, 1}})
	assert.InDelta(t, 0.5, avg, 1e-12)
}

func TestScoreDocRange(t *testing.T) {
	c := testCorpus(t, [][]string{{"a"}})
	z := NewZeroOneLoss(c) // minimized

	docStats := [][]int{
		{3, 4}, // 0.75
		{1, 4}, // 0.25
		{2, 4}, // 0.50
		{0, 4}, // 0.00
	}

	// rank 1 is the best document: lowest loss
	assert.InDelta(t, 0.0, ScoreDocRange(z, docStats, 1, 1), 1e-12)
	assert.InDelta(t, 0.25, ScoreDocRange(z, docStats, 1, 2), 1e-12)
	assert.InDelta(t, 0.75, ScoreDocRange(z, docStats, 4, 4), 1e-12)

	b, err := NewBLEU(c, 1, EffClosest) // maximized
	require.NoError(t, err)
	bleuStats := [][]int{
		{1, 4, 4, 4}, // 0.25
		{3, 4, 4, 4}, // 0.75
		{2, 4, 4, 4}, // 0.50
	}
	assert.InDelta(t, 0.75, ScoreDocRange(b, bleuStats, 1, 1), 1e-12)
	assert.InDelta(t, 0.625, ScoreDocRange(b, bleuStats, 1, 2), 1e-12)
	assert.InDelta(t, 0.25, ScoreDocRange(b, bleuStats, 3, 3), 1e-12)
}

func TestSuffStatsBatchFallback(t *testing.T) {
	c := testCorpus(t, [][]string{{"a"}, {"b"}})
	z := NewZeroOneLoss(c)

	stats, err := SuffStatsBatch(z, []string{"a", "a"}, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {1, 1}}, stats)

	_, err = SuffStatsBatch(z, []string{"a"}, []int{0, 1})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	c := testCorpus(t, [][]string{{"a b c d"}})

	m, err := New("bleu", Options{"max_order": "2"}, c)
	require.NoError(t, err)
	assert.Equal(t, 6, m.StatsCount())

	_, err = New("rouge", nil, c)
	assert.Error(t, err)

	_, err = New("bleu", Options{"max_order": "four"}, c)
	assert.Error(t, err)

	d, err := New("diff", Options{"minuend": "01loss", "subtrahend": "bleu"}, c)
	require.NoError(t, err)
	assert.True(t, d.ToBeMinimized())

	_, err = New("diff", Options{"minuend": "01loss"}, c)
	assert.Error(t, err, "missing subtrahend")

	th, err := New("thresholded", Options{"primary": "bleu", "gate": "01loss", "threshold": "0.3"}, c)
	require.NoError(t, err)
	assert.False(t, th.ToBeMinimized())

	assert.Contains(t, Known(), "bleu")
}

func TestCorpusDocuments(t *testing.T) {
	refs := [][]string{{"a"}, {"b"}, {"c"}}

	c, err := NewCorpus(refs, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NumDocuments())
	assert.Equal(t, 0, c.DocOfSentence(2))

	c, err = NewCorpus(refs, []int{0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumDocuments())
	assert.Equal(t, 1, c.DocOfSentence(2))

	_, err = NewCorpus(refs, []int{0, -1, 1})
	assert.Error(t, err)

	_, err = NewCorpus(refs, []int{0, 1})
	assert.Error(t, err)

	_, err = NewCorpus(nil, nil)
	assert.Error(t, err)
}
