package nbest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mertune/mertune/internal/metric"
)

// Ledger is an append-only store of sufficient statistics keyed by
// (sentence, candidate text). Computed statistics are never invalidated:
// a candidate's stats depend only on the immutable references.
// Implementations must be safe for concurrent use.
type Ledger interface {
	Put(sentence int, text string, stats []int) error
	// Get returns the stored statistics, or ok=false when the candidate
	// has not been computed yet.
	Get(sentence int, text string) (stats []int, ok bool, err error)
}

// MemLedger keeps statistics in memory. It serves single-process runs;
// resumable runs use the filesystem ledger in the store package.
type MemLedger struct {
	mu        sync.RWMutex
	sentences []map[string][]int
}

func NewMemLedger(numSentences int) *MemLedger {
	l := &MemLedger{sentences: make([]map[string][]int, numSentences)}
	for i := range l.sentences {
		l.sentences[i] = map[string][]int{}
	}
	return l
}

func (l *MemLedger) Put(sentence int, text string, stats []int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sentences[sentence][text] = stats
	return nil
}

func (l *MemLedger) Get(sentence int, text string) ([]int, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats, ok := l.sentences[sentence][text]
	return stats, ok, nil
}

// ComputeMissing fills the ledger for every pooled candidate that has no
// statistics yet. Computation is batched and fanned out over a bounded
// worker pool; metrics with external scorers amortize their per-call
// overhead over batchSize candidates.
func ComputeMissing(ctx context.Context, ledger Ledger, m metric.Metric, pool *Pool, workers, batchSize int) (computed int, err error) {
	if batchSize < 1 {
		batchSize = 1
	}

	var texts []string
	var indices []int
	var walkErr error
	pool.Each(func(sentence int, text string) {
		if walkErr != nil {
			return
		}
		_, ok, err := ledger.Get(sentence, text)
		if err != nil {
			walkErr = err
			return
		}
		if !ok {
			texts = append(texts, text)
			indices = append(indices, sentence)
		}
	})
	if walkErr != nil {
		return 0, fmt.Errorf("failed to read statistics ledger: %w", walkErr)
	}
	if len(texts) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batchTexts := texts[start:end]
		batchIndices := indices[start:end]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats, err := metric.SuffStatsBatch(m, batchTexts, batchIndices)
			if err != nil {
				return fmt.Errorf("failed to compute statistics: %w", err)
			}
			for d := range batchTexts {
				if err := ledger.Put(batchIndices[d], batchTexts[d], stats[d]); err != nil {
					return fmt.Errorf("failed to store statistics: %w", err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(texts), nil
}

// StatsView adapts a round's candidate view plus the ledger to the
// optimizer's statistics source. Prepare pulls the requested candidates'
// statistics out of the ledger into a per-view cache; the cache is scoped
// to one view, so it never outlives the round.
type StatsView struct {
	view   *View
	ledger Ledger
	metric metric.Metric

	mu    sync.RWMutex
	cache [][][]int
}

func NewStatsView(view *View, ledger Ledger, m metric.Metric) *StatsView {
	cache := make([][][]int, len(view.Texts))
	for i := range cache {
		cache[i] = make([][]int, len(view.Texts[i]))
	}
	return &StatsView{view: view, ledger: ledger, metric: m, cache: cache}
}

// Prepare loads statistics for the requested candidate indices. Every
// candidate must already be in the ledger; a miss means the merge phase
// did not run to completion and is a programming error upstream. A
// ledger entry whose width does not match the metric's declared width is
// a fatal configuration error: it means the ledger was written under a
// differently configured metric.
func (sv *StatsView) Prepare(interest [][]int) error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	width := sv.metric.StatsCount()
	for i, ks := range interest {
		for _, k := range ks {
			if sv.cache[i][k] != nil {
				continue
			}
			text := sv.view.Texts[i][k]
			stats, ok, err := sv.ledger.Get(i, text)
			if err != nil {
				return fmt.Errorf("failed to read statistics ledger: %w", err)
			}
			if !ok {
				return fmt.Errorf("no statistics for candidate %d of sentence %d (%q)", k, i, text)
			}
			if len(stats) != width {
				return fmt.Errorf("statistics for candidate %d of sentence %d: %w", k, i,
					&metric.WidthError{Metric: sv.metric.Name(), Want: width, Got: len(stats)})
			}
			sv.cache[i][k] = stats
		}
	}
	return nil
}

// Stats returns the statistics of candidate k of sentence i. The
// candidate must have been covered by a Prepare call.
func (sv *StatsView) Stats(i, k int) []int {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	stats := sv.cache[i][k]
	if stats == nil {
		panic(fmt.Sprintf("statistics for candidate %d of sentence %d were not prepared", k, i))
	}
	return stats
}
