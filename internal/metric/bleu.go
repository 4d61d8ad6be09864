package metric

import (
	"fmt"
	"math"
	"strings"
)

// EffectiveLength selects how the reference length entering the brevity
// penalty is derived from multiple references.
type EffectiveLength string

const (
	// EffClosest uses the reference length closest to the candidate
	// length, ties broken by the shorter reference.
	EffClosest EffectiveLength = "closest"
	// EffShortest always uses the shortest reference length.
	EffShortest EffectiveLength = "shortest"
)

// BLEU scores candidates by modified n-gram precision against the corpus
// references. Statistics per candidate are, in order: matched and total
// n-gram counts for each order 1..maxOrder, then candidate length, then
// effective reference length.
//
// Zero precisions are smoothed with a constant that starts at 1.0 and is
// halved at every zero-precision order within one score call, shared
// across orders. The halving carries over from lower orders on purpose:
// the behavior is inherited from bleu-1.04.pl and downstream consumers
// depend on it.
type BLEU struct {
	corpus    *Corpus
	maxOrder  int
	effLength EffectiveLength

	// precomputed from the references at construction
	maxRefCounts []map[string]int // per sentence, max clip count per n-gram
	refLengths   [][]int          // per sentence, token count per reference
}

// NewBLEU builds the n-gram precision metric for orders 1..maxOrder.
func NewBLEU(corpus *Corpus, maxOrder int, effLength EffectiveLength) (*BLEU, error) {
	if maxOrder < 1 {
		return nil, fmt.Errorf("maximum n-gram order must be positive, got %d", maxOrder)
	}
	switch effLength {
	case EffClosest, EffShortest:
	default:
		return nil, fmt.Errorf("unknown effective length method %q (want closest or shortest)", effLength)
	}

	b := &BLEU{
		corpus:       corpus,
		maxOrder:     maxOrder,
		effLength:    effLength,
		maxRefCounts: make([]map[string]int, corpus.NumSentences()),
		refLengths:   make([][]int, corpus.NumSentences()),
	}

	for i := 0; i < corpus.NumSentences(); i++ {
		refs := corpus.References(i)
		counts := map[string]int{}
		lengths := make([]int, len(refs))
		for r, ref := range refs {
			words := tokenize(ref)
			lengths[r] = len(words)
			for gram, n := range ngramCounts(words, maxOrder) {
				if n > counts[gram] {
					counts[gram] = n
				}
			}
		}
		b.maxRefCounts[i] = counts
		b.refLengths[i] = lengths
	}

	return b, nil
}

func (b *BLEU) Name() string        { return "bleu" }
func (b *BLEU) StatsCount() int     { return 2*b.maxOrder + 2 }
func (b *BLEU) ToBeMinimized() bool { return false }

func (b *BLEU) BestPossibleScore() float64  { return 1.0 }
func (b *BLEU) WorstPossibleScore() float64 { return 0.0 }

// SuffStats computes clipped n-gram matches, totals, and length info for a
// candidate translation of sentence i.
func (b *BLEU) SuffStats(cand string, i int) []int {
	stats := make([]int, b.StatsCount())
	words := tokenize(cand)

	refCounts := b.maxRefCounts[i]
	for n := 1; n <= b.maxOrder; n++ {
		matched := 0
		for gram, count := range ngramCountsOrder(words, n) {
			if refCount, ok := refCounts[gram]; ok {
				matched += min(count, refCount)
			}
		}
		stats[2*(n-1)] = matched
		stats[2*(n-1)+1] = max(len(words)-(n-1), 0)
	}

	stats[b.StatsCount()-2] = len(words)
	stats[b.StatsCount()-1] = b.effectiveLength(len(words), i)
	return stats
}

// Score combines per-order precisions by an equally weighted geometric
// mean and applies the brevity penalty when the candidate is shorter than
// the effective reference length.
func (b *BLEU) Score(stats []int) float64 {
	checkWidth(b, stats)

	candLen := float64(stats[b.StatsCount()-2])
	refLen := float64(stats[b.StatsCount()-1])

	sum := 0.0
	smooth := 1.0
	for n := 1; n <= b.maxOrder; n++ {
		matched := float64(stats[2*(n-1)])
		total := float64(stats[2*(n-1)+1])

		prec := 1.0
		if total > 0 {
			prec = matched / total
		}
		if prec == 0 {
			smooth *= 0.5
			prec = smooth / (candLen - float64(n) + 1)
		}
		sum += math.Log(prec) / float64(b.maxOrder)
	}

	bp := 1.0
	if candLen < refLen {
		bp = math.Exp(1 - refLen/candLen)
	}
	return bp * math.Exp(sum)
}

// PrecisionDetail returns the smoothed per-order precisions and the
// brevity penalty for an aggregated statistics vector, for diagnostics.
func (b *BLEU) PrecisionDetail(stats []int) (precisions []float64, brevityPenalty float64) {
	checkWidth(b, stats)

	candLen := float64(stats[b.StatsCount()-2])
	refLen := float64(stats[b.StatsCount()-1])

	precisions = make([]float64, b.maxOrder)
	smooth := 1.0
	for n := 1; n <= b.maxOrder; n++ {
		matched := float64(stats[2*(n-1)])
		total := float64(stats[2*(n-1)+1])

		prec := 1.0
		if total > 0 {
			prec = matched / total
		}
		if prec == 0 {
			smooth *= 0.5
			prec = smooth / (candLen - float64(n) + 1)
		}
		precisions[n-1] = prec
	}

	brevityPenalty = 1.0
	if candLen < refLen {
		brevityPenalty = math.Exp(1 - refLen/candLen)
	}
	return precisions, brevityPenalty
}

func (b *BLEU) effectiveLength(candLen, i int) int {
	lengths := b.refLengths[i]

	if b.effLength == EffShortest {
		shortest := lengths[0]
		for _, l := range lengths[1:] {
			if l < shortest {
				shortest = l
			}
		}
		return shortest
	}

	closest := lengths[0]
	minDiff := abs(candLen - closest)
	for _, l := range lengths[1:] {
		diff := abs(candLen - l)
		if diff < minDiff || (diff == minDiff && l < closest) {
			closest = l
			minDiff = diff
		}
	}
	return closest
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

// ngramCounts counts n-grams of every order 1..maxOrder in one map.
// Grams of different orders cannot collide: tokens contain no spaces, so
// the joined form encodes the order.
func ngramCounts(words []string, maxOrder int) map[string]int {
	counts := map[string]int{}
	for st := range words {
		end := min(st+maxOrder, len(words))
		for fin := st + 1; fin <= end; fin++ {
			counts[strings.Join(words[st:fin], " ")]++
		}
	}
	return counts
}

// ngramCountsOrder counts n-grams of exactly order n.
func ngramCountsOrder(words []string, n int) map[string]int {
	counts := map[string]int{}
	for st := 0; st+n <= len(words); st++ {
		counts[strings.Join(words[st:st+n], " ")]++
	}
	return counts
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
