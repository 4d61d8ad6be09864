package metric

import (
	"fmt"
	"strconv"
	"strings"
)

// Fixed-point encoding of the accumulated language-model log score inside
// the integer statistics vector. A double is split across intsPerDouble
// ints of bitsPerInt bits each, the first carrying the startDiv-bit
// integer part. Per-int magnitudes stay small enough that summing the
// vectors over a corpus cannot overflow.
const (
	intsPerDouble = 8
	bitsPerInt    = 16
	startDiv      = 16
	numDirections = 2
)

// Bidir evaluates round-trip translation for unsupervised tuning: the sum
// of two directional n-gram precision scores, penalized when a ratio-scaled
// per-word language-model score exceeds a target. Candidate input lines are
// tab-separated: id, direction (0 or 1), translation, lm log score, and the
// monolingual candidate ("-" when absent).
//
// Statistics layout: both directions' full BLEU vectors, then the
// fixed-point lm score ints, then the lm word count.
type Bidir struct {
	bleu   *BLEU
	target float64
}

func NewBidir(bleu *BLEU, targetLMScore float64) *Bidir {
	return &Bidir{bleu: bleu, target: targetLMScore}
}

func (m *Bidir) Name() string        { return "bidir" }
func (m *Bidir) ToBeMinimized() bool { return false }

func (m *Bidir) StatsCount() int {
	return numDirections*m.bleu.StatsCount() + intsPerDouble + 1
}

// Score bounds are wide: the quadratic lm penalization is unbounded.
func (m *Bidir) BestPossibleScore() float64  { return 1e9 }
func (m *Bidir) WorstPossibleScore() float64 { return -1e9 }

func (m *Bidir) SuffStats(cand string, i int) []int {
	stats, err := m.suffStats(cand, i)
	if err != nil {
		panic(err)
	}
	return stats
}

// SuffStatsBatch reports malformed candidate lines as errors instead of
// panicking, and is the entry point the pool uses.
func (m *Bidir) SuffStatsBatch(candidates []string, indices []int) ([][]int, error) {
	if len(candidates) != len(indices) {
		return nil, fmt.Errorf("metric bidir: %d candidates but %d sentence indices", len(candidates), len(indices))
	}
	stats := make([][]int, len(candidates))
	for d, cand := range candidates {
		var err error
		if stats[d], err = m.suffStats(cand, indices[d]); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

func (m *Bidir) suffStats(cand string, i int) ([]int, error) {
	fields := strings.SplitN(cand, "\t", 5)
	if len(fields) != 5 {
		return nil, fmt.Errorf("metric bidir: candidate line has %d tab-separated fields, want 5", len(fields))
	}
	direction, err := strconv.Atoi(fields[1])
	if err != nil || direction < 0 || direction >= numDirections {
		return nil, fmt.Errorf("metric bidir: bad direction field %q", fields[1])
	}
	translation := fields[2]

	stats := make([]int, m.StatsCount())
	nb := m.bleu.StatsCount()

	if mono := fields[4]; mono != "-" {
		lm, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return nil, fmt.Errorf("metric bidir: bad lm score field %q: %w", fields[3], err)
		}
		for j, v := range doubleToInts(lm) {
			stats[numDirections*nb+j] = v
		}
		stats[m.StatsCount()-1] = len(strings.Fields(mono)) + 1
	}

	copy(stats[direction*nb:(direction+1)*nb], m.bleu.SuffStats(translation, i))
	return stats, nil
}

func (m *Bidir) Score(stats []int) float64 {
	checkWidth(m, stats)
	nb := m.bleu.StatsCount()

	lmCount := stats[m.StatsCount()-1]
	lmScore := 0.0
	if lmCount != 0 {
		lmScore = -intsToDouble(stats[numDirections*nb:numDirections*nb+intsPerDouble]) / float64(lmCount)
	}

	totalBleu := 0.0
	ratio := 1.0
	for dir := 0; dir < numDirections; dir++ {
		dirStats := stats[dir*nb : (dir+1)*nb]
		totalBleu += m.bleu.Score(dirStats)
		cLen := float64(dirStats[nb-2])
		rLen := float64(dirStats[nb-1])
		if cLen > rLen {
			ratio *= cLen / rLen
		}
	}

	lmScore *= ratio
	penalty := 0.0
	if lmScore > m.target {
		penalty = (lmScore - m.target) * (lmScore - m.target)
	}
	return totalBleu - penalty
}

func doubleToInts(d float64) []int {
	out := make([]int, intsPerDouble)
	for i := 0; i < intsPerDouble; i++ {
		mul, div := fixedPointScale(i)
		out[i] = int(float64(mul) * d / float64(div))
		d -= float64(div) * float64(out[i]) / float64(mul)
	}
	return out
}

func intsToDouble(ints []int) float64 {
	d := 0.0
	for i := 0; i < intsPerDouble; i++ {
		mul, div := fixedPointScale(i)
		d += float64(div) * float64(ints[i]) / float64(mul)
	}
	return d
}

func fixedPointScale(i int) (mul, div int64) {
	mul, div = 1, 1
	if exp := startDiv - i*bitsPerInt; exp >= 0 {
		div <<= exp
	} else {
		mul <<= -exp
	}
	return mul, div
}
