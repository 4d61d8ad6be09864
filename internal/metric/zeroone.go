package metric

// ZeroOneLoss counts candidates that fail to exactly match any reference.
// Statistics are {mismatch, 1}, so the aggregated score is the fraction of
// sentences without an exact reference match. Minimized.
type ZeroOneLoss struct {
	corpus *Corpus
}

func NewZeroOneLoss(corpus *Corpus) *ZeroOneLoss {
	return &ZeroOneLoss{corpus: corpus}
}

func (z *ZeroOneLoss) Name() string        { return "01loss" }
func (z *ZeroOneLoss) StatsCount() int     { return 2 }
func (z *ZeroOneLoss) ToBeMinimized() bool { return true }

func (z *ZeroOneLoss) BestPossibleScore() float64  { return 0.0 }
func (z *ZeroOneLoss) WorstPossibleScore() float64 { return 1.0 }

func (z *ZeroOneLoss) SuffStats(cand string, i int) []int {
	for _, ref := range z.corpus.References(i) {
		if cand == ref {
			return []int{0, 1}
		}
	}
	return []int{1, 1}
}

func (z *ZeroOneLoss) Score(stats []int) float64 {
	checkWidth(z, stats)
	if stats[1] == 0 {
		return 0
	}
	return float64(stats[0]) / float64(stats[1])
}
