package metric

import "fmt"

// Diff scores candidates as the difference between two component metrics,
// score(a) - score(b), and is minimized. The usual pairing is an error
// metric as the minuend and a quality metric as the subtrahend. Statistics
// vectors are the concatenation of the components' vectors, which keeps
// them additive across sentences.
type Diff struct {
	a, b Metric
}

func NewDiff(a, b Metric) *Diff {
	return &Diff{a: a, b: b}
}

func (d *Diff) Name() string        { return fmt.Sprintf("%s-%s", d.a.Name(), d.b.Name()) }
func (d *Diff) StatsCount() int     { return d.a.StatsCount() + d.b.StatsCount() }
func (d *Diff) ToBeMinimized() bool { return true }

func (d *Diff) BestPossibleScore() float64  { return d.a.BestPossibleScore() - d.b.BestPossibleScore() }
func (d *Diff) WorstPossibleScore() float64 { return d.a.WorstPossibleScore() - d.b.WorstPossibleScore() }

func (d *Diff) SuffStats(cand string, i int) []int {
	return append(d.a.SuffStats(cand, i), d.b.SuffStats(cand, i)...)
}

func (d *Diff) Score(stats []int) float64 {
	checkWidth(d, stats)
	na := d.a.StatsCount()
	return d.a.Score(stats[:na]) - d.b.Score(stats[na:])
}

// Thresholded scores candidates by a primary quality metric, gated by a
// second metric: when the gate score exceeds the threshold, the primary
// score is shifted down by 1. The shift rather than an outright rejection
// keeps the search ordered when no candidate satisfies the gate, so the
// optimizer still backs off to the best primary score. Maximized.
type Thresholded struct {
	primary   Metric
	gate      Metric
	threshold float64
}

func NewThresholded(primary, gate Metric, threshold float64) *Thresholded {
	return &Thresholded{primary: primary, gate: gate, threshold: threshold}
}

func (t *Thresholded) Name() string {
	return fmt.Sprintf("%s-thresholded-%s", t.primary.Name(), t.gate.Name())
}

func (t *Thresholded) StatsCount() int     { return t.primary.StatsCount() + t.gate.StatsCount() }
func (t *Thresholded) ToBeMinimized() bool { return false }

func (t *Thresholded) BestPossibleScore() float64  { return t.primary.BestPossibleScore() }
func (t *Thresholded) WorstPossibleScore() float64 { return t.primary.WorstPossibleScore() - 1 }

func (t *Thresholded) SuffStats(cand string, i int) []int {
	return append(t.primary.SuffStats(cand, i), t.gate.SuffStats(cand, i)...)
}

func (t *Thresholded) Score(stats []int) float64 {
	checkWidth(t, stats)
	np := t.primary.StatsCount()
	sc := t.primary.Score(stats[:np])
	if t.gate.Score(stats[np:]) > t.threshold {
		return sc - 1
	}
	return sc
}
