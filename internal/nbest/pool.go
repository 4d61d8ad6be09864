package nbest

import "fmt"

// pooled is a candidate inside the pool, with the rounds that produced it.
type pooled struct {
	Candidate
	firstRound    int
	lastSeenRound int
}

type sentencePool struct {
	cands  []pooled
	byText map[string]int
}

// Pool accumulates distinct candidates per sentence across rounds,
// deduplicated by text. Candidates are never removed; a candidate decoded
// again in a later round just refreshes its last-seen round, which keeps
// it inside the eligibility window.
type Pool struct {
	numParams int
	sentences []sentencePool
}

// NewPool returns an empty pool for the given corpus and model shape.
func NewPool(numSentences, numParams int) *Pool {
	p := &Pool{
		numParams: numParams,
		sentences: make([]sentencePool, numSentences),
	}
	for i := range p.sentences {
		p.sentences[i].byText = map[string]int{}
	}
	return p
}

func (p *Pool) NumSentences() int { return len(p.sentences) }

// MergeRound folds one round's candidate lists into the pool and returns
// the number of previously unseen candidates.
func (p *Pool) MergeRound(round int, lists [][]Candidate) (added int, err error) {
	if len(lists) != len(p.sentences) {
		return 0, fmt.Errorf("round %d has candidates for %d sentences, pool covers %d", round, len(lists), len(p.sentences))
	}

	for i, block := range lists {
		sp := &p.sentences[i]
		for _, cand := range block {
			if len(cand.Feats) != p.numParams {
				return added, fmt.Errorf("round %d sentence %d: candidate has %d feature values, model has %d parameters", round, i, len(cand.Feats), p.numParams)
			}
			if k, seen := sp.byText[cand.Text]; seen {
				sp.cands[k].lastSeenRound = round
				continue
			}
			sp.byText[cand.Text] = len(sp.cands)
			sp.cands = append(sp.cands, pooled{
				Candidate:     cand,
				firstRound:    round,
				lastSeenRound: round,
			})
			added++
		}
	}
	return added, nil
}

// Sizes returns the per-sentence candidate counts, the pool's growth
// high-water marks. They are persisted with the run state and checked on
// resume.
func (p *Pool) Sizes() []int {
	sizes := make([]int, len(p.sentences))
	for i := range p.sentences {
		sizes[i] = len(p.sentences[i].cands)
	}
	return sizes
}

// View is one round's immutable snapshot of the eligible candidates:
// parallel per-sentence slices of texts and feature vectors, indexed the
// way the optimizer indexes candidates.
type View struct {
	Texts    [][]string
	FeatVals [][][]float64
}

// Eligible snapshots the candidates last seen within window rounds of the
// given round (window 0 keeps only the current round's).
func (p *Pool) Eligible(round, window int) *View {
	v := &View{
		Texts:    make([][]string, len(p.sentences)),
		FeatVals: make([][][]float64, len(p.sentences)),
	}
	oldest := round - window
	for i := range p.sentences {
		for _, cand := range p.sentences[i].cands {
			if cand.lastSeenRound < oldest {
				continue
			}
			v.Texts[i] = append(v.Texts[i], cand.Text)
			v.FeatVals[i] = append(v.FeatVals[i], cand.Feats)
		}
	}
	return v
}

// Each calls fn for every pooled candidate.
func (p *Pool) Each(fn func(sentence int, text string)) {
	for i := range p.sentences {
		for _, cand := range p.sentences[i].cands {
			fn(i, cand.Text)
		}
	}
}
