package mert

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// StartMode selects how restarts beyond the first pick their starting
// weights.
type StartMode string

const (
	// StartRandom samples each optimizable weight uniformly from its
	// random range.
	StartRandom StartMode = "random"
	// StartPerturb multiplicatively perturbs the incoming weights with a
	// decaying magnitude.
	StartPerturb StartMode = "perturb"
)

// Coordinator fans one round's optimization out over multiple restarts of
// the coordinate ascent. Restart 0 always starts from the incoming
// weights, so multi-start can never lose to single-start on the same
// candidate pool.
type Coordinator struct {
	Restarts int
	Workers  int // max concurrent ascents; <=0 means unbounded
	Mode     StartMode

	// Perturber drives StartPerturb; ignored otherwise.
	Perturber *Perturber
}

// Optimize runs all restarts on the shared problem and returns the best
// result and the index of the restart that produced it. Ties keep the
// lowest restart index. All random draws happen up front, in restart
// order, so the draw count is deterministic regardless of scheduling.
func (co *Coordinator) Optimize(ctx context.Context, p *Problem, lambda []float64, round int, rng *RNG) (Result, int, error) {
	if co.Restarts < 1 {
		return Result{}, 0, fmt.Errorf("restart count must be positive, got %d", co.Restarts)
	}

	starts := make([][]float64, co.Restarts)
	starts[0] = append([]float64(nil), lambda...)
	for j := 1; j < co.Restarts; j++ {
		switch co.Mode {
		case StartPerturb:
			if co.Perturber == nil {
				return Result{}, 0, fmt.Errorf("perturb start mode needs a perturber")
			}
			starts[j] = co.Perturber.Perturb(p.Params, lambda, round, rng)
		default:
			starts[j] = RandomLambda(p.Params, rng)
		}
	}

	results := make([]Result, co.Restarts)
	g, ctx := errgroup.WithContext(ctx)
	if co.Workers > 0 {
		g.SetLimit(co.Workers)
	}
	for j := 0; j < co.Restarts; j++ {
		j := j
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := NewRun(p).Optimize(starts[j])
			if err != nil {
				return fmt.Errorf("restart %d: %w", j, err)
			}
			results[j] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, 0, err
	}

	best := 0
	for j := 1; j < co.Restarts; j++ {
		if p.better(results[j].Score, results[best].Score) {
			best = j
		}
	}
	p.logger().Info("multi-start round complete",
		"round", round,
		"restarts", co.Restarts,
		"best_restart", best,
		"score", results[best].Score)
	return results[best], best, nil
}
