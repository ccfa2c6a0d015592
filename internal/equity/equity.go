// Package equity estimates win probabilities by Monte-Carlo roll-out.
package equity

import (
	"fmt"
	rand "math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/evaluator"
	"github.com/lox/holdem-solver/internal/randutil"
)

// Result tallies the outcomes of a Monte-Carlo run.
type Result struct {
	Wins    int
	Ties    int
	Samples int
}

// Equity returns win probability with ties counted as half a win.
func (r Result) Equity() float64 {
	if r.Samples == 0 {
		return 0
	}
	return (float64(r.Wins) + 0.5*float64(r.Ties)) / float64(r.Samples)
}

// Estimate samples N random board completions and opponent hole pairs from
// the remaining deck and tallies showdowns of hero's best seven cards against
// the opponent's. Deterministic for a given RNG state.
func Estimate(hole, board []deck.Card, samples int, rng *rand.Rand) (Result, error) {
	remaining, err := remainingCards(hole, board)
	if err != nil {
		return Result{}, err
	}
	if samples <= 0 {
		return Result{}, fmt.Errorf("equity: samples must be positive, got %d", samples)
	}

	heroBase := evaluator.NewHand(hole...)
	boardBase := evaluator.NewHand(board...)
	need := 5 - len(board)

	var res Result
	res.Samples = samples

	for s := 0; s < samples; s++ {
		// Partial Fisher-Yates: only the cards we draw get shuffled.
		for i := 0; i < need+2; i++ {
			j := i + rng.IntN(len(remaining)-i)
			remaining[i], remaining[j] = remaining[j], remaining[i]
		}

		runout := boardBase
		for i := 0; i < need; i++ {
			runout = runout.Add(remaining[i])
		}
		villain := runout.Add(remaining[need]).Add(remaining[need+1])

		heroRank := evaluator.EvaluateHand(heroBase | runout)
		villainRank := evaluator.EvaluateHand(villain)

		switch evaluator.Compare(heroRank, villainRank) {
		case 1:
			res.Wins++
		case 0:
			res.Ties++
		}
	}

	return res, nil
}

// EstimateParallel splits the samples across workers, each on an RNG stream
// derived from seed. The result is deterministic for a given seed and worker
// count regardless of scheduling.
func EstimateParallel(hole, board []deck.Card, samples, workers int, seed int64) (Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > samples {
		workers = 1
	}

	results := make([]Result, workers)
	per := samples / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		n := per
		if w == workers-1 {
			n = samples - per*(workers-1)
		}
		g.Go(func() error {
			r, err := Estimate(hole, board, n, randutil.Stream(seed, w))
			results[w] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var total Result
	for _, r := range results {
		total.Wins += r.Wins
		total.Ties += r.Ties
		total.Samples += r.Samples
	}
	return total, nil
}

// Distribution computes the equity histogram over sampled futures: for each
// rollout the next unseen street is sampled and the hand's equity on it lands
// in one of bins buckets. The normalised histogram is the feature vector the
// clustering abstraction operates on.
func Distribution(hole, board []deck.Card, bins, rollouts, samplesPer int, rng *rand.Rand) ([]float64, error) {
	remaining, err := remainingCards(hole, board)
	if err != nil {
		return nil, err
	}
	if bins <= 0 || rollouts <= 0 {
		return nil, fmt.Errorf("equity: bins and rollouts must be positive")
	}

	hist := make([]float64, bins)
	next := make([]deck.Card, 0, 3)

	draw := 0
	switch {
	case len(board) == 0:
		draw = 3 // sample a flop
	case len(board) < 5:
		draw = 1 // sample the next street card
	}

	for i := 0; i < rollouts; i++ {
		next = next[:0]
		for j := 0; j < draw; j++ {
			k := j + rng.IntN(len(remaining)-j)
			remaining[j], remaining[k] = remaining[k], remaining[j]
			next = append(next, remaining[j])
		}

		sampled := append(append([]deck.Card{}, board...), next...)
		res, err := Estimate(hole, sampled, samplesPer, rng)
		if err != nil {
			return nil, err
		}

		bin := int(res.Equity() * float64(bins))
		if bin >= bins {
			bin = bins - 1
		}
		hist[bin]++
	}

	for i := range hist {
		hist[i] /= float64(rollouts)
	}
	return hist, nil
}

func remainingCards(hole, board []deck.Card) ([]deck.Card, error) {
	if len(hole) != 2 {
		return nil, fmt.Errorf("equity: want 2 hole cards, got %d", len(hole))
	}
	if len(board) > 5 {
		return nil, fmt.Errorf("equity: want at most 5 board cards, got %d", len(board))
	}

	var used evaluator.Hand
	for _, c := range append(append([]deck.Card{}, hole...), board...) {
		if used.Contains(c) {
			return nil, fmt.Errorf("equity: duplicate card %s", c)
		}
		used = used.Add(c)
	}

	remaining := make([]deck.Card, 0, 52-len(hole)-len(board))
	for i := 0; i < 52; i++ {
		if c := deck.Card(i); !used.Contains(c) {
			remaining = append(remaining, c)
		}
	}
	return remaining, nil
}
