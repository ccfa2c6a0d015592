package cfr

import (
	rand "math/rand/v2"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/evaluator"
	"github.com/lox/holdem-solver/internal/game"
	"github.com/lox/holdem-solver/internal/strategy"
)

// newRoot samples one chance outcome: both hole pairs and the full runout.
// The postflop variant conditions on a reached flop by playing the preflop
// through a limped pot before the traversal starts.
func (t *Trainer) newRoot(button int, rng *rand.Rand) (*game.State, error) {
	s, err := game.NewHand(t.gameCfg, button, rng)
	if err != nil {
		return nil, err
	}
	if t.cfg.Variant != strategy.VariantPostflop {
		return s, nil
	}

	if s, err = s.Apply(game.Action{Kind: game.Call}); err != nil {
		return nil, err
	}
	return s.Apply(game.Action{Kind: game.Check})
}

// traverse runs one external-sampling pass for updating player p and returns
// p's counterfactual utility. At p's decision nodes every action is
// evaluated and regrets accumulate; at opponent nodes a single action is
// sampled from the regret-matched strategy and the strategy sum accumulates.
// Chance was sampled once at the root, so streets advance deterministically.
func (t *Trainer) traverse(s *game.State, p int, rng *rand.Rand, iter int64) (float64, error) {
	if s.IsTerminal() {
		u, err := s.TerminalUtility(p, showdown)
		return float64(u), err
	}
	if t.cfg.Variant == strategy.VariantPreflop && s.Street() != game.StreetPreflop {
		return t.syntheticFlopUtility(s, p)
	}

	actor := s.Actor()
	actions := s.LegalActions()

	bucket, err := t.mapper.Bucket(s.Hole(actor), s.Board())
	if err != nil {
		return 0, err
	}
	key := game.InfoSetKey(s.Street(), bucket, s.HistoryString())

	entry, err := t.store.GetOrCreate(key, game.Tags(actions))
	if err != nil {
		return 0, err
	}
	sigma := regretMatching(entry.Regrets())

	if actor == p {
		utils := make([]float64, len(actions))
		nodeUtil := 0.0
		for i, a := range actions {
			next, err := s.Apply(a)
			if err != nil {
				return 0, err
			}
			u, err := t.traverse(next, p, rng, iter)
			if err != nil {
				return 0, err
			}
			utils[i] = u
			nodeUtil += sigma[i] * u
		}

		regretDelta := make([]float64, len(actions))
		for i := range actions {
			regretDelta[i] = utils[i] - nodeUtil
		}
		if err := entry.Update(regretDelta, make([]float64, len(actions))); err != nil {
			return 0, err
		}
		return nodeUtil, nil
	}

	weight := 1.0
	if t.cfg.LinearWeighting {
		weight = float64(iter)
	}
	strategyDelta := make([]float64, len(actions))
	for i, v := range sigma {
		strategyDelta[i] = weight * v
	}
	if err := entry.Update(make([]float64, len(actions)), strategyDelta); err != nil {
		return 0, err
	}

	next, err := s.Apply(actions[sampleIndex(sigma, rng.Float64())])
	if err != nil {
		return 0, err
	}
	return t.traverse(next, p, rng, iter)
}

// syntheticFlopUtility prices a preflop-variant terminal: the hand that
// reaches the flop settles for pot-weighted class equity instead of playing
// on. The two class equities are symmetrised so the terminal stays exactly
// zero-sum.
func (t *Trainer) syntheticFlopUtility(s *game.State, p int) (float64, error) {
	heroClass, err := abstraction.PreflopClass(s.Hole(p))
	if err != nil {
		return 0, err
	}
	villainClass, err := abstraction.PreflopClass(s.Hole(1 - p))
	if err != nil {
		return 0, err
	}

	w := (t.classEquity[heroClass] + 1 - t.classEquity[villainClass]) / 2
	return w*float64(s.Pot()) - float64(s.Committed(p)), nil
}

// showdown compares seven-card hands for terminal payoffs.
func showdown(board, hero, villain []deck.Card) int {
	heroRank := evaluator.Evaluate(append(append(make([]deck.Card, 0, 7), board...), hero...))
	villainRank := evaluator.Evaluate(append(append(make([]deck.Card, 0, 7), board...), villain...))
	return evaluator.Compare(heroRank, villainRank)
}
