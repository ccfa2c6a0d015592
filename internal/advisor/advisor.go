// Package advisor turns a trained strategy artifact into action
// recommendations for live hands, with an equity heuristic as the fallback
// whenever the artifact cannot answer.
package advisor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lox/holdem-solver/internal/abstraction"
	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/equity"
	"github.com/lox/holdem-solver/internal/evaluator"
	"github.com/lox/holdem-solver/internal/game"
	"github.com/lox/holdem-solver/internal/strategy"
)

// DefaultEquitySamples sizes the Monte-Carlo estimate behind Equity.
const DefaultEquitySamples = 10000

// recommendSamples sizes the quicker estimate inside Recommend.
const recommendSamples = 1000

// aggressionThreshold is the equity above which the fallback bets the pot.
const aggressionThreshold = 0.7

// Query describes a live decision point from the hero's perspective.
// History is the canonical betting string ("c/kbMID/" style); BigBlind may
// be zero when unknown.
type Query struct {
	Hole         []deck.Card
	Board        []deck.Card
	Pot          int
	ToCall       int
	HeroStack    int
	VillainStack int
	BigBlind     int
	History      string
}

// Recommendation is the advisor's answer: the point action with its chip
// amount, the hero's equity, and the full action distribution it was drawn
// from.
type Recommendation struct {
	Action       string
	Amount       int
	Equity       float64
	Distribution map[string]float64
}

// Advisor answers queries against an immutable artifact. A nil artifact
// means every query takes the equity fallback.
type Advisor struct {
	artifact *strategy.Artifact
	mapper   *abstraction.Mapper
	seed     int64
}

// New wraps a loaded artifact. The mapper must match the abstraction the
// artifact was trained under.
func New(artifact *strategy.Artifact, mapper *abstraction.Mapper) *Advisor {
	return &Advisor{artifact: artifact, mapper: mapper, seed: 1}
}

// Load reads an artifact from disk and verifies it matches the mapper's
// abstraction. On any artifact error the caller can still serve queries by
// constructing an advisor with a nil artifact.
func Load(path string, mapper *abstraction.Mapper) (*Advisor, error) {
	artifact, err := strategy.Load(path)
	if err != nil {
		return nil, err
	}
	if err := artifact.CheckAbstraction(mapper.Config().Checksum()); err != nil {
		return nil, err
	}
	return New(artifact, mapper), nil
}

// HasArtifact reports whether a trained strategy is loaded.
func (a *Advisor) HasArtifact() bool { return a.artifact != nil }

// Equity estimates the hero's win probability against a random hand.
func (a *Advisor) Equity(hole, board []deck.Card) (float64, error) {
	res, err := equity.EstimateParallel(hole, board, DefaultEquitySamples, 0, a.seed)
	if err != nil {
		return 0, err
	}
	return res.Equity(), nil
}

// Compare ranks two hole-card hands on a board: 1 if first wins, -1 if
// second wins, 0 on a tie.
func (a *Advisor) Compare(board, first, second []deck.Card) (int, error) {
	if len(board) < 3 || len(board) > 5 {
		return 0, fmt.Errorf("advisor: want 3-5 board cards, got %d", len(board))
	}
	if err := validateCards(first, board); err != nil {
		return 0, err
	}
	if err := validateCards(second, board); err != nil {
		return 0, err
	}

	firstRank := evaluator.Evaluate(append(append(make([]deck.Card, 0, 7), board...), first...))
	secondRank := evaluator.Evaluate(append(append(make([]deck.Card, 0, 7), board...), second...))
	return evaluator.Compare(firstRank, secondRank), nil
}

// Recommend answers a live decision point. When the derived info-set key is
// present in the artifact the published average strategy is returned with
// its argmax as the point action; otherwise the equity heuristic decides.
// Answers are deterministic for a given artifact and query.
func (a *Advisor) Recommend(q Query) (Recommendation, error) {
	if err := validateCards(q.Hole, q.Board); err != nil {
		return Recommendation{}, err
	}

	res, err := equity.EstimateParallel(q.Hole, q.Board, recommendSamples, 0, a.seed)
	if err != nil {
		return Recommendation{}, err
	}
	eq := res.Equity()

	if actions, dist, ok := a.lookup(q); ok {
		return a.fromStrategy(q, eq, actions, dist), nil
	}
	return a.fallback(q, eq), nil
}

// lookup derives the info-set key with the trainer's abstraction and history
// encoding and resolves it in the artifact. Abstraction misses and unknown
// keys simply report false; the caller recovers via the fallback.
func (a *Advisor) lookup(q Query) ([]string, []float64, bool) {
	if a.artifact == nil {
		return nil, nil, false
	}

	street, ok := game.StreetForBoard(len(q.Board))
	if !ok {
		return nil, nil, false
	}
	// A preflop-only artifact has nothing to say postflop.
	if a.artifact.Variant == strategy.VariantPreflop && street != game.StreetPreflop {
		return nil, nil, false
	}

	bucket, err := a.mapper.Bucket(q.Hole, q.Board)
	if err != nil {
		return nil, nil, false
	}

	history := q.History
	// Postflop artifacts reach the flop through a limped preflop; align
	// caller histories that start at the flop.
	if a.artifact.Variant == strategy.VariantPostflop && street != game.StreetPreflop && !strings.HasPrefix(history, "ck/") {
		history = "ck/" + history
	}

	actions, dist, ok := a.artifact.AverageStrategy(game.InfoSetKey(street, bucket, history))
	return actions, dist, ok
}

func (a *Advisor) fromStrategy(q Query, eq float64, actions []string, dist []float64) Recommendation {
	best := 0
	for i, p := range dist {
		if p > dist[best] {
			best = i
		}
	}

	distribution := make(map[string]float64, len(actions))
	for i, tag := range actions {
		distribution[tag] = dist[i]
	}

	return Recommendation{
		Action:       actions[best],
		Amount:       a.amountFor(actions[best], q),
		Equity:       eq,
		Distribution: distribution,
	}
}

// fallback is the equity heuristic: call when pot odds justify it, fold
// otherwise, and bet the pot with strong equity. The distribution shades
// between the live options by equity.
func (a *Advisor) fallback(q Query, eq float64) Recommendation {
	var action string
	var distribution map[string]float64

	canRaise := q.HeroStack > q.ToCall

	if q.ToCall == 0 {
		distribution = map[string]float64{"k": 1 - eq, "bMID": eq}
		action = "k"
		if eq > aggressionThreshold && canRaise {
			action = "bMID"
		}
	} else {
		potOdds := float64(q.ToCall) / float64(q.Pot+q.ToCall)
		switch {
		case eq > potOdds+0.1:
			distribution = map[string]float64{"f": 0, "c": 0.6, "bMID": 0.4}
		case eq > potOdds:
			distribution = map[string]float64{"f": 0.2, "c": 0.7, "bMID": 0.1}
		default:
			distribution = map[string]float64{"f": 0.8, "c": 0.2, "bMID": 0}
		}

		if eq*float64(q.Pot+q.ToCall) >= float64(q.ToCall) {
			action = "c"
		} else {
			action = "f"
		}
		if eq > aggressionThreshold && canRaise {
			action = "bMID"
		}
	}

	return Recommendation{
		Action:       action,
		Amount:       a.amountFor(action, q),
		Equity:       eq,
		Distribution: distribution,
	}
}

// amountFor concretises an abstract action tag into chips for this state:
// bMIN=⌈pot/3⌉ and bMID=pot on top of the call, bMAX is the whole stack.
func (a *Advisor) amountFor(tag string, q Query) int {
	switch tag {
	case "f", "k":
		return 0
	case "c":
		return min(q.ToCall, q.HeroStack)
	case "bMIN":
		return min(q.ToCall+clampBet((q.Pot+2)/3, q.BigBlind), q.HeroStack)
	case "bMID":
		return min(q.ToCall+clampBet(q.Pot, q.BigBlind), q.HeroStack)
	case "bMAX":
		return q.HeroStack
	default:
		return 0
	}
}

func clampBet(amount, bigBlind int) int {
	if bigBlind > 0 && amount < bigBlind {
		return bigBlind
	}
	return amount
}

func validateCards(hole, board []deck.Card) error {
	if len(hole) != 2 {
		return fmt.Errorf("advisor: want 2 hole cards, got %d", len(hole))
	}
	if len(board) > 5 {
		return errors.New("advisor: too many board cards")
	}

	var seen evaluator.Hand
	for _, c := range append(append(make([]deck.Card, 0, 7), hole...), board...) {
		if c > 51 {
			return fmt.Errorf("advisor: invalid card %d", c)
		}
		if seen.Contains(c) {
			return fmt.Errorf("advisor: duplicate card %s", c)
		}
		seen = seen.Add(c)
	}
	return nil
}
