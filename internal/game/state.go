package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"strings"

	"github.com/lox/holdem-solver/internal/deck"
)

// ErrInvalidAction reports an action that is not legal in the current state,
// e.g. a check while facing a bet.
var ErrInvalidAction = errors.New("game: action not legal in current state")

// Config fixes the chip structure of a hand.
type Config struct {
	SmallBlind int
	BigBlind   int
	Stack      int // starting stack per player
}

// Validate ensures the structure is playable.
func (c Config) Validate() error {
	if c.SmallBlind <= 0 {
		return errors.New("game: small blind must be positive")
	}
	if c.BigBlind <= c.SmallBlind {
		return errors.New("game: big blind must exceed small blind")
	}
	if c.Stack <= c.BigBlind {
		return errors.New("game: stack must exceed big blind")
	}
	return nil
}

// State is one heads-up hand. Player indices are 0 and 1; Button posts the
// small blind and acts first preflop, the other player acts first on every
// later street. The full board is pre-dealt at the chance node and revealed
// per street, which is what external sampling needs: one chance outcome per
// traversal.
type State struct {
	cfg    Config
	button int
	street Street

	holes     [2][2]deck.Card
	fullBoard [5]deck.Card

	stacks     [2]int
	committed  [2]int // whole hand
	streetBets [2]int // current street only

	actor         int
	actedSinceBet int
	folded        int // -1 while both players are live
	terminal      bool

	history [][]string // action tags per street; last entry is the current street
}

// NewHand deals a fresh hand from the RNG: both hole pairs and the full
// five-card runout.
func NewHand(cfg Config, button int, rng *rand.Rand) (*State, error) {
	d := deck.New(rng)

	var holes [2][2]deck.Card
	copy(holes[0][:], d.Deal(2))
	copy(holes[1][:], d.Deal(2))

	var board [5]deck.Card
	copy(board[:], d.Deal(5))

	return NewHandFromCards(cfg, button, holes, board)
}

// NewHandFromCards starts a hand from explicit cards. Blinds are posted and
// the button is first to act.
func NewHandFromCards(cfg Config, button int, holes [2][2]deck.Card, board [5]deck.Card) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if button != 0 && button != 1 {
		return nil, fmt.Errorf("game: invalid button %d", button)
	}

	s := &State{
		cfg:       cfg,
		button:    button,
		street:    StreetPreflop,
		holes:     holes,
		fullBoard: board,
		actor:     button,
		folded:    -1,
		history:   [][]string{{}},
	}

	bb := 1 - button
	s.stacks[button] = cfg.Stack - cfg.SmallBlind
	s.stacks[bb] = cfg.Stack - cfg.BigBlind
	s.committed[button] = cfg.SmallBlind
	s.committed[bb] = cfg.BigBlind
	s.streetBets[button] = cfg.SmallBlind
	s.streetBets[bb] = cfg.BigBlind

	return s, nil
}

// Street returns the current street; StreetShowdown once the hand has gone
// to a showdown.
func (s *State) Street() Street { return s.street }

// Actor returns the player to act. Meaningless at terminal states.
func (s *State) Actor() int { return s.actor }

// Button returns the small-blind player.
func (s *State) Button() int { return s.button }

// Pot returns the chips committed by both players.
func (s *State) Pot() int { return s.committed[0] + s.committed[1] }

// Committed returns the chips player p has put into the pot this hand.
func (s *State) Committed(p int) int { return s.committed[p] }

// Stack returns player p's remaining chips.
func (s *State) Stack(p int) int { return s.stacks[p] }

// ToCall returns the chips player p must add to match the outstanding bet.
func (s *State) ToCall(p int) int {
	diff := s.streetBets[1-p] - s.streetBets[p]
	if diff < 0 {
		return 0
	}
	return diff
}

// Hole returns player p's hole cards.
func (s *State) Hole(p int) []deck.Card { return s.holes[p][:] }

// Board returns the community cards visible on the current street.
func (s *State) Board() []deck.Card { return s.fullBoard[:s.street.BoardSize()] }

// IsTerminal reports whether the hand has ended.
func (s *State) IsTerminal() bool { return s.terminal }

// LegalActions enumerates the discrete actions available to the current
// actor, amounts filled in. Facing a bet: fold, call and raises; otherwise
// check and bets. Bet sizes are bMIN=⌈pot/3⌉, bMID=pot and bMAX=stack, each
// at least one big blind, with MIN and MID collapsing into MAX when they
// would exceed the remaining stack.
func (s *State) LegalActions() []Action {
	if s.terminal {
		return nil
	}

	p := s.actor
	opp := 1 - p
	toCall := s.ToCall(p)

	actions := make([]Action, 0, 5)
	if toCall > 0 {
		actions = append(actions, Action{Kind: Fold}, Action{Kind: Call, Amount: min(toCall, s.stacks[p])})
	} else {
		actions = append(actions, Action{Kind: Check})
	}

	// Raising needs an opponent with chips behind and something beyond a call.
	if s.stacks[opp] == 0 || s.stacks[p] <= toCall {
		return actions
	}

	pot := s.Pot()
	maxInc := s.stacks[p] - toCall
	minInc := clampInc(ceilDiv(pot, 3), s.cfg.BigBlind)
	midInc := clampInc(pot, s.cfg.BigBlind)

	if minInc < maxInc {
		actions = append(actions, Action{Kind: Bet, Size: SizeMin, Amount: minInc})
	}
	if midInc < maxInc && midInc != minInc {
		actions = append(actions, Action{Kind: Bet, Size: SizeMid, Amount: midInc})
	}
	actions = append(actions, Action{Kind: Bet, Size: SizeMax, Amount: maxInc})

	return actions
}

// Apply advances the hand by one action, returning the successor state. The
// receiver is unchanged. Actions are validated against LegalActions;
// amounts are taken from the legal enumeration, not the argument.
func (s *State) Apply(a Action) (*State, error) {
	var legal *Action
	for _, la := range s.LegalActions() {
		if la.Kind == a.Kind && (la.Kind != Bet || la.Size == a.Size) {
			legal = &la
			break
		}
	}
	if legal == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAction, a.Tag())
	}

	n := s.clone()
	p := n.actor
	opp := 1 - p
	toCall := n.ToCall(p)
	n.appendTag(legal.Tag())

	switch legal.Kind {
	case Fold:
		n.folded = p
		n.terminal = true
		return n, nil

	case Check:
		n.actedSinceBet++

	case Call:
		pay := min(toCall, n.stacks[p])
		n.pay(p, pay)
		if pay < toCall {
			// Short all-in call: the uncalled excess goes back to the bettor.
			excess := toCall - pay
			n.stacks[opp] += excess
			n.streetBets[opp] -= excess
			n.committed[opp] -= excess
		}
		n.actedSinceBet++

	case Bet:
		n.pay(p, toCall+legal.Amount)
		n.actedSinceBet = 1
	}

	if n.actedSinceBet >= 2 && n.streetBets[0] == n.streetBets[1] {
		n.advanceStreet()
	} else {
		n.actor = opp
	}
	return n, nil
}

func (s *State) pay(p, amount int) {
	s.stacks[p] -= amount
	s.streetBets[p] += amount
	s.committed[p] += amount
}

// advanceStreet closes the current betting round. With a player all-in the
// remaining cards run out and the hand goes straight to showdown.
func (s *State) advanceStreet() {
	s.history = append(s.history, []string{})

	if s.stacks[0] == 0 || s.stacks[1] == 0 || s.street == StreetRiver {
		s.street = StreetShowdown
		s.terminal = true
		return
	}

	s.street++
	s.streetBets = [2]int{}
	s.actedSinceBet = 0
	s.actor = 1 - s.button
}

// Showdown reports the showdown result from player p's perspective using the
// provided comparator over (board, hole, hole): 1 win, 0 tie, -1 loss.
type Showdown func(board, heroHole, villainHole []deck.Card) int

// TerminalUtility returns player p's signed chip delta at a terminal state.
// Fold pots go to the non-folder; showdowns use cmp. Utilities are zero-sum.
func (s *State) TerminalUtility(p int, cmp Showdown) (int, error) {
	if !s.terminal {
		return 0, errors.New("game: utility of non-terminal state")
	}
	opp := 1 - p

	if s.folded >= 0 {
		if s.folded == p {
			return -s.committed[p], nil
		}
		return s.committed[opp], nil
	}

	switch cmp(s.fullBoard[:], s.holes[p][:], s.holes[opp][:]) {
	case 1:
		return s.committed[opp], nil
	case -1:
		return -s.committed[p], nil
	default:
		return 0, nil
	}
}

// HistoryString renders the canonical betting history: per-street action
// tags, streets separated by '/', e.g. "c/kbMID/kk/".
func (s *State) HistoryString() string {
	var b strings.Builder
	for i, street := range s.history {
		if i > 0 {
			b.WriteByte('/')
		}
		for _, tag := range street {
			b.WriteString(tag)
		}
	}
	return b.String()
}

func (s *State) appendTag(tag string) {
	s.history[len(s.history)-1] = append(s.history[len(s.history)-1], tag)
}

func (s *State) clone() *State {
	n := *s
	n.history = make([][]string, len(s.history))
	for i, street := range s.history {
		n.history[i] = append([]string(nil), street...)
	}
	return &n
}

// InfoSetKey builds the stable "street|bucket|history" key that identifies
// the acting player's information set.
func InfoSetKey(street Street, bucket int, history string) string {
	return fmt.Sprintf("%d|%d|%s", int(street), bucket, history)
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func clampInc(inc, bigBlind int) int {
	if inc < bigBlind {
		return bigBlind
	}
	return inc
}
