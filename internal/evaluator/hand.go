package evaluator

import (
	"math/bits"

	"github.com/lox/holdem-solver/internal/deck"
)

// Hand is a bitfield holding up to 7 cards. Each card occupies the bit at
// suit*13 + rank, so a single 64-bit word carries the whole hand and suit
// masks fall out with shifts.
type Hand uint64

// NewHand builds a hand from cards.
func NewHand(cards ...deck.Card) Hand {
	var h Hand
	for _, c := range cards {
		h = h.Add(c)
	}
	return h
}

// Add returns the hand with the card included.
func (h Hand) Add(c deck.Card) Hand {
	return h | 1<<(uint64(c.Suit())*13+uint64(c.Rank()))
}

// Contains reports whether the card is in the hand.
func (h Hand) Contains(c deck.Card) bool {
	return h&(1<<(uint64(c.Suit())*13+uint64(c.Rank()))) != 0
}

// Count returns the number of cards in the hand.
func (h Hand) Count() int {
	return bits.OnesCount64(uint64(h))
}

// suitMask returns the 13-bit rank mask for one suit.
func (h Hand) suitMask(suit uint8) uint16 {
	return uint16(uint64(h)>>(uint64(suit)*13)) & rankMask13
}
