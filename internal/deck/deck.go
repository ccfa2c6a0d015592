package deck

import rand "math/rand/v2"

// Deck is a permutation of all 52 cards. Dealing removes from the head; the
// deck never contains duplicates.
type Deck struct {
	cards [52]Card
	next  int
	rng   *rand.Rand
}

// New creates a shuffled deck using the provided RNG.
func New(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	for i := range d.cards {
		d.cards[i] = Card(i)
	}
	d.Shuffle()
	return d
}

// Shuffle reshuffles the full deck with Fisher-Yates and rewinds dealing.
func (d *Deck) Shuffle() {
	d.next = 0
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal deals n cards from the head of the deck into a fresh slice, so later
// shuffles never reach into cards a caller is still holding. Returns nil
// when fewer than n cards remain.
func (d *Deck) Deal(n int) []Card {
	if n < 0 || n > d.Remaining() {
		return nil
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:])
	d.next += n
	return cards
}

// DealOne deals a single card; false once the deck is exhausted.
func (d *Deck) DealOne() (Card, bool) {
	if d.Remaining() == 0 {
		return 0, false
	}
	card := d.cards[d.next]
	d.next++
	return card, true
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards) - d.next
}
