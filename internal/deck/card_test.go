package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-solver/internal/randutil"
)

func TestCardRoundTrip(t *testing.T) {
	for i := 0; i < 52; i++ {
		c := Card(i)
		parsed, err := ParseCard(c.String())
		require.NoError(t, err, "card %d", i)
		assert.Equal(t, c, parsed)
	}
}

func TestCardEncoding(t *testing.T) {
	c, err := ParseCard("As")
	require.NoError(t, err)
	assert.Equal(t, Ace, c.Rank())
	assert.Equal(t, Spades, c.Suit())

	c, err = ParseCard("2h")
	require.NoError(t, err)
	assert.Equal(t, Card(0), c)
}

func TestParseCardRankCaseInsensitive(t *testing.T) {
	lower, err := ParseCard("th")
	require.NoError(t, err)
	upper, err := ParseCard("Th")
	require.NoError(t, err)
	assert.Equal(t, upper, lower)
}

func TestParseCardSuitCaseSensitive(t *testing.T) {
	_, err := ParseCard("AS")
	assert.Error(t, err, "uppercase suit must be rejected")
}

func TestParseCardInvalid(t *testing.T) {
	for _, s := range []string{"", "A", "Asd", "1h", "Ax"} {
		_, err := ParseCard(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestParseCardsRejectsDuplicates(t *testing.T) {
	_, err := ParseCards("AhAh")
	assert.Error(t, err)
}

func TestDeckDealsWithoutReplacement(t *testing.T) {
	d := New(randutil.New(1))

	seen := make(map[Card]bool)
	for {
		c, ok := d.DealOne()
		if !ok {
			break
		}
		require.False(t, seen[c], "dealt %s twice", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestDeckExhaustion(t *testing.T) {
	d := New(randutil.New(1))
	require.Len(t, d.Deal(52), 52)

	_, ok := d.DealOne()
	assert.False(t, ok, "empty deck has nothing to deal")
	assert.Nil(t, d.Deal(1))
	assert.Nil(t, d.Deal(-1))
}

func TestDealReturnsDetachedCards(t *testing.T) {
	d := New(randutil.New(2))
	held := d.Deal(5)
	want := append([]Card(nil), held...)

	d.Shuffle()
	assert.Equal(t, want, held, "shuffle must not reach into dealt cards")
}

func TestDeckShuffleDeterministic(t *testing.T) {
	a := New(randutil.New(7))
	b := New(randutil.New(7))
	assert.Equal(t, a.Deal(52), b.Deal(52))
}
