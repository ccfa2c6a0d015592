package equity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/holdem-solver/internal/deck"
	"github.com/lox/holdem-solver/internal/randutil"
)

func TestPocketAcesPreflop(t *testing.T) {
	res, err := Estimate(deck.MustParseCards("AhAd"), nil, 10000, randutil.New(1))
	require.NoError(t, err)

	eq := res.Equity()
	assert.Greater(t, eq, 0.82, "AA equity")
	assert.Less(t, eq, 0.87, "AA equity")
}

func TestSevenDeucePreflop(t *testing.T) {
	res, err := Estimate(deck.MustParseCards("2h7d"), nil, 10000, randutil.New(1))
	require.NoError(t, err)

	eq := res.Equity()
	assert.Greater(t, eq, 0.30, "72o equity")
	assert.Less(t, eq, 0.38, "72o equity")
}

func TestNutsOnRiver(t *testing.T) {
	// Hero's hole cards complete a royal flush with the board: hero cannot lose.
	hole := deck.MustParseCards("AhKh")
	board := deck.MustParseCards("QhJhTh2c3d")

	res, err := Estimate(hole, board, 500, randutil.New(3))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Equity())
}

func TestDeterministicForSeed(t *testing.T) {
	hole := deck.MustParseCards("QsQd")
	board := deck.MustParseCards("7h8h9h")

	a, err := Estimate(hole, board, 2000, randutil.New(11))
	require.NoError(t, err)
	b, err := Estimate(hole, board, 2000, randutil.New(11))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEstimateParallelDeterministic(t *testing.T) {
	hole := deck.MustParseCards("AhAd")

	a, err := EstimateParallel(hole, nil, 8000, 4, 5)
	require.NoError(t, err)
	b, err := EstimateParallel(hole, nil, 8000, 4, 5)
	require.NoError(t, err)
	require.Equal(t, a, b)
	assert.Equal(t, 8000, a.Samples)
	assert.InDelta(t, 0.85, a.Equity(), 0.03)
}

func TestEstimateRejectsBadInput(t *testing.T) {
	_, err := Estimate(deck.MustParseCards("Ah"), nil, 100, randutil.New(1))
	assert.Error(t, err)

	_, err = Estimate(deck.MustParseCards("AhAd"), deck.MustParseCards("Ah2c3d"), 100, randutil.New(1))
	assert.Error(t, err, "hole card reused on board")

	_, err = Estimate(deck.MustParseCards("AhAd"), nil, 0, randutil.New(1))
	assert.Error(t, err)
}

func TestDistributionNormalised(t *testing.T) {
	hist, err := Distribution(deck.MustParseCards("AhKh"), deck.MustParseCards("QhJh2c"), 10, 50, 100, randutil.New(2))
	require.NoError(t, err)
	require.Len(t, hist, 10)

	sum := 0.0
	for _, h := range hist {
		assert.GreaterOrEqual(t, h, 0.0)
		sum += h
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestDistributionStrongHandSkewsHigh(t *testing.T) {
	// Top set on a dry board should mass in the upper bins.
	hist, err := Distribution(deck.MustParseCards("AhAd"), deck.MustParseCards("As7c2d"), 10, 40, 120, randutil.New(4))
	require.NoError(t, err)

	upper := 0.0
	for _, h := range hist[5:] {
		upper += h
	}
	assert.Greater(t, upper, 0.9)
}
