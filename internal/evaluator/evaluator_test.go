package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwire/tricard/internal/deck"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		hand string
		want Category
	}{
		{"high card", "As7d2c", HighCard},
		{"high card king", "Kh9c4s", HighCard},
		{"pair of twos", "2h2d9c", Pair},
		{"pair of aces", "AhAd9c", Pair},
		{"pair of kings", "KhKd2c", Pair},
		{"flush", "2h7hJh", Flush},
		{"flush ace high", "AhQh7h", Flush},
		{"straight", "4d5h6c", Straight},
		{"straight ten high", "8sTd9c", Straight},
		{"wheel", "Ah2d3c", Straight},
		{"broadway", "QhKsAd", Straight},
		{"trips", "7h7d7c", ThreeOfAKind},
		{"trip aces", "AhAdAc", ThreeOfAKind},
		{"straight flush", "4h5h6h", StraightFlush},
		{"wheel straight flush", "Ah2h3h", StraightFlush},
		{"broadway straight flush", "QsKsAs", StraightFlush},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(deck.MustParseCards(tt.hand))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "hand %s", tt.hand)
		})
	}
}

func TestClassifyHandSize(t *testing.T) {
	for _, hand := range []string{"", "As", "AsKs", "AsKsQsJs"} {
		_, err := Classify(deck.MustParseCards(hand))
		assert.ErrorIs(t, err, ErrHandSize, "hand %q", hand)
	}
}

func TestCategoryOrdering(t *testing.T) {
	// The three-card ordering puts Straight above Flush, unlike five-card
	// poker. This is a house rule, not a bug.
	assert.Greater(t, Straight, Flush)
	assert.Greater(t, ThreeOfAKind, Straight)
	assert.Greater(t, StraightFlush, ThreeOfAKind)
	assert.Greater(t, Flush, Pair)
	assert.Greater(t, Pair, HighCard)

	straight, err := Classify(deck.MustParseCards("4d5h6c"))
	require.NoError(t, err)
	flush, err := Classify(deck.MustParseCards("2h9hQh"))
	require.NoError(t, err)
	assert.Greater(t, straight, flush)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		dealer string
		player string
		want   int // -1 dealer, 0 tie, +1 player
	}{
		{"higher category wins", "KhKd2c", "2h7hJh", 1},
		{"straight beats flush", "AhQh7h", "4d5h6c", 1},
		{"flush loses to straight", "4d5h6c", "AhQh7h", -1},
		{"higher pair wins", "9h9d2c", "ThTd3c", 1},
		{"pair of aces beats pair of kings", "KhKd2c", "AdAc3s", 1},
		{"equal pair decided by kicker", "9h9dKc", "9s9cQd", -1},
		{"high card ace high wins", "Ks7d4c", "Ah7c4d", 1},
		{"high card second kicker", "AhKd4c", "AsKs5d", 1},
		{"exact tie", "Ah7d4c", "As7c4s", 0},
		{"higher straight wins", "4d5h6c", "5d6h7c", 1},
		{"broadway beats wheel", "Ah2d3c", "QdKcAs", 1},
		{"higher trips win", "7h7d7c", "8h8d8s", 1},
		{"trip aces beat trip kings", "KhKdKc", "AhAdAs", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dealer := deck.MustParseCards(tt.dealer)
			player := deck.MustParseCards(tt.player)

			got, err := Compare(dealer, player)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Antisymmetry: swapping the hands must flip the sign.
			flipped, err := Compare(player, dealer)
			require.NoError(t, err)
			assert.Equal(t, -tt.want, flipped)
		})
	}
}

func TestCompareSelfIsTie(t *testing.T) {
	hands := []string{"As7d2c", "2h2d9c", "2h7hJh", "4d5h6c", "7h7d7c", "4h5h6h", "Ah2d3c", "QhKsAd"}
	for _, hand := range hands {
		cmp, err := Compare(deck.MustParseCards(hand), deck.MustParseCards(hand))
		require.NoError(t, err)
		assert.Zero(t, cmp, "hand %s vs itself", hand)
	}
}

func TestCompareHandSize(t *testing.T) {
	_, err := Compare(deck.MustParseCards("As"), deck.MustParseCards("Ah7d2c"))
	assert.ErrorIs(t, err, ErrHandSize)
	_, err = Compare(deck.MustParseCards("Ah7d2c"), deck.MustParseCards("As"))
	assert.ErrorIs(t, err, ErrHandSize)
}

func TestDealerQualifies(t *testing.T) {
	tests := []struct {
		name string
		hand string
		want bool
	}{
		{"pair qualifies", "2h2d5c", true},
		{"flush qualifies", "2h7hJh", true},
		{"straight qualifies", "4d5h6c", true},
		{"trips qualify", "7h7d7c", true},
		{"straight flush qualifies", "4h5h6h", true},
		{"queen high qualifies", "Qh7d4c", true},
		{"king high qualifies", "Kh7d4c", true},
		{"ace high qualifies", "Ah7d4c", true},
		{"jack high does not qualify", "Jh7d4c", false},
		{"ten high does not qualify", "Th7d4c", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DealerQualifies(deck.MustParseCards(tt.hand))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPairPlusPayout(t *testing.T) {
	tests := []struct {
		name string
		hand string
		bet  int
		want int
	}{
		{"high card forfeits", "As7d2c", 10, 0},
		{"pair pays 2x", "9h9d2c", 10, 20},
		{"pair of twos pays 2x", "2h2d9c", 5, 10},
		{"flush pays 4x", "2h7hJh", 10, 40},
		{"straight pays 7x", "4d5h6c", 10, 70},
		{"trips pay 31x", "7h7d7c", 10, 310},
		{"straight flush pays 41x", "4h5h6h", 10, 410},
		{"broadway straight flush pays 41x", "QsKsAs", 5, 205},
		{"zero bet pays zero", "9h9d2c", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PairPlusPayout(deck.MustParseCards(tt.hand), tt.bet)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyExhaustsExactlyOneCategory(t *testing.T) {
	// Spot-check over a spread of hands that every classification lands in
	// the defined range and that straight flushes imply both shape checks.
	hands := []string{
		"As7d2c", "2h2d9c", "2h7hJh", "4d5h6c", "7h7d7c", "4h5h6h",
		"Ah2d3c", "QhKsAd", "Ah2h3h", "QsKsAs", "ThJhQh", "9c9d9h",
	}
	for _, hand := range hands {
		cat, err := Classify(deck.MustParseCards(hand))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, cat, HighCard)
		assert.LessOrEqual(t, cat, StraightFlush)
	}

	sf, err := Classify(deck.MustParseCards("ThJhQh"))
	require.NoError(t, err)
	assert.Equal(t, StraightFlush, sf)
}
