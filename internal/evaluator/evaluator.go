// Package evaluator implements hand classification, comparison and payout
// rules for the three-card variant. The category ordering differs from
// five-card poker: with only three cards a straight is rarer than a flush,
// so Straight outranks Flush here. Do not "correct" the ordering to the
// five-card one.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cardwire/tricard/internal/deck"
)

// HandSize is the fixed number of cards in a hand.
const HandSize = 3

// ErrHandSize is returned when a hand does not hold exactly three cards.
var ErrHandSize = errors.New("hand must contain exactly 3 cards")

// Category is the six-way hand classification, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	Flush
	Straight
	ThreeOfAKind
	StraightFlush
)

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case Flush:
		return "Flush"
	case Straight:
		return "Straight"
	case ThreeOfAKind:
		return "Three of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Pair Plus multipliers. Each multiplier is the total return per unit bet,
// stake included: a winning Pair at 1:1 pays back 2x the wager.
const (
	multStraightFlush = 41
	multThreeOfAKind  = 31
	multStraight      = 7
	multFlush         = 4
	multPair          = 2
)

// Classify evaluates a three-card hand into its category.
func Classify(hand []deck.Card) (Category, error) {
	if len(hand) != HandSize {
		return HighCard, fmt.Errorf("%w: got %d", ErrHandSize, len(hand))
	}

	values := sortedValues(hand)
	flush := hand[0].Suit == hand[1].Suit && hand[1].Suit == hand[2].Suit
	straight := isStraight(values)
	trips := values[0] == values[1] && values[1] == values[2]

	switch {
	case flush && straight:
		return StraightFlush, nil
	case trips:
		return ThreeOfAKind, nil
	case straight:
		return Straight, nil
	case flush:
		return Flush, nil
	case values[0] == values[1] || values[1] == values[2]:
		return Pair, nil
	default:
		return HighCard, nil
	}
}

// isStraight reports whether the ascending raw rank values form a run.
// The Ace sorts to 1, so both the wheel (A-2-3) and broadway (Q-K-A)
// show up as special shapes rather than consecutive values.
func isStraight(values [HandSize]int) bool {
	if values[1] == values[0]+1 && values[2] == values[1]+1 {
		return true
	}
	if values[0] == 1 && values[1] == 12 && values[2] == 13 {
		return true
	}
	return false
}

// Compare compares a dealer hand against a player hand.
// It returns -1 if the dealer wins, +1 if the player wins, and 0 on a tie.
func Compare(dealer, player []deck.Card) (int, error) {
	dealerCat, err := Classify(dealer)
	if err != nil {
		return 0, fmt.Errorf("dealer hand: %w", err)
	}
	playerCat, err := Classify(player)
	if err != nil {
		return 0, fmt.Errorf("player hand: %w", err)
	}

	if dealerCat > playerCat {
		return -1, nil
	}
	if playerCat > dealerCat {
		return 1, nil
	}

	// Same category. For pairs and trips the matched rank decides first,
	// with the Ace promoted to 14. Trips degenerate to the same value on
	// all three cards, so the kicker loop below settles nothing new there.
	if dealerCat == Pair || dealerCat == ThreeOfAKind {
		dealerPair := promoteAce(pairValue(sortedValues(dealer)))
		playerPair := promoteAce(pairValue(sortedValues(player)))
		if playerPair > dealerPair {
			return 1, nil
		}
		if dealerPair > playerPair {
			return -1, nil
		}
	}

	// Kicker comparison: highest to lowest with the Ace promoted to 14.
	// Straight shape detection already happened above on raw values; only
	// the magnitude comparison treats the Ace as high.
	dealerHigh := highSortedDesc(dealer)
	playerHigh := highSortedDesc(player)
	for i := 0; i < HandSize; i++ {
		if playerHigh[i] > dealerHigh[i] {
			return 1, nil
		}
		if dealerHigh[i] > playerHigh[i] {
			return -1, nil
		}
	}
	return 0, nil
}

// DealerQualifies reports whether the dealer hand contests the ante and
// play wagers: any made hand, or Queen-high or better.
func DealerQualifies(hand []deck.Card) (bool, error) {
	cat, err := Classify(hand)
	if err != nil {
		return false, err
	}
	if cat > HighCard {
		return true, nil
	}

	high := 0
	for _, c := range hand {
		if v := c.Rank.HighValue(); v > high {
			high = v
		}
	}
	return high >= deck.Queen.Value(), nil
}

// PairPlusPayout returns the total Pair Plus return (stake included) for a
// hand, or 0 when the wager is forfeited. The side bet pays on the player's
// hand alone, regardless of what the dealer holds.
func PairPlusPayout(hand []deck.Card, bet int) (int, error) {
	cat, err := Classify(hand)
	if err != nil {
		return 0, err
	}

	if cat == Pair {
		// Safety guard inherited from the house rules: a matched rank
		// below deuce never pays. Unreachable in practice, since the
		// lowest pair in this format carries raw value 2.
		if pairValue(sortedValues(hand)) < 2 {
			return 0, nil
		}
	}

	switch cat {
	case StraightFlush:
		return bet * multStraightFlush, nil
	case ThreeOfAKind:
		return bet * multThreeOfAKind, nil
	case Straight:
		return bet * multStraight, nil
	case Flush:
		return bet * multFlush, nil
	case Pair:
		return bet * multPair, nil
	default:
		return 0, nil
	}
}

// sortedValues returns the raw rank values in ascending order (Ace low).
func sortedValues(hand []deck.Card) [HandSize]int {
	var values [HandSize]int
	for i, c := range hand {
		values[i] = c.Rank.Value()
	}
	sort.Ints(values[:])
	return values
}

// highSortedDesc returns the rank values with Ace promoted to 14, sorted
// descending.
func highSortedDesc(hand []deck.Card) [HandSize]int {
	var values [HandSize]int
	for i, c := range hand {
		values[i] = c.Rank.HighValue()
	}
	sort.Sort(sort.Reverse(sort.IntSlice(values[:])))
	return values
}

// pairValue returns the raw value of the matched rank in an ascending-sorted
// value triple, or 0 when no two values match.
func pairValue(values [HandSize]int) int {
	if values[0] == values[1] || values[0] == values[2] {
		return values[0]
	}
	if values[1] == values[2] {
		return values[1]
	}
	return 0
}

func promoteAce(value int) int {
	if value == 1 {
		return 14
	}
	return value
}
