package deck

import (
	"fmt"
	"strings"
)

// Suit represents a card suit. Suits carry no ordering in this variant.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// String returns the suit glyph.
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Name returns the lowercase suit name used on the wire.
func (s Suit) Name() string {
	switch s {
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	case Hearts:
		return "hearts"
	case Spades:
		return "spades"
	default:
		return "unknown"
	}
}

// SuitByName returns the suit for a wire name.
func SuitByName(name string) (Suit, error) {
	switch name {
	case "clubs":
		return Clubs, nil
	case "diamonds":
		return Diamonds, nil
	case "hearts":
		return Hearts, nil
	case "spades":
		return Spades, nil
	default:
		return 0, fmt.Errorf("unknown suit %q", name)
	}
}

// Rank represents a card rank. The raw value runs 1..13 with Ace low;
// straight detection uses the raw value while magnitude comparisons use
// HighValue, which promotes the Ace to 14.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the short rank name.
func (r Rank) String() string {
	switch r {
	case Ace:
		return "A"
	case Ten:
		return "T"
	case Jack:
		return "J"
	case Queen:
		return "Q"
	case King:
		return "K"
	default:
		if r >= Two && r <= Nine {
			return fmt.Sprintf("%d", int(r))
		}
		return "?"
	}
}

// Value returns the raw rank value with Ace low (1).
func (r Rank) Value() int {
	return int(r)
}

// HighValue returns the rank value with Ace promoted to 14. Used for
// kicker comparisons and the dealer qualification threshold.
func (r Rank) HighValue() int {
	if r == Ace {
		return 14
	}
	return int(r)
}

// Card is an immutable playing card.
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a card.
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String renders a card like "A♠".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// ParseCard parses a two-character card like "As" or "7d" (rank then suit,
// case insensitive). Mostly a convenience for tests and the CLI clients.
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}

	var rank Rank
	switch strings.ToUpper(s[:1]) {
	case "A":
		rank = Ace
	case "2", "3", "4", "5", "6", "7", "8", "9":
		rank = Rank(s[0] - '0')
	case "T":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	default:
		return Card{}, fmt.Errorf("invalid rank in %q", s)
	}

	var suit Suit
	switch strings.ToLower(s[1:2]) {
	case "c":
		suit = Clubs
	case "d":
		suit = Diamonds
	case "h":
		suit = Hearts
	case "s":
		suit = Spades
	default:
		return Card{}, fmt.Errorf("invalid suit in %q", s)
	}

	return Card{Suit: suit, Rank: rank}, nil
}

// ParseCards parses a concatenated card string like "AsKh7d".
func ParseCards(s string) ([]Card, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid card string %q", s)
	}

	cards := make([]Card, 0, len(s)/2)
	for i := 0; i < len(s); i += 2 {
		card, err := ParseCard(s[i : i+2])
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// MustParseCards is ParseCards that panics on error. Test helper.
func MustParseCards(s string) []Card {
	cards, err := ParseCards(s)
	if err != nil {
		panic(err)
	}
	return cards
}
