package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmpty is returned when dealing from an exhausted deck.
var ErrEmpty = errors.New("deck is empty")

// Deck is an ordered 52-card deck dealt from the front. Each session owns
// its own deck, so no locking happens here.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full unshuffled deck using the provided random source.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.fill()
	return d
}

// NewStacked builds a deck that deals the given cards in order. Shuffle is
// a no-op on a stacked deck so tests can force exact hands.
func NewStacked(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

func (d *Deck) fill() {
	d.cards = d.cards[:0]
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Ace; rank <= King; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
}

// Shuffle puts the deck into a uniformly random order.
func (d *Deck) Shuffle() {
	if d.rng == nil {
		return
	}
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Reset restores all 52 cards and shuffles. Nothing previously dealt
// survives.
func (d *Deck) Reset() {
	d.fill()
	d.Shuffle()
}

// Deal removes and returns the top card.
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealN deals n cards without replacement.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrEmpty
	}
	cards := make([]Card, n)
	for i := range cards {
		card, err := d.Deal()
		if err != nil {
			return nil, err
		}
		cards[i] = card
	}
	return cards, nil
}

// Remaining returns the number of undealt cards.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
