// Package protocol defines the wire contract between clients and the
// server. Every exchange is a versioned envelope carrying a discriminator
// and a typed JSON payload; the websocket frame boundary provides framing.
// The schema is explicit and language-neutral so any client implementation
// can speak it.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cardwire/tricard/internal/deck"
)

// Version is the current schema version carried in every envelope.
const Version = 1

// MessageType identifies the payload carried by an envelope.
type MessageType string

const (
	// Client -> Server
	TypeInitialBet   MessageType = "initial_bet"
	TypePlayerAction MessageType = "player_action"
	TypePlayAgain    MessageType = "play_again"
	TypeDisconnect   MessageType = "disconnect"

	// Server -> Client
	TypeCardsDealt MessageType = "cards_dealt"
	TypeGameResult MessageType = "game_result"
)

// String returns the string representation of the message type.
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope for all client/server communication.
type Message struct {
	V         int             `json:"v"`
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage builds an envelope around a payload, stamped with the given
// time.
func NewMessage(messageType MessageType, payload any, ts time.Time) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", messageType, err)
	}
	return &Message{
		V:         Version,
		Type:      messageType,
		Data:      data,
		Timestamp: ts,
	}, nil
}

// Decode unmarshals the envelope payload into v.
func (m *Message) Decode(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Card is the wire representation of a playing card. Named fields keep the
// schema self-describing instead of leaning on any in-band serializer.
type Card struct {
	Suit string `json:"suit"`
	Rank int    `json:"rank"`
}

// CardFromDeck converts a deck card to its wire form.
func CardFromDeck(c deck.Card) Card {
	return Card{Suit: c.Suit.Name(), Rank: c.Rank.Value()}
}

// ToDeck converts a wire card back to a deck card.
func (c Card) ToDeck() (deck.Card, error) {
	suit, err := deck.SuitByName(c.Suit)
	if err != nil {
		return deck.Card{}, err
	}
	if c.Rank < deck.Ace.Value() || c.Rank > deck.King.Value() {
		return deck.Card{}, fmt.Errorf("invalid rank %d", c.Rank)
	}
	return deck.NewCard(suit, deck.Rank(c.Rank)), nil
}

// CardsFromDeck converts a hand to wire form.
func CardsFromDeck(cards []deck.Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = CardFromDeck(c)
	}
	return out
}

// CardsToDeck converts wire cards back to deck cards.
func CardsToDeck(cards []Card) ([]deck.Card, error) {
	out := make([]deck.Card, len(cards))
	for i, c := range cards {
		dc, err := c.ToDeck()
		if err != nil {
			return nil, fmt.Errorf("card %d: %w", i, err)
		}
		out[i] = dc
	}
	return out, nil
}

// PlayerActionType is the player's decision after seeing their cards.
type PlayerActionType string

const (
	ActionPlay PlayerActionType = "play"
	ActionFold PlayerActionType = "fold"
)

// InitialBet opens a hand with the mandatory ante and the optional Pair
// Plus side wager.
type InitialBet struct {
	AnteBet     int `json:"anteBet"`
	PairPlusBet int `json:"pairPlusBet"`
}

// CardsDealt answers a valid InitialBet. Dealer cards travel with the
// message but are flagged hidden until settlement.
type CardsDealt struct {
	SessionID         string `json:"sessionId"`
	HandNumber        int    `json:"handNumber"`
	PlayerCards       []Card `json:"playerCards"`
	DealerCards       []Card `json:"dealerCards"`
	DealerCardsHidden bool   `json:"dealerCardsHidden"`
	AnteBet           int    `json:"anteBet"`
	PairPlusBet       int    `json:"pairPlusBet"`
}

// PlayerAction carries the play/fold decision. Clients echo the hands they
// were dealt; the server settles from its own session state regardless.
type PlayerAction struct {
	Action      PlayerActionType `json:"playerAction"`
	AnteBet     int              `json:"anteBet"`
	PairPlusBet int              `json:"pairPlusBet"`
	PlayBet     int              `json:"playBet"`
	PlayerCards []Card           `json:"playerCards"`
	DealerCards []Card           `json:"dealerCards"`
}

// GameResult settles a hand. Payout fields are total returns; delta and
// total winnings are signed nets.
type GameResult struct {
	SessionID             string `json:"sessionId"`
	HandNumber            int    `json:"handNumber"`
	PlayerCards           []Card `json:"playerCards"`
	DealerCards           []Card `json:"dealerCards"`
	DealerCardsHidden     bool   `json:"dealerCardsHidden"`
	DealerQualified       bool   `json:"dealerQualified"`
	HandRankPlayer        int    `json:"handRankPlayer"`
	HandRankDealer        int    `json:"handRankDealer"`
	PairPlusPayout        int    `json:"pairPlusPayout"`
	AntePlayPayout        int    `json:"antePlayPayout"`
	DeltaWinningsThisHand int    `json:"deltaWinningsThisHand"`
	TotalWinnings         int    `json:"totalWinnings"`
	StatusMessage         string `json:"statusMessage"`
}

// PlayAgain signals intent to start another hand. It needs no fields and
// draws no reply; the next InitialBet opens the new hand.
type PlayAgain struct{}

// Disconnect asks the server to tear the session down.
type Disconnect struct{}
