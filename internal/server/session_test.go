package server

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardwire/tricard/internal/deck"
	"github.com/cardwire/tricard/internal/evaluator"
	"github.com/cardwire/tricard/internal/protocol"
)

// newTestSession builds a session whose hands come from the given stacked
// decks, one deck per hand (player's three cards first, then the dealer's).
// The connection pumps are never started; tests drive handle directly.
func newTestSession(t *testing.T, stacked ...string) *Session {
	t.Helper()

	idx := 0
	newDeck := func() *deck.Deck {
		require.Less(t, idx, len(stacked), "more hands than stacked decks")
		d := deck.NewStacked(deck.MustParseCards(stacked[idx])...)
		idx++
		return d
	}

	return newSession(1, nil, zerolog.Nop(), quartz.NewMock(t), TableRules{MinBet: 5, MaxBet: 25}, newDeck, nil)
}

func mustMsg(t *testing.T, messageType protocol.MessageType, payload any) *protocol.Message {
	t.Helper()
	msg, err := protocol.NewMessage(messageType, payload, time.Now())
	require.NoError(t, err)
	return msg
}

func placeBet(t *testing.T, s *Session, ante, pairPlus int) protocol.CardsDealt {
	t.Helper()
	reply, err := s.handle(mustMsg(t, protocol.TypeInitialBet, protocol.InitialBet{
		AnteBet:     ante,
		PairPlusBet: pairPlus,
	}))
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Equal(t, protocol.TypeCardsDealt, reply.Type)

	var dealt protocol.CardsDealt
	require.NoError(t, reply.Decode(&dealt))
	return dealt
}

func act(t *testing.T, s *Session, action protocol.PlayerActionType, ante, pairPlus, playBet int) protocol.GameResult {
	t.Helper()
	reply, err := s.handle(mustMsg(t, protocol.TypePlayerAction, protocol.PlayerAction{
		Action:      action,
		AnteBet:     ante,
		PairPlusBet: pairPlus,
		PlayBet:     playBet,
	}))
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Equal(t, protocol.TypeGameResult, reply.Type)

	var result protocol.GameResult
	require.NoError(t, reply.Decode(&result))
	return result
}

func TestCardsDealtReply(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	dealt := placeBet(t, s, 10, 5)

	assert.Equal(t, 1, dealt.HandNumber)
	assert.Equal(t, 10, dealt.AnteBet)
	assert.Equal(t, 5, dealt.PairPlusBet)
	assert.True(t, dealt.DealerCardsHidden)
	assert.NotEmpty(t, dealt.SessionID)
	require.Len(t, dealt.PlayerCards, 3)
	require.Len(t, dealt.DealerCards, 3)

	player, err := protocol.CardsToDeck(dealt.PlayerCards)
	require.NoError(t, err)
	assert.Equal(t, deck.MustParseCards("9h9d4c"), player)

	dealer, err := protocol.CardsToDeck(dealt.DealerCards)
	require.NoError(t, err)
	assert.Equal(t, deck.MustParseCards("KhQs7d"), dealer)
}

func TestPlayerBeatsQualifyingDealer(t *testing.T) {
	// Scenario: ante=10 and no side bet; the player's pair beats the
	// dealer's qualifying king-high. Pays 1:1 on ante and play.
	s := newTestSession(t, "9h9d4cKhQs7d")

	placeBet(t, s, 10, 0)
	result := act(t, s, protocol.ActionPlay, 10, 0, 10)

	assert.True(t, result.DealerQualified)
	assert.False(t, result.DealerCardsHidden)
	assert.Equal(t, int(evaluator.Pair), result.HandRankPlayer)
	assert.Equal(t, int(evaluator.HighCard), result.HandRankDealer)
	assert.Equal(t, 20, result.AntePlayPayout)
	assert.Equal(t, 0, result.PairPlusPayout)
	assert.Equal(t, 20, result.DeltaWinningsThisHand)
	assert.Equal(t, 20, result.TotalWinnings)
	assert.Equal(t, 20, s.TotalWinnings())
}

func TestDealerNotQualifiedPushesAnteAndPlay(t *testing.T) {
	// Scenario: ante=10, pairPlus=5; the dealer's jack-high does not
	// qualify, so the play bet returns and the ante pushes, while the
	// Pair Plus side bet settles independently at 1:1 on the pair.
	s := newTestSession(t, "6h6d2cJh9s4d")

	placeBet(t, s, 10, 5)
	result := act(t, s, protocol.ActionPlay, 10, 5, 10)

	assert.False(t, result.DealerQualified)
	assert.Equal(t, 10, result.AntePlayPayout)
	assert.Equal(t, 10, result.PairPlusPayout)
	assert.Equal(t, 5, result.DeltaWinningsThisHand)
	assert.Equal(t, 5, result.TotalWinnings)
}

func TestFoldForfeitsAnteAndPairPlus(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	placeBet(t, s, 10, 5)
	result := act(t, s, protocol.ActionFold, 10, 5, 0)

	assert.Equal(t, -15, result.DeltaWinningsThisHand)
	assert.Equal(t, -15, result.TotalWinnings)
	assert.False(t, result.DealerCardsHidden)
	assert.False(t, result.DealerQualified)
	assert.Equal(t, "Player folded. Lost Ante and Pair Plus.", result.StatusMessage)
}

func TestDealerWinsTakesAnteAndPlay(t *testing.T) {
	s := newTestSession(t, "Qh9d4cKhKd7s")

	placeBet(t, s, 15, 0)
	result := act(t, s, protocol.ActionPlay, 15, 0, 15)

	assert.True(t, result.DealerQualified)
	assert.Equal(t, -30, result.AntePlayPayout)
	assert.Equal(t, -30, result.DeltaWinningsThisHand)
	assert.Equal(t, -30, s.TotalWinnings())
}

func TestTiePushes(t *testing.T) {
	s := newTestSession(t, "Qh9d4cQs9c4d")

	placeBet(t, s, 10, 0)
	result := act(t, s, protocol.ActionPlay, 10, 0, 10)

	assert.True(t, result.DealerQualified)
	assert.Equal(t, 0, result.AntePlayPayout)
	assert.Equal(t, 0, result.DeltaWinningsThisHand)
	assert.Equal(t, "Tie. Ante and Play push.", result.StatusMessage)
}

func TestPairPlusLosesWhenPlayerHasHighCard(t *testing.T) {
	// The side bet forfeits on a high card even when the player wins the
	// ante/play wagers.
	s := newTestSession(t, "AhKd9cQh8s4d")

	placeBet(t, s, 10, 5)
	result := act(t, s, protocol.ActionPlay, 10, 5, 10)

	assert.True(t, result.DealerQualified)
	assert.Equal(t, 20, result.AntePlayPayout)
	assert.Equal(t, 0, result.PairPlusPayout)
	assert.Equal(t, 15, result.DeltaWinningsThisHand) // +20 ante/play, -5 pair plus
}

func TestTotalWinningsAccumulatesAcrossHands(t *testing.T) {
	s := newTestSession(t,
		"9h9d4cKhQs7d", // win: +20
		"9h9d4cKhQs7d", // fold: -15
		"6h6d2cJh9s4d", // not qualified with pair plus: +5
	)

	placeBet(t, s, 10, 0)
	r1 := act(t, s, protocol.ActionPlay, 10, 0, 10)

	placeBet(t, s, 10, 5)
	r2 := act(t, s, protocol.ActionFold, 10, 5, 0)

	placeBet(t, s, 10, 5)
	r3 := act(t, s, protocol.ActionPlay, 10, 5, 10)

	sum := r1.DeltaWinningsThisHand + r2.DeltaWinningsThisHand + r3.DeltaWinningsThisHand
	assert.Equal(t, sum, r3.TotalWinnings)
	assert.Equal(t, sum, s.TotalWinnings())
	assert.Equal(t, 3, r3.HandNumber)
}

func TestBetValidationDropsMessage(t *testing.T) {
	tests := []struct {
		name     string
		ante     int
		pairPlus int
	}{
		{"ante below minimum", 4, 0},
		{"ante above maximum", 26, 0},
		{"ante zero", 0, 0},
		{"pair plus below minimum", 10, 3},
		{"pair plus above maximum", 10, 26},
		{"pair plus negative", 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, "9h9d4cKhQs7d")

			reply, err := s.handle(mustMsg(t, protocol.TypeInitialBet, protocol.InitialBet{
				AnteBet:     tt.ante,
				PairPlusBet: tt.pairPlus,
			}))
			assert.ErrorIs(t, err, ErrMessageDropped)
			assert.Nil(t, reply, "a dropped message must produce no reply")
			assert.Equal(t, stateAwaitingBet, s.getState())
			assert.Equal(t, 0, s.handNumber, "hand counter must not advance on a dropped bet")

			// The session still accepts a valid bet afterwards.
			dealt := placeBet(t, s, 10, 0)
			assert.Equal(t, 1, dealt.HandNumber)
		})
	}
}

func TestPlayBetMismatchDropsMessage(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")
	placeBet(t, s, 10, 0)

	reply, err := s.handle(mustMsg(t, protocol.TypePlayerAction, protocol.PlayerAction{
		Action:  protocol.ActionPlay,
		AnteBet: 10,
		PlayBet: 15,
	}))
	assert.ErrorIs(t, err, ErrMessageDropped)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingAction, s.getState(), "state must not change on a dropped action")

	// A correct play still settles the same hand.
	result := act(t, s, protocol.ActionPlay, 10, 0, 10)
	assert.Equal(t, 20, result.DeltaWinningsThisHand)
}

func TestOutOfStateMessagesDropped(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	// Action before any bet.
	reply, err := s.handle(mustMsg(t, protocol.TypePlayerAction, protocol.PlayerAction{
		Action:  protocol.ActionPlay,
		PlayBet: 10,
	}))
	assert.ErrorIs(t, err, ErrMessageDropped)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingBet, s.getState())

	// Second bet while awaiting an action.
	placeBet(t, s, 10, 0)
	reply, err = s.handle(mustMsg(t, protocol.TypeInitialBet, protocol.InitialBet{AnteBet: 10}))
	assert.ErrorIs(t, err, ErrMessageDropped)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingAction, s.getState())
}

func TestUnknownActionDropped(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")
	placeBet(t, s, 10, 0)

	reply, err := s.handle(mustMsg(t, protocol.TypePlayerAction, protocol.PlayerAction{
		Action:  protocol.PlayerActionType("raise"),
		PlayBet: 10,
	}))
	assert.ErrorIs(t, err, ErrMessageDropped)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingAction, s.getState())
}

func TestUnknownMessageTypeDropped(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	reply, err := s.handle(mustMsg(t, protocol.MessageType("gibberish"), struct{}{}))
	assert.ErrorIs(t, err, ErrMessageDropped)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingBet, s.getState())
}

func TestPlayAgainIsSilentNoOp(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	// Any state, no reply, no state change.
	reply, err := s.handle(mustMsg(t, protocol.TypePlayAgain, protocol.PlayAgain{}))
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingBet, s.getState())

	placeBet(t, s, 10, 0)
	reply, err = s.handle(mustMsg(t, protocol.TypePlayAgain, protocol.PlayAgain{}))
	require.NoError(t, err)
	assert.Nil(t, reply)
	assert.Equal(t, stateAwaitingAction, s.getState())
}

func TestDisconnectEndsSession(t *testing.T) {
	s := newTestSession(t, "9h9d4cKhQs7d")

	reply, err := s.handle(mustMsg(t, protocol.TypeDisconnect, protocol.Disconnect{}))
	assert.ErrorIs(t, err, errSessionEnded)
	assert.Nil(t, reply)
}

func TestCloseIsIdempotent(t *testing.T) {
	deregistered := 0
	s := newSession(7, nil, zerolog.Nop(), quartz.NewMock(t), TableRules{MinBet: 5, MaxBet: 25},
		func() *deck.Deck { return deck.NewStacked() },
		func(id int) { deregistered++ })

	s.Close()
	s.Close()
	s.Close()

	assert.Equal(t, 1, deregistered, "deregistration must happen exactly once")
	assert.Equal(t, stateDisconnected, s.getState())
}
