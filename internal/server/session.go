package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cardwire/tricard/internal/deck"
	"github.com/cardwire/tricard/internal/evaluator"
	"github.com/cardwire/tricard/internal/protocol"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// ErrMessageDropped marks a protocol validation failure. The offending
// message is logged and discarded with no reply, leaving the session in its
// prior state.
var ErrMessageDropped = errors.New("message dropped")

// errSessionEnded signals a clean, client-requested disconnect.
var errSessionEnded = errors.New("session ended")

type sessionState int

const (
	stateAwaitingBet sessionState = iota
	stateAwaitingAction
	stateDisconnected
)

func (s sessionState) String() string {
	switch s {
	case stateAwaitingBet:
		return "awaiting_bet"
	case stateAwaitingAction:
		return "awaiting_action"
	case stateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session drives the bet/deal/act/settle cycle for one connection. All game
// state is owned by the session's own read goroutine; the only cross-thread
// touches are Close (from Stop) and the state getter, guarded by stateMu.
type Session struct {
	id      int
	uid     string
	conn    *websocket.Conn
	send    chan *protocol.Message
	logger  zerolog.Logger
	clock   quartz.Clock
	rules   TableRules
	newDeck func() *deck.Deck

	stateMu sync.Mutex
	state   sessionState

	handNumber    int
	totalWinnings int
	anteBet       int
	pairPlusBet   int
	playerHand    []deck.Card
	dealerHand    []deck.Card

	deregister func(id int)
	closeOnce  sync.Once
	done       chan struct{}
}

func newSession(id int, conn *websocket.Conn, logger zerolog.Logger, clock quartz.Clock, rules TableRules, newDeck func() *deck.Deck, deregister func(id int)) *Session {
	uid := uuid.NewString()
	return &Session{
		id:   id,
		uid:  uid,
		conn: conn,
		send: make(chan *protocol.Message, 16),
		logger: logger.With().
			Str("component", "session").
			Int("client_id", id).
			Str("session_id", uid).
			Logger(),
		clock:      clock,
		rules:      rules,
		newDeck:    newDeck,
		deregister: deregister,
		done:       make(chan struct{}),
	}
}

// start launches the read and write pumps.
func (s *Session) start() {
	go s.writePump()
	go s.readPump()
}

// Close tears the session down: the socket is closed, pending reads unblock
// with an error, and the session deregisters itself. Safe to call from any
// goroutine and any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.setState(stateDisconnected)
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		if s.deregister != nil {
			s.deregister(s.id)
		}
		s.logger.Info().Int("total_winnings", s.TotalWinnings()).Msg("Session closed")
	})
}

// TotalWinnings returns the running signed total for this connection.
func (s *Session) TotalWinnings() int {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.totalWinnings
}

func (s *Session) setState(state sessionState) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
}

func (s *Session) getState() sessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// readPump reads client messages until the connection errors or the client
// disconnects. A blocked read is the session's only suspension point; Close
// unblocks it by closing the socket.
func (s *Session) readPump() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
				// Already disconnecting, transport noise is expected.
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					s.logger.Error().Err(err).Msg("Connection error")
				}
			}
			return
		}

		reply, err := s.handle(&msg)
		if err != nil {
			if errors.Is(err, ErrMessageDropped) {
				s.logger.Warn().Err(err).Str("type", msg.Type.String()).Msg("Dropping client message")
				continue
			}
			if errors.Is(err, errSessionEnded) {
				s.logger.Info().Msg("Client requested disconnect")
			} else {
				s.logger.Error().Err(err).Str("type", msg.Type.String()).Msg("Fatal session error")
			}
			return
		}
		if reply != nil {
			s.enqueue(reply)
		}
	}
}

// writePump writes queued messages and keepalive pings to the peer.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Error().Err(err).Msg("Failed to write message")
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-s.done:
			return
		}
	}
}

func (s *Session) enqueue(msg *protocol.Message) {
	select {
	case s.send <- msg:
	case <-s.done:
	}
}

// handle runs one message through the state machine and returns the reply
// to send, if any. Validation failures return ErrMessageDropped so the
// caller can log and send nothing; any other error is fatal to the session.
func (s *Session) handle(msg *protocol.Message) (*protocol.Message, error) {
	switch msg.Type {
	case protocol.TypeInitialBet:
		return s.handleInitialBet(msg)
	case protocol.TypePlayerAction:
		return s.handlePlayerAction(msg)
	case protocol.TypePlayAgain:
		// Acknowledged with no reply; the next initial bet opens a new hand.
		s.logger.Debug().Msg("Client ready for another hand")
		return nil, nil
	case protocol.TypeDisconnect:
		return nil, errSessionEnded
	default:
		return nil, fmt.Errorf("%w: unrecognized message type %q", ErrMessageDropped, msg.Type)
	}
}

func (s *Session) handleInitialBet(msg *protocol.Message) (*protocol.Message, error) {
	if state := s.getState(); state != stateAwaitingBet {
		return nil, fmt.Errorf("%w: initial bet in state %s", ErrMessageDropped, state)
	}

	var bet protocol.InitialBet
	if err := msg.Decode(&bet); err != nil {
		return nil, err
	}

	if bet.AnteBet < s.rules.MinBet || bet.AnteBet > s.rules.MaxBet {
		return nil, fmt.Errorf("%w: ante bet %d outside [%d,%d]", ErrMessageDropped, bet.AnteBet, s.rules.MinBet, s.rules.MaxBet)
	}
	if bet.PairPlusBet != 0 && (bet.PairPlusBet < s.rules.MinBet || bet.PairPlusBet > s.rules.MaxBet) {
		return nil, fmt.Errorf("%w: pair plus bet %d outside {0} or [%d,%d]", ErrMessageDropped, bet.PairPlusBet, s.rules.MinBet, s.rules.MaxBet)
	}

	s.handNumber++
	s.anteBet = bet.AnteBet
	s.pairPlusBet = bet.PairPlusBet

	// Fresh shuffled deck every hand; no cards carry over.
	d := s.newDeck()
	playerHand, err := d.DealN(evaluator.HandSize)
	if err != nil {
		return nil, fmt.Errorf("deal player hand: %w", err)
	}
	dealerHand, err := d.DealN(evaluator.HandSize)
	if err != nil {
		return nil, fmt.Errorf("deal dealer hand: %w", err)
	}
	s.playerHand = playerHand
	s.dealerHand = dealerHand

	s.logger.Info().
		Int("hand", s.handNumber).
		Int("ante", bet.AnteBet).
		Int("pair_plus", bet.PairPlusBet).
		Msg("Hand dealt")

	s.setState(stateAwaitingAction)

	return protocol.NewMessage(protocol.TypeCardsDealt, protocol.CardsDealt{
		SessionID:         s.uid,
		HandNumber:        s.handNumber,
		PlayerCards:       protocol.CardsFromDeck(s.playerHand),
		DealerCards:       protocol.CardsFromDeck(s.dealerHand),
		DealerCardsHidden: true,
		AnteBet:           bet.AnteBet,
		PairPlusBet:       bet.PairPlusBet,
	}, s.clock.Now())
}

func (s *Session) handlePlayerAction(msg *protocol.Message) (*protocol.Message, error) {
	if state := s.getState(); state != stateAwaitingAction {
		return nil, fmt.Errorf("%w: player action in state %s", ErrMessageDropped, state)
	}

	var action protocol.PlayerAction
	if err := msg.Decode(&action); err != nil {
		return nil, err
	}

	result := protocol.GameResult{
		SessionID:         s.uid,
		HandNumber:        s.handNumber,
		PlayerCards:       protocol.CardsFromDeck(s.playerHand),
		DealerCards:       protocol.CardsFromDeck(s.dealerHand),
		DealerCardsHidden: false,
	}

	var delta int

	switch action.Action {
	case protocol.ActionFold:
		// Fold forfeits both the ante and the side bet unseen.
		delta = -(s.anteBet + s.pairPlusBet)
		result.StatusMessage = "Player folded. Lost Ante and Pair Plus."
		s.logger.Info().Int("hand", s.handNumber).Int("lost", -delta).Msg("Player folded")

	case protocol.ActionPlay:
		if action.PlayBet != s.anteBet {
			return nil, fmt.Errorf("%w: play bet %d must equal ante %d", ErrMessageDropped, action.PlayBet, s.anteBet)
		}
		settled, err := s.settlePlay(action.PlayBet, &result)
		if err != nil {
			return nil, err
		}
		delta = settled

	default:
		return nil, fmt.Errorf("%w: unknown player action %q", ErrMessageDropped, action.Action)
	}

	s.stateMu.Lock()
	s.totalWinnings += delta
	total := s.totalWinnings
	s.stateMu.Unlock()

	result.DeltaWinningsThisHand = delta
	result.TotalWinnings = total

	s.logger.Info().
		Int("hand", s.handNumber).
		Int("delta", delta).
		Int("total", total).
		Msg("Hand settled")

	s.setState(stateAwaitingBet)

	return protocol.NewMessage(protocol.TypeGameResult, result, s.clock.Now())
}

// settlePlay resolves the ante/play wagers and the Pair Plus side bet
// against the hands stored at deal time. The client's echoed cards are
// never trusted. Returns the hand's net delta.
func (s *Session) settlePlay(playBet int, result *protocol.GameResult) (int, error) {
	playerCat, err := evaluator.Classify(s.playerHand)
	if err != nil {
		return 0, err
	}
	dealerCat, err := evaluator.Classify(s.dealerHand)
	if err != nil {
		return 0, err
	}
	qualified, err := evaluator.DealerQualifies(s.dealerHand)
	if err != nil {
		return 0, err
	}

	result.HandRankPlayer = int(playerCat)
	result.HandRankDealer = int(dealerCat)
	result.DealerQualified = qualified

	var antePlay int
	switch {
	case !qualified:
		// Play bet returned, ante pushes: zero net, surfaced as the
		// returned play wager.
		antePlay = playBet
		result.StatusMessage = "Dealer not qualified. Play bet returned. Ante pushes."
		s.logger.Info().Int("hand", s.handNumber).Msg("Dealer not qualified")
	default:
		cmp, err := evaluator.Compare(s.dealerHand, s.playerHand)
		if err != nil {
			return 0, err
		}
		switch {
		case cmp < 0:
			antePlay = -(s.anteBet + playBet)
			result.StatusMessage = "Dealer wins. Lost Ante and Play."
		case cmp > 0:
			antePlay = s.anteBet + playBet
			result.StatusMessage = "Player wins! Paid 1:1 on Ante and Play."
		default:
			antePlay = 0
			result.StatusMessage = "Tie. Ante and Play push."
		}
	}
	result.AntePlayPayout = antePlay

	// When the dealer does not qualify the play bet comes back and the ante
	// pushes, so no ante/play money moves.
	delta := 0
	if qualified {
		delta = antePlay
	}

	// Pair Plus rides on the player's hand alone.
	payout, err := evaluator.PairPlusPayout(s.playerHand, s.pairPlusBet)
	if err != nil {
		return 0, err
	}
	result.PairPlusPayout = payout
	if s.pairPlusBet > 0 {
		delta += payout - s.pairPlusBet
	}

	return delta, nil
}
