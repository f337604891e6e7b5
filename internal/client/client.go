// Package client provides a small synchronous client for the table server.
// The CLI front-ends and the integration tests all speak the wire protocol
// through it; nothing here reaches into server internals.
package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/cardwire/tricard/internal/protocol"
)

// Client is a synchronous connection to the table server. One request, one
// reply; the game protocol has no unsolicited server messages.
type Client struct {
	conn   *websocket.Conn
	logger zerolog.Logger
}

// Dial connects to the server. Plain http/host:port URLs are normalized to
// the websocket scheme and endpoint.
func Dial(serverURL string, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil || u.Host == "" {
		// Bare host:port addresses do not parse as URLs.
		u = &url.URL{Scheme: "ws", Host: serverURL}
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	logger.Debug().Str("url", u.String()).Msg("Connecting to server")

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	return &Client{conn: conn, logger: logger}, nil
}

// PlaceBet opens a hand with the ante and optional Pair Plus wagers and
// waits for the deal.
func (c *Client) PlaceBet(ante, pairPlus int) (*protocol.CardsDealt, error) {
	err := c.sendPayload(protocol.TypeInitialBet, protocol.InitialBet{
		AnteBet:     ante,
		PairPlusBet: pairPlus,
	})
	if err != nil {
		return nil, err
	}

	var dealt protocol.CardsDealt
	if err := c.expect(protocol.TypeCardsDealt, &dealt); err != nil {
		return nil, err
	}
	return &dealt, nil
}

// Play continues the hand with a play bet equal to the ante and waits for
// settlement.
func (c *Client) Play(dealt *protocol.CardsDealt) (*protocol.GameResult, error) {
	return c.act(dealt, protocol.ActionPlay, dealt.AnteBet)
}

// Fold abandons the hand, forfeiting the ante and Pair Plus wagers.
func (c *Client) Fold(dealt *protocol.CardsDealt) (*protocol.GameResult, error) {
	return c.act(dealt, protocol.ActionFold, 0)
}

func (c *Client) act(dealt *protocol.CardsDealt, action protocol.PlayerActionType, playBet int) (*protocol.GameResult, error) {
	err := c.sendPayload(protocol.TypePlayerAction, protocol.PlayerAction{
		Action:      action,
		AnteBet:     dealt.AnteBet,
		PairPlusBet: dealt.PairPlusBet,
		PlayBet:     playBet,
		PlayerCards: dealt.PlayerCards,
		DealerCards: dealt.DealerCards,
	})
	if err != nil {
		return nil, err
	}

	var result protocol.GameResult
	if err := c.expect(protocol.TypeGameResult, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PlayAgain signals readiness for another hand. The server sends no reply.
func (c *Client) PlayAgain() error {
	return c.sendPayload(protocol.TypePlayAgain, protocol.PlayAgain{})
}

// Disconnect asks the server to end the session, then closes the socket.
func (c *Client) Disconnect() error {
	if err := c.sendPayload(protocol.TypeDisconnect, protocol.Disconnect{}); err != nil {
		return err
	}
	return c.Close()
}

// Close closes the websocket with a normal close handshake.
func (c *Client) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) sendPayload(messageType protocol.MessageType, payload any) error {
	msg, err := protocol.NewMessage(messageType, payload, time.Now())
	if err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) expect(messageType protocol.MessageType, v any) error {
	var msg protocol.Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if msg.Type != messageType {
		return fmt.Errorf("expected %s, got %s", messageType, msg.Type)
	}
	return msg.Decode(v)
}
