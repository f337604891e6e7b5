package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/cardwire/tricard/cmd/tricard/shared"
	"github.com/cardwire/tricard/internal/client"
	"github.com/cardwire/tricard/internal/protocol"
)

// AutoCmd runs one or more scripted clients against a server. Useful for
// exercising the protocol and the capacity bound without manual input.
type AutoCmd struct {
	Server    string `kong:"default='localhost:8080',help='Server address'"`
	Hands     int    `kong:"default='5',help='Hands to play per client'"`
	Count     int    `kong:"default='1',help='Number of concurrent clients'"`
	Ante      int    `kong:"default='10',help='Ante bet per hand'"`
	PairPlus  int    `kong:"default='5',help='Pair Plus bet per hand (0 to skip)'"`
	FoldEvery int    `kong:"default='0',help='Fold every Nth hand (0 never folds)'"`
	Debug     bool   `kong:"help='Enable debug logging'"`
}

func (c *AutoCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	if c.Hands < 1 || c.Count < 1 {
		return fmt.Errorf("hands and count must be positive")
	}

	var g errgroup.Group
	for i := 1; i <= c.Count; i++ {
		g.Go(func() error {
			log := logger.With().Int("player", i).Logger()

			conn, err := client.Dial(c.Server, log)
			if err != nil {
				return fmt.Errorf("player %d: %w", i, err)
			}

			for hand := 1; hand <= c.Hands; hand++ {
				dealt, err := conn.PlaceBet(c.Ante, c.PairPlus)
				if err != nil {
					return fmt.Errorf("player %d hand %d: %w", i, hand, err)
				}

				fold := c.FoldEvery > 0 && hand%c.FoldEvery == 0
				var result *protocol.GameResult
				if fold {
					result, err = conn.Fold(dealt)
				} else {
					result, err = conn.Play(dealt)
				}
				if err != nil {
					return fmt.Errorf("player %d hand %d: %w", i, hand, err)
				}

				log.Info().
					Int("hand", hand).
					Bool("folded", fold).
					Int("delta", result.DeltaWinningsThisHand).
					Int("total", result.TotalWinnings).
					Str("status", result.StatusMessage).
					Msg("Hand complete")

				if hand < c.Hands {
					if err := conn.PlayAgain(); err != nil {
						return fmt.Errorf("player %d: %w", i, err)
					}
				}
			}

			return conn.Disconnect()
		})
	}

	return g.Wait()
}
