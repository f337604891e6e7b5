package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/cardwire/tricard/cmd/tricard/shared"
	"github.com/cardwire/tricard/internal/client"
	"github.com/cardwire/tricard/internal/evaluator"
	"github.com/cardwire/tricard/internal/protocol"
)

// ClientCmd is the interactive terminal front-end. It only ever exchanges
// wire messages with the server; all game state lives server-side.
type ClientCmd struct {
	Server string `kong:"default='localhost:8080',help='Server address'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
}

func (c *ClientCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	conn, err := client.Dial(c.Server, logger)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	pterm.DefaultSection.Println("Three Card Poker")
	pterm.Info.Printfln("Connected to %s", c.Server)

	for {
		ante, err := promptBet("Ante bet (5-25)", "10", false)
		if err != nil {
			return err
		}
		pairPlus, err := promptBet("Pair Plus bet (0 or 5-25)", "0", true)
		if err != nil {
			return err
		}

		dealt, err := conn.PlaceBet(ante, pairPlus)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Printfln("Hand #%d", dealt.HandNumber)
		pterm.Info.Printfln("Your cards:   %s", renderCards(dealt.PlayerCards))
		pterm.Info.Printfln("Dealer cards: [hidden] [hidden] [hidden]")

		play, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(true).
			Show(fmt.Sprintf("Play for %d more?", ante))
		if err != nil {
			return err
		}

		var result *protocol.GameResult
		if play {
			result, err = conn.Play(dealt)
		} else {
			result, err = conn.Fold(dealt)
		}
		if err != nil {
			return err
		}

		renderResult(result, play)

		again, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(true).
			Show("Play another hand?")
		if err != nil {
			return err
		}
		if !again {
			return conn.Disconnect()
		}
		if err := conn.PlayAgain(); err != nil {
			return err
		}
	}
}

func promptBet(prompt, defaultValue string, zeroAllowed bool) (int, error) {
	for {
		raw, err := pterm.DefaultInteractiveTextInput.
			WithDefaultValue(defaultValue).
			Show(prompt)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			pterm.Warning.Printfln("Not a number: %q", raw)
			continue
		}
		if n == 0 && zeroAllowed {
			return 0, nil
		}
		if n < 5 || n > 25 {
			pterm.Warning.Printfln("Bet must be between 5 and 25")
			continue
		}
		return n, nil
	}
}

func renderCards(cards []protocol.Card) string {
	parts := make([]string, 0, len(cards))
	for _, wc := range cards {
		card, err := wc.ToDeck()
		if err != nil {
			parts = append(parts, "??")
			continue
		}
		parts = append(parts, card.String())
	}
	return strings.Join(parts, " ")
}

func renderResult(result *protocol.GameResult, played bool) {
	rows := pterm.TableData{
		{"Your cards", renderCards(result.PlayerCards)},
		{"Dealer cards", renderCards(result.DealerCards)},
	}
	if played {
		rows = append(rows,
			[]string{"Your hand", evaluator.Category(result.HandRankPlayer).String()},
			[]string{"Dealer hand", evaluator.Category(result.HandRankDealer).String()},
			[]string{"Dealer qualified", strconv.FormatBool(result.DealerQualified)},
			[]string{"Ante/Play payout", strconv.Itoa(result.AntePlayPayout)},
			[]string{"Pair Plus payout", strconv.Itoa(result.PairPlusPayout)},
		)
	}
	rows = append(rows,
		[]string{"This hand", fmt.Sprintf("%+d", result.DeltaWinningsThisHand)},
		[]string{"Total winnings", fmt.Sprintf("%+d", result.TotalWinnings)},
	)
	_ = pterm.DefaultTable.WithData(rows).Render()

	switch {
	case result.DeltaWinningsThisHand > 0:
		pterm.Success.Println(result.StatusMessage)
	case result.DeltaWinningsThisHand < 0:
		pterm.Error.Println(result.StatusMessage)
	default:
		pterm.Info.Println(result.StatusMessage)
	}
}
