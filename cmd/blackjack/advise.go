package main

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/strategy"
)

// AdviseCmd prints the basic-strategy play for a hand.
type AdviseCmd struct {
	Hand     string `arg:"" help:"Player cards, e.g. 'A,6' or 'As 6h'"`
	Up       string `arg:"" help:"Dealer up card, e.g. 'K' or 'Kd'"`
	NoDouble bool   `help:"Doubling is not allowed"`
}

func (c *AdviseCmd) Run() error {
	hand, err := parseLoose(c.Hand)
	if err != nil {
		return fmt.Errorf("hand: %w", err)
	}
	if len(hand) < 2 {
		return fmt.Errorf("hand needs at least two cards, got %d", len(hand))
	}
	up, err := parseLoose(c.Up)
	if err != nil || len(up) != 1 {
		return fmt.Errorf("up card: expected one card, got %q", c.Up)
	}

	a := strategy.OptimalAction(hand, up[0], strategy.CanDouble(hand) && !c.NoDouble)
	kind := "hard"
	if a.Soft {
		kind = "soft"
	}
	fmt.Print(section("Basic strategy",
		row("Hand", fmt.Sprintf("%s (%s %d)", cardsText(hand), kind, a.PlayerScore)),
		row("Dealer shows", cardText(up[0])),
		row("Play", actionStyle.Render(a.Action.String())),
		row("Confidence", fmt.Sprintf("%d%%", a.Confidence)),
	))
	return nil
}

// parseLoose accepts bare ranks ("A", "10") as spades, so "advise A,6 K"
// works without spelling out suits.
func parseLoose(s string) ([]deck.Card, error) {
	if cards, err := deck.ParseCards(s); err == nil {
		return cards, nil
	}
	var cards []deck.Card
	for _, f := range splitCards(s) {
		c, err := deck.ParseCard(f)
		if err != nil {
			rank, rerr := deck.ParseRank(f)
			if rerr != nil {
				return nil, err
			}
			c = deck.Card{Suit: deck.Spades, Rank: rank}
		}
		cards = append(cards, c)
	}
	return cards, nil
}

func splitCards(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}
