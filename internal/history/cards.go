package history

import "github.com/lox/blackjack/internal/deck"

var suitCodes = map[deck.Suit]string{
	deck.Spades:   "s",
	deck.Hearts:   "h",
	deck.Diamonds: "d",
	deck.Clubs:    "c",
}

// CardCode renders a card in two-character ASCII notation ("Ts", "Ah"),
// which deck.ParseCard reads back.
func CardCode(c deck.Card) string {
	rank := c.Rank.String()
	if c.Rank == deck.Ten {
		rank = "T"
	}
	suit, ok := suitCodes[c.Suit]
	if !ok {
		suit = "?"
	}
	return rank + suit
}

func cardCodes(cards []deck.Card) []string {
	codes := make([]string, len(cards))
	for i, c := range cards {
		codes[i] = CardCode(c)
	}
	return codes
}
