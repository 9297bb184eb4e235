package evaluator

// Blackjack hand evaluator. Aces count 11 until the hand would bust, then 1.

import (
	"github.com/lox/blackjack/internal/deck"
)

// Score is the best total for a hand.
type Score struct {
	Total int
	// Soft is true when at least one Ace is still counted as 11.
	Soft bool
}

// Evaluate computes the best blackjack total for cards.
func Evaluate(cards []deck.Card) Score {
	total := 0
	elevens := 0
	for _, c := range cards {
		total += c.Value()
		if c.IsAce() {
			elevens++
		}
	}
	for total > 21 && elevens > 0 {
		total -= 10
		elevens--
	}
	return Score{Total: total, Soft: elevens > 0}
}

// Total is shorthand for Evaluate(cards).Total.
func Total(cards []deck.Card) int {
	return Evaluate(cards).Total
}

// IsBlackjack reports a two-card 21.
func IsBlackjack(cards []deck.Card) bool {
	return len(cards) == 2 && Total(cards) == 21
}

// IsBust reports a total over 21.
func IsBust(cards []deck.Card) bool {
	return Total(cards) > 21
}

// IsPair reports two cards of equal blackjack value (K-Q counts as a pair).
func IsPair(cards []deck.Card) bool {
	return len(cards) == 2 && cards[0].Value() == cards[1].Value()
}
