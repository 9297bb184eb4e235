package game

import (
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// naturalMultiplier pays a natural at 3:2.
var naturalMultiplier = decimal.NewFromInt(3).Div(decimal.NewFromInt(2))

// Settle decides h against the dealer's final cards and records Result and
// Payout on it. Hands that already have a result (busts) are left alone.
//
// Payout is the winnings on top of the stake: 1.5x the bet for a natural,
// the (possibly doubled) bet for any other win, zero otherwise.
func Settle(h *Hand, dealer []deck.Card) {
	if h.Resolved() {
		return
	}

	player := h.Score().Total
	dealerScore := evaluator.Total(dealer)
	dealerNatural := evaluator.IsBlackjack(dealer)

	h.Payout = decimal.Zero
	switch {
	case player > 21:
		h.Result = ResultLose
	case h.IsNatural() && dealerNatural:
		h.Result = ResultPush
	case h.IsNatural():
		h.Result = ResultWin
		h.Payout = h.Bet.Mul(naturalMultiplier)
	case dealerNatural:
		h.Result = ResultLose
	case dealerScore > 21 || player > dealerScore:
		h.Result = ResultWin
		h.Payout = h.Bet
	case player < dealerScore:
		h.Result = ResultLose
	default:
		h.Result = ResultPush
	}
	h.Finished = true
}

// Credit is the amount a settled hand returns to the bankroll: stake plus
// payout on a win, the stake on a push, nothing on a loss.
func Credit(h Hand) decimal.Decimal {
	switch h.Result {
	case ResultWin:
		return h.Bet.Add(h.Payout)
	case ResultPush:
		return h.Bet
	default:
		return decimal.Zero
	}
}
