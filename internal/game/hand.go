package game

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// Hand is one player hand. A round holds between one and Rules.MaxHands of
// them; splitting replaces a hand with two.
type Hand struct {
	Cards     []deck.Card     `json:"cards"`
	Bet       decimal.Decimal `json:"bet"`
	Doubled   bool            `json:"doubled"`
	Finished  bool            `json:"finished"`
	FromSplit bool            `json:"from_split"`
	Result    Result          `json:"result,omitempty"`
	Payout    decimal.Decimal `json:"payout"`
}

// Score evaluates the hand's cards.
func (h *Hand) Score() evaluator.Score {
	return evaluator.Evaluate(h.Cards)
}

// IsNatural reports a two-card 21 dealt on the initial deal. Split and
// doubled hands never count.
func (h *Hand) IsNatural() bool {
	return !h.FromSplit && !h.Doubled && evaluator.IsBlackjack(h.Cards)
}

// Resolved reports whether the hand already has a result.
func (h *Hand) Resolved() bool {
	return h.Result != ResultNone
}

func (h *Hand) clone() Hand {
	c := *h
	c.Cards = slices.Clone(h.Cards)
	return c
}

// Action is one audited player decision. HandBefore and ScoreBefore capture
// the hand as the player saw it when deciding.
type Action struct {
	ID          string      `json:"id"`
	Kind        ActionKind  `json:"type"`
	Timestamp   time.Time   `json:"timestamp"`
	HandBefore  []deck.Card `json:"player_hand_before"`
	ScoreBefore int         `json:"player_score_before"`
	DealerUp    deck.Card   `json:"dealer_up_card"`
	HandIndex   int         `json:"hand_index"`
}

// Round is a complete or in-progress round as handed to a Recorder.
type Round struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Seed      string      `json:"seed"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Hands     []Hand      `json:"hands"`
	Dealer    []deck.Card `json:"dealer"`
	Actions   []Action    `json:"actions"`
}

// Wagered is the total staked across the round's hands.
func (r *Round) Wagered() decimal.Decimal {
	total := decimal.Zero
	for _, h := range r.Hands {
		total = total.Add(h.Bet)
	}
	return total
}

// Returned is the total credited back to the bankroll at settlement.
func (r *Round) Returned() decimal.Decimal {
	total := decimal.Zero
	for _, h := range r.Hands {
		total = total.Add(Credit(h))
	}
	return total
}

// Net is Returned minus Wagered.
func (r *Round) Net() decimal.Decimal {
	return r.Returned().Sub(r.Wagered())
}

func (r *Round) clone() Round {
	c := *r
	c.Hands = make([]Hand, len(r.Hands))
	for i := range r.Hands {
		c.Hands[i] = r.Hands[i].clone()
	}
	c.Dealer = slices.Clone(r.Dealer)
	c.Actions = slices.Clone(r.Actions)
	return c
}
