// Package record defines the persisted form of a round. Records are
// versioned: version 2 holds any number of split hands and a typed action
// log; version 1 is the legacy single-hand shape, still readable.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/strategy"
)

const (
	Version1       = 1
	Version2       = 2
	CurrentVersion = Version2
)

var (
	// ErrMalformed marks a stored round that fails validation.
	ErrMalformed = errors.New("record: malformed round")
	// ErrIncomplete marks a round that was started but never settled.
	ErrIncomplete = errors.New("record: round has no outcomes")
)

// MalformedError identifies the offending round so it can be quarantined.
type MalformedError struct {
	ID  string
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("round %s: %v", e.ID, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrMalformed) true for every MalformedError.
func (e *MalformedError) Is(target error) bool { return target == ErrMalformed }

// Raw is a round as a store holds it: scalar columns plus the outcomes and
// action log as JSON documents.
type Raw struct {
	ID        string
	UserID    string
	Seed      string
	StartedAt time.Time
	EndedAt   *time.Time
	Outcomes  json.RawMessage
	Actions   json.RawMessage
}

// Hand is a settled player hand.
type Hand struct {
	Cards     []deck.Card     `json:"cards"`
	Bet       decimal.Decimal `json:"bet"`
	Doubled   bool            `json:"doubled,omitempty"`
	FromSplit bool            `json:"from_split,omitempty"`
	Blackjack bool            `json:"blackjack,omitempty"`
	Result    game.Result     `json:"result"`
	Payout    decimal.Decimal `json:"payout"`
}

// Returned is what the hand credited back: stake and winnings on a win,
// the stake on a push.
func (h Hand) Returned() decimal.Decimal {
	switch h.Result {
	case game.ResultWin:
		return h.Bet.Add(h.Payout)
	case game.ResultPush:
		return h.Bet
	default:
		return decimal.Zero
	}
}

// Outcomes is the version 2 outcomes document.
type Outcomes struct {
	Version int         `json:"version"`
	Hands   []Hand      `json:"hands"`
	Dealer  []deck.Card `json:"dealer"`
}

// Action is one logged decision.
type Action struct {
	ID                string          `json:"id,omitempty"`
	Type              strategy.Action `json:"type"`
	Timestamp         time.Time       `json:"timestamp"`
	PlayerHandBefore  []deck.Card     `json:"player_hand_before"`
	PlayerScoreBefore int             `json:"player_score_before"`
	DealerUpCard      deck.Card       `json:"dealer_up_card"`
	HandIndex         int             `json:"hand_index"`
}

// Round is a decoded round, always in the current shape regardless of the
// version it was stored as.
type Round struct {
	Version   int
	ID        string
	UserID    string
	Seed      string
	StartedAt time.Time
	EndedAt   time.Time
	Hands     []Hand
	Dealer    []deck.Card
	Actions   []Action
}

// Wagered sums the final stakes of every hand.
func (r Round) Wagered() decimal.Decimal {
	total := decimal.Zero
	for _, h := range r.Hands {
		total = total.Add(h.Bet)
	}
	return total
}

// Returned sums what every hand credited back.
func (r Round) Returned() decimal.Decimal {
	total := decimal.Zero
	for _, h := range r.Hands {
		total = total.Add(h.Returned())
	}
	return total
}

// Net is Returned minus Wagered.
func (r Round) Net() decimal.Decimal {
	return r.Returned().Sub(r.Wagered())
}

// FinishedAt is EndedAt, or StartedAt for records without one.
func (r Round) FinishedAt() time.Time {
	if r.EndedAt.IsZero() {
		return r.StartedAt
	}
	return r.EndedAt
}

// FromGame converts a settled game round.
func FromGame(r game.Round) Round {
	out := Round{
		Version:   CurrentVersion,
		ID:        r.ID,
		UserID:    r.UserID,
		Seed:      r.Seed,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
		Dealer:    r.Dealer,
	}
	for _, h := range r.Hands {
		out.Hands = append(out.Hands, Hand{
			Cards:     h.Cards,
			Bet:       h.Bet,
			Doubled:   h.Doubled,
			FromSplit: h.FromSplit,
			Blackjack: h.IsNatural(),
			Result:    h.Result,
			Payout:    h.Payout,
		})
	}
	for _, a := range r.Actions {
		out.Actions = append(out.Actions, ActionFromGame(a))
	}
	return out
}

// ActionFromGame converts one audited game action.
func ActionFromGame(a game.Action) Action {
	return Action{
		ID:                a.ID,
		Type:              a.Kind,
		Timestamp:         a.Timestamp,
		PlayerHandBefore:  a.HandBefore,
		PlayerScoreBefore: a.ScoreBefore,
		DealerUpCard:      a.DealerUp,
		HandIndex:         a.HandIndex,
	}
}

// MarshalOutcomes renders the version 2 outcomes document.
func (r Round) MarshalOutcomes() (json.RawMessage, error) {
	return json.Marshal(Outcomes{Version: Version2, Hands: r.Hands, Dealer: r.Dealer})
}

// MarshalActions renders the action log, always as an array.
func (r Round) MarshalActions() (json.RawMessage, error) {
	actions := r.Actions
	if actions == nil {
		actions = []Action{}
	}
	return json.Marshal(actions)
}

// legacyOutcomes is the version 1 single-hand document. Payout there is the
// winnings on top of the stake.
type legacyOutcomes struct {
	PlayerHand  []deck.Card     `json:"playerHand"`
	DealerHand  []deck.Card     `json:"dealerHand"`
	PlayerScore int             `json:"playerScore"`
	DealerScore int             `json:"dealerScore"`
	BetAmount   decimal.Decimal `json:"betAmount"`
	Result      game.Result     `json:"result"`
	Payout      decimal.Decimal `json:"payout"`
	IsBlackjack bool            `json:"isBlackjack"`
}

type legacyAction struct {
	Action            strategy.Action `json:"action"`
	Timestamp         time.Time       `json:"timestamp"`
	PlayerHandBefore  []deck.Card     `json:"playerHandBefore"`
	PlayerScoreBefore int             `json:"playerScoreBefore"`
	DealerUpCard      deck.Card       `json:"dealerUpCard"`
}

func (l legacyOutcomes) hand() Hand {
	payout := l.Payout
	if l.Result != game.ResultWin {
		payout = decimal.Zero
	}
	return Hand{
		Cards:     l.PlayerHand,
		Bet:       l.BetAmount,
		Blackjack: l.IsBlackjack || evaluator.IsBlackjack(l.PlayerHand),
		Result:    l.Result,
		Payout:    payout,
	}
}

func (l legacyAction) action() Action {
	score := l.PlayerScoreBefore
	if score == 0 {
		score = evaluator.Total(l.PlayerHandBefore)
	}
	return Action{
		Type:              l.Action,
		Timestamp:         l.Timestamp,
		PlayerHandBefore:  l.PlayerHandBefore,
		PlayerScoreBefore: score,
		DealerUpCard:      l.DealerUpCard,
	}
}
