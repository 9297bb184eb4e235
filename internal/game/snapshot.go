package game

import (
	"iter"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
	"github.com/lox/blackjack/internal/strategy"
)

// HandView is a hand as presented to a client, with its score.
type HandView struct {
	Hand
	Score int  `json:"score"`
	Soft  bool `json:"soft"`
}

// Snapshot is a read-only copy of the table. The dealer's hole card is left
// out until the dealer's turn.
type Snapshot struct {
	RoundID      string          `json:"round_id,omitempty"`
	Phase        Phase           `json:"phase"`
	Bankroll     decimal.Decimal `json:"bankroll"`
	Bet          decimal.Decimal `json:"bet"`
	Hands        []HandView      `json:"hands"`
	Current      int             `json:"current_hand"`
	Dealer       []deck.Card     `json:"dealer"`
	DealerHidden bool            `json:"dealer_hidden"`
	DealerScore  int             `json:"dealer_score"`
	Legal        []ActionKind    `json:"legal_actions"`
	Net          decimal.Decimal `json:"net"`
}

// Snapshot returns the table's current state.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

func (t *Table) snapshot() Snapshot {
	s := Snapshot{
		Phase:    t.phase,
		Bankroll: t.bankroll,
		Bet:      t.bet,
		Current:  t.current,
		Net:      decimal.Zero,
		Hands:    []HandView{},
		Dealer:   []deck.Card{},
	}
	if t.round == nil {
		return s
	}

	s.RoundID = t.round.ID
	for i := range t.round.Hands {
		h := t.round.Hands[i].clone()
		score := h.Score()
		s.Hands = append(s.Hands, HandView{Hand: h, Score: score.Total, Soft: score.Soft})
	}

	s.DealerHidden = t.phase == PhaseDealing || t.phase == PhasePlayerTurn
	if s.DealerHidden && len(t.round.Dealer) > 0 {
		s.Dealer = []deck.Card{t.round.Dealer[0]}
	} else {
		s.Dealer = slices.Clone(t.round.Dealer)
	}
	s.DealerScore = evaluator.Total(s.Dealer)

	if t.phase == PhaseComplete {
		s.Net = t.round.Net()
	}
	s.Legal = t.legalActions()
	return s
}

func (t *Table) legalActions() []ActionKind {
	if t.phase != PhasePlayerTurn || t.round.Hands[t.current].Finished {
		return nil
	}
	legal := []ActionKind{ActionHit, ActionStand}
	if t.checkDouble("") == nil {
		legal = append(legal, ActionDouble)
	}
	if t.checkSplit("") == nil {
		legal = append(legal, ActionSplit)
	}
	return legal
}

// DealerSteps yields the dealer's turn one draw at a time: the hole card
// reveal, each draw, then the settled table. The round is already settled
// when the sequence is produced, so a consumer may stop at any point.
// Rounds settled on the deal yield only the settled table.
func (t *Table) DealerSteps() iter.Seq[Snapshot] {
	t.mu.Lock()
	steps := slices.Clone(t.steps)
	t.mu.Unlock()

	return func(yield func(Snapshot) bool) {
		for _, s := range steps {
			if !yield(s) {
				return
			}
		}
	}
}

// Advice returns the basic-strategy recommendation for the hand in play.
func (t *Table) Advice() (strategy.Analysis, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkActive("advice"); err != nil {
		return strategy.Analysis{}, err
	}
	h := t.round.Hands[t.current]
	return strategy.OptimalAction(h.Cards, t.round.Dealer[0], t.checkDouble("") == nil), nil
}

// LastRound returns a copy of the round in progress or just completed.
func (t *Table) LastRound() (Round, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.round == nil {
		return Round{}, false
	}
	return t.round.clone(), true
}

// Settlements counts the rounds this table has settled since it was
// created. Restore and ResetRound leave it alone, so callers can compare
// the count around an operation to learn whether it finished a round.
func (t *Table) Settlements() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}
