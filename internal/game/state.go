package game

import (
	"time"

	"github.com/shopspring/decimal"
)

// State is the part of a table that outlives a process: what a session
// store saves for guests.
type State struct {
	UserID       string          `json:"user_id"`
	Bankroll     decimal.Decimal `json:"bankroll"`
	LastBet      decimal.Decimal `json:"last_bet"`
	RoundsPlayed int             `json:"rounds_played"`
	SavedAt      time.Time       `json:"saved_at"`
}

// State captures the table for saving. A staged bet counts toward the
// bankroll; stakes on a round in play do not.
func (t *Table) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	bankroll := t.bankroll
	if t.phase == PhaseBetting {
		bankroll = bankroll.Add(t.bet)
	}
	return State{
		UserID:       t.userID,
		Bankroll:     bankroll,
		LastBet:      t.lastBet,
		RoundsPlayed: t.played,
		SavedAt:      t.clock.Now(),
	}
}

// Restore loads a saved state. It is only allowed between rounds; any
// staged bet is replaced.
func (t *Table) Restore(s State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseBetting {
		return reject("restore", ErrRestoreInProgress, "finish or reset the round first (table is %s)", t.phase)
	}
	if s.Bankroll.IsNegative() {
		return reject("restore", ErrInvalidAmount, "saved bankroll %s is negative", s.Bankroll)
	}
	t.bankroll = s.Bankroll
	t.bet = decimal.Zero
	t.lastBet = s.LastBet
	t.played = s.RoundsPlayed
	t.logger.Debug("state restored", "bankroll", t.bankroll, "rounds", t.played)
	return nil
}
