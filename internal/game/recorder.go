package game

import "github.com/shopspring/decimal"

// Recorder receives round events for persistence. Implementations must
// return promptly; the table never waits on storage and never sees its
// failures.
type Recorder interface {
	RoundStarted(round Round)
	ActionTaken(roundID string, action Action)
	RoundSettled(round Round)
	BalanceChanged(userID string, balance decimal.Decimal)
}

// NopRecorder discards every event. Guest tables use it.
type NopRecorder struct{}

func (NopRecorder) RoundStarted(Round)                     {}
func (NopRecorder) ActionTaken(string, Action)             {}
func (NopRecorder) RoundSettled(Round)                     {}
func (NopRecorder) BalanceChanged(string, decimal.Decimal) {}
