package game

import (
	"errors"
	"fmt"
)

var (
	ErrWrongPhase        = errors.New("game: action not allowed in this phase")
	ErrInvalidAmount     = errors.New("game: bet amount must be positive")
	ErrInvalidChip       = errors.New("game: unknown chip denomination")
	ErrInsufficientFunds = errors.New("game: insufficient funds")
	ErrAllIn             = errors.New("game: cannot wager the entire bankroll")
	ErrNoBet             = errors.New("game: no bet placed")
	ErrHandFinished      = errors.New("game: hand is finished")
	ErrCannotDouble      = errors.New("game: hand cannot be doubled")
	ErrCannotSplit       = errors.New("game: hand cannot be split")
	ErrTooManyHands      = errors.New("game: maximum number of hands reached")
	ErrNoPreviousBet     = errors.New("game: no previous bet to repeat")
	ErrRestoreInProgress = errors.New("game: cannot restore over a round in progress")
)

// ActionError reports a rejected table operation. State is unchanged when
// one is returned.
type ActionError struct {
	Op     string
	Err    error
	Reason string
}

func (e *ActionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ActionError) Unwrap() error { return e.Err }

func reject(op string, err error, format string, args ...any) error {
	return &ActionError{Op: op, Err: err, Reason: fmt.Sprintf(format, args...)}
}
