package game

import (
	"fmt"
	"strings"

	"github.com/lox/blackjack/internal/strategy"
)

// Phase is the stage a round is in.
type Phase int

const (
	PhaseBetting Phase = iota
	PhaseDealing
	PhasePlayerTurn
	PhaseDealerTurn
	PhaseSettlement
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseBetting:
		return "betting"
	case PhaseDealing:
		return "dealing"
	case PhasePlayerTurn:
		return "player_turn"
	case PhaseDealerTurn:
		return "dealer_turn"
	case PhaseSettlement:
		return "settlement"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so clients can decode
// snapshots.
func (p *Phase) UnmarshalText(text []byte) error {
	for candidate := PhaseBetting; candidate <= PhaseComplete; candidate++ {
		if candidate.String() == string(text) {
			*p = candidate
			return nil
		}
	}
	return fmt.Errorf("game: unknown phase %q", text)
}

// Result is the outcome of a settled hand.
type Result int

const (
	ResultNone Result = iota
	ResultWin
	ResultLose
	ResultPush
)

func (r Result) String() string {
	switch r {
	case ResultWin:
		return "win"
	case ResultLose:
		return "lose"
	case ResultPush:
		return "push"
	default:
		return ""
	}
}

// ParseResult parses "win", "lose" or "push".
func ParseResult(s string) (Result, error) {
	switch strings.ToLower(s) {
	case "win":
		return ResultWin, nil
	case "lose":
		return ResultLose, nil
	case "push":
		return ResultPush, nil
	case "":
		return ResultNone, nil
	}
	return ResultNone, fmt.Errorf("game: unknown result %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	parsed, err := ParseResult(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// ActionKind is the closed set of player decisions.
type ActionKind = strategy.Action

const (
	ActionHit    = strategy.Hit
	ActionStand  = strategy.Stand
	ActionDouble = strategy.Double
	ActionSplit  = strategy.Split
)
