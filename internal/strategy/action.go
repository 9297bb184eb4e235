package strategy

import (
	"fmt"
	"strings"
)

// Action is a player decision. The set is closed: every switch over Action
// handles all four kinds.
type Action int

const (
	Hit Action = iota + 1
	Stand
	Double
	Split
)

// Actions lists every action in display order.
var Actions = []Action{Hit, Stand, Double, Split}

// String returns the upper-case wire name ("HIT", "STAND", ...).
func (a Action) String() string {
	switch a {
	case Hit:
		return "HIT"
	case Stand:
		return "STAND"
	case Double:
		return "DOUBLE"
	case Split:
		return "SPLIT"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Valid reports whether a is one of the four known actions.
func (a Action) Valid() bool {
	return a >= Hit && a <= Split
}

// ParseAction parses a wire name, case-insensitively.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HIT":
		return Hit, nil
	case "STAND":
		return Stand, nil
	case "DOUBLE":
		return Double, nil
	case "SPLIT":
		return Split, nil
	}
	return 0, fmt.Errorf("strategy: unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("strategy: cannot encode %s", a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Severity grades how costly a deviation from basic strategy is.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityModerate
	SeverityMajor
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "NONE"
	case SeverityMinor:
		return "MINOR"
	case SeverityModerate:
		return "MODERATE"
	case SeverityMajor:
		return "MAJOR"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// soften moves a severity one tier toward minor.
func (s Severity) soften() Severity {
	switch s {
	case SeverityMajor:
		return SeverityModerate
	case SeverityModerate:
		return SeverityMinor
	default:
		return s
	}
}
