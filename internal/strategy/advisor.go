// Package strategy implements basic-strategy advice for a single blackjack
// hand against a dealer up-card.
//
// The advisor is stateless: OptimalAction and AnalyzeDecision are pure
// functions of their arguments, so they can be used both during play and
// when replaying persisted rounds.
package strategy

import (
	"fmt"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// ConfidenceThreshold is the confidence below which a deviation is softened
// one severity tier.
const ConfidenceThreshold = 90

// Analysis is the advisor's recommendation for a hand.
type Analysis struct {
	Action      Action `json:"optimal_action"`
	PlayerScore int    `json:"player_score"`
	Soft        bool   `json:"is_soft"`
	DealerUp    int    `json:"dealer_up_card"`
	CanSplit    bool   `json:"can_split"`
	CanDouble   bool   `json:"can_double"`
	Confidence  int    `json:"confidence"`
}

// CanDouble reports whether a hand still holds only its original two cards.
func CanDouble(hand []deck.Card) bool {
	return len(hand) == 2
}

// OptimalAction returns the basic-strategy action for hand against the
// dealer's up card. Pairs consult the pair chart, then soft totals the soft
// chart, everything else the hard chart.
func OptimalAction(hand []deck.Card, up deck.Card, canDouble bool) Analysis {
	score := evaluator.Evaluate(hand)
	dealer := up.Value()
	canSplit := evaluator.IsPair(hand)

	var cell byte
	switch {
	case canSplit:
		cell = lookup(pairTable, hand[0].Value(), dealer)
	case score.Soft && score.Total <= 21:
		cell = lookup(softTable, score.Total, dealer)
	default:
		cell = lookup(hardTable, min(score.Total, 21), dealer)
	}

	return Analysis{
		Action:      resolve(cell, canDouble),
		PlayerScore: score.Total,
		Soft:        score.Soft,
		DealerUp:    dealer,
		CanSplit:    canSplit,
		CanDouble:   canDouble,
		Confidence:  confidence(score, dealer),
	}
}

func resolve(cell byte, canDouble bool) Action {
	switch cell {
	case 'P':
		return Split
	case 'S':
		return Stand
	case 'D':
		if canDouble {
			return Double
		}
		return Hit
	default:
		return Hit
	}
}

// confidence lowers certainty on the well-known borderline cells.
func confidence(score evaluator.Score, dealer int) int {
	switch {
	case !score.Soft && score.Total == 12 && (dealer == 2 || dealer == 3):
		return 80
	case !score.Soft && score.Total == 16 && dealer == 10:
		return 85
	case score.Soft && score.Total == 18 && dealer >= 9:
		return 90
	}
	return 100
}

// Decision compares an action taken against the recommendation.
type Decision struct {
	Optimal     Analysis `json:"optimal"`
	Actual      Action   `json:"actual_action"`
	WasOptimal  bool     `json:"was_optimal"`
	Severity    Severity `json:"deviation"`
	Explanation string   `json:"explanation"`
}

// AnalyzeDecision grades actual against the basic-strategy action.
func AnalyzeDecision(hand []deck.Card, up deck.Card, actual Action, canDouble bool) Decision {
	optimal := OptimalAction(hand, up, canDouble)
	d := Decision{
		Optimal:    optimal,
		Actual:     actual,
		WasOptimal: optimal.Action == actual,
	}
	if d.WasOptimal {
		d.Explanation = "Correct basic strategy play."
		return d
	}

	switch {
	case optimal.Action == Hit && actual == Stand:
		d.Severity = SeverityMajor
		d.Explanation = fmt.Sprintf("Should have hit %d. Standing gives the dealer the advantage.", optimal.PlayerScore)
	case optimal.Action == Stand && actual == Hit:
		d.Severity = SeverityMajor
		d.Explanation = fmt.Sprintf("Should have stood on %d. Hitting risks busting.", optimal.PlayerScore)
	case optimal.Action == Double && actual == Hit:
		d.Severity = SeverityMinor
		d.Explanation = "Should have doubled down for maximum value. Hitting is okay but not optimal."
	case optimal.Action == Split:
		d.Severity = SeverityModerate
		d.Explanation = "Should have split this pair for better expected value."
	default:
		d.Severity = SeverityMinor
		d.Explanation = "Minor deviation from basic strategy."
	}

	if optimal.Confidence < ConfidenceThreshold {
		d.Severity = d.Severity.soften()
	}
	return d
}
