package statistics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/strategy"
)

// Report is a user's aggregate performance.
type Report struct {
	UserID string `json:"user_id"`

	TotalRounds int     `json:"total_rounds"`
	TotalHands  int     `json:"total_hands"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Pushes      int     `json:"pushes"`
	WinRate     float64 `json:"win_rate"`
	Blackjacks  int     `json:"blackjacks"`

	TotalWagered  decimal.Decimal `json:"total_wagered"`
	TotalReturned decimal.Decimal `json:"total_returned"`
	NetProfit     decimal.Decimal `json:"net_profit"`
	AverageBet    decimal.Decimal `json:"average_bet"`

	TotalDecisions      int             `json:"total_decisions"`
	OptimalDecisions    int             `json:"optimal_decisions"`
	SuboptimalDecisions int             `json:"suboptimal_decisions"`
	InferredDecisions   int             `json:"inferred_decisions"`
	StrategyAccuracy    float64         `json:"strategy_accuracy"`
	Deviations          DeviationCounts `json:"deviations"`

	Profit ProfitSummary `json:"profit"`

	Recent   []RecentResult `json:"recent_performance"`
	Analyses []HandAnalysis `json:"hand_analyses"`

	// Malformed lists the IDs of rounds that failed validation.
	Malformed []string `json:"malformed,omitempty"`
	// Incomplete counts rounds that were started but never settled.
	Incomplete int `json:"incomplete"`
}

// DeviationCounts tallies suboptimal decisions by severity.
type DeviationCounts struct {
	Minor    int `json:"minor"`
	Moderate int `json:"moderate"`
	Major    int `json:"major"`
}

func (d *DeviationCounts) add(s strategy.Severity) {
	switch s {
	case strategy.SeverityMinor:
		d.Minor++
	case strategy.SeverityModerate:
		d.Moderate++
	case strategy.SeverityMajor:
		d.Major++
	}
}

// ProfitSummary describes the distribution of per-round net profit.
type ProfitSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
	CILow  float64 `json:"ci95_low"`
	CIHigh float64 `json:"ci95_high"`
}

// RecentResult is one round in the recent-performance list.
type RecentResult struct {
	RoundID string          `json:"round_id"`
	Date    time.Time       `json:"date"`
	Result  game.Result     `json:"result"`
	Profit  decimal.Decimal `json:"profit"`
}

// HandAnalysis grades one decision. Inferred rows come from legacy rounds
// without an action log and are a weaker signal.
type HandAnalysis struct {
	RoundID         string            `json:"round_id"`
	Date            time.Time         `json:"date"`
	HandIndex       int               `json:"hand_index"`
	PlayerHand      []deck.Card       `json:"player_hand"`
	DealerUpCard    deck.Card         `json:"dealer_up_card"`
	DealerFinalHand []deck.Card       `json:"dealer_final_hand"`
	FinalResult     game.Result       `json:"final_result"`
	Bet             decimal.Decimal   `json:"bet"`
	Payout          decimal.Decimal   `json:"payout"`
	OptimalAction   strategy.Action   `json:"optimal_action"`
	ActualAction    strategy.Action   `json:"actual_action"`
	WasOptimal      bool              `json:"was_optimal"`
	Severity        strategy.Severity `json:"deviation"`
	Explanation     string            `json:"explanation"`
	Confidence      int               `json:"confidence"`
	Inferred        bool              `json:"inferred,omitempty"`
}
