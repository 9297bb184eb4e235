// Package statistics aggregates a user's persisted rounds into performance
// metrics, replaying every recorded decision through the strategy advisor.
package statistics

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/evaluator"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/record"
	"github.com/lox/blackjack/internal/store"
	"github.com/lox/blackjack/internal/strategy"
)

const (
	DefaultPageSize  = 100
	DefaultMaxRounds = 1000
	DefaultRecent    = 20
)

// RoundSource lists a user's stored rounds, newest first.
type RoundSource interface {
	GetUserRounds(ctx context.Context, userID string, page, pageSize int) ([]record.Raw, error)
}

var _ RoundSource = (store.Store)(nil)

// Aggregator computes reports from stored rounds.
type Aggregator struct {
	source    RoundSource
	validator *record.Validator
	logger    *log.Logger

	PageSize  int
	MaxRounds int
	Recent    int
}

// NewAggregator returns an aggregator reading from source.
func NewAggregator(source RoundSource, validator *record.Validator, logger *log.Logger) *Aggregator {
	return &Aggregator{
		source:    source,
		validator: validator,
		logger:    logger.WithPrefix("statistics"),
		PageSize:  DefaultPageSize,
		MaxRounds: DefaultMaxRounds,
		Recent:    DefaultRecent,
	}
}

// UserStatistics pages through the user's rounds and builds a report.
// Malformed rounds are quarantined in the report, never fatal.
func (a *Aggregator) UserStatistics(ctx context.Context, userID string) (*Report, error) {
	var (
		rounds     []record.Round
		malformed  []string
		incomplete int
		seen       int
	)

	for page := 1; seen < a.MaxRounds; page++ {
		rows, err := a.source.GetUserRounds(ctx, userID, page, a.PageSize)
		if err != nil {
			return nil, fmt.Errorf("load rounds for %s: %w", userID, err)
		}
		for _, raw := range rows {
			if seen >= a.MaxRounds {
				break
			}
			seen++
			r, err := a.validator.Decode(raw)
			switch {
			case err == nil:
				rounds = append(rounds, r)
			case errors.Is(err, record.ErrIncomplete):
				incomplete++
			default:
				a.logger.Warn("skipping malformed round", "user", userID, "round", raw.ID, "err", err)
				malformed = append(malformed, raw.ID)
			}
		}
		if len(rows) < a.PageSize {
			break
		}
	}

	report := Build(userID, rounds, a.Recent)
	report.Malformed = malformed
	report.Incomplete = incomplete

	a.logger.Debug("statistics computed", "user", userID, "rounds", report.TotalRounds,
		"malformed", len(malformed), "incomplete", incomplete)
	return report, nil
}

// Build aggregates decoded rounds. The result depends only on the rounds
// given, not their order.
func Build(userID string, rounds []record.Round, recent int) *Report {
	rounds = slices.Clone(rounds)
	slices.SortStableFunc(rounds, func(a, b record.Round) int {
		if c := b.FinishedAt().Compare(a.FinishedAt()); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})

	r := &Report{
		UserID:        userID,
		TotalWagered:  decimal.Zero,
		TotalReturned: decimal.Zero,
		NetProfit:     decimal.Zero,
		AverageBet:    decimal.Zero,
		Recent:        []RecentResult{},
		Analyses:      []HandAnalysis{},
	}
	var profit Statistics

	for _, round := range rounds {
		r.TotalRounds++
		blackjack := false
		for _, h := range round.Hands {
			r.TotalHands++
			switch h.Result {
			case game.ResultWin:
				r.Wins++
			case game.ResultLose:
				r.Losses++
			case game.ResultPush:
				r.Pushes++
			}
			if h.Blackjack {
				r.Blackjacks++
				blackjack = true
			}
		}
		wagered, net := round.Wagered(), round.Net()
		r.TotalWagered = r.TotalWagered.Add(wagered)
		r.TotalReturned = r.TotalReturned.Add(round.Returned())
		profit.Add(RoundResult{
			Net:       net.InexactFloat64(),
			Wagered:   wagered.InexactFloat64(),
			Hands:     len(round.Hands),
			Blackjack: blackjack,
		})

		if len(r.Recent) < recent {
			r.Recent = append(r.Recent, RecentResult{
				RoundID: round.ID,
				Date:    round.FinishedAt(),
				Result:  roundResult(net),
				Profit:  net,
			})
		}

		for _, analysis := range replay(round) {
			r.TotalDecisions++
			if analysis.Inferred {
				r.InferredDecisions++
			}
			if analysis.WasOptimal {
				r.OptimalDecisions++
			} else {
				r.SuboptimalDecisions++
				r.Deviations.add(analysis.Severity)
			}
			r.Analyses = append(r.Analyses, analysis)
		}
	}

	r.NetProfit = r.TotalReturned.Sub(r.TotalWagered)
	if r.TotalHands > 0 {
		r.WinRate = percent(r.Wins, r.TotalHands)
		r.AverageBet = r.TotalWagered.Div(decimal.NewFromInt(int64(r.TotalHands))).Round(2)
	}
	if r.TotalDecisions > 0 {
		r.StrategyAccuracy = percent(r.OptimalDecisions, r.TotalDecisions)
	}

	low, high := profit.ConfidenceInterval95()
	r.Profit = ProfitSummary{
		Mean:   profit.Mean(),
		StdDev: profit.StdDev(),
		Median: profit.Median(),
		CILow:  low,
		CIHigh: high,
	}
	return r
}

func percent(n, of int) float64 {
	return float64(n) / float64(of) * 100
}

func roundResult(net decimal.Decimal) game.Result {
	switch net.Sign() {
	case 1:
		return game.ResultWin
	case -1:
		return game.ResultLose
	default:
		return game.ResultPush
	}
}

// replay grades the decisions of one round. Rounds stored before action
// logging existed get a single inferred decision instead.
func replay(round record.Round) []HandAnalysis {
	if len(round.Actions) == 0 {
		if round.Version == record.Version1 {
			if a, ok := infer(round); ok {
				return []HandAnalysis{a}
			}
		}
		return nil
	}

	out := make([]HandAnalysis, 0, len(round.Actions))
	for _, action := range round.Actions {
		d := strategy.AnalyzeDecision(action.PlayerHandBefore, action.DealerUpCard, action.Type,
			strategy.CanDouble(action.PlayerHandBefore))
		a := analysis(round, action.HandIndex, d)
		a.Date = action.Timestamp
		a.PlayerHand = action.PlayerHandBefore
		a.DealerUpCard = action.DealerUpCard
		out = append(out, a)
	}
	return out
}

// infer approximates the one decision of a legacy single-hand round: a hand
// that ended with more than two cards must have hit, otherwise it stood.
// Naturals involved no decision.
func infer(round record.Round) (HandAnalysis, bool) {
	if len(round.Hands) != 1 || len(round.Dealer) == 0 {
		return HandAnalysis{}, false
	}
	hand := round.Hands[0]
	if len(hand.Cards) < 2 || hand.Blackjack || evaluator.IsBlackjack(round.Dealer) {
		return HandAnalysis{}, false
	}

	actual := strategy.Stand
	if len(hand.Cards) > 2 {
		actual = strategy.Hit
	}
	start := hand.Cards[:2]
	d := strategy.AnalyzeDecision(start, round.Dealer[0], actual, true)
	a := analysis(round, 0, d)
	a.Date = round.FinishedAt()
	a.PlayerHand = start
	a.DealerUpCard = round.Dealer[0]
	a.Inferred = true
	return a, true
}

func analysis(round record.Round, index int, d strategy.Decision) HandAnalysis {
	a := HandAnalysis{
		RoundID:         round.ID,
		HandIndex:       index,
		DealerFinalHand: round.Dealer,
		OptimalAction:   d.Optimal.Action,
		ActualAction:    d.Actual,
		WasOptimal:      d.WasOptimal,
		Severity:        d.Severity,
		Explanation:     d.Explanation,
		Confidence:      d.Optimal.Confidence,
		Bet:             decimal.Zero,
		Payout:          decimal.Zero,
	}
	if index >= 0 && index < len(round.Hands) {
		h := round.Hands[index]
		a.FinalResult = h.Result
		a.Bet = h.Bet
		a.Payout = h.Payout
	}
	return a
}
