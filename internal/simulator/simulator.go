// Package simulator plays many rounds with a policy bot and summarises the
// results. Rounds are split across worker shards, each with its own table
// and seed, so a run is reproducible for a given seed and worker count.
package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjack/internal/bot"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/statistics"
	"github.com/lox/blackjack/internal/strategy"
)

// Config holds configuration for running simulations.
type Config struct {
	Rounds  int
	Policy  string
	Bet     decimal.Decimal
	Seed    int64
	Workers int
	Rules   game.Rules
	Clock   quartz.Clock
	Logger  *log.Logger
}

// Result is a finished simulation.
type Result struct {
	Policy  string
	Stats   *statistics.Statistics
	Elapsed time.Duration
}

// Simulator runs blackjack simulations.
type Simulator struct {
	config Config
}

// New creates a simulator, filling in defaults for unset fields.
func New(config Config) *Simulator {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if !config.Bet.IsPositive() {
		config.Bet = decimal.NewFromInt(10)
	}
	if config.Rules.MaxHands == 0 {
		config.Rules = game.DefaultRules()
	}
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Simulator{config: config}
}

// Run plays the configured number of rounds.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if s.config.Rounds <= 0 {
		return nil, fmt.Errorf("simulator: rounds must be positive, got %d", s.config.Rounds)
	}
	if _, err := bot.New(s.config.Policy, nil); err != nil {
		return nil, err
	}

	start := s.config.Clock.Now()
	workers := min(s.config.Workers, s.config.Rounds)
	shards := make([]*statistics.Statistics, workers)

	g, ctx := errgroup.WithContext(ctx)
	for i := range workers {
		rounds := s.config.Rounds / workers
		if i < s.config.Rounds%workers {
			rounds++
		}
		g.Go(func() error {
			stats, err := s.shard(ctx, i, rounds)
			shards[i] = stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := &statistics.Statistics{}
	for _, shard := range shards {
		total.Merge(shard)
	}
	if err := total.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	elapsed := s.config.Clock.Since(start)
	s.config.Logger.Info("simulation complete", "policy", s.config.Policy, "rounds", total.Rounds, "elapsed", elapsed)
	return &Result{Policy: s.config.Policy, Stats: total, Elapsed: elapsed}, nil
}

// shard plays rounds on one table. The bankroll covers the worst case of
// every round losing a doubled bet on every split hand.
func (s *Simulator) shard(ctx context.Context, index, rounds int) (*statistics.Statistics, error) {
	seed := s.config.Seed + int64(index)
	policy, err := bot.New(s.config.Policy, randutil.New(seed))
	if err != nil {
		return nil, err
	}

	worst := s.config.Bet.Mul(decimal.NewFromInt(int64(2 * s.config.Rules.MaxHands)))
	bankroll := worst.Mul(decimal.NewFromInt(int64(rounds + 1)))
	table := game.NewTable(fmt.Sprintf("sim-%d", index),
		game.WithRules(s.config.Rules),
		game.WithClock(s.config.Clock),
		game.WithSeed(seed),
		game.WithBankroll(bankroll),
		game.WithLogger(s.config.Logger.WithPrefix("sim")),
	)

	stats := &statistics.Statistics{}
	for n := range rounds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.play(ctx, table, policy)
		if err != nil {
			return nil, fmt.Errorf("shard %d round %d: %w", index, n+1, err)
		}
		stats.Add(result)
	}
	return stats, nil
}

func (s *Simulator) play(ctx context.Context, table *game.Table, policy bot.Policy) (statistics.RoundResult, error) {
	if err := table.PlaceBet(s.config.Bet); err != nil {
		return statistics.RoundResult{}, err
	}
	if err := table.Deal(ctx); err != nil {
		return statistics.RoundResult{}, err
	}
	for table.Phase() == game.PhasePlayerTurn {
		if err := apply(ctx, table, policy.Decide(table.Snapshot())); err != nil {
			return statistics.RoundResult{}, err
		}
	}

	round, ok := table.LastRound()
	if !ok || table.Phase() != game.PhaseComplete {
		return statistics.RoundResult{}, fmt.Errorf("round did not complete (table is %s)", table.Phase())
	}
	result := statistics.RoundResult{
		Net:     round.Net().InexactFloat64(),
		Wagered: round.Wagered().InexactFloat64(),
		Hands:   len(round.Hands),
	}
	for i := range round.Hands {
		if round.Hands[i].IsNatural() {
			result.Blackjack = true
		}
	}
	return result, table.NextRound(ctx, false)
}

func apply(ctx context.Context, table *game.Table, action strategy.Action) error {
	switch action {
	case strategy.Hit:
		return table.Hit(ctx)
	case strategy.Double:
		return table.Double(ctx)
	case strategy.Split:
		return table.Split(ctx)
	default:
		return table.Stand(ctx)
	}
}
