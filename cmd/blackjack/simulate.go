package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/simulator"
	"github.com/lox/blackjack/internal/statistics"
)

// SimulateCmd plays rounds with a policy bot.
type SimulateCmd struct {
	Rounds  int    `short:"n" default:"10000" help:"Number of rounds to play"`
	Policy  string `short:"p" default:"basic" enum:"basic,stand,dealer,random" help:"Bot policy (basic, stand, dealer, random)"`
	Bet     int64  `default:"10" help:"Flat bet per round"`
	Workers int    `short:"w" help:"Worker shards (defaults to the number of CPUs)"`
	Seed    *int64 `help:"Random seed for reproducible results"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	res, err := simulator.New(simulator.Config{
		Rounds:  c.Rounds,
		Policy:  c.Policy,
		Bet:     decimal.NewFromInt(c.Bet),
		Seed:    seed,
		Workers: workers,
		Rules:   cfg.GameRules(),
		Logger:  logger,
	}).Run(ctx)
	if err != nil {
		return err
	}

	s := res.Stats
	low, high := s.ConfidenceInterval95()
	edge := s.ReturnPerWager() * 100
	fmt.Print(section(fmt.Sprintf("Simulation: %s policy", res.Policy),
		row("Rounds", fmt.Sprintf("%d (%d hands)", s.Rounds, s.Hands)),
		row("Seed", seed),
		row("Wins / losses / pushes", fmt.Sprintf("%d / %d / %d", s.Wins, s.Losses, s.Pushes)),
		row("Blackjacks", s.Blackjacks),
		row("Wagered", statistics.FormatCurrency(decimal.NewFromFloat(s.Wagered))),
		row("Net", signed(s.Total(), statistics.FormatCurrency(decimal.NewFromFloat(s.Total())))),
		row("Return per wager", signed(edge, statistics.FormatPercentage(edge, 2))),
		row("Mean per round", fmt.Sprintf("%.3f ± %.3f", s.Mean(), s.StdError())),
		row("95% CI", fmt.Sprintf("[%.3f, %.3f]", low, high)),
		row("Median", fmt.Sprintf("%.2f", s.Median())),
		dimStyle.Render(fmt.Sprintf("%d workers, %s", workers, res.Elapsed.Round(time.Millisecond))),
	))
	return nil
}
