package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/statistics"
)

// StatsCmd prints a player's statistics.
type StatsCmd struct {
	User   string `arg:"" help:"User ID"`
	JSON   bool   `help:"Print the raw report as JSON"`
	Recent int    `default:"10" help:"Recent rounds to list"`
}

func (c *StatsCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	rounds, validator, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer rounds.Close()

	agg := statistics.NewAggregator(rounds, validator, logger)
	agg.Recent = c.Recent
	report, err := agg.UserStatistics(ctx, c.User)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	net := report.NetProfit.InexactFloat64()
	fmt.Print(section("Statistics for "+report.UserID,
		row("Rounds", fmt.Sprintf("%d (%d hands)", report.TotalRounds, report.TotalHands)),
		row("Wins / losses / pushes", fmt.Sprintf("%d / %d / %d", report.Wins, report.Losses, report.Pushes)),
		row("Win rate", statistics.FormatPercentage(report.WinRate, 1)),
		row("Blackjacks", report.Blackjacks),
		row("Wagered", statistics.FormatCurrency(report.TotalWagered)),
		row("Net profit", signed(net, statistics.FormatCurrency(report.NetProfit))),
		row("Average bet", statistics.FormatCurrency(report.AverageBet)),
	))
	fmt.Println()
	fmt.Print(section("Strategy",
		row("Decisions", fmt.Sprintf("%d (%d inferred)", report.TotalDecisions, report.InferredDecisions)),
		row("Accuracy", statistics.FormatPercentage(report.StrategyAccuracy, 1)),
		row("Deviations", fmt.Sprintf("%d minor, %d moderate, %d major",
			report.Deviations.Minor, report.Deviations.Moderate, report.Deviations.Major)),
	))

	if len(report.Recent) > 0 {
		rows := make([]string, 0, len(report.Recent))
		for _, r := range report.Recent {
			rows = append(rows, row(r.Date.Format("2006-01-02 15:04"),
				signed(r.Profit.InexactFloat64(), fmt.Sprintf("%-5s %s", r.Result, statistics.FormatCurrency(r.Profit)))))
		}
		fmt.Println()
		fmt.Print(section("Recent rounds", rows...))
	}
	if len(report.Malformed) > 0 || report.Incomplete > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("\n%d malformed rounds skipped, %d rounds unfinished",
			len(report.Malformed), report.Incomplete)))
	}
	return nil
}
