package main

import (
	"fmt"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/history"
)

// ExportCmd writes a player's rounds to a TOML file.
type ExportCmd struct {
	User   string `arg:"" help:"User ID"`
	Output string `short:"o" default:"-" help:"Output file, or - for stdout"`
}

func (c *ExportCmd) Run(g *Globals) error {
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

	export, err := history.NewExporter(rounds, validator, quartz.NewReal(), logger).WriteFile(ctx, c.User, c.Output)
	if err != nil {
		return err
	}
	if c.Output != "-" {
		fmt.Println(row("Exported", fmt.Sprintf("%d rounds to %s", len(export.Rounds), c.Output)))
	}
	return nil
}
