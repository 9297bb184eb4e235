package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/config"
	"github.com/lox/blackjack/internal/record"
	"github.com/lox/blackjack/internal/store"
)

// version is set by ldflags during build
var version = "dev"

// Globals are flags shared by every command.
type Globals struct {
	Config    string   `short:"c" default:"blackjack.hcl" help:"Path to the HCL config file (defaults apply when missing)"`
	EnvFile   []string `name:"env-file" help:"Dotenv files to load before reading the environment"`
	LogLevel  string   `help:"Override the configured log level"`
	LogFormat string   `help:"Override the configured log format (text or json)"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the blackjack HTTP and websocket server"`
	Simulate SimulateCmd      `cmd:"" help:"Play rounds with a policy bot and report the results"`
	Stats    StatsCmd         `cmd:"" help:"Show a player's statistics from the round store"`
	Advise   AdviseCmd        `cmd:"" help:"Show the basic-strategy play for a hand"`
	Export   ExportCmd        `cmd:"" help:"Export a player's rounds as TOML"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("blackjack"),
		kong.Description("Single-player blackjack engine and service"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// load reads configuration and sets up logging.
func (g *Globals) load() (*config.Config, *log.Logger, error) {
	if err := config.LoadDotEnv(g.EnvFile...); err != nil {
		return nil, nil, fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, nil, err
	}
	if g.LogLevel != "" {
		cfg.Server.LogLevel = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Server.LogFormat = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config %s: %w", g.Config, err)
	}
	logger, err := shared.SetupLogger(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore opens the configured round store and a record validator.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, *record.Validator, error) {
	s, err := store.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	v, err := record.NewValidator()
	if err != nil {
		s.Close()
		return nil, nil, err
	}
	return s, v, nil
}
