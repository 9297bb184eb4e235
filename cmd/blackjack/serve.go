package main

import (
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjack/cmd/blackjack/shared"
	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/journal"
	"github.com/lox/blackjack/internal/server"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/statistics"
)

// ServeCmd runs the HTTP server.
type ServeCmd struct {
	Addr string `help:"Listen address, overriding the config (e.g. ':8080')"`
	Seed *int64 `help:"Deterministic shuffle seed for every table (testing only)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, logger, err := g.load()
	if err != nil {
		return err
	}
	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	clock := quartz.NewReal()
	rules := cfg.GameRules()

	rounds, validator, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer rounds.Close()

	j := journal.New(rounds, logger, journal.Config{Clock: clock})
	defer j.Close()

	var sessions session.Store = session.NewMemoryStore(rules.StartingBalance, clock)
	if cfg.Session.Dir != "" {
		sessions = session.NewFileStore(cfg.Session.Dir, rules.StartingBalance, clock)
	}

	var validatorAuth auth.Validator = auth.NoopValidator{}
	if cfg.Auth.URL != "" {
		validatorAuth = auth.NewHTTPValidator(cfg.Auth.URL, cfg.Auth.AdminSecret,
			time.Duration(cfg.Auth.TimeoutMS)*time.Millisecond)
	} else {
		logger.Warn("no auth url configured, bearer tokens are trusted as user ids")
	}

	if c.Seed != nil {
		logger.Info("using deterministic seed", "seed", *c.Seed)
	}
	tables := server.NewManager(server.ManagerConfig{
		Rules:    rules,
		Clock:    clock,
		Store:    rounds,
		Recorder: j,
		Sessions: sessions,
		Seed:     c.Seed,
	}, logger)

	srv := server.New(server.Config{
		Rules:         rules,
		Clock:         clock,
		Authenticator: &auth.Authenticator{Validator: validatorAuth, AllowGuests: cfg.GuestsAllowed()},
		Tables:        tables,
		Statistics:    statistics.NewAggregator(rounds, validator, logger),
	}, logger)

	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}
	logger.Info("starting blackjack server",
		"address", addr,
		"storage", cfg.Storage.Driver,
		"starting_balance", rules.StartingBalance,
		"max_hands", rules.MaxHands,
		"guests", cfg.GuestsAllowed(),
	)
	return srv.Run(ctx, addr)
}
