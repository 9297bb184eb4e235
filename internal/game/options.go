package game

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/randutil"
)

// Option configures a Table during creation.
type Option func(*tableConfig)

type tableConfig struct {
	rules    Rules
	clock    quartz.Clock
	recorder Recorder
	logger   *log.Logger
	seeds    *rand.Rand
	decks    []*deck.Deck
	bankroll *decimal.Decimal
}

// WithRules sets the house rules. Default is DefaultRules().
func WithRules(rules Rules) Option {
	return func(c *tableConfig) {
		c.rules = rules
	}
}

// WithClock sets the clock used for timestamps and round IDs.
func WithClock(clock quartz.Clock) Option {
	return func(c *tableConfig) {
		c.clock = clock
	}
}

// WithRecorder sets where round events are sent. Default discards them.
func WithRecorder(r Recorder) Option {
	return func(c *tableConfig) {
		c.recorder = r
	}
}

// WithLogger sets the parent logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *tableConfig) {
		c.logger = logger
	}
}

// WithSeed makes the sequence of round seeds, and so every shuffle,
// reproducible. Without it each round draws a fresh random seed.
func WithSeed(seed int64) Option {
	return func(c *tableConfig) {
		c.seeds = randutil.New(seed)
	}
}

// WithDeck queues a pre-arranged deck for the next round. Queued decks are
// used in order, after which rounds shuffle normally.
func WithDeck(d *deck.Deck) Option {
	return func(c *tableConfig) {
		c.decks = append(c.decks, d)
	}
}

// WithBankroll sets the opening bankroll. Default is Rules.StartingBalance.
func WithBankroll(amount decimal.Decimal) Option {
	return func(c *tableConfig) {
		c.bankroll = &amount
	}
}
