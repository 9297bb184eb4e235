package game

import (
	"context"
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/lox/blackjack/internal/roundid"
)

// Table is one player's seat against the dealer. It is safe for concurrent
// use; every operation is applied atomically.
type Table struct {
	mu sync.Mutex

	userID   string
	rules    Rules
	clock    quartz.Clock
	recorder Recorder
	logger   *log.Logger
	ids      *roundid.Generator
	seeds    *rand.Rand
	decks    []*deck.Deck

	phase    Phase
	bankroll decimal.Decimal
	bet      decimal.Decimal
	lastBet  decimal.Decimal
	played   int
	settled  uint64

	round   *Round
	rng     *rand.Rand
	deck    *deck.Deck
	current int
	steps   []Snapshot
}

// NewTable creates a table for userID in the betting phase.
//
//	t := NewTable("user-1", WithSeed(42), WithRecorder(journal))
//	_ = t.PlaceBet(decimal.NewFromInt(50))
//	_ = t.Deal(ctx)
func NewTable(userID string, opts ...Option) *Table {
	cfg := &tableConfig{
		rules:    DefaultRules(),
		clock:    quartz.NewReal(),
		recorder: NopRecorder{},
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	bankroll := cfg.rules.StartingBalance
	if cfg.bankroll != nil {
		bankroll = *cfg.bankroll
	}

	return &Table{
		userID:   userID,
		rules:    cfg.rules,
		clock:    cfg.clock,
		recorder: cfg.recorder,
		logger:   cfg.logger.WithPrefix("table").With("user", userID),
		ids:      roundid.NewGenerator(cfg.clock, nil),
		seeds:    cfg.seeds,
		decks:    cfg.decks,
		phase:    PhaseBetting,
		bankroll: bankroll,
		bet:      decimal.Zero,
		lastBet:  decimal.Zero,
	}
}

// UserID returns the player the table belongs to.
func (t *Table) UserID() string { return t.userID }

// Rules returns the table's house rules.
func (t *Table) Rules() Rules { return t.rules }

// Phase returns the current phase.
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Bankroll returns the chips not currently staked.
func (t *Table) Bankroll() decimal.Decimal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bankroll
}

// PlaceBet adds amount to the staged bet, debiting the bankroll.
func (t *Table) PlaceBet(amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "place bet"
	if t.phase != PhaseBetting {
		return reject(op, ErrWrongPhase, "bets can only be placed while betting (table is %s)", t.phase)
	}
	if err := t.checkBet(op, amount); err != nil {
		return err
	}
	t.stake(amount)
	return nil
}

// PlaceChip places a single chip, which must be one of the table's
// denominations.
func (t *Table) PlaceChip(chip decimal.Decimal) error {
	if !t.rules.isChip(chip) {
		return reject("place chip", ErrInvalidChip, "%s is not a chip at this table", chip)
	}
	return t.PlaceBet(chip)
}

func (t *Table) checkBet(op string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return reject(op, ErrInvalidAmount, "bet must be positive, got %s", amount)
	}
	if amount.GreaterThan(t.bankroll) {
		return reject(op, ErrInsufficientFunds, "bet of %s exceeds available %s", amount, t.bankroll)
	}
	// The staged bet is already debited, so staking everything that remains
	// is staking the whole balance.
	if !t.rules.AllowAllIn && amount.Equal(t.bankroll) {
		return reject(op, ErrAllIn, "maximum bet reached, the entire bankroll cannot be wagered")
	}
	return nil
}

func (t *Table) stake(amount decimal.Decimal) {
	t.bankroll = t.bankroll.Sub(amount)
	t.bet = t.bet.Add(amount)
	t.logger.Debug("bet placed", "amount", amount, "bet", t.bet, "bankroll", t.bankroll)
}

// ClearBet returns the staged bet to the bankroll.
func (t *Table) ClearBet() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase != PhaseBetting {
		return reject("clear bet", ErrWrongPhase, "bets can only be cleared while betting (table is %s)", t.phase)
	}
	t.bankroll = t.bankroll.Add(t.bet)
	t.bet = decimal.Zero
	return nil
}

// Deal starts a round with the staged bet: two cards each, player first.
// A dealer natural showing an Ace or ten settles the round at once, as does
// a player natural.
func (t *Table) Deal(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "deal"
	if t.phase != PhaseBetting {
		return reject(op, ErrWrongPhase, "a round is already in progress (table is %s)", t.phase)
	}
	if !t.bet.IsPositive() {
		return reject(op, ErrNoBet, "place a bet first")
	}
	return t.deal()
}

func (t *Table) deal() error {
	seed := t.nextSeed()
	t.rng = randutil.FromSeed(seed)
	if len(t.decks) > 0 {
		t.deck, t.decks = t.decks[0], t.decks[1:]
	} else {
		t.deck = deck.NewDeck(t.rng)
	}

	t.phase = PhaseDealing
	t.round = &Round{
		ID:        t.ids.New(),
		UserID:    t.userID,
		Seed:      seed,
		StartedAt: t.clock.Now(),
		Hands:     []Hand{{Bet: t.bet, Payout: decimal.Zero}},
	}
	t.lastBet = t.bet
	t.bet = decimal.Zero
	t.current = 0
	t.steps = nil

	for i := 0; i < 4; i++ {
		c, err := t.draw()
		if err != nil {
			return err
		}
		if i%2 == 0 {
			t.round.Hands[0].Cards = append(t.round.Hands[0].Cards, c)
		} else {
			t.round.Dealer = append(t.round.Dealer, c)
		}
	}
	t.recorder.RoundStarted(t.round.clone())
	t.logger.Info("round dealt", "round", t.round.ID, "bet", t.lastBet,
		"player", t.round.Hands[0].Cards, "up", t.round.Dealer[0])

	up := t.round.Dealer[0]
	if (up.IsAce() || up.IsTenValue()) && evaluator.IsBlackjack(t.round.Dealer) {
		t.logger.Info("dealer blackjack", "round", t.round.ID)
		t.settle()
		return nil
	}
	if t.round.Hands[0].IsNatural() {
		t.logger.Info("player blackjack", "round", t.round.ID)
		t.settle()
		return nil
	}
	t.phase = PhasePlayerTurn
	return nil
}

func (t *Table) nextSeed() string {
	if t.seeds != nil {
		return randutil.SeedFrom(t.seeds)
	}
	return randutil.NewSeed()
}

// draw takes the next card. An exhausted deck is replaced by a fresh shuffle
// of every card not already visible in the round.
func (t *Table) draw() (deck.Card, error) {
	c, err := t.deck.Draw()
	if errors.Is(err, deck.ErrDeckExhausted) {
		t.logger.Warn("deck exhausted, reshuffling unseen cards", "round", t.round.ID)
		t.deck.Refill(t.rng, t.visible())
		c, err = t.deck.Draw()
	}
	if err != nil {
		return deck.Card{}, fmt.Errorf("draw: %w", err)
	}
	return c, nil
}

func (t *Table) visible() []deck.Card {
	cards := slices.Clone(t.round.Dealer)
	for _, h := range t.round.Hands {
		cards = append(cards, h.Cards...)
	}
	return cards
}

// NextRound answers the new-round prompt after a completed round. Accepting
// re-stakes the previous bet and deals; declining returns to betting with
// the bankroll intact.
func (t *Table) NextRound(ctx context.Context, accept bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "next round"
	if t.phase != PhaseComplete {
		return reject(op, ErrWrongPhase, "the current round has not finished (table is %s)", t.phase)
	}
	if !accept {
		t.clearRound()
		return nil
	}
	if !t.lastBet.IsPositive() {
		return reject(op, ErrNoPreviousBet, "there is no previous bet to repeat")
	}
	if err := t.checkBet(op, t.lastBet); err != nil {
		return err
	}
	t.clearRound()
	t.stake(t.lastBet)
	return t.deal()
}

// ResetRound abandons whatever is in progress and returns to betting. A
// staged bet is refunded; stakes on a round already dealt are forfeit.
func (t *Table) ResetRound() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.phase {
	case PhaseBetting:
		t.bankroll = t.bankroll.Add(t.bet)
		t.bet = decimal.Zero
	case PhaseComplete:
	default:
		t.logger.Info("round abandoned", "round", t.round.ID, "phase", t.phase)
	}
	t.clearRound()
}

func (t *Table) clearRound() {
	t.phase = PhaseBetting
	t.round = nil
	t.deck = nil
	t.current = 0
	t.steps = nil
}

func (t *Table) newAction(kind ActionKind) Action {
	h := &t.round.Hands[t.current]
	return Action{
		ID:          uuid.NewString(),
		Kind:        kind,
		Timestamp:   t.clock.Now(),
		HandBefore:  slices.Clone(h.Cards),
		ScoreBefore: h.Score().Total,
		DealerUp:    t.round.Dealer[0],
		HandIndex:   t.current,
	}
}

func (t *Table) record(kind ActionKind) {
	a := t.newAction(kind)
	t.round.Actions = append(t.round.Actions, a)
	t.recorder.ActionTaken(t.round.ID, a)
}
