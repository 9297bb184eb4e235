package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/store"
)

// Manager holds one table per player. Accounts load their bankroll from
// the store and record rounds through the recorder; guests load from and
// save to the session store only.
type Manager struct {
	rules    game.Rules
	clock    quartz.Clock
	logger   *log.Logger
	store    store.Store
	recorder game.Recorder
	sessions session.Store
	seed     *int64

	mu     sync.Mutex
	tables map[string]*game.Table
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Rules    game.Rules
	Clock    quartz.Clock
	Store    store.Store
	Recorder game.Recorder
	Sessions session.Store
	// Seed makes every table's shuffles reproducible. Tests only.
	Seed *int64
}

// NewManager returns an empty manager.
func NewManager(cfg ManagerConfig, logger *log.Logger) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = game.NopRecorder{}
	}
	return &Manager{
		rules:    cfg.Rules,
		clock:    cfg.Clock,
		logger:   logger.WithPrefix("tables"),
		store:    cfg.Store,
		recorder: cfg.Recorder,
		sessions: cfg.Sessions,
		seed:     cfg.Seed,
		tables:   make(map[string]*game.Table),
	}
}

// Table returns the player's table, creating it on first use. The bankroll
// is loaded without holding the lock; if two requests race to open the same
// table the first one stored wins.
func (m *Manager) Table(ctx context.Context, id auth.Identity) (*game.Table, error) {
	if t, ok := m.lookup(id.UserID); ok {
		return t, nil
	}

	t, err := m.open(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.tables[id.UserID]; ok {
		return existing, nil
	}
	m.tables[id.UserID] = t
	m.logger.Info("table opened", "user", id.UserID, "guest", id.Guest, "bankroll", t.Bankroll())
	return t, nil
}

func (m *Manager) lookup(userID string) (*game.Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[userID]
	return t, ok
}

// open builds a table for id from the store or the guest's saved session.
func (m *Manager) open(ctx context.Context, id auth.Identity) (*game.Table, error) {
	opts := []game.Option{
		game.WithRules(m.rules),
		game.WithClock(m.clock),
		game.WithLogger(m.logger),
	}
	if m.seed != nil {
		opts = append(opts, game.WithSeed(*m.seed))
	}

	if id.Guest {
		t := game.NewTable(id.UserID, opts...)
		if err := m.restoreGuest(ctx, id, t); err != nil {
			return nil, err
		}
		return t, nil
	}

	balance, err := m.balance(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	opts = append(opts, game.WithRecorder(m.recorder), game.WithBankroll(balance))
	return game.NewTable(id.UserID, opts...), nil
}

// balance loads a user's bankroll, granting the starting balance to users
// with none on record.
func (m *Manager) balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if m.store == nil {
		return m.rules.StartingBalance, nil
	}
	balance, err := m.store.GetBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		balance = m.rules.StartingBalance
		if err := m.store.SetBalance(ctx, userID, balance); err != nil {
			m.logger.Error("initialise balance failed", "user", userID, "err", err)
		}
		return balance, nil
	}
	if err != nil {
		return balance, fmt.Errorf("load balance: %w", err)
	}
	return balance, nil
}

func (m *Manager) restoreGuest(ctx context.Context, id auth.Identity, t *game.Table) error {
	if m.sessions == nil {
		return nil
	}
	state, err := m.sessions.Load(ctx, id.UserID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.Warn("guest session unreadable, starting fresh", "user", id.UserID, "err", err)
		return nil
	}
	return t.Restore(state)
}

// Save persists a guest table's state. Accounts persist through the
// recorder as they play, so this is a no-op for them.
func (m *Manager) Save(ctx context.Context, id auth.Identity, t *game.Table) {
	if !id.Guest || m.sessions == nil {
		return
	}
	if err := m.sessions.Save(ctx, t.State()); err != nil {
		m.logger.Error("save guest session failed", "user", id.UserID, "err", err)
	}
}

// ResetProgress abandons any round and puts the player back on the
// starting bankroll.
func (m *Manager) ResetProgress(ctx context.Context, id auth.Identity) (*game.Table, error) {
	t, err := m.Table(ctx, id)
	if err != nil {
		return nil, err
	}
	t.ResetRound()

	state := game.State{UserID: id.UserID, Bankroll: m.rules.StartingBalance, LastBet: decimal.Zero, SavedAt: m.clock.Now()}
	if id.Guest && m.sessions != nil {
		if state, err = m.sessions.Clear(ctx, id.UserID); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
	}
	if err := t.Restore(state); err != nil {
		return nil, err
	}
	if !id.Guest {
		m.recorder.BalanceChanged(id.UserID, state.Bankroll)
	}
	m.logger.Info("progress reset", "user", id.UserID, "bankroll", state.Bankroll)
	return t, nil
}

// Len returns the number of open tables.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}
