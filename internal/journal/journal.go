// Package journal persists round events off the play path. A Journal is a
// game.Recorder: tables hand it events without waiting, and a single worker
// writes them to a store.Store in the order they arrived.
package journal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/record"
	"github.com/lox/blackjack/internal/store"
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("journal: closed")

// Config tunes the worker. Zero values take defaults.
type Config struct {
	// FlushInterval is how often coalesced balances are written and
	// abandoned rounds forgotten.
	FlushInterval time.Duration
	// QueueSize bounds pending events; events beyond it are dropped.
	QueueSize int
	// Timeout bounds each store call.
	Timeout time.Duration
	// Abandoned is how long a started round may go unsettled before its
	// store ID is forgotten.
	Abandoned time.Duration
	Clock     quartz.Clock
}

type eventKind int

const (
	roundStarted eventKind = iota
	actionTaken
	roundSettled
	balanceChanged
	barrier
)

func (k eventKind) String() string {
	switch k {
	case roundStarted:
		return "round_started"
	case actionTaken:
		return "action"
	case roundSettled:
		return "round_settled"
	case balanceChanged:
		return "balance"
	default:
		return "barrier"
	}
}

type event struct {
	kind    eventKind
	round   game.Round
	roundID string
	action  game.Action
	userID  string
	balance decimal.Decimal
	done    chan struct{}
}

type pending struct {
	storeID string
	started time.Time
}

// Journal is an ordered asynchronous writer.
type Journal struct {
	cfg    Config
	store  store.Store
	logger *log.Logger

	mu     sync.RWMutex
	closed bool
	events chan event
	ticker *quartz.Ticker
	done   chan struct{}

	// owned by the worker
	rounds   map[string]pending
	balances map[string]decimal.Decimal
}

var _ game.Recorder = (*Journal)(nil)

// New starts a journal writing to s.
func New(s store.Store, logger *log.Logger, cfg Config) *Journal {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Abandoned <= 0 {
		cfg.Abandoned = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}

	j := &Journal{
		cfg:      cfg,
		store:    s,
		logger:   logger.WithPrefix("journal"),
		events:   make(chan event, cfg.QueueSize),
		ticker:   cfg.Clock.NewTicker(cfg.FlushInterval, "journal", "flush"),
		done:     make(chan struct{}),
		rounds:   make(map[string]pending),
		balances: make(map[string]decimal.Decimal),
	}
	go j.run()
	return j
}

func (j *Journal) RoundStarted(round game.Round) {
	j.enqueue(event{kind: roundStarted, round: round})
}

func (j *Journal) ActionTaken(roundID string, action game.Action) {
	j.enqueue(event{kind: actionTaken, roundID: roundID, action: action})
}

func (j *Journal) RoundSettled(round game.Round) {
	j.enqueue(event{kind: roundSettled, round: round})
}

func (j *Journal) BalanceChanged(userID string, balance decimal.Decimal) {
	j.enqueue(event{kind: balanceChanged, userID: userID, balance: balance})
}

func (j *Journal) enqueue(ev event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.logger.Warn("event after close dropped", "kind", ev.kind)
		return
	}
	select {
	case j.events <- ev:
	default:
		j.logger.Error("queue full, event dropped", "kind", ev.kind, "round", ev.roundID)
	}
}

// Flush blocks until every event enqueued before the call has been written
// and pending balances are stored.
func (j *Journal) Flush(ctx context.Context) error {
	ev := event{kind: barrier, done: make(chan struct{})}

	j.mu.RLock()
	if j.closed {
		j.mu.RUnlock()
		return ErrClosed
	}
	select {
	case j.events <- ev:
	case <-ctx.Done():
		j.mu.RUnlock()
		return ctx.Err()
	}
	j.mu.RUnlock()

	select {
	case <-ev.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue, writes pending balances and stops the worker. It
// does not close the store.
func (j *Journal) Close() error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.events)
	}
	j.mu.Unlock()
	<-j.done
	return nil
}

func (j *Journal) run() {
	defer close(j.done)
	defer j.ticker.Stop()

	for {
		select {
		case ev, ok := <-j.events:
			if !ok {
				j.flushBalances()
				return
			}
			j.handle(ev)
		case <-j.ticker.C:
			j.flushBalances()
			j.prune()
		}
	}
}

func (j *Journal) handle(ev event) {
	ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
	defer cancel()

	switch ev.kind {
	case roundStarted:
		id, err := j.store.CreateRound(ctx, ev.round.UserID, ev.round.Seed, ev.round.StartedAt)
		if err != nil {
			j.logger.Error("create round failed", "round", ev.round.ID, "user", ev.round.UserID, "err", err)
			return
		}
		j.rounds[ev.round.ID] = pending{storeID: id, started: ev.round.StartedAt}
		j.logger.Debug("round created", "round", ev.round.ID, "id", id)

	case actionTaken:
		p, ok := j.rounds[ev.roundID]
		if !ok {
			j.logger.Warn("action for unknown round dropped", "round", ev.roundID)
			return
		}
		if err := j.store.AppendAction(ctx, p.storeID, record.ActionFromGame(ev.action)); err != nil {
			j.logger.Error("append action failed", "round", ev.roundID, "err", err)
		}

	case roundSettled:
		p, ok := j.rounds[ev.round.ID]
		if !ok {
			j.logger.Warn("outcome for unknown round dropped", "round", ev.round.ID)
			return
		}
		delete(j.rounds, ev.round.ID)
		if err := j.store.UpdateRoundOutcomes(ctx, p.storeID, record.FromGame(ev.round)); err != nil {
			j.logger.Error("update outcomes failed", "round", ev.round.ID, "err", err)
		}

	case balanceChanged:
		j.balances[ev.userID] = ev.balance

	case barrier:
		j.flushBalances()
		close(ev.done)
	}
}

func (j *Journal) flushBalances() {
	for userID, balance := range j.balances {
		ctx, cancel := context.WithTimeout(context.Background(), j.cfg.Timeout)
		err := j.store.SetBalance(ctx, userID, balance)
		cancel()
		if err != nil {
			j.logger.Error("set balance failed", "user", userID, "err", err)
		}
		delete(j.balances, userID)
	}
}

// prune forgets rounds that were started but never settled, which is what
// a reset leaves behind.
func (j *Journal) prune() {
	cutoff := j.cfg.Clock.Now().Add(-j.cfg.Abandoned)
	for id, p := range j.rounds {
		if p.started.Before(cutoff) {
			delete(j.rounds, id)
			j.logger.Debug("abandoned round forgotten", "round", id)
		}
	}
}
