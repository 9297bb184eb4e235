package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/record"
)

// Memory is a Store held in process memory.
type Memory struct {
	mu       sync.RWMutex
	rounds   map[string]*memoryRound
	order    []string
	balances map[string]decimal.Decimal
}

type memoryRound struct {
	raw     record.Raw
	actions []json.RawMessage
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		rounds:   make(map[string]*memoryRound),
		balances: make(map[string]decimal.Decimal),
	}
}

func (m *Memory) CreateRound(_ context.Context, userID, seed string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	m.PutRaw(record.Raw{ID: id, UserID: userID, Seed: seed, StartedAt: startedAt})
	return id, nil
}

// PutRaw stores a round document as-is, replacing any round with the same
// ID. Useful for seeding legacy or damaged records.
func (m *Memory) PutRaw(raw record.Raw) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rounds[raw.ID]; !ok {
		m.order = append(m.order, raw.ID)
	}
	m.rounds[raw.ID] = &memoryRound{raw: raw}
}

func (m *Memory) AppendAction(_ context.Context, roundID string, action record.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	r.actions = append(r.actions, data)
	r.raw.Actions, err = json.Marshal(r.actions)
	return err
}

func (m *Memory) UpdateRoundOutcomes(_ context.Context, roundID string, round record.Round) error {
	outcomes, actions, err := encodeRound(round)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rounds[roundID]
	if !ok {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	ended := round.EndedAt
	r.raw.Outcomes = outcomes
	r.raw.Actions = actions
	r.raw.EndedAt = &ended
	r.actions = nil
	return nil
}

func (m *Memory) GetUserRounds(_ context.Context, userID string, page, pageSize int) ([]record.Raw, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rows []record.Raw
	for i := len(m.order) - 1; i >= 0; i-- {
		if r := m.rounds[m.order[i]]; r.raw.UserID == userID {
			rows = append(rows, r.raw)
		}
	}
	slices.SortStableFunc(rows, func(a, b record.Raw) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	skip, limit := offset(page, pageSize)
	if skip >= len(rows) {
		return nil, nil
	}
	return rows[skip:min(skip+limit, len(rows))], nil
}

func (m *Memory) GetBalance(_ context.Context, userID string) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.balances[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("balance for %s: %w", userID, ErrNotFound)
	}
	return b, nil
}

func (m *Memory) SetBalance(_ context.Context, userID string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = balance
	return nil
}

func (m *Memory) Close() error { return nil }
