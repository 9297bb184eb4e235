// Package store persists rounds and balances. Three backends share the
// Store interface: an in-process map, SQLite and Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/record"
)

// ErrNotFound is returned for unknown rounds and users without a balance.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence collaborator of the game. Rounds are listed
// newest first.
type Store interface {
	CreateRound(ctx context.Context, userID, seed string, startedAt time.Time) (string, error)
	AppendAction(ctx context.Context, roundID string, action record.Action) error
	UpdateRoundOutcomes(ctx context.Context, roundID string, round record.Round) error
	GetUserRounds(ctx context.Context, userID string, page, pageSize int) ([]record.Raw, error)
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
	SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error
	Close() error
}

// Open connects to the backend named by driver: "memory", "sqlite" (dsn is
// a file path) or "postgres" (dsn is a connection URL). Schemas are
// migrated on open.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		db, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	case "postgres":
		db, err := NewPostgres(ctx, dsn)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("store: unknown driver %q", driver)
}

// offset converts a 1-based page into a row offset.
func offset(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	return (page - 1) * pageSize, pageSize
}

func encodeRound(r record.Round) (outcomes, actions []byte, err error) {
	if outcomes, err = r.MarshalOutcomes(); err != nil {
		return nil, nil, fmt.Errorf("encode outcomes: %w", err)
	}
	if actions, err = r.MarshalActions(); err != nil {
		return nil, nil, fmt.Errorf("encode actions: %w", err)
	}
	return outcomes, actions, nil
}
