package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/lox/blackjack/internal/record"
)

// SQLite is a Store backed by a single SQLite file. Times are kept as Unix
// milliseconds and money as decimal strings.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; SQLite serialises them anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Migrate creates the tables if they do not exist.
func (s *SQLite) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			seed TEXT NOT NULL DEFAULT '',
			outcomes TEXT,
			actions TEXT NOT NULL DEFAULT '[]',
			started_at INTEGER NOT NULL,
			ended_at INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rounds_user_started ON rounds(user_id, started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS balances (
			user_id TEXT PRIMARY KEY,
			balance TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLite) CreateRound(ctx context.Context, userID, seed string, startedAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rounds (id, user_id, seed, started_at) VALUES (?, ?, ?, ?)`,
		id, userID, seed, startedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert round: %w", err)
	}
	return id, nil
}

func (s *SQLite) AppendAction(ctx context.Context, roundID string, action record.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET actions = json_insert(actions, '$[#]', json(?)) WHERE id = ?`,
		string(data), roundID)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return affected(res, roundID)
}

func (s *SQLite) UpdateRoundOutcomes(ctx context.Context, roundID string, round record.Round) error {
	outcomes, actions, err := encodeRound(round)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE rounds SET outcomes = ?, actions = ?, ended_at = ? WHERE id = ?`,
		string(outcomes), string(actions), round.EndedAt.UnixMilli(), roundID)
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	return affected(res, roundID)
}

func (s *SQLite) GetUserRounds(ctx context.Context, userID string, page, pageSize int) ([]record.Raw, error) {
	skip, limit := offset(page, pageSize)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, seed, outcomes, actions, started_at, ended_at
		  FROM rounds
		 WHERE user_id = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []record.Raw
	for rows.Next() {
		var (
			raw      record.Raw
			outcomes sql.NullString
			actions  sql.NullString
			started  int64
			ended    sql.NullInt64
		)
		if err := rows.Scan(&raw.ID, &raw.UserID, &raw.Seed, &outcomes, &actions, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		raw.StartedAt = time.UnixMilli(started).UTC()
		if ended.Valid {
			t := time.UnixMilli(ended.Int64).UTC()
			raw.EndedAt = &t
		}
		if outcomes.Valid {
			raw.Outcomes = json.RawMessage(outcomes.String)
		}
		if actions.Valid {
			raw.Actions = json.RawMessage(actions.String)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (s *SQLite) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM balances WHERE user_id = ?`, userID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("balance for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	return decimal.NewFromString(balance)
}

func (s *SQLite) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO balances (user_id, balance, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET balance = excluded.balance, updated_at = excluded.updated_at`,
		userID, balance.String(), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func affected(res sql.Result, roundID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	return nil
}
