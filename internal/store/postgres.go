package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/record"
)

//go:embed schema.sql
var schema embed.FS

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct{ *pgxpool.Pool }

// NewPostgres connects to dsn.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{p}, nil
}

// Migrate applies the embedded schema.
func (db *Postgres) Migrate(ctx context.Context) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

func (db *Postgres) CreateRound(ctx context.Context, userID, seed string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.Exec(ctx,
		`INSERT INTO rounds (id, user_id, seed, started_at) VALUES ($1::uuid, $2, $3, $4)`,
		id, userID, seed, startedAt)
	if err != nil {
		return "", fmt.Errorf("insert round: %w", err)
	}
	return id, nil
}

func (db *Postgres) AppendAction(ctx context.Context, roundID string, action record.Action) error {
	if uuid.Validate(roundID) != nil {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	tag, err := db.Exec(ctx,
		`UPDATE rounds SET actions = actions || jsonb_build_array($2::jsonb) WHERE id = $1::uuid`,
		roundID, string(data))
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	return touched(tag, roundID)
}

func (db *Postgres) UpdateRoundOutcomes(ctx context.Context, roundID string, round record.Round) error {
	if uuid.Validate(roundID) != nil {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	outcomes, actions, err := encodeRound(round)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE rounds
		   SET outcomes = $2::jsonb, actions = $3::jsonb, ended_at = $4
		 WHERE id = $1::uuid`,
		roundID, string(outcomes), string(actions), round.EndedAt)
	if err != nil {
		return fmt.Errorf("update round: %w", err)
	}
	return touched(tag, roundID)
}

func (db *Postgres) GetUserRounds(ctx context.Context, userID string, page, pageSize int) ([]record.Raw, error) {
	skip, limit := offset(page, pageSize)
	rows, err := db.Query(ctx, `
		SELECT id::text, user_id, seed, outcomes::text, actions::text, started_at, ended_at
		  FROM rounds
		 WHERE user_id = $1
		 ORDER BY started_at DESC, id DESC
		 LIMIT $2 OFFSET $3`, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query rounds: %w", err)
	}
	defer rows.Close()

	var out []record.Raw
	for rows.Next() {
		var (
			raw      record.Raw
			outcomes *string
			actions  *string
		)
		if err := rows.Scan(&raw.ID, &raw.UserID, &raw.Seed, &outcomes, &actions, &raw.StartedAt, &raw.EndedAt); err != nil {
			return nil, fmt.Errorf("scan round: %w", err)
		}
		if outcomes != nil {
			raw.Outcomes = json.RawMessage(*outcomes)
		}
		if actions != nil {
			raw.Actions = json.RawMessage(*actions)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func (db *Postgres) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balance string
	err := db.QueryRow(ctx, `SELECT balance::text FROM balances WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("balance for %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("query balance: %w", err)
	}
	return decimal.NewFromString(balance)
}

func (db *Postgres) SetBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	_, err := db.Exec(ctx, `
		INSERT INTO balances (user_id, balance) VALUES ($1, $2::numeric)
		ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = now()`,
		userID, balance.String())
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

func (db *Postgres) Close() error {
	db.Pool.Close()
	return nil
}

func touched(tag pgconn.CommandTag, roundID string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("round %s: %w", roundID, ErrNotFound)
	}
	return nil
}
