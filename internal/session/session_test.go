package session

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
)

func stores(t *testing.T) map[string]Store {
	clock := quartz.NewMock(t)
	start := decimal.NewFromInt(1000)
	return map[string]Store{
		"file":   NewFileStore(t.TempDir(), start, clock),
		"memory": NewMemoryStore(start, clock),
	}
}

func TestSaveLoad(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := s.Load(ctx, "guest-1")
			assert.ErrorIs(t, err, ErrNotFound)

			state := game.State{
				UserID:       "guest-1",
				Bankroll:     decimal.RequireFromString("1037.5"),
				LastBet:      decimal.NewFromInt(25),
				RoundsPlayed: 3,
				SavedAt:      time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			}
			require.NoError(t, s.Save(ctx, state))

			got, err := s.Load(ctx, "guest-1")
			require.NoError(t, err)
			assert.True(t, state.Bankroll.Equal(got.Bankroll))
			assert.True(t, state.LastBet.Equal(got.LastBet))
			assert.Equal(t, 3, got.RoundsPlayed)
			assert.True(t, state.SavedAt.Equal(got.SavedAt))
		})
	}
}

func TestClearRestoresStartingBankroll(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Save(ctx, game.State{UserID: "guest-2", Bankroll: decimal.NewFromInt(40), RoundsPlayed: 90}))

			cleared, err := s.Clear(ctx, "guest-2")
			require.NoError(t, err)
			assert.True(t, cleared.Bankroll.Equal(decimal.NewFromInt(1000)))
			assert.Zero(t, cleared.RoundsPlayed)

			got, err := s.Load(ctx, "guest-2")
			require.NoError(t, err)
			assert.True(t, got.Bankroll.Equal(decimal.NewFromInt(1000)))
		})
	}
}

func TestSaveRequiresUser(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, s.Save(context.Background(), game.State{}))
		})
	}
}

func TestFileStoreRejectsForeignFile(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(t.TempDir(), decimal.NewFromInt(1000), nil)
	require.NoError(t, s.Save(ctx, game.State{UserID: "a"}))
	require.NoError(t, os.Rename(s.path("a"), s.path("b")))

	_, err := s.Load(ctx, "b")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestTableStateRoundTrip(t *testing.T) {
	ctx := context.Background()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	clock := quartz.NewMock(t)
	s := NewFileStore(t.TempDir(), decimal.NewFromInt(1000), clock)

	// Player 20 beats dealer 18.
	table := game.NewTable("guest-3",
		game.WithClock(clock),
		game.WithLogger(logger),
		game.WithDeck(deck.NewStackedDeck(deck.MustParseCards("Ks", "9h", "Qd", "9c")...)),
	)
	require.NoError(t, table.PlaceBet(decimal.NewFromInt(50)))
	require.NoError(t, table.Deal(ctx))
	require.NoError(t, table.Stand(ctx))
	require.NoError(t, table.NextRound(ctx, false))
	require.NoError(t, s.Save(ctx, table.State()))

	loaded, err := s.Load(ctx, "guest-3")
	require.NoError(t, err)
	restored := game.NewTable("guest-3", game.WithClock(clock), game.WithLogger(logger))
	require.NoError(t, restored.Restore(loaded))
	assert.True(t, restored.Bankroll().Equal(decimal.NewFromInt(1050)))
	assert.Equal(t, 1, restored.State().RoundsPlayed)
}
