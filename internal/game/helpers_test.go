package game

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func amount(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

// stacked builds a deck dealt in the order given: player, dealer up,
// player, dealer hole, then any further draws.
func stacked(cards ...string) *deck.Deck {
	return deck.NewStackedDeck(deck.MustParseCards(cards...)...)
}

func newTestTable(t *testing.T, opts ...Option) (*Table, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	base := []Option{WithClock(clock), WithLogger(testLogger())}
	return NewTable("user-1", append(base, opts...)...), clock
}

// dealWith places bet and deals from a stacked deck.
func dealWith(t *testing.T, bet int64, cards ...string) *Table {
	t.Helper()
	table, _ := newTestTable(t, WithDeck(stacked(cards...)))
	require.NoError(t, table.PlaceBet(amount(bet)))
	require.NoError(t, table.Deal(context.Background()))
	return table
}

type recorderEvent struct {
	kind    string
	roundID string
	action  Action
	round   Round
	balance decimal.Decimal
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recorderEvent
}

func (f *fakeRecorder) add(e recorderEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeRecorder) RoundStarted(r Round) {
	f.add(recorderEvent{kind: "started", roundID: r.ID, round: r})
}

func (f *fakeRecorder) ActionTaken(id string, a Action) {
	f.add(recorderEvent{kind: "action", roundID: id, action: a})
}

func (f *fakeRecorder) RoundSettled(r Round) {
	f.add(recorderEvent{kind: "settled", roundID: r.ID, round: r})
}

func (f *fakeRecorder) BalanceChanged(_ string, b decimal.Decimal) {
	f.add(recorderEvent{kind: "balance", balance: b})
}

func (f *fakeRecorder) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.events {
		out = append(out, e.kind)
	}
	return out
}
