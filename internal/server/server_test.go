package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/lox/blackjack/internal/store"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

type fixture struct {
	server *Server
	store  *store.Memory
	tables *Manager
}

func newFixture(t *testing.T, guests bool) *fixture {
	t.Helper()
	rules := game.DefaultRules()
	rules.DealerStep = 0
	rules.PromptDelay = 0

	clock := quartz.NewReal()
	s := store.NewMemory()
	seed := int64(42)
	tables := NewManager(ManagerConfig{
		Rules:    rules,
		Clock:    clock,
		Store:    s,
		Sessions: session.NewMemoryStore(rules.StartingBalance, clock),
		Seed:     &seed,
	}, testLogger())

	srv := New(Config{
		Rules:         rules,
		Clock:         clock,
		Authenticator: &auth.Authenticator{Validator: auth.NoopValidator{}, AllowGuests: guests},
		Tables:        tables,
	}, testLogger())
	return &fixture{server: srv, store: s, tables: tables}
}

// seat opens a guest table that deals the given decks in order.
func (f *fixture) seat(t *testing.T, decks ...[]string) string {
	t.Helper()
	id := auth.NewGuestID()
	opts := []game.Option{
		game.WithRules(f.server.cfg.Rules),
		game.WithClock(f.server.cfg.Clock),
		game.WithLogger(testLogger()),
	}
	for _, cards := range decks {
		opts = append(opts, game.WithDeck(deck.NewStackedDeck(deck.MustParseCards(cards...)...)))
	}
	f.tables.mu.Lock()
	f.tables.tables[id] = game.NewTable(id, opts...)
	f.tables.mu.Unlock()
	return id
}

// Player 18 against dealer 19, then a player blackjack on the second deal.
var (
	losingDeck  = []string{"Ts", "9h", "8s", "Kh"}
	naturalDeck = []string{"As", "9d", "Kh", "7c"}
)

func (f *fixture) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

type snapshotView struct {
	Phase    string          `json:"phase"`
	Bankroll decimal.Decimal `json:"bankroll"`
	Bet      decimal.Decimal `json:"bet"`
	Legal    []string        `json:"legal_actions"`
}

type responseView struct {
	Snapshot    snapshotView   `json:"snapshot"`
	DealerSteps []snapshotView `json:"dealer_steps"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestHealthAndRules(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/rules", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rules := decode[struct {
		MaxHands int               `json:"max_hands"`
		Chips    []decimal.Decimal `json:"chip_denominations"`
	}](t, rec)
	assert.Equal(t, 4, rules.MaxHands)
	assert.Len(t, rules.Chips, 3)
}

func TestGuestPlaysRound(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/table/bet", `{"amount":"50"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	guest := rec.Header().Get(auth.GuestHeader)
	require.True(t, strings.HasPrefix(guest, "guest-"), guest)

	resp := decode[responseView](t, rec)
	assert.Equal(t, "betting", resp.Snapshot.Phase)
	assert.True(t, resp.Snapshot.Bankroll.Equal(decimal.NewFromInt(950)))

	header := http.Header{auth.GuestHeader: []string{guest}}
	rec = f.do(t, http.MethodPost, "/api/table/deal", "", header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, guest, rec.Header().Get(auth.GuestHeader))
	resp = decode[responseView](t, rec)

	for i := 0; resp.Snapshot.Phase == "player_turn" && i < 10; i++ {
		rec = f.do(t, http.MethodPost, "/api/table/stand", "", header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp = decode[responseView](t, rec)
	}
	require.Equal(t, "complete", resp.Snapshot.Phase)
	require.NotEmpty(t, resp.DealerSteps)
	assert.Equal(t, "complete", resp.DealerSteps[len(resp.DealerSteps)-1].Phase)

	// Guests never reach the round store.
	rows, err := f.store.GetUserRounds(context.Background(), guest, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, 1, f.tables.Len())
}

func TestActionErrors(t *testing.T) {
	f := newFixture(t, true)
	header := http.Header{auth.GuestHeader: []string{auth.NewGuestID()}}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"zero bet", "/api/table/bet", `{"amount":0}`, http.StatusUnprocessableEntity, "invalid_amount"},
		{"bet over bankroll", "/api/table/bet", `{"amount":5000}`, http.StatusUnprocessableEntity, "insufficient_funds"},
		{"all in", "/api/table/bet", `{"amount":1000}`, http.StatusUnprocessableEntity, "all_in"},
		{"odd chip", "/api/table/chip", `{"amount":25}`, http.StatusUnprocessableEntity, "invalid_chip"},
		{"bet without amount", "/api/table/bet", `{}`, http.StatusBadRequest, "bad_request"},
		{"malformed body", "/api/table/bet", `{`, http.StatusBadRequest, "bad_request"},
		{"deal without bet", "/api/table/deal", "", http.StatusUnprocessableEntity, "no_bet"},
		{"hit while betting", "/api/table/hit", "", http.StatusUnprocessableEntity, "wrong_phase"},
		{"next without round", "/api/table/next", `{"accept":true}`, http.StatusUnprocessableEntity, "wrong_phase"},
		{"unknown action", "/api/table/surrender", "", http.StatusNotFound, "not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body, header)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			body := decode[errorBody](t, rec)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestAccountBalanceFromStore(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.store.SetBalance(ctx, "bob", decimal.NewFromInt(250)))

	rec := f.do(t, http.MethodGet, "/api/table/", "", bearer("bob"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[responseView](t, rec)
	assert.True(t, resp.Snapshot.Bankroll.Equal(decimal.NewFromInt(250)))
	assert.Empty(t, rec.Header().Get(auth.GuestHeader))

	// A user with no balance on record starts on the starting balance.
	rec = f.do(t, http.MethodGet, "/api/table/", "", bearer("carol"))
	require.Equal(t, http.StatusOK, rec.Code)
	balance, err := f.store.GetBalance(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(1000)))
}

func TestAuthentication(t *testing.T) {
	f := newFixture(t, false)

	rec := f.do(t, http.MethodGet, "/api/table/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode[errorBody](t, rec).Error.Code)

	// Public routes stay open.
	rec = f.do(t, http.MethodGet, "/api/rules", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatsForGuestsNotFound(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdvice(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/advice?hand=Ts,6h&up=Kd", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	advice := decode[struct {
		Action     string `json:"optimal_action"`
		Score      int    `json:"player_score"`
		Confidence int    `json:"confidence"`
	}](t, rec)
	assert.Equal(t, "HIT", advice.Action)
	assert.Equal(t, 16, advice.Score)
	assert.Equal(t, 85, advice.Confidence)

	rec = f.do(t, http.MethodGet, "/api/advice?hand=6s,5h&up=As&double=false", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"optimal_action":"HIT"`)

	for _, q := range []string{"hand=Ts&up=Kd", "hand=Ts,6h&up=Zz", "hand=Xx,6h&up=Kd"} {
		rec = f.do(t, http.MethodGet, "/api/advice?"+q, "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestTableAdviceNeedsRound(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/table/advice", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	require.NoError(t, f.store.SetBalance(ctx, "dave", decimal.NewFromInt(40)))

	rec := f.do(t, http.MethodPost, "/api/table/bet", `{"amount":10}`, bearer("dave"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/session/reset", "", bearer("dave"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[responseView](t, rec)
	assert.Equal(t, "betting", resp.Snapshot.Phase)
	assert.True(t, resp.Snapshot.Bankroll.Equal(decimal.NewFromInt(1000)))
	assert.True(t, resp.Snapshot.Bet.IsZero())
}

func TestStreamPlaysRound(t *testing.T) {
	f := newFixture(t, true)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/table/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.NotEmpty(t, resp.Header.Get(auth.GuestHeader))

	read := func() message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}

	m := read()
	require.Equal(t, MessageSnapshot, m.Type)
	assert.Equal(t, game.PhaseBetting, m.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(command{Action: "chip", Amount: ptr(decimal.NewFromInt(25))}))
	m = read()
	require.Equal(t, MessageError, m.Type)
	assert.Equal(t, "invalid_chip", m.Error.Code)

	require.NoError(t, conn.WriteJSON(command{Action: "chip", Amount: ptr(decimal.NewFromInt(50))}))
	m = read()
	require.Equal(t, MessageSnapshot, m.Type)
	assert.True(t, m.Snapshot.Bet.Equal(decimal.NewFromInt(50)))

	require.NoError(t, conn.WriteJSON(command{Action: "deal"}))
	steps := 0
	for {
		m = read()
		switch m.Type {
		case MessageSnapshot:
			require.Equal(t, game.PhasePlayerTurn, m.Snapshot.Phase)
			require.NoError(t, conn.WriteJSON(command{Action: "stand"}))
			continue
		case MessageDealerStep:
			steps++
			continue
		}
		break
	}
	require.Equal(t, MessagePrompt, m.Type)
	assert.Positive(t, steps)
	assert.Equal(t, game.PhaseComplete, m.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(command{Action: "next", Accept: false}))
	m = read()
	require.Equal(t, MessageSnapshot, m.Type)
	assert.Equal(t, game.PhaseBetting, m.Snapshot.Phase)
}

func TestNextRoundSettledOnDealRevealsDealer(t *testing.T) {
	f := newFixture(t, true)
	header := http.Header{auth.GuestHeader: []string{f.seat(t, losingDeck, naturalDeck)}}

	for _, step := range []struct{ path, body string }{
		{"/api/table/bet", `{"amount":100}`},
		{"/api/table/deal", ""},
	} {
		rec := f.do(t, http.MethodPost, step.path, step.body, header)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := f.do(t, http.MethodPost, "/api/table/stand", "", header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[responseView](t, rec)
	require.Equal(t, "complete", resp.Snapshot.Phase)
	assert.True(t, resp.Snapshot.Bankroll.Equal(decimal.NewFromInt(900)))

	rec = f.do(t, http.MethodPost, "/api/table/next", `{"accept":true}`, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode[responseView](t, rec)
	assert.Equal(t, "complete", resp.Snapshot.Phase)
	require.NotEmpty(t, resp.DealerSteps)
	assert.Equal(t, "complete", resp.DealerSteps[len(resp.DealerSteps)-1].Phase)
	// 900 - 100 stake + 250 blackjack credit.
	assert.True(t, resp.Snapshot.Bankroll.Equal(decimal.NewFromInt(1050)), resp.Snapshot.Bankroll.String())

	// Declining is not a settlement.
	rec = f.do(t, http.MethodPost, "/api/table/next", `{"accept":false}`, header)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[responseView](t, rec).DealerSteps)
}

func TestStreamPromptsAfterNaturalOnNextRound(t *testing.T) {
	f := newFixture(t, true)
	guest := f.seat(t, losingDeck, naturalDeck)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/table/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{auth.GuestHeader: []string{guest}})
	require.NoError(t, err)
	defer conn.Close()

	read := func() message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var m message
		require.NoError(t, conn.ReadJSON(&m))
		return m
	}
	// untilPrompt drains dealer steps and returns how many arrived.
	untilPrompt := func() int {
		t.Helper()
		steps := 0
		for {
			m := read()
			if m.Type == MessagePrompt {
				assert.Equal(t, game.PhaseComplete, m.Snapshot.Phase)
				return steps
			}
			require.Equal(t, MessageDealerStep, m.Type)
			steps++
		}
	}

	require.Equal(t, MessageSnapshot, read().Type)
	require.NoError(t, conn.WriteJSON(command{Action: "bet", Amount: ptr(decimal.NewFromInt(100))}))
	require.Equal(t, MessageSnapshot, read().Type)
	require.NoError(t, conn.WriteJSON(command{Action: "deal"}))
	m := read()
	require.Equal(t, MessageSnapshot, m.Type)
	require.Equal(t, game.PhasePlayerTurn, m.Snapshot.Phase)

	require.NoError(t, conn.WriteJSON(command{Action: "stand"}))
	assert.Positive(t, untilPrompt())

	require.NoError(t, conn.WriteJSON(command{Action: "next", Accept: true}))
	assert.Positive(t, untilPrompt())
}

func ptr[T any](v T) *T { return &v }
