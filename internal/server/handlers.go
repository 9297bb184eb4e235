package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/strategy"
)

// command is a table operation, posted to /api/table/{action} or sent as a
// websocket message.
type command struct {
	Action string           `json:"action"`
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Accept bool             `json:"accept,omitempty"`
}

// actionResponse carries the table after an operation. DealerSteps is set
// when the operation finished the round.
type actionResponse struct {
	Snapshot    game.Snapshot   `json:"snapshot"`
	DealerSteps []game.Snapshot `json:"dealer_steps,omitempty"`
}

type rulesResponse struct {
	StartingBalance   decimal.Decimal   `json:"starting_balance"`
	MaxHands          int               `json:"max_hands"`
	AllowAllIn        bool              `json:"allow_all_in"`
	ChipDenominations []decimal.Decimal `json:"chip_denominations"`
	DealerStepMs      int64             `json:"dealer_step_ms"`
	PromptDelayMs     int64             `json:"prompt_delay_ms"`
}

// apply runs cmd against t.
func apply(ctx context.Context, t *game.Table, cmd command) error {
	switch cmd.Action {
	case "bet", "chip":
		if cmd.Amount == nil {
			return fmt.Errorf("%w: %s needs an amount", errBadRequest, cmd.Action)
		}
		if cmd.Action == "chip" {
			return t.PlaceChip(*cmd.Amount)
		}
		return t.PlaceBet(*cmd.Amount)
	case "clear":
		return t.ClearBet()
	case "deal":
		return t.Deal(ctx)
	case "hit":
		return t.Hit(ctx)
	case "stand":
		return t.Stand(ctx)
	case "double":
		return t.Double(ctx)
	case "split":
		return t.Split(ctx)
	case "reset":
		t.ResetRound()
		return nil
	case "next":
		return t.NextRound(ctx, cmd.Accept)
	}
	return fmt.Errorf("%w %q", errUnknownAction, cmd.Action)
}

// run applies cmd and reports whether it settled a round. Accepting the
// new-round prompt can settle on the deal, so the phase alone cannot tell.
func run(ctx context.Context, t *game.Table, cmd command) (bool, error) {
	before := t.Settlements()
	if err := apply(ctx, t, cmd); err != nil {
		return false, err
	}
	return t.Settlements() != before, nil
}

func (s *Server) table(r *http.Request) (auth.Identity, *game.Table, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return id, nil, auth.ErrUnauthenticated
	}
	t, err := s.cfg.Tables.Table(r.Context(), id)
	return id, t, err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"tables": s.cfg.Tables.Len(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rules := s.cfg.Rules
	writeJSON(w, http.StatusOK, rulesResponse{
		StartingBalance:   rules.StartingBalance,
		MaxHands:          rules.MaxHands,
		AllowAllIn:        rules.AllowAllIn,
		ChipDenominations: rules.ChipDenominations,
		DealerStepMs:      rules.DealerStep.Milliseconds(),
		PromptDelayMs:     rules.PromptDelay.Milliseconds(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	_, t, err := s.table(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Snapshot: t.Snapshot()})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, t, err := s.table(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var cmd command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	cmd.Action = chi.URLParam(r, "action")

	completed, err := run(r.Context(), t, cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.cfg.Tables.Save(r.Context(), id, t)

	resp := actionResponse{Snapshot: t.Snapshot()}
	if completed {
		for step := range t.DealerSteps() {
			resp.DealerSteps = append(resp.DealerSteps, step)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTableAdvice(w http.ResponseWriter, r *http.Request) {
	_, t, err := s.table(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	advice, err := t.Advice()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, advice)
}

// handleAdvice answers /api/advice?hand=As,7h&up=9d without a table.
func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hand, err := deck.ParseCards(q.Get("hand"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(hand) < 2 {
		s.writeError(w, r, fmt.Errorf("%w: hand needs at least two cards", errBadRequest))
		return
	}
	up, err := deck.ParseCard(q.Get("up"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	canDouble := strategy.CanDouble(hand)
	if v := q.Get("double"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: double: %v", errBadRequest, err))
			return
		}
		canDouble = canDouble && allowed
	}
	writeJSON(w, http.StatusOK, strategy.OptimalAction(hand, up, canDouble))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	if id.Guest || s.cfg.Statistics == nil {
		s.writeError(w, r, fmt.Errorf("%w: statistics are kept for signed-in players only", errNotFound))
		return
	}
	report, err := s.cfg.Statistics.UserStatistics(r.Context(), id.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		s.writeError(w, r, auth.ErrUnauthenticated)
		return
	}
	t, err := s.cfg.Tables.ResetProgress(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Snapshot: t.Snapshot()})
}
