package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack/internal/auth"
	"github.com/lox/blackjack/internal/game"
)

var (
	errUnknownAction = errors.New("unknown action")
	errNotFound      = errors.New("not found")
	errBadRequest    = errors.New("bad request")
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var actionCodes = []struct {
	err  error
	code string
}{
	{game.ErrWrongPhase, "wrong_phase"},
	{game.ErrInvalidAmount, "invalid_amount"},
	{game.ErrInvalidChip, "invalid_chip"},
	{game.ErrInsufficientFunds, "insufficient_funds"},
	{game.ErrAllIn, "all_in"},
	{game.ErrNoBet, "no_bet"},
	{game.ErrHandFinished, "hand_finished"},
	{game.ErrCannotDouble, "cannot_double"},
	{game.ErrCannotSplit, "cannot_split"},
	{game.ErrTooManyHands, "too_many_hands"},
	{game.ErrNoPreviousBet, "no_previous_bet"},
	{game.ErrRestoreInProgress, "round_in_progress"},
}

// classify maps an error to its HTTP status and envelope.
func classify(err error) (int, errorDetail) {
	var ae *game.ActionError
	switch {
	case errors.As(err, &ae):
		code := "invalid_action"
		for _, c := range actionCodes {
			if errors.Is(err, c.err) {
				code = c.code
				break
			}
		}
		return http.StatusUnprocessableEntity, errorDetail{Code: code, Message: ae.Error()}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorDetail{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, errUnknownAction), errors.Is(err, errNotFound):
		return http.StatusNotFound, errorDetail{Code: "not_found", Message: err.Error()}
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorDetail{Code: "unauthenticated", Message: "sign in or play as a guest"}
	default:
		return http.StatusInternalServerError, errorDetail{Code: "internal", Message: "internal server error"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug("write response failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := classify(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}
