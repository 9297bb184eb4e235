// Package history exports a user's stored rounds as a TOML document.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack/internal/fileutil"
	"github.com/lox/blackjack/internal/record"
	"github.com/lox/blackjack/internal/statistics"
)

const pageSize = 100

// Encode writes the export to w in TOML.
func Encode(w io.Writer, export *Export) error {
	if export == nil {
		return fmt.Errorf("history: export is nil")
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "\t"
	return enc.Encode(export)
}

// FormatAction renders one logged decision, e.g. "h1 HIT Ts 6h (16) vs 9d".
func FormatAction(a record.Action) string {
	return fmt.Sprintf("h%d %s %s (%d) vs %s", a.HandIndex+1, a.Type,
		strings.Join(cardCodes(a.PlayerHandBefore), " "), a.PlayerScoreBefore, CardCode(a.DealerUpCard))
}

// FromRecord converts a decoded round.
func FromRecord(r record.Round) Round {
	out := Round{
		ID:       r.ID,
		Version:  r.Version,
		Seed:     r.Seed,
		Started:  r.StartedAt.UTC(),
		Finished: r.FinishedAt().UTC(),
		Dealer:   cardCodes(r.Dealer),
		Wagered:  r.Wagered().String(),
		Net:      r.Net().String(),
		Actions:  []string{},
	}
	for _, a := range r.Actions {
		out.Actions = append(out.Actions, FormatAction(a))
	}
	for _, h := range r.Hands {
		out.Hands = append(out.Hands, Hand{
			Cards:     cardCodes(h.Cards),
			Bet:       h.Bet.String(),
			Result:    h.Result.String(),
			Payout:    h.Payout.String(),
			Doubled:   h.Doubled,
			FromSplit: h.FromSplit,
			Blackjack: h.Blackjack,
		})
	}
	return out
}

// Exporter collects a user's rounds from a store.
type Exporter struct {
	source    statistics.RoundSource
	validator *record.Validator
	clock     quartz.Clock
	logger    *log.Logger
}

// NewExporter returns an exporter reading from source.
func NewExporter(source statistics.RoundSource, validator *record.Validator, clock quartz.Clock, logger *log.Logger) *Exporter {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Exporter{source: source, validator: validator, clock: clock, logger: logger.WithPrefix("history")}
}

// Collect pages through every settled round of userID, newest first.
// Rounds still in play are left out; malformed ones are listed in Skipped.
func (e *Exporter) Collect(ctx context.Context, userID string) (*Export, error) {
	export := &Export{User: userID, Exported: e.clock.Now().UTC(), Rounds: []Round{}}
	for page := 1; ; page++ {
		raws, err := e.source.GetUserRounds(ctx, userID, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("load rounds page %d: %w", page, err)
		}
		for _, raw := range raws {
			round, err := e.validator.Decode(raw)
			switch {
			case errors.Is(err, record.ErrIncomplete):
				continue
			case err != nil:
				e.logger.Warn("skipping malformed round", "round", raw.ID, "err", err)
				export.Skipped = append(export.Skipped, raw.ID)
				continue
			}
			export.Rounds = append(export.Rounds, FromRecord(round))
		}
		if len(raws) < pageSize {
			return export, nil
		}
	}
}

// WriteFile collects userID's rounds and writes them atomically to
// filename, or to stdout when filename is "-".
func (e *Exporter) WriteFile(ctx context.Context, userID, filename string) (*Export, error) {
	export, err := e.Collect(ctx, userID)
	if err != nil {
		return nil, err
	}
	if filename == "-" {
		return export, Encode(os.Stdout, export)
	}
	err = fileutil.WriteAtomic(filename, 0o644, func(w io.Writer) error {
		return Encode(w, export)
	})
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", filename, err)
	}
	e.logger.Info("history exported", "user", userID, "rounds", len(export.Rounds), "file", filename)
	return export, nil
}
