package game

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Rules are the house rules a table plays under.
type Rules struct {
	// StartingBalance is the bankroll given to a user with none on record.
	StartingBalance decimal.Decimal
	// MaxHands caps the number of player hands after splitting.
	MaxHands int
	// AllowAllIn permits a bet that stakes the entire bankroll.
	AllowAllIn bool
	// ChipDenominations are the amounts PlaceChip accepts.
	ChipDenominations []decimal.Decimal
	// DealerStep paces dealer draws for presentation layers.
	DealerStep time.Duration
	// PromptDelay is how long after settlement a new-round prompt is offered.
	PromptDelay time.Duration
}

// DefaultRules returns the standard table: 1000 starting balance, up to four
// hands, chips of 10, 50 and 100, no all-in bets.
func DefaultRules() Rules {
	return Rules{
		StartingBalance: decimal.NewFromInt(1000),
		MaxHands:        4,
		ChipDenominations: []decimal.Decimal{
			decimal.NewFromInt(10),
			decimal.NewFromInt(50),
			decimal.NewFromInt(100),
		},
		DealerStep:  500 * time.Millisecond,
		PromptDelay: 2 * time.Second,
	}
}

// Validate checks the rules are playable.
func (r Rules) Validate() error {
	var errs []error
	if r.StartingBalance.IsNegative() {
		errs = append(errs, errors.New("starting balance must not be negative"))
	}
	if r.MaxHands < 1 || r.MaxHands > 4 {
		errs = append(errs, fmt.Errorf("max hands must be between 1 and 4, got %d", r.MaxHands))
	}
	for _, chip := range r.ChipDenominations {
		if !chip.IsPositive() {
			errs = append(errs, fmt.Errorf("chip denomination %s must be positive", chip))
		}
	}
	if r.DealerStep < 0 || r.PromptDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	return errors.Join(errs...)
}

func (r Rules) isChip(amount decimal.Decimal) bool {
	return slices.ContainsFunc(r.ChipDenominations, amount.Equal)
}
