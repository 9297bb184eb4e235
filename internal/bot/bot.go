// Package bot provides automated players for simulations. A Policy picks
// one of the legal actions for the hand in play from a table snapshot.
package bot

import (
	"fmt"
	rand "math/rand/v2"
	"slices"
	"sort"

	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/strategy"
)

// Policy decides how to play the current hand. Decide is only called with
// snapshots taken during the player's turn, so Legal is never empty.
type Policy interface {
	Name() string
	Decide(s game.Snapshot) strategy.Action
}

// Basic plays the basic-strategy chart.
type Basic struct{}

func (Basic) Name() string { return "basic" }

func (Basic) Decide(s game.Snapshot) strategy.Action {
	h := s.Hands[s.Current]
	advice := strategy.OptimalAction(h.Cards, s.Dealer[0], slices.Contains(s.Legal, strategy.Double))
	if slices.Contains(s.Legal, advice.Action) {
		return advice.Action
	}
	// Split refused, usually for funds or the hand cap: play the pair as a
	// plain total.
	return byTotal(h.Score, h.Soft, s.Dealer[0].Value())
}

// byTotal is the chart without pairs or doubling.
func byTotal(total int, soft bool, dealer int) strategy.Action {
	switch {
	case soft && total >= 19, !soft && total >= 17:
		return strategy.Stand
	case soft && total == 18 && dealer <= 8:
		return strategy.Stand
	case !soft && total >= 13 && dealer <= 6:
		return strategy.Stand
	case !soft && total == 12 && dealer >= 4 && dealer <= 6:
		return strategy.Stand
	}
	return strategy.Hit
}

// Stand never draws.
type Stand struct{}

func (Stand) Name() string                          { return "stand" }
func (Stand) Decide(game.Snapshot) strategy.Action { return strategy.Stand }

// Dealer mirrors the house: hit below 17, stand on any 17.
type Dealer struct{}

func (Dealer) Name() string { return "dealer" }

func (Dealer) Decide(s game.Snapshot) strategy.Action {
	if s.Hands[s.Current].Score < 17 {
		return strategy.Hit
	}
	return strategy.Stand
}

// Random picks uniformly among the legal actions.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a random policy drawing from rng.
func NewRandom(rng *rand.Rand) *Random {
	return &Random{rng: rng}
}

func (*Random) Name() string { return "random" }

func (r *Random) Decide(s game.Snapshot) strategy.Action {
	return s.Legal[r.rng.IntN(len(s.Legal))]
}

var factories = map[string]func(rng *rand.Rand) Policy{
	"basic":  func(*rand.Rand) Policy { return Basic{} },
	"stand":  func(*rand.Rand) Policy { return Stand{} },
	"dealer": func(*rand.Rand) Policy { return Dealer{} },
	"random": func(rng *rand.Rand) Policy { return NewRandom(rng) },
}

// Names lists the registered policies.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns the named policy. rng is only consumed by policies that need
// randomness.
func New(name string, rng *rand.Rand) (Policy, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("bot: unknown policy %q (want one of %v)", name, Names())
	}
	return f(rng), nil
}
