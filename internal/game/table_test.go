package game

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack/internal/deck"
)

func requireActionError(t *testing.T, err error, target error) {
	t.Helper()
	require.Error(t, err)
	var ae *ActionError
	require.True(t, errors.As(err, &ae), "expected *ActionError, got %T", err)
	assert.ErrorIs(t, err, target)
	assert.NotEmpty(t, ae.Reason)
}

func TestPlaceBet(t *testing.T) {
	t.Parallel()

	t.Run("conserves the bankroll", func(t *testing.T) {
		table, _ := newTestTable(t)
		require.NoError(t, table.PlaceBet(amount(100)))
		require.NoError(t, table.PlaceBet(amount(50)))
		s := table.Snapshot()
		assert.True(t, amount(850).Equal(s.Bankroll))
		assert.True(t, amount(150).Equal(s.Bet))

		require.NoError(t, table.ClearBet())
		s = table.Snapshot()
		assert.True(t, amount(1000).Equal(s.Bankroll))
		assert.True(t, s.Bet.IsZero())
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		table, _ := newTestTable(t)
		requireActionError(t, table.PlaceBet(decimal.Zero), ErrInvalidAmount)
		requireActionError(t, table.PlaceBet(amount(-10)), ErrInvalidAmount)
	})

	t.Run("rejects more than the bankroll", func(t *testing.T) {
		table, _ := newTestTable(t)
		requireActionError(t, table.PlaceBet(amount(1001)), ErrInsufficientFunds)
		assert.True(t, amount(1000).Equal(table.Bankroll()))
	})

	t.Run("rejects staking the whole bankroll", func(t *testing.T) {
		table, _ := newTestTable(t)
		requireActionError(t, table.PlaceBet(amount(1000)), ErrAllIn)

		require.NoError(t, table.PlaceBet(amount(500)))
		requireActionError(t, table.PlaceBet(amount(500)), ErrAllIn)
		require.NoError(t, table.PlaceBet(amount(499)))
		assert.True(t, amount(1).Equal(table.Bankroll()))
	})

	t.Run("all-in allowed by rule", func(t *testing.T) {
		rules := DefaultRules()
		rules.AllowAllIn = true
		table, _ := newTestTable(t, WithRules(rules))
		require.NoError(t, table.PlaceBet(amount(1000)))
		assert.True(t, table.Bankroll().IsZero())
	})

	t.Run("only while betting", func(t *testing.T) {
		table := dealWith(t, 50, "Ts", "9c", "7h", "Td")
		before := table.Snapshot()
		requireActionError(t, table.PlaceBet(amount(10)), ErrWrongPhase)
		requireActionError(t, table.ClearBet(), ErrWrongPhase)
		assert.Equal(t, before, table.Snapshot())
	})
}

func TestPlaceChip(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)
	requireActionError(t, table.PlaceChip(amount(25)), ErrInvalidChip)
	require.NoError(t, table.PlaceChip(amount(50)))
	require.NoError(t, table.PlaceChip(amount(10)))
	assert.True(t, amount(60).Equal(table.Snapshot().Bet))
}

func TestDeal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("requires a bet", func(t *testing.T) {
		table, _ := newTestTable(t)
		requireActionError(t, table.Deal(ctx), ErrNoBet)
		assert.Equal(t, PhaseBetting, table.Phase())
	})

	t.Run("deals player, dealer, player, dealer", func(t *testing.T) {
		table, clock := newTestTable(t, WithDeck(stacked("Ts", "9c", "7h", "4d")))
		require.NoError(t, table.PlaceBet(amount(50)))
		require.NoError(t, table.Deal(ctx))

		s := table.Snapshot()
		assert.Equal(t, PhasePlayerTurn, s.Phase)
		assert.Equal(t, deck.MustParseCards("Ts", "7h"), s.Hands[0].Cards)
		assert.Equal(t, 17, s.Hands[0].Score)
		assert.True(t, s.DealerHidden)
		assert.Equal(t, deck.MustParseCards("9c"), s.Dealer)
		assert.Equal(t, 9, s.DealerScore)
		assert.True(t, s.Bet.IsZero())
		assert.True(t, amount(950).Equal(s.Bankroll))
		assert.Equal(t, []ActionKind{ActionHit, ActionStand, ActionDouble}, s.Legal)

		round, ok := table.LastRound()
		require.True(t, ok)
		assert.Equal(t, clock.Now(), round.StartedAt)
		assert.NotEmpty(t, round.Seed)
		assert.Equal(t, deck.MustParseCards("9c", "4d"), round.Dealer)
	})

	t.Run("dealer natural settles before play", func(t *testing.T) {
		table := dealWith(t, 100, "Ts", "As", "9h", "Kd")
		s := table.Snapshot()
		require.Equal(t, PhaseComplete, s.Phase)
		assert.False(t, s.DealerHidden)
		assert.Equal(t, ResultLose, s.Hands[0].Result)
		assert.True(t, amount(900).Equal(s.Bankroll))
		requireActionError(t, table.Hit(ctx), ErrWrongPhase)

		round, _ := table.LastRound()
		assert.Empty(t, round.Actions)
	})

	t.Run("dealer natural under a ten", func(t *testing.T) {
		table := dealWith(t, 100, "Ts", "Kc", "9h", "As")
		assert.Equal(t, PhaseComplete, table.Phase())
		assert.Equal(t, ResultLose, table.Snapshot().Hands[0].Result)
	})

	t.Run("both naturals push", func(t *testing.T) {
		table := dealWith(t, 100, "As", "Ac", "Kh", "Kd")
		s := table.Snapshot()
		assert.Equal(t, ResultPush, s.Hands[0].Result)
		assert.True(t, amount(1000).Equal(s.Bankroll))
	})

	t.Run("ace in the hole without an ace or ten up is not checked", func(t *testing.T) {
		table := dealWith(t, 100, "Ts", "9c", "7h", "As")
		assert.Equal(t, PhasePlayerTurn, table.Phase())
	})
}

func TestHitAndStand(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("bust finishes and loses", func(t *testing.T) {
		table := dealWith(t, 50, "Ts", "9c", "6h", "8d", "Kd")
		require.NoError(t, table.Hit(ctx))
		s := table.Snapshot()
		assert.Equal(t, PhaseComplete, s.Phase)
		assert.Equal(t, ResultLose, s.Hands[0].Result)
		assert.Equal(t, 26, s.Hands[0].Score)
		// The dealer still completes the hand: 17 stands.
		assert.Equal(t, 17, s.DealerScore)
		assert.True(t, amount(950).Equal(s.Bankroll))
	})

	t.Run("actions are audited", func(t *testing.T) {
		rec := &fakeRecorder{}
		table, clock := newTestTable(t, WithRecorder(rec), WithDeck(stacked("5s", "9c", "6h", "5d", "3d", "Tc")))
		require.NoError(t, table.PlaceBet(amount(50)))
		require.NoError(t, table.Deal(ctx))
		require.NoError(t, table.Hit(ctx))
		require.NoError(t, table.Stand(ctx))

		round, _ := table.LastRound()
		require.Len(t, round.Actions, 2)
		hit, stand := round.Actions[0], round.Actions[1]
		assert.Equal(t, ActionHit, hit.Kind)
		assert.Equal(t, deck.MustParseCards("5s", "6h"), hit.HandBefore)
		assert.Equal(t, 11, hit.ScoreBefore)
		assert.Equal(t, deck.MustParseCards("9c")[0], hit.DealerUp)
		assert.Equal(t, clock.Now(), hit.Timestamp)
		assert.NotEmpty(t, hit.ID)
		assert.Equal(t, ActionStand, stand.Kind)
		assert.Equal(t, 14, stand.ScoreBefore)

		// The dealer draws a ten to 14 and busts.
		assert.Equal(t, ResultWin, table.Snapshot().Hands[0].Result)
		assert.Equal(t, []string{"started", "action", "action", "settled", "balance"}, rec.kinds())
	})

	t.Run("no auto stand on 21", func(t *testing.T) {
		table := dealWith(t, 50, "5s", "9c", "6h", "8d", "Td")
		require.NoError(t, table.Hit(ctx))
		s := table.Snapshot()
		assert.Equal(t, PhasePlayerTurn, s.Phase)
		assert.Equal(t, 21, s.Hands[0].Score)
	})
}

func TestDouble(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("needs two cards", func(t *testing.T) {
		table := dealWith(t, 50, "2s", "9c", "3h", "8d", "4d")
		require.NoError(t, table.Hit(ctx))
		before := table.Snapshot()
		requireActionError(t, table.Double(ctx), ErrCannotDouble)
		assert.Equal(t, before, table.Snapshot())
	})

	t.Run("needs funds to match the bet", func(t *testing.T) {
		table, _ := newTestTable(t, WithBankroll(amount(100)), WithDeck(stacked("6s", "9c", "5h", "8d")))
		require.NoError(t, table.PlaceBet(amount(60)))
		require.NoError(t, table.Deal(ctx))
		before := table.Snapshot()
		assert.NotContains(t, before.Legal, ActionDouble)
		requireActionError(t, table.Double(ctx), ErrInsufficientFunds)
		assert.Equal(t, before, table.Snapshot())
	})

	t.Run("bust on the double card", func(t *testing.T) {
		table := dealWith(t, 50, "Ts", "9c", "3h", "8d", "Kd")
		require.NoError(t, table.Double(ctx))
		s := table.Snapshot()
		assert.Equal(t, PhaseComplete, s.Phase)
		assert.Equal(t, ResultLose, s.Hands[0].Result)
		assert.True(t, amount(900).Equal(s.Bankroll))
	})
}

func TestSplit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("hands settle independently", func(t *testing.T) {
		// 8s against a dealer 17: the first hand draws 5 then busts on K,
		// the second draws a ten and stands on 18.
		table := dealWith(t, 25, "8s", "7c", "8h", "Td", "5d", "Ts", "Kd")
		preSplit := table.Bankroll()

		require.NoError(t, table.Split(ctx))
		s := table.Snapshot()
		require.Len(t, s.Hands, 2)
		assert.True(t, amount(950).Equal(s.Bankroll))
		assert.Equal(t, deck.MustParseCards("8s", "5d"), s.Hands[0].Cards)
		assert.Equal(t, deck.MustParseCards("8h", "Ts"), s.Hands[1].Cards)
		assert.True(t, s.Hands[0].FromSplit)
		assert.True(t, s.Hands[1].FromSplit)
		assert.Equal(t, 0, s.Current)

		require.NoError(t, table.Hit(ctx))
		s = table.Snapshot()
		assert.Equal(t, ResultLose, s.Hands[0].Result)
		assert.Equal(t, 1, s.Current)

		require.NoError(t, table.Stand(ctx))
		s = table.Snapshot()
		require.Equal(t, PhaseComplete, s.Phase)
		assert.Equal(t, ResultWin, s.Hands[1].Result)
		assert.True(t, amount(25).Equal(s.Hands[1].Payout))
		assert.True(t, preSplit.Add(amount(25)).Equal(s.Bankroll), "bankroll %s", s.Bankroll)
	})

	t.Run("split aces take one card each", func(t *testing.T) {
		table := dealWith(t, 25, "As", "7c", "Ah", "Td", "9d", "Kh")
		require.NoError(t, table.Split(ctx))
		s := table.Snapshot()
		require.Equal(t, PhaseComplete, s.Phase)
		require.Len(t, s.Hands, 2)
		assert.Len(t, s.Hands[0].Cards, 2)
		assert.Len(t, s.Hands[1].Cards, 2)
		assert.Equal(t, ResultWin, s.Hands[0].Result)
		// A-K after a split is 21 but pays even money.
		assert.Equal(t, ResultWin, s.Hands[1].Result)
		assert.True(t, amount(25).Equal(s.Hands[1].Payout))
	})

	t.Run("at most four hands", func(t *testing.T) {
		table := dealWith(t, 10, "Ks", "7c", "Kh", "Td", "Qd", "2c", "Jc", "3c", "Th", "4c")
		require.NoError(t, table.Split(ctx))
		require.NoError(t, table.Split(ctx))
		require.NoError(t, table.Split(ctx))
		s := table.Snapshot()
		require.Len(t, s.Hands, 4)
		assert.Equal(t, deck.MustParseCards("Ks", "Th"), s.Hands[0].Cards)
		assert.NotContains(t, s.Legal, ActionSplit)
		requireActionError(t, table.Split(ctx), ErrTooManyHands)
		assert.Equal(t, s, table.Snapshot())
	})

	t.Run("only pairs", func(t *testing.T) {
		table := dealWith(t, 10, "Ks", "7c", "9h", "Td")
		requireActionError(t, table.Split(ctx), ErrCannotSplit)
	})

	t.Run("needs funds to match the bet", func(t *testing.T) {
		table, _ := newTestTable(t, WithBankroll(amount(100)), WithDeck(stacked("8s", "9c", "8h", "Td")))
		require.NoError(t, table.PlaceBet(amount(60)))
		require.NoError(t, table.Deal(ctx))
		before := table.Snapshot()
		assert.NotContains(t, before.Legal, ActionSplit)
		requireActionError(t, table.Split(ctx), ErrInsufficientFunds)
		assert.Equal(t, before, table.Snapshot())
	})

	t.Run("funds rechecked on every split", func(t *testing.T) {
		table, _ := newTestTable(t, WithBankroll(amount(150)),
			WithDeck(stacked("Ks", "7c", "Kh", "Td", "Kd", "2c", "Kc", "3c")))
		require.NoError(t, table.PlaceBet(amount(50)))
		require.NoError(t, table.Deal(ctx))
		require.NoError(t, table.Split(ctx))
		require.NoError(t, table.Split(ctx))

		before := table.Snapshot()
		require.Len(t, before.Hands, 3)
		assert.True(t, before.Bankroll.IsZero())
		assert.Equal(t, deck.MustParseCards("Ks", "Kc"), before.Hands[0].Cards)
		requireActionError(t, table.Split(ctx), ErrInsufficientFunds)
		assert.Equal(t, before, table.Snapshot())
	})

	t.Run("face cards of different rank split", func(t *testing.T) {
		table := dealWith(t, 10, "Ks", "7c", "Qh", "Td", "2d", "3d")
		require.NoError(t, table.Split(ctx))
		assert.Len(t, table.Snapshot().Hands, 2)
	})
}

func TestDealerSteps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	table := dealWith(t, 50, "Ts", "Tc", "8h", "3d", "2s", "4h")
	require.NoError(t, table.Stand(ctx))

	var steps []Snapshot
	for s := range table.DealerSteps() {
		steps = append(steps, s)
	}
	// Reveal at 13, draw to 15, draw to 19, settled.
	require.Len(t, steps, 4)
	assert.Equal(t, PhaseDealerTurn, steps[0].Phase)
	assert.False(t, steps[0].DealerHidden)
	assert.Equal(t, 13, steps[0].DealerScore)
	assert.Equal(t, 15, steps[1].DealerScore)
	assert.Equal(t, 19, steps[2].DealerScore)
	assert.Equal(t, PhaseComplete, steps[3].Phase)
	assert.Equal(t, ResultLose, steps[3].Hands[0].Result)

	// Stopping early changes nothing.
	for range table.DealerSteps() {
		break
	}
	assert.Equal(t, steps[3], table.Snapshot())
}

func TestDealerStandsOnSoft17(t *testing.T) {
	t.Parallel()
	table := dealWith(t, 50, "Ts", "6c", "8h", "Ad", "5s")
	require.NoError(t, table.Stand(context.Background()))
	s := table.Snapshot()
	assert.Len(t, s.Dealer, 2)
	assert.Equal(t, 17, s.DealerScore)
	assert.Equal(t, ResultWin, s.Hands[0].Result)
}

func TestNextRound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("decline keeps bankroll", func(t *testing.T) {
		table := dealWith(t, 50, "Ts", "9c", "9h", "Td")
		requireActionError(t, table.NextRound(ctx, false), ErrWrongPhase)
		require.NoError(t, table.Stand(ctx))
		require.NoError(t, table.NextRound(ctx, false))

		s := table.Snapshot()
		assert.Equal(t, PhaseBetting, s.Phase)
		assert.Empty(t, s.Hands)
		assert.True(t, amount(1000).Equal(s.Bankroll))
	})

	t.Run("accept repeats the bet", func(t *testing.T) {
		table, _ := newTestTable(t,
			WithDeck(stacked("Ts", "9c", "9h", "Td")),
			WithDeck(stacked("5s", "9c", "6h", "8d")))
		require.NoError(t, table.PlaceBet(amount(50)))
		require.NoError(t, table.Deal(ctx))
		require.NoError(t, table.Stand(ctx))
		first, _ := table.LastRound()

		require.NoError(t, table.NextRound(ctx, true))
		s := table.Snapshot()
		assert.Equal(t, PhasePlayerTurn, s.Phase)
		assert.NotEqual(t, first.ID, s.RoundID)
		assert.True(t, amount(50).Equal(s.Hands[0].Bet))
		assert.True(t, amount(950).Equal(s.Bankroll))
	})

	t.Run("accept rejected when the bet is no longer affordable", func(t *testing.T) {
		table, _ := newTestTable(t, WithBankroll(amount(100)), WithDeck(stacked("Ts", "9c", "7h", "Td")))
		require.NoError(t, table.PlaceBet(amount(60)))
		require.NoError(t, table.Deal(ctx))
		require.NoError(t, table.Stand(ctx))
		require.Equal(t, PhaseComplete, table.Phase())

		requireActionError(t, table.NextRound(ctx, true), ErrInsufficientFunds)
		assert.Equal(t, PhaseComplete, table.Phase())
	})
	t.Run("settlement count includes rounds settled on the deal", func(t *testing.T) {
		table, _ := newTestTable(t,
			WithDeck(stacked("Ts", "9h", "8s", "Kh")),
			WithDeck(stacked("As", "9d", "Kh", "7c")))
		assert.Zero(t, table.Settlements())
		require.NoError(t, table.PlaceBet(amount(100)))
		require.NoError(t, table.Deal(ctx))
		require.NoError(t, table.Stand(ctx))
		assert.Equal(t, uint64(1), table.Settlements())

		require.NoError(t, table.NextRound(ctx, true))
		s := table.Snapshot()
		assert.Equal(t, PhaseComplete, s.Phase)
		assert.Equal(t, uint64(2), table.Settlements())
		assert.True(t, amount(1050).Equal(s.Bankroll), "bankroll %s", s.Bankroll)

		require.NoError(t, table.NextRound(ctx, false))
		table.ResetRound()
		assert.Equal(t, uint64(2), table.Settlements())
	})
}

func TestResetRound(t *testing.T) {
	t.Parallel()

	t.Run("refunds a staged bet", func(t *testing.T) {
		table, _ := newTestTable(t)
		require.NoError(t, table.PlaceBet(amount(100)))
		table.ResetRound()
		assert.True(t, amount(1000).Equal(table.Bankroll()))
	})

	t.Run("forfeits a dealt round", func(t *testing.T) {
		table := dealWith(t, 100, "Ts", "9c", "7h", "Td")
		table.ResetRound()
		s := table.Snapshot()
		assert.Equal(t, PhaseBetting, s.Phase)
		assert.Empty(t, s.Hands)
		assert.True(t, amount(900).Equal(s.Bankroll))
	})
}

func TestDeckRefill(t *testing.T) {
	t.Parallel()
	// Only four cards: the hit has to come from a reshuffle of the rest.
	table := dealWith(t, 50, "2s", "9c", "3h", "8d")
	require.NoError(t, table.Hit(context.Background()))

	round, _ := table.LastRound()
	seen := map[deck.Card]bool{}
	for _, c := range append(round.Hands[0].Cards, round.Dealer...) {
		assert.False(t, seen[c], "card %s dealt twice", c)
		seen[c] = true
	}
	assert.Len(t, round.Hands[0].Cards, 3)
}

func TestStateRestore(t *testing.T) {
	t.Parallel()
	table, _ := newTestTable(t)
	require.NoError(t, table.PlaceBet(amount(100)))

	state := table.State()
	assert.True(t, amount(1000).Equal(state.Bankroll))
	assert.Equal(t, "user-1", state.UserID)

	other, _ := newTestTable(t)
	require.NoError(t, other.Restore(State{Bankroll: amount(420), LastBet: amount(20), RoundsPlayed: 3}))
	assert.True(t, amount(420).Equal(other.Bankroll()))
	assert.Equal(t, 3, other.State().RoundsPlayed)

	dealt := dealWith(t, 100, "Ts", "9c", "7h", "Td")
	requireActionError(t, dealt.Restore(State{Bankroll: amount(5)}), ErrRestoreInProgress)
}

func TestAdvice(t *testing.T) {
	t.Parallel()
	table := dealWith(t, 50, "Ts", "Tc", "6h", "7d")
	a, err := table.Advice()
	require.NoError(t, err)
	assert.Equal(t, ActionHit, a.Action)
	assert.Equal(t, 85, a.Confidence)

	idle, _ := newTestTable(t)
	_, err = idle.Advice()
	requireActionError(t, err, ErrWrongPhase)
}
