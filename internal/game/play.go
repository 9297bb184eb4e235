package game

import (
	"context"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/evaluator"
)

// dealerStandsOn is the total the dealer stops drawing at, soft or hard.
const dealerStandsOn = 17

// Hit draws a card into the current hand. A bust finishes and loses the hand.
func (t *Table) Hit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkActive("hit"); err != nil {
		return err
	}
	t.record(ActionHit)
	return t.hit()
}

func (t *Table) hit() error {
	c, err := t.draw()
	if err != nil {
		return err
	}
	h := &t.round.Hands[t.current]
	h.Cards = append(h.Cards, c)
	if h.Score().Total > 21 {
		h.Finished = true
		h.Result = ResultLose
		h.Payout = decimal.Zero
		t.logger.Debug("hand busted", "round", t.round.ID, "hand", t.current, "cards", h.Cards)
		return t.advance()
	}
	return nil
}

// Stand finishes the current hand.
func (t *Table) Stand(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkActive("stand"); err != nil {
		return err
	}
	t.record(ActionStand)
	t.round.Hands[t.current].Finished = true
	return t.advance()
}

// Double doubles the current hand's bet, draws exactly one card and stands.
func (t *Table) Double(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "double"
	if err := t.checkActive(op); err != nil {
		return err
	}
	if err := t.checkDouble(op); err != nil {
		return err
	}

	t.record(ActionDouble)
	h := &t.round.Hands[t.current]
	t.bankroll = t.bankroll.Sub(h.Bet)
	h.Bet = h.Bet.Add(h.Bet)
	h.Doubled = true

	index := t.current
	if err := t.hit(); err != nil {
		return err
	}
	if h := &t.round.Hands[index]; !h.Finished {
		h.Finished = true
		return t.advance()
	}
	return nil
}

func (t *Table) checkDouble(op string) error {
	h := &t.round.Hands[t.current]
	if len(h.Cards) != 2 {
		return reject(op, ErrCannotDouble, "only a two-card hand can be doubled")
	}
	if h.Doubled {
		return reject(op, ErrCannotDouble, "hand is already doubled")
	}
	if t.bankroll.LessThan(h.Bet) {
		return reject(op, ErrInsufficientFunds, "doubling needs %s, bankroll is %s", h.Bet, t.bankroll)
	}
	return nil
}

// Split turns a pair into two hands, each taking one of the pair plus a new
// card and carrying the original bet. Split Aces get one card each and are
// finished.
func (t *Table) Split(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	const op = "split"
	if err := t.checkActive(op); err != nil {
		return err
	}
	if err := t.checkSplit(op); err != nil {
		return err
	}

	t.record(ActionSplit)
	orig := t.round.Hands[t.current]
	t.bankroll = t.bankroll.Sub(orig.Bet)

	aces := orig.Cards[0].IsAce()
	halves := make([]Hand, 2)
	for i := range halves {
		halves[i] = Hand{
			Cards:     []deck.Card{orig.Cards[i]},
			Bet:       orig.Bet,
			FromSplit: true,
			Finished:  aces,
			Payout:    decimal.Zero,
		}
	}
	t.round.Hands[t.current] = halves[0]
	t.round.Hands = slices.Insert(t.round.Hands, t.current+1, halves[1])

	for i := t.current; i <= t.current+1; i++ {
		c, err := t.draw()
		if err != nil {
			return err
		}
		t.round.Hands[i].Cards = append(t.round.Hands[i].Cards, c)
	}
	t.logger.Debug("hand split", "round", t.round.ID, "hands", len(t.round.Hands))

	if aces {
		return t.advance()
	}
	return nil
}

func (t *Table) checkSplit(op string) error {
	h := &t.round.Hands[t.current]
	if !evaluator.IsPair(h.Cards) {
		return reject(op, ErrCannotSplit, "only two cards of equal value can be split")
	}
	if len(t.round.Hands) >= t.rules.MaxHands {
		return reject(op, ErrTooManyHands, "no more than %d hands per round", t.rules.MaxHands)
	}
	if t.bankroll.LessThan(h.Bet) {
		return reject(op, ErrInsufficientFunds, "splitting needs %s, bankroll is %s", h.Bet, t.bankroll)
	}
	return nil
}

func (t *Table) checkActive(op string) error {
	if t.phase != PhasePlayerTurn {
		return reject(op, ErrWrongPhase, "no hand is in play (table is %s)", t.phase)
	}
	if t.round.Hands[t.current].Finished {
		return reject(op, ErrHandFinished, "hand %d is finished", t.current+1)
	}
	return nil
}

// advance moves to the next unfinished hand, or to the dealer once every
// hand is finished.
func (t *Table) advance() error {
	for i := t.current; i < len(t.round.Hands); i++ {
		if !t.round.Hands[i].Finished {
			t.current = i
			return nil
		}
	}
	return t.playDealer()
}

// playDealer reveals the hole card and draws to 17, keeping a snapshot of
// every step for DealerSteps.
func (t *Table) playDealer() error {
	t.phase = PhaseDealerTurn
	t.steps = append(t.steps[:0], t.snapshot())

	for evaluator.Total(t.round.Dealer) < dealerStandsOn {
		c, err := t.draw()
		if err != nil {
			return err
		}
		t.round.Dealer = append(t.round.Dealer, c)
		t.steps = append(t.steps, t.snapshot())
	}
	t.settle()
	return nil
}

// settle resolves every hand, credits the bankroll and completes the round.
func (t *Table) settle() {
	t.phase = PhaseSettlement

	credit := decimal.Zero
	for i := range t.round.Hands {
		Settle(&t.round.Hands[i], t.round.Dealer)
		credit = credit.Add(Credit(t.round.Hands[i]))
	}
	t.bankroll = t.bankroll.Add(credit)
	t.round.EndedAt = t.clock.Now()
	t.played++
	t.settled++
	t.phase = PhaseComplete
	t.steps = append(t.steps, t.snapshot())

	round := t.round.clone()
	t.recorder.RoundSettled(round)
	t.recorder.BalanceChanged(t.userID, t.bankroll)
	t.logger.Info("round settled", "round", round.ID, "hands", len(round.Hands),
		"dealer", evaluator.Total(round.Dealer), "net", round.Net(), "bankroll", t.bankroll)
}
