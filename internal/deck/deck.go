package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned by Draw once every card has been dealt.
var ErrDeckExhausted = errors.New("deck: exhausted")

// Deck is a single 52-card deck consumed from the top. The top of the deck
// is the end of the slice.
type Deck struct {
	cards []Card
}

// NewDeck creates a standard 52-card deck shuffled with rng.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{cards: fullDeck()}
	d.shuffle(rng)
	return d
}

// NewStackedDeck returns a deck that deals the given cards in order: the
// first argument is the first card drawn.
func NewStackedDeck(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	for i, c := range cards {
		d.cards[len(cards)-1-i] = c
	}
	return d
}

func fullDeck() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// shuffle is a Fisher-Yates shuffle
func (d *Deck) shuffle(rng *rand.Rand) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrDeckExhausted
	}
	top := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return top, nil
}

// Refill replaces the remaining cards with a freshly shuffled deck that
// excludes every card in exclude (the cards already visible in the round).
func (d *Deck) Refill(rng *rand.Rand, exclude []Card) {
	seen := make(map[Card]bool, len(exclude))
	for _, c := range exclude {
		seen[c] = true
	}
	d.cards = d.cards[:0]
	for _, c := range fullDeck() {
		if !seen[c] {
			d.cards = append(d.cards, c)
		}
	}
	d.shuffle(rng)
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}
