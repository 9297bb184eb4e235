package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the rank as printed on the card ("2".."10", "J", "Q", "K", "A").
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Ten:
		return fmt.Sprintf("%d", int(r))
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Value returns the blackjack point value of the rank. Aces count 11 here;
// the evaluator reduces them to 1 when the hand would bust.
func (r Rank) Value() int {
	switch {
	case r == Ace:
		return 11
	case r >= Ten && r <= King:
		return 10
	default:
		return int(r)
	}
}

// Card represents a playing card
type Card struct {
	Suit Suit
	Rank Rank
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Value returns the blackjack point value of the card.
func (c Card) Value() int {
	return c.Rank.Value()
}

// IsAce returns true if the card is an Ace
func (c Card) IsAce() bool {
	return c.Rank == Ace
}

// IsTenValue reports whether the card counts ten (10, J, Q, K).
func (c Card) IsTenValue() bool {
	return c.Rank >= Ten && c.Rank <= King
}

// Valid reports whether the card belongs to the 52-card universe.
func (c Card) Valid() bool {
	return c.Suit >= Spades && c.Suit <= Clubs && c.Rank >= Two && c.Rank <= Ace
}

type cardJSON struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// MarshalJSON encodes the card as {"suit":"♠","value":"A"}, the shape stored
// in round records.
func (c Card) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("deck: cannot encode invalid card %d/%d", c.Suit, c.Rank)
	}
	return json.Marshal(cardJSON{Suit: c.Suit.String(), Value: c.Rank.String()})
}

// UnmarshalJSON decodes the {"suit","value"} shape.
func (c *Card) UnmarshalJSON(data []byte) error {
	var raw cardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	suit, err := parseSuit(raw.Suit)
	if err != nil {
		return err
	}
	rank, err := parseRank(raw.Value)
	if err != nil {
		return err
	}
	*c = Card{Suit: suit, Rank: rank}
	return nil
}

// ParseCard parses "A♠", "As", "10h", "Td" and similar notations.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) < 2 {
		return Card{}, fmt.Errorf("deck: invalid card %q", s)
	}
	suit, err := parseSuit(string(runes[len(runes)-1]))
	if err != nil {
		return Card{}, fmt.Errorf("deck: invalid card %q: %w", s, err)
	}
	rank, err := parseRank(string(runes[:len(runes)-1]))
	if err != nil {
		return Card{}, fmt.Errorf("deck: invalid card %q: %w", s, err)
	}
	return Card{Suit: suit, Rank: rank}, nil
}

// ParseCards parses a comma or whitespace separated list such as "As,10h" or
// "A♠ K♥". An empty string yields no cards.
func ParseCards(s string) ([]Card, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// MustParseCards parses a list of cards and panics on error. Intended for tests.
func MustParseCards(strs ...string) []Card {
	cards := make([]Card, len(strs))
	for i, s := range strs {
		c, err := ParseCard(s)
		if err != nil {
			panic(err)
		}
		cards[i] = c
	}
	return cards
}

// ParseRank parses a bare rank such as "A", "10", "T" or "k".
func ParseRank(s string) (Rank, error) {
	return parseRank(strings.TrimSpace(s))
}

func parseSuit(s string) (Suit, error) {
	switch strings.ToLower(s) {
	case "♠", "s":
		return Spades, nil
	case "♥", "h":
		return Hearts, nil
	case "♦", "d":
		return Diamonds, nil
	case "♣", "c":
		return Clubs, nil
	}
	return 0, fmt.Errorf("unknown suit %q", s)
}

func parseRank(s string) (Rank, error) {
	switch strings.ToUpper(s) {
	case "A":
		return Ace, nil
	case "K":
		return King, nil
	case "Q":
		return Queen, nil
	case "J":
		return Jack, nil
	case "T", "10":
		return Ten, nil
	}
	if len(s) == 1 && s[0] >= '2' && s[0] <= '9' {
		return Rank(s[0] - '0'), nil
	}
	return 0, fmt.Errorf("unknown rank %q", s)
}
