package history

import "time"

// Export is a user's round history as written to disk.
type Export struct {
	User     string    `toml:"user"`
	Exported time.Time `toml:"exported"`
	Rounds   []Round   `toml:"rounds"`
	// Skipped lists rounds that could not be decoded.
	Skipped []string `toml:"skipped,omitempty"`
}

// Round is one settled round.
type Round struct {
	ID       string    `toml:"id"`
	Version  int       `toml:"version"`
	Seed     string    `toml:"seed,omitempty"`
	Started  time.Time `toml:"started"`
	Finished time.Time `toml:"finished"`
	Dealer   []string  `toml:"dealer"`
	Wagered  string    `toml:"wagered"`
	Net      string    `toml:"net"`
	Actions  []string  `toml:"actions"`
	Hands    []Hand    `toml:"hands"`
}

// Hand is one player hand of a round.
type Hand struct {
	Cards     []string `toml:"cards"`
	Bet       string   `toml:"bet"`
	Result    string   `toml:"result"`
	Payout    string   `toml:"payout"`
	Doubled   bool     `toml:"doubled,omitempty"`
	FromSplit bool     `toml:"from_split,omitempty"`
	Blackjack bool     `toml:"blackjack,omitempty"`
}
