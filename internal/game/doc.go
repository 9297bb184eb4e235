// Package game implements a single-player blackjack table.
//
// A Table owns one player's bankroll and moves a round through its phases:
//
//	Betting -> Dealing -> PlayerTurn -> DealerTurn -> Settlement -> Complete
//
// Every mutating method validates the request first and returns an
// *ActionError without touching state when it is not legal. Persistence is
// delegated to a Recorder, which must not block; the in-memory table is
// authoritative.
package game
