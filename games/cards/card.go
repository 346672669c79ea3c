/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package cards is the rules engine for a fill-in-the-blank party card game.
//
// A Game owns a fixed deck of black (prompt) and white (response) cards, an
// ordered roster of players and the current round. Every exported operation
// mutates the game synchronously and returns a deep-copied State, so callers
// can hand the result to other goroutines without sharing the aggregate.
//
// The package does no locking. Callers must serialize operations against a
// single Game, for example by funnelling every command through one goroutine.
package cards

type CardType string

const (
	Black CardType = "black"
	White CardType = "white"
)

func (t CardType) valid() bool {
	return t == Black || t == White
}

// Card is a single prompt or response. ID, Type and Text never change once the
// card belongs to a Deck; Used and Hidden track where the card is in play.
type Card struct {
	ID     string   `json:"id"`
	Type   CardType `json:"type"`
	Text   string   `json:"text"`
	Used   bool     `json:"used"`
	Hidden bool     `json:"hidden,omitempty"`
}

func copyCard(c *Card) *Card {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

func copyCards(cs []*Card) []Card {
	out := make([]Card, 0, len(cs))
	for _, c := range cs {
		out = append(out, *c)
	}
	return out
}
