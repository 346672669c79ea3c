/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import "fmt"

// idAttempts bounds how often NewDeck regenerates an id that collides with
// one already in the deck.
const idAttempts = 16

// Deck is the fixed composition of a game. Cards are only ever reordered and
// flagged after construction.
type Deck struct {
	cards []*Card
	byID  map[string]*Card
}

// NewDeck copies composition into a new deck. Cards without an ID get one from
// newID, which is retried until it yields an id not yet in the deck.
func NewDeck(composition []Card, newID func() string) (*Deck, error) {
	d := &Deck{
		cards: make([]*Card, 0, len(composition)),
		byID:  make(map[string]*Card, len(composition)),
	}

	// Explicit ids are claimed first so generated ones can never shadow them.
	for _, c := range composition {
		if c.ID == "" {
			continue
		}
		if _, exists := d.byID[c.ID]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCard, c.ID)
		}
		d.byID[c.ID] = nil
	}

	for _, c := range composition {
		if !c.Type.valid() {
			return nil, fmt.Errorf("%w: type %q", ErrInvalidCard, c.Type)
		}

		card := &Card{
			ID:   c.ID,
			Type: c.Type,
			Text: c.Text,
		}

		if card.ID == "" {
			if newID == nil {
				return nil, fmt.Errorf("%w: card %q has no id", ErrInvalidCard, c.Text)
			}
			id, err := d.uniqueID(newID)
			if err != nil {
				return nil, err
			}
			card.ID = id
		}

		d.byID[card.ID] = card
		d.cards = append(d.cards, card)
	}

	return d, nil
}

func (d *Deck) uniqueID(newID func() string) (string, error) {
	for range idAttempts {
		id := newID()
		if id == "" {
			continue
		}
		if _, exists := d.byID[id]; !exists {
			return id, nil
		}
	}
	return "", ErrIDExhausted
}

// Len returns the number of cards in the deck.
func (d *Deck) Len() int {
	return len(d.cards)
}

func (d *Deck) card(id string) (*Card, bool) {
	c, ok := d.byID[id]
	return c, ok && c != nil
}

// firstUnused returns the first card of type t in deck order that is not used.
func (d *Deck) firstUnused(t CardType) *Card {
	for _, c := range d.cards {
		if c.Type == t && !c.Used {
			return c
		}
	}
	return nil
}

func (d *Deck) unused(t CardType) []*Card {
	var out []*Card
	for _, c := range d.cards {
		if c.Type == t && !c.Used {
			out = append(out, c)
		}
	}
	return out
}

func (d *Deck) countUsed(t CardType) int {
	n := 0
	for _, c := range d.cards {
		if c.Type == t && c.Used {
			n++
		}
	}
	return n
}
