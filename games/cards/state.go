/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

// State is a detached copy of a game, safe to marshal or share.
type State struct {
	ID       string        `json:"id"`
	Settings Settings      `json:"settings"`
	Phase    Phase         `json:"phase"`
	Shuffled bool          `json:"shuffled"`
	Finished bool          `json:"finished"`
	Deck     []Card        `json:"deck"`
	Players  []PlayerState `json:"players"`
	Round    RoundState    `json:"round"`
}

type PlayerState struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Cards []Card `json:"cards"`
	Wins  []Win  `json:"wins"`
}

type Win struct {
	White Card `json:"white"`
	Black Card `json:"black"`
}

type RoundState struct {
	Reader     string           `json:"reader"`
	BlackCard  *Card            `json:"black_card"`
	WhiteSlots map[string]*Card `json:"white_slots"`
}

func (g *Game) State() State {
	s := State{
		ID:       g.id,
		Settings: g.settings,
		Phase:    g.round.phase,
		Shuffled: g.shuffled,
		Finished: g.finished,
		Deck:     copyCards(g.deck.cards),
		Players:  make([]PlayerState, 0, g.players.len()),
		Round: RoundState{
			Reader:     g.round.reader,
			BlackCard:  copyCard(g.round.black),
			WhiteSlots: make(map[string]*Card, len(g.round.slots)),
		},
	}

	for _, p := range g.players.players {
		ps := PlayerState{
			ID:    p.ID,
			Name:  p.Name,
			Cards: copyCards(p.cards),
			Wins:  make([]Win, 0, len(p.wins)),
		}
		for _, w := range p.wins {
			ps.Wins = append(ps.Wins, Win{White: *w.white, Black: *w.black})
		}
		s.Players = append(s.Players, ps)
	}

	for id, c := range g.round.slots {
		s.Round.WhiteSlots[id] = copyCard(c)
	}

	return s
}

// Player looks up a rostered player in the snapshot.
func (s State) Player(id string) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

// Card looks up a deck card in the snapshot.
func (s State) Card(id string) (Card, bool) {
	for _, c := range s.Deck {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}
