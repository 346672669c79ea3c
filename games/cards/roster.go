/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

// Player is a participant. Cards is the current hand; every card in it is a
// white card flagged Used and held by nobody else.
type Player struct {
	ID    string
	Name  string
	cards []*Card
	wins  []win
}

type win struct {
	white *Card
	black *Card
}

// take removes a card from the hand and returns it.
func (p *Player) take(cardID string) (*Card, bool) {
	for i, c := range p.cards {
		if c.ID == cardID {
			p.cards = append(p.cards[:i], p.cards[i+1:]...)
			return c, true
		}
	}
	return nil, false
}

// roster keeps players in join order, which is also the reader rotation order.
type roster struct {
	players []*Player
}

func (r *roster) len() int {
	return len(r.players)
}

func (r *roster) index(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *roster) get(id string) (*Player, bool) {
	i := r.index(id)
	if i < 0 {
		return nil, false
	}
	return r.players[i], true
}

func (r *roster) add(p *Player) {
	r.players = append(r.players, p)
}

func (r *roster) remove(id string) (*Player, bool) {
	i := r.index(id)
	if i < 0 {
		return nil, false
	}
	p := r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)
	return p, true
}

// after returns the id of the player following id, wrapping past the end.
func (r *roster) after(id string) (string, bool) {
	i := r.index(id)
	if i < 0 {
		return "", false
	}
	return r.players[(i+1)%len(r.players)].ID, true
}

func (r *roster) first() (string, bool) {
	if len(r.players) == 0 {
		return "", false
	}
	return r.players[0].ID, true
}
