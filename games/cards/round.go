/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

type Phase string

const (
	AwaitingBlack       Phase = "awaiting-black"
	AwaitingSubmissions Phase = "awaiting-submissions"
	AwaitingWinner      Phase = "awaiting-winner"
	Finished            Phase = "finished"
)

type round struct {
	reader string
	black  *Card
	slots  map[string]*Card // player id -> submitted card, nil until submitted
	phase  Phase
}

func newRound(reader string) round {
	return round{
		reader: reader,
		slots:  make(map[string]*Card),
		phase:  AwaitingBlack,
	}
}

// clearSlots empties every slot, keeping one entry per rostered player.
func (r *round) clearSlots(players *roster) {
	r.slots = make(map[string]*Card, players.len())
	for _, p := range players.players {
		r.slots[p.ID] = nil
	}
}

func (r *round) slotted() map[string]bool {
	ids := make(map[string]bool, len(r.slots))
	for _, c := range r.slots {
		if c != nil {
			ids[c.ID] = true
		}
	}
	return ids
}

func (p Phase) allows(phases ...Phase) bool {
	for _, want := range phases {
		if p == want {
			return true
		}
	}
	return false
}
