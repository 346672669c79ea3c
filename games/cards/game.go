/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package cards

import "fmt"

const DefaultCardsPerHand = 5

type Rotation string

const (
	// RotationWinner hands the reader role to the last round's winner.
	RotationWinner Rotation = "winner"
	// RotationNextInList passes the reader role to the player after the
	// last winner in join order.
	RotationNextInList Rotation = "next-in-list"
)

func (r Rotation) Valid() bool {
	return r == RotationWinner || r == RotationNextInList
}

// Settings is the editable rule set of a game. Zero MaxWins or MaxRounds
// disables that end condition.
type Settings struct {
	Rotation Rotation `json:"rotation"`

	// WinCondition is a free-form label shown to players; only MaxWins and
	// MaxRounds end a game.
	WinCondition string `json:"win_condition,omitempty"`
	MaxWins      int    `json:"max_wins,omitempty"`
	MaxRounds    int    `json:"max_rounds,omitempty"`
	CardsPerHand int    `json:"cards_per_hand"`
}

func (s Settings) normalize() (Settings, error) {
	if s.CardsPerHand < 0 {
		return s, fmt.Errorf("%w: cards per hand must not be negative", ErrInvalidSettings)
	}
	if s.MaxWins < 0 || s.MaxRounds < 0 {
		return s, fmt.Errorf("%w: limits must not be negative", ErrInvalidSettings)
	}
	if s.CardsPerHand == 0 {
		s.CardsPerHand = DefaultCardsPerHand
	}
	return s, nil
}

type Config struct {
	ID       string
	Deck     *Deck
	Settings Settings

	// FirstReader stands in as reader until a rostered player takes over.
	FirstReader string

	// Rand drives every shuffle. A crypto-seeded source is used when nil.
	Rand RandSource
}

// Game is the aggregate root: deck, roster and current round.
type Game struct {
	id       string
	settings Settings
	deck     *Deck
	players  roster
	round    round
	shuffled bool
	finished bool
	rng      RandSource
}

func New(cfg Config) (*Game, error) {
	if cfg.Deck == nil {
		return nil, ErrNoDeck
	}

	settings, err := cfg.Settings.normalize()
	if err != nil {
		return nil, err
	}

	rng := cfg.Rand
	if rng == nil {
		rng = newSeededRand()
	}

	return &Game{
		id:       cfg.ID,
		settings: settings,
		deck:     cfg.Deck,
		round:    newRound(cfg.FirstReader),
		rng:      rng,
	}, nil
}

func (g *Game) ID() string {
	return g.id
}

func (g *Game) Finished() bool {
	return g.finished
}

// HasPlayer reports whether id is on the roster.
func (g *Game) HasPlayer(id string) bool {
	_, ok := g.players.get(id)
	return ok
}

func (g *Game) player(id string) (*Player, error) {
	p, ok := g.players.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, id)
	}
	return p, nil
}

func (g *Game) requirePhase(op string, phases ...Phase) error {
	if g.finished {
		return ErrGameFinished
	}
	if !g.round.phase.allows(phases...) {
		return fmt.Errorf("%w: cannot %s while %s", ErrWrongPhase, op, g.round.phase)
	}
	return nil
}

// SettingsPatch is a partial edit of Settings. Nil fields keep their
// current value.
type SettingsPatch struct {
	Rotation     *Rotation `json:"rotation,omitempty"`
	WinCondition *string   `json:"win_condition,omitempty"`
	MaxWins      *int      `json:"max_wins,omitempty"`
	MaxRounds    *int      `json:"max_rounds,omitempty"`
	CardsPerHand *int      `json:"cards_per_hand,omitempty"`
}

func (p SettingsPatch) apply(s Settings) (Settings, error) {
	if p.Rotation != nil {
		if !p.Rotation.Valid() {
			return s, fmt.Errorf("%w: unknown rotation %q", ErrInvalidSettings, *p.Rotation)
		}
		s.Rotation = *p.Rotation
	}
	if p.WinCondition != nil {
		s.WinCondition = *p.WinCondition
	}
	if p.MaxWins != nil {
		s.MaxWins = *p.MaxWins
	}
	if p.MaxRounds != nil {
		s.MaxRounds = *p.MaxRounds
	}
	if p.CardsPerHand != nil {
		s.CardsPerHand = *p.CardsPerHand
	}
	return s.normalize()
}

// Configure merges a partial edit into the game's settings. The deck is
// never editable, and a rejected edit leaves the settings untouched.
func (g *Game) Configure(p SettingsPatch) (State, error) {
	if g.finished {
		return State{}, ErrGameFinished
	}

	s, err := p.apply(g.settings)
	if err != nil {
		return State{}, err
	}
	g.settings = s

	return g.State(), nil
}

// AddPlayer appends a player with an empty hand and an empty slot in the
// current round. A player joining while the reader is not on the roster
// becomes the reader.
func (g *Game) AddPlayer(id, name string) (State, error) {
	if g.finished {
		return State{}, ErrGameFinished
	}
	if id == "" {
		return State{}, fmt.Errorf("%w: empty id", ErrUnknownPlayer)
	}
	if g.HasPlayer(id) {
		return State{}, fmt.Errorf("%w: %q", ErrDuplicatePlayer, id)
	}

	g.players.add(&Player{ID: id, Name: name})
	g.round.slots[id] = nil

	if !g.HasPlayer(g.round.reader) {
		g.round.reader = id
	}

	return g.State(), nil
}

// RemovePlayer drops a player and their slot. A departing reader is replaced
// by the first remaining player; with nobody left the reader id dangles until
// someone joins. Cards the player held become recyclable.
func (g *Game) RemovePlayer(id string) (State, error) {
	if _, ok := g.players.remove(id); !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, id)
	}
	delete(g.round.slots, id)

	if g.round.reader == id {
		if next, ok := g.players.first(); ok {
			g.round.reader = next
		}
	}

	return g.State(), nil
}

// Shuffle reorders the whole deck.
func (g *Game) Shuffle() (State, error) {
	if g.finished {
		return State{}, ErrGameFinished
	}

	Shuffle(g.deck.cards, g.rng)
	g.shuffled = true

	return g.State(), nil
}

// DrawBlackCard reveals the round's prompt. Running out of black cards ends
// the game rather than failing.
func (g *Game) DrawBlackCard() (State, error) {
	if err := g.requirePhase("draw a black card", AwaitingBlack); err != nil {
		return State{}, err
	}

	g.drawBlackCard()

	return g.State(), nil
}

func (g *Game) drawBlackCard() {
	c := g.deck.firstUnused(Black)
	if c == nil {
		g.gameOver()
		return
	}

	c.Used = true
	g.round.black = c
	g.round.phase = AwaitingSubmissions
}

// DrawWhiteCards tops a player's hand up to CardsPerHand, recycling played
// cards first if the pool is short. A deck too small to fill the hand just
// deals what it has.
func (g *Game) DrawWhiteCards(playerID string) (State, error) {
	if g.finished {
		return State{}, ErrGameFinished
	}

	p, err := g.player(playerID)
	if err != nil {
		return State{}, err
	}

	g.drawWhiteCards(p)

	return g.State(), nil
}

func (g *Game) drawWhiteCards(p *Player) {
	if len(g.deck.unused(White)) < g.settings.CardsPerHand {
		g.recoverWhiteCards()
	}

	need := g.settings.CardsPerHand - len(p.cards)
	for _, c := range g.deck.cards {
		if need <= 0 {
			break
		}
		if c.Type != White || c.Used {
			continue
		}
		c.Used = true
		c.Hidden = false
		p.cards = append(p.cards, c)
		need--
	}
}

// recoverWhiteCards returns every used white card to the pool unless it sits
// in a round slot or a player's hand, then reshuffles the deck.
func (g *Game) recoverWhiteCards() {
	keep := g.round.slotted()
	for _, p := range g.players.players {
		for _, c := range p.cards {
			keep[c.ID] = true
		}
	}

	for _, c := range g.deck.cards {
		if c.Type == White && c.Used && !keep[c.ID] {
			c.Used = false
			c.Hidden = false
		}
	}

	Shuffle(g.deck.cards, g.rng)
}

// PlayWhiteCard moves a card from the player's hand face down into their slot.
func (g *Game) PlayWhiteCard(cardID, playerID string) (State, error) {
	if err := g.requirePhase("play a card", AwaitingSubmissions); err != nil {
		return State{}, err
	}

	p, err := g.player(playerID)
	if err != nil {
		return State{}, err
	}
	if _, ok := g.deck.card(cardID); !ok {
		return State{}, fmt.Errorf("%w: %q", ErrUnknownCard, cardID)
	}
	if g.round.slots[p.ID] != nil {
		return State{}, fmt.Errorf("%w: %q", ErrAlreadySubmitted, p.ID)
	}

	c, ok := p.take(cardID)
	if !ok {
		return State{}, fmt.Errorf("%w: %q", ErrCardNotInHand, cardID)
	}

	c.Hidden = true
	g.round.slots[p.ID] = c

	return g.State(), nil
}

// RevealCard turns a submitted card face up. The first reveal closes
// submissions for the round. ErrNothingToReveal means the slot is empty and
// nothing changed.
func (g *Game) RevealCard(playerID string) (State, error) {
	if err := g.requirePhase("reveal a card", AwaitingSubmissions, AwaitingWinner); err != nil {
		return State{}, err
	}

	if _, err := g.player(playerID); err != nil {
		return State{}, err
	}

	c := g.round.slots[playerID]
	if c == nil {
		return State{}, fmt.Errorf("%w: %q", ErrNothingToReveal, playerID)
	}

	c.Hidden = false
	g.round.phase = AwaitingWinner

	return g.State(), nil
}

// SetRoundWinner records the winning pair for a player, then either ends the
// game or starts the next round with the winner driving reader rotation.
func (g *Game) SetRoundWinner(playerID, whiteCardID, blackCardID string) (State, error) {
	if err := g.requirePhase("pick a winner", AwaitingSubmissions, AwaitingWinner); err != nil {
		return State{}, err
	}

	p, err := g.player(playerID)
	if err != nil {
		return State{}, err
	}

	white, ok := g.deck.card(whiteCardID)
	if !ok || white.Type != White {
		return State{}, fmt.Errorf("%w: white card %q", ErrUnknownCard, whiteCardID)
	}
	black, ok := g.deck.card(blackCardID)
	if !ok || black.Type != Black {
		return State{}, fmt.Errorf("%w: black card %q", ErrUnknownCard, blackCardID)
	}

	p.wins = append(p.wins, win{white: white, black: black})

	switch {
	case g.settings.MaxWins > 0 && len(p.wins) >= g.settings.MaxWins:
		g.gameOver()
	case g.settings.MaxRounds > 0 && g.deck.countUsed(Black) >= g.settings.MaxRounds:
		g.gameOver()
	default:
		g.createNewRound(p.ID)
	}

	return g.State(), nil
}

func (g *Game) createNewRound(lastWinnerID string) {
	g.rotateReader(lastWinnerID)

	g.round.black = nil
	g.round.phase = AwaitingBlack
	g.round.clearSlots(&g.players)

	g.drawBlackCard()
	if g.finished {
		return
	}

	for _, p := range g.players.players {
		g.drawWhiteCards(p)
	}
}

func (g *Game) rotateReader(lastWinnerID string) {
	switch g.settings.Rotation {
	case RotationWinner:
		g.round.reader = lastWinnerID
	case RotationNextInList:
		if next, ok := g.players.after(lastWinnerID); ok {
			g.round.reader = next
		}
	}
}

func (g *Game) gameOver() {
	g.finished = true
	g.round.phase = Finished
}
