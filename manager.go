/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

const (
	gameIDLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	gameIDLength  = 8
)

// GameManager is the registry of running games. Each game is owned by a Hub
// goroutine; the manager only hands hubs out and reaps idle ones.
type GameManager struct {
	cfg         *Config
	clock       quartz.Clock
	composition []cards.Card
	history     Historian
	newCardID   func() string

	mu   sync.Mutex
	hubs map[string]*Hub

	done     chan struct{}
	stopOnce sync.Once
}

func newGameManager(cfg *Config, composition []cards.Card, history Historian, clock quartz.Clock) *GameManager {
	if history == nil {
		history = nopHistorian{}
	}

	gm := &GameManager{
		cfg:         cfg,
		clock:       clock,
		composition: composition,
		history:     history,
		newCardID:   uuid.NewString,
		hubs:        make(map[string]*Hub),
		done:        make(chan struct{}),
	}

	if cfg.sessionTimeout > 0 {
		ticker := clock.NewTicker(cfg.sessionTimeout/2, "reaper")
		go gm.reaperLoop(ticker)
	}

	return gm
}

// create registers a new game with a fresh deck. The id is drawn until it is
// unused, under the same lock that registers it.
func (gm *GameManager) create(settings cards.Settings, firstReader string) (*Hub, error) {
	deck, err := cards.NewDeck(gm.composition, gm.newCardID)
	if err != nil {
		return nil, fmt.Errorf("building deck: %w", err)
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()

	id, err := gm.newGameIDLocked()
	if err != nil {
		return nil, err
	}

	game, err := cards.New(cards.Config{
		ID:          id,
		Deck:        deck,
		Settings:    settings,
		FirstReader: firstReader,
	})
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	hub := newHub(gm.cfg, game, gm.clock, gm.history, gm.removePlayerEverywhere)
	gm.hubs[id] = hub
	go hub.run()

	return hub, nil
}

// newGameIDLocked generates a crypto-random game ID that doesn't collide
// with existing games.
func (gm *GameManager) newGameIDLocked() (string, error) {
	buf := make([]byte, gameIDLength)
	out := make([]byte, gameIDLength)

	for {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating game id: %w", err)
		}
		for i := range out {
			out[i] = gameIDLetters[int(buf[i])%len(gameIDLetters)]
		}

		id := string(out)
		if _, exists := gm.hubs[id]; !exists {
			return id, nil
		}
	}
}

func (gm *GameManager) get(id string) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[id]
	return hub, ok
}

func (gm *GameManager) remove(id string) {
	gm.mu.Lock()
	hub, ok := gm.hubs[id]
	delete(gm.hubs, id)
	gm.mu.Unlock()

	if ok {
		hub.closeAll()
	}
}

func (gm *GameManager) list() []*Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hubs := make([]*Hub, 0, len(gm.hubs))
	for _, hub := range gm.hubs {
		hubs = append(hubs, hub)
	}
	return hubs
}

// removePlayerEverywhere scans every game and drops playerID from each one
// they are still seated in without a live connection.
func (gm *GameManager) removePlayerEverywhere(playerID string) {
	for _, hub := range gm.list() {
		hub.submit(command{
			playerID:   playerID,
			disconnect: true,
			msg:        ClientMessage{Type: "leave"},
		})
	}
}

// reapIdle removes hubs whose last activity is older than timeout.
func (gm *GameManager) reapIdle(timeout time.Duration) int {
	cutoff := gm.clock.Now().Add(-timeout)

	var idle []string

	gm.mu.Lock()
	for id, hub := range gm.hubs {
		if hub.idleSince().Before(cutoff) {
			idle = append(idle, id)
		}
	}
	gm.mu.Unlock()

	for _, id := range idle {
		logf(gm.cfg, "GAMES: Reaping idle game %s", id)
		gm.remove(id)
	}

	return len(idle)
}

func (gm *GameManager) reaperLoop(ticker *quartz.Ticker) {
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gm.reapIdle(gm.cfg.sessionTimeout)
		case <-gm.done:
			return
		}
	}
}

// close stops the reaper and disconnects every game.
func (gm *GameManager) close() {
	gm.stopOnce.Do(func() {
		close(gm.done)
	})

	gm.mu.Lock()
	hubs := gm.hubs
	gm.hubs = make(map[string]*Hub)
	gm.mu.Unlock()

	for _, hub := range hubs {
		hub.closeAll()
	}
}
