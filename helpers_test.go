/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		cardsPerHand:  3,
		historyQueue:  "cardparty_test",
		playerTimeout: time.Minute,
		port:          8080,
		rotation:      string(cards.RotationNextInList),
	}
}

func testComposition(blacks, whites int) []cards.Card {
	composition := make([]cards.Card, 0, blacks+whites)
	for i := 1; i <= blacks; i++ {
		composition = append(composition, cards.Card{Type: cards.Black, Text: fmt.Sprintf("prompt %d", i)})
	}
	for i := 1; i <= whites; i++ {
		composition = append(composition, cards.Card{Type: cards.White, Text: fmt.Sprintf("answer %d", i)})
	}
	return composition
}

type recordingHistorian struct {
	mu      sync.Mutex
	actions []Action
}

func (r *recordingHistorian) Record(_ context.Context, a Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return nil
}

func (r *recordingHistorian) Close() error { return nil }

func (r *recordingHistorian) recorded() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}

// newTestHub builds a hub without starting its loop, so tests drive the
// handlers directly.
func newTestHub(t *testing.T, clock quartz.Clock, history Historian, onAbandon func(string)) *Hub {
	t.Helper()

	deck, err := cards.NewDeck(testComposition(4, 12), uuid.NewString)
	require.NoError(t, err)

	game, err := cards.New(cards.Config{
		ID:          "TESTGAME",
		Deck:        deck,
		Settings:    cards.Settings{Rotation: cards.RotationNextInList, CardsPerHand: 3},
		FirstReader: "nobody",
		Rand:        cards.NewRand(7),
	})
	require.NoError(t, err)

	if history == nil {
		history = nopHistorian{}
	}
	if onAbandon == nil {
		onAbandon = func(string) {}
	}

	h := newHub(testConfig(), game, clock, history, onAbandon)
	t.Cleanup(h.closeAll)

	return h
}

func connect(h *Hub, playerID string) *Client {
	c := &Client{send: make(chan any, 32), playerID: playerID}
	h.handleRegister(c)
	drain(c)
	return c
}

// drain returns every message queued for c without blocking.
func drain(c *Client) []any {
	var msgs []any
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return msgs
			}
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

func send(h *Hub, c *Client, msg ClientMessage) {
	h.handleCommand(command{client: c, playerID: c.playerID, msg: msg})
}
