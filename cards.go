/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Cardparty fill-in-the-blank game
//
// Every round a reader reveals a black prompt card, the other players answer
// face down with white cards from their hands, and the reader picks the
// funniest answer. The rules live in games/cards; this file is the glue that
// gives each game a websocket hub.
//
// Features:
// - WebSockets per game ID: /path/:gameid/ws, JSON snapshot at /path/:gameid
// - One goroutine per game applies every command in arrival order
// - Players identified by cookie (playerID)
// - Every successful command re-broadcasts the full game state
// - Rule violations are sent only to the offending client
// - Disconnected players are removed from every game after a grace period
// - Games auto-reaped after configurable idle timeout
// - Random 8-char game IDs via crypto/rand, with server-side collision check
// - QR code endpoint to share the current game, backed by go-qrcode

package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

var errUnknownCommand = errors.New("unknown command")

// Messages coming from clients
type ClientMessage struct {
	Type        string               `json:"type"`                    // see Hub.apply
	Name        string               `json:"name,omitempty"`          // join
	Settings    *cards.SettingsPatch `json:"settings,omitempty"`      // edit
	CardID      string               `json:"card_id,omitempty"`       // play_white_card
	PlayerID    string               `json:"player_id,omitempty"`     // reveal_card / set_round_winner
	WhiteCardID string               `json:"white_card_id,omitempty"` // set_round_winner
	BlackCardID string               `json:"black_card_id,omitempty"` // set_round_winner
}

// SimpleMessage is for generic notifications ("error", "alert", etc.)
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SessionInfoMessage is sent immediately on connect so the client knows who
// it is and whether it already has a seat.
type SessionInfoMessage struct {
	Type     string `json:"type"` // "session_info"
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
	IsPlayer bool   `json:"is_player"`
}

// GameStateMessage carries the full game after every change.
type GameStateMessage struct {
	Type string      `json:"type"` // "game_state"
	Game cards.State `json:"game"`
}

// RoundWinnerMessage announces the pick before the next round's state.
type RoundWinnerMessage struct {
	Type      string            `json:"type"` // "round_winner"
	Player    cards.PlayerState `json:"player"`
	WhiteCard cards.Card        `json:"white_card"`
	BlackCard cards.Card        `json:"black_card"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type command struct {
	client     *Client // nil for commands raised by the server
	playerID   string
	disconnect bool
	msg        ClientMessage
}

type Hub struct {
	id      string
	cfg     *Config
	game    *cards.Game
	clock   quartz.Clock
	history Historian

	// onAbandon runs once a disconnected player's grace period expires.
	onAbandon func(playerID string)

	clients map[*Client]bool
	pending map[string]*quartz.Timer

	register chan *Client
	unreg    chan *Client
	commands chan command
	done     chan struct{}

	mu         sync.RWMutex
	snapshot   cards.State
	createdAt  time.Time
	lastActive time.Time
	actions    int

	closeOnce sync.Once
}

func newHub(cfg *Config, game *cards.Game, clock quartz.Clock, history Historian, onAbandon func(string)) *Hub {
	now := clock.Now()
	return &Hub{
		id:         game.ID(),
		cfg:        cfg,
		game:       game,
		clock:      clock,
		history:    history,
		onAbandon:  onAbandon,
		clients:    make(map[*Client]bool),
		pending:    make(map[string]*quartz.Timer),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		done:       make(chan struct{}),
		snapshot:   game.State(),
		createdAt:  now,
		lastActive: now,
	}
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unreg:
			h.handleUnregister(c)
		case cmd := <-h.commands:
			h.handleCommand(cmd)
		case <-h.done:
			return
		}
	}
}

// submit queues a command unless the hub has shut down.
func (h *Hub) submit(cmd command) {
	select {
	case h.commands <- cmd:
	case <-h.done:
	}
}

func (h *Hub) state() cards.State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshot
}

func (h *Hub) idleSince() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastActive
}

func (h *Hub) log(playerID string) *logrus.Entry {
	return entry(h.cfg, logrus.Fields{
		"game":   h.id,
		"player": playerID,
	})
}

func (h *Hub) handleRegister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = h.clock.Now()
	h.clients[c] = true

	if t, ok := h.pending[c.playerID]; ok {
		t.Stop()
		delete(h.pending, c.playerID)
	}

	h.sendLocked(c, SessionInfoMessage{
		Type:     "session_info",
		GameID:   h.id,
		PlayerID: c.playerID,
		IsPlayer: h.game.HasPlayer(c.playerID),
	})
	h.sendLocked(c, GameStateMessage{
		Type: "game_state",
		Game: h.snapshot,
	})
}

func (h *Hub) handleUnregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = h.clock.Now()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}

	playerID := c.playerID
	if playerID == "" || h.connectedLocked(playerID) || !h.game.HasPlayer(playerID) {
		return
	}

	if t, ok := h.pending[playerID]; ok {
		t.Stop()
	}
	h.pending[playerID] = h.clock.AfterFunc(h.cfg.playerTimeout, func() {
		h.onAbandon(playerID)
	}, "abandon")
}

func (h *Hub) connectedLocked(playerID string) bool {
	for c := range h.clients {
		if c.playerID == playerID {
			return true
		}
	}
	return false
}

func (h *Hub) handleCommand(cmd command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if cmd.disconnect {
		delete(h.pending, cmd.playerID)
		if h.connectedLocked(cmd.playerID) || !h.game.HasPlayer(cmd.playerID) {
			return
		}
	}

	h.lastActive = h.clock.Now()

	state, err := h.apply(cmd.playerID, cmd.msg)
	switch {
	case errors.Is(err, cards.ErrNothingToReveal):
		return
	case err != nil:
		h.log(cmd.playerID).WithField("command", cmd.msg.Type).WithError(err).Debug("Rejected command")
		if cmd.client != nil {
			h.sendLocked(cmd.client, SimpleMessage{
				Type:    "error",
				Message: err.Error(),
			})
		}
		return
	}

	h.snapshot = state
	h.recordLocked(cmd)

	if cmd.msg.Type == "set_round_winner" {
		h.announceWinnerLocked(cmd.msg)
	}

	h.broadcastLocked(GameStateMessage{
		Type: "game_state",
		Game: state,
	})

	if cmd.msg.Type == "set_round_winner" && !state.Finished {
		h.broadcastLocked(SimpleMessage{
			Type:    "alert",
			Message: "A new round begins",
		})
	}
}

// apply maps one client command onto one game operation.
func (h *Hub) apply(playerID string, msg ClientMessage) (cards.State, error) {
	switch msg.Type {
	case "join":
		name := strings.TrimSpace(msg.Name)
		if name == "" {
			return cards.State{}, errors.New("a name is required to join")
		}
		state, err := h.game.AddPlayer(playerID, name)
		if err == nil {
			logf(h.cfg, "GAMES: Player %q joined %s", name, h.id)
		}
		return state, err
	case "leave":
		return h.game.RemovePlayer(playerID)
	case "edit":
		if msg.Settings == nil {
			return cards.State{}, errors.New("settings are required")
		}
		return h.game.Configure(*msg.Settings)
	case "shuffle":
		return h.game.Shuffle()
	case "draw_black_card":
		return h.game.DrawBlackCard()
	case "draw_white_cards":
		return h.game.DrawWhiteCards(playerID)
	case "play_white_card":
		return h.game.PlayWhiteCard(msg.CardID, playerID)
	case "reveal_card":
		return h.game.RevealCard(msg.PlayerID)
	case "set_round_winner":
		return h.game.SetRoundWinner(msg.PlayerID, msg.WhiteCardID, msg.BlackCardID)
	default:
		return cards.State{}, fmt.Errorf("%w: %q", errUnknownCommand, msg.Type)
	}
}

func (h *Hub) announceWinnerLocked(msg ClientMessage) {
	player, _ := h.snapshot.Player(msg.PlayerID)
	white, _ := h.snapshot.Card(msg.WhiteCardID)
	black, _ := h.snapshot.Card(msg.BlackCardID)

	logf(h.cfg, "GAMES: %q won a round in %s", player.Name, h.id)

	h.broadcastLocked(RoundWinnerMessage{
		Type:      "round_winner",
		Player:    player,
		WhiteCard: white,
		BlackCard: black,
	})
}

func (h *Hub) recordLocked(cmd command) {
	h.actions++

	action := Action{
		GameID:    h.id,
		Index:     h.actions,
		PlayerID:  cmd.playerID,
		Type:      cmd.msg.Type,
		Payload:   cmd.msg,
		Timestamp: h.clock.Now().UnixMilli(),
	}

	go func(a Action) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := h.history.Record(ctx, a); err != nil {
			h.log(a.PlayerID).WithError(err).Warnf("Failed to record action %d", a.Index)
		}
	}(action)
}

func (h *Hub) sendLocked(c *Client, msg any) {
	if _, ok := h.clients[c]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// closeAll disconnects all clients of this hub and stops its loop.
func (h *Hub) closeAll() {
	h.closeOnce.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, t := range h.pending {
		t.Stop()
		delete(h.pending, id)
	}

	for c := range h.clients {
		close(c.send)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		delete(h.clients, c)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "cardparty_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.get(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			entry(cfg, logrus.Fields{"game": hub.id}).WithError(err).Warn("Websocket upgrade failed")
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		h.submit(command{
			client:   c,
			playerID: c.playerID,
			msg:      msg,
		})
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveState returns the latest snapshot of a game as JSON.
func serveState(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, ok := gm.get(ps.ByName("gameid"))
		if !ok {
			http.Error(w, "unknown game", http.StatusNotFound)
			return
		}

		_ = getOrSetPlayerID(w, r)

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(cfg, w)

		_ = json.NewEncoder(w).Encode(hub.state())
	}
}

// QR handler: generates a PNG QR code for the current game URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:gameid/qr; strip trailing "/qr" to get the game URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// redirectNewGame handles GET /path by registering a new game with the
// server's default rules and redirecting to /path/:gameid. The creator reads
// first.
func redirectNewGame(cfg *Config, path string, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)

		hub, err := gm.create(cfg.settings(), playerID)
		if err != nil {
			entry(cfg, logrus.Fields{"player": playerID}).WithError(err).Error("Failed to create game")
			http.Error(w, "unable to create game", http.StatusInternalServerError)
			return
		}

		logf(cfg, "GAMES: Created game %s/%s", path, hub.id)
		http.Redirect(w, r, cfg.prefix+path+"/"+hub.id, http.StatusTemporaryRedirect)
	}
}

// registerCardGame sets up routes so that:
//   - $path                  → redirects to new random game (8-char ID)
//   - $path/:gameid          → JSON snapshot of the game
//   - $path/:gameid/ws       → WebSocket for that game
//   - $path/:gameid/qr       → PNG QR code for that game URL
func registerCardGame(cfg *Config, path string, mux *httprouter.Router, gm *GameManager) {
	mux.GET(cfg.prefix+path, redirectNewGame(cfg, path, gm))

	mux.GET(cfg.prefix+path+"/:gameid", serveState(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/ws", serveWSForManager(cfg, gm))

	mux.GET(cfg.prefix+path+"/:gameid/qr", qrHandler)
}
