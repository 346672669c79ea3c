/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/cardparty/games/cards"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterSendsSessionAndState(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)

	c := &Client{send: make(chan any, 4), playerID: "alice"}
	h.handleRegister(c)

	msgs := drain(c)
	require.Len(t, msgs, 2)

	info, ok := msgs[0].(SessionInfoMessage)
	require.True(t, ok)
	assert.Equal(t, "session_info", info.Type)
	assert.Equal(t, "TESTGAME", info.GameID)
	assert.Equal(t, "alice", info.PlayerID)
	assert.False(t, info.IsPlayer)

	state, ok := msgs[1].(GameStateMessage)
	require.True(t, ok)
	assert.Equal(t, cards.AwaitingBlack, state.Game.Phase)
}

func TestHubJoinBroadcastsState(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")

	send(h, alice, ClientMessage{Type: "join", Name: "  Alice "})

	for _, c := range []*Client{alice, bob} {
		msgs := drain(c)
		require.Len(t, msgs, 1)

		state := msgs[0].(GameStateMessage)
		require.Len(t, state.Game.Players, 1)
		assert.Equal(t, "Alice", state.Game.Players[0].Name)
		assert.Equal(t, "alice", state.Game.Round.Reader)
	}

	assert.Len(t, h.state().Players, 1)
}

func TestHubErrorsGoOnlyToSender(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")

	tests := []struct {
		name string
		msg  ClientMessage
	}{
		{"join without name", ClientMessage{Type: "join", Name: "   "}},
		{"unknown command", ClientMessage{Type: "flip_table"}},
		{"edit without settings", ClientMessage{Type: "edit"}},
		{"play before black card", ClientMessage{Type: "play_white_card", CardID: "nope"}},
		{"draw for absent player", ClientMessage{Type: "draw_white_cards"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(h, bob, tt.msg)

			msgs := drain(bob)
			require.Len(t, msgs, 1)
			errMsg, ok := msgs[0].(SimpleMessage)
			require.True(t, ok)
			assert.Equal(t, "error", errMsg.Type)
			assert.NotEmpty(t, errMsg.Message)

			assert.Empty(t, drain(alice))
		})
	}
}

func TestHubRoundWinnerAnnouncement(t *testing.T) {
	history := &recordingHistorian{}
	h := newTestHub(t, quartz.NewMock(t), history, nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")

	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})
	send(h, bob, ClientMessage{Type: "join", Name: "Bob"})
	send(h, alice, ClientMessage{Type: "draw_black_card"})
	send(h, alice, ClientMessage{Type: "draw_white_cards"})
	send(h, bob, ClientMessage{Type: "draw_white_cards"})

	state := h.state()
	black := state.Round.BlackCard
	require.NotNil(t, black)
	bobState, ok := state.Player("bob")
	require.True(t, ok)
	require.Len(t, bobState.Cards, 3)
	white := bobState.Cards[0]

	send(h, bob, ClientMessage{Type: "play_white_card", CardID: white.ID})
	send(h, alice, ClientMessage{Type: "reveal_card", PlayerID: "bob"})
	drain(alice)
	drain(bob)

	send(h, alice, ClientMessage{
		Type:        "set_round_winner",
		PlayerID:    "bob",
		WhiteCardID: white.ID,
		BlackCardID: black.ID,
	})

	msgs := drain(alice)
	require.Len(t, msgs, 3)

	winner, ok := msgs[0].(RoundWinnerMessage)
	require.True(t, ok)
	assert.Equal(t, "round_winner", winner.Type)
	assert.Equal(t, "Bob", winner.Player.Name)
	assert.Equal(t, white.ID, winner.WhiteCard.ID)
	assert.Equal(t, black.ID, winner.BlackCard.ID)

	next, ok := msgs[1].(GameStateMessage)
	require.True(t, ok)
	assert.Equal(t, "alice", next.Game.Round.Reader)
	assert.Equal(t, cards.AwaitingSubmissions, next.Game.Phase)

	alert, ok := msgs[2].(SimpleMessage)
	require.True(t, ok)
	assert.Equal(t, "alert", alert.Type)

	require.Eventually(t, func() bool {
		return len(history.recorded()) == 8
	}, time.Second, 10*time.Millisecond)

	seen := make(map[int]Action)
	for _, a := range history.recorded() {
		assert.Equal(t, "TESTGAME", a.GameID)
		seen[a.Index] = a
	}
	assert.Equal(t, "join", seen[1].Type)
	assert.Equal(t, "set_round_winner", seen[8].Type)
	assert.Equal(t, "bob", seen[8].Payload.PlayerID)
}

func TestHubNoAlertWhenGameEnds(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")

	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})
	rotation, maxWins, hand := cards.RotationWinner, 1, 2
	send(h, alice, ClientMessage{Type: "edit", Settings: &cards.SettingsPatch{
		Rotation:     &rotation,
		MaxWins:      &maxWins,
		CardsPerHand: &hand,
	}})
	send(h, alice, ClientMessage{Type: "draw_black_card"})
	send(h, alice, ClientMessage{Type: "draw_white_cards"})

	state := h.state()
	me, _ := state.Player("alice")
	send(h, alice, ClientMessage{Type: "play_white_card", CardID: me.Cards[0].ID})
	drain(alice)

	send(h, alice, ClientMessage{
		Type:        "set_round_winner",
		PlayerID:    "alice",
		WhiteCardID: me.Cards[0].ID,
		BlackCardID: state.Round.BlackCard.ID,
	})

	msgs := drain(alice)
	require.Len(t, msgs, 2)
	assert.IsType(t, RoundWinnerMessage{}, msgs[0])
	final := msgs[1].(GameStateMessage)
	assert.True(t, final.Game.Finished)
	assert.Equal(t, cards.Finished, final.Game.Phase)
}

func TestHubPartialEditKeepsSettings(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")
	bob := connect(h, "bob")

	var edit ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"edit","settings":{"max_wins":3}}`), &edit))
	send(h, alice, edit)

	msgs := drain(bob)
	require.Len(t, msgs, 1)
	state := msgs[0].(GameStateMessage)
	assert.Equal(t, cards.Settings{
		Rotation:     cards.RotationNextInList,
		MaxWins:      3,
		CardsPerHand: 3,
	}, state.Game.Settings)
	drain(alice)

	var bogus ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"type":"edit","settings":{"rotation":"bogus"}}`), &bogus))
	send(h, alice, bogus)

	msgs = drain(alice)
	require.Len(t, msgs, 1)
	errMsg, ok := msgs[0].(SimpleMessage)
	require.True(t, ok)
	assert.Equal(t, "error", errMsg.Type)
	assert.Empty(t, drain(bob))

	assert.Equal(t, cards.RotationNextInList, h.state().Settings.Rotation)
	assert.Equal(t, 3, h.state().Settings.MaxWins)
}

func TestHubRevealEmptySlotIsSilent(t *testing.T) {
	history := &recordingHistorian{}
	h := newTestHub(t, quartz.NewMock(t), history, nil)
	alice := connect(h, "alice")

	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})
	send(h, alice, ClientMessage{Type: "draw_black_card"})
	drain(alice)

	send(h, alice, ClientMessage{Type: "reveal_card", PlayerID: "alice"})

	assert.Empty(t, drain(alice))
	assert.Equal(t, cards.AwaitingSubmissions, h.state().Phase)
	assert.Equal(t, 2, h.actions)
}

func TestHubDisconnectLeaveSkippedWhileConnected(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")
	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})

	leave := command{playerID: "alice", disconnect: true, msg: ClientMessage{Type: "leave"}}

	h.handleCommand(leave)
	assert.True(t, h.game.HasPlayer("alice"))

	h.handleUnregister(alice)
	h.handleCommand(leave)
	assert.False(t, h.game.HasPlayer("alice"))
	assert.Empty(t, h.state().Players)
}

func TestHubAbandonAfterGracePeriod(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	abandoned := make(chan string, 1)
	h := newTestHub(t, clock, nil, func(id string) { abandoned <- id })

	alice := connect(h, "alice")
	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})
	h.handleUnregister(alice)

	clock.Advance(time.Minute).MustWait(ctx)

	select {
	case id := <-abandoned:
		assert.Equal(t, "alice", id)
	case <-ctx.Done():
		t.Fatal("abandon callback never ran")
	}
}

func TestHubReconnectCancelsAbandon(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := quartz.NewMock(t)
	abandoned := make(chan string, 1)
	h := newTestHub(t, clock, nil, func(id string) { abandoned <- id })

	alice := connect(h, "alice")
	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})
	h.handleUnregister(alice)

	connect(h, "alice")
	assert.Empty(t, h.pending)

	clock.Advance(2 * time.Minute).MustWait(ctx)

	select {
	case id := <-abandoned:
		t.Fatalf("player %s abandoned after reconnecting", id)
	default:
	}
}

func TestHubDropsSlowClients(t *testing.T) {
	h := newTestHub(t, quartz.NewMock(t), nil, nil)
	alice := connect(h, "alice")

	stuck := &Client{send: make(chan any), playerID: "bob"}
	h.clients[stuck] = true

	send(h, alice, ClientMessage{Type: "join", Name: "Alice"})

	assert.NotContains(t, h.clients, stuck)
	_, open := <-stuck.send
	assert.False(t, open)
	assert.Len(t, drain(alice), 1)
}

func TestServeGameOverHTTP(t *testing.T) {
	cfg := testConfig()
	gm := newGameManager(cfg, testComposition(4, 20), nil, quartz.NewReal())
	t.Cleanup(gm.close)

	srv := httptest.NewServer(newRouter(cfg, gm, make(chan error, 8)))
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := client.Get(srv.URL + "/cards")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)

	location := resp.Header.Get("Location")
	require.True(t, strings.HasPrefix(location, "/cards/"))
	gameID := strings.TrimPrefix(location, "/cards/")
	require.Len(t, gameID, gameIDLength)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == playerCookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	t.Run("state", func(t *testing.T) {
		resp, err := client.Get(srv.URL + location)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var state cards.State
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
		assert.Equal(t, gameID, state.ID)
		assert.Equal(t, cookie.Value, state.Round.Reader)
		assert.Equal(t, 3, state.Settings.CardsPerHand)
	})

	t.Run("unknown game", func(t *testing.T) {
		resp, err := client.Get(srv.URL + "/cards/NOTAGAME")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("websocket", func(t *testing.T) {
		header := http.Header{}
		header.Set("Cookie", playerCookieName+"="+cookie.Value)

		wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + location + "/ws"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

		var info SessionInfoMessage
		require.NoError(t, conn.ReadJSON(&info))
		assert.Equal(t, "session_info", info.Type)
		assert.Equal(t, gameID, info.GameID)
		assert.Equal(t, cookie.Value, info.PlayerID)
		assert.False(t, info.IsPlayer)

		var initial GameStateMessage
		require.NoError(t, conn.ReadJSON(&initial))
		assert.Empty(t, initial.Game.Players)

		require.NoError(t, conn.WriteJSON(ClientMessage{Type: "join", Name: "Host"}))

		var joined GameStateMessage
		require.NoError(t, conn.ReadJSON(&joined))
		assert.Equal(t, "game_state", joined.Type)
		require.Len(t, joined.Game.Players, 1)
		assert.Equal(t, "Host", joined.Game.Players[0].Name)

		require.NoError(t, conn.WriteJSON(ClientMessage{Type: "play_white_card", CardID: "missing"}))

		var rejected SimpleMessage
		require.NoError(t, conn.ReadJSON(&rejected))
		assert.Equal(t, "error", rejected.Type)
	})

	t.Run("qr code", func(t *testing.T) {
		resp, err := client.Get(srv.URL + location + "/qr")
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	})
}
