package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fortytwo/internal/model"
	"fortytwo/internal/protocol"
)

func newTestServer(t *testing.T, script []protocol.Envelope) *httptest.Server {
	t.Helper()
	s := New(Config{JWTSecret: "test-secret", Script: script, Logger: zerolog.Nop()})
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return srv
}

func newAuthedClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	c := &http.Client{Jar: jar}
	resp, err := c.Post(srv.URL+"/api/guest", "application/json", nil)
	if err != nil {
		t.Fatalf("guest: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("guest status %d", resp.StatusCode)
	}
	return c
}

func dialWS(t *testing.T, srv *httptest.Server, c *http.Client) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	dialer := websocket.Dialer{Jar: c.Jar}
	conn, resp, err := dialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn, want string) protocol.Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(deadline)
		var env protocol.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read: %v", err)
		}
		if env.Event == want {
			return env
		}
	}
	t.Fatalf("never received %s", want)
	return protocol.Envelope{}
}

func sendIntent(t *testing.T, conn *websocket.Conn, out protocol.Outbound) {
	t.Helper()
	payload, err := protocol.Encode(out)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestSignupSigninFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	jar, _ := cookiejar.New(nil)
	c := &http.Client{Jar: jar}

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "hunter22"})
	resp, err := c.Post(srv.URL+"/api/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signup status %d", resp.StatusCode)
	}

	// The cookie authenticates /api/user.
	resp, err = c.Get(srv.URL + "/api/user")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	var out struct {
		User model.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if out.User.Username != "alice" {
		t.Fatalf("user = %+v", out.User)
	}

	// Wrong password is rejected.
	body, _ = json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	resp, err = http.Post(srv.URL+"/api/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("signin status %d, want 401", resp.StatusCode)
	}
}

func TestUserEndpointRequiresAuth(t *testing.T) {
	srv := newTestServer(t, nil)
	resp, err := http.Get(srv.URL + "/api/user")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", resp.StatusCode)
	}
}

func TestJoinSeatsInPlayOrder(t *testing.T) {
	srv := newTestServer(t, nil)

	var conns []*websocket.Conn
	for i := 0; i < 2; i++ {
		c := newAuthedClient(t, srv)
		conn := dialWS(t, srv, c)
		readEvent(t, conn, protocol.EventConnected)
		sendIntent(t, conn, protocol.JoinGame{GameID: "room1"})
		conns = append(conns, conn)
	}

	want := []model.Seat{model.North, model.West}
	for i, conn := range conns {
		env := readEvent(t, conn, protocol.EventGameState)
		ev, err := protocol.Decode(env)
		if err != nil {
			t.Fatalf("decode snapshot: %v", err)
		}
		snap := ev.(protocol.Snapshot)
		if snap.MySeat != want[i] {
			t.Fatalf("joiner %d seated at %s, want %s", i, snap.MySeat, want[i])
		}
		if snap.Phase != model.PhaseWaiting {
			t.Fatalf("phase = %s", snap.Phase)
		}
	}

	// The first member hears about the second joiner.
	env := readEvent(t, conns[0], protocol.EventPlayerJoined)
	ev, err := protocol.Decode(env)
	if err != nil {
		t.Fatalf("decode player_joined: %v", err)
	}
	if joined := ev.(protocol.PlayerJoined); joined.Position != model.West {
		t.Fatalf("player_joined position = %s", joined.Position)
	}
}

func TestChatRelay(t *testing.T) {
	srv := newTestServer(t, nil)

	a := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, a, protocol.EventConnected)
	sendIntent(t, a, protocol.JoinGame{GameID: "room1"})
	readEvent(t, a, protocol.EventGameState)

	b := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, b, protocol.EventConnected)
	sendIntent(t, b, protocol.JoinGame{GameID: "room1"})
	readEvent(t, b, protocol.EventGameState)

	sendIntent(t, b, protocol.ChatSend{GameID: "room1", Message: "hello table"})

	env := readEvent(t, a, protocol.EventChatMessage)
	ev, err := protocol.Decode(env)
	if err != nil {
		t.Fatalf("decode chat: %v", err)
	}
	msg := ev.(protocol.Chat)
	if msg.Message != "hello table" || msg.Username == "" {
		t.Fatalf("chat = %+v", msg)
	}
}

func TestStartGameReplaysScript(t *testing.T) {
	script := []protocol.Envelope{
		{Event: protocol.EventGameStarted, Data: json.RawMessage(`{"game_id":"room1","phase":"bidding","current_turn":"west"}`)},
		{Event: protocol.EventBidUpdate, Data: json.RawMessage(`{"position":"west","bid":30,"high_bid":30,"high_bidder":"west","phase":"bidding","current_turn":"south"}`)},
	}
	srv := newTestServer(t, script)

	conn := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, conn, protocol.EventConnected)
	sendIntent(t, conn, protocol.JoinGame{GameID: "room1"})
	readEvent(t, conn, protocol.EventGameState)

	sendIntent(t, conn, protocol.StartGame{GameID: "room1"})

	env := readEvent(t, conn, protocol.EventGameStarted)
	if !bytes.Contains(env.Data, []byte("bidding")) {
		t.Fatalf("game_started data = %s", env.Data)
	}
	env = readEvent(t, conn, protocol.EventBidUpdate)
	ev, err := protocol.Decode(env)
	if err != nil {
		t.Fatalf("decode bid_update: %v", err)
	}
	if bid := ev.(protocol.BidUpdate); bid.HighBid != 30 || bid.Position != model.West {
		t.Fatalf("bid_update = %+v", bid)
	}
}

func TestSwitchingRoomsLeavesOldRoom(t *testing.T) {
	srv := newTestServer(t, nil)

	a := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, a, protocol.EventConnected)
	sendIntent(t, a, protocol.JoinGame{GameID: "room1"})
	readEvent(t, a, protocol.EventGameState)

	b := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, b, protocol.EventConnected)
	sendIntent(t, b, protocol.JoinGame{GameID: "room1"})
	readEvent(t, b, protocol.EventGameState)
	readEvent(t, a, protocol.EventPlayerJoined)

	// b moves to another room. room1 must see it leave.
	sendIntent(t, b, protocol.JoinGame{GameID: "room2"})
	env := readEvent(t, b, protocol.EventGameState)
	ev, err := protocol.Decode(env)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap := ev.(protocol.Snapshot); snap.GameID != "room2" || snap.MySeat != model.North {
		t.Fatalf("room2 snapshot = game %s seat %s", snap.GameID, snap.MySeat)
	}
	readEvent(t, b, protocol.EventPlayerJoined) // b's own room2 announcement
	env = readEvent(t, a, protocol.EventPlayerLeft)
	ev, err = protocol.Decode(env)
	if err != nil {
		t.Fatalf("decode player_left: %v", err)
	}
	if left := ev.(protocol.PlayerLeft); left.Position != model.West {
		t.Fatalf("player_left position = %s", left.Position)
	}

	// room1 traffic no longer reaches b.
	sendIntent(t, a, protocol.ChatSend{GameID: "room1", Message: "anyone here?"})
	b.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var stray protocol.Envelope
	if err := b.ReadJSON(&stray); err == nil {
		t.Fatalf("member of room2 received room1 event %s", stray.Event)
	}
}

func TestGameFlowIntentsRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	conn := dialWS(t, srv, newAuthedClient(t, srv))
	readEvent(t, conn, protocol.EventConnected)
	sendIntent(t, conn, protocol.JoinGame{GameID: "room1"})
	readEvent(t, conn, protocol.EventGameState)

	sendIntent(t, conn, protocol.PlaceBid{GameID: "room1", Bid: 31})
	env := readEvent(t, conn, protocol.EventError)
	if !bytes.Contains(env.Data, []byte("not supported")) {
		t.Fatalf("error data = %s", env.Data)
	}
}
