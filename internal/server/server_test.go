package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/archipelago/engine"
	"github.com/jason-s-yu/archipelago/internal/config"
	"github.com/jason-s-yu/archipelago/internal/logging"
	"github.com/jason-s-yu/archipelago/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := config.Server{
		PingInterval: time.Minute,
		PingTimeout:  time.Second,
		SendBuffer:   64,
	}
	s := New(cfg, logging.Discard(), Options{Seeds: func() uint64 { return 7 }})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.CloseNow() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, line string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ws.Write(ctx, websocket.MessageText, []byte(line)))
}

// readUntil reads messages until one matches obj, failing after a timeout.
func readUntil(t *testing.T, ws *websocket.Conn, obj protocol.Object) protocol.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := ws.Read(ctx)
		require.NoError(t, err, "waiting for %s", obj)
		msg, err := protocol.DecodeServer(data)
		require.NoError(t, err)
		if msg.Object == obj {
			return msg
		}
	}
}

func TestHealthz(t *testing.T) {
	s, _ := setupTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "ok\n", string(body))
}

func TestTwoPlayersJoinAndStart(t *testing.T) {
	s, url := setupTestServer(t)
	alice, bob := dial(t, url), dial(t, url)

	send(t, alice, `{"object":"join","nickname":"alice","players":2}`)
	joined := readUntil(t, alice, protocol.ObjJoined)
	require.NotNil(t, joined.Seat)
	assert.Equal(t, 0, *joined.Seat)
	assert.NotEmpty(t, joined.LobbyID)

	send(t, bob, `{"object":"join","nickname":"bob","players":2}`)
	joined = readUntil(t, bob, protocol.ObjJoined)
	require.NotNil(t, joined.Seat)
	assert.Equal(t, 1, *joined.Seat)

	for _, ws := range []*websocket.Conn{alice, bob} {
		start := readUntil(t, ws, protocol.ObjStart)
		require.NotNil(t, start.Start)
		assert.Equal(t, 2, start.Start.NumPlayers)
		assert.Len(t, start.Start.Players, 2)
		assert.Equal(t, "alice", start.Start.Players[0].Nickname)
	}
	assert.Equal(t, 1, s.Lobbies().Open())
}

func TestJoinRejections(t *testing.T) {
	_, url := setupTestServer(t)
	alice, bob := dial(t, url), dial(t, url)

	send(t, alice, `{"object":"join","nickname":"alice","players":3}`)
	readUntil(t, alice, protocol.ObjJoined)

	send(t, bob, `{"object":"join","nickname":"alice","players":3}`)
	nack := readUntil(t, bob, protocol.ObjNack)
	assert.Equal(t, protocol.NackNicknameNotValid, nack.SubObject)
	assert.False(t, nack.Fatal)

	send(t, bob, `{"object":"join","nickname":"bob","lobbyId":"6f1c1c84-8a2e-4a57-9c39-1d4a8f00a0b1"}`)
	nack = readUntil(t, bob, protocol.ObjNack)
	assert.Equal(t, protocol.NackLobbyNotAvailable, nack.SubObject)
	assert.True(t, nack.Fatal)
}

func TestJoinByLobbyID(t *testing.T) {
	_, url := setupTestServer(t)
	alice, bob := dial(t, url), dial(t, url)

	send(t, alice, `{"object":"join","nickname":"alice","players":2,"expert":true}`)
	id := readUntil(t, alice, protocol.ObjJoined).LobbyID

	send(t, bob, `{"object":"join","nickname":"bob","lobbyId":"`+id+`"}`)
	joined := readUntil(t, bob, protocol.ObjJoined)
	assert.Equal(t, id, joined.LobbyID)

	start := readUntil(t, bob, protocol.ObjStart)
	assert.True(t, start.Start.Expert)
	assert.Len(t, start.Start.Characters, engine.CharactersInPlay)
}

func TestFaultsAndUnboundActions(t *testing.T) {
	_, url := setupTestServer(t)
	ws := dial(t, url)

	send(t, ws, `{"object":"join"`)
	nack := readUntil(t, ws, protocol.ObjNack)
	assert.Equal(t, protocol.NackProtocolError, nack.SubObject)

	send(t, ws, `{"object":"assistant","assistant":3}`)
	nack = readUntil(t, ws, protocol.ObjNack)
	assert.Equal(t, protocol.SubObject(engine.CodeInvalidAction), nack.SubObject)
	assert.Contains(t, nack.Explanation, "join")

	send(t, ws, `{"object":"join","nickname":"carol","players":2}`)
	readUntil(t, ws, protocol.ObjJoined)
	send(t, ws, `{"object":"assistant","assistant":3}`)
	nack = readUntil(t, ws, protocol.ObjNack)
	assert.Contains(t, nack.Explanation, "waiting")
}

func TestWrongTurnIsNackedToSenderOnly(t *testing.T) {
	_, url := setupTestServer(t)
	alice, bob := dial(t, url), dial(t, url)
	send(t, alice, `{"object":"join","nickname":"alice","players":2}`)
	send(t, bob, `{"object":"join","nickname":"bob","players":2}`)
	start := readUntil(t, alice, protocol.ObjStart)
	readUntil(t, bob, protocol.ObjStart)

	// Setup starts at seat 0; the other seat is out of turn.
	other := bob
	if start.Start.CurrentPlayer == 1 {
		other = alice
	}
	send(t, other, `{"object":"tower_color","tower":"white"}`)
	nack := readUntil(t, other, protocol.ObjNack)
	assert.Equal(t, protocol.SubObject(engine.CodeInvalidAction), nack.SubObject)
}

func TestDisconnectEndsRunningMatch(t *testing.T) {
	s, url := setupTestServer(t)
	alice, bob := dial(t, url), dial(t, url)
	send(t, alice, `{"object":"join","nickname":"alice","players":2}`)
	send(t, bob, `{"object":"join","nickname":"bob","players":2}`)
	readUntil(t, alice, protocol.ObjStart)

	_ = bob.CloseNow()

	end := readUntil(t, alice, protocol.ObjEnd)
	require.NotNil(t, end.End)
	assert.Equal(t, 0, end.End.Winner)
	assert.Eventually(t, func() bool { return s.Lobbies().Open() == 0 }, 5*time.Second, 20*time.Millisecond)
}

func TestLeaveFreesWaitingSeat(t *testing.T) {
	s, url := setupTestServer(t)
	alice := dial(t, url)
	send(t, alice, `{"object":"join","nickname":"alice","players":4}`)
	readUntil(t, alice, protocol.ObjJoined)
	require.Equal(t, 1, s.Lobbies().Open())

	_ = alice.CloseNow()
	assert.Eventually(t, func() bool { return s.Lobbies().Open() == 0 }, 5*time.Second, 20*time.Millisecond)

	// The nickname is free again.
	again := dial(t, url)
	send(t, again, `{"object":"join","nickname":"alice","players":4}`)
	joined := readUntil(t, again, protocol.ObjJoined)
	assert.Equal(t, 0, *joined.Seat)
}
