package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/confucious/gamebot/internal/channel"
	"github.com/confucious/gamebot/internal/hub"
	"github.com/confucious/gamebot/internal/lobby"
	"github.com/confucious/gamebot/internal/store"
	"github.com/confucious/gamebot/internal/types"
	"github.com/confucious/gamebot/internal/words"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return newTestServerWithOrigins(t, nil)
}

func newTestServerWithOrigins(t *testing.T, originPatterns []string) *httptest.Server {
	t.Helper()
	list, err := words.Load("")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	logger := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, lobby.Deps{Store: store.NewMemory(), Env: channel.Env{Words: list}, Logger: logger})

	srv := httptest.NewServer(SetupRoutes(h, originPatterns, logger))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, srv *httptest.Server, path string, body string) (int, types.ServerMessage) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var msg types.ServerMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	return resp.StatusCode, msg
}

func act(t *testing.T, srv *httptest.Server, msg types.ClientMessage) (int, types.ServerMessage) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(msg))
	return post(t, srv, "/teams/T1/channels/C1/actions", buf.String())
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestActionsFlow(t *testing.T) {
	srv := newTestServer(t)

	status, msg := act(t, srv, types.ClientMessage{Type: "setup_game", User: "U1"})
	require.Equal(t, http.StatusOK, status, msg.Error)
	assert.Equal(t, types.MsgOutcome, msg.Type)
	assert.Equal(t, uint64(1), msg.Sequence)

	for _, u := range []string{"U1", "U2", "U3", "U4"} {
		status, msg = act(t, srv, types.ClientMessage{Type: "join", User: u})
		require.Equal(t, http.StatusOK, status, msg.Error)
	}
	for _, u := range []string{"U1", "U2"} {
		status, msg = act(t, srv, types.ClientMessage{Type: "become_spymaster", User: u})
		require.Equal(t, http.StatusOK, status, msg.Error)
	}

	status, msg = act(t, srv, types.ClientMessage{Type: "begin_game", User: "U1"})
	require.Equal(t, http.StatusOK, status, msg.Error)
	require.NotNil(t, msg.Outcome)
	require.NotNil(t, msg.Outcome.Phase)
	assert.Equal(t, uint64(8), msg.Sequence)

	resp, err := http.Get(srv.URL + "/teams/T1/channels/C1/state")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap types.ServerMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, types.MsgStateSnapshot, snap.Type)
	assert.Equal(t, uint64(8), snap.Sequence)
	require.NotNil(t, snap.State)
	require.NotNil(t, snap.State.Game)
	assert.Len(t, snap.State.Game.Words, 25)
	assert.Len(t, snap.State.Game.Players, 4)
}

func TestActionErrors(t *testing.T) {
	srv := newTestServer(t)
	status, _ := act(t, srv, types.ClientMessage{Type: "setup_game", User: "U1"})
	require.Equal(t, http.StatusOK, status)

	cases := []struct {
		name       string
		msg        types.ClientMessage
		wantStatus int
		wantCode   string
	}{
		{name: "stale", msg: types.ClientMessage{Type: "join", User: "U1", Sequence: 1}, wantStatus: http.StatusConflict, wantCode: "stale_sequence"},
		{name: "rule violation", msg: types.ClientMessage{Type: "become_spymaster", User: "U9"}, wantStatus: http.StatusUnprocessableEntity, wantCode: "user_not_playing"},
		{name: "game exists", msg: types.ClientMessage{Type: "setup_game", User: "U1"}, wantStatus: http.StatusUnprocessableEntity, wantCode: "game_in_progress"},
		{name: "bad count", msg: types.ClientMessage{Type: "give_clue", User: "U1", Clue: "x", Count: "many"}, wantStatus: http.StatusBadRequest, wantCode: "bad_clue_count"},
		{name: "unknown type", msg: types.ClientMessage{Type: "dance", User: "U1"}, wantStatus: http.StatusBadRequest, wantCode: "unknown_action"},
		{name: "no user", msg: types.ClientMessage{Type: "join"}, wantStatus: http.StatusBadRequest, wantCode: "missing_user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := act(t, srv, tc.msg)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, types.MsgError, msg.Type)
			assert.Equal(t, tc.wantCode, msg.Code)
		})
	}
}

func TestBadBody(t *testing.T) {
	srv := newTestServer(t)
	status, msg := post(t, srv, "/teams/T1/channels/C1/actions", `{"type":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_message", msg.Code)

	status, msg = post(t, srv, "/teams/T1/channels/C1/actions", `{"user":"U1"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad_message", msg.Code)
}

func readMessage(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebsocketStream(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	first := readMessage(t, conn)
	assert.Equal(t, types.MsgStateSnapshot, first.Type)
	require.NotNil(t, first.State)
	assert.Nil(t, first.State.Game)

	// An action over HTTP reaches the socket subscriber.
	status, _ := act(t, srv, types.ClientMessage{Type: "setup_game", User: "U1"})
	require.Equal(t, http.StatusOK, status)
	snap := readMessage(t, conn)
	assert.Equal(t, types.MsgStateSnapshot, snap.Type)
	assert.Equal(t, uint64(1), snap.Sequence)

	// An action over the socket is answered on the socket.
	payload, err := json.Marshal(types.ClientMessage{Type: "join", User: "U2"})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))

	got := map[string]types.ServerMessage{}
	for i := 0; i < 2; i++ {
		msg := readMessage(t, conn)
		got[msg.Type] = msg
	}
	require.Contains(t, got, types.MsgOutcome)
	require.Contains(t, got, types.MsgStateSnapshot)
	assert.Equal(t, uint64(2), got[types.MsgOutcome].Sequence)
	assert.Len(t, got[types.MsgStateSnapshot].State.Game.Players, 1)
}

func TestWebsocketNeedsChannel(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/ws?team=T1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?team=T1&channel=C1"
}

// socketGoroutines counts goroutines running the socket handler or its writer.
func socketGoroutines() int {
	buf := make([]byte, 1<<20)
	buf = buf[:runtime.Stack(buf, true)]
	n := 0
	for _, g := range strings.Split(string(buf), "\n\n") {
		if strings.Contains(g, "internal/ws/handler.go") {
			n++
		}
	}
	return n
}

func TestWebsocketDisconnectsReleaseWriters(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	const clients = 10
	conns := make([]*websocket.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
		require.NoError(t, err)
		assert.Equal(t, types.MsgStateSnapshot, readMessage(t, conn).Type)
		conns = append(conns, conn)
	}
	require.GreaterOrEqual(t, socketGoroutines(), clients)

	for _, conn := range conns {
		require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	}
	assert.Eventually(t, func() bool { return socketGoroutines() == 0 }, 3*time.Second, 20*time.Millisecond,
		"socket goroutines outlived their connections")
}

func TestWebsocketOriginPatterns(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	opts := &websocket.DialOptions{HTTPHeader: http.Header{"Origin": {"https://play.example.com"}}}

	srv := newTestServer(t)
	_, resp, err := websocket.Dial(ctx, wsURL(srv), opts)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	allowed := newTestServerWithOrigins(t, []string{"*.example.com"})
	conn, _, err := websocket.Dial(ctx, wsURL(allowed), opts)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")
	assert.Equal(t, types.MsgStateSnapshot, readMessage(t, conn).Type)
}
