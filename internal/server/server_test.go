package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ctchen222/Ultimate-Tic-Tac-Toe/internal/bot"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/hub"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/room"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/schedule"
	"ctchen222/Ultimate-Tic-Tac-Toe/internal/session"
	"ctchen222/Ultimate-Tic-Tac-Toe/pkg/proto"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	settings := room.DefaultSettings()
	settings.Mode = room.PvP
	h := hub.NewHub(hub.Options{
		Scheduler: schedule.NewManual(time.Unix(0, 0)),
		Selector:  bot.NewEngine(nil, nil),
		Settings:  settings,
		Session:   session.DefaultSettings(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	ts := httptest.NewServer(NewServer(h, nil).Engine())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-h.Done()
	})
	return ts
}

func decode(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()
	var body Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.True(t, body.Success)
	assert.Equal(t, map[string]any{"status": "ok"}, body.Extras)
}

func TestServer_Config(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/config")
	require.NoError(t, err)
	body := decode(t, resp)
	extras, ok := body.Extras.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pvp", extras["mode"])
	assert.Equal(t, "medium", extras["difficulty"])
	assert.Equal(t, float64(200), extras["reset_delay_ms"])
	rules, ok := extras["rules"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(60), rules["initial_clock"])
}

func TestServer_WebSocketRejectsBadQuery(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/ws?mode=solo")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, decode(t, resp).Success)
}

func TestServer_WebSocketSession(t *testing.T) {
	ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?playerId=alice&mode=pvp"

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var welcome proto.ServerToClientMessage
	require.NoError(t, conn.ReadJSON(&welcome))
	assert.Equal(t, proto.TypeWelcome, welcome.Type)
	assert.Equal(t, "alice", welcome.ClientID)
	assert.NotEmpty(t, welcome.RoomID)

	require.NoError(t, conn.WriteJSON(proto.Move(0, 4)))
	for {
		var msg map[string]any
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["event"] != "snapshot" {
			continue
		}
		payload := msg["payload"].(map[string]any)
		if payload["move_count"] == float64(1) {
			assert.Equal(t, welcome.RoomID, msg["room_id"])
			return
		}
	}
}
