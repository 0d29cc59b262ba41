package liveserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dex_trader/pkg/logging"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, origins []string) (*Server, *httptest.Server) {
	t.Helper()
	hub := NewHub(logging.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, logging.NewNop(), origins)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, ts
}

func dial(t *testing.T, ts *httptest.Server, path, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+path, header)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_CheckOrigin(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		production bool
		want       bool
	}{
		{"exact match", []string{"http://localhost:3000"}, "http://localhost:3000", false, true},
		{"path ignored", []string{"http://localhost:3000"}, "http://localhost:3000/app", false, true},
		{"not whitelisted", []string{"http://localhost:3000"}, "http://evil.example", false, false},
		{"missing origin", []string{"*"}, "", false, false},
		{"wildcard in development", []string{"*"}, "http://anything.example", false, true},
		{"wildcard in production", []string{"*"}, "http://anything.example", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(NewHub(logging.NewNop()), logging.NewNop(), tt.origins)
			server.SetProduction(tt.production)

			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, server.checkOrigin(req))
		})
	}
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t, []string{"*"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["clients"])
}

func TestServer_MarketSubscription(t *testing.T) {
	server, ts := newTestServer(t, []string{"http://localhost"})

	conn, _, err := dial(t, ts, "/ws", "http://localhost")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return server.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Op: OpSubscribe, MarketID: "0xbtc"}))
	client := onlyClient(t, server.Hub())
	require.Eventually(t, func() bool { return client.Watching() == "0xbtc" }, time.Second, 10*time.Millisecond)

	server.BroadcastMarket(TypeOrderbook, "0xeth", "other")
	server.BroadcastMarket(TypeOrderbook, "0xbtc", "mine")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeOrderbook, msg.Type)
	assert.Equal(t, "0xbtc", msg.MarketID)
	assert.Equal(t, "mine", msg.Data)

	require.NoError(t, conn.WriteJSON(Command{Op: "bogus"}))
	msg = readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
}

func TestServer_MarketFromQuery(t *testing.T) {
	server, ts := newTestServer(t, []string{"*"})

	conn, _, err := dial(t, ts, "/ws?marketId=0xbtc", "http://localhost")
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return server.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	assert.Equal(t, "0xbtc", onlyClient(t, server.Hub()).Watching())
}

func TestServer_RejectsBadOrigin(t *testing.T) {
	_, ts := newTestServer(t, []string{"http://localhost"})

	_, resp, err := dial(t, ts, "/ws", "http://evil.example")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func onlyClient(t *testing.T, hub *Hub) *Client {
	t.Helper()
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	require.Len(t, hub.clients, 1)
	for c := range hub.clients {
		return c
	}
	return nil
}
