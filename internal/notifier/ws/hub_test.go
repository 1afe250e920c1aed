package ws_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"service-dispatch-go/internal/auth"
	"service-dispatch-go/internal/domain"
	"service-dispatch-go/internal/notifier/ws"
	testlog "service-dispatch-go/internal/testutil"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*ws.Hub, *auth.Service, string) {
	t.Helper()
	tokens := auth.NewService("test-secret", time.Hour)
	hub := ws.NewHub(tokens.Verify, testlog.New().Logger(), nil)
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)
	return hub, tokens, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func connect(t *testing.T, url string, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.WriteJSON(map[string]string{"token": token}))

	var hello map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "authenticated", hello["status"])
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ws.Frame {
	t.Helper()
	var f ws.Frame
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func token(t *testing.T, tokens *auth.Service, userID string, role domain.Role) string {
	t.Helper()
	tok, err := tokens.Sign(userID, role)
	require.NoError(t, err)
	return tok
}

func TestConnect_InvalidToken(t *testing.T) {
	_, _, url := newTestHub(t)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"token": "garbage"}))

	var reply map[string]string
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "invalid token", reply["error"])
}

func TestToUser(t *testing.T) {
	hub, tokens, url := newTestHub(t)

	conn := connect(t, url, token(t, tokens, "client-1", domain.RoleClient))

	hub.ToUser("client-1", "delivery-accepted", map[string]string{"deliveryId": "d1"})

	f := readFrame(t, conn)
	assert.Equal(t, "delivery-accepted", f.Event)

	var data map[string]string
	require.NoError(t, json.Unmarshal(f.Data, &data))
	assert.Equal(t, "d1", data["deliveryId"])
}

func TestToUser_AbsentConnectionIsNoop(t *testing.T) {
	hub, _, _ := newTestHub(t)

	assert.NotPanics(t, func() {
		hub.ToUser("nobody", "delivery-accepted", "x")
	})
	assert.False(t, hub.Connected("nobody"))
}

func TestToRole(t *testing.T) {
	hub, tokens, url := newTestHub(t)

	manager := connect(t, url, token(t, tokens, "manager-1", domain.RoleManager))
	driver := connect(t, url, token(t, tokens, "driver-1", domain.RoleDriver))

	hub.ToRole(domain.RoleManager, "new-conflict", map[string]string{"type": "Package damaged"})

	f := readFrame(t, manager)
	assert.Equal(t, "new-conflict", f.Event)

	// the driver must stay silent
	require.NoError(t, driver.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	var unwanted ws.Frame
	err := driver.ReadJSON(&unwanted)
	assert.Error(t, err)
}

func TestInboundFrameRouted(t *testing.T) {
	hub, tokens, url := newTestHub(t)

	type position struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	got := make(chan position, 1)
	hub.SetMessageHandler(func(c *ws.Client, event string, data json.RawMessage) error {
		if event != "new-position" {
			return nil
		}
		var p position
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		got <- p
		c.Send("position-updated", nil)
		return nil
	})

	conn := connect(t, url, token(t, tokens, "driver-1", domain.RoleDriver))

	payload, err := json.Marshal(position{Latitude: 4.047, Longitude: 9.697})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Frame{Event: "new-position", Data: payload}))

	select {
	case p := <-got:
		assert.Equal(t, 4.047, p.Latitude)
	case <-time.After(2 * time.Second):
		t.Fatal("position never reached the handler")
	}

	ack := readFrame(t, conn)
	assert.Equal(t, "position-updated", ack.Event)
}

func TestConnected(t *testing.T) {
	hub, tokens, url := newTestHub(t)

	conn := connect(t, url, token(t, tokens, "client-1", domain.RoleClient))
	assert.True(t, hub.Connected("client-1"))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return !hub.Connected("client-1")
	}, 2*time.Second, 20*time.Millisecond)
}
