package wsconn

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseSendsGoingAwayFrame(t *testing.T) {
	t.Parallel()

	serverConn := make(chan *Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if !assert.NoError(t, err) {
			return
		}
		serverConn <- conn
	}))
	t.Cleanup(server.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	var conn *Conn
	select {
	case conn = <-serverConn:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "hello"}))
	var hello map[string]string
	require.NoError(t, client.ReadJSON(&hello))
	assert.Equal(t, "hello", hello["type"])

	require.NoError(t, conn.Close(websocket.CloseGoingAway, "Session terminated by administrator"))
	assert.NoError(t, conn.Close(websocket.CloseGoingAway, "again"))

	select {
	case <-conn.Closed():
	default:
		t.Fatal("Closed channel not closed")
	}

	_, _, err = client.ReadMessage()
	require.Error(t, err)
	assert.True(t, IsGoingAway(err))

	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
	assert.Equal(t, "Session terminated by administrator", closeErr.Text)
}

func TestUpgradeRejectsPlainHTTP(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	_, err := Upgrade(rec, req)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
