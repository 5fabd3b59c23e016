// Package wsconn adapts gorilla websocket connections to ports.HostConn so an
// agent can close its client with a proper close frame.
package wsconn

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bnema/sessiond/internal/ports"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type Conn struct {
	conn *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closed    chan struct{}
}

var _ ports.HostConn = (*Conn)(nil)

func Wrap(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn, closed: make(chan struct{})}
}

// Upgrade accepts a websocket handshake on w.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade websocket: %w", err)
	}
	return Wrap(conn), nil
}

// Close sends a close frame with code and reason, then closes the socket.
// Only the first call has any effect.
func (c *Conn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		frame := websocket.FormatCloseMessage(code, reason)
		writeErr := c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeTimeout))
		if errors.Is(writeErr, websocket.ErrCloseSent) {
			writeErr = nil
		}
		c.closeErr = errors.Join(writeErr, c.conn.Close())
		close(c.closed)
	})

	return c.closeErr
}

// Closed is closed once Close has run.
func (c *Conn) Closed() <-chan struct{} {
	return c.closed
}

func (c *Conn) WriteJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *Conn) ReadJSON(v any) error {
	return c.conn.ReadJSON(v)
}

// IsGoingAway reports whether err is the close frame sent when a session is
// terminated.
func IsGoingAway(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseGoingAway)
}
