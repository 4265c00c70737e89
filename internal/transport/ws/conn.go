package ws

import (
	"time"

	"github.com/chatwave/dispatch-service/internal/hub"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type wsConn struct {
	conn      *websocket.Conn
	sessionID string
	userID    string
	sendMu    chan struct{}
	closed    chan struct{}
}

func newWsConn(c *websocket.Conn, userID string) *wsConn {
	return &wsConn{
		conn:      c,
		sessionID: uuid.New().String(),
		userID:    userID,
		sendMu:    make(chan struct{}, 1),
		closed:    make(chan struct{}),
	}
}

func (c *wsConn) Send(ev hub.Event) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(ev)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}

func (c *wsConn) SessionID() string { return c.sessionID }
func (c *wsConn) UserID() string    { return c.userID }
