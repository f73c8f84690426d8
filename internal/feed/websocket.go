package feed

import (
	"context"

	"nhooyr.io/websocket"
)

// wsConn adapts a websocket connection to Conn. Messages go out as text frames.
type wsConn struct {
	conn *websocket.Conn
}

// NewWebSocketConn wraps an accepted websocket connection.
func NewWebSocketConn(conn *websocket.Conn) Conn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Write(ctx context.Context, msg string) error {
	return c.conn.Write(ctx, websocket.MessageText, []byte(msg))
}

func (c *wsConn) Close(reason string) error {
	return c.conn.Close(websocket.StatusNormalClosure, reason)
}
