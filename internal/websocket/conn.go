package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the subset of *websocket.Conn used by a Client
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

type gorillaConn struct {
	*websocket.Conn
}

// WrapConn adapts a gorilla connection to Connection
func WrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
