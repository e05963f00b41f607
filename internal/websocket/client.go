package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tiervc/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Clients only send heartbeats
	maxMessageSize = 512

	sendBuffer = 256

	DefaultPongWait = 60 * time.Second
)

// ClientOptions tunes keepalive. PingPeriod must be shorter than PongWait.
type ClientOptions struct {
	PingPeriod time.Duration
	PongWait   time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.PongWait <= 0 {
		o.PongWait = DefaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	return o
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	traceID     string
	remoteAddr  string
	connectedAt time.Time
	opts        ClientOptions

	logger *slog.Logger
}

// NewClient creates a client for an upgraded connection
func NewClient(hub *Hub, conn Connection, traceID string, opts ClientOptions, logger *slog.Logger) *Client {
	id := uuid.New().String()
	logger = infrastructure.WithComponent(logger, "websocket.client").With(slog.String("client_id", id))
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          id,
		traceID:     traceID,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// ID returns the client id
func (c *Client) ID() string { return c.id }

func (c *Client) context() context.Context {
	ctx := context.Background()
	if c.traceID != "" {
		ctx = infrastructure.WithTraceID(ctx, c.traceID)
	}
	return ctx
}

// ReadPump drains incoming frames so pongs and close frames are processed
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WarnContext(c.context(), "Unexpected WebSocket close", slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump forwards hub messages to the connection and keeps it alive
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	ctx := c.context()
	var sent int64
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.logger.DebugContext(ctx, "WebSocket write pump stopped", slog.Int64("messages_sent", sent))
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(ctx, "Error writing message to WebSocket", slog.String("error", err.Error()))
				return
			}
			sent++
			c.hub.messagesSent.Add(1)
			c.hub.metrics.WebSocketMessagesSent.Add(ctx, 1)

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(ctx, "Failed to send ping message", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// Serve registers the client and starts its pumps. It returns false when
// the hub is already stopped. Hub.Stop waits for both pumps.
func Serve(hub *Hub, client *Client) bool {
	if !hub.trackPumps() {
		_ = client.conn.Close()
		return false
	}
	if !hub.Register(client) {
		hub.pumps.Add(-2)
		_ = client.conn.Close()
		return false
	}
	go func() {
		defer hub.pumps.Done()
		client.WritePump()
	}()
	go func() {
		defer hub.pumps.Done()
		client.ReadPump()
	}()
	return true
}
