// Package websocket pushes batch progress events to connected dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tiervc/internal/infrastructure"
	"tiervc/internal/stream"
	"tiervc/pkg/contracts/events"
)

const broadcastBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	clients map[*Client]struct{}

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics

	totalConnections atomic.Int64
	messagesSent     atomic.Int64
	dropped          atomic.Int64

	// pumps counts the read and write goroutines of served clients
	pumps sync.WaitGroup

	quit    chan struct{}
	done    chan struct{}
	running bool
	stopped bool
}

// NewHub creates a hub. A nil metrics set records nothing.
func NewHub(logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     infrastructure.WithComponent(logger, "websocket.hub"),
		metrics:    metrics,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the hub loop in its own goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running || h.stopped {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client, "client closed")

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.totalConnections.Add(1)
	ctx := client.context()
	h.metrics.WebSocketConnections.Add(ctx, 1)

	h.logger.InfoContext(ctx, "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))

	data, _ := json.Marshal(map[string]string{
		"status":    "connected",
		"client_id": client.id,
	})
	greeting, err := json.Marshal(events.WebSocketMessage{
		Type:      events.MessageTypeConnection,
		Timestamp: time.Now().UTC(),
		TraceID:   client.traceID,
		Data:      data,
	})
	if err != nil {
		return
	}
	select {
	case client.send <- greeting:
	default:
		h.logger.WarnContext(ctx, "Failed to send connection message, client buffer full",
			slog.String("client_id", client.id))
	}
}

// removeClient closes the client's send channel once, under the lock
func (h *Hub) removeClient(client *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	close(client.send)
	count := len(h.clients)
	h.mu.Unlock()

	ctx := client.context()
	h.metrics.WebSocketConnections.Add(ctx, -1)
	h.logger.InfoContext(ctx, "Client unregistered",
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

func (h *Hub) deliver(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			h.removeClient(client, "send buffer full")
		}
	}

	h.logger.Debug("Broadcast delivered",
		slog.Int("client_count", len(clients)),
		slog.Int("message_size", len(message)))
}

// Broadcast queues a raw message for every client. It never blocks: when
// the hub is stopped or backed up the message is dropped.
func (h *Hub) Broadcast(message []byte) bool {
	select {
	case <-h.quit:
		return false
	default:
	}
	select {
	case h.broadcast <- message:
		return true
	default:
		h.dropped.Add(1)
		h.logger.Warn("Broadcast queue full, dropping message",
			slog.Int("message_size", len(message)))
		return false
	}
}

// BroadcastEvent wraps a batch event in the WebSocket envelope and broadcasts it
func (h *Hub) BroadcastEvent(ctx context.Context, batchID string, e events.Event) {
	msg, err := events.NewBatchEventMessage(batchID, e)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling batch event",
			slog.String("batch_id", batchID),
			slog.String("kind", string(e.Kind())),
			slog.String("error", err.Error()))
		return
	}
	msg.TraceID = infrastructure.GetTraceID(ctx)

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling WebSocket message", slog.String("error", err.Error()))
		return
	}
	h.Broadcast(data)
}

// Emitter returns an event sink that mirrors a batch onto the hub
func (h *Hub) Emitter(ctx context.Context, batchID string) stream.Emitter {
	return func(e events.Event) {
		h.BroadcastEvent(ctx, batchID, e)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client. Safe to call after Stop.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports the hub counters for the health endpoint
func (h *Hub) Stats() map[string]interface{} {
	return map[string]interface{}{
		"active_clients":    h.ClientCount(),
		"total_connections": h.totalConnections.Load(),
		"messages_sent":     h.messagesSent.Load(),
		"dropped_messages":  h.dropped.Load(),
	}
}

// trackPumps reserves the two pump goroutines of a client. It fails once
// Stop has begun so Wait never races a new Add.
func (h *Hub) trackPumps() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.pumps.Add(2)
	return true
}

// Stop ends the hub loop, disconnects every client and waits for their
// pumps to return
func (h *Hub) Stop() {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return
	}
	h.stopped = true
	wasRunning := h.running
	h.running = false
	close(h.quit)
	h.mu.Unlock()

	if wasRunning {
		<-h.done
	}

	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.removeClient(client, "hub stopped")
	}
	h.pumps.Wait()
}
