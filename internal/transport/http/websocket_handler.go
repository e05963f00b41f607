package http

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"

	apierrors "tiervc/internal/errors"
	"tiervc/internal/infrastructure"
	"tiervc/internal/middleware"
	ws "tiervc/internal/websocket"
)

// WebSocketConfig configures the upgrade and keepalive of /ws
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	Client          ws.ClientOptions
}

// WebSocketHandler upgrades dashboard connections and registers them on the hub
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	opts     ws.ClientOptions
	errors   *apierrors.ErrorHandler
	logger   *slog.Logger
	base     *slog.Logger
}

// NewWebSocketHandler creates the handler. An empty or "*" origin list
// accepts any origin.
func NewWebSocketHandler(hub *ws.Hub, cfg WebSocketConfig, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WebSocketHandler {
	base := logger
	logger = infrastructure.WithComponent(logger, "http").With(slog.String("handler", "websocket"))
	h := &WebSocketHandler{
		hub:    hub,
		opts:   cfg.Client,
		errors: errorHandler,
		logger: logger,
		base:   base,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
				return true
			}
			if slices.Contains(cfg.AllowedOrigins, origin) {
				return true
			}
			logger.WarnContext(r.Context(), "WebSocket origin not allowed",
				slog.String("origin", origin),
				slog.Any("allowed_origins", cfg.AllowedOrigins))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			logger.WarnContext(r.Context(), "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
			h.errors.HandleError(w, r, apierrors.WebSocketUpgradeWithError(status, reason))
		},
	}
	return h
}

// ServeHTTP handles GET /ws
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered through Error
		return
	}

	client := ws.NewClient(h.hub, ws.WrapConn(conn), middleware.GetRequestID(r.Context()), h.opts, h.base)
	h.logger.InfoContext(r.Context(), "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", middleware.GetRealIP(r)))

	// the hub tracks the pumps; this handler logs nothing after they start
	if !ws.Serve(h.hub, client) {
		h.logger.WarnContext(r.Context(), "WebSocket hub stopped, connection dropped",
			slog.String("client_id", client.ID()))
	}
}
