package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"diagramboard/internal/middleware"
	"diagramboard/internal/room"
	"diagramboard/internal/user"

	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to WebSocket connections on the shared room
type Handler struct {
	room      *room.Room
	ipLimiter *middleware.IPRateLimit
	limits    *middleware.RateLimit
	userOpts  user.Options
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewHandler: an empty allowedOrigins list accepts every origin
func NewHandler(
	rm *room.Room,
	ipLimiter *middleware.IPRateLimit,
	limits *middleware.RateLimit,
	userOpts user.Options,
	allowedOrigins []string,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if limits == nil {
		limits = middleware.NewRateLimit(0)
	}
	return &Handler{
		room:      rm,
		ipLimiter: ipLimiter,
		limits:    limits,
		userOpts:  userOpts,
		upgrader: websocket.Upgrader{
			// CORS
			CheckOrigin: checkOrigin(allowedOrigins),
		},
		logger: logger,
	}
}

func checkOrigin(allowedDomains []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if len(allowedDomains) == 0 {
			return true
		}

		origin := r.Header.Get("origin")
		if origin == "" {
			// not a browser
			return true
		}

		for _, allowed := range allowedDomains {
			allowed = strings.TrimSpace(allowed)
			if allowed == "*" || origin == allowed {
				return true
			}
		}

		return false
	}
}

// ServeHTTP upgrades the connection, joins the room and runs the read loop until the client leaves
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Check if rate limited
	clientIP := middleware.ClientIP(r)
	if h.ipLimiter != nil && !h.ipLimiter.Allow(clientIP) {
		h.logger.Warn("connection rate limit exceeded", "remote", clientIP)
		http.Error(w, "Too many connections", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", "remote", clientIP, "error", err)
		return
	}

	u := user.New(conn, h.userOpts, h.logger.With("remote", clientIP))
	go u.WritePump()

	if err := h.room.OnConnect(u); err != nil {
		h.logger.Warn("join failed", "remote", clientIP, "error", err)
		return
	}
	defer u.Close()
	defer h.room.OnDisconnect(u)

	h.logger.Info("client connected", "remote", clientIP, "user", u.ID)
	h.run(u)
	h.logger.Info("client disconnected", "remote", clientIP, "user", u.ID)
}

// run handles the message loop for one connection
func (h *Handler) run(u *user.User) {
	conn := u.Connection
	conn.SetReadDeadline(time.Now().Add(user.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(user.PongWait))
		return nil
	})

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				h.logger.Debug("read failed", "user", u.ID, "error", err)
			}
			return // Connection dead
		}

		if msgType != websocket.TextMessage {
			continue
		}

		// Validate message size
		if !h.limits.ValidateMessageSize(len(msg)) {
			h.logger.Warn("message too large", "user", u.ID, "bytes", len(msg))
			continue // Drop oversized message
		}

		if !u.Allow() {
			h.logger.Warn("message rate limit exceeded", "user", u.ID)
			continue // Drop message
		}

		if err := h.room.OnMessage(u, msg); err != nil {
			h.logger.Warn("dropped message", "user", u.ID, "error", err)
			continue
		}
	}
}
