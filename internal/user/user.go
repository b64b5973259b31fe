package user

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// PongWait is how long a connection may stay silent before the read side gives up
	PongWait = 60 * time.Second
	// PingPeriod keeps the connection inside PongWait
	PingPeriod = (PongWait * 9) / 10
)

var (
	ErrSendQueueFull = errors.New("send queue full")
	ErrConnClosed    = errors.New("connection closed")
)

// Options configures the outbound side and inbound rate limit of a connection
type Options struct {
	QueueSize         int
	WriteTimeout      time.Duration
	PingPeriod        time.Duration
	MessagesPerSecond float64 // <= 0 disables the limiter
	BurstSize         int
}

// DefaultOptions: 256 queued frames, 10s write deadline, 120 msg/sec with a burst of 240
func DefaultOptions() Options {
	return Options{
		QueueSize:         256,
		WriteTimeout:      10 * time.Second,
		PingPeriod:        PingPeriod,
		MessagesPerSecond: 120,
		BurstSize:         240,
	}
}

// User represents a connected client.
// Frames handed to Send are written in order by WritePump, the only writer on the socket.
type User struct {
	ID          string
	Connection  *websocket.Conn
	RateLimiter *rate.Limiter

	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
	pingPeriod   time.Duration
	logger       *slog.Logger
}

// New wraps an upgraded connection. Zero queue, timeout and ping fields fall back to
// DefaultOptions; the rate limiter is off unless MessagesPerSecond > 0.
func New(conn *websocket.Conn, opts Options, logger *slog.Logger) *User {
	def := DefaultOptions()
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = def.WriteTimeout
	}
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = def.PingPeriod
	}
	if logger == nil {
		logger = slog.Default()
	}

	u := &User{
		ID:           GenerateUUID(),
		Connection:   conn,
		send:         make(chan []byte, opts.QueueSize),
		done:         make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
		pingPeriod:   opts.PingPeriod,
	}
	if opts.MessagesPerSecond > 0 {
		burst := opts.BurstSize
		if burst <= 0 {
			burst = 1
		}
		u.RateLimiter = rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), burst)
	}
	u.logger = logger.With("user", u.ID)
	return u
}

// Send queues msg without blocking. A full queue counts as a failed send.
func (u *User) Send(msg []byte) error {
	select {
	case <-u.done:
		return ErrConnClosed
	default:
	}

	select {
	case u.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Allow: reports whether the next inbound frame fits the rate limit
func (u *User) Allow() bool {
	return u.RateLimiter == nil || u.RateLimiter.Allow()
}

// WritePump drains the send queue and keeps the connection alive with pings.
// It returns, closing the connection, on the first write error or after Close.
func (u *User) WritePump() {
	ticker := time.NewTicker(u.pingPeriod)
	defer func() {
		ticker.Stop()
		u.Close()
	}()

	for {
		select {
		case msg := <-u.send:
			u.Connection.SetWriteDeadline(time.Now().Add(u.writeTimeout))
			if err := u.Connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				u.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			u.Connection.SetWriteDeadline(time.Now().Add(u.writeTimeout))
			if err := u.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				u.logger.Debug("ping failed", "error", err)
				return
			}
		case <-u.done:
			return
		}
	}
}

// Close: idempotent; unblocks WritePump and the reader
func (u *User) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)
		err = u.Connection.Close()
	})
	return err
}

// Done is closed once the connection is closed
func (u *User) Done() <-chan struct{} {
	return u.done
}

// GenerateUUID generates a random ID for log correlation
func GenerateUUID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
