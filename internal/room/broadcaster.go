package room

import (
	"log/slog"
)

// Broadcaster: best-effort fan-out of one payload to the registered connections
type Broadcaster struct {
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// Broadcast: sends msg to every connection except the sender and returns the ones that failed.
// One failing recipient never stops delivery to the rest.
func (b *Broadcaster) Broadcast(conns *Registry, msg []byte, sender Conn) []Conn {
	var failed []Conn

	conns.ForEachOther(sender, func(c Conn) {
		if err := c.Send(msg); err != nil {
			b.logger.Warn("broadcast failed", "error", err)
			failed = append(failed, c)
		}
	})

	return failed
}
