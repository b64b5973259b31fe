package room

import (
	"encoding/json"
	"fmt"
)

// historyMessage is the first frame every client receives
type historyMessage struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// Synchronizer: sends the current board to a newly joined connection
type Synchronizer struct{}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// SyncNewUser: sends one history message carrying the log snapshot
func (s *Synchronizer) SyncNewUser(h *History, c Conn) error {
	msgBytes, err := json.Marshal(historyMessage{Type: "history", Data: h.Snapshot()})
	if err != nil {
		return fmt.Errorf("failed to marshal history message: %w", err)
	}

	if err := c.Send(msgBytes); err != nil {
		return fmt.Errorf("failed to send history message: %w", err)
	}

	return nil
}
