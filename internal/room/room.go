package room

import (
	"fmt"
	"log/slog"
	"sync"
)

// Room is the single shared drawing surface.
//
// All history and connection bookkeeping funnels through one mutex: a joiner's
// snapshot and every live broadcast are ordered against each other, so an event is
// delivered to a client either in its history message or live, exactly once.
type Room struct {
	history      *History
	conns        *Registry
	broadcaster  *Broadcaster
	synchronizer *Synchronizer
	logger       *slog.Logger
	mu           sync.Mutex
}

func New(logger *slog.Logger) *Room {
	if logger == nil {
		logger = slog.Default()
	}
	return &Room{
		history:      NewHistory(),
		conns:        NewRegistry(),
		broadcaster:  NewBroadcaster(logger),
		synchronizer: NewSynchronizer(),
		logger:       logger,
	}
}

// OnConnect: registers c and sends it the current history.
// If the history cannot be handed over, c is unregistered and closed.
func (r *Room) OnConnect(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns.Register(c)

	if err := r.synchronizer.SyncNewUser(r.history, c); err != nil {
		r.conns.Unregister(c)
		c.Close()
		return fmt.Errorf("sync new connection: %w", err)
	}

	r.logger.Debug("connection joined", "connections", r.conns.Len(), "history", r.history.Len())
	return nil
}

// OnMessage: folds a client frame into the history and relays the original bytes to
// everyone else. A malformed frame, or one from a connection no longer registered, is
// returned as an error and goes nowhere.
func (r *Room) OnMessage(sender Conn, raw []byte) error {
	event, err := ParseEvent(raw)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// a pruned connection may still have frames buffered in its reader
	if !r.conns.Has(sender) {
		return ErrNotRegistered
	}

	r.history.Append(event)

	failed := r.broadcaster.Broadcast(r.conns, event.Raw, sender)
	for _, c := range failed {
		r.conns.Unregister(c)
		c.Close()
	}
	if len(failed) > 0 {
		r.logger.Info("pruned failed connections", "count", len(failed), "connections", r.conns.Len())
	}

	return nil
}

// OnDisconnect: removes c. Safe to call for a connection that was already pruned.
func (r *Room) OnDisconnect(c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conns.Unregister(c) {
		r.logger.Debug("connection left", "connections", r.conns.Len())
	}
}

// CloseAll: closes and forgets every connection (server shutdown)
func (r *Room) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []Conn
	r.conns.ForEachOther(nil, func(c Conn) { all = append(all, c) })
	for _, c := range all {
		r.conns.Unregister(c)
		c.Close()
	}
}

// ConnectionCount: returns number of attached connections
func (r *Room) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.conns.Len()
}

// HistoryLen: returns number of events a new joiner would receive
func (r *Room) HistoryLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.history.Len()
}
