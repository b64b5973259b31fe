package room

// Conn is the room's view of one attached client.
// Send must not block; a non-nil error means the client is unusable.
type Conn interface {
	Send(msg []byte) error
	Close() error
}

// Registry: the set of attached connections, keyed by identity.
// Not safe for concurrent use; guarded by the Room mutex.
type Registry struct {
	conns map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[Conn]struct{})}
}

func (r *Registry) Register(c Conn) {
	r.conns[c] = struct{}{}
}

// Unregister removes c and reports whether it was registered
func (r *Registry) Unregister(c Conn) bool {
	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	return true
}

// Has reports whether c is registered
func (r *Registry) Has(c Conn) bool {
	_, ok := r.conns[c]
	return ok
}

// ForEachOther calls fn for every registered connection except exclude, in no particular order.
// fn must not register or unregister connections.
func (r *Registry) ForEachOther(exclude Conn, fn func(Conn)) {
	for c := range r.conns {
		if c == exclude {
			continue
		}
		fn(c)
	}
}

func (r *Registry) Len() int {
	return len(r.conns)
}
