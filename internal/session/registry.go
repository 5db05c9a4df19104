package session

import "sync"

// Conn is the live connection handle for one user: identity plus send/close.
// The websocket layer implements it; tests substitute fakes.
type Conn interface {
	UserID() string
	// Send queues one text frame. Returns an error when the connection is
	// gone or its buffer is full.
	Send(frame string) error
	// Close terminates the connection with a websocket close code.
	Close(code int, reason string) error
}

// Registry tracks the single live connection per user identity. A new
// connection for the same identity supersedes the previous one.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register stores c as the live connection for userID and returns the
// superseded connection, if any, so the caller can close it.
func (r *Registry) Register(userID string, c Conn) Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.conns[userID]
	r.conns[userID] = c
	return prev
}

// Unregister removes the entry only if it is still c. A stale unregister
// from a replaced connection must not evict the newer one.
func (r *Registry) Unregister(userID string, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.conns[userID]; ok && cur == c {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the live connection for userID.
func (r *Registry) Lookup(userID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[userID]
	return c, ok
}
