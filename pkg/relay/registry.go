// Package relay consumes the map channel from the broker and fans every
// message out to the connected WebSocket clients.
package relay

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Sender is one connected client able to receive a text payload. Send
// may be called concurrently with sends to other clients but never
// concurrently for the same client from the registry.
type Sender interface {
	Send(payload []byte) error
}

// Registry tracks the live client connections. Join and Leave may run
// concurrently with a broadcast in flight: a broadcast delivers to the
// snapshot of members taken when it starts, so a client joining
// mid-broadcast may or may not see that particular message.
type Registry struct {
	log *logrus.Logger

	mu    sync.RWMutex
	conns map[Sender]struct{}

	broadcasts uint64
	sendErrors uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logrus.Logger) *Registry {
	return &Registry{
		log:   log,
		conns: make(map[Sender]struct{}),
	}
}

// Join adds a client connection.
func (r *Registry) Join(c Sender) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	count := len(r.conns)
	r.mu.Unlock()
	r.log.Infof("new client connection opened, clients active: %d", count)
}

// Leave removes a client connection. Removing a client that already left
// is a no-op.
func (r *Registry) Leave(c Sender) {
	r.mu.Lock()
	delete(r.conns, c)
	count := len(r.conns)
	r.mu.Unlock()
	r.log.Infof("client connection closed, clients active: %d", count)
}

// Count returns the number of connected clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Broadcast sends a payload to every client in the current snapshot.
// Sends are fire-and-forget per client: a slow or stale client cannot
// stall the others, and a failed send does not remove the client (its
// own read loop tears the connection down).
func (r *Registry) Broadcast(payload []byte) {
	r.mu.RLock()
	snapshot := make([]Sender, 0, len(r.conns))
	for c := range r.conns {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	atomic.AddUint64(&r.broadcasts, 1)
	for _, c := range snapshot {
		go func(c Sender) {
			if err := c.Send(payload); err != nil {
				atomic.AddUint64(&r.sendErrors, 1)
				r.log.Debugf("client send failed: %v", err)
			}
		}(c)
	}
}

// Stats returns current counters.
func (r *Registry) Stats() map[string]interface{} {
	return map[string]interface{}{
		"clients":     r.Count(),
		"broadcasts":  atomic.LoadUint64(&r.broadcasts),
		"send_errors": atomic.LoadUint64(&r.sendErrors),
	}
}
