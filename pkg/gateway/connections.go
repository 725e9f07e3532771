// Package gateway pkg/gateway/connections.go tracks live client connections
// and their config subscriptions.
package gateway

import (
	"sync"
	"sync/atomic"
)

// Conn is the write surface of one live connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// client is one authenticated connection. The mutex serializes writes, since
// a connection may receive broadcasts from several consumer goroutines at
// once.
type client struct {
	conn   Conn
	userID string
	orgID  string

	writeMu sync.Mutex
	closed  atomic.Bool
}

func (c *client) send(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	return c.conn.WriteJSON(v)
}

// registry holds the two connection indexes: user to connections, and config
// id to subscribed connections. A connection always appears in the user
// index; it appears in the config index only while subscribed.
type registry struct {
	mu            sync.RWMutex
	byUser        map[string]map[*client]bool
	byConfig      map[string]map[*client]bool
	subscriptions map[*client]map[string]bool
}

func newRegistry() *registry {
	return &registry{
		byUser:        make(map[string]map[*client]bool),
		byConfig:      make(map[string]map[*client]bool),
		subscriptions: make(map[*client]map[string]bool),
	}
}

func (r *registry) add(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := r.byUser[c.userID]
	if conns == nil {
		conns = make(map[*client]bool)
		r.byUser[c.userID] = conns
	}

	conns[c] = true
	r.subscriptions[c] = make(map[string]bool)
}

// remove drops the connection from both indexes.
func (r *registry) remove(c *client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.byUser[c.userID]; ok {
		delete(conns, c)

		if len(conns) == 0 {
			delete(r.byUser, c.userID)
		}
	}

	for configID := range r.subscriptions[c] {
		r.dropSubscriptionLocked(c, configID)
	}

	delete(r.subscriptions, c)
}

func (r *registry) subscribe(c *client, configID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subs, ok := r.subscriptions[c]
	if !ok {
		// Connection already removed.
		return
	}

	subs[configID] = true

	conns := r.byConfig[configID]
	if conns == nil {
		conns = make(map[*client]bool)
		r.byConfig[configID] = conns
	}

	conns[c] = true
}

func (r *registry) unsubscribe(c *client, configID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscriptions[c], configID)
	r.dropSubscriptionLocked(c, configID)
}

func (r *registry) dropSubscriptionLocked(c *client, configID string) {
	if conns, ok := r.byConfig[configID]; ok {
		delete(conns, c)

		if len(conns) == 0 {
			delete(r.byConfig, configID)
		}
	}
}

// subscribers returns the connections subscribed to a config.
func (r *registry) subscribers(configID string) []*client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*client, 0, len(r.byConfig[configID]))
	for c := range r.byConfig[configID] {
		conns = append(conns, c)
	}

	return conns
}

// all returns every registered connection.
func (r *registry) all() []*client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*client, 0, len(r.subscriptions))
	for c := range r.subscriptions {
		conns = append(conns, c)
	}

	return conns
}

func (r *registry) counts() (users, connections, subscriptions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, subs := range r.subscriptions {
		subscriptions += len(subs)
	}

	return len(r.byUser), len(r.subscriptions), subscriptions
}
