package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"linkchat/service/metrics"
)

// transport is the write surface of one live websocket connection.
// *websocket.Conn satisfies it; tests substitute fakes.
type transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one live connection bound to an authenticated identity.
// A user with several devices holds several Clients at once.
type Client struct {
	ID          string
	UserID      int64
	Username    string
	ConnectedAt time.Time

	conn     transport
	deadline time.Duration

	// set once the online presence broadcast for this connection has
	// gone out; close paths only retract what was announced
	announced atomic.Bool

	// gorilla websockets do not allow concurrent writers
	writeMu sync.Mutex
}

func NewClient(id string, userID int64, username string, conn transport, deadline time.Duration) *Client {
	return &Client{
		ID:          id,
		UserID:      userID,
		Username:    username,
		ConnectedAt: time.Now(),
		conn:        conn,
		deadline:    deadline,
	}
}

func (c *Client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.deadline))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) close() {
	_ = c.conn.Close()
}

// Registry is the in-memory connection registry. Lock discipline: the
// RWMutex guards only the two indexes; no network write ever happens
// under it. Fan-outs snapshot the matching clients under RLock and then
// iterate the copy, so concurrent register/evict cannot corrupt or skip
// an in-flight broadcast.
type Registry struct {
	mu     sync.RWMutex
	byUser map[int64]map[string]*Client // user id -> conn id -> client
	byID   map[string]*Client           // conn id -> client

	// onEvict fires after a dead handle is removed, outside the lock.
	// The server hooks it to announce offline when the identity's last
	// connection is gone.
	onEvict func(c *Client, remaining int)
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]map[string]*Client),
		byID:   make(map[string]*Client),
	}
}

// Register adds a connection. Never rejects: multi-device is allowed.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.byUser[c.UserID]
	if m == nil {
		m = make(map[string]*Client)
		r.byUser[c.UserID] = m
	}
	m[c.ID] = c
	r.byID[c.ID] = c
	metrics.LiveConnections.Inc()
}

// Unregister removes a connection by id. Idempotent; safe after the
// handle is already gone. Returns the removed client (nil if absent) and
// how many connections the same identity still holds, so the caller can
// decide whether the user just went offline.
func (r *Registry) Unregister(connID string) (*Client, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[connID]
	if !ok {
		return nil, 0
	}
	delete(r.byID, connID)
	remaining := 0
	if m := r.byUser[c.UserID]; m != nil {
		delete(m, connID)
		remaining = len(m)
		if remaining == 0 {
			delete(r.byUser, c.UserID)
		}
	}
	metrics.LiveConnections.Dec()
	return c, remaining
}

// IsOnline reports whether at least one connection exists for the user.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

func (r *Registry) snapshotUser(userID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.byUser[userID]
	if len(m) == 0 {
		return nil
	}
	out := make([]*Client, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	return out
}

func (r *Registry) snapshotAll() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// Send delivers the payload best-effort to every connection of the user.
// A handle whose write fails is treated as dead and evicted on the spot;
// it is never retried. Returns the number of successful deliveries.
func (r *Registry) Send(userID int64, payload []byte) int {
	delivered := 0
	for _, c := range r.snapshotUser(userID) {
		if err := c.write(payload); err != nil {
			r.evict(c)
			continue
		}
		delivered++
	}
	return delivered
}

// Broadcast delivers the payload to every connection satisfying pred
// (nil means all). Same dead-handle eviction rule as Send.
func (r *Registry) Broadcast(payload []byte, pred func(*Client) bool) int {
	delivered := 0
	for _, c := range r.snapshotAll() {
		if pred != nil && !pred(c) {
			continue
		}
		if err := c.write(payload); err != nil {
			r.evict(c)
			continue
		}
		delivered++
	}
	return delivered
}

// SetEvictHook installs the dead-handle callback. Call before the
// registry is shared; not synchronized.
func (r *Registry) SetEvictHook(hook func(c *Client, remaining int)) {
	r.onEvict = hook
}

func (r *Registry) evict(c *Client) {
	removed, remaining := r.Unregister(c.ID)
	c.close()
	if removed == nil {
		return
	}
	metrics.DeadHandleEvictions.Inc()
	if r.onEvict != nil {
		r.onEvict(removed, remaining)
	}
}

// Close tears down every connection, registry first so late writers see
// an empty index.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Client, 0, len(r.byID))
	for _, c := range r.byID {
		all = append(all, c)
	}
	r.byUser = make(map[int64]map[string]*Client)
	r.byID = make(map[string]*Client)
	r.mu.Unlock()

	for _, c := range all {
		c.close()
		metrics.LiveConnections.Dec()
	}
}
