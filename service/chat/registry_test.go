package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a test transport capturing writes.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errors.New("broken pipe")
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) frameTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, raw := range f.frames {
		var m map[string]any
		_ = json.Unmarshal(raw, &m)
		t, _ := m["type"].(string)
		out = append(out, t)
	}
	return out
}

func (f *fakeConn) lastFrame() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	var m map[string]any
	_ = json.Unmarshal(f.frames[len(f.frames)-1], &m)
	return m
}

func newTestClient(id string, userID int64, username string, conn *fakeConn) *Client {
	return NewClient(id, userID, username, conn, time.Second)
}

func TestRegistryMultiDevice(t *testing.T) {
	r := NewRegistry()
	phone := newTestClient("c1", 1, "sam", &fakeConn{})
	laptop := newTestClient("c2", 1, "sam", &fakeConn{})

	r.Register(phone)
	r.Register(laptop)
	assert.True(t, r.IsOnline(1))

	_, remaining := r.Unregister("c1")
	assert.Equal(t, 1, remaining)
	assert.True(t, r.IsOnline(1), "one device left, still online")

	_, remaining = r.Unregister("c2")
	assert.Equal(t, 0, remaining)
	assert.False(t, r.IsOnline(1))
}

func TestRegistryUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newTestClient("c1", 1, "sam", &fakeConn{})
	r.Register(c)

	removed, _ := r.Unregister("c1")
	require.NotNil(t, removed)

	removed, remaining := r.Unregister("c1")
	assert.Nil(t, removed)
	assert.Equal(t, 0, remaining)

	removed, _ = r.Unregister("never-existed")
	assert.Nil(t, removed)
}

func TestSendFansOutToAllDevices(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(newTestClient("c1", 1, "sam", a))
	r.Register(newTestClient("c2", 1, "sam", b))

	delivered := r.Send(1, []byte(`{"type":"message"}`))
	assert.Equal(t, 2, delivered)
	assert.Len(t, a.frames, 1)
	assert.Len(t, b.frames, 1)
}

func TestSendEvictsDeadHandles(t *testing.T) {
	r := NewRegistry()
	dead := &fakeConn{failWrites: true}
	alive := &fakeConn{}
	r.Register(newTestClient("c1", 1, "sam", dead))
	r.Register(newTestClient("c2", 1, "sam", alive))

	delivered := r.Send(1, []byte(`{}`))
	assert.Equal(t, 1, delivered)
	assert.True(t, dead.closed, "failed handle must be closed")
	assert.True(t, r.IsOnline(1), "healthy device survives")

	// the dead handle is gone, not retried
	delivered = r.Send(1, []byte(`{}`))
	assert.Equal(t, 1, delivered)
	assert.Len(t, alive.frames, 2)
}

func TestEvictHookFiresOnLastConnection(t *testing.T) {
	r := NewRegistry()
	var gone []string
	r.SetEvictHook(func(c *Client, remaining int) {
		if remaining == 0 {
			gone = append(gone, c.Username)
		}
	})

	dead := &fakeConn{failWrites: true}
	r.Register(newTestClient("c1", 1, "sam", dead))
	r.Send(1, []byte(`{}`))

	assert.Equal(t, []string{"sam"}, gone)
	assert.False(t, r.IsOnline(1))
}

func TestBroadcastPredicate(t *testing.T) {
	r := NewRegistry()
	sam, kim, joe := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.Register(newTestClient("c1", 1, "sam", sam))
	r.Register(newTestClient("c2", 2, "kim", kim))
	r.Register(newTestClient("c3", 3, "joe", joe))

	delivered := r.Broadcast([]byte(`{}`), func(c *Client) bool { return c.UserID != 2 })
	assert.Equal(t, 2, delivered)
	assert.Len(t, sam.frames, 1)
	assert.Empty(t, kim.frames)
	assert.Len(t, joe.frames, 1)

	delivered = r.Broadcast([]byte(`{}`), nil)
	assert.Equal(t, 3, delivered)
}

func TestBroadcastDuringChurn(t *testing.T) {
	// Registrations racing a broadcast must neither panic nor corrupt
	// the indexes; the snapshot discipline decouples them.
	r := NewRegistry()
	for i := 0; i < 16; i++ {
		r.Register(newTestClient(string(rune('a'+i)), int64(i), "u", &fakeConn{}))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.Register(newTestClient("extra", 99, "x", &fakeConn{}))
			r.Unregister("extra")
		}
	}()
	for i := 0; i < 100; i++ {
		r.Broadcast([]byte(`{}`), nil)
	}
	<-done
}

func TestCloseTearsDownEverything(t *testing.T) {
	r := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	r.Register(newTestClient("c1", 1, "sam", a))
	r.Register(newTestClient("c2", 2, "kim", b))

	r.Close()
	assert.True(t, a.closed)
	assert.True(t, b.closed)
	assert.False(t, r.IsOnline(1))
	assert.False(t, r.IsOnline(2))
}
