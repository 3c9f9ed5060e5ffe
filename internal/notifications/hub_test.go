package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	a, err := hub.Register(10, nil)
	require.NoError(t, err)
	b, err := hub.Register(10, nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline(10))
	assert.Equal(t, 2, hub.ConnectionCount())

	hub.UnregisterClient(a)
	assert.True(t, hub.IsOnline(10))
	hub.UnregisterClient(b)
	assert.False(t, hub.IsOnline(10))
	assert.Equal(t, 0, hub.ConnectionCount())

	// Second unregister is ignored.
	hub.UnregisterClient(b)
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(3, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(3, nil)
	assert.ErrorIs(t, err, ErrUserConnLimit)

	_, err = hub.Register(4, nil)
	assert.NoError(t, err)
}

func TestHub_BroadcastTargetsOneUser(t *testing.T) {
	hub := NewHub()
	alice, err := hub.Register(1, nil)
	require.NoError(t, err)
	bob, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.Broadcast(1, `{"type":"ping"}`)

	select {
	case msg := <-alice.outbox:
		assert.JSONEq(t, `{"type":"ping"}`, string(msg))
	default:
		t.Fatal("expected message for user 1")
	}
	assert.Empty(t, bob.outbox)
}

func TestClient_DeliverDropsWhenFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(5, nil)
	require.NoError(t, err)

	for i := 0; i < sendBuffer; i++ {
		assert.True(t, c.Deliver([]byte("x")))
	}
	assert.False(t, c.Deliver([]byte("overflow")))
	assert.Len(t, c.outbox, sendBuffer)
}

func TestHub_ShutdownRejectsRegister(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, c.Deliver([]byte("late")), "closed clients refuse messages")

	_, err = hub.Register(1, nil)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.NoError(t, hub.Shutdown(context.Background()))
}

type frame struct {
	kind int
	data []byte
}

// fakeConn blocks reads until Close and records writes.
type fakeConn struct {
	mu     sync.Mutex
	writes []frame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("use of closed connection")
}

func (f *fakeConn) WriteMessage(kind int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, frame{kind, append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) frames() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.writes...)
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func TestClient_ServeDeliversAndClosesOnShutdown(t *testing.T) {
	hub := NewHub()
	conn := newFakeConn()
	client, err := hub.Register(9, conn)
	require.NoError(t, err)

	served := make(chan struct{})
	go func() {
		client.Serve()
		close(served)
	}()

	hub.Broadcast(9, `{"type":"recipe_created"}`)
	require.Eventually(t, func() bool { return len(conn.frames()) == 1 }, testEventuallyTimeout, testPollInterval)
	assert.Equal(t, websocket.TextMessage, conn.frames()[0].kind)

	require.NoError(t, hub.Shutdown(context.Background()))
	select {
	case <-served:
	case <-time.After(testEventuallyTimeout):
		t.Fatal("Serve did not return after shutdown")
	}
	frames := conn.frames()
	assert.Equal(t, websocket.CloseMessage, frames[len(frames)-1].kind)
	assert.False(t, hub.IsOnline(9))
}
