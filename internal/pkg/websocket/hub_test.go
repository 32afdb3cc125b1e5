package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID int64, buffer int) *Client {
	return &Client{hub: h, userID: userID, send: make(chan []byte, buffer), logger: zerolog.Nop()}
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zerolog.Nop())
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func receive(t *testing.T, c *Client) Event {
	t.Helper()
	select {
	case raw, ok := <-c.send:
		require.True(t, ok, "channel closed")
		var ev Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHub_SendToUserReachesOnlyThatUser(t *testing.T) {
	h := startHub(t)
	a1 := newTestClient(h, 1, 4)
	a2 := newTestClient(h, 1, 4)
	b := newTestClient(h, 2, 4)
	h.register <- a1
	h.register <- a2
	h.register <- b

	h.SendToUser(1, EventNotification, map[string]string{"title": "Guidance Office Notice"})

	assert.Equal(t, EventNotification, receive(t, a1).Type)
	assert.Equal(t, EventNotification, receive(t, a2).Type)
	select {
	case <-b.send:
		t.Fatal("user 2 should not receive user 1 events")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, h.ClientCount(1))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := startHub(t)
	slow := newTestClient(h, 5, 1)
	h.register <- slow

	h.SendToUser(5, EventNotification, "first")
	h.SendToUser(5, EventNotification, "second")

	assert.Eventually(t, func() bool { return h.ClientCount(5) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, 3, 1)
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestHub_SendAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub(zerolog.Nop())
	go h.Run()
	h.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.SendToUser(1, EventNotification, i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SendToUser blocked after Stop")
	}
}

type fakeReader struct {
	marked  []int64
	unread  int64
	failErr error
}

func (f *fakeReader) MarkAsRead(_ context.Context, _ int64, id int64) error {
	f.marked = append(f.marked, id)
	return f.failErr
}

func (f *fakeReader) MarkAllAsRead(context.Context, int64) (int64, error) {
	return 3, f.failErr
}

func (f *fakeReader) UnreadCount(context.Context, int64) (int64, error) {
	return f.unread, nil
}

func TestMessageHandler_MarkReadPushesUnreadCount(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, 9, 4)
	h.register <- c

	reader := &fakeReader{unread: 2}
	mh := NewMessageHandler(reader, h, zerolog.Nop())
	mh.Handle(9, Command{Type: CommandMarkRead, NotificationID: 44})

	assert.Equal(t, []int64{44}, reader.marked)
	ev := receive(t, c)
	assert.Equal(t, EventUnreadCount, ev.Type)
	assert.Equal(t, map[string]interface{}{"count": float64(2)}, ev.Data)
}

func TestMessageHandler_FailureSendsNothing(t *testing.T) {
	h := startHub(t)
	c := newTestClient(h, 9, 4)
	h.register <- c

	mh := NewMessageHandler(&fakeReader{failErr: errors.New("boom")}, h, zerolog.Nop())
	mh.Handle(9, Command{Type: CommandMarkAllRead})

	select {
	case <-c.send:
		t.Fatal("no event expected")
	case <-time.After(50 * time.Millisecond):
	}
}
