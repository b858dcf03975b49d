package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID uuid.UUID) *Client {
	return &Client{
		hub:    h,
		userID: userID,
		send:   make(chan outEvent, sendBufferSize),
		logger: zerolog.Nop(),
	}
}

func drain(c *Client) []outEvent {
	var out []outEvent
	for {
		select {
		case evt := <-c.send:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestHubEmitReachesAllSessionsOfOneUser(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	userID := uuid.New()
	otherID := uuid.New()

	phone := newTestClient(hub, userID)
	laptop := newTestClient(hub, userID)
	other := newTestClient(hub, otherID)
	hub.register(phone)
	hub.register(laptop)
	hub.register(other)

	hub.Emit(userID, "receive-message", map[string]string{"content": "hi"})

	require.Len(t, drain(phone), 1)
	require.Len(t, drain(laptop), 1)
	assert.Empty(t, drain(other), "emit must stay on the target user's channel")
}

func TestHubEmitToUnknownUserIsNoOp(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Emit(uuid.New(), "receive-message", nil)
}

func TestHubLastSessionDisconnectBroadcasts(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	leaving := uuid.New()

	first := newTestClient(hub, leaving)
	second := newTestClient(hub, leaving)
	watcher := newTestClient(hub, uuid.New())
	hub.register(first)
	hub.register(second)
	hub.register(watcher)

	hub.unregister(first)
	assert.Empty(t, drain(watcher), "no broadcast while other sessions remain")
	assert.True(t, hub.Connected(leaving))

	hub.unregister(second)
	events := drain(watcher)
	require.Len(t, events, 1)
	assert.Equal(t, EventUserDisconnected, events[0].Event)
	assert.False(t, hub.Connected(leaving))
}

func TestHubUnregisterTwiceIsSafe(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	c := newTestClient(hub, uuid.New())
	hub.register(c)

	hub.unregister(c)
	hub.unregister(c)
}
