package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EventUserDisconnected is broadcast when a user's last session closes.
const EventUserDisconnected = "user-disconnected"

// Hub tracks one channel per authenticated user. A channel holds every
// live session for that user, so a user chatting from two devices receives
// events on both. Channel names are user ids assigned at registration,
// never chosen by the client.
type Hub struct {
	mu       sync.RWMutex
	channels map[uuid.UUID]map[*Client]bool
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		channels: make(map[uuid.UUID]map[*Client]bool),
		logger:   logger,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions, ok := h.channels[c.userID]
	if !ok {
		sessions = make(map[*Client]bool)
		h.channels[c.userID] = sessions
	}
	sessions[c] = true
	h.logger.Info().Str("user_id", c.userID.String()).Int("sessions", len(sessions)).Msg("session joined")
}

// unregister drops one session. When it was the user's last one, the
// channel is removed and user-disconnected is broadcast to everyone else.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	sessions, ok := h.channels[c.userID]
	present := ok && sessions[c]
	if present {
		delete(sessions, c)
		if len(sessions) == 0 {
			delete(h.channels, c.userID)
		}
		// Closed under the lock so Emit never writes to a closed channel.
		close(c.send)
	}
	lastSession := present && len(sessions) == 0
	h.mu.Unlock()

	if lastSession {
		h.logger.Info().Str("user_id", c.userID.String()).Msg("user disconnected")
		h.Broadcast(EventUserDisconnected, map[string]string{"user_id": c.userID.String()})
	}
}

// Emit delivers an event to every session on one user's channel. Sessions
// with a full send buffer are dropped rather than blocking delivery to the
// rest.
func (h *Hub) Emit(userID uuid.UUID, event string, payload any) {
	h.mu.RLock()
	var stale []*Client
	for c := range h.channels[userID] {
		select {
		case c.send <- outEvent{Event: event, Data: payload}:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Warn().Str("user_id", c.userID.String()).Msg("dropping session with full send buffer")
		c.conn.Close()
	}
}

// Broadcast delivers an event to every connected session.
func (h *Hub) Broadcast(event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sessions := range h.channels {
		for c := range sessions {
			select {
			case c.send <- outEvent{Event: event, Data: payload}:
			default:
				// Slow session; its read pump will reap it.
			}
		}
	}
}

// Connected reports whether the user has at least one live session.
func (h *Hub) Connected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[userID]) > 0
}
