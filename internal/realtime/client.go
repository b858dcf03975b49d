package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Trandev/Medlink/internal/auth"
	"github.com/Trandev/Medlink/internal/message"
	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBufferSize = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set an Authorization header on a websocket
	// handshake, so the token travels as a query parameter and origin
	// checking is left to the deployment's proxy.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// Client is one websocket session bound to an authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan outEvent
	logger zerolog.Logger
}

// Handler upgrades HTTP requests to websocket sessions and routes
// client-initiated events into the message service.
type Handler struct {
	hub       *Hub
	messages  *message.MessageService
	jwtSecret []byte
	logger    zerolog.Logger
}

func NewHandler(hub *Hub, messages *message.MessageService, jwtSecret string, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:       hub,
		messages:  messages,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// ServeWS authenticates the handshake and registers the session. A missing,
// malformed, or expired token closes the connection before the hub ever
// sees it.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}

	userID, err := auth.ValidateUserJWT(token, h.jwtSecret)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket handshake rejected")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:    h.hub,
		conn:   conn,
		userID: userID,
		send:   make(chan outEvent, sendBufferSize),
		logger: h.logger.With().Str("user_id", userID.String()).Logger(),
	}
	h.hub.register(client)

	go client.writePump()
	go client.readPump(h)
}

func (c *Client) readPump(h *Handler) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var evt inEvent
		if err := c.conn.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		h.dispatch(c, evt)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one client event. The acting identity is always the
// session's user id; ids inside the payload are never trusted for
// authorization.
func (h *Handler) dispatch(c *Client, evt inEvent) {
	ctx := middleware.WithLogger(context.Background(), &c.logger)

	switch evt.Event {
	case eventSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.sendError(evt.Event, "invalid payload")
			return
		}
		if _, err := h.messages.Send(ctx, c.userID, data.ReceiverID, data.Content); err != nil {
			c.logger.Warn().Err(err).Msg("send-message rejected")
			c.sendError(evt.Event, err.Error())
		}

	case eventEditMessage:
		var data editMessageData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.sendError(evt.Event, "invalid payload")
			return
		}
		if _, err := h.messages.Edit(ctx, c.userID, data.MessageID, data.Content); err != nil {
			c.logger.Warn().Err(err).Msg("edit-message rejected")
			c.sendError(evt.Event, err.Error())
		}

	case eventDeleteMessage:
		var data deleteMessageData
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			c.sendError(evt.Event, "invalid payload")
			return
		}
		if err := h.messages.Delete(ctx, c.userID, data.MessageID); err != nil {
			c.logger.Warn().Err(err).Msg("delete-message rejected")
			c.sendError(evt.Event, err.Error())
		}

	default:
		c.logger.Debug().Str("event", evt.Event).Msg("unknown client event")
		c.sendError(evt.Event, "unknown event")
	}
}

// sendError reports a rejected event back to the offending session only.
func (c *Client) sendError(event, reason string) {
	select {
	case c.send <- outEvent{Event: "error", Data: map[string]string{"event": event, "message": reason}}:
	default:
	}
}
