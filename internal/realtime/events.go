package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Client-initiated events. Each mutation maps to the same service method
// the REST API uses, with the acting identity taken from the session.
const (
	eventSendMessage   = "send-message"
	eventEditMessage   = "edit-message"
	eventDeleteMessage = "delete-message"
)

// inEvent is the envelope clients write to the socket.
type inEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outEvent is the envelope the hub writes to clients.
type outEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type sendMessageData struct {
	ReceiverID uuid.UUID `json:"receiver_id"`
	Content    string    `json:"content"`
}

type editMessageData struct {
	MessageID uuid.UUID `json:"message_id"`
	Content   string    `json:"content"`
}

type deleteMessageData struct {
	MessageID uuid.UUID `json:"message_id"`
}
