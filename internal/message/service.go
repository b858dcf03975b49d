package message

import (
	"context"
	"strings"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/google/uuid"
)

// Realtime event names delivered to participant channels.
const (
	EventReceiveMessage = "receive-message"
	EventMessageEdited  = "message-edited"
	EventMessageDeleted = "message-deleted"
)

// Emitter delivers an event to every live session on a user's channel.
// The websocket hub implements it; tests substitute a recorder.
type Emitter interface {
	Emit(userID uuid.UUID, event string, payload any)
}

type MessageService struct {
	repo    MessageRepository
	emitter Emitter
}

func NewMessageService(repo MessageRepository, emitter Emitter) *MessageService {
	return &MessageService{repo: repo, emitter: emitter}
}

// fanOut sends the event to both participants. The sender's own channel is
// included so their other open sessions stay in sync.
func (ms *MessageService) fanOut(event string, msg *model.Message, payload any) {
	ms.emitter.Emit(msg.Sender, event, payload)
	if msg.Receiver != msg.Sender {
		ms.emitter.Emit(msg.Receiver, event, payload)
	}
}

// Send persists the message, then emits receive-message to both
// participants. Nothing is emitted when persistence fails.
func (ms *MessageService) Send(ctx context.Context, senderID, receiverID uuid.UUID, content string) (*model.Message, error) {
	logger := middleware.GetLogger(ctx)

	content = strings.TrimSpace(content)
	if content == "" || receiverID == uuid.Nil {
		return nil, model.ErrInvalidInput
	}
	if senderID == receiverID {
		return nil, model.ErrInvalidInput
	}

	msg := &model.Message{
		Sender:   senderID,
		Receiver: receiverID,
		Content:  content,
	}
	if err := ms.repo.Create(ctx, msg); err != nil {
		return nil, err
	}

	ms.fanOut(EventReceiveMessage, msg, msg)
	logger.Debug().Str("message_id", msg.ID.String()).Str("receiver_id", receiverID.String()).Msg("message delivered")
	return msg, nil
}

// Edit replaces the content of the actor's own message. Only the original
// sender may edit; ownership is checked against the stored row, never
// against anything the client claims.
func (ms *MessageService) Edit(ctx context.Context, actorID, messageID uuid.UUID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrInvalidInput
	}

	existing, err := ms.repo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if existing.Sender != actorID {
		return nil, model.ErrForbidden
	}

	updated, err := ms.repo.UpdateContent(ctx, messageID, content)
	if err != nil {
		return nil, err
	}

	ms.fanOut(EventMessageEdited, updated, updated)
	return updated, nil
}

// Delete removes the actor's own message and notifies both participants.
func (ms *MessageService) Delete(ctx context.Context, actorID, messageID uuid.UUID) error {
	existing, err := ms.repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if existing.Sender != actorID {
		return model.ErrForbidden
	}

	if err := ms.repo.Delete(ctx, messageID); err != nil {
		return err
	}

	ms.fanOut(EventMessageDeleted, existing, map[string]string{"message_id": messageID.String()})
	return nil
}

// MarkRead marks every unread message from senderID to the reader as read.
// Read receipts carry no realtime event.
func (ms *MessageService) MarkRead(ctx context.Context, readerID, senderID uuid.UUID) (int64, error) {
	if senderID == uuid.Nil {
		return 0, model.ErrInvalidInput
	}
	return ms.repo.MarkRead(ctx, readerID, senderID)
}

// History returns the full exchange between the caller and one partner,
// oldest first.
func (ms *MessageService) History(ctx context.Context, userID, partnerID uuid.UUID) ([]model.Message, error) {
	if partnerID == uuid.Nil {
		return nil, model.ErrInvalidInput
	}
	return ms.repo.MessagesBetween(ctx, userID, partnerID)
}

func (ms *MessageService) Conversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	return ms.repo.Conversations(ctx, userID)
}
