package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Trandev/Medlink/internal/kafka"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*model.Message, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MarkRead(ctx context.Context, readerID, senderID uuid.UUID) (int64, error)
	MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]model.Message, error)
	Conversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
}

type MessageRepo struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create persists the message and queues the sent event in the same
// database transaction, so the relay never publishes a message that was
// rolled back.
func (mr *MessageRepo) Create(ctx context.Context, msg *model.Message) error {
	tx, err := mr.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning message insert: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (sender_id, receiver_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, read, created_at, updated_at`,
		msg.Sender, msg.Receiver, msg.Content,
	).Scan(&msg.ID, &msg.Read, &msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating message: %w", err)
	}

	payload, _ := json.Marshal(types.MessageSentEvent{
		MessageID:  msg.ID.String(),
		SenderID:   msg.Sender.String(),
		ReceiverID: msg.Receiver.String(),
		SentAt:     msg.CreatedAt,
	})
	if _, err := tx.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, 'pending')`,
		kafka.EventMessageSent, payload, msg.Sender.String()); err != nil {
		return fmt.Errorf("queueing message event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing message insert: %w", err)
	}
	return nil
}

func (mr *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Message, error) {
	var m model.Message
	err := mr.db.QueryRow(ctx, `
		SELECT id, sender_id, receiver_id, content, read, created_at, updated_at
		FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.Read, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", id, err)
	}
	return &m, nil
}

func (mr *MessageRepo) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*model.Message, error) {
	var m model.Message
	err := mr.db.QueryRow(ctx, `
		UPDATE messages SET content = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, sender_id, receiver_id, content, read, created_at, updated_at`,
		id, content,
	).Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.Read, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating message %s: %w", id, err)
	}
	return &m, nil
}

func (mr *MessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := mr.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting message %s: %w", id, err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MarkRead flips all unread messages from senderID to readerID. Re-running
// it affects zero rows.
func (mr *MessageRepo) MarkRead(ctx context.Context, readerID, senderID uuid.UUID) (int64, error) {
	res, err := mr.db.Exec(ctx, `
		UPDATE messages SET read = TRUE, updated_at = NOW()
		WHERE receiver_id = $1 AND sender_id = $2 AND read = FALSE`,
		readerID, senderID)
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}
	return res.RowsAffected(), nil
}

func (mr *MessageRepo) MessagesBetween(ctx context.Context, a, b uuid.UUID) ([]model.Message, error) {
	rows, err := mr.db.Query(ctx, `
		SELECT id, sender_id, receiver_id, content, read, created_at, updated_at
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC`, a, b)
	if err != nil {
		return nil, fmt.Errorf("fetching conversation history: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Sender, &m.Receiver, &m.Content, &m.Read, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Conversations derives the per-counterparty inbox view: latest message per
// partner plus the unread count. Nothing is persisted for this view.
func (mr *MessageRepo) Conversations(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	rows, err := mr.db.Query(ctx, `
		WITH exchanged AS (
			SELECT m.id, m.sender_id, m.receiver_id, m.content, m.read, m.created_at, m.updated_at,
			       CASE WHEN m.sender_id = $1 THEN m.receiver_id ELSE m.sender_id END AS partner_id
			FROM messages m
			WHERE m.sender_id = $1 OR m.receiver_id = $1
		),
		latest AS (
			SELECT DISTINCT ON (partner_id) *
			FROM exchanged
			ORDER BY partner_id, created_at DESC
		)
		SELECT l.partner_id, u.username,
		       l.id, l.sender_id, l.receiver_id, l.content, l.read, l.created_at, l.updated_at,
		       (SELECT COUNT(*) FROM messages
		        WHERE receiver_id = $1 AND sender_id = l.partner_id AND read = FALSE) AS unread
		FROM latest l
		JOIN users u ON u.id = l.partner_id
		ORDER BY l.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetching conversations: %w", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.PartnerID, &c.Partner,
			&c.LastMessage.ID, &c.LastMessage.Sender, &c.LastMessage.Receiver,
			&c.LastMessage.Content, &c.LastMessage.Read,
			&c.LastMessage.CreatedAt, &c.LastMessage.UpdatedAt,
			&c.UnreadCount); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
