package outbox

import (
	"context"
	"time"

	"github.com/Trandev/Medlink/internal/kafka"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Relay drains pending outbox rows into Kafka. Rows are locked with SKIP
// LOCKED so multiple relay instances never double-publish, and a row is
// marked processed only after the broker acknowledged it.
type Relay struct {
	db        *pgxpool.Pool
	producer  *kafka.Producer
	logger    *zerolog.Logger
	batchSize int
	interval  time.Duration
}

func NewRelay(db *pgxpool.Pool, producer *kafka.Producer, logger *zerolog.Logger) *Relay {
	return &Relay{
		db:        db,
		producer:  producer,
		logger:    logger,
		batchSize: 100,
		interval:  10 * time.Second,
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.logger.Info().Msg("starting outbox relay")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("stopping outbox relay")
			return nil
		case <-ticker.C:
			if err := r.processBatch(ctx); err != nil {
				r.logger.Error().Err(err).Msg("failed to process outbox batch")
			}
		}
	}
}

func (r *Relay) processBatch(ctx context.Context) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, event_type, payload, partition_key
		FROM transaction_outbox
		WHERE status = 'pending'
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, r.batchSize)
	if err != nil {
		return err
	}

	var events []model.OutboxEvent
	for rows.Next() {
		var e model.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.PartitionKey); err != nil {
			rows.Close()
			return err
		}
		events = append(events, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}
	r.logger.Info().Int("count", len(events)).Msg("fetched outbox events")

	var processedIDs []int64
	for _, e := range events {
		topic := topicForEvent(e.EventType)
		if err := r.producer.Publish(ctx, topic, []byte(e.PartitionKey), e.Payload); err != nil {
			r.logger.Error().Err(err).Int64("event_id", e.ID).Str("event_type", e.EventType).Msg("failed to publish event")
			continue // stays pending for the next pass
		}
		processedIDs = append(processedIDs, e.ID)
	}

	if len(processedIDs) == 0 {
		return nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE transaction_outbox
		SET status = 'processed', updated_at = NOW()
		WHERE id = ANY($1)
	`, processedIDs); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func topicForEvent(eventType string) string {
	switch eventType {
	case kafka.EventPaymentCompleted:
		return kafka.TopicPaymentCompleted
	case kafka.EventFundsCredited:
		return kafka.TopicFundsCredited
	case kafka.EventMessageSent:
		return kafka.TopicMessageSent
	default:
		return kafka.TopicDLQ
	}
}
