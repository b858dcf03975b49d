package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Trandev/Medlink/internal/database"
	"github.com/Trandev/Medlink/internal/kafka"
	"github.com/Trandev/Medlink/internal/redis"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/rs/zerolog"
)

// notifyHandler stamps notified_at on the settled transaction so support
// can see which credits the user was told about. Delivery channels (push,
// email) hang off this worker later; the stamp is what the core owns.
func notifyHandler(db *database.Database, redisClient *redis.Client, log *zerolog.Logger) kafka.Handler {
	return func(ctx context.Context, msg *kafka.Message) error {
		log.Info().Str("topic", msg.Topic).Int64("offset", msg.Offset).Msg("processing credit notification")

		var event types.FundsCreditedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal credit event")
			// Malformed payloads never become parseable; don't retry.
			return nil
		}

		processed, err := redisClient.GetIdempotencyKey(ctx, "notify:"+event.TransactionRef)
		if err == nil && processed != "" {
			log.Info().Str("transaction_ref", event.TransactionRef).Msg("notification already processed, skipping")
			return nil
		}

		res, err := db.Pool.Exec(ctx, `
			UPDATE transactions
			SET notified_at = NOW(), updated_at = NOW()
			WHERE transaction_id = $1 AND notified_at IS NULL`,
			event.TransactionRef)
		if err != nil {
			log.Error().Err(err).Str("transaction_ref", event.TransactionRef).Msg("failed to stamp notification")
			return err
		}
		if res.RowsAffected() == 0 {
			log.Info().Str("transaction_ref", event.TransactionRef).Msg("transaction already notified")
		} else {
			log.Info().Str("transaction_ref", event.TransactionRef).Int64("amount", event.Amount).Msg("credit notification recorded")
		}

		if err := redisClient.SetIdempotencyKey(ctx, "notify:"+event.TransactionRef, 30*time.Minute); err != nil {
			log.Warn().Err(err).Msg("failed to set idempotency key")
		}
		return nil
	}
}
