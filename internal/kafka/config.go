package kafka

import (
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Topic names for all Kafka topics used by the platform.
const (
	TopicPaymentCompleted = "medlink.payment.completed"
	TopicFundsCredited    = "medlink.funds.credited"
	TopicMessageSent      = "medlink.message.sent"

	TopicDLQ = "medlink.dlq"
)

// Event types stored in the outbox table.
const (
	EventPaymentCompleted = "medlink.payment.completed"
	EventFundsCredited    = "medlink.funds.credited"
	EventMessageSent      = "medlink.message.sent"
)

// Consumer group names.
const (
	GroupNotifyWorker = "medlink.notify.worker"
)

type Config struct {
	Brokers           []string
	RequiredAcks      kgo.Acks
	ProducerTimeout   time.Duration
	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
}

func DefaultConfig(brokers []string) *Config {
	return &Config{
		Brokers:           brokers,
		RequiredAcks:      kgo.AllISRAcks(),
		ProducerTimeout:   10 * time.Second,
		SessionTimeout:    30 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      time.Second,
	}
}
