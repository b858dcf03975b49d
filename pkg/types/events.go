package types

import "time"

// Payloads for outbox rows relayed to Kafka.

type PaymentCompletedEvent struct {
	PaymentID   string `json:"payment_id"`
	UserID      string `json:"user_id"`
	DoctorID    string `json:"doctor_id"`
	Amount      int64  `json:"amount"`
	DoctorShare int64  `json:"doctor_share"`
	AdminShare  int64  `json:"admin_share"`
	ServiceType string `json:"service_type"`
}

type FundsCreditedEvent struct {
	TransactionRef string `json:"transaction_ref"`
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	ResponseCode   string `json:"response_code"`
}

type MessageSentEvent struct {
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	SentAt     time.Time `json:"sent_at"`
}
