package model

import (
	"time"

	"github.com/google/uuid"
)

type Model struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Role string

const (
	RoleUser   Role = "user"
	RoleDoctor Role = "doctor"
	RoleAdmin  Role = "admin"
)

type ServiceType string

const (
	ServiceConsultation ServiceType = "consultation"
	ServiceAppointment  ServiceType = "appointment"
	ServiceVideo        ServiceType = "video"
	ServiceMessage      ServiceType = "message"
	ServiceOther        ServiceType = "other"
)

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceConsultation, ServiceAppointment, ServiceVideo, ServiceMessage, ServiceOther:
		return true
	}
	return false
}

type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username" validate:"required,min=2,max=100"`
	Email    string    `json:"email" validate:"required,email"`
	Phone    string    `json:"phone" validate:"required"`
	Role     Role      `json:"role" validate:"required,oneof=user doctor admin"`
	// Balance is stored in VND, an integer-only currency.
	Balance int64 `json:"balance" validate:"gte=0"`
	Model
}

// Payment is the immutable record of one service transfer from a user to a
// doctor. Amount = DoctorShare + AdminShare always.
type Payment struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	DoctorID    uuid.UUID   `json:"doctor_id"`
	Amount      int64       `json:"amount"`
	DoctorShare int64       `json:"doctor_share,omitempty"`
	AdminShare  int64       `json:"admin_share,omitempty"`
	ServiceType ServiceType `json:"service_type"`
	Model
}

type TransactionStatus string

const (
	TransactionPending TransactionStatus = "pending"
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// Terminal reports whether no further state transition is allowed.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionSuccess || s == TransactionFailed
}

// Transaction tracks one VNPay payment attempt from creation of the signed
// redirect URL until the gateway callback settles it.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	OrderID         string            `json:"order_id"`
	Amount          int64             `json:"amount"`
	TransactionID   string            `json:"transaction_id"` // gateway reference (vnp_TxnRef)
	Status          TransactionStatus `json:"status"`
	ResponseCode    string            `json:"response_code,omitempty"`
	TransactionDate *time.Time        `json:"transaction_date,omitempty"`
	NotifiedAt      *time.Time        `json:"notified_at,omitempty"`
	Model
}

type Message struct {
	ID       uuid.UUID `json:"_id"`
	Sender   uuid.UUID `json:"sender"`
	Receiver uuid.UUID `json:"receiver"`
	Content  string    `json:"content"`
	Read     bool      `json:"read"`
	Model
}

// Conversation is the derived per-counterparty view of a user's inbox. It is
// recomputed from messages on demand and never persisted.
type Conversation struct {
	PartnerID   uuid.UUID `json:"partner_id"`
	Partner     string    `json:"partner_username"`
	LastMessage Message   `json:"last_message"`
	UnreadCount int64     `json:"unread_count"`
}

// Outbox rows carry domain events to Kafka via the relay.
type OutboxEvent struct {
	ID           int64  `json:"id"`
	EventType    string `json:"event_type"`
	Payload      []byte `json:"payload"`
	PartitionKey string `json:"partition_key"`
	Status       string `json:"status"`
	Model
}
