package types

import "github.com/google/uuid"

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=8,max=20"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user doctor"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token  string    `json:"token"`
	UserID uuid.UUID `json:"user_id"`
}

type TransferRequest struct {
	DoctorID    uuid.UUID `json:"doctor_id" validate:"required"`
	Amount      int64     `json:"amount" validate:"required,gt=0"`
	ServiceType string    `json:"service_type" validate:"required,oneof=consultation appointment video message other"`
}

type TopUpRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
	Amount int64     `json:"amount" validate:"required,gt=0"`
}

type BalanceResponse struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

type InitiatePaymentRequest struct {
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	OrderID   string `json:"order_id" validate:"required,max=64"`
	OrderInfo string `json:"order_info" validate:"required,max=255"`
	BankCode  string `json:"bank_code" validate:"omitempty,max=20"`
}

type InitiatePaymentResponse struct {
	PaymentURL    string `json:"payment_url"`
	TransactionID string `json:"transaction_id"`
}

type SendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiver_id" validate:"required"`
	Content    string    `json:"content" validate:"required,max=4000"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}
