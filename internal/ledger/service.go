package ledger

import (
	"context"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/constants"
	"github.com/google/uuid"
)

type LedgerService struct {
	repo LedgerRepository
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{
		repo: repo,
	}
}

// Shares splits a payment amount between doctor and platform. VND has no
// minor units, so the remainder of the integer split goes to the admin
// share, keeping Amount == DoctorShare + AdminShare exact.
func Shares(amount int64) (doctorShare, adminShare int64) {
	doctorShare = amount * constants.DoctorSharePercent / 100
	adminShare = amount - doctorShare
	return doctorShare, adminShare
}

// TransferForService moves amount from a user to a doctor for one service,
// splitting it 30/70 between doctor and platform. All balance writes and
// the payment record commit atomically or not at all.
func (ls *LedgerService) TransferForService(ctx context.Context, payerID, payeeID uuid.UUID, amount int64, serviceType model.ServiceType) (*model.Payment, error) {
	logger := middleware.GetLogger(ctx)

	if amount <= 0 {
		return nil, model.ErrInvalidInput
	}
	if !serviceType.Valid() {
		return nil, model.ErrInvalidInput
	}
	if payerID == payeeID {
		return nil, model.ErrInvalidInput
	}

	doctorShare, adminShare := Shares(amount)

	payment, err := ls.repo.Transfer(ctx, payerID, payeeID, amount, doctorShare, adminShare, serviceType)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("payment_id", payment.ID.String()).
		Int64("amount", amount).
		Int64("doctor_share", doctorShare).
		Int64("admin_share", adminShare).
		Str("service_type", string(serviceType)).
		Msg("service payment completed")

	return payment, nil
}

// Credit tops up a user-role balance.
func (ls *LedgerService) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, model.ErrInvalidInput
	}
	return ls.repo.Credit(ctx, userID, amount)
}

func (ls *LedgerService) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return ls.repo.GetBalance(ctx, userID)
}

// PaymentHistory returns the payments visible to actor. Users see their own
// payments with the share breakdown hidden; admins see everything.
func (ls *LedgerService) PaymentHistory(ctx context.Context, actorID uuid.UUID) ([]model.Payment, error) {
	role, err := ls.repo.GetUserRole(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if role == model.RoleAdmin {
		return ls.repo.AllPayments(ctx)
	}

	payments, err := ls.repo.PaymentsForUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if role == model.RoleUser {
		for i := range payments {
			payments[i].DoctorShare = 0
			payments[i].AdminShare = 0
		}
	}
	return payments, nil
}

// TopUp is the admin-initiated credit. Only admins may move money in from
// outside the gateway flow.
func (ls *LedgerService) TopUp(ctx context.Context, actorID, userID uuid.UUID, amount int64) (int64, error) {
	role, err := ls.repo.GetUserRole(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if role != model.RoleAdmin {
		return 0, model.ErrForbidden
	}
	return ls.Credit(ctx, userID, amount)
}
