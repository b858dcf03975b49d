package ledger

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

type LedgerRepository interface {
	Transfer(ctx context.Context, payerID, payeeID uuid.UUID, amount, doctorShare, adminShare int64, serviceType model.ServiceType) (*model.Payment, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
	GetUserRole(ctx context.Context, userID uuid.UUID) (model.Role, error)
	PaymentsForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error)
	AllPayments(ctx context.Context) ([]model.Payment, error)
}

type LedgerRepo struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Transfer moves amount from payer to payee and the platform account in one
// database transaction. Balances are re-read under row locks, so concurrent
// transfers against the same payer serialize and the conditional debit can
// never produce a lost update or a negative balance.
func (lr *LedgerRepo) Transfer(ctx context.Context, payerID, payeeID uuid.UUID, amount, doctorShare, adminShare int64, serviceType model.ServiceType) (*model.Payment, error) {
	tx, err := lr.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	var adminID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE role = 'admin' ORDER BY created_at LIMIT 1`).Scan(&adminID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("platform account: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding platform account: %w", err)
	}

	// Lock all three rows in id order to avoid deadlocks between
	// overlapping transfers.
	rows, err := tx.Query(ctx, `
		SELECT id, role, balance FROM users
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE`,
		[]uuid.UUID{payerID, payeeID, adminID})
	if err != nil {
		return nil, fmt.Errorf("locking accounts: %w", err)
	}

	roles := make(map[uuid.UUID]model.Role, 3)
	balances := make(map[uuid.UUID]int64, 3)
	for rows.Next() {
		var id uuid.UUID
		var role model.Role
		var balance int64
		if err := rows.Scan(&id, &role, &balance); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		roles[id] = role
		balances[id] = balance
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading account rows: %w", err)
	}

	for _, id := range []uuid.UUID{payerID, payeeID, adminID} {
		if _, ok := roles[id]; !ok {
			return nil, fmt.Errorf("account %s: %w", id, model.ErrNotFound)
		}
	}
	if roles[payerID] != model.RoleUser || roles[payeeID] != model.RoleDoctor {
		return nil, model.ErrRoleMismatch
	}
	if balances[payerID] < amount {
		return nil, model.ErrInsufficientFunds
	}

	// The WHERE clause re-checks the balance the row lock already
	// guarantees; it is the last line of defense against a negative balance.
	res, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance - $1, updated_at = NOW() WHERE id = $2 AND balance >= $1`,
		amount, payerID)
	if err != nil {
		return nil, fmt.Errorf("debiting payer: %w", err)
	}
	if res.RowsAffected() == 0 {
		return nil, model.ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		doctorShare, payeeID); err != nil {
		return nil, fmt.Errorf("crediting doctor: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2`,
		adminShare, adminID); err != nil {
		return nil, fmt.Errorf("crediting platform account: %w", err)
	}

	payment := &model.Payment{
		UserID:      payerID,
		DoctorID:    payeeID,
		Amount:      amount,
		DoctorShare: doctorShare,
		AdminShare:  adminShare,
		ServiceType: serviceType,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO payments (user_id, doctor_id, amount, doctor_share, admin_share, service_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		payerID, payeeID, amount, doctorShare, adminShare, serviceType,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("recording payment: %w", err)
	}

	payload, _ := json.Marshal(types.PaymentCompletedEvent{
		PaymentID:   payment.ID.String(),
		UserID:      payerID.String(),
		DoctorID:    payeeID.String(),
		Amount:      amount,
		DoctorShare: doctorShare,
		AdminShare:  adminShare,
		ServiceType: string(serviceType),
	})
	if _, err := tx.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, 'pending')`,
		kafka.EventPaymentCompleted, payload, payerID.String()); err != nil {
		return nil, fmt.Errorf("queueing payment event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}
	return payment, nil
}

// Credit unconditionally increases a user-role balance. Single row, so no
// multi-party transaction is needed.
func (lr *LedgerRepo) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := lr.db.QueryRow(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2 AND role = 'user' RETURNING balance`,
		amount, userID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		role, roleErr := lr.GetUserRole(ctx, userID)
		if roleErr != nil {
			return 0, roleErr
		}
		if role != model.RoleUser {
			return 0, model.ErrRoleMismatch
		}
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("crediting user %s: %w", userID, err)
	}
	return balance, nil
}

func (lr *LedgerRepo) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := lr.db.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, model.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("fetching balance: %w", err)
	}
	return balance, nil
}

func (lr *LedgerRepo) GetUserRole(ctx context.Context, userID uuid.UUID) (model.Role, error) {
	var role model.Role
	err := lr.db.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", model.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("fetching role: %w", err)
	}
	return role, nil
}

func (lr *LedgerRepo) PaymentsForUser(ctx context.Context, userID uuid.UUID) ([]model.Payment, error) {
	rows, err := lr.db.Query(ctx, `
		SELECT id, user_id, doctor_id, amount, doctor_share, admin_share, service_type, created_at, updated_at
		FROM payments
		WHERE user_id = $1 OR doctor_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (lr *LedgerRepo) AllPayments(ctx context.Context) ([]model.Payment, error) {
	rows, err := lr.db.Query(ctx, `
		SELECT id, user_id, doctor_id, amount, doctor_share, admin_share, service_type, created_at, updated_at
		FROM payments
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing all payments: %w", err)
	}
	defer rows.Close()
	return scanPayments(rows)
}

func scanPayments(rows pgx.Rows) ([]model.Payment, error) {
	var payments []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.DoctorID, &p.Amount, &p.DoctorShare, &p.AdminShare, &p.ServiceType, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
