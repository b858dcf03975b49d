package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Trandev/Medlink/internal/kafka"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) error
	GetByRef(ctx context.Context, ref string) (*model.Transaction, error)
	SettleSuccess(ctx context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error)
	SettleFailed(ctx context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error)
}

type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{db: db}
}

// Create opens a pending payment attempt. Only user-role accounts hold a
// gateway-funded balance, so the insert is gated on the owner's role.
func (tr *TransactionRepo) Create(ctx context.Context, txn *model.Transaction) error {
	err := tr.db.QueryRow(ctx, `
		INSERT INTO transactions (user_id, order_id, amount, transaction_id, status)
		SELECT $1, $2, $3, $4, 'pending'
		FROM users WHERE id = $1 AND role = 'user'
		RETURNING id, created_at, updated_at`,
		txn.UserID, txn.OrderID, txn.Amount, txn.TransactionID,
	).Scan(&txn.ID, &txn.CreatedAt, &txn.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %s cannot fund a balance: %w", txn.UserID, model.ErrRoleMismatch)
	}
	if err != nil {
		return fmt.Errorf("creating transaction: %w", err)
	}
	txn.Status = model.TransactionPending
	return nil
}

func (tr *TransactionRepo) GetByRef(ctx context.Context, ref string) (*model.Transaction, error) {
	var t model.Transaction
	err := tr.db.QueryRow(ctx, `
		SELECT id, user_id, order_id, amount, transaction_id, status, COALESCE(response_code, ''), transaction_date, notified_at, created_at, updated_at
		FROM transactions WHERE transaction_id = $1`, ref,
	).Scan(&t.ID, &t.UserID, &t.OrderID, &t.Amount, &t.TransactionID, &t.Status, &t.ResponseCode, &t.TransactionDate, &t.NotifiedAt, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching transaction %s: %w", ref, err)
	}
	return &t, nil
}

// SettleSuccess transitions a pending transaction to success and credits the
// owner's balance in a single database transaction. The conditional status
// UPDATE is the replay gate: a row that already left pending affects zero
// rows, so the credit below never runs twice for the same callback.
func (tr *TransactionRepo) SettleSuccess(ctx context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error) {
	tx, err := tr.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = 'success', response_code = $2, transaction_date = $3, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'`,
		txn.TransactionID, responseCode, payDate)
	if err != nil {
		return false, fmt.Errorf("settling transaction: %w", err)
	}
	if res.RowsAffected() == 0 {
		return false, nil
	}

	credit, err := tx.Exec(ctx,
		`UPDATE users SET balance = balance + $1, updated_at = NOW() WHERE id = $2 AND role = 'user'`,
		txn.Amount, txn.UserID)
	if err != nil {
		return false, fmt.Errorf("crediting balance: %w", err)
	}
	if credit.RowsAffected() == 0 {
		// Role changed after initiation; roll back rather than credit a
		// doctor or admin balance.
		return false, fmt.Errorf("crediting account %s: %w", txn.UserID, model.ErrRoleMismatch)
	}

	payload, _ := json.Marshal(types.FundsCreditedEvent{
		TransactionRef: txn.TransactionID,
		UserID:         txn.UserID.String(),
		Amount:         txn.Amount,
		ResponseCode:   responseCode,
	})
	if _, err := tx.Exec(ctx, `
		INSERT INTO transaction_outbox (event_type, payload, partition_key, status)
		VALUES ($1, $2, $3, 'pending')`,
		kafka.EventFundsCredited, payload, txn.UserID.String()); err != nil {
		return false, fmt.Errorf("queueing credit event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing settlement: %w", err)
	}
	return true, nil
}

// SettleFailed transitions a pending transaction to failed. No balance
// effect. Returns false when the row was already terminal.
func (tr *TransactionRepo) SettleFailed(ctx context.Context, txn *model.Transaction, responseCode string, payDate *time.Time) (bool, error) {
	res, err := tr.db.Exec(ctx, `
		UPDATE transactions
		SET status = 'failed', response_code = $2, transaction_date = $3, updated_at = NOW()
		WHERE transaction_id = $1 AND status = 'pending'`,
		txn.TransactionID, responseCode, payDate)
	if err != nil {
		return false, fmt.Errorf("failing transaction: %w", err)
	}
	return res.RowsAffected() > 0, nil
}
