package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/Trandev/Medlink/internal/config"
	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/internal/redis"
	"github.com/Trandev/Medlink/internal/vnpay"
	"github.com/Trandev/Medlink/pkg/constants"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/google/uuid"
)

// Outcome classifies the result of reconciling one gateway callback.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeFailed           Outcome = "failed"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeNotFound         Outcome = "not_found"
	OutcomeSignatureInvalid Outcome = "signature_invalid"
)

// vnp_CreateDate / vnp_PayDate wire format.
const gatewayTimeLayout = "20060102150405"

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// IdempotencyStore is the slice of the redis client the service needs.
type IdempotencyStore interface {
	CheckAndSetIdempotency(ctx context.Context, key string, ttl time.Duration) ([]byte, error)
	MarkIdempotencyComplete(ctx context.Context, key string, response []byte, ttl time.Duration) error
	MarkIdempotencyFailed(ctx context.Context, key string) error
}

type TransactionService struct {
	repo  TransactionRepository
	idem  IdempotencyStore
	locks *redis.Client
	vnpay config.VNPayConfig
	now   func() time.Time
}

func NewTransactionService(repo TransactionRepository, idem IdempotencyStore, locks *redis.Client, vnpayCfg config.VNPayConfig) *TransactionService {
	return &TransactionService{
		repo:  repo,
		idem:  idem,
		locks: locks,
		vnpay: vnpayCfg,
		now:   time.Now,
	}
}

// Initiate creates a pending transaction and builds the signed VNPay
// redirect URL. The transaction reference is derived from the order id and
// the creation timestamp, matching the gateway's expectations.
func (ts *TransactionService) Initiate(ctx context.Context, userID uuid.UUID, req *types.InitiatePaymentRequest, clientIP, idempotencyKey string) (*types.InitiatePaymentResponse, error) {
	logger := middleware.GetLogger(ctx)

	if req.Amount <= 0 {
		return nil, model.ErrInvalidInput
	}
	if !orderIDPattern.MatchString(req.OrderID) {
		return nil, fmt.Errorf("order id: %w", model.ErrInvalidInput)
	}

	if idempotencyKey != "" {
		cached, err := ts.idem.CheckAndSetIdempotency(ctx, idempotencyKey, 24*time.Hour)
		if cached != nil {
			logger.Info().Msg("returning cached payment response for idempotency key")
			var res types.InitiatePaymentResponse
			if err := json.Unmarshal(cached, &res); err == nil {
				return &res, nil
			}
		}
		if errors.Is(err, redis.ErrKeyExists) {
			return nil, fmt.Errorf("request in progress: please retry later")
		}
		if err != nil {
			return nil, err
		}
	}

	now := ts.now()
	// The timestamp alone collides when one order is retried within a
	// second; the uuid fragment keeps references unique.
	txnRef := req.OrderID + "_" + now.Format(gatewayTimeLayout) + "_" + uuid.NewString()[:8]

	txn := &model.Transaction{
		UserID:        userID,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		TransactionID: txnRef,
	}
	if err := ts.repo.Create(ctx, txn); err != nil {
		if idempotencyKey != "" {
			ts.idem.MarkIdempotencyFailed(ctx, idempotencyKey)
		}
		return nil, err
	}

	params := map[string]string{
		vnpay.FieldVersion:    constants.VNPayVersion,
		vnpay.FieldCommand:    constants.VNPayCommandPay,
		vnpay.FieldTmnCode:    ts.vnpay.TmnCode,
		vnpay.FieldAmount:     strconv.FormatInt(req.Amount*100, 10), // gateway expects minor units
		vnpay.FieldCurrCode:   constants.VNPayCurrency,
		vnpay.FieldTxnRef:     txnRef,
		vnpay.FieldOrderInfo:  req.OrderInfo,
		vnpay.FieldOrderType:  constants.VNPayOrderType,
		vnpay.FieldLocale:     constants.VNPayLocale,
		vnpay.FieldReturnURL:  ts.vnpay.ReturnURL,
		vnpay.FieldIPAddr:     clientIP,
		vnpay.FieldCreateDate: now.Format(gatewayTimeLayout),
	}
	if req.BankCode != "" {
		params[vnpay.FieldBankCode] = req.BankCode
	}

	res := &types.InitiatePaymentResponse{
		PaymentURL:    vnpay.BuildPaymentURL(ts.vnpay.PayURL, params, ts.vnpay.HashSecret),
		TransactionID: txnRef,
	}

	if idempotencyKey != "" {
		if body, err := json.Marshal(res); err == nil {
			ts.idem.MarkIdempotencyComplete(ctx, idempotencyKey, body, 24*time.Hour)
		}
	}

	logger.Info().Str("transaction_id", txnRef).Int64("amount", req.Amount).Msg("payment URL created")
	return res, nil
}

// Reconcile consumes one gateway callback. Terminal transactions are left
// untouched and reported as ignored; a bad signature leaves the row pending
// so the gateway may retry. The success path credits the user exactly once,
// gated by the pending->success transition inside the repository. Internal
// failures return an empty outcome so the handler answers 5xx and the
// gateway keeps retrying.
func (ts *TransactionService) Reconcile(ctx context.Context, params map[string]string) (Outcome, error) {
	logger := middleware.GetLogger(ctx)

	ref := params[vnpay.FieldTxnRef]
	if ref == "" {
		return OutcomeNotFound, model.ErrInvalidInput
	}

	txn, err := ts.repo.GetByRef(ctx, ref)
	if errors.Is(err, model.ErrNotFound) {
		logger.Warn().Str("transaction_id", ref).Msg("callback for unknown transaction")
		return OutcomeNotFound, model.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	if txn.Status.Terminal() {
		logger.Info().Str("transaction_id", ref).Str("status", string(txn.Status)).Msg("duplicate callback for settled transaction")
		return OutcomeIgnored, nil
	}

	providedHash := params[vnpay.FieldSecureHash]
	if !vnpay.Verify(params, providedHash, ts.vnpay.HashSecret) {
		logger.Error().Str("transaction_id", ref).Msg("callback signature verification failed")
		return OutcomeSignatureInvalid, model.ErrSignatureInvalid
	}

	var payDate *time.Time
	if raw := params[vnpay.FieldPayDate]; raw != "" {
		if t, err := time.Parse(gatewayTimeLayout, raw); err == nil {
			payDate = &t
		}
	}

	// Serializes concurrent callbacks touching the same wallet. The SQL
	// transition gate stays authoritative when the lock is unavailable.
	if ts.locks != nil {
		lock, err := ts.locks.AcquireLock(ctx, "wallet:"+txn.UserID.String(), 10*time.Second)
		if err != nil {
			logger.Warn().Err(err).Str("transaction_id", ref).Msg("failed to acquire wallet lock")
			return "", err
		}
		defer lock.Release(ctx)
	}

	responseCode := params[vnpay.FieldResponseCode]
	if responseCode == constants.VNPaySuccessCode {
		applied, err := ts.repo.SettleSuccess(ctx, txn, responseCode, payDate)
		if err != nil {
			return "", err
		}
		if !applied {
			// Lost the race with a concurrent duplicate callback.
			return OutcomeIgnored, nil
		}
		logger.Info().Str("transaction_id", ref).Int64("amount", txn.Amount).Msg("transaction settled, balance credited")
		return OutcomeSuccess, nil
	}

	applied, err := ts.repo.SettleFailed(ctx, txn, responseCode, payDate)
	if err != nil {
		return "", err
	}
	if !applied {
		return OutcomeIgnored, nil
	}
	logger.Info().Str("transaction_id", ref).Str("response_code", responseCode).Msg("transaction marked failed")
	return OutcomeFailed, nil
}
