package transaction

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/internal/redis"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/go-playground/validator/v10"
)

type TransactionHandler struct {
	service *TransactionService
	redis   *redis.Client
}

func NewTransactionHandler(service *TransactionService, redisClient *redis.Client) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		redis:   redisClient,
	}
}

var validate = validator.New()

// Initiate builds a signed VNPay redirect URL for the authenticated user.
func (th *TransactionHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req types.InitiatePaymentRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if th.redis != nil {
		allowed, err := th.redis.SimpleRateLimit(ctx, "payment-initiate:"+userID.String(), 10, time.Minute)
		if err != nil {
			logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
		} else if !allowed {
			http.Error(w, "Too many payment requests", http.StatusTooManyRequests)
			return
		}
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	clientIP := r.Header.Get("X-Forwarded-For")
	if clientIP == "" {
		clientIP = r.RemoteAddr
	}

	res, err := th.service.Initiate(ctx, userID, &req, clientIP, r.Header.Get("Idempotency-Key"))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create payment URL")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// VNPayReturn handles the gateway callback. It is unauthenticated by
// design: trust comes from the signature, not from a session.
func (th *TransactionHandler) VNPayReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	params := make(map[string]string, len(r.URL.Query()))
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	outcome, err := th.service.Reconcile(ctx, params)

	w.Header().Set("Content-Type", "application/json")
	switch outcome {
	case OutcomeSuccess:
		json.NewEncoder(w).Encode(map[string]string{
			"message":        "Payment successful",
			"transaction_id": params["vnp_TxnRef"],
		})
	case OutcomeIgnored:
		// Duplicate callbacks are a success no-op per the idempotency
		// contract with the gateway.
		json.NewEncoder(w).Encode(map[string]string{
			"message":        "Transaction already settled",
			"transaction_id": params["vnp_TxnRef"],
		})
	case OutcomeFailed:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"message":        "Payment failed",
			"transaction_id": params["vnp_TxnRef"],
		})
	case OutcomeSignatureInvalid:
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "Invalid signature"})
	case OutcomeNotFound:
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Transaction not found"})
	default:
		logger.Error().Err(err).Msg("Failed to reconcile gateway callback")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "Internal error"})
	}
}
