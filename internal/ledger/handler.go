package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/go-playground/validator/v10"
)

type LedgerHandler struct {
	service *LedgerService
}

func NewLedgerHandler(service *LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service: service,
	}
}

var validate = validator.New()

// Transfer pays a doctor for a service. The payer is always the
// authenticated caller; client-supplied payer ids are ignored by design.
func (lh *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req types.TransferRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	payerID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	payment, err := lh.service.TransferForService(ctx, payerID, req.DoctorID, req.Amount, model.ServiceType(req.ServiceType))
	if err != nil {
		logger.Error().Err(err).Msg("Failed to process service payment")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payment)
}

func (lh *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	balance, err := lh.service.GetBalance(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch balance")
		http.Error(w, "Failed to fetch balance", model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.BalanceResponse{UserID: userID, Balance: balance})
}

func (lh *LedgerHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	payments, err := lh.service.PaymentHistory(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch payment history")
		http.Error(w, "Failed to fetch payment history", model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"payments": payments})
}

func (lh *LedgerHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req types.TopUpRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	actorID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := lh.service.TopUp(ctx, actorID, req.UserID, req.Amount)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to top up balance")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types.BalanceResponse{UserID: req.UserID, Balance: balance})
}
