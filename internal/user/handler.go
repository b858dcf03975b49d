package user

import (
	"encoding/json"
	"net/http"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/go-playground/validator/v10"
)

type UserHandler struct {
	service *UserService
}

func NewUserHandler(service *UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

var validate = validator.New()

func (uh *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	u, err := uh.service.Register(ctx, &req)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register user")
		http.Error(w, "Failed to register user", model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(u)
}

func (uh *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(&req); err != nil {
		http.Error(w, "Validation error: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := uh.service.Login(ctx, &req)
	if err != nil {
		logger.Warn().Err(err).Msg("Login rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (uh *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := uh.service.GetByID(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch current user")
		http.Error(w, "Failed to fetch user", model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}
