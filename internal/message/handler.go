package message

import (
	"encoding/json"
	"net/http"

	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/model"
	"github.com/Trandev/Medlink/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type MessageHandler struct {
	service *MessageService
}

func NewMessageHandler(service *MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

var validate = validator.New()

func (mh *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req types.SendMessageRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
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

	msg, err := mh.service.Send(ctx, userID, req.ReceiverID, req.Content)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to send message")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (mh *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req types.EditMessageRequest
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
	if err != nil {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
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

	msg, err := mh.service.Edit(ctx, userID, messageID, req.Content)
	if err != nil {
		logger.Warn().Err(err).Str("message_id", messageID.String()).Msg("Failed to edit message")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(msg)
}

func (mh *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messageID, err := uuid.Parse(chi.URLParam(r, "messageId"))
	if err != nil {
		http.Error(w, "Invalid message id", http.StatusBadRequest)
		return
	}

	if err := mh.service.Delete(ctx, userID, messageID); err != nil {
		logger.Warn().Err(err).Str("message_id", messageID.String()).Msg("Failed to delete message")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkRead flips every unread message from the partner to the caller.
func (mh *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	partnerID, err := uuid.Parse(chi.URLParam(r, "partnerId"))
	if err != nil {
		http.Error(w, "Invalid partner id", http.StatusBadRequest)
		return
	}

	updated, err := mh.service.MarkRead(ctx, userID, partnerID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to mark messages read")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"updated": updated})
}

func (mh *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	partnerID, err := uuid.Parse(chi.URLParam(r, "partnerId"))
	if err != nil {
		http.Error(w, "Invalid partner id", http.StatusBadRequest)
		return
	}

	messages, err := mh.service.History(ctx, userID, partnerID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch message history")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}
	if messages == nil {
		messages = []model.Message{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(messages)
}

func (mh *MessageHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := middleware.GetLogger(ctx)

	userID, ok := middleware.GetUserID(ctx)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conversations, err := mh.service.Conversations(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch conversations")
		http.Error(w, err.Error(), model.HTTPStatus(err))
		return
	}
	if conversations == nil {
		conversations = []model.Conversation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conversations)
}
