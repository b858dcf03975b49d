package router

import (
	"net/http"

	"github.com/Trandev/Medlink/internal/ledger"
	"github.com/Trandev/Medlink/internal/message"
	"github.com/Trandev/Medlink/internal/middleware"
	"github.com/Trandev/Medlink/internal/realtime"
	"github.com/Trandev/Medlink/internal/server"
	"github.com/Trandev/Medlink/internal/transaction"
	"github.com/Trandev/Medlink/internal/user"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	User        *user.UserHandler
	Ledger      *ledger.LedgerHandler
	Transaction *transaction.TransactionHandler
	Message     *message.MessageHandler
	Realtime    *realtime.Handler
}

func NewRouter(s *server.Server, h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	mw := middleware.NewMiddlewares(s)

	// Apply middleware in order
	r.Use(middleware.RequestID)
	r.Use(mw.Tracing.NewRelicMiddleware())
	r.Use(mw.Tracing.EnhanceTracing)
	r.Use(mw.ContextEnhancer.EnhanceContext)
	r.Use(mw.Global.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.User.Register)
			r.Post("/login", h.User.Login)
			r.With(mw.Auth.RequireAuth).Get("/me", h.User.Me)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Use(mw.Auth.RequireAuth)
			r.Post("/transfer", h.Ledger.Transfer)
			r.Get("/balance", h.Ledger.GetBalance)
			r.Get("/history", h.Ledger.History)
			r.Post("/topup", h.Ledger.TopUp)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.With(mw.Auth.RequireAuth).Post("/create", h.Transaction.Initiate)
			// Gateway callback authenticates by signature, not session.
			r.Get("/vnpay_return", h.Transaction.VNPayReturn)
		})

		r.Route("/messages", func(r chi.Router) {
			r.Use(mw.Auth.RequireAuth)
			r.Post("/", h.Message.Send)
			r.Put("/{messageId}", h.Message.Edit)
			r.Delete("/{messageId}", h.Message.Delete)
			r.Post("/read/{partnerId}", h.Message.MarkRead)
			r.Get("/history/{partnerId}", h.Message.History)
			r.Get("/conversations", h.Message.Conversations)
		})
	})

	// Websocket handshake carries its own token; no HTTP auth middleware.
	r.Get("/ws", h.Realtime.ServeWS)

	return r
}
