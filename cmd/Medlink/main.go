package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Trandev/Medlink/internal/config"
	"github.com/Trandev/Medlink/internal/database"
	"github.com/Trandev/Medlink/internal/ledger"
	"github.com/Trandev/Medlink/internal/logger"
	"github.com/Trandev/Medlink/internal/message"
	"github.com/Trandev/Medlink/internal/realtime"
	"github.com/Trandev/Medlink/internal/redis"
	"github.com/Trandev/Medlink/internal/router"
	"github.com/Trandev/Medlink/internal/server"
	"github.com/Trandev/Medlink/internal/transaction"
	"github.com/Trandev/Medlink/internal/user"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	db, err := database.New(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis client")
	}

	srv, err := server.NewServer(cfg, &log, loggerService, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	userRepo := user.NewUserRepository(db.Pool)
	ledgerRepo := ledger.NewLedgerRepository(db.Pool)
	transactionRepo := transaction.NewTransactionRepository(db.Pool)
	messageRepo := message.NewMessageRepository(db.Pool)

	hub := realtime.NewHub(log)

	userService := user.NewUserService(userRepo, cfg.Auth)
	ledgerService := ledger.NewLedgerService(ledgerRepo)
	transactionService := transaction.NewTransactionService(transactionRepo, redisClient, redisClient, cfg.VNPay)
	messageService := message.NewMessageService(messageRepo, hub)

	handlers := &router.Handlers{
		User:        user.NewUserHandler(userService),
		Ledger:      ledger.NewLedgerHandler(ledgerService),
		Transaction: transaction.NewTransactionHandler(transactionService, redisClient),
		Message:     message.NewMessageHandler(messageService),
		Realtime:    realtime.NewHandler(hub, messageService, cfg.Auth.JWTSecret, log),
	}

	r := router.NewRouter(srv, handlers)

	srv.SetupHTTPServer(r)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Give outstanding requests 10 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
