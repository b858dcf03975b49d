package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Trandev/Medlink/internal/config"
	"github.com/Trandev/Medlink/internal/database"
	"github.com/Trandev/Medlink/internal/kafka"
	"github.com/Trandev/Medlink/internal/logger"
	"github.com/Trandev/Medlink/internal/redis"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	loggerService := logger.New(cfg.Observability)
	defer loggerService.Shutdown()
	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	log.Info().Msg("Starting Notify Worker...")

	db, err := database.New(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	redisClient, err := redis.New(&log, &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize redis")
	}
	defer redisClient.Close()

	consumer, err := kafka.NewConsumer(kafka.DefaultConfig(cfg.Kafka.Brokers), kafka.GroupNotifyWorker, kafka.TopicFundsCredited)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize kafka consumer")
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Run(ctx, notifyHandler(db, redisClient, &log)); err != nil {
			log.Error().Err(err).Msg("notify worker stopped with error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down Notify Worker...")
	cancel()

	log.Info().Msg("Notify Worker shutdown complete")
}
