package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kinobook/cmd/consumers/jobs"
	"kinobook/internal/config"
	"kinobook/internal/consumers"
	"kinobook/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	// Consumers get their own NATS client id so the API and consumer
	// processes can connect to the same cluster concurrently.
	cfg.NATS.ClientID = "kinobook-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	var expirationJob *jobs.BookingExpirationJob
	if cfg.ExpirationJobEnabled {
		expirationJob = jobs.NewBookingExpirationJob(
			consumerService.Repositories().Bookings,
			consumerService.Events(),
			cfg.BookingTTL,
			cfg.ExpirationInterval,
		)
		expirationJob.Start(jobCtx)
	}

	log.Info("Consumers service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")

	if expirationJob != nil {
		expirationJob.Stop()
	}
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumerService.Shutdown(ctx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Consumers service stopped")
}
