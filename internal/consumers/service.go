package consumers

import (
	"context"
	"log/slog"

	"kinobook/internal/config"
	"kinobook/internal/database"
	"kinobook/internal/messaging"
	"kinobook/internal/models"
	"kinobook/internal/repository"
	"kinobook/internal/search"
)

// ConsumerService is the event-consuming process: it feeds the payment
// audit index from payment events and logs booking lifecycle events.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	searchClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	handlers := NewHandlers(repos, searchClient)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		handlers: handlers,
	}, nil
}

// Repositories exposes the repositories for background jobs that share the
// consumer process.
func (cs *ConsumerService) Repositories() *repository.Repositories {
	return cs.repos
}

// Events exposes the NATS client.
func (cs *ConsumerService) Events() *messaging.NATSClient {
	return cs.nats
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.EventBookingCreated, "consumers", cs.handlers.HandleBookingCreated); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventBookingCancelled, "consumers", cs.handlers.HandleBookingCancelled); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentSucceeded, "consumers", cs.handlers.HandlePaymentSucceeded); err != nil {
		return err
	}

	if _, err := cs.nats.SubscribeQueue(models.EventPaymentFailed, "consumers", cs.handlers.HandlePaymentFailed); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
