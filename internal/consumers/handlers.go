package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/stan.go"

	"kinobook/internal/models"
	"kinobook/internal/repository"
	"kinobook/internal/search"
)

// Handlers processes domain events off NATS. Its main job is feeding the
// payment audit index; messages are acked only after the side effect lands
// so redeliveries fill any gap. Indexing is keyed by transaction id, so a
// redelivered event overwrites its own document instead of duplicating.
type Handlers struct {
	repos  *repository.Repositories
	search *search.ElasticsearchClient
}

func NewHandlers(repos *repository.Repositories, searchClient *search.ElasticsearchClient) *Handlers {
	return &Handlers{
		repos:  repos,
		search: searchClient,
	}
}

func (h *Handlers) HandleBookingCreated(m *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking created event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Booking created",
		"booking_id", event.BookingID,
		"movie_id", event.MovieID,
		"seat_number", event.SeatNumber)

	m.Ack()
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingCancelledEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking cancelled event", "error", err)
		m.Ack()
		return
	}

	slog.Info("Booking cancelled",
		"booking_id", event.BookingID,
		"reason", event.Reason)

	m.Ack()
}

func (h *Handlers) HandlePaymentSucceeded(m *stan.Msg) {
	var event models.PaymentSucceededEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment succeeded event", "error", err)
		m.Ack()
		return
	}

	doc := search.TransactionDocument{
		TransactionID: event.TransactionID,
		BookingID:     event.BookingID,
		UserID:        event.UserID,
		Amount:        event.Amount,
		SeatNumber:    event.SeatNumber,
		Status:        models.TransactionStatusSuccess,
		CreatedAt:     event.Timestamp,
	}

	if err := h.search.IndexTransaction(context.Background(), doc); err != nil {
		// Leave the message unacked; NATS redelivers after the ack wait.
		slog.Error("Failed to index successful payment", "transaction_id", event.TransactionID, "error", err)
		return
	}

	slog.Info("Indexed successful payment", "transaction_id", event.TransactionID, "booking_id", event.BookingID)
	m.Ack()
}

func (h *Handlers) HandlePaymentFailed(m *stan.Msg) {
	var event models.PaymentFailedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment failed event", "error", err)
		m.Ack()
		return
	}

	doc := search.TransactionDocument{
		TransactionID: event.TransactionID,
		BookingID:     event.BookingID,
		UserID:        event.UserID,
		Amount:        event.Amount,
		Status:        models.TransactionStatusFailed,
		Reason:        event.Reason,
		CreatedAt:     event.Timestamp,
	}

	if err := h.search.IndexTransaction(context.Background(), doc); err != nil {
		slog.Error("Failed to index failed payment", "transaction_id", event.TransactionID, "error", err)
		return
	}

	slog.Info("Indexed failed payment", "transaction_id", event.TransactionID, "booking_id", event.BookingID, "reason", event.Reason)
	m.Ack()
}
