package service

import (
	"context"

	"kinobook/internal/cache"
	"kinobook/internal/external"
	"kinobook/internal/messaging"
	"kinobook/internal/models"
	"kinobook/internal/repository"
)

// BookingStore is the booking ledger as the sagas see it. The store, not
// the saga, enforces the one-active-booking-per-seat invariant.
type BookingStore interface {
	CreatePending(ctx context.Context, booking *models.Booking) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Booking, error)
	SetTotalPrice(ctx context.Context, id, totalPrice int64) error
	UpdateStatusIf(ctx context.Context, id int64, from, to string) (bool, error)
	DeletePending(ctx context.Context, id int64) error
}

// TransactionStore is the payment ledger as the sagas see it. The store
// enforces the single-SUCCESS-per-booking invariant.
type TransactionStore interface {
	CreateSuccess(ctx context.Context, txn *models.Transaction) error
	CreateFailed(ctx context.Context, txn *models.Transaction) error
	GetSuccessByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error)
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error)
}

// UserDirectory resolves users in the user service.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// MovieCatalog resolves movies and prices in the movie catalog.
type MovieCatalog interface {
	GetByID(ctx context.Context, id int64) (*models.Movie, error)
}

// WalletService debits and credits user wallets. The wallet is the sole
// authority on its balance; the sagas never do balance arithmetic as a
// guard.
type WalletService interface {
	Debit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error)
}

// HistoryService records payment history, deduplicated by transaction id.
type HistoryService interface {
	Record(ctx context.Context, rec models.HistoryRecord) error
}

// Notifier delivers best-effort user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID string, bookingID int64, message, notifType string) error
}

// EventPublisher emits best-effort domain events.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// PaidCache is the optional fast path in front of the transaction ledger.
type PaidCache interface {
	MarkPaid(ctx context.Context, bookingID, transactionID int64) error
	PaidTransactionID(ctx context.Context, bookingID int64) (int64, bool)
}

type Services struct {
	Bookings *BookingService
	Payments *PaymentService
}

// NewServices wires the sagas from their concrete collaborators. NATS and
// Valkey are optional; a nil client simply disables events or the cache
// fast path.
func NewServices(repos *repository.Repositories, clients *external.Clients, natsClient *messaging.NATSClient, valkeyClient *cache.ValkeyClient) *Services {
	var events EventPublisher
	if natsClient != nil {
		events = natsClient
	}

	var paidCache PaidCache
	if valkeyClient != nil {
		paidCache = valkeyClient
	}

	bookings := NewBookingService(repos.Bookings, clients.Users, clients.Movies, clients.Notifications, events)
	payments := NewPaymentService(repos.Transactions, repos.Bookings, clients.Wallet, clients.History, clients.Notifications, events, paidCache)

	return &Services{
		Bookings: bookings,
		Payments: payments,
	}
}
