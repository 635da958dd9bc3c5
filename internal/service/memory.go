package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

// In-memory collaborators. They enforce the same invariants as the real
// stores and services (seat uniqueness, single SUCCESS per booking, wallet
// balance never below zero, history deduplication) so the sagas can be
// exercised without Postgres or the remote services. Used by tests and by
// local development.

// InMemoryBookingStore keeps bookings in a map guarded by a mutex.
type InMemoryBookingStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*models.Booking
}

func NewInMemoryBookingStore() *InMemoryBookingStore {
	return &InMemoryBookingStore{rows: make(map[int64]*models.Booking)}
}

func (s *InMemoryBookingStore) CreatePending(ctx context.Context, booking *models.Booking) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.IdempotencyKey != nil {
		for _, row := range s.rows {
			if row.IdempotencyKey != nil && *row.IdempotencyKey == *booking.IdempotencyKey {
				*booking = *row
				return false, nil
			}
		}
	}

	for _, row := range s.rows {
		if row.MovieID == booking.MovieID && row.SeatNumber == booking.SeatNumber &&
			(row.Status == models.BookingStatusPending || row.Status == models.BookingStatusPaid) {
			return false, apperrors.ErrSeatAlreadyBooked
		}
	}

	s.nextID++
	booking.ID = s.nextID
	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now().UTC()
	booking.UpdatedAt = booking.CreatedAt

	copied := *booking
	s.rows[booking.ID] = &copied
	return true, nil
}

func (s *InMemoryBookingStore) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (s *InMemoryBookingStore) GetByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Booking
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, *row)
		}
	}
	return out, nil
}

func (s *InMemoryBookingStore) SetTotalPrice(ctx context.Context, id, totalPrice int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok {
		return fmt.Errorf("booking %d not found", id)
	}
	row.TotalPrice = totalPrice
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryBookingStore) UpdateStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *InMemoryBookingStore) DeletePending(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if row, ok := s.rows[id]; ok && row.Status == models.BookingStatusPending {
		delete(s.rows, id)
	}
	return nil
}

// InMemoryTransactionStore keeps the payment ledger in memory and rejects a
// second SUCCESS row for the same booking, like the partial unique index
// does in Postgres.
type InMemoryTransactionStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.Transaction
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{}
}

func (s *InMemoryTransactionStore) CreateSuccess(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.BookingID == txn.BookingID && row.Status == models.TransactionStatusSuccess {
			return apperrors.ErrAlreadyPaid
		}
	}

	s.nextID++
	txn.ID = s.nextID
	txn.Status = models.TransactionStatusSuccess
	txn.CreatedAt = time.Now().UTC()

	copied := *txn
	s.rows = append(s.rows, &copied)
	return nil
}

func (s *InMemoryTransactionStore) CreateFailed(ctx context.Context, txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	txn.ID = s.nextID
	txn.Status = models.TransactionStatusFailed
	txn.CreatedAt = time.Now().UTC()

	copied := *txn
	s.rows = append(s.rows, &copied)
	return nil
}

func (s *InMemoryTransactionStore) GetSuccessByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.BookingID == bookingID && row.Status == models.TransactionStatusSuccess {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemoryTransactionStore) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.rows {
		if row.ID == id {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemoryTransactionStore) GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Transaction
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].UserID == userID {
			out = append(out, *s.rows[i])
		}
	}
	return out, nil
}

// InMemoryUserDirectory resolves users from a fixed map.
type InMemoryUserDirectory struct {
	Users map[string]*models.User
}

func NewInMemoryUserDirectory(users ...*models.User) *InMemoryUserDirectory {
	d := &InMemoryUserDirectory{Users: make(map[string]*models.User)}
	for _, u := range users {
		d.Users[u.ID] = u
	}
	return d
}

func (d *InMemoryUserDirectory) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := d.Users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

// InMemoryMovieCatalog resolves movies from a fixed map.
type InMemoryMovieCatalog struct {
	Movies map[int64]*models.Movie
}

func NewInMemoryMovieCatalog(movies ...*models.Movie) *InMemoryMovieCatalog {
	c := &InMemoryMovieCatalog{Movies: make(map[int64]*models.Movie)}
	for _, m := range movies {
		c.Movies[m.ID] = m
	}
	return c
}

func (c *InMemoryMovieCatalog) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	if m, ok := c.Movies[id]; ok {
		return m, nil
	}
	return nil, apperrors.ErrMovieNotFound
}

// InMemoryWallet holds balances and deduplicates by idempotency key the way
// the wallet service does. A debit below zero is rejected atomically.
type InMemoryWallet struct {
	mu       sync.Mutex
	balances map[string]int64
	applied  map[string]int64
}

func NewInMemoryWallet() *InMemoryWallet {
	return &InMemoryWallet{
		balances: make(map[string]int64),
		applied:  make(map[string]int64),
	}
}

// SetBalance seeds a user's balance.
func (w *InMemoryWallet) SetBalance(userID string, amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[userID] = amount
}

// Balance reads a user's balance.
func (w *InMemoryWallet) Balance(userID string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[userID]
}

func (w *InMemoryWallet) Debit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if balance, ok := w.applied[idempotencyKey]; ok {
		return balance, nil
	}
	if w.balances[userID] < amount {
		return 0, apperrors.ErrInsufficientBalance
	}
	w.balances[userID] -= amount
	w.applied[idempotencyKey] = w.balances[userID]
	return w.balances[userID], nil
}

func (w *InMemoryWallet) Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if balance, ok := w.applied[idempotencyKey]; ok {
		return balance, nil
	}
	w.balances[userID] += amount
	w.applied[idempotencyKey] = w.balances[userID]
	return w.balances[userID], nil
}

// InMemoryHistory records payment history, deduplicated by transaction id.
type InMemoryHistory struct {
	mu      sync.Mutex
	Records map[int64]models.HistoryRecord
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{Records: make(map[int64]models.HistoryRecord)}
}

func (h *InMemoryHistory) Record(ctx context.Context, rec models.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.Records[rec.TransactionID]; ok {
		return nil
	}
	h.Records[rec.TransactionID] = rec
	return nil
}

// SentNotification is one notification captured by InMemoryNotifier.
type SentNotification struct {
	UserID    string
	BookingID int64
	Message   string
	Type      string
}

// InMemoryNotifier captures notifications for inspection.
type InMemoryNotifier struct {
	mu   sync.Mutex
	Sent []SentNotification
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) Notify(ctx context.Context, userID string, bookingID int64, message, notifType string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, SentNotification{UserID: userID, BookingID: bookingID, Message: message, Type: notifType})
	return nil
}

// PublishedEvent is one event captured by InMemoryPublisher.
type PublishedEvent struct {
	Subject string
	Data    interface{}
}

// InMemoryPublisher captures published events for inspection.
type InMemoryPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

func (p *InMemoryPublisher) Publish(subject string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Subject: subject, Data: data})
	return nil
}

// BySubject returns the captured events for one subject.
func (p *InMemoryPublisher) BySubject(subject string) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []PublishedEvent
	for _, e := range p.Events {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

// InMemoryPaidCache mirrors the Valkey fast path.
type InMemoryPaidCache struct {
	mu   sync.Mutex
	paid map[int64]int64
}

func NewInMemoryPaidCache() *InMemoryPaidCache {
	return &InMemoryPaidCache{paid: make(map[int64]int64)}
}

func (c *InMemoryPaidCache) MarkPaid(ctx context.Context, bookingID, transactionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paid[bookingID] = transactionID
	return nil
}

func (c *InMemoryPaidCache) PaidTransactionID(ctx context.Context, bookingID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.paid[bookingID]
	return id, ok
}
