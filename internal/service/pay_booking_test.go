package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

type paymentFixture struct {
	bookings *InMemoryBookingStore
	txns     *InMemoryTransactionStore
	wallet   *InMemoryWallet
	history  *InMemoryHistory
	notifier *InMemoryNotifier
	events   *InMemoryPublisher
	cache    *InMemoryPaidCache
	svc      *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		bookings: NewInMemoryBookingStore(),
		txns:     NewInMemoryTransactionStore(),
		wallet:   NewInMemoryWallet(),
		history:  NewInMemoryHistory(),
		notifier: NewInMemoryNotifier(),
		events:   NewInMemoryPublisher(),
		cache:    NewInMemoryPaidCache(),
	}
	f.svc = NewPaymentService(f.txns, f.bookings, f.wallet, f.history, f.notifier, f.events, f.cache)
	return f
}

// seedBooking creates a priced PENDING booking owned by userID.
func (f *paymentFixture) seedBooking(t *testing.T, userID string, price int64) *models.Booking {
	t.Helper()

	booking := &models.Booking{UserID: userID, MovieID: 7, SeatNumber: "A1", TotalPrice: price}
	created, err := f.bookings.CreatePending(context.Background(), booking)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.bookings.SetTotalPrice(context.Background(), booking.ID, price))
	return booking
}

func TestPayBookingSuccessAndIdempotentRetry(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 50000)

	txn, err := f.svc.Pay(ctx, booking.ID, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, int64(50000), txn.Amount)

	stored, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPaid, stored.Status)

	assert.Equal(t, int64(0), f.wallet.Balance("u1"))
	assert.Len(t, f.history.Records, 1)
	assert.Len(t, f.events.BySubject(models.EventPaymentSucceeded), 1)

	// Retry must be rejected without touching the wallet again, and the
	// fast-fail leaves no audit row behind.
	_, err = f.svc.Pay(ctx, booking.ID, "u1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	assert.Equal(t, int64(0), f.wallet.Balance("u1"))

	attempts, err := f.txns.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.TransactionStatusSuccess, attempts[0].Status)

	success, err := f.txns.GetSuccessByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, success)
	assert.Equal(t, txn.ID, success.ID)
}

func TestPayBookingInsufficientBalance(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 30000)

	_, err := f.svc.Pay(ctx, booking.ID, "u1")
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	stored, err := f.bookings.GetByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusPending, stored.Status, "booking stays payable")

	success, err := f.txns.GetSuccessByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Nil(t, success)

	assert.Equal(t, int64(30000), f.wallet.Balance("u1"), "no partial debit")

	attempts, err := f.txns.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.TransactionStatusFailed, attempts[0].Status)
}

func TestPayBookingValidationFailures(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)

	_, err := f.svc.Pay(ctx, 999, "u1")
	assert.ErrorIs(t, err, apperrors.ErrBookingNotFound)

	_, err = f.svc.Pay(ctx, booking.ID, "u2")
	assert.ErrorIs(t, err, apperrors.ErrNotOwner)

	cancelled, err := f.bookings.UpdateStatusIf(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusCancelled)
	require.NoError(t, err)
	require.True(t, cancelled)

	_, err = f.svc.Pay(ctx, booking.ID, "u1")
	assert.ErrorIs(t, err, apperrors.ErrBookingNotPayable)
}

// brokenStatusStore fails every status update, simulating the booking store
// going down between the wallet debit and the status flip.
type brokenStatusStore struct {
	*InMemoryBookingStore
}

func (s *brokenStatusStore) UpdateStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	return false, errors.New("booking store offline")
}

func TestPayBookingRefundsWhenStatusUpdateFails(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 80000)

	broken := &brokenStatusStore{InMemoryBookingStore: f.bookings}
	svc := NewPaymentService(f.txns, broken, f.wallet, f.history, f.notifier, f.events, nil)

	_, err := svc.Pay(ctx, booking.ID, "u1")
	require.Error(t, err)

	// The debit must have been credited back in full.
	assert.Equal(t, int64(80000), f.wallet.Balance("u1"), "compensation must round-trip exactly")

	success, lookupErr := f.txns.GetSuccessByBookingID(ctx, booking.ID)
	require.NoError(t, lookupErr)
	assert.Nil(t, success)

	attempts, lookupErr := f.txns.GetByUserID(ctx, "u1")
	require.NoError(t, lookupErr)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.TransactionStatusFailed, attempts[0].Status)
}

// raceLosingStore reports the status as already flipped, simulating a
// concurrent attempt winning the compare-and-set first.
type raceLosingStore struct {
	*InMemoryBookingStore
}

func (s *raceLosingStore) UpdateStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	return false, nil
}

func TestPayBookingLoserIsRefunded(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 50000)

	losing := &raceLosingStore{InMemoryBookingStore: f.bookings}
	svc := NewPaymentService(f.txns, losing, f.wallet, f.history, f.notifier, f.events, nil)

	_, err := svc.Pay(ctx, booking.ID, "u1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)

	assert.Equal(t, int64(50000), f.wallet.Balance("u1"), "losing attempt must not keep the debit")

	// The loser debited and was refunded, so its round-trip leaves a FAILED
	// audit row, unlike the fast-fail paths that never touch the wallet.
	attempts, err := f.txns.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.TransactionStatusFailed, attempts[0].Status)
}

func TestPayBookingConcurrentSingleWinner(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 500000)

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Pay(ctx, booking.ID, "u1")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins int
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
		}
	}
	assert.Equal(t, 1, wins, "exactly one payment attempt must settle")

	// The wallet is debited exactly once; every loser was refunded.
	assert.Equal(t, int64(450000), f.wallet.Balance("u1"))

	success, err := f.txns.GetSuccessByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	require.NotNil(t, success)
}

func TestPayBookingWalletNeverNegative(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	// Balance covers only one of the two bookings.
	f.wallet.SetBalance("u1", 50000)

	first := f.seedBooking(t, "u1", 50000)
	second := &models.Booking{UserID: "u1", MovieID: 7, SeatNumber: "A2", TotalPrice: 50000}
	created, err := f.bookings.CreatePending(ctx, second)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, f.bookings.SetTotalPrice(ctx, second.ID, 50000))

	_, err = f.svc.Pay(ctx, first.ID, "u1")
	require.NoError(t, err)

	_, err = f.svc.Pay(ctx, second.ID, "u1")
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	assert.GreaterOrEqual(t, f.wallet.Balance("u1"), int64(0))
	assert.Equal(t, int64(0), f.wallet.Balance("u1"))
}

func TestPayBookingCacheFastPath(t *testing.T) {
	f := newPaymentFixture()
	ctx := context.Background()

	booking := f.seedBooking(t, "u1", 50000)
	f.wallet.SetBalance("u1", 50000)

	require.NoError(t, f.cache.MarkPaid(ctx, booking.ID, 123))

	_, err := f.svc.Pay(ctx, booking.ID, "u1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	assert.Equal(t, int64(50000), f.wallet.Balance("u1"), "cached rejection must not debit")
}

func TestHistoryRecordIsDeduplicated(t *testing.T) {
	h := NewInMemoryHistory()
	ctx := context.Background()

	rec := models.HistoryRecord{TransactionID: 7, BookingID: 1, UserID: "u1", Amount: 50000, Method: models.PaymentMethodWallet, Status: models.TransactionStatusSuccess}
	require.NoError(t, h.Record(ctx, rec))
	require.NoError(t, h.Record(ctx, rec))

	assert.Len(t, h.Records, 1)
}
