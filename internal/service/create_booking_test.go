package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

type bookingFixture struct {
	store    *InMemoryBookingStore
	users    *InMemoryUserDirectory
	movies   *InMemoryMovieCatalog
	notifier *InMemoryNotifier
	events   *InMemoryPublisher
	svc      *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		store:    NewInMemoryBookingStore(),
		users:    NewInMemoryUserDirectory(&models.User{ID: "u1", Name: "Alice"}, &models.User{ID: "u2", Name: "Bob"}),
		movies:   NewInMemoryMovieCatalog(&models.Movie{ID: 7, Title: "Dune", Price: 50000}),
		notifier: NewInMemoryNotifier(),
		events:   NewInMemoryPublisher(),
	}
	f.svc = NewBookingService(f.store, f.users, f.movies, f.notifier, f.events)
	return f
}

func TestCreateBookingSuccess(t *testing.T) {
	f := newBookingFixture()

	booking, err := f.svc.Create(context.Background(), &models.CreateBookingRequest{
		UserID: "u1", MovieID: 7, SeatNumber: "A1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(50000), booking.TotalPrice)
	assert.NotZero(t, booking.ID)

	require.Len(t, f.notifier.Sent, 1)
	assert.Equal(t, models.NotificationPaymentPending, f.notifier.Sent[0].Type)

	assert.Len(t, f.events.BySubject(models.EventBookingCreated), 1)
}

func TestCreateBookingUserNotFound(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.Create(context.Background(), &models.CreateBookingRequest{
		UserID: "ghost", MovieID: 7, SeatNumber: "A1",
	})
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)

	bookings, err := f.store.GetByUserID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestCreateBookingSeatConflict(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &models.CreateBookingRequest{UserID: "u1", MovieID: 7, SeatNumber: "A1"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, &models.CreateBookingRequest{UserID: "u2", MovieID: 7, SeatNumber: "A1"})
	require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)

	// A different seat for the same movie is fine.
	_, err = f.svc.Create(ctx, &models.CreateBookingRequest{UserID: "u2", MovieID: 7, SeatNumber: "A2"})
	require.NoError(t, err)
}

func TestCreateBookingIdempotentReplay(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	req := &models.CreateBookingRequest{UserID: "u1", MovieID: 7, SeatNumber: "A1", IdempotencyKey: "req-42"}

	first, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	bookings, err := f.store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestCreateBookingMovieNotFoundReleasesSeat(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, &models.CreateBookingRequest{UserID: "u1", MovieID: 99, SeatNumber: "B1"})
	require.ErrorIs(t, err, apperrors.ErrMovieNotFound)

	bookings, err := f.store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, bookings, "failed reservation must not hold the seat")
}

func TestCreateBookingConcurrentSameSeat(t *testing.T) {
	f := newBookingFixture()
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, &models.CreateBookingRequest{UserID: "u1", MovieID: 7, SeatNumber: "C3"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, apperrors.ErrSeatAlreadyBooked)
			conflicts++
		}
	}

	assert.Equal(t, 1, wins, "exactly one attempt must win the seat")
	assert.Equal(t, attempts-1, conflicts)

	bookings, err := f.store.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}
