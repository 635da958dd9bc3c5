package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/logger"
	"kinobook/internal/metrics"
	"kinobook/internal/models"
)

// BookingService runs the booking creation saga: validate the user, reserve
// the seat, snapshot the price, then fire best-effort notifications. The
// seat reservation is the pivot; after it commits, the only failure path is
// a compensating delete of the still-PENDING row.
type BookingService struct {
	bookings BookingStore
	users    UserDirectory
	movies   MovieCatalog
	notifier Notifier
	events   EventPublisher
}

func NewBookingService(bookings BookingStore, users UserDirectory, movies MovieCatalog, notifier Notifier, events EventPublisher) *BookingService {
	return &BookingService{
		bookings: bookings,
		users:    users,
		movies:   movies,
		notifier: notifier,
		events:   events,
	}
}

// Create reserves a seat for the user and returns the PENDING booking.
// When req carries an idempotency key the call replays: resubmitting the
// same key returns the previously created booking unchanged.
func (s *BookingService) Create(ctx context.Context, req *models.CreateBookingRequest) (*models.Booking, error) {
	start := time.Now()
	defer metrics.ObserveSaga("create_booking", start)

	log := logger.WithSaga(ctx, "create_booking", fmt.Sprintf("%d/%s", req.MovieID, req.SeatNumber))

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		log.Warn("user validation failed", "user_id", req.UserID, "error", err)
		metrics.BookingFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	booking := &models.Booking{
		UserID:     req.UserID,
		MovieID:    req.MovieID,
		SeatNumber: req.SeatNumber,
		Status:     models.BookingStatusPending,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		booking.IdempotencyKey = &key
	}

	created, err := s.bookings.CreatePending(ctx, booking)
	if err != nil {
		log.Warn("seat reservation failed", "error", err)
		metrics.BookingFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	if !created {
		// Idempotent replay: the key was seen before, the stored booking is
		// returned as-is regardless of how far it has progressed since.
		log.Info("booking replayed by idempotency key", "booking_id", booking.ID, "status", booking.Status)
		return booking, nil
	}

	log = log.With("booking_id", booking.ID)
	log.Info("seat reserved")

	movie, err := s.movies.GetByID(ctx, req.MovieID)
	if err != nil {
		// The seat row is already committed, so a dead catalog must not leave
		// a priceless reservation holding the seat.
		log.Error("movie lookup failed after reservation, releasing seat", "error", err)
		s.releaseSeat(ctx, booking.ID)
		metrics.BookingFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	booking.TotalPrice = movie.Price
	if err := s.bookings.SetTotalPrice(ctx, booking.ID, movie.Price); err != nil {
		log.Error("price snapshot failed, releasing seat", "error", err)
		s.releaseSeat(ctx, booking.ID)
		metrics.BookingFailures.WithLabelValues("store").Inc()
		return nil, err
	}

	log.Info("booking created", "total_price", booking.TotalPrice)
	metrics.BookingsCreated.Inc()

	s.notifyPending(ctx, log, booking, movie)
	s.publishCreated(log, booking)

	return booking, nil
}

// GetByID returns a booking or nil when it does not exist.
func (s *BookingService) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// ListByUser returns the user's bookings, newest first.
func (s *BookingService) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.bookings.GetByUserID(ctx, userID)
}

// releaseSeat is the compensating action for a reservation whose saga died
// before the price snapshot. DeletePending only touches PENDING rows, so a
// booking that was paid in the meantime is left alone.
func (s *BookingService) releaseSeat(ctx context.Context, bookingID int64) {
	metrics.Compensations.WithLabelValues("booking_delete").Inc()
	if err := s.bookings.DeletePending(ctx, bookingID); err != nil {
		logger.WithContext(ctx).Error("compensating delete failed, seat stays reserved until expiration",
			"booking_id", bookingID, "error", err)
	}
}

func (s *BookingService) notifyPending(ctx context.Context, log *slog.Logger, booking *models.Booking, movie *models.Movie) {
	if s.notifier == nil {
		return
	}
	msg := fmt.Sprintf("Booking for %s seat %s created, awaiting payment of %d", movie.Title, booking.SeatNumber, booking.TotalPrice)
	if err := s.notifier.Notify(ctx, booking.UserID, booking.ID, msg, models.NotificationPaymentPending); err != nil {
		log.Warn("pending notification failed", "error", err)
	}
}

func (s *BookingService) publishCreated(log *slog.Logger, booking *models.Booking) {
	if s.events == nil {
		return
	}
	event := models.BookingCreatedEvent{
		BookingID:  booking.ID,
		UserID:     booking.UserID,
		MovieID:    booking.MovieID,
		SeatNumber: booking.SeatNumber,
		TotalPrice: booking.TotalPrice,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.events.Publish(models.EventBookingCreated, event); err != nil {
		log.Warn("booking.created publish failed", "error", err)
	}
}

// failureReason maps a saga error to a stable metric label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, apperrors.ErrMovieNotFound):
		return "movie_not_found"
	case errors.Is(err, apperrors.ErrSeatAlreadyBooked):
		return "seat_taken"
	case errors.Is(err, apperrors.ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, apperrors.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, apperrors.ErrBookingNotPayable):
		return "not_payable"
	case errors.Is(err, apperrors.ErrAlreadyPaid):
		return "already_paid"
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, apperrors.ErrWalletUnavailable),
		errors.Is(err, apperrors.ErrServiceUnavailable):
		return "upstream_unavailable"
	default:
		return "internal"
	}
}
