package jobs

import (
	"context"
	"log/slog"
	"time"

	"kinobook/internal/messaging"
	"kinobook/internal/models"
	"kinobook/internal/repository"
)

// BookingExpirationJob cancels PENDING bookings that were never paid, so
// abandoned reservations release their seats. Cancellation uses the same
// compare-and-set as the payment saga: a booking paid between the read and
// the update is left alone.
type BookingExpirationJob struct {
	bookingRepo *repository.BookingRepository
	natsClient  *messaging.NATSClient
	ttl         time.Duration
	interval    time.Duration
	ticker      *time.Ticker
	done        chan bool
}

func NewBookingExpirationJob(bookingRepo *repository.BookingRepository, natsClient *messaging.NATSClient, ttl, interval time.Duration) *BookingExpirationJob {
	return &BookingExpirationJob{
		bookingRepo: bookingRepo,
		natsClient:  natsClient,
		ttl:         ttl,
		interval:    interval,
		done:        make(chan bool),
	}
}

// Start begins the background job that sweeps for expired bookings.
func (j *BookingExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting booking expiration job", "check_interval", j.interval.String(), "ttl", j.ttl.String())

	j.ticker = time.NewTicker(j.interval)

	// Sweeps run one at a time on this goroutine; a slow sweep delays the
	// next one instead of overlapping it.
	go func() {
		j.sweep(ctx)
		for {
			select {
			case <-j.ticker.C:
				j.sweep(ctx)
			case <-j.done:
				slog.Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the background job.
func (j *BookingExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *BookingExpirationJob) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.ttl)

	expired, err := j.bookingRepo.GetExpiredPending(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to get expired bookings", "error", err)
		return
	}

	if len(expired) == 0 {
		slog.Debug("No expired bookings found")
		return
	}

	slog.Info("Found expired bookings to cancel", "count", len(expired))

	for _, booking := range expired {
		if err := j.expireBooking(ctx, &booking); err != nil {
			slog.Error("Failed to expire booking",
				"error", err,
				"booking_id", booking.ID,
				"created_at", booking.CreatedAt)
		}
	}
}

func (j *BookingExpirationJob) expireBooking(ctx context.Context, booking *models.Booking) error {
	cancelled, err := j.bookingRepo.UpdateStatusIf(ctx, booking.ID, models.BookingStatusPending, models.BookingStatusCancelled)
	if err != nil {
		return err
	}
	if !cancelled {
		// Paid or already cancelled since the sweep read it.
		slog.Debug("Booking no longer pending, skipping", "booking_id", booking.ID)
		return nil
	}

	slog.Info("Cancelled expired booking",
		"booking_id", booking.ID,
		"age", time.Since(booking.CreatedAt).String())

	if j.natsClient != nil {
		event := models.BookingCancelledEvent{
			BookingID: booking.ID,
			UserID:    booking.UserID,
			Reason:    "payment window expired",
			Timestamp: time.Now().UTC(),
		}
		if err := j.natsClient.Publish(models.EventBookingCancelled, event); err != nil {
			slog.Warn("Failed to publish booking cancelled event", "booking_id", booking.ID, "error", err)
		}
	}

	return nil
}
