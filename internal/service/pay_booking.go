package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/logger"
	"kinobook/internal/metrics"
	"kinobook/internal/models"
)

// Payment saga states, logged on every transition.
const (
	payStateStart          = "START"
	payStateValidated      = "VALIDATED"
	payStateDebited        = "DEBITED"
	payStateBookingUpdated = "BOOKING_UPDATED"
	payStateRecorded       = "RECORDED"
	payStateDone           = "DONE"
	payStateFailed         = "FAILED"
)

// PaymentService runs the wallet payment saga. The order is fixed: check
// the ledger, validate the booking, debit the wallet, flip the booking to
// PAID with a compare-and-set, record the SUCCESS transaction. Once the
// wallet has been debited, every failure path credits the money back before
// returning; the saga never ends with a debit it cannot account for.
type PaymentService struct {
	transactions TransactionStore
	bookings     BookingStore
	wallet       WalletService
	history      HistoryService
	notifier     Notifier
	events       EventPublisher
	paid         PaidCache
}

func NewPaymentService(transactions TransactionStore, bookings BookingStore, wallet WalletService, history HistoryService, notifier Notifier, events EventPublisher, paid PaidCache) *PaymentService {
	return &PaymentService{
		transactions: transactions,
		bookings:     bookings,
		wallet:       wallet,
		history:      history,
		notifier:     notifier,
		events:       events,
		paid:         paid,
	}
}

// Pay settles a PENDING booking from the user's wallet and returns the
// SUCCESS transaction. Retrying a settled booking returns ErrAlreadyPaid
// without touching the wallet. When several attempts race on one booking,
// exactly one wins; the losers are refunded in full.
func (s *PaymentService) Pay(ctx context.Context, bookingID int64, userID string) (*models.Transaction, error) {
	start := time.Now()
	defer metrics.ObserveSaga("pay_booking", start)

	log := logger.WithSaga(ctx, "pay_booking", bookingID).With("state", payStateStart)

	// Fast path: the cache remembers settled bookings so retries skip the
	// ledger. A cache miss proves nothing, the ledger below is the truth.
	if s.paid != nil {
		if txnID, ok := s.paid.PaidTransactionID(ctx, bookingID); ok {
			log.Info("payment replay rejected by cache", "transaction_id", txnID)
			metrics.Payments.WithLabelValues("already_paid").Inc()
			return nil, apperrors.ErrAlreadyPaid
		}
	}

	if existing, err := s.transactions.GetSuccessByBookingID(ctx, bookingID); err != nil {
		return nil, fmt.Errorf("checking payment ledger: %w", err)
	} else if existing != nil {
		log.Info("payment replay rejected by ledger", "transaction_id", existing.ID)
		metrics.Payments.WithLabelValues("already_paid").Inc()
		return nil, apperrors.ErrAlreadyPaid
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("loading booking: %w", err)
	}
	if booking == nil {
		s.recordFailure(ctx, log, &models.Transaction{BookingID: bookingID, UserID: userID}, apperrors.ErrBookingNotFound)
		return nil, apperrors.ErrBookingNotFound
	}
	if booking.UserID != userID {
		s.recordFailure(ctx, log, failedAttempt(booking, userID), apperrors.ErrNotOwner)
		return nil, apperrors.ErrNotOwner
	}
	if booking.Status == models.BookingStatusPaid {
		// A concurrent attempt won between the ledger check and this read.
		log.Info("payment replay rejected, booking already paid")
		metrics.Payments.WithLabelValues("already_paid").Inc()
		return nil, apperrors.ErrAlreadyPaid
	}
	if booking.Status != models.BookingStatusPending {
		s.recordFailure(ctx, log, failedAttempt(booking, userID), apperrors.ErrBookingNotPayable)
		return nil, fmt.Errorf("%w: status is %s", apperrors.ErrBookingNotPayable, booking.Status)
	}

	log = log.With("state", payStateValidated, "amount", booking.TotalPrice)
	log.Info("booking validated")

	// Each saga run gets its own attempt id. The wallet deduplicates by
	// idempotency key, so retries inside one Debit call are safe, while
	// concurrent runs stay distinguishable and the loser's credit undoes
	// exactly its own debit.
	attemptID := uuid.New().String()

	if _, err := s.wallet.Debit(ctx, userID, booking.TotalPrice, debitKey(bookingID, attemptID)); err != nil {
		log.Warn("wallet debit failed", "error", err)
		s.recordFailure(ctx, log, failedAttempt(booking, userID), err)
		return nil, err
	}

	log = log.With("state", payStateDebited)
	log.Info("wallet debited")

	// Pivot: exactly one attempt flips PENDING to PAID. From here on the
	// money is in our hands and every exit must either commit the SUCCESS
	// row or credit the wallet back.
	updated, err := s.bookings.UpdateStatusIf(ctx, bookingID, models.BookingStatusPending, models.BookingStatusPaid)
	if err != nil || !updated {
		s.creditBack(ctx, log, userID, booking.TotalPrice, attemptID)
		s.recordFailure(ctx, log, failedAttempt(booking, userID), apperrors.ErrAlreadyPaid)
		if err != nil {
			return nil, fmt.Errorf("updating booking status: %w", err)
		}
		log.Info("lost the payment race, debit refunded")
		return nil, apperrors.ErrAlreadyPaid
	}

	log = log.With("state", payStateBookingUpdated)
	log.Info("booking marked paid")

	txn := &models.Transaction{
		BookingID:  bookingID,
		UserID:     userID,
		Amount:     booking.TotalPrice,
		SeatNumber: booking.SeatNumber,
	}
	if err := s.transactions.CreateSuccess(ctx, txn); err != nil {
		// Undo the status flip before refunding so the booking does not stay
		// PAID without a SUCCESS row behind it.
		if reverted, revertErr := s.bookings.UpdateStatusIf(ctx, bookingID, models.BookingStatusPaid, models.BookingStatusPending); revertErr != nil || !reverted {
			log.Error("status revert failed after ledger write error", "error", revertErr)
		}
		s.creditBack(ctx, log, userID, booking.TotalPrice, attemptID)
		s.recordFailure(ctx, log, failedAttempt(booking, userID), err)
		if errors.Is(err, apperrors.ErrAlreadyPaid) {
			return nil, err
		}
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	log = log.With("state", payStateRecorded, "transaction_id", txn.ID)
	log.Info("transaction recorded")

	s.settle(ctx, log, booking, txn)

	log.With("state", payStateDone).Info("payment settled")
	metrics.Payments.WithLabelValues("success").Inc()
	return txn, nil
}

// GetTransaction returns a transaction or nil when it does not exist.
func (s *PaymentService) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.transactions.GetByID(ctx, id)
}

// ListTransactionsByUser returns the user's payment attempts, newest first.
func (s *PaymentService) ListTransactionsByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.transactions.GetByUserID(ctx, userID)
}

// creditBack refunds a debit taken by this attempt. The wallet client
// retries internally; if it still fails the debit is logged loudly since it
// now needs operator attention.
func (s *PaymentService) creditBack(ctx context.Context, log *slog.Logger, userID string, amount int64, attemptID string) {
	metrics.Compensations.WithLabelValues("wallet_credit").Inc()
	if _, err := s.wallet.Credit(ctx, userID, amount, creditKey(attemptID)); err != nil {
		log.Error("compensating credit failed, wallet debit is unreconciled",
			"user_id", userID, "amount", amount, "attempt_id", attemptID, "error", err)
		return
	}
	log.Info("wallet credited back", "amount", amount)
}

// recordFailure appends a FAILED row for audit and fires the best-effort
// failure signals. Audit writes never mask the saga's own error.
func (s *PaymentService) recordFailure(ctx context.Context, log *slog.Logger, txn *models.Transaction, cause error) {
	log = log.With("state", payStateFailed)
	metrics.Payments.WithLabelValues(failureReason(cause)).Inc()

	if err := s.transactions.CreateFailed(ctx, txn); err != nil {
		log.Error("failed to append FAILED transaction", "error", err)
	}

	if s.events != nil {
		event := models.PaymentFailedEvent{
			TransactionID: txn.ID,
			BookingID:     txn.BookingID,
			UserID:        txn.UserID,
			Amount:        txn.Amount,
			Reason:        cause.Error(),
			Timestamp:     time.Now().UTC(),
		}
		if err := s.events.Publish(models.EventPaymentFailed, event); err != nil {
			log.Warn("payment.failed publish failed", "error", err)
		}
	}

	if s.notifier != nil && txn.UserID != "" {
		msg := fmt.Sprintf("Payment for booking %d failed: %v", txn.BookingID, cause)
		if err := s.notifier.Notify(ctx, txn.UserID, txn.BookingID, msg, models.NotificationPaymentFailed); err != nil {
			log.Warn("failure notification failed", "error", err)
		}
	}
}

// settle runs the best-effort tail of a successful payment: cache, history,
// notification, event. None of these can fail the saga; the SUCCESS row is
// already committed.
func (s *PaymentService) settle(ctx context.Context, log *slog.Logger, booking *models.Booking, txn *models.Transaction) {
	if s.paid != nil {
		if err := s.paid.MarkPaid(ctx, booking.ID, txn.ID); err != nil {
			log.Warn("paid cache update failed", "error", err)
		}
	}

	if s.history != nil {
		rec := models.HistoryRecord{
			TransactionID: txn.ID,
			BookingID:     booking.ID,
			UserID:        booking.UserID,
			SeatNumber:    booking.SeatNumber,
			Amount:        txn.Amount,
			Method:        models.PaymentMethodWallet,
			Status:        models.TransactionStatusSuccess,
		}
		if err := s.history.Record(ctx, rec); err != nil {
			log.Warn("history record failed", "error", err)
		}
	}

	if s.notifier != nil {
		msg := fmt.Sprintf("Payment of %d for seat %s confirmed", txn.Amount, booking.SeatNumber)
		if err := s.notifier.Notify(ctx, booking.UserID, booking.ID, msg, models.NotificationPaymentSuccess); err != nil {
			log.Warn("success notification failed", "error", err)
		}
	}

	if s.events != nil {
		event := models.PaymentSucceededEvent{
			TransactionID: txn.ID,
			BookingID:     booking.ID,
			UserID:        booking.UserID,
			Amount:        txn.Amount,
			SeatNumber:    booking.SeatNumber,
			Timestamp:     time.Now().UTC(),
		}
		if err := s.events.Publish(models.EventPaymentSucceeded, event); err != nil {
			log.Warn("payment.succeeded publish failed", "error", err)
		}
	}
}

func failedAttempt(booking *models.Booking, userID string) *models.Transaction {
	return &models.Transaction{
		BookingID:  booking.ID,
		UserID:     userID,
		Amount:     booking.TotalPrice,
		SeatNumber: booking.SeatNumber,
	}
}

func debitKey(bookingID int64, attemptID string) string {
	return fmt.Sprintf("debit-%d-%s", bookingID, attemptID)
}

func creditKey(attemptID string) string {
	return fmt.Sprintf("credit-%s", attemptID)
}
