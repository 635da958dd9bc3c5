package repository

import (
	"context"
	"database/sql"
	"errors"

	"kinobook/internal/database"
	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

// TransactionRepository owns the payment-transaction ledger. The ledger is
// append-only; the partial unique index on (booking_id) WHERE status =
// 'SUCCESS' guarantees a booking is paid at most once.
type TransactionRepository struct {
	db *database.DB
}

func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// CreateSuccess inserts the SUCCESS row for a booking. Returns
// ErrAlreadyPaid when another attempt already recorded one; racing payment
// attempts are decided here, by the index, not by a prior read.
func (r *TransactionRepository) CreateSuccess(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (booking_id, user_id, amount, seat_number, status)
		VALUES ($1, $2, $3, $4, 'SUCCESS')
		ON CONFLICT DO NOTHING
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		txn.BookingID,
		txn.UserID,
		txn.Amount,
		txn.SeatNumber,
	).Scan(&txn.ID, &txn.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.ErrAlreadyPaid
	}
	if err != nil {
		return err
	}

	txn.Status = models.TransactionStatusSuccess
	return nil
}

// CreateFailed appends a FAILED row for audit. Earlier attempts are never
// mutated; each failure is its own row.
func (r *TransactionRepository) CreateFailed(ctx context.Context, txn *models.Transaction) error {
	query := `
		INSERT INTO transactions (booking_id, user_id, amount, seat_number, status)
		VALUES ($1, $2, $3, $4, 'FAILED')
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		txn.BookingID,
		txn.UserID,
		txn.Amount,
		txn.SeatNumber,
	).Scan(&txn.ID, &txn.CreatedAt)
	if err != nil {
		return err
	}

	txn.Status = models.TransactionStatusFailed
	return nil
}

// GetSuccessByBookingID returns the SUCCESS transaction for a booking, or
// nil when the booking has not been paid.
func (r *TransactionRepository) GetSuccessByBookingID(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	txn := &models.Transaction{}
	query := `
		SELECT id, booking_id, user_id, amount, seat_number, status, created_at
		FROM transactions
		WHERE booking_id = $1 AND status = 'SUCCESS'`

	err := r.db.QueryRowContext(ctx, query, bookingID).Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.UserID,
		&txn.Amount,
		&txn.SeatNumber,
		&txn.Status,
		&txn.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return txn, err
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	txn := &models.Transaction{}
	query := `
		SELECT id, booking_id, user_id, amount, seat_number, status, created_at
		FROM transactions
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.UserID,
		&txn.Amount,
		&txn.SeatNumber,
		&txn.Status,
		&txn.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return txn, err
}

// GetByUserID returns all payment attempts for a user, newest first.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	query := `
		SELECT id, booking_id, user_id, amount, seat_number, status, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var txn models.Transaction
		err := rows.Scan(
			&txn.ID,
			&txn.BookingID,
			&txn.UserID,
			&txn.Amount,
			&txn.SeatNumber,
			&txn.Status,
			&txn.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}
