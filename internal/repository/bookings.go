package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kinobook/internal/database"
	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

// BookingRepository owns the booking ledger. The seat invariant is enforced
// by the partial unique index on (movie_id, seat_number) for PENDING/PAID
// rows; every write here leans on that index instead of check-then-insert.
type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// CreatePending atomically reserves a seat by inserting a PENDING row.
// Returns true when a new row was inserted. When the insert conflicts on
// the caller's idempotency key, the previously created booking is loaded
// into booking and false is returned. A conflict on the seat index returns
// ErrSeatAlreadyBooked.
func (r *BookingRepository) CreatePending(ctx context.Context, booking *models.Booking) (bool, error) {
	query := `
		INSERT INTO bookings (user_id, movie_id, seat_number, total_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		booking.UserID,
		booking.MovieID,
		booking.SeatNumber,
		booking.TotalPrice,
		booking.IdempotencyKey,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err == nil {
		booking.Status = models.BookingStatusPending
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	// The insert lost a race. If the caller supplied an idempotency key the
	// conflict may be its own earlier submission.
	if booking.IdempotencyKey != nil {
		existing, lookupErr := r.GetByIdempotencyKey(ctx, *booking.IdempotencyKey)
		if lookupErr != nil {
			return false, lookupErr
		}
		if existing != nil {
			*booking = *existing
			return false, nil
		}
	}

	return false, apperrors.ErrSeatAlreadyBooked
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, user_id, movie_id, seat_number, total_price, status, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.MovieID,
		&booking.SeatNumber,
		&booking.TotalPrice,
		&booking.Status,
		&booking.IdempotencyKey,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `
		SELECT id, user_id, movie_id, seat_number, total_price, status, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE idempotency_key = $1`

	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.MovieID,
		&booking.SeatNumber,
		&booking.TotalPrice,
		&booking.Status,
		&booking.IdempotencyKey,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, user_id, movie_id, seat_number, total_price, status, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.MovieID,
			&booking.SeatNumber,
			&booking.TotalPrice,
			&booking.Status,
			&booking.IdempotencyKey,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// SetTotalPrice persists the price snapshot taken from the movie catalog
// right after the seat was reserved.
func (r *BookingRepository) SetTotalPrice(ctx context.Context, id, totalPrice int64) error {
	query := `UPDATE bookings SET total_price = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, totalPrice, id)
	return err
}

// UpdateStatusIf performs a compare-and-set on the booking status. Returns
// false when the row was not in the expected state, which is how racing
// payment attempts lose.
func (r *BookingRepository) UpdateStatusIf(ctx context.Context, id int64, from, to string) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DeletePending removes a reservation that never got its price, as the
// compensation for a failed movie lookup. Only PENDING rows are touched so
// a paid booking can never be deleted by a stale compensation.
func (r *BookingRepository) DeletePending(ctx context.Context, id int64) error {
	query := `DELETE FROM bookings WHERE id = $1 AND status = 'PENDING'`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// GetExpiredPending returns PENDING bookings created before the cutoff,
// oldest first. Used by the expiration job.
func (r *BookingRepository) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `
		SELECT id, user_id, movie_id, seat_number, total_price, status, idempotency_key, created_at, updated_at
		FROM bookings
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.UserID,
			&booking.MovieID,
			&booking.SeatNumber,
			&booking.TotalPrice,
			&booking.Status,
			&booking.IdempotencyKey,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}
