package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createBookingsTable,
		createBookingsSeatIndex,
		createBookingsIdempotencyIndex,
		createTransactionsTable,
		createTransactionsSuccessIndex,
		createTransactionsBookingIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id BIGSERIAL PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    movie_id BIGINT NOT NULL,
    seat_number VARCHAR(16) NOT NULL,
    total_price BIGINT NOT NULL DEFAULT 0,
    status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
    idempotency_key VARCHAR(128),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('PENDING', 'PAID', 'FAILED', 'CANCELLED')),
    CHECK (total_price >= 0)
);`

// The seat invariant lives here: at most one PENDING or PAID booking per
// (movie, seat). Concurrent inserts race on this index, not on application
// level checks.
const createBookingsSeatIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS bookings_active_seat_idx
    ON bookings (movie_id, seat_number)
    WHERE status IN ('PENDING', 'PAID');`

const createBookingsIdempotencyIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS bookings_idempotency_key_idx
    ON bookings (idempotency_key)
    WHERE idempotency_key IS NOT NULL;`

const createTransactionsTable = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    booking_id BIGINT NOT NULL,
    user_id VARCHAR(64) NOT NULL,
    amount BIGINT NOT NULL DEFAULT 0,
    seat_number VARCHAR(16) NOT NULL DEFAULT '',
    status VARCHAR(20) NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (status IN ('SUCCESS', 'FAILED'))
);`

// At most one SUCCESS row per booking. Concurrent payment attempts race on
// this index.
const createTransactionsSuccessIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS transactions_success_booking_idx
    ON transactions (booking_id)
    WHERE status = 'SUCCESS';`

const createTransactionsBookingIndex = `
CREATE INDEX IF NOT EXISTS transactions_user_created_idx
    ON transactions (user_id, created_at DESC);`
