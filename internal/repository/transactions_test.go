package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinobook/internal/database"
	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

func newMockTxnRepo(t *testing.T) (*TransactionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewTransactionRepository(&database.DB{DB: db}), mock
}

func TestCreateSuccessInsertsRow(t *testing.T) {
	repo, mock := newMockTxnRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), "u1", int64(50000), "A1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(10), now))

	txn := &models.Transaction{BookingID: 1, UserID: "u1", Amount: 50000, SeatNumber: "A1"}
	require.NoError(t, repo.CreateSuccess(context.Background(), txn))

	assert.Equal(t, int64(10), txn.ID)
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSuccessSecondRowRejected(t *testing.T) {
	repo, mock := newMockTxnRepo(t)

	// The partial unique index eats the insert; no row comes back.
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), "u1", int64(50000), "A1").
		WillReturnError(sql.ErrNoRows)

	txn := &models.Transaction{BookingID: 1, UserID: "u1", Amount: 50000, SeatNumber: "A1"}
	err := repo.CreateSuccess(context.Background(), txn)

	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateFailedAppends(t *testing.T) {
	repo, mock := newMockTxnRepo(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(int64(1), "u1", int64(50000), "A1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	txn := &models.Transaction{BookingID: 1, UserID: "u1", Amount: 50000, SeatNumber: "A1"}
	require.NoError(t, repo.CreateFailed(context.Background(), txn))

	assert.Equal(t, models.TransactionStatusFailed, txn.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSuccessByBookingIDAbsent(t *testing.T) {
	repo, mock := newMockTxnRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM transactions`).
		WithArgs(int64(1)).
		WillReturnError(sql.ErrNoRows)

	txn, err := repo.GetSuccessByBookingID(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, txn)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUserIDNewestFirst(t *testing.T) {
	repo, mock := newMockTxnRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM transactions`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "user_id", "amount", "seat_number", "status", "created_at",
		}).
			AddRow(int64(12), int64(2), "u1", int64(30000), "B2", models.TransactionStatusFailed, now).
			AddRow(int64(10), int64(1), "u1", int64(50000), "A1", models.TransactionStatusSuccess, now.Add(-time.Minute)))

	txns, err := repo.GetByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, int64(12), txns[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
