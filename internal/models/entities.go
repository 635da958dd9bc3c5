package models

import (
	"time"
)

// Booking statuses. A seat is considered taken while its booking is
// PENDING or PAID; FAILED and CANCELLED rows free the seat.
const (
	BookingStatusPending   = "PENDING"
	BookingStatusPaid      = "PAID"
	BookingStatusFailed    = "FAILED"
	BookingStatusCancelled = "CANCELLED"
)

// Transaction statuses. The ledger is append-only: failed attempts add new
// FAILED rows, they never overwrite earlier ones.
const (
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)

// PaymentMethodWallet is the only payment method the saga issues today.
const PaymentMethodWallet = "WALLET"

// Booking represents a seat reservation for a movie. TotalPrice is
// snapshotted from the movie catalog when the booking is created and is
// never re-read afterwards.
type Booking struct {
	ID             int64     `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	MovieID        int64     `json:"movie_id" db:"movie_id"`
	SeatNumber     string    `json:"seat_number" db:"seat_number"`
	TotalPrice     int64     `json:"total_price" db:"total_price"`
	Status         string    `json:"status" db:"status"`
	IdempotencyKey *string   `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Transaction represents one payment attempt for a booking.
type Transaction struct {
	ID         int64     `json:"id" db:"id"`
	BookingID  int64     `json:"booking_id" db:"booking_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Amount     int64     `json:"amount" db:"amount"`
	SeatNumber string    `json:"seat_number" db:"seat_number"`
	Status     string    `json:"status" db:"status"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// User is the record shape returned by the user service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Movie is the record shape returned by the movie catalog. Price is in
// minor currency units.
type Movie struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Duration int    `json:"duration,omitempty"`
	Rating   string `json:"rating,omitempty"`
	Price    int64  `json:"price"`
}

// HistoryRecord is the payload written to the history service after a
// successful payment. The history service deduplicates by TransactionID.
type HistoryRecord struct {
	TransactionID int64  `json:"transaction_id"`
	BookingID     int64  `json:"booking_id"`
	UserID        string `json:"user_id"`
	SeatNumber    string `json:"seat_number"`
	Amount        int64  `json:"amount"`
	Method        string `json:"method"`
	Status        string `json:"status"`
}

// Notification types sent to the notification service.
const (
	NotificationPaymentPending = "PAYMENT_PENDING"
	NotificationPaymentSuccess = "PAYMENT_SUCCESS"
	NotificationPaymentFailed  = "PAYMENT_FAILED"
)
