package models

import "time"

// NATS event subjects
const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
	EventPaymentSucceeded = "payment.succeeded"
	EventPaymentFailed    = "payment.failed"
)

// BookingCreatedEvent is published after a booking row is committed.
type BookingCreatedEvent struct {
	BookingID  int64     `json:"booking_id"`
	UserID     string    `json:"user_id"`
	MovieID    int64     `json:"movie_id"`
	SeatNumber string    `json:"seat_number"`
	TotalPrice int64     `json:"total_price"`
	Timestamp  time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published when a pending booking is cancelled,
// for example by the expiration job.
type BookingCancelledEvent struct {
	BookingID int64     `json:"booking_id"`
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentSucceededEvent is published after a SUCCESS transaction row is
// committed.
type PaymentSucceededEvent struct {
	TransactionID int64     `json:"transaction_id"`
	BookingID     int64     `json:"booking_id"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	SeatNumber    string    `json:"seat_number"`
	Timestamp     time.Time `json:"timestamp"`
}

// PaymentFailedEvent is published after a FAILED transaction row is
// committed.
type PaymentFailedEvent struct {
	TransactionID int64     `json:"transaction_id"`
	BookingID     int64     `json:"booking_id"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}
