package models

// CreateBookingRequest is the inbound payload for booking creation.
// IdempotencyKey is optional; resubmitting the same key returns the booking
// created by the first attempt instead of reserving another seat.
type CreateBookingRequest struct {
	UserID         string `json:"user_id" binding:"required"`
	MovieID        int64  `json:"movie_id" binding:"required"`
	SeatNumber     string `json:"seat_number" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PayBookingRequest is the inbound payload for paying a booking from the
// user's wallet.
type PayBookingRequest struct {
	BookingID int64  `json:"booking_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
}

// BookingResponse mirrors a booking row.
type BookingResponse struct {
	ID         int64  `json:"id"`
	UserID     string `json:"user_id"`
	MovieID    int64  `json:"movie_id"`
	SeatNumber string `json:"seat_number"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
}

// ListBookingsResponse is the list shape for a user's bookings.
type ListBookingsResponse []BookingResponse

// TransactionResponse mirrors a transaction row.
type TransactionResponse struct {
	ID         int64  `json:"id"`
	BookingID  int64  `json:"booking_id"`
	UserID     string `json:"user_id"`
	Amount     int64  `json:"amount"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

// ListTransactionsResponse is the list shape for a user's transactions,
// newest first.
type ListTransactionsResponse []TransactionResponse

// SearchTransactionsResponse is returned by the audit search endpoint.
type SearchTransactionsResponse struct {
	Total int                   `json:"total"`
	Items []TransactionResponse `json:"items"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewBookingResponse converts a booking entity.
func NewBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID,
		UserID:     b.UserID,
		MovieID:    b.MovieID,
		SeatNumber: b.SeatNumber,
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
	}
}

// NewTransactionResponse converts a transaction entity.
func NewTransactionResponse(t *Transaction) TransactionResponse {
	return TransactionResponse{
		ID:         t.ID,
		BookingID:  t.BookingID,
		UserID:     t.UserID,
		Amount:     t.Amount,
		SeatNumber: t.SeatNumber,
		Status:     t.Status,
	}
}
