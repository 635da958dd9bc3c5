package errors

import "errors"

// Validation failures. Returned before any state is touched.
var ErrUserNotFound = errors.New("user not found")
var ErrMovieNotFound = errors.New("movie not found")
var ErrBookingNotFound = errors.New("booking not found")
var ErrNotOwner = errors.New("booking belongs to another user")
var ErrBookingNotPayable = errors.New("booking is not in a payable state")

// Conflict failures. The losing caller performs no mutation.
var ErrSeatAlreadyBooked = errors.New("seat is already booked")
var ErrAlreadyPaid = errors.New("booking is already paid")

// Collaborator failures.
var ErrInsufficientBalance = errors.New("wallet balance is insufficient")
var ErrWalletUnavailable = errors.New("wallet service unavailable")
var ErrServiceUnavailable = errors.New("remote service unavailable")
