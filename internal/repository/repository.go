package repository

import (
	"kinobook/internal/database"
)

type Repositories struct {
	Bookings     *BookingRepository
	Transactions *TransactionRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Bookings:     NewBookingRepository(db),
		Transactions: NewTransactionRepository(db),
	}
}
