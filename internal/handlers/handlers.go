package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/logger"
	"kinobook/internal/models"
	"kinobook/internal/search"
	"kinobook/internal/service"
)

type Handlers struct {
	services *service.Services
	search   *search.ElasticsearchClient
}

// NewHandlers wires the HTTP layer. The search client is optional; without
// it the audit search endpoint answers 503.
func NewHandlers(services *service.Services, searchClient *search.ElasticsearchClient) *Handlers {
	return &Handlers{
		services: services,
		search:   searchClient,
	}
}

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	booking, err := h.services.Bookings.Create(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	// Idempotent replays return the original booking with the same 201; the
	// client cannot tell a replay from its first successful submission.
	c.JSON(http.StatusCreated, models.NewBookingResponse(booking))
}

// ListBookings - GET /api/bookings?user_id=...
func (h *Handlers) ListBookings(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	bookings, err := h.services.Bookings.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make(models.ListBookingsResponse, 0, len(bookings))
	for i := range bookings {
		resp = append(resp, models.NewBookingResponse(&bookings[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetBooking - GET /api/bookings/:id
func (h *Handlers) GetBooking(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid booking id"})
		return
	}

	booking, err := h.services.Bookings.GetByID(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if booking == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: apperrors.ErrBookingNotFound.Error()})
		return
	}

	c.JSON(http.StatusOK, models.NewBookingResponse(booking))
}

// PayBooking - POST /api/payments
func (h *Handlers) PayBooking(c *gin.Context) {
	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	txn, err := h.services.Payments.Pay(c.Request.Context(), req.BookingID, req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.NewTransactionResponse(txn))
}

// ListTransactions - GET /api/transactions?user_id=...
func (h *Handlers) ListTransactions(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	txns, err := h.services.Payments.ListTransactionsByUser(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := make(models.ListTransactionsResponse, 0, len(txns))
	for i := range txns {
		resp = append(resp, models.NewTransactionResponse(&txns[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// GetTransaction - GET /api/transactions/:id
func (h *Handlers) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid transaction id"})
		return
	}

	txn, err := h.services.Payments.GetTransaction(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if txn == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "transaction not found"})
		return
	}

	c.JSON(http.StatusOK, models.NewTransactionResponse(txn))
}

// SearchTransactions - GET /api/transactions/search?user_id=...&status=...&size=...
// Serves the audit index maintained by the consumer binary.
func (h *Handlers) SearchTransactions(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "audit search is not available"})
		return
	}

	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	docs, total, err := h.search.SearchTransactions(c.Request.Context(), c.Query("user_id"), c.Query("status"), size)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("audit search failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "audit search failed"})
		return
	}

	items := make([]models.TransactionResponse, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.TransactionResponse{
			ID:         doc.TransactionID,
			BookingID:  doc.BookingID,
			UserID:     doc.UserID,
			Amount:     doc.Amount,
			SeatNumber: doc.SeatNumber,
			Status:     doc.Status,
		})
	}

	c.JSON(http.StatusOK, models.SearchTransactionsResponse{Total: total, Items: items})
}

// Health - GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError maps domain errors to HTTP statuses. Unknown errors become
// 500 without leaking internals to the client.
func (h *Handlers) writeError(c *gin.Context, err error) {
	log := logger.WithContext(c.Request.Context())

	var status int
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound),
		errors.Is(err, apperrors.ErrMovieNotFound),
		errors.Is(err, apperrors.ErrBookingNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrSeatAlreadyBooked),
		errors.Is(err, apperrors.ErrAlreadyPaid):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrBookingNotPayable):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrInsufficientBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrWalletUnavailable),
		errors.Is(err, apperrors.ErrServiceUnavailable):
		status = http.StatusServiceUnavailable
	default:
		log.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
		return
	}

	c.JSON(status, models.ErrorResponse{Error: err.Error()})
}
