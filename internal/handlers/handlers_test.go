package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinobook/internal/models"
	"kinobook/internal/service"
)

type testStack struct {
	router *gin.Engine
	wallet *service.InMemoryWallet
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	bookings := service.NewInMemoryBookingStore()
	txns := service.NewInMemoryTransactionStore()
	users := service.NewInMemoryUserDirectory(&models.User{ID: "u1", Name: "Alice"})
	movies := service.NewInMemoryMovieCatalog(&models.Movie{ID: 7, Title: "Dune", Price: 50000})
	wallet := service.NewInMemoryWallet()
	history := service.NewInMemoryHistory()
	notifier := service.NewInMemoryNotifier()
	events := service.NewInMemoryPublisher()

	services := &service.Services{
		Bookings: service.NewBookingService(bookings, users, movies, notifier, events),
		Payments: service.NewPaymentService(txns, bookings, wallet, history, notifier, events, nil),
	}

	h := NewHandlers(services, nil)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/bookings", h.CreateBooking)
	api.GET("/bookings", h.ListBookings)
	api.GET("/bookings/:id", h.GetBooking)
	api.POST("/payments", h.PayBooking)
	api.GET("/transactions", h.ListTransactions)
	api.GET("/transactions/search", h.SearchTransactions)
	api.GET("/transactions/:id", h.GetTransaction)

	return &testStack{router: router, wallet: wallet}
}

func (s *testStack) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testStack) createBooking(t *testing.T) models.BookingResponse {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		UserID: "u1", MovieID: 7, SeatNumber: "A1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateBookingEndpoint(t *testing.T) {
	s := newTestStack(t)

	resp := s.createBooking(t)
	assert.Equal(t, models.BookingStatusPending, resp.Status)
	assert.Equal(t, int64(50000), resp.TotalPrice)

	// Same seat again conflicts.
	w := s.do(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		UserID: "u1", MovieID: 7, SeatNumber: "A1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	s := newTestStack(t)

	w := s.do(t, http.MethodPost, "/api/bookings", map[string]any{"user_id": "u1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		UserID: "ghost", MovieID: 7, SeatNumber: "B1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetBookingEndpoint(t *testing.T) {
	s := newTestStack(t)
	created := s.createBooking(t)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/bookings/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/bookings/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/bookings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPayBookingEndpoint(t *testing.T) {
	s := newTestStack(t)
	created := s.createBooking(t)
	s.wallet.SetBalance("u1", 50000)

	w := s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: created.ID, UserID: "u1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var txn models.TransactionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txn))
	assert.Equal(t, models.TransactionStatusSuccess, txn.Status)
	assert.Equal(t, int64(50000), txn.Amount)

	// Paying again conflicts.
	w = s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: created.ID, UserID: "u1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayBookingErrorMapping(t *testing.T) {
	s := newTestStack(t)
	created := s.createBooking(t)
	s.wallet.SetBalance("u1", 30000)

	// Not the owner.
	w := s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: created.ID, UserID: "u2",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown booking.
	w = s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: 999, UserID: "u1",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Balance 30000 against price 50000.
	w = s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: created.ID, UserID: "u1",
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, int64(30000), s.wallet.Balance("u1"))
}

func TestListTransactionsEndpoint(t *testing.T) {
	s := newTestStack(t)
	created := s.createBooking(t)
	s.wallet.SetBalance("u1", 50000)

	w := s.do(t, http.MethodPost, "/api/payments", models.PayBookingRequest{
		BookingID: created.ID, UserID: "u1",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/transactions?user_id=u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var txns models.ListTransactionsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txns))
	require.Len(t, txns, 1)
	assert.Equal(t, models.TransactionStatusSuccess, txns[0].Status)

	w = s.do(t, http.MethodGet, "/api/transactions", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "user_id is required")
}

func TestSearchUnavailableWithoutElasticsearch(t *testing.T) {
	s := newTestStack(t)

	w := s.do(t, http.MethodGet, "/api/transactions/search?user_id=u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
