package external

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "kinobook/internal/errors"
)

func TestWalletDebitSuccess(t *testing.T) {
	var gotKey atomic.Value

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/wallet/debit", r.URL.Path)

		var req walletOpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotKey.Store(req.IdempotencyKey)

		json.NewEncoder(w).Encode(walletOpResponse{Balance: 20000})
	}))
	defer srv.Close()

	client := NewWalletClient(srv.URL, time.Second, RetryPolicy{MaxAttempts: 1})

	balance, err := client.Debit(context.Background(), "u1", 30000, "debit-1-abc")
	require.NoError(t, err)
	assert.Equal(t, int64(20000), balance)
	assert.Equal(t, "debit-1-abc", gotKey.Load(), "idempotency key must reach the wallet")
}

func TestWalletDebitInsufficientBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]string{"error": "insufficient balance"})
	}))
	defer srv.Close()

	client := NewWalletClient(srv.URL, time.Second, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	_, err := client.Debit(context.Background(), "u1", 30000, "debit-1-abc")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
}

func TestWalletDebitRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(walletOpResponse{Balance: 0})
	}))
	defer srv.Close()

	client := NewWalletClient(srv.URL, time.Second, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond})

	balance, err := client.Debit(context.Background(), "u1", 50000, "debit-1-abc")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWalletDebitExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewWalletClient(srv.URL, time.Second, RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond})

	_, err := client.Debit(context.Background(), "u1", 50000, "debit-1-abc")
	assert.ErrorIs(t, err, apperrors.ErrWalletUnavailable)
}

func TestWalletRejectsNonPositiveAmount(t *testing.T) {
	client := NewWalletClient("http://unused", time.Second, RetryPolicy{MaxAttempts: 1})

	_, err := client.Debit(context.Background(), "u1", 0, "k")
	assert.Error(t, err)

	_, err = client.Credit(context.Background(), "u1", -5, "k")
	assert.Error(t, err)
}
