package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "kinobook/internal/errors"
)

// WalletClient debits and credits user wallets. The wallet service is the
// sole authority on its balance invariant: it refuses a debit that would go
// below zero, and it deduplicates by idempotency key, which makes retrying
// a timed-out call safe.
type WalletClient struct {
	*serviceClient
	retry RetryPolicy
}

func NewWalletClient(baseURL string, timeout time.Duration, retry RetryPolicy) *WalletClient {
	return &WalletClient{
		serviceClient: newServiceClient(baseURL, timeout),
		retry:         retry,
	}
}

type walletOpRequest struct {
	UserID         string `json:"user_id"`
	Amount         int64  `json:"amount"`
	IdempotencyKey string `json:"idempotency_key"`
}

type walletOpResponse struct {
	Balance int64 `json:"balance"`
}

// Debit withdraws amount from the user's wallet and returns the new
// balance. Returns ErrInsufficientBalance when the wallet refuses,
// ErrUserNotFound when there is no wallet for the user, and
// ErrWalletUnavailable after transient failures exhaust the retry budget.
func (c *WalletClient) Debit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error) {
	return c.post(ctx, "/api/wallet/debit", userID, amount, idempotencyKey)
}

// Credit deposits amount back into the user's wallet. Used by the payment
// saga as the compensating action for a debit.
func (c *WalletClient) Credit(ctx context.Context, userID string, amount int64, idempotencyKey string) (int64, error) {
	return c.post(ctx, "/api/wallet/credit", userID, amount, idempotencyKey)
}

func (c *WalletClient) post(ctx context.Context, path, userID string, amount int64, idempotencyKey string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("wallet amount must be positive, got %d", amount)
	}

	req := walletOpRequest{
		UserID:         userID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
	}

	var resp walletOpResponse
	err := c.retry.Do(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, path, req, &resp)
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			switch se.Code {
			case http.StatusPaymentRequired, http.StatusConflict:
				return 0, apperrors.ErrInsufficientBalance
			case http.StatusNotFound:
				return 0, apperrors.ErrUserNotFound
			}
		}
		if errors.Is(err, apperrors.ErrServiceUnavailable) {
			return 0, fmt.Errorf("%w: %v", apperrors.ErrWalletUnavailable, err)
		}
		return 0, fmt.Errorf("wallet %s: %w", path, err)
	}

	return resp.Balance, nil
}
