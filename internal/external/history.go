package external

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kinobook/internal/models"
)

// HistoryClient appends payment history records. The history service
// deduplicates by transaction id, so recording the same transaction twice
// is harmless and the call is retried on transient failures.
type HistoryClient struct {
	*serviceClient
	retry RetryPolicy
}

func NewHistoryClient(baseURL string, timeout time.Duration, retry RetryPolicy) *HistoryClient {
	return &HistoryClient{
		serviceClient: newServiceClient(baseURL, timeout),
		retry:         retry,
	}
}

// Record writes one history entry for a transaction.
func (c *HistoryClient) Record(ctx context.Context, rec models.HistoryRecord) error {
	err := c.retry.Do(ctx, func() error {
		return c.doJSON(ctx, http.MethodPost, "/api/history", rec, nil)
	})
	if err != nil {
		return fmt.Errorf("record history for transaction %d: %w", rec.TransactionID, err)
	}
	return nil
}
