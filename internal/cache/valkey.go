package cache

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient is a fast-path cache in front of the transaction ledger.
// After a booking is paid, its SUCCESS transaction id is cached so repeated
// payment attempts can be rejected without a ledger query. A cache miss
// always falls through to the ledger, so the cache is never load-bearing
// for correctness.
type ValkeyClient struct {
	client  *redis.Client
	paidTTL time.Duration
}

func NewValkeyClient() (*ValkeyClient, error) {
	addr := os.Getenv("VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	password := os.Getenv("VALKEY_PASSWORD")

	paidTTL := 24 * time.Hour
	if val := os.Getenv("VALKEY_PAID_TTL"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			paidTTL = parsed
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:  rdb,
		paidTTL: paidTTL,
	}, nil
}

func paidKey(bookingID int64) string {
	return fmt.Sprintf("booking:%d:paid", bookingID)
}

// MarkPaid records the SUCCESS transaction id for a booking.
func (v *ValkeyClient) MarkPaid(ctx context.Context, bookingID, transactionID int64) error {
	return v.client.Set(ctx, paidKey(bookingID), strconv.FormatInt(transactionID, 10), v.paidTTL).Err()
}

// PaidTransactionID returns the cached SUCCESS transaction id for a booking,
// or (0, false) when the cache has no answer.
func (v *ValkeyClient) PaidTransactionID(ctx context.Context, bookingID int64) (int64, bool) {
	val, err := v.client.Get(ctx, paidKey(bookingID)).Result()
	if err != nil {
		return 0, false
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
