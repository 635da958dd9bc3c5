package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "kinobook/internal/errors"
)

// Config holds the base URLs and call policy for every collaborator service.
type Config struct {
	UserServiceURL         string
	MovieServiceURL        string
	WalletServiceURL       string
	HistoryServiceURL      string
	NotificationServiceURL string
	Timeout                time.Duration
	RetryMaxAttempts       int
	RetryBaseDelay         time.Duration
}

// Clients bundles one typed client per collaborator capability.
type Clients struct {
	Users         *UserClient
	Movies        *MovieClient
	Wallet        *WalletClient
	History       *HistoryClient
	Notifications *NotificationClient
}

// NewClients constructs the full remote client set from one config.
func NewClients(cfg Config) *Clients {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	retry := RetryPolicy{
		MaxAttempts: cfg.RetryMaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}

	return &Clients{
		Users:         NewUserClient(cfg.UserServiceURL, cfg.Timeout),
		Movies:        NewMovieClient(cfg.MovieServiceURL, cfg.Timeout),
		Wallet:        NewWalletClient(cfg.WalletServiceURL, cfg.Timeout, retry),
		History:       NewHistoryClient(cfg.HistoryServiceURL, cfg.Timeout, retry),
		Notifications: NewNotificationClient(cfg.NotificationServiceURL, cfg.Timeout),
	}
}

// serviceClient is the shared HTTP plumbing for one collaborator.
type serviceClient struct {
	baseURL    string
	httpClient *http.Client
}

func newServiceClient(baseURL string, timeout time.Duration) *serviceClient {
	return &serviceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// errorBody is the uniform error payload collaborator services return.
type errorBody struct {
	Error string `json:"error"`
}

// doJSON performs a JSON request and decodes a 2xx response into out.
// Transport failures come back wrapped in ErrServiceUnavailable so callers
// can classify them as transient. Non-2xx responses are returned as
// *StatusError for per-client mapping.
func (c *serviceClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", apperrors.ErrServiceUnavailable, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.NewDecoder(resp.Body).Decode(&eb)
		return &StatusError{Code: resp.StatusCode, Message: eb.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// StatusError carries a non-2xx collaborator response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote call failed: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("remote call failed: status %d", e.Code)
}
