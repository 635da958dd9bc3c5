package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"kinobook/internal/models"
)

// DefaultBaseURL is used unless KINOBOOK_API_URL overrides it.
const DefaultBaseURL = "http://localhost:8080"

// TestClient provides methods for testing the API.
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewTestClient creates a new test client.
func NewTestClient() *TestClient {
	baseURL := os.Getenv("KINOBOOK_API_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SkipIfUnavailable skips the test when no API is listening. The suite runs
// against a deployed stack, not against in-process servers.
func (c *TestClient) SkipIfUnavailable(t *testing.T) {
	resp, err := c.HTTPClient.Get(c.BaseURL + "/health")
	if err != nil {
		t.Skipf("API not reachable at %s: %v", c.BaseURL, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Skipf("API health check returned %d", resp.StatusCode)
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// CreateBooking posts a booking and returns the response with its status code.
func (c *TestClient) CreateBooking(t *testing.T, req models.CreateBookingRequest) (int, *models.BookingResponse) {
	resp := c.makeRequest(t, http.MethodPost, "/api/bookings", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, nil
	}

	var booking models.BookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("Failed to decode booking response: %v", err)
	}
	return resp.StatusCode, &booking
}

// PayBooking posts a payment and returns the response with its status code.
func (c *TestClient) PayBooking(t *testing.T, req models.PayBookingRequest) (int, *models.TransactionResponse) {
	resp := c.makeRequest(t, http.MethodPost, "/api/payments", req)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, nil
	}

	var txn models.TransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&txn); err != nil {
		t.Fatalf("Failed to decode transaction response: %v", err)
	}
	return resp.StatusCode, &txn
}

// GetBooking fetches one booking.
func (c *TestClient) GetBooking(t *testing.T, id int64) (int, *models.BookingResponse) {
	resp := c.makeRequest(t, http.MethodGet, fmt.Sprintf("/api/bookings/%d", id), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}

	var booking models.BookingResponse
	if err := json.NewDecoder(resp.Body).Decode(&booking); err != nil {
		t.Fatalf("Failed to decode booking response: %v", err)
	}
	return resp.StatusCode, &booking
}
