package external

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// NotificationClient delivers user-facing notifications. Delivery is
// best-effort: the sagas log failures and move on, so no retry policy is
// attached here.
type NotificationClient struct {
	*serviceClient
}

func NewNotificationClient(baseURL string, timeout time.Duration) *NotificationClient {
	return &NotificationClient{newServiceClient(baseURL, timeout)}
}

type notifyRequest struct {
	UserID    string `json:"user_id"`
	BookingID int64  `json:"booking_id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// Notify sends one notification to a user about a booking.
func (c *NotificationClient) Notify(ctx context.Context, userID string, bookingID int64, message, notifType string) error {
	req := notifyRequest{
		UserID:    userID,
		BookingID: bookingID,
		Message:   message,
		Type:      notifType,
	}

	if err := c.doJSON(ctx, http.MethodPost, "/api/notifications", req, nil); err != nil {
		return fmt.Errorf("notify user %s: %w", userID, err)
	}
	return nil
}
