package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

// UserClient resolves users in the user service.
type UserClient struct {
	*serviceClient
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{newServiceClient(baseURL, timeout)}
}

// GetByID fetches a user record. Returns ErrUserNotFound when the user
// service has no such user.
func (c *UserClient) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := c.doJSON(ctx, http.MethodGet, "/api/users/"+url.PathEscape(id), nil, &user)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}
