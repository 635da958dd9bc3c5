package external

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "kinobook/internal/errors"
	"kinobook/internal/models"
)

// MovieClient resolves movies and their prices in the movie catalog.
type MovieClient struct {
	*serviceClient
}

func NewMovieClient(baseURL string, timeout time.Duration) *MovieClient {
	return &MovieClient{newServiceClient(baseURL, timeout)}
}

// GetByID fetches a movie record. Returns ErrMovieNotFound when the catalog
// has no such movie.
func (c *MovieClient) GetByID(ctx context.Context, id int64) (*models.Movie, error) {
	var movie models.Movie
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/movies/%d", id), nil, &movie)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, apperrors.ErrMovieNotFound
		}
		return nil, fmt.Errorf("get movie %d: %w", id, err)
	}
	return &movie, nil
}
