package source

import (
	"context"
	"errors"
	"fmt"

	"pharmadash/internal/logging"
	"pharmadash/internal/models"
)

var logger = logging.New("source")

var ErrNotFound = errors.New("period not found")

// Source serves the reporting periods and their estimate rows.
type Source interface {
	Periods(ctx context.Context) ([]string, error)
	Records(ctx context.Context, period string) ([]models.Record, error)
}

// StatusError is a non-2xx answer from the estimation API.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.Status, e.Body)
}

// Fetcher adapts a Source to the engine's period fetch contract.
type Fetcher struct {
	Source Source
}

func (f Fetcher) Fetch(ctx context.Context, period string) ([]models.Record, error) {
	return f.Source.Records(ctx, period)
}
