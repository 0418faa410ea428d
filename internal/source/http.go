package source

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"pharmadash/internal/models"
)

const maxErrorBody = 512

// HTTPSource reads the estimation API:
//
//	GET {base}/quarters           -> ["2024Q2", "2024Q1", ...]
//	GET {base}/drugs?quarter={p}  -> [{"drugName": ..., ...}, ...]
type HTTPSource struct {
	base    string
	client  *http.Client
	limiter *rate.Limiter
}

type HTTPOptions struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

func NewHTTPSource(base string, opts HTTPOptions) *HTTPSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &HTTPSource{
		base:    strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, opts.Burst),
	}
}

func (s *HTTPSource) Periods(ctx context.Context) ([]string, error) {
	var periods []string
	if err := s.get(ctx, s.base+"/quarters", &periods); err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []string{}
	}
	return periods, nil
}

func (s *HTTPSource) Records(ctx context.Context, period string) ([]models.Record, error) {
	u := s.base + "/drugs?" + url.Values{"quarter": {period}}.Encode()
	var rows []models.Record
	if err := s.get(ctx, u, &rows); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rows == nil {
		rows = []models.Record{}
	}
	return rows, nil
}

func (s *HTTPSource) get(ctx context.Context, u string, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		logger.Warnf("GET %s: status %d", u, resp.StatusCode)
		return &StatusError{URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return err
	}
	logger.Debugf("GET %s in %v", u, time.Since(start))
	return nil
}
