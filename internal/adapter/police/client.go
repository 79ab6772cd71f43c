// Package police fetches street-level crime and stop-and-search records
// from the data.police.uk API, one month window per request.
package police

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/couchcryptid/crime-data-service/internal/observability"
)

const (
	crimesPath     = "/crimes-street/all-crime"
	stopSearchPath = "/stops-street"
)

// Client implements the per-window fetch against data.police.uk.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a police API client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
		metrics: metrics,
	}
}

// FetchWindow performs one GET for the given coordinates, month window, and
// record kind, returning the undecoded records in payload order. Non-2xx
// statuses and undecodable payloads map to *domain.TransientFetchError;
// a 429 additionally wraps domain.ErrRateLimited.
func (c *Client) FetchWindow(ctx context.Context, coords domain.Coordinates, window domain.MonthWindow, kind domain.RecordKind) ([]domain.RawRecord, error) {
	path := crimesPath
	if kind == domain.KindStopSearch {
		path = stopSearchPath
	}

	params := url.Values{
		"lat":  {fmt.Sprintf("%g", coords.Latitude)},
		"lng":  {fmt.Sprintf("%g", coords.Longitude)},
		"date": {window.QueryValue()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(string(kind), "error").Inc()
		return nil, &domain.TransientFetchError{Window: window, Err: err}
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if resp.StatusCode == http.StatusTooManyRequests {
		c.metrics.FetchRequests.WithLabelValues(string(kind), "rate_limited").Inc()
		c.logger.Warn("police API throttled request", "window", window.String(), "kind", kind)
		return nil, &domain.TransientFetchError{
			Window:     window,
			StatusCode: resp.StatusCode,
			Err:        domain.ErrRateLimited,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.FetchRequests.WithLabelValues(string(kind), "error").Inc()
		return nil, &domain.TransientFetchError{
			Window:     window,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("police API error: %s", body),
		}
	}

	var items []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		c.metrics.FetchRequests.WithLabelValues(string(kind), "error").Inc()
		return nil, &domain.TransientFetchError{Window: window, Err: fmt.Errorf("decode response: %w", err)}
	}

	records := make([]domain.RawRecord, len(items))
	for i, item := range items {
		records[i] = domain.RawRecord{Kind: kind, Window: window, Value: item}
	}

	c.metrics.FetchRequests.WithLabelValues(string(kind), "success").Inc()
	return records, nil
}
