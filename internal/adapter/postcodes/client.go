// Package postcodes resolves UK postcodes to coordinates via postcodes.io.
package postcodes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/couchcryptid/crime-data-service/internal/observability"
)

// Client performs single-shot postcode lookups. It never retries; the
// caller decides whether a failed resolution is worth repeating.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a postcodes.io lookup client.
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

// Resolve converts a postcode into (longitude, latitude). Any transport
// failure, non-success HTTP status, or non-200 body status maps to
// *domain.UnresolvableLocationError.
func (c *Client) Resolve(ctx context.Context, postcode string) (domain.Coordinates, error) {
	u := fmt.Sprintf("%s/postcodes/%s", c.baseURL, url.PathEscape(postcode))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Coordinates{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ResolverRequests.WithLabelValues("error").Inc()
		return domain.Coordinates{}, &domain.UnresolvableLocationError{Postcode: postcode}
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.metrics.ResolverRequests.WithLabelValues("error").Inc()
		return domain.Coordinates{}, &domain.UnresolvableLocationError{Postcode: postcode, StatusCode: resp.StatusCode}
	}

	// postcodes.io reports the outcome in the body status as well as the
	// HTTP status; both must agree on success.
	if resp.StatusCode != http.StatusOK || body.Status != http.StatusOK || body.Result == nil {
		c.metrics.ResolverRequests.WithLabelValues("error").Inc()
		c.logger.Debug("postcode lookup failed", "postcode", postcode, "http_status", resp.StatusCode, "body_status", body.Status)
		return domain.Coordinates{}, &domain.UnresolvableLocationError{Postcode: postcode, StatusCode: body.Status}
	}

	c.metrics.ResolverRequests.WithLabelValues("success").Inc()
	return domain.Coordinates{
		Longitude: body.Result.Longitude,
		Latitude:  body.Result.Latitude,
	}, nil
}

// postcodes.io response types.

type response struct {
	Status int     `json:"status"`
	Result *result `json:"result"`
}

type result struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}
