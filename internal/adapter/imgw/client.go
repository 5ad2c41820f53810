// Package imgw fetches raw meteorological warning records from the public
// IMGW feed.
package imgw

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/imgw-warning-proxy/internal/observability"
)

// Client retrieves the warning feed over HTTP with a bounded timeout.
//
// Fetch is best-effort by contract: every failure mode — network error,
// non-200 status, malformed JSON, unexpected payload shape — is logged and
// reported as zero records. The ingestion pipeline treats "feed empty" and
// "feed unreachable" identically.
type Client struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client for the given URL and request timeout.
func NewClient(feedURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch returns the current raw warning records. The feed publishes either
// a bare JSON array or an object whose "warnings" key holds the array;
// anything else yields zero records.
func (c *Client) Fetch(ctx context.Context) []map[string]any {
	start := time.Now()
	records, err := c.fetch(ctx)
	c.metrics.FeedDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.logger.Warn("feed fetch failed", "url", c.feedURL, "error", err)
		c.metrics.FeedRequests.WithLabelValues("error").Inc()
		return nil
	case len(records) == 0:
		c.metrics.FeedRequests.WithLabelValues("empty").Inc()
		return nil
	default:
		c.metrics.FeedRequests.WithLabelValues("success").Inc()
		return records
	}
}

func (c *Client) fetch(ctx context.Context) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return extractRecords(payload), nil
}

// extractRecords pulls the record list out of either accepted payload shape.
// Non-object entries inside the list are dropped.
func extractRecords(payload any) []map[string]any {
	var list []any
	switch v := payload.(type) {
	case []any:
		list = v
	case map[string]any:
		inner, _ := v["warnings"].([]any)
		list = inner
	default:
		return nil
	}

	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records
}
