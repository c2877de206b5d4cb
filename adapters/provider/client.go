// Package provider queries the external metrics provider.
// The primary path is a raw HTTP metrics query; the fallback path goes
// through the structured query client port.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/tierguard/domain/metric"
)

// Client issues time-windowed metric queries against the provider's HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientConfig configures the provider client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a provider HTTP client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
	}
}

// Query fetches one metric for a resource over the window and returns the
// raw response document. The caller supplies the bearer token; token
// acquisition is not this client's concern.
func (c *Client) Query(ctx context.Context, token, resourceID, metricName string, w metric.Window, grain time.Duration, aggregation string) ([]byte, error) {
	endpoint := c.baseURL + resourceID + "/metrics"

	q := url.Values{}
	q.Set("metricnames", metricName)
	q.Set("timespan", w.Start.UTC().Format(time.RFC3339)+"/"+w.End.UTC().Format(time.RFC3339))
	q.Set("interval", isoInterval(grain))
	q.Set("aggregation", aggregation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// isoInterval renders a grain as an ISO-8601 duration at minute precision.
func isoInterval(d time.Duration) string {
	mins := int(d.Minutes())
	if mins < 1 {
		mins = 1
	}
	return fmt.Sprintf("PT%dM", mins)
}

// ProviderError represents a non-2xx response from the provider.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}
