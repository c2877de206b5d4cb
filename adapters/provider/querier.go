package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/artpar/tierguard/domain/metric"
	"github.com/artpar/tierguard/ports"
)

// RESTQuerier implements the structured query port against the
// provider's batch metrics endpoint. It returns decoded results rather
// than raw documents, which makes it the fallback when the raw path
// yields nothing usable.
type RESTQuerier struct {
	httpClient *http.Client
	baseURL    string
	tokens     ports.TokenProvider
}

// RESTQuerierConfig configures the structured querier.
type RESTQuerierConfig struct {
	BaseURL string
	Tokens  ports.TokenProvider
	Timeout time.Duration
}

// NewRESTQuerier creates a structured metric querier.
func NewRESTQuerier(cfg RESTQuerierConfig) *RESTQuerier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &RESTQuerier{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		tokens:     cfg.Tokens,
	}
}

// queryResponse is the provider's wire format for structured results.
type queryResponse struct {
	Resources []struct {
		ResourceID string `json:"resourceid"`
		Metrics    []struct {
			Name struct {
				Value string `json:"value"`
			} `json:"name"`
			Unit       string `json:"unit"`
			Timeseries []struct {
				Data []struct {
					Timestamp time.Time `json:"timestamp"`
					Minimum   *float64  `json:"minimum,omitempty"`
					Maximum   *float64  `json:"maximum,omitempty"`
					Average   *float64  `json:"average,omitempty"`
				} `json:"data"`
			} `json:"timeseries"`
		} `json:"metrics"`
	} `json:"resources"`
}

// Query fetches a metric over the window and decodes the provider's
// structured response.
func (q *RESTQuerier) Query(ctx context.Context, resourceID, metricName string, w metric.Window, grain time.Duration, aggregation string) (metric.QueryResult, error) {
	token, err := q.tokens.GetAccessToken(ctx)
	if err != nil {
		return metric.QueryResult{}, fmt.Errorf("acquire provider token: %w", err)
	}

	params := url.Values{}
	params.Set("resourceids", resourceID)
	params.Set("metricnames", metricName)
	params.Set("starttime", w.Start.UTC().Format(time.RFC3339))
	params.Set("endtime", w.End.UTC().Format(time.RFC3339))
	params.Set("interval", isoInterval(grain))
	params.Set("aggregation", aggregation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return metric.QueryResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return metric.QueryResult{}, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return metric.QueryResult{}, &ProviderError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}

	var wire queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return metric.QueryResult{}, fmt.Errorf("decode response: %w", err)
	}

	return toQueryResult(wire), nil
}

func toQueryResult(wire queryResponse) metric.QueryResult {
	var out metric.QueryResult
	for _, res := range wire.Resources {
		rr := metric.ResourceResult{ResourceID: res.ResourceID}
		for _, m := range res.Metrics {
			mr := metric.MetricResult{Name: m.Name.Value, Unit: m.Unit}
			for _, ts := range m.Timeseries {
				series := metric.Timeseries{}
				for _, d := range ts.Data {
					series.Values = append(series.Values, metric.DataValue{
						Timestamp: d.Timestamp,
						Minimum:   d.Minimum,
						Maximum:   d.Maximum,
						Average:   d.Average,
					})
				}
				mr.Timeseries = append(mr.Timeseries, series)
			}
			rr.Metrics = append(rr.Metrics, mr)
		}
		out.Resources = append(out.Resources, rr)
	}
	return out
}

var _ ports.MetricQuerier = (*RESTQuerier)(nil)
