package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/artpar/tierguard/domain/metric"
	"github.com/rs/zerolog"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type stubTokens struct {
	token string
	err   error
	calls int
}

func (s *stubTokens) GetAccessToken(ctx context.Context) (string, error) {
	s.calls++
	return s.token, s.err
}

type stubQuerier struct {
	result metric.QueryResult
	err    error
	calls  int
}

func (s *stubQuerier) Query(ctx context.Context, resourceID, metricName string, w metric.Window, grain time.Duration, aggregation string) (metric.QueryResult, error) {
	s.calls++
	return s.result, s.err
}

func structuredResult(minimums ...float64) metric.QueryResult {
	values := make([]metric.DataValue, len(minimums))
	for i := range minimums {
		v := minimums[i]
		values[i] = metric.DataValue{Minimum: &v}
	}
	return metric.QueryResult{
		Resources: []metric.ResourceResult{{
			Metrics: []metric.MetricResult{{
				Timeseries: []metric.Timeseries{{Values: values}},
			}},
		}},
	}
}

func testWindow() metric.Window {
	return metric.MonthWindow(time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC))
}

func newTestSource(t *testing.T, handler http.HandlerFunc, tokens *stubTokens, querier *stubQuerier) (*Source, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{BaseURL: srv.URL})
	src := NewSource(client, tokens, querier, SourceConfig{
		Limit:      100000,
		ResourceID: "/resources/res-1",
		MetricName: "RemainingAllowance",
		Logger:     zerolog.Nop(),
	})
	return src, srv
}

// -----------------------------------------------------------------------------
// Client tests
// -----------------------------------------------------------------------------

func TestClient_Query(t *testing.T) {
	var gotAuth, gotPath string
	var gotQuery map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"value": []}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	w := metric.Window{
		Start: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC),
	}
	body, err := c.Query(context.Background(), "tok-123", "/resources/res-1", "RemainingAllowance", w, metric.DefaultGrain, metric.AggregationMinimum)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"value": []}` {
		t.Errorf("body = %q", body)
	}

	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/resources/res-1/metrics" {
		t.Errorf("path = %q", gotPath)
	}
	if got := gotQuery["metricnames"]; len(got) != 1 || got[0] != "RemainingAllowance" {
		t.Errorf("metricnames = %v", got)
	}
	if got := gotQuery["interval"]; len(got) != 1 || got[0] != "PT15M" {
		t.Errorf("interval = %v", got)
	}
	if got := gotQuery["aggregation"]; len(got) != 1 || got[0] != "minimum" {
		t.Errorf("aggregation = %v", got)
	}
	if got := gotQuery["timespan"]; len(got) != 1 || got[0] != "2025-05-01T00:00:00Z/2025-05-20T10:00:00Z" {
		t.Errorf("timespan = %v", got)
	}
}

func TestClient_Query_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	_, err := c.Query(context.Background(), "tok", "/r", "m", testWindow(), metric.DefaultGrain, metric.AggregationMinimum)

	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if pe.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", pe.StatusCode)
	}
}

func TestIsoInterval(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{15 * time.Minute, "PT15M"},
		{time.Hour, "PT60M"},
		{time.Second, "PT1M"},
	}
	for _, tt := range tests {
		if got := isoInterval(tt.d); got != tt.want {
			t.Errorf("isoInterval(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// -----------------------------------------------------------------------------
// Source tests
// -----------------------------------------------------------------------------

func TestFetchRemaining_PrimaryPath(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{result: structuredResult(1)}

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": [{"timeseries": [{"data": [{"minimum": 64000}, {"minimum": 31500}]}]}]}`))
	}, tokens, querier)

	got, err := src.FetchRemaining(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 31500 {
		t.Errorf("remaining = %v, want 31500", got)
	}
	if querier.calls != 0 {
		t.Errorf("fallback queried %d times despite primary data", querier.calls)
	}
}

func TestFetchRemaining_FallbackOnEmptyPrimary(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{result: structuredResult(90000, 42000)}

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": []}`))
	}, tokens, querier)

	got, err := src.FetchRemaining(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Fallback result used verbatim, no silent double-fallback to the default.
	if got != 42000 {
		t.Errorf("remaining = %v, want 42000", got)
	}
	if querier.calls != 1 {
		t.Errorf("fallback queried %d times, want 1", querier.calls)
	}
}

func TestFetchRemaining_FallbackOnHTTPError(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{result: structuredResult(55000)}

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}, tokens, querier)

	got, err := src.FetchRemaining(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 55000 {
		t.Errorf("remaining = %v, want 55000", got)
	}
}

func TestFetchRemaining_DefaultWhenIdle(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{} // no data either

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": []}`))
	}, tokens, querier)

	got, err := src.FetchRemaining(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100000 {
		t.Errorf("remaining = %v, want exactly the full allowance", got)
	}
}

func TestFetchRemaining_FallbackErrorAlsoDegrades(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{err: errors.New("sdk exploded")}

	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}, tokens, querier)

	got, err := src.FetchRemaining(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("transient failures must not surface: %v", err)
	}
	if got != 100000 {
		t.Errorf("remaining = %v, want full allowance", got)
	}
}

func TestFetchRemaining_TokenErrorPropagates(t *testing.T) {
	tokens := &stubTokens{err: errors.New("no credentials")}
	querier := &stubQuerier{result: structuredResult(1)}

	var serverCalls int32
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverCalls, 1)
	}, tokens, querier)

	_, err := src.FetchRemaining(context.Background(), testWindow())
	if err == nil {
		t.Fatal("expected token acquisition error to propagate")
	}
	if atomic.LoadInt32(&serverCalls) != 0 {
		t.Error("no query should be issued without a token")
	}
	if querier.calls != 0 {
		t.Error("fallback should not run on a token failure")
	}
}

func TestFetchRemaining_ClampsToRange(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want float64
	}{
		{"negative clamped to zero", `{"value": [{"timeseries": [{"data": [{"minimum": -250}]}]}]}`, 0},
		{"oversized clamped to limit", `{"value": [{"timeseries": [{"data": [{"minimum": 400000}]}]}]}`, 100000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &stubTokens{token: "tok"}
			src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.doc))
			}, tokens, &stubQuerier{})

			got, err := src.FetchRemaining(context.Background(), testWindow())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("remaining = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchRemaining_InvalidWindowNotIssued(t *testing.T) {
	tokens := &stubTokens{token: "tok"}
	querier := &stubQuerier{}

	var serverCalls int32
	src, _ := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&serverCalls, 1)
	}, tokens, querier)

	w := metric.Window{
		Start: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := src.FetchRemaining(context.Background(), w)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100000 {
		t.Errorf("remaining = %v, want full allowance", got)
	}
	if atomic.LoadInt32(&serverCalls) != 0 || querier.calls != 0 || tokens.calls != 0 {
		t.Error("no path should be queried for an invalid window")
	}
}
