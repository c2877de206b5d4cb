// Package metric provides pure parsing and windowing for provider metric data.
// All functions are deterministic with no side effects.
package metric

import (
	"encoding/json"
	"strconv"
	"time"
)

// Aggregation kinds understood by the provider.
const (
	AggregationMinimum = "minimum"
)

// DefaultGrain is the datapoint granularity requested from the provider.
const DefaultGrain = 15 * time.Minute

// Window is a half-open UTC time interval [Start, End) used to query the provider.
type Window struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the window is well-formed (Start <= End).
// Queries must not be issued for invalid windows.
func (w Window) Valid() bool {
	return !w.Start.After(w.End)
}

// MonthWindow returns the window from the first instant of the current
// UTC calendar month up to now.
func MonthWindow(now time.Time) Window {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: start, End: now}
}

// MinSample returns the smallest of the given samples.
// The second return is false when samples is empty.
func MinSample(samples []float64) (float64, bool) {
	if len(samples) == 0 {
		return 0, false
	}
	min := samples[0]
	for _, s := range samples[1:] {
		if s < min {
			min = s
		}
	}
	return min, true
}

// -----------------------------------------------------------------------------
// Shape A: generic nested JSON document
// -----------------------------------------------------------------------------

// ParseMinimums extracts every present minimum datapoint from a raw metrics
// document of the form:
//
//	{"value": [{"timeseries": [{"data": [{"minimum": 42.0}, ...]}]}]}
//
// Malformed or missing elements are skipped, never surfaced: well-formed but
// empty input yields an empty slice, and so does input that fails to parse
// entirely. The caller treats "no samples" as a plain condition, not an error.
func ParseMinimums(data []byte) []float64 {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	var out []float64
	metrics, _ := doc["value"].([]any)
	for _, m := range metrics {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		series, _ := entry["timeseries"].([]any)
		for _, ts := range series {
			tsEntry, ok := ts.(map[string]any)
			if !ok {
				continue
			}
			points, _ := tsEntry["data"].([]any)
			for _, dp := range points {
				point, ok := dp.(map[string]any)
				if !ok {
					continue
				}
				raw, ok := point["minimum"]
				if !ok || raw == nil {
					continue
				}
				if v, ok := asFloat(raw); ok {
					out = append(out, v)
				}
			}
		}
	}
	return out
}

// asFloat coerces a decoded JSON value to float64 where possible.
func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------
// Shape B: structured query-client result
// -----------------------------------------------------------------------------

// QueryResult is the structured result returned by a metric query client.
type QueryResult struct {
	Resources []ResourceResult
}

// ResourceResult holds the metrics returned for a single resource.
type ResourceResult struct {
	ResourceID string
	Metrics    []MetricResult
}

// MetricResult holds the timeseries returned for a single metric.
type MetricResult struct {
	Name       string
	Unit       string
	Timeseries []Timeseries
}

// Timeseries is one series of per-bucket datapoints.
type Timeseries struct {
	Values []DataValue
}

// DataValue is a single aggregated datapoint bucket. Aggregations the
// query did not request are nil.
type DataValue struct {
	Timestamp time.Time
	Minimum   *float64
	Maximum   *float64
	Average   *float64
}

// CollectMinimums gathers every present minimum across all resources,
// metrics, timeseries and buckets of a structured result.
func CollectMinimums(r QueryResult) []float64 {
	var out []float64
	for _, res := range r.Resources {
		for _, m := range res.Metrics {
			for _, ts := range m.Timeseries {
				for _, v := range ts.Values {
					if v.Minimum != nil {
						out = append(out, *v.Minimum)
					}
				}
			}
		}
	}
	return out
}
