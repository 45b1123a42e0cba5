package bedrock

import (
	"math"
	"sort"
)

// Summary is the aggregate view of one metric over one window.
type Summary struct {
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`

	// Values carries the underlying datapoints so summaries from several
	// profiles can be combined. Not serialized.
	Values []float64 `json:"-"`
}

// WindowStats maps metric name to its summary for one window.
type WindowStats map[string]Summary

// StatMetricNames lists every metric a window reports statistics for.
func StatMetricNames(w Window) []string {
	names := []string{
		SeriesInvocations,
		SeriesInputTokens,
		SeriesOutputTokens,
		SeriesLatency,
		SeriesThrottles,
		SeriesClientErrors,
		SeriesServerErrors,
		SeriesTPM,
		SeriesRPM,
	}
	if w.HasDailySeries() {
		names = append(names, SeriesTPD)
	}
	return names
}

// Percentile computes the p-th percentile with linear interpolation between
// closest ranks. Returns 0 for an empty input.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(n-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Summarize computes the summary statistics of a set of datapoints.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Summary{
		P50:    Percentile(values, 50),
		P90:    Percentile(values, 90),
		Count:  len(values),
		Sum:    sum,
		Avg:    sum / float64(len(values)),
		Values: values,
	}
}

// ComputeStatistics summarizes every stat metric of a window from its series,
// skipping null datapoints. Metrics without a series get a zero summary.
func ComputeStatistics(ws WindowSeries, w Window) WindowStats {
	stats := make(WindowStats, len(ws))
	for _, name := range StatMetricNames(w) {
		series, ok := ws[name]
		if !ok {
			stats[name] = Summary{}
			continue
		}
		values := make([]float64, 0, len(series.Values))
		for _, v := range series.Values {
			if v != nil {
				values = append(values, *v)
			}
		}
		stats[name] = Summarize(values)
	}
	return stats
}

// AggregateStatistics combines per-profile statistics by summarizing the
// concatenation of every profile's datapoints.
func AggregateStatistics(all map[string]WindowStats, w Window) WindowStats {
	if len(all) == 0 {
		return WindowStats{}
	}
	aggregated := WindowStats{}
	for _, name := range StatMetricNames(w) {
		var values []float64
		for _, stats := range all {
			if s, ok := stats[name]; ok {
				values = append(values, s.Values...)
			}
		}
		if len(values) == 0 {
			aggregated[name] = Summary{}
			continue
		}
		aggregated[name] = Summarize(values)
	}
	return aggregated
}
