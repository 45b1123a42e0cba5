package bedrock

import (
	"sort"
	"time"

	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
)

// Series metric names as they appear in reports. TPM/RPM/TPD are derived
// from the raw CloudWatch sums; the rest are the CloudWatch metric names.
const (
	SeriesTPM          = "TPM"
	SeriesRPM          = "RPM"
	SeriesTPD          = "TPD"
	SeriesInvocations  = "Invocations"
	SeriesInputTokens  = "InputTokenCount"
	SeriesOutputTokens = "OutputTokenCount"
	SeriesThrottles    = "InvocationThrottles"
	SeriesClientErrors = "InvocationClientErrors"
	SeriesServerErrors = "InvocationServerErrors"
	SeriesLatency      = "InvocationLatency"
)

// Series is one metric's time series. A nil value marks a gap: the timestamp
// grid is continuous at period intervals, datapoints CloudWatch never
// returned are filled with nulls so charts show gaps instead of lines
// interpolating across them.
type Series struct {
	Timestamps []time.Time `json:"timestamps"`
	Values     []*float64  `json:"values"`
}

// WindowSeries holds every series computed for one model over one window.
type WindowSeries map[string]*Series

// EmptyWindowSeries returns the structured empty result for a window with no
// data at all.
func EmptyWindowSeries(w Window) WindowSeries {
	ws := WindowSeries{
		SeriesRPM:       {},
		SeriesTPM:       {},
		SeriesThrottles: {},
	}
	if w.HasDailySeries() {
		ws[SeriesTPD] = &Series{}
	}
	return ws
}

// BuildWindowSeries turns a sliced RawSeries into the derived report series.
// now anchors the 24-hour TPD windows and should be the dataset's end time.
func BuildWindowSeries(raw *RawSeries, w Window, now time.Time) WindowSeries {
	if raw == nil {
		return EmptyWindowSeries(w)
	}
	periodMinutes := float64(raw.Period) / 60
	result := WindowSeries{}

	inputTokens := raw.Data[client.MetricInputTokens]
	outputTokens := raw.Data[client.MetricOutputTokens]
	if len(inputTokens) > 0 && len(outputTokens) > 0 {
		minLen := min(len(inputTokens), len(outputTokens))
		totalTokens := make([]float64, minLen)
		tpm := make([]float64, minLen)
		for i := 0; i < minLen; i++ {
			totalTokens[i] = inputTokens[i] + outputTokens[i]
			tpm[i] = totalTokens[i] / periodMinutes
		}

		ts := clampTimestamps(raw.Timestamps, minLen)
		result[SeriesTPM] = fillMissing(ts, tpm, raw.Period)
		result[SeriesInputTokens] = fillMissing(ts, inputTokens[:minLen], raw.Period)
		result[SeriesOutputTokens] = fillMissing(ts, outputTokens[:minLen], raw.Period)

		if w.HasDailySeries() {
			// TPD aggregates into daily buckets, it does not use the
			// period grid filling.
			result[SeriesTPD] = aggregateTokensByDay(now, ts, totalTokens)
		}
	}

	if invocations := raw.Data[client.MetricInvocations]; len(invocations) > 0 {
		rpm := make([]float64, len(invocations))
		for i, v := range invocations {
			rpm[i] = v / periodMinutes
		}
		ts := clampTimestamps(raw.Timestamps, len(invocations))
		result[SeriesRPM] = fillMissing(ts, rpm, raw.Period)
		result[SeriesInvocations] = fillMissing(ts, invocations, raw.Period)
	}

	for metricID, name := range map[string]string{
		client.MetricThrottles:    SeriesThrottles,
		client.MetricClientErrors: SeriesClientErrors,
		client.MetricServerErrors: SeriesServerErrors,
		client.MetricLatency:      SeriesLatency,
	} {
		values := raw.Data[metricID]
		if len(values) == 0 {
			continue
		}
		ts := clampTimestamps(raw.Timestamps, len(values))
		result[name] = fillMissing(ts, values, raw.Period)
	}

	if len(result) == 0 {
		return EmptyWindowSeries(w)
	}
	return result
}

func clampTimestamps(timestamps []time.Time, n int) []time.Time {
	if n > len(timestamps) {
		n = len(timestamps)
	}
	return timestamps[:n]
}

// fillMissing expands a sparse series onto the full period grid between its
// first and last timestamp, inserting nil for datapoints CloudWatch skipped.
func fillMissing(timestamps []time.Time, values []float64, period int32) *Series {
	n := min(len(timestamps), len(values))
	if n == 0 {
		return &Series{}
	}

	byTime := make(map[time.Time]float64, n)
	for i := 0; i < n; i++ {
		byTime[timestamps[i]] = values[i]
	}

	step := time.Duration(period) * time.Second
	out := &Series{}
	for cur := timestamps[0]; !cur.After(timestamps[n-1]); cur = cur.Add(step) {
		out.Timestamps = append(out.Timestamps, cur)
		if v, ok := byTime[cur]; ok {
			value := v
			out.Values = append(out.Values, &value)
		} else {
			out.Values = append(out.Values, nil)
		}
	}
	return out
}

// aggregateTokensByDay sums tokens into 24-hour windows counted backward
// from now. Each output timestamp is the start of its window.
func aggregateTokensByDay(now time.Time, timestamps []time.Time, tokens []float64) *Series {
	n := min(len(timestamps), len(tokens))
	if n == 0 {
		return &Series{}
	}

	oldest := timestamps[0]
	daysNeeded := int(now.Sub(oldest).Hours()/24) + 1

	totals := map[time.Time]float64{}
	for i := 0; i < n; i++ {
		ts := timestamps[i]
		for day := 0; day < daysNeeded; day++ {
			windowEnd := now.Add(-time.Duration(day) * 24 * time.Hour)
			windowStart := windowEnd.Add(-24 * time.Hour)
			if !ts.Before(windowStart) && ts.Before(windowEnd) {
				totals[windowStart] += tokens[i]
				break
			}
		}
	}

	starts := make([]time.Time, 0, len(totals))
	for start := range totals {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(a, b int) bool { return starts[a].Before(starts[b]) })

	out := &Series{}
	for _, start := range starts {
		total := totals[start]
		out.Timestamps = append(out.Timestamps, start)
		out.Values = append(out.Values, &total)
	}
	return out
}

// AggregateWindowSeries sums the rate series of multiple profiles at each
// timestamp. Rate series (TPM, RPM, throttles) report nil where the sum is
// zero so gaps stay gaps; the daily token series keeps zeros.
func AggregateWindowSeries(all map[string]WindowSeries, w Window) WindowSeries {
	if len(all) == 0 {
		return WindowSeries{}
	}

	grid := map[time.Time]struct{}{}
	for _, ws := range all {
		for _, name := range []string{SeriesTPM, SeriesRPM, SeriesTPD, SeriesThrottles} {
			if s, ok := ws[name]; ok {
				for _, ts := range s.Timestamps {
					grid[ts] = struct{}{}
				}
			}
		}
	}
	if len(grid) == 0 {
		return EmptyWindowSeries(w)
	}

	sorted := make([]time.Time, 0, len(grid))
	for ts := range grid {
		sorted = append(sorted, ts)
	}
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Before(sorted[b]) })

	aggregated := WindowSeries{}
	for _, name := range []string{SeriesTPM, SeriesRPM, SeriesThrottles} {
		sums := sumAtTimestamps(all, name, sorted)
		out := &Series{Timestamps: sorted}
		for _, ts := range sorted {
			if sum := sums[ts]; sum > 0 {
				value := sum
				out.Values = append(out.Values, &value)
			} else {
				out.Values = append(out.Values, nil)
			}
		}
		aggregated[name] = out
	}

	if w.HasDailySeries() {
		sums := sumAtTimestamps(all, SeriesTPD, sorted)
		out := &Series{Timestamps: sorted}
		for _, ts := range sorted {
			value := sums[ts]
			out.Values = append(out.Values, &value)
		}
		aggregated[SeriesTPD] = out
	}

	return aggregated
}

func sumAtTimestamps(all map[string]WindowSeries, name string, grid []time.Time) map[time.Time]float64 {
	sums := make(map[time.Time]float64, len(grid))
	for _, ts := range grid {
		sums[ts] = 0
	}
	for _, ws := range all {
		s, ok := ws[name]
		if !ok {
			continue
		}
		n := min(len(s.Timestamps), len(s.Values))
		for i := 0; i < n; i++ {
			if s.Values[i] == nil {
				continue
			}
			sums[s.Timestamps[i]] += *s.Values[i]
		}
	}
	return sums
}
