package bedrock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	tests := map[string]struct {
		values   []float64
		p        float64
		expected float64
	}{
		"empty input returns zero": {
			values:   nil,
			p:        50,
			expected: 0,
		},
		"single value is every percentile": {
			values:   []float64{42},
			p:        90,
			expected: 42,
		},
		"median of even count interpolates": {
			values:   []float64{1, 2, 3, 4},
			p:        50,
			expected: 2.5,
		},
		"median of odd count is middle value": {
			values:   []float64{1, 2, 3, 4, 5},
			p:        50,
			expected: 3,
		},
		"p90 interpolates between ranks": {
			values:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			p:        90,
			expected: 9.1,
		},
		"unsorted input is sorted first": {
			values:   []float64{5, 1, 4, 2, 3},
			p:        50,
			expected: 3,
		},
		"p0 is the minimum": {
			values:   []float64{7, 3, 9},
			p:        0,
			expected: 3,
		},
		"p100 is the maximum": {
			values:   []float64{7, 3, 9},
			p:        100,
			expected: 9,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Percentile(tt.values, tt.p), 1e-9)
		})
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestSummarize(t *testing.T) {
	tests := map[string]struct {
		values   []float64
		expected Summary
	}{
		"empty input yields zero summary": {
			values:   nil,
			expected: Summary{},
		},
		"basic summary": {
			values: []float64{10, 20, 30, 40},
			expected: Summary{
				P50:    25,
				P90:    37,
				Count:  4,
				Sum:    100,
				Avg:    25,
				Values: []float64{10, 20, 30, 40},
			},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := Summarize(tt.values)
			assert.InDelta(t, tt.expected.P50, got.P50, 1e-9)
			assert.InDelta(t, tt.expected.P90, got.P90, 1e-9)
			assert.Equal(t, tt.expected.Count, got.Count)
			assert.InDelta(t, tt.expected.Sum, got.Sum, 1e-9)
			assert.InDelta(t, tt.expected.Avg, got.Avg, 1e-9)
			assert.Equal(t, tt.expected.Values, got.Values)
		})
	}
}

func TestComputeStatistics(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	ws := WindowSeries{
		SeriesTPM: {
			Values: []*float64{v(100), nil, v(200), nil, v(300)},
		},
		SeriesRPM: {
			Values: []*float64{nil, nil},
		},
	}

	stats := ComputeStatistics(ws, Window1Hour)

	tpm := stats[SeriesTPM]
	assert.Equal(t, 3, tpm.Count)
	assert.InDelta(t, 600, tpm.Sum, 1e-9)
	assert.InDelta(t, 200, tpm.Avg, 1e-9)
	assert.InDelta(t, 200, tpm.P50, 1e-9)

	// A series with only nulls summarizes like an empty one.
	assert.Equal(t, Summary{}, stats[SeriesRPM])

	// Every stat metric of the window is present, with or without a series.
	for _, name := range StatMetricNames(Window1Hour) {
		assert.Contains(t, stats, name)
	}
	assert.NotContains(t, stats, SeriesTPD)
}

func TestComputeStatisticsIncludesDailySeriesForLongWindows(t *testing.T) {
	stats := ComputeStatistics(WindowSeries{}, Window7Days)
	assert.Contains(t, stats, SeriesTPD)
}

func TestAggregateStatistics(t *testing.T) {
	tests := map[string]struct {
		all           map[string]WindowStats
		expectedTPM   Summary
		expectEmptyWS bool
	}{
		"no profiles yields empty stats": {
			all:           map[string]WindowStats{},
			expectEmptyWS: true,
		},
		"datapoints concatenate across profiles": {
			all: map[string]WindowStats{
				"us.model-a": {SeriesTPM: Summarize([]float64{10, 20})},
				"eu.model-a": {SeriesTPM: Summarize([]float64{30, 40})},
			},
			expectedTPM: Summary{P50: 25, Count: 4, Sum: 100, Avg: 25},
		},
		"profile without a metric contributes nothing": {
			all: map[string]WindowStats{
				"us.model-a": {SeriesTPM: Summarize([]float64{10, 20})},
				"eu.model-a": {},
			},
			expectedTPM: Summary{P50: 15, Count: 2, Sum: 30, Avg: 15},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := AggregateStatistics(tt.all, Window1Hour)
			if tt.expectEmptyWS {
				assert.Empty(t, got)
				return
			}
			tpm := got[SeriesTPM]
			assert.Equal(t, tt.expectedTPM.Count, tpm.Count)
			assert.InDelta(t, tt.expectedTPM.Sum, tpm.Sum, 1e-9)
			assert.InDelta(t, tt.expectedTPM.Avg, tpm.Avg, 1e-9)
			assert.InDelta(t, tt.expectedTPM.P50, tpm.P50, 1e-9)
		})
	}
}
