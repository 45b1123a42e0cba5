package client

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricQuery(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantMetric string
		wantStat   string
	}{
		{
			name:       "invocations use Sum",
			id:         MetricInvocations,
			wantMetric: "Invocations",
			wantStat:   "Sum",
		},
		{
			name:       "input tokens use Sum",
			id:         MetricInputTokens,
			wantMetric: "InputTokenCount",
			wantStat:   "Sum",
		},
		{
			name:       "output tokens use Sum",
			id:         MetricOutputTokens,
			wantMetric: "OutputTokenCount",
			wantStat:   "Sum",
		},
		{
			name:       "throttles use Sum",
			id:         MetricThrottles,
			wantMetric: "InvocationThrottles",
			wantStat:   "Sum",
		},
		{
			name:       "client errors use Sum",
			id:         MetricClientErrors,
			wantMetric: "InvocationClientErrors",
			wantStat:   "Sum",
		},
		{
			name:       "server errors use Sum",
			id:         MetricServerErrors,
			wantMetric: "InvocationServerErrors",
			wantStat:   "Sum",
		},
		{
			name:       "latency uses Average",
			id:         MetricLatency,
			wantMetric: "InvocationLatency",
			wantStat:   "Average",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := metricQuery(tt.id, "us.anthropic.claude-3-5-haiku-20241022-v1:0", 300)

			assert.Equal(t, tt.id, aws.ToString(q.Id))
			require.NotNil(t, q.MetricStat)
			assert.Equal(t, tt.wantStat, aws.ToString(q.MetricStat.Stat))
			assert.Equal(t, int32(300), aws.ToInt32(q.MetricStat.Period))

			metric := q.MetricStat.Metric
			require.NotNil(t, metric)
			assert.Equal(t, "AWS/Bedrock", aws.ToString(metric.Namespace))
			assert.Equal(t, tt.wantMetric, aws.ToString(metric.MetricName))
			require.Len(t, metric.Dimensions, 1)
			assert.Equal(t, "ModelId", aws.ToString(metric.Dimensions[0].Name))
			assert.Equal(t, "us.anthropic.claude-3-5-haiku-20241022-v1:0", aws.ToString(metric.Dimensions[0].Value))
		})
	}
}

func TestAppendMetricPageKeepsTimestampsAligned(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	page := func(offset int) []cwTypes.MetricDataResult {
		ts := []time.Time{
			base.Add(time.Duration(offset) * 5 * time.Minute),
			base.Add(time.Duration(offset+1) * 5 * time.Minute),
		}
		return []cwTypes.MetricDataResult{
			// A query with no datapoints must not steal the page's timestamps.
			{Id: aws.String(MetricLatency)},
			{Id: aws.String(MetricInvocations), Timestamps: ts, Values: []float64{1, 2}},
			{Id: aws.String(MetricInputTokens), Timestamps: ts, Values: []float64{100, 200}},
		}
	}

	batch := &MetricBatch{Data: map[string][]float64{}}
	appendMetricPage(batch, page(0))
	appendMetricPage(batch, page(2))

	// Each page contributes its own timestamps; values never outgrow them.
	require.Len(t, batch.Timestamps, 4)
	assert.Len(t, batch.Data[MetricInvocations], len(batch.Timestamps))
	assert.Len(t, batch.Data[MetricInputTokens], len(batch.Timestamps))
	assert.Equal(t, []float64{1, 2, 1, 2}, batch.Data[MetricInvocations])
	assert.Equal(t, []float64{100, 200, 100, 200}, batch.Data[MetricInputTokens])
	assert.True(t, batch.Timestamps[3].After(batch.Timestamps[0]))
	assert.NotContains(t, batch.Data, MetricLatency)
}

func TestMetricIDsCoverEveryQuery(t *testing.T) {
	assert.Len(t, MetricIDs, 7)
	seen := map[string]struct{}{}
	for _, id := range MetricIDs {
		_, dup := seen[id]
		assert.False(t, dup, "duplicate metric id %s", id)
		seen[id] = struct{}{}
		assert.NotEqual(t, id, metricNameForID(id), "metric id %s has no CloudWatch name", id)
	}
}
