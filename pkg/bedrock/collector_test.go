package bedrock

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	mock_client "github.com/fmops/bedrock-usage-analyzer/pkg/aws/client/mocks"
	"github.com/fmops/bedrock-usage-analyzer/pkg/utils"
)

func newTestCollector(t *testing.T, c client.Client, interval time.Duration) *Collector {
	t.Helper()
	return New(&Config{
		Specs:          []ModelSpec{{ModelID: "model-a", ProfilePrefix: "us"}},
		Granularity:    DefaultGranularity(),
		ScrapeInterval: interval,
		Logger:         slog.Default(),
	}, NewAnalyzer(c, slog.Default()))
}

func TestCollectorRegister(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := newTestCollector(t, mock_client.NewMockClient(ctrl), time.Hour)
	registry := prometheus.NewRegistry()
	require.NoError(t, c.Register(registry))
	assert.Equal(t, "Bedrock", c.Name())
}

func TestCollectorCollect(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	base := time.Now().UTC().Add(-30 * time.Minute)
	batch := &client.MetricBatch{
		Timestamps: []time.Time{base, base.Add(5 * time.Minute)},
		Data: map[string][]float64{
			client.MetricInvocations:  {5, 10},
			client.MetricInputTokens:  {1000, 2000},
			client.MetricOutputTokens: {500, 1000},
			client.MetricThrottles:    {1, 0},
		},
	}

	mc := mock_client.NewMockClient(ctrl)
	// The cached analysis serves both collections, CloudWatch is hit once.
	mc.EXPECT().
		GetBedrockMetricData(gomock.Any(), "us.model-a", gomock.Any(), gomock.Any(), int32(300)).
		Return(batch, nil).
		Times(1)

	c := newTestCollector(t, mc, time.Hour)
	require.NoError(t, c.Register(prometheus.NewRegistry()))

	require.NoError(t, c.Collect(context.Background(), nil))
	require.NoError(t, c.Collect(context.Background(), nil))

	ch := make(chan prometheus.Metric, 10)
	c.metrics.Invocations.Collect(ch)
	m := utils.ReadMetrics(<-ch)
	require.NotNil(t, m)
	assert.Equal(t, utils.LabelMap{"model_id": "us.model-a"}, m.Labels)
	assert.InDelta(t, 15, m.Value, 1e-9)

	ch = make(chan prometheus.Metric, 10)
	c.metrics.Tokens.Collect(ch)
	byDirection := map[string]float64{}
	for i := 0; i < 2; i++ {
		m := utils.ReadMetrics(<-ch)
		require.NotNil(t, m)
		byDirection[m.Labels["direction"]] = m.Value
	}
	assert.InDelta(t, 3000, byDirection["input"], 1e-9)
	assert.InDelta(t, 1500, byDirection["output"], 1e-9)
}

func TestCollectorCollectRefreshesAfterInterval(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mock_client.NewMockClient(ctrl)
	mc.EXPECT().
		GetBedrockMetricData(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&client.MetricBatch{Data: map[string][]float64{}}, nil).
		Times(2)

	// A zero interval expires the cache immediately.
	c := newTestCollector(t, mc, 0)
	require.NoError(t, c.Register(prometheus.NewRegistry()))

	require.NoError(t, c.Collect(context.Background(), nil))
	require.NoError(t, c.Collect(context.Background(), nil))
}

func TestCollectorCollectPropagatesAnalyzeError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mc := mock_client.NewMockClient(ctrl)

	c := newTestCollector(t, mc, time.Hour)
	// An invalid granularity makes the analysis fail before any API call.
	c.granularity = Granularity{}
	assert.Error(t, c.Collect(context.Background(), nil))
}
