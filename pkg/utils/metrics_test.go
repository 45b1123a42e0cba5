package utils

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMetrics(t *testing.T) {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "test",
	}, []string{"model_id"})
	gauge.WithLabelValues("us.model-a").Set(42)

	ch := make(chan prometheus.Metric, 1)
	gauge.Collect(ch)

	got := ReadMetrics(<-ch)
	require.NotNil(t, got)
	assert.Equal(t, 42.0, got.Value)
	assert.Equal(t, prometheus.GaugeValue, got.MetricType)
	assert.Equal(t, LabelMap{"model_id": "us.model-a"}, got.Labels)
}

func TestReadMetricsCounter(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "test",
	})
	counter.Add(3)

	ch := make(chan prometheus.Metric, 1)
	counter.Collect(ch)

	got := ReadMetrics(<-ch)
	require.NotNil(t, got)
	assert.Equal(t, 3.0, got.Value)
	assert.Equal(t, prometheus.CounterValue, got.MetricType)
}
