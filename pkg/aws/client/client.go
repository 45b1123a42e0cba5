package client

import (
	"context"
	"time"

	bedrockTypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	sqTypes "github.com/aws/aws-sdk-go-v2/service/servicequotas/types"
	"github.com/prometheus/client_golang/prometheus"
)

//go:generate mockgen -source=client.go -destination mocks/client.go

// Metric query identifiers used for CloudWatch GetMetricData and as keys of
// MetricBatch.Data. They line up with the AWS/Bedrock metric names below.
const (
	MetricInvocations  = "invocations"
	MetricInputTokens  = "input_tokens"
	MetricOutputTokens = "output_tokens"
	MetricThrottles    = "throttles"
	MetricClientErrors = "client_errors"
	MetricServerErrors = "server_errors"
	MetricLatency      = "latency"
)

// MetricIDs lists every metric fetched per model, in query order.
var MetricIDs = []string{
	MetricInvocations,
	MetricInputTokens,
	MetricOutputTokens,
	MetricThrottles,
	MetricClientErrors,
	MetricServerErrors,
	MetricLatency,
}

// MetricBatch is the raw result of one GetBedrockMetricData call.
// Timestamps are collected once, from the first metric that returned data;
// CloudWatch returns the same grid for every query of the batch.
type MetricBatch struct {
	Timestamps []time.Time
	Data       map[string][]float64
}

type Client interface {
	AccountID(ctx context.Context) (string, error)
	GetBedrockMetricData(ctx context.Context, modelID string, start, end time.Time, period int32) (*MetricBatch, error)
	ResolveInferenceProfile(ctx context.Context, profileID string) (*bedrockTypes.InferenceProfileSummary, error)
	GetServiceQuota(ctx context.Context, quotaCode string) (*sqTypes.ServiceQuota, error)

	// TODO: Break out Metrics into an independent interface
	Metrics() []prometheus.Collector
}
