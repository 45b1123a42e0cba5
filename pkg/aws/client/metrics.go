package client

import (
	bedrock_usage_analyzer "github.com/fmops/bedrock-usage-analyzer"
	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "aws_api"

type Metrics struct {
	// RequestCount is a counter that tracks the number of requests made to AWS APIs, per operation
	RequestCount *prometheus.CounterVec

	// RequestErrorsCount is a counter that tracks the number of errors when making requests to AWS APIs, per operation
	RequestErrorsCount *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, subsystem, "requests_total"),
			Help: "Total number of requests made to AWS APIs",
		}, []string{"operation"}),

		RequestErrorsCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, subsystem, "request_errors_total"),
			Help: "Total number of errors when making requests to AWS APIs",
		}, []string{"operation"}),
	}
}
