package aws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	bedrock_usage_analyzer "github.com/fmops/bedrock-usage-analyzer"
	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
	"github.com/fmops/bedrock-usage-analyzer/pkg/gatherer"
	"github.com/fmops/bedrock-usage-analyzer/pkg/provider"
)

type Config struct {
	Specs          []bedrock.ModelSpec
	Granularity    bedrock.Granularity
	Region         string
	Profile        string
	RoleARN        string
	ScrapeInterval time.Duration
	Logger         *slog.Logger
}

type AWS struct {
	Config        *Config
	collectors    []provider.Collector
	clientMetrics []prometheus.Collector
	logger        *slog.Logger
}

var (
	collectorLastScrapeErrorDesc = prometheus.NewDesc(
		prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, "collector", "last_scrape_error"),
		"Counter of the number of errors that occurred during the last scrape.",
		[]string{"provider", "collector"},
		nil,
	)
	collectorDurationDesc = prometheus.NewDesc(
		prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, "collector", "last_scrape_duration_seconds"),
		"Duration of the last scrape in seconds.",
		[]string{"provider", "collector"},
		nil,
	)
	collectorLastScrapeTime = prometheus.NewDesc(
		prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, "collector", "last_scrape_time"),
		"Time of the last scrape.",
		[]string{"provider", "collector"},
		nil,
	)
)

const subsystem = "aws"

func New(ctx context.Context, config *Config) (*AWS, error) {
	logger := config.Logger.With("provider", "aws")
	// There are two scenarios:
	// 1. Running locally, the user must pass in a region and profile to use
	// 2. Running on EC2, where the region and credentials can be derived from
	//    the instance metadata service.
	// The AWS SDK handles both: an explicit region/profile wins, IMDS is the
	// fallback. This is the same resolution the AWS CLI uses.
	awsClient, err := client.NewAWSClient(ctx,
		client.WithRegion(config.Region),
		client.WithProfile(config.Profile),
		client.WithRoleARN(config.RoleARN))

	if err != nil {
		return nil, err
	}

	collector := bedrock.New(&bedrock.Config{
		Specs:          config.Specs,
		Granularity:    config.Granularity,
		ScrapeInterval: config.ScrapeInterval,
		Logger:         logger,
	}, bedrock.NewAnalyzer(awsClient, logger))

	return &AWS{
		Config:        config,
		collectors:    []provider.Collector{collector},
		clientMetrics: awsClient.Metrics(),
		logger:        logger,
	}, nil
}

func (a *AWS) RegisterCollectors(registry provider.Registry) error {
	a.logger.LogAttrs(context.Background(), slog.LevelInfo, "registering collectors",
		slog.Int("count", len(a.collectors)),
	)
	for _, m := range a.clientMetrics {
		if err := registry.Register(m); err != nil {
			return err
		}
	}
	for _, c := range a.collectors {
		if err := c.Register(registry); err != nil {
			return err
		}
	}
	return nil
}

func (a *AWS) Describe(ch chan<- *prometheus.Desc) {
	ch <- collectorLastScrapeErrorDesc
	ch <- collectorDurationDesc
	ch <- collectorLastScrapeTime
	for _, c := range a.collectors {
		if err := c.Describe(ch); err != nil {
			a.logger.LogAttrs(context.Background(), slog.LevelError, "failed to describe collector",
				slog.String("message", err.Error()),
				slog.String("collector", c.Name()),
			)
		}
	}
}

func (a *AWS) Collect(ch chan<- prometheus.Metric) {
	ctx := context.Background()
	wg := &sync.WaitGroup{}
	wg.Add(len(a.collectors))
	for _, c := range a.collectors {
		go func(c provider.Collector) {
			defer wg.Done()
			duration, hasError := gatherer.CollectWithGatherer(ctx, c, ch, a.logger)
			collectorErrors := 0.0
			if hasError {
				collectorErrors++
			}
			ch <- prometheus.MustNewConstMetric(collectorLastScrapeErrorDesc, prometheus.CounterValue, collectorErrors, subsystem, c.Name())
			ch <- prometheus.MustNewConstMetric(collectorDurationDesc, prometheus.GaugeValue, duration, subsystem, c.Name())
			ch <- prometheus.MustNewConstMetric(collectorLastScrapeTime, prometheus.GaugeValue, float64(time.Now().Unix()), subsystem, c.Name())
		}(c)
	}
	wg.Wait()
}
