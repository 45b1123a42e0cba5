package bedrock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	bedrock_usage_analyzer "github.com/fmops/bedrock-usage-analyzer"
	"github.com/fmops/bedrock-usage-analyzer/pkg/provider"
)

const subsystem = "model"

// Metrics exported by this collector. Gauges are refreshed from the most
// recent one-hour analysis window.
type Metrics struct {
	// TokensPerMinute reports summary statistics over the per-period
	// tokens-per-minute series.
	TokensPerMinute *prometheus.GaugeVec

	// RequestsPerMinute reports summary statistics over the per-period
	// requests-per-minute series.
	RequestsPerMinute *prometheus.GaugeVec

	// Tokens reports total tokens over the window, split by direction.
	Tokens *prometheus.GaugeVec

	// Invocations reports total model invocations over the window.
	Invocations *prometheus.GaugeVec

	// Throttles reports total throttled invocations over the window.
	Throttles *prometheus.GaugeVec

	// Errors reports total failed invocations over the window, split by
	// whether the fault was the caller's or the service's.
	Errors *prometheus.GaugeVec

	// LatencyMilliseconds reports summary statistics over the per-period
	// average invocation latency.
	LatencyMilliseconds *prometheus.GaugeVec

	// NextScrape is the next time usage data will be refetched from
	// CloudWatch. Can be used to trigger alerts if now - nextScrape > interval
	NextScrape prometheus.Gauge
}

func NewMetrics() Metrics {
	return Metrics{
		TokensPerMinute: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "tokens_per_minute"),
			Help: "Tokens per minute over the last hour, by model and summary statistic.",
		},
			[]string{"model_id", "stat"},
		),

		RequestsPerMinute: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "requests_per_minute"),
			Help: "Requests per minute over the last hour, by model and summary statistic.",
		},
			[]string{"model_id", "stat"},
		),

		Tokens: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "tokens"),
			Help: "Total tokens processed over the last hour, by model and direction.",
		},
			[]string{"model_id", "direction"},
		),

		Invocations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "invocations"),
			Help: "Total model invocations over the last hour.",
		},
			[]string{"model_id"},
		),

		Throttles: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "invocation_throttles"),
			Help: "Total throttled invocations over the last hour.",
		},
			[]string{"model_id"},
		),

		Errors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "invocation_errors"),
			Help: "Total failed invocations over the last hour, by fault.",
		},
			[]string{"model_id", "fault"},
		),

		LatencyMilliseconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.MetricPrefix, subsystem, "invocation_latency_milliseconds"),
			Help: "Invocation latency over the last hour, by model and summary statistic.",
		},
			[]string{"model_id", "stat"},
		),

		NextScrape: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(bedrock_usage_analyzer.ToolName, subsystem, "next_scrape"),
			Help: "The next time usage data will be refetched from CloudWatch. Can be used to trigger alerts if now - nextScrape > interval",
		}),
	}
}

// Collector exports recent model usage as prometheus metrics. CloudWatch is
// only queried once per scrape interval; scrapes in between are served from
// the cached analysis.
type Collector struct {
	analyzer    *Analyzer
	specs       []ModelSpec
	granularity Granularity
	interval    time.Duration
	nextScrape  time.Time
	metrics     Metrics
	usage       *Usage
	logger      *slog.Logger
	m           sync.Mutex
}

type Config struct {
	Specs          []ModelSpec
	Granularity    Granularity
	ScrapeInterval time.Duration
	Logger         *slog.Logger
}

// New creates a usage collector with a client and scrape interval defined.
func New(config *Config, analyzer *Analyzer) *Collector {
	return &Collector{
		analyzer:    analyzer,
		specs:       config.Specs,
		granularity: config.Granularity,
		interval:    config.ScrapeInterval,
		// Initially set nextScrape to the current time minus the scrape interval so that the first scrape will run immediately
		nextScrape: time.Now().Add(-config.ScrapeInterval),
		metrics:    NewMetrics(),
		logger:     config.Logger.With("logger", "bedrock"),
	}
}

func (c *Collector) Name() string {
	return "Bedrock"
}

// Register is called prior to the first collection. It registers the gauges
// the collector refreshes on each scrape.
func (c *Collector) Register(registry provider.Registry) error {
	registry.MustRegister(c.metrics.TokensPerMinute)
	registry.MustRegister(c.metrics.RequestsPerMinute)
	registry.MustRegister(c.metrics.Tokens)
	registry.MustRegister(c.metrics.Invocations)
	registry.MustRegister(c.metrics.Throttles)
	registry.MustRegister(c.metrics.Errors)
	registry.MustRegister(c.metrics.LatencyMilliseconds)
	registry.MustRegister(c.metrics.NextScrape)

	return nil
}

func (c *Collector) Describe(_ chan<- *prometheus.Desc) error {
	return nil
}

// Collect refreshes the cached analysis when the scrape interval has elapsed
// and exports it. Only the one-hour window is fetched, so a refresh is a
// single GetMetricData request per model.
func (c *Collector) Collect(ctx context.Context, _ chan<- prometheus.Metric) error {
	c.m.Lock()
	defer c.m.Unlock()

	now := time.Now()
	if c.usage == nil || now.After(c.nextScrape) {
		usage, err := c.analyzer.Analyze(ctx, c.specs, c.granularity, []Window{Window1Hour})
		if err != nil {
			return err
		}
		c.usage = usage
		c.nextScrape = time.Now().Add(c.interval)
		c.metrics.NextScrape.Set(float64(c.nextScrape.Unix()))
	}

	c.exportMetrics()
	return nil
}

func (c *Collector) exportMetrics() {
	for _, mu := range c.usage.Models {
		stats := mu.Windows[Window1Hour].Statistics

		exportSummary(c.metrics.TokensPerMinute, mu.MonitoredID, stats[SeriesTPM])
		exportSummary(c.metrics.RequestsPerMinute, mu.MonitoredID, stats[SeriesRPM])
		exportSummary(c.metrics.LatencyMilliseconds, mu.MonitoredID, stats[SeriesLatency])

		c.metrics.Tokens.WithLabelValues(mu.MonitoredID, "input").Set(stats[SeriesInputTokens].Sum)
		c.metrics.Tokens.WithLabelValues(mu.MonitoredID, "output").Set(stats[SeriesOutputTokens].Sum)
		c.metrics.Invocations.WithLabelValues(mu.MonitoredID).Set(stats[SeriesInvocations].Sum)
		c.metrics.Throttles.WithLabelValues(mu.MonitoredID).Set(stats[SeriesThrottles].Sum)
		c.metrics.Errors.WithLabelValues(mu.MonitoredID, "client").Set(stats[SeriesClientErrors].Sum)
		c.metrics.Errors.WithLabelValues(mu.MonitoredID, "server").Set(stats[SeriesServerErrors].Sum)
	}
}

func exportSummary(gauge *prometheus.GaugeVec, modelID string, s Summary) {
	gauge.WithLabelValues(modelID, "p50").Set(s.P50)
	gauge.WithLabelValues(modelID, "p90").Set(s.P90)
	gauge.WithLabelValues(modelID, "avg").Set(s.Avg)
}
