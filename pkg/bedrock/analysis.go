package bedrock

import (
	"context"
	"log/slog"
	"time"

	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	"github.com/fmops/bedrock-usage-analyzer/pkg/metadata"
)

// ModelSpec selects one model/profile pair to analyze.
type ModelSpec struct {
	ModelID       string
	ProfilePrefix string
}

// MonitoredID is the CloudWatch ModelId dimension value for this model.
func (s ModelSpec) MonitoredID() string {
	return metadata.MonitoredModelID(s.ModelID, s.ProfilePrefix)
}

// WindowUsage is the processed view of one window: summary statistics plus
// the derived time series.
type WindowUsage struct {
	Statistics WindowStats  `json:"statistics"`
	TimeSeries WindowSeries `json:"time_series"`
}

// ModelUsage is everything computed for one model/profile pair.
type ModelUsage struct {
	Spec        ModelSpec
	MonitoredID string
	Windows     map[Window]WindowUsage
}

// Usage is the complete result of one analysis run.
type Usage struct {
	GeneratedAt time.Time
	Granularity Granularity
	Windows     []Window
	Models      []ModelUsage
	Aggregate   map[Window]WindowUsage
}

// Analyzer runs the fetch/slice/aggregate pipeline.
type Analyzer struct {
	fetcher *Fetcher
	logger  *slog.Logger
}

func NewAnalyzer(c client.Client, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		fetcher: NewFetcher(c, logger),
		logger:  logger.With("logger", "analyzer"),
	}
}

// Analyze fetches and aggregates usage for the given specs over the given
// windows (all windows when nil).
func (a *Analyzer) Analyze(ctx context.Context, specs []ModelSpec, g Granularity, windows []Window) (*Usage, error) {
	if len(windows) == 0 {
		windows = Windows
	}

	monitored := make([]string, 0, len(specs))
	for _, spec := range specs {
		monitored = append(monitored, spec.MonitoredID())
	}

	datasets, err := a.fetcher.FetchAll(ctx, monitored, g, windows)
	if err != nil {
		return nil, err
	}

	usage := &Usage{
		Granularity: g,
		Windows:     windows,
		Aggregate:   make(map[Window]WindowUsage, len(windows)),
	}

	models := make([]ModelUsage, 0, len(specs))
	for _, spec := range specs {
		mu := ModelUsage{
			Spec:        spec,
			MonitoredID: spec.MonitoredID(),
			Windows:     make(map[Window]WindowUsage, len(windows)),
		}
		ds := datasets[mu.MonitoredID]
		if usage.GeneratedAt.IsZero() {
			usage.GeneratedAt = ds.EndTime
		}
		for _, w := range windows {
			series := BuildWindowSeries(ds.Slice(w, g), w, ds.EndTime)
			mu.Windows[w] = WindowUsage{
				Statistics: ComputeStatistics(series, w),
				TimeSeries: series,
			}
		}
		models = append(models, mu)
	}
	usage.Models = models
	if usage.GeneratedAt.IsZero() {
		usage.GeneratedAt = time.Now().UTC()
	}

	for _, w := range windows {
		allStats := make(map[string]WindowStats, len(models))
		allSeries := make(map[string]WindowSeries, len(models))
		for _, mu := range models {
			allStats[mu.MonitoredID] = mu.Windows[w].Statistics
			allSeries[mu.MonitoredID] = mu.Windows[w].TimeSeries
		}
		usage.Aggregate[w] = WindowUsage{
			Statistics: AggregateStatistics(allStats, w),
			TimeSeries: AggregateWindowSeries(allSeries, w),
		}
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "analysis complete",
		slog.Int("models", len(models)),
		slog.Int("windows", len(windows)),
	)

	return usage, nil
}
