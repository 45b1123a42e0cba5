// Package bedrock fetches AWS/Bedrock CloudWatch metrics for a set of
// monitored model IDs and turns them into per-window time series and
// aggregate statistics.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/aws/smithy-go"
	"golang.org/x/sync/errgroup"

	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	"github.com/fmops/bedrock-usage-analyzer/pkg/utils"
)

// Window is one of the fixed reporting windows.
type Window string

const (
	Window1Hour  Window = "1hour"
	Window1Day   Window = "1day"
	Window7Days  Window = "7days"
	Window14Days Window = "14days"
	Window30Days Window = "30days"
)

// Windows lists the reporting windows from shortest to longest. Granularity
// monotonicity is validated in this order.
var Windows = []Window{Window1Hour, Window1Day, Window7Days, Window14Days, Window30Days}

var windowDurations = map[Window]time.Duration{
	Window1Hour:  time.Hour,
	Window1Day:   24 * time.Hour,
	Window7Days:  7 * 24 * time.Hour,
	Window14Days: 14 * 24 * time.Hour,
	Window30Days: 30 * 24 * time.Hour,
}

// Duration returns the span covered by the window, or zero for an unknown one.
func (w Window) Duration() time.Duration {
	return windowDurations[w]
}

// Valid reports whether w is one of the fixed reporting windows.
func (w Window) Valid() bool {
	_, ok := windowDurations[w]
	return ok
}

// HasDailySeries reports whether the window is long enough for a
// tokens-per-day series. The 1hour window is not.
func (w Window) HasDailySeries() bool {
	return w != Window1Hour
}

// Granularity maps each window to its CloudWatch period in seconds.
type Granularity map[Window]int32

// Allowed CloudWatch periods.
const (
	PeriodMinute     int32 = 60
	PeriodFiveMinute int32 = 300
	PeriodHour       int32 = 3600
)

// DefaultGranularity returns five-minute periods for every window.
func DefaultGranularity() Granularity {
	g := make(Granularity, len(Windows))
	for _, w := range Windows {
		g[w] = PeriodFiveMinute
	}
	return g
}

// Validate checks that every window has an allowed period, that the 1hour
// window is finer than hourly, and that a longer window never uses a finer
// period than a shorter one.
func (g Granularity) Validate() error {
	var prev int32
	for _, w := range Windows {
		period, ok := g[w]
		if !ok {
			return fmt.Errorf("granularity for window %s is missing", w)
		}
		switch period {
		case PeriodMinute, PeriodFiveMinute, PeriodHour:
		default:
			return fmt.Errorf("granularity for window %s must be %d, %d or %d seconds, got %d",
				w, PeriodMinute, PeriodFiveMinute, PeriodHour, period)
		}
		if w == Window1Hour && period == PeriodHour {
			return fmt.Errorf("window %s cannot use a period of %d seconds", w, PeriodHour)
		}
		if period < prev {
			return fmt.Errorf("window %s uses a finer period (%ds) than a shorter window (%ds)", w, period, prev)
		}
		prev = period
	}
	return nil
}

// CloudWatch rejects GetMetricData requests that would return more than
// 100,800 datapoints; longer ranges are split into chunks below the limit.
const maxDataPointsPerRequest = 100800

// RawSeries is the unprocessed CloudWatch data for one model at one period.
// Value slices are aligned with Timestamps and sorted ascending.
type RawSeries struct {
	Timestamps []time.Time
	Data       map[string][]float64
	Period     int32
}

func emptyRawSeries(period int32) *RawSeries {
	data := make(map[string][]float64, len(client.MetricIDs))
	for _, id := range client.MetricIDs {
		data[id] = nil
	}
	return &RawSeries{Data: data, Period: period}
}

// ModelDataset holds everything fetched for one monitored model ID, keyed by
// period so each window can be sliced out without refetching.
type ModelDataset struct {
	EndTime  time.Time
	ByPeriod map[int32]*RawSeries
}

// Slice returns the portion of the dataset covering the given window at the
// configured period. Both bounds are inclusive. A missing period yields nil.
func (ds *ModelDataset) Slice(w Window, g Granularity) *RawSeries {
	period, ok := g[w]
	if !ok {
		return nil
	}
	raw, ok := ds.ByPeriod[period]
	if !ok {
		return nil
	}

	start := ds.EndTime.Add(-w.Duration())
	indices := make([]int, 0, len(raw.Timestamps))
	for i, ts := range raw.Timestamps {
		if !ts.Before(start) && !ts.After(ds.EndTime) {
			indices = append(indices, i)
		}
	}

	filtered := &RawSeries{
		Timestamps: make([]time.Time, 0, len(indices)),
		Data:       make(map[string][]float64, len(raw.Data)),
		Period:     raw.Period,
	}
	for _, i := range indices {
		filtered.Timestamps = append(filtered.Timestamps, raw.Timestamps[i])
	}
	for key, values := range raw.Data {
		if len(values) == 0 {
			filtered.Data[key] = nil
			continue
		}
		out := make([]float64, 0, len(indices))
		for _, i := range indices {
			if i < len(values) {
				out = append(out, values[i])
			}
		}
		filtered.Data[key] = out
	}
	return filtered
}

// Fetcher pulls raw CloudWatch data for a set of monitored model IDs.
type Fetcher struct {
	client     client.Client
	logger     *slog.Logger
	maxWorkers int

	retryAttempts int
	retryDelay    time.Duration
}

func NewFetcher(c client.Client, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:        c,
		logger:        logger.With("logger", "fetcher"),
		maxWorkers:    runtime.NumCPU(),
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
}

// FetchAll fetches raw data for every monitored model ID at every distinct
// period the requested windows use, in parallel. Each period is fetched once
// over the longest window that uses it; shorter windows are sliced later.
// A failed (model, period) fetch is logged and left empty rather than
// failing the whole run. A nil windows slice requests all windows.
func (f *Fetcher) FetchAll(ctx context.Context, modelIDs []string, g Granularity, windows []Window) (map[string]*ModelDataset, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		windows = Windows
	}
	end := time.Now().UTC()

	// Longest window per distinct period.
	spans := map[int32]time.Duration{}
	for _, w := range windows {
		period := g[w]
		if w.Duration() > spans[period] {
			spans[period] = w.Duration()
		}
	}

	datasets := make(map[string]*ModelDataset, len(modelIDs))
	for _, id := range modelIDs {
		datasets[id] = &ModelDataset{EndTime: end, ByPeriod: make(map[int32]*RawSeries, len(spans))}
	}

	f.logger.LogAttrs(ctx, slog.LevelInfo, "starting parallel metric fetch",
		slog.Int("models", len(modelIDs)),
		slog.Int("granularities", len(spans)),
		slog.Int("workers", f.maxWorkers),
	)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(f.maxWorkers)

	for _, modelID := range modelIDs {
		for period, span := range spans {
			eg.Go(func() error {
				raw, err := f.fetchRange(egCtx, modelID, end.Add(-span), end, period)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return err
					}
					f.logger.LogAttrs(egCtx, slog.LevelWarn, "could not fetch metric data",
						slog.String("model_id", modelID),
						slog.Int("period", int(period)),
						slog.String("message", err.Error()),
					)
					raw = emptyRawSeries(period)
				}
				mu.Lock()
				datasets[modelID].ByPeriod[period] = raw
				mu.Unlock()
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (f *Fetcher) fetchRange(ctx context.Context, modelID string, start, end time.Time, period int32) (*RawSeries, error) {
	raw := &RawSeries{Data: make(map[string][]float64, len(client.MetricIDs)), Period: period}

	for _, chunk := range chunkTimeRange(start, end, period) {
		var batch *client.MetricBatch
		err := utils.Retry(f.retryAttempts, f.retryDelay, 30*time.Second, isThrottled, func() error {
			var err error
			batch, err = f.client.GetBedrockMetricData(ctx, modelID, chunk.start, chunk.end, period)
			return err
		})
		if err != nil {
			return nil, err
		}

		raw.Timestamps = append(raw.Timestamps, batch.Timestamps...)
		for id, values := range batch.Data {
			raw.Data[id] = append(raw.Data[id], values...)
		}
	}

	sortByTimestamp(raw)
	return raw, nil
}

type timeRange struct {
	start, end time.Time
}

// chunkTimeRange splits [start, end) so no chunk exceeds the CloudWatch
// datapoint limit at the given period. With a 300s period the limit covers
// 350 days, so a 30 day fetch is a single chunk.
func chunkTimeRange(start, end time.Time, period int32) []timeRange {
	maxDuration := time.Duration(maxDataPointsPerRequest) * time.Duration(period) * time.Second

	var chunks []timeRange
	for cur := start; cur.Before(end); {
		chunkEnd := cur.Add(maxDuration)
		if chunkEnd.After(end) {
			chunkEnd = end
		}
		chunks = append(chunks, timeRange{start: cur, end: chunkEnd})
		cur = chunkEnd
	}
	return chunks
}

// sortByTimestamp orders the series ascending by timestamp. Only value
// slices aligned with the timestamp slice are reordered; partial slices are
// left as-is, matching the slicing behavior which bounds-checks them.
func sortByTimestamp(raw *RawSeries) {
	n := len(raw.Timestamps)
	if n == 0 {
		return
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return raw.Timestamps[indices[a]].Before(raw.Timestamps[indices[b]])
	})

	sortedTS := make([]time.Time, n)
	for i, idx := range indices {
		sortedTS[i] = raw.Timestamps[idx]
	}
	raw.Timestamps = sortedTS

	for key, values := range raw.Data {
		if len(values) != n {
			continue
		}
		sorted := make([]float64, n)
		for i, idx := range indices {
			sorted[i] = values[idx]
		}
		raw.Data[key] = sorted
	}
}

func isThrottled(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "Throttling", "ThrottlingException", "RequestLimitExceeded", "TooManyRequestsException":
		return true
	}
	return false
}
