// Package quotas resolves applied Service Quotas values for model endpoints
// and compares them against observed usage.
package quotas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/matryer/try.v1"

	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
	"github.com/fmops/bedrock-usage-analyzer/pkg/metadata"
)

// Quota dimension keys as they appear in reports and metadata files.
const (
	DimensionTPM        = "tpm"
	DimensionRPM        = "rpm"
	DimensionTPD        = "tpd"
	DimensionConcurrent = "concurrent"
)

const (
	getQuotaMaxRetries = 5
	getQuotaRetryDelay = 2 * time.Second
)

var ErrMaxRetriesReached = errors.New("max retries reached")

// Quota is one resolved quota dimension for a model endpoint.
type Quota struct {
	Code        string   `json:"code"`
	Name        string   `json:"name,omitempty"`
	Value       float64  `json:"value"`
	ObservedP90 float64  `json:"observed_p90"`
	Utilization *float64 `json:"utilization_pct,omitempty"`
}

// ModelQuotas maps quota dimension to its resolved quota.
type ModelQuotas map[string]Quota

// Resolver looks up applied quota values through the Service Quotas API.
type Resolver struct {
	client     client.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewResolver(c client.Client, logger *slog.Logger) *Resolver {
	return &Resolver{
		client:     c,
		logger:     logger.With("logger", "quotas"),
		retryDelay: getQuotaRetryDelay,
	}
}

// Resolve fetches the applied value for every mapped quota code and pairs it
// with the observed p90 from the window statistics. Codes that cannot be
// resolved are logged and reported with a zero value so the report still
// shows the code and the observed usage.
func (r *Resolver) Resolve(ctx context.Context, codes *metadata.QuotaCodes, stats bedrock.WindowStats) ModelQuotas {
	if codes == nil {
		return nil
	}

	observed := map[string]float64{
		DimensionTPM: stats[bedrock.SeriesTPM].P90,
		DimensionRPM: stats[bedrock.SeriesRPM].P90,
		DimensionTPD: stats[bedrock.SeriesTPD].P90,
	}

	quotas := ModelQuotas{}
	for dimension, code := range map[string]*string{
		DimensionTPM:        codes.TPM,
		DimensionRPM:        codes.RPM,
		DimensionTPD:        codes.TPD,
		DimensionConcurrent: codes.Concurrent,
	} {
		if code == nil {
			continue
		}
		quotas[dimension] = r.resolveOne(ctx, dimension, *code, observed[dimension])
	}
	return quotas
}

func (r *Resolver) resolveOne(ctx context.Context, dimension, code string, observedP90 float64) Quota {
	quota := Quota{Code: code, ObservedP90: observedP90}

	value, name, err := r.getQuota(ctx, code)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelWarn, "could not resolve quota value",
			slog.String("dimension", dimension),
			slog.String("code", code),
			slog.String("message", err.Error()),
		)
		return quota
	}

	quota.Value = value
	quota.Name = name
	// Concurrency has no observed series; utilization only makes sense for
	// dimensions the analysis measures.
	if value > 0 && dimension != DimensionConcurrent {
		utilization := observedP90 / value * 100
		quota.Utilization = &utilization
	}
	return quota
}

func (r *Resolver) getQuota(ctx context.Context, code string) (float64, string, error) {
	var value float64
	var name string

	err := try.Do(func(attempt int) (bool, error) {
		out, err := r.client.GetServiceQuota(ctx, code)
		if err != nil {
			if attempt == getQuotaMaxRetries {
				return false, fmt.Errorf("%w: %w", ErrMaxRetriesReached, err)
			}
			time.Sleep(r.retryDelay)
			return attempt < getQuotaMaxRetries, err
		}
		if out == nil || out.Value == nil {
			return false, fmt.Errorf("quota %s has no applied value", code)
		}
		value = *out.Value
		if out.QuotaName != nil {
			name = *out.QuotaName
		}
		return false, nil
	})

	return value, name, err
}
