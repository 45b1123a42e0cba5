// Package report renders analysis results as JSON and HTML artifacts, plus a
// Grafana dashboard for the exporter metrics.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
	"github.com/fmops/bedrock-usage-analyzer/pkg/quotas"
)

const (
	JSONFileName = "report.json"
	HTMLFileName = "report.html"
)

// WindowReport is one window of one model (or the aggregate) as serialized.
type WindowReport struct {
	Statistics map[string]bedrock.Summary `json:"statistics"`
	TimeSeries map[string]*bedrock.Series `json:"time_series"`
}

// ModelReport is the serialized view of one analyzed model/profile pair.
type ModelReport struct {
	ModelID       string                  `json:"model_id"`
	ProfilePrefix string                  `json:"profile_prefix"`
	MonitoredID   string                  `json:"monitored_model_id"`
	Windows       map[string]WindowReport `json:"windows"`
	Quotas        quotas.ModelQuotas      `json:"quotas,omitempty"`
}

// Report is the top-level JSON document written by an analysis run.
type Report struct {
	GeneratedAt        time.Time               `json:"generated_at"`
	AccountID          string                  `json:"account_id,omitempty"`
	Region             string                  `json:"region"`
	GranularitySeconds map[string]int32        `json:"granularity_seconds"`
	Windows            []string                `json:"windows"`
	Models             []ModelReport           `json:"models"`
	Aggregate          map[string]WindowReport `json:"aggregate"`
}

// Build assembles a report from an analysis result. modelQuotas is keyed by
// monitored model ID and may be nil when quota resolution is disabled.
func Build(usage *bedrock.Usage, accountID, region string, modelQuotas map[string]quotas.ModelQuotas) *Report {
	r := &Report{
		GeneratedAt:        usage.GeneratedAt,
		AccountID:          accountID,
		Region:             region,
		GranularitySeconds: make(map[string]int32, len(usage.Granularity)),
		Windows:            make([]string, 0, len(usage.Windows)),
		Models:             make([]ModelReport, 0, len(usage.Models)),
		Aggregate:          make(map[string]WindowReport, len(usage.Aggregate)),
	}

	for w, period := range usage.Granularity {
		r.GranularitySeconds[string(w)] = period
	}
	for _, w := range usage.Windows {
		r.Windows = append(r.Windows, string(w))
	}

	for _, mu := range usage.Models {
		mr := ModelReport{
			ModelID:       mu.Spec.ModelID,
			ProfilePrefix: mu.Spec.ProfilePrefix,
			MonitoredID:   mu.MonitoredID,
			Windows:       make(map[string]WindowReport, len(mu.Windows)),
			Quotas:        modelQuotas[mu.MonitoredID],
		}
		for w, wu := range mu.Windows {
			mr.Windows[string(w)] = windowReport(wu)
		}
		r.Models = append(r.Models, mr)
	}

	for w, wu := range usage.Aggregate {
		r.Aggregate[string(w)] = windowReport(wu)
	}

	return r
}

func windowReport(wu bedrock.WindowUsage) WindowReport {
	return WindowReport{
		Statistics: wu.Statistics,
		TimeSeries: wu.TimeSeries,
	}
}

// WriteJSON writes the report to <dir>/report.json.
func WriteJSON(r *Report, dir string) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	path := filepath.Join(dir, JSONFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
