package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/grafana/grafana-foundation-sdk/go/cog"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"
	"github.com/grafana/grafana-foundation-sdk/go/prometheus"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

const DashboardFileName = "dashboard.json"

// UsageDashboard builds a Grafana dashboard over the metrics the exporter
// publishes in serve mode.
func UsageDashboard() *dashboard.DashboardBuilder {
	return dashboard.NewDashboardBuilder("Bedrock Usage Analyzer").
		Uid("bedrock-usage-analyzer").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		Refresh("1m").
		WithVariable(dashboard.NewDatasourceVariableBuilder("datasource").
			Label("Data Source").
			Type("prometheus"),
		).
		WithVariable(dashboard.NewQueryVariableBuilder("model_id").
			Query(dashboard.StringOrMap{
				String: cog.ToPtr("label_values(bedrock_usage_model_tokens_per_minute, model_id)"),
			}).
			Datasource(prometheusDatasourceRef()).
			Multi(true).
			Refresh(dashboard.VariableRefreshOnDashboardLoad).
			IncludeAll(true).
			AllValue(".*"),
		).
		WithRow(dashboard.NewRowBuilder("Overview")).
		WithPanel(collectorStatusCurrent().Height(6).Span(12)).
		WithPanel(collectorScrapeDurationOverTime().Height(6).Span(12)).
		WithRow(dashboard.NewRowBuilder("Model usage")).
		WithPanel(tokensPerMinuteOverTime().Height(8).Span(12)).
		WithPanel(requestsPerMinuteOverTime().Height(8).Span(12)).
		WithPanel(throttlesOverTime().Height(6).Span(12)).
		WithPanel(latencyOverTime().Height(6).Span(12))
}

func prometheusDatasourceRef() dashboard.DataSourceRef {
	return dashboard.DataSourceRef{
		Type: cog.ToPtr[string]("prometheus"),
		Uid:  cog.ToPtr[string]("${datasource}"),
	}
}

func prometheusQuery(expression string, legendFormat string) *prometheus.DataqueryBuilder {
	return prometheus.NewDataqueryBuilder().
		Expr(expression).
		Range().
		LegendFormat(legendFormat)
}

func tokensPerMinuteOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Tokens per minute").
		Description("p90 tokens per minute over the last hour, by model.").
		Datasource(prometheusDatasourceRef()).
		WithTarget(
			prometheusQuery("max by (model_id) (bedrock_usage_model_tokens_per_minute{model_id=~\"$model_id\", stat=\"p90\"})", "{{model_id}}"),
		).
		Unit("short").
		ColorScheme(dashboard.NewFieldColorBuilder().Mode("palette-classic")).
		Legend(common.NewVizLegendOptionsBuilder().
			DisplayMode(common.LegendDisplayModeTable).
			Placement(common.LegendPlacementBottom).
			ShowLegend(true).
			Calcs([]string{"lastNotNull", "max"}),
		)
}

func requestsPerMinuteOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Requests per minute").
		Description("p90 requests per minute over the last hour, by model.").
		Datasource(prometheusDatasourceRef()).
		WithTarget(
			prometheusQuery("max by (model_id) (bedrock_usage_model_requests_per_minute{model_id=~\"$model_id\", stat=\"p90\"})", "{{model_id}}"),
		).
		Unit("reqpm")
}

func throttlesOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Throttled invocations").
		Description("Throttled invocations over the last hour, by model. Sustained throttling usually means a quota is exhausted.").
		Datasource(prometheusDatasourceRef()).
		WithTarget(
			prometheusQuery("max by (model_id) (bedrock_usage_model_invocation_throttles{model_id=~\"$model_id\"})", "{{model_id}}"),
		).
		Unit("short")
}

func latencyOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Invocation latency").
		Description("p90 invocation latency over the last hour, by model.").
		Datasource(prometheusDatasourceRef()).
		WithTarget(
			prometheusQuery("max by (model_id) (bedrock_usage_model_invocation_latency_milliseconds{model_id=~\"$model_id\", stat=\"p90\"})", "{{model_id}}"),
		).
		Unit("ms")
}

func collectorScrapeDurationOverTime() *timeseries.PanelBuilder {
	return timeseries.NewPanelBuilder().
		Title("Collector Scrape Duration").
		Description("Duration of scrapes by provider and collector").
		Datasource(prometheusDatasourceRef()).
		WithTarget(
			prometheusQuery("bedrock_usage_analyzer_collector_last_scrape_duration_seconds", "{{provider}}:{{collector}}"),
		).
		Unit("s")
}

func collectorStatusCurrent() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Collector Status").
		Description("Display the status of all the collectors running.").
		Datasource(prometheusDatasourceRef()).
		Unit("short").
		WithTarget(
			prometheusQuery("max by (provider, collector) (bedrock_usage_analyzer_collector_last_scrape_error == 0)", "{{provider}}:{{collector}}").
				Instant(),
		).
		JustifyMode(common.BigValueJustifyModeAuto).
		TextMode(common.BigValueTextModeAuto).
		Orientation(common.VizOrientationAuto).
		ReduceOptions(common.NewReduceDataOptionsBuilder().
			Values(false).
			Calcs([]string{"lastNotNull"}),
		).
		Mappings([]dashboard.ValueMapping{
			{
				ValueMap: cog.ToPtr[dashboard.ValueMap](dashboard.ValueMap{
					Type: "value",
					Options: map[string]dashboard.ValueMappingResult{
						"0": {Text: cog.ToPtr[string]("Up"), Index: cog.ToPtr[int32](0)},
					},
				}),
			},
			{
				SpecialValueMap: cog.ToPtr[dashboard.SpecialValueMap](dashboard.SpecialValueMap{
					Type: "special",
					Options: dashboard.DashboardSpecialValueMapOptions{
						Match: "null+nan",
						Result: dashboard.ValueMappingResult{
							Text:  cog.ToPtr[string]("Down"),
							Color: cog.ToPtr[string]("red"),
							Index: cog.ToPtr[int32](1),
						},
					},
				}),
			},
		})
}

// WriteDashboard builds the usage dashboard and writes it to
// <dir>/dashboard.json.
func WriteDashboard(dir string) (string, error) {
	build, err := UsageDashboard().Build()
	if err != nil {
		return "", fmt.Errorf("building dashboard: %w", err)
	}
	data, err := json.MarshalIndent(build, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling dashboard: %w", err)
	}
	path := filepath.Join(dir, DashboardFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
