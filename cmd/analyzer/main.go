package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cversion "github.com/prometheus/common/version"
	"github.com/urfave/cli/v2"

	bedrock_usage_analyzer "github.com/fmops/bedrock-usage-analyzer"
	"github.com/fmops/bedrock-usage-analyzer/cmd/analyzer/config"
	"github.com/fmops/bedrock-usage-analyzer/cmd/analyzer/web"
	"github.com/fmops/bedrock-usage-analyzer/pkg/aws"
	"github.com/fmops/bedrock-usage-analyzer/pkg/aws/client"
	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
	"github.com/fmops/bedrock-usage-analyzer/pkg/logger"
	"github.com/fmops/bedrock-usage-analyzer/pkg/metadata"
	"github.com/fmops/bedrock-usage-analyzer/pkg/provider"
	"github.com/fmops/bedrock-usage-analyzer/pkg/quotas"
	"github.com/fmops/bedrock-usage-analyzer/pkg/report"
)

func main() {
	app := &cli.App{
		Name:    bedrock_usage_analyzer.ToolName,
		Usage:   "Analyze Amazon Bedrock foundation model usage across inference profiles",
		Version: cversion.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.toml",
				Usage:   "Path to the TOML configuration file",
				EnvVars: []string{"BEDROCK_USAGE_ANALYZER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "aws.profile",
				Usage: "AWS profile to authenticate with, overrides the config file",
			},
			&cli.StringFlag{
				Name:  "aws.region",
				Usage: "AWS region, overrides the config file",
			},
			&cli.StringFlag{
				Name:  "aws.role-arn",
				Usage: "IAM role to assume",
			},
			&cli.StringFlag{
				Name:  "log.level",
				Value: "info",
				Usage: "Log level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log.format",
				Value: "text",
				Usage: "Log format (text, json)",
			},
		},
		Commands: []*cli.Command{
			analyzeCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(c *cli.Context, requireModels bool) (config.Config, *slog.Logger, error) {
	handler := logger.HandlerForOutput(c.String("log.format"), logger.WriterForOutput("stdout"))
	log := slog.New(logger.NewLevelHandler(logger.GetLogLevel(c.String("log.level")), handler))
	slog.SetDefault(log)

	cfg, warnings, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	for _, warning := range warnings {
		log.Warn(warning)
	}

	if region := c.String("aws.region"); region != "" {
		cfg.AWS.Region = region
	}
	if profile := c.String("aws.profile"); profile != "" {
		cfg.AWS.Profile = profile
	}
	if roleARN := c.String("aws.role-arn"); roleARN != "" {
		cfg.AWS.RoleARN = roleARN
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = cfg.Region
	}

	if err := cfg.Validate(requireModels); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Fetch usage metrics once and write JSON/HTML reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output-dir",
				Usage: "Output directory, overrides the config file",
			},
		},
		Action: runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	cfg, log, err := setup(c, true)
	if err != nil {
		return err
	}
	if dir := c.String("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checkRegion(ctx, log, cfg)

	awsClient, err := client.NewAWSClient(ctx,
		client.WithRegion(cfg.AWS.Region),
		client.WithProfile(cfg.AWS.Profile),
		client.WithRoleARN(cfg.AWS.RoleARN))
	if err != nil {
		return fmt.Errorf("creating AWS client: %w", err)
	}

	modelList := loadModelList(ctx, log, cfg)
	specs := cfg.ModelSpecs()
	validateProfiles(ctx, log, awsClient, specs)

	accountID, err := awsClient.AccountID(ctx)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "could not resolve account identity",
			slog.String("message", err.Error()),
		)
	}

	analyzer := bedrock.NewAnalyzer(awsClient, log)
	usage, err := analyzer.Analyze(ctx, specs, cfg.BedrockGranularity(), nil)
	if err != nil {
		return fmt.Errorf("analyzing usage: %w", err)
	}

	var modelQuotas map[string]quotas.ModelQuotas
	if cfg.ResolveQuotas && modelList != nil {
		modelQuotas = resolveQuotas(ctx, log, awsClient, modelList, usage)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	r := report.Build(usage, accountID, cfg.Region, modelQuotas)
	jsonPath, err := report.WriteJSON(r, cfg.OutputDir)
	if err != nil {
		return err
	}
	htmlPath, err := report.WriteHTML(r, cfg.OutputDir)
	if err != nil {
		return err
	}
	log.LogAttrs(ctx, slog.LevelInfo, "reports written",
		slog.String("json", jsonPath),
		slog.String("html", htmlPath),
	)

	if cfg.WriteDashboard {
		dashPath, err := report.WriteDashboard(cfg.OutputDir)
		if err != nil {
			return err
		}
		log.LogAttrs(ctx, slog.LevelInfo, "dashboard written",
			slog.String("path", dashPath),
		)
	}

	return nil
}

// checkRegion warns when the configured region is absent from the region
// metadata. The analysis still runs: CloudWatch accepts any valid region,
// but a region outside regions.yml has no fm-list file and therefore no
// quota metadata.
func checkRegion(ctx context.Context, log *slog.Logger, cfg config.Config) {
	regions, err := metadata.LoadRegions(cfg.MetadataDir)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "region metadata unavailable",
			slog.String("message", err.Error()),
		)
		return
	}
	if !slices.Contains(regions, cfg.Region) {
		log.LogAttrs(ctx, slog.LevelWarn, "configured region not present in region metadata",
			slog.String("region", cfg.Region),
			slog.Int("known_regions", len(regions)),
		)
	}
}

// loadModelList reads the foundation model metadata for the configured
// region. Missing metadata disables quota resolution but never fails the run.
func loadModelList(ctx context.Context, log *slog.Logger, cfg config.Config) *metadata.ModelList {
	list, err := metadata.LoadModelList(cfg.MetadataDir, cfg.Region)
	if err != nil {
		log.LogAttrs(ctx, slog.LevelWarn, "model metadata unavailable, quota resolution disabled",
			slog.String("message", err.Error()),
		)
		return nil
	}
	log.LogAttrs(ctx, slog.LevelInfo, "model metadata loaded",
		slog.Int("models", len(list.Models)),
		slog.String("providers", strings.Join(list.Providers(), ",")),
	)
	return list
}

// validateProfiles checks that each configured profile-based model resolves
// to a real system inference profile. A missing profile is a warning: the
// CloudWatch dimension may still carry historical data.
func validateProfiles(ctx context.Context, log *slog.Logger, awsClient client.Client, specs []bedrock.ModelSpec) {
	for _, spec := range specs {
		if spec.ProfilePrefix == "" || spec.ProfilePrefix == metadata.PrefixBase {
			continue
		}
		monitored := spec.MonitoredID()
		summary, err := awsClient.ResolveInferenceProfile(ctx, monitored)
		if err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "could not resolve inference profile",
				slog.String("profile_id", monitored),
				slog.String("message", err.Error()),
			)
			continue
		}
		if summary == nil {
			msg := "inference profile not found"
			if metadata.IsRegionalPrefix(spec.ProfilePrefix) {
				// Cross-region profiles are region scoped; the same model may
				// still resolve under another region's prefix.
				msg = "inference profile not found in this region"
			}
			log.LogAttrs(ctx, slog.LevelWarn, msg,
				slog.String("profile_id", monitored),
			)
		}
	}
}

// resolveQuotas resolves quota codes for every model whose metadata carries
// them, pairing applied values with the one-day window's observed p90.
func resolveQuotas(ctx context.Context, log *slog.Logger, awsClient client.Client, modelList *metadata.ModelList, usage *bedrock.Usage) map[string]quotas.ModelQuotas {
	resolver := quotas.NewResolver(awsClient, log)
	resolved := map[string]quotas.ModelQuotas{}

	for _, mu := range usage.Models {
		model := modelList.Lookup(mu.Spec.ModelID)
		if model == nil {
			log.LogAttrs(ctx, slog.LevelWarn, "model not present in metadata, skipping quotas",
				slog.String("model_id", mu.Spec.ModelID),
			)
			continue
		}
		codes := model.EndpointQuotas(mu.Spec.ProfilePrefix)
		if codes == nil {
			continue
		}
		stats := mu.Windows[bedrock.Window1Day].Statistics
		if mq := resolver.Resolve(ctx, codes, stats); len(mq) > 0 {
			resolved[mu.MonitoredID] = mq
		}
	}
	return resolved
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a Prometheus exporter for recent usage",
		Action: func(c *cli.Context) error {
			cfg, log, err := setup(c, true)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			log.LogAttrs(ctx, slog.LevelInfo, "starting exporter",
				slog.String("version", cversion.Info()),
			)

			csp, err := aws.New(ctx, &aws.Config{
				Specs:          cfg.ModelSpecs(),
				Granularity:    cfg.BedrockGranularity(),
				Region:         cfg.AWS.Region,
				Profile:        cfg.AWS.Profile,
				RoleARN:        cfg.AWS.RoleARN,
				ScrapeInterval: cfg.ScrapeInterval.Duration,
				Logger:         log,
			})
			if err != nil {
				return fmt.Errorf("creating provider: %w", err)
			}

			return runServer(ctx, cfg, log, csp)
		},
	}
}

func createPromRegistryHandler(csp provider.Provider) (http.Handler, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		version.NewCollector(bedrock_usage_analyzer.ToolName),
		csp,
	)
	if err := csp.RegisterCollectors(registry); err != nil {
		return nil, fmt.Errorf("registering collectors: %w", err)
	}
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}), nil
}

func runServer(ctx context.Context, cfg config.Config, log *slog.Logger, csp provider.Provider) error {
	handler, err := createPromRegistryHandler(csp)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", web.HomePageHandler(cfg.Server.Path))
	mux.Handle(cfg.Server.Path, handler)

	server := &http.Server{Addr: cfg.Server.Address, Handler: mux}
	errChan := make(chan error)

	go func() {
		log.LogAttrs(ctx, slog.LevelInfo, "listening",
			slog.String("address", cfg.Server.Address),
			slog.String("path", cfg.Server.Path),
		)
		errChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.LogAttrs(ctx, slog.LevelInfo, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.Timeout.Duration)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down server: %w", err)
		}
	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error running server: %w", err)
		}
	}

	return nil
}
