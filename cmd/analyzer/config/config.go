// Package config loads the analyzer TOML configuration and overlays it onto
// defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
	"github.com/fmops/bedrock-usage-analyzer/pkg/metadata"
)

// Duration wraps time.Duration so TOML values like "30m" parse directly.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ModelConfig selects one model/profile pair to analyze.
type ModelConfig struct {
	ModelID       string `toml:"model_id"`
	ProfilePrefix string `toml:"profile_prefix"`
}

type AWSConfig struct {
	Profile string `toml:"profile"`
	Region  string `toml:"region"`
	RoleARN string `toml:"role_arn"`
}

type ServerConfig struct {
	Address string   `toml:"address"`
	Path    string   `toml:"path"`
	Timeout Duration `toml:"timeout"`
}

// Config holds all analyzer configuration values.
type Config struct {
	// Region the analysis reports on. Also the default AWS client region.
	Region string `toml:"region"`

	// Models lists the model/profile pairs to analyze.
	Models []ModelConfig `toml:"models"`

	// Granularity maps window name to CloudWatch period in seconds.
	Granularity map[string]int32 `toml:"granularity"`

	// MetadataDir holds regions.yml and fm-list-<region>.yml.
	MetadataDir string `toml:"metadata_dir"`

	// OutputDir receives report.json, report.html and dashboard.json.
	OutputDir string `toml:"output_dir"`

	// ResolveQuotas toggles Service Quotas lookups during analyze.
	ResolveQuotas bool `toml:"resolve_quotas"`

	// WriteDashboard toggles the Grafana dashboard artifact during analyze.
	WriteDashboard bool `toml:"write_dashboard"`

	// ScrapeInterval is how often serve mode refetches CloudWatch data.
	ScrapeInterval Duration `toml:"scrape_interval"`

	AWS    AWSConfig    `toml:"aws"`
	Server ServerConfig `toml:"server"`
}

// DefaultConfig returns a Config with all defaults populated.
func DefaultConfig() Config {
	granularity := map[string]int32{}
	for w, period := range bedrock.DefaultGranularity() {
		granularity[string(w)] = period
	}

	return Config{
		Region:         "us-east-1",
		Granularity:    granularity,
		MetadataDir:    "metadata",
		OutputDir:      "output",
		ResolveQuotas:  true,
		WriteDashboard: false,
		ScrapeInterval: Duration{time.Hour},
		Server: ServerConfig{
			Address: ":8080",
			Path:    "/metrics",
			Timeout: Duration{30 * time.Second},
		},
	}
}

// Load loads configuration from path, overlaying TOML values onto defaults.
// A missing file returns defaults without error. Warnings are returned for
// unrecognized TOML keys.
func Load(path string) (Config, []string, error) {
	cfg := DefaultConfig()

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil, nil
		}
		return Config{}, nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	// Warn about unrecognized keys, they are likely typos.
	var warnings []string
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key: %s", key))
	}

	return cfg, warnings, nil
}

// BedrockGranularity converts the configured granularity map, overlaying it
// onto the defaults so partial configs stay valid.
func (c Config) BedrockGranularity() bedrock.Granularity {
	g := bedrock.DefaultGranularity()
	for name, period := range c.Granularity {
		g[bedrock.Window(name)] = period
	}
	return g
}

// ModelSpecs converts the configured models to analyzer specs.
func (c Config) ModelSpecs() []bedrock.ModelSpec {
	specs := make([]bedrock.ModelSpec, 0, len(c.Models))
	for _, m := range c.Models {
		specs = append(specs, bedrock.ModelSpec{ModelID: m.ModelID, ProfilePrefix: m.ProfilePrefix})
	}
	return specs
}

// Validate checks the configuration. requireModels should be true for
// commands that fetch metrics.
func (c Config) Validate(requireModels bool) error {
	if !metadata.ValidRegionName(c.Region) {
		return fmt.Errorf("invalid region %q", c.Region)
	}

	for name := range c.Granularity {
		if !bedrock.Window(name).Valid() {
			return fmt.Errorf("unknown granularity window %q", name)
		}
	}
	if err := c.BedrockGranularity().Validate(); err != nil {
		return err
	}

	if requireModels && len(c.Models) == 0 {
		return fmt.Errorf("no models configured, add at least one [[models]] entry")
	}
	for _, m := range c.Models {
		if m.ModelID == "" {
			return fmt.Errorf("model entry is missing model_id")
		}
		if !metadata.KnownPrefix(m.ProfilePrefix) {
			return fmt.Errorf("model %s uses unknown profile prefix %q", m.ModelID, m.ProfilePrefix)
		}
	}

	if c.ScrapeInterval.Duration <= 0 {
		return fmt.Errorf("scrape_interval must be positive")
	}

	return nil
}
