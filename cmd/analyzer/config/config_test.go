package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmops/bedrock-usage-analyzer/pkg/bedrock"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, warnings, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
region = "eu-west-1"
resolve_quotas = false
scrape_interval = "30m"

[[models]]
model_id = "anthropic.claude-sonnet-4-20250514-v1:0"
profile_prefix = "eu"

[granularity]
"1hour" = 60

[server]
address = ":9090"
`)

	cfg, warnings, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.False(t, cfg.ResolveQuotas)
	assert.Equal(t, 30*time.Minute, cfg.ScrapeInterval.Duration)
	assert.Equal(t, ":9090", cfg.Server.Address)
	// Untouched defaults survive the overlay.
	assert.Equal(t, "/metrics", cfg.Server.Path)

	require.Len(t, cfg.Models, 1)
	assert.Equal(t, "eu", cfg.Models[0].ProfilePrefix)

	g := cfg.BedrockGranularity()
	assert.Equal(t, bedrock.PeriodMinute, g[bedrock.Window1Hour])
	assert.Equal(t, bedrock.PeriodFiveMinute, g[bedrock.Window30Days])
}

func TestLoadWarnsOnUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
region = "us-east-1"
regionn = "oops"
`)

	_, warnings, err := Load(path)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "regionn")
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, `region = [broken`)

	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Models = []ModelConfig{{ModelID: "model-a", ProfilePrefix: "us"}}

	tests := map[string]struct {
		mutate        func(*Config)
		requireModels bool
		wantErr       string
	}{
		"default config with models is valid": {
			mutate:        func(*Config) {},
			requireModels: true,
		},
		"no models is fine when not required": {
			mutate:        func(c *Config) { c.Models = nil },
			requireModels: false,
		},
		"no models fails when required": {
			mutate:        func(c *Config) { c.Models = nil },
			requireModels: true,
			wantErr:       "no models",
		},
		"bad region": {
			mutate:  func(c *Config) { c.Region = "us_east_1" },
			wantErr: "invalid region",
		},
		"unknown granularity window": {
			mutate:  func(c *Config) { c.Granularity["2hours"] = 300 },
			wantErr: "unknown granularity window",
		},
		"invalid granularity period": {
			mutate:  func(c *Config) { c.Granularity["1day"] = 120 },
			wantErr: "must be",
		},
		"unknown profile prefix": {
			mutate:        func(c *Config) { c.Models[0].ProfilePrefix = "mars" },
			requireModels: true,
			wantErr:       "unknown profile prefix",
		},
		"missing model id": {
			mutate:        func(c *Config) { c.Models[0].ModelID = "" },
			requireModels: true,
			wantErr:       "missing model_id",
		},
		"non-positive scrape interval": {
			mutate:  func(c *Config) { c.ScrapeInterval = Duration{} },
			wantErr: "scrape_interval",
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			cfg.Models = append([]ModelConfig{}, valid.Models...)
			cfg.Granularity = map[string]int32{}
			for k, v := range valid.Granularity {
				cfg.Granularity[k] = v
			}
			tt.mutate(&cfg)

			err := cfg.Validate(tt.requireModels)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
